package domain

import "strings"

// CustomPrompts carries optional per-field instructions from the user.
type CustomPrompts struct {
	Moves   string `json:"moves,omitempty"`
	Ability string `json:"ability,omitempty"`
	Artwork string `json:"artwork,omitempty"`
	Flavor  string `json:"flavor,omitempty"`
}

// GenerationRequest describes the card the user wants synthesized.
// It is submitted once and never stored on its own.
type GenerationRequest struct {
	Name string `json:"name"`
	// PokemonName is the field name older clients send; Normalize folds it into Name.
	PokemonName string `json:"pokemonName,omitempty"`

	BaseSetID   int        `json:"baseSetId"`
	SupertypeID int        `json:"supertypeId"`
	TypeID      EnergyType `json:"typeId"`
	SubtypeID   *Subtype   `json:"subtypeId,omitempty"`

	PowerLevel   PowerLevel   `json:"powerLevel"`
	ArtworkStyle ArtworkStyle `json:"artworkStyle"`
	Concept      string       `json:"concept,omitempty"`

	GenerateMoves   bool `json:"generateMoves"`
	GenerateAbility bool `json:"generateAbility"`
	BalanceStats    bool `json:"balanceStats"`

	RarityID      *int           `json:"rarityId,omitempty"`
	VariationID   *int           `json:"variationId,omitempty"`
	CustomPrompts *CustomPrompts `json:"customPrompts,omitempty"`
}

// Normalize trims text fields and fills enum defaults.
func (r *GenerationRequest) Normalize() {
	if strings.TrimSpace(r.Name) == "" {
		r.Name = r.PokemonName
	}
	r.PokemonName = ""
	r.Name = strings.TrimSpace(r.Name)
	r.Concept = strings.TrimSpace(r.Concept)
	if r.PowerLevel == "" {
		r.PowerLevel = PowerMedium
	}
	if r.ArtworkStyle == "" {
		r.ArtworkStyle = StyleRealistic
	}
	if r.CustomPrompts != nil {
		r.CustomPrompts.Moves = strings.TrimSpace(r.CustomPrompts.Moves)
		r.CustomPrompts.Ability = strings.TrimSpace(r.CustomPrompts.Ability)
		r.CustomPrompts.Artwork = strings.TrimSpace(r.CustomPrompts.Artwork)
		r.CustomPrompts.Flavor = strings.TrimSpace(r.CustomPrompts.Flavor)
	}
}

// Validate checks the fields the pipeline cannot run without. Optional
// fields are not inspected.
func (r *GenerationRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return NewValidationError("name", "card name is required")
	}
	if r.BaseSetID <= 0 {
		return NewValidationError("baseSetId", "base set is required")
	}
	if r.SupertypeID <= 0 {
		return NewValidationError("supertypeId", "supertype is required")
	}
	if r.TypeID == 0 {
		return NewValidationError("typeId", "type is required")
	}
	if !r.TypeID.Valid() {
		return NewValidationError("typeId", "unknown type %d", r.TypeID)
	}
	if r.SubtypeID != nil && *r.SubtypeID != 0 && !r.SubtypeID.Valid() {
		return NewValidationError("subtypeId", "unknown subtype %d", *r.SubtypeID)
	}
	if r.PowerLevel != "" && !r.PowerLevel.Valid() {
		return NewValidationError("powerLevel", "unknown power level %q", r.PowerLevel)
	}
	if r.ArtworkStyle != "" && !r.ArtworkStyle.Valid() {
		return NewValidationError("artworkStyle", "unknown artwork style %q", r.ArtworkStyle)
	}
	return nil
}

// Subtype returns the requested subtype, defaulting to Basic.
func (r *GenerationRequest) Subtype() Subtype {
	if r.SubtypeID == nil {
		return SubtypeBasic
	}
	return *r.SubtypeID
}

// Custom returns the custom prompts, never nil.
func (r *GenerationRequest) Custom() CustomPrompts {
	if r.CustomPrompts == nil {
		return CustomPrompts{}
	}
	return *r.CustomPrompts
}
