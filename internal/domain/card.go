package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// EnergyCost is one entry of a move's cost.
type EnergyCost struct {
	Amount int        `json:"amount"`
	TypeID EnergyType `json:"typeId"`
}

// DamageAmount is a damage string such as "20", "20+" or "10×".
// Models sometimes answer with a bare number, which is accepted as well.
type DamageAmount string

func (d *DamageAmount) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*d = DamageAmount(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("damageAmount must be a string or number: %w", err)
	}
	if _, err := strconv.ParseFloat(string(n), 64); err != nil {
		return fmt.Errorf("damageAmount: %w", err)
	}
	*d = DamageAmount(n.String())
	return nil
}

// MoveType distinguishes attacks from abilities in the editor.
type MoveType string

const (
	MoveTypeDefault MoveType = "default"
	MoveTypeAbility MoveType = "ability"
)

// Move is an attack or ability on the card.
type Move struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Description  string       `json:"description"`
	Order        int          `json:"order"`
	Type         MoveType     `json:"type,omitempty"`
	DamageAmount DamageAmount `json:"damageAmount,omitempty"`
	EnergyCost   []EnergyCost `json:"energyCost,omitempty"`
}

// CardImage is a layer of artwork on the card.
type CardImage struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Order          int    `json:"order"`
	BehindTemplate bool   `json:"behindTemplate"`
	Src            string `json:"src"`
}

// Card is the canonical record the editor consumes.
type Card struct {
	Name            string     `json:"name"`
	BaseSetID       int        `json:"baseSetId"`
	SupertypeID     int        `json:"supertypeId"`
	TypeID          EnergyType `json:"typeId"`
	SubtypeID       *Subtype   `json:"subtypeId,omitempty"`
	BackgroundColor string     `json:"backgroundColor,omitempty"`

	Hitpoints          int         `json:"hitpoints"`
	WeaknessTypeID     *EnergyType `json:"weaknessTypeId,omitempty"`
	WeaknessAmount     int         `json:"weaknessAmount,omitempty"`
	WeaknessModifier   string      `json:"weaknessModifier,omitempty"`
	ResistanceTypeID   *EnergyType `json:"resistanceTypeId,omitempty"`
	ResistanceAmount   int         `json:"resistanceAmount,omitempty"`
	ResistanceModifier string      `json:"resistanceModifier,omitempty"`
	RetreatCost        int         `json:"retreatCost"`

	Images []CardImage `json:"images"`
	Moves  []Move      `json:"moves"`

	DexEntry    string `json:"dexEntry,omitempty"`
	Illustrator string `json:"illustrator,omitempty"`

	SetIconID      int  `json:"setIconId,omitempty"`
	RotationIconID int  `json:"rotationIconId,omitempty"`
	RarityIconID   int  `json:"rarityIconId,omitempty"`
	RarityID       *int `json:"rarityId,omitempty"`
	VariationID    *int `json:"variationId,omitempty"`
	TypeImgID      int  `json:"typeImgId,omitempty"`
}

// CardValidation is the outcome of checking an assembled card.
type CardValidation struct {
	IsValid  bool     `json:"isValid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// GeneratedStats is the shape the stats prompt asks the model for.
type GeneratedStats struct {
	Hitpoints        int         `json:"hitpoints"`
	WeaknessTypeID   *EnergyType `json:"weaknessTypeId"`
	WeaknessAmount   int         `json:"weaknessAmount"`
	ResistanceTypeID *EnergyType `json:"resistanceTypeId"`
	ResistanceAmount int         `json:"resistanceAmount"`
	RetreatCost      int         `json:"retreatCost"`
}

// GeneratedMove is one element of the moves prompt's JSON array.
type GeneratedMove struct {
	Name         string       `json:"name"`
	Description  string       `json:"description"`
	DamageAmount DamageAmount `json:"damageAmount"`
	EnergyCost   []EnergyCost `json:"energyCost"`
}

// GeneratedAbility is the shape the ability prompt asks for.
type GeneratedAbility struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// GeneratedFlavor is the shape the flavor prompt asks for.
type GeneratedFlavor struct {
	DexEntry    string `json:"dexEntry"`
	Illustrator string `json:"illustrator"`
}
