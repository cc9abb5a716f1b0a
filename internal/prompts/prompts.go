package prompts

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/timmy/cardsmith/internal/domain"
)

// ============================================================================
// Card text prompts
// ============================================================================

// statsTemplate asks for HP, weakness, resistance and retreat cost.
const statsTemplate = `
You are a Pokemon card game designer. Generate balanced stats for a {{.Name}} card.

Card Details:
- Name: {{.Name}}
- Type: {{.TypeName}}
- Subtype: {{.SubtypeName}}
- Power Level: {{.PowerLevel}}
- Concept: {{or .Concept "Standard Pokemon card"}}

Generate ONLY a JSON response with:
{
  "hitpoints": number ({{.HitPoints}} for {{.PowerLevel}} power; 40-80 for low, 80-150 for medium, 150+ for high),
  "weaknessTypeId": number (type that this Pokemon is weak to),
  "weaknessAmount": number (typically 2 for x2 weakness),
  "resistanceTypeId": number (type this Pokemon resists, or null),
  "resistanceAmount": number (typically 30, or 0 if no resistance),
  "retreatCost": number (0-{{.MaxRetreatCost}} energy cost to retreat)
}

Type ids: {{.TypeCatalog}}

Make the stats balanced for competitive play.`

// movesTemplate asks for a JSON array of attacks.
const movesTemplate = `
You are a Pokemon card game designer. Generate {{.MoveCount}} moves for {{.Name}}.

Card Details:
- Name: {{.Name}}
- Type: {{.TypeName}}
- Power Level: {{.PowerLevel}}
- Concept: {{or .Concept "Standard Pokemon attacks"}}
{{- with .Custom.Moves}}
- Custom Requirements: {{.}}
{{- end}}

Generate ONLY a JSON array of moves:
[
  {
    "name": "Move Name",
    "description": "Move effect description (keep under 100 characters)",
    "damageAmount": "20" (or "20+" or "10×" for variable damage),
    "energyCost": [
      {"amount": 1, "typeId": {{.TypeID}}},
      {"amount": 1, "typeId": {{.ColorlessID}}}
    ]
  }
]

Energy cost guidelines:
- Low power: 1-2 total energy, 10-30 damage
- Medium power: 2-3 total energy, 30-80 damage
- High power: 3-4 total energy, 80-150+ damage
- TypeId {{.ColorlessID}} = Colorless (any energy)
- Include type-specific energy matching the Pokemon's type`

// abilityTemplate asks for a single ability object.
const abilityTemplate = `
You are a Pokemon card game designer. Generate 1 ability for {{.Name}}.

Card Details:
- Name: {{.Name}}
- Type: {{.TypeName}}
- Power Level: {{.PowerLevel}}
- Concept: {{or .Concept "Standard Pokemon ability"}}
{{- with .Custom.Ability}}
- Custom Requirements: {{.}}
{{- end}}

Generate ONLY a JSON object:
{
  "name": "Ability Name",
  "description": "Ability effect description (keep under 120 characters)"
}

Make the ability thematic to the Pokemon and balanced for competitive play.`

// flavorTemplate asks for the dex entry and illustrator credit.
const flavorTemplate = `
You are a Pokemon card game writer. Generate flavor text for {{.Name}}.

Card Details:
- Name: {{.Name}}
- Type: {{.TypeName}}
- Concept: {{or .Concept "Standard Pokemon"}}
{{- with .Custom.Flavor}}
- Custom Requirements: {{.}}
{{- end}}

Generate ONLY a JSON object:
{
  "dexEntry": "Pokedex entry (keep under 80 characters)",
  "illustrator": "AI Generated"
}

Write engaging, Pokemon-style flavor text that fits the card theme.`

// ============================================================================
// Artwork prompt
// ============================================================================

const artworkTemplate = `{{.Name}} Pokemon, {{.Style}} style, {{.TypeName}} type, high quality artwork`

// Builder renders the text and artwork prompts for a generation request.
// Output depends only on the request, so identical requests yield
// byte-identical prompts.
type Builder struct {
	stats   *template.Template
	moves   *template.Template
	ability *template.Template
	flavor  *template.Template
	artwork *template.Template
}

// NewBuilder parses the prompt templates.
func NewBuilder() *Builder {
	return &Builder{
		stats:   template.Must(template.New("stats").Parse(statsTemplate)),
		moves:   template.Must(template.New("moves").Parse(movesTemplate)),
		ability: template.Must(template.New("ability").Parse(abilityTemplate)),
		flavor:  template.Must(template.New("flavor").Parse(flavorTemplate)),
		artwork: template.Must(template.New("artwork").Parse(artworkTemplate)),
	}
}

type promptData struct {
	Name           string
	TypeID         int
	TypeName       string
	SubtypeName    string
	PowerLevel     domain.PowerLevel
	Style          domain.ArtworkStyle
	Concept        string
	HitPoints      string
	MoveCount      string
	MaxRetreatCost int
	ColorlessID    int
	TypeCatalog    string
	Custom         domain.CustomPrompts
}

func newPromptData(req *domain.GenerationRequest) promptData {
	return promptData{
		Name:           req.Name,
		TypeID:         int(req.TypeID),
		TypeName:       req.TypeID.String(),
		SubtypeName:    req.Subtype().String(),
		PowerLevel:     req.PowerLevel,
		Style:          req.ArtworkStyle,
		Concept:        req.Concept,
		HitPoints:      req.PowerLevel.HitPoints().String(),
		MoveCount:      req.PowerLevel.MoveCount(),
		MaxRetreatCost: domain.MaxRetreatCost,
		ColorlessID:    int(domain.EnergyColorless),
		TypeCatalog:    typeCatalog(),
		Custom:         req.Custom(),
	}
}

// typeCatalog lists "1=Grass, 2=Fire, ..." in id order.
func typeCatalog() string {
	var buf bytes.Buffer
	for t := domain.EnergyGrass; t.Valid(); t++ {
		if buf.Len() > 0 {
			buf.WriteString(", ")
		}
		fmt.Fprintf(&buf, "%d=%s", t, t)
	}
	return buf.String()
}

func (b *Builder) render(t *template.Template, req *domain.GenerationRequest) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, newPromptData(req)); err != nil {
		return "", fmt.Errorf("render %s prompt: %w", t.Name(), err)
	}
	return buf.String(), nil
}

// Stats renders the stats prompt.
func (b *Builder) Stats(req *domain.GenerationRequest) (string, error) {
	return b.render(b.stats, req)
}

// Moves renders the moves prompt, including any custom move requirements.
func (b *Builder) Moves(req *domain.GenerationRequest) (string, error) {
	return b.render(b.moves, req)
}

func (b *Builder) Ability(req *domain.GenerationRequest) (string, error) {
	return b.render(b.ability, req)
}

func (b *Builder) Flavor(req *domain.GenerationRequest) (string, error) {
	return b.render(b.flavor, req)
}

// Artwork returns the custom artwork prompt verbatim when one is given,
// otherwise a prompt built from name, style and type.
func (b *Builder) Artwork(req *domain.GenerationRequest) (string, error) {
	if custom := req.Custom().Artwork; custom != "" {
		return custom, nil
	}
	return b.render(b.artwork, req)
}
