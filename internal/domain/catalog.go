package domain

import "fmt"

// EnergyType is the elemental affinity of a card, identified by its numeric
// code on the wire.
type EnergyType int

const (
	EnergyGrass EnergyType = iota + 1
	EnergyFire
	EnergyWater
	EnergyLightning
	EnergyPsychic
	EnergyFighting
	EnergyDark
	EnergyMetal
	EnergyFairy
	EnergyDragon
	EnergyColorless

	energyTypeEnd
)

// energyTypeNames is indexed by EnergyType; index 0 is unused.
var energyTypeNames = [...]string{
	"",
	"Grass", "Fire", "Water", "Lightning", "Psychic",
	"Fighting", "Dark", "Metal", "Fairy", "Dragon", "Colorless",
}

// Fails to compile when a constant is added without a name.
var _ = [1]struct{}{}[len(energyTypeNames)-int(energyTypeEnd)]

// Valid reports whether t is a known energy type.
func (t EnergyType) Valid() bool {
	return t >= EnergyGrass && t < energyTypeEnd
}

// String returns the display name, or "Unknown" for out-of-range codes.
func (t EnergyType) String() string {
	if !t.Valid() {
		return "Unknown"
	}
	return energyTypeNames[t]
}

// Subtype is the evolution stage of a card.
type Subtype int

const (
	SubtypeBasic Subtype = iota + 1
	SubtypeStage1
	SubtypeStage2
	SubtypeV
	SubtypeVMax
	SubtypeVStar

	subtypeEnd
)

var subtypeNames = [...]string{
	"",
	"Basic", "Stage 1", "Stage 2", "V", "VMax", "VStar",
}

var _ = [1]struct{}{}[len(subtypeNames)-int(subtypeEnd)]

func (s Subtype) Valid() bool {
	return s >= SubtypeBasic && s < subtypeEnd
}

// String returns the display name. Zero and unknown codes read as Basic.
func (s Subtype) String() string {
	if !s.Valid() {
		return subtypeNames[SubtypeBasic]
	}
	return subtypeNames[s]
}

// PowerLevel is the coarse strength tier that conditions generated numbers.
type PowerLevel string

const (
	PowerLow    PowerLevel = "low"
	PowerMedium PowerLevel = "medium"
	PowerHigh   PowerLevel = "high"
)

func (p PowerLevel) Valid() bool {
	switch p {
	case PowerLow, PowerMedium, PowerHigh:
		return true
	}
	return false
}

// HPRange is the inclusive hit point band a power level asks the model for.
// Max is zero for the open-ended high tier.
type HPRange struct {
	Min int
	Max int
}

func (r HPRange) String() string {
	if r.Max == 0 {
		return fmt.Sprintf("%d+", r.Min)
	}
	return fmt.Sprintf("%d-%d", r.Min, r.Max)
}

// Clamp forces hp into the band.
func (r HPRange) Clamp(hp int) int {
	if hp < r.Min {
		return r.Min
	}
	if r.Max > 0 && hp > r.Max {
		return r.Max
	}
	return hp
}

// HitPoints returns the hit point band for the level.
func (p PowerLevel) HitPoints() HPRange {
	switch p {
	case PowerLow:
		return HPRange{Min: 40, Max: 80}
	case PowerHigh:
		return HPRange{Min: 150}
	default:
		return HPRange{Min: 80, Max: 150}
	}
}

// MoveCount describes how many moves the model should produce.
func (p PowerLevel) MoveCount() string {
	switch p {
	case PowerLow:
		return "1-2"
	case PowerHigh:
		return "2-3"
	default:
		return "2"
	}
}

// ArtworkStyle is the requested rendering style of the card art.
type ArtworkStyle string

const (
	StyleRealistic ArtworkStyle = "realistic"
	StyleAnime     ArtworkStyle = "anime"
	StyleCartoon   ArtworkStyle = "cartoon"
	StyleAbstract  ArtworkStyle = "abstract"
)

func (s ArtworkStyle) Valid() bool {
	switch s {
	case StyleRealistic, StyleAnime, StyleCartoon, StyleAbstract:
		return true
	}
	return false
}

// MaxRetreatCost is the highest retreat cost a balanced card may carry.
const MaxRetreatCost = 4
