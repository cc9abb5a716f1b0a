package service

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/timmy/cardsmith/internal/domain"
)

// Editor defaults applied to every generated card.
const (
	defaultBackgroundColor = "white"
	defaultSetIconID       = 1
	defaultRotationIconID  = 2
	defaultRarityIconID    = 1
	defaultTypeImgID       = 11

	weaknessModifier   = "×"
	resistanceModifier = "-"
)

// CardParts are the parsed model outputs a card is assembled from.
// Moves and Ability are empty when their generation was not requested.
type CardParts struct {
	Stats    domain.GeneratedStats
	Moves    []domain.GeneratedMove
	Ability  *domain.GeneratedAbility
	Flavor   domain.GeneratedFlavor
	ImageSrc string
}

// AssembleCard merges the request and generated parts into a card record.
// Apart from fresh ids for moves and images the result depends only on its
// inputs. An ability, when present, is placed first at order 0 and the
// generated moves follow in their original order.
func AssembleCard(req *domain.GenerationRequest, parts CardParts) *domain.Card {
	card := &domain.Card{
		Name:            req.Name,
		BaseSetID:       req.BaseSetID,
		SupertypeID:     req.SupertypeID,
		TypeID:          req.TypeID,
		SubtypeID:       req.SubtypeID,
		BackgroundColor: defaultBackgroundColor,

		Hitpoints:          parts.Stats.Hitpoints,
		WeaknessTypeID:     parts.Stats.WeaknessTypeID,
		WeaknessAmount:     parts.Stats.WeaknessAmount,
		WeaknessModifier:   weaknessModifier,
		ResistanceTypeID:   parts.Stats.ResistanceTypeID,
		ResistanceAmount:   parts.Stats.ResistanceAmount,
		ResistanceModifier: resistanceModifier,
		RetreatCost:        parts.Stats.RetreatCost,

		Images: []domain.CardImage{{
			ID:             uuid.NewString(),
			Name:           fmt.Sprintf("%s Artwork", req.Name),
			Order:          0,
			BehindTemplate: true,
			Src:            parts.ImageSrc,
		}},

		DexEntry:    parts.Flavor.DexEntry,
		Illustrator: parts.Flavor.Illustrator,

		SetIconID:      defaultSetIconID,
		RotationIconID: defaultRotationIconID,
		RarityIconID:   defaultRarityIconID,
		RarityID:       req.RarityID,
		VariationID:    req.VariationID,
		TypeImgID:      defaultTypeImgID,
	}

	// A null resistance type from the model means no resistance at all.
	if card.ResistanceTypeID == nil || !card.ResistanceTypeID.Valid() {
		card.ResistanceTypeID = nil
		card.ResistanceAmount = 0
	}

	moves := make([]domain.Move, 0, len(parts.Moves)+1)
	offset := 0
	if parts.Ability != nil {
		moves = append(moves, domain.Move{
			ID:          uuid.NewString(),
			Name:        parts.Ability.Name,
			Description: parts.Ability.Description,
			Order:       0,
			Type:        domain.MoveTypeAbility,
		})
		offset = 1
	}
	for i, m := range parts.Moves {
		moves = append(moves, domain.Move{
			ID:           uuid.NewString(),
			Name:         m.Name,
			Description:  m.Description,
			Order:        i + offset,
			Type:         domain.MoveTypeDefault,
			DamageAmount: m.DamageAmount,
			EnergyCost:   m.EnergyCost,
		})
	}
	card.Moves = moves

	return card
}

// BalanceStats clamps hitpoints to the request's power band and retreat cost
// to [0, domain.MaxRetreatCost]. It returns a warning for each adjustment.
func BalanceStats(level domain.PowerLevel, stats *domain.GeneratedStats) []string {
	var warnings []string

	band := level.HitPoints()
	if hp := band.Clamp(stats.Hitpoints); hp != stats.Hitpoints {
		warnings = append(warnings, fmt.Sprintf("HP adjusted from %d to %d to fit %s power level", stats.Hitpoints, hp, level))
		stats.Hitpoints = hp
	}

	retreat := stats.RetreatCost
	if retreat < 0 {
		retreat = 0
	} else if retreat > domain.MaxRetreatCost {
		retreat = domain.MaxRetreatCost
	}
	if retreat != stats.RetreatCost {
		warnings = append(warnings, fmt.Sprintf("Retreat cost adjusted from %d to %d", stats.RetreatCost, retreat))
		stats.RetreatCost = retreat
	}

	return warnings
}
