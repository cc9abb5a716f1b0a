package service

import (
	"fmt"
	"strings"

	"github.com/timmy/cardsmith/internal/domain"
)

const (
	minHitpoints         = 10
	warnHitpointsAbove   = 500
	warnRetreatCostAbove = 5
)

// ValidateCard checks an assembled card. Errors make the card unusable;
// warnings are surfaced to the user but do not block it. All problems are
// reported, not just the first.
func ValidateCard(card *domain.Card) domain.CardValidation {
	errs := []string{}
	warnings := []string{}

	if strings.TrimSpace(card.Name) == "" {
		errs = append(errs, "Card name is required")
	}
	if card.Hitpoints < minHitpoints {
		errs = append(errs, "Invalid HP value")
	}
	if len(card.Images) == 0 {
		errs = append(errs, "Card must have artwork")
	}

	if card.Hitpoints > warnHitpointsAbove {
		warnings = append(warnings, "HP seems very high")
	}
	if card.RetreatCost > warnRetreatCostAbove {
		warnings = append(warnings, "Retreat cost seems very high")
	}

	for i, move := range card.Moves {
		if strings.TrimSpace(move.Name) == "" {
			errs = append(errs, fmt.Sprintf("Move %d missing name", i+1))
		}
		if strings.TrimSpace(move.Description) == "" {
			errs = append(errs, fmt.Sprintf("Move %d missing description", i+1))
		}
	}

	return domain.CardValidation{
		IsValid:  len(errs) == 0,
		Errors:   errs,
		Warnings: warnings,
	}
}
