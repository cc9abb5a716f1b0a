package service

import (
	"fmt"
	"strings"

	"github.com/timmy/cardsmith/internal/domain"
)

// Reply kinds, used as the MalformedResponseError tag.
const (
	kindStats   = "stats"
	kindMoves   = "moves"
	kindAbility = "ability"
	kindFlavor  = "flavor"
)

func malformed(kind, raw, format string, args ...interface{}) error {
	return &domain.MalformedResponseError{Kind: kind, Raw: raw, Err: fmt.Errorf(format, args...)}
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// parseStats requires an object carrying hitpoints. The remaining fields may
// be omitted; an absent weakness or resistance means none.
func parseStats(text string) (domain.GeneratedStats, error) {
	var raw struct {
		domain.GeneratedStats
		Hitpoints *int `json:"hitpoints"`
	}
	if err := ParseJSON(kindStats, text, &raw); err != nil {
		return domain.GeneratedStats{}, err
	}
	if raw.Hitpoints == nil {
		return domain.GeneratedStats{}, malformed(kindStats, text, "missing hitpoints")
	}
	stats := raw.GeneratedStats
	stats.Hitpoints = *raw.Hitpoints
	return stats, nil
}

// parseMoves requires a non-empty array whose elements all carry a name and
// a description.
func parseMoves(text string) ([]domain.GeneratedMove, error) {
	var moves []domain.GeneratedMove
	if err := ParseJSON(kindMoves, text, &moves); err != nil {
		return nil, err
	}
	if len(moves) == 0 {
		return nil, malformed(kindMoves, text, "no moves")
	}
	for i, m := range moves {
		if blank(m.Name) || blank(m.Description) {
			return nil, malformed(kindMoves, text, "move %d missing name or description", i+1)
		}
	}
	return moves, nil
}

func parseAbility(text string) (*domain.GeneratedAbility, error) {
	var ability domain.GeneratedAbility
	if err := ParseJSON(kindAbility, text, &ability); err != nil {
		return nil, err
	}
	if blank(ability.Name) || blank(ability.Description) {
		return nil, malformed(kindAbility, text, "ability missing name or description")
	}
	return &ability, nil
}

func parseFlavor(text string) (domain.GeneratedFlavor, error) {
	var flavor domain.GeneratedFlavor
	if err := ParseJSON(kindFlavor, text, &flavor); err != nil {
		return domain.GeneratedFlavor{}, err
	}
	if blank(flavor.DexEntry) {
		return domain.GeneratedFlavor{}, malformed(kindFlavor, text, "missing dexEntry")
	}
	return flavor, nil
}
