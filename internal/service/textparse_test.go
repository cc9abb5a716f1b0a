package service

import (
	"errors"
	"testing"

	"github.com/timmy/cardsmith/internal/domain"
)

func TestParseRepliesRejectWrongShape(t *testing.T) {
	parsers := map[string]func(string) error{
		kindStats: func(s string) error {
			_, err := parseStats(s)
			return err
		},
		kindMoves: func(s string) error {
			_, err := parseMoves(s)
			return err
		},
		kindAbility: func(s string) error {
			_, err := parseAbility(s)
			return err
		},
		kindFlavor: func(s string) error {
			_, err := parseFlavor(s)
			return err
		},
	}

	tests := []struct {
		kind string
		raw  string
	}{
		{kindStats, "null"},
		{kindStats, "{}"},
		{kindStats, `{"hitpoints":null,"retreatCost":1}`},
		{kindStats, `[{"hitpoints":60}]`},
		{kindMoves, "null"},
		{kindMoves, "{}"},
		{kindMoves, "[]"},
		{kindMoves, `{"name":"Zap","description":"Flip a coin."}`},
		{kindMoves, `[{"name":"Zap","description":"Flip a coin."},null]`},
		{kindMoves, `[{"name":"Zap"}]`},
		{kindMoves, `[{"name":"  ","description":"Flip a coin."}]`},
		{kindAbility, "null"},
		{kindAbility, "{}"},
		{kindAbility, `{"name":"Charge Up"}`},
		{kindAbility, `[{"name":"Charge Up","description":"Attach an energy."}]`},
		{kindFlavor, "null"},
		{kindFlavor, "```json\nnull\n```"},
		{kindFlavor, "{}"},
		{kindFlavor, `{"unexpected":true}`},
		{kindFlavor, `["It stores static in its fur."]`},
	}
	for _, tt := range tests {
		t.Run(tt.kind+" "+tt.raw, func(t *testing.T) {
			err := parsers[tt.kind](tt.raw)
			var malformed *domain.MalformedResponseError
			if !errors.As(err, &malformed) {
				t.Fatalf("error = %v, want MalformedResponseError", err)
			}
			if malformed.Kind != tt.kind || malformed.Raw != tt.raw {
				t.Errorf("malformed = %+v", malformed)
			}
		})
	}
}

func TestParseRepliesAcceptExpectedShape(t *testing.T) {
	stats, err := parseStats("```json\n{\"hitpoints\":70,\"weaknessTypeId\":6,\"weaknessAmount\":2}\n```")
	if err != nil {
		t.Fatalf("parseStats: %v", err)
	}
	if stats.Hitpoints != 70 || stats.WeaknessTypeID == nil || *stats.WeaknessTypeID != domain.EnergyFighting || stats.ResistanceTypeID != nil {
		t.Errorf("stats = %+v", stats)
	}

	moves, err := parseMoves(`[{"name":"Zap","description":"Flip a coin.","damageAmount":20}]`)
	if err != nil {
		t.Fatalf("parseMoves: %v", err)
	}
	if len(moves) != 1 || moves[0].DamageAmount != "20" {
		t.Errorf("moves = %+v", moves)
	}

	ability, err := parseAbility(`{"name":"Charge Up","description":"Attach an energy."}`)
	if err != nil || ability.Name != "Charge Up" {
		t.Errorf("ability = %+v, err = %v", ability, err)
	}

	flavor, err := parseFlavor(`{"dexEntry":"It stores static in its fur."}`)
	if err != nil || flavor.DexEntry == "" {
		t.Errorf("flavor = %+v, err = %v", flavor, err)
	}
}
