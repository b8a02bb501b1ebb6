package app_test

import (
	"testing"

	"grouptrip/internal/app"
	"grouptrip/internal/domain"
)

func TestNormalizeWeights_AliasesAndDefaults(t *testing.T) {
	w, err := app.NormalizeWeights(domain.Weights{
		Sub: map[domain.Category]domain.SubWeights{"hotels": {Price: 80}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if w.CategoryImportance[domain.CategoryHotel] != 40 {
		t.Fatalf("default importance missing: %+v", w.CategoryImportance)
	}
	if w.Sub[domain.CategoryHotel].Price != 80 || w.Sub[domain.CategoryFlight].Price != 50 {
		t.Fatalf("unexpected sub weights: %+v", w.Sub)
	}
}

func TestNormalizeWeights_Rejects(t *testing.T) {
	_, err := app.NormalizeWeights(domain.Weights{
		CategoryImportance: map[domain.Category]float64{"boats": 10, "flights": -1},
		Sub:                map[domain.Category]domain.SubWeights{"venue": {Trust: 101}},
	})
	got := fieldNames(err)
	want := []string{"category_importance.boats", "category_importance.flights", "sub_weights.venue.trust_weight"}
	if len(got) != len(want) {
		t.Fatalf("fields = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("fields = %v, want %v", got, want)
		}
	}
}

func TestNormalizeWeights_RejectsTwoSpellingsOfOneCategory(t *testing.T) {
	in := domain.Weights{
		CategoryImportance: map[domain.Category]float64{"hotel": 40, "hotels": 90},
		Sub: map[domain.Category]domain.SubWeights{
			"hotel":  {Price: 100},
			"hotels": {Trust: 100},
		},
	}
	for i := 0; i < 50; i++ {
		_, err := app.NormalizeWeights(in)
		got := fieldNames(err)
		want := []string{"category_importance.hotels", "sub_weights.hotels"}
		if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
			t.Fatalf("call %d: fields = %v, want %v", i, got, want)
		}
	}
}
