package app

import (
	"fmt"
	"sort"

	"grouptrip/internal/domain"
)

// NormalizeWeights canonicalizes category keys (accepting the plural and
// legacy spellings) and fills what the caller left out from the defaults.
// Unknown categories, values outside 0..100 and two spellings of one category
// are rejected together.
func NormalizeWeights(in domain.Weights) (domain.Weights, error) {
	def := domain.DefaultWeights()
	out := domain.Weights{
		CategoryImportance: make(map[domain.Category]float64, len(domain.Categories)),
		Sub:                make(map[domain.Category]domain.SubWeights, len(domain.Categories)),
	}
	var fields []domain.FieldError
	bad := func(field, reason string) {
		fields = append(fields, domain.FieldError{Field: field, Reason: reason})
	}
	inRange := func(v float64) bool { return v >= 0 && v <= 100 }

	for _, k := range sortedKeys(in.CategoryImportance) {
		v := in.CategoryImportance[k]
		c, err := domain.ParseCategory(string(k))
		if err != nil {
			bad("category_importance."+string(k), "unknown category")
			continue
		}
		if _, dup := out.CategoryImportance[c]; dup {
			bad("category_importance."+string(k), "duplicate category "+string(c))
			continue
		}
		if !inRange(v) {
			bad("category_importance."+string(k), "must be between 0 and 100")
			continue
		}
		out.CategoryImportance[c] = v
	}
	for _, k := range sortedKeys(in.Sub) {
		sw := in.Sub[k]
		c, err := domain.ParseCategory(string(k))
		if err != nil {
			bad("sub_weights."+string(k), "unknown category")
			continue
		}
		if _, dup := out.Sub[c]; dup {
			bad("sub_weights."+string(k), "duplicate category "+string(c))
			continue
		}
		for name, v := range map[string]float64{
			"price_weight": sw.Price, "trust_weight": sw.Trust,
			"location_weight": sw.Location, "amenities_weight": sw.Amenities,
		} {
			if !inRange(v) {
				bad(fmt.Sprintf("sub_weights.%s.%s", k, name), "must be between 0 and 100")
			}
		}
		out.Sub[c] = sw
	}
	if len(fields) > 0 {
		sortFields(fields)
		return domain.Weights{}, &domain.ValidationError{Fields: fields}
	}

	if len(in.CategoryImportance) == 0 {
		out.CategoryImportance = def.CategoryImportance
	}
	for _, c := range domain.Categories {
		if _, ok := out.Sub[c]; !ok {
			out.Sub[c] = def.Sub[c]
		}
	}
	return out, nil
}

func sortedKeys[V any](m map[domain.Category]V) []domain.Category {
	keys := make([]domain.Category, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func sortFields(f []domain.FieldError) {
	sort.Slice(f, func(i, j int) bool { return f[i].Field < f[j].Field })
}
