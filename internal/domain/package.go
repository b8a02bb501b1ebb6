package domain

import (
	"fmt"
	"strings"
)

// SubWeights blend the per-category criteria. Each is 0..100 and they are
// normalized to fractions before use.
type SubWeights struct {
	Price     float64 `json:"price_weight"`
	Trust     float64 `json:"trust_weight"`
	Location  float64 `json:"location_weight"`
	Amenities float64 `json:"amenities_weight"`
}

// Weights is caller-supplied scoring configuration. It is never stored.
type Weights struct {
	CategoryImportance map[Category]float64    `json:"category_importance"`
	Sub                map[Category]SubWeights `json:"sub_weights"`
}

// DefaultWeights mirrors the defaults of the preferences screen.
func DefaultWeights() Weights {
	sub := SubWeights{Price: 50, Trust: 50, Location: 50, Amenities: 50}
	return Weights{
		CategoryImportance: map[Category]float64{
			CategoryFlight:      30,
			CategoryHotel:       40,
			CategoryMeetingRoom: 15,
			CategoryCatering:    15,
			CategoryTransport:   10,
		},
		Sub: map[Category]SubWeights{
			CategoryFlight:      sub,
			CategoryHotel:       sub,
			CategoryMeetingRoom: sub,
			CategoryCatering:    sub,
			CategoryTransport:   sub,
		},
	}
}

// SubFor returns the sub-weights for c, falling back to an even blend.
func (w Weights) SubFor(c Category) SubWeights {
	if s, ok := w.Sub[c]; ok {
		return s
	}
	return SubWeights{Price: 50, Trust: 50, Location: 50, Amenities: 50}
}

// Package is one candidate bundle with at most one option per category.
type Package struct {
	ID            string                      `json:"id"`
	Options       map[Category]CategoryOption `json:"options"`
	TotalCost     int64                       `json:"total_cost_cents"`
	Currency      string                      `json:"currency"`
	Score         float64                     `json:"score"`
	ProviderScore *float64                    `json:"provider_score,omitempty"`
	Explanation   string                      `json:"explanation,omitempty"`

	// order is the position in the assembled candidate list, the last tie-break.
	order int
}

func (p *Package) SetOrder(i int) { p.order = i }
func (p Package) Order() int      { return p.order }

// PackageID renders the canonical id: "category:optionID" pairs in canonical
// category order, joined by "|".
func PackageID(opts map[Category]string) string {
	parts := make([]string, 0, len(opts))
	for _, c := range Categories {
		if id, ok := opts[c]; ok {
			parts = append(parts, string(c)+":"+id)
		}
	}
	return strings.Join(parts, "|")
}

// ParsePackageID is the inverse of PackageID.
func ParsePackageID(id string) (map[Category]string, error) {
	out := map[Category]string{}
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: empty package id", ErrPackageNotFound)
	}
	for _, part := range strings.Split(id, "|") {
		k, v, ok := strings.Cut(part, ":")
		if !ok || v == "" {
			return nil, fmt.Errorf("%w: malformed segment %q", ErrPackageNotFound, part)
		}
		c, err := ParseCategory(k)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPackageNotFound, err)
		}
		if _, dup := out[c]; dup {
			return nil, fmt.Errorf("%w: duplicate category %s", ErrPackageNotFound, c)
		}
		out[c] = v
	}
	return out, nil
}
