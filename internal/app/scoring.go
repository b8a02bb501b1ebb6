package app

import (
	"math"

	"grouptrip/internal/domain"
)

// neutral is the criterion value used when an option carries no data for it.
const neutral = 0.5

// normalizeImportance turns raw category importance into fractions over the
// given categories. Negative weights count as zero; a zero sum splits evenly.
func normalizeImportance(raw map[domain.Category]float64, cats []domain.Category) map[domain.Category]float64 {
	out := make(map[domain.Category]float64, len(cats))
	if len(cats) == 0 {
		return out
	}
	var sum float64
	for _, c := range cats {
		sum += math.Max(0, raw[c])
	}
	for _, c := range cats {
		if sum <= 0 {
			out[c] = 1 / float64(len(cats))
			continue
		}
		out[c] = math.Max(0, raw[c]) / sum
	}
	return out
}

// subFractions normalizes sub-weights the same way as category importance.
func subFractions(s domain.SubWeights) (price, trust, location, amenities float64) {
	w := [4]float64{clamp(s.Price, 0, 100), clamp(s.Trust, 0, 100), clamp(s.Location, 0, 100), clamp(s.Amenities, 0, 100)}
	sum := w[0] + w[1] + w[2] + w[3]
	if sum <= 0 {
		return 0.25, 0.25, 0.25, 0.25
	}
	return w[0] / sum, w[1] / sum, w[2] / sum, w[3] / sum
}

// categoryStats holds the observed ranges of one category in a discovery
// result; favorability is relative to these.
type categoryStats struct {
	minPrice, maxPrice int64
	minLoc, maxLoc     float64
	hasLoc             bool
	maxAmenities       int
}

func statsFor(opts []domain.CategoryOption) categoryStats {
	var st categoryStats
	for i, o := range opts {
		if i == 0 || o.UnitPrice < st.minPrice {
			st.minPrice = o.UnitPrice
		}
		if i == 0 || o.UnitPrice > st.maxPrice {
			st.maxPrice = o.UnitPrice
		}
		if v, ok := locationMetric(o); ok {
			if !st.hasLoc || v < st.minLoc {
				st.minLoc = v
			}
			if !st.hasLoc || v > st.maxLoc {
				st.maxLoc = v
			}
			st.hasLoc = true
		}
		if n := len(o.Amenities); n > st.maxAmenities {
			st.maxAmenities = n
		}
	}
	return st
}

// locationMetric is lower-is-better: stops for flights, distance otherwise.
func locationMetric(o domain.CategoryOption) (float64, bool) {
	if o.Flight != nil {
		return float64(o.Flight.Stops), true
	}
	if d := o.DistanceKm(); d != nil {
		return *d, true
	}
	return 0, false
}

// inverse maps v within [lo,hi] to 1 (at lo) .. 0 (at hi). Uniform values are
// all optimal.
func inverse(v, lo, hi float64) float64 {
	if hi == lo {
		return 1
	}
	return clamp01((hi - v) / (hi - lo))
}

type criteria struct {
	price, trust, location, amenities float64
}

func evaluate(o domain.CategoryOption, st categoryStats) criteria {
	cr := criteria{
		price:     inverse(float64(o.UnitPrice), float64(st.minPrice), float64(st.maxPrice)),
		trust:     neutral,
		location:  neutral,
		amenities: neutral,
	}
	if o.Rating != nil {
		cr.trust = clamp01(*o.Rating / 5)
	}
	if v, ok := locationMetric(o); ok && st.hasLoc {
		cr.location = inverse(v, st.minLoc, st.maxLoc)
	}
	if st.maxAmenities > 0 {
		cr.amenities = float64(len(o.Amenities)) / float64(st.maxAmenities)
	}
	return cr
}

// optionScore blends the criteria of one option into [0,1].
func optionScore(o domain.CategoryOption, st categoryStats, sw domain.SubWeights) float64 {
	cr := evaluate(o, st)
	p, t, l, a := subFractions(sw)
	return clamp01(p*cr.price + t*cr.trust + l*cr.location + a*cr.amenities)
}

func clamp01(v float64) float64 { return clamp(v, 0, 1) }

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func reasonMessage(label string, v float64) string {
	switch {
	case v >= 0.8:
		return label + ": strong match"
	case v >= 0.6:
		return label + ": good"
	case v >= 0.4:
		return label + ": mixed"
	default:
		return label + ": weak"
	}
}
