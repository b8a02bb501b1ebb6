package app

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"grouptrip/internal/domain"
)

/********** alias registries (single source of truth) **********/

var optionAliases = map[string][]string{
	"id":        {"id", "offer_id", "offerId", "option_id", "code"},
	"vendor":    {"vendor", "vendor_name", "provider", "supplier", "airline", "company"},
	"name":      {"name", "title", "hotel_name", "venue_name", "menu", "label"},
	"currency":  {"currency", "price.currency", "currency_code"},
	"price":     {"price", "unit_price", "unitPrice", "price_per_person", "price_per_night", "price.amount", "amount", "total_price", "rate"},
	"rating":    {"rating", "trust_score", "review_score", "score", "rating.value"},
	"amenities": {"amenities", "facilities", "features", "services", "inclusions"},
	"distance":  {"distance_km", "distanceKm", "distance", "location.distance_km"},
}

var categoryAliases = map[domain.Category]map[string][]string{
	domain.CategoryFlight: {
		"airline":  {"airline", "carrier", "carrier_name"},
		"number":   {"flight_number", "flightNumber", "number"},
		"stops":    {"stops", "num_stops", "layovers"},
		"duration": {"duration_minutes", "duration", "durationMinutes"},
	},
	domain.CategoryHotel: {
		"stars":     {"stars", "star_rating", "rating.stars"},
		"rooms":     {"rooms_available", "rooms", "available_rooms"},
		"occupancy": {"occupancy", "max_occupancy", "guests_per_room"},
	},
	domain.CategoryMeetingRoom: {
		"capacity": {"capacity", "max_capacity", "seats"},
	},
	domain.CategoryCatering: {
		"cuisine": {"cuisine", "cuisine_type", "style"},
	},
	domain.CategoryTransport: {
		"vehicle": {"vehicle_type", "vehicle", "type"},
		"seats":   {"seats", "capacity", "passengers"},
	},
}

/********** tiny helpers **********/

// lookupAny: safe nested lookup with dot paths on maps.
func lookupAny(m map[string]any, path string) any {
	cur := any(m)
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		v, ok := obj[part]
		if !ok {
			return nil
		}
		cur = v
	}
	return cur
}

// firstString returns the first non-empty string (or number rendered as
// string) at any of paths.
func firstString(m map[string]any, paths ...string) string {
	for _, p := range paths {
		switch v := lookupAny(m, p).(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		case int:
			return strconv.Itoa(v)
		case int64:
			return strconv.FormatInt(v, 10)
		}
	}
	return ""
}

// getFloatFlexible: number from several paths (float64/int/string like "8,0" or "$1,200.50").
func getFloatFlexible(m map[string]any, paths ...string) *float64 {
	for _, k := range paths {
		switch v := lookupAny(m, k).(type) {
		case float64:
			f := v
			return &f
		case int:
			f := float64(v)
			return &f
		case int64:
			f := float64(v)
			return &f
		case json.Number:
			if f, err := v.Float64(); err == nil {
				return &f
			}
		case string:
			if f, ok := parseLooseNumber(v); ok {
				return &f
			}
		}
	}
	return nil
}

// parseLooseNumber accepts "8,0", "1,200.50", "$300" and "300 USD".
func parseLooseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimLeft(s, "$€£")
	if i := strings.IndexByte(s, ' '); i > 0 {
		s = s[:i]
	}
	if s == "" {
		return 0, false
	}
	switch {
	case strings.Contains(s, ",") && strings.Contains(s, "."):
		s = strings.ReplaceAll(s, ",", "")
	case strings.Count(s, ",") == 1 && len(s)-strings.IndexByte(s, ',') != 4:
		s = strings.ReplaceAll(s, ",", ".")
	default:
		s = strings.ReplaceAll(s, ",", "")
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func firstIntFlexible(m map[string]any, paths ...string) *int {
	if f := getFloatFlexible(m, paths...); f != nil {
		x := int(*f)
		return &x
	}
	return nil
}

// firstSliceStrings: accept []any with either strings or {name/label}, or a
// comma separated string.
func firstSliceStrings(m map[string]any, paths ...string) []string {
	for _, k := range paths {
		switch raw := lookupAny(m, k).(type) {
		case []any:
			out := make([]string, 0, len(raw))
			for _, it := range raw {
				switch t := it.(type) {
				case string:
					if t != "" {
						out = append(out, t)
					}
				case map[string]any:
					if n := firstString(t, "name", "label", "title"); n != "" {
						out = append(out, n)
					}
				}
			}
			if len(out) > 0 {
				return out
			}
		case []string:
			if len(raw) > 0 {
				return append([]string(nil), raw...)
			}
		case string:
			var out []string
			for _, p := range strings.Split(raw, ",") {
				if t := strings.TrimSpace(p); t != "" {
					out = append(out, t)
				}
			}
			if len(out) > 0 {
				return out
			}
		}
	}
	return nil
}

func toCents(f float64) int64 { return int64(math.Round(f * 100)) }

// normalizeRating maps ratings to 0..5; 10-point and 100-point scales are
// rescaled.
func normalizeRating(f *float64) *float64 {
	if f == nil || *f < 0 {
		return nil
	}
	v := *f
	switch {
	case v > 10:
		v = v / 20
	case v > 5:
		v = v / 2
	}
	if v > 5 {
		v = 5
	}
	return &v
}

/********** option mapper **********/

// mapOption normalizes one raw vendor payload. ok is false when the payload
// carries no usable price.
func mapOption(c domain.Category, provider string, p map[string]any) (domain.CategoryOption, bool) {
	price := getFloatFlexible(p, optionAliases["price"]...)
	if price == nil || *price < 0 {
		return domain.CategoryOption{}, false
	}
	ca := categoryAliases[c]

	o := domain.CategoryOption{
		Category:  c,
		Vendor:    firstString(p, optionAliases["vendor"]...),
		Name:      firstString(p, optionAliases["name"]...),
		UnitPrice: toCents(*price),
		Currency:  strings.ToUpper(firstString(p, optionAliases["currency"]...)),
		Rating:    normalizeRating(getFloatFlexible(p, optionAliases["rating"]...)),
		Amenities: firstSliceStrings(p, optionAliases["amenities"]...),
	}
	if o.Vendor == "" {
		o.Vendor = provider
	}
	o.Currency = o.CurrencyCode()
	dist := getFloatFlexible(p, optionAliases["distance"]...)

	switch c {
	case domain.CategoryFlight:
		fd := &domain.FlightDetails{
			Airline:      firstString(p, ca["airline"]...),
			FlightNumber: firstString(p, ca["number"]...),
		}
		if s := firstIntFlexible(p, ca["stops"]...); s != nil && *s > 0 {
			fd.Stops = *s
		}
		if d := firstIntFlexible(p, ca["duration"]...); d != nil {
			fd.DurationMinutes = *d
		}
		o.Flight = fd
	case domain.CategoryHotel:
		hd := &domain.HotelDetails{
			Stars:          firstIntFlexible(p, ca["stars"]...),
			DistanceKm:     dist,
			RoomsAvailable: firstIntFlexible(p, ca["rooms"]...),
		}
		if occ := firstIntFlexible(p, ca["occupancy"]...); occ != nil && *occ > 0 {
			hd.Occupancy = *occ
		}
		// stars stand in for trust when no review rating is present
		if o.Rating == nil && hd.Stars != nil {
			s := float64(*hd.Stars)
			o.Rating = normalizeRating(&s)
		}
		o.Hotel = hd
	case domain.CategoryMeetingRoom:
		o.Venue = &domain.VenueDetails{Capacity: firstIntFlexible(p, ca["capacity"]...), DistanceKm: dist}
	case domain.CategoryCatering:
		o.Catering = &domain.CateringDetails{Cuisine: firstString(p, ca["cuisine"]...), DistanceKm: dist}
	case domain.CategoryTransport:
		o.Transport = &domain.TransportDetails{
			VehicleType: firstString(p, ca["vehicle"]...),
			Seats:       firstIntFlexible(p, ca["seats"]...),
			DistanceKm:  dist,
		}
	}

	// ID → prefer explicit; else synthesize stable hash.
	if id := firstString(p, optionAliases["id"]...); id != "" {
		o.ID = sanitizeID(id)
	} else {
		sig := strings.Join([]string{string(c), o.Vendor, o.Name, strconv.FormatInt(o.UnitPrice, 10)}, "|")
		sum := sha1.Sum([]byte(sig))
		o.ID = hex.EncodeToString(sum[:8])
	}
	return o, true
}

// sanitizeID keeps package ids parseable; "|" separates package segments.
func sanitizeID(id string) string {
	return strings.ReplaceAll(strings.TrimSpace(id), "|", "-")
}

// mapOptions normalizes a provider response, dropping unusable payloads and
// duplicate ids (first wins).
func mapOptions(c domain.Category, provider string, in []map[string]any) []domain.CategoryOption {
	out := make([]domain.CategoryOption, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	dropped := 0
	for _, raw := range in {
		o, ok := mapOption(c, provider, raw)
		if !ok {
			dropped++
			continue
		}
		if _, dup := seen[o.ID]; dup {
			dropped++
			continue
		}
		seen[o.ID] = struct{}{}
		out = append(out, o)
	}
	if dropped > 0 {
		log.Debug().
			Str("category", string(c)).
			Str("provider", provider).
			Int("dropped", dropped).
			Msg("dropped unusable offers")
	}
	return out
}
