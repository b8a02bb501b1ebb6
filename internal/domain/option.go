package domain

import (
	"fmt"
	"strings"
)

type Category string

const (
	CategoryFlight      Category = "flight"
	CategoryHotel       Category = "hotel"
	CategoryMeetingRoom Category = "meeting_room"
	CategoryCatering    Category = "catering"
	CategoryTransport   Category = "transport"
)

// Categories lists every category in canonical order. Packages, package ids
// and ranking iterate in this order.
var Categories = []Category{
	CategoryFlight,
	CategoryHotel,
	CategoryMeetingRoom,
	CategoryCatering,
	CategoryTransport,
}

var categoryAliases = map[string]Category{
	"flight": CategoryFlight, "flights": CategoryFlight,
	"hotel": CategoryHotel, "hotels": CategoryHotel,
	"meeting_room": CategoryMeetingRoom, "meeting_rooms": CategoryMeetingRoom,
	"venue": CategoryMeetingRoom, "venues": CategoryMeetingRoom,
	"catering": CategoryCatering,
	"transport": CategoryTransport, "transportation": CategoryTransport,
}

// ParseCategory accepts the canonical name and the plural/legacy spellings
// used by the frontend ("hotels", "meeting_rooms", "venues").
func ParseCategory(s string) (Category, error) {
	if c, ok := categoryAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return c, nil
	}
	return "", fmt.Errorf("unknown category %q", s)
}

func (c Category) Valid() bool {
	for _, k := range Categories {
		if k == c {
			return true
		}
	}
	return false
}

// PerPerson reports whether the category is priced per traveller.
func (c Category) PerPerson() bool {
	return c == CategoryFlight || c == CategoryCatering
}

// DefaultCurrency applies to options whose vendor did not name one.
const DefaultCurrency = "USD"

// CategoryOption is one normalized vendor offering. Exactly one of the detail
// pointers is set, matching Category.
type CategoryOption struct {
	ID        string   `json:"id"`
	Category  Category `json:"category"`
	Vendor    string   `json:"vendor"`
	Name      string   `json:"name,omitempty"`
	UnitPrice int64    `json:"unit_price_cents"`
	Currency  string   `json:"currency"`
	Rating    *float64 `json:"rating,omitempty"` // 0..5
	Amenities []string `json:"amenities,omitempty"`

	Flight    *FlightDetails    `json:"flight,omitempty"`
	Hotel     *HotelDetails     `json:"hotel,omitempty"`
	Venue     *VenueDetails     `json:"venue,omitempty"`
	Catering  *CateringDetails  `json:"catering,omitempty"`
	Transport *TransportDetails `json:"transport,omitempty"`
}

type FlightDetails struct {
	Airline         string `json:"airline,omitempty"`
	FlightNumber    string `json:"flight_number,omitempty"`
	Stops           int    `json:"stops"`
	DurationMinutes int    `json:"duration_minutes,omitempty"`
}

type HotelDetails struct {
	Stars          *int     `json:"stars,omitempty"`
	DistanceKm     *float64 `json:"distance_km,omitempty"`
	RoomsAvailable *int     `json:"rooms_available,omitempty"`
	Occupancy      int      `json:"occupancy,omitempty"` // guests per room
}

type VenueDetails struct {
	Capacity   *int     `json:"capacity,omitempty"`
	DistanceKm *float64 `json:"distance_km,omitempty"`
}

type CateringDetails struct {
	Cuisine    string   `json:"cuisine,omitempty"`
	DistanceKm *float64 `json:"distance_km,omitempty"`
}

type TransportDetails struct {
	VehicleType string   `json:"vehicle_type,omitempty"`
	Seats       *int     `json:"seats,omitempty"`
	DistanceKm  *float64 `json:"distance_km,omitempty"`
}

// DistanceKm returns the location metric for non-flight categories.
func (o CategoryOption) DistanceKm() *float64 {
	switch {
	case o.Hotel != nil:
		return o.Hotel.DistanceKm
	case o.Venue != nil:
		return o.Venue.DistanceKm
	case o.Catering != nil:
		return o.Catering.DistanceKm
	case o.Transport != nil:
		return o.Transport.DistanceKm
	}
	return nil
}

// ProvidedPackage is a bundle pre-assembled (and optionally pre-scored) by an
// external ranking provider. Options references option ids per category.
type ProvidedPackage struct {
	Options     map[Category]string `json:"options"`
	Score       *float64            `json:"score,omitempty"`
	Explanation string              `json:"explanation,omitempty"`
}

// DiscoveryResult holds normalized options per category for one session.
// Categories with no options are legitimately empty.
type DiscoveryResult struct {
	Options  map[Category][]CategoryOption `json:"options"`
	Provided []ProvidedPackage             `json:"provided,omitempty"`
	Failures []ProviderError               `json:"failures,omitempty"`
}

// Empty reports whether no category returned any option.
func (d DiscoveryResult) Empty() bool {
	for _, opts := range d.Options {
		if len(opts) > 0 {
			return false
		}
	}
	return true
}

// Find looks up an option by id within a category.
func (d DiscoveryResult) Find(c Category, id string) (CategoryOption, bool) {
	for _, o := range d.Options[c] {
		if o.ID == id {
			return o, true
		}
	}
	return CategoryOption{}, false
}

func (o CategoryOption) CurrencyCode() string {
	if o.Currency == "" {
		return DefaultCurrency
	}
	return o.Currency
}
