package domain

import (
	"context"
	"time"
)

// OfferQuery is what a vendor provider is asked for.
type OfferQuery struct {
	Destination string
	StartDate   time.Time
	EndDate     time.Time
	Headcount   int
}

func QueryFor(t TripRequirements) OfferQuery {
	return OfferQuery{Destination: t.Destination, StartDate: t.StartDate, EndDate: t.EndDate, Headcount: t.Headcount}
}

// VendorProvider returns raw offerings for one category. Payload shapes vary
// by vendor; normalization happens in discovery.
type VendorProvider interface {
	Name() string
	Category() Category
	Search(ctx context.Context, q OfferQuery) ([]map[string]any, error)
}

// PackageProvider is an optional external ranker returning pre-assembled,
// possibly pre-scored packages over already discovered options.
type PackageProvider interface {
	Name() string
	Packages(ctx context.Context, q OfferQuery, options map[Category][]CategoryOption) ([]ProvidedPackage, error)
}

// RequirementExtractor turns free text into partial requirements. Zero values
// mean "not found".
type RequirementExtractor interface {
	Extract(ctx context.Context, text string) (TripRequirements, error)
}

type SessionStore interface {
	Get(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
}

type BookingRepository interface {
	SaveBooking(ctx context.Context, b Booking) error
	GetBooking(ctx context.Context, id string) (Booking, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}

// PaymentProcessor is a mocked boundary; it returns an opaque reference.
type PaymentProcessor interface {
	Charge(ctx context.Context, amountCents int64, currency string, p PaymentInfo) (string, error)
}
