package domain

import "time"

const dateLayout = "2006-01-02"

// TripRequirements is the normalized trip request a session is opened for.
type TripRequirements struct {
	Destination string    `json:"destination" validate:"required"`
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`
	Headcount   int       `json:"headcount" validate:"gt=0"`
	Budget      int64     `json:"budget_cents" validate:"gte=0"`
}

// Nights is the number of nights between start and end, at least 1.
func (t TripRequirements) Nights() int {
	n := int(t.EndDate.Sub(t.StartDate).Hours() / 24)
	if n < 1 {
		return 1
	}
	return n
}

// Days counts calendar days spanned by the trip, inclusive.
func (t TripRequirements) Days() int {
	n := int(t.EndDate.Sub(t.StartDate).Hours()/24) + 1
	if n < 1 {
		return 1
	}
	return n
}

func (t TripRequirements) StartKey() string { return t.StartDate.Format(dateLayout) }
func (t TripRequirements) EndKey() string   { return t.EndDate.Format(dateLayout) }

// Equal compares requirements at day precision.
func (t TripRequirements) Equal(o TripRequirements) bool {
	return t.Destination == o.Destination &&
		t.StartKey() == o.StartKey() &&
		t.EndKey() == o.EndKey() &&
		t.Headcount == o.Headcount &&
		t.Budget == o.Budget
}

type SessionStatus string

const (
	StatusAnalyzed    SessionStatus = "analyzed"
	StatusDiscovering SessionStatus = "discovering"
	StatusReady       SessionStatus = "ready"
)

// Session is one trip-planning attempt from requirements through checkout.
// Discovery and Cart are owned by the session and never shared.
type Session struct {
	ID           string           `json:"id"`
	Requirements TripRequirements `json:"requirements"`
	Status       SessionStatus    `json:"status"`
	Discovery    *DiscoveryResult `json:"discovery,omitempty"`
	Cart         *Cart            `json:"cart,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
}
