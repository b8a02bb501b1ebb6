package memory

import (
	"context"
	"fmt"
	"sync"

	"grouptrip/internal/domain"
)

// BookingRepo is the in-memory BookingRepository used by tests and local runs
// without MySQL.
type BookingRepo struct {
	mu       sync.RWMutex
	bookings map[string]domain.Booking
}

func NewBookingRepo() *BookingRepo {
	return &BookingRepo{bookings: map[string]domain.Booking{}}
}

func (r *BookingRepo) SaveBooking(_ context.Context, b domain.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.bookings[b.ID]; ok {
		return fmt.Errorf("booking %s already exists", b.ID)
	}
	b.CartSnapshot = append([]byte(nil), b.CartSnapshot...)
	r.bookings[b.ID] = b
	return nil
}

func (r *BookingRepo) GetBooking(_ context.Context, id string) (domain.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.bookings[id]
	if !ok {
		return domain.Booking{}, fmt.Errorf("booking %s: %w", id, domain.ErrNotFound)
	}
	b.CartSnapshot = append([]byte(nil), b.CartSnapshot...)
	return b, nil
}
