// Package payment holds the mocked processor used at checkout. No money
// moves; every charge succeeds unless the amount is negative.
package payment

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"grouptrip/internal/domain"
)

type Charge struct {
	Reference string
	Amount    int64
	Currency  string
	Method    string
}

type Mock struct {
	mu      sync.Mutex
	charges []Charge
}

func NewMock() *Mock { return &Mock{} }

func (m *Mock) Charge(ctx context.Context, amount int64, currency string, pay domain.PaymentInfo) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if amount < 0 {
		return "", fmt.Errorf("invalid charge amount %d", amount)
	}
	ref := "mock_" + uuid.NewString()
	m.mu.Lock()
	m.charges = append(m.charges, Charge{Reference: ref, Amount: amount, Currency: currency, Method: pay.Method})
	m.mu.Unlock()
	log.Info().Str("ref", ref).Int64("amount", amount).Str("currency", currency).Msg("mock charge accepted")
	return ref, nil
}

// Charges returns a copy of every accepted charge.
func (m *Mock) Charges() []Charge {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Charge(nil), m.charges...)
}
