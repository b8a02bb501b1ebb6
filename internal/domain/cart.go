package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// PricingConfig holds the cart rates. Rates are fractions (0.0875 = 8.75%).
type PricingConfig struct {
	TaxRate float64
	FeeRate float64
}

func DefaultPricing() PricingConfig {
	return PricingConfig{TaxRate: 0.0875, FeeRate: 0.025}
}

type CartLineItem struct {
	Option    CategoryOption `json:"option"`
	Quantity  int            `json:"quantity"`
	UnitPrice int64          `json:"unit_price_cents"`
	Subtotal  int64          `json:"subtotal_cents"`
}

// Cart maps category to line item. A category with quantity 0 is removed,
// never kept as a zero row. Total == Subtotal + Taxes + Fees always.
type Cart struct {
	PackageID string                    `json:"package_id"`
	Items     map[Category]CartLineItem `json:"items"`
	Subtotal  int64                     `json:"subtotal_cents"`
	Taxes     int64                     `json:"taxes_cents"`
	Fees      int64                     `json:"fees_cents"`
	Total     int64                     `json:"total_cents"`
	Currency  string                    `json:"currency"`
	UpdatedAt time.Time                 `json:"updated_at"`
}

// MaxLineQuantity bounds the quantity of a single cart line.
const MaxLineQuantity = 10_000

// maxCartCents keeps subtotals exactly representable as float64 so rate
// rounding stays exact.
const maxCartCents = 1 << 53

// Recalculate recomputes every line subtotal and all aggregates from the
// current line set. It fails with ErrAmountOverflow, leaving the aggregates
// untouched, when the subtotal leaves the supported range.
func (c *Cart) Recalculate(p PricingConfig) error {
	var sub int64
	subtotals := make(map[Category]int64, len(c.Items))
	for k, li := range c.Items {
		if li.Quantity > 0 && li.UnitPrice > maxCartCents/int64(li.Quantity) {
			return fmt.Errorf("%s line: %w", k, ErrAmountOverflow)
		}
		line := li.UnitPrice * int64(li.Quantity)
		if sub += line; sub > maxCartCents {
			return fmt.Errorf("subtotal: %w", ErrAmountOverflow)
		}
		subtotals[k] = line
	}
	for k, line := range subtotals {
		li := c.Items[k]
		li.Subtotal = line
		c.Items[k] = li
	}
	c.Subtotal = sub
	c.Taxes = applyRate(sub, p.TaxRate)
	c.Fees = applyRate(sub, p.FeeRate)
	c.Total = c.Subtotal + c.Taxes + c.Fees
	return nil
}

// Clone deep-copies the item map so callers cannot mutate session state.
func (c Cart) Clone() Cart {
	out := c
	out.Items = make(map[Category]CartLineItem, len(c.Items))
	for k, v := range c.Items {
		out.Items[k] = v
	}
	return out
}

func (c Cart) Empty() bool { return len(c.Items) == 0 }

// applyRate rounds half away from zero to whole cents.
func applyRate(cents int64, rate float64) int64 {
	return int64(math.Round(float64(cents) * rate))
}

type ContactInfo struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required,email"`
	Phone string `json:"phone,omitempty"`
}

// PaymentInfo is passed through to the payment processor untouched.
type PaymentInfo struct {
	Method      string `json:"method"`
	CardHolder  string `json:"card_holder,omitempty"`
	CardLast4   string `json:"card_last4,omitempty"`
	BillingZip  string `json:"billing_zip,omitempty"`
	ReferenceID string `json:"reference_id,omitempty"`
}

// Booking is the persisted outcome of checkout. CartSnapshot is the verbatim
// JSON of the final cart.
type Booking struct {
	ID               string           `json:"id"`
	SessionID        string           `json:"session_id"`
	ConfirmationCode string           `json:"confirmation_code"`
	Contact          ContactInfo      `json:"contact"`
	Requirements     TripRequirements `json:"requirements"`
	CartSnapshot     json.RawMessage  `json:"cart_snapshot"`
	Total            int64            `json:"total_cents"`
	PaymentRef       string           `json:"payment_ref"`
	CreatedAt        time.Time        `json:"created_at"`
}
