package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrSessionNotFound = fmt.Errorf("session %w", ErrNotFound)
	ErrPackageNotFound = fmt.Errorf("package %w", ErrNotFound)
	ErrAmountOverflow  = errors.New("amount exceeds the supported range")
	ErrCacheCorrupt    = errors.New("cached value cannot be decoded")
)

// FieldError names one invalid input field.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Reason)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// NotReadyError is returned when ranking or cart building is requested before
// discovery for the session has completed.
type NotReadyError struct {
	SessionID string
	Status    SessionStatus
}

func (e *NotReadyError) Error() string {
	return fmt.Sprintf("session %s not ready (status %s)", e.SessionID, e.Status)
}

type UnknownCategoryError struct {
	Category Category
}

func (e *UnknownCategoryError) Error() string {
	return fmt.Sprintf("category %q not in cart", e.Category)
}

// ProviderError records one failed vendor call. It is kept in the discovery
// result and never propagated past discovery.
type ProviderError struct {
	Category Category `json:"category"`
	Provider string   `json:"provider"`
	Reason   string   `json:"reason"`
	Err      error    `json:"-"`
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s (%s): %s", e.Provider, e.Category, e.Reason)
}

func (e *ProviderError) Unwrap() error { return e.Err }

type EmptyCartError struct {
	SessionID string
}

func (e *EmptyCartError) Error() string {
	return fmt.Sprintf("cart for session %s is empty", e.SessionID)
}

// MixedCurrencyError is returned when a package combines options priced in
// different currencies.
type MixedCurrencyError struct {
	Currencies []string
}

func (e *MixedCurrencyError) Error() string {
	return "options priced in different currencies: " + strings.Join(e.Currencies, ", ")
}
