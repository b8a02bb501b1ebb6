package app

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"grouptrip/internal/domain"
)

const defaultRoomOccupancy = 2

type CartAction string

const (
	ActionUpdate CartAction = "update"
	ActionRemove CartAction = "remove"
)

type CartEdit struct {
	Category domain.Category `json:"category"`
	Action   CartAction      `json:"action"`
	Quantity int             `json:"quantity,omitempty"`
}

// QuantityFor derives the initial quantity of a line:
//
//	flight, catering  headcount (per person)
//	hotel             rooms × nights, rooms = ceil(headcount / occupancy)
//	meeting_room      days spanned by the trip
//	transport         1 per booking
func QuantityFor(o domain.CategoryOption, req domain.TripRequirements) int {
	switch o.Category {
	case domain.CategoryFlight, domain.CategoryCatering:
		return req.Headcount
	case domain.CategoryHotel:
		occ := defaultRoomOccupancy
		if o.Hotel != nil && o.Hotel.Occupancy > 0 {
			occ = o.Hotel.Occupancy
		}
		rooms := (req.Headcount + occ - 1) / occ
		return rooms * req.Nights()
	case domain.CategoryMeetingRoom:
		return req.Days()
	default:
		return 1
	}
}

// BuildCart prices a selected package for the trip. Every option must be
// priced in the same currency.
func BuildCart(req domain.TripRequirements, pkg domain.Package, pricing domain.PricingConfig, now time.Time) (domain.Cart, error) {
	if cur := packageCurrencies(pkg); len(cur) > 1 {
		return domain.Cart{}, &domain.MixedCurrencyError{Currencies: cur}
	}
	cart := domain.Cart{
		PackageID: pkg.ID,
		Items:     make(map[domain.Category]domain.CartLineItem, len(pkg.Options)),
		Currency:  domain.DefaultCurrency,
		UpdatedAt: now,
	}
	for _, c := range domain.Categories {
		o, ok := pkg.Options[c]
		if !ok {
			continue
		}
		qty := QuantityFor(o, req)
		if qty <= 0 {
			continue
		}
		cart.Currency = o.CurrencyCode()
		cart.Items[c] = domain.CartLineItem{Option: o, Quantity: qty, UnitPrice: o.UnitPrice}
	}
	if err := cart.Recalculate(pricing); err != nil {
		return domain.Cart{}, fmt.Errorf("price package %s: %w", pkg.ID, err)
	}
	return cart, nil
}

// packageCurrencies lists the distinct currencies of a package, sorted.
func packageCurrencies(pkg domain.Package) []string {
	seen := make(map[string]struct{}, 1)
	out := make([]string, 0, 1)
	for _, o := range pkg.Options {
		cur := o.CurrencyCode()
		if _, ok := seen[cur]; ok {
			continue
		}
		seen[cur] = struct{}{}
		out = append(out, cur)
	}
	sort.Strings(out)
	return out
}

// ApplyEdit mutates cart in place and recomputes every aggregate from the
// full line set. Update with a quantity ≤ 0 removes the line. On error the
// cart must be discarded.
func ApplyEdit(cart *domain.Cart, e CartEdit, pricing domain.PricingConfig, now time.Time) error {
	if _, ok := cart.Items[e.Category]; !ok {
		return &domain.UnknownCategoryError{Category: e.Category}
	}
	if e.Action == ActionUpdate && e.Quantity > domain.MaxLineQuantity {
		return quantityError(fmt.Sprintf("must be at most %d", domain.MaxLineQuantity))
	}
	switch e.Action {
	case ActionRemove:
		delete(cart.Items, e.Category)
	case ActionUpdate:
		if e.Quantity <= 0 {
			delete(cart.Items, e.Category)
			break
		}
		li := cart.Items[e.Category]
		if li.Quantity == e.Quantity {
			return recalc(cart, pricing)
		}
		li.Quantity = e.Quantity
		cart.Items[e.Category] = li
	default:
		return &domain.ValidationError{Fields: []domain.FieldError{{
			Field:  "action",
			Reason: fmt.Sprintf("unsupported action %q", e.Action),
		}}}
	}
	if err := recalc(cart, pricing); err != nil {
		return err
	}
	cart.UpdatedAt = now
	return nil
}

func recalc(cart *domain.Cart, pricing domain.PricingConfig) error {
	if err := cart.Recalculate(pricing); err != nil {
		if errors.Is(err, domain.ErrAmountOverflow) {
			return quantityError("cart total exceeds the supported amount")
		}
		return err
	}
	return nil
}

func quantityError(reason string) error {
	return &domain.ValidationError{Fields: []domain.FieldError{{Field: "quantity", Reason: reason}}}
}
