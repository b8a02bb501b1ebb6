package payment_test

import (
	"context"
	"strings"
	"testing"

	"grouptrip/internal/adapters/payment"
	"grouptrip/internal/domain"
)

func TestMock_Charge(t *testing.T) {
	m := payment.NewMock()
	ref, err := m.Charge(context.Background(), 111250, "USD", domain.PaymentInfo{Method: "card"})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !strings.HasPrefix(ref, "mock_") {
		t.Fatalf("unexpected reference %q", ref)
	}
	got := m.Charges()
	if len(got) != 1 || got[0].Amount != 111250 || got[0].Reference != ref {
		t.Fatalf("unexpected charges: %+v", got)
	}
}

func TestMock_RejectsNegative(t *testing.T) {
	m := payment.NewMock()
	if _, err := m.Charge(context.Background(), -1, "USD", domain.PaymentInfo{}); err == nil {
		t.Fatal("expected error for negative amount")
	}
	if len(m.Charges()) != 0 {
		t.Fatal("rejected charge must not be recorded")
	}
}
