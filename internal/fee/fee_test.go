package fee

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"tillledger/internal/domain"
	"tillledger/internal/store"
)

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func TestDefaultFees(t *testing.T) {
	policy := Default()
	cases := []struct {
		amount string
		method domain.PaymentMethod
		fee    string
		net    string
	}{
		{"100.00", domain.PaymentCard, "5.33", "94.67"},
		{"150.00", domain.PaymentCard, "8.00", "142.00"},
		{"0", domain.PaymentCard, "0", "0"},
		{"0.09", domain.PaymentCard, "0", "0.09"},
		{"50.00", domain.PaymentCash, "0", "50.00"},
		{"73.21", domain.PaymentPix, "0", "73.21"},
	}

	for _, tc := range cases {
		fee, net, err := policy.Split(dec(tc.amount), tc.method)
		if err != nil {
			t.Fatalf("split %s %s failed: %v", tc.amount, tc.method, err)
		}
		if !fee.Equal(dec(tc.fee)) {
			t.Fatalf("expected fee %s for %s %s, got %s", tc.fee, tc.amount, tc.method, fee)
		}
		if !net.Equal(dec(tc.net)) {
			t.Fatalf("expected net %s for %s %s, got %s", tc.net, tc.amount, tc.method, net)
		}
	}
}

func TestCardFeeMatchesRoundedRate(t *testing.T) {
	policy := Default()
	for cents := int64(0); cents <= 50000; cents += 37 {
		amount := decimal.New(cents, -2)
		fee, err := policy.Fee(amount, domain.PaymentCard)
		if err != nil {
			t.Fatalf("fee failed: %v", err)
		}
		want := amount.Mul(DefaultCardRate).Round(2)
		if !fee.Equal(want) {
			t.Fatalf("fee(%s) = %s, want %s", amount, fee, want)
		}
		net, err := policy.Net(amount, domain.PaymentCard)
		if err != nil {
			t.Fatalf("net failed: %v", err)
		}
		if net.IsNegative() || !net.Equal(amount.Sub(fee)) {
			t.Fatalf("net(%s) = %s, fee %s", amount, net, fee)
		}
	}
}

func TestNetIsFlooredAtZero(t *testing.T) {
	policy, err := New(map[domain.PaymentMethod]decimal.Decimal{domain.PaymentCard: dec("1.5")})
	if err != nil {
		t.Fatalf("new policy failed: %v", err)
	}
	net, err := policy.Net(dec("10"), domain.PaymentCard)
	if err != nil {
		t.Fatalf("net failed: %v", err)
	}
	if !net.IsZero() {
		t.Fatalf("expected net floored at 0, got %s", net)
	}
}

func TestRejectsNegativeAmountAndUnknownMethod(t *testing.T) {
	policy := Default()
	if _, err := policy.Fee(dec("-1"), domain.PaymentCash); !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected validation error for negative amount, got %v", err)
	}
	if _, err := policy.Fee(dec("1"), domain.PaymentMethod("CHEQUE")); !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected validation error for unknown method, got %v", err)
	}

	partial, err := New(map[domain.PaymentMethod]decimal.Decimal{domain.PaymentCash: decimal.Zero})
	if err != nil {
		t.Fatalf("new policy failed: %v", err)
	}
	if _, err := partial.Fee(dec("1"), domain.PaymentCard); !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected validation error for method missing from table, got %v", err)
	}
	if _, err := New(map[domain.PaymentMethod]decimal.Decimal{domain.PaymentCard: dec("-0.1")}); !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected negative rate to be rejected, got %v", err)
	}
}
