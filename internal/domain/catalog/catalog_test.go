package catalog

import (
	"errors"
	"testing"
)

func TestResolveKnownPackage(t *testing.T) {
	c := New(10_000)

	p, err := c.Resolve("rookie-pack")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if p.CheckoutAmount != 20 || p.CreditAmount != 200_000 {
		t.Fatalf("unexpected amounts: checkout=%d credit=%d", p.CheckoutAmount, p.CreditAmount)
	}
}

func TestResolveUnknownPackage(t *testing.T) {
	c := New(10_000)

	_, err := c.Resolve("mega-pack")
	if !errors.Is(err, ErrUnknownPackage) {
		t.Fatalf("expected ErrUnknownPackage, got %v", err)
	}
}

func TestResolveCustom(t *testing.T) {
	c := New(10_000)

	if got := c.ResolveCustom(35); got != 350_000 {
		t.Fatalf("expected 350000 coins for custom amount 35, got %d", got)
	}
}

func TestPackagesNeverCreditBelowCustomRate(t *testing.T) {
	c := New(10_000)

	for _, p := range c.List() {
		if p.CreditAmount < c.ResolveCustom(p.CheckoutAmount) {
			t.Errorf("package %s credits below the custom rate", p.ID)
		}
	}
}
