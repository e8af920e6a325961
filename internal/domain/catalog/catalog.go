package catalog

// Package maps a purchasable top-up package to its checkout price and the
// virtual-coin amount it credits. Credit amounts already include any package
// bonus; the catalog is the single authority for conversion.
type Package struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	CheckoutAmount int64  `json:"checkout_amount"` // settlement currency units
	CreditAmount   int64  `json:"credit_amount"`   // virtual coins
}

// Catalog resolves package identifiers and custom amounts to amounts.
// Read-only after construction, safe for concurrent use.
type Catalog struct {
	packages     map[string]Package
	coinsPerUnit int64
}

// New builds the catalog with the built-in package table.
// coinsPerUnit is the conversion rate applied to custom amounts.
func New(coinsPerUnit int64) *Catalog {
	packages := []Package{
		{ID: "rookie-pack", Name: "Rookie Pack", CheckoutAmount: 20, CreditAmount: 200_000},
		{ID: "trader-pack", Name: "Trader Pack", CheckoutAmount: 50, CreditAmount: 550_000},
		{ID: "whale-pack", Name: "Whale Pack", CheckoutAmount: 100, CreditAmount: 1_200_000},
	}

	m := make(map[string]Package, len(packages))
	for _, p := range packages {
		m[p.ID] = p
	}

	return &Catalog{packages: m, coinsPerUnit: coinsPerUnit}
}

// Resolve returns the checkout and credit amounts for a package id.
func (c *Catalog) Resolve(packageID string) (Package, error) {
	p, ok := c.packages[packageID]
	if !ok {
		return Package{}, ErrUnknownPackage
	}
	return p, nil
}

// ResolveCustom computes the credit amount for a free-form checkout amount.
func (c *Catalog) ResolveCustom(checkoutAmount int64) int64 {
	return checkoutAmount * c.coinsPerUnit
}

// List returns all packages, for display by the caller-facing layer.
func (c *Catalog) List() []Package {
	out := make([]Package, 0, len(c.packages))
	for _, p := range c.packages {
		out = append(out, p)
	}
	return out
}
