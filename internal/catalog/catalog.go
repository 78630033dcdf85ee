package catalog

import (
	"fmt"
	"sort"

	errors "github.com/zhiweijz/membership-payments/internal"
	"github.com/zhiweijz/membership-payments/internal/core/datamodel/product"
)

// Catalog is the static product table for the H5 payment channel. It mirrors
// the six iOS subscription products one-to-one; prices are per payment rail
// in fen. The catalog is read-only after construction.
type Catalog struct {
	products []product.Product
	byID     map[string]*product.Product
}

// Default returns the production catalog.
func Default() *Catalog {
	return New(defaultProducts)
}

// New builds a catalog over the given product set. Call Validate before
// serving from it.
func New(products []product.Product) *Catalog {
	c := &Catalog{
		products: products,
		byID:     make(map[string]*product.Product, len(products)),
	}
	for i := range c.products {
		c.byID[c.products[i].ID] = &c.products[i]
	}
	return c
}

// Validate enforces the catalog invariants: unique product ids, unique iOS
// product ids, and strictly positive prices on every rail. A violation is a
// configuration error; the process must not start with a broken catalog.
func (c *Catalog) Validate() error {
	seen := make(map[string]bool, len(c.products))
	seenIOS := make(map[string]bool, len(c.products))

	for _, p := range c.products {
		if p.ID == "" {
			return fmt.Errorf("catalog: product with empty id")
		}
		if seen[p.ID] {
			return fmt.Errorf("catalog: duplicate product id %q", p.ID)
		}
		seen[p.ID] = true

		if p.IOSProductID != "" {
			if seenIOS[p.IOSProductID] {
				return fmt.Errorf("catalog: duplicate iOS product id %q", p.IOSProductID)
			}
			seenIOS[p.IOSProductID] = true
		}

		if p.WechatPrice <= 0 || p.AlipayPrice <= 0 {
			return fmt.Errorf("catalog: product %q has a non-positive price", p.ID)
		}

		if p.Duration != product.DurationMonthly && p.Duration != product.DurationYearly {
			return fmt.Errorf("catalog: product %q has invalid duration %q", p.ID, p.Duration)
		}
	}
	return nil
}

// Lookup resolves a product by id.
func (c *Catalog) Lookup(productID string) (*product.Product, error) {
	p, ok := c.byID[productID]
	if !ok {
		return nil, errors.ErrProductNotFound
	}
	return p, nil
}

// PriceFor returns the amount in fen for the (product, rail) pair.
func (c *Catalog) PriceFor(productID string, payType product.PayType) (int64, error) {
	p, err := c.Lookup(productID)
	if err != nil {
		return 0, err
	}
	amount := p.PriceFor(payType)
	if amount <= 0 {
		return 0, errors.ErrInvalidPayType
	}
	return amount, nil
}

// Active returns the purchasable products in display order.
func (c *Catalog) Active() []product.Product {
	var active []product.Product
	for _, p := range c.products {
		if p.IsActive {
			active = append(active, p)
		}
	}
	sort.SliceStable(active, func(i, j int) bool {
		return active[i].SortOrder < active[j].SortOrder
	})
	return active
}

// ByDuration returns the active products with the given billing period.
func (c *Catalog) ByDuration(d product.Duration) []product.Product {
	var out []product.Product
	for _, p := range c.Active() {
		if p.Duration == d {
			out = append(out, p)
		}
	}
	return out
}

// ByTier returns the active products of a membership tier.
func (c *Catalog) ByTier(tier string) []product.Product {
	var out []product.Product
	for _, p := range c.Active() {
		if p.MembershipTier == tier {
			out = append(out, p)
		}
	}
	return out
}

// Popular returns the active products flagged for promotion.
func (c *Catalog) Popular() []product.Product {
	var out []product.Product
	for _, p := range c.Active() {
		if p.IsPopular {
			out = append(out, p)
		}
	}
	return out
}

// Summary aggregates catalog counts for the products endpoint.
type Summary struct {
	Total   int `json:"total"`
	Active  int `json:"active"`
	Monthly int `json:"monthly"`
	Yearly  int `json:"yearly"`
	Popular int `json:"popular"`
}

func (c *Catalog) Summarize() Summary {
	return Summary{
		Total:   len(c.products),
		Active:  len(c.Active()),
		Monthly: len(c.ByDuration(product.DurationMonthly)),
		Yearly:  len(c.ByDuration(product.DurationYearly)),
		Popular: len(c.Popular()),
	}
}
