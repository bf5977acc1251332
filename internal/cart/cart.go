// Package cart holds the in-memory cart shared by both storefront pages.
// It performs no I/O; callers persist Lines() after each mutation when their
// page requires it.
package cart

import (
	"errors"

	"click-collect/internal/models"
)

var (
	ErrOutOfStock      = errors.New("product is out of stock")
	ErrStockLimit      = errors.New("maximum stock reached for this product")
	ErrExceedsStock    = errors.New("requested quantity exceeds stock")
	ErrNotInCart       = errors.New("product is not in the cart")
	ErrUnknownProduct  = errors.New("unknown product")
	ErrInvalidOverflow = errors.New("invalid overflow policy")
)

// OverflowPolicy decides what SetQuantity does with a quantity above stock
type OverflowPolicy string

const (
	// OverflowClamp lowers the quantity to the available stock
	OverflowClamp OverflowPolicy = "clamp"
	// OverflowReject refuses the change and leaves the line untouched
	OverflowReject OverflowPolicy = "reject"
)

// ParseOverflowPolicy parses a configuration value
func ParseOverflowPolicy(s string) (OverflowPolicy, error) {
	switch OverflowPolicy(s) {
	case OverflowClamp, OverflowReject:
		return OverflowPolicy(s), nil
	case "":
		return OverflowClamp, nil
	}
	return "", ErrInvalidOverflow
}

// Cart is an ordered list of lines, one per product.
// It is not safe for concurrent use.
type Cart struct {
	lines    []models.CartLine
	overflow OverflowPolicy
}

// New returns an empty cart
func New(overflow OverflowPolicy) *Cart {
	if overflow == "" {
		overflow = OverflowClamp
	}
	return &Cart{overflow: overflow}
}

// FromLines restores a cart from persisted lines
func FromLines(lines []models.CartLine, overflow OverflowPolicy) *Cart {
	c := New(overflow)
	for _, l := range lines {
		if l.ProductID == "" || l.Quantity <= 0 {
			continue
		}
		if i := c.index(l.ProductID); i >= 0 {
			c.lines[i].Quantity += l.Quantity
			continue
		}
		c.lines = append(c.lines, l)
	}
	return c
}

// Lines returns a copy of the cart lines
func (c *Cart) Lines() []models.CartLine {
	out := make([]models.CartLine, len(c.lines))
	copy(out, c.lines)
	return out
}

// Line returns the line for productID
func (c *Cart) Line(productID string) (models.CartLine, bool) {
	if i := c.index(productID); i >= 0 {
		return c.lines[i], true
	}
	return models.CartLine{}, false
}

// IsEmpty reports whether the cart has no lines
func (c *Cart) IsEmpty() bool {
	return len(c.lines) == 0
}

// Add puts one more unit of p in the cart. The price is snapshotted when the
// line is created.
func (c *Cart) Add(p models.Product) error {
	if !p.Available() {
		return ErrOutOfStock
	}

	if i := c.index(p.ID); i >= 0 {
		if c.lines[i].Quantity >= p.Stock {
			return ErrStockLimit
		}
		c.lines[i].Quantity++
		return nil
	}

	c.lines = append(c.lines, models.CartLine{
		ProductID:   p.ID,
		ProductName: p.Name,
		ProductSKU:  p.SKU,
		Quantity:    1,
		UnitPrice:   p.Price,
	})
	return nil
}

// SetQuantity sets the quantity of p's line and returns the resulting
// quantity. n <= 0 removes the line, as does a clamp down to zero stock.
func (c *Cart) SetQuantity(p models.Product, n int) (int, error) {
	i := c.index(p.ID)
	if i < 0 {
		return 0, ErrNotInCart
	}

	if n > p.Stock {
		if c.overflow == OverflowReject {
			return c.lines[i].Quantity, ErrExceedsStock
		}
		n = p.Stock
	}

	if n <= 0 {
		c.removeAt(i)
		return 0, nil
	}
	c.lines[i].Quantity = n
	return n, nil
}

// Remove deletes the line for productID, reporting whether one existed
func (c *Cart) Remove(productID string) bool {
	i := c.index(productID)
	if i < 0 {
		return false
	}
	c.removeAt(i)
	return true
}

// Clear empties the cart
func (c *Cart) Clear() {
	c.lines = nil
}

// Reconcile brings every line within the current stock of catalog. Lines of
// products that vanished or sold out are dropped. It returns the ids of the
// adjusted lines.
func (c *Cart) Reconcile(catalog map[string]models.Product) []string {
	var adjusted []string
	kept := c.lines[:0]
	for _, l := range c.lines {
		p, ok := catalog[l.ProductID]
		if !ok || p.Stock <= 0 {
			adjusted = append(adjusted, l.ProductID)
			continue
		}
		if l.Quantity > p.Stock {
			l.Quantity = p.Stock
			adjusted = append(adjusted, l.ProductID)
		}
		kept = append(kept, l)
	}
	c.lines = kept
	return adjusted
}

func (c *Cart) index(productID string) int {
	for i := range c.lines {
		if c.lines[i].ProductID == productID {
			return i
		}
	}
	return -1
}

func (c *Cart) removeAt(i int) {
	c.lines = append(c.lines[:i], c.lines[i+1:]...)
}
