// Package cart implements the shopping cart: a persisted list of line items,
// the rules that mutate it, and the provider that publishes snapshots to views.
package cart

import (
	"github.com/shopspring/decimal"
)

// LineItem is one product in the cart. Name, Price and ImageURL are copies taken
// when the product was first added; they are never refreshed from the catalog.
type LineItem struct {
	ProductID string  `json:"productId"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	ImageURL  string  `json:"imageUrl"`
	Quantity  int     `json:"quantity"`
}

// Candidate is a product about to be added: a line item without a quantity.
type Candidate struct {
	ProductID string
	Name      string
	Price     float64
	ImageURL  string
}

// Cart is an ordered list of line items, unique by ProductID.
type Cart []LineItem

// ItemCount is the sum of quantities.
func (c Cart) ItemCount() int {
	n := 0
	for _, it := range c {
		n += it.Quantity
	}
	return n
}

// Subtotal is the unit price times quantity of a single line.
func (it LineItem) Subtotal() decimal.Decimal {
	return decimal.NewFromFloat(it.Price).Mul(decimal.NewFromInt(int64(it.Quantity)))
}

// Total sums the line subtotals.
func (c Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, it := range c {
		total = total.Add(it.Subtotal())
	}
	return total
}

// Find returns the line for productID.
func (c Cart) Find(productID string) (LineItem, bool) {
	for _, it := range c {
		if it.ProductID == productID {
			return it, true
		}
	}
	return LineItem{}, false
}

func (c Cart) indexOf(productID string) int {
	for i, it := range c {
		if it.ProductID == productID {
			return i
		}
	}
	return -1
}

// Clone returns an independent copy; a nil cart clones to an empty one.
func (c Cart) Clone() Cart {
	out := make(Cart, len(c))
	copy(out, c)
	return out
}
