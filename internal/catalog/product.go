// Package catalog reads the remote product catalog and filters it for browsing.
package catalog

import (
	"slices"
	"strings"

	"github.com/sareesanskriti/storefront/internal/cart"
)

// Product is a catalog record as served by the product API.
type Product struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Price       float64  `json:"price"`
	Description string   `json:"description"`
	Fabric      string   `json:"fabric"`
	Category    string   `json:"category"`
	ImageURLs   []string `json:"imageUrls"`
	CreatedAt   string   `json:"createdAt,omitempty"`
}

// PrimaryImage is the first image URL, used as the cart thumbnail.
func (p Product) PrimaryImage() string {
	if len(p.ImageURLs) == 0 {
		return ""
	}
	return p.ImageURLs[0]
}

// Candidate takes the add-time snapshot of the product for the cart.
func (p Product) Candidate() cart.Candidate {
	return cart.Candidate{
		ProductID: p.ID,
		Name:      p.Name,
		Price:     p.Price,
		ImageURL:  p.PrimaryImage(),
	}
}

// All matches every category or fabric.
const All = "all"

// Filter narrows a product list. Empty fields and All match everything.
type Filter struct {
	Query    string
	Category string
	Fabric   string
}

// Match reports whether p passes the filter. Query is a case-insensitive
// substring of the name or the description.
func (f Filter) Match(p Product) bool {
	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" {
		if !strings.Contains(strings.ToLower(p.Name), q) && !strings.Contains(strings.ToLower(p.Description), q) {
			return false
		}
	}
	if f.Category != "" && f.Category != All && p.Category != f.Category {
		return false
	}
	if f.Fabric != "" && f.Fabric != All && p.Fabric != f.Fabric {
		return false
	}
	return true
}

// Apply returns the products matching f, in their original order.
func (f Filter) Apply(products []Product) []Product {
	out := make([]Product, 0, len(products))
	for _, p := range products {
		if f.Match(p) {
			out = append(out, p)
		}
	}
	return out
}

// Facets are the distinct values offered as filter choices.
type Facets struct {
	Categories []string `json:"categories"`
	Fabrics    []string `json:"fabrics"`
}

// FacetsOf collects sorted unique non-empty categories and fabrics.
func FacetsOf(products []Product) Facets {
	cats := make([]string, 0)
	fabs := make([]string, 0)
	for _, p := range products {
		if p.Category != "" {
			cats = append(cats, p.Category)
		}
		if p.Fabric != "" {
			fabs = append(fabs, p.Fabric)
		}
	}
	slices.Sort(cats)
	slices.Sort(fabs)
	return Facets{
		Categories: slices.Compact(cats),
		Fabrics:    slices.Compact(fabs),
	}
}
