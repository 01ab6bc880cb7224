// Package catalog defines the product types shared by cart, wishlist and orders.
package catalog

// Product is a sellable item as presented by the storefront.
type Product struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Slug        string   `json:"slug,omitempty"`
	Description string   `json:"description,omitempty"`
	Price       float64  `json:"price"`
	Images      []string `json:"images,omitempty"`
}

// PrimaryImage returns the first image URL, or "" when there is none.
func (p Product) PrimaryImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}

// Variation is a purchasable variant of a product. Its price replaces the
// product price.
type Variation struct {
	ID    string  `json:"id"`
	Name  string  `json:"name,omitempty"`
	Price float64 `json:"price"`
}
