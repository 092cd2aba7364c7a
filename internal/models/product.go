package models

import (
	"time"
)

// Price carries both the normalized numeric amount and the display text as
// it appeared on the page. The amount is used for comparison and filtering,
// the display text for rendering fidelity.
type Price struct {
	Amount  float64 `json:"amount"`
	Display string  `json:"display"`
}

// ProductRecord is the canonical extracted product entity. Records are
// immutable once extracted; corrections happen by re-extraction and a fresh
// reconcile pass, never by mutating a previously returned record.
type ProductRecord struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Price         Price     `json:"price"`
	OriginalPrice *Price    `json:"original_price,omitempty"`
	ImageURL      string    `json:"image_url"`
	ProductURL    string    `json:"product_url"`
	Color         string    `json:"color,omitempty"`
	Sizes         []string  `json:"sizes"`
	Category      string    `json:"category"`
	Description   string    `json:"description,omitempty"`
	ScrapedAt     time.Time `json:"scraped_at"`
	IsSale        bool      `json:"is_sale"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Valid reports whether the record carries enough data to be worth keeping.
// A record with neither a name nor a price is discarded by the extractor.
func (p *ProductRecord) Valid() bool {
	return p.Name != "" || p.Price.Display != ""
}

// OnSale derives the sale flag: an original price is present and differs
// from the current price.
func OnSale(price Price, original *Price) bool {
	if original == nil {
		return false
	}
	return original.Amount != price.Amount || original.Display != price.Display
}
