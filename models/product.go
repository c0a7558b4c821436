package models

// Product is a catalog entry. The catalog is read-only from the API's point
// of view: rows are created by the seed/import path and never mutated here.
// Price is an integer in major currency units (the catalog is priced in COP).
type Product struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	Price        int64  `json:"price"`
	CurrencyCode string `json:"currency_code"`
	Image        string `json:"image,omitempty"`
}
