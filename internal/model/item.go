package model

import (
	"fmt"

	"github.com/google/uuid"
)

// Item is a retailer SKU, either a search candidate or a chosen product.
type Item struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Grammage  string    `json:"grammage,omitempty"`
	PriceCent *int64    `json:"price_cent,omitempty"`
	URL       string    `json:"url,omitempty"`
	ImageURL  string    `json:"image_url,omitempty"`
}

// Price returns the unit price in euros, 0 when the retailer gave none.
func (i Item) Price() float64 {
	if i.PriceCent == nil {
		return 0
	}
	return float64(*i.PriceCent) / 100.0
}

// PriceTotal returns the price for purchasing the item pieces times.
func (i Item) PriceTotal(pieces int64) float64 {
	return i.Price() * float64(pieces)
}

// PriceString formats the unit price for display.
func (i Item) PriceString() string {
	return fmt.Sprintf("%.2f", i.Price())
}
