package stock

import "time"

// SizeVariant is the unit at which inventory is tracked: one purchasable
// size of a product. Stock never goes below zero; the repository enforces
// this with a conditional update, not application-level locking.
type SizeVariant struct {
	ID        int64     `json:"id"`
	ProductID int64     `json:"productId"`
	SKU       string    `json:"sku"`
	SizeLabel string    `json:"sizeLabel"`
	Stock     int       `json:"stock"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
