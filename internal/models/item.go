package models

import "time"

// Item is a stock item in the business ledger
type Item struct {
	ID            string    `json:"id"`
	BusinessID    string    `json:"business_id"`
	Name          string    `json:"name"`
	SKU           string    `json:"sku,omitempty"`
	Barcode       string    `json:"barcode,omitempty"`
	PurchasePrice float64   `json:"purchase_price"`
	SalePrice     float64   `json:"sale_price"`
	Unit          string    `json:"unit"` // "pcs", "kg", "liter", "meter", "box", "pack"
	CurrentStock  float64   `json:"current_stock"`
	IsActive      bool      `json:"is_active"`
	Description   string    `json:"description,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
