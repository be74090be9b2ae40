package models

import "time"

// Invoice is a sale or purchase invoice header
type Invoice struct {
	ID             string    `json:"id"`
	BusinessID     string    `json:"business_id"`
	CustomerID     string    `json:"customer_id,omitempty"`
	InvoiceNumber  string    `json:"invoice_number"`
	InvoiceType    string    `json:"invoice_type"` // "sale" or "purchase"
	Date           time.Time `json:"date"`
	Subtotal       float64   `json:"subtotal"`
	TaxAmount      float64   `json:"tax_amount"`
	DiscountAmount float64   `json:"discount_amount"`
	TotalAmount    float64   `json:"total_amount"`
	PaidAmount     float64   `json:"paid_amount"`
	Remarks        string    `json:"remarks,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
