package models

import "time"

// CashTransaction is a single cash-in or cash-out entry
type CashTransaction struct {
	ID              string    `json:"id"`
	BusinessID      string    `json:"business_id"`
	TransactionType string    `json:"transaction_type"` // "cash_in" or "cash_out"
	Amount          float64   `json:"amount"`
	Date            time.Time `json:"date"`
	Source          string    `json:"source,omitempty"` // e.g. "sales", "customer_payment"
	Remarks         string    `json:"remarks,omitempty"`
	ReferenceID     string    `json:"reference_id,omitempty"`
	ReferenceType   string    `json:"reference_type,omitempty"` // invoice, expense, transfer
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
