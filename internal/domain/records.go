package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================
// Raw records read from the store's data service
// ============================================================

// PaymentRecord is one completed sale (the invoice header).
type PaymentRecord struct {
	InvoiceNo       string          `json:"invoice_no"`
	CustomerName    string          `json:"customer_name"`
	GrandTotal      decimal.Decimal `json:"grand_total"`
	TransactionTime time.Time       `json:"transaction_time"`
}

// LineItemRecord is one product line of an invoice. It has no timestamp of
// its own and borrows the date of its payment header.
type LineItemRecord struct {
	InvoiceNo  string          `json:"invoice_no"`
	ItemName   string          `json:"item_name"`
	Category   string          `json:"category"`
	CostPrice  decimal.Decimal `json:"cost_price"`
	TotalPrice decimal.Decimal `json:"total_price"`
	Quantity   int             `json:"quantity"`
}

// ExpenseRecord is an operating expense, independent of invoices.
type ExpenseRecord struct {
	Amount          decimal.Decimal `json:"amount"`
	TransactionDate time.Time       `json:"transaction_date"`
}

// InventoryRecord is one row of the current stock snapshot.
type InventoryRecord struct {
	ItemID            string `json:"item_id"`
	ItemName          string `json:"item_name"`
	CurrentStock      int    `json:"current_stock"`
	LowStockThreshold *int   `json:"low_stock_threshold,omitempty"`
}

// RecordSet holds the four record sets acquired by one fetch run.
type RecordSet struct {
	Payments  []PaymentRecord
	LineItems []LineItemRecord
	Expenses  []ExpenseRecord
	Inventory []InventoryRecord
}
