package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/boddenberg/pos-dashboard-bfa/internal/domain"
	"github.com/boddenberg/pos-dashboard-bfa/internal/port"

	"go.opentelemetry.io/otel/attribute"
)

// ============================================================
// RecordSource implementation: dashboard reads via PostgREST
// ============================================================

// Sources binds the client to store scopes. Implements port.SourceFactory.
type Sources struct {
	client *Client
	loc    *time.Location
}

// NewSources creates a source factory. Zone-less timestamps and date
// columns are interpreted in loc.
func NewSources(client *Client, loc *time.Location) *Sources {
	if loc == nil {
		loc = time.Local
	}
	return &Sources{client: client, loc: loc}
}

// ForStore returns the record source of one store.
func (s *Sources) ForStore(storeID string) port.RecordSource {
	return &storeSource{client: s.client, storeID: storeID, loc: s.loc}
}

type storeSource struct {
	client  *Client
	storeID string
	loc     *time.Location
}

type paymentRow struct {
	InvoiceNo       flexString  `json:"invoice_no"`
	CustomerName    *string     `json:"customer_name"`
	GrandTotal      flexDecimal `json:"grand_total"`
	TransactionTime string      `json:"transaction_time"`
}

type lineItemRow struct {
	InvoiceNo  flexString  `json:"invoice_no"`
	ItemName   *string     `json:"item_name"`
	TotalPrice flexDecimal `json:"total_price"`
	CostPrice  flexDecimal `json:"cost_price"`
	Quantity   flexInt     `json:"quantity"`
	Category   *string     `json:"category"`
}

type expenseRow struct {
	Amount          flexDecimal `json:"amount"`
	TransactionDate string      `json:"transaction_date"`
}

type inventoryRow struct {
	ItemID            flexString  `json:"item_id"`
	ItemName          *string     `json:"item_name"`
	CurrentStock      flexInt     `json:"current_stock"`
	LowStockThreshold optionalInt `json:"low_stock_threshold"`
}

func (s *storeSource) path(table, columns, extra string) string {
	p := fmt.Sprintf("%s?select=%s&store_id=eq.%s", table, columns, url.QueryEscape(s.storeID))
	if extra != "" {
		p += "&" + extra
	}
	return p
}

func (s *storeSource) ReadPayments(ctx context.Context) ([]domain.PaymentRecord, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ReadPayments")
	defer span.End()
	span.SetAttributes(attribute.String("store.id", s.storeID))

	var rows []paymentRow
	path := s.path("payments", "invoice_no,customer_name,grand_total,transaction_time", "")
	if err := s.client.get(ctx, "supabase/payments", path, decodeRows(&rows)); err != nil {
		return nil, err
	}

	out := make([]domain.PaymentRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.PaymentRecord{
			InvoiceNo:       string(r.InvoiceNo),
			CustomerName:    deref(r.CustomerName),
			GrandTotal:      r.GrandTotal.Decimal,
			TransactionTime: parseTimestamp(r.TransactionTime, s.loc),
		})
	}
	return out, nil
}

func (s *storeSource) ReadLineItems(ctx context.Context) ([]domain.LineItemRecord, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ReadLineItems")
	defer span.End()
	span.SetAttributes(attribute.String("store.id", s.storeID))

	var rows []lineItemRow
	path := s.path("transactions", "invoice_no,item_name,total_price,cost_price,quantity,category", "")
	if err := s.client.get(ctx, "supabase/transactions", path, decodeRows(&rows)); err != nil {
		return nil, err
	}

	out := make([]domain.LineItemRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.LineItemRecord{
			InvoiceNo:  string(r.InvoiceNo),
			ItemName:   deref(r.ItemName),
			Category:   deref(r.Category),
			CostPrice:  r.CostPrice.Decimal,
			TotalPrice: r.TotalPrice.Decimal,
			Quantity:   int(r.Quantity),
		})
	}
	return out, nil
}

func (s *storeSource) ReadExpenses(ctx context.Context) ([]domain.ExpenseRecord, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ReadExpenses")
	defer span.End()
	span.SetAttributes(attribute.String("store.id", s.storeID))

	var rows []expenseRow
	path := s.path("expenses", "amount,transaction_date", "")
	if err := s.client.get(ctx, "supabase/expenses", path, decodeRows(&rows)); err != nil {
		return nil, err
	}

	out := make([]domain.ExpenseRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.ExpenseRecord{
			Amount:          r.Amount.Decimal,
			TransactionDate: parseDate(r.TransactionDate, s.loc),
		})
	}
	return out, nil
}

func (s *storeSource) ReadInventory(ctx context.Context) ([]domain.InventoryRecord, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ReadInventory")
	defer span.End()
	span.SetAttributes(attribute.String("store.id", s.storeID))

	var rows []inventoryRow
	path := s.path("inventory", "item_id,item_name,current_stock,low_stock_threshold", "order=current_stock.asc")
	if err := s.client.get(ctx, "supabase/inventory", path, decodeRows(&rows)); err != nil {
		return nil, err
	}

	out := make([]domain.InventoryRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.InventoryRecord{
			ItemID:            string(r.ItemID),
			ItemName:          deref(r.ItemName),
			CurrentStock:      int(r.CurrentStock),
			LowStockThreshold: r.LowStockThreshold.Value,
		})
	}
	return out, nil
}

// decodeRows returns a decoder that leaves dst empty for a missing body.
func decodeRows[T any](dst *[]T) func([]byte) error {
	return func(body []byte) error {
		if len(body) == 0 {
			*dst = nil
			return nil
		}
		return json.Unmarshal(body, dst)
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
