// Package postgres reads dashboard records straight from the POS database
// through the pgx database/sql driver.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/boddenberg/pos-dashboard-bfa/internal/domain"
	"github.com/boddenberg/pos-dashboard-bfa/internal/port"
)

var tracer = otel.Tracer("postgres")

// Store implements port.SourceFactory and port.SettingsStore.
type Store struct {
	db  *sql.DB
	loc *time.Location
}

// New opens and pings the database. Date columns are read in loc.
func New(ctx context.Context, databaseURL string, loc *time.Location) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	if loc == nil {
		loc = time.Local
	}
	return &Store{db: db, loc: loc}, nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks connectivity for the readiness endpoint.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// ForStore returns the record source of one store.
func (s *Store) ForStore(storeID string) port.RecordSource {
	return &storeSource{db: s.db, storeID: storeID, loc: s.loc}
}

type storeSource struct {
	db      *sql.DB
	storeID string
	loc     *time.Location
}

func (s *storeSource) ReadPayments(ctx context.Context) ([]domain.PaymentRecord, error) {
	ctx, span := tracer.Start(ctx, "Postgres.ReadPayments")
	defer span.End()
	span.SetAttributes(attribute.String("store.id", s.storeID))

	rows, err := s.db.QueryContext(ctx, `
		SELECT invoice_no, COALESCE(customer_name, ''), COALESCE(grand_total, 0), transaction_time
		FROM payments
		WHERE store_id = $1
	`, s.storeID)
	if err != nil {
		return nil, wrap("payments", err)
	}
	defer rows.Close()

	out := make([]domain.PaymentRecord, 0, 256)
	for rows.Next() {
		var (
			p  domain.PaymentRecord
			at sql.NullTime
		)
		if err := rows.Scan(&p.InvoiceNo, &p.CustomerName, &p.GrandTotal, &at); err != nil {
			return nil, wrap("payments", err)
		}
		if at.Valid {
			p.TransactionTime = at.Time.In(s.loc)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("payments", err)
	}
	return out, nil
}

func (s *storeSource) ReadLineItems(ctx context.Context) ([]domain.LineItemRecord, error) {
	ctx, span := tracer.Start(ctx, "Postgres.ReadLineItems")
	defer span.End()
	span.SetAttributes(attribute.String("store.id", s.storeID))

	rows, err := s.db.QueryContext(ctx, `
		SELECT invoice_no, COALESCE(item_name, ''), COALESCE(total_price, 0), COALESCE(cost_price, 0),
		       COALESCE(quantity, 0), COALESCE(category, '')
		FROM transactions
		WHERE store_id = $1
	`, s.storeID)
	if err != nil {
		return nil, wrap("transactions", err)
	}
	defer rows.Close()

	out := make([]domain.LineItemRecord, 0, 512)
	for rows.Next() {
		var li domain.LineItemRecord
		if err := rows.Scan(&li.InvoiceNo, &li.ItemName, &li.TotalPrice, &li.CostPrice, &li.Quantity, &li.Category); err != nil {
			return nil, wrap("transactions", err)
		}
		out = append(out, li)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("transactions", err)
	}
	return out, nil
}

func (s *storeSource) ReadExpenses(ctx context.Context) ([]domain.ExpenseRecord, error) {
	ctx, span := tracer.Start(ctx, "Postgres.ReadExpenses")
	defer span.End()
	span.SetAttributes(attribute.String("store.id", s.storeID))

	rows, err := s.db.QueryContext(ctx, `
		SELECT COALESCE(amount, 0), to_char(transaction_date, 'YYYY-MM-DD')
		FROM expenses
		WHERE store_id = $1
	`, s.storeID)
	if err != nil {
		return nil, wrap("expenses", err)
	}
	defer rows.Close()

	out := make([]domain.ExpenseRecord, 0, 128)
	for rows.Next() {
		var (
			amount decimal.Decimal
			day    sql.NullString
		)
		if err := rows.Scan(&amount, &day); err != nil {
			return nil, wrap("expenses", err)
		}
		e := domain.ExpenseRecord{Amount: amount}
		if day.Valid {
			// Calendar date, not an instant: midnight in the store zone.
			if t, err := time.ParseInLocation("2006-01-02", day.String, s.loc); err == nil {
				e.TransactionDate = t
			}
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("expenses", err)
	}
	return out, nil
}

func (s *storeSource) ReadInventory(ctx context.Context) ([]domain.InventoryRecord, error) {
	ctx, span := tracer.Start(ctx, "Postgres.ReadInventory")
	defer span.End()
	span.SetAttributes(attribute.String("store.id", s.storeID))

	rows, err := s.db.QueryContext(ctx, `
		SELECT item_id::text, COALESCE(item_name, ''), COALESCE(current_stock, 0), low_stock_threshold
		FROM inventory
		WHERE store_id = $1
		ORDER BY current_stock ASC
	`, s.storeID)
	if err != nil {
		return nil, wrap("inventory", err)
	}
	defer rows.Close()

	out := make([]domain.InventoryRecord, 0, 128)
	for rows.Next() {
		var (
			inv       domain.InventoryRecord
			threshold sql.NullInt64
		)
		if err := rows.Scan(&inv.ItemID, &inv.ItemName, &inv.CurrentStock, &threshold); err != nil {
			return nil, wrap("inventory", err)
		}
		if threshold.Valid {
			v := int(threshold.Int64)
			inv.LowStockThreshold = &v
		}
		out = append(out, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("inventory", err)
	}
	return out, nil
}

// LowStockThreshold returns the store's default threshold, ok=false when unset.
func (s *Store) LowStockThreshold(ctx context.Context, storeID string) (int, bool, error) {
	ctx, span := tracer.Start(ctx, "Postgres.LowStockThreshold")
	defer span.End()

	var v sql.NullInt64
	err := s.db.QueryRowContext(ctx, `
		SELECT low_stock_threshold FROM store_settings WHERE store_id = $1
	`, storeID).Scan(&v)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, wrap("store_settings", err)
	}
	if !v.Valid {
		return 0, false, nil
	}
	return int(v.Int64), true, nil
}

// SetLowStockThreshold upserts the store's default threshold.
func (s *Store) SetLowStockThreshold(ctx context.Context, storeID string, threshold int) error {
	ctx, span := tracer.Start(ctx, "Postgres.SetLowStockThreshold")
	defer span.End()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO store_settings (store_id, low_stock_threshold, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (store_id)
		DO UPDATE SET low_stock_threshold = EXCLUDED.low_stock_threshold, updated_at = now()
	`, storeID, threshold)
	if err != nil {
		return wrap("store_settings", err)
	}
	return nil
}

// wrap turns driver errors into domain errors. Context errors pass through.
func wrap(table string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "42501" {
		return &domain.ErrForbidden{Action: fmt.Sprintf("read %s", table)}
	}
	return &domain.ErrExternalService{Service: "postgres/" + table, Err: err}
}
