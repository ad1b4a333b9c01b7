// Package journal persists the orders the live engine sends and the fills
// gateways report, so a session can be reconciled against the venue.
package journal

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rxtech-lab/argo-ladder/internal/types"
	"github.com/rxtech-lab/argo-ladder/pkg/errors"
)

const schema = `
CREATE TABLE IF NOT EXISTS orders (
	id          TEXT PRIMARY KEY,
	position_id INTEGER NOT NULL,
	symbol      TEXT NOT NULL,
	side        TEXT NOT NULL,
	intent      TEXT NOT NULL,
	quantity    REAL NOT NULL,
	price       REAL NOT NULL,
	reason      TEXT,
	created_at  TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS fills (
	id                INTEGER PRIMARY KEY AUTOINCREMENT,
	order_id          TEXT NOT NULL,
	exchange_order_id TEXT,
	symbol            TEXT NOT NULL,
	side              TEXT NOT NULL,
	quantity          REAL NOT NULL,
	price             REAL NOT NULL,
	fee               REAL NOT NULL DEFAULT 0,
	status            TEXT NOT NULL,
	filled_at         TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_orders_symbol ON orders(symbol, created_at);
CREATE INDEX IF NOT EXISTS idx_fills_order ON fills(order_id);
`

// Filter narrows order and fill listings. Zero values match everything.
type Filter struct {
	Symbol string
	Since  time.Time
	// Limit keeps the newest rows. Zero means no limit.
	Limit uint64
}

// Journal is a SQLite-backed order and fill log.
type Journal struct {
	mu sync.Mutex
	db *sql.DB
	sq squirrel.StatementBuilderType
}

// NewJournal opens (or creates) the journal database at path.
func NewJournal(path string) (*Journal, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeJournalFailed, "failed to open journal", err)
	}

	// single writer
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()

		return nil, errors.Wrap(errors.ErrCodeJournalFailed, "failed to create journal schema", err)
	}

	return &Journal{
		db: db,
		sq: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
	}, nil
}

// RecordOrder stores order. Recording the same order id twice fails.
func (j *Journal) RecordOrder(ctx context.Context, order types.Order) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	_, err := j.sq.Insert("orders").
		Columns("id", "position_id", "symbol", "side", "intent", "quantity", "price", "reason", "created_at").
		Values(order.ID, order.PositionID, order.Symbol, string(order.Side), string(order.Intent),
			order.Quantity, order.Price, order.Reason, order.Timestamp.UTC()).
		RunWith(j.db).
		ExecContext(ctx)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeJournalFailed, err, "failed to record order %s", order.ID)
	}

	return nil
}

// RecordFill stores fill.
func (j *Journal) RecordFill(ctx context.Context, fill types.Fill) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	_, err := j.sq.Insert("fills").
		Columns("order_id", "exchange_order_id", "symbol", "side", "quantity", "price", "fee", "status", "filled_at").
		Values(fill.OrderID, fill.ExchangeOrderID, fill.Symbol, string(fill.Side),
			fill.Quantity, fill.Price, fill.Fee, string(fill.Status), fill.Timestamp.UTC()).
		RunWith(j.db).
		ExecContext(ctx)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeJournalFailed, err, "failed to record fill for order %s", fill.OrderID)
	}

	return nil
}

// Orders returns orders matching filter, oldest first.
func (j *Journal) Orders(ctx context.Context, filter Filter) ([]types.Order, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	builder := applyFilter(
		j.sq.Select("id", "position_id", "symbol", "side", "intent", "quantity", "price", "reason", "created_at").From("orders"),
		filter, "created_at",
	)

	rows, err := builder.RunWith(j.db).QueryContext(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query orders", err)
	}
	defer rows.Close()

	var orders []types.Order

	for rows.Next() {
		var (
			o      types.Order
			side   string
			intent string
			reason sql.NullString
		)

		if err := rows.Scan(&o.ID, &o.PositionID, &o.Symbol, &side, &intent, &o.Quantity, &o.Price, &reason, &o.Timestamp); err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan order", err)
		}

		o.Side = types.PurchaseType(side)
		o.Intent = types.OrderIntent(intent)
		o.Reason = reason.String
		orders = append(orders, o)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to read orders", err)
	}

	return reverseIfLimited(orders, filter), nil
}

// Fills returns fills matching filter, oldest first.
func (j *Journal) Fills(ctx context.Context, filter Filter) ([]types.Fill, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	builder := applyFilter(
		j.sq.Select("order_id", "exchange_order_id", "symbol", "side", "quantity", "price", "fee", "status", "filled_at").From("fills"),
		filter, "filled_at",
	)

	return j.queryFills(ctx, builder, filter)
}

// FillsForOrder returns the fills reported for one order.
func (j *Journal) FillsForOrder(ctx context.Context, orderID string) ([]types.Fill, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	builder := j.sq.Select("order_id", "exchange_order_id", "symbol", "side", "quantity", "price", "fee", "status", "filled_at").
		From("fills").
		Where(squirrel.Eq{"order_id": orderID}).
		OrderBy("id ASC")

	fills, err := j.queryFills(ctx, builder, Filter{})
	if err != nil {
		return nil, err
	}

	if len(fills) == 0 {
		return nil, errors.Newf(errors.ErrCodeDataNotFound, "no fills for order %s", orderID)
	}

	return fills, nil
}

// UnfilledOrders returns orders that have no FILLED fill recorded.
func (j *Journal) UnfilledOrders(ctx context.Context) ([]string, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	filled := j.sq.Select("order_id").From("fills").Where(squirrel.Eq{"status": string(types.OrderStatusFilled)})

	sub, args, err := filled.ToSql()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build query", err)
	}

	rows, err := j.sq.Select("id").From("orders").
		Where("id NOT IN ("+sub+")", args...).
		OrderBy("created_at ASC", "rowid ASC").
		RunWith(j.db).
		QueryContext(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query unfilled orders", err)
	}
	defer rows.Close()

	var ids []string

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan order id", err)
		}

		ids = append(ids, id)
	}

	return ids, rows.Err()
}

// Close closes the journal database.
func (j *Journal) Close() error {
	return j.db.Close()
}

func (j *Journal) queryFills(ctx context.Context, builder squirrel.SelectBuilder, filter Filter) ([]types.Fill, error) {
	rows, err := builder.RunWith(j.db).QueryContext(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query fills", err)
	}
	defer rows.Close()

	var fills []types.Fill

	for rows.Next() {
		var (
			f          types.Fill
			exchangeID sql.NullString
			side       string
			status     string
		)

		if err := rows.Scan(&f.OrderID, &exchangeID, &f.Symbol, &side, &f.Quantity, &f.Price, &f.Fee, &status, &f.Timestamp); err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan fill", err)
		}

		f.ExchangeOrderID = exchangeID.String
		f.Side = types.PurchaseType(side)
		f.Status = types.OrderStatus(status)
		fills = append(fills, f)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to read fills", err)
	}

	return reverseIfLimited(fills, filter), nil
}

// applyFilter orders newest first when a limit is set so the limit keeps the latest rows.
func applyFilter(builder squirrel.SelectBuilder, filter Filter, timeColumn string) squirrel.SelectBuilder {
	if filter.Symbol != "" {
		builder = builder.Where(squirrel.Eq{"symbol": filter.Symbol})
	}

	if !filter.Since.IsZero() {
		builder = builder.Where(squirrel.GtOrEq{timeColumn: filter.Since.UTC()})
	}

	if filter.Limit > 0 {
		return builder.OrderBy(timeColumn+" DESC", "rowid DESC").Limit(filter.Limit)
	}

	return builder.OrderBy(timeColumn+" ASC", "rowid ASC")
}

func reverseIfLimited[T any](rows []T, filter Filter) []T {
	if filter.Limit == 0 {
		return rows
	}

	for i, k := 0, len(rows)-1; i < k; i, k = i+1, k-1 {
		rows[i], rows[k] = rows[k], rows[i]
	}

	return rows
}
