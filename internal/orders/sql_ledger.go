package orders

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const defaultListLimit = 50

// sqlLedger holds the queries shared by the SQLite and PostgreSQL ledgers.
// Queries are written with ? and rebound for drivers that want $n.
type sqlLedger struct {
	db       *sql.DB
	dollarPH bool
	closeDB  bool
}

func (l *sqlLedger) rebind(query string) string {
	if !l.dollarPH {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (l *sqlLedger) Record(ctx context.Context, o *Order) error {
	if o.PayPalOrderID == "" {
		return errors.New("paypal order id is required")
	}
	items := o.Items
	if items == nil {
		items = []Item{}
	}
	itemsJSON, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to marshal order items: %w", err)
	}

	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now().UTC().Truncate(time.Microsecond)
	}

	query := l.rebind(`INSERT INTO orders (paypal_order_id, amount, currency, status, payer_email, items_json, created_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?)
	          RETURNING id`)

	err = l.db.QueryRowContext(ctx, query,
		o.PayPalOrderID,
		o.Amount.StringFixed(2),
		o.Currency,
		o.Status,
		o.PayerEmail,
		string(itemsJSON),
		o.CreatedAt,
	).Scan(&o.ID)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

const orderColumns = `id, paypal_order_id, amount, currency, status, payer_email, items_json, created_at`

// GetByPayPalID returns the most recent order recorded for the PayPal order id.
func (l *sqlLedger) GetByPayPalID(ctx context.Context, paypalOrderID string) (*Order, error) {
	query := l.rebind(`SELECT ` + orderColumns + ` FROM orders
	          WHERE paypal_order_id = ? ORDER BY id DESC LIMIT 1`)

	o, err := scanOrder(l.db.QueryRowContext(ctx, query, paypalOrderID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query order by paypal id: %w", err)
	}
	return o, nil
}

// List returns up to limit orders, newest first.
func (l *sqlLedger) List(ctx context.Context, limit int) ([]*Order, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	query := l.rebind(`SELECT ` + orderColumns + ` FROM orders ORDER BY id DESC LIMIT ?`)

	rows, err := l.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	var out []*Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return out, nil
}

func (l *sqlLedger) Close() error {
	if !l.closeDB {
		return nil
	}
	return l.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*Order, error) {
	var o Order
	var itemsJSON []byte
	err := row.Scan(
		&o.ID,
		&o.PayPalOrderID,
		&o.Amount,
		&o.Currency,
		&o.Status,
		&o.PayerEmail,
		&itemsJSON,
		&o.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
		return nil, fmt.Errorf("unmarshal order items: %w", err)
	}
	return &o, nil
}
