// Package orders is the append-only ledger of captured PayPal orders.
package orders

import (
	"context"
	"errors"
	"time"

	"github.com/fjod/storefront/internal/pricing"
	"github.com/shopspring/decimal"
)

var ErrOrderNotFound = errors.New("order not found")

// Item is the snapshot of one cart line at capture time.
type Item struct {
	ID        string `json:"id"`
	Brand     string `json:"brand"`
	Title     string `json:"title"`
	Price     string `json:"price"`
	Qty       int    `json:"qty"`
	LineTotal string `json:"line_total"`
}

type Order struct {
	ID            int64
	PayPalOrderID string
	Amount        decimal.Decimal
	Currency      string
	Status        string
	PayerEmail    string
	Items         []Item
	CreatedAt     time.Time
}

func (o *Order) AmountString() string {
	return o.Amount.StringFixed(2)
}

func ItemsFromSummary(s pricing.Summary) []Item {
	items := make([]Item, 0, len(s.Items))
	for _, li := range s.Items {
		items = append(items, Item{
			ID:        li.ID,
			Brand:     li.Brand,
			Title:     li.Title,
			Price:     li.PriceString(),
			Qty:       li.Qty,
			LineTotal: li.LineTotalString(),
		})
	}
	return items
}

// Ledger records orders. Rows are never updated or deleted.
type Ledger interface {
	Record(ctx context.Context, o *Order) error
	GetByPayPalID(ctx context.Context, paypalOrderID string) (*Order, error)
	List(ctx context.Context, limit int) ([]*Order, error)
	Close() error
}
