// Package pricing derives cart line items and totals from the current catalog.
package pricing

import (
	"sort"

	"github.com/fjod/storefront/internal/catalog"
	"github.com/shopspring/decimal"
)

type LineItem struct {
	ID        string          `json:"id"`
	Brand     string          `json:"brand"`
	Title     string          `json:"title"`
	Image     string          `json:"image,omitempty"`
	Price     decimal.Decimal `json:"-"`
	Qty       int             `json:"qty"`
	LineTotal decimal.Decimal `json:"-"`
}

// PriceString and LineTotalString are the two-decimal renderings used on the wire.
func (l LineItem) PriceString() string     { return l.Price.StringFixed(2) }
func (l LineItem) LineTotalString() string { return l.LineTotal.StringFixed(2) }

type Summary struct {
	Items []LineItem
	Total decimal.Decimal
}

func (s Summary) TotalString() string {
	return s.Total.StringFixed(2)
}

func (s Summary) Empty() bool {
	return len(s.Items) == 0
}

// Price multiplies each cart line by the snapshot price. Lines whose product is
// no longer in the catalog are skipped. Items come back sorted by product id.
func Price(lines map[string]int, snapshot *catalog.Snapshot) Summary {
	ids := make([]string, 0, len(lines))
	for id := range lines {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	summary := Summary{
		Items: make([]LineItem, 0, len(ids)),
		Total: decimal.Zero,
	}
	for _, id := range ids {
		qty := lines[id]
		p, ok := snapshot.Get(id)
		if !ok || qty <= 0 {
			continue
		}
		lineTotal := p.Price.Mul(decimal.NewFromInt(int64(qty))).Round(2)
		summary.Items = append(summary.Items, LineItem{
			ID:        p.ID,
			Brand:     p.Brand,
			Title:     p.Title,
			Image:     p.Image,
			Price:     p.Price,
			Qty:       qty,
			LineTotal: lineTotal,
		})
		summary.Total = summary.Total.Add(lineTotal)
	}
	summary.Total = summary.Total.Round(2)
	return summary
}
