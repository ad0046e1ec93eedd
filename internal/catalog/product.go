package catalog

import (
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusAvailable   Status = "available"
	StatusUnavailable Status = "unavailable"
)

func (s Status) Valid() bool {
	return s == StatusAvailable || s == StatusUnavailable
}

type Product struct {
	ID        string
	Brand     string
	Title     string
	Price     decimal.Decimal
	Condition string
	Size      string
	Ship      string
	Status    Status
	Image     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (p Product) Available() bool {
	return p.Status == StatusAvailable
}

// DisplayPrice renders the price with two decimals, e.g. "350.00".
func (p Product) DisplayPrice() string {
	return p.Price.StringFixed(2)
}
