package checkout

import (
	"context"

	"github.com/fjod/storefront/internal/orders"
	"github.com/fjod/storefront/internal/paypal"
	"github.com/fjod/storefront/internal/pricing"
	"github.com/shopspring/decimal"
)

type mockCart struct {
	summary    pricing.Summary
	itemsErr   error
	clearErr   error
	clearCalls int
}

func (m *mockCart) Items(context.Context, string) (pricing.Summary, error) {
	return m.summary, m.itemsErr
}

func (m *mockCart) Clear(ctx context.Context, _ string) error {
	m.clearCalls++
	if m.clearErr != nil {
		return m.clearErr
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m.summary = pricing.Summary{Total: decimal.Zero}
	return nil
}

type mockGateway struct {
	token       string
	tokenErr    error
	order       *paypal.Order
	createErr   error
	capture     *paypal.Capture
	captureErr  error
	createTotal decimal.Decimal
	createCurr  string
	capturedID  string
	tokenCalls  int
	onCapture   func()
}

func (m *mockGateway) AccessToken(context.Context) (string, error) {
	m.tokenCalls++
	return m.token, m.tokenErr
}

func (m *mockGateway) CreateOrder(_ context.Context, _ string, total decimal.Decimal, currency string) (*paypal.Order, error) {
	m.createTotal = total
	m.createCurr = currency
	return m.order, m.createErr
}

func (m *mockGateway) CaptureOrder(_ context.Context, _ string, orderID string) (*paypal.Capture, error) {
	m.capturedID = orderID
	if m.onCapture != nil {
		m.onCapture()
	}
	return m.capture, m.captureErr
}

type mockLedger struct {
	recorded []*orders.Order
	err      error
}

func (m *mockLedger) Record(ctx context.Context, o *orders.Order) error {
	if m.err != nil {
		return m.err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	o.ID = int64(len(m.recorded) + 1)
	m.recorded = append(m.recorded, o)
	return nil
}

func (m *mockLedger) GetByPayPalID(context.Context, string) (*orders.Order, error) {
	return nil, orders.ErrOrderNotFound
}

func (m *mockLedger) List(context.Context, int) ([]*orders.Order, error) {
	return m.recorded, nil
}

func (m *mockLedger) Close() error { return nil }

type mockPublisher struct {
	published []*orders.Order
	err       error
}

func (m *mockPublisher) PublishOrderCaptured(ctx context.Context, o *orders.Order) error {
	if m.err != nil {
		return m.err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m.published = append(m.published, o)
	return nil
}

func (m *mockPublisher) Close() error { return nil }
