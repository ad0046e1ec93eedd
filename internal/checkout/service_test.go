package checkout

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/fjod/storefront/internal/logger"
	"github.com/fjod/storefront/internal/paypal"
	"github.com/fjod/storefront/internal/pricing"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nonEmptySummary() pricing.Summary {
	price := decimal.RequireFromString("350.00")
	return pricing.Summary{
		Items: []pricing.LineItem{{
			ID: "L1", Brand: "Louis Vuitton", Title: "Bag",
			Price: price, Qty: 2, LineTotal: price.Mul(decimal.NewFromInt(2)),
		}},
		Total: decimal.RequireFromString("700.00"),
	}
}

type fixture struct {
	cart      *mockCart
	gateway   *mockGateway
	ledger    *mockLedger
	publisher *mockPublisher
	svc       *Service
}

func newFixture() *fixture {
	f := &fixture{
		cart: &mockCart{summary: nonEmptySummary()},
		gateway: &mockGateway{
			token: "tok",
			order: &paypal.Order{ID: "PP-1", Status: "CREATED"},
			capture: &paypal.Capture{
				ID: "PP-1", Status: "COMPLETED", PayerEmail: "buyer@example.com",
				Amount: decimal.RequireFromString("700.00"), Currency: "EUR",
			},
		},
		ledger:    &mockLedger{},
		publisher: &mockPublisher{},
	}
	f.svc = NewService(f.cart, f.gateway, f.ledger, f.publisher, "EUR", logger.Discard())
	return f
}

func TestCanTransitionTo(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusNonEmpty, StatusOrderCreated, true},
		{StatusOrderCreated, StatusCaptured, true},
		{StatusOrderCreated, StatusCaptureFailed, true},
		{StatusCaptured, StatusCartCleared, true},
		{StatusEmpty, StatusOrderCreated, false},
		{StatusNonEmpty, StatusCaptured, false},
		{StatusCaptureFailed, StatusCaptured, false},
		{StatusCartCleared, StatusNonEmpty, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CanTransitionTo(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, StatusEmpty.IsTerminal())
	assert.True(t, StatusCartCleared.IsTerminal())
	assert.True(t, StatusCaptureFailed.IsTerminal())
	assert.False(t, StatusOrderCreated.IsTerminal())
	assert.False(t, StatusCaptured.IsTerminal())
}

func TestCreateOrder_Success(t *testing.T) {
	f := newFixture()

	a, err := f.svc.CreateOrder(context.Background(), "sid")

	require.NoError(t, err)
	assert.Equal(t, StatusOrderCreated, a.Status)
	assert.Equal(t, "PP-1", a.PayPalOrderID)
	assert.Equal(t, "700.00", f.gateway.createTotal.StringFixed(2))
	assert.Equal(t, "EUR", f.gateway.createCurr)
}

func TestCreateOrder_EmptyCart(t *testing.T) {
	f := newFixture()
	f.cart.summary = pricing.Summary{Total: decimal.Zero}

	a, err := f.svc.CreateOrder(context.Background(), "sid")

	assert.ErrorIs(t, err, ErrEmptyCart)
	require.NotNil(t, a)
	assert.Equal(t, StatusEmpty, a.Status)
	assert.Equal(t, "0.00", a.Total.StringFixed(2))
	assert.Zero(t, f.gateway.tokenCalls)
}

func TestCreateOrder_UpstreamFailure(t *testing.T) {
	f := newFixture()
	f.gateway.createErr = &paypal.UpstreamError{Op: "create order", StatusCode: http.StatusBadRequest}

	a, err := f.svc.CreateOrder(context.Background(), "sid")

	var upErr *paypal.UpstreamError
	assert.True(t, errors.As(err, &upErr))
	assert.Equal(t, StatusNonEmpty, a.Status)
}

func TestCreateOrder_MissingCredentials(t *testing.T) {
	f := newFixture()
	f.gateway.tokenErr = paypal.ErrMissingCredentials

	_, err := f.svc.CreateOrder(context.Background(), "sid")

	assert.ErrorIs(t, err, paypal.ErrMissingCredentials)
}

func TestCaptureOrder_MissingOrderID(t *testing.T) {
	f := newFixture()

	_, err := f.svc.CaptureOrder(context.Background(), "sid", "")

	assert.ErrorIs(t, err, ErrMissingOrderID)
	assert.Zero(t, f.gateway.tokenCalls)
}

func TestCaptureOrder_SuccessRecordsAndClears(t *testing.T) {
	f := newFixture()

	a, err := f.svc.CaptureOrder(context.Background(), "sid", "PP-1")

	require.NoError(t, err)
	assert.Equal(t, StatusCartCleared, a.Status)
	assert.Equal(t, "PP-1", f.gateway.capturedID)
	assert.Equal(t, 1, f.cart.clearCalls)

	require.Len(t, f.ledger.recorded, 1)
	o := f.ledger.recorded[0]
	assert.Equal(t, "PP-1", o.PayPalOrderID)
	assert.Equal(t, "700.00", o.AmountString())
	assert.Equal(t, "COMPLETED", o.Status)
	assert.Equal(t, "buyer@example.com", o.PayerEmail)
	require.Len(t, o.Items, 1)
	assert.Equal(t, "700.00", o.Items[0].LineTotal)

	require.Len(t, f.publisher.published, 1)
	assert.Same(t, o, a.Order)
}

func TestCaptureOrder_CallerGoneAfterCaptureStillRecordsAndClears(t *testing.T) {
	f := newFixture()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.gateway.onCapture = cancel

	a, err := f.svc.CaptureOrder(ctx, "sid", "PP-1")

	require.NoError(t, err)
	assert.Equal(t, StatusCartCleared, a.Status)
	require.Len(t, f.ledger.recorded, 1)
	assert.Equal(t, "PP-1", f.ledger.recorded[0].PayPalOrderID)
	assert.Len(t, f.publisher.published, 1)
	assert.Equal(t, 1, f.cart.clearCalls)
	assert.True(t, f.cart.summary.Empty())
}

func TestCaptureOrder_FallsBackToCartTotal(t *testing.T) {
	f := newFixture()
	f.gateway.capture = &paypal.Capture{ID: "PP-1", Status: "COMPLETED"}

	_, err := f.svc.CaptureOrder(context.Background(), "sid", "PP-1")

	require.NoError(t, err)
	require.Len(t, f.ledger.recorded, 1)
	assert.Equal(t, "700.00", f.ledger.recorded[0].AmountString())
	assert.Equal(t, "EUR", f.ledger.recorded[0].Currency)
}

func TestCaptureOrder_UpstreamFailureKeepsCart(t *testing.T) {
	f := newFixture()
	f.gateway.captureErr = &paypal.UpstreamError{
		Op: "capture order", StatusCode: http.StatusUnprocessableEntity,
		Details: []byte(`{"name":"UNPROCESSABLE_ENTITY"}`),
	}

	a, err := f.svc.CaptureOrder(context.Background(), "sid", "PP-1")

	var upErr *paypal.UpstreamError
	require.True(t, errors.As(err, &upErr))
	assert.Equal(t, StatusCaptureFailed, a.Status)
	assert.Zero(t, f.cart.clearCalls)
	assert.Empty(t, f.ledger.recorded)
	assert.Empty(t, f.publisher.published)
	assert.False(t, f.cart.summary.Empty())
}

func TestCaptureOrder_TokenFailureKeepsCart(t *testing.T) {
	f := newFixture()
	f.gateway.tokenErr = errors.New("dial tcp: timeout")

	a, err := f.svc.CaptureOrder(context.Background(), "sid", "PP-1")

	assert.Error(t, err)
	assert.Equal(t, StatusCaptureFailed, a.Status)
	assert.Zero(t, f.cart.clearCalls)
}

func TestCaptureOrder_LedgerFailureStillClearsCart(t *testing.T) {
	f := newFixture()
	f.ledger.err = errors.New("disk full")

	a, err := f.svc.CaptureOrder(context.Background(), "sid", "PP-1")

	require.NoError(t, err)
	assert.Equal(t, StatusCartCleared, a.Status)
	assert.Nil(t, a.Order)
	assert.Equal(t, 1, f.cart.clearCalls)
	assert.Empty(t, f.publisher.published)
}

func TestCaptureOrder_PublishFailureIsNotFatal(t *testing.T) {
	f := newFixture()
	f.publisher.err = errors.New("broker down")

	a, err := f.svc.CaptureOrder(context.Background(), "sid", "PP-1")

	require.NoError(t, err)
	assert.NotNil(t, a.Order)
	assert.Equal(t, 1, f.cart.clearCalls)
}

func TestAttempt_AdvanceRejectsIllegalStep(t *testing.T) {
	a := &Attempt{Status: StatusCaptureFailed}

	err := a.advance(StatusCaptured)

	assert.ErrorIs(t, err, IllegalTransitionError)
	assert.Equal(t, StatusCaptureFailed, a.Status)
}
