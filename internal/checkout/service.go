// Package checkout drives a PayPal payment from cart total to recorded order.
package checkout

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fjod/storefront/internal/events"
	"github.com/fjod/storefront/internal/logger"
	"github.com/fjod/storefront/internal/orders"
	"github.com/fjod/storefront/internal/paypal"
	"github.com/fjod/storefront/internal/pricing"
	"github.com/shopspring/decimal"
)

// finishTimeout bounds the ledger write, event publish and cart clear after a capture.
const finishTimeout = 10 * time.Second

type Cart interface {
	Items(ctx context.Context, key string) (pricing.Summary, error)
	Clear(ctx context.Context, key string) error
}

type PaymentGateway interface {
	AccessToken(ctx context.Context) (string, error)
	CreateOrder(ctx context.Context, token string, total decimal.Decimal, currency string) (*paypal.Order, error)
	CaptureOrder(ctx context.Context, token, orderID string) (*paypal.Capture, error)
}

// Attempt records how far one checkout got.
type Attempt struct {
	Status        Status
	PayPalOrderID string
	Total         decimal.Decimal
	Capture       *paypal.Capture
	Order         *orders.Order
}

func (a *Attempt) advance(next Status) error {
	if !CanTransitionTo(a.Status, next) {
		return fmt.Errorf("%w: %s -> %s", IllegalTransitionError, a.Status, next)
	}
	a.Status = next
	return nil
}

type Service struct {
	cart      Cart
	gateway   PaymentGateway
	ledger    orders.Ledger
	publisher events.Publisher
	currency  string
	log       *slog.Logger
}

func NewService(cart Cart, gateway PaymentGateway, ledger orders.Ledger, publisher events.Publisher, currency string, log *slog.Logger) *Service {
	if publisher == nil {
		publisher = events.Nop{}
	}
	if currency == "" {
		currency = "EUR"
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		cart:      cart,
		gateway:   gateway,
		ledger:    ledger,
		publisher: publisher,
		currency:  currency,
		log:       log,
	}
}

// CreateOrder opens a PayPal order for the current cart total.
// An empty cart comes back as ErrEmptyCart with Status EMPTY and a zero total.
func (s *Service) CreateOrder(ctx context.Context, key string) (*Attempt, error) {
	summary, err := s.cart.Items(ctx, key)
	if err != nil {
		return nil, err
	}

	a := &Attempt{Status: StatusNonEmpty, Total: summary.Total}
	if summary.Empty() || !summary.Total.IsPositive() {
		a.Status = StatusEmpty
		a.Total = decimal.Zero
		return a, ErrEmptyCart
	}

	token, err := s.gateway.AccessToken(ctx)
	if err != nil {
		return a, err
	}
	order, err := s.gateway.CreateOrder(ctx, token, summary.Total, s.currency)
	if err != nil {
		return a, err
	}

	a.PayPalOrderID = order.ID
	if err := a.advance(StatusOrderCreated); err != nil {
		return a, err
	}

	logger.FromContext(ctx, s.log).Info("paypal order created",
		"paypal_order_id", order.ID, "total", summary.TotalString(), "currency", s.currency)
	return a, nil
}

// CaptureOrder captures an approved PayPal order. On any upstream failure the cart
// is left as is. On success the order is recorded, announced and the cart emptied.
func (s *Service) CaptureOrder(ctx context.Context, key, paypalOrderID string) (*Attempt, error) {
	if paypalOrderID == "" {
		return nil, ErrMissingOrderID
	}
	log := logger.FromContext(ctx, s.log).With("paypal_order_id", paypalOrderID)

	a := &Attempt{Status: StatusOrderCreated, PayPalOrderID: paypalOrderID}

	summary, err := s.cart.Items(ctx, key)
	if err != nil {
		return nil, err
	}
	a.Total = summary.Total

	token, err := s.gateway.AccessToken(ctx)
	if err != nil {
		_ = a.advance(StatusCaptureFailed)
		log.Warn("paypal token failed", "error", err)
		return a, err
	}
	capture, err := s.gateway.CaptureOrder(ctx, token, paypalOrderID)
	if err != nil {
		_ = a.advance(StatusCaptureFailed)
		log.Warn("paypal capture failed", "error", err)
		return a, err
	}
	a.Capture = capture
	if err := a.advance(StatusCaptured); err != nil {
		return a, err
	}

	// Money has moved. Recording and clearing must finish even if the caller is gone.
	finishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finishTimeout)
	defer cancel()

	a.Order = s.record(finishCtx, log, summary, capture, paypalOrderID)

	if err := s.cart.Clear(finishCtx, key); err != nil {
		log.Error("failed to clear cart after capture", "error", err)
	}
	if err := a.advance(StatusCartCleared); err != nil {
		return a, err
	}

	log.Info("paypal order captured", "status", capture.Status, "amount", a.Total.StringFixed(2))
	return a, nil
}

// record writes the ledger entry and publishes the event. The payment has already
// been taken at this point, so failures are logged and do not fail the capture.
func (s *Service) record(ctx context.Context, log *slog.Logger, summary pricing.Summary, capture *paypal.Capture, paypalOrderID string) *orders.Order {
	amount := capture.Amount
	if !amount.IsPositive() {
		amount = summary.Total
	}
	currency := capture.Currency
	if currency == "" {
		currency = s.currency
	}

	order := &orders.Order{
		PayPalOrderID: paypalOrderID,
		Amount:        amount,
		Currency:      currency,
		Status:        capture.Status,
		PayerEmail:    capture.PayerEmail,
		Items:         orders.ItemsFromSummary(summary),
	}
	if err := s.ledger.Record(ctx, order); err != nil {
		log.Error("failed to record order", "error", err)
		return nil
	}

	if err := s.publisher.PublishOrderCaptured(ctx, order); err != nil {
		log.Error("failed to publish order event", "order_id", order.ID, "error", err)
	}
	return order
}
