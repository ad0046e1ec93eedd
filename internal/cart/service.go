package cart

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/fjod/storefront/internal/catalog"
	"github.com/fjod/storefront/internal/logger"
	"github.com/fjod/storefront/internal/pricing"
)

// Catalog is the read side the cart needs.
type Catalog interface {
	Snapshot(ctx context.Context) (*catalog.Snapshot, error)
}

type Service struct {
	store   Store
	catalog Catalog
	log     *slog.Logger
}

func NewService(store Store, catalog Catalog, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{store: store, catalog: catalog, log: log}
}

// Get returns the stored cart, or an empty one for a new visitor.
func (s *Service) Get(ctx context.Context, key string) (Cart, error) {
	c, err := s.store.Get(ctx, key)
	if errors.Is(err, ErrCartNotFound) {
		return Cart{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}
	if c == nil {
		c = Cart{}
	}
	return c, nil
}

// Add puts qty of product id into the cart. The resulting line never exceeds MaxQuantity.
func (s *Service) Add(ctx context.Context, key, id string, qty int) error {
	snap, err := s.catalog.Snapshot(ctx)
	if err != nil {
		return err
	}
	p, ok := snap.Get(id)
	if !ok {
		return ErrProductNotFound
	}
	if !p.Available() {
		return ErrProductUnavailable
	}
	if qty < MinQuantity || qty > MaxQuantity {
		return ErrInvalidQuantity
	}

	err = s.mutate(ctx, key, func(c Cart) (Cart, error) {
		c[id] = clamp(c[id] + qty)
		return c, nil
	})
	if err != nil {
		logger.FromContext(ctx, s.log).Error("cart save failed", "op", "add", "error", err)
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}

// Update sets the quantity of a line already in the cart; qty <= 0 removes it.
func (s *Service) Update(ctx context.Context, key, id string, qty int) error {
	err := s.mutate(ctx, key, func(c Cart) (Cart, error) {
		if _, ok := c[id]; !ok {
			return nil, ErrLineNotFound
		}
		if qty <= 0 {
			delete(c, id)
		} else {
			c[id] = clamp(qty)
		}
		return c, nil
	})
	if errors.Is(err, ErrLineNotFound) {
		return err
	}
	if err != nil {
		logger.FromContext(ctx, s.log).Error("cart save failed", "op", "update", "error", err)
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}

func (s *Service) Clear(ctx context.Context, key string) error {
	err := s.store.Delete(ctx, key)
	if err != nil && !errors.Is(err, ErrCartNotFound) {
		logger.FromContext(ctx, s.log).Error("cart clear failed", "error", err)
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

// mutate applies fn atomically when the store is a Mutator, otherwise as get then save.
func (s *Service) mutate(ctx context.Context, key string, fn func(Cart) (Cart, error)) error {
	if m, ok := s.store.(Mutator); ok {
		return m.Mutate(ctx, key, fn)
	}
	c, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	next, err := fn(c.Clone())
	if err != nil {
		return err
	}
	return s.store.Save(ctx, key, next)
}

// Items prices the cart against the current catalog.
func (s *Service) Items(ctx context.Context, key string) (pricing.Summary, error) {
	c, err := s.Get(ctx, key)
	if err != nil {
		return pricing.Summary{}, err
	}
	snap, err := s.catalog.Snapshot(ctx)
	if err != nil {
		return pricing.Summary{}, err
	}
	return pricing.Price(c, snap), nil
}
