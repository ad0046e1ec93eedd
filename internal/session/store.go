package session

import (
	"context"

	"github.com/fjod/storefront/internal/cart"
)

// CartStore is the cookie cart backend. The cart rides in the session of the
// current request, so the key argument is only checked against the session id.
type CartStore struct{}

func NewCartStore() *CartStore { return &CartStore{} }

func (CartStore) Get(ctx context.Context, key string) (cart.Cart, error) {
	s, err := sessionFor(ctx, key)
	if err != nil {
		return nil, err
	}
	c := s.Cart()
	if len(c) == 0 {
		return nil, cart.ErrCartNotFound
	}
	return c, nil
}

func (CartStore) Save(ctx context.Context, key string, c cart.Cart) error {
	s, err := sessionFor(ctx, key)
	if err != nil {
		return err
	}
	s.SetCart(c)
	return nil
}

func (CartStore) Delete(ctx context.Context, key string) error {
	s, err := sessionFor(ctx, key)
	if err != nil {
		return err
	}
	if len(s.Cart()) == 0 {
		return cart.ErrCartNotFound
	}
	s.SetCart(cart.Cart{})
	return nil
}

func sessionFor(ctx context.Context, key string) (*Session, error) {
	s, ok := FromContext(ctx)
	if !ok || s.ID() != key {
		return nil, ErrNoSession
	}
	return s, nil
}
