package cart

import (
	"context"
	"errors"
)

const (
	MinQuantity = 1
	MaxQuantity = 10
)

var (
	ErrProductNotFound    = errors.New("product not found")
	ErrProductUnavailable = errors.New("product is not available")
	ErrInvalidQuantity    = errors.New("quantity must be between 1 and 10")
	ErrLineNotFound       = errors.New("item not found in cart")
	ErrCartNotFound       = errors.New("cart not found")
	ErrConcurrentUpdate   = errors.New("cart changed concurrently, try again")
)

// maxMutateAttempts bounds optimistic retries in Mutator implementations.
const maxMutateAttempts = 10

// Cart maps product id to quantity.
type Cart map[string]int

func (c Cart) Clone() Cart {
	out := make(Cart, len(c))
	for id, qty := range c {
		out[id] = qty
	}
	return out
}

func (c Cart) Count() int {
	n := 0
	for _, qty := range c {
		n += qty
	}
	return n
}

// Store persists one cart per visitor key.
// Get returns ErrCartNotFound when the visitor has no cart yet.
type Store interface {
	Get(ctx context.Context, key string) (Cart, error)
	Save(ctx context.Context, key string, c Cart) error
	Delete(ctx context.Context, key string) error
}

// Mutator is implemented by stores that can apply a change to one cart atomically.
// fn receives a copy of the current cart (empty when none is stored) and returns the
// replacement; an empty result deletes the cart. An error from fn aborts the change.
type Mutator interface {
	Mutate(ctx context.Context, key string, fn func(Cart) (Cart, error)) error
}

func clamp(qty int) int {
	if qty < MinQuantity {
		return MinQuantity
	}
	if qty > MaxQuantity {
		return MaxQuantity
	}
	return qty
}
