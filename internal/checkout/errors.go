package checkout

import "errors"

var (
	ErrEmptyCart           = errors.New("cart is empty, nothing to checkout")
	ErrMissingOrderID      = errors.New("missing orderID")
	IllegalTransitionError = errors.New("illegal transition of checkout status")
)
