package checkout

// Status is the state of one checkout attempt.
type Status string

const (
	StatusEmpty         Status = "EMPTY"
	StatusNonEmpty      Status = "NON_EMPTY"
	StatusOrderCreated  Status = "ORDER_CREATED"
	StatusCaptured      Status = "CAPTURED"
	StatusCartCleared   Status = "CART_CLEARED"
	StatusCaptureFailed Status = "CAPTURE_FAILED"
)

var transitions = map[Status][]Status{
	StatusNonEmpty:     {StatusOrderCreated},
	StatusOrderCreated: {StatusCaptured, StatusCaptureFailed},
	StatusCaptured:     {StatusCartCleared},
}

func (s Status) IsTerminal() bool {
	return s == StatusEmpty || s == StatusCartCleared || s == StatusCaptureFailed
}

func (s Status) String() string {
	return string(s)
}

func CanTransitionTo(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
