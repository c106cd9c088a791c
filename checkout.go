package identity

import "context"

// CheckoutRequest is the opaque payload handed to the payment collaborator
// after a successful sign-in or sign-up that asked for a checkout redirect.
type CheckoutRequest struct {
	Team    *Team
	PriceID string
}

// CheckoutStarter initiates a checkout with an external payment provider.
// The returned redirect target is passed through to the caller untouched;
// this package never interprets it.
type CheckoutStarter interface {
	StartCheckout(ctx context.Context, req CheckoutRequest) (string, error)
}

// CheckoutStarterFunc adapts a function to the CheckoutStarter interface.
type CheckoutStarterFunc func(ctx context.Context, req CheckoutRequest) (string, error)

// StartCheckout implements CheckoutStarter.
func (f CheckoutStarterFunc) StartCheckout(ctx context.Context, req CheckoutRequest) (string, error) {
	if f == nil {
		return "", nil
	}
	return f(ctx, req)
}

type noopCheckoutStarter struct{}

func (noopCheckoutStarter) StartCheckout(context.Context, CheckoutRequest) (string, error) {
	return "", nil
}

func normalizeCheckoutStarter(s CheckoutStarter) CheckoutStarter {
	if s == nil {
		return noopCheckoutStarter{}
	}
	return s
}
