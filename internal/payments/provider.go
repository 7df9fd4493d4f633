// Package payments wraps the hosted checkout providers behind one interface.
package payments

import (
	"context"
	"errors"
	"fmt"
)

// ErrProvider wraps any failure reported by a checkout provider.
var ErrProvider = errors.New("checkout provider error")

// CheckoutRequest describes a single one-off card payment.
type CheckoutRequest struct {
	DonationID  string
	DonorName   string
	DonorEmail  string
	TierName    string
	AmountCents int64
	Currency    string
	SuccessURL  string
	CancelURL   string
}

// CheckoutSession is the provider's handle on an in-progress payment.
type CheckoutSession struct {
	ID  string
	URL string
}

type CheckoutProvider interface {
	Name() string
	CreateSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)
	// Paid reports whether the provider considers the payment for a donation
	// settled. Providers key their lookups on either the session id or the
	// donation id, so both are passed.
	Paid(ctx context.Context, donationID, sessionID string) (bool, error)
}

// New picks a provider implementation by name.
func New(name, apiKey string) (CheckoutProvider, error) {
	switch name {
	case "stripe":
		return NewStripe(apiKey), nil
	case "midtrans":
		return NewMidtrans(apiKey, false), nil
	}
	return nil, fmt.Errorf("unknown checkout provider %q", name)
}
