package payments

import (
	"context"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"
)

// MetadataDonationID is the checkout session metadata key that carries the
// ledger id back to us in webhooks.
const MetadataDonationID = "donation_id"

type Stripe struct {
	sessions *session.Client
}

// NewStripe builds a Stripe client bound to apiKey instead of the package
// level stripe.Key.
func NewStripe(apiKey string) *Stripe {
	return NewStripeWithBackend(apiKey, stripe.GetBackend(stripe.APIBackend))
}

func NewStripeWithBackend(apiKey string, backend stripe.Backend) *Stripe {
	return &Stripe{sessions: &session.Client{B: backend, Key: apiKey}}
}

func (s *Stripe) Name() string { return "stripe" }

func (s *Stripe) CreateSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		CustomerEmail:     stripe.String(req.DonorEmail),
		ClientReferenceID: stripe.String(req.DonationID),
		Metadata: map[string]string{
			MetadataDonationID: req.DonationID,
			"tier":             req.TierName,
			"donor_name":       req.DonorName,
		},
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(req.Currency),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String("Wisdom Empire donation: " + req.TierName),
					},
					UnitAmount: stripe.Int64(req.AmountCents),
				},
				Quantity: stripe.Int64(1),
			},
		},
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SubmitType: stripe.String(string(stripe.CheckoutSessionSubmitTypeDonate)),
	}
	params.Context = ctx

	sess, err := s.sessions.New(params)
	if err != nil {
		return nil, wrapStripeError(err)
	}
	return &CheckoutSession{ID: sess.ID, URL: sess.URL}, nil
}

// Paid checks the session's payment status. A session created for another
// donation is an error, whatever its status.
func (s *Stripe) Paid(ctx context.Context, donationID, sessionID string) (bool, error) {
	if sessionID == "" {
		return false, fmt.Errorf("%w: stripe: no checkout session id", ErrProvider)
	}
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	sess, err := s.sessions.Get(sessionID, params)
	if err != nil {
		return false, wrapStripeError(err)
	}
	owner := sess.Metadata[MetadataDonationID]
	if owner == "" {
		owner = sess.ClientReferenceID
	}
	if owner != donationID {
		return false, fmt.Errorf("%w: stripe: session %s does not belong to donation %s", ErrProvider, sessionID, donationID)
	}
	return sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid, nil
}

func wrapStripeError(err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		return fmt.Errorf("%w: stripe %s: %s", ErrProvider, stripeErr.Code, stripeErr.Msg)
	}
	return fmt.Errorf("%w: stripe: %v", ErrProvider, err)
}
