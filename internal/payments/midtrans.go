package payments

import (
	"context"
	"fmt"
	"strings"

	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/coreapi"
	"github.com/midtrans/midtrans-go/snap"
)

// Midtrans serves the card rail through Snap hosted checkout. The donation id
// doubles as the Midtrans order id.
type Midtrans struct {
	SnapClient snap.Client
	CoreClient coreapi.Client
}

func NewMidtrans(serverKey string, production bool) *Midtrans {
	env := midtrans.Sandbox
	if production {
		env = midtrans.Production
	}

	var s snap.Client
	s.New(serverKey, env)

	var c coreapi.Client
	c.New(serverKey, env)

	return &Midtrans{SnapClient: s, CoreClient: c}
}

func (m *Midtrans) Name() string { return "midtrans" }

// Midtrans only settles in rupiah, and gross amounts are whole rupiah.
const midtransCurrency = "idr"

func (m *Midtrans) CreateSession(_ context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	if !strings.EqualFold(req.Currency, midtransCurrency) {
		return nil, fmt.Errorf("%w: midtrans: unsupported currency %q", ErrProvider, req.Currency)
	}
	snapReq := &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  req.DonationID,
			GrossAmt: req.AmountCents / 100,
		},
		CustomerDetail: &midtrans.CustomerDetails{
			FName: req.DonorName,
			Email: req.DonorEmail,
		},
		Items: &[]midtrans.ItemDetails{
			{
				ID:    "DONATION",
				Price: req.AmountCents / 100,
				Qty:   1,
				Name:  req.TierName,
			},
		},
		Callbacks: &snap.Callbacks{Finish: req.SuccessURL},
	}

	// Midtrans can hand back a usable response alongside a non-nil error, so
	// the response is what decides success.
	resp, midErr := m.SnapClient.CreateTransaction(snapReq)
	if resp == nil || resp.RedirectURL == "" {
		if midErr != nil {
			return nil, fmt.Errorf("%w: midtrans: %s", ErrProvider, midErr.Message)
		}
		return nil, fmt.Errorf("%w: midtrans: empty snap response", ErrProvider)
	}
	return &CheckoutSession{ID: resp.Token, URL: resp.RedirectURL}, nil
}

func (m *Midtrans) Paid(_ context.Context, donationID, _ string) (bool, error) {
	resp, midErr := m.CoreClient.CheckTransaction(donationID)
	if resp == nil {
		if midErr != nil {
			return false, fmt.Errorf("%w: midtrans: %s", ErrProvider, midErr.Message)
		}
		return false, fmt.Errorf("%w: midtrans: empty status response", ErrProvider)
	}
	return midtransSettled(resp.TransactionStatus, resp.FraudStatus), nil
}

// midtransSettled reports whether a transaction status means the money is
// ours. Card captures count only once fraud screening accepted them.
func midtransSettled(status, fraud string) bool {
	switch status {
	case "settlement":
		return true
	case "capture":
		return fraud == "accept"
	}
	return false
}
