// Package wizard is the donor-facing donation flow:
//
//	initial -> tiers -> payment -> form -> thankyou
//
// with back edges tiers->initial, payment->tiers and form->payment. Each step
// needs the selection made in the step before it, and only one submission
// may be in flight at a time.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"wisdom-empire/internal/donation"
	"wisdom-empire/internal/models"
)

type State string

const (
	StateInitial  State = "initial"
	StateTiers    State = "tiers"
	StatePayment  State = "payment"
	StateForm     State = "form"
	StateThankYou State = "thankyou"
)

var (
	// ErrWrongState means an operation was invoked from a state that does
	// not offer it. This is a caller bug, not a donor mistake.
	ErrWrongState = errors.New("wizard: operation not valid in current state")
	// ErrMissingSelection means a required tier or payment method is unset.
	ErrMissingSelection = errors.New("wizard: required selection missing")
	// ErrSubmitting means a submission is already in flight.
	ErrSubmitting = errors.New("wizard: submission already in progress")
)

// Initiator opens a payment session; the API client implements it.
type Initiator interface {
	Initiate(ctx context.Context, donor models.DonorFields, tier models.Tier, method models.PaymentMethod) (*donation.Initiation, error)
}

// Navigator sends the donor to a URL, e.g. the provider's checkout page.
type Navigator interface {
	Navigate(url string) error
}

type NavigatorFunc func(url string) error

func (f NavigatorFunc) Navigate(url string) error { return f(url) }

type Wizard struct {
	initiator Initiator
	navigator Navigator
	delay     time.Duration

	mu         sync.Mutex
	state      State
	tier       *models.Tier
	method     models.PaymentMethod
	submitting bool
	donationID string

	// OnChange, when set, is called after every state change with the
	// wizard's lock released.
	OnChange func(from, to State)
}

// New returns a wizard in the initial state. delay is the pause before the
// thank-you view on manually reconciled rails.
func New(initiator Initiator, navigator Navigator, delay time.Duration) *Wizard {
	return &Wizard{initiator: initiator, navigator: navigator, delay: delay, state: StateInitial}
}

func (w *Wizard) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Selection returns the chosen tier and method, if any.
func (w *Wizard) Selection() (tier *models.Tier, method models.PaymentMethod) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.tier != nil {
		t := *w.tier
		tier = &t
	}
	return tier, w.method
}

// DonationID is the ledger id of the last successful submission.
func (w *Wizard) DonationID() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.donationID
}

func (w *Wizard) Submitting() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.submitting
}

// transition must be called with w.mu held; it returns a func that fires
// OnChange and must be called after unlocking.
func (w *Wizard) transition(to State) func() {
	from := w.state
	w.state = to
	cb := w.OnChange
	return func() {
		if cb != nil && from != to {
			cb(from, to)
		}
	}
}

func (w *Wizard) guard(want State) error {
	if w.submitting {
		return ErrSubmitting
	}
	if w.state != want {
		return fmt.Errorf("%w: in %s, need %s", ErrWrongState, w.state, want)
	}
	return nil
}

// Start shows the tier menu.
func (w *Wizard) Start() error {
	w.mu.Lock()
	if err := w.guard(StateInitial); err != nil {
		w.mu.Unlock()
		return err
	}
	notify := w.transition(StateTiers)
	w.mu.Unlock()
	notify()
	return nil
}

func (w *Wizard) SelectTier(tier models.Tier) error {
	w.mu.Lock()
	if err := w.guard(StateTiers); err != nil {
		w.mu.Unlock()
		return err
	}
	w.tier = &tier
	notify := w.transition(StatePayment)
	w.mu.Unlock()
	notify()
	return nil
}

func (w *Wizard) SelectPaymentMethod(method models.PaymentMethod) error {
	w.mu.Lock()
	if err := w.guard(StatePayment); err != nil {
		w.mu.Unlock()
		return err
	}
	if w.tier == nil {
		w.mu.Unlock()
		return fmt.Errorf("%w: tier", ErrMissingSelection)
	}
	if _, err := models.ParsePaymentMethod(string(method)); err != nil {
		w.mu.Unlock()
		return fmt.Errorf("%w: %v", ErrMissingSelection, err)
	}
	w.method = method
	notify := w.transition(StateForm)
	w.mu.Unlock()
	notify()
	return nil
}

// Back follows the single back edge out of the current state.
func (w *Wizard) Back() error {
	w.mu.Lock()
	if w.submitting {
		w.mu.Unlock()
		return ErrSubmitting
	}
	var to State
	switch w.state {
	case StateTiers:
		to = StateInitial
	case StatePayment:
		to = StateTiers
	case StateForm:
		to = StatePayment
	default:
		w.mu.Unlock()
		return fmt.Errorf("%w: no way back from %s", ErrWrongState, w.state)
	}
	notify := w.transition(to)
	w.mu.Unlock()
	notify()
	return nil
}

// Reset clears every selection and returns to the initial state.
func (w *Wizard) Reset() error {
	w.mu.Lock()
	if w.submitting {
		w.mu.Unlock()
		return ErrSubmitting
	}
	w.tier, w.method, w.donationID = nil, "", ""
	notify := w.transition(StateInitial)
	w.mu.Unlock()
	notify()
	return nil
}

// Outcome reports what SubmitDonorForm did.
type Outcome struct {
	DonationID string
	PaymentURL string
	// Redirected is true when the donor was sent to the provider's checkout;
	// the wizard then stays in the form state until the donor comes back.
	Redirected bool
}

// SubmitDonorForm checks the donor fields, opens the payment session and
// either redirects to checkout (stripe) or, after the simulated delay, moves
// to the thank-you view. A second call while one is running is rejected.
func (w *Wizard) SubmitDonorForm(ctx context.Context, donor models.DonorFields) (*Outcome, error) {
	donor.Name = strings.TrimSpace(donor.Name)
	donor.Email = strings.TrimSpace(donor.Email)

	w.mu.Lock()
	if err := w.guard(StateForm); err != nil {
		w.mu.Unlock()
		return nil, err
	}
	if w.tier == nil || w.method == "" {
		w.mu.Unlock()
		return nil, fmt.Errorf("%w: tier and payment method", ErrMissingSelection)
	}
	if donor.Name == "" || donor.Email == "" {
		w.mu.Unlock()
		return nil, fmt.Errorf("%w: name and email are required", donation.ErrValidation)
	}
	tier, method := *w.tier, w.method
	w.submitting = true
	w.mu.Unlock()

	out, err := w.submit(ctx, donor, tier, method)

	w.mu.Lock()
	w.submitting = false
	notify := func() {}
	if err == nil {
		w.donationID = out.DonationID
		if !out.Redirected {
			notify = w.transition(StateThankYou)
		}
	}
	w.mu.Unlock()
	notify()
	return out, err
}

func (w *Wizard) submit(ctx context.Context, donor models.DonorFields, tier models.Tier, method models.PaymentMethod) (*Outcome, error) {
	res, err := w.initiator.Initiate(ctx, donor, tier, method)
	if err != nil {
		return nil, err
	}
	out := &Outcome{DonationID: res.DonationID, PaymentURL: res.PaymentURL}

	if method == models.PaymentMethodStripe {
		if err := w.navigator.Navigate(res.PaymentURL); err != nil {
			return nil, fmt.Errorf("open checkout: %w", err)
		}
		out.Redirected = true
		return out, nil
	}

	timer := time.NewTimer(w.delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
	}
	if err := w.navigator.Navigate(res.PaymentURL); err != nil {
		return nil, fmt.Errorf("open success page: %w", err)
	}
	return out, nil
}
