// Package donation implements the server side of the donation flow: opening
// a payment session for a donor, completing the donation when the donor is
// redirected back, and issuing the certificate.
package donation

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"wisdom-empire/internal/config"
	"wisdom-empire/internal/ledger"
	"wisdom-empire/internal/models"
	"wisdom-empire/internal/payments"
	"wisdom-empire/internal/tiers"
)

// Ledger is the part of the donation ledger the service needs.
type Ledger interface {
	Create(ctx context.Context, rec *models.DonationRecord) error
	Get(ctx context.Context, id string) (*models.DonationRecord, error)
	SetProviderSession(ctx context.Context, id, sessionID string) error
	Transition(ctx context.Context, id string, next models.DonationStatus) (*models.DonationRecord, bool, error)
}

// Notifier is told about every donation that actually transitions to
// completed. Re-entries do not notify.
type Notifier interface {
	DonationCompleted(rec models.DonationRecord)
}

// Renderer turns a completed record into certificate bytes.
type Renderer interface {
	Render(rec models.DonationRecord) ([]byte, error)
}

type Service struct {
	Ledger   Ledger
	Provider payments.CheckoutProvider
	Renderer Renderer
	Notifier Notifier
	Logger   *zap.Logger

	originURL          string
	currency           string
	verifyCardPayments bool
	newID              func() string
}

func NewService(cfg config.Config, l Ledger, provider payments.CheckoutProvider, renderer Renderer, logger *zap.Logger) *Service {
	return &Service{
		Ledger:             l,
		Provider:           provider,
		Renderer:           renderer,
		Logger:             logger,
		originURL:          strings.TrimRight(cfg.OriginURL, "/"),
		currency:           cfg.Currency,
		verifyCardPayments: cfg.VerifyCardPayments,
		newID:              uuid.NewString,
	}
}

// Initiation is what the donor's browser needs to continue.
type Initiation struct {
	DonationID string
	PaymentURL string
}

// Initiate validates the donor, records a pending donation and opens a
// checkout session for card payments. Manually reconciled rails get a
// same-origin success URL instead.
func (s *Service) Initiate(ctx context.Context, donor models.DonorFields, tier models.Tier, method models.PaymentMethod) (*Initiation, error) {
	donor.Name = strings.TrimSpace(donor.Name)
	donor.Email = strings.TrimSpace(donor.Email)
	if donor.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}
	if donor.Email == "" {
		return nil, fmt.Errorf("%w: email is required", ErrValidation)
	}
	if _, err := models.ParsePaymentMethod(string(method)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	cents, err := tiers.ParseAmountCents(tier.Amount)
	if err != nil {
		s.Logger.Error("tier amount does not parse, check the tier catalog",
			zap.String("tier", tier.Name), zap.String("amount", tier.Amount), zap.Error(err))
		return nil, err
	}

	rec := &models.DonationRecord{
		ID:            s.newID(),
		Name:          donor.Name,
		Email:         donor.Email,
		Tier:          tier.Name,
		Amount:        decimal.New(cents, -2),
		PaymentMethod: method,
		Status:        models.StatusPending,
	}
	if err := s.Ledger.Create(ctx, rec); err != nil {
		s.Logger.Error("failed to create pending donation", zap.String("tier", tier.Name), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrInitiation, err)
	}
	log := s.Logger.With(zap.String("donation_id", rec.ID), zap.String("method", string(method)))

	if method != models.PaymentMethodStripe {
		log.Info("pending donation created for manual rail")
		return &Initiation{DonationID: rec.ID, PaymentURL: s.successURL(rec.ID, method)}, nil
	}

	sess, err := s.Provider.CreateSession(ctx, payments.CheckoutRequest{
		DonationID:  rec.ID,
		DonorName:   rec.Name,
		DonorEmail:  rec.Email,
		TierName:    rec.Tier,
		AmountCents: cents,
		Currency:    s.currency,
		SuccessURL:  s.checkoutSuccessURL(rec.ID),
		CancelURL:   s.originURL + "/donate?cancelled=true",
	})
	if err != nil {
		log.Error("failed to create checkout session, donation left pending", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrInitiation, err)
	}
	if err := s.Ledger.SetProviderSession(ctx, rec.ID, sess.ID); err != nil {
		log.Error("failed to store checkout session id, donation left pending",
			zap.String("session_id", sess.ID), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrInitiation, err)
	}

	log.Info("checkout session created", zap.String("provider", s.Provider.Name()), zap.String("session_id", sess.ID))
	return &Initiation{DonationID: rec.ID, PaymentURL: sess.URL}, nil
}

func (s *Service) successURL(id string, method models.PaymentMethod) string {
	q := url.Values{}
	q.Set("donation_id", id)
	q.Set("method", string(method))
	return s.originURL + "/donate/success?" + q.Encode()
}

func (s *Service) checkoutSuccessURL(id string) string {
	u := s.originURL + "/donate/success?donation_id=" + url.QueryEscape(id)
	if s.Provider.Name() == "stripe" {
		// Stripe substitutes the placeholder itself; it must not be escaped.
		u += "&session_id={CHECKOUT_SESSION_ID}"
	}
	return u
}

// Complete handles the donor's redirect back. Completing an already completed
// donation returns it unchanged. sessionID, when given, is backfilled onto
// card donations that lack one.
//
// Payments on the paypal and crypto rails are not checked with any provider
// before completion; those rails are reconciled manually.
func (s *Service) Complete(ctx context.Context, id, sessionID string) (*models.DonationRecord, error) {
	return s.complete(ctx, id, sessionID, s.verifyCardPayments)
}

// Reconcile completes a donation on the word of a trusted source, either a
// signed provider webhook or an admin.
func (s *Service) Reconcile(ctx context.Context, id, sessionID string) (*models.DonationRecord, error) {
	return s.complete(ctx, id, sessionID, false)
}

func (s *Service) complete(ctx context.Context, id, sessionID string, verify bool) (*models.DonationRecord, error) {
	rec, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	log := s.Logger.With(zap.String("donation_id", id), zap.String("method", string(rec.PaymentMethod)))

	switch rec.Status {
	case models.StatusCompleted:
		return rec, nil
	case models.StatusFailed:
		return nil, fmt.Errorf("%w: donation %s has failed", ErrInvalidTransition, id)
	}

	if rec.PaymentMethod == models.PaymentMethodStripe {
		if sessionID != "" && rec.ProviderSessionID == nil {
			if err := s.Ledger.SetProviderSession(ctx, id, sessionID); err != nil {
				log.Error("failed to backfill checkout session id", zap.Error(err))
				return nil, fmt.Errorf("%w: %v", ErrInitiation, err)
			}
			rec.ProviderSessionID = &sessionID
		}
		if verify {
			if err := s.verify(ctx, rec); err != nil {
				log.Warn("card payment not verified", zap.Error(err))
				return nil, err
			}
		}
	}

	updated, changed, err := s.Ledger.Transition(ctx, id, models.StatusCompleted)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			return nil, ErrNotFound
		}
		if !errors.Is(err, ErrInvalidTransition) {
			log.Error("failed to complete donation", zap.Error(err))
		}
		return nil, err
	}
	if changed {
		log.Info("donation completed")
		if s.Notifier != nil {
			s.Notifier.DonationCompleted(*updated)
		}
	}
	return updated, nil
}

func (s *Service) verify(ctx context.Context, rec *models.DonationRecord) error {
	var sessionID string
	if rec.ProviderSessionID != nil {
		sessionID = *rec.ProviderSessionID
	}
	paid, err := s.Provider.Paid(ctx, rec.ID, sessionID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPaymentUnverified, err)
	}
	if !paid {
		return fmt.Errorf("%w: provider reports session unpaid", ErrPaymentUnverified)
	}
	return nil
}

// Fail marks a pending donation failed, e.g. an expired checkout session.
func (s *Service) Fail(ctx context.Context, id string) (*models.DonationRecord, error) {
	rec, changed, err := s.Ledger.Transition(ctx, id, models.StatusFailed)
	if errors.Is(err, ledger.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if changed {
		s.Logger.Info("donation failed", zap.String("donation_id", id))
	}
	return rec, nil
}

// Certificate renders the certificate for a completed donation. The ledger is
// only read.
func (s *Service) Certificate(ctx context.Context, id string) ([]byte, *models.DonationRecord, error) {
	rec, err := s.get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if rec.Status != models.StatusCompleted {
		return nil, nil, fmt.Errorf("%w: donation %s is %s", ErrNotCompleted, id, rec.Status)
	}
	pdf, err := s.Renderer.Render(*rec)
	if err != nil {
		s.Logger.Error("failed to render certificate", zap.String("donation_id", id), zap.Error(err))
		return nil, nil, fmt.Errorf("render certificate: %w", err)
	}
	return pdf, rec, nil
}

func (s *Service) get(ctx context.Context, id string) (*models.DonationRecord, error) {
	rec, err := s.Ledger.Get(ctx, id)
	if errors.Is(err, ledger.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		s.Logger.Error("failed to load donation", zap.String("donation_id", id), zap.Error(err))
		return nil, err
	}
	return rec, nil
}
