package donation

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"wisdom-empire/internal/certificate"
	"wisdom-empire/internal/config"
	"wisdom-empire/internal/ledger"
	"wisdom-empire/internal/models"
	"wisdom-empire/internal/payments"
	"wisdom-empire/internal/testutil"
)

type fakeProvider struct {
	mu        sync.Mutex
	requests  []payments.CheckoutRequest
	createErr error
	paid      bool
	paidErr   error
}

func (f *fakeProvider) Name() string { return "stripe" }

func (f *fakeProvider) CreateSession(_ context.Context, req payments.CheckoutRequest) (*payments.CheckoutSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &payments.CheckoutSession{ID: "cs_test_" + req.DonationID, URL: "https://checkout.stripe.com/c/pay/cs_test_" + req.DonationID}, nil
}

func (f *fakeProvider) Paid(context.Context, string, string) (bool, error) {
	return f.paid, f.paidErr
}

type recordingNotifier struct {
	mu   sync.Mutex
	seen []models.DonationRecord
}

func (n *recordingNotifier) DonationCompleted(rec models.DonationRecord) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.seen = append(n.seen, rec)
}

type brokenSessionLedger struct {
	*ledger.Ledger
}

func (brokenSessionLedger) SetProviderSession(context.Context, string, string) error {
	return errors.New("connection reset")
}

type fixture struct {
	svc      *Service
	ledger   *ledger.Ledger
	provider *fakeProvider
	notifier *recordingNotifier
}

func newFixture(t *testing.T, mutate ...func(*config.Config)) *fixture {
	t.Helper()
	cfg := config.Config{OriginURL: "https://wisdom.example/", Currency: "usd"}
	for _, m := range mutate {
		m(&cfg)
	}
	l := ledger.New(testutil.NewDB(t))
	p := &fakeProvider{}
	n := &recordingNotifier{}
	svc := NewService(cfg, l, p, certificate.NewGenerator(), zap.NewNop())
	svc.Notifier = n
	return &fixture{svc: svc, ledger: l, provider: p, notifier: n}
}

var (
	patron    = models.Tier{Name: "Wisdom Patron", Amount: "$20"}
	supporter = models.Tier{Name: "Wisdom Supporter", Amount: "$5"}
	donor     = models.DonorFields{Name: "Ada", Email: "ada@example.com"}
)

func countDonations(t *testing.T, l *ledger.Ledger) int {
	t.Helper()
	_, total, err := l.List(context.Background(), "", 100, 0)
	require.NoError(t, err)
	return total
}

func TestInitiate_Stripe(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.Initiate(ctx, donor, patron, models.PaymentMethodStripe)
	require.NoError(t, err)
	require.NotEmpty(t, res.PaymentURL)

	u, err := url.Parse(res.PaymentURL)
	require.NoError(t, err)
	assert.NotEqual(t, "wisdom.example", u.Host)

	rec, err := f.ledger.Get(ctx, res.DonationID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, rec.Status)
	assert.True(t, decimal.RequireFromString("20.00").Equal(rec.Amount))
	require.NotNil(t, rec.ProviderSessionID)
	assert.Equal(t, "cs_test_"+rec.ID, *rec.ProviderSessionID)

	require.Len(t, f.provider.requests, 1)
	req := f.provider.requests[0]
	assert.Equal(t, int64(2000), req.AmountCents)
	assert.Equal(t, rec.ID, req.DonationID)
	assert.Equal(t, "https://wisdom.example/donate?cancelled=true", req.CancelURL)
	assert.True(t, strings.HasPrefix(req.SuccessURL, "https://wisdom.example/donate/success?donation_id="+rec.ID))
	assert.Contains(t, req.SuccessURL, "{CHECKOUT_SESSION_ID}")
}

func TestInitiate_PayPal(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.Initiate(context.Background(), donor, supporter, models.PaymentMethodPayPal)
	require.NoError(t, err)
	assert.Equal(t, "https://wisdom.example/donate/success?donation_id="+res.DonationID+"&method=paypal", res.PaymentURL)
	assert.Empty(t, f.provider.requests)

	rec, err := f.ledger.Get(context.Background(), res.DonationID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(5).Equal(rec.Amount))
	assert.Nil(t, rec.ProviderSessionID)
}

func TestInitiate_ValidationCreatesNothing(t *testing.T) {
	f := newFixture(t)
	for _, d := range []models.DonorFields{
		{Name: "", Email: "ada@example.com"},
		{Name: "Ada", Email: ""},
		{Name: "   ", Email: " "},
	} {
		_, err := f.svc.Initiate(context.Background(), d, patron, models.PaymentMethodStripe)
		assert.ErrorIs(t, err, ErrValidation)
	}
	_, err := f.svc.Initiate(context.Background(), donor, patron, models.PaymentMethod("cheque"))
	assert.ErrorIs(t, err, ErrValidation)

	assert.Zero(t, countDonations(t, f.ledger))
	assert.Empty(t, f.provider.requests)
}

func TestInitiate_InvalidAmount(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Initiate(context.Background(), donor, models.Tier{Name: "Broken", Amount: "priceless"}, models.PaymentMethodCrypto)
	assert.ErrorIs(t, err, ErrInvalidAmount)
	assert.Zero(t, countDonations(t, f.ledger))
}

func TestInitiate_ProviderFailureLeavesPending(t *testing.T) {
	f := newFixture(t)
	f.provider.createErr = payments.ErrProvider

	_, err := f.svc.Initiate(context.Background(), donor, patron, models.PaymentMethodStripe)
	assert.ErrorIs(t, err, ErrInitiation)

	pending, total, err := f.ledger.List(context.Background(), models.StatusPending, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Nil(t, pending[0].ProviderSessionID)
}

func TestInitiate_SessionPersistFailureLeavesPending(t *testing.T) {
	f := newFixture(t)
	f.svc.Ledger = brokenSessionLedger{f.ledger}

	_, err := f.svc.Initiate(context.Background(), donor, patron, models.PaymentMethodStripe)
	assert.ErrorIs(t, err, ErrInitiation)

	_, total, err := f.ledger.List(context.Background(), models.StatusPending, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

func TestComplete_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res, err := f.svc.Initiate(ctx, donor, supporter, models.PaymentMethodPayPal)
	require.NoError(t, err)

	first, err := f.svc.Complete(ctx, res.DonationID, "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, first.Status)

	second, err := f.svc.Complete(ctx, res.DonationID, "")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, models.StatusCompleted, second.Status)
	assert.Equal(t, first.CompletedAt.Unix(), second.CompletedAt.Unix())

	assert.Len(t, f.notifier.seen, 1)
}

func TestComplete_NotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Complete(context.Background(), "nope", "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestComplete_FailedIsRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res, err := f.svc.Initiate(ctx, donor, supporter, models.PaymentMethodCrypto)
	require.NoError(t, err)
	_, err = f.svc.Fail(ctx, res.DonationID)
	require.NoError(t, err)

	_, err = f.svc.Complete(ctx, res.DonationID, "")
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Empty(t, f.notifier.seen)
}

func TestComplete_BackfillsSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.provider.createErr = payments.ErrProvider
	_, err := f.svc.Initiate(ctx, donor, patron, models.PaymentMethodStripe)
	require.ErrorIs(t, err, ErrInitiation)

	pending, _, err := f.ledger.List(ctx, models.StatusPending, 1, 0)
	require.NoError(t, err)
	id := pending[0].ID

	rec, err := f.svc.Complete(ctx, id, "cs_from_redirect")
	require.NoError(t, err)
	require.NotNil(t, rec.ProviderSessionID)
	assert.Equal(t, "cs_from_redirect", *rec.ProviderSessionID)
}

func TestComplete_VerifiesCardPayments(t *testing.T) {
	f := newFixture(t, func(c *config.Config) { c.VerifyCardPayments = true })
	ctx := context.Background()
	res, err := f.svc.Initiate(ctx, donor, patron, models.PaymentMethodStripe)
	require.NoError(t, err)

	_, err = f.svc.Complete(ctx, res.DonationID, "")
	assert.ErrorIs(t, err, ErrPaymentUnverified)
	rec, err := f.ledger.Get(ctx, res.DonationID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, rec.Status)

	f.provider.paid = true
	rec, err = f.svc.Complete(ctx, res.DonationID, "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, rec.Status)
}

func TestComplete_ManualRailsSkipVerification(t *testing.T) {
	f := newFixture(t, func(c *config.Config) { c.VerifyCardPayments = true })
	ctx := context.Background()
	res, err := f.svc.Initiate(ctx, donor, supporter, models.PaymentMethodPayPal)
	require.NoError(t, err)

	rec, err := f.svc.Complete(ctx, res.DonationID, "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, rec.Status)
}

func TestReconcile_SkipsVerification(t *testing.T) {
	f := newFixture(t, func(c *config.Config) { c.VerifyCardPayments = true })
	ctx := context.Background()
	res, err := f.svc.Initiate(ctx, donor, patron, models.PaymentMethodStripe)
	require.NoError(t, err)

	rec, err := f.svc.Reconcile(ctx, res.DonationID, "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, rec.Status)
}

func TestFail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res, err := f.svc.Initiate(ctx, donor, supporter, models.PaymentMethodCrypto)
	require.NoError(t, err)

	rec, err := f.svc.Fail(ctx, res.DonationID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, rec.Status)

	_, err = f.svc.Fail(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCertificate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res, err := f.svc.Initiate(ctx, donor, patron, models.PaymentMethodPayPal)
	require.NoError(t, err)

	pdf, _, err := f.svc.Certificate(ctx, res.DonationID)
	assert.ErrorIs(t, err, ErrNotCompleted)
	assert.Nil(t, pdf)

	_, err = f.svc.Complete(ctx, res.DonationID, "")
	require.NoError(t, err)

	pdf, rec, err := f.svc.Certificate(ctx, res.DonationID)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(pdf), "%PDF-"))
	assert.Equal(t, res.DonationID, rec.ID)

	after, err := f.ledger.Get(ctx, res.DonationID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, after.Status)

	_, _, err = f.svc.Certificate(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}
