package ledger

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"wisdom-empire/internal/models"
	"wisdom-empire/internal/testutil"
)

func newLedger(t *testing.T) *Ledger {
	t.Helper()
	return New(testutil.NewDB(t))
}

func newRecord(method models.PaymentMethod) *models.DonationRecord {
	return &models.DonationRecord{
		ID:            uuid.NewString(),
		Name:          "Ada",
		Email:         "ada@example.com",
		Tier:          "Wisdom Patron",
		Amount:        decimal.NewFromInt(20),
		PaymentMethod: method,
	}
}

func TestCreateAndGet(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()
	rec := newRecord(models.PaymentMethodStripe)
	require.NoError(t, l.Create(ctx, rec))

	got, err := l.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, got.Status)
	assert.True(t, decimal.NewFromInt(20).Equal(got.Amount), got.Amount.String())
	assert.Equal(t, models.PaymentMethodStripe, got.PaymentMethod)
	assert.Nil(t, got.ProviderSessionID)
	assert.Nil(t, got.CompletedAt)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestCreate_RejectsNonPending(t *testing.T) {
	l := newLedger(t)
	rec := newRecord(models.PaymentMethodPayPal)
	rec.Status = models.StatusCompleted
	assert.ErrorIs(t, l.Create(context.Background(), rec), ErrInvalidTransition)
}

func TestGet_NotFound(t *testing.T) {
	_, err := newLedger(t).Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSetProviderSession(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()
	rec := newRecord(models.PaymentMethodStripe)
	require.NoError(t, l.Create(ctx, rec))

	require.NoError(t, l.SetProviderSession(ctx, rec.ID, "cs_test_1"))
	require.NoError(t, l.SetProviderSession(ctx, rec.ID, "cs_test_2"))

	got, err := l.Get(ctx, rec.ID)
	require.NoError(t, err)
	require.NotNil(t, got.ProviderSessionID)
	assert.Equal(t, "cs_test_1", *got.ProviderSessionID)

	assert.ErrorIs(t, l.SetProviderSession(ctx, "missing", "cs"), ErrNotFound)
}

func TestTransition_CompleteIsIdempotent(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()
	rec := newRecord(models.PaymentMethodPayPal)
	require.NoError(t, l.Create(ctx, rec))

	first, changed, err := l.Transition(ctx, rec.ID, models.StatusCompleted)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, models.StatusCompleted, first.Status)
	require.NotNil(t, first.CompletedAt)

	second, changed, err := l.Transition(ctx, rec.ID, models.StatusCompleted)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, first.CompletedAt.Unix(), second.CompletedAt.Unix())
}

func TestTransition_RejectsInvalid(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()
	rec := newRecord(models.PaymentMethodCrypto)
	require.NoError(t, l.Create(ctx, rec))

	_, _, err := l.Transition(ctx, rec.ID, models.StatusPending)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, _, err = l.Transition(ctx, rec.ID, models.StatusCompleted)
	require.NoError(t, err)

	_, _, err = l.Transition(ctx, rec.ID, models.StatusFailed)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	got, err := l.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, got.Status)

	_, _, err = l.Transition(ctx, "missing", models.StatusCompleted)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTransition_ConcurrentCompletionChangesOnce(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()
	rec := newRecord(models.PaymentMethodPayPal)
	require.NoError(t, l.Create(ctx, rec))

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		changes int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, changed, err := l.Transition(ctx, rec.ID, models.StatusCompleted)
			assert.NoError(t, err)
			if changed {
				mu.Lock()
				changes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, changes)
}

func TestList(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var ids []string
	for i := 0; i < 3; i++ {
		rec := newRecord(models.PaymentMethodPayPal)
		rec.CreatedAt = base.Add(time.Duration(i) * time.Hour)
		require.NoError(t, l.Create(ctx, rec))
		ids = append(ids, rec.ID)
	}
	_, _, err := l.Transition(ctx, ids[0], models.StatusCompleted)
	require.NoError(t, err)

	all, total, err := l.List(ctx, "", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, all, 3)
	assert.Equal(t, ids[2], all[0].ID)

	pending, total, err := l.List(ctx, models.StatusPending, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, pending, 1)
	assert.Equal(t, ids[2], pending[0].ID)

	page2, _, err := l.List(ctx, models.StatusPending, 1, 1)
	require.NoError(t, err)
	require.Len(t, page2, 1)
	assert.Equal(t, ids[1], page2[0].ID)
}

func TestSweeper(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	stale := newRecord(models.PaymentMethodCrypto)
	stale.CreatedAt = now.Add(-72 * time.Hour)
	fresh := newRecord(models.PaymentMethodCrypto)
	fresh.CreatedAt = now.Add(-time.Hour)
	done := newRecord(models.PaymentMethodPayPal)
	done.CreatedAt = now.Add(-96 * time.Hour)
	for _, rec := range []*models.DonationRecord{stale, fresh, done} {
		require.NoError(t, l.Create(ctx, rec))
	}
	_, _, err := l.Transition(ctx, done.ID, models.StatusCompleted)
	require.NoError(t, err)

	s := &Sweeper{Ledger: l, MaxAge: 48 * time.Hour, Interval: time.Minute, Logger: zap.NewNop()}
	n, err := s.SweepOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	for id, want := range map[string]models.DonationStatus{
		stale.ID: models.StatusFailed,
		fresh.ID: models.StatusPending,
		done.ID:  models.StatusCompleted,
	} {
		got, err := l.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, want, got.Status, id)
	}
}

func TestSweeper_DisabledReturnsImmediately(t *testing.T) {
	s := &Sweeper{Ledger: newLedger(t), Logger: zap.NewNop()}
	assert.NoError(t, s.Run(context.Background()))
}

func TestSweeper_RejectsNonPositiveInterval(t *testing.T) {
	for _, interval := range []time.Duration{0, -time.Second} {
		s := &Sweeper{Ledger: newLedger(t), MaxAge: time.Hour, Interval: interval, Logger: zap.NewNop()}
		err := s.Run(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "interval")
	}
}
