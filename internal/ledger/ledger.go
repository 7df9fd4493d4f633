// Package ledger persists DonationRecords and enforces their status
// lifecycle. Every status change is a conditional update guarded by
// status = 'pending', so concurrent completions of the same id transition it
// exactly once.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"wisdom-empire/internal/models"
)

var (
	ErrNotFound          = errors.New("donation not found")
	ErrInvalidTransition = errors.New("invalid donation status transition")
)

const columns = `id, name, email, tier, amount, payment_method, status, provider_session_id, created_at, completed_at`

type Ledger struct {
	DB  *sqlx.DB
	now func() time.Time
}

func New(db *sqlx.DB) *Ledger {
	return &Ledger{DB: db, now: func() time.Time { return time.Now().UTC() }}
}

// Create inserts a new record. Records always start out pending; a zero
// CreatedAt is filled from the ledger clock.
func (l *Ledger) Create(ctx context.Context, rec *models.DonationRecord) error {
	if rec.Status == "" {
		rec.Status = models.StatusPending
	}
	if rec.Status != models.StatusPending {
		return fmt.Errorf("%w: new records must be pending, got %q", ErrInvalidTransition, rec.Status)
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = l.now()
	}

	query := l.DB.Rebind(`INSERT INTO donations (` + columns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := l.DB.ExecContext(ctx, query,
		rec.ID, rec.Name, rec.Email, rec.Tier, rec.Amount, rec.PaymentMethod,
		rec.Status, rec.ProviderSessionID, rec.CreatedAt, rec.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("insert donation: %w", err)
	}
	return nil
}

func (l *Ledger) Get(ctx context.Context, id string) (*models.DonationRecord, error) {
	var rec models.DonationRecord
	err := l.DB.GetContext(ctx, &rec, l.DB.Rebind(`SELECT `+columns+` FROM donations WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get donation: %w", err)
	}
	return &rec, nil
}

// SetProviderSession stores the checkout session id on a record that does
// not have one yet. It is a no-op when a session id is already present.
func (l *Ledger) SetProviderSession(ctx context.Context, id, sessionID string) error {
	res, err := l.DB.ExecContext(ctx,
		l.DB.Rebind(`UPDATE donations SET provider_session_id = ? WHERE id = ? AND provider_session_id IS NULL`),
		sessionID, id,
	)
	if err != nil {
		return fmt.Errorf("set provider session: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		if _, err := l.Get(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// Transition moves a pending record to next. changed is false when the record
// was already in next (an idempotent re-entry); any other starting state is
// rejected with ErrInvalidTransition.
func (l *Ledger) Transition(ctx context.Context, id string, next models.DonationStatus) (rec *models.DonationRecord, changed bool, err error) {
	if !models.StatusPending.CanTransitionTo(next) {
		return nil, false, fmt.Errorf("%w: cannot move to %q", ErrInvalidTransition, next)
	}

	var completedAt *time.Time
	if next == models.StatusCompleted {
		t := l.now()
		completedAt = &t
	}

	res, err := l.DB.ExecContext(ctx,
		l.DB.Rebind(`UPDATE donations SET status = ?, completed_at = ? WHERE id = ? AND status = ?`),
		next, completedAt, id, models.StatusPending,
	)
	if err != nil {
		return nil, false, fmt.Errorf("update donation status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("update donation status: %w", err)
	}

	rec, err = l.Get(ctx, id)
	if err != nil {
		return nil, false, err
	}
	if n == 1 {
		return rec, true, nil
	}
	if rec.Status == next {
		return rec, false, nil
	}
	return rec, false, fmt.Errorf("%w: %s is %s, cannot move to %s", ErrInvalidTransition, id, rec.Status, next)
}

// List returns records newest first, optionally filtered by status, along with
// the total number of matching records.
func (l *Ledger) List(ctx context.Context, status models.DonationStatus, limit, offset int) ([]models.DonationRecord, int, error) {
	where := ""
	var args []any
	if status != "" {
		where = ` WHERE status = ?`
		args = append(args, status)
	}

	var total int
	if err := l.DB.GetContext(ctx, &total, l.DB.Rebind(`SELECT COUNT(*) FROM donations`+where), args...); err != nil {
		return nil, 0, fmt.Errorf("count donations: %w", err)
	}

	records := []models.DonationRecord{}
	query := l.DB.Rebind(`SELECT ` + columns + ` FROM donations` + where + ` ORDER BY created_at DESC, id LIMIT ? OFFSET ?`)
	if err := l.DB.SelectContext(ctx, &records, query, append(args, limit, offset)...); err != nil {
		return nil, 0, fmt.Errorf("list donations: %w", err)
	}
	return records, total, nil
}

// FailStalePending marks every record still pending and created before cutoff
// as failed, returning how many were changed.
func (l *Ledger) FailStalePending(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := l.DB.ExecContext(ctx,
		l.DB.Rebind(`UPDATE donations SET status = ? WHERE status = ? AND created_at < ?`),
		models.StatusFailed, models.StatusPending, cutoff.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("fail stale donations: %w", err)
	}
	return res.RowsAffected()
}
