package ledger

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Sweeper periodically fails records that have been pending longer than
// MaxAge, e.g. abandoned checkouts.
type Sweeper struct {
	Ledger   *Ledger
	MaxAge   time.Duration
	Interval time.Duration
	Logger   *zap.Logger
}

// SweepOnce runs a single pass and returns the number of records failed.
func (s *Sweeper) SweepOnce(ctx context.Context) (int64, error) {
	cutoff := s.Ledger.now().Add(-s.MaxAge)
	n, err := s.Ledger.FailStalePending(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.Logger.Info("failed stale pending donations", zap.Int64("count", n), zap.Time("cutoff", cutoff))
	}
	return n, nil
}

// Run sweeps every Interval until ctx is done. A zero MaxAge disables it.
func (s *Sweeper) Run(ctx context.Context) error {
	if s.MaxAge <= 0 {
		return nil
	}
	if s.Interval <= 0 {
		return fmt.Errorf("sweeper: interval must be positive, got %s", s.Interval)
	}
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := s.SweepOnce(ctx); err != nil && ctx.Err() == nil {
				s.Logger.Error("stale pending sweep failed", zap.Error(err))
			}
		}
	}
}
