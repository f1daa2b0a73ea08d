package service

import (
	"context"
	"fmt"
	"time"

	"github.com/prperemyshlev/social-auth/internal/repository"
	"go.uber.org/zap"
)

// SessionSweeper periodically deletes expired sessions. Lookups already ignore
// expired rows, so the sweep only reclaims storage.
type SessionSweeper struct {
	sessions repository.SessionRepository
	metrics  *Metrics
	logger   *zap.Logger
	interval time.Duration
}

// NewSessionSweeper creates a sweeper; an interval of zero disables Run
func NewSessionSweeper(sessions repository.SessionRepository, metrics *Metrics, logger *zap.Logger, interval time.Duration) *SessionSweeper {
	return &SessionSweeper{
		sessions: sessions,
		metrics:  metrics,
		logger:   logger,
		interval: interval,
	}
}

// Sweep deletes expired sessions once
func (s *SessionSweeper) Sweep(ctx context.Context) (int64, error) {
	deleted, err := s.sessions.DeleteExpired(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to sweep sessions: %w", err)
	}

	s.metrics.recordSwept(ctx, deleted)
	return deleted, nil
}

// Run sweeps on every tick until ctx is cancelled
func (s *SessionSweeper) Run(ctx context.Context) {
	if s.interval <= 0 {
		s.logger.Info("session sweeper disabled")
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := s.Sweep(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				s.logger.Error("session sweep failed", zap.Error(err))
				continue
			}
			if deleted > 0 {
				s.logger.Info("expired sessions swept", zap.Int64("deleted", deleted))
			}
		}
	}
}
