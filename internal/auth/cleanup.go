package auth

import (
	"context"
	"time"

	"go.uber.org/zap"

	"pcbuild-backend/internal/store"
)

// PruneExpiredTokens deletes refresh tokens that expired before now and
// returns how many were removed.
func PruneExpiredTokens(ctx context.Context, s *store.Store, now time.Time) (int64, error) {
	return store.Exec(ctx, s.DB, s.Q("DELETE FROM _refresh_tokens WHERE expires_at <= $1"), now.Unix())
}

// TokenCleaner periodically prunes expired refresh tokens.
type TokenCleaner struct {
	store    *store.Store
	interval time.Duration
	logger   *zap.Logger
	ticker   *time.Ticker
	done     chan struct{}
}

func NewTokenCleaner(s *store.Store, interval time.Duration, logger *zap.Logger) *TokenCleaner {
	if interval <= 0 {
		interval = time.Hour
	}
	return &TokenCleaner{store: s, interval: interval, logger: logger}
}

// Start begins the background ticker.
func (tc *TokenCleaner) Start() {
	tc.ticker = time.NewTicker(tc.interval)
	tc.done = make(chan struct{})
	go tc.run()
	tc.logger.Info("Refresh token cleaner started", zap.Duration("interval", tc.interval))
}

// Stop halts the background ticker.
func (tc *TokenCleaner) Stop() {
	if tc.ticker != nil {
		tc.ticker.Stop()
	}
	if tc.done != nil {
		close(tc.done)
	}
}

func (tc *TokenCleaner) run() {
	for {
		select {
		case <-tc.done:
			return
		case <-tc.ticker.C:
			tc.prune()
		}
	}
}

func (tc *TokenCleaner) prune() {
	n, err := PruneExpiredTokens(context.Background(), tc.store, time.Now())
	if err != nil {
		tc.logger.Error("Refresh token cleanup failed", zap.Error(err))
		return
	}
	if n > 0 {
		tc.logger.Info("Pruned expired refresh tokens", zap.Int64("count", n))
	}
}
