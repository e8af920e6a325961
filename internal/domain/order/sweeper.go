package order

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Notifier receives expiry notifications for fan-out. The sweeper does not
// care how they are delivered.
type Notifier interface {
	OrderExpired(ctx context.Context, o TopUpOrder)
}

// Sweeper expires pending orders that were never verified within the window.
type Sweeper struct {
	repo     *Repository
	window   time.Duration
	interval time.Duration
	notifier Notifier
}

func NewSweeper(repo *Repository, window, interval time.Duration, notifier Notifier) *Sweeper {
	return &Sweeper{repo: repo, window: window, interval: interval, notifier: notifier}
}

// Run sweeps on a ticker until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("order sweeper stopped")
			return
		case <-ticker.C:
			s.SweepOnce(ctx)
		}
	}
}

// SweepOnce runs a single sweep pass.
func (s *Sweeper) SweepOnce(ctx context.Context) {
	cutoff := time.Now().Add(-s.window)

	swept, err := s.repo.SweepExpired(ctx, cutoff)
	if err != nil {
		log.Error().Err(err).Msg("order sweep failed")
		return
	}
	if len(swept) == 0 {
		return
	}

	log.Info().Int("count", len(swept)).Time("cutoff", cutoff).Msg("expired unpaid orders")

	if s.notifier == nil {
		return
	}
	for _, o := range swept {
		s.notifier.OrderExpired(ctx, o)
	}
}
