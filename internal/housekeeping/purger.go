// Package housekeeping removes spent and expired tokens on a cron schedule.
package housekeeping

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bomdev/auth-service/internal/metrics"
	"github.com/robfig/cron/v3"
)

type tokenPurger interface {
	Purge(ctx context.Context, cutoff time.Time) (int64, error)
}

type Purger struct {
	repo      tokenPurger
	logger    *slog.Logger
	schedule  cron.Schedule
	retention time.Duration
	now       func() time.Time
}

// NewPurger accepts standard five-field cron expressions and descriptors
// such as "@every 1h". Tokens are kept for retention after they expire or
// are consumed.
func NewPurger(repo tokenPurger, logger *slog.Logger, spec string, retention time.Duration) (*Purger, error) {
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("parse purge schedule %q: %w", spec, err)
	}
	return &Purger{
		repo:      repo,
		logger:    logger.With("component", "token_purger"),
		schedule:  sched,
		retention: retention,
		now:       time.Now,
	}, nil
}

func (p *Purger) Start(ctx context.Context) {
	p.logger.Info("purger started", "retention", p.retention)

	for {
		next := p.schedule.Next(p.now())
		timer := time.NewTimer(time.Until(next))

		select {
		case <-ctx.Done():
			timer.Stop()
			p.logger.Info("purger shut down")
			return
		case <-timer.C:
			_, _ = p.RunOnce(ctx)
		}
	}
}

// RunOnce deletes every token spent or expired before now minus retention.
func (p *Purger) RunOnce(ctx context.Context) (int64, error) {
	start := p.now()
	defer func() {
		metrics.PurgeCycleDuration.Observe(time.Since(start).Seconds())
	}()

	cutoff := start.Add(-p.retention)
	n, err := p.repo.Purge(ctx, cutoff)
	if err != nil {
		p.logger.ErrorContext(ctx, "purge tokens", "error", err)
		return 0, err
	}

	metrics.TokensPurgedTotal.Add(float64(n))
	if n > 0 {
		p.logger.InfoContext(ctx, "purged tokens", "count", n, "cutoff", cutoff)
	}
	return n, nil
}
