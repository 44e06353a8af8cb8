package workers

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"mailbridge/internal/engine/accounts"
	"mailbridge/internal/engine/onboarding"
	"mailbridge/internal/engine/webhooklogs"
)

// Maintenance runs the periodic housekeeping: expiring stale onboarding
// links, purging old webhook audit rows, and resetting daily send counters.
type Maintenance struct {
	accounts   *accounts.Service
	onboarding *onboarding.Service
	logs       *webhooklogs.Service
}

func NewMaintenance(accounts *accounts.Service, onboarding *onboarding.Service, logs *webhooklogs.Service) *Maintenance {
	return &Maintenance{
		accounts:   accounts,
		onboarding: onboarding,
		logs:       logs,
	}
}

// Sweep runs one pass of the interval jobs. Each job is independent; one
// failing does not stop the others.
func (m *Maintenance) Sweep(ctx context.Context) {
	if _, err := m.onboarding.ExpireOld(ctx); err != nil {
		log.Error().Err(err).Msg("onboarding link expiry sweep failed")
	}
	if _, err := m.logs.Purge(ctx); err != nil {
		log.Error().Err(err).Msg("webhook log purge failed")
	}
}

// RunSweeps blocks, running Sweep on the given interval until ctx is done.
func (m *Maintenance) RunSweeps(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	m.Sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep(ctx)
		}
	}
}

// RunDailyReset blocks, resetting per-account daily send counters at
// midnight UTC until ctx is done.
func (m *Maintenance) RunDailyReset(ctx context.Context) {
	for {
		now := time.Now().UTC()
		next := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, time.UTC)

		timer := time.NewTimer(next.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		if _, err := m.accounts.ResetDailyCounters(ctx); err != nil {
			log.Error().Err(err).Msg("daily counter reset failed")
		}
	}
}
