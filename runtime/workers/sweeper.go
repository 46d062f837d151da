package workers

import (
	"context"
	"log/slog"
	"time"

	"github.com/a7al3le-dotcom/chat7ob/ratelimit"
)

// SweeperWorker periodically removes empty rate windows so idle actors do
// not pin memory forever. Filtering on read already keeps decisions
// correct; the sweep only bounds memory.
type SweeperWorker struct {
	log      *slog.Logger
	limiters []*ratelimit.Limiter
	interval time.Duration
}

func NewSweeperWorker(log *slog.Logger, interval time.Duration, limiters ...*ratelimit.Limiter) *SweeperWorker {
	return &SweeperWorker{log: log, limiters: limiters, interval: interval}
}

func (w *SweeperWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping sweeper")
			return nil
		case <-ticker.C:
			total := 0
			for _, limiter := range w.limiters {
				total += limiter.Sweep()
			}
			if total > 0 {
				w.log.Debug("Swept empty rate windows", "removed", total)
			}
		}
	}
}
