package session

import (
	"context"
	"strings"
	"time"

	"xbookmarks/pkg/errors"
	"xbookmarks/pkg/logger"
	"xbookmarks/pkg/progress"
)

const (
	// DefaultPollInterval is how often the gate re-checks the store.
	DefaultPollInterval = 100 * time.Millisecond
	// DefaultMaxAttempts bounds the wait at roughly five seconds.
	DefaultMaxAttempts = 50
)

// Gate blocks an export until the interceptor has captured a complete
// credential set, or a fixed attempt budget runs out. Polling is the only
// synchronization with the store; the interceptor keeps writing while the
// gate waits.
type Gate struct {
	store    *Store
	interval time.Duration
	attempts int
	broker   *progress.Broker
	logger   logger.Logger
}

// NewGate creates a gate over the given store. Zero interval or attempts
// fall back to the defaults; a nil broker gets a private one.
func NewGate(store *Store, interval time.Duration, attempts int, broker *progress.Broker, log logger.Logger) *Gate {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if attempts <= 0 {
		attempts = DefaultMaxAttempts
	}
	if broker == nil {
		broker = progress.NewBroker()
	}
	if log == nil {
		log = logger.GetLogger()
	}
	return &Gate{store: store, interval: interval, attempts: attempts, broker: broker, logger: log}
}

// AwaitReady polls the store until all required session values are
// present. It returns nil as soon as the set is complete, a
// *errors.TimeoutError naming the still-missing fields when the attempt
// budget is exhausted, or ctx.Err() if the context is cancelled first.
// Waiting and the terminal timeout are reported on the status channel.
func (g *Gate) AwaitReady(ctx context.Context) error {
	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()

	for attempt := 1; ; attempt++ {
		missing := g.store.Missing()
		if len(missing) == 0 {
			g.logger.DebugWithFields("session data complete", map[string]interface{}{
				"attempts": attempt,
			})
			return nil
		}

		if attempt == 1 {
			g.broker.Publishf("Waiting for session data (missing: %s)", strings.Join(missing, ", "))
		}

		if attempt >= g.attempts {
			g.logger.WarnWithFields("session wait exhausted", map[string]interface{}{
				"attempts": attempt,
				"missing":  missing,
			})
			err := &errors.TimeoutError{Attempts: attempt, Missing: missing}
			g.broker.Publishf("Export failed: %v", err)
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
