package download

import (
	"context"
	"time"

	"xbookmarks/pkg/errors"
	"xbookmarks/pkg/logger"
)

// DefaultPollInterval is how often a watcher re-checks download state.
const DefaultPollInterval = 500 * time.Millisecond

// Watcher polls a Manager until a download settles, then releases it.
// Each download is resolved at most once regardless of how the polling
// interleaves with state changes.
type Watcher struct {
	manager  *Manager
	interval time.Duration
	logger   logger.Logger
}

// NewWatcher creates a watcher over the given manager. A zero interval
// uses the default.
func NewWatcher(manager *Manager, interval time.Duration, log logger.Logger) *Watcher {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if log == nil {
		log = logger.GetLogger()
	}
	return &Watcher{
		manager:  manager,
		interval: interval,
		logger:   log,
	}
}

// Wait blocks until the download with the given ID completes, fails, or
// the context is cancelled. On completion it returns nil; on
// interruption it returns a *errors.DownloadError carrying the reason.
// The download is released before Wait returns a settled outcome.
func (w *Watcher) Wait(ctx context.Context, id int) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		item, ok := w.manager.Search(id)
		if !ok {
			return &errors.DownloadError{Reason: "download not found"}
		}

		switch item.State {
		case StateComplete:
			w.manager.Release(id)
			w.logger.InfoWithFields("export file written", map[string]interface{}{
				"filename": item.Filename,
			})
			return nil
		case StateInterrupted:
			w.manager.Release(id)
			return &errors.DownloadError{Reason: item.Reason}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
