// Package export runs the bookmark export pipeline: it checks the
// captured session, pages through the Bookmarks timeline, normalizes
// tweet entries, and hands the assembled JSON artifact to the download
// manager.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"xbookmarks/pkg/download"
	"xbookmarks/pkg/errors"
	"xbookmarks/pkg/logger"
	"xbookmarks/pkg/models"
	"xbookmarks/pkg/progress"
	"xbookmarks/pkg/ratelimit"
	"xbookmarks/pkg/session"
	"xbookmarks/pkg/twitter"
)

// Result summarizes a finished export.
type Result struct {
	Filename string
	Records  int
	Pages    int
}

// Exporter drives a full bookmark export end to end.
type Exporter struct {
	store   *session.Store
	client  *twitter.Client
	manager *download.Manager
	watcher *download.Watcher
	broker  *progress.Broker
	limiter ratelimit.Limiter
	// maxPages caps how many timeline pages are fetched; 0 means no cap.
	maxPages int
	logger   logger.Logger
	now      func() time.Time
}

// Options configures an Exporter. Store, Client and Manager are
// required; the rest default to sensible values.
type Options struct {
	Store    *session.Store
	Client   *twitter.Client
	Manager  *download.Manager
	Watcher  *download.Watcher
	Broker   *progress.Broker
	Limiter  *ratelimit.TokenBucket
	MaxPages int
	Logger   logger.Logger
}

// New creates an exporter from the given options.
func New(opts Options) *Exporter {
	log := opts.Logger
	if log == nil {
		log = logger.GetLogger()
	}
	watcher := opts.Watcher
	if watcher == nil {
		watcher = download.NewWatcher(opts.Manager, download.DefaultPollInterval, log)
	}
	broker := opts.Broker
	if broker == nil {
		broker = progress.NewBroker()
	}

	e := &Exporter{
		store:    opts.Store,
		client:   opts.Client,
		manager:  opts.Manager,
		watcher:  watcher,
		broker:   broker,
		maxPages: opts.MaxPages,
		logger:   log,
		now:      time.Now,
	}
	// A nil *TokenBucket in a non-nil interface would dodge the nil
	// check, so only assign when a bucket exists.
	if opts.Limiter != nil {
		e.limiter = opts.Limiter
	}
	return e
}

// Run executes the export. It fails up front with *errors.MissingAuthError
// when the session is incomplete, and otherwise pages through the
// bookmarks timeline until the cursor runs out. On success the export
// file is fully written before Run returns; on any failure no file is
// left behind.
func (e *Exporter) Run(ctx context.Context) (*Result, error) {
	if missing := e.store.Missing(); len(missing) > 0 {
		err := &errors.MissingAuthError{Missing: missing}
		e.broker.Publishf("Export failed: %v", err)
		return nil, err
	}

	e.broker.Publish("Starting bookmark export...")
	e.logger.Info("starting bookmark export")

	records, pages, err := e.fetchAll(ctx)
	if err != nil {
		e.broker.Publishf("Export failed: %v", err)
		return nil, err
	}

	filename, err := e.writeArtifact(ctx, records)
	if err != nil {
		e.broker.Publishf("Export failed: %v", err)
		return nil, err
	}

	e.broker.Publishf("Export complete! %d bookmarks saved to %s", len(records), filename)
	e.logger.InfoWithFields("bookmark export finished", map[string]interface{}{
		"records":  len(records),
		"pages":    pages,
		"filename": filename,
	})

	return &Result{Filename: filename, Records: len(records), Pages: pages}, nil
}

// fetchAll pages through the timeline, accumulating normalized records.
// Pagination continues only while a page yields both a bottom cursor and
// at least one tweet; a cursor-only page is the end of the timeline.
func (e *Exporter) fetchAll(ctx context.Context) ([]models.Record, int, error) {
	creds := e.store.Credentials()
	routeID := e.store.RouteID()

	var records []models.Record
	cursor := ""
	pages := 0

	for {
		if e.limiter != nil {
			if err := e.limiter.Wait(ctx); err != nil {
				return nil, pages, err
			}
		}

		resp, err := e.client.FetchBookmarksPage(ctx, creds, routeID, cursor)
		if err != nil {
			return nil, pages, err
		}
		pages++

		entries, err := resp.Entries()
		if err != nil {
			return nil, pages, err
		}

		pageTweets := 0
		for _, entry := range entries {
			if !entry.IsTweet() {
				continue
			}
			records = append(records, twitter.NormalizeEntry(entry))
			pageTweets++
		}

		e.broker.Publishf("Fetched %d bookmarks so far...", len(records))
		e.logger.DebugWithFields("bookmarks page processed", map[string]interface{}{
			"page":   pages,
			"tweets": pageTweets,
			"total":  len(records),
		})

		next := twitter.NextCursor(entries)
		if next == "" || pageTweets == 0 {
			break
		}
		if e.maxPages > 0 && pages >= e.maxPages {
			e.logger.WarnWithFields("page cap reached, stopping pagination", map[string]interface{}{
				"pages": pages,
			})
			break
		}
		cursor = next
	}

	return records, pages, nil
}

// writeArtifact marshals the records and blocks until the download
// settles. Records marshal to an empty array rather than null when the
// timeline had no bookmarks.
func (e *Exporter) writeArtifact(ctx context.Context, records []models.Record) (string, error) {
	if records == nil {
		records = []models.Record{}
	}

	payload, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return "", &errors.Error{
			Type:    errors.ErrorTypeUnknown,
			Message: fmt.Sprintf("failed to marshal export: %v", err),
		}
	}

	filename := fmt.Sprintf("bookmarks_%d.json", e.now().UnixMilli())
	id := e.manager.Start(filename, payload)

	if err := e.watcher.Wait(ctx, id); err != nil {
		return "", err
	}
	return filename, nil
}
