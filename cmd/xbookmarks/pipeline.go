package main

import (
	"xbookmarks/internal/browser"
	"xbookmarks/pkg/capture"
	"xbookmarks/pkg/config"
	"xbookmarks/pkg/download"
	"xbookmarks/pkg/export"
	"xbookmarks/pkg/logger"
	"xbookmarks/pkg/progress"
	"xbookmarks/pkg/ratelimit"
	"xbookmarks/pkg/session"
	"xbookmarks/pkg/twitter"
)

// pipeline wires the full export stack together: the browser session
// feeds the interceptor, the interceptor fills the store, the gate waits
// on the store, and the exporter drains the API once the store is ready.
type pipeline struct {
	cfg      *config.Config
	store    *session.Store
	broker   *progress.Broker
	gate     *session.Gate
	browser  *browser.Session
	exporter *export.Exporter
}

func buildPipeline(cfg *config.Config) (*pipeline, error) {
	log := logger.GetLogger()

	store := session.NewStore()
	broker := progress.NewBroker()
	interceptor := capture.NewInterceptor(store, cfg.Browser.TargetDomains, broker, log)

	var features map[string]bool
	if len(cfg.Export.Features) > 0 {
		features = cfg.Export.Features
	}
	client := twitter.NewClient(cfg.Export.RequestTimeout, features, log)

	manager, err := download.NewManager(cfg.Export.OutputDir, log)
	if err != nil {
		return nil, err
	}

	exporter := export.New(export.Options{
		Store:    store,
		Client:   client,
		Manager:  manager,
		Watcher:  download.NewWatcher(manager, cfg.Download.PollInterval, log),
		Broker:   broker,
		Limiter:  ratelimit.PerMinute(cfg.Export.RequestsPerMinute),
		MaxPages: cfg.Export.MaxPages,
		Logger:   log,
	})

	return &pipeline{
		cfg:      cfg,
		store:    store,
		broker:   broker,
		gate:     session.NewGate(store, cfg.Session.PollInterval, cfg.Session.MaxAttempts, broker, log),
		browser:  browser.NewSession(cfg.Browser, interceptor, log),
		exporter: exporter,
	}, nil
}
