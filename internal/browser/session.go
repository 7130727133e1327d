// Package browser attaches to a running browser over the Chrome DevTools
// Protocol and streams its network events into the credential
// interceptor. The browser must be started with remote debugging enabled;
// this tool never launches or controls a browser the user is not already
// driving.
package browser

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"

	"xbookmarks/pkg/capture"
	"xbookmarks/pkg/config"
	"xbookmarks/pkg/errors"
	"xbookmarks/pkg/logger"
	"xbookmarks/pkg/retry"
)

// Session manages CDP connections to browser tabs.
type Session struct {
	cfg         config.BrowserConfig
	interceptor *capture.Interceptor
	logger      logger.Logger

	allocCtx    context.Context
	allocCancel context.CancelFunc

	mu   sync.Mutex
	tabs map[target.ID]context.CancelFunc
}

// NewSession creates a browser session for the given configuration.
func NewSession(cfg config.BrowserConfig, interceptor *capture.Interceptor, log logger.Logger) *Session {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Session{
		cfg:         cfg,
		interceptor: interceptor,
		logger:      log,
		tabs:        make(map[target.ID]context.CancelFunc),
	}
}

// Connect attaches to the browser's debugging endpoint and wires the
// interceptor into every matching page tab. The endpoint may not be up
// yet when the tool starts, so the probe retries with backoff.
func (s *Session) Connect(ctx context.Context) error {
	s.logger.InfoWithFields("connecting to browser", map[string]interface{}{
		"cdp_url": s.cfg.CDPURL,
	})

	s.allocCtx, s.allocCancel = chromedp.NewRemoteAllocator(context.Background(), s.cfg.CDPURL)

	err := retry.Do(func() error {
		probeCtx, cancel := context.WithTimeout(s.allocCtx, s.cfg.AttachTimeout)
		defer cancel()

		tempCtx, tempCancel := chromedp.NewContext(probeCtx)
		defer tempCancel()

		if err := chromedp.Run(tempCtx); err != nil {
			return &errors.Error{
				Type:    errors.ErrorTypeNetwork,
				Message: fmt.Sprintf("failed to connect to browser at %s: %v", s.cfg.CDPURL, err),
			}
		}
		return nil
	}, &retry.Config{
		MaxAttempts: s.cfg.AttachRetries,
		Backoff:     retry.DefaultExponentialBackoff(),
		RetryIf:     retry.DefaultRetryIf,
		Context:     ctx,
		Logger:      s.logger,
	})
	if err != nil {
		s.allocCancel()
		return err
	}

	if err := s.attachMatchingTabs(); err != nil {
		s.allocCancel()
		return err
	}

	if s.cfg.OpenBookmarks {
		if err := s.OpenBookmarksPage(ctx); err != nil {
			s.logger.WarnWithFields("failed to open bookmarks page", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	return nil
}

// attachMatchingTabs enumerates open page targets and attaches to the
// ones on a target domain.
func (s *Session) attachMatchingTabs() error {
	tempCtx, tempCancel := chromedp.NewContext(s.allocCtx)
	defer tempCancel()

	targets, err := chromedp.Targets(tempCtx)
	if err != nil {
		return &errors.Error{
			Type:    errors.ErrorTypeNetwork,
			Message: fmt.Sprintf("failed to enumerate browser targets: %v", err),
		}
	}

	s.logger.DebugWithFields("found browser targets", map[string]interface{}{
		"count": len(targets),
	})

	attached := 0
	for _, t := range targets {
		if t.Type != "page" {
			continue
		}
		if !s.matchesDomain(t.URL) {
			continue
		}
		if err := s.attach(t.TargetID, t.URL); err != nil {
			s.logger.ErrorWithFields("failed to attach to tab", map[string]interface{}{
				"target_id": string(t.TargetID),
				"url":       t.URL,
				"error":     err.Error(),
			})
			continue
		}
		attached++
	}

	s.logger.InfoWithFields("attached to tabs", map[string]interface{}{
		"count": attached,
	})
	return nil
}

// attach enables network events on one tab and forwards its requests to
// the interceptor.
func (s *Session) attach(targetID target.ID, pageURL string) error {
	tabCtx, tabCancel := chromedp.NewContext(s.allocCtx, chromedp.WithTargetID(targetID))

	if err := chromedp.Run(tabCtx, network.Enable()); err != nil {
		tabCancel()
		return fmt.Errorf("failed to enable network domain: %w", err)
	}

	s.listen(tabCtx)

	s.mu.Lock()
	s.tabs[targetID] = tabCancel
	s.mu.Unlock()

	s.logger.DebugWithFields("attached to tab", map[string]interface{}{
		"target_id": string(targetID),
		"url":       pageURL,
	})
	return nil
}

func (s *Session) listen(tabCtx context.Context) {
	chromedp.ListenTarget(tabCtx, func(ev interface{}) {
		if req, ok := ev.(*network.EventRequestWillBeSent); ok {
			s.interceptor.HandleRequest(req)
		}
	})
}

// OpenBookmarksPage opens the bookmarks timeline in a new tab. Loading
// the page makes the frontend issue a Bookmarks request, which is what
// the interceptor needs to learn the route id.
func (s *Session) OpenBookmarksPage(ctx context.Context) error {
	if s.allocCtx == nil {
		return &errors.Error{
			Type:    errors.ErrorTypeUnknown,
			Message: "not connected to a browser",
		}
	}

	tabCtx, tabCancel := chromedp.NewContext(s.allocCtx)

	if err := chromedp.Run(tabCtx, network.Enable()); err != nil {
		tabCancel()
		return fmt.Errorf("failed to enable network domain: %w", err)
	}
	s.listen(tabCtx)

	navCtx, navCancel := context.WithTimeout(tabCtx, s.cfg.AttachTimeout)
	defer navCancel()

	s.logger.InfoWithFields("opening bookmarks page", map[string]interface{}{
		"url": s.cfg.BookmarksPage,
	})
	if err := chromedp.Run(navCtx, chromedp.Navigate(s.cfg.BookmarksPage)); err != nil {
		tabCancel()
		return fmt.Errorf("failed to open bookmarks page: %w", err)
	}

	s.registerTab(tabCtx, tabCancel)
	return nil
}

// registerTab records a tab's cancel func so Close can detach it. A
// context that never resolved a target has nothing to detach, so its
// cancel runs immediately instead of leaking.
func (s *Session) registerTab(tabCtx context.Context, tabCancel context.CancelFunc) {
	c := chromedp.FromContext(tabCtx)
	if c == nil || c.Target == nil {
		tabCancel()
		return
	}
	s.mu.Lock()
	s.tabs[c.Target.TargetID] = tabCancel
	s.mu.Unlock()
}

// matchesDomain reports whether the tab URL belongs to a target domain.
func (s *Session) matchesDomain(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(parsed.Hostname())
	for _, domain := range s.cfg.TargetDomains {
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}

// Close detaches from all tabs and tears down the allocator.
func (s *Session) Close() {
	s.mu.Lock()
	for id, cancel := range s.tabs {
		cancel()
		delete(s.tabs, id)
	}
	s.mu.Unlock()

	if s.allocCancel != nil {
		s.allocCancel()
	}
}
