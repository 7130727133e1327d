// Package capture extracts session credentials from observed browser
// traffic. The Bookmarks endpoint needs the cookie, CSRF token and
// bearer token the logged-in frontend sends, plus the GraphQL route id
// embedded in the request URL; the interceptor harvests all four from
// network events without ever touching stored passwords.
package capture

import (
	"net/url"
	"strings"
	"sync"

	"github.com/chromedp/cdproto/network"

	"xbookmarks/pkg/logger"
	"xbookmarks/pkg/progress"
	"xbookmarks/pkg/session"
	"xbookmarks/pkg/twitter"
)

const (
	headerCookie = "cookie"
	headerCSRF   = "x-csrf-token"
	headerAuth   = "authorization"
)

// Interceptor inspects outgoing requests and feeds captured session
// fields into the store. Values are written last-write-wins, so the
// freshest credentials always win.
type Interceptor struct {
	store   *session.Store
	domains []string
	broker  *progress.Broker
	logger  logger.Logger

	mu        sync.Mutex
	announced bool
}

// NewInterceptor creates an interceptor that only considers requests to
// the given domains (exact host or subdomain match).
func NewInterceptor(store *session.Store, domains []string, broker *progress.Broker, log logger.Logger) *Interceptor {
	if log == nil {
		log = logger.GetLogger()
	}
	if broker == nil {
		broker = progress.NewBroker()
	}
	return &Interceptor{
		store:   store,
		domains: domains,
		broker:  broker,
		logger:  log,
	}
}

// HandleRequest processes one request-will-be-sent event. Header names
// arrive with whatever casing the browser used, so the scan is
// case-insensitive. Secret values are never logged; only their presence
// is reported.
func (i *Interceptor) HandleRequest(ev *network.EventRequestWillBeSent) {
	if ev == nil || !i.matchesDomain(ev.Request.URL) {
		return
	}

	var gotCookie, gotCSRF, gotAuth bool
	for name, value := range ev.Request.Headers {
		text, ok := value.(string)
		if !ok || text == "" {
			continue
		}
		switch strings.ToLower(name) {
		case headerCookie:
			i.store.SetCookie(text)
			gotCookie = true
		case headerCSRF:
			i.store.SetCSRFToken(text)
			gotCSRF = true
		case headerAuth:
			i.store.SetAuthorization(text)
			gotAuth = true
		}
	}

	gotRouteID := false
	if routeID, ok := twitter.MatchBookmarksRoute(ev.Request.URL); ok {
		i.store.SetRouteID(routeID)
		gotRouteID = true
	}

	if gotCookie || gotCSRF || gotAuth || gotRouteID {
		i.logger.DebugWithFields("session fields observed", map[string]interface{}{
			"cookie":   gotCookie,
			"csrf":     gotCSRF,
			"auth":     gotAuth,
			"route_id": gotRouteID,
		})
		i.announceIfReady()
	}
}

// matchesDomain reports whether the request host is one of the target
// domains or a subdomain of one.
func (i *Interceptor) matchesDomain(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(parsed.Hostname())
	for _, domain := range i.domains {
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}

// announceIfReady publishes a single completion notice the first time
// every session field is present.
func (i *Interceptor) announceIfReady() {
	if !i.store.Ready() {
		return
	}

	i.mu.Lock()
	already := i.announced
	i.announced = true
	i.mu.Unlock()
	if already {
		return
	}

	i.broker.Publish("Session data captured, ready to export")
	i.logger.Info("session data complete")
}
