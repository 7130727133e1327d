package session

import (
	"fmt"
	"strings"
	"sync"
)

// Field names reported in gate diagnostics. They match what the user sees
// in timeout messages, so "which of these is missing" maps directly to a
// remediation ("log in" vs "open the bookmarks page").
const (
	FieldCookie  = "cookie"
	FieldCSRF    = "csrf"
	FieldAuth    = "auth"
	FieldRouteID = "bookmarksApiId"
)

// Credentials is a snapshot of the authentication material captured off
// the wire. Empty strings mean "not yet observed".
type Credentials struct {
	Cookie        string
	CSRFToken     string
	Authorization string
}

// Store holds the ephemeral session state shared between the credential
// interceptor (writer) and the gate/exporter (readers). Every field is
// set atomically and independently; a write never clears another field.
type Store struct {
	mu      sync.RWMutex
	creds   Credentials
	routeID string
}

// NewStore creates an empty session store.
func NewStore() *Store {
	return &Store{}
}

// SetCookie records an observed Cookie header value. Empty values are ignored.
func (s *Store) SetCookie(v string) {
	if v == "" {
		return
	}
	s.mu.Lock()
	s.creds.Cookie = v
	s.mu.Unlock()
}

// SetCSRFToken records an observed X-Csrf-Token header value. Empty values are ignored.
func (s *Store) SetCSRFToken(v string) {
	if v == "" {
		return
	}
	s.mu.Lock()
	s.creds.CSRFToken = v
	s.mu.Unlock()
}

// SetAuthorization records an observed Authorization header value. Empty values are ignored.
func (s *Store) SetAuthorization(v string) {
	if v == "" {
		return
	}
	s.mu.Lock()
	s.creds.Authorization = v
	s.mu.Unlock()
}

// SetRouteID records the Bookmarks GraphQL route id discovered from a
// request URL. Repeated writes of the same id are harmless.
func (s *Store) SetRouteID(v string) {
	if v == "" {
		return
	}
	s.mu.Lock()
	s.routeID = v
	s.mu.Unlock()
}

// Credentials returns a snapshot of the captured credentials.
func (s *Store) Credentials() Credentials {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.creds
}

// RouteID returns the captured Bookmarks route id, or empty if not yet seen.
func (s *Store) RouteID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.routeID
}

// Missing returns the names of required fields that have not been
// captured yet, in a stable order.
func (s *Store) Missing() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var missing []string
	if s.creds.Cookie == "" {
		missing = append(missing, FieldCookie)
	}
	if s.creds.CSRFToken == "" {
		missing = append(missing, FieldCSRF)
	}
	if s.creds.Authorization == "" {
		missing = append(missing, FieldAuth)
	}
	if s.routeID == "" {
		missing = append(missing, FieldRouteID)
	}
	return missing
}

// Ready reports whether all four required values have been captured.
func (s *Store) Ready() bool {
	return len(s.Missing()) == 0
}

// Describe summarizes capture state without exposing secret values.
func (s *Store) Describe() string {
	missing := s.Missing()
	if len(missing) == 0 {
		return "session complete"
	}
	return fmt.Sprintf("waiting for: %s", strings.Join(missing, ", "))
}
