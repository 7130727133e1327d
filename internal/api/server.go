// Package api exposes a small local control surface over HTTP: trigger
// an export, inspect session state, and follow progress as a server-sent
// event stream.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"xbookmarks/pkg/export"
	"xbookmarks/pkg/logger"
	"xbookmarks/pkg/progress"
	"xbookmarks/pkg/session"
)

// Runner executes one export end to end.
type Runner interface {
	Run(ctx context.Context) (*export.Result, error)
}

// Server is the local control API. One export runs at a time; a trigger
// while one is in flight is rejected.
type Server struct {
	store  *session.Store
	broker *progress.Broker
	runner Runner
	logger logger.Logger

	mu         sync.Mutex
	exporting  bool
	lastResult *export.Result
	lastError  string
}

// NewServer creates the control API server.
func NewServer(store *session.Store, broker *progress.Broker, runner Runner, log logger.Logger) *Server {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Server{
		store:  store,
		broker: broker,
		runner: runner,
		logger: log,
	}
}

// Routes builds the HTTP handler.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Post("/export", s.handleExport)
	r.Get("/status", s.handleStatus)
	r.Get("/events", s.handleEvents)

	return r
}

// handleExport acknowledges the trigger immediately and runs the export
// in the background; progress flows through the event stream.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	if s.exporting {
		s.mu.Unlock()
		writeJSON(w, http.StatusConflict, map[string]string{"status": "busy"})
		return
	}
	s.exporting = true
	s.mu.Unlock()

	go s.runExport()

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}

func (s *Server) runExport() {
	// The trigger request's context dies with the response; the export
	// outlives it.
	result, err := s.runner.Run(context.Background())

	s.mu.Lock()
	s.exporting = false
	if err != nil {
		s.lastError = err.Error()
		s.lastResult = nil
	} else {
		s.lastError = ""
		s.lastResult = result
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.ErrorWithFields("export failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

type statusResponse struct {
	SessionComplete bool           `json:"session_complete"`
	Session         string         `json:"session"`
	Missing         []string       `json:"missing"`
	Exporting       bool           `json:"exporting"`
	LastResult      *resultPayload `json:"last_result,omitempty"`
	LastError       string         `json:"last_error,omitempty"`
}

type resultPayload struct {
	Filename string `json:"filename"`
	Records  int    `json:"records"`
	Pages    int    `json:"pages"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	missing := s.store.Missing()
	if missing == nil {
		missing = []string{}
	}

	s.mu.Lock()
	resp := statusResponse{
		SessionComplete: len(missing) == 0,
		Session:         s.store.Describe(),
		Missing:         missing,
		Exporting:       s.exporting,
		LastError:       s.lastError,
	}
	if s.lastResult != nil {
		resp.LastResult = &resultPayload{
			Filename: s.lastResult.Filename,
			Records:  s.lastResult.Records,
			Pages:    s.lastResult.Pages,
		}
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, resp)
}

// handleEvents streams progress as server-sent events. Recent history is
// replayed first so a client that connects mid-export still sees how it
// got here.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	id, events := s.broker.Subscribe()
	defer s.broker.Unsubscribe(id)

	for _, ev := range s.broker.History() {
		writeEvent(w, ev)
	}
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			writeEvent(w, ev)
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, ev progress.Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", payload)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
