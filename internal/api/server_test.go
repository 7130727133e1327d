package api

import (
	"bufio"
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xbookmarks/pkg/download"
	"xbookmarks/pkg/export"
	"xbookmarks/pkg/logger"
	"xbookmarks/pkg/progress"
	"xbookmarks/pkg/session"
	"xbookmarks/pkg/twitter"
)

type stubRunner struct {
	block   chan struct{}
	result  *export.Result
	err     error
	started chan struct{}
}

func (r *stubRunner) Run(ctx context.Context) (*export.Result, error) {
	if r.started != nil {
		close(r.started)
	}
	if r.block != nil {
		<-r.block
	}
	return r.result, r.err
}

func newTestServer(runner Runner) (*Server, *progress.Broker, *session.Store) {
	store := session.NewStore()
	broker := progress.NewBroker()
	return NewServer(store, broker, runner, logger.NewTestLogger()), broker, store
}

func waitForIdle(t *testing.T, s *Server) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		s.mu.Lock()
		exporting := s.exporting
		s.mu.Unlock()
		if !exporting {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("export never finished")
}

func TestExportTriggerAcknowledges(t *testing.T) {
	runner := &stubRunner{result: &export.Result{Filename: "bookmarks_1.json", Records: 5, Pages: 1}}
	s, _, _ := newTestServer(runner)
	ts := httptest.NewServer(s.Routes())
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/export", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "started", body["status"])

	waitForIdle(t, s)
}

func TestExportBusyRejected(t *testing.T) {
	runner := &stubRunner{
		block:   make(chan struct{}),
		started: make(chan struct{}),
		result:  &export.Result{},
	}
	s, _, _ := newTestServer(runner)
	ts := httptest.NewServer(s.Routes())
	defer ts.Close()

	first, err := http.Post(ts.URL+"/export", "application/json", nil)
	require.NoError(t, err)
	first.Body.Close()
	require.Equal(t, http.StatusAccepted, first.StatusCode)

	<-runner.started

	second, err := http.Post(ts.URL+"/export", "application/json", nil)
	require.NoError(t, err)
	defer second.Body.Close()
	assert.Equal(t, http.StatusConflict, second.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(second.Body).Decode(&body))
	assert.Equal(t, "busy", body["status"])

	close(runner.block)
	waitForIdle(t, s)
}

func TestStatusReportsSessionAndResult(t *testing.T) {
	runner := &stubRunner{result: &export.Result{Filename: "bookmarks_9.json", Records: 9, Pages: 1}}
	s, _, store := newTestServer(runner)
	ts := httptest.NewServer(s.Routes())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/status")
	require.NoError(t, err)
	var status statusResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	resp.Body.Close()

	assert.False(t, status.SessionComplete)
	assert.Equal(t, "waiting for: cookie, csrf, auth, bookmarksApiId", status.Session)
	assert.Equal(t, []string{session.FieldCookie, session.FieldCSRF, session.FieldAuth, session.FieldRouteID}, status.Missing)
	assert.False(t, status.Exporting)
	assert.Nil(t, status.LastResult)

	store.SetCookie("auth_token=abc")
	store.SetCSRFToken("def")
	store.SetAuthorization("Bearer token")
	store.SetRouteID("route123")

	trigger, err := http.Post(ts.URL+"/export", "application/json", nil)
	require.NoError(t, err)
	trigger.Body.Close()
	waitForIdle(t, s)

	resp, err = http.Get(ts.URL + "/status")
	require.NoError(t, err)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	resp.Body.Close()

	assert.True(t, status.SessionComplete)
	assert.Equal(t, "session complete", status.Session)
	assert.Empty(t, status.Missing)
	require.NotNil(t, status.LastResult)
	assert.Equal(t, "bookmarks_9.json", status.LastResult.Filename)
	assert.Equal(t, 9, status.LastResult.Records)
	assert.Empty(t, status.LastError)
}

func TestStatusReportsLastError(t *testing.T) {
	runner := &stubRunner{err: stderrors.New("bookmarks API request failed with status 401")}
	s, _, _ := newTestServer(runner)
	ts := httptest.NewServer(s.Routes())
	defer ts.Close()

	trigger, err := http.Post(ts.URL+"/export", "application/json", nil)
	require.NoError(t, err)
	trigger.Body.Close()
	waitForIdle(t, s)

	resp, err := http.Get(ts.URL + "/status")
	require.NoError(t, err)
	defer resp.Body.Close()

	var status statusResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	assert.Nil(t, status.LastResult)
	assert.Contains(t, status.LastError, "status 401")
}

// A trigger that lands before the interceptor has finished capturing
// must wait on the session gate, not fail outright.
func TestExportTriggerWaitsForCapture(t *testing.T) {
	page := twitter.BookmarksResponse{
		Data: twitter.Data{
			BookmarkTimelineV2: twitter.BookmarkTimelineV2{
				Timeline: twitter.Timeline{
					Instructions: []twitter.Instruction{{Entries: []twitter.Entry{
						{
							EntryID: "tweet-1",
							Content: twitter.EntryContent{
								ItemContent: &twitter.ItemContent{
									TweetResults: twitter.TweetResults{
										Result: &twitter.TweetResult{
											Legacy: &twitter.TweetLegacy{FullText: "one"},
										},
									},
								},
							},
						},
					}}},
				},
			},
		},
	}
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(page)
	}))
	defer upstream.Close()

	store := session.NewStore()
	broker := progress.NewBroker()
	log := logger.NewTestLogger()

	client := twitter.NewClient(time.Second, nil, log)
	client.SetBaseURL(upstream.URL)
	manager, err := download.NewManager(t.TempDir(), log)
	require.NoError(t, err)

	exporter := export.New(export.Options{
		Store:   store,
		Client:  client,
		Manager: manager,
		Watcher: download.NewWatcher(manager, 5*time.Millisecond, log),
		Broker:  broker,
		Logger:  log,
	})
	gate := session.NewGate(store, time.Millisecond, 2000, broker, log)

	s := NewServer(store, broker, export.NewGated(gate, exporter), log)
	ts := httptest.NewServer(s.Routes())
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/export", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	// Capture completes only after the trigger was acknowledged.
	time.Sleep(30 * time.Millisecond)
	store.SetCookie("auth_token=abc")
	store.SetCSRFToken("def")
	store.SetAuthorization("Bearer token")
	store.SetRouteID("route123")

	waitForIdle(t, s)

	statusResp, err := http.Get(ts.URL + "/status")
	require.NoError(t, err)
	defer statusResp.Body.Close()

	var status statusResponse
	require.NoError(t, json.NewDecoder(statusResp.Body).Decode(&status))
	assert.Empty(t, status.LastError)
	require.NotNil(t, status.LastResult)
	assert.Equal(t, 1, status.LastResult.Records)
}

func TestEventsReplaysHistoryAndStreams(t *testing.T) {
	runner := &stubRunner{result: &export.Result{}}
	s, broker, _ := newTestServer(runner)
	ts := httptest.NewServer(s.Routes())
	defer ts.Close()

	broker.Publish("Starting bookmark export...")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	readEvent := func() progress.Event {
		for {
			line, err := reader.ReadString('\n')
			require.NoError(t, err)
			line = strings.TrimSpace(line)
			if !strings.HasPrefix(line, "data: ") {
				continue
			}
			var ev progress.Event
			require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev))
			return ev
		}
	}

	assert.Equal(t, "Starting bookmark export...", readEvent().Message)

	broker.Publish("Fetched 20 bookmarks so far...")
	assert.Equal(t, "Fetched 20 bookmarks so far...", readEvent().Message)
}
