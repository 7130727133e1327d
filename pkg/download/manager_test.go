package download

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xbookmarks/pkg/logger"
)

func waitForState(t *testing.T, m *Manager, id int, want State) Item {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		item, ok := m.Search(id)
		require.True(t, ok, "download %d disappeared", id)
		if item.State == want {
			return item
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("download %d never reached state %s", id, want)
	return Item{}
}

func TestManagerWritesFile(t *testing.T) {
	dir := t.TempDir()
	m, err := NewManager(dir, logger.NewTestLogger())
	require.NoError(t, err)

	payload := []byte(`[{"id":"tweet-1"}]`)
	id := m.Start("bookmarks_1234.json", payload)
	assert.Greater(t, id, 0)

	item := waitForState(t, m, id, StateComplete)
	assert.Equal(t, "bookmarks_1234.json", item.Filename)
	assert.Empty(t, item.Reason)

	written, err := os.ReadFile(filepath.Join(dir, "bookmarks_1234.json"))
	require.NoError(t, err)
	assert.Equal(t, payload, written)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp file should remain")
}

func TestManagerAssignsDistinctIDs(t *testing.T) {
	m, err := NewManager(t.TempDir(), logger.NewTestLogger())
	require.NoError(t, err)

	a := m.Start("a.json", []byte("{}"))
	b := m.Start("b.json", []byte("{}"))
	assert.NotEqual(t, a, b)
}

func TestManagerInterruptedOnWriteFailure(t *testing.T) {
	dir := t.TempDir()
	m, err := NewManager(dir, logger.NewTestLogger())
	require.NoError(t, err)

	// Occupy the target path with a directory so the rename fails.
	require.NoError(t, os.Mkdir(filepath.Join(dir, "bookmarks_1.json"), 0755))

	id := m.Start("bookmarks_1.json", []byte("{}"))
	item := waitForState(t, m, id, StateInterrupted)
	assert.NotEmpty(t, item.Reason)

	_, err = os.Stat(filepath.Join(dir, "bookmarks_1.json.tmp"))
	assert.True(t, os.IsNotExist(err), "temp file should be cleaned up")
}

func TestManagerReleaseIdempotent(t *testing.T) {
	m, err := NewManager(t.TempDir(), logger.NewTestLogger())
	require.NoError(t, err)

	id := m.Start("a.json", []byte("{}"))
	waitForState(t, m, id, StateComplete)

	m.Release(id)
	m.Release(id)

	_, ok := m.Search(id)
	assert.False(t, ok)
}

func TestManagerSearchUnknownID(t *testing.T) {
	m, err := NewManager(t.TempDir(), logger.NewTestLogger())
	require.NoError(t, err)

	_, ok := m.Search(42)
	assert.False(t, ok)
}
