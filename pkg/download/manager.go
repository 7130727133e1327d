package download

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"xbookmarks/pkg/logger"
)

// State is the lifecycle state of a single download.
type State string

const (
	StateInProgress  State = "in_progress"
	StateComplete    State = "complete"
	StateInterrupted State = "interrupted"
)

// Item is a point-in-time snapshot of one download.
type Item struct {
	ID       int
	Filename string
	State    State
	// Reason is set only for interrupted downloads.
	Reason string
}

type download struct {
	item     Item
	payload  []byte
	released bool
}

// Manager owns the download lifecycle: it assigns IDs, writes payloads to
// the output directory in the background, and serves state snapshots.
type Manager struct {
	outputDir string
	logger    logger.Logger

	mu        sync.Mutex
	nextID    int
	downloads map[int]*download
}

// NewManager creates a download manager rooted at outputDir. The
// directory is created if it does not exist.
func NewManager(outputDir string, log logger.Logger) (*Manager, error) {
	if log == nil {
		log = logger.GetLogger()
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &Manager{
		outputDir: outputDir,
		logger:    log,
		nextID:    1,
		downloads: make(map[int]*download),
	}, nil
}

// OutputDir returns the directory downloads are written to.
func (m *Manager) OutputDir() string {
	return m.outputDir
}

// Start begins writing payload to filename under the output directory and
// returns the download's ID immediately. The write happens in the
// background; observe its outcome through Search or a Watcher.
func (m *Manager) Start(filename string, payload []byte) int {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.downloads[id] = &download{
		item:    Item{ID: id, Filename: filename, State: StateInProgress},
		payload: payload,
	}
	m.mu.Unlock()

	m.logger.DebugWithFields("download started", map[string]interface{}{
		"download_id": id,
		"filename":    filename,
		"bytes":       len(payload),
	})

	go m.write(id, filename, payload)
	return id
}

// write persists the payload via a temp file and atomic rename, so a
// failed write never leaves a partial export behind.
func (m *Manager) write(id int, filename string, payload []byte) {
	target := filepath.Join(m.outputDir, filename)
	tempFile := target + ".tmp"

	err := func() error {
		out, err := os.Create(tempFile)
		if err != nil {
			return fmt.Errorf("failed to create temporary file: %w", err)
		}

		_, err = out.Write(payload)
		closeErr := out.Close()

		if err != nil {
			os.Remove(tempFile)
			return fmt.Errorf("failed to write export data: %w", err)
		}
		if closeErr != nil {
			os.Remove(tempFile)
			return fmt.Errorf("failed to close file: %w", closeErr)
		}

		if err := os.Rename(tempFile, target); err != nil {
			os.Remove(tempFile)
			return fmt.Errorf("failed to rename temporary file: %w", err)
		}
		return nil
	}()

	m.mu.Lock()
	d, ok := m.downloads[id]
	if ok {
		if err != nil {
			d.item.State = StateInterrupted
			d.item.Reason = err.Error()
		} else {
			d.item.State = StateComplete
		}
	}
	m.mu.Unlock()

	if err != nil {
		m.logger.ErrorWithFields("download interrupted", map[string]interface{}{
			"download_id": id,
			"filename":    filename,
			"error":       err.Error(),
		})
		return
	}
	m.logger.DebugWithFields("download complete", map[string]interface{}{
		"download_id": id,
		"filename":    filename,
	})
}

// Search returns the current snapshot of the download with the given ID.
// The second return is false when the ID is unknown or already released.
func (m *Manager) Search(id int) (Item, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, ok := m.downloads[id]
	if !ok || d.released {
		return Item{}, false
	}
	return d.item, true
}

// Release drops the payload held for the download and removes it from
// the manager. Safe to call more than once.
func (m *Manager) Release(id int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, ok := m.downloads[id]
	if !ok || d.released {
		return
	}
	d.released = true
	d.payload = nil
	delete(m.downloads, id)
}
