package file

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Monitor watches the processed-data directories and fires a handler when a
// new per-year parquet file finishes landing. One event per file: writes are
// deduplicated by modification time.
type Monitor struct {
	watcher *fsnotify.Watcher
	lastMod map[string]time.Time
	mu      sync.Mutex
}

func NewMonitor(dirs ...string) (*Monitor, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	for _, dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			watcher.Close()
			return nil, err
		}
	}
	return &Monitor{
		watcher: watcher,
		lastMod: make(map[string]time.Time),
	}, nil
}

func (m *Monitor) Close() error {
	return m.watcher.Close()
}

// Watch blocks until ctx is cancelled or the watcher fails, invoking handler
// for each new or rewritten .parquet file.
func (m *Monitor) Watch(ctx context.Context, handler func(string)) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-m.watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if !strings.EqualFold(filepath.Ext(event.Name), ".parquet") {
				continue
			}
			info, err := os.Stat(event.Name)
			if err != nil {
				continue
			}

			m.mu.Lock()
			seen, have := m.lastMod[event.Name]
			if !have || info.ModTime().After(seen) {
				m.lastMod[event.Name] = info.ModTime()
				go handler(event.Name)
			}
			m.mu.Unlock()
		case err, ok := <-m.watcher.Errors:
			if !ok {
				return nil
			}
			return err
		}
	}
}
