package config

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/turnline/turnline/internal/obslog"
)

// Watcher delivers a freshly reloaded Config each time config.yaml
// changes on disk, generalizing the teacher's fsnotify usage in
// internal/indexer (there watching source trees; here watching one file).
type Watcher struct {
	mgr *Manager
	fsw *fsnotify.Watcher
	ch  chan *Config
}

// Watch starts watching the config file's directory (fsnotify watches
// directories, not individual files reliably across editors that
// write-then-rename) and pushes a reloaded Config on every write/create
// event naming config.yaml. The returned Watcher must be Closed by the
// caller; Watch also stops on ctx cancellation.
func (m *Manager) Watch(ctx context.Context) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(m.configDir); err != nil {
		fsw.Close()
		return nil, err
	}

	w := &Watcher{mgr: m, fsw: fsw, ch: make(chan *Config, 1)}
	target := m.GetConfigPath()

	go func() {
		defer close(w.ch)
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-fsw.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				cfg, err := m.Load()
				if err != nil {
					obslog.Error("config hot-reload failed to parse changed file", err)
					continue
				}
				select {
				case w.ch <- cfg:
				default:
					// drop the stale pending reload, keep the newest
					select {
					case <-w.ch:
					default:
					}
					w.ch <- cfg
				}
			case err, ok := <-fsw.Errors:
				if !ok {
					return
				}
				obslog.Error("config watcher error", err)
			}
		}
	}()

	return w, nil
}

// Changes returns the channel of reloaded configs. It closes when the
// watcher's context is cancelled or Close is called.
func (w *Watcher) Changes() <-chan *Config { return w.ch }

// Close stops the underlying fsnotify watcher.
func (w *Watcher) Close() error { return w.fsw.Close() }
