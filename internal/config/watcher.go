package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads a Store whenever a YAML file below its directory changes.
type Watcher struct {
	mu         sync.Mutex
	watcher    *fsnotify.Watcher
	store      *Store
	logger     *slog.Logger
	reloadChan chan struct{}
	done       chan struct{}
}

// StartWatcher initializes and starts the configuration watcher
func StartWatcher(store *Store, logger *slog.Logger) (*Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	cw := &Watcher{
		watcher:    watcher,
		store:      store,
		logger:     logger,
		reloadChan: make(chan struct{}, 1),
		done:       make(chan struct{}),
	}

	// Watch the config directory and its subdirectories
	if err := filepath.Walk(store.Dir(), func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return watcher.Add(path)
		}
		return nil
	}); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch config directory: %w", err)
	}

	go cw.watch(watcher)
	return cw, nil
}

// ReloadChan returns a channel that receives notifications when configs are reloaded
func (cw *Watcher) ReloadChan() <-chan struct{} {
	return cw.reloadChan
}

func (cw *Watcher) watch(w *fsnotify.Watcher) {
	defer close(cw.done)
	for {
		select {
		case event, ok := <-w.Events:
			if !ok {
				return
			}

			// Skip temporary files and non-yaml files
			if strings.HasPrefix(filepath.Base(event.Name), ".") || !strings.HasSuffix(event.Name, ".yaml") {
				continue
			}

			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Remove) {
				cw.handleConfigChange(event.Name)
			}

		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			cw.logger.Error("watcher error", "error", err)
		}
	}
}

func (cw *Watcher) handleConfigChange(path string) {
	cw.logger.Info("detected configuration change", "path", path)

	if err := cw.store.Reload(); err != nil {
		cw.logger.Error("failed to reload configurations",
			"error", err,
			"path", path,
		)
		return
	}

	cw.logger.Info("configurations reloaded successfully")

	select {
	case cw.reloadChan <- struct{}{}:
	default:
		// a reload is already pending
	}
}

// Stop stops the configuration watcher
func (cw *Watcher) Stop() error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	if cw.watcher == nil {
		return nil
	}
	if err := cw.watcher.Close(); err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}
	cw.watcher = nil
	<-cw.done
	close(cw.reloadChan)
	return nil
}
