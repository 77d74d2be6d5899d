package fieldregistry

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// Watcher reloads a registry when its schema file changes on disk. A file
// that is missing or fails to load leaves the previous contents in place.
type Watcher struct {
	registry *Registry
	path     string
	debounce time.Duration
	watcher  *fsnotify.Watcher
	logger   *logrus.Entry
}

// NewWatcher watches path and reloads r on change. The parent directory is
// watched so editors that replace the file by rename are seen too.
func NewWatcher(r *Registry, path string, debounce time.Duration, logger *logrus.Entry) (*Watcher, error) {
	if _, err := FormatFor(path); err != nil {
		return nil, err
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("fieldregistry: create watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(path)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("fieldregistry: watch %s: %w", path, err)
	}
	return &Watcher{
		registry: r,
		path:     filepath.Clean(path),
		debounce: debounce,
		watcher:  fw,
		logger:   logger.WithField("component", "fieldregistry_watcher"),
	}, nil
}

// Run processes file events until ctx is done, then closes the watcher.
func (w *Watcher) Run(ctx context.Context) {
	defer w.watcher.Close()

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Rename) {
				continue
			}
			// Editors write in bursts; reload once things settle.
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			w.reload()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.WithError(err).Warn("Field schema watcher error")
		}
	}
}

func (w *Watcher) reload() {
	if _, err := os.Stat(w.path); err != nil {
		w.logger.WithError(err).Warn("Field schema file unavailable, keeping previous schema")
		return
	}
	fresh, err := LoadFile(w.path)
	if err != nil {
		w.logger.WithError(err).Error("Keeping previous field schema")
		return
	}
	w.registry.replaceWith(fresh)
	w.logger.WithField("fields", len(w.registry.Fields())).Info("Field schema reloaded")
}
