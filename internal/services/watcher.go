package services

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"score-viewer/internal/logger"
	"score-viewer/internal/models"
)

// ScoreWatcher reloads the index when the layout or timestamp file changes.
type ScoreWatcher struct {
	service  *ScoreService
	watcher  *fsnotify.Watcher
	debounce time.Duration
	onReload func(*models.ScoreDocument)
	logger   logger.Logger

	files map[string]struct{}

	mu    sync.Mutex
	timer *time.Timer
}

// NewScoreWatcher watches the data files of the open document. The parent
// directories are watched so editors that replace files are noticed.
func NewScoreWatcher(service *ScoreService, debounce time.Duration, onReload func(*models.ScoreDocument), log logger.Logger) (*ScoreWatcher, error) {
	doc := service.Document()
	if doc == nil {
		return nil, fmt.Errorf("no score open")
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	sw := &ScoreWatcher{
		service:  service,
		watcher:  w,
		debounce: debounce,
		onReload: onReload,
		logger:   log,
		files:    make(map[string]struct{}),
	}

	dirs := make(map[string]struct{})
	for _, path := range []string{doc.Files.Layout, doc.Files.Timestamps} {
		abs, err := filepath.Abs(path)
		if err != nil {
			w.Close()
			return nil, err
		}
		sw.files[abs] = struct{}{}
		dirs[filepath.Dir(abs)] = struct{}{}
	}
	for dir := range dirs {
		if err := w.Add(dir); err != nil {
			w.Close()
			return nil, fmt.Errorf("watch %s: %w", dir, err)
		}
	}
	return sw, nil
}

// Run handles events until ctx is done or the watcher is closed.
func (sw *ScoreWatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			sw.stopTimer()
			return
		case ev, ok := <-sw.watcher.Events:
			if !ok {
				return
			}
			if !sw.relevant(ev) {
				continue
			}
			sw.logger.Debug("score file changed", map[string]interface{}{
				"path": ev.Name,
				"op":   ev.Op.String(),
			})
			sw.schedule()
		case err, ok := <-sw.watcher.Errors:
			if !ok {
				return
			}
			sw.logger.Error("file watcher error", err, nil)
		}
	}
}

func (sw *ScoreWatcher) relevant(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
		return false
	}
	abs, err := filepath.Abs(ev.Name)
	if err != nil {
		return false
	}
	_, ok := sw.files[abs]
	return ok
}

func (sw *ScoreWatcher) schedule() {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	if sw.timer != nil {
		sw.timer.Stop()
	}
	sw.timer = time.AfterFunc(sw.debounce, sw.reload)
}

func (sw *ScoreWatcher) stopTimer() {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	if sw.timer != nil {
		sw.timer.Stop()
	}
}

func (sw *ScoreWatcher) reload() {
	doc, err := sw.service.Reload()
	if err != nil {
		sw.logger.Error("reload failed, keeping previous index", err, nil)
		return
	}
	if sw.onReload != nil {
		sw.onReload(doc)
	}
}

// Close stops watching.
func (sw *ScoreWatcher) Close() error {
	sw.stopTimer()
	return sw.watcher.Close()
}

// Shutdown lets the watcher be registered with the shutdown manager.
func (sw *ScoreWatcher) Shutdown() {
	if err := sw.Close(); err != nil {
		sw.logger.Error("close watcher", err, nil)
	}
}
