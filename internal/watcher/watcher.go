// Package watcher adapts fsnotify into a stream of models.FileEvent for a
// single, non-recursive directory.
package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/aleister1102/imgsync/internal/common"
	"github.com/aleister1102/imgsync/internal/config"
	"github.com/aleister1102/imgsync/internal/models"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

const eventBuffer = 64

// Watcher emits debounced file events for one directory
type Watcher struct {
	dir      string
	patterns []string
	cfg      config.WatchConfig
	fsw      *fsnotify.Watcher
	events   chan models.FileEvent
	done     chan struct{}
	wg       sync.WaitGroup
	once     sync.Once
	dirs     map[string]struct{}
	logger   zerolog.Logger
}

// New creates a watcher for dir. Patterns are matched case-insensitively
// against base names; directories are always reported.
func New(dir string, cfg config.WatchConfig, logger zerolog.Logger) (*Watcher, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, common.NewLocalResourceError("watch", dir, err)
	}
	if !info.IsDir() {
		return nil, common.NewConfigurationError("sftp", "local_path", dir+" is not a directory")
	}

	patterns := make([]string, 0, len(cfg.Patterns))
	for _, p := range cfg.Patterns {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		if _, err := filepath.Match(p, ""); err != nil {
			return nil, common.NewConfigurationError("watch", "patterns", "invalid pattern "+p)
		}
		patterns = append(patterns, p)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, common.WrapError(err, "fsnotify.NewWatcher")
	}

	return &Watcher{
		dir:      filepath.Clean(dir),
		patterns: patterns,
		cfg:      cfg,
		fsw:      fsw,
		events:   make(chan models.FileEvent, eventBuffer),
		done:     make(chan struct{}),
		dirs:     make(map[string]struct{}),
		logger:   logger.With().Str("module", "watcher").Str("dir", dir).Logger(),
	}, nil
}

// Events is closed once the watcher stops
func (w *Watcher) Events() <-chan models.FileEvent {
	return w.events
}

// Start begins watching. The loop stops when ctx is cancelled or Close is called.
func (w *Watcher) Start(ctx context.Context) error {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return common.NewLocalResourceError("watch", w.dir, err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			w.dirs[filepath.Join(w.dir, entry.Name())] = struct{}{}
		}
	}

	if err := w.fsw.Add(w.dir); err != nil {
		return common.WrapErrorf(err, "watch directory %s", w.dir)
	}

	w.wg.Add(1)
	go w.loop(ctx)

	w.logger.Info().Int("patterns", len(w.patterns)).Dur("debounce", w.cfg.Debounce()).Msg("Watching directory")
	return nil
}

// Close stops the loop, waits for it and releases the fsnotify watcher
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		w.wg.Wait()
		err = w.fsw.Close()
	})
	return err
}

// Matches reports whether name passes the include patterns
func (w *Watcher) Matches(name string) bool {
	if len(w.patterns) == 0 {
		return true
	}
	base := strings.ToLower(filepath.Base(name))
	for _, p := range w.patterns {
		if ok, _ := filepath.Match(p, base); ok {
			return true
		}
	}
	return false
}

func (w *Watcher) loop(ctx context.Context) {
	defer w.wg.Done()
	defer close(w.events)

	queue := newEventQueue(w.cfg.Debounce(), w.cfg.MoveWindow())
	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logStop(queue)
			return
		case <-w.done:
			w.logStop(queue)
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(queue, event, time.Now())
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn().Err(err).Msg("fsnotify watcher error")
		case <-timer.C:
		}

		if !w.flush(ctx, queue, time.Now()) {
			return
		}
		if at, ok := queue.next(); ok {
			timer.Reset(max(time.Until(at), 0))
		}
	}
}

func (w *Watcher) handle(queue *eventQueue, event fsnotify.Event, now time.Time) {
	name := filepath.Clean(event.Name)
	if filepath.Dir(name) != w.dir {
		return
	}

	switch {
	case event.Has(fsnotify.Create):
		info, err := os.Stat(name)
		if err == nil && info.IsDir() {
			w.dirs[name] = struct{}{}
			queue.push(models.FileEvent{Kind: models.EventCreated, SrcPath: name, IsDirectory: true}, now)
			return
		}
		if w.Matches(name) {
			queue.created(name, now)
		}
	case event.Has(fsnotify.Write):
		if w.Matches(name) {
			queue.touch(name, models.EventModified, now)
		}
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		if _, ok := w.dirs[name]; ok {
			delete(w.dirs, name)
			queue.push(models.FileEvent{Kind: models.EventDeleted, SrcPath: name, IsDirectory: true}, now)
			return
		}
		if !w.Matches(name) {
			return
		}
		if event.Has(fsnotify.Rename) {
			queue.renamed(name, now)
		} else {
			queue.removed(name, now)
		}
	}
}

// flush delivers ready events. It returns false when the watcher is stopping.
func (w *Watcher) flush(ctx context.Context, queue *eventQueue, now time.Time) bool {
	for _, ev := range queue.ready(now) {
		w.logger.Debug().Str("event", ev.String()).Msg("File event")
		select {
		case w.events <- ev:
		case <-ctx.Done():
			return false
		case <-w.done:
			return false
		}
	}
	return true
}

func (w *Watcher) logStop(queue *eventQueue) {
	w.logger.Info().Int("dropped_pending", queue.Len()).Msg("Watcher stopped")
}
