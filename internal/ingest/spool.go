package ingest

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const defaultDebounce = 400 * time.Millisecond

// Spool watches a directory for dropped .json bundle files and loads them.
// Loaded files are renamed with a .done suffix so a restart does not replay
// them; files that fail to load keep their name for inspection.
type Spool struct {
	dir         string
	loader      *Loader
	debounce    time.Duration
	watcher     *fsnotify.Watcher
	mu          sync.Mutex
	debounceMap map[string]*time.Timer
	done        chan struct{}
	started     bool
	stopOnce    sync.Once
	logger      *zap.Logger
}

// SpoolOption configures a Spool.
type SpoolOption func(*Spool)

// WithLogger sets a logger for debug output (file events, load results).
func WithLogger(l *zap.Logger) SpoolOption {
	return func(s *Spool) { s.logger = l }
}

// NewSpool creates a spool over dir using loader.
func NewSpool(dir string, loader *Loader, opts ...SpoolOption) *Spool {
	s := &Spool{
		dir:         dir,
		loader:      loader,
		debounce:    defaultDebounce,
		debounceMap: make(map[string]*time.Timer),
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start begins watching the spool directory. It runs until ctx is cancelled
// or Stop is called.
func (s *Spool) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if err := watcher.Add(s.dir); err != nil {
		_ = watcher.Close()
		s.mu.Unlock()
		return err
	}
	s.watcher = watcher
	s.started = true
	if s.logger != nil {
		s.logger.Debug("spool starting", zap.String("dir", s.dir))
	}
	s.mu.Unlock()
	go s.run(ctx)
	return nil
}

// SyncExistingFiles loads any bundle files already present in the directory.
func (s *Spool) SyncExistingFiles(ctx context.Context) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(s.dir, e.Name())
		if isBundle(path) {
			s.load(ctx, path)
		}
	}
}

// Stop stops the spool and closes the underlying watcher.
func (s *Spool) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)
		s.mu.Lock()
		if s.watcher != nil {
			_ = s.watcher.Close()
		}
		for _, t := range s.debounceMap {
			t.Stop()
		}
		s.mu.Unlock()
	})
}

func (s *Spool) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			s.Stop()
			return
		case <-s.done:
			return
		case ev, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			s.handleEvent(ctx, ev)
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			if err != nil && s.logger != nil {
				s.logger.Debug("spool watcher error", zap.Error(err))
			}
		}
	}
}

// handleEvent debounces create/write events per path: ingestion pipelines
// write bundles incrementally, so the load runs only after the file settles.
func (s *Spool) handleEvent(ctx context.Context, ev fsnotify.Event) {
	if !isBundle(ev.Name) {
		return
	}
	if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.debounceMap[ev.Name]; ok {
		t.Stop()
	}
	path := ev.Name
	s.debounceMap[path] = time.AfterFunc(s.debounce, func() {
		s.mu.Lock()
		delete(s.debounceMap, path)
		s.mu.Unlock()
		s.load(ctx, path)
	})
}

func (s *Spool) load(ctx context.Context, path string) {
	n, err := s.loader.LoadFile(ctx, path)
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("spool load failed", zap.String("path", path), zap.Error(err))
		}
		return
	}
	if err := os.Rename(path, path+".done"); err != nil && s.logger != nil {
		s.logger.Warn("spool rename failed", zap.String("path", path), zap.Error(err))
	}
	if s.logger != nil {
		s.logger.Info("bundle ingested", zap.String("path", path), zap.Int("rows", n))
	}
}

func isBundle(path string) bool {
	return strings.HasSuffix(path, ".json")
}
