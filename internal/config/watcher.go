package config

import (
	"errors"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/dshills/cmdbridge/internal/logging"
)

// ErrWatcherClosed is returned when using a closed Watcher.
var ErrWatcherClosed = errors.New("watcher closed")

// Op is a set of file operations.
type Op uint8

const (
	OpCreate Op = 1 << iota
	OpWrite
	OpRemove
	OpRename
)

// String returns the operation names joined by "|".
func (op Op) String() string {
	var s string
	for _, n := range []struct {
		op   Op
		name string
	}{{OpCreate, "create"}, {OpWrite, "write"}, {OpRemove, "remove"}, {OpRename, "rename"}} {
		if op&n.op != 0 {
			if s != "" {
				s += "|"
			}
			s += n.name
		}
	}
	if s == "" {
		return "none"
	}
	return s
}

// Event is a debounced change to a watched file.
type Event struct {
	Path string
	Op   Op
	Time time.Time
}

// Handler is called once per debounced change.
type Handler func(Event)

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounce sets how long a file must be quiet before its handler runs.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d >= 0 {
			w.debounce = d
		}
	}
}

// WithLogger sets the logger for watch errors.
func WithLogger(l *logging.Logger) WatcherOption {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// Watcher reports changes to individual files. It watches each file's
// directory so editors that replace files by rename are still seen.
type Watcher struct {
	mu sync.Mutex

	watcher  *fsnotify.Watcher
	handler  Handler
	debounce time.Duration
	logger   *logging.Logger

	files   map[string]bool
	dirs    map[string]bool
	pending map[string]*pendingEvent

	closed   bool
	closeCh  chan struct{}
	closedWg sync.WaitGroup
}

type pendingEvent struct {
	op    Op
	timer *time.Timer
}

// NewWatcher starts a watcher that calls handler for changes to files
// added with Watch.
func NewWatcher(handler Handler, opts ...WatcherOption) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		watcher:  fsw,
		handler:  handler,
		debounce: 100 * time.Millisecond,
		logger:   logging.NullLogger,
		files:    make(map[string]bool),
		dirs:     make(map[string]bool),
		pending:  make(map[string]*pendingEvent),
		closeCh:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	w.closedWg.Add(1)
	go w.processLoop()

	return w, nil
}

// Watch adds path to the watch list. The file need not exist yet but its
// directory must.
func (w *Watcher) Watch(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrWatcherClosed
	}

	dir := filepath.Dir(absPath)
	if !w.dirs[dir] {
		if err := w.watcher.Add(dir); err != nil {
			return err
		}
		w.dirs[dir] = true
	}
	w.files[absPath] = true
	return nil
}

// Watching reports whether path is on the watch list.
func (w *Watcher) Watching(path string) bool {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.files[absPath]
}

// Close stops the watcher. Pending debounced events are dropped.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.closeCh)
	for path, p := range w.pending {
		p.timer.Stop()
		delete(w.pending, path)
	}
	w.mu.Unlock()

	w.closedWg.Wait()
	return w.watcher.Close()
}

func (w *Watcher) processLoop() {
	defer w.closedWg.Done()

	for {
		select {
		case <-w.closeCh:
			return

		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleFSEvent(ev)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error: %v", err)
		}
	}
}

func (w *Watcher) handleFSEvent(ev fsnotify.Event) {
	op := convertOp(ev.Op)
	if op == 0 {
		return
	}
	path := filepath.Clean(ev.Name)

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed || !w.files[path] {
		return
	}
	if p, ok := w.pending[path]; ok {
		p.op |= op
		p.timer.Reset(w.debounce)
		return
	}
	w.pending[path] = &pendingEvent{
		op:    op,
		timer: time.AfterFunc(w.debounce, func() { w.fire(path) }),
	}
}

func (w *Watcher) fire(path string) {
	w.mu.Lock()
	p, ok := w.pending[path]
	if !ok || w.closed {
		w.mu.Unlock()
		return
	}
	delete(w.pending, path)
	w.mu.Unlock()

	w.handler(Event{Path: path, Op: p.op, Time: time.Now()})
}

func convertOp(fsOp fsnotify.Op) Op {
	var op Op
	if fsOp.Has(fsnotify.Create) {
		op |= OpCreate
	}
	if fsOp.Has(fsnotify.Write) {
		op |= OpWrite
	}
	if fsOp.Has(fsnotify.Remove) {
		op |= OpRemove
	}
	if fsOp.Has(fsnotify.Rename) {
		op |= OpRename
	}
	return op
}
