package permissions

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/go-drift/macperms/pkg/errors"
)

var (
	// ErrWatcherClosed is returned when starting a Watcher after Close.
	ErrWatcherClosed = stderrors.New("permissions: watcher closed")
	// ErrWatcherStarted is returned by a second Start.
	ErrWatcherStarted = stderrors.New("permissions: watcher already started")
)

// DefaultWatchDebounce coalesces the burst of writes the privacy database
// produces for a single decision.
const DefaultWatchDebounce = 250 * time.Millisecond

// Change is a status transition observed by a Watcher.
type Change struct {
	Type     PermissionType
	Previous AuthorizationStatus
	Current  AuthorizationStatus
}

// Watcher observes the privacy database directories and re-queries every
// permission status when they change. Handlers only see real transitions.
type Watcher struct {
	broker   *Broker
	dirs     []string
	debounce time.Duration

	mu       sync.Mutex
	started  bool
	last     map[PermissionType]AuthorizationStatus
	handlers map[int]func(Change)
	nextID   int

	fsw       *fsnotify.Watcher
	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// WatchOption configures a Watcher.
type WatchOption func(*Watcher)

// WithWatchDirs replaces the watched directories.
func WithWatchDirs(dirs ...string) WatchOption {
	return func(w *Watcher) { w.dirs = dirs }
}

// WithDebounce sets how long the Watcher waits for writes to settle.
func WithDebounce(d time.Duration) WatchOption {
	return func(w *Watcher) { w.debounce = d }
}

// DefaultWatchDirs returns the user and system privacy database directories.
func DefaultWatchDirs(home string) []string {
	const tccDir = "Library/Application Support/com.apple.TCC"
	return []string{
		filepath.Join(home, tccDir),
		filepath.Join("/", tccDir),
	}
}

// NewWatcher returns a Watcher for b. Call Start to begin watching.
func NewWatcher(b *Broker, opts ...WatchOption) *Watcher {
	w := &Watcher{
		broker:   b,
		debounce: DefaultWatchDebounce,
		handlers: make(map[int]func(Change)),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.dirs == nil {
		if home, err := b.home(); err == nil {
			w.dirs = DefaultWatchDirs(home)
		}
	}
	return w
}

// Start records the current statuses and begins watching. Directories that
// do not exist are skipped; it fails if none can be watched. A Watcher
// starts at most once.
func (w *Watcher) Start() (err error) {
	select {
	case <-w.done:
		return ErrWatcherClosed
	default:
	}
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return ErrWatcherStarted
	}
	w.started = true
	w.mu.Unlock()
	defer func() {
		if err != nil {
			w.mu.Lock()
			w.started = false
			w.mu.Unlock()
		}
	}()

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	var watched int
	var errs []error
	for _, dir := range w.dirs {
		if _, err := os.Stat(dir); err != nil {
			continue
		}
		if err := fsw.Add(dir); err != nil {
			errs = append(errs, err)
			continue
		}
		watched++
	}
	if watched == 0 {
		fsw.Close()
		if len(errs) > 0 {
			return stderrors.Join(errs...)
		}
		return &os.PathError{Op: "watch", Path: filepath.Join(w.dirs...), Err: os.ErrNotExist}
	}

	w.mu.Lock()
	w.last, _ = w.broker.Snapshot()
	w.mu.Unlock()

	w.fsw = fsw
	w.wg.Add(1)
	go w.loop()
	return nil
}

func (w *Watcher) loop() {
	defer w.wg.Done()
	defer errors.Recover("permissions.Watcher")

	var settle <-chan time.Time
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
				settle = time.After(w.debounce)
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			errors.Report(&errors.Error{Op: "permissions.Watcher", Kind: errors.KindPlatform, Err: err})
		case <-settle:
			settle = nil
			w.Refresh()
		}
	}
}

// Refresh re-queries every status and notifies handlers of changes. Types
// whose query fails keep their previous status.
func (w *Watcher) Refresh() {
	current, err := w.broker.Snapshot()
	if err != nil {
		errors.Report(&errors.Error{Op: "permissions.Watcher.Refresh", Kind: errors.KindPlatform, Err: err})
	}

	w.mu.Lock()
	if w.last == nil {
		w.last = make(map[PermissionType]AuthorizationStatus)
	}
	var changes []Change
	for _, t := range allTypes {
		now, ok := current[t]
		if !ok {
			continue
		}
		if prev := w.last[t]; prev != now {
			changes = append(changes, Change{Type: t, Previous: prev, Current: now})
			w.last[t] = now
		}
	}
	handlers := make([]func(Change), 0, len(w.handlers))
	for _, h := range w.handlers {
		handlers = append(handlers, h)
	}
	w.mu.Unlock()

	for _, c := range changes {
		w.broker.logger.Info("permission status changed",
			"permission", c.Type, "previous", c.Previous, "status", c.Current)
		for _, h := range handlers {
			h(c)
		}
	}
}

// Subscribe registers handler for every change. Returns an unsubscribe function.
func (w *Watcher) Subscribe(handler func(Change)) (unsubscribe func()) {
	w.mu.Lock()
	id := w.nextID
	w.nextID++
	w.handlers[id] = handler
	w.mu.Unlock()

	return func() {
		w.mu.Lock()
		delete(w.handlers, id)
		w.mu.Unlock()
	}
}

// Close stops watching. It is safe to call more than once.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.done)
		if w.fsw != nil {
			err = w.fsw.Close()
		}
		w.wg.Wait()
	})
	return err
}
