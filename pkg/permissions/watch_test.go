package permissions

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestWatcherRefreshEmitsOnlyChanges(t *testing.T) {
	rig := newTestRig(t)
	w := NewWatcher(rig.broker, WithWatchDirs(t.TempDir()))
	if err := w.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { w.Close() })

	var mu sync.Mutex
	var changes []Change
	unsubscribe := w.Subscribe(func(c Change) {
		mu.Lock()
		changes = append(changes, c)
		mu.Unlock()
	})

	w.Refresh()
	rig.providers[Camera].set(rawFor(Camera, StatusAuthorized))
	w.Refresh()
	w.Refresh()

	mu.Lock()
	got := append([]Change(nil), changes...)
	mu.Unlock()
	want := Change{Type: Camera, Previous: StatusNotDetermined, Current: StatusAuthorized}
	if len(got) != 1 || got[0] != want {
		t.Fatalf("changes = %+v, want [%+v]", got, want)
	}

	unsubscribe()
	rig.providers[Camera].set(rawFor(Camera, StatusDenied))
	w.Refresh()
	mu.Lock()
	defer mu.Unlock()
	if len(changes) != 1 {
		t.Errorf("unsubscribed handler saw %d changes", len(changes)-1)
	}
}

func TestWatcherStartWithoutDirs(t *testing.T) {
	rig := newTestRig(t)
	w := NewWatcher(rig.broker, WithWatchDirs(filepath.Join(t.TempDir(), "missing")))
	if err := w.Start(); err == nil {
		w.Close()
		t.Fatal("expected error when no directory can be watched")
	}
}

func TestWatcherCloseIsIdempotent(t *testing.T) {
	rig := newTestRig(t)
	w := NewWatcher(rig.broker, WithWatchDirs(t.TempDir()))
	if err := w.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if err := w.Start(); !stderrors.Is(err, ErrWatcherClosed) {
		t.Errorf("Start after Close = %v, want ErrWatcherClosed", err)
	}
}

func TestDefaultWatchDirs(t *testing.T) {
	dirs := DefaultWatchDirs("/Users/test")
	want := []string{
		"/Users/test/Library/Application Support/com.apple.TCC",
		"/Library/Application Support/com.apple.TCC",
	}
	if len(dirs) != 2 || dirs[0] != want[0] || dirs[1] != want[1] {
		t.Errorf("DefaultWatchDirs = %v, want %v", dirs, want)
	}
}

func TestPermissionListen(t *testing.T) {
	dir := t.TempDir()
	rig := newTestRig(t, withBroker(WithWatchOptions(WithWatchDirs(dir), WithDebounce(10*time.Millisecond))))

	p, err := rig.broker.Permission(Microphone)
	if err != nil {
		t.Fatalf("Permission: %v", err)
	}
	got := make(chan AuthorizationStatus, 4)
	unsubscribe := p.Listen(func(s AuthorizationStatus) { got <- s })
	defer unsubscribe()

	// Unrelated types are filtered out.
	rig.providers[Camera].set(rawFor(Camera, StatusDenied))
	rig.providers[Microphone].set(rawFor(Microphone, StatusAuthorized))
	if err := os.WriteFile(filepath.Join(dir, "TCC.db"), []byte("changed"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case s := <-got:
		if s != StatusAuthorized {
			t.Errorf("status = %q, want authorized", s)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no change delivered")
	}
	select {
	case s := <-got:
		t.Errorf("unexpected second delivery %q", s)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPermissionHandle(t *testing.T) {
	rig := newTestRig(t)
	ctx := context.Background()

	if _, err := rig.broker.Permission("bad-type"); !stderrors.Is(err, ErrInvalidPermissionType) {
		t.Errorf("err = %v", err)
	}

	p, err := rig.broker.Permission(Reminders)
	if err != nil {
		t.Fatal(err)
	}
	if p.Type() != Reminders {
		t.Errorf("Type = %s", p.Type())
	}
	if p.IsGranted(ctx) || p.IsDenied(ctx) {
		t.Error("not determined reported as decided")
	}

	rig.providers[Reminders].set(rawFor(Reminders, StatusRestricted))
	if !p.IsDenied(ctx) {
		t.Error("restricted should count as denied")
	}
	rig.providers[Reminders].set(rawFor(Reminders, StatusAuthorized))
	if !p.IsGranted(ctx) {
		t.Error("authorized should count as granted")
	}
	result, err := p.Request(ctx)
	if err != nil || result.Status != StatusAuthorized {
		t.Errorf("Request = %+v, %v", result, err)
	}
}

func TestListenAfterCloseIsNoop(t *testing.T) {
	recordErrors(t)
	rig := newTestRig(t, withBroker(WithWatchOptions(WithWatchDirs(t.TempDir()))))
	rig.broker.Close()

	p, err := rig.broker.Permission(Camera)
	if err != nil {
		t.Fatal(err)
	}
	unsubscribe := p.Listen(func(AuthorizationStatus) { t.Error("handler called") })
	unsubscribe()
}

func TestWatcherStartsOnce(t *testing.T) {
	rig := newTestRig(t)
	w := NewWatcher(rig.broker, WithWatchDirs(t.TempDir()))
	if err := w.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { w.Close() })

	if err := w.Start(); !stderrors.Is(err, ErrWatcherStarted) {
		t.Errorf("second Start = %v, want ErrWatcherStarted", err)
	}
}

func TestWatcherStartRetriesAfterFailure(t *testing.T) {
	rig := newTestRig(t)
	dir := filepath.Join(t.TempDir(), "later")
	w := NewWatcher(rig.broker, WithWatchDirs(dir))
	if err := w.Start(); err == nil {
		t.Fatal("Start succeeded without a directory")
	}
	if err := os.Mkdir(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := w.Start(); err != nil {
		t.Fatalf("Start after the directory appeared: %v", err)
	}
	w.Close()
}
