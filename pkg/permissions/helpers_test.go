package permissions

import (
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/go-drift/macperms/pkg/errors"
)

// stubProvider is a Provider with a controllable status. prompts counts
// RequestAccess calls, i.e. how often an OS prompt would have been shown.
type stubProvider struct {
	mu       sync.Mutex
	raw      RawStatus
	queryErr error
	// grant is the status the user picks when prompted.
	grant RawStatus
	// async providers hold completions until complete is called.
	async bool
	// noComplete makes a synchronous provider return without completing.
	noComplete bool
	pending    []func(RawStatus, error)
	prompts    atomic.Int32
}

func (p *stubProvider) QueryStatus() (RawStatus, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.raw, p.queryErr
}

func (p *stubProvider) RequestAccess(onComplete func(RawStatus, error)) error {
	p.prompts.Add(1)
	p.mu.Lock()
	p.raw = p.grant
	raw := p.raw
	if p.async || p.noComplete {
		if p.async {
			p.pending = append(p.pending, onComplete)
		}
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()
	onComplete(raw, nil)
	return nil
}

func (p *stubProvider) set(raw RawStatus) {
	p.mu.Lock()
	p.raw = raw
	p.mu.Unlock()
}

// complete fires every held completion with the granted status.
func (p *stubProvider) complete() {
	p.mu.Lock()
	pending := p.pending
	p.pending = nil
	raw := p.grant
	p.mu.Unlock()
	for _, fn := range pending {
		fn(raw, nil)
	}
}

type recordingOpener struct {
	mu    sync.Mutex
	panes []string
	err   error
}

func (o *recordingOpener) OpenPane(pane string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.err != nil {
		return o.err
	}
	o.panes = append(o.panes, pane)
	return nil
}

func (o *recordingOpener) opened() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.panes...)
}

// rawFor returns a raw value that t's encoding normalizes to s. Encodings
// without such a value fall back to the privacy database encoding.
func rawFor(t PermissionType, s AuthorizationStatus) RawStatus {
	kind := RawKindOf(t)
	for v, st := range normalization[kind] {
		if st == s {
			return RawStatus{Kind: kind, Value: v}
		}
	}
	for v, st := range normalization[RawTCC] {
		if st == s {
			return RawStatus{Kind: RawTCC, Value: v}
		}
	}
	return RawStatus{Kind: kind, Value: -1}
}

type testRig struct {
	broker    *Broker
	providers map[PermissionType]*stubProvider
	opener    *recordingOpener
	home      string
}

type rigOption func(*rigConfig)

type rigConfig struct {
	entries  func(Entry) Entry
	brokerOp []Option
}

// withEntry rewrites registry entries before the registry is built.
func withEntry(fn func(Entry) Entry) rigOption {
	return func(c *rigConfig) { c.entries = fn }
}

func withBroker(opts ...Option) rigOption {
	return func(c *rigConfig) { c.brokerOp = append(c.brokerOp, opts...) }
}

// newTestRig builds a broker whose every type is backed by a stub provider
// that starts out not determined and grants access when prompted.
func newTestRig(t *testing.T, opts ...rigOption) *testRig {
	t.Helper()
	cfg := &rigConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	rig := &testRig{
		providers: make(map[PermissionType]*stubProvider),
		opener:    &recordingOpener{},
		home:      t.TempDir(),
	}
	var entries []Entry
	for _, typ := range Types() {
		stub := &stubProvider{
			raw:   rawFor(typ, StatusNotDetermined),
			grant: rawFor(typ, StatusAuthorized),
			async: subsystems[typ].convention == ConventionAsync,
		}
		rig.providers[typ] = stub
		var provider Provider = stub
		if subsystems[typ].convention == ConventionSettings {
			provider = NewSettingsProvider(stub, rig.opener, subsystems[typ].pane)
		}
		e := NewEntry(typ, provider)
		if cfg.entries != nil {
			e = cfg.entries(e)
		}
		entries = append(entries, e)
	}
	registry, err := NewRegistry(entries)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	home := rig.home
	brokerOpts := []Option{
		WithRegistry(registry),
		WithOSVersion("14.4"),
		WithHomeDir(func() (string, error) { return home, nil }),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}
	rig.broker = NewBroker(append(brokerOpts, cfg.brokerOp...)...)
	t.Cleanup(func() { rig.broker.Close() })
	return rig
}

// recordErrors captures reported errors for the duration of the test.
func recordErrors(t *testing.T) *errorRecorder {
	t.Helper()
	r := &errorRecorder{}
	errors.SetHandler(r)
	t.Cleanup(func() { errors.SetHandler(nil) })
	return r
}

type errorRecorder struct {
	mu   sync.Mutex
	errs []*errors.Error
}

func (r *errorRecorder) HandleError(err *errors.Error) {
	r.mu.Lock()
	r.errs = append(r.errs, err)
	r.mu.Unlock()
}

func (r *errorRecorder) HandlePanic(*errors.PanicError) {}

func (r *errorRecorder) kinds() []errors.ErrorKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]errors.ErrorKind, 0, len(r.errs))
	for _, err := range r.errs {
		out = append(out, err.Kind)
	}
	return out
}
