package permissions

import (
	"context"
	stderrors "errors"
	"log/slog"
	"sync"
	"time"

	"github.com/go-drift/macperms/pkg/bridge"
	"github.com/go-drift/macperms/pkg/errors"
)

// DefaultRequestTimeout bounds Request when the caller's context has no deadline.
const DefaultRequestTimeout = 30 * time.Second

// RequestResult is the outcome of a request.
type RequestResult struct {
	Type PermissionType
	// Status is the canonical status the request resolved to. It is empty
	// when SettingsOpened is set.
	Status AuthorizationStatus
	// SettingsOpened is set for types without a request path: the System
	// Settings pane was opened and the status will only change after the
	// user toggles it there.
	SettingsOpened bool
}

// Broker is the single entry point for status queries and requests.
// It holds no mutable state besides the lazily started Watcher and is
// safe for concurrent use.
type Broker struct {
	registry *Registry
	os       OSVersion
	home     func() (string, error)
	tcc      TCCReader
	logger   *slog.Logger
	timeout  time.Duration

	watchOpts   []WatchOption
	watcherOnce sync.Once
	watcher     *Watcher
	watcherErr  error
}

// Option configures a Broker.
type Option func(*Broker)

// WithRegistry replaces the native registry, e.g. with stub providers.
func WithRegistry(r *Registry) Option {
	return func(b *Broker) { b.registry = r }
}

// WithOSVersion overrides the detected OS version.
func WithOSVersion(v OSVersion) Option {
	return func(b *Broker) { b.os = v }
}

// WithHomeDir overrides how the user's home directory is found.
func WithHomeDir(fn func() (string, error)) Option {
	return func(b *Broker) { b.home = fn }
}

// WithTCC enables StatusFor lookups against the privacy database.
func WithTCC(r TCCReader) Option {
	return func(b *Broker) { b.tcc = r }
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *slog.Logger) Option {
	return func(b *Broker) { b.logger = l }
}

// WithRequestTimeout sets the wait applied by Request when the context has
// no deadline.
func WithRequestTimeout(d time.Duration) Option {
	return func(b *Broker) { b.timeout = d }
}

// WithWatchOptions configures the Watcher started by Permission.Listen.
func WithWatchOptions(opts ...WatchOption) Option {
	return func(b *Broker) { b.watchOpts = append(b.watchOpts, opts...) }
}

// NewBroker returns a Broker over the default native registry unless
// overridden by options.
func NewBroker(opts ...Option) *Broker {
	b := &Broker{timeout: DefaultRequestTimeout}
	for _, opt := range opts {
		opt(b)
	}
	if b.registry == nil {
		b.registry = DefaultRegistry()
	}
	if b.os == "" {
		b.os = CurrentOSVersion()
	}
	if b.home == nil {
		b.home = UserHomeDir
	}
	if b.logger == nil {
		b.logger = slog.Default()
	}
	return b
}

// Registry returns the broker's registry.
func (b *Broker) Registry() *Registry {
	return b.registry
}

// OSVersion returns the OS version the broker gates subsystems on.
func (b *Broker) OSVersion() OSVersion {
	return b.os
}

// Entry validates name and returns its registry entry.
func (b *Broker) Entry(name string) (Entry, error) {
	return b.resolve("permissions.Entry", name)
}

// Available reports whether the entry's subsystem exists on this OS version.
func (b *Broker) Available(e Entry) bool {
	return b.os.AtLeast(e.MinimumOS)
}

func (b *Broker) resolve(op, name string) (Entry, error) {
	e, err := b.registry.Resolve(name)
	if err != nil {
		return Entry{}, &errors.Error{Op: op, Kind: errors.KindValidation, Permission: name, Err: err}
	}
	return e, nil
}

// Status returns the canonical status for the named permission type. It
// never shows UI.
func (b *Broker) Status(name string) (AuthorizationStatus, error) {
	e, err := b.resolve("permissions.Status", name)
	if err != nil {
		return "", err
	}
	return b.status("permissions.Status", e)
}

func (b *Broker) status(op string, e Entry) (AuthorizationStatus, error) {
	if !b.Available(e) {
		return e.LegacyStatus(), nil
	}
	raw, err := e.Provider.QueryStatus()
	if err != nil {
		return "", b.providerError(op, e.Type, err)
	}
	return b.normalize(op, e.Type, raw)
}

func (b *Broker) normalize(op string, t PermissionType, raw RawStatus) (AuthorizationStatus, error) {
	status, err := Normalize(t, raw)
	if err != nil {
		wrapped := &errors.Error{Op: op, Kind: errors.KindContract, Permission: string(t), Err: err}
		errors.Report(wrapped)
		return "", wrapped
	}
	return status, nil
}

func (b *Broker) providerError(op string, t PermissionType, err error) error {
	kind := errors.KindPlatform
	var parseErr *errors.ParseError
	if stderrors.As(err, &parseErr) {
		kind = errors.KindParsing
	}
	return &errors.Error{Op: op, Kind: kind, Permission: string(t), Err: err}
}

// Snapshot returns the status of every permission type. Types whose query
// fails are omitted and their errors joined.
func (b *Broker) Snapshot() (map[PermissionType]AuthorizationStatus, error) {
	out := make(map[PermissionType]AuthorizationStatus, len(allTypes))
	var errs []error
	for _, e := range b.registry.Entries() {
		status, err := b.status("permissions.Snapshot", e)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out[e.Type] = status
	}
	return out, stderrors.Join(errs...)
}

// Pending is a one-shot continuation for a dispatched request. It resolves
// exactly once. A caller that no longer cares may drop it; the native
// completion still resolves it harmlessly. Native requests the OS never
// answers resolve with ErrRequestExpired after DefaultRequestLifetime, which
// also releases their listener.
type Pending struct {
	typ    PermissionType
	once   sync.Once
	done   chan struct{}
	result RequestResult
	err    error
}

func newPending(t PermissionType) *Pending {
	return &Pending{typ: t, done: make(chan struct{})}
}

func (p *Pending) resolve(result RequestResult, err error) {
	p.once.Do(func() {
		p.result, p.err = result, err
		close(p.done)
	})
}

// Type returns the permission type being requested.
func (p *Pending) Type() PermissionType {
	return p.typ
}

// Done is closed once the request has resolved.
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Result returns the outcome without blocking. It returns ErrPending while
// the request is unresolved.
func (p *Pending) Result() (RequestResult, error) {
	select {
	case <-p.done:
		return p.result, p.err
	default:
		return RequestResult{Type: p.typ}, ErrPending
	}
}

// Wait blocks until the request resolves or ctx is done. Giving up does not
// withdraw the OS request.
func (p *Pending) Wait(ctx context.Context) (RequestResult, error) {
	select {
	case <-p.done:
		return p.result, p.err
	case <-ctx.Done():
		return RequestResult{Type: p.typ}, ctx.Err()
	}
}

// RequestAsync dispatches a request and returns immediately with its
// continuation. Invalid names fail before any OS call.
//
// A request against a type already in a terminal state resolves at once to
// that state without reaching the provider. Settings-only types treat
// denied as actionable and still open the pane, unless their trust prompt
// grants access first. Same-type requests are not deduplicated; the OS
// guarantees at most one prompt.
func (b *Broker) RequestAsync(name string) (*Pending, error) {
	const op = "permissions.Request"
	e, err := b.resolve(op, name)
	if err != nil {
		return nil, err
	}
	p := newPending(e.Type)

	if !b.Available(e) {
		b.logger.Debug("subsystem unavailable, reporting legacy status",
			"permission", e.Type, "os", b.os, "minimum_os", e.MinimumOS)
		p.resolve(RequestResult{Type: e.Type, Status: e.LegacyStatus()}, nil)
		return p, nil
	}

	current, err := b.status(op, e)
	if err != nil {
		return nil, err
	}
	if current.Terminal() && !(e.Convention == ConventionSettings && current == StatusDenied) {
		p.resolve(RequestResult{Type: e.Type, Status: current}, nil)
		return p, nil
	}

	switch e.Convention {
	case ConventionSettings:
		var prompted AuthorizationStatus
		err := e.Provider.RequestAccess(func(raw RawStatus, rerr error) {
			if rerr == nil {
				prompted, _ = b.normalize(op, e.Type, raw)
			}
		})
		if prompted == StatusAuthorized {
			b.logger.Debug("trust prompt granted access", "permission", e.Type)
			p.resolve(RequestResult{Type: e.Type, Status: prompted}, nil)
			return p, nil
		}
		if err != nil {
			return nil, b.providerError(op, e.Type, err)
		}
		b.logger.Info("opened system settings", "permission", e.Type, "pane", e.Pane)
		p.resolve(RequestResult{Type: e.Type, SettingsOpened: true}, nil)
		return p, nil

	default:
		err := e.Provider.RequestAccess(func(raw RawStatus, rerr error) {
			if rerr != nil {
				p.resolve(RequestResult{Type: e.Type}, b.providerError(op, e.Type, rerr))
				return
			}
			status, nerr := b.normalize(op, e.Type, raw)
			b.logger.Debug("permission request resolved", "permission", e.Type, "status", status)
			p.resolve(RequestResult{Type: e.Type, Status: status}, nerr)
		})
		if err != nil {
			return nil, b.providerError(op, e.Type, err)
		}
		if e.Convention == ConventionSync {
			select {
			case <-p.done:
			default:
				err := &errors.Error{Op: op, Kind: errors.KindContract, Permission: string(e.Type),
					Err: stderrors.New("synchronous provider returned without completing")}
				errors.Report(err)
				p.resolve(RequestResult{Type: e.Type}, err)
			}
		}
		b.logger.Debug("permission request dispatched", "permission", e.Type, "convention", e.Convention)
		return p, nil
	}
}

// Request dispatches a request and waits for it to resolve. When ctx has no
// deadline the broker's request timeout applies. If waiting ends first, the
// status is checked once more in case the completion was missed; otherwise
// ErrTimeout or ErrCanceled is returned.
func (b *Broker) Request(ctx context.Context, name string) (RequestResult, error) {
	p, err := b.RequestAsync(name)
	if err != nil {
		return RequestResult{}, err
	}
	if _, ok := ctx.Deadline(); !ok && b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	result, err := p.Wait(ctx)
	if err == nil || ctx.Err() == nil {
		return result, err
	}
	if status, serr := b.Status(name); serr == nil && status.Terminal() {
		return RequestResult{Type: p.typ, Status: status}, nil
	}
	if ctx.Err() == context.DeadlineExceeded {
		return result, ErrTimeout
	}
	return result, ErrCanceled
}

var (
	defaultBrokerOnce sync.Once
	defaultBroker     *Broker
)

// Default returns the process-wide broker over the native registry. It
// installs the native bridge if none is installed yet.
func Default() *Broker {
	bridge.Install()
	defaultBrokerOnce.Do(func() {
		defaultBroker = NewBroker()
	})
	return defaultBroker
}

// GetAuthStatus returns the status of the named type as one of
// "not determined", "denied", "authorized" or "restricted".
func GetAuthStatus(name string) (string, error) {
	status, err := Default().Status(name)
	if err != nil {
		return "", err
	}
	return string(status), nil
}

// RequestAccess requests the named type on the default broker.
func RequestAccess(ctx context.Context, name string) (RequestResult, error) {
	return Default().Request(ctx, name)
}

// AskForFoldersAccess probes a protected folder on the default broker.
// appID optionally scopes the probe to that application's container.
func AskForFoldersAccess(folder string, appID ...string) error {
	id := ""
	if len(appID) > 0 {
		id = appID[0]
	}
	return Default().AskForFoldersAccess(folder, id)
}
