package permissions

import (
	"context"

	"github.com/go-drift/macperms/pkg/errors"
)

// Permission is a handle on a single permission type.
//
// Context usage: ctx bounds Request. Status, IsGranted and IsDenied are
// synchronous and accept ctx for API consistency only.
type Permission interface {
	// Type returns the permission type.
	Type() PermissionType

	// Status returns the current canonical status.
	Status(ctx context.Context) (AuthorizationStatus, error)

	// Request asks for access and waits for the outcome. If the status is
	// already terminal it returns immediately without a prompt.
	Request(ctx context.Context) (RequestResult, error)

	// IsGranted returns true if access is authorized.
	// Best-effort convenience: returns false on any error.
	IsGranted(ctx context.Context) bool

	// IsDenied returns true if access is denied or restricted.
	// Best-effort convenience: returns false on any error.
	IsDenied(ctx context.Context) bool

	// Listen subscribes to status changes of this type, starting the
	// broker's Watcher on first use. Returns an unsubscribe function.
	Listen(handler func(AuthorizationStatus)) (unsubscribe func())
}

// Permission returns the handle for t.
func (b *Broker) Permission(t PermissionType) (Permission, error) {
	if _, err := b.resolve("permissions.Permission", string(t)); err != nil {
		return nil, err
	}
	return &brokerPermission{broker: b, typ: t}, nil
}

type brokerPermission struct {
	broker *Broker
	typ    PermissionType
}

func (p *brokerPermission) Type() PermissionType {
	return p.typ
}

func (p *brokerPermission) Status(ctx context.Context) (AuthorizationStatus, error) {
	return p.broker.Status(string(p.typ))
}

func (p *brokerPermission) Request(ctx context.Context) (RequestResult, error) {
	return p.broker.Request(ctx, string(p.typ))
}

func (p *brokerPermission) IsGranted(ctx context.Context) bool {
	status, err := p.Status(ctx)
	return err == nil && status == StatusAuthorized
}

func (p *brokerPermission) IsDenied(ctx context.Context) bool {
	status, err := p.Status(ctx)
	return err == nil && (status == StatusDenied || status == StatusRestricted)
}

func (p *brokerPermission) Listen(handler func(AuthorizationStatus)) (unsubscribe func()) {
	w, err := p.broker.sharedWatcher()
	if err != nil {
		errors.Report(&errors.Error{
			Op:         "permissions.Listen",
			Kind:       errors.KindPlatform,
			Permission: string(p.typ),
			Err:        err,
		})
		return func() {}
	}
	return w.Subscribe(func(c Change) {
		if c.Type == p.typ {
			handler(c.Current)
		}
	})
}

// sharedWatcher starts the broker's Watcher once.
func (b *Broker) sharedWatcher() (*Watcher, error) {
	b.watcherOnce.Do(func() {
		w := NewWatcher(b, b.watchOpts...)
		if err := w.Start(); err != nil {
			b.watcherErr = err
			return
		}
		b.watcher = w
	})
	return b.watcher, b.watcherErr
}

// Close stops the broker's Watcher if one was started. Listen on a closed
// broker never starts a new one.
func (b *Broker) Close() error {
	b.watcherOnce.Do(func() {
		b.watcherErr = ErrWatcherClosed
	})
	if b.watcher != nil {
		return b.watcher.Close()
	}
	return nil
}
