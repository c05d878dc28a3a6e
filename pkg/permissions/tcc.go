package permissions

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/go-drift/macperms/pkg/errors"
	"github.com/go-drift/macperms/pkg/tccdb"
)

// TCCReader looks up decisions in the privacy database.
type TCCReader interface {
	Lookup(ctx context.Context, service, client string) (tccdb.Entry, error)
}

// StatusFor reads the recorded decision of another application, identified
// by bundle id, from the privacy database. A missing record means nothing
// was decided yet. Reading the database requires full disk access.
func (b *Broker) StatusFor(ctx context.Context, name, bundleID string) (AuthorizationStatus, error) {
	const op = "permissions.StatusFor"
	e, err := b.resolve(op, name)
	if err != nil {
		return "", err
	}
	if e.Service == "" {
		return "", &errors.Error{Op: op, Kind: errors.KindUnavailable, Permission: name,
			Err: fmt.Errorf("%w: %s is not recorded in the privacy database", ErrSubsystemUnavailable, e.Type)}
	}
	if b.tcc == nil {
		return "", &errors.Error{Op: op, Kind: errors.KindUnavailable, Permission: name,
			Err: fmt.Errorf("%w: no privacy database configured", ErrSubsystemUnavailable)}
	}

	rec, err := b.tcc.Lookup(ctx, e.Service, bundleID)
	if stderrors.Is(err, tccdb.ErrNotFound) {
		return StatusNotDetermined, nil
	}
	if err != nil {
		return "", &errors.Error{Op: op, Kind: errors.KindPlatform, Permission: name, Err: err}
	}
	return b.normalize(op, e.Type, RawStatus{Kind: RawTCC, Value: rec.AuthValue})
}
