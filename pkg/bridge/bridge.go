// Package bridge connects the platform channels to the macOS privacy
// frameworks. Call Install once at start-up, before the first status query.
package bridge

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/go-drift/macperms/pkg/platform"
)

// native result codes, mirrored from native_darwin.h.
const (
	codeOK                = 0
	codeUnknownPermission = -1
	codeUnavailable       = -2
	codeFailed            = -3
)

func codeError(op, permission string, code int) error {
	switch code {
	case codeOK:
		return nil
	case codeUnknownPermission:
		return fmt.Errorf("%s %s: %w", op, permission, platform.ErrMethodNotFound)
	case codeUnavailable:
		return fmt.Errorf("%s %s: %w", op, permission, platform.ErrPlatformUnavailable)
	default:
		return fmt.Errorf("%s %s: native call failed (code %d)", op, permission, code)
	}
}

// pendingRequest is an async request waiting for its native completion.
type pendingRequest struct {
	permission string
	requestID  string
}

// pendingRequests correlates native completion tokens with request ids. A
// token is held until the OS answers, even after the Go side has stopped
// waiting; the native request cannot be withdrawn.
type pendingRequests struct {
	mu     sync.Mutex
	calls  map[int64]pendingRequest
	nextID atomic.Int64
}

func newPendingRequests() *pendingRequests {
	return &pendingRequests{calls: make(map[int64]pendingRequest)}
}

func (p *pendingRequests) add(req pendingRequest) int64 {
	token := p.nextID.Add(1)
	p.mu.Lock()
	p.calls[token] = req
	p.mu.Unlock()
	return token
}

// take removes and returns the request for token. A token completes once.
func (p *pendingRequests) take(token int64) (pendingRequest, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	req, ok := p.calls[token]
	delete(p.calls, token)
	return req, ok
}

// complete publishes a native completion on the permission changes channel.
func (p *pendingRequests) complete(token int64, raw int) error {
	req, ok := p.take(token)
	if !ok {
		return fmt.Errorf("bridge: completion for unknown token %d", token)
	}
	payload, err := platform.DefaultCodec.Encode(map[string]any{
		"permission": req.permission,
		"requestId":  req.requestID,
		"raw":        raw,
	})
	if err != nil {
		return err
	}
	return platform.HandleEvent(platform.PermissionChangesChannel, payload)
}

// decodeArgs reads the permission and optional request id of a call.
func decodeArgs(args []byte) (permission, requestID string, err error) {
	decoded, err := platform.DefaultCodec.Decode(args)
	if err != nil {
		return "", "", err
	}
	m := platform.ParseMap(decoded)
	if m == nil {
		return "", "", platform.ErrInvalidArguments
	}
	return platform.ParseString(m["permission"]), platform.ParseString(m["requestId"]), nil
}
