package permissions

import (
	"os"
	"os/user"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/go-drift/macperms/pkg/errors"
	"github.com/go-drift/macperms/pkg/platform"
)

// Provider wraps one native authorization primitive.
//
// QueryStatus is synchronous, never shows UI, and never changes OS state.
//
// RequestAccess may present an OS prompt. For synchronous and asynchronous
// conventions it must invoke onComplete exactly once when it returns nil;
// a synchronous provider does so before returning. Providers for
// settings-only types may invoke onComplete before returning with the
// result of a system prompt; when that result is not authorized they open
// the settings pane. A non-nil error means nothing was dispatched and
// onComplete will not run.
type Provider interface {
	QueryStatus() (RawStatus, error)
	RequestAccess(onComplete func(RawStatus, error)) error
}

// PaneOpener opens a Security & Privacy pane by anchor.
type PaneOpener interface {
	OpenPane(pane string) error
}

// Prompter shows the system's own trust prompt for a settings-only type and
// returns the status it reports right after.
type Prompter interface {
	Prompt() (RawStatus, error)
}

// DefaultRequestLifetime bounds how long an asynchronous native request
// waits for the OS before it completes with ErrRequestExpired.
const DefaultRequestLifetime = 10 * time.Minute

// nativeProvider talks to the native bridge over the permissions channels.
type nativeProvider struct {
	name     PermissionType
	kind     RawKind
	lifetime time.Duration
	channel  *platform.MethodChannel
	changes  *platform.EventChannel
}

var (
	nativeChannelsOnce sync.Once
	permissionsChannel *platform.MethodChannel
	changesChannel     *platform.EventChannel
)

func nativeChannels() (*platform.MethodChannel, *platform.EventChannel) {
	nativeChannelsOnce.Do(func() {
		permissionsChannel = platform.NewMethodChannel(platform.PermissionsChannel)
		changesChannel = platform.NewEventChannel(platform.PermissionChangesChannel)
	})
	return permissionsChannel, changesChannel
}

// NewNativeProvider returns a Provider backed by the native bridge.
// RequestAccess completes from a PermissionChangesChannel event carrying
// the request id. The provider is also a Prompter for the trust-style types.
func NewNativeProvider(t PermissionType) Provider {
	channel, changes := nativeChannels()
	return &nativeProvider{
		name:     t,
		kind:     RawKindOf(t),
		lifetime: DefaultRequestLifetime,
		channel:  channel,
		changes:  changes,
	}
}

func (p *nativeProvider) QueryStatus() (RawStatus, error) {
	result, err := p.channel.Invoke("check", map[string]any{
		"permission": string(p.name),
	})
	if err != nil {
		return RawStatus{}, err
	}
	return p.parseRaw(result)
}

// Prompt sends a "request" without a request id; the native side answers
// with the status right after its prompt.
func (p *nativeProvider) Prompt() (RawStatus, error) {
	result, err := p.channel.Invoke("request", map[string]any{
		"permission": string(p.name),
	})
	if err != nil {
		return RawStatus{}, err
	}
	return p.parseRaw(result)
}

// RequestAccess dispatches an asynchronous request. If the OS has not
// answered within the provider's lifetime, the request completes with
// ErrRequestExpired and stops listening; a later native answer is ignored.
func (p *nativeProvider) RequestAccess(onComplete func(RawStatus, error)) error {
	requestID := uuid.NewString()
	var once sync.Once
	var sub *platform.Subscription
	var expiry *time.Timer
	release := func() {
		sub.Cancel()
		if expiry != nil {
			expiry.Stop()
		}
	}
	complete := func(raw RawStatus, err error) {
		once.Do(func() {
			release()
			onComplete(raw, err)
		})
	}

	// Subscribe before triggering the native request so a completion that
	// fires immediately is not lost.
	sub = p.changes.Listen(platform.EventHandler{
		OnEvent: func(data any) {
			m := platform.ParseMap(data)
			if m == nil || platform.ParseString(m["requestId"]) != requestID {
				return
			}
			complete(p.parseRaw(m))
		},
		OnError: func(err error) {
			errors.Report(&errors.Error{
				Op:         "permissions.request",
				Kind:       errors.KindPlatform,
				Permission: string(p.name),
				Channel:    platform.PermissionChangesChannel,
				Err:        err,
			})
		},
	})
	if p.lifetime > 0 {
		expiry = time.AfterFunc(p.lifetime, func() {
			once.Do(func() {
				sub.Cancel()
				onComplete(RawStatus{}, ErrRequestExpired)
			})
		})
	}

	_, err := p.channel.Invoke("request", map[string]any{
		"permission": string(p.name),
		"requestId":  requestID,
	})
	if err != nil {
		once.Do(release)
		return err
	}
	return nil
}

// parseRaw extracts {"raw": n} from a native payload. Booleans encode trust
// checks as 1 and 0.
func (p *nativeProvider) parseRaw(result any) (RawStatus, error) {
	m := platform.ParseMap(result)
	if m != nil {
		switch v := m["raw"].(type) {
		case bool:
			if v {
				return RawStatus{Kind: p.kind, Value: 1}, nil
			}
			return RawStatus{Kind: p.kind, Value: 0}, nil
		default:
			if n, ok := platform.ToInt(v); ok {
				return RawStatus{Kind: p.kind, Value: n}, nil
			}
		}
	}
	return RawStatus{}, &errors.ParseError{
		Channel:  p.channel.Name(),
		DataType: "RawStatus",
		Got:      result,
	}
}

// settingsProvider answers status through its inner provider but has no
// request path: RequestAccess opens the Security & Privacy pane instead,
// after the system trust prompt when there is one.
type settingsProvider struct {
	Provider
	prompter Prompter
	opener   PaneOpener
	pane     string
}

// NewSettingsProvider wraps status for a type the user can only grant
// in System Settings.
func NewSettingsProvider(status Provider, opener PaneOpener, pane string) Provider {
	return &settingsProvider{Provider: status, opener: opener, pane: pane}
}

// NewPromptSettingsProvider is NewSettingsProvider for types with a system
// trust prompt. RequestAccess shows the prompt first and reports its result
// through onComplete; the pane is opened only if access is still missing.
// A failed prompt is reported and falls through to the pane.
func NewPromptSettingsProvider(status Provider, prompter Prompter, opener PaneOpener, pane string) Provider {
	return &settingsProvider{Provider: status, prompter: prompter, opener: opener, pane: pane}
}

func (p *settingsProvider) RequestAccess(onComplete func(RawStatus, error)) error {
	if p.prompter != nil {
		raw, err := p.prompter.Prompt()
		if err != nil {
			errors.Report(&errors.Error{Op: "permissions.prompt", Kind: errors.KindPlatform, Channel: platform.PermissionsChannel, Err: err})
		} else {
			onComplete(raw, nil)
			if normalization[raw.Kind][raw.Value] == StatusAuthorized {
				return nil
			}
		}
	}
	return p.opener.OpenPane(p.pane)
}

// fullDiskProvider infers full disk access by opening files that only a
// process with full disk access can read.
type fullDiskProvider struct {
	home func() (string, error)
	os   func() OSVersion
}

// NewFullDiskProvider returns the file-probe provider for full disk access.
func NewFullDiskProvider(home func() (string, error), osVersion func() OSVersion) Provider {
	return &fullDiskProvider{home: home, os: osVersion}
}

func (p *fullDiskProvider) probeFiles() []string {
	files := []string{
		"/Library/Application Support/com.apple.TCC/TCC.db",
		"/Library/Preferences/com.apple.TimeMachine.plist",
	}
	home, err := p.home()
	if err != nil {
		return files
	}
	files = append(files, filepath.Join(home, "Library/Safari/Bookmarks.plist"))
	if p.os().AtLeast("10.15") {
		files = append(files, filepath.Join(home, "Library/Safari/CloudTabs.db"))
	}
	return files
}

// QueryStatus reports readable if any probe file opens, denied if none open
// and at least one was refused, and missing otherwise.
func (p *fullDiskProvider) QueryStatus() (RawStatus, error) {
	result := probeMissing
	for _, path := range p.probeFiles() {
		switch probeFile(path) {
		case probeReadable:
			return RawStatus{Kind: RawFileProbe, Value: probeReadable}, nil
		case probeDenied:
			result = probeDenied
		}
	}
	return RawStatus{Kind: RawFileProbe, Value: result}, nil
}

// Full disk access can only be granted in System Settings.
func (p *fullDiskProvider) RequestAccess(func(RawStatus, error)) error {
	return platform.ErrMethodNotFound
}

// UserHomeDir returns the real home directory. Inside the app sandbox $HOME
// points into the container, so the user database is consulted instead.
func UserHomeDir() (string, error) {
	if os.Getenv("APP_SANDBOX_CONTAINER_ID") != "" {
		u, err := user.Current()
		if err != nil {
			return "", err
		}
		return u.HomeDir, nil
	}
	return os.UserHomeDir()
}
