package permissions

import (
	"fmt"
	"sync"

	"github.com/go-drift/macperms/pkg/errors"
	"github.com/go-drift/macperms/pkg/platform"
)

// Convention is how a permission type's request is carried out.
type Convention int

const (
	// ConventionSync requests return the resulting status directly.
	ConventionSync Convention = iota + 1
	// ConventionAsync requests resolve later through a completion callback.
	ConventionAsync
	// ConventionSettings types have no request API; requesting opens the
	// System Settings pane and resolves without a status.
	ConventionSettings
)

func (c Convention) String() string {
	switch c {
	case ConventionSync:
		return "sync"
	case ConventionAsync:
		return "async"
	case ConventionSettings:
		return "settings"
	default:
		return "unknown"
	}
}

// Entry is the Registry record for one permission type.
type Entry struct {
	Type       PermissionType
	Provider   Provider
	Convention Convention
	// MinimumOS is the first macOS version with the subsystem's API.
	// Empty means always available.
	MinimumOS OSVersion
	// Legacy is reported on OS versions older than MinimumOS. Empty means
	// StatusNotDetermined.
	Legacy AuthorizationStatus
	// Service is the privacy database service name, if the type has one.
	Service string
	// Pane is the Security & Privacy pane anchor for the type.
	Pane string
}

// SupportsRequest reports whether the type has an active request action.
func (e Entry) SupportsRequest() bool {
	return e.Convention != ConventionSettings
}

// RequestIsAsynchronous reports whether requests resolve through a callback.
func (e Entry) RequestIsAsynchronous() bool {
	return e.Convention == ConventionAsync
}

// LegacyStatus is the status reported when the subsystem is unavailable.
func (e Entry) LegacyStatus() AuthorizationStatus {
	if e.Legacy == "" {
		return StatusNotDetermined
	}
	return e.Legacy
}

// Registry maps each permission type to its Entry. It is immutable once built.
type Registry struct {
	entries map[PermissionType]Entry
}

// NewRegistry builds a Registry and checks that every permission type has
// exactly one well-formed entry.
func NewRegistry(entries []Entry) (*Registry, error) {
	r := &Registry{entries: make(map[PermissionType]Entry, len(entries))}
	for _, e := range entries {
		if !e.Type.Valid() {
			return nil, fmt.Errorf("registry: unknown permission type %q", e.Type)
		}
		if _, dup := r.entries[e.Type]; dup {
			return nil, fmt.Errorf("registry: duplicate entry for %s", e.Type)
		}
		if e.Provider == nil {
			return nil, fmt.Errorf("registry: %s has no provider", e.Type)
		}
		switch e.Convention {
		case ConventionSync, ConventionAsync, ConventionSettings:
		default:
			return nil, fmt.Errorf("registry: %s has no request convention", e.Type)
		}
		r.entries[e.Type] = e
	}
	for _, t := range allTypes {
		if _, ok := r.entries[t]; !ok {
			return nil, fmt.Errorf("registry: missing entry for %s", t)
		}
	}
	return r, nil
}

// Resolve validates name and returns its entry. Unknown names fail with an
// *InvalidTypeError before any native call is made.
func (r *Registry) Resolve(name string) (Entry, error) {
	t, err := ParsePermissionType(name)
	if err != nil {
		return Entry{}, err
	}
	return r.entries[t], nil
}

// Entries returns all entries in Types order.
func (r *Registry) Entries() []Entry {
	out := make([]Entry, 0, len(allTypes))
	for _, t := range allTypes {
		out = append(out, r.entries[t])
	}
	return out
}

// subsystem is the static part of an Entry.
type subsystem struct {
	convention Convention
	minimumOS  OSVersion
	legacy     AuthorizationStatus
	service    string
	pane       string
}

// subsystems describes every subsystem. 10.16 is what Big Sur reports to
// binaries built against older SDKs, so it stands in for 11.0.
var subsystems = map[PermissionType]subsystem{
	Accessibility:     {ConventionSettings, "", "", "kTCCServiceAccessibility", "Privacy_Accessibility"},
	Bluetooth:         {ConventionAsync, "10.15", StatusAuthorized, "kTCCServiceBluetoothAlways", "Privacy_Bluetooth"},
	Calendar:          {ConventionAsync, "", "", "kTCCServiceCalendar", "Privacy_Calendars"},
	Camera:            {ConventionAsync, "10.14", StatusAuthorized, "kTCCServiceCamera", "Privacy_Camera"},
	Contacts:          {ConventionAsync, "", "", "kTCCServiceAddressBook", "Privacy_Contacts"},
	FullDiskAccess:    {ConventionSettings, "10.14", StatusAuthorized, "kTCCServiceSystemPolicyAllFiles", "Privacy_AllFiles"},
	InputMonitoring:   {ConventionSettings, "10.15", StatusAuthorized, "kTCCServiceListenEvent", "Privacy_ListenEvent"},
	Location:          {ConventionAsync, "", "", "", "Privacy_LocationServices"},
	Microphone:        {ConventionAsync, "10.14", StatusAuthorized, "kTCCServiceMicrophone", "Privacy_Microphone"},
	MusicLibrary:      {ConventionSettings, "10.16", StatusAuthorized, "kTCCServiceMediaLibrary", "Privacy_Media"},
	PhotosAddOnly:     {ConventionAsync, "", "", "kTCCServicePhotosAdd", "Privacy_Photos"},
	PhotosReadWrite:   {ConventionAsync, "", "", "kTCCServicePhotos", "Privacy_Photos"},
	Reminders:         {ConventionAsync, "", "", "kTCCServiceReminders", "Privacy_Reminders"},
	SpeechRecognition: {ConventionAsync, "10.15", StatusAuthorized, "kTCCServiceSpeechRecognition", "Privacy_SpeechRecognition"},
	Screen:            {ConventionSettings, "10.15", StatusAuthorized, "kTCCServiceScreenCapture", "Privacy_ScreenCapture"},
}

// trustPrompts are the settings-only types with a system prompt that points
// the user at System Settings.
var trustPrompts = map[PermissionType]bool{
	Accessibility:   true,
	InputMonitoring: true,
	Screen:          true,
}

// NewEntry fills in the static description of t around provider.
func NewEntry(t PermissionType, provider Provider) Entry {
	s := subsystems[t]
	return Entry{
		Type:       t,
		Provider:   provider,
		Convention: s.convention,
		MinimumOS:  s.minimumOS,
		Legacy:     s.legacy,
		Service:    s.service,
		Pane:       s.pane,
	}
}

var (
	defaultRegistryOnce sync.Once
	defaultRegistry     *Registry
)

// DefaultRegistry returns the process-wide Registry backed by the native
// bridge. It is built on first use; an incomplete table is a programming
// error and panics.
func DefaultRegistry() *Registry {
	defaultRegistryOnce.Do(func() {
		r, err := NewRegistry(nativeEntries())
		if err != nil {
			errors.Report(&errors.Error{Op: "permissions.DefaultRegistry", Kind: errors.KindInit, Err: err})
			panic(err)
		}
		defaultRegistry = r
	})
	return defaultRegistry
}

func nativeEntries() []Entry {
	entries := make([]Entry, 0, len(allTypes))
	for _, t := range allTypes {
		s := subsystems[t]
		var provider Provider
		switch t {
		case FullDiskAccess:
			provider = NewFullDiskProvider(UserHomeDir, CurrentOSVersion)
		default:
			provider = NewNativeProvider(t)
		}
		switch {
		case s.convention != ConventionSettings:
		case trustPrompts[t]:
			provider = NewPromptSettingsProvider(provider, provider.(Prompter), platform.SystemSettings, s.pane)
		default:
			provider = NewSettingsProvider(provider, platform.SystemSettings, s.pane)
		}
		entries = append(entries, NewEntry(t, provider))
	}
	return entries
}
