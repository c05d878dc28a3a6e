// Package permissions is a broker over the macOS privacy subsystems. It
// exposes one status vocabulary and one request protocol for every
// permission type, whatever the underlying native API looks like.
//
// Status queries never show UI. Requests may present an OS prompt, resolve
// asynchronously, or only open the matching System Settings pane, as
// declared per type in the Registry. Protected folders have no query API at
// all; AskForFoldersAccess probes the folder to provoke the prompt.
//
// The package-level functions use Default, which installs the native bridge
// on first use. A Broker built with NewBroker over the native registry needs
// bridge.Install to have run.
package permissions

import "slices"

// PermissionType identifies one privacy subsystem.
type PermissionType string

// Permission types understood by the broker.
const (
	Accessibility     PermissionType = "accessibility"
	Bluetooth         PermissionType = "bluetooth"
	Calendar          PermissionType = "calendar"
	Camera            PermissionType = "camera"
	Contacts          PermissionType = "contacts"
	FullDiskAccess    PermissionType = "full-disk-access"
	InputMonitoring   PermissionType = "input-monitoring"
	Location          PermissionType = "location"
	Microphone        PermissionType = "microphone"
	MusicLibrary      PermissionType = "music-library"
	PhotosAddOnly     PermissionType = "photos-add-only"
	PhotosReadWrite   PermissionType = "photos-read-write"
	Reminders         PermissionType = "reminders"
	SpeechRecognition PermissionType = "speech-recognition"
	Screen            PermissionType = "screen"
)

var allTypes = []PermissionType{
	Accessibility,
	Bluetooth,
	Calendar,
	Camera,
	Contacts,
	FullDiskAccess,
	InputMonitoring,
	Location,
	Microphone,
	MusicLibrary,
	PhotosAddOnly,
	PhotosReadWrite,
	Reminders,
	SpeechRecognition,
	Screen,
}

// Types returns every permission type in a stable order.
func Types() []PermissionType {
	return slices.Clone(allTypes)
}

// Valid reports whether t is one of the known permission types.
func (t PermissionType) Valid() bool {
	return slices.Contains(allTypes, t)
}

// ParsePermissionType validates a caller-supplied identifier.
func ParsePermissionType(s string) (PermissionType, error) {
	t := PermissionType(s)
	if !t.Valid() {
		return "", &InvalidTypeError{Value: s}
	}
	return t, nil
}

// AuthorizationStatus is the canonical status of a permission.
type AuthorizationStatus string

// Canonical statuses. The string values are part of the public contract.
const (
	// StatusNotDetermined means no decision is recorded yet. Requesting will
	// show a prompt.
	StatusNotDetermined AuthorizationStatus = "not determined"

	// StatusDenied means the user or policy refused. The OS will not prompt again.
	StatusDenied AuthorizationStatus = "denied"

	// StatusAuthorized means access is granted.
	StatusAuthorized AuthorizationStatus = "authorized"

	// StatusRestricted means system policy (parental controls, MDM) blocks
	// access. The user cannot change it.
	StatusRestricted AuthorizationStatus = "restricted"
)

// Statuses returns the four canonical statuses.
func Statuses() []AuthorizationStatus {
	return []AuthorizationStatus{StatusNotDetermined, StatusDenied, StatusAuthorized, StatusRestricted}
}

// Terminal reports whether a request can no longer change the status.
func (s AuthorizationStatus) Terminal() bool {
	switch s {
	case StatusDenied, StatusAuthorized, StatusRestricted:
		return true
	default:
		return false
	}
}

func (s AuthorizationStatus) String() string {
	return string(s)
}

// ProtectedFolder identifies a user folder guarded by a folder-access prompt.
type ProtectedFolder string

// Protected folders.
const (
	FolderDesktop   ProtectedFolder = "desktop"
	FolderDocuments ProtectedFolder = "documents"
	FolderDownloads ProtectedFolder = "downloads"
)

var folderDirs = map[ProtectedFolder]string{
	FolderDesktop:   "Desktop",
	FolderDocuments: "Documents",
	FolderDownloads: "Downloads",
}

// Folders returns every protected folder in a stable order.
func Folders() []ProtectedFolder {
	return []ProtectedFolder{FolderDesktop, FolderDocuments, FolderDownloads}
}

// ParseProtectedFolder validates a caller-supplied folder identifier.
func ParseProtectedFolder(s string) (ProtectedFolder, error) {
	f := ProtectedFolder(s)
	if _, ok := folderDirs[f]; !ok {
		return "", &InvalidFolderError{Value: s}
	}
	return f, nil
}

// DirName is the folder's directory name under a home directory.
func (f ProtectedFolder) DirName() string {
	return folderDirs[f]
}
