package permissions

import "fmt"

// RawKind names the native encoding a raw status value comes from.
type RawKind int

const (
	RawUnknown RawKind = iota
	// RawAVMedia is AVAuthorizationStatus.
	RawAVMedia
	// RawContacts is CNAuthorizationStatus.
	RawContacts
	// RawEventKit is EKAuthorizationStatus.
	RawEventKit
	// RawPhotos is PHAuthorizationStatus.
	RawPhotos
	// RawBluetooth is CBManagerAuthorization.
	RawBluetooth
	// RawLocation is CLAuthorizationStatus.
	RawLocation
	// RawSpeech is SFSpeechRecognizerAuthorizationStatus.
	RawSpeech
	// RawMusic is SKCloudServiceAuthorizationStatus.
	RawMusic
	// RawInputMonitoring is IOHIDAccessType.
	RawInputMonitoring
	// RawTrust is a boolean trust check encoded as 0 or 1.
	RawTrust
	// RawFileProbe is the outcome of probing protected files.
	RawFileProbe
	// RawTCC is an auth_value column from the privacy database.
	RawTCC
)

var rawKindNames = map[RawKind]string{
	RawAVMedia:         "av-media",
	RawContacts:        "contacts",
	RawEventKit:        "eventkit",
	RawPhotos:          "photos",
	RawBluetooth:       "bluetooth",
	RawLocation:        "location",
	RawSpeech:          "speech",
	RawMusic:           "music",
	RawInputMonitoring: "iohid",
	RawTrust:           "trust",
	RawFileProbe:       "file-probe",
	RawTCC:             "tcc",
}

func (k RawKind) String() string {
	if name, ok := rawKindNames[k]; ok {
		return name
	}
	return "unknown"
}

// RawStatus is a subsystem-specific status value before normalization.
type RawStatus struct {
	Kind  RawKind
	Value int
}

func (r RawStatus) String() string {
	return fmt.Sprintf("%s(%d)", r.Kind, r.Value)
}

// File probe outcomes.
const (
	probeMissing  = 0
	probeDenied   = 1
	probeReadable = 2
)

var (
	nd = StatusNotDetermined
	dn = StatusDenied
	au = StatusAuthorized
	rs = StatusRestricted
)

// normalization holds the fixed lookup per raw encoding.
var normalization = map[RawKind]map[int]AuthorizationStatus{
	RawAVMedia:  {0: nd, 1: rs, 2: dn, 3: au},
	RawContacts: {0: nd, 1: rs, 2: dn, 3: au, 4: au},
	// 4 is write-only calendar access; a full-access request can still prompt.
	RawEventKit: {0: nd, 1: rs, 2: dn, 3: au, 4: nd},
	// 4 is limited library access.
	RawPhotos:    {0: nd, 1: rs, 2: dn, 3: au, 4: au},
	RawBluetooth: {0: nd, 1: rs, 2: dn, 3: au},
	// 3 is always, 4 is when-in-use.
	RawLocation:        {0: nd, 1: rs, 2: dn, 3: au, 4: au},
	RawSpeech:          {0: nd, 1: dn, 2: rs, 3: au},
	RawMusic:           {0: nd, 1: dn, 2: rs, 3: au},
	RawInputMonitoring: {0: au, 1: dn, 2: nd},
	RawTrust:           {0: dn, 1: au},
	RawFileProbe:       {probeMissing: nd, probeDenied: dn, probeReadable: au},
	// 3 is limited.
	RawTCC: {0: dn, 1: nd, 2: au, 3: au},
}

// rawKinds is the native encoding each permission type reports in.
var rawKinds = map[PermissionType]RawKind{
	Accessibility:     RawTrust,
	Bluetooth:         RawBluetooth,
	Calendar:          RawEventKit,
	Camera:            RawAVMedia,
	Contacts:          RawContacts,
	FullDiskAccess:    RawFileProbe,
	InputMonitoring:   RawInputMonitoring,
	Location:          RawLocation,
	Microphone:        RawAVMedia,
	MusicLibrary:      RawMusic,
	PhotosAddOnly:     RawPhotos,
	PhotosReadWrite:   RawPhotos,
	Reminders:         RawEventKit,
	SpeechRecognition: RawSpeech,
	Screen:            RawTrust,
}

// RawKindOf returns the native encoding used by t.
func RawKindOf(t PermissionType) RawKind {
	return rawKinds[t]
}

// Normalize maps a raw status reported for t to its canonical status.
// Privacy database values (RawTCC) are accepted for every type. Any other
// encoding must match the type's own, and every value must be in the
// table; anything else is a *ContractViolationError.
func Normalize(t PermissionType, raw RawStatus) (AuthorizationStatus, error) {
	if raw.Kind != RawTCC && raw.Kind != rawKinds[t] {
		return "", &ContractViolationError{Type: t, Raw: raw}
	}
	status, ok := normalization[raw.Kind][raw.Value]
	if !ok {
		return "", &ContractViolationError{Type: t, Raw: raw}
	}
	return status, nil
}
