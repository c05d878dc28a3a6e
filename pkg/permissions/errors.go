package permissions

import (
	"errors"
	"fmt"
)

// Sentinel errors. Use errors.Is to match them through the wrapping
// applied at the broker boundary.
var (
	// ErrInvalidPermissionType is matched by errors for unknown permission types.
	ErrInvalidPermissionType = errors.New("invalid permission type")

	// ErrInvalidProtectedFolder is matched by errors for unknown protected folders.
	ErrInvalidProtectedFolder = errors.New("invalid protected folder")

	// ErrContractViolation is matched when the OS returns a raw status the
	// normalizer cannot map.
	ErrContractViolation = errors.New("os contract violation")

	// ErrSubsystemUnavailable indicates the subsystem is not present on this
	// OS or cannot answer the question asked.
	ErrSubsystemUnavailable = errors.New("subsystem unavailable")

	// ErrTimeout indicates the caller stopped waiting before the user answered.
	// The OS request itself is not withdrawn.
	ErrTimeout = errors.New("permission request timed out")

	// ErrCanceled indicates the caller's context was canceled while waiting.
	ErrCanceled = errors.New("permission request was canceled")

	// ErrPending is returned by Pending.Result before the request resolves.
	ErrPending = errors.New("permission request is still pending")

	// ErrRequestExpired completes a native request the OS never answered.
	ErrRequestExpired = errors.New("permission request expired without an answer")

	// ErrInvalidAppID is matched by errors for malformed application ids.
	ErrInvalidAppID = errors.New("invalid app id")
)

// InvalidTypeError reports an identifier outside the PermissionType set.
type InvalidTypeError struct {
	Value string
}

func (e *InvalidTypeError) Error() string {
	return e.Value + " is not a valid type"
}

func (e *InvalidTypeError) Is(target error) bool {
	return target == ErrInvalidPermissionType
}

// InvalidFolderError reports an identifier outside the ProtectedFolder set.
type InvalidFolderError struct {
	Value string
}

func (e *InvalidFolderError) Error() string {
	return e.Value + " is not a valid protected folder"
}

func (e *InvalidFolderError) Is(target error) bool {
	return target == ErrInvalidProtectedFolder
}

// ContractViolationError reports a raw status with no canonical mapping.
type ContractViolationError struct {
	Type PermissionType
	Raw  RawStatus
}

func (e *ContractViolationError) Error() string {
	return fmt.Sprintf("%s: unmapped raw status %s", e.Type, e.Raw)
}

func (e *ContractViolationError) Is(target error) bool {
	return target == ErrContractViolation
}
