package permissions

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-drift/macperms/pkg/errors"
)

// AskForFoldersAccess provokes the folder-access prompt for a protected
// folder by listing it. This is a probe, not a query: it never reports a
// status. Listing failures such as a missing folder or a refusal are
// reported as probe errors and not returned.
//
// A non-empty appID scopes the probe to that application's container.
// Only an invalid folder identifier or app id is returned as an error.
func (b *Broker) AskForFoldersAccess(folder, appID string) error {
	const op = "permissions.AskForFoldersAccess"
	f, err := ParseProtectedFolder(folder)
	if err != nil {
		return &errors.Error{Op: op, Kind: errors.KindValidation, Permission: folder, Err: err}
	}
	if appID != "" {
		if err := ValidateAppID(appID); err != nil {
			return &errors.Error{Op: op, Kind: errors.KindValidation, Permission: folder, Err: err}
		}
	}

	path, err := b.FolderPath(f, appID)
	if err != nil {
		errors.Report(&errors.Error{Op: op, Kind: errors.KindProbe, Permission: folder, Err: err})
		return nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		errors.Report(&errors.Error{Op: op, Kind: errors.KindProbe, Permission: folder, Err: err})
		return nil
	}
	b.logger.Debug("probed protected folder", "folder", f, "path", path, "entries", len(entries))
	return nil
}

// FolderPath returns the directory probed for f. With an appID it is the
// folder inside ~/Library/Containers/<appID>/Data.
func (b *Broker) FolderPath(f ProtectedFolder, appID string) (string, error) {
	if appID != "" {
		if err := ValidateAppID(appID); err != nil {
			return "", err
		}
	}
	home, err := b.home()
	if err != nil {
		return "", err
	}
	if appID != "" {
		return filepath.Join(home, "Library", "Containers", appID, "Data", f.DirName()), nil
	}
	return filepath.Join(home, f.DirName()), nil
}

// ValidateAppID checks that appID looks like a bundle identifier: two or
// more dot-separated segments of letters, digits and hyphens.
func ValidateAppID(appID string) error {
	if !strings.Contains(appID, ".") {
		return fmt.Errorf("%w: %q needs at least one '.'", ErrInvalidAppID, appID)
	}
	for _, segment := range strings.Split(appID, ".") {
		if segment == "" {
			return fmt.Errorf("%w: %q has an empty segment", ErrInvalidAppID, appID)
		}
		for _, r := range segment {
			if !(r == '-' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
				return fmt.Errorf("%w: invalid character %q in %q", ErrInvalidAppID, r, appID)
			}
		}
	}
	return nil
}
