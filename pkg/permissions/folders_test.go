package permissions

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/go-drift/macperms/pkg/errors"
)

func TestAskForFoldersAccessInvalid(t *testing.T) {
	rig := newTestRig(t)
	err := rig.broker.AskForFoldersAccess("bad-folder", "")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "bad-folder is not a valid protected folder") {
		t.Errorf("message = %q", err)
	}
	if !stderrors.Is(err, ErrInvalidProtectedFolder) {
		t.Error("error does not match ErrInvalidProtectedFolder")
	}
}

func TestAskForFoldersAccessPackageLevelInvalid(t *testing.T) {
	err := AskForFoldersAccess("bad-type")
	if err == nil || !strings.Contains(err.Error(), "bad-type is not a valid protected folder") {
		t.Errorf("err = %v", err)
	}
}

func TestAskForFoldersAccessProbes(t *testing.T) {
	errs := recordErrors(t)
	rig := newTestRig(t)
	if err := os.Mkdir(filepath.Join(rig.home, "Desktop"), 0o755); err != nil {
		t.Fatal(err)
	}

	if err := rig.broker.AskForFoldersAccess("desktop", ""); err != nil {
		t.Fatalf("existing folder: %v", err)
	}
	if len(errs.kinds()) != 0 {
		t.Errorf("reported %v for a readable folder", errs.kinds())
	}

	// Listing failures are absorbed but still visible to the error handler.
	if err := rig.broker.AskForFoldersAccess("downloads", ""); err != nil {
		t.Fatalf("missing folder: %v", err)
	}
	if !slices.Equal(errs.kinds(), []errors.ErrorKind{errors.KindProbe}) {
		t.Errorf("reported kinds = %v, want one probe error", errs.kinds())
	}
}

func TestFolderPath(t *testing.T) {
	rig := newTestRig(t)
	tests := []struct {
		folder ProtectedFolder
		appID  string
		want   string
	}{
		{FolderDocuments, "", filepath.Join(rig.home, "Documents")},
		{FolderDownloads, "com.example.app", filepath.Join(rig.home, "Library", "Containers", "com.example.app", "Data", "Downloads")},
	}
	for _, tt := range tests {
		got, err := rig.broker.FolderPath(tt.folder, tt.appID)
		if err != nil {
			t.Fatalf("FolderPath: %v", err)
		}
		if got != tt.want {
			t.Errorf("FolderPath(%s, %q) = %q, want %q", tt.folder, tt.appID, got, tt.want)
		}
	}
}

func TestAskForFoldersAccessHomeFailure(t *testing.T) {
	errs := recordErrors(t)
	rig := newTestRig(t, withBroker(WithHomeDir(func() (string, error) {
		return "", stderrors.New("no home")
	})))
	if err := rig.broker.AskForFoldersAccess("documents", ""); err != nil {
		t.Fatalf("err = %v, want nil", err)
	}
	if !slices.Contains(errs.kinds(), errors.KindProbe) {
		t.Error("home failure was not reported")
	}
}

func TestAskForFoldersAccessRejectsAppIDOutsideContainers(t *testing.T) {
	errs := recordErrors(t)
	rig := newTestRig(t)

	for _, appID := range []string{"../..", "com.example/../../etc", "notes"} {
		err := rig.broker.AskForFoldersAccess("documents", appID)
		if !stderrors.Is(err, ErrInvalidAppID) {
			t.Errorf("AskForFoldersAccess(documents, %q) = %v, want ErrInvalidAppID", appID, err)
		}
		if _, err := rig.broker.FolderPath(FolderDocuments, appID); !stderrors.Is(err, ErrInvalidAppID) {
			t.Errorf("FolderPath(documents, %q) = %v, want ErrInvalidAppID", appID, err)
		}
	}
	if len(errs.kinds()) != 0 {
		t.Errorf("rejected app ids reached the probe: %v", errs.kinds())
	}
}

func TestValidateAppID(t *testing.T) {
	for _, id := range []string{"com.apple.Terminal", "org.example.my-app", "a.b"} {
		if err := ValidateAppID(id); err != nil {
			t.Errorf("ValidateAppID(%q): %v", id, err)
		}
	}
	for _, id := range []string{"terminal", "com..app", "com.app!", ".com", "../.."} {
		if err := ValidateAppID(id); !stderrors.Is(err, ErrInvalidAppID) {
			t.Errorf("ValidateAppID(%q) = %v, want ErrInvalidAppID", id, err)
		}
	}
}
