package platform

import (
	"fmt"
	"testing"
)

func TestSystemSettingsInitialization(t *testing.T) {
	if SystemSettings == nil {
		t.Fatal("SystemSettings service is nil")
	}
	if SystemSettings.channel.Name() != "macperms/settings" {
		t.Errorf("expected channel name %q, got %q", "macperms/settings", SystemSettings.channel.Name())
	}
}

// recordingBridge records the last call and returns a canned response or error.
type recordingBridge struct {
	response any
	err      error

	channel string
	method  string
	args    map[string]any
}

func (b *recordingBridge) InvokeMethod(channel, method string, args []byte) ([]byte, error) {
	b.channel, b.method = channel, method
	decoded, _ := DefaultCodec.Decode(args)
	b.args = ParseMap(decoded)
	if b.err != nil {
		return nil, b.err
	}
	return DefaultCodec.Encode(b.response)
}
func (b *recordingBridge) StartEventStream(string) error { return nil }
func (b *recordingBridge) StopEventStream(string) error  { return nil }

func TestOpenPane(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		bridge := &recordingBridge{}
		SetNativeBridge(bridge)
		t.Cleanup(ResetForTest)

		if err := SystemSettings.OpenPane("Privacy_ScreenCapture"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if bridge.method != "openURL" {
			t.Errorf("method = %q, want openURL", bridge.method)
		}
		want := "x-apple.systempreferences:com.apple.preference.security?Privacy_ScreenCapture"
		if got := ParseString(bridge.args["url"]); got != want {
			t.Errorf("url = %q, want %q", got, want)
		}
	})

	t.Run("bridge error", func(t *testing.T) {
		SetNativeBridge(&recordingBridge{err: fmt.Errorf("no handler")})
		t.Cleanup(ResetForTest)

		if err := SystemSettings.OpenPane("Privacy_AllFiles"); err == nil {
			t.Fatal("expected error, got nil")
		}
	})

	t.Run("empty pane", func(t *testing.T) {
		SetupTestBridge(t.Cleanup)
		if err := SystemSettings.OpenPane(""); err == nil {
			t.Fatal("expected error for empty pane")
		}
	})

	t.Run("no bridge", func(t *testing.T) {
		ResetForTest()
		if err := SystemSettings.OpenPane("Privacy_AllFiles"); err != ErrPlatformUnavailable {
			t.Fatalf("err = %v, want ErrPlatformUnavailable", err)
		}
	})
}

func TestURLValidation(t *testing.T) {
	SetupTestBridge(t.Cleanup)

	for _, raw := range []string{"", "example.com"} {
		if err := SystemSettings.OpenURL(raw); err == nil {
			t.Errorf("OpenURL(%q): expected error for invalid URL", raw)
		}
	}
}
