package platform

import (
	"fmt"
	"net/url"
)

// securityPrefsURL is the System Settings deep link for the Security &
// Privacy panes. The pane anchor is appended as the query.
const securityPrefsURL = "x-apple.systempreferences:com.apple.preference.security"

// SystemSettings opens System Settings panes on the host.
var SystemSettings = &SystemSettingsService{
	channel: NewMethodChannel(SettingsChannel),
}

// SystemSettingsService opens URLs and privacy panes through native code.
type SystemSettingsService struct {
	channel *MethodChannel
}

// OpenPane opens the Security & Privacy pane with the given anchor,
// e.g. "Privacy_ScreenCapture".
func (s *SystemSettingsService) OpenPane(pane string) error {
	if pane == "" {
		return fmt.Errorf("settings: empty pane")
	}
	return s.OpenURL(PaneURL(pane))
}

// OpenURL asks the host to open rawURL.
func (s *SystemSettingsService) OpenURL(rawURL string) error {
	if err := validateURL(rawURL); err != nil {
		return err
	}
	_, err := s.channel.Invoke("openURL", map[string]any{
		"url": rawURL,
	})
	return err
}

// PaneURL returns the deep link for a Security & Privacy pane anchor.
func PaneURL(pane string) string {
	return securityPrefsURL + "?" + pane
}

func validateURL(rawURL string) error {
	if rawURL == "" {
		return fmt.Errorf("settings: empty URL")
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("settings: invalid URL: %w", err)
	}
	if u.Scheme == "" {
		return fmt.Errorf("settings: URL missing scheme: %q", rawURL)
	}
	return nil
}
