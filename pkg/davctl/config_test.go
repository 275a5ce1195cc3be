package davctl

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
)

func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{envUser, envPass, envCalendarURL, envAddressURL, envGoogleCalID} {
		t.Setenv(name, "")
	}
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
}

func TestLoadConfigFromEnv(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv(envUser, "user")
	t.Setenv(envPass, "secret")
	t.Setenv(envCalendarURL, "https://dav.example.com/user/calendar")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Username != "user" || cfg.Password != "secret" {
		t.Errorf("credentials = %q/%q", cfg.Username, cfg.Password)
	}

	url, err := cfg.calendarURL()
	if err != nil {
		t.Fatalf("calendarURL() error = %v", err)
	}
	if url != "https://dav.example.com/user/calendar/" {
		t.Errorf("calendarURL() = %q, want trailing slash added", url)
	}
}

func TestLoadConfigMissingCredentials(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv(envUser, "user")

	_, err := LoadConfig()
	var missing *MissingConfigError
	if !errors.As(err, &missing) {
		t.Fatalf("LoadConfig() error = %v, want MissingConfigError", err)
	}
	if missing.Name != envPass {
		t.Errorf("missing var = %q, want %s", missing.Name, envPass)
	}
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	clearConfigEnv(t)
	dir := os.Getenv("XDG_CONFIG_HOME")
	if err := os.MkdirAll(filepath.Join(dir, "davctl"), 0o700); err != nil {
		t.Fatal(err)
	}
	yaml := []byte("username: fileuser\npassword: filepass\ncalendar_url: https://file.example.com/cal/\n")
	if err := os.WriteFile(filepath.Join(dir, "davctl", "config.yaml"), yaml, 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv(envUser, "envuser")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Username != "envuser" {
		t.Errorf("Username = %q, want env value to win", cfg.Username)
	}
	if cfg.Password != "filepass" {
		t.Errorf("Password = %q, want file value", cfg.Password)
	}
	if cfg.CalendarURL != "https://file.example.com/cal/" {
		t.Errorf("CalendarURL = %q, want file value", cfg.CalendarURL)
	}
}

func TestLazyCollectionURLValidation(t *testing.T) {
	cfg := Config{Username: "user", Password: "secret"}

	if _, err := cfg.calendarURL(); err == nil {
		t.Error("calendarURL() accepted empty URL")
	}
	var missing *MissingConfigError
	_, err := cfg.addressBookURL()
	if !errors.As(err, &missing) || missing.Name != envAddressURL {
		t.Errorf("addressBookURL() error = %v, want MissingConfigError for %s", err, envAddressURL)
	}
	if _, err := cfg.googleCalendarID(); err == nil {
		t.Error("googleCalendarID() accepted empty ID")
	}
}
