package davctl

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Environment variable names, kept from the original deployment.
const (
	envUser        = "RADICALE_USER"
	envPass        = "RADICALE_PASS"
	envCalendarURL = "RADICALE_CAL"
	envAddressURL  = "RADICALE_ADDR"
	envGoogleCalID = "GOOGLE_CALENDAR_ID"
)

// configFileName is the optional YAML config, read from the user config
// directory. Environment variables override it.
const configFileName = "davctl/config.yaml"

// Config holds server credentials and collection URLs. It is threaded
// explicitly into every constructor; nothing reads the environment after
// Load returns.
type Config struct {
	Username         string `yaml:"username"`
	Password         string `yaml:"password"`
	CalendarURL      string `yaml:"calendar_url"`
	AddressBookURL   string `yaml:"addressbook_url"`
	GoogleCalendarID string `yaml:"google_calendar_id"`
}

// LoadConfig reads the optional YAML config file, overlays the
// environment, and validates the credentials. Collection URLs are checked
// lazily by the managers that need them, so a contact command works
// without a calendar URL and vice versa.
func LoadConfig() (Config, error) {
	var cfg Config

	if dir, err := os.UserConfigDir(); err == nil {
		path := filepath.Join(dir, configFileName)
		if raw, err := os.ReadFile(path); err == nil {
			if err := yaml.Unmarshal(raw, &cfg); err != nil {
				return Config{}, errors.Wrapf(err, "parsing %s", path)
			}
		}
	}

	overlay := func(dst *string, env string) {
		if v := os.Getenv(env); v != "" {
			*dst = v
		}
	}
	overlay(&cfg.Username, envUser)
	overlay(&cfg.Password, envPass)
	overlay(&cfg.CalendarURL, envCalendarURL)
	overlay(&cfg.AddressBookURL, envAddressURL)
	overlay(&cfg.GoogleCalendarID, envGoogleCalID)

	if cfg.Username == "" {
		return Config{}, &MissingConfigError{Name: envUser}
	}
	if cfg.Password == "" {
		return Config{}, &MissingConfigError{Name: envPass}
	}
	return cfg, nil
}

// calendarURL returns the calendar collection URL or a MissingConfigError.
func (c Config) calendarURL() (string, error) {
	if c.CalendarURL == "" {
		return "", &MissingConfigError{Name: envCalendarURL}
	}
	return ensureTrailingSlash(c.CalendarURL), nil
}

// addressBookURL returns the address book URL or a MissingConfigError.
func (c Config) addressBookURL() (string, error) {
	if c.AddressBookURL == "" {
		return "", &MissingConfigError{Name: envAddressURL}
	}
	return ensureTrailingSlash(c.AddressBookURL), nil
}

// googleCalendarID returns the mirror calendar ID or a MissingConfigError.
func (c Config) googleCalendarID() (string, error) {
	if c.GoogleCalendarID == "" {
		return "", &MissingConfigError{Name: envGoogleCalID}
	}
	return c.GoogleCalendarID, nil
}

func ensureTrailingSlash(u string) string {
	if len(u) > 0 && u[len(u)-1] != '/' {
		return u + "/"
	}
	return u
}
