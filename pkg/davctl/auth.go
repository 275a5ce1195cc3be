package davctl

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

const (
	// DefaultConfigDir is the default location for Google credentials.
	DefaultConfigDir = "~/.config/davctl"

	credentialsFile = "credentials.json"
	tokenFile       = "token.json"
)

// ConfigPaths holds paths to the Google credential files.
type ConfigPaths struct {
	Dir         string
	Credentials string
	Token       string
}

// GetConfigPaths returns the credential paths, expanding ~ if needed.
func GetConfigPaths(configDir string) (*ConfigPaths, error) {
	if configDir == "" {
		configDir = DefaultConfigDir
	}

	if len(configDir) > 0 && configDir[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, errors.Wrap(err, "cannot determine home directory")
		}
		configDir = filepath.Join(home, configDir[1:])
	}

	return &ConfigPaths{
		Dir:         configDir,
		Credentials: filepath.Join(configDir, credentialsFile),
		Token:       filepath.Join(configDir, tokenFile),
	}, nil
}

// newCalendarService builds a Google Calendar service from previously
// saved OAuth credentials. There is no browser flow here: credentials.json
// and token.json must already exist in the config directory.
func newCalendarService(ctx context.Context, configDir string) (*calendar.Service, error) {
	paths, err := GetConfigPaths(configDir)
	if err != nil {
		return nil, err
	}

	credBytes, err := os.ReadFile(paths.Credentials)
	if err != nil {
		return nil, errors.Wrapf(err, "Google credentials not found at %s", paths.Credentials)
	}
	cfg, err := google.ConfigFromJSON(credBytes, calendar.CalendarScope)
	if err != nil {
		return nil, errors.Wrap(err, "parsing Google credentials")
	}

	tokBytes, err := os.ReadFile(paths.Token)
	if err != nil {
		return nil, errors.Wrapf(err, "Google token not found at %s", paths.Token)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(tokBytes, &tok); err != nil {
		return nil, errors.Wrap(err, "parsing Google token")
	}

	svc, err := calendar.NewService(ctx, option.WithHTTPClient(cfg.Client(ctx, &tok)))
	if err != nil {
		return nil, errors.Wrap(err, "creating Google Calendar service")
	}
	return svc, nil
}
