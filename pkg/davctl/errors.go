package davctl

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrNotFound means a lookup by UID or display name matched nothing.
	ErrNotFound = errors.New("not found")

	// ErrAmbiguous means a lookup matched more than one resource.
	ErrAmbiguous = errors.New("ambiguous match")

	// ErrConflict means a create-only write found an object already
	// present at the target URL.
	ErrConflict = errors.New("object already exists")

	// ErrNotMirrored means no Google event carries the requested iCalUID.
	// The event may simply not have synced yet.
	ErrNotMirrored = errors.New("event not mirrored to Google Calendar")

	// ErrMirrorAmbiguous means several Google events carry the same
	// iCalUID. Never auto-resolved.
	ErrMirrorAmbiguous = errors.New("multiple mirrored events for iCalUID")
)

// MissingConfigError reports a required configuration value that was not
// supplied by the environment or the config file.
type MissingConfigError struct {
	Name string
}

func (e *MissingConfigError) Error() string {
	return fmt.Sprintf("environment variable %s is not set", e.Name)
}

// WrongKindError reports a fetched body whose primary component does not
// match the manager's kind.
type WrongKindError struct {
	Want Kind
	Got  string
}

func (e *WrongKindError) Error() string {
	if e.Got == "" {
		return fmt.Sprintf("resource is not a %s", e.Want.Component())
	}
	return fmt.Sprintf("resource is %s, not %s", e.Got, e.Want.Component())
}

// StatusError reports a non-success HTTP response from the DAV server.
type StatusError struct {
	Method string
	URL    string
	Code   int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: server returned %d", e.Method, e.URL, e.Code)
}
