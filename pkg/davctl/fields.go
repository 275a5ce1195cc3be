package davctl

import "time"

// Fields carries the settable properties for add and update calls. A nil
// member means "leave untouched"; a pointer to the zero value writes an
// explicit empty value. Managers apply the members meaningful for their
// kind and ignore the rest.
type Fields struct {
	// Calendar kinds (VEVENT / VTODO / VJOURNAL).
	Title       *string
	Description *string
	Location    *string
	Start       *time.Time
	End         *time.Time

	// Tasks.
	Due             *time.Time
	DateOnly        bool // store Start/Due as DATE values
	Priority        *int
	Status          *string
	PercentComplete *int
	Categories      []string
	URL             *string

	// Contacts.
	Name     *string
	Email    *string
	Phone    *string
	Address  *string
	Org      *string
	JobTitle *string
	Birthday *string
	Note     *string
	Website  *string

	// Socials maps a profile tag (instagram, linkedin, github, twitter)
	// to a handle or URL. Each tag is a singleton: setting one replaces
	// entries carrying that tag and leaves other tags alone.
	Socials map[string]string
}

// String returns a pointer to s, for building Fields literals.
func String(s string) *string { return &s }

// Int returns a pointer to i.
func Int(i int) *int { return &i }

// Time returns a pointer to t.
func Time(t time.Time) *time.Time { return &t }
