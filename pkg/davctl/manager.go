package davctl

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/emersion/go-vcard"
)

// ListOptions narrows a listing. Zero values mean "everything".
type ListOptions struct {
	// Start and End window calendar kinds by date range.
	Start time.Time
	End   time.Time

	// IncludeCompleted keeps completed tasks in task listings.
	IncludeCompleted bool

	// Limit caps contact listings, which cost one request per contact.
	Limit int
}

// Manager is the uniform CRUD contract implemented once per resource kind.
type Manager interface {
	Kind() Kind
	List(ctx context.Context, opts ListOptions) ([]Object, error)
	Get(ctx context.Context, uid string) (*Object, error)
	Add(ctx context.Context, f Fields) (*Object, error)
	Update(ctx context.Context, obj *Object, f Fields) (*Object, error)
	Delete(ctx context.Context, obj *Object) error
	Summary(ctx context.Context) (string, error)
}

var angleEmailRe = regexp.MustCompile(`^\s*(.*?)\s*<\s*([^>]+)\s*>\s*$`)

// splitNameEmail splits "Ada Lovelace <ada@example.com>" into name and
// email. A plain name comes back with an empty email.
func splitNameEmail(s string) (name, email string) {
	if m := angleEmailRe.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1]), strings.TrimSpace(m[2])
	}
	return strings.TrimSpace(s), ""
}

// FindByName fetches the full listing and returns the first resource whose
// display name equals the query exactly (case-sensitive). Duplicate names
// resolve to the first match in listing order. Contacts may additionally be
// addressed as "Name <email>", which also requires the email to match.
func FindByName(ctx context.Context, m Manager, query string) (*Object, error) {
	wantName, wantEmail := splitNameEmail(query)
	if m.Kind() != KindContact {
		wantName, wantEmail = query, ""
	}

	// scan everything: a completed task is still addressable by name
	objs, err := m.List(ctx, ListOptions{IncludeCompleted: true})
	if err != nil {
		return nil, err
	}

	for i := range objs {
		obj := &objs[i]
		if obj.DisplayName() != wantName {
			continue
		}
		if wantEmail != "" {
			email := strings.TrimSpace(obj.Card.Value(vcard.FieldEmail))
			if !strings.EqualFold(email, wantEmail) {
				continue
			}
		}
		return obj, nil
	}
	return nil, ErrNotFound
}
