package davctl

import (
	"fmt"
	"strings"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-vcard"
)

// Kind is the resource kind a manager operates on.
type Kind string

const (
	KindEvent   Kind = "event"
	KindTask    Kind = "task"
	KindJournal Kind = "journal"
	KindContact Kind = "contact"
)

// Component returns the iCalendar component name for calendar kinds, or
// "" for contacts.
func (k Kind) Component() string {
	switch k {
	case KindEvent:
		return ical.CompEvent
	case KindTask:
		return ical.CompToDo
	case KindJournal:
		return ical.CompJournal
	case KindContact:
		return ""
	}
	return ""
}

// Object is a remote resource. Exactly one of Calendar or Card is set,
// matching Kind.
type Object struct {
	Path string
	ETag string
	Kind Kind

	Calendar *ical.Calendar
	Card     vcard.Card
}

// Component returns the primary component of a calendar-kind object, or
// nil when the body does not carry one of the expected kind.
func (o *Object) Component() *ical.Component {
	if o.Calendar == nil {
		return nil
	}
	want := o.Kind.Component()
	for _, child := range o.Calendar.Children {
		if child.Name == want {
			return child
		}
	}
	return nil
}

// UID returns the embedded unique identifier.
func (o *Object) UID() string {
	switch o.Kind {
	case KindEvent, KindTask, KindJournal:
		if comp := o.Component(); comp != nil {
			if prop := comp.Props.Get(ical.PropUID); prop != nil {
				return prop.Value
			}
		}
		return ""
	case KindContact:
		if o.Card == nil {
			return ""
		}
		return strings.TrimSpace(o.Card.Value(vcard.FieldUID))
	}
	return ""
}

// DisplayName returns the label used for lookup-by-name: SUMMARY for
// calendar kinds, FN for contacts.
func (o *Object) DisplayName() string {
	switch o.Kind {
	case KindEvent, KindTask, KindJournal:
		if comp := o.Component(); comp != nil {
			if prop := comp.Props.Get(ical.PropSummary); prop != nil {
				return prop.Value
			}
		}
		return ""
	case KindContact:
		if o.Card == nil {
			return ""
		}
		return strings.TrimSpace(o.Card.Value(vcard.FieldFormattedName))
	}
	return ""
}

// Label is the human-readable listing form. Contacts with an email render
// as "Name <email>"; everything else is the display name.
func (o *Object) Label() string {
	name := o.DisplayName()
	if name == "" {
		name = "(unnamed)"
	}
	if o.Kind == KindContact {
		if email := strings.TrimSpace(o.Card.Value(vcard.FieldEmail)); email != "" {
			return fmt.Sprintf("%s <%s>", name, email)
		}
	}
	return name
}
