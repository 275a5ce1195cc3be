package davctl

import (
	"context"
	"strings"

	"github.com/emersion/go-ical"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"google.golang.org/api/calendar/v3"
)

// Inviter patches attendee lists on the Google Calendar mirror of a
// CalDAV event. Events correlate by iCalUID: the VEVENT UID travels with
// the event when a sync pass mirrors it to Google.
type Inviter struct {
	svc        *calendar.Service
	calendarID string
	events     *EventManager
}

func NewInviter(svc *calendar.Service, calendarID string, events *EventManager) *Inviter {
	return &Inviter{svc: svc, calendarID: calendarID, events: events}
}

// NewInviterFromConn wires an Inviter from a connection: the target
// calendar ID comes from configuration and the Google service is loaded
// from configDir unless the connection already carries one.
func NewInviterFromConn(ctx context.Context, conn *Conn, configDir string) (*Inviter, error) {
	calendarID, err := conn.cfg.googleCalendarID()
	if err != nil {
		return nil, err
	}
	svc, err := conn.CalendarService(ctx, configDir)
	if err != nil {
		return nil, err
	}
	events, err := NewEventManager(conn)
	if err != nil {
		return nil, err
	}
	return NewInviter(svc, calendarID, events), nil
}

// Invite adds attendees to the mirrored copy of the event carrying uid
// and asks Google to notify them. Exactly one mirror must exist: zero
// matches means the event has not synced yet (ErrNotMirrored, retry after
// a sync pass), more than one is an ambiguous mirror state that is never
// auto-resolved. The same attendees are then appended to the local VEVENT
// so a later re-mirroring pass doesn't drop them and fire cancellation
// notices; failures there are logged and swallowed.
func (iv *Inviter) Invite(ctx context.Context, uid string, emails []string, sendUpdates string) (*calendar.Event, error) {
	cleaned := dedupEmails(emails)
	if len(cleaned) == 0 {
		return nil, errors.New("no attendee emails provided")
	}
	if sendUpdates == "" {
		sendUpdates = "all"
	}

	resp, err := iv.svc.Events.List(iv.calendarID).
		ICalUID(uid).
		MaxResults(10).
		SingleEvents(false).
		Context(ctx).Do()
	if err != nil {
		return nil, errors.Wrapf(err, "looking up iCalUID %q", uid)
	}

	switch {
	case len(resp.Items) == 0:
		return nil, errors.Wrapf(ErrNotMirrored, "iCalUID %q", uid)
	case len(resp.Items) > 1:
		ids := make([]string, len(resp.Items))
		for i, it := range resp.Items {
			ids[i] = it.Id
		}
		return nil, errors.Wrapf(ErrMirrorAmbiguous, "iCalUID %q matches %s", uid, strings.Join(ids, ", "))
	}

	event := resp.Items[0]
	merged := mergeAttendees(event.Attendees, cleaned)

	updated, err := iv.svc.Events.Patch(iv.calendarID, event.Id, &calendar.Event{
		Attendees: merged,
	}).SendUpdates(sendUpdates).Context(ctx).Do()
	if err != nil {
		return nil, errors.Wrapf(err, "patching event %s", event.Id)
	}

	if err := iv.appendLocalAttendees(ctx, uid, cleaned); err != nil {
		log.WithError(err).WithField("uid", uid).
			Warn("could not record attendees on the local event")
	}
	return updated, nil
}

// mergeAttendees appends the new emails to the existing attendee list,
// deduplicated case-insensitively and order-preserving.
func mergeAttendees(existing []*calendar.EventAttendee, emails []string) []*calendar.EventAttendee {
	seen := make(map[string]bool, len(existing))
	merged := make([]*calendar.EventAttendee, 0, len(existing)+len(emails))
	for _, a := range existing {
		merged = append(merged, a)
		if a.Email != "" {
			seen[strings.ToLower(a.Email)] = true
		}
	}
	for _, e := range emails {
		if seen[strings.ToLower(e)] {
			continue
		}
		seen[strings.ToLower(e)] = true
		merged = append(merged, &calendar.EventAttendee{Email: e})
	}
	return merged
}

// dedupEmails trims, drops empties and removes case-insensitive
// duplicates while keeping the caller's order.
func dedupEmails(emails []string) []string {
	seen := make(map[string]bool, len(emails))
	var out []string
	for _, e := range emails {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		key := strings.ToLower(e)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, e)
	}
	return out
}

// appendLocalAttendees mirrors the invited emails onto the local VEVENT's
// ATTENDEE properties, with the same dedup rule.
func (iv *Inviter) appendLocalAttendees(ctx context.Context, uid string, emails []string) error {
	obj, err := iv.events.Get(ctx, uid)
	if err != nil {
		return err
	}
	comp := obj.Component()
	if comp == nil {
		return &WrongKindError{Want: KindEvent, Got: primaryComponent(obj.Calendar)}
	}

	present := make(map[string]bool)
	for _, prop := range comp.Props[ical.PropAttendee] {
		present[strings.ToLower(attendeeEmail(prop.Value))] = true
	}

	changed := false
	for _, e := range emails {
		if present[strings.ToLower(e)] {
			continue
		}
		present[strings.ToLower(e)] = true
		prop := ical.NewProp(ical.PropAttendee)
		prop.Value = "mailto:" + e
		comp.Props.Add(prop)
		changed = true
	}
	if !changed {
		return nil
	}

	client, err := iv.events.cc.conn.caldav()
	if err != nil {
		return err
	}
	if _, err := client.PutCalendarObject(ctx, obj.Path, obj.Calendar); err != nil {
		return errors.Wrapf(err, "writing %s", obj.Path)
	}
	return nil
}

// attendeeEmail strips the mailto: scheme off an ATTENDEE value.
func attendeeEmail(value string) string {
	return strings.TrimPrefix(strings.TrimSpace(value), "mailto:")
}
