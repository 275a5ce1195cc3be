package davctl

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav/caldav"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const productID = "-//wesnick//davctl//EN"

// collection is the shared CalDAV plumbing behind the event, task and
// journal managers: one calendar collection, one component kind.
type collection struct {
	conn *Conn
	kind Kind

	baseURL  string // collection URL, trailing slash
	basePath string // URL path of the collection, for CalDAV reports
}

func newCollection(conn *Conn, kind Kind) (*collection, error) {
	base, err := conn.cfg.calendarURL()
	if err != nil {
		return nil, err
	}
	u, err := url.Parse(base)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing calendar URL %q", base)
	}
	return &collection{
		conn:     conn,
		kind:     kind,
		baseURL:  base,
		basePath: u.Path,
	}, nil
}

// absURL turns a server-returned href path into an absolute URL.
func (cc *collection) absURL(path string) (string, error) {
	return resolve(cc.baseURL, path)
}

// query runs a calendar-query REPORT scoped to this collection's
// component kind, optionally windowed and optionally filtered by UID.
func (cc *collection) query(ctx context.Context, start, end time.Time, uid string) ([]caldav.CalendarObject, error) {
	client, err := cc.conn.caldav()
	if err != nil {
		return nil, err
	}

	compFilter := caldav.CompFilter{
		Name:  cc.kind.Component(),
		Start: start,
		End:   end,
	}
	if uid != "" {
		compFilter.Props = []caldav.PropFilter{{
			Name:      ical.PropUID,
			TextMatch: &caldav.TextMatch{Text: uid},
		}}
	}
	q := &caldav.CalendarQuery{
		CompFilter: caldav.CompFilter{
			Name:  ical.CompCalendar,
			Comps: []caldav.CompFilter{compFilter},
		},
	}

	objs, err := client.QueryCalendar(ctx, cc.basePath, q)
	if err != nil {
		return nil, errors.Wrap(err, "querying calendar")
	}
	return objs, nil
}

// objects converts query results, keeping only bodies that actually carry
// this collection's component.
func (cc *collection) objects(raw []caldav.CalendarObject) []Object {
	var out []Object
	for i := range raw {
		obj := Object{
			Path:     raw[i].Path,
			ETag:     raw[i].ETag,
			Kind:     cc.kind,
			Calendar: raw[i].Data,
		}
		if obj.Component() == nil {
			continue
		}
		out = append(out, obj)
	}
	return out
}

func (cc *collection) list(ctx context.Context, opts ListOptions) ([]Object, error) {
	raw, err := cc.query(ctx, opts.Start, opts.End, "")
	if err != nil {
		return nil, err
	}
	return cc.objects(raw), nil
}

func (cc *collection) get(ctx context.Context, uid string) (*Object, error) {
	raw, err := cc.query(ctx, time.Time{}, time.Time{}, uid)
	if err != nil {
		return nil, err
	}
	objs := cc.objects(raw)
	switch len(objs) {
	case 0:
		return nil, errors.Wrapf(ErrNotFound, "%s %q", cc.kind, uid)
	case 1:
		return &objs[0], nil
	default:
		return nil, errors.Wrapf(ErrAmbiguous, "%d objects carry UID %q", len(objs), uid)
	}
}

// add writes a fresh component under a new client-generated UID. The PUT
// is create-only, so an existing object at the chosen URL is a Conflict
// rather than a silent overwrite.
func (cc *collection) add(ctx context.Context, build func(comp *ical.Component)) (*Object, error) {
	uid := uuid.NewString()

	comp := ical.NewComponent(cc.kind.Component())
	comp.Props.SetText(ical.PropUID, uid)
	comp.Props.SetDateTime(ical.PropDateTimeStamp, time.Now().UTC())
	build(comp)

	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)
	cal.Children = append(cal.Children, comp)

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return nil, errors.Wrap(err, "encoding calendar object")
	}

	target, err := cc.absURL(uid + ".ics")
	if err != nil {
		return nil, err
	}
	if err := cc.conn.putCreate(ctx, target, ical.MIMEType, buf.Bytes()); err != nil {
		return nil, err
	}
	return cc.get(ctx, uid)
}

// update re-fetches the current body, applies only the supplied fields
// and overwrites the whole object. Concurrent writers race; last write
// wins.
func (cc *collection) update(ctx context.Context, obj *Object, f Fields) (*Object, error) {
	if obj.Kind != cc.kind {
		return nil, &WrongKindError{Want: cc.kind, Got: obj.Kind.Component()}
	}

	client, err := cc.conn.caldav()
	if err != nil {
		return nil, err
	}
	fresh, err := client.GetCalendarObject(ctx, obj.Path)
	if err != nil {
		return nil, errors.Wrapf(err, "fetching %s", obj.Path)
	}

	current := Object{Path: fresh.Path, ETag: fresh.ETag, Kind: cc.kind, Calendar: fresh.Data}
	comp := current.Component()
	if comp == nil {
		return nil, &WrongKindError{Want: cc.kind, Got: primaryComponent(fresh.Data)}
	}

	applyComponentFields(comp, cc.kind, f)
	setDateTimeProp(comp.Props, ical.PropLastModified, time.Now().UTC())

	if _, err := client.PutCalendarObject(ctx, current.Path, current.Calendar); err != nil {
		return nil, errors.Wrapf(err, "writing %s", current.Path)
	}
	return &current, nil
}

func (cc *collection) delete(ctx context.Context, obj *Object) error {
	target, err := cc.absURL(obj.Path)
	if err != nil {
		return err
	}
	return cc.conn.remove(ctx, target)
}

func (cc *collection) summary(ctx context.Context, opts ListOptions) (string, error) {
	objs, err := cc.list(ctx, opts)
	if err != nil {
		return "", err
	}
	if len(objs) == 0 {
		return fmt.Sprintf("No %ss.", cc.kind), nil
	}
	var b strings.Builder
	for i := range objs {
		fmt.Fprintf(&b, "- %s (UID: %s)\n", objs[i].Label(), objs[i].UID())
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

// primaryComponent names the first component of a fetched body, for
// error reporting.
func primaryComponent(cal *ical.Calendar) string {
	if cal == nil || len(cal.Children) == 0 {
		return ""
	}
	return cal.Children[0].Name
}

// applyComponentFields maps supplied fields onto iCalendar properties.
// Existing properties keep their position: the first occurrence is
// overwritten, missing ones are appended. Members that make no sense for
// the kind are ignored.
func applyComponentFields(comp *ical.Component, kind Kind, f Fields) {
	if f.Title != nil {
		setTextProp(comp.Props, ical.PropSummary, *f.Title)
	}
	if f.Description != nil {
		setTextProp(comp.Props, ical.PropDescription, *f.Description)
	}

	switch kind {
	case KindEvent:
		if f.Location != nil {
			setTextProp(comp.Props, ical.PropLocation, *f.Location)
		}
		if f.Start != nil {
			setDateTimeProp(comp.Props, ical.PropDateTimeStart, f.Start.UTC())
		}
		if f.End != nil {
			setDateTimeProp(comp.Props, ical.PropDateTimeEnd, f.End.UTC())
		}
	case KindTask:
		if f.Location != nil {
			setTextProp(comp.Props, ical.PropLocation, *f.Location)
		}
		if f.Start != nil {
			setDateProp(comp.Props, ical.PropDateTimeStart, *f.Start, f.DateOnly)
		}
		if f.Due != nil {
			setDateProp(comp.Props, ical.PropDue, *f.Due, f.DateOnly)
		}
		if f.Priority != nil {
			setTextProp(comp.Props, ical.PropPriority, strconv.Itoa(*f.Priority))
		}
		if f.Status != nil {
			setTextProp(comp.Props, ical.PropStatus, strings.ToUpper(*f.Status))
		}
		if f.PercentComplete != nil {
			setTextProp(comp.Props, ical.PropPercentComplete, strconv.Itoa(*f.PercentComplete))
		}
		if f.Categories != nil {
			setTextProp(comp.Props, ical.PropCategories, strings.Join(f.Categories, ","))
		}
		if f.URL != nil {
			setTextProp(comp.Props, ical.PropURL, *f.URL)
		}
	case KindJournal, KindContact:
		// journals carry only SUMMARY/DESCRIPTION; contacts never get here
	}
}

// setTextProp overwrites the first occurrence of a property, or appends
// it when absent. Repeated occurrences past the first are left alone.
func setTextProp(props ical.Props, name, value string) {
	if p := props.Get(name); p != nil {
		p.SetText(value)
		return
	}
	props.SetText(name, value)
}

func setDateTimeProp(props ical.Props, name string, t time.Time) {
	if p := props.Get(name); p != nil {
		p.SetDateTime(t)
		return
	}
	props.SetDateTime(name, t)
}

func setDateProp(props ical.Props, name string, t time.Time, dateOnly bool) {
	if !dateOnly {
		setDateTimeProp(props, name, t.UTC())
		return
	}
	if p := props.Get(name); p != nil {
		p.SetDate(t)
		return
	}
	props.SetDate(name, t)
}
