package davctl

import (
	"context"

	"github.com/emersion/go-ical"
	"github.com/pkg/errors"
)

// EventManager performs CRUD over VEVENT resources in the calendar
// collection.
type EventManager struct {
	cc *collection
}

func NewEventManager(conn *Conn) (*EventManager, error) {
	cc, err := newCollection(conn, KindEvent)
	if err != nil {
		return nil, err
	}
	return &EventManager{cc: cc}, nil
}

func (m *EventManager) Kind() Kind { return KindEvent }

func (m *EventManager) List(ctx context.Context, opts ListOptions) ([]Object, error) {
	return m.cc.list(ctx, opts)
}

func (m *EventManager) Get(ctx context.Context, uid string) (*Object, error) {
	return m.cc.get(ctx, uid)
}

func (m *EventManager) Add(ctx context.Context, f Fields) (*Object, error) {
	if f.Title == nil || *f.Title == "" {
		return nil, errors.New("event title is required")
	}
	if f.Start == nil || f.End == nil {
		return nil, errors.New("event start and end times are required")
	}
	return m.cc.add(ctx, func(comp *ical.Component) {
		comp.Props.SetText(ical.PropSummary, *f.Title)
		comp.Props.SetDateTime(ical.PropDateTimeStart, f.Start.UTC())
		comp.Props.SetDateTime(ical.PropDateTimeEnd, f.End.UTC())
		if f.Description != nil && *f.Description != "" {
			comp.Props.SetText(ical.PropDescription, *f.Description)
		}
		if f.Location != nil && *f.Location != "" {
			comp.Props.SetText(ical.PropLocation, *f.Location)
		}
	})
}

func (m *EventManager) Update(ctx context.Context, obj *Object, f Fields) (*Object, error) {
	return m.cc.update(ctx, obj, f)
}

func (m *EventManager) Delete(ctx context.Context, obj *Object) error {
	return m.cc.delete(ctx, obj)
}

func (m *EventManager) Summary(ctx context.Context) (string, error) {
	return m.cc.summary(ctx, ListOptions{})
}
