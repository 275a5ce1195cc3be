package davctl

import (
	"context"
	"strconv"
	"strings"

	"github.com/emersion/go-ical"
	"github.com/pkg/errors"
)

const defaultTaskPriority = 5

// TaskManager performs CRUD over VTODO resources in the calendar
// collection. Completed tasks are hidden from listings unless asked for.
type TaskManager struct {
	cc *collection
}

func NewTaskManager(conn *Conn) (*TaskManager, error) {
	cc, err := newCollection(conn, KindTask)
	if err != nil {
		return nil, err
	}
	return &TaskManager{cc: cc}, nil
}

func (m *TaskManager) Kind() Kind { return KindTask }

func (m *TaskManager) List(ctx context.Context, opts ListOptions) ([]Object, error) {
	objs, err := m.cc.list(ctx, opts)
	if err != nil {
		return nil, err
	}
	if opts.IncludeCompleted {
		return objs, nil
	}
	open := objs[:0]
	for i := range objs {
		if !IsCompleted(&objs[i]) {
			open = append(open, objs[i])
		}
	}
	return open, nil
}

func (m *TaskManager) Get(ctx context.Context, uid string) (*Object, error) {
	return m.cc.get(ctx, uid)
}

func (m *TaskManager) Add(ctx context.Context, f Fields) (*Object, error) {
	if f.Title == nil || *f.Title == "" {
		return nil, errors.New("task title is required")
	}
	return m.cc.add(ctx, func(comp *ical.Component) {
		comp.Props.SetText(ical.PropSummary, *f.Title)

		priority := defaultTaskPriority
		if f.Priority != nil {
			priority = *f.Priority
		}
		comp.Props.SetText(ical.PropPriority, strconv.Itoa(priority))

		if f.Description != nil && *f.Description != "" {
			comp.Props.SetText(ical.PropDescription, *f.Description)
		}
		if f.Due != nil {
			setDateProp(comp.Props, ical.PropDue, *f.Due, f.DateOnly)
		}
		if f.Start != nil {
			setDateProp(comp.Props, ical.PropDateTimeStart, *f.Start, f.DateOnly)
		}
		if f.Status != nil && *f.Status != "" {
			comp.Props.SetText(ical.PropStatus, strings.ToUpper(*f.Status))
		}
		if f.PercentComplete != nil {
			comp.Props.SetText(ical.PropPercentComplete, strconv.Itoa(*f.PercentComplete))
		}
		if f.Categories != nil {
			comp.Props.SetText(ical.PropCategories, strings.Join(f.Categories, ","))
		}
		if f.Location != nil && *f.Location != "" {
			comp.Props.SetText(ical.PropLocation, *f.Location)
		}
		if f.URL != nil && *f.URL != "" {
			comp.Props.SetText(ical.PropURL, *f.URL)
		}
	})
}

func (m *TaskManager) Update(ctx context.Context, obj *Object, f Fields) (*Object, error) {
	return m.cc.update(ctx, obj, f)
}

// Complete marks a task done: STATUS:COMPLETED plus PERCENT-COMPLETE:100.
func (m *TaskManager) Complete(ctx context.Context, obj *Object) (*Object, error) {
	return m.Update(ctx, obj, Fields{
		Status:          String("COMPLETED"),
		PercentComplete: Int(100),
	})
}

func (m *TaskManager) Delete(ctx context.Context, obj *Object) error {
	return m.cc.delete(ctx, obj)
}

func (m *TaskManager) Summary(ctx context.Context) (string, error) {
	return m.cc.summary(ctx, ListOptions{})
}

// IsCompleted reports STATUS:COMPLETED or PERCENT-COMPLETE:100.
func IsCompleted(obj *Object) bool {
	comp := obj.Component()
	if comp == nil {
		return false
	}
	if p := comp.Props.Get(ical.PropStatus); p != nil && strings.EqualFold(p.Value, "COMPLETED") {
		return true
	}
	if p := comp.Props.Get(ical.PropPercentComplete); p != nil && strings.TrimSpace(p.Value) == "100" {
		return true
	}
	return false
}
