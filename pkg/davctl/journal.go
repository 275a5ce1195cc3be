package davctl

import (
	"context"

	"github.com/emersion/go-ical"
	"github.com/pkg/errors"
)

// JournalManager performs CRUD over VJOURNAL resources in the calendar
// collection.
type JournalManager struct {
	cc *collection
}

func NewJournalManager(conn *Conn) (*JournalManager, error) {
	cc, err := newCollection(conn, KindJournal)
	if err != nil {
		return nil, err
	}
	return &JournalManager{cc: cc}, nil
}

func (m *JournalManager) Kind() Kind { return KindJournal }

func (m *JournalManager) List(ctx context.Context, opts ListOptions) ([]Object, error) {
	return m.cc.list(ctx, opts)
}

func (m *JournalManager) Get(ctx context.Context, uid string) (*Object, error) {
	return m.cc.get(ctx, uid)
}

func (m *JournalManager) Add(ctx context.Context, f Fields) (*Object, error) {
	if f.Title == nil || *f.Title == "" {
		return nil, errors.New("journal title is required")
	}
	return m.cc.add(ctx, func(comp *ical.Component) {
		comp.Props.SetText(ical.PropSummary, *f.Title)
		desc := ""
		if f.Description != nil {
			desc = *f.Description
		}
		comp.Props.SetText(ical.PropDescription, desc)
	})
}

func (m *JournalManager) Update(ctx context.Context, obj *Object, f Fields) (*Object, error) {
	return m.cc.update(ctx, obj, f)
}

func (m *JournalManager) Delete(ctx context.Context, obj *Object) error {
	return m.cc.delete(ctx, obj)
}

func (m *JournalManager) Summary(ctx context.Context) (string, error) {
	return m.cc.summary(ctx, ListOptions{})
}
