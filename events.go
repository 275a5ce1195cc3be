package main

import (
	"context"
	"fmt"

	"github.com/emersion/go-ical"

	"github.com/wesnick/davctl/pkg/davctl"
)

// eventOutput represents an event for JSON output.
type eventOutput struct {
	UID         string `json:"uid"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Location    string `json:"location,omitempty"`
	Start       string `json:"start,omitempty"`
	End         string `json:"end,omitempty"`
	Path        string `json:"path,omitempty"`
}

func eventOutputFromObject(obj *davctl.Object) eventOutput {
	return eventOutput{
		UID:         obj.UID(),
		Title:       obj.DisplayName(),
		Description: componentText(obj, ical.PropDescription),
		Location:    componentText(obj, ical.PropLocation),
		Start:       componentTime(obj, ical.PropDateTimeStart),
		End:         componentTime(obj, ical.PropDateTimeEnd),
		Path:        obj.Path,
	}
}

// resolveTarget locates the object an update/delete refers to, by UID
// when given, otherwise by exact display name.
func resolveTarget(ctx context.Context, mgr davctl.Manager, uid, find string) (*davctl.Object, error) {
	switch {
	case uid != "":
		return mgr.Get(ctx, uid)
	case find != "":
		return davctl.FindByName(ctx, mgr, find)
	default:
		return nil, fmt.Errorf("either --uid or --find is required")
	}
}

// runEventList lists events, optionally windowed by a date range.
func runEventList(ctx context.Context, conn *davctl.Conn, from, to string, out *outputWriter) error {
	mgr, err := davctl.NewEventManager(conn)
	if err != nil {
		return err
	}

	var opts davctl.ListOptions
	if from != "" {
		t, _, err := parseWhen(from)
		if err != nil {
			return err
		}
		opts.Start = t
	}
	if to != "" {
		t, _, err := parseWhen(to)
		if err != nil {
			return err
		}
		opts.End = t
	}

	out.writeVerbose("Fetching events...")
	objs, err := mgr.List(ctx, opts)
	if err != nil {
		return err
	}

	if out.json {
		output := make([]eventOutput, len(objs))
		for i := range objs {
			output[i] = eventOutputFromObject(&objs[i])
		}
		return out.writeJSON(output)
	}

	if len(objs) == 0 {
		out.writeMessage("No events found.")
		return nil
	}

	headers := []string{"KIND", "DATE", "TIME", "TITLE", "UID"}
	rows := make([][]string, len(objs))
	for i := range objs {
		date, timeStr := splitDateTime(&objs[i])
		rows[i] = []string{
			string(davctl.KindEvent),
			date,
			timeStr,
			truncateString(objs[i].Label(), 40),
			objs[i].UID(),
		}
	}
	return out.writeTable(headers, rows)
}

func runEventAdd(ctx context.Context, conn *davctl.Conn, title, desc, location, start, end string, out *outputWriter) error {
	mgr, err := davctl.NewEventManager(conn)
	if err != nil {
		return err
	}

	startT, _, err := parseWhen(start)
	if err != nil {
		return err
	}
	endT, _, err := parseWhen(end)
	if err != nil {
		return err
	}

	f := davctl.Fields{
		Title: davctl.String(title),
		Start: davctl.Time(startT),
		End:   davctl.Time(endT),
	}
	if desc != "" {
		f.Description = davctl.String(desc)
	}
	if location != "" {
		f.Location = davctl.String(location)
	}

	obj, err := mgr.Add(ctx, f)
	if err != nil {
		return err
	}

	if out.json {
		return out.writeJSON(eventOutputFromObject(obj))
	}
	out.writeSuccess("Added event %q (UID: %s)", obj.DisplayName(), obj.UID())
	return nil
}

func runEventUpdate(ctx context.Context, conn *davctl.Conn, uid, find string, f davctl.Fields, out *outputWriter) error {
	mgr, err := davctl.NewEventManager(conn)
	if err != nil {
		return err
	}

	target, err := resolveTarget(ctx, mgr, uid, find)
	if err != nil {
		return err
	}

	updated, err := mgr.Update(ctx, target, f)
	if err != nil {
		return err
	}

	if out.json {
		return out.writeJSON(eventOutputFromObject(updated))
	}
	out.writeSuccess("Updated event %q", updated.DisplayName())
	return nil
}

func runEventDelete(ctx context.Context, conn *davctl.Conn, uid, find string, out *outputWriter) error {
	mgr, err := davctl.NewEventManager(conn)
	if err != nil {
		return err
	}

	target, err := resolveTarget(ctx, mgr, uid, find)
	if err != nil {
		return err
	}
	label := target.DisplayName()

	if err := mgr.Delete(ctx, target); err != nil {
		return err
	}

	if out.json {
		return out.writeJSON(map[string]string{"deleted": target.UID()})
	}
	out.writeSuccess("Deleted event %q", label)
	return nil
}
