package main

import (
	"context"

	"github.com/emersion/go-ical"

	"github.com/wesnick/davctl/pkg/davctl"
)

// taskOutput represents a task for JSON output.
type taskOutput struct {
	UID             string `json:"uid"`
	Title           string `json:"title"`
	Description     string `json:"description,omitempty"`
	Status          string `json:"status,omitempty"`
	Due             string `json:"due,omitempty"`
	Start           string `json:"start,omitempty"`
	Priority        string `json:"priority,omitempty"`
	PercentComplete string `json:"percentComplete,omitempty"`
	Categories      string `json:"categories,omitempty"`
	Location        string `json:"location,omitempty"`
	URL             string `json:"url,omitempty"`
	Path            string `json:"path,omitempty"`
}

func taskOutputFromObject(obj *davctl.Object) taskOutput {
	return taskOutput{
		UID:             obj.UID(),
		Title:           obj.DisplayName(),
		Description:     componentText(obj, ical.PropDescription),
		Status:          componentText(obj, ical.PropStatus),
		Due:             componentTime(obj, ical.PropDue),
		Start:           componentTime(obj, ical.PropDateTimeStart),
		Priority:        componentText(obj, ical.PropPriority),
		PercentComplete: componentText(obj, ical.PropPercentComplete),
		Categories:      componentText(obj, ical.PropCategories),
		Location:        componentText(obj, ical.PropLocation),
		URL:             componentText(obj, ical.PropURL),
		Path:            obj.Path,
	}
}

// runTaskList lists tasks; completed tasks are hidden unless includeAll.
func runTaskList(ctx context.Context, conn *davctl.Conn, includeAll bool, out *outputWriter) error {
	mgr, err := davctl.NewTaskManager(conn)
	if err != nil {
		return err
	}

	out.writeVerbose("Fetching tasks...")
	objs, err := mgr.List(ctx, davctl.ListOptions{IncludeCompleted: includeAll})
	if err != nil {
		return err
	}

	if out.json {
		output := make([]taskOutput, len(objs))
		for i := range objs {
			output[i] = taskOutputFromObject(&objs[i])
		}
		return out.writeJSON(output)
	}

	if len(objs) == 0 {
		out.writeMessage("No tasks found.")
		return nil
	}

	headers := []string{"KIND", "STATUS", "TITLE", "DUE", "UID"}
	rows := make([][]string, len(objs))
	for i := range objs {
		status := "[ ]"
		if davctl.IsCompleted(&objs[i]) {
			status = "[x]"
		}
		rows[i] = []string{
			string(davctl.KindTask),
			status,
			truncateString(objs[i].Label(), 40),
			componentTime(&objs[i], ical.PropDue),
			objs[i].UID(),
		}
	}
	return out.writeTable(headers, rows)
}

type taskFieldFlags struct {
	Title    *string
	Desc     *string
	Due      *string
	Start    *string
	Priority *int
	Status   *string
	Percent  *int
	Category []string
	Location *string
	URL      *string
}

// fields converts CLI flags into a Fields value, parsing dates.
func (tf taskFieldFlags) fields() (davctl.Fields, error) {
	f := davctl.Fields{
		Title:           tf.Title,
		Description:     tf.Desc,
		Priority:        tf.Priority,
		Status:          tf.Status,
		PercentComplete: tf.Percent,
		Categories:      tf.Category,
		Location:        tf.Location,
		URL:             tf.URL,
	}
	if tf.Due != nil {
		t, dateOnly, err := parseWhen(*tf.Due)
		if err != nil {
			return davctl.Fields{}, err
		}
		f.Due = davctl.Time(t)
		f.DateOnly = dateOnly
	}
	if tf.Start != nil {
		t, dateOnly, err := parseWhen(*tf.Start)
		if err != nil {
			return davctl.Fields{}, err
		}
		f.Start = davctl.Time(t)
		f.DateOnly = f.DateOnly || dateOnly
	}
	return f, nil
}

func runTaskAdd(ctx context.Context, conn *davctl.Conn, flags taskFieldFlags, out *outputWriter) error {
	mgr, err := davctl.NewTaskManager(conn)
	if err != nil {
		return err
	}

	f, err := flags.fields()
	if err != nil {
		return err
	}

	obj, err := mgr.Add(ctx, f)
	if err != nil {
		return err
	}

	if out.json {
		return out.writeJSON(taskOutputFromObject(obj))
	}
	out.writeSuccess("Added task %q (UID: %s)", obj.DisplayName(), obj.UID())
	return nil
}

func runTaskUpdate(ctx context.Context, conn *davctl.Conn, uid, find string, flags taskFieldFlags, out *outputWriter) error {
	mgr, err := davctl.NewTaskManager(conn)
	if err != nil {
		return err
	}

	target, err := resolveTarget(ctx, mgr, uid, find)
	if err != nil {
		return err
	}

	f, err := flags.fields()
	if err != nil {
		return err
	}

	updated, err := mgr.Update(ctx, target, f)
	if err != nil {
		return err
	}

	if out.json {
		return out.writeJSON(taskOutputFromObject(updated))
	}
	out.writeSuccess("Updated task %q", updated.DisplayName())
	return nil
}

func runTaskComplete(ctx context.Context, conn *davctl.Conn, uid, find string, out *outputWriter) error {
	mgr, err := davctl.NewTaskManager(conn)
	if err != nil {
		return err
	}

	target, err := resolveTarget(ctx, mgr, uid, find)
	if err != nil {
		return err
	}

	updated, err := mgr.Complete(ctx, target)
	if err != nil {
		return err
	}

	if out.json {
		return out.writeJSON(taskOutputFromObject(updated))
	}
	out.writeSuccess("Completed task %q", updated.DisplayName())
	return nil
}

func runTaskDelete(ctx context.Context, conn *davctl.Conn, uid, find string, out *outputWriter) error {
	mgr, err := davctl.NewTaskManager(conn)
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
	out.writeSuccess("Deleted task %q", label)
	return nil
}
