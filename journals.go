package main

import (
	"context"

	"github.com/emersion/go-ical"

	"github.com/wesnick/davctl/pkg/davctl"
)

// journalOutput represents a journal entry for JSON output.
type journalOutput struct {
	UID         string `json:"uid"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Path        string `json:"path,omitempty"`
}

func journalOutputFromObject(obj *davctl.Object) journalOutput {
	return journalOutput{
		UID:         obj.UID(),
		Title:       obj.DisplayName(),
		Description: componentText(obj, ical.PropDescription),
		Path:        obj.Path,
	}
}

func runJournalList(ctx context.Context, conn *davctl.Conn, out *outputWriter) error {
	mgr, err := davctl.NewJournalManager(conn)
	if err != nil {
		return err
	}

	out.writeVerbose("Fetching journal entries...")
	objs, err := mgr.List(ctx, davctl.ListOptions{})
	if err != nil {
		return err
	}

	if out.json {
		output := make([]journalOutput, len(objs))
		for i := range objs {
			output[i] = journalOutputFromObject(&objs[i])
		}
		return out.writeJSON(output)
	}

	if len(objs) == 0 {
		out.writeMessage("No journal entries found.")
		return nil
	}

	headers := []string{"KIND", "TITLE", "UID"}
	rows := make([][]string, len(objs))
	for i := range objs {
		rows[i] = []string{
			string(davctl.KindJournal),
			truncateString(objs[i].Label(), 40),
			objs[i].UID(),
		}
	}
	return out.writeTable(headers, rows)
}

func runJournalAdd(ctx context.Context, conn *davctl.Conn, title, desc string, out *outputWriter) error {
	mgr, err := davctl.NewJournalManager(conn)
	if err != nil {
		return err
	}

	obj, err := mgr.Add(ctx, davctl.Fields{
		Title:       davctl.String(title),
		Description: davctl.String(desc),
	})
	if err != nil {
		return err
	}

	if out.json {
		return out.writeJSON(journalOutputFromObject(obj))
	}
	out.writeSuccess("Added journal %q (UID: %s)", obj.DisplayName(), obj.UID())
	return nil
}

func runJournalUpdate(ctx context.Context, conn *davctl.Conn, uid, find string, title, desc *string, out *outputWriter) error {
	mgr, err := davctl.NewJournalManager(conn)
	if err != nil {
		return err
	}

	target, err := resolveTarget(ctx, mgr, uid, find)
	if err != nil {
		return err
	}

	updated, err := mgr.Update(ctx, target, davctl.Fields{
		Title:       title,
		Description: desc,
	})
	if err != nil {
		return err
	}

	if out.json {
		return out.writeJSON(journalOutputFromObject(updated))
	}
	out.writeSuccess("Updated journal %q", updated.DisplayName())
	return nil
}

func runJournalDelete(ctx context.Context, conn *davctl.Conn, uid, find string, out *outputWriter) error {
	mgr, err := davctl.NewJournalManager(conn)
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
	out.writeSuccess("Deleted journal %q", label)
	return nil
}
