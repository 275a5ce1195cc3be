package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/wesnick/davctl/pkg/davctl"
)

type summarySection struct {
	title string
	mgr   davctl.Manager
}

// runSummary prints a compact overview of every configured collection.
// Kinds whose collection URL is not configured are skipped rather than
// failing the whole command.
func runSummary(ctx context.Context, conn *davctl.Conn, out *outputWriter) error {
	var sections []summarySection
	if mgr, err := davctl.NewEventManager(conn); err == nil {
		sections = append(sections, summarySection{"Events", mgr})
	}
	if mgr, err := davctl.NewTaskManager(conn); err == nil {
		sections = append(sections, summarySection{"Tasks", mgr})
	}
	if mgr, err := davctl.NewJournalManager(conn); err == nil {
		sections = append(sections, summarySection{"Journals", mgr})
	}
	if mgr, err := davctl.NewContactManager(conn); err == nil {
		sections = append(sections, summarySection{"Contacts", mgr})
	}
	if len(sections) == 0 {
		return fmt.Errorf("no collection URLs configured")
	}

	if out.json {
		output := make(map[string]string, len(sections))
		for _, s := range sections {
			text, err := s.mgr.Summary(ctx)
			if err != nil {
				return err
			}
			output[strings.ToLower(s.title)] = text
		}
		return out.writeJSON(output)
	}

	for i, s := range sections {
		text, err := s.mgr.Summary(ctx)
		if err != nil {
			return err
		}
		if i > 0 {
			out.writeMessage("")
		}
		out.writeMessage(s.title + ":")
		out.writeMessage(text)
	}
	return nil
}
