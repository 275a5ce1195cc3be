package main

import (
	"context"
	"strings"

	"github.com/wesnick/davctl/pkg/davctl"
)

// inviteOutput reports the patched mirror event for JSON output.
type inviteOutput struct {
	EventID   string   `json:"event_id"`
	ICalUID   string   `json:"ical_uid"`
	Attendees []string `json:"attendees"`
}

func runEventInvite(ctx context.Context, conn *davctl.Conn, configDir, uid, find string, emails []string, sendUpdates string, out *outputWriter) error {
	mgr, err := davctl.NewEventManager(conn)
	if err != nil {
		return err
	}
	target, err := resolveTarget(ctx, mgr, uid, find)
	if err != nil {
		return err
	}

	iv, err := davctl.NewInviterFromConn(ctx, conn, configDir)
	if err != nil {
		return err
	}

	out.writeVerbose("Looking up mirrored event for UID %s...", target.UID())
	updated, err := iv.Invite(ctx, target.UID(), emails, sendUpdates)
	if err != nil {
		return err
	}

	attendees := make([]string, 0, len(updated.Attendees))
	for _, a := range updated.Attendees {
		if a.Email != "" {
			attendees = append(attendees, a.Email)
		}
	}

	if out.json {
		return out.writeJSON(inviteOutput{
			EventID:   updated.Id,
			ICalUID:   updated.ICalUID,
			Attendees: attendees,
		})
	}
	out.writeSuccess("Invited %s to event %s", strings.Join(attendees, ", "), updated.Id)
	return nil
}
