package main

import (
	"context"

	"github.com/emersion/go-vcard"

	"github.com/wesnick/davctl/pkg/davctl"
)

// contactOutput represents a contact for JSON output.
type contactOutput struct {
	UID      string            `json:"uid"`
	Name     string            `json:"name"`
	Email    string            `json:"email,omitempty"`
	Phone    string            `json:"phone,omitempty"`
	Org      string            `json:"org,omitempty"`
	JobTitle string            `json:"title,omitempty"`
	Address  string            `json:"address,omitempty"`
	Birthday string            `json:"birthday,omitempty"`
	Note     string            `json:"note,omitempty"`
	Website  string            `json:"website,omitempty"`
	Socials  map[string]string `json:"socials,omitempty"`
	Path     string            `json:"path,omitempty"`
}

var socialTags = []string{"instagram", "twitter", "linkedin", "github"}

func contactOutputFromObject(obj *davctl.Object) contactOutput {
	out := contactOutput{
		UID:      obj.UID(),
		Name:     obj.DisplayName(),
		Email:    davctl.CardValue(obj.Card, vcard.FieldEmail),
		Phone:    davctl.CardValue(obj.Card, vcard.FieldTelephone),
		Org:      davctl.CardValue(obj.Card, vcard.FieldOrganization),
		JobTitle: davctl.CardValue(obj.Card, vcard.FieldTitle),
		Address:  davctl.CardValue(obj.Card, vcard.FieldAddress),
		Birthday: davctl.CardValue(obj.Card, vcard.FieldBirthday),
		Note:     davctl.CardValue(obj.Card, vcard.FieldNote),
		Website:  davctl.CardValue(obj.Card, vcard.FieldURL),
		Path:     obj.Path,
	}
	for _, tag := range socialTags {
		if u := davctl.SocialProfile(obj.Card, tag); u != "" {
			if out.Socials == nil {
				out.Socials = make(map[string]string)
			}
			out.Socials[tag] = u
		}
	}
	return out
}

// contactFieldFlags carries the optional per-field flags shared by contact
// add and update. Pointer types separate "flag absent" from "flag set to
// the empty string", which clears the stored value.
type contactFieldFlags struct {
	Email     *string
	Phone     *string
	Org       *string
	JobTitle  *string
	Address   *string
	Birthday  *string
	Note      *string
	Website   *string
	Instagram *string
	Twitter   *string
	LinkedIn  *string
	GitHub    *string
}

func (f *contactFieldFlags) fields() davctl.Fields {
	out := davctl.Fields{
		Email:    f.Email,
		Phone:    f.Phone,
		Org:      f.Org,
		JobTitle: f.JobTitle,
		Address:  f.Address,
		Birthday: f.Birthday,
		Note:     f.Note,
		Website:  f.Website,
	}
	socials := map[string]*string{
		"instagram": f.Instagram,
		"twitter":   f.Twitter,
		"linkedin":  f.LinkedIn,
		"github":    f.GitHub,
	}
	for tag, v := range socials {
		if v == nil {
			continue
		}
		if out.Socials == nil {
			out.Socials = make(map[string]string)
		}
		out.Socials[tag] = *v
	}
	return out
}

func runContactList(ctx context.Context, conn *davctl.Conn, limit int, out *outputWriter) error {
	mgr, err := davctl.NewContactManager(conn)
	if err != nil {
		return err
	}

	out.writeVerbose("Fetching contacts...")
	objs, err := mgr.List(ctx, davctl.ListOptions{Limit: limit})
	if err != nil {
		return err
	}

	if out.json {
		output := make([]contactOutput, len(objs))
		for i := range objs {
			output[i] = contactOutputFromObject(&objs[i])
		}
		return out.writeJSON(output)
	}

	if len(objs) == 0 {
		out.writeMessage("No contacts found.")
		return nil
	}

	headers := []string{"NAME", "EMAIL", "PHONE", "UID"}
	rows := make([][]string, len(objs))
	for i := range objs {
		rows[i] = []string{
			truncateString(objs[i].DisplayName(), 30),
			truncateString(davctl.CardValue(objs[i].Card, vcard.FieldEmail), 30),
			davctl.CardValue(objs[i].Card, vcard.FieldTelephone),
			objs[i].UID(),
		}
	}
	return out.writeTable(headers, rows)
}

func runContactAdd(ctx context.Context, conn *davctl.Conn, name string, flags *contactFieldFlags, out *outputWriter) error {
	mgr, err := davctl.NewContactManager(conn)
	if err != nil {
		return err
	}

	f := flags.fields()
	f.Name = davctl.String(name)
	obj, err := mgr.Add(ctx, f)
	if err != nil {
		return err
	}

	if out.json {
		return out.writeJSON(contactOutputFromObject(obj))
	}
	out.writeSuccess("Added contact %q (UID: %s)", obj.DisplayName(), obj.UID())
	return nil
}

func runContactUpdate(ctx context.Context, conn *davctl.Conn, uid, find string, name *string, flags *contactFieldFlags, out *outputWriter) error {
	mgr, err := davctl.NewContactManager(conn)
	if err != nil {
		return err
	}

	target, err := resolveTarget(ctx, mgr, uid, find)
	if err != nil {
		return err
	}

	f := flags.fields()
	f.Name = name
	updated, err := mgr.Update(ctx, target, f)
	if err != nil {
		return err
	}

	if out.json {
		return out.writeJSON(contactOutputFromObject(updated))
	}
	out.writeSuccess("Updated contact %q", updated.DisplayName())
	return nil
}

func runContactDelete(ctx context.Context, conn *davctl.Conn, uid, find string, out *outputWriter) error {
	mgr, err := davctl.NewContactManager(conn)
	if err != nil {
		return err
	}

	target, err := resolveTarget(ctx, mgr, uid, find)
	if err != nil {
		return err
	}
	label := target.Label()

	if err := mgr.Delete(ctx, target); err != nil {
		return err
	}

	if out.json {
		return out.writeJSON(map[string]string{"deleted": target.UID()})
	}
	out.writeSuccess("Deleted contact %s", label)
	return nil
}
