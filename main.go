package main

import (
	"context"
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	log "github.com/sirupsen/logrus"

	"github.com/wesnick/davctl/pkg/davctl"
)

var version = "dev"

type CLI struct {
	Config  string `help:"Google credential directory path" default:"~/.config/davctl" type:"path"`
	URL     string `help:"Override the collection URL for this invocation"`
	JSON    bool   `help:"JSON output format"`
	Verbose bool   `help:"Verbose logging"`
	NoColor bool   `help:"Disable colored output"`

	Version struct{} `cmd:"" help:"Show version"`
	Summary struct{} `cmd:"" help:"Overview of all configured collections"`

	Event struct {
		List struct {
			From string `help:"Window start (YYYY-MM-DD, YYYY-MM-DD HH:MM or RFC3339)"`
			To   string `help:"Window end"`
		} `cmd:"" help:"List events"`

		Add struct {
			Title    string `required:"" help:"Event title"`
			Start    string `required:"" help:"Start time"`
			End      string `required:"" help:"End time"`
			Desc     string `help:"Description"`
			Location string `help:"Location"`
		} `cmd:"" help:"Add an event"`

		Update struct {
			UID      string  `help:"Event UID"`
			Find     string  `help:"Find by exact title"`
			Title    *string `help:"New title"`
			Desc     *string `help:"New description"`
			Location *string `help:"New location"`
			Start    *string `help:"New start time"`
			End      *string `help:"New end time"`
		} `cmd:"" help:"Update an event"`

		Delete struct {
			UID  string `help:"Event UID"`
			Find string `help:"Find by exact title"`
		} `cmd:"" help:"Delete an event"`

		Invite struct {
			UID         string   `help:"Event UID"`
			Find        string   `help:"Find by exact title"`
			Email       []string `required:"" help:"Attendee email (can repeat)"`
			SendUpdates string   `name:"send-updates" default:"all" enum:"all,externalOnly,none" help:"Who Google notifies"`
		} `cmd:"" help:"Invite attendees via the Google Calendar mirror"`
	} `cmd:"" help:"Calendar event operations"`

	Task struct {
		List struct {
			All bool `short:"a" help:"Include completed tasks"`
		} `cmd:"" help:"List tasks"`

		Add struct {
			Title    string   `required:"" help:"Task title"`
			Desc     *string  `help:"Description"`
			Due      *string  `help:"Due date"`
			Start    *string  `help:"Start date"`
			Priority *int     `help:"Priority 1-9 (1 highest)"`
			Status   *string  `help:"Status (NEEDS-ACTION, IN-PROCESS, COMPLETED, CANCELLED)"`
			Percent  *int     `help:"Percent complete (0-100)"`
			Category []string `help:"Category (can repeat)"`
			Location *string  `help:"Location"`
			URL      *string  `help:"Related URL"`
		} `cmd:"" help:"Add a task"`

		Update struct {
			UID      string   `help:"Task UID"`
			Find     string   `help:"Find by exact title"`
			Title    *string  `help:"New title"`
			Desc     *string  `help:"New description"`
			Due      *string  `help:"New due date"`
			Start    *string  `help:"New start date"`
			Priority *int     `help:"New priority"`
			Status   *string  `help:"New status"`
			Percent  *int     `help:"New percent complete"`
			Category []string `help:"Replacement categories (can repeat)"`
			Location *string  `help:"New location"`
			URL      *string  `help:"New related URL"`
		} `cmd:"" help:"Update a task"`

		Complete struct {
			UID  string `help:"Task UID"`
			Find string `help:"Find by exact title"`
		} `cmd:"" help:"Mark a task completed"`

		Delete struct {
			UID  string `help:"Task UID"`
			Find string `help:"Find by exact title"`
		} `cmd:"" help:"Delete a task"`
	} `cmd:"" help:"Task operations"`

	Journal struct {
		List struct{} `cmd:"" help:"List journal entries"`

		Add struct {
			Title string `required:"" help:"Journal title"`
			Desc  string `help:"Journal body"`
		} `cmd:"" help:"Add a journal entry"`

		Update struct {
			UID   string  `help:"Journal UID"`
			Find  string  `help:"Find by exact title"`
			Title *string `help:"New title"`
			Desc  *string `help:"New body"`
		} `cmd:"" help:"Update a journal entry"`

		Delete struct {
			UID  string `help:"Journal UID"`
			Find string `help:"Find by exact title"`
		} `cmd:"" help:"Delete a journal entry"`
	} `cmd:"" help:"Journal operations"`

	Contact struct {
		List struct {
			Limit int `help:"Max contacts to fetch" default:"200"`
		} `cmd:"" help:"List contacts"`

		Add struct {
			Name      string  `required:"" help:"Display name"`
			Email     *string `help:"Email address"`
			Phone     *string `help:"Phone number"`
			Address   *string `help:"Street address"`
			Org       *string `help:"Organization"`
			Title     *string `help:"Job title"`
			Birthday  *string `help:"Birthday (YYYY-MM-DD)"`
			Note      *string `help:"Free-form note"`
			Website   *string `help:"Website URL"`
			Instagram *string `help:"Instagram handle or URL"`
			Twitter   *string `help:"Twitter handle or URL"`
			LinkedIn  *string `name:"linkedin" help:"LinkedIn handle or URL"`
			GitHub    *string `name:"github" help:"GitHub handle or URL"`
		} `cmd:"" help:"Add a contact"`

		Update struct {
			UID       string  `help:"Contact UID"`
			Find      string  `help:"Find by exact name or 'Name <email>'"`
			Name      *string `help:"New display name"`
			Email     *string `help:"New email address"`
			Phone     *string `help:"New phone number"`
			Address   *string `help:"New street address"`
			Org       *string `help:"New organization"`
			Title     *string `help:"New job title"`
			Birthday  *string `help:"New birthday (YYYY-MM-DD)"`
			Note      *string `help:"New note"`
			Website   *string `help:"New website URL"`
			Instagram *string `help:"New Instagram handle or URL"`
			Twitter   *string `help:"New Twitter handle or URL"`
			LinkedIn  *string `name:"linkedin" help:"New LinkedIn handle or URL"`
			GitHub    *string `name:"github" help:"New GitHub handle or URL"`
		} `cmd:"" help:"Update a contact"`

		Delete struct {
			UID  string `help:"Contact UID"`
			Find string `help:"Find by exact name or 'Name <email>'"`
		} `cmd:"" help:"Delete a contact"`
	} `cmd:"" help:"Address book operations"`
}

// getConnection loads configuration and opens a connection. The --url
// override replaces the address book URL for contact commands and the
// calendar URL for everything else.
func getConnection(urlOverride string, contact, verbose bool) (*davctl.Conn, error) {
	if verbose {
		log.SetLevel(log.DebugLevel)
	}
	cfg, err := davctl.LoadConfig()
	if err != nil {
		return nil, err
	}
	if urlOverride != "" {
		if contact {
			cfg.AddressBookURL = urlOverride
		} else {
			cfg.CalendarURL = urlOverride
		}
	}
	return davctl.NewConn(cfg), nil
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("davctl"),
		kong.Description("Command-line CalDAV/CardDAV manager"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)

	out := newOutputWriter(cli.JSON, cli.NoColor, cli.Verbose)

	cmd := ctx.Command()
	switch cmd {
	case "version":
		fmt.Printf("davctl %s\n", version)

	case "summary":
		cmdCtx := context.Background()
		conn, err := getConnection(cli.URL, false, cli.Verbose)
		if err != nil {
			out.writeError(err)
			os.Exit(3)
		}
		if err := runSummary(cmdCtx, conn, out); err != nil {
			out.writeError(err)
			os.Exit(2)
		}

	case "event list":
		cmdCtx := context.Background()
		conn, err := getConnection(cli.URL, false, cli.Verbose)
		if err != nil {
			out.writeError(err)
			os.Exit(3)
		}
		if err := runEventList(cmdCtx, conn, cli.Event.List.From, cli.Event.List.To, out); err != nil {
			out.writeError(err)
			os.Exit(2)
		}

	case "event add":
		cmdCtx := context.Background()
		conn, err := getConnection(cli.URL, false, cli.Verbose)
		if err != nil {
			out.writeError(err)
			os.Exit(3)
		}
		if err := runEventAdd(cmdCtx, conn, cli.Event.Add.Title, cli.Event.Add.Desc,
			cli.Event.Add.Location, cli.Event.Add.Start, cli.Event.Add.End, out); err != nil {
			out.writeError(err)
			os.Exit(2)
		}

	case "event update":
		cmdCtx := context.Background()
		conn, err := getConnection(cli.URL, false, cli.Verbose)
		if err != nil {
			out.writeError(err)
			os.Exit(3)
		}
		f := davctl.Fields{
			Title:       cli.Event.Update.Title,
			Description: cli.Event.Update.Desc,
			Location:    cli.Event.Update.Location,
		}
		if cli.Event.Update.Start != nil {
			t, _, err := parseWhen(*cli.Event.Update.Start)
			if err != nil {
				out.writeError(err)
				os.Exit(2)
			}
			f.Start = davctl.Time(t)
		}
		if cli.Event.Update.End != nil {
			t, _, err := parseWhen(*cli.Event.Update.End)
			if err != nil {
				out.writeError(err)
				os.Exit(2)
			}
			f.End = davctl.Time(t)
		}
		if err := runEventUpdate(cmdCtx, conn, cli.Event.Update.UID, cli.Event.Update.Find, f, out); err != nil {
			out.writeError(err)
			os.Exit(2)
		}

	case "event delete":
		cmdCtx := context.Background()
		conn, err := getConnection(cli.URL, false, cli.Verbose)
		if err != nil {
			out.writeError(err)
			os.Exit(3)
		}
		if err := runEventDelete(cmdCtx, conn, cli.Event.Delete.UID, cli.Event.Delete.Find, out); err != nil {
			out.writeError(err)
			os.Exit(2)
		}

	case "event invite":
		cmdCtx := context.Background()
		conn, err := getConnection(cli.URL, false, cli.Verbose)
		if err != nil {
			out.writeError(err)
			os.Exit(3)
		}
		if err := runEventInvite(cmdCtx, conn, cli.Config, cli.Event.Invite.UID, cli.Event.Invite.Find,
			cli.Event.Invite.Email, cli.Event.Invite.SendUpdates, out); err != nil {
			out.writeError(err)
			os.Exit(2)
		}

	case "task list":
		cmdCtx := context.Background()
		conn, err := getConnection(cli.URL, false, cli.Verbose)
		if err != nil {
			out.writeError(err)
			os.Exit(3)
		}
		if err := runTaskList(cmdCtx, conn, cli.Task.List.All, out); err != nil {
			out.writeError(err)
			os.Exit(2)
		}

	case "task add":
		cmdCtx := context.Background()
		conn, err := getConnection(cli.URL, false, cli.Verbose)
		if err != nil {
			out.writeError(err)
			os.Exit(3)
		}
		flags := taskFieldFlags{
			Title:    &cli.Task.Add.Title,
			Desc:     cli.Task.Add.Desc,
			Due:      cli.Task.Add.Due,
			Start:    cli.Task.Add.Start,
			Priority: cli.Task.Add.Priority,
			Status:   cli.Task.Add.Status,
			Percent:  cli.Task.Add.Percent,
			Category: cli.Task.Add.Category,
			Location: cli.Task.Add.Location,
			URL:      cli.Task.Add.URL,
		}
		if err := runTaskAdd(cmdCtx, conn, flags, out); err != nil {
			out.writeError(err)
			os.Exit(2)
		}

	case "task update":
		cmdCtx := context.Background()
		conn, err := getConnection(cli.URL, false, cli.Verbose)
		if err != nil {
			out.writeError(err)
			os.Exit(3)
		}
		flags := taskFieldFlags{
			Title:    cli.Task.Update.Title,
			Desc:     cli.Task.Update.Desc,
			Due:      cli.Task.Update.Due,
			Start:    cli.Task.Update.Start,
			Priority: cli.Task.Update.Priority,
			Status:   cli.Task.Update.Status,
			Percent:  cli.Task.Update.Percent,
			Category: cli.Task.Update.Category,
			Location: cli.Task.Update.Location,
			URL:      cli.Task.Update.URL,
		}
		if err := runTaskUpdate(cmdCtx, conn, cli.Task.Update.UID, cli.Task.Update.Find, flags, out); err != nil {
			out.writeError(err)
			os.Exit(2)
		}

	case "task complete":
		cmdCtx := context.Background()
		conn, err := getConnection(cli.URL, false, cli.Verbose)
		if err != nil {
			out.writeError(err)
			os.Exit(3)
		}
		if err := runTaskComplete(cmdCtx, conn, cli.Task.Complete.UID, cli.Task.Complete.Find, out); err != nil {
			out.writeError(err)
			os.Exit(2)
		}

	case "task delete":
		cmdCtx := context.Background()
		conn, err := getConnection(cli.URL, false, cli.Verbose)
		if err != nil {
			out.writeError(err)
			os.Exit(3)
		}
		if err := runTaskDelete(cmdCtx, conn, cli.Task.Delete.UID, cli.Task.Delete.Find, out); err != nil {
			out.writeError(err)
			os.Exit(2)
		}

	case "journal list":
		cmdCtx := context.Background()
		conn, err := getConnection(cli.URL, false, cli.Verbose)
		if err != nil {
			out.writeError(err)
			os.Exit(3)
		}
		if err := runJournalList(cmdCtx, conn, out); err != nil {
			out.writeError(err)
			os.Exit(2)
		}

	case "journal add":
		cmdCtx := context.Background()
		conn, err := getConnection(cli.URL, false, cli.Verbose)
		if err != nil {
			out.writeError(err)
			os.Exit(3)
		}
		if err := runJournalAdd(cmdCtx, conn, cli.Journal.Add.Title, cli.Journal.Add.Desc, out); err != nil {
			out.writeError(err)
			os.Exit(2)
		}

	case "journal update":
		cmdCtx := context.Background()
		conn, err := getConnection(cli.URL, false, cli.Verbose)
		if err != nil {
			out.writeError(err)
			os.Exit(3)
		}
		if err := runJournalUpdate(cmdCtx, conn, cli.Journal.Update.UID, cli.Journal.Update.Find,
			cli.Journal.Update.Title, cli.Journal.Update.Desc, out); err != nil {
			out.writeError(err)
			os.Exit(2)
		}

	case "journal delete":
		cmdCtx := context.Background()
		conn, err := getConnection(cli.URL, false, cli.Verbose)
		if err != nil {
			out.writeError(err)
			os.Exit(3)
		}
		if err := runJournalDelete(cmdCtx, conn, cli.Journal.Delete.UID, cli.Journal.Delete.Find, out); err != nil {
			out.writeError(err)
			os.Exit(2)
		}

	case "contact list":
		cmdCtx := context.Background()
		conn, err := getConnection(cli.URL, true, cli.Verbose)
		if err != nil {
			out.writeError(err)
			os.Exit(3)
		}
		if err := runContactList(cmdCtx, conn, cli.Contact.List.Limit, out); err != nil {
			out.writeError(err)
			os.Exit(2)
		}

	case "contact add":
		cmdCtx := context.Background()
		conn, err := getConnection(cli.URL, true, cli.Verbose)
		if err != nil {
			out.writeError(err)
			os.Exit(3)
		}
		flags := contactFieldFlags{
			Email:     cli.Contact.Add.Email,
			Phone:     cli.Contact.Add.Phone,
			Org:       cli.Contact.Add.Org,
			JobTitle:  cli.Contact.Add.Title,
			Address:   cli.Contact.Add.Address,
			Birthday:  cli.Contact.Add.Birthday,
			Note:      cli.Contact.Add.Note,
			Website:   cli.Contact.Add.Website,
			Instagram: cli.Contact.Add.Instagram,
			Twitter:   cli.Contact.Add.Twitter,
			LinkedIn:  cli.Contact.Add.LinkedIn,
			GitHub:    cli.Contact.Add.GitHub,
		}
		if err := runContactAdd(cmdCtx, conn, cli.Contact.Add.Name, &flags, out); err != nil {
			out.writeError(err)
			os.Exit(2)
		}

	case "contact update":
		cmdCtx := context.Background()
		conn, err := getConnection(cli.URL, true, cli.Verbose)
		if err != nil {
			out.writeError(err)
			os.Exit(3)
		}
		flags := contactFieldFlags{
			Email:     cli.Contact.Update.Email,
			Phone:     cli.Contact.Update.Phone,
			Org:       cli.Contact.Update.Org,
			JobTitle:  cli.Contact.Update.Title,
			Address:   cli.Contact.Update.Address,
			Birthday:  cli.Contact.Update.Birthday,
			Note:      cli.Contact.Update.Note,
			Website:   cli.Contact.Update.Website,
			Instagram: cli.Contact.Update.Instagram,
			Twitter:   cli.Contact.Update.Twitter,
			LinkedIn:  cli.Contact.Update.LinkedIn,
			GitHub:    cli.Contact.Update.GitHub,
		}
		if err := runContactUpdate(cmdCtx, conn, cli.Contact.Update.UID, cli.Contact.Update.Find,
			cli.Contact.Update.Name, &flags, out); err != nil {
			out.writeError(err)
			os.Exit(2)
		}

	case "contact delete":
		cmdCtx := context.Background()
		conn, err := getConnection(cli.URL, true, cli.Verbose)
		if err != nil {
			out.writeError(err)
			os.Exit(3)
		}
		if err := runContactDelete(cmdCtx, conn, cli.Contact.Delete.UID, cli.Contact.Delete.Find, out); err != nil {
			out.writeError(err)
			os.Exit(2)
		}

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		os.Exit(1)
	}
}
