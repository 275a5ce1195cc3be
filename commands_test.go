package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/wesnick/davctl/pkg/davctl"
)

// roundTripFunc makes it easy to stub HTTP responses in tests.
type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func stubResponse(status int, contentType, body string) *http.Response {
	h := make(http.Header)
	if contentType != "" {
		h.Set("Content-Type", contentType)
	}
	return &http.Response{
		StatusCode: status,
		Header:     h,
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func newStubConn(t *testing.T, rt roundTripFunc) *davctl.Conn {
	t.Helper()
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	conn, err := davctl.NewFake(davctl.Config{
		Username:       "user",
		Password:       "secret",
		CalendarURL:    "https://dav.example.com/user/calendar/",
		AddressBookURL: "https://dav.example.com/user/contacts/",
	}, &http.Client{Transport: rt})
	if err != nil {
		t.Fatalf("NewFake() error = %v", err)
	}
	return conn
}

func calendarReport(href, ics string) string {
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<d:multistatus xmlns:d="DAV:" xmlns:c="urn:ietf:params:xml:ns:caldav">
<d:response>
<d:href>%s</d:href>
<d:propstat>
<d:prop>
<d:getetag>"1"</d:getetag>
<c:calendar-data>%s</c:calendar-data>
</d:prop>
<d:status>HTTP/1.1 200 OK</d:status>
</d:propstat>
</d:response>
</d:multistatus>`, href, ics)
}

func wireICS(s string) string {
	return strings.ReplaceAll(strings.TrimLeft(s, "\n"), "\n", "\r\n")
}

const dentistHref = "/user/calendar/ev-1.ics"

func dentistICS() string {
	return wireICS(`
BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//test//test//EN
BEGIN:VEVENT
UID:ev-1
DTSTAMP:20260101T000000Z
DTSTART:20260302T100000Z
DTEND:20260302T110000Z
SUMMARY:Dentist
LOCATION:High Street
END:VEVENT
END:VCALENDAR
`)
}

func TestRunEventListTable(t *testing.T) {
	conn := newStubConn(t, func(req *http.Request) (*http.Response, error) {
		if req.Method != "REPORT" {
			t.Errorf("method = %q, want REPORT", req.Method)
		}
		return stubResponse(http.StatusMultiStatus, "application/xml",
			calendarReport(dentistHref, dentistICS())), nil
	})

	var buf bytes.Buffer
	out := &outputWriter{writer: &buf}
	if err := runEventList(context.Background(), conn, "", "", out); err != nil {
		t.Fatalf("runEventList() error = %v", err)
	}

	table := buf.String()
	for _, want := range []string{"KIND", "Dentist", "ev-1", "2026-03-02"} {
		if !strings.Contains(table, want) {
			t.Errorf("table output missing %q:\n%s", want, table)
		}
	}
}

func TestRunEventListJSON(t *testing.T) {
	conn := newStubConn(t, func(req *http.Request) (*http.Response, error) {
		return stubResponse(http.StatusMultiStatus, "application/xml",
			calendarReport(dentistHref, dentistICS())), nil
	})

	var buf bytes.Buffer
	out := &outputWriter{json: true, writer: &buf}
	if err := runEventList(context.Background(), conn, "", "", out); err != nil {
		t.Fatalf("runEventList() error = %v", err)
	}

	var events []eventOutput
	if err := json.Unmarshal(buf.Bytes(), &events); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, buf.String())
	}
	if len(events) != 1 || events[0].UID != "ev-1" || events[0].Title != "Dentist" {
		t.Errorf("unexpected JSON output: %+v", events)
	}
	if events[0].Location != "High Street" {
		t.Errorf("Location = %q, want High Street", events[0].Location)
	}
}

func TestRunEventListRejectsBadWindow(t *testing.T) {
	conn := newStubConn(t, func(req *http.Request) (*http.Response, error) {
		t.Error("request sent despite invalid window")
		return stubResponse(http.StatusBadRequest, "", ""), nil
	})

	var buf bytes.Buffer
	out := &outputWriter{writer: &buf}
	if err := runEventList(context.Background(), conn, "tomorrow", "", out); err == nil {
		t.Fatal("runEventList() accepted an unparsable window")
	}
}

func TestRunEventAdd(t *testing.T) {
	var putBody string
	conn := newStubConn(t, func(req *http.Request) (*http.Response, error) {
		switch req.Method {
		case http.MethodPut:
			raw, _ := io.ReadAll(req.Body)
			putBody = string(raw)
			return stubResponse(http.StatusCreated, "", ""), nil
		case "REPORT":
			return stubResponse(http.StatusMultiStatus, "application/xml",
				calendarReport("/user/calendar/new.ics", putBody)), nil
		}
		t.Errorf("unexpected %s %s", req.Method, req.URL)
		return stubResponse(http.StatusBadRequest, "", ""), nil
	})

	var buf bytes.Buffer
	out := &outputWriter{noColor: true, writer: &buf}
	err := runEventAdd(context.Background(), conn, "Dentist", "", "High Street",
		"2026-03-02 10:00", "2026-03-02 11:00", out)
	if err != nil {
		t.Fatalf("runEventAdd() error = %v", err)
	}

	if !strings.Contains(putBody, "SUMMARY:Dentist") {
		t.Error("PUT body lacks SUMMARY")
	}
	if !strings.Contains(putBody, "LOCATION:High Street") {
		t.Error("PUT body lacks LOCATION")
	}
	if !strings.Contains(buf.String(), "Added event") {
		t.Errorf("missing confirmation: %s", buf.String())
	}
}

func TestResolveTargetRequiresSelector(t *testing.T) {
	conn := newStubConn(t, func(req *http.Request) (*http.Response, error) {
		t.Error("request sent without a selector")
		return stubResponse(http.StatusBadRequest, "", ""), nil
	})
	mgr, err := davctl.NewEventManager(conn)
	if err != nil {
		t.Fatalf("NewEventManager() error = %v", err)
	}

	if _, err := resolveTarget(context.Background(), mgr, "", ""); err == nil {
		t.Fatal("resolveTarget() accepted neither --uid nor --find")
	}
}

func TestRunTaskListMarksCompletion(t *testing.T) {
	report := fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<d:multistatus xmlns:d="DAV:" xmlns:c="urn:ietf:params:xml:ns:caldav">
<d:response><d:href>/user/calendar/td-1.ics</d:href><d:propstat><d:prop>
<d:getetag>"1"</d:getetag><c:calendar-data>%s</c:calendar-data>
</d:prop><d:status>HTTP/1.1 200 OK</d:status></d:propstat></d:response>
<d:response><d:href>/user/calendar/td-2.ics</d:href><d:propstat><d:prop>
<d:getetag>"2"</d:getetag><c:calendar-data>%s</c:calendar-data>
</d:prop><d:status>HTTP/1.1 200 OK</d:status></d:propstat></d:response>
</d:multistatus>`,
		wireICS(`
BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//test//test//EN
BEGIN:VTODO
UID:td-1
DTSTAMP:20260101T000000Z
SUMMARY:Laundry
END:VTODO
END:VCALENDAR
`),
		wireICS(`
BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//test//test//EN
BEGIN:VTODO
UID:td-2
DTSTAMP:20260101T000000Z
SUMMARY:Dishes
STATUS:COMPLETED
END:VTODO
END:VCALENDAR
`))

	conn := newStubConn(t, func(req *http.Request) (*http.Response, error) {
		return stubResponse(http.StatusMultiStatus, "application/xml", report), nil
	})

	var buf bytes.Buffer
	out := &outputWriter{writer: &buf}
	if err := runTaskList(context.Background(), conn, true, out); err != nil {
		t.Fatalf("runTaskList() error = %v", err)
	}

	table := buf.String()
	if !strings.Contains(table, "[ ]") || !strings.Contains(table, "[x]") {
		t.Errorf("status markers missing:\n%s", table)
	}

	buf.Reset()
	if err := runTaskList(context.Background(), conn, false, out); err != nil {
		t.Fatalf("runTaskList() error = %v", err)
	}
	if strings.Contains(buf.String(), "Dishes") {
		t.Errorf("completed task shown without --all:\n%s", buf.String())
	}
}

func TestTaskFieldFlagsParseDates(t *testing.T) {
	due := "2026-03-02"
	flags := taskFieldFlags{Due: &due}
	f, err := flags.fields()
	if err != nil {
		t.Fatalf("fields() error = %v", err)
	}
	if f.Due == nil || !f.DateOnly {
		t.Errorf("Due = %v dateOnly = %v, want date-only value", f.Due, f.DateOnly)
	}

	bad := "someday"
	flags = taskFieldFlags{Due: &bad}
	if _, err := flags.fields(); err == nil {
		t.Fatal("fields() accepted an unparsable due date")
	}
}

func TestRunContactListJSON(t *testing.T) {
	ada := strings.ReplaceAll(strings.TrimLeft(`
BEGIN:VCARD
VERSION:3.0
UID:ada-1
FN:Ada Lovelace
N:Lovelace;Ada;;;
EMAIL;TYPE=INTERNET:ada@example.com
X-SOCIALPROFILE;TYPE=github:https://github.com/ada
END:VCARD
`, "\n"), "\n", "\r\n")

	conn := newStubConn(t, func(req *http.Request) (*http.Response, error) {
		switch req.Method {
		case "PROPFIND":
			body := `<?xml version="1.0" encoding="utf-8"?>
<d:multistatus xmlns:d="DAV:">
<d:response><d:href>/user/contacts/</d:href></d:response>
<d:response><d:href>/user/contacts/ada-1.vcf</d:href></d:response>
</d:multistatus>`
			return stubResponse(http.StatusMultiStatus, "application/xml", body), nil
		case http.MethodGet:
			return stubResponse(http.StatusOK, "text/vcard", ada), nil
		}
		t.Errorf("unexpected %s %s", req.Method, req.URL)
		return stubResponse(http.StatusBadRequest, "", ""), nil
	})

	var buf bytes.Buffer
	out := &outputWriter{json: true, writer: &buf}
	if err := runContactList(context.Background(), conn, 0, out); err != nil {
		t.Fatalf("runContactList() error = %v", err)
	}

	var contacts []contactOutput
	if err := json.Unmarshal(buf.Bytes(), &contacts); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, buf.String())
	}
	if len(contacts) != 1 || contacts[0].Name != "Ada Lovelace" {
		t.Fatalf("unexpected JSON output: %+v", contacts)
	}
	if contacts[0].Socials["github"] != "https://github.com/ada" {
		t.Errorf("socials = %v, want github profile", contacts[0].Socials)
	}
}

func TestContactFieldFlagsSocials(t *testing.T) {
	insta := "@ada"
	flags := contactFieldFlags{Instagram: &insta}
	f := flags.fields()
	if f.Socials["instagram"] != "@ada" {
		t.Errorf("Socials = %v, want instagram entry", f.Socials)
	}
	if _, ok := f.Socials["github"]; ok {
		t.Error("unset social tag leaked into Fields")
	}

	empty := contactFieldFlags{}
	if f := empty.fields(); f.Socials != nil {
		t.Errorf("Socials = %v, want nil when no flags set", f.Socials)
	}
}
