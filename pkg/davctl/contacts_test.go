package davctl

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"testing"

	"github.com/emersion/go-vcard"
	"github.com/pkg/errors"
	"github.com/pmezard/go-difflib/difflib"
	"github.com/stretchr/testify/assert"
)

func contactMultistatus(hrefs ...string) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="utf-8"?>` + "\n")
	b.WriteString(`<d:multistatus xmlns:d="DAV:">` + "\n")
	for _, href := range hrefs {
		fmt.Fprintf(&b, "<d:response><d:href>%s</d:href></d:response>\n", href)
	}
	b.WriteString(`</d:multistatus>`)
	return b.String()
}

func adaVCF() string {
	return crlf(`
BEGIN:VCARD
VERSION:3.0
UID:ada-1
FN:Ada Lovelace
N:Lovelace;Ada;;;
EMAIL;TYPE=INTERNET:ada@example.com
TEL;TYPE=CELL:+44 20 1234
END:VCARD
`)
}

func graceVCF() string {
	return crlf(`
BEGIN:VCARD
VERSION:3.0
UID:grace-1
FN:Grace Hopper
N:Hopper;Grace;;;
END:VCARD
`)
}

// sortedLines compares vCard bodies without depending on property order,
// which the encoder does not guarantee.
func sortedLines(s string) []string {
	lines := strings.Split(strings.TrimRight(s, "\r\n"), "\r\n")
	sort.Strings(lines)
	return lines
}

func TestContactListURLsSkipsCollection(t *testing.T) {
	conn := newTestConn(t, func(req *http.Request) (*http.Response, error) {
		if req.Method != "PROPFIND" {
			t.Errorf("method = %q, want PROPFIND", req.Method)
		}
		if got := req.Header.Get("Depth"); got != "1" {
			t.Errorf("Depth = %q, want 1", got)
		}
		body := contactMultistatus(
			"/user/contacts/",
			"/user/contacts/ada-1.vcf",
			"/user/contacts/readme.txt",
			"/user/contacts/grace-1.vcf",
		)
		return textResponse(http.StatusMultiStatus, "application/xml", body), nil
	})

	mgr, err := NewContactManager(conn)
	if err != nil {
		t.Fatalf("NewContactManager() error = %v", err)
	}
	urls, err := mgr.ListURLs(context.Background())
	if err != nil {
		t.Fatalf("ListURLs() error = %v", err)
	}

	want := []string{
		"https://dav.example.com/user/contacts/ada-1.vcf",
		"https://dav.example.com/user/contacts/grace-1.vcf",
	}
	assert.Equal(t, want, urls)
}

func serveContacts(t *testing.T, cards map[string]string) roundTripFunc {
	t.Helper()
	hrefs := make([]string, 0, len(cards)+1)
	hrefs = append(hrefs, "/user/contacts/")
	for href := range cards {
		hrefs = append(hrefs, href)
	}
	sort.Strings(hrefs)

	return func(req *http.Request) (*http.Response, error) {
		switch req.Method {
		case "PROPFIND":
			return textResponse(http.StatusMultiStatus, "application/xml", contactMultistatus(hrefs...)), nil
		case http.MethodGet:
			if body, ok := cards[req.URL.Path]; ok {
				return textResponse(http.StatusOK, "text/vcard", body), nil
			}
			return textResponse(http.StatusNotFound, "", ""), nil
		}
		t.Errorf("unexpected %s %s", req.Method, req.URL)
		return textResponse(http.StatusBadRequest, "", ""), nil
	}
}

func TestContactListAndGet(t *testing.T) {
	cards := map[string]string{
		"/user/contacts/ada-1.vcf":   adaVCF(),
		"/user/contacts/grace-1.vcf": graceVCF(),
	}
	conn := newTestConn(t, serveContacts(t, cards))
	mgr, _ := NewContactManager(conn)

	objs, err := mgr.List(context.Background(), ListOptions{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(objs) != 2 {
		t.Fatalf("List() = %d contacts, want 2", len(objs))
	}

	obj, err := mgr.Get(context.Background(), "grace-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if obj.DisplayName() != "Grace Hopper" {
		t.Errorf("DisplayName = %q, want Grace Hopper", obj.DisplayName())
	}
	if obj.Label() != "Grace Hopper" {
		t.Errorf("Label = %q, want plain name without email", obj.Label())
	}

	_, err = mgr.Get(context.Background(), "nobody")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get(nobody) error = %v, want ErrNotFound", err)
	}
}

func TestContactListSkipsUnreadable(t *testing.T) {
	conn := newTestConn(t, func(req *http.Request) (*http.Response, error) {
		switch {
		case req.Method == "PROPFIND":
			body := contactMultistatus("/user/contacts/", "/user/contacts/ada-1.vcf", "/user/contacts/bad.vcf")
			return textResponse(http.StatusMultiStatus, "application/xml", body), nil
		case strings.HasSuffix(req.URL.Path, "ada-1.vcf"):
			return textResponse(http.StatusOK, "text/vcard", adaVCF()), nil
		}
		return textResponse(http.StatusInternalServerError, "", ""), nil
	})
	mgr, _ := NewContactManager(conn)

	objs, err := mgr.List(context.Background(), ListOptions{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(objs) != 1 || objs[0].UID() != "ada-1" {
		t.Fatalf("List() = %d contacts, want only ada-1", len(objs))
	}
}

func TestContactListHonorsLimit(t *testing.T) {
	cards := map[string]string{
		"/user/contacts/ada-1.vcf":   adaVCF(),
		"/user/contacts/grace-1.vcf": graceVCF(),
	}
	conn := newTestConn(t, serveContacts(t, cards))
	mgr, _ := NewContactManager(conn)

	objs, err := mgr.List(context.Background(), ListOptions{Limit: 1})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(objs) != 1 {
		t.Fatalf("List(limit 1) = %d contacts, want 1", len(objs))
	}
}

func TestContactAddIsCreateOnly(t *testing.T) {
	var putBody, putPath string
	conn := newTestConn(t, func(req *http.Request) (*http.Response, error) {
		switch req.Method {
		case http.MethodPut:
			if got := req.Header.Get("If-None-Match"); got != "*" {
				t.Errorf("If-None-Match = %q, want *", got)
			}
			raw, _ := io.ReadAll(req.Body)
			putBody, putPath = string(raw), req.URL.Path
			return textResponse(http.StatusCreated, "", ""), nil
		case http.MethodGet:
			return textResponse(http.StatusOK, "text/vcard", putBody), nil
		}
		t.Errorf("unexpected %s %s", req.Method, req.URL)
		return textResponse(http.StatusBadRequest, "", ""), nil
	})
	mgr, _ := NewContactManager(conn)

	obj, err := mgr.Add(context.Background(), Fields{
		Name:    String("Ada Lovelace"),
		Email:   String("ada@example.com"),
		Socials: map[string]string{"instagram": "@ada"},
	})
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	if !strings.HasSuffix(putPath, ".vcf") {
		t.Errorf("PUT path %q lacks .vcf suffix", putPath)
	}
	assert.Contains(t, putBody, "FN:Ada Lovelace")
	assert.Contains(t, putBody, "N:Lovelace;Ada;;;")
	assert.Contains(t, putBody, "ada@example.com")
	assert.Contains(t, putBody, "https://instagram.com/ada")
	if obj.DisplayName() != "Ada Lovelace" {
		t.Errorf("DisplayName = %q, want Ada Lovelace", obj.DisplayName())
	}
}

func TestContactUpdateLeavesOtherFieldsAlone(t *testing.T) {
	var putBody string
	conn := newTestConn(t, func(req *http.Request) (*http.Response, error) {
		switch req.Method {
		case http.MethodGet:
			if putBody != "" {
				return textResponse(http.StatusOK, "text/vcard", putBody), nil
			}
			return textResponse(http.StatusOK, "text/vcard", adaVCF()), nil
		case http.MethodPut:
			if got := req.Header.Get("If-None-Match"); got != "" {
				t.Errorf("overwrite sent If-None-Match %q", got)
			}
			raw, _ := io.ReadAll(req.Body)
			putBody = string(raw)
			return textResponse(http.StatusNoContent, "", ""), nil
		}
		t.Errorf("unexpected %s %s", req.Method, req.URL)
		return textResponse(http.StatusBadRequest, "", ""), nil
	})
	mgr, _ := NewContactManager(conn)

	obj := &Object{Path: "https://dav.example.com/user/contacts/ada-1.vcf", Kind: KindContact}
	updated, err := mgr.Update(context.Background(), obj, Fields{Email: String("countess@example.com")})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	// everything except EMAIL must survive byte for byte
	want := sortedLines(strings.Replace(adaVCF(), "ada@example.com", "countess@example.com", 1))
	got := sortedLines(putBody)
	if !assert.ObjectsAreEqual(want, got) {
		diff, _ := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
			A: want, B: got, FromFile: "want", ToFile: "got", Context: 3,
		})
		t.Errorf("unexpected body:\n%s", diff)
	}
	if got := CardValue(updated.Card, vcard.FieldEmail); got != "countess@example.com" {
		t.Errorf("EMAIL = %q, want countess@example.com", got)
	}
}

func TestContactSummary(t *testing.T) {
	cards := map[string]string{
		"/user/contacts/ada-1.vcf":   adaVCF(),
		"/user/contacts/grace-1.vcf": graceVCF(),
	}
	conn := newTestConn(t, serveContacts(t, cards))
	mgr, _ := NewContactManager(conn)

	text, err := mgr.Summary(context.Background())
	if err != nil {
		t.Fatalf("Summary() error = %v", err)
	}
	assert.Contains(t, text, "- Ada Lovelace (UID: ada-1)")
	assert.Contains(t, text, "  ada@example.com / +44 20 1234")
	assert.Contains(t, text, "- Grace Hopper (UID: grace-1)")
}

func TestSetSocialProfileIsSingletonPerTag(t *testing.T) {
	card := make(vcard.Card)
	setSocialProfile(card, "instagram", "https://instagram.com/old")
	setSocialProfile(card, "github", "https://github.com/ada")
	setSocialProfile(card, "Instagram", "https://instagram.com/new")

	fields := card[fieldSocialProfile]
	if len(fields) != 2 {
		t.Fatalf("got %d profiles, want 2", len(fields))
	}
	if got := SocialProfile(card, "instagram"); got != "https://instagram.com/new" {
		t.Errorf("instagram = %q, want the replacement URL", got)
	}
	if got := SocialProfile(card, "github"); got != "https://github.com/ada" {
		t.Errorf("github = %q, want untouched URL", got)
	}
}

func TestContactUpdateClearsSocialWithEmptyHandle(t *testing.T) {
	source := crlf(`
BEGIN:VCARD
VERSION:3.0
UID:ada-1
FN:Ada Lovelace
N:Lovelace;Ada;;;
X-SOCIALPROFILE;TYPE=instagram:https://instagram.com/ada
X-SOCIALPROFILE;TYPE=github:https://github.com/ada
END:VCARD
`)
	var putBody string
	conn := newTestConn(t, func(req *http.Request) (*http.Response, error) {
		switch req.Method {
		case http.MethodGet:
			if putBody != "" {
				return textResponse(http.StatusOK, "text/vcard", putBody), nil
			}
			return textResponse(http.StatusOK, "text/vcard", source), nil
		case http.MethodPut:
			raw, _ := io.ReadAll(req.Body)
			putBody = string(raw)
			return textResponse(http.StatusNoContent, "", ""), nil
		}
		t.Errorf("unexpected %s %s", req.Method, req.URL)
		return textResponse(http.StatusBadRequest, "", ""), nil
	})
	mgr, _ := NewContactManager(conn)

	obj := &Object{Path: "https://dav.example.com/user/contacts/ada-1.vcf", Kind: KindContact}
	updated, err := mgr.Update(context.Background(), obj, Fields{
		Socials: map[string]string{"instagram": ""},
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	if got := SocialProfile(updated.Card, "instagram"); got != "" {
		t.Errorf("instagram = %q, want the entry removed", got)
	}
	if got := SocialProfile(updated.Card, "github"); got != "https://github.com/ada" {
		t.Errorf("github = %q, want untouched", got)
	}
	assert.NotContains(t, putBody, "instagram.com")
}

func TestContactUpdateSetsJobTitle(t *testing.T) {
	var putBody string
	conn := newTestConn(t, func(req *http.Request) (*http.Response, error) {
		switch req.Method {
		case http.MethodGet:
			if putBody != "" {
				return textResponse(http.StatusOK, "text/vcard", putBody), nil
			}
			return textResponse(http.StatusOK, "text/vcard", adaVCF()), nil
		case http.MethodPut:
			raw, _ := io.ReadAll(req.Body)
			putBody = string(raw)
			return textResponse(http.StatusNoContent, "", ""), nil
		}
		t.Errorf("unexpected %s %s", req.Method, req.URL)
		return textResponse(http.StatusBadRequest, "", ""), nil
	})
	mgr, _ := NewContactManager(conn)

	obj := &Object{Path: "https://dav.example.com/user/contacts/ada-1.vcf", Kind: KindContact}
	updated, err := mgr.Update(context.Background(), obj, Fields{JobTitle: String("Analyst")})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	assert.Contains(t, putBody, "TITLE:Analyst")
	if got := CardValue(updated.Card, vcard.FieldTitle); got != "Analyst" {
		t.Errorf("TITLE = %q, want Analyst", got)
	}
}

func TestNormalizeHandle(t *testing.T) {
	tests := []struct {
		tag   string
		value string
		want  string
	}{
		{"instagram", "@ada", "https://instagram.com/ada"},
		{"instagram", "ada", "https://instagram.com/ada"},
		{"twitter", "@ada", "https://twitter.com/ada"},
		{"linkedin", "ada-lovelace", "https://linkedin.com/in/ada-lovelace"},
		{"github", "ada", "https://github.com/ada"},
		{"github", "https://github.com/ada", "https://github.com/ada"},
		{"mastodon", "@ada@example.social", "@ada@example.social"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, normalizeHandle(tc.tag, tc.value), "%s %s", tc.tag, tc.value)
	}
}

func TestSpecialCharactersSurviveTheWire(t *testing.T) {
	card := buildCard("uid-1", Fields{
		Name: String("Ada, Countess"),
		Note: String("likes; semicolons\nand line breaks"),
	})

	var buf bytes.Buffer
	if err := vcard.NewEncoder(&buf).Encode(card); err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	wire := buf.String()
	// the encoder escapes exactly once
	assert.Contains(t, wire, `FN:Ada\, Countess`)
	assert.NotContains(t, wire, `\\,`)

	decoded, err := vcard.NewDecoder(strings.NewReader(wire)).Decode()
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	assert.Equal(t, "Ada, Countess", decoded.Value(vcard.FieldFormattedName))
	assert.Equal(t, "likes; semicolons\nand line breaks", decoded.Value(vcard.FieldNote))
}

func TestStructuredName(t *testing.T) {
	assert.Equal(t, "Lovelace;Ada;;;", structuredName("Ada Lovelace"))
	assert.Equal(t, "Byron;Ada;;;", structuredName("Ada King Byron"))
	assert.Equal(t, ";Ada;;;", structuredName("Ada"))
	assert.Equal(t, ";;;;", structuredName(""))
}

func TestBuildCardDefaults(t *testing.T) {
	card := buildCard("uid-1", Fields{
		Name:     String("Ada Lovelace"),
		Phone:    String("+44 20 1234"),
		JobTitle: String("Mathematician"),
	})

	assert.Equal(t, "3.0", card.Value(vcard.FieldVersion))
	assert.Equal(t, "uid-1", card.Value(vcard.FieldUID))
	assert.Equal(t, "Ada Lovelace", card.Value(vcard.FieldFormattedName))
	assert.Equal(t, "Mathematician", card.Value(vcard.FieldTitle))

	tel := card.Get(vcard.FieldTelephone)
	if tel == nil {
		t.Fatal("TEL missing")
	}
	assert.Equal(t, "CELL", tel.Params.Get(vcard.ParamType))
	if card.Get(vcard.FieldEmail) != nil {
		t.Error("EMAIL set without input")
	}
}
