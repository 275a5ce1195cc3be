package davctl

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/emersion/go-vcard"
	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const (
	vcardMIMEType = "text/vcard; charset=utf-8"

	// fieldSocialProfile is the non-standard property used by macOS and
	// iOS address books for tagged social handles.
	fieldSocialProfile = "X-SOCIALPROFILE"

	// defaultContactLimit caps full-object listings, which cost one
	// request per contact.
	defaultContactLimit = 200
)

// propfindBody asks only for etags; member URLs ride along in the hrefs.
const propfindBody = `<?xml version="1.0" encoding="utf-8" ?>
<d:propfind xmlns:d="DAV:">
  <d:prop><d:getetag/></d:prop>
</d:propfind>
`

// ContactManager performs CRUD over vCard resources in the address book.
// The CalDAV client doesn't speak CardDAV, so this manager talks to the
// server directly: PROPFIND enumerates member URLs and each body is
// fetched individually, making full listings O(n) round trips.
type ContactManager struct {
	conn    *Conn
	baseURL string
}

func NewContactManager(conn *Conn) (*ContactManager, error) {
	base, err := conn.cfg.addressBookURL()
	if err != nil {
		return nil, err
	}
	return &ContactManager{conn: conn, baseURL: base}, nil
}

func (m *ContactManager) Kind() Kind { return KindContact }

type multistatus struct {
	XMLName   xml.Name `xml:"DAV: multistatus"`
	Responses []struct {
		Href string `xml:"DAV: href"`
	} `xml:"DAV: response"`
}

// ListURLs is the cheap listing: member .vcf URLs without downloading any
// vCard. Callers that only need identifiers should prefer it.
func (m *ContactManager) ListURLs(ctx context.Context) ([]string, error) {
	header := http.Header{
		"Depth":        {"1"},
		"Content-Type": {"application/xml"},
	}
	resp, err := m.conn.do(ctx, "PROPFIND", m.baseURL, header, []byte(propfindBody))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return nil, &StatusError{Method: "PROPFIND", URL: m.baseURL, Code: resp.StatusCode}
	}

	var ms multistatus
	if err := xml.NewDecoder(resp.Body).Decode(&ms); err != nil {
		return nil, errors.Wrap(err, "parsing PROPFIND response")
	}

	basePath := collectionPath(m.baseURL)
	var out []string
	for _, r := range ms.Responses {
		href := strings.TrimSpace(r.Href)
		if href == "" {
			continue
		}
		abs, err := resolve(m.baseURL, href)
		if err != nil {
			continue
		}
		// the collection itself shows up as one of the responses
		if collectionPath(abs) == basePath {
			continue
		}
		if strings.HasSuffix(strings.ToLower(abs), ".vcf") {
			out = append(out, abs)
		}
	}
	return out, nil
}

func collectionPath(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return strings.TrimRight(u.Path, "/")
}

// fetchCard downloads and parses one vCard, through the validator cache.
func (m *ContactManager) fetchCard(ctx context.Context, rawURL string) (vcard.Card, error) {
	body, err := m.conn.fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	card, err := vcard.NewDecoder(strings.NewReader(body)).Decode()
	if err != nil {
		return nil, errors.Wrapf(err, "parsing vCard at %s", rawURL)
	}
	return card, nil
}

// List fetches up to opts.Limit vCards (default 200). Individual fetch
// failures are skipped, collected and reported at debug level; the rest
// of the listing still comes back.
func (m *ContactManager) List(ctx context.Context, opts ListOptions) ([]Object, error) {
	urls, err := m.ListURLs(ctx)
	if err != nil {
		return nil, err
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultContactLimit
	}
	if len(urls) > limit {
		urls = urls[:limit]
	}

	var merr *multierror.Error
	var out []Object
	for _, u := range urls {
		card, err := m.fetchCard(ctx, u)
		if err != nil {
			merr = multierror.Append(merr, err)
			continue
		}
		out = append(out, Object{Path: u, Kind: KindContact, Card: card})
	}
	if err := merr.ErrorOrNil(); err != nil {
		log.WithError(err).Debug("skipped unreadable contacts")
	}
	return out, nil
}

// Get finds a contact by vCard UID. O(n) round trips: the address book
// offers no server-side filter here, so a client-side scan is the
// accepted fallback.
func (m *ContactManager) Get(ctx context.Context, uid string) (*Object, error) {
	urls, err := m.ListURLs(ctx)
	if err != nil {
		return nil, err
	}
	want := strings.TrimSpace(uid)
	for _, u := range urls {
		card, err := m.fetchCard(ctx, u)
		if err != nil {
			continue
		}
		if strings.TrimSpace(card.Value(vcard.FieldUID)) == want {
			return &Object{Path: u, Kind: KindContact, Card: card}, nil
		}
	}
	return nil, errors.Wrapf(ErrNotFound, "contact %q", uid)
}

func (m *ContactManager) Add(ctx context.Context, f Fields) (*Object, error) {
	if f.Name == nil || *f.Name == "" {
		return nil, errors.New("contact name is required")
	}

	uid := uuid.NewString()
	card := buildCard(uid, f)

	var buf bytes.Buffer
	if err := vcard.NewEncoder(&buf).Encode(card); err != nil {
		return nil, errors.Wrap(err, "encoding vCard")
	}

	target, err := resolve(m.baseURL, uid+".vcf")
	if err != nil {
		return nil, err
	}
	if err := m.conn.putCreate(ctx, target, vcardMIMEType, buf.Bytes()); err != nil {
		return nil, err
	}

	fresh, err := m.fetchCard(ctx, target)
	if err != nil {
		return nil, err
	}
	return &Object{Path: target, Kind: KindContact, Card: fresh}, nil
}

// Update re-fetches the current vCard, applies only the supplied fields
// and overwrites the whole object.
func (m *ContactManager) Update(ctx context.Context, obj *Object, f Fields) (*Object, error) {
	if obj.Kind != KindContact {
		return nil, &WrongKindError{Want: KindContact, Got: obj.Kind.Component()}
	}

	card, err := m.fetchCard(ctx, obj.Path)
	if err != nil {
		return nil, err
	}

	if f.Name != nil {
		setCardValue(card, vcard.FieldFormattedName, *f.Name)
		setCardValue(card, vcard.FieldName, structuredName(*f.Name))
	}
	if f.Org != nil {
		setCardValue(card, vcard.FieldOrganization, *f.Org)
	}
	if f.JobTitle != nil {
		setCardValue(card, vcard.FieldTitle, *f.JobTitle)
	}
	if f.Email != nil {
		setCardValue(card, vcard.FieldEmail, *f.Email)
	}
	if f.Phone != nil {
		setCardValue(card, vcard.FieldTelephone, *f.Phone)
	}
	if f.Address != nil {
		setCardValue(card, vcard.FieldAddress, structuredAddress(*f.Address))
	}
	if f.Birthday != nil {
		setCardValue(card, vcard.FieldBirthday, *f.Birthday)
	}
	if f.Note != nil {
		setCardValue(card, vcard.FieldNote, *f.Note)
	}
	if f.Website != nil {
		setCardValue(card, vcard.FieldURL, *f.Website)
	}
	for tag, handle := range f.Socials {
		if strings.TrimSpace(handle) == "" {
			removeSocialProfile(card, tag)
			continue
		}
		setSocialProfile(card, tag, normalizeHandle(tag, handle))
	}

	var buf bytes.Buffer
	if err := vcard.NewEncoder(&buf).Encode(card); err != nil {
		return nil, errors.Wrap(err, "encoding vCard")
	}
	if err := m.conn.put(ctx, obj.Path, vcardMIMEType, buf.Bytes()); err != nil {
		return nil, err
	}

	fresh, err := m.fetchCard(ctx, obj.Path)
	if err != nil {
		return nil, err
	}
	return &Object{Path: obj.Path, Kind: KindContact, Card: fresh}, nil
}

func (m *ContactManager) Delete(ctx context.Context, obj *Object) error {
	return m.conn.remove(ctx, obj.Path)
}

// Summary renders a short contact listing: name, UID, then email/phone on
// a second line when present.
func (m *ContactManager) Summary(ctx context.Context) (string, error) {
	contacts, err := m.List(ctx, ListOptions{Limit: defaultContactLimit})
	if err != nil {
		return "", err
	}
	if len(contacts) == 0 {
		return "No contacts.", nil
	}

	var lines []string
	for i := range contacts {
		c := &contacts[i]
		name := c.DisplayName()
		if name == "" {
			name = "(no name)"
		}
		if uid := c.UID(); uid != "" {
			lines = append(lines, fmt.Sprintf("- %s (UID: %s)", name, uid))
		} else {
			lines = append(lines, "- "+name)
		}
		var bits []string
		if email := CardValue(c.Card, vcard.FieldEmail); email != "" {
			bits = append(bits, email)
		}
		if tel := CardValue(c.Card, vcard.FieldTelephone); tel != "" {
			bits = append(bits, tel)
		}
		if len(bits) > 0 {
			lines = append(lines, "  "+strings.Join(bits, " / "))
		}
	}

	if urls, err := m.ListURLs(ctx); err == nil && len(contacts) < len(urls) {
		lines = append(lines, fmt.Sprintf("(showing first %d)", len(contacts)))
	}
	return strings.Join(lines, "\n"), nil
}

// CardValue reads the first occurrence of a vCard property, trimmed. The
// decoder already unescaped backslash sequences.
func CardValue(card vcard.Card, key string) string {
	return strings.TrimSpace(card.Value(key))
}

// SocialProfile returns the first social-profile URL tagged with the
// given type, or "".
func SocialProfile(card vcard.Card, tag string) string {
	for _, field := range card[fieldSocialProfile] {
		if strings.EqualFold(field.Params.Get(vcard.ParamType), tag) {
			return field.Value
		}
	}
	return ""
}

// buildCard constructs a fresh vCard 3.0 body. Values go in raw; the
// encoder escapes backslash, newline and comma on the way out.
func buildCard(uid string, f Fields) vcard.Card {
	card := make(vcard.Card)
	card.AddValue(vcard.FieldVersion, "3.0")
	card.AddValue(vcard.FieldUID, uid)
	card.AddValue(vcard.FieldFormattedName, *f.Name)
	card.AddValue(vcard.FieldName, structuredName(*f.Name))

	if f.Org != nil && *f.Org != "" {
		card.AddValue(vcard.FieldOrganization, *f.Org)
	}
	if f.JobTitle != nil && *f.JobTitle != "" {
		card.AddValue(vcard.FieldTitle, *f.JobTitle)
	}
	if f.Email != nil && *f.Email != "" {
		card.Add(vcard.FieldEmail, &vcard.Field{
			Value:  *f.Email,
			Params: vcard.Params{vcard.ParamType: {"INTERNET"}},
		})
	}
	if f.Phone != nil && *f.Phone != "" {
		card.Add(vcard.FieldTelephone, &vcard.Field{
			Value:  *f.Phone,
			Params: vcard.Params{vcard.ParamType: {"CELL"}},
		})
	}
	if f.Address != nil && *f.Address != "" {
		card.Add(vcard.FieldAddress, &vcard.Field{
			Value:  structuredAddress(*f.Address),
			Params: vcard.Params{vcard.ParamType: {"HOME"}},
		})
	}
	if f.Birthday != nil && *f.Birthday != "" {
		card.AddValue(vcard.FieldBirthday, *f.Birthday)
	}
	if f.Note != nil && *f.Note != "" {
		card.AddValue(vcard.FieldNote, *f.Note)
	}
	if f.Website != nil && *f.Website != "" {
		card.AddValue(vcard.FieldURL, *f.Website)
	}
	for tag, handle := range f.Socials {
		if strings.TrimSpace(handle) == "" {
			continue
		}
		setSocialProfile(card, tag, normalizeHandle(tag, handle))
	}
	return card
}

// structuredName builds the N value from a display name: first word is
// the given name, last word the family name. Components join on raw
// semicolons, so a literal ; inside a name is not representable here.
func structuredName(name string) string {
	parts := strings.Fields(name)
	given, family := "", ""
	if len(parts) > 0 {
		given = parts[0]
	}
	if len(parts) > 1 {
		family = parts[len(parts)-1]
	}
	return fmt.Sprintf("%s;%s;;;", family, given)
}

// structuredAddress places a free-form address into the street slot of
// the structured ADR value.
func structuredAddress(street string) string {
	return fmt.Sprintf(";;%s;;;;", street)
}

// setCardValue overwrites the first occurrence of a property, or appends
// it when absent. Later occurrences are left alone.
func setCardValue(card vcard.Card, key, value string) {
	if field := card.Get(key); field != nil {
		field.Value = value
		return
	}
	card.Add(key, &vcard.Field{Value: value})
}

// setSocialProfile treats each social tag as a singleton: entries with
// the tag are removed, entries with other tags survive, then the new
// value is appended.
func setSocialProfile(card vcard.Card, tag, profileURL string) {
	kept := card[fieldSocialProfile][:0]
	for _, field := range card[fieldSocialProfile] {
		if !strings.EqualFold(field.Params.Get(vcard.ParamType), tag) {
			kept = append(kept, field)
		}
	}
	card[fieldSocialProfile] = append(kept, &vcard.Field{
		Value:  profileURL,
		Params: vcard.Params{vcard.ParamType: {tag}},
	})
}

// removeSocialProfile drops every social-profile entry carrying the tag.
func removeSocialProfile(card vcard.Card, tag string) {
	kept := card[fieldSocialProfile][:0]
	for _, field := range card[fieldSocialProfile] {
		if !strings.EqualFold(field.Params.Get(vcard.ParamType), tag) {
			kept = append(kept, field)
		}
	}
	if len(kept) == 0 {
		delete(card, fieldSocialProfile)
		return
	}
	card[fieldSocialProfile] = kept
}

// socialBases maps a profile tag to its canonical URL prefix and whether
// a leading @ is customary for handles.
var socialBases = map[string]struct {
	base string
	atOK bool
}{
	"instagram": {"https://instagram.com", true},
	"twitter":   {"https://twitter.com", true},
	"linkedin":  {"https://linkedin.com/in", false},
	"github":    {"https://github.com", false},
}

// normalizeHandle turns a bare handle into a profile URL; full URLs pass
// through untouched.
func normalizeHandle(tag, value string) string {
	v := strings.TrimSpace(value)
	sb, known := socialBases[strings.ToLower(tag)]
	if !known {
		return v
	}
	if sb.atOK {
		v = strings.TrimPrefix(v, "@")
	}
	if strings.HasPrefix(v, "http://") || strings.HasPrefix(v, "https://") {
		return v
	}
	return strings.TrimRight(sb.base, "/") + "/" + v
}

