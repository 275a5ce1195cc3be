package davctl

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/emersion/go-webdav/caldav"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// requestTimeout is the fixed per-request ceiling. There is no retry
// logic anywhere: a failed request aborts the current operation.
const requestTimeout = 20 * time.Second

// Conn bundles the authenticated HTTP client, the CalDAV client and the
// optional Google Calendar service for one CLI invocation. Nothing is
// retained between invocations.
type Conn struct {
	cfg        Config
	httpClient *http.Client
	cache      *bodyCache

	caldavClient *caldav.Client
	calendarSvc  *calendar.Service
}

// basicAuthTransport adds Basic Auth to every request.
type basicAuthTransport struct {
	username string
	password string
	base     http.RoundTripper
}

func (t *basicAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.SetBasicAuth(t.username, t.password)
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(req)
}

// NewConn creates a connection from an explicit Config.
func NewConn(cfg Config) *Conn {
	return &Conn{
		cfg: cfg,
		httpClient: &http.Client{
			Transport: &basicAuthTransport{
				username: cfg.Username,
				password: cfg.Password,
			},
			Timeout: requestTimeout,
		},
		cache: newBodyCache(),
	}
}

// NewFake creates a connection backed by a caller-supplied HTTP client,
// used for testing. The same client serves DAV requests and the Google
// Calendar service.
func NewFake(cfg Config, client *http.Client) (*Conn, error) {
	conn := &Conn{
		cfg:        cfg,
		httpClient: client,
		cache:      newBodyCache(),
	}
	svc, err := calendar.NewService(context.Background(),
		option.WithHTTPClient(client))
	if err != nil {
		return nil, errors.Wrap(err, "creating fake calendar service")
	}
	conn.calendarSvc = svc
	return conn, nil
}

// Config returns the configuration threaded into this connection.
func (c *Conn) Config() Config { return c.cfg }

// caldav returns the CalDAV client, creating it on first use.
func (c *Conn) caldav() (*caldav.Client, error) {
	if c.caldavClient != nil {
		return c.caldavClient, nil
	}
	base, err := c.cfg.calendarURL()
	if err != nil {
		return nil, err
	}
	client, err := caldav.NewClient(c.httpClient, base)
	if err != nil {
		return nil, errors.Wrap(err, "connecting to CalDAV server")
	}
	c.caldavClient = client
	return client, nil
}

// CalendarService returns the Google Calendar service, loading OAuth
// credentials from configDir on first use.
func (c *Conn) CalendarService(ctx context.Context, configDir string) (*calendar.Service, error) {
	if c.calendarSvc != nil {
		return c.calendarSvc, nil
	}
	svc, err := newCalendarService(ctx, configDir)
	if err != nil {
		return nil, err
	}
	c.calendarSvc = svc
	return svc, nil
}

// do issues a raw DAV request. Used where the protocol libraries have no
// verb for what we need: PROPFIND listings, conditional PUTs, DELETE.
func (c *Conn) do(ctx context.Context, method, rawURL string, header http.Header, body []byte) (*http.Response, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, rd)
	if err != nil {
		return nil, errors.Wrapf(err, "building %s request", method)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	log.WithFields(log.Fields{"method": method, "url": rawURL}).Debug("DAV request")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "%s %s", method, rawURL)
	}
	return resp, nil
}

// putCreate writes a new object with If-None-Match: * so an existing
// object at the URL is never silently overwritten.
func (c *Conn) putCreate(ctx context.Context, rawURL, contentType string, body []byte) error {
	header := http.Header{
		"Content-Type":  {contentType},
		"If-None-Match": {"*"},
	}
	resp, err := c.do(ctx, http.MethodPut, rawURL, header, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusPreconditionFailed {
		return errors.Wrapf(ErrConflict, "PUT %s", rawURL)
	}
	if resp.StatusCode/100 != 2 {
		return &StatusError{Method: http.MethodPut, URL: rawURL, Code: resp.StatusCode}
	}
	return nil
}

// put overwrites an existing object.
func (c *Conn) put(ctx context.Context, rawURL, contentType string, body []byte) error {
	header := http.Header{"Content-Type": {contentType}}
	resp, err := c.do(ctx, http.MethodPut, rawURL, header, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return &StatusError{Method: http.MethodPut, URL: rawURL, Code: resp.StatusCode}
	}
	return nil
}

// remove deletes a remote object. A 404 maps to ErrNotFound.
func (c *Conn) remove(ctx context.Context, rawURL string) error {
	resp, err := c.do(ctx, http.MethodDelete, rawURL, nil, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return errors.Wrapf(ErrNotFound, "DELETE %s", rawURL)
	}
	if resp.StatusCode/100 != 2 {
		return &StatusError{Method: http.MethodDelete, URL: rawURL, Code: resp.StatusCode}
	}
	return nil
}

// resolve joins a member name onto a collection URL.
func resolve(base, ref string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", errors.Wrapf(err, "parsing %q", base)
	}
	r, err := url.Parse(ref)
	if err != nil {
		return "", errors.Wrapf(err, "parsing %q", ref)
	}
	return b.ResolveReference(r).String(), nil
}
