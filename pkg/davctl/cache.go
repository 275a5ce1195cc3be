package davctl

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// bodyCache stores the last-fetched body for a URL together with its
// validators so re-fetches can be conditional. Purely an optimization:
// any cache failure falls back to a plain fetch, and the cache is never
// authoritative for writes.
type bodyCache struct {
	dir string
}

type cacheMeta struct {
	URL          string `json:"url"`
	ETag         string `json:"etag,omitempty"`
	LastModified string `json:"last_modified,omitempty"`
}

func newBodyCache() *bodyCache {
	base, err := os.UserCacheDir()
	if err != nil {
		log.WithError(err).Debug("response cache disabled")
		return &bodyCache{}
	}
	dir := filepath.Join(base, "davctl")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		log.WithError(err).Debug("response cache disabled")
		return &bodyCache{}
	}
	return &bodyCache{dir: dir}
}

func (b *bodyCache) enabled() bool { return b.dir != "" }

// paths returns the body and sidecar file for a URL, keyed by a hash of
// the URL.
func (b *bodyCache) paths(rawURL string) (data, meta string) {
	sum := sha1.Sum([]byte(rawURL))
	name := hex.EncodeToString(sum[:])
	ext := ".ics"
	if strings.HasSuffix(strings.ToLower(rawURL), ".vcf") {
		ext = ".vcf"
	}
	return filepath.Join(b.dir, name+ext), filepath.Join(b.dir, name+".json")
}

func (b *bodyCache) load(rawURL string) (body string, meta cacheMeta, ok bool) {
	if !b.enabled() {
		return "", cacheMeta{}, false
	}
	dataPath, metaPath := b.paths(rawURL)
	raw, err := os.ReadFile(metaPath)
	if err != nil {
		return "", cacheMeta{}, false
	}
	if err := json.Unmarshal(raw, &meta); err != nil {
		return "", cacheMeta{}, false
	}
	data, err := os.ReadFile(dataPath)
	if err != nil {
		return "", cacheMeta{}, false
	}
	return string(data), meta, true
}

func (b *bodyCache) store(rawURL, body, etag, lastModified string) {
	if !b.enabled() {
		return
	}
	dataPath, metaPath := b.paths(rawURL)
	meta := cacheMeta{URL: rawURL, ETag: etag, LastModified: lastModified}
	raw, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return
	}
	if err := os.WriteFile(dataPath, []byte(body), 0o600); err != nil {
		log.WithError(err).Debug("writing cache body")
		return
	}
	if err := os.WriteFile(metaPath, raw, 0o600); err != nil {
		log.WithError(err).Debug("writing cache sidecar")
	}
}

// fetch GETs a resource body, revalidating a cached copy with
// If-None-Match / If-Modified-Since when validators are on hand. A 304
// serves the cached body; a 404 maps to ErrNotFound.
func (c *Conn) fetch(ctx context.Context, rawURL string) (string, error) {
	cached, meta, haveCache := c.cache.load(rawURL)

	header := http.Header{}
	if haveCache {
		if meta.ETag != "" {
			header.Set("If-None-Match", meta.ETag)
		}
		if meta.LastModified != "" {
			header.Set("If-Modified-Since", meta.LastModified)
		}
	}

	resp, err := c.do(ctx, http.MethodGet, rawURL, header, nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotModified && haveCache:
		log.WithField("url", rawURL).Debug("cache hit")
		return cached, nil
	case resp.StatusCode == http.StatusNotFound:
		return "", errors.Wrapf(ErrNotFound, "GET %s", rawURL)
	case resp.StatusCode/100 != 2:
		return "", &StatusError{Method: http.MethodGet, URL: rawURL, Code: resp.StatusCode}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Wrapf(err, "reading %s", rawURL)
	}
	body := string(raw)
	c.cache.store(rawURL, body, resp.Header.Get("ETag"), resp.Header.Get("Last-Modified"))
	return body, nil
}
