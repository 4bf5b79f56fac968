package ics

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

// maxPayloadBytes bounds a single ICS payload read from disk or network.
const maxPayloadBytes = 10 << 20

// ErrPayloadTooLarge is returned by readers from Open once a payload grows
// past the size cap.
var ErrPayloadTooLarge = errors.New("ics: payload exceeds size limit")

// Open returns a reader for an ICS payload located at a local path or an
// http(s) URL. Reads fail with ErrPayloadTooLarge past 10 MiB. The caller
// closes the returned reader.
func Open(ctx context.Context, client *http.Client, location string) (io.ReadCloser, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return nil, fmt.Errorf("ics: empty source location")
	}

	if u, err := url.Parse(location); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		return fetch(ctx, client, location)
	}

	f, err := os.Open(location)
	if err != nil {
		return nil, fmt.Errorf("ics: open %s: %w", location, err)
	}
	return newCappedReader(f, maxPayloadBytes), nil
}

func fetch(ctx context.Context, client *http.Client, rawURL string) (io.ReadCloser, error) {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("ics: build request: %w", err)
	}
	req.Header.Set("Accept", "text/calendar")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ics: fetch %s: %w", redactURL(rawURL), err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("ics: fetch %s: unexpected status %s", redactURL(rawURL), resp.Status)
	}
	return newCappedReader(resp.Body, maxPayloadBytes), nil
}

// cappedReader passes through at most limit bytes and reports
// ErrPayloadTooLarge instead of truncating when the source holds more.
type cappedReader struct {
	rc    io.ReadCloser
	limit int64
	read  int64
}

func newCappedReader(rc io.ReadCloser, limit int64) *cappedReader {
	return &cappedReader{rc: rc, limit: limit}
}

func (c *cappedReader) Read(p []byte) (int, error) {
	if c.read > c.limit {
		return 0, ErrPayloadTooLarge
	}
	// One byte beyond the limit is enough to tell "exactly full" from "too big".
	if room := c.limit + 1 - c.read; int64(len(p)) > room {
		p = p[:room]
	}
	n, err := c.rc.Read(p)
	c.read += int64(n)
	if c.read > c.limit {
		return n - int(c.read-c.limit), ErrPayloadTooLarge
	}
	return n, err
}

func (c *cappedReader) Close() error {
	return c.rc.Close()
}

// redactURL hides query strings, which commonly carry private feed tokens.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "<invalid-url>"
	}
	if u.RawQuery != "" {
		u.RawQuery = "REDACTED"
	}
	u.User = nil
	return u.String()
}
