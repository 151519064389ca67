// Package source implements the EOL knowledge source clients: the
// endoflife.date catalogue (universal fallback plus the runtime cycle
// lookup) and the vendor lifecycle feeds. Every client is a stateless HTTP
// wrapper bound by the caller's context.
package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"sunset/pkg/platform/sentinel"
)

const defaultUserAgent = "sunset-eol/1.0"

// getJSON performs one GET and decodes the JSON body. 404 maps to
// sentinel.ErrNotFound, transport failures and non-2xx statuses to
// sentinel.ErrUnavailable; context expiry passes through untouched so the
// instrumentation can classify timeouts.
func getJSON(ctx context.Context, client *http.Client, userAgent, url string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request %s: %w", url, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("request %s: %w", url, ctx.Err())
		}
		return fmt.Errorf("%w: request %s: %v", sentinel.ErrUnavailable, url, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", sentinel.ErrNotFound, url)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return fmt.Errorf("%w: %s returned %s", sentinel.ErrUnavailable, url, resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode %s: %w", url, err)
	}
	return nil
}

var slugStrip = regexp.MustCompile(`[^a-z0-9 -]`)

// slugFor turns a product base name into a catalogue slug: lowercase,
// punctuation dropped, spaces to hyphens. "Windows Server" → "windows-server",
// "node.js" → "nodejs".
func slugFor(name string) string {
	lowered := strings.ToLower(strings.TrimSpace(name))
	lowered = slugStrip.ReplaceAllString(lowered, "")
	lowered = strings.Join(strings.Fields(lowered), "-")
	return lowered
}

// dateFormats are tried in order when a feed field carries a date.
var dateFormats = []string{"2006-01-02", time.RFC3339}

func parseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range dateFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

// flexDate accepts the union shape lifecycle feeds use for dates: an ISO
// date string, or a boolean standing in for "already passed" / "not yet
// scheduled". Only real dates carry into candidates.
type flexDate struct {
	Date   *time.Time
	Passed *bool
}

func (d *flexDate) UnmarshalJSON(b []byte) error {
	trimmed := strings.TrimSpace(string(b))
	if trimmed == "null" {
		*d = flexDate{}
		return nil
	}
	if trimmed == "true" || trimmed == "false" {
		passed := trimmed == "true"
		*d = flexDate{Passed: &passed}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("lifecycle date must be a string or bool: %w", err)
	}
	*d = flexDate{Date: parseDate(s)}
	return nil
}

// flexBool accepts a bool or a date string (a date means "true since then").
type flexBool struct {
	Value *bool
}

func (f *flexBool) UnmarshalJSON(b []byte) error {
	trimmed := strings.TrimSpace(string(b))
	if trimmed == "null" {
		*f = flexBool{}
		return nil
	}
	if trimmed == "true" || trimmed == "false" {
		v := trimmed == "true"
		*f = flexBool{Value: &v}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("lifecycle flag must be a bool or string: %w", err)
	}
	v := s != ""
	*f = flexBool{Value: &v}
	return nil
}
