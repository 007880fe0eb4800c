// Package discovery lists the nightly releases published for the upstream
// repository.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"sort"
	"time"

	"github.com/fidde/glean_migration_tracker/pkg/models"
	"golang.org/x/net/html"
)

const (
	// DefaultURL is the release index of mozilla-central.
	DefaultURL = "https://hg.mozilla.org/mozilla-central/firefoxreleases"

	// DefaultMarker selects Windows 64-bit nightly rows.
	DefaultMarker = "nightlywin64"

	// FirstBuildID is the first nightly that shipped Glean.
	FirstBuildID = "20201005215809"

	defaultTimeout = 60 * time.Second
)

// ErrUnexpectedStatus is returned when the index answers with a non-200 status.
var ErrUnexpectedStatus = errors.New("unexpected status")

// Config holds the release index settings.
type Config struct {
	URL          string
	Marker       string
	FirstBuildID string
	Timeout      time.Duration
}

// DefaultConfig returns the mozilla-central nightly settings.
func DefaultConfig() Config {
	return Config{
		URL:          DefaultURL,
		Marker:       DefaultMarker,
		FirstBuildID: FirstBuildID,
		Timeout:      defaultTimeout,
	}
}

// Client scrapes the release index.
type Client struct {
	cfg   Config
	http  *http.Client
	rowID *regexp.Regexp

	// candidate matches the marker directly followed by a build id digit,
	// which excludes other platforms sharing the prefix (win64-aarch64).
	candidate *regexp.Regexp
	logger    *slog.Logger
}

// NewClient creates a client. A nil httpClient gets one with cfg.Timeout.
func NewClient(cfg Config, httpClient *http.Client, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Marker == "" {
		cfg.Marker = DefaultMarker
	}
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		cfg:       cfg,
		http:      httpClient,
		rowID:     regexp.MustCompile(`^([a-z0-9]+)` + regexp.QuoteMeta(cfg.Marker) + `([0-9]{14})$`),
		candidate: regexp.MustCompile(regexp.QuoteMeta(cfg.Marker) + `[0-9]`),
		logger:    logger,
	}
}

// Releases returns the releases at or after the first build id, oldest
// first, one per build id.
func (c *Client) Releases(ctx context.Context) ([]models.Release, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching release index: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching release index: %w: %s", ErrUnexpectedStatus, resp.Status)
	}

	ids, err := rowIDs(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing release index: %w", err)
	}

	releases := c.parseRows(ids)
	c.logger.Debug("release index scanned", "rows", len(ids), "releases", len(releases))
	return releases, nil
}

func (c *Client) parseRows(ids []string) []models.Release {
	var releases []models.Release
	for _, id := range ids {
		if !c.candidate.MatchString(id) {
			continue
		}
		m := c.rowID.FindStringSubmatch(id)
		if m == nil {
			c.logger.Warn("unexpected release row", "id", id)
			continue
		}
		if m[2] < c.cfg.FirstBuildID {
			continue
		}
		releases = append(releases, models.Release{Hash: m[1], BuildID: m[2]})
	}

	// The index lists newest first.
	for i, j := 0, len(releases)-1; i < j; i, j = i+1, j-1 {
		releases[i], releases[j] = releases[j], releases[i]
	}
	sort.SliceStable(releases, func(i, j int) bool {
		return releases[i].BuildID < releases[j].BuildID
	})

	seen := make(map[string]struct{}, len(releases))
	unique := releases[:0]
	for _, r := range releases {
		if _, ok := seen[r.BuildID]; ok {
			continue
		}
		seen[r.BuildID] = struct{}{}
		unique = append(unique, r)
	}
	return unique
}

// rowIDs returns the id attribute of every <tr> in document order.
func rowIDs(r io.Reader) ([]string, error) {
	var ids []string
	z := html.NewTokenizer(r)
	for {
		switch z.Next() {
		case html.ErrorToken:
			if err := z.Err(); !errors.Is(err, io.EOF) {
				return nil, err
			}
			return ids, nil
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			if string(name) != "tr" || !hasAttr {
				continue
			}
			for {
				key, val, more := z.TagAttr()
				if string(key) == "id" {
					ids = append(ids, string(val))
					break
				}
				if !more {
					break
				}
			}
		}
	}
}
