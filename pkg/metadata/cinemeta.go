package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"seedrio/pkg/logger"
)

const (
	cacheSize = 1024
	cacheTTL  = 24 * time.Hour
)

var yearPattern = regexp.MustCompile(`\d{4}`)

// Meta is the subset of a Cinemeta record the resolver matches against.
type Meta struct {
	ID    string   `json:"id"`
	Type  string   `json:"type"`
	Name  string   `json:"name"`
	Year  int      `json:"-"`
	Genre []string `json:"genres,omitempty"`
}

type metaEnvelope struct {
	Meta struct {
		ID          string   `json:"id"`
		Type        string   `json:"type"`
		Name        string   `json:"name"`
		Year        string   `json:"year"`
		ReleaseInfo string   `json:"releaseInfo"`
		Genres      []string `json:"genres"`
	} `json:"meta"`
}

// Client resolves IMDb ids to titles via Cinemeta. Lookups are cached for a
// day; titles for a released id never change.
type Client struct {
	baseURL string
	client  *http.Client
	cache   *expirable.LRU[string, *Meta]
}

// NewClient creates a Cinemeta client. baseURL is the addon root
// (https://v3-cinemeta.strem.io in production).
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		cache: expirable.NewLRU[string, *Meta](cacheSize, nil, cacheTTL),
	}
}

// Lookup fetches the title and release year for an IMDb id. Series episode ids
// ("tt0903747:1:3") are reduced to their base id before the lookup. A miss on
// both the movie and series catalogs returns an error.
func (c *Client) Lookup(ctx context.Context, imdbID string) (*Meta, error) {
	baseID := BaseID(imdbID)

	if meta, ok := c.cache.Get(baseID); ok {
		return meta, nil
	}

	contentType := "movie"
	if strings.Contains(imdbID, ":") {
		contentType = "series"
	}

	meta, err := c.fetch(ctx, contentType, baseID)
	if err != nil {
		// An episode id always means series, but a bare id could be either.
		if contentType == "movie" {
			if m, serr := c.fetch(ctx, "series", baseID); serr == nil {
				meta = m
				err = nil
			}
		}
		if err != nil {
			return nil, err
		}
	}

	c.cache.Add(baseID, meta)
	logger.Debug("Cinemeta lookup", "id", baseID, "name", meta.Name, "year", meta.Year)
	return meta, nil
}

func (c *Client) fetch(ctx context.Context, contentType, imdbID string) (*Meta, error) {
	endpoint := fmt.Sprintf("%s/meta/%s/%s.json", c.baseURL, contentType, imdbID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cinemeta request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("cinemeta returned status %d for %s", resp.StatusCode, imdbID)
	}

	var envelope metaEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("failed to decode cinemeta response: %w", err)
	}
	if envelope.Meta.Name == "" {
		return nil, fmt.Errorf("cinemeta has no record for %s", imdbID)
	}

	return &Meta{
		ID:    envelope.Meta.ID,
		Type:  envelope.Meta.Type,
		Name:  envelope.Meta.Name,
		Year:  parseYear(envelope.Meta.Year, envelope.Meta.ReleaseInfo),
		Genre: envelope.Meta.Genres,
	}, nil
}

// BaseID strips the season/episode suffix from a Stremio series id.
func BaseID(id string) string {
	if i := strings.Index(id, ":"); i > 0 {
		return id[:i]
	}
	return id
}

// parseYear extracts the first 4-digit year from Cinemeta's year or
// releaseInfo field (either "1999" or a range like "2008-2013").
func parseYear(fields ...string) int {
	for _, f := range fields {
		if m := yearPattern.FindString(f); m != "" {
			if y, err := strconv.Atoi(m); err == nil {
				return y
			}
		}
	}
	return 0
}
