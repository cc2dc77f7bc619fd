// Package registry is a JSON-over-HTTP client for the RubyGems API.
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/huangsam/safeupdate/internal/contract"
	"github.com/huangsam/safeupdate/schema"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

const apiPrefix = "/api/v1"

// Errors returned by the client.
var (
	ErrVersionNotFound  = errors.New("version not found on registry")
	ErrUnexpectedStatus = errors.New("unexpected registry response")
)

// Client talks to a RubyGems-compatible registry.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	userAgent  string

	// versions memoizes version lists per name for the lifetime of the client,
	// so the cooldown check and stale_gem share one request.
	group    singleflight.Group
	mu       sync.RWMutex
	versions map[string][]versionEntry
}

var _ contract.RegistryClient = &Client{} // Compile-time check

// versionEntry is one element of /versions/{name}.json.
type versionEntry struct {
	Number    string    `json:"number"`
	Platform  string    `json:"platform"`
	CreatedAt time.Time `json:"created_at"`
}

// ownerEntry is one element of /gems/{name}/owners.json.
type ownerEntry struct {
	Handle *string `json:"handle"`
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithRateLimit caps outgoing requests per second. Zero disables the limiter.
func WithRateLimit(perSecond float64) Option {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), max(1, int(perSecond)))
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// NewClient creates a client for the registry at baseURL, e.g. https://rubygems.org.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: contract.DefaultRegistryTimeout},
		userAgent:  "safeupdate",
		versions:   make(map[string][]versionEntry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewClientFromConfig creates a client using the registry settings of cfg.
func NewClientFromConfig(cfg *contract.Config) *Client {
	return NewClient(cfg.RegistryURL,
		WithTimeout(cfg.RegistryTimeout),
		WithRateLimit(cfg.RegistryRateLimit),
	)
}

// FetchVersionCreatedAt returns when name@version was published.
func (c *Client) FetchVersionCreatedAt(ctx context.Context, name, version string) (time.Time, error) {
	versions, err := c.fetchVersions(ctx, name)
	if err != nil {
		return time.Time{}, err
	}
	for _, v := range versions {
		if v.Number == version {
			if v.CreatedAt.IsZero() {
				break
			}
			return v.CreatedAt, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %s %s", ErrVersionNotFound, name, version)
}

// FetchOwners returns the handles of the publishers of name.
// Owners without a public handle are skipped.
func (c *Client) FetchOwners(ctx context.Context, name string) ([]string, error) {
	var entries []ownerEntry
	if err := c.getJSON(ctx, "/gems/"+url.PathEscape(name)+"/owners.json", &entries); err != nil {
		return nil, err
	}
	owners := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Handle != nil && *e.Handle != "" {
			owners = append(owners, *e.Handle)
		}
	}
	return owners, nil
}

// FetchGemInfo returns the download total for name.
func (c *Client) FetchGemInfo(ctx context.Context, name string) (*schema.GemInfo, error) {
	var info schema.GemInfo
	if err := c.getJSON(ctx, "/gems/"+url.PathEscape(name)+".json", &info); err != nil {
		return nil, err
	}
	if info.Name == "" {
		info.Name = name
	}
	return &info, nil
}

// fetchVersions returns the memoized version list for name, fetching it at most once
// even when several workers ask concurrently. Failures are not memoized.
func (c *Client) fetchVersions(ctx context.Context, name string) ([]versionEntry, error) {
	c.mu.RLock()
	cached, ok := c.versions[name]
	c.mu.RUnlock()
	if ok {
		return cached, nil
	}

	res, err, _ := c.group.Do(name, func() (any, error) {
		c.mu.RLock()
		cached, ok := c.versions[name]
		c.mu.RUnlock()
		if ok {
			return cached, nil
		}

		var entries []versionEntry
		if err := c.getJSON(ctx, "/versions/"+url.PathEscape(name)+".json", &entries); err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.versions[name] = entries
		c.mu.Unlock()
		return entries, nil
	})
	if err != nil {
		return nil, err
	}
	return res.([]versionEntry), nil
}

// getJSON performs a GET against the API and decodes a 200 response into out.
func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+apiPrefix+path, nil)
	if err != nil {
		return fmt.Errorf("failed to build request for %s: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("%w: GET %s returned %d", ErrUnexpectedStatus, path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}
