// Package pokeapi is a thin HTTP client for the PokeAPI catalog.
//
// It only knows about transport and decoding. Mapping status codes to the
// service's error taxonomy happens in the pokemon package.
package pokeapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hession/pokemate/internal/metrics"
)

const (
	DefaultBaseURL   = "https://pokeapi.co/api/v2"
	DefaultUserAgent = "pokemate/0.1"
	defaultTimeout   = 15 * time.Second
	maxErrorBody     = 512
)

// StatusError is returned for any non-2xx catalog response
type StatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("catalog returned status %d for %s", e.StatusCode, e.URL)
}

// NotFound reports whether the catalog answered 404
func (e *StatusError) NotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// Client catalog client
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
}

// Option client configuration option
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client; nil keeps the default
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets the per-request timeout of the default http.Client
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// WithUserAgent sets the User-Agent header
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if strings.TrimSpace(ua) != "" {
			c.userAgent = ua
		}
	}
}

// New creates a catalog client rooted at baseURL
func New(baseURL string, opts ...Option) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		userAgent:  DefaultUserAgent,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the catalog root
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Pokemon fetches GET /pokemon/{name}
func (c *Client) Pokemon(ctx context.Context, name string) (*Pokemon, error) {
	var out Pokemon
	if err := c.get(ctx, "pokemon", c.baseURL+"/pokemon/"+url.PathEscape(name), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Species fetches GET /pokemon-species/{name}
func (c *Client) Species(ctx context.Context, name string) (*Species, error) {
	var out Species
	if err := c.get(ctx, "species", c.baseURL+"/pokemon-species/"+url.PathEscape(name), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// EvolutionChain fetches an evolution chain by the absolute URL the species points at
func (c *Client) EvolutionChain(ctx context.Context, chainURL string) (*EvolutionChain, error) {
	parsed, err := url.Parse(chainURL)
	if err != nil || parsed.Scheme == "" {
		return nil, fmt.Errorf("invalid evolution chain url: %q", chainURL)
	}

	var out EvolutionChain
	if err := c.get(ctx, "evolution_chain", parsed.String(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) get(ctx context.Context, resource, rawURL string, out any) (err error) {
	start := time.Now()
	defer func() {
		metrics.CatalogRequests.WithLabelValues(resource, metrics.Outcome(err)).Inc()
		metrics.CatalogRequestDuration.WithLabelValues(resource).Observe(time.Since(start).Seconds())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("catalog request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{StatusCode: resp.StatusCode, URL: rawURL, Body: string(body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", resource, err)
	}
	return nil
}
