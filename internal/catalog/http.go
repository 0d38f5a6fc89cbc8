package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/eugenenazirov/catering-configurator/internal/domain"
)

const maxResponseBytes = 4 << 20

// HTTPOption configures an HTTPClient.
type HTTPOption func(*HTTPClient)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(c *HTTPClient) {
		if client != nil {
			c.client = client
		}
	}
}

// WithRequestRate limits outgoing requests to rps with the given burst.
func WithRequestRate(rps float64, burst int) HTTPOption {
	return func(c *HTTPClient) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// HTTPClient reads packages and items from a remote catalog service:
//
//	GET {base}/packages
//	GET {base}/packages/{id}
//	GET {base}/categories/{category}/items?tier={tier}
type HTTPClient struct {
	base    string
	client  *http.Client
	limiter *rate.Limiter
}

// NewHTTPClient creates a client for the catalog service at baseURL.
func NewHTTPClient(baseURL string, opts ...HTTPOption) (*HTTPClient, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid catalog url %q", baseURL)
	}
	c := &HTTPClient{
		base:    strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(10), 20),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ItemsByCategory fetches every item of a category; filtering by activity is
// left to the caller.
func (c *HTTPClient) ItemsByCategory(ctx context.Context, category domain.Category, tier string) ([]domain.CatalogItem, error) {
	endpoint := c.base + "/categories/" + url.PathEscape(category.String()) + "/items"
	if tier != "" {
		endpoint += "?" + url.Values{"tier": {tier}}.Encode()
	}
	var items []domain.CatalogItem
	if err := c.get(ctx, endpoint, &items); err != nil {
		return nil, err
	}
	for i := range items {
		items[i].Category = category
	}
	return items, nil
}

// Package fetches one package definition.
func (c *HTTPClient) Package(ctx context.Context, id string) (domain.Package, error) {
	var pkg domain.Package
	if err := c.get(ctx, c.base+"/packages/"+url.PathEscape(id), &pkg); err != nil {
		return domain.Package{}, err
	}
	return pkg, nil
}

// ListPackages fetches every package definition.
func (c *HTTPClient) ListPackages(ctx context.Context) ([]domain.Package, error) {
	var pkgs []domain.Package
	if err := c.get(ctx, c.base+"/packages", &pkgs); err != nil {
		return nil, err
	}
	return pkgs, nil
}

func (c *HTTPClient) get(ctx context.Context, endpoint string, v any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build catalog request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound && strings.Contains(endpoint, "/packages/"):
		return fmt.Errorf("%w: %s", ErrPackageNotFound, endpoint)
	case resp.StatusCode != http.StatusOK:
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return fmt.Errorf("%w: %s returned %d", ErrUnavailable, endpoint, resp.StatusCode)
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(v); err != nil {
		return fmt.Errorf("%w: decode %s: %v", ErrUnavailable, endpoint, err)
	}
	return nil
}
