// Package datasource fetches chart payloads from HTTP data endpoints.
package datasource

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goliatone/go-chartboard/components/dashboard"
)

// DefaultMaxBodyBytes bounds payloads read from a data endpoint.
const DefaultMaxBodyBytes = 1 << 20

// HTTPConfig configures the HTTP data fetcher.
type HTTPConfig struct {
	BaseURL      string
	APIKey       string
	HTTPClient   *http.Client
	MaxBodyBytes int64
}

// HTTPFetcher performs GET requests against data endpoints. Relative
// endpoints are resolved against BaseURL. The API key is only sent to the
// BaseURL origin.
type HTTPFetcher struct {
	base    *url.URL
	apiKey  string
	client  *http.Client
	maxBody int64
}

var _ dashboard.DataFetcher = (*HTTPFetcher)(nil)

// NewHTTPFetcher builds a fetcher. BaseURL is optional when every chart uses
// absolute endpoints.
func NewHTTPFetcher(cfg HTTPConfig) (*HTTPFetcher, error) {
	f := &HTTPFetcher{
		apiKey:  cfg.APIKey,
		client:  cfg.HTTPClient,
		maxBody: cfg.MaxBodyBytes,
	}
	if cfg.BaseURL != "" {
		base, err := url.Parse(cfg.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("datasource: parse base url: %w", err)
		}
		if base.Scheme == "" || base.Host == "" {
			return nil, fmt.Errorf("datasource: base url %q must be absolute", cfg.BaseURL)
		}
		f.base = base
	}
	if f.client == nil {
		f.client = &http.Client{Timeout: 10 * time.Second}
	}
	if f.maxBody <= 0 {
		f.maxBody = DefaultMaxBodyBytes
	}
	return f, nil
}

// Fetch implements dashboard.DataFetcher.
func (f *HTTPFetcher) Fetch(ctx context.Context, endpoint string) ([]byte, error) {
	target, err := f.resolve(endpoint)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("datasource: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if f.apiKey != "" && f.sameOrigin(target) {
		req.Header.Set("Authorization", "Bearer "+f.apiKey)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("datasource: http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBody+1))
	if err != nil {
		return nil, fmt.Errorf("datasource: read response: %w", err)
	}
	if int64(len(body)) > f.maxBody {
		return nil, fmt.Errorf("datasource: response from %s exceeds %d bytes", target, f.maxBody)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("datasource: remote error %d: %s", resp.StatusCode, strings.TrimSpace(string(bytes.TrimSpace(body))))
	}
	return body, nil
}

func (f *HTTPFetcher) resolve(endpoint string) (*url.URL, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("datasource: endpoint is required")
	}
	ref, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("datasource: parse endpoint: %w", err)
	}
	if ref.IsAbs() {
		if ref.Scheme != "http" && ref.Scheme != "https" {
			return nil, fmt.Errorf("datasource: unsupported scheme %q", ref.Scheme)
		}
		return ref, nil
	}
	if f.base == nil {
		return nil, fmt.Errorf("datasource: relative endpoint %q needs a base url", endpoint)
	}
	return f.base.ResolveReference(ref), nil
}

func (f *HTTPFetcher) sameOrigin(target *url.URL) bool {
	if f.base == nil {
		return false
	}
	return strings.EqualFold(target.Scheme, f.base.Scheme) && strings.EqualFold(target.Host, f.base.Host)
}
