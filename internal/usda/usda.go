// Package usda proxies USDA NASS QuickStats queries with a server-held API key.
package usda

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"plantprofit/internal/domain"
	"plantprofit/internal/upstream"
)

const redacted = "REDACTED"

// Proxy forwards QuickStats api_GET queries.
type Proxy struct {
	http    *upstream.Client
	baseURL string
	apiKey  string
}

// NewProxy creates a proxy. apiKey may be empty, in which case callers must
// supply their own key parameter.
func NewProxy(baseURL, apiKey string, client *upstream.Client) *Proxy {
	return &Proxy{http: client, baseURL: baseURL, apiKey: strings.TrimSpace(apiKey)}
}

// Result is the upstream reply passed back to the caller unchanged.
type Result struct {
	Status      int
	ContentType string
	Body        []byte
}

// Get forwards query with the key replaced. The configured key wins over a
// caller key. Upstream responses below 500 are returned as they are; 5xx
// and transport failures wrap domain.ErrServiceUnavailable.
func (p *Proxy) Get(ctx context.Context, query url.Values) (Result, error) {
	params := url.Values{}
	for k, v := range query {
		if k != "key" {
			params[k] = append([]string(nil), v...)
		}
	}
	key := p.apiKey
	if key == "" {
		key = strings.TrimSpace(query.Get("key"))
	}
	if key == "" {
		return Result{}, fmt.Errorf("no USDA API key configured or supplied: %w", domain.ErrInvalidInput)
	}

	logged := params.Encode()
	params.Set("key", key)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return Result{}, fmt.Errorf("build usda request: %w", err)
	}
	resp, err := p.http.Do(ctx, req, Redact(logged))
	if err != nil {
		return Result{}, err
	}
	if resp.Status >= http.StatusInternalServerError {
		return Result{}, p.http.Check(resp)
	}
	ct := resp.Header.Get("Content-Type")
	if ct == "" {
		ct = "application/json"
	}
	return Result{Status: resp.Status, ContentType: ct, Body: resp.Body}, nil
}

// Redact appends a placeholder key to an encoded query for logging.
func Redact(encoded string) string {
	if encoded == "" {
		return "key=" + redacted
	}
	return encoded + "&key=" + redacted
}
