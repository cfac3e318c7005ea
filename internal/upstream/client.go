// Package upstream wraps outbound HTTP calls to third-party services with
// pacing, request logging, metrics and error classification.
package upstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"plantprofit/internal/domain"
	"plantprofit/internal/logging"
	"plantprofit/internal/metrics"
)

const maxErrorBody = 512

// Client performs exactly one attempt per call. Failures wrap
// domain.ErrServiceUnavailable or domain.ErrInvalidInput.
type Client struct {
	service string
	http    *http.Client
	limiter *rate.Limiter
	metrics *metrics.Metrics
}

// Options configures a Client.
type Options struct {
	Timeout           time.Duration
	RequestsPerSecond float64
	Metrics           *metrics.Metrics
	Transport         http.RoundTripper
}

// New creates a client for the named service. A zero RequestsPerSecond disables pacing.
func New(service string, opts Options) *Client {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	c := &Client{
		service: service,
		http:    &http.Client{Timeout: opts.Timeout, Transport: opts.Transport},
		metrics: opts.Metrics,
	}
	if opts.RequestsPerSecond > 0 {
		burst := int(opts.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}
	return c
}

// Service returns the service name used in logs and metrics.
func (c *Client) Service() string { return c.service }

// Response is a fully read upstream response.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Do sends req and reads the whole body. Only transport failures are
// returned as errors; use Check to classify the status code.
func (c *Client) Do(ctx context.Context, req *http.Request, logPayload any) (*Response, error) {
	start := time.Now()
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			c.observe("unavailable", start)
			return nil, fmt.Errorf("%s: rate limiter: %v: %w", c.service, err, domain.ErrServiceUnavailable)
		}
	}
	logging.Request("out", c.service, req.URL.Path, logPayload)

	resp, err := c.http.Do(req.WithContext(ctx))
	if err != nil {
		c.observe("unavailable", start)
		return nil, fmt.Errorf("%s: %v: %w", c.service, err, domain.ErrServiceUnavailable)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.observe("unavailable", start)
		return nil, fmt.Errorf("%s: read response: %v: %w", c.service, err, domain.ErrServiceUnavailable)
	}
	logging.Request("in", c.service, req.URL.Path, fmt.Sprintf("status=%d bytes=%d", resp.StatusCode, len(body)))
	c.observe(outcome(resp.StatusCode), start)
	return &Response{Status: resp.StatusCode, Header: resp.Header, Body: body}, nil
}

// Check maps a non-2xx status to a sentinel error: 400 and 422 are the
// caller's fault, everything else means the service is unusable right now.
func (c *Client) Check(resp *Response) error {
	if resp.Status >= 200 && resp.Status < 300 {
		return nil
	}
	detail := strings.TrimSpace(string(resp.Body))
	if len(detail) > maxErrorBody {
		detail = detail[:maxErrorBody] + "..."
	}
	sentinel := domain.ErrServiceUnavailable
	if resp.Status == http.StatusBadRequest || resp.Status == http.StatusUnprocessableEntity {
		sentinel = domain.ErrInvalidInput
	}
	return &StatusError{Service: c.service, Status: resp.Status, Detail: detail, kind: sentinel}
}

// StatusError reports a non-2xx upstream response.
type StatusError struct {
	Service string
	Status  int
	Detail  string
	kind    error
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned %d %s: %s", e.Service, e.Status, http.StatusText(e.Status), e.Detail)
}

func (e *StatusError) Unwrap() error { return e.kind }

// IsStatus reports whether err is a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Status == code
}

func (c *Client) observe(result string, start time.Time) {
	c.metrics.ObserveUpstream(c.service, result, time.Since(start))
}

func outcome(status int) string {
	switch {
	case status >= 200 && status < 300:
		return "ok"
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return "rejected"
	default:
		return "unavailable"
	}
}
