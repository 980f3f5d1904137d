// OnSide - Competitive Intelligence Reporting
// Copyright 2026 OnSide Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/onside-hq/onside

// Package clients contains the adapters for the external data providers.
//
// Every adapter shares one resilience envelope: a quota reservation before
// each attempt, exponential backoff on 429/5xx responses honoring
// Retry-After, and a circuit breaker per provider. A provider that is
// down, throttling, or out of quota degrades its report section; it never
// takes the process down with it.
package clients

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"

	"github.com/onside-hq/onside/internal/config"
	"github.com/onside-hq/onside/internal/logging"
	"github.com/onside-hq/onside/internal/metrics"
)

// QuotaReserver gates outbound calls. Implemented by quota.Tracker.
type QuotaReserver interface {
	Reserve(ctx context.Context, provider string) error
	RecordError(provider string)
}

// HTTPError is a non-2xx provider response. RetryAfter carries the
// server's Retry-After hint when one was sent.
type HTTPError struct {
	Provider   string
	StatusCode int
	Body       string
	RetryAfter time.Duration
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s returned HTTP %d: %s", e.Provider, e.StatusCode, e.Body)
}

// retryable reports whether the status is worth another attempt.
func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

const maxErrorBody = 512

// httpClient is the shared envelope for the plain-HTTP adapters.
type httpClient struct {
	provider  string
	http      *http.Client
	quota     QuotaReserver
	breaker   *gobreaker.CircuitBreaker[[]byte]
	attempts  int
	baseDelay time.Duration
	log       zerolog.Logger
}

func newHTTPClient(provider string, cfg config.ProviderConfig, reserver QuotaReserver) *httpClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	attempts := cfg.RetryAttempts
	if attempts <= 0 {
		attempts = 5
	}
	baseDelay := cfg.RetryBaseDelay
	if baseDelay <= 0 {
		baseDelay = time.Second
	}
	return &httpClient{
		provider:  provider,
		http:      &http.Client{Timeout: timeout},
		quota:     reserver,
		breaker:   newBreaker(provider),
		attempts:  attempts,
		baseDelay: baseDelay,
		log:       logging.With().Str("component", "clients").Str("provider", provider).Logger(),
	}
}

// getJSON performs a GET through the breaker and retry loop and decodes
// the response body into out.
func (c *httpClient) getJSON(ctx context.Context, url string, out interface{}) error {
	body, err := c.breaker.Execute(func() ([]byte, error) {
		return c.fetch(ctx, url)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return fmt.Errorf("%s circuit open: %w", c.provider, err)
		}
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", c.provider, err)
	}
	return nil
}

// fetch performs the request with quota reservation and backoff. Each
// attempt reserves quota separately so retries are metered like any other
// call.
func (c *httpClient) fetch(ctx context.Context, url string) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt < c.attempts; attempt++ {
		if attempt > 0 {
			if err := c.waitBackoff(ctx, attempt, lastErr); err != nil {
				return nil, err
			}
		}

		if err := c.quota.Reserve(ctx, c.provider); err != nil {
			metrics.RecordProviderRequest(c.provider, "rejected", 0)
			return nil, err
		}

		body, err := c.attemptOnce(ctx, url)
		if err == nil {
			return body, nil
		}
		lastErr = err

		var httpErr *HTTPError
		if errors.As(err, &httpErr) && !retryable(httpErr.StatusCode) {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	return nil, fmt.Errorf("%s request failed after %d attempts: %w", c.provider, c.attempts, lastErr)
}

func (c *httpClient) attemptOnce(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s request: %w", c.provider, err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.RecordProviderRequest(c.provider, "failure", time.Since(start))
		c.quota.RecordError(c.provider)
		return nil, fmt.Errorf("%s request failed: %w", c.provider, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.RecordProviderRequest(c.provider, "failure", time.Since(start))
		c.quota.RecordError(c.provider)
		return nil, fmt.Errorf("failed to read %s response: %w", c.provider, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.RecordProviderRequest(c.provider, "failure", time.Since(start))
		c.quota.RecordError(c.provider)
		snippet := string(body)
		if len(snippet) > maxErrorBody {
			snippet = snippet[:maxErrorBody]
		}
		return nil, &HTTPError{
			Provider:   c.provider,
			StatusCode: resp.StatusCode,
			Body:       snippet,
			RetryAfter: parseRetryAfter(resp.Header),
		}
	}

	metrics.RecordProviderRequest(c.provider, "success", time.Since(start))
	return body, nil
}

// waitBackoff sleeps before retry attempt n (n >= 1). The delay doubles
// per attempt from baseDelay; a Retry-After header on the previous 429
// response wins when longer.
func (c *httpClient) waitBackoff(ctx context.Context, attempt int, lastErr error) error {
	delay := c.baseDelay << (attempt - 1)

	var httpErr *HTTPError
	if errors.As(lastErr, &httpErr) && httpErr.RetryAfter > delay {
		delay = httpErr.RetryAfter
	}

	metrics.ProviderBackoffWaits.WithLabelValues(c.provider).Inc()
	c.log.Debug().Int("attempt", attempt).Dur("delay", delay).Msg("Backing off before retry")

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// parseRetryAfter reads a Retry-After header given in seconds.
func parseRetryAfter(h http.Header) time.Duration {
	v := h.Get("Retry-After")
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
