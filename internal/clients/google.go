// OnSide - Competitive Intelligence Reporting
// Copyright 2026 OnSide Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/onside-hq/onside

package clients

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
	"google.golang.org/api/googleapi"

	"github.com/onside-hq/onside/internal/config"
	"github.com/onside-hq/onside/internal/logging"
	"github.com/onside-hq/onside/internal/metrics"
)

// googleEnvelope applies the shared resilience rules to adapters built on
// the generated Google API clients, where we call the service instead of
// issuing raw HTTP.
type googleEnvelope struct {
	provider  string
	quota     QuotaReserver
	breaker   *gobreaker.CircuitBreaker[any]
	attempts  int
	baseDelay time.Duration
	log       zerolog.Logger
}

func newGoogleEnvelope(provider string, cfg config.ProviderConfig, reserver QuotaReserver) *googleEnvelope {
	attempts := cfg.RetryAttempts
	if attempts <= 0 {
		attempts = 5
	}
	baseDelay := cfg.RetryBaseDelay
	if baseDelay <= 0 {
		baseDelay = time.Second
	}
	return &googleEnvelope{
		provider:  provider,
		quota:     reserver,
		breaker:   gobreaker.NewCircuitBreaker[any](breakerSettings(provider)),
		attempts:  attempts,
		baseDelay: baseDelay,
		log:       logging.With().Str("component", "clients").Str("provider", provider).Logger(),
	}
}

// googleCall runs fn through the provider's breaker, quota and retry loop.
func googleCall[T any](ctx context.Context, env *googleEnvelope, fn func() (T, error)) (T, error) {
	var zero T

	raw, err := env.breaker.Execute(func() (any, error) {
		return env.retry(ctx, func() (any, error) {
			return fn()
		})
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return zero, fmt.Errorf("%s circuit open: %w", env.provider, err)
		}
		return zero, err
	}

	out, ok := raw.(T)
	if !ok {
		return zero, fmt.Errorf("%s returned unexpected result type %T", env.provider, raw)
	}
	return out, nil
}

func (env *googleEnvelope) retry(ctx context.Context, fn func() (any, error)) (any, error) {
	var lastErr error

	for attempt := 0; attempt < env.attempts; attempt++ {
		if attempt > 0 {
			delay := env.baseDelay << (attempt - 1)
			metrics.ProviderBackoffWaits.WithLabelValues(env.provider).Inc()
			env.log.Debug().Int("attempt", attempt).Dur("delay", delay).Msg("Backing off before retry")

			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			case <-timer.C:
			}
		}

		if err := env.quota.Reserve(ctx, env.provider); err != nil {
			metrics.RecordProviderRequest(env.provider, "rejected", 0)
			return nil, err
		}

		start := time.Now()
		out, err := fn()
		if err == nil {
			metrics.RecordProviderRequest(env.provider, "success", time.Since(start))
			return out, nil
		}
		metrics.RecordProviderRequest(env.provider, "failure", time.Since(start))
		env.quota.RecordError(env.provider)
		lastErr = err

		var gerr *googleapi.Error
		if errors.As(err, &gerr) && !retryable(gerr.Code) {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	return nil, fmt.Errorf("%s request failed after %d attempts: %w", env.provider, env.attempts, lastErr)
}
