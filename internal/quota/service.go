// OnSide - Competitive Intelligence Reporting
// Copyright 2026 OnSide Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/onside-hq/onside

package quota

import (
	"context"
	"time"
)

// Serve runs the periodic counter flush until ctx is cancelled, then
// performs one final flush so no counted requests are lost on shutdown.
// The tracker is registered with the supervision tree as a service.
func (t *Tracker) Serve(ctx context.Context) error {
	t.log.Info().Dur("interval", t.flushInterval).Msg("Quota flush loop started")

	ticker := time.NewTicker(t.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := t.Flush(flushCtx); err != nil {
				t.log.Error().Err(err).Msg("Final quota flush failed")
			}
			t.log.Info().Msg("Quota flush loop stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := t.Flush(ctx); err != nil {
				t.log.Error().Err(err).Msg("Quota flush failed")
			}
		}
	}
}

// String names the service in supervisor logs.
func (t *Tracker) String() string {
	return "quota-tracker"
}
