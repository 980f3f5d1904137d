// OnSide - Competitive Intelligence Reporting
// Copyright 2026 OnSide Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/onside-hq/onside

package database

import "errors"

// ErrNotFound is returned when a lookup matches no row. Handlers map it
// to HTTP 404; everything else maps to 500.
var ErrNotFound = errors.New("record not found")
