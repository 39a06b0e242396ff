// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package ids provides convenience identifier generation for callers
// that don't already have their own ID scheme. The core engine never
// calls into this package itself — order_id and slot_id are always
// supplied by the caller.
package ids

import "github.com/google/uuid"

// New returns a fresh random identifier suitable for an order_id,
// slot_id, or trader handle in tests and demos.
func New() string {
	return uuid.New().String()
}
