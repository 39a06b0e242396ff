// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package money

import (
	"testing"

	"github.com/adxcore/matchengine/pkg/order"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestToCPMRoundTrip(t *testing.T) {
	p := order.Price(2_500_000_000_000_000_000) // 2.5 in wei scale
	cpm := ToCPM(p)
	require.True(t, cpm.Equal(decimal.NewFromFloat(2.5)))
	require.Equal(t, p, FromCPM(cpm))
}

func TestFromCPMTruncates(t *testing.T) {
	// Parsed from a string: a float64 literal this close to 2 rounds to
	// exactly 2.0 before FromCPM ever sees it.
	cpm := decimal.RequireFromString("1.9999999999999999999")
	p := FromCPM(cpm)
	require.Equal(t, order.Price(1999999999999999999), p)
}

func TestFromCPMZero(t *testing.T) {
	require.Equal(t, order.Price(0), FromCPM(decimal.Zero))
}
