// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package money converts between the core's integer fixed-point Price
// (quote-currency wei, 10^18 scale) and human-facing decimal CPMs. The
// core's own arithmetic never uses this package — it is purely an
// external-facing convenience.
package money

import (
	"github.com/adxcore/matchengine/pkg/order"
	"github.com/shopspring/decimal"
)

// scale is the fixed-point denominator (10^18) Price values use.
var scale = decimal.New(1, 18)

// ToCPM converts a wei-scale Price to a decimal CPM value.
func ToCPM(p order.Price) decimal.Decimal {
	return decimal.NewFromInt(int64(p)).Div(scale)
}

// FromCPM converts a decimal CPM value to a wei-scale Price, truncating
// any precision finer than the integer scale.
func FromCPM(cpm decimal.Decimal) order.Price {
	wei := cpm.Mul(scale).Truncate(0)
	return order.Price(wei.IntPart())
}
