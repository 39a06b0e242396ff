// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package hashfn

import (
	"testing"

	"github.com/adxcore/matchengine/pkg/order"
	"github.com/stretchr/testify/require"
)

func TestBlake2b256Deterministic(t *testing.T) {
	a := Blake2b256(order.Price(1500), []byte("nonce"))
	b := Blake2b256(order.Price(1500), []byte("nonce"))
	require.Equal(t, a, b)
}

func TestBlake2b256SensitiveToInputs(t *testing.T) {
	base := Blake2b256(order.Price(1500), []byte("nonce"))

	require.NotEqual(t, base, Blake2b256(order.Price(1501), []byte("nonce")))
	require.NotEqual(t, base, Blake2b256(order.Price(1500), []byte("other-nonce")))
}

func TestBlake2b256Length(t *testing.T) {
	h := Blake2b256(order.Price(0), nil)
	require.Len(t, h, 32)
}
