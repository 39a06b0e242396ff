// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package hashfn provides one reference implementation of
// order.HashFn. The core never implements hashing itself — commit-hash
// validation is delegated to an injected collaborator — this package
// exists so the commit-reveal flow is runnable end to end without
// every caller having to write their own.
package hashfn

import (
	"encoding/binary"

	"github.com/adxcore/matchengine/pkg/order"
	"golang.org/x/crypto/blake2b"
)

// Blake2b256 hashes a revealed price and nonce together using keyed
// BLAKE2b-256, a closer analogue of a commitment scheme than bare
// SHA-256 (the price acts as the MAC key, the nonce as the message).
func Blake2b256(revealedPrice order.Price, nonce []byte) []byte {
	var priceBytes [8]byte
	binary.BigEndian.PutUint64(priceBytes[:], uint64(revealedPrice))

	h, err := blake2b.New256(priceBytes[:])
	if err != nil {
		// priceBytes is always <= 64 bytes, the only way New256 can
		// fail; unreachable in practice.
		panic(err)
	}
	h.Write(nonce)
	return h.Sum(nil)
}
