// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package batch implements the periodic uniform-price clearing auction
// over one slot's resting orders. It is the anti-MEV
// mechanism: intra-batch arrival order never affects price or who
// clears.
package batch

import (
	"time"

	"github.com/adxcore/matchengine/pkg/book"
	"github.com/adxcore/matchengine/pkg/order"
	"github.com/adxcore/matchengine/pkg/slot"
)

// Match is one pairing the auction cleared.
type Match struct {
	BidID             string
	AskID             string
	ClearingPrice     order.Price
	ClearingQuantity  order.Quantity
}

// Result is the outcome of one run_batch_auction call.
type Result struct {
	Matches             []Match
	TotalMatches        int
	ProcessingTimeMicros int64
}

// Auction runs uniform-price clearing for one slot.
type Auction struct {
	Slots *slot.Registry
	Sink  order.Sink
}

// New builds a batch Auction over the given registry and fill sink.
func New(slots *slot.Registry, sink order.Sink) *Auction {
	return &Auction{Slots: slots, Sink: sink}
}

// Run snapshots bids and asks, finds the crossing point, clears at the
// midpoint price, and removes filled orders from the live books.
func (a *Auction) Run(slotID string, bids, asks *book.Book, now time.Time) Result {
	start := now

	bidSnap := liveSnapshot(bids, now)
	askSnap := liveSnapshot(asks, now)

	k := crossingIndex(bidSnap, askSnap)

	result := Result{}
	if k == 0 {
		result.ProcessingTimeMicros = time.Since(start).Microseconds()
		return result
	}

	clearingPrice := (askSnap[k-1].LimitPrice + bidSnap[k-1].LimitPrice) / 2

	filledBidIDs := make(map[string]struct{}, k)
	filledAskIDs := make(map[string]struct{}, k)

	for i := 0; i < k; i++ {
		b := bidSnap[i]
		ak := askSnap[i]

		// Defensive targeting check: cannot happen if slot invariants
		// hold, but asserted anyway.
		if b.TargetingHash != ak.TargetingHash {
			continue
		}

		fillQty := b.Quantity
		if ak.Quantity < fillQty {
			fillQty = ak.Quantity
		}

		applied := a.Slots.Deliver(slotID, fillQty)
		if applied == 0 {
			continue
		}

		result.Matches = append(result.Matches, Match{
			BidID:            b.ID,
			AskID:            ak.ID,
			ClearingPrice:    clearingPrice,
			ClearingQuantity: applied,
		})

		if a.Sink != nil {
			a.Sink.Emit(order.FillEvent{
				SlotID:      slotID,
				BidID:       b.ID,
				AskID:       ak.ID,
				Price:       clearingPrice,
				Quantity:    applied,
				TimestampNs: now.UnixNano(),
			})
		}

		// Only fully filled orders leave the live books; a partially
		// filled order keeps resting with its unfilled remainder.
		b.Quantity -= applied
		ak.Quantity -= applied
		if b.Quantity == 0 {
			filledBidIDs[b.ID] = struct{}{}
		}
		if ak.Quantity == 0 {
			filledAskIDs[ak.ID] = struct{}{}
		}
	}

	for id := range filledBidIDs {
		bids.Remove(id)
	}
	for id := range filledAskIDs {
		asks.Remove(id)
	}

	result.TotalMatches = len(result.Matches)
	result.ProcessingTimeMicros = time.Since(start).Microseconds()
	return result
}

func liveSnapshot(b *book.Book, now time.Time) []*order.Order {
	b.DropExpired(func(o *order.Order) bool { return o.Expired(now) })
	return b.Snapshot()
}

// crossingIndex finds the largest k such that the k-th highest bid
// (1-indexed) is >= the k-th lowest ask. bids and asks are assumed
// already sorted (desc, asc respectively) by the book.
func crossingIndex(bids, asks []*order.Order) int {
	k := 0
	limit := len(bids)
	if len(asks) < limit {
		limit = len(asks)
	}
	for i := 0; i < limit; i++ {
		if bids[i].LimitPrice >= asks[i].LimitPrice {
			k = i + 1
		} else {
			break
		}
	}
	return k
}
