// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package matcher implements the synchronous price-time crossing
// invoked after every marketable order.
package matcher

import (
	"time"

	"github.com/adxcore/matchengine/pkg/book"
	"github.com/adxcore/matchengine/pkg/order"
	"github.com/adxcore/matchengine/pkg/slot"
)

// Matcher repeatedly crosses the best bid against the best ask for one
// slot's books until no crossing pair remains.
type Matcher struct {
	Slots *slot.Registry
	Sink  order.Sink
}

// New builds a Matcher over the given registry and fill sink.
func New(slots *slot.Registry, sink order.Sink) *Matcher {
	return &Matcher{Slots: slots, Sink: sink}
}

// Cross runs the crossing loop against bids and asks for slotID,
// stopping when either side is empty or the best bid no longer meets
// the best ask. It returns the number of fills produced.
func (m *Matcher) Cross(slotID string, bids, asks *book.Book, now time.Time) int {
	fills := 0
	for {
		b := bids.PeekLive(func(o *order.Order) bool { return o.Expired(now) })
		a := asks.PeekLive(func(o *order.Order) bool { return o.Expired(now) })
		if b == nil || a == nil {
			return fills
		}
		if b.LimitPrice < a.LimitPrice {
			return fills
		}

		fillQty := b.Quantity
		if a.Quantity < fillQty {
			fillQty = a.Quantity
		}
		fillPrice := a.LimitPrice // maker-price rule: taker pays the resting order's price

		applied := m.Slots.Deliver(slotID, fillQty)
		if applied == 0 {
			// No remaining capacity at all; nothing more can trade.
			return fills
		}

		m.emit(slotID, b, a, fillPrice, applied, now)
		fills++

		bids.DecrementHead(applied)
		asks.DecrementHead(applied)

		if applied < fillQty {
			// Truncated to remaining capacity — stop rather than continue
			// at a smaller size.
			return fills
		}
	}
}

// CrossMarket matches a MARKET order directly against the resting
// book without ever inserting it — market orders never rest. The
// caller passes the counter-side book; mkt.IsBuy only decides whether
// the market order is reported as the bid or the ask of each fill.
// Any unfilled remainder is discarded.
func (m *Matcher) CrossMarket(slotID string, mkt *order.Order, counter *book.Book, now time.Time) int {
	fills := 0
	for mkt.Quantity > 0 {
		c := counter.PeekLive(func(o *order.Order) bool { return o.Expired(now) })
		if c == nil {
			return fills
		}

		fillQty := mkt.Quantity
		if c.Quantity < fillQty {
			fillQty = c.Quantity
		}
		fillPrice := c.LimitPrice

		applied := m.Slots.Deliver(slotID, fillQty)
		if applied == 0 {
			return fills
		}

		var bidID, askID string
		if mkt.IsBuy {
			bidID, askID = mkt.ID, c.ID
		} else {
			bidID, askID = c.ID, mkt.ID
		}
		m.emitIDs(slotID, bidID, askID, fillPrice, applied, now)
		fills++

		mkt.Quantity -= applied
		counter.DecrementHead(applied)

		if applied < fillQty {
			return fills
		}
	}
	return fills
}

func (m *Matcher) emit(slotID string, bid, ask *order.Order, price order.Price, qty order.Quantity, now time.Time) {
	m.emitIDs(slotID, bid.ID, ask.ID, price, qty, now)
}

func (m *Matcher) emitIDs(slotID, bidID, askID string, price order.Price, qty order.Quantity, now time.Time) {
	if m.Sink == nil {
		return
	}
	m.Sink.Emit(order.FillEvent{
		SlotID:      slotID,
		BidID:       bidID,
		AskID:       askID,
		Price:       price,
		Quantity:    qty,
		TimestampNs: now.UnixNano(),
	})
}
