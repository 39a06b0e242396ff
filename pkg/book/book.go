// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package book implements the per-slot, per-side price-time priority
// order book used by the immediate matcher and snapshotted by the
// batch auction.
package book

import (
	"sort"

	"github.com/adxcore/matchengine/pkg/order"
)

// Side distinguishes bid and ask ordering.
type Side int

const (
	Bid Side = iota
	Ask
)

// Book is one sorted sequence of resting orders for one side of one
// slot. Bids sort (-price, created asc); asks sort (price, created
// asc) — ties break FIFO by arrival.
//
// Insertion keeps the slice sorted via a binary search for the
// insertion point (O(log n) search, O(n) shift). A priority-queue
// implementation would give amortised O(log n) insertion too — left as
// a documented trade-off since peek/pop, the hot path, are O(1) either
// way.
type Book struct {
	side    Side
	resting []*order.Order
}

// New creates an empty book for the given side.
func New(side Side) *Book {
	return &Book{side: side}
}

func (b *Book) less(a, c *order.Order) bool {
	if b.side == Bid {
		if a.LimitPrice != c.LimitPrice {
			return a.LimitPrice > c.LimitPrice
		}
	} else {
		if a.LimitPrice != c.LimitPrice {
			return a.LimitPrice < c.LimitPrice
		}
	}
	return a.Created.Before(c.Created)
}

// Insert places o into its sorted position.
func (b *Book) Insert(o *order.Order) {
	idx := sort.Search(len(b.resting), func(i int) bool {
		return b.less(o, b.resting[i])
	})
	b.resting = append(b.resting, nil)
	copy(b.resting[idx+1:], b.resting[idx:])
	b.resting[idx] = o
}

// PeekLive returns the best resting order that has not expired as of
// now, discarding any expired orders found at the head along the way —
// expiry is evaluated lazily at peek time.
func (b *Book) PeekLive(isExpired func(*order.Order) bool) *order.Order {
	for len(b.resting) > 0 {
		head := b.resting[0]
		if isExpired(head) {
			b.resting = b.resting[1:]
			continue
		}
		return head
	}
	return nil
}

// PeekHead returns the best resting order with no expiry filtering, or
// nil if the book is empty.
func (b *Book) PeekHead() *order.Order {
	if len(b.resting) == 0 {
		return nil
	}
	return b.resting[0]
}

// DropExpired removes resting orders for which isExpired returns true,
// evaluated from the head (book order), stopping at the first
// non-expired order is NOT assumed — expiry is not correlated with
// price order, so the whole book is scanned.
func (b *Book) DropExpired(isExpired func(*order.Order) bool) {
	kept := b.resting[:0]
	for _, o := range b.resting {
		if !isExpired(o) {
			kept = append(kept, o)
		}
	}
	b.resting = kept
}

// DecrementHead reduces the head order's quantity by qty, popping it
// if it reaches zero. Panics if qty exceeds the head's quantity or the
// book is empty — a programmer error.
func (b *Book) DecrementHead(qty order.Quantity) {
	if len(b.resting) == 0 {
		panic("book: decrement on empty book")
	}
	head := b.resting[0]
	if qty > head.Quantity {
		panic("book: decrement exceeds head quantity")
	}
	head.Quantity -= qty
	if head.Quantity == 0 {
		b.resting = b.resting[1:]
	}
}

// Pop removes and returns the head order, or nil if empty.
func (b *Book) Pop() *order.Order {
	if len(b.resting) == 0 {
		return nil
	}
	head := b.resting[0]
	b.resting = b.resting[1:]
	return head
}

// Len returns the number of resting orders.
func (b *Book) Len() int { return len(b.resting) }

// Snapshot returns a shallow copy of the resting orders in sorted
// order, for the batch auction to walk without racing live mutation.
func (b *Book) Snapshot() []*order.Order {
	out := make([]*order.Order, len(b.resting))
	copy(out, b.resting)
	return out
}

// Remove deletes a specific order by ID, used when the batch auction
// clears resting orders out from under the live book.
func (b *Book) Remove(orderID string) {
	for i, o := range b.resting {
		if o.ID == orderID {
			b.resting = append(b.resting[:i], b.resting[i+1:]...)
			return
		}
	}
}

// IsSorted reports whether the book currently satisfies its sort
// invariant — used by tests to assert the book-ordering property
// holds after arbitrary insert sequences.
func (b *Book) IsSorted() bool {
	return sort.SliceIsSorted(b.resting, func(i, j int) bool {
		return b.less(b.resting[i], b.resting[j])
	})
}
