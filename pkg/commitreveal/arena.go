// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package commitreveal implements the sealed-bid commit-reveal state
// machine: Idle -> CommitPhaseOpen -> RevealPhaseOpen -> Cleared ->
// Idle, with a single per-slot reveal deadline.
package commitreveal

import (
	"bytes"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/adxcore/matchengine/pkg/order"
	"github.com/adxcore/matchengine/pkg/slot"
)

var (
	ErrPhaseClosed  = errors.New("commitreveal: phase closed")
	ErrOrderMissing = errors.New("commitreveal: no commit recorded for order")
	ErrHashMismatch = errors.New("commitreveal: revealed value does not match commitment")
)

// Phase is the arena's state for one slot.
type Phase int

const (
	Idle Phase = iota
	CommitPhaseOpen
	RevealPhaseOpen
	Cleared
)

type slotState struct {
	mu             sync.Mutex
	phase          Phase
	revealDeadline time.Time
	pending        map[string]*order.Order // order_id -> sealed order
	commitOrder    []string                // order_id, in commit arrival order
}

// Arena holds sealed orders per slot and enforces reveal deadlines.
// The reveal deadline marks the end of the reveal window opened by
// StartCommitPhase.
type Arena struct {
	mu     sync.Mutex
	slots  map[string]*slotState
	hashFn order.HashFn
}

// New builds an Arena that validates commit hashes with hashFn.
func New(hashFn order.HashFn) *Arena {
	return &Arena{slots: make(map[string]*slotState), hashFn: hashFn}
}

func (a *Arena) stateFor(slotID string) *slotState {
	a.mu.Lock()
	defer a.mu.Unlock()
	s, ok := a.slots[slotID]
	if !ok {
		s = &slotState{pending: make(map[string]*order.Order)}
		a.slots[slotID] = s
	}

	return s
}

// StartCommitPhase clears any prior orders for the slot and opens a
// fresh commit/reveal window of the given duration.
func (a *Arena) StartCommitPhase(slotID string, now time.Time, duration time.Duration) {
	s := a.stateFor(slotID)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = make(map[string]*order.Order)
	s.commitOrder = nil
	s.revealDeadline = now.Add(duration)
	s.phase = CommitPhaseOpen
}

// Commit appends a sealed order to the slot's pending list. The
// order's LimitPrice is treated as max collateral only; it plays no
// role in matching until Reveal sets RevealedPrice.
func (a *Arena) Commit(slotID string, o *order.Order) error {
	s := a.stateFor(slotID)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != CommitPhaseOpen && s.phase != RevealPhaseOpen {
		return ErrPhaseClosed
	}
	cp := *o
	if _, exists := s.pending[o.ID]; !exists {
		s.commitOrder = append(s.commitOrder, o.ID)
	}
	s.pending[o.ID] = &cp
	return nil
}

// Reveal validates and records a bidder's revealed price and nonce
// against their commitment.
func (a *Arena) Reveal(slotID, orderID string, now time.Time, revealedPrice order.Price, nonce []byte) error {
	s := a.stateFor(slotID)
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase == Idle || s.revealDeadline.IsZero() || now.After(s.revealDeadline) {
		return ErrPhaseClosed
	}
	s.phase = RevealPhaseOpen

	o, ok := s.pending[orderID]
	if !ok {
		return ErrOrderMissing
	}

	got := a.hashFn(revealedPrice, nonce)
	if !bytes.Equal(got, o.CommitHash) {
		return ErrHashMismatch
	}

	o.Revealed = true
	o.RevealedPrice = revealedPrice
	return nil
}

// ClearResult is one winning bid from a clearing pass.
type ClearResult struct {
	OrderID  string
	Trader   string
	Price    order.Price
	Quantity order.Quantity
}

// Clear filters to revealed orders for slotID, sorts by revealed price
// descending, and allocates the slot's remaining supply to the top
// bids at a single uniform clearing price — the lowest revealed price
// among winners — emitting fills against the slot's own inventory
// (there is no resting ask side in a sealed-bid auction; the publisher
// supply itself is the counterparty). Advances the slot to Cleared and
// then back to Idle for the next StartCommitPhase.
func (a *Arena) Clear(slotID string, slots *slot.Registry, sink order.Sink, now time.Time) []ClearResult {
	s := a.stateFor(slotID)
	s.mu.Lock()
	// Walk commitOrder, not the pending map, so the input to the
	// stable sort below has a deterministic order — map iteration
	// order is randomized per run and would make the price tie-break
	// non-reproducible across otherwise-identical replays.
	revealed := make([]*order.Order, 0, len(s.commitOrder))
	for _, id := range s.commitOrder {
		if o := s.pending[id]; o != nil && o.Revealed {
			revealed = append(revealed, o)
		}
	}
	s.phase = Cleared
	s.mu.Unlock()

	sort.SliceStable(revealed, func(i, j int) bool {
		return revealed[i].RevealedPrice > revealed[j].RevealedPrice
	})

	var results []ClearResult
	if len(revealed) == 0 {
		a.returnToIdle(slotID)
		return results
	}

	// First pass: allocate supply to winners in descending price order
	// without emitting yet, so the uniform clearing price — the lowest
	// revealed price among winners, not among all revealed bids — is
	// known before any fill is recorded.
	type winner struct {
		o   *order.Order
		qty order.Quantity
	}
	var winners []winner
	for _, o := range revealed {
		remaining, ok := slots.RemainingSupply(slotID)
		if !ok || remaining == 0 {
			break
		}
		fillQty := o.Quantity
		if fillQty > remaining {
			fillQty = remaining
		}
		applied := slots.Deliver(slotID, fillQty)
		if applied == 0 {
			continue
		}
		winners = append(winners, winner{o: o, qty: applied})
	}

	if len(winners) == 0 {
		a.returnToIdle(slotID)
		return results
	}

	clearingPrice := winners[len(winners)-1].o.RevealedPrice
	for _, w := range winners {
		results = append(results, ClearResult{
			OrderID:  w.o.ID,
			Trader:   w.o.Trader,
			Price:    clearingPrice,
			Quantity: w.qty,
		})
		if sink != nil {
			sink.Emit(order.FillEvent{
				SlotID:      slotID,
				BidID:       w.o.ID,
				AskID:       slotID,
				Price:       clearingPrice,
				Quantity:    w.qty,
				TimestampNs: now.UnixNano(),
			})
		}
	}

	a.returnToIdle(slotID)
	return results
}

func (a *Arena) returnToIdle(slotID string) {
	s := a.stateFor(slotID)
	s.mu.Lock()
	s.phase = Idle
	s.mu.Unlock()
}

// Phase returns the arena's current phase for a slot (for tests/ops).
func (a *Arena) Phase(slotID string) Phase {
	s := a.stateFor(slotID)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}
