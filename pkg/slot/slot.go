// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package slot holds AdSlot, the perishable inventory record, and the
// SlotRegistry that computes its time-decay price.
package slot

import (
	"math/big"
	"sync"
	"time"

	"github.com/adxcore/matchengine/pkg/order"
)

// AdSlot is a time-bounded, capacity-bounded publisher inventory unit.
// Once registered, every field is immutable except Delivered and
// Active.
type AdSlot struct {
	SlotID         string
	Publisher      string
	Placement      string
	TargetingHash  uint64
	StartTime      time.Time
	EndTime        time.Time
	MaxImpressions order.Quantity
	Delivered      order.Quantity
	FloorCPM       order.Price
	MinViewability uint8
	Active         bool
}

// decayPremiumNum/Den implement the fixed 50% premium at start — not
// configurable in the core.
const decayPremiumNum = 1
const decayPremiumDen = 2

// PriceAt is the free-function time-decay price for a slot, kept free
// (rather than a method) so it stays testable in isolation from the
// registry.
//
// Piecewise-linear, monotone non-increasing across the active window:
// 1.5x floor at start, exactly floor at end, zero after end or while
// inactive.
func PriceAt(s *AdSlot, now time.Time) order.Price {
	if !s.Active || now.After(s.EndTime) {
		return 0
	}
	if now.Before(s.StartTime) {
		return s.FloorCPM
	}

	remaining := s.EndTime.Sub(now)
	window := s.EndTime.Sub(s.StartTime)
	if window <= 0 {
		return s.FloorCPM
	}

	remNs := remaining.Nanoseconds()
	winNs := window.Nanoseconds()

	// floor/2 * remaining / window, multiply-then-divide, widened to
	// 128 bits so the intermediate product never overflows int64 for
	// extreme floor/duration inputs.
	num := big.NewInt(int64(s.FloorCPM) * decayPremiumNum)
	num.Mul(num, big.NewInt(remNs))
	den := big.NewInt(decayPremiumDen * winNs)
	bonus := new(big.Int).Quo(num, den)

	return s.FloorCPM + order.Price(bonus.Int64())
}

// RemainingSupply is max_impressions - delivered, saturating at zero.
func RemainingSupply(s *AdSlot) order.Quantity {
	if s.Delivered >= s.MaxImpressions {
		return 0
	}
	return s.MaxImpressions - s.Delivered
}

// Expired reports whether the slot can no longer be traded at t.
func Expired(s *AdSlot, now time.Time) bool {
	return now.After(s.EndTime)
}

// Registry stores AdSlot records. Mutations to a given slot are
// serialized by that slot's own mutex — cross-slot operations proceed
// independently.
type Registry struct {
	mu    sync.RWMutex
	slots map[string]*entry
}

type entry struct {
	mu   sync.Mutex
	slot *AdSlot
}

// New creates an empty slot registry.
func New() *Registry {
	return &Registry{slots: make(map[string]*entry)}
}

// Register adds a slot, failing if the slot_id already exists.
func (r *Registry) Register(s AdSlot) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.slots[s.SlotID]; exists {
		return false
	}
	cp := s
	r.slots[s.SlotID] = &entry{slot: &cp}
	return true
}

// Get returns a copy of the slot, or false if unknown.
func (r *Registry) Get(slotID string) (AdSlot, bool) {
	r.mu.RLock()
	e, ok := r.slots[slotID]
	r.mu.RUnlock()
	if !ok {
		return AdSlot{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return *e.slot, true
}

// CurrentPrice computes the decay-adjusted price for a registered
// slot. Returns (0, false) if the slot is unknown.
func (r *Registry) CurrentPrice(slotID string, now time.Time) (order.Price, bool) {
	r.mu.RLock()
	e, ok := r.slots[slotID]
	r.mu.RUnlock()
	if !ok {
		return 0, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return PriceAt(e.slot, now), true
}

// RemainingSupply returns the registered slot's remaining capacity, or
// (0, false) if unknown.
func (r *Registry) RemainingSupply(slotID string) (order.Quantity, bool) {
	r.mu.RLock()
	e, ok := r.slots[slotID]
	r.mu.RUnlock()
	if !ok {
		return 0, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return RemainingSupply(e.slot), true
}

// Deactivate flips a slot's active flag off (admin op).
func (r *Registry) Deactivate(slotID string) bool {
	r.mu.RLock()
	e, ok := r.slots[slotID]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.slot.Active = false
	return true
}

// Deliver increments delivered by fillQty, truncating to remaining
// capacity. It returns the quantity actually applied, which may be
// less than requested.
func (r *Registry) Deliver(slotID string, fillQty order.Quantity) order.Quantity {
	r.mu.RLock()
	e, ok := r.slots[slotID]
	r.mu.RUnlock()
	if !ok {
		return 0
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	remaining := RemainingSupply(e.slot)
	applied := fillQty
	if applied > remaining {
		applied = remaining
	}
	e.slot.Delivered += applied
	return applied
}

// ActiveCount returns the number of slots whose Active flag is set and
// whose end time has not yet passed, for stats reporting.
func (r *Registry) ActiveCount(now time.Time) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, e := range r.slots {
		e.mu.Lock()
		if e.slot.Active && !Expired(e.slot, now) {
			n++
		}
		e.mu.Unlock()
	}
	return n
}
