// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package slot

import (
	"testing"
	"time"

	"github.com/adxcore/matchengine/pkg/order"
	"github.com/stretchr/testify/require"
)

func TestPriceAtDecay(t *testing.T) {
	start := time.Unix(0, 0)
	s := &AdSlot{
		StartTime: start,
		EndTime:   start.Add(1000 * time.Millisecond),
		FloorCPM:  1000,
		Active:    true,
	}

	require.Equal(t, order.Price(1500), PriceAt(s, start))
	require.Equal(t, order.Price(1250), PriceAt(s, start.Add(500*time.Millisecond)))
	require.Equal(t, order.Price(1000), PriceAt(s, start.Add(1000*time.Millisecond)))
	require.Equal(t, order.Price(0), PriceAt(s, start.Add(1001*time.Millisecond)))
}

func TestPriceAtInactiveIsZero(t *testing.T) {
	s := &AdSlot{
		StartTime: time.Unix(0, 0),
		EndTime:   time.Unix(0, 0).Add(time.Second),
		FloorCPM:  1000,
		Active:    false,
	}
	require.Equal(t, order.Price(0), PriceAt(s, time.Unix(0, 0)))
}

func TestPriceAtBeforeStartIsFloor(t *testing.T) {
	start := time.Unix(100, 0)
	s := &AdSlot{
		StartTime: start,
		EndTime:   start.Add(time.Second),
		FloorCPM:  500,
		Active:    true,
	}
	require.Equal(t, order.Price(500), PriceAt(s, start.Add(-time.Minute)))
}

func TestRegistryRegisterDuplicate(t *testing.T) {
	r := New()
	s := AdSlot{SlotID: "slot-1", Active: true, EndTime: time.Unix(0, 0).Add(time.Hour)}
	require.True(t, r.Register(s))
	require.False(t, r.Register(s))
}

func TestRegistryDeliverTruncatesToRemaining(t *testing.T) {
	r := New()
	s := AdSlot{SlotID: "slot-1", MaxImpressions: 10, Active: true, EndTime: time.Unix(0, 0).Add(time.Hour)}
	require.True(t, r.Register(s))

	applied := r.Deliver("slot-1", 7)
	require.Equal(t, order.Quantity(7), applied)

	applied = r.Deliver("slot-1", 7)
	require.Equal(t, order.Quantity(3), applied, "must truncate to remaining capacity")

	remaining, ok := r.RemainingSupply("slot-1")
	require.True(t, ok)
	require.Equal(t, order.Quantity(0), remaining)
}

func TestRegistryDeactivate(t *testing.T) {
	r := New()
	s := AdSlot{SlotID: "slot-1", Active: true, EndTime: time.Unix(0, 0).Add(time.Hour)}
	require.True(t, r.Register(s))
	require.True(t, r.Deactivate("slot-1"))

	got, ok := r.Get("slot-1")
	require.True(t, ok)
	require.False(t, got.Active)

	require.False(t, r.Deactivate("unknown-slot"))
}

func TestRegistryUnknownSlot(t *testing.T) {
	r := New()
	_, ok := r.Get("missing")
	require.False(t, ok)

	_, ok = r.CurrentPrice("missing", time.Unix(0, 0))
	require.False(t, ok)
}

func TestRegistryActiveCount(t *testing.T) {
	r := New()
	now := time.Unix(1000, 0)
	require.True(t, r.Register(AdSlot{SlotID: "a", Active: true, EndTime: now.Add(time.Hour)}))
	require.True(t, r.Register(AdSlot{SlotID: "b", Active: true, EndTime: now.Add(-time.Hour)}))
	require.True(t, r.Register(AdSlot{SlotID: "c", Active: false, EndTime: now.Add(time.Hour)}))

	require.Equal(t, 1, r.ActiveCount(now))
}
