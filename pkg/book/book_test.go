// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package book

import (
	"testing"
	"time"

	"github.com/adxcore/matchengine/pkg/order"
	"github.com/stretchr/testify/require"
)

func mkOrder(id string, price order.Price, created time.Time) *order.Order {
	return &order.Order{ID: id, LimitPrice: price, Quantity: 1, Created: created}
}

func TestBidBookOrdersPriceDescTimeAsc(t *testing.T) {
	b := New(Bid)
	base := time.Unix(0, 0)
	b.Insert(mkOrder("b1", 1000, base))
	b.Insert(mkOrder("b2", 1500, base.Add(time.Second)))
	b.Insert(mkOrder("b3", 1500, base))
	b.Insert(mkOrder("b4", 900, base))

	require.True(t, b.IsSorted())
	snap := b.Snapshot()
	require.Equal(t, []string{"b3", "b2", "b1", "b4"}, idsOf(snap))
}

func TestAskBookOrdersPriceAscTimeAsc(t *testing.T) {
	b := New(Ask)
	base := time.Unix(0, 0)
	b.Insert(mkOrder("a1", 1200, base))
	b.Insert(mkOrder("a2", 1000, base.Add(time.Second)))
	b.Insert(mkOrder("a3", 1000, base))

	require.True(t, b.IsSorted())
	snap := b.Snapshot()
	require.Equal(t, []string{"a3", "a2", "a1"}, idsOf(snap))
}

func TestPeekLiveDropsExpiredHeads(t *testing.T) {
	b := New(Bid)
	now := time.Unix(1000, 0)
	expired := mkOrder("stale", 2000, now.Add(-time.Hour))
	expired.Expires = now.Add(-time.Minute)
	live := mkOrder("fresh", 1000, now)

	b.Insert(expired)
	b.Insert(live)

	head := b.PeekLive(func(o *order.Order) bool { return o.Expired(now) })
	require.NotNil(t, head)
	require.Equal(t, "fresh", head.ID)
	require.Equal(t, 1, b.Len(), "expired head should have been dropped")
}

func TestDecrementHeadPopsAtZero(t *testing.T) {
	b := New(Bid)
	o := mkOrder("b1", 1000, time.Unix(0, 0))
	o.Quantity = 5
	b.Insert(o)

	b.DecrementHead(3)
	require.Equal(t, order.Quantity(2), o.Quantity)
	require.Equal(t, 1, b.Len())

	b.DecrementHead(2)
	require.Equal(t, 0, b.Len())
}

func TestDecrementHeadPanicsOnOverdraw(t *testing.T) {
	b := New(Bid)
	o := mkOrder("b1", 1000, time.Unix(0, 0))
	o.Quantity = 2
	b.Insert(o)

	require.Panics(t, func() { b.DecrementHead(3) })
}

func TestRemoveByID(t *testing.T) {
	b := New(Ask)
	base := time.Unix(0, 0)
	b.Insert(mkOrder("a1", 1000, base))
	b.Insert(mkOrder("a2", 1100, base))

	b.Remove("a1")
	require.Equal(t, 1, b.Len())
	require.Equal(t, "a2", b.PeekHead().ID)
}

func idsOf(orders []*order.Order) []string {
	out := make([]string, len(orders))
	for i, o := range orders {
		out[i] = o.ID
	}
	return out
}
