// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package feed is a reference FillSink that fans FillEvents out to
// connected websocket subscribers.
//
// Emit is non-blocking: a full subscriber buffer drops the event for
// that subscriber rather than stalling the matcher.
package feed

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/adxcore/matchengine/internal/obslog"
	"github.com/adxcore/matchengine/pkg/order"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// wireFillEvent is the wire JSON shape for a fill event.
type wireFillEvent struct {
	SlotID      string `json:"slot_id"`
	BidID       string `json:"bid_id"`
	AskID       string `json:"ask_id"`
	Price       int64  `json:"price"`
	Quantity    uint64 `json:"quantity"`
	TimestampNs int64  `json:"timestamp_ns"`
}

// Broadcaster is a FillSink backed by a set of live websocket
// connections.
type Broadcaster struct {
	mu   sync.Mutex
	subs map[*subscriber]struct{}
	log  obslog.Logger
}

type subscriber struct {
	conn *websocket.Conn
	ch   chan wireFillEvent
}

// NewBroadcaster creates an empty Broadcaster.
func NewBroadcaster(log obslog.Logger) *Broadcaster {
	if log == nil {
		log = obslog.NoOp()
	}
	return &Broadcaster{subs: make(map[*subscriber]struct{}), log: log}
}

// Emit implements order.Sink. It never blocks: each subscriber has a
// bounded buffer, and a full buffer simply drops the event for that
// subscriber.
func (b *Broadcaster) Emit(e order.FillEvent) {
	w := wireFillEvent{
		SlotID:      e.SlotID,
		BidID:       e.BidID,
		AskID:       e.AskID,
		Price:       int64(e.Price),
		Quantity:    uint64(e.Quantity),
		TimestampNs: e.TimestampNs,
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for s := range b.subs {
		select {
		case s.ch <- w:
		default:
			b.log.Warnw("feed: dropping fill event for slow subscriber", "slot_id", e.SlotID)
		}
	}
}

// ServeHTTP upgrades an incoming request to a websocket and streams
// fill events to it until the connection closes.
func (b *Broadcaster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.log.Warnw("feed: upgrade failed", "error", err.Error())
		return
	}
	defer conn.Close()

	s := &subscriber{conn: conn, ch: make(chan wireFillEvent, 256)}
	b.mu.Lock()
	b.subs[s] = struct{}{}
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		delete(b.subs, s)
		b.mu.Unlock()
	}()

	for ev := range s.ch {
		payload, err := json.Marshal(ev)
		if err != nil {
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}
}

// SubscriberCount reports how many websocket clients are attached, for
// observability.
func (b *Broadcaster) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
