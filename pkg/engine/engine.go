// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package engine is the facade that routes an Order by its OrderType
// to the correct mechanism and exposes admin/observation operations.
// It is a library, not a service: no CLI, no file format, no
// environment variables live here.
package engine

import (
	"time"

	"github.com/adxcore/matchengine/internal/obslog"
	"github.com/adxcore/matchengine/internal/obsmetric"
	"github.com/adxcore/matchengine/pkg/amm"
	"github.com/adxcore/matchengine/pkg/batch"
	"github.com/adxcore/matchengine/pkg/book"
	"github.com/adxcore/matchengine/pkg/commitreveal"
	"github.com/adxcore/matchengine/pkg/matcher"
	"github.com/adxcore/matchengine/pkg/order"
	"github.com/adxcore/matchengine/pkg/slot"

	"sync"
)

// Engine is the single external surface of the matching core. It
// consumes only a HashFn and a Clock; everything else is optional:
// logging defaults to a no-op logger and metrics to a fresh private
// obsmetric registry.
type Engine struct {
	slots   *slot.Registry
	matcher *matcher.Matcher
	batch   *batch.Auction
	arena   *commitreveal.Arena

	booksMu sync.RWMutex
	books   map[string]*slotBooks

	poolsMu sync.RWMutex
	pools   map[string]*amm.Pool

	clock order.Clock
	sink  order.Sink

	stats   Stats
	log     obslog.Logger
	metrics *obsmetric.Registry
}

type slotBooks struct {
	mu   sync.Mutex
	bids *book.Book
	asks *book.Book
}

// Option configures optional facade dependencies.
type Option func(*Engine)

// WithLogger attaches a structured logger.
func WithLogger(l obslog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithMetrics attaches a metrics registry.
func WithMetrics(m *obsmetric.Registry) Option {
	return func(e *Engine) { e.metrics = m }
}

// New constructs an Engine. hashFn validates commit-reveal
// commitments; clock supplies "now"; sink receives FillEvents
// fire-and-forget.
func New(hashFn order.HashFn, clock order.Clock, sink order.Sink, opts ...Option) *Engine {
	slots := slot.New()
	e := &Engine{
		slots:   slots,
		matcher: matcher.New(slots, sink),
		batch:   batch.New(slots, sink),
		arena:   commitreveal.New(hashFn),
		books:   make(map[string]*slotBooks),
		pools:   make(map[string]*amm.Pool),
		clock:   clock,
		sink:    sink,
		log:     obslog.NoOp(),
		metrics: obsmetric.New(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) now() time.Time { return e.clock.Now() }

// ---- Admin ops ----

// RegisterSlot adds a new AdSlot. Fails with SlotDuplicate if the
// slot_id is already registered.
func (e *Engine) RegisterSlot(s slot.AdSlot) error {
	if !e.slots.Register(s) {
		return newRejection(KindSlotDuplicate, s.SlotID, "")
	}
	return nil
}

// DeactivateSlot flips a slot's active flag off.
func (e *Engine) DeactivateSlot(slotID string) error {
	if !e.slots.Deactivate(slotID) {
		return newRejection(KindSlotUnknown, slotID, "")
	}
	return nil
}

// AddLiquidity adds to an AMM pool's reserves, creating the pool on
// first use.
func (e *Engine) AddLiquidity(slotID string, quote, supply int64) {
	e.poolFor(slotID).AddLiquidity(quote, supply)
}

// StartCommitPhase opens a fresh commit/reveal window for a slot.
func (e *Engine) StartCommitPhase(slotID string, duration time.Duration) {
	e.arena.StartCommitPhase(slotID, e.now(), duration)
}

// RevealBid validates a bidder's revealed price against their
// commitment.
func (e *Engine) RevealBid(slotID, orderID string, revealedPrice order.Price, nonce []byte) error {
	if err := e.arena.Reveal(slotID, orderID, e.now(), revealedPrice, nonce); err != nil {
		switch err {
		case commitreveal.ErrPhaseClosed:
			return newRejection(KindCommitPhaseClosed, slotID, orderID)
		case commitreveal.ErrOrderMissing:
			return newRejection(KindCommitOrderMissing, slotID, orderID)
		case commitreveal.ErrHashMismatch:
			return newRejection(KindCommitHashMismatch, slotID, orderID)
		}
		return err
	}
	return nil
}

// ---- Order ops ----

// AddOrder validates and routes an order to its mechanism by Type.
func (e *Engine) AddOrder(o order.Order) error {
	start := time.Now()
	defer func() {
		elapsed := time.Since(start)
		e.stats.recordLatencyMicros(float64(elapsed.Microseconds()))
		e.metrics.MatchLatency.Observe(elapsed.Seconds())
	}()

	if err := e.validate(&o); err != nil {
		e.metrics.RejectionsTotal.WithLabelValues(kindLabel(err)).Inc()
		return err
	}

	e.stats.recordOrder()
	e.metrics.OrdersTotal.Inc()

	switch o.Type {
	case order.LIMIT:
		e.routeLimit(&o)
	case order.MARKET:
		e.routeMarket(&o)
	case order.COMMIT_REVEAL:
		return e.routeCommitReveal(&o)
	case order.AMM_SWAP:
		return e.routeAMM(&o)
	case order.FLASH_COVER:
		e.stats.recordFlashCoverAttempt()
		return nil
	default:
		return newRejection(KindUnknownOrderType, o.SlotID, o.ID)
	}
	return nil
}

func kindLabel(err error) string {
	if r, ok := err.(*RejectionError); ok {
		return kindNames[r.Kind]
	}
	return "unknown"
}

var kindNames = map[Kind]string{
	KindSlotUnknown:            "slot_unknown",
	KindSlotExpired:            "slot_expired",
	KindSlotInactive:           "slot_inactive",
	KindSlotDuplicate:          "slot_duplicate",
	KindTargetingMismatch:      "targeting_mismatch",
	KindQuantityZero:           "quantity_zero",
	KindOrderExpired:           "order_expired",
	KindUnknownOrderType:       "unknown_order_type",
	KindCommitPhaseClosed:      "commit_phase_closed",
	KindCommitOrderMissing:     "commit_order_missing",
	KindCommitHashMismatch:     "commit_hash_mismatch",
	KindPoolEmpty:              "pool_empty",
	KindPoolLiquidityExhausted: "pool_liquidity_exhausted",
	KindInsufficientSupply:     "insufficient_supply",
}

func (e *Engine) validate(o *order.Order) error {
	s, ok := e.slots.Get(o.SlotID)
	if !ok {
		return newRejection(KindSlotUnknown, o.SlotID, o.ID)
	}
	now := e.now()
	if now.After(s.EndTime) {
		return newRejection(KindSlotExpired, o.SlotID, o.ID)
	}
	if !s.Active {
		return newRejection(KindSlotInactive, o.SlotID, o.ID)
	}
	if o.Type != order.AMM_SWAP && o.TargetingHash != s.TargetingHash {
		return newRejection(KindTargetingMismatch, o.SlotID, o.ID)
	}
	if o.Quantity == 0 {
		return newRejection(KindQuantityZero, o.SlotID, o.ID)
	}
	if !o.Expires.IsZero() && now.After(o.Expires) {
		return newRejection(KindOrderExpired, o.SlotID, o.ID)
	}
	return nil
}

func (e *Engine) booksFor(slotID string) *slotBooks {
	e.booksMu.RLock()
	b, ok := e.books[slotID]
	e.booksMu.RUnlock()
	if ok {
		return b
	}

	e.booksMu.Lock()
	defer e.booksMu.Unlock()
	if b, ok = e.books[slotID]; ok {
		return b
	}
	b = &slotBooks{bids: book.New(book.Bid), asks: book.New(book.Ask)}
	e.books[slotID] = b
	return b
}

func (e *Engine) poolFor(slotID string) *amm.Pool {
	e.poolsMu.RLock()
	p, ok := e.pools[slotID]
	e.poolsMu.RUnlock()
	if ok {
		return p
	}

	e.poolsMu.Lock()
	defer e.poolsMu.Unlock()
	if p, ok = e.pools[slotID]; ok {
		return p
	}
	p = amm.New()
	e.pools[slotID] = p
	return p
}

func (e *Engine) routeLimit(o *order.Order) {
	sb := e.booksFor(o.SlotID)
	sb.mu.Lock()
	defer sb.mu.Unlock()

	if o.IsBuy {
		sb.bids.Insert(o)
	} else {
		sb.asks.Insert(o)
	}
	n := e.matcher.Cross(o.SlotID, sb.bids, sb.asks, e.now())
	e.stats.recordMatches(n)
	e.metrics.MatchesTotal.Add(float64(n))
}

func (e *Engine) routeMarket(o *order.Order) {
	sb := e.booksFor(o.SlotID)
	sb.mu.Lock()
	defer sb.mu.Unlock()

	var counter *book.Book
	if o.IsBuy {
		counter = sb.asks
	} else {
		counter = sb.bids
	}
	n := e.matcher.CrossMarket(o.SlotID, o, counter, e.now())
	e.stats.recordMatches(n)
	e.metrics.MatchesTotal.Add(float64(n))
}

func (e *Engine) routeCommitReveal(o *order.Order) error {
	if err := e.arena.Commit(o.SlotID, o); err != nil {
		return newRejection(KindCommitPhaseClosed, o.SlotID, o.ID)
	}
	return nil
}

// routeAMM maps an AMM_SWAP order onto the pool's swap convention:
// IsBuy=true means the trader wants to buy supply (deposit quote,
// withdraw supply — pool.Swap's buyQuote=false branch); IsBuy=false
// means the trader is selling supply into the pool (deposit supply,
// withdraw quote — pool.Swap's buyQuote=true branch).
func (e *Engine) routeAMM(o *order.Order) error {
	pool := e.poolFor(o.SlotID)
	buyQuote := !o.IsBuy

	res, err := pool.Swap(int64(o.Quantity), buyQuote)
	if err != nil {
		switch err {
		case amm.ErrPoolEmpty:
			return newRejection(KindPoolEmpty, o.SlotID, o.ID)
		case amm.ErrPoolLiquidityExhausted:
			return newRejection(KindPoolLiquidityExhausted, o.SlotID, o.ID)
		}
		return err
	}

	var outQty order.Quantity
	if buyQuote {
		outQty = 0 // trader received quote currency, not impressions
	} else {
		outQty = order.Quantity(res.AmountOut)
	}

	if outQty > 0 {
		applied := e.slots.Deliver(o.SlotID, outQty)
		e.stats.recordMatches(1)
		e.metrics.MatchesTotal.Inc()
		if e.sink != nil {
			e.sink.Emit(order.FillEvent{
				SlotID:      o.SlotID,
				BidID:       o.ID,
				AskID:       "amm:" + o.SlotID,
				Price:       order.Price(res.AmountOut),
				Quantity:    applied,
				TimestampNs: e.now().UnixNano(),
			})
		}
	}
	return nil
}

// ---- Batch auction ----

// BatchAuctionResult is the caller-visible outcome of run_batch_auction.
type BatchAuctionResult struct {
	Matches             [][2]string
	ClearingPrices      []order.Price
	ClearingQuantities  []order.Quantity
	TotalMatches        int
	ProcessingTimeUs    int64
}

// RunBatchAuction runs uniform-price clearing for slotID. The caller
// times the call itself; the engine does not schedule batch windows.
func (e *Engine) RunBatchAuction(slotID string) BatchAuctionResult {
	sb := e.booksFor(slotID)
	sb.mu.Lock()
	defer sb.mu.Unlock()

	r := e.batch.Run(slotID, sb.bids, sb.asks, e.now())
	e.stats.recordMatches(r.TotalMatches)
	e.metrics.MatchesTotal.Add(float64(r.TotalMatches))

	out := BatchAuctionResult{
		ProcessingTimeUs: r.ProcessingTimeMicros,
		TotalMatches:     r.TotalMatches,
	}
	for _, m := range r.Matches {
		out.Matches = append(out.Matches, [2]string{m.BidID, m.AskID})
		out.ClearingPrices = append(out.ClearingPrices, m.ClearingPrice)
		out.ClearingQuantities = append(out.ClearingQuantities, m.ClearingQuantity)
	}
	return out
}

// RunCommitRevealClearing runs the commit-reveal arena's uniform-price
// clearing pass against the slot's own remaining supply.
func (e *Engine) RunCommitRevealClearing(slotID string) []commitreveal.ClearResult {
	results := e.arena.Clear(slotID, e.slots, e.sink, e.now())
	e.stats.recordMatches(len(results))
	e.metrics.MatchesTotal.Add(float64(len(results)))
	return results
}

// ---- Observation ----

// CurrentPrice returns the slot's decay-adjusted price.
func (e *Engine) CurrentPrice(slotID string) (order.Price, error) {
	p, ok := e.slots.CurrentPrice(slotID, e.now())
	if !ok {
		return 0, newRejection(KindSlotUnknown, slotID, "")
	}
	return p, nil
}

// RemainingSupply returns the slot's remaining capacity.
func (e *Engine) RemainingSupply(slotID string) (order.Quantity, error) {
	q, ok := e.slots.RemainingSupply(slotID)
	if !ok {
		return 0, newRejection(KindSlotUnknown, slotID, "")
	}
	return q, nil
}

// GetStats returns a point-in-time snapshot of engine-wide counters,
// and pushes the same gauge values into the metrics registry so a
// Prometheus scrape between calls reflects the last computed figure.
func (e *Engine) GetStats() Snapshot {
	e.poolsMu.RLock()
	activePools := 0
	for _, p := range e.pools {
		q, s, _ := p.Snapshot()
		if q > 0 && s > 0 {
			activePools++
		}
	}
	e.poolsMu.RUnlock()

	activeSlots := e.slots.ActiveCount(e.now())
	e.metrics.ActiveSlots.Set(float64(activeSlots))
	e.metrics.ActivePools.Set(float64(activePools))

	return Snapshot{
		TotalOrders:        e.stats.totalOrders.Load(),
		TotalMatches:       e.stats.totalMatches.Load(),
		AvgLatencyUs:       latencyFromBits(e.stats.avgLatencyBits.Load()),
		ActiveSlots:        activeSlots,
		ActivePools:        activePools,
		FlashCoverAttempts: e.stats.flashCoverAttempts.Load(),
	}
}
