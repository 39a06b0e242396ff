// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package amm implements the constant-product reserve pair used to
// provide continuous two-sided liquidity against a slot, per
// the constant-product pricing curve.
package amm

import (
	"errors"
	"math/big"
	"sync"

	"github.com/adxcore/matchengine/pkg/order"
)

var (
	ErrPoolEmpty              = errors.New("amm: pool has no reserves")
	ErrPoolLiquidityExhausted = errors.New("amm: liquidity exhausted")
	ErrNonPositiveQuote       = errors.New("amm: quote resolved to a non-positive amount")
)

// Pool holds the (reserve_quote, reserve_supply, last_price) triple
// for one slot. k = reserve_quote * reserve_supply changes only via
// AddLiquidity; Swap preserves k modulo integer floor-division.
type Pool struct {
	mu            sync.Mutex
	ReserveQuote  int64
	ReserveSupply int64
	LastPrice     order.Price
}

// New creates an empty pool (both reserves zero).
func New() *Pool {
	return &Pool{}
}

// Seed sets the pool's reserves directly, replacing any existing
// reserves. The engine's add_liquidity op uses AddLiquidity instead.
func (p *Pool) Seed(quote, supply int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ReserveQuote = quote
	p.ReserveSupply = supply
	p.recomputeLastPrice()
}

// AddLiquidity adds to both reserves. LP-token issuance is delegated
// to an external collaborator; the core only tracks the reserve pair.
func (p *Pool) AddLiquidity(quote, supply int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ReserveQuote += quote
	p.ReserveSupply += supply
	p.recomputeLastPrice()
}

func (p *Pool) recomputeLastPrice() {
	if p.ReserveSupply == 0 {
		p.LastPrice = 0
		return
	}
	p.LastPrice = order.Price(p.ReserveQuote / p.ReserveSupply)
}

// k returns the pool's constant-product invariant as a big.Int so the
// intermediate product never overflows int64.
func (p *Pool) k() *big.Int {
	return new(big.Int).Mul(big.NewInt(p.ReserveQuote), big.NewInt(p.ReserveSupply))
}

// QuoteSwap computes the amount a swap of qtyIn would return without
// mutating the pool. buyQuote=true means the trader deposits supply
// and withdraws quote; buyQuote=false means the reverse.
//
// Returns 0 if either reserve is currently zero.
func (p *Pool) QuoteSwap(qtyIn int64, buyQuote bool) int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.quoteSwapLocked(qtyIn, buyQuote)
}

func (p *Pool) quoteSwapLocked(qtyIn int64, buyQuote bool) int64 {
	if p.ReserveQuote == 0 || p.ReserveSupply == 0 {
		return 0
	}
	k := p.k()

	if buyQuote {
		newSupply := p.ReserveSupply + qtyIn
		if newSupply == 0 {
			return 0
		}
		newQuote := new(big.Int).Quo(k, big.NewInt(newSupply))
		out := p.ReserveQuote - newQuote.Int64()
		return out
	}

	newQuote := p.ReserveQuote + qtyIn
	if newQuote == 0 {
		return 0
	}
	newSupply := new(big.Int).Quo(k, big.NewInt(newQuote))
	out := p.ReserveSupply - newSupply.Int64()
	return out
}

// SwapResult is the settled outcome of a successful Swap.
type SwapResult struct {
	AmountOut int64
	LastPrice order.Price
}

// Swap executes a swap, committing the reserve mutation atomically.
// qtyIn is what the trader deposits; buyQuote=true means they deposit
// supply to withdraw quote (i.e. they are selling supply into the
// pool), buyQuote=false means they deposit quote to withdraw supply.
func (p *Pool) Swap(qtyIn int64, buyQuote bool) (SwapResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ReserveQuote == 0 || p.ReserveSupply == 0 {
		return SwapResult{}, ErrPoolEmpty
	}

	out := p.quoteSwapLocked(qtyIn, buyQuote)
	if out <= 0 {
		return SwapResult{}, ErrNonPositiveQuote
	}

	if buyQuote {
		p.ReserveSupply += qtyIn
		p.ReserveQuote -= out
	} else {
		p.ReserveQuote += qtyIn
		p.ReserveSupply -= out
	}

	if p.ReserveSupply == 0 {
		// Roll back — liquidity exhaustion is a failure, not a
		// zero-reserve steady state.
		if buyQuote {
			p.ReserveSupply -= qtyIn
			p.ReserveQuote += out
		} else {
			p.ReserveQuote -= qtyIn
			p.ReserveSupply += out
		}
		return SwapResult{}, ErrPoolLiquidityExhausted
	}

	p.recomputeLastPrice()
	return SwapResult{AmountOut: out, LastPrice: p.LastPrice}, nil
}

// Snapshot returns the current reserve pair and last price.
func (p *Pool) Snapshot() (quote, supply int64, lastPrice order.Price) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ReserveQuote, p.ReserveSupply, p.LastPrice
}
