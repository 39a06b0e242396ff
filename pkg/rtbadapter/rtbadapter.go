// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package rtbadapter is a pure translation layer between OpenRTB bid
// requests/responses and the core's Order/FillEvent shapes. It does no
// network I/O — ingress stays an external collaborator, not part of
// this core — it only maps field-for-field, the way a bidder adapter
// would sit in front of the engine. Stripped of CTV pod-assembly and
// DSP/SSP pooling, which live outside a matching core.
package rtbadapter

import (
	"errors"
	"time"

	"github.com/adxcore/matchengine/pkg/money"
	"github.com/adxcore/matchengine/pkg/order"
	"github.com/prebid/openrtb/v20/openrtb2"
	"github.com/shopspring/decimal"
)

var ErrNoImpressions = errors.New("rtbadapter: bid request carries no impressions")

// BidRequestToOrder maps the first impression of an OpenRTB
// BidRequest onto a LIMIT buy Order against slotID. The caller
// supplies slotID and targetingHash because those are resolved by
// inventory matching, which is outside OpenRTB's wire format.
func BidRequestToOrder(req *openrtb2.BidRequest, slotID string, targetingHash uint64, now time.Time, expiry time.Duration) (order.Order, error) {
	if len(req.Imp) == 0 {
		return order.Order{}, ErrNoImpressions
	}
	imp := req.Imp[0]

	qty := order.Quantity(1)

	return order.Order{
		ID:            req.ID,
		Trader:        bidderCode(req),
		SlotID:        slotID,
		Type:          order.LIMIT,
		IsBuy:         true,
		LimitPrice:    money.FromCPM(decimal.NewFromFloat(imp.BidFloor)),
		Quantity:      qty,
		Created:       now,
		Expires:       now.Add(expiry),
		TargetingHash: targetingHash,
	}, nil
}

func bidderCode(req *openrtb2.BidRequest) string {
	if req.Site != nil && req.Site.Publisher != nil {
		return req.Site.Publisher.ID
	}
	if req.App != nil && req.App.Publisher != nil {
		return req.App.Publisher.ID
	}
	return req.ID
}

// FillToBidResponse maps a FillEvent into a minimal one-seat OpenRTB
// BidResponse, so a DSP adapter sitting in front of the engine can
// answer the original BidRequest.
func FillToBidResponse(requestID, impID string, f order.FillEvent) *openrtb2.BidResponse {
	price, _ := money.ToCPM(f.Price).Float64()
	return &openrtb2.BidResponse{
		ID: requestID,
		SeatBid: []openrtb2.SeatBid{
			{
				Bid: []openrtb2.Bid{
					{
						ID:    f.BidID,
						ImpID: impID,
						Price: price,
					},
				},
			},
		},
	}
}
