// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// adx-sim is a thin HTTP shell around one in-memory Engine, for
// exercising the matching core end to end. It is deliberately not part
// of the core: all HTTP concerns (routing, JSON encoding, flags) live
// here, nothing in pkg/engine imports net/http.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/adxcore/matchengine/internal/obslog"
	"github.com/adxcore/matchengine/internal/obsmetric"
	"github.com/adxcore/matchengine/pkg/engine"
	"github.com/adxcore/matchengine/pkg/feed"
	"github.com/adxcore/matchengine/pkg/hashfn"
	"github.com/adxcore/matchengine/pkg/ids"
	"github.com/adxcore/matchengine/pkg/order"
	"github.com/adxcore/matchengine/pkg/slot"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	port     = flag.Int("port", 8000, "HTTP port")
	logLevel = flag.String("log-level", "info", "Log level")
)

// server wires a single Engine behind HTTP handlers.
type server struct {
	eng *engine.Engine
	log obslog.Logger
}

func main() {
	flag.Parse()

	logger := obslog.NewWithLevel(*logLevel)
	defer logger.Sync()

	metrics := obsmetric.New()
	broadcaster := feed.NewBroadcaster(logger)

	eng := engine.New(
		hashfn.Blake2b256,
		order.ClockFunc(time.Now),
		broadcaster,
		engine.WithLogger(logger),
		engine.WithMetrics(metrics),
	)

	s := &server{eng: eng, log: logger}

	r := mux.NewRouter()
	r.HandleFunc("/health", s.handleHealth).Methods("GET")
	r.HandleFunc("/metrics", promhttp.HandlerFor(metrics.Gatherer(), promhttp.HandlerOpts{}).ServeHTTP).Methods("GET")
	r.HandleFunc("/fills", broadcaster.ServeHTTP)
	r.HandleFunc("/slots", s.handleRegisterSlot).Methods("POST")
	r.HandleFunc("/orders", s.handleAddOrder).Methods("POST")
	r.HandleFunc("/slots/{slot_id}/batch", s.handleRunBatchAuction).Methods("POST")
	r.HandleFunc("/slots/{slot_id}/price", s.handleCurrentPrice).Methods("GET")
	r.HandleFunc("/stats", s.handleStats).Methods("GET")

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", *port),
		Handler: r,
	}

	go func() {
		logger.Infow("adx-sim listening", "port", *port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Errorw("http server error", "error", err.Error())
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Errorw("shutdown error", "error", err.Error())
	}
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

type registerSlotRequest struct {
	SlotID         string `json:"slot_id"`
	Publisher      string `json:"publisher"`
	Placement      string `json:"placement"`
	TargetingHash  uint64 `json:"targeting_hash"`
	StartInMs      int64  `json:"start_in_ms"`
	DurationMs     int64  `json:"duration_ms"`
	MaxImpressions uint64 `json:"max_impressions"`
	FloorCPMWei    int64  `json:"floor_cpm_wei"`
	MinViewability uint8  `json:"min_viewability"`
}

func (s *server) handleRegisterSlot(w http.ResponseWriter, r *http.Request) {
	var req registerSlotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	now := time.Now()
	sl := slot.AdSlot{
		SlotID:         req.SlotID,
		Publisher:      req.Publisher,
		Placement:      req.Placement,
		TargetingHash:  req.TargetingHash,
		StartTime:      now.Add(time.Duration(req.StartInMs) * time.Millisecond),
		EndTime:        now.Add(time.Duration(req.StartInMs+req.DurationMs) * time.Millisecond),
		MaxImpressions: order.Quantity(req.MaxImpressions),
		FloorCPM:       order.Price(req.FloorCPMWei),
		MinViewability: req.MinViewability,
		Active:         true,
	}
	if err := s.eng.RegisterSlot(sl); err != nil {
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "registered"})
}

type addOrderRequest struct {
	SlotID        string `json:"slot_id"`
	Trader        string `json:"trader"`
	Type          string `json:"type"`
	IsBuy         bool   `json:"is_buy"`
	LimitPriceWei int64  `json:"limit_price_wei"`
	Quantity      uint64 `json:"quantity"`
	TargetingHash uint64 `json:"targeting_hash"`
	ExpiresInMs   int64  `json:"expires_in_ms"`
}

func parseOrderType(s string) (order.Type, bool) {
	switch s {
	case "LIMIT":
		return order.LIMIT, true
	case "MARKET":
		return order.MARKET, true
	case "COMMIT_REVEAL":
		return order.COMMIT_REVEAL, true
	case "AMM_SWAP":
		return order.AMM_SWAP, true
	case "FLASH_COVER":
		return order.FLASH_COVER, true
	default:
		return 0, false
	}
}

func (s *server) handleAddOrder(w http.ResponseWriter, r *http.Request) {
	var req addOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	typ, ok := parseOrderType(req.Type)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown order type"})
		return
	}

	now := time.Now()
	var expires time.Time
	if req.ExpiresInMs > 0 {
		expires = now.Add(time.Duration(req.ExpiresInMs) * time.Millisecond)
	}

	o := order.Order{
		ID:            ids.New(),
		Trader:        req.Trader,
		SlotID:        req.SlotID,
		Type:          typ,
		IsBuy:         req.IsBuy,
		LimitPrice:    order.Price(req.LimitPriceWei),
		Quantity:      order.Quantity(req.Quantity),
		Created:       now,
		Expires:       expires,
		TargetingHash: req.TargetingHash,
	}

	if err := s.eng.AddOrder(o); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error(), "order_id": o.ID})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "accepted", "order_id": o.ID})
}

func (s *server) handleRunBatchAuction(w http.ResponseWriter, r *http.Request) {
	slotID := mux.Vars(r)["slot_id"]
	result := s.eng.RunBatchAuction(slotID)
	writeJSON(w, http.StatusOK, result)
}

func (s *server) handleCurrentPrice(w http.ResponseWriter, r *http.Request) {
	slotID := mux.Vars(r)["slot_id"]
	price, err := s.eng.CurrentPrice(slotID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"price_wei": int64(price)})
}

func (s *server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.eng.GetStats())
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
