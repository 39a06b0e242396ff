// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package obslog is a small structured-logging facade over zap, built
// directly on go.uber.org/zap rather than routing through a sibling
// monorepo logging module that isn't reachable from this repo.
package obslog

import "go.uber.org/zap"

// Logger is the logging surface the engine and its mechanisms depend
// on. Keeping it as an interface (rather than a concrete *zap.Logger)
// lets tests and benchmarks swap in NoOp() instead.
type Logger interface {
	Debugw(msg string, kv ...interface{})
	Infow(msg string, kv ...interface{})
	Warnw(msg string, kv ...interface{})
	Errorw(msg string, kv ...interface{})
	Sync() error
}

type zapLogger struct {
	s *zap.SugaredLogger
}

// New builds a production zap logger.
func New() Logger {
	z, err := zap.NewProduction()
	if err != nil {
		return NoOp()
	}
	return &zapLogger{s: z.Sugar()}
}

// NewWithLevel builds a logger at the requested level ("debug", "info",
// "warn", "error"); unrecognized levels fall back to info.
func NewWithLevel(level string) Logger {
	cfg := zap.NewProductionConfig()
	var lvl zap.AtomicLevel
	switch level {
	case "debug":
		lvl = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "warn":
		lvl = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		lvl = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		lvl = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	cfg.Level = lvl
	z, err := cfg.Build()
	if err != nil {
		return NoOp()
	}
	return &zapLogger{s: z.Sugar()}
}

func (l *zapLogger) Debugw(msg string, kv ...interface{}) { l.s.Debugw(msg, kv...) }
func (l *zapLogger) Infow(msg string, kv ...interface{})  { l.s.Infow(msg, kv...) }
func (l *zapLogger) Warnw(msg string, kv ...interface{})  { l.s.Warnw(msg, kv...) }
func (l *zapLogger) Errorw(msg string, kv ...interface{}) { l.s.Errorw(msg, kv...) }
func (l *zapLogger) Sync() error                          { return l.s.Sync() }

// NoOp returns a logger that discards everything, for tests and
// benchmarks that don't want log noise.
func NoOp() Logger { return noOpLogger{} }

type noOpLogger struct{}

func (noOpLogger) Debugw(string, ...interface{}) {}
func (noOpLogger) Infow(string, ...interface{})  {}
func (noOpLogger) Warnw(string, ...interface{})  {}
func (noOpLogger) Errorw(string, ...interface{}) {}
func (noOpLogger) Sync() error                   { return nil }
