// Copyright (c) 2026 The Deadlockd Authors. All rights reserved.
// Use of this source code is governed by the MIT license in the LICENSE file.

// Package logging builds the structured logger every other package logs
// through. It is a thin convenience layer over zap, in the spirit of the
// teacher's own log/compat.go: a single constructor, level parsed from a
// string, no custom formatting beyond what the backend already gives us.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a *zap.SugaredLogger at the requested level, tagged with
// this node's service name so every log line is attributable in a
// multi-node deployment sharing one aggregator.
func New(service, level string) (*zap.SugaredLogger, error) {
	lvl, err := parseLevel(level)
	if err != nil {
		return nil, err
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("logging: build: %w", err)
	}
	return logger.Sugar().With("service", service), nil
}

func parseLevel(level string) (zapcore.Level, error) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return 0, fmt.Errorf("logging: unknown level %q: %w", level, err)
	}
	return lvl, nil
}
