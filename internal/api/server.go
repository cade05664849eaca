// Copyright (c) 2026 The Deadlockd Authors. All rights reserved.
// Use of this source code is governed by the MIT license in the LICENSE file.

// Package api is the HTTP request router: it validates payloads, maps
// them onto internal/node operations, and adds only request logging and
// permissive CORS on top.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/edgechase/deadlockd/internal/detector"
	"github.com/edgechase/deadlockd/internal/node"
)

// Logger is satisfied by *zap.SugaredLogger.
type Logger interface {
	Debugw(msg string, kv ...interface{})
}

// NewRouter builds the HTTP surface on top of n.
func NewRouter(n *node.Node, log Logger) http.Handler {
	r := mux.NewRouter()
	s := &server{node: n, log: log}

	r.HandleFunc("/acquire", s.handleAcquire).Methods(http.MethodPost)
	r.HandleFunc("/release", s.handleRelease).Methods(http.MethodPost)
	r.HandleFunc("/abort", s.handleAbort).Methods(http.MethodPost)
	r.HandleFunc("/probe", s.handleProbe).Methods(http.MethodPost)
	r.HandleFunc("/wfg", s.handleWfg).Methods(http.MethodGet)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", n.MetricsHandler()).Methods(http.MethodGet)

	r.Use(s.loggingMiddleware)

	return cors.New(cors.Options{AllowedOrigins: []string{"*"}}).Handler(r)
}

type server struct {
	node *node.Node
	log  Logger
}

func (s *server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Debugw("request", "method", r.Method, "path", r.URL.Path, "status", rec.status, "duration", time.Since(start))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *server) handleAcquire(w http.ResponseWriter, r *http.Request) {
	var req acquireRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Tx == "" || req.Res == "" {
		writeError(w, http.StatusUnprocessableEntity, "tx and res are required")
		return
	}

	res := s.node.Acquire(req.Tx, req.Res)
	writeJSON(w, http.StatusOK, acquireResponse{
		Granted:   res.Granted,
		Holder:    res.Holder,
		BlockedOn: res.BlockedOn,
	})
}

func (s *server) handleRelease(w http.ResponseWriter, r *http.Request) {
	var req releaseRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Tx == "" || req.Res == "" {
		writeError(w, http.StatusUnprocessableEntity, "tx and res are required")
		return
	}

	if !s.node.Release(req.Tx, req.Res) {
		writeError(w, http.StatusConflict, "not owner")
		return
	}
	writeJSON(w, http.StatusOK, releaseResponse{Released: true})
}

func (s *server) handleAbort(w http.ResponseWriter, r *http.Request) {
	var req abortRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Tx == "" {
		writeError(w, http.StatusUnprocessableEntity, "tx is required")
		return
	}

	affected := s.node.Abort(req.Tx)
	writeJSON(w, http.StatusOK, abortResponse{Aborted: req.Tx, Affected: affected})
}

func (s *server) handleProbe(w http.ResponseWriter, r *http.Request) {
	var p detector.Probe
	if !decode(w, r, &p) {
		return
	}
	if p.InitiatorTx == "" || p.CurrentTx == "" {
		writeError(w, http.StatusUnprocessableEntity, "initiator_tx and current_tx are required")
		return
	}

	writeJSON(w, http.StatusOK, s.node.HandleProbe(p))
}

func (s *server) handleWfg(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, wfgResponse{Service: s.node.Service, Edges: s.node.WaitForGraph()})
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Service: s.node.Service, Status: "ok"})
}

func decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "malformed request body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{Detail: detail})
}
