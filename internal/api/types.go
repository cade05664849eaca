// Copyright (c) 2026 The Deadlockd Authors. All rights reserved.
// Use of this source code is governed by the MIT license in the LICENSE file.

package api

// acquireRequest is the body of POST /acquire. TtlMs is accepted for
// forward compatibility but has no effect on the core.
type acquireRequest struct {
	Tx    string `json:"tx"`
	Res   string `json:"res"`
	TtlMs *int64 `json:"ttl_ms,omitempty"`
}

type acquireResponse struct {
	Granted   bool   `json:"granted"`
	Holder    string `json:"holder,omitempty"`
	BlockedOn string `json:"blocked_on,omitempty"`
}

type releaseRequest struct {
	Tx  string `json:"tx"`
	Res string `json:"res"`
}

type releaseResponse struct {
	Released bool `json:"released"`
}

type abortRequest struct {
	Tx string `json:"tx"`
}

type abortResponse struct {
	Aborted  string `json:"aborted"`
	Affected int    `json:"affected"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

type wfgResponse struct {
	Service string      `json:"service"`
	Edges   [][2]string `json:"edges"`
}

type healthResponse struct {
	Service string `json:"service"`
	Status  string `json:"status"`
}
