// Copyright (c) 2026 The Deadlockd Authors. All rights reserved.
// Use of this source code is governed by the MIT license in the LICENSE file.

package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/edgechase/deadlockd/internal/detector"
	"github.com/edgechase/deadlockd/internal/metrics"
	"github.com/edgechase/deadlockd/internal/node"
)

type nopLogger struct{}

func (nopLogger) Debugw(string, ...interface{}) {}
func (nopLogger) Warnw(string, ...interface{})  {}

type nopBroadcaster struct{}

func (nopBroadcaster) BroadcastProbe(detector.Probe) {}
func (nopBroadcaster) BroadcastAbort(string)         {}

func newTestServer() *httptest.Server {
	n := node.New("svca", nopBroadcaster{}, metrics.New("svca"), nopLogger{})
	return httptest.NewServer(NewRouter(n, nopLogger{}))
}

func doJSON(t *testing.T, method, url string, body interface{}) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(body))
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func TestAcquireGrantedThenBlocked(t *testing.T) {
	srv := newTestServer()
	defer srv.Close()

	resp := doJSON(t, http.MethodPost, srv.URL+"/acquire", acquireRequest{Tx: "t1", Res: "R"})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out acquireResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.True(t, out.Granted)

	resp2 := doJSON(t, http.MethodPost, srv.URL+"/acquire", acquireRequest{Tx: "t2", Res: "R"})
	defer resp2.Body.Close()
	require.Equal(t, http.StatusOK, resp2.StatusCode)
	var out2 acquireResponse
	require.NoError(t, json.NewDecoder(resp2.Body).Decode(&out2))
	require.False(t, out2.Granted)
	require.Equal(t, "t1", out2.BlockedOn)
}

func TestAcquireMissingFieldsIsUnprocessable(t *testing.T) {
	srv := newTestServer()
	defer srv.Close()

	resp := doJSON(t, http.MethodPost, srv.URL+"/acquire", acquireRequest{Tx: "t1"})
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestReleaseByNonOwnerIsConflict(t *testing.T) {
	srv := newTestServer()
	defer srv.Close()

	resp := doJSON(t, http.MethodPost, srv.URL+"/acquire", acquireRequest{Tx: "t1", Res: "R"})
	resp.Body.Close()

	resp2 := doJSON(t, http.MethodPost, srv.URL+"/release", releaseRequest{Tx: "t2", Res: "R"})
	defer resp2.Body.Close()
	require.Equal(t, http.StatusConflict, resp2.StatusCode)
}

func TestReleaseByOwnerSucceeds(t *testing.T) {
	srv := newTestServer()
	defer srv.Close()

	resp := doJSON(t, http.MethodPost, srv.URL+"/acquire", acquireRequest{Tx: "t1", Res: "R"})
	resp.Body.Close()

	resp2 := doJSON(t, http.MethodPost, srv.URL+"/release", releaseRequest{Tx: "t1", Res: "R"})
	defer resp2.Body.Close()
	require.Equal(t, http.StatusOK, resp2.StatusCode)
	var out releaseResponse
	require.NoError(t, json.NewDecoder(resp2.Body).Decode(&out))
	require.True(t, out.Released)
}

func TestAbortReturnsAffectedCount(t *testing.T) {
	srv := newTestServer()
	defer srv.Close()

	resp := doJSON(t, http.MethodPost, srv.URL+"/acquire", acquireRequest{Tx: "t1", Res: "R"})
	resp.Body.Close()

	resp2 := doJSON(t, http.MethodPost, srv.URL+"/abort", abortRequest{Tx: "t1"})
	defer resp2.Body.Close()
	require.Equal(t, http.StatusOK, resp2.StatusCode)
	var out abortResponse
	require.NoError(t, json.NewDecoder(resp2.Body).Decode(&out))
	require.Equal(t, "t1", out.Aborted)
	require.Equal(t, 1, out.Affected)
}

func TestWfgReflectsBlockedEdges(t *testing.T) {
	srv := newTestServer()
	defer srv.Close()

	r1 := doJSON(t, http.MethodPost, srv.URL+"/acquire", acquireRequest{Tx: "t1", Res: "R"})
	r1.Body.Close()
	r2 := doJSON(t, http.MethodPost, srv.URL+"/acquire", acquireRequest{Tx: "t2", Res: "R"})
	r2.Body.Close()

	resp, err := http.Get(srv.URL + "/wfg")
	require.NoError(t, err)
	defer resp.Body.Close()
	var out wfgResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Equal(t, "svca", out.Service)
	require.Equal(t, [][2]string{{"t2", "t1"}}, out.Edges)
}

func TestHealthOk(t *testing.T) {
	srv := newTestServer()
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out healthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Equal(t, "ok", out.Status)
}

func TestProbeHandledThroughHTTP(t *testing.T) {
	srv := newTestServer()
	defer srv.Close()

	resp := doJSON(t, http.MethodPost, srv.URL+"/probe", detector.Probe{
		InitiatorTx: "a", CurrentTx: "b", Hops: 1,
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out detector.ProbeReply
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.False(t, out.Deadlock)
}

func TestMetricsEndpointServesPrometheusFormat(t *testing.T) {
	srv := newTestServer()
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}
