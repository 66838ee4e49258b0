package node

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"

	"github.com/dreamware/primesplit/internal/cluster"
	"github.com/dreamware/primesplit/internal/interval"
	"github.com/dreamware/primesplit/internal/metrics"
)

func TestHandleCount(t *testing.T) {
	tests := []struct {
		name  string
		share interval.Share
		want  int64
	}{
		{name: "one to six", share: interval.Share{interval.MustInt64(1, 6)}, want: 3},
		{name: "seven to ten", share: interval.Share{interval.MustInt64(7, 10)}, want: 1},
		{name: "two ranges", share: interval.Share{interval.MustInt64(7, 10), interval.MustInt64(20, 22)}, want: 1},
		{name: "empty", share: interval.Share{}, want: 0},
	}

	n := New("node-1", zerolog.Nop(), nil)
	srv := httptest.NewServer(n.Handler())
	defer srv.Close()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var resp cluster.CountResponse
			err := cluster.PostJSON(context.Background(), srv.URL+"/count",
				cluster.CountRequest{JobID: "j", Worker: 1, Share: tt.share}, &resp)
			require.NoError(t, err)
			assert.Equal(t, "node-1", resp.NodeID)
			require.NotNil(t, resp.Count)
			assert.Equal(t, tt.want, resp.Count.Int64())
		})
	}

	info := n.Info()
	assert.Equal(t, int64(len(tests)), info.Served)
	assert.Equal(t, int64(0), info.Failed)
	assert.Equal(t, int64(0), info.InFlight)
}

func TestHandleCountBadRequest(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "not json", body: `{`},
		{name: "inverted range", body: `{"job_id":"j","worker":1,"share":[{"start":"9","end":"3"}]}`},
		{name: "negative bound", body: `{"job_id":"j","worker":1,"share":[{"start":-4,"end":3}]}`},
	}

	n := New("node-1", zerolog.Nop(), nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/count", strings.NewReader(tt.body))
			n.Handler().ServeHTTP(rec, req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
	assert.Equal(t, int64(len(tests)), n.Info().Failed)
}

func TestHandleCountCancelled(t *testing.T) {
	n := New("node-1", zerolog.Nop(), metrics.New())

	body, err := json.Marshal(cluster.CountRequest{Share: interval.Share{interval.MustInt64(1, 1000)}})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/count", bytes.NewReader(body)).WithContext(ctx)
	rec := httptest.NewRecorder()
	n.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, int64(1), n.Info().Failed)
}

func TestHealthAndInfo(t *testing.T) {
	n := New("node-7", zerolog.Nop(), metrics.New())
	srv := httptest.NewServer(n.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	var info Info
	require.NoError(t, cluster.GetJSON(context.Background(), srv.URL+"/info", &info))
	assert.Equal(t, "node-7", info.NodeID)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp, err = http.Get(srv.URL + "/count")
	require.NoError(t, err)
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	resp.Body.Close()
}

func TestRegister(t *testing.T) {
	calls := atomic.NewInt32(0)
	got := make(chan cluster.RegisterRequest, 1)
	coord := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Inc() < 3 {
			http.Error(w, "starting", http.StatusServiceUnavailable)
			return
		}
		assert.Equal(t, "/register", r.URL.Path)
		var req cluster.RegisterRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		got <- req
		w.WriteHeader(http.StatusNoContent)
	}))
	defer coord.Close()

	self := cluster.NodeInfo{ID: "node-1", Addr: "http://127.0.0.1:9999"}
	err := Register(context.Background(), coord.URL+"/", self, 10*time.Second, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, self, (<-got).Node)
}

func TestRegisterPermanentFailure(t *testing.T) {
	calls := atomic.NewInt32(0)
	coord := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Inc()
		http.Error(w, "missing id/addr", http.StatusBadRequest)
	}))
	defer coord.Close()

	err := Register(context.Background(), coord.URL, cluster.NodeInfo{}, 10*time.Second, zerolog.Nop())
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
	assert.Contains(t, err.Error(), "missing id/addr")
}

func TestRegisterGivesUp(t *testing.T) {
	coord := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer coord.Close()

	start := time.Now()
	err := Register(context.Background(), coord.URL, cluster.NodeInfo{ID: "n", Addr: "a"}, 500*time.Millisecond, zerolog.Nop())
	require.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestRegisterCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Register(ctx, "http://127.0.0.1:1", cluster.NodeInfo{ID: "n", Addr: "a"}, time.Minute, zerolog.Nop())
	require.Error(t, err)
}
