package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamware/primesplit/internal/coordinator"
	"github.com/dreamware/primesplit/internal/interval"
	"github.com/dreamware/primesplit/internal/storage"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd(&out, &errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func newCoordinator(t *testing.T, pool coordinator.WorkerPool) *httptest.Server {
	t.Helper()
	api := coordinator.NewServer(coordinator.ServerOptions{
		Store:      storage.NewMemoryStore(),
		Registry:   coordinator.NewNodeRegistry(),
		Dispatcher: coordinator.NewDispatcher(pool, zerolog.Nop(), nil),
		Logger:     zerolog.Nop(),
	})
	ts := httptest.NewServer(api.Handler())
	t.Cleanup(func() {
		ts.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = api.Close(ctx)
	})
	return ts
}

func TestCount(t *testing.T) {
	out, err := execute(t, "count", "--machines", "3", "--range", "1:10", "--range", "20:24")
	require.NoError(t, err)
	assert.Equal(t, "Total primes: 5\n", out)
}

func TestCountReport(t *testing.T) {
	out, err := execute(t, "count", "-m", "2", "-r", "1:10", "--report")
	require.NoError(t, err)
	assert.Contains(t, out, "Machine Identification Number: 1\nSet of ranges: { (1 - 6) }\nCount: 5\n")
	assert.Contains(t, out, "Machine Identification Number: 2\nSet of ranges: { (7 - 10) }\nCount: 3\n")
	assert.True(t, strings.HasSuffix(out, "Total primes: 4\n"))
}

func TestCountErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "zero machines", args: []string{"count", "-m", "0", "-r", "1:5"}, want: "invalid worker count"},
		{name: "inverted range", args: []string{"count", "-r", "9:3"}, want: "invalid range"},
		{name: "no separator", args: []string{"count", "-r", "9"}, want: "want start:end"},
		{name: "bad start", args: []string{"count", "-r", "a:3"}, want: "bad start"},
		{name: "bad end", args: []string{"count", "-r", "1:b"}, want: "bad end"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseRangesLarge(t *testing.T) {
	rs, err := parseRanges([]string{"100000000000000000000:100000000000000000010", " 1 : 2 "})
	require.NoError(t, err)
	require.Len(t, rs, 2)
	assert.Equal(t, "100000000000000000000", rs[0].Start().String())
	assert.True(t, rs[1].Equal(interval.MustInt64(1, 2)))

	_, err = parseRanges([]string{"-1:4"})
	assert.True(t, errors.Is(err, interval.ErrInvalidRange))
}

func TestSubmitWait(t *testing.T) {
	ts := newCoordinator(t, coordinator.LocalPool{})

	out, err := execute(t, "submit", "--coordinator", ts.URL, "-m", "3",
		"-r", "1:10", "-r", "20:24", "--wait", "--poll-interval", "10ms")
	require.NoError(t, err)
	assert.Equal(t, "Total primes: 5\n", out)
}

func TestSubmitAndStatus(t *testing.T) {
	ts := newCoordinator(t, coordinator.LocalPool{})
	t.Setenv("PRIMECTL_COORDINATOR", ts.URL)

	out, err := execute(t, "submit", "-m", "2", "-r", "1:10")
	require.NoError(t, err)
	id := strings.TrimSpace(out)
	require.NotEmpty(t, id)

	require.Eventually(t, func() bool {
		out, err = execute(t, "status", id)
		return err == nil && strings.Contains(out, "completed")
	}, 5*time.Second, 10*time.Millisecond)

	assert.Contains(t, out, "ID:")
	assert.Contains(t, out, id)
	assert.Contains(t, out, "Total primes:  4")
	assert.Contains(t, out, "WORKER")
	assert.Contains(t, out, "(1 - 6)")
}

func TestSubmitWaitFailedJob(t *testing.T) {
	ts := newCoordinator(t, coordinator.NewRemotePool(coordinator.NewNodeRegistry(), false))

	_, err := execute(t, "submit", "--coordinator", ts.URL, "-r", "1:10", "--wait", "--poll-interval", "10ms")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no workers available")
}

func TestSubmitRejected(t *testing.T) {
	ts := newCoordinator(t, coordinator.LocalPool{})

	_, err := execute(t, "submit", "--coordinator", ts.URL, "-m", "0", "-r", "1:10")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
	assert.Contains(t, err.Error(), "invalid_worker_count")
}

func TestStatusNotFound(t *testing.T) {
	ts := newCoordinator(t, coordinator.LocalPool{})

	_, err := execute(t, "status", "--coordinator", ts.URL, "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestStatusNeedsID(t *testing.T) {
	_, err := execute(t, "status")
	require.Error(t, err)
}
