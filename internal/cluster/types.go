package cluster

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/dreamware/primesplit/internal/interval"
)

// Node health states as tracked by the coordinator.
const (
	StatusUnknown   = "unknown"
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
)

// NodeInfo describes a worker node known to the coordinator.
type NodeInfo struct {
	ID     string `json:"id"`
	Addr   string `json:"addr"`
	Status string `json:"status,omitempty"`
}

type RegisterRequest struct {
	Node NodeInfo `json:"node"`
}

// CountRequest asks a node to count the primes of one share.
type CountRequest struct {
	JobID  string         `json:"job_id"`
	Share  interval.Share `json:"share"`
	Worker int            `json:"worker"`
}

// CountResponse carries a node's partial count back to the coordinator.
type CountResponse struct {
	Count  *big.Int `json:"count"`
	NodeID string   `json:"node_id"`
}

// StatusError is returned by PostJSON and GetJSON when the peer answers
// with a non-2xx status.
type StatusError struct {
	URL  string
	Body string
	Code int
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("http %s: %d", e.URL, e.Code)
	}
	return fmt.Sprintf("http %s: %d: %s", e.URL, e.Code, e.Body)
}

var httpClient = &http.Client{Timeout: 5 * time.Second}

// PostJSON posts body as JSON to url with the package's short-timeout
// client and decodes the reply into out when out is non-nil.
func PostJSON(ctx context.Context, url string, body any, out any) error {
	return PostJSONWith(ctx, httpClient, url, body, out)
}

// PostJSONWith is PostJSON with an explicit client, for calls such as
// counting tasks that outlive the default timeout.
func PostJSONWith(ctx context.Context, client *http.Client, url string, body any, out any) error {
	reqBody, err := json.Marshal(body)
	if err != nil {
		return errors.Wrap(err, "encode request")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return do(client, req, out)
}

func GetJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	return do(httpClient, req, out)
}

func do(client *http.Client, req *http.Request, out any) error {
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{URL: req.URL.String(), Code: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrapf(err, "decode %s", req.URL)
	}
	return nil
}
