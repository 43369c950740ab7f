// Cinesync - Incremental Film Catalog Replication for Search
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinesync

// Package elastic is a minimal Elasticsearch client for the bulk API.
//
// Requests pass through an optional rate limiter and circuit breaker.
// Failures that may succeed later (network errors, 429, 5xx, an open
// breaker) are marked transient for the retry loop; any other non-2xx
// answer is a permanent ErrBulkRejected.
package elastic

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/tomtom215/cinesync/internal/config"
	"github.com/tomtom215/cinesync/internal/metrics"
	"github.com/tomtom215/cinesync/internal/retry"
)

// ErrBulkRejected is returned when the index refuses a request outright.
var ErrBulkRejected = errors.New("bulk request rejected")

// maxErrorBody bounds how much of an error response is kept.
const maxErrorBody = 4 << 10

// BulkResponse is the part of a bulk API answer the pipeline inspects.
type BulkResponse struct {
	Took   int                   `json:"took"`
	Errors bool                  `json:"errors"`
	Items  []map[string]BulkItem `json:"items,omitempty"`
}

// BulkItem is the per-document outcome of a bulk action.
type BulkItem struct {
	Index  string          `json:"_index"`
	ID     string          `json:"_id"`
	Status int             `json:"status"`
	Error  json.RawMessage `json:"error,omitempty"`
}

// FailedItems returns the items that carry an error.
func (r *BulkResponse) FailedItems() []BulkItem {
	var failed []BulkItem
	for _, action := range r.Items {
		for _, item := range action {
			if len(item.Error) > 0 {
				failed = append(failed, item)
			}
		}
	}
	return failed
}

// Client talks to one Elasticsearch endpoint and index.
type Client struct {
	baseURL string
	index   string
	http    *http.Client
	limiter *rate.Limiter
	breaker *breaker
}

// NewClient builds a Client from cfg.
func NewClient(cfg config.ElasticConfig) *Client {
	c := &Client{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		index:   cfg.Index,
		http:    &http.Client{Timeout: cfg.Timeout},
	}
	if cfg.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	if cfg.BreakerEnabled {
		c.breaker = newBreaker("elasticsearch-bulk", cfg)
	}
	return c
}

// Index returns the target index name.
func (c *Client) Index() string {
	return c.index
}

// Bulk posts an NDJSON bulk body.
func (c *Client) Bulk(ctx context.Context, body []byte) (*BulkResponse, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("bulk rate limit: %w", err)
		}
	}

	if c.breaker == nil {
		return c.doBulk(ctx, body)
	}
	return c.breaker.execute(func() (*BulkResponse, error) {
		return c.doBulk(ctx, body)
	})
}

func (c *Client) doBulk(ctx context.Context, body []byte) (*BulkResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/_bulk/", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build bulk request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, requestError(ctx, "bulk", err)
	}
	defer closeBody(resp)

	if err := checkStatus("bulk", resp); err != nil {
		return nil, err
	}

	var out BulkResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, retry.Transient(fmt.Errorf("decode bulk response: %w", err))
	}
	metrics.RecordBulk(time.Since(start), len(out.Items), out.Errors)
	return &out, nil
}

// Ping checks the cluster answers on its root endpoint. It bypasses the
// limiter and breaker.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return fmt.Errorf("build ping request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return requestError(ctx, "ping", err)
	}
	defer closeBody(resp)
	return checkStatus("ping", resp)
}

// requestError marks transport failures transient unless the caller's
// context ended.
func requestError(ctx context.Context, op string, err error) error {
	err = fmt.Errorf("%s request: %w", op, err)
	if ctx.Err() != nil {
		return err
	}
	return retry.Transient(err)
}

func checkStatus(op string, resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	err := fmt.Errorf("%s: status %d: %s", op, resp.StatusCode, bytes.TrimSpace(snippet))
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return retry.Transient(err)
	}
	return fmt.Errorf("%w: %w", ErrBulkRejected, err)
}

func closeBody(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
