// Package client is a small HTTP client for the daemon's JSON-RPC wire
// format, with transport-level retry.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/hanseartic/jsonrpcd/rpc"
	"go.uber.org/zap"
	"gopkg.in/cenkalti/backoff.v1"
)

// ErrEmptyResponse is returned when an addressed call produced no body.
var ErrEmptyResponse = errors.New("server returned no response body")

// Client issues calls against one RPC endpoint. Transport-level failures
// (connection errors, non-200 statuses) are retried with exponential
// backoff; RPC-level errors are returned as *rpc.Error without retry.
type Client struct {
	endpoint   string
	httpClient *http.Client
	logger     *zap.Logger
	maxElapsed time.Duration
	nextID     atomic.Int64
}

// ClientOption configures the Client during New.
type ClientOption func(*Client) error

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) error {
		if httpClient == nil {
			return errors.New("http client cannot be nil")
		}
		c.httpClient = httpClient
		return nil
	}
}

// WithRetryBudget caps the total time spent retrying one exchange. Zero
// disables retries.
func WithRetryBudget(maxElapsed time.Duration) ClientOption {
	return func(c *Client) error {
		if maxElapsed < 0 {
			return errors.New("retry budget cannot be negative")
		}
		c.maxElapsed = maxElapsed
		return nil
	}
}

// New creates a client for the given endpoint URL.
func New(endpoint string, logger *zap.Logger, options ...ClientOption) (*Client, error) {
	if endpoint == "" {
		return nil, errors.New("endpoint cannot be empty")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger.Named("client"),
		maxElapsed: 15 * time.Second,
	}
	for _, option := range options {
		if err := option(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// requestEnvelope is the wire form of one outgoing call.
type requestEnvelope struct {
	ID      any    `json:"id,omitempty"`
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  []any  `json:"params,omitempty"`
}

// responseEnvelope is the wire form of one incoming response.
type responseEnvelope struct {
	ID     json.RawMessage `json:"id"`
	Result json.RawMessage `json:"result"`
	Err    *rpc.Error      `json:"error"`
}

// Result is one entry of a batch exchange, in server order.
type Result struct {
	ID    json.RawMessage
	Value json.RawMessage
	Err   *rpc.Error
}

// BatchItem describes one call inside CallBatch. Notify suppresses the id,
// so the server sends no response for it.
type BatchItem struct {
	Method string
	Params []any
	Notify bool
}

// Call invokes method with positional params and returns the raw result.
// An RPC-level failure comes back as a *rpc.Error.
func (c *Client) Call(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	envelope := requestEnvelope{
		ID:      c.nextID.Add(1),
		JSONRPC: rpc.Version,
		Method:  method,
		Params:  params,
	}
	body, err := c.exchange(ctx, envelope)
	if err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return nil, ErrEmptyResponse
	}
	var response responseEnvelope
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if response.Err != nil {
		return nil, response.Err
	}
	return response.Result, nil
}

// Notify invokes method without an id; the server sends nothing back.
func (c *Client) Notify(ctx context.Context, method string, params ...any) error {
	envelope := requestEnvelope{
		JSONRPC: rpc.Version,
		Method:  method,
		Params:  params,
	}
	body, err := c.exchange(ctx, envelope)
	if err != nil {
		return err
	}
	if len(body) != 0 {
		c.logger.Warn("Notification unexpectedly produced a response body",
			zap.String("method", method))
	}
	return nil
}

// CallBatch submits the items as one batch and returns the responses in
// server order. Notifications produce no entry.
func (c *Client) CallBatch(ctx context.Context, items []BatchItem) ([]Result, error) {
	if len(items) == 0 {
		return nil, nil
	}
	envelopes := make([]requestEnvelope, 0, len(items))
	for _, item := range items {
		envelope := requestEnvelope{
			JSONRPC: rpc.Version,
			Method:  item.Method,
			Params:  item.Params,
		}
		if !item.Notify {
			envelope.ID = c.nextID.Add(1)
		}
		envelopes = append(envelopes, envelope)
	}
	body, err := c.exchange(ctx, envelopes)
	if err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return nil, nil
	}

	// A single-response batch comes back as a bare object.
	var envelopesBack []responseEnvelope
	if strings.HasPrefix(strings.TrimSpace(string(body)), "[") {
		if err := json.Unmarshal(body, &envelopesBack); err != nil {
			return nil, fmt.Errorf("decode batch response: %w", err)
		}
	} else {
		var single responseEnvelope
		if err := json.Unmarshal(body, &single); err != nil {
			return nil, fmt.Errorf("decode response: %w", err)
		}
		envelopesBack = []responseEnvelope{single}
	}

	results := make([]Result, 0, len(envelopesBack))
	for _, envelope := range envelopesBack {
		results = append(results, Result{ID: envelope.ID, Value: envelope.Result, Err: envelope.Err})
	}
	return results, nil
}

// exchange marshals payload, POSTs it, and returns the raw response body.
// Connection failures and non-200 statuses are retried until the backoff
// budget runs out.
func (c *Client) exchange(ctx context.Context, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	var body []byte
	operation := func() error {
		request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(data))
		if err != nil {
			return err
		}
		request.Header.Set("Content-Type", "application/json")

		response, err := c.httpClient.Do(request)
		if err != nil {
			c.logger.Debug("Request attempt failed", zap.Error(err))
			return err
		}
		defer func() { _ = response.Body.Close() }()

		if response.StatusCode != http.StatusOK {
			err := fmt.Errorf("server returned status %d", response.StatusCode)
			c.logger.Debug("Request attempt failed", zap.Error(err))
			return err
		}
		body, err = io.ReadAll(response.Body)
		return err
	}

	if c.maxElapsed == 0 {
		if err := operation(); err != nil {
			return nil, err
		}
		return body, nil
	}

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.MaxElapsedTime = c.maxElapsed
	if err := backoff.Retry(operation, backoff.WithContext(expBackoff, ctx)); err != nil {
		return nil, err
	}
	return body, nil
}
