package jsonrpc

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

// Retry policy for idempotent provider reads: bounded exponential backoff,
// base 500ms, factor 2, capped at 5 attempts. Writes (anything the caller
// marks non-idempotent) get at most one retry.
const (
	retryBase    = 500 * time.Millisecond
	retryFactor  = 2
	retryMaxRead = 5
	retryMaxWrite = 1
)

// Client is a minimal HTTP JSON-RPC 2.0 client used to speak to an upstream
// provider: the L2 node for standard and `pathfinder_getProof` calls.
type Client struct {
	url        string
	httpClient *http.Client
	nextID     int
}

// NewClient builds a Client against an upstream JSON-RPC endpoint.
func NewClient(url string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{url: url, httpClient: httpClient}
}

// Call issues method(params) and unmarshals the result into out. idempotent
// controls the retry budget: true allows up to retryMaxRead attempts, false
// (a write, e.g. a submitted transaction) allows at most retryMaxWrite.
func (c *Client) Call(ctx context.Context, method string, params any, out any, idempotent bool) error {
	maxAttempts := retryMaxWrite
	if idempotent {
		maxAttempts = retryMaxRead
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			wait := retryBase * time.Duration(pow(retryFactor, attempt-1))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}

		err := c.doCall(ctx, method, params, out)
		if err == nil {
			return nil
		}
		lastErr = err
		if !isRetryable(err) {
			return err
		}
	}
	return errors.Wrapf(lastErr, "jsonrpc: %s failed after retries", method)
}

func pow(base, exp int) int {
	r := 1
	for i := 0; i < exp; i++ {
		r *= base
	}
	return r
}

func (c *Client) doCall(ctx context.Context, method string, params any, out any) error {
	c.nextID++
	paramsRaw, err := json.Marshal(params)
	if err != nil {
		return errors.Wrap(err, "jsonrpc: encoding params")
	}

	reqBody, err := json.Marshal(Request{
		JSONRPC: "2.0",
		Method:  method,
		Params:  paramsRaw,
		ID:      json.RawMessage(fmt.Sprintf("%d", c.nextID)),
	})
	if err != nil {
		return errors.Wrap(err, "jsonrpc: encoding request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(reqBody))
	if err != nil {
		return errors.Wrap(err, "jsonrpc: building request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return &TransportError{Cause: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Cause: err}
	}

	if resp.StatusCode >= 500 {
		return &TransportError{Cause: fmt.Errorf("status %d: %s", resp.StatusCode, body)}
	}

	var rpcResp Response
	if err := json.Unmarshal(body, &rpcResp); err != nil {
		return errors.Wrap(err, "jsonrpc: decoding response")
	}
	if rpcResp.Error != nil {
		return rpcResp.Error
	}
	if out != nil && len(rpcResp.Result) > 0 {
		if err := json.Unmarshal(rpcResp.Result, out); err != nil {
			return errors.Wrap(err, "jsonrpc: decoding result")
		}
	}
	return nil
}

// TransportError wraps a network-level failure (dial, timeout, 5xx): the
// ProviderError/Timeout taxonomy entry, retried with backoff.
type TransportError struct {
	Cause error
}

func (e *TransportError) Error() string { return fmt.Sprintf("jsonrpc transport: %v", e.Cause) }
func (e *TransportError) Unwrap() error { return e.Cause }

func isRetryable(err error) bool {
	var transportErr *TransportError
	return stderrors.As(err, &transportErr)
}
