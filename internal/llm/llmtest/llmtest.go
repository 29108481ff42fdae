// Package llmtest provides a scripted llm.Client for tests.
package llmtest

import (
	"context"
	"sync"

	"github.com/fyrsmithlabs/leaselogic/internal/llm"
)

// Client replays canned responses in order. When RespondFunc is set it takes
// precedence and is invoked per request. Every request is recorded for
// assertions. Safe for concurrent use.
type Client struct {
	mu        sync.Mutex
	responses []string
	requests  []llm.Request

	// RespondFunc, when non-nil, computes the response for each request.
	RespondFunc func(req llm.Request) (string, error)

	// Err, when non-nil, is returned from every Complete call.
	Err error
}

// NewClient returns a client that replays the given responses in order.
// When the script runs out, the last response repeats.
func NewClient(responses ...string) *Client {
	return &Client{responses: responses}
}

func (c *Client) Complete(_ context.Context, req llm.Request) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.requests = append(c.requests, req)
	if c.Err != nil {
		return "", c.Err
	}
	if c.RespondFunc != nil {
		return c.RespondFunc(req)
	}
	if len(c.responses) == 0 {
		return "", llm.ErrEmptyResponse
	}
	idx := len(c.requests) - 1
	if idx >= len(c.responses) {
		idx = len(c.responses) - 1
	}
	return c.responses[idx], nil
}

// Requests returns a copy of all requests seen so far.
func (c *Client) Requests() []llm.Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]llm.Request, len(c.requests))
	copy(out, c.requests)
	return out
}

// CallCount returns how many Complete calls have been made.
func (c *Client) CallCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.requests)
}
