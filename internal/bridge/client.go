package bridge

import (
	"context"
	"errors"
	"sync"

	"github.com/ChristianVaughn/GeoGuessrDesktop/internal/shared/id"
	"github.com/ChristianVaughn/GeoGuessrDesktop/internal/shared/types"
)

// Transport carries a request toward the dispatcher on the far side.
type Transport interface {
	Send(req types.BridgeRequest) error
}

// ErrClosed is returned by Invoke after the client shuts down.
var ErrClosed = errors.New("bridge client closed")

// Client is the untrusted-side half of the protocol: it issues invoke
// requests and matches responses back to callers by correlation id.
//
// There is no protocol-level timeout. A caller bounds its own wait through
// ctx; an abandoned wait just leaves an orphaned response, which is dropped.
type Client struct {
	transport Transport

	mu      sync.Mutex
	pending map[string]chan types.BridgeResponse
	closed  bool
}

// NewClient creates a client over the given transport.
func NewClient(transport Transport) *Client {
	return &Client{
		transport: transport,
		pending:   map[string]chan types.BridgeResponse{},
	}
}

// Invoke sends an operation and waits for its correlated response. The
// response's error string, when set, is surfaced as a Go error.
func (c *Client) Invoke(ctx context.Context, operation string, args map[string]interface{}) (interface{}, error) {
	correlationID := id.NewRequestID().String()
	ch := make(chan types.BridgeResponse, 1)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	c.pending[correlationID] = ch
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, correlationID)
		c.mu.Unlock()
	}()

	err := c.transport.Send(types.BridgeRequest{
		Kind:          types.KindInvoke,
		CorrelationID: correlationID,
		Operation:     operation,
		Args:          args,
	})
	if err != nil {
		return nil, err
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case resp := <-ch:
		if resp.Error != "" {
			return nil, errors.New(resp.Error)
		}
		return resp.Result, nil
	}
}

// WindowControl sends a fire-and-forget window action.
func (c *Client) WindowControl(action string) error {
	return c.transport.Send(types.BridgeRequest{
		Kind:   types.KindWindowControl,
		Action: action,
	})
}

// HandleResponse delivers an incoming response to its waiting caller.
// Responses with no matching correlation id are silently dropped.
func (c *Client) HandleResponse(resp types.BridgeResponse) {
	if resp.Kind != types.KindInvokeResponse {
		return
	}
	c.mu.Lock()
	ch, ok := c.pending[resp.CorrelationID]
	c.mu.Unlock()
	if !ok {
		return
	}
	select {
	case ch <- resp:
	default:
		// Caller already received a response on this id.
	}
}

// Close fails all future Invoke calls. In-flight waits are released through
// their own contexts.
func (c *Client) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}
