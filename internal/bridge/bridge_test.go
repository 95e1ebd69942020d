package bridge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChristianVaughn/GeoGuessrDesktop/internal/shared/types"
)

// loopTransport records requests so tests can reply out of band.
type loopTransport struct {
	mu   sync.Mutex
	sent []types.BridgeRequest
	err  error
}

func (t *loopTransport) Send(req types.BridgeRequest) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.err != nil {
		return t.err
	}
	t.sent = append(t.sent, req)
	return nil
}

func (t *loopTransport) requests() []types.BridgeRequest {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]types.BridgeRequest, len(t.sent))
	copy(out, t.sent)
	return out
}

func TestClientCorrelatesConcurrentInvokes(t *testing.T) {
	transport := &loopTransport{}
	client := NewClient(transport)

	const n = 16
	results := make([]interface{}, n)
	errs := make([]error, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = client.Invoke(context.Background(), "echo",
				map[string]interface{}{"i": i})
		}(i)
	}

	// Wait until every request is on the wire, then reply in reverse order.
	require.Eventually(t, func() bool {
		return len(transport.requests()) == n
	}, 2*time.Second, 5*time.Millisecond)

	reqs := transport.requests()
	for i := len(reqs) - 1; i >= 0; i-- {
		client.HandleResponse(types.BridgeResponse{
			Kind:          types.KindInvokeResponse,
			CorrelationID: reqs[i].CorrelationID,
			Result:        reqs[i].Args["i"],
		})
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, i, results[i], "response crossed correlation ids")
	}
}

func TestClientUnmatchedResponseDropped(t *testing.T) {
	client := NewClient(&loopTransport{})
	// Must not panic or block.
	client.HandleResponse(types.BridgeResponse{
		Kind:          types.KindInvokeResponse,
		CorrelationID: "req_nobody_waiting",
		Result:        42,
	})
}

func TestClientErrorResponse(t *testing.T) {
	transport := &loopTransport{}
	client := NewClient(transport)

	done := make(chan struct{})
	var invokeErr error
	go func() {
		defer close(done)
		_, invokeErr = client.Invoke(context.Background(), "explode", nil)
	}()

	require.Eventually(t, func() bool {
		return len(transport.requests()) == 1
	}, 2*time.Second, 5*time.Millisecond)

	client.HandleResponse(types.BridgeResponse{
		Kind:          types.KindInvokeResponse,
		CorrelationID: transport.requests()[0].CorrelationID,
		Error:         "something broke",
	})
	<-done
	assert.EqualError(t, invokeErr, "something broke")
}

func TestClientContextCancellation(t *testing.T) {
	client := NewClient(&loopTransport{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Invoke(ctx, "never_answered", nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClientClosed(t *testing.T) {
	client := NewClient(&loopTransport{})
	client.Close()
	_, err := client.Invoke(context.Background(), "anything", nil)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestClientTransportError(t *testing.T) {
	client := NewClient(&loopTransport{err: errors.New("socket gone")})
	_, err := client.Invoke(context.Background(), "anything", nil)
	assert.EqualError(t, err, "socket gone")
}

type recordingShell struct {
	mu      sync.Mutex
	actions []string
	err     error
}

func (s *recordingShell) record(a string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.actions = append(s.actions, a)
	return s.err
}

func (s *recordingShell) Minimize() error       { return s.record("minimize") }
func (s *recordingShell) ToggleMaximize() error { return s.record("maximize") }
func (s *recordingShell) Close() error          { return s.record("close") }

func TestDispatcherWindowControl(t *testing.T) {
	d := NewDispatcher(nil)
	shell := &recordingShell{}
	d.SetShell(shell)

	for _, action := range []string{types.WindowMinimize, types.WindowMaximize, types.WindowClose} {
		resp := d.Dispatch(context.Background(), types.BridgeRequest{
			Kind:   types.KindWindowControl,
			Action: action,
		})
		assert.Nil(t, resp, "window control never gets a response")
	}
	assert.Equal(t, []string{"minimize", "maximize", "close"}, shell.actions)
}

func TestDispatcherWindowControlWithoutShell(t *testing.T) {
	d := NewDispatcher(nil)
	resp := d.Dispatch(context.Background(), types.BridgeRequest{
		Kind:   types.KindWindowControl,
		Action: types.WindowClose,
	})
	assert.Nil(t, resp)
}

func TestDispatcherUnknownOperation(t *testing.T) {
	d := NewDispatcher(nil)
	resp := d.Dispatch(context.Background(), types.BridgeRequest{
		Kind:          types.KindInvoke,
		CorrelationID: "req_1",
		Operation:     "no_such_op",
	})
	require.NotNil(t, resp)
	assert.Equal(t, types.KindInvokeResponse, resp.Kind)
	assert.Equal(t, "req_1", resp.CorrelationID)
	assert.Contains(t, resp.Error, "unknown operation")
}

func TestDispatcherInvoke(t *testing.T) {
	d := NewDispatcher(nil)
	d.Register("double", func(_ context.Context, args map[string]interface{}) (interface{}, error) {
		n, err := intArg(args, "n")
		if err != nil {
			return nil, err
		}
		return n * 2, nil
	})

	resp := d.Dispatch(context.Background(), types.BridgeRequest{
		Kind:          types.KindInvoke,
		CorrelationID: "req_2",
		Operation:     "double",
		Args:          map[string]interface{}{"n": float64(21)},
	})
	require.NotNil(t, resp)
	assert.Empty(t, resp.Error)
	assert.Equal(t, 42, resp.Result)

	resp = d.Dispatch(context.Background(), types.BridgeRequest{
		Kind:          types.KindInvoke,
		CorrelationID: "req_3",
		Operation:     "double",
		Args:          map[string]interface{}{},
	})
	require.NotNil(t, resp)
	assert.Contains(t, resp.Error, "missing argument")
}

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func TestProxyExecute(t *testing.T) {
	p := NewProxy(nil)
	p.SetTransport(roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "token", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, `{"q":1}`, string(body))

		return &http.Response{
			StatusCode: http.StatusTeapot,
			Header: http.Header{
				"Content-Type": []string{"application/json"},
				"X-Custom":     []string{"a", "b"},
			},
			Body:    io.NopCloser(strings.NewReader(`{"ok":true}`)),
			Request: r,
		}, nil
	}))

	resp, err := p.Execute(context.Background(), types.ProxyRequest{
		URL:     "https://api.example.com/v1",
		Method:  "post",
		Headers: map[string]string{"Authorization": "token"},
		Body:    `{"q":1}`,
	})
	require.NoError(t, err)

	assert.Equal(t, `{"ok":true}`, resp.ResponseText)
	assert.Equal(t, http.StatusTeapot, resp.Status)
	assert.Equal(t, "I'm a teapot", resp.StatusText)
	assert.Equal(t, "Content-Type: application/json\r\nX-Custom: a\r\nX-Custom: b", resp.ResponseHeaders)
}

func TestProxyDefaultsToGet(t *testing.T) {
	p := NewProxy(nil)
	p.SetTransport(roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		assert.Equal(t, http.MethodGet, r.Method)
		return &http.Response{
			StatusCode: http.StatusOK,
			Header:     http.Header{},
			Body:       io.NopCloser(strings.NewReader("hello")),
			Request:    r,
		}, nil
	}))

	resp, err := p.Execute(context.Background(), types.ProxyRequest{URL: "https://example.com"})
	require.NoError(t, err)
	assert.Equal(t, "hello", resp.ResponseText)
	assert.Equal(t, http.StatusOK, resp.Status)
}

func TestProxyBoundsHungRequests(t *testing.T) {
	p := NewProxy(nil)
	p.SetTimeout(50 * time.Millisecond)
	p.SetTransport(roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		// Hang until the client's deadline cancels the request.
		<-r.Context().Done()
		return nil, r.Context().Err()
	}))

	start := time.Now()
	_, err := p.Execute(context.Background(), types.ProxyRequest{URL: "https://hung.example.com"})
	require.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second,
		"a hung target must hit the client deadline, not block forever")
}

func TestProxyTransportFailure(t *testing.T) {
	p := NewProxy(nil)
	p.SetTransport(roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		return nil, fmt.Errorf("connection refused")
	}))

	_, err := p.Execute(context.Background(), types.ProxyRequest{URL: "https://down.example.com"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "request failed")
}

func TestProxyMissingURL(t *testing.T) {
	p := NewProxy(nil)
	_, err := p.Execute(context.Background(), types.ProxyRequest{})
	assert.Error(t, err)
}

func TestOpenerRejectsNonWebURLs(t *testing.T) {
	o := NewOpener(nil)
	var opened []string
	o.open = func(url string) error {
		opened = append(opened, url)
		return nil
	}

	require.NoError(t, o.Open("https://example.com/page"))
	assert.Error(t, o.Open("file:///etc/passwd"))
	assert.Error(t, o.Open("javascript:alert(1)"))
	assert.Equal(t, []string{"https://example.com/page"}, opened)
}
