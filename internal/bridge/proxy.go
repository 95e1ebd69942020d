package bridge

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/ChristianVaughn/GeoGuessrDesktop/internal/logging"
	"github.com/ChristianVaughn/GeoGuessrDesktop/internal/shared/types"
)

// defaultProxyTimeout bounds proxied requests so a hung target can never
// wedge the bridge.
const defaultProxyTimeout = 30 * time.Second

// Proxy executes GM_xmlhttpRequest calls from the host process, sidestepping
// the webview's origin restrictions. Unlike the script fetcher it is not
// limited to https; userscripts decide what they talk to. Requests are still
// time-bounded.
type Proxy struct {
	client *resty.Client
	logger *logging.Logger
}

// NewProxy creates a proxy with a plain resty client.
func NewProxy(logger *logging.Logger) *Proxy {
	if logger == nil {
		logger = logging.NewDefault()
	}
	return &Proxy{
		client: resty.New().SetTimeout(defaultProxyTimeout),
		logger: logger,
	}
}

// SetTimeout overrides the per-request deadline.
func (p *Proxy) SetTimeout(d time.Duration) {
	if d > 0 {
		p.client.SetTimeout(d)
	}
}

// SetTransport swaps the underlying round tripper. Tests only.
func (p *Proxy) SetTransport(rt http.RoundTripper) {
	p.client.SetTransport(rt)
}

// Execute performs the request and shapes the response the way the XHR shim
// expects. Any HTTP status is a success at this layer; only transport
// failures return an error.
func (p *Proxy) Execute(ctx context.Context, req types.ProxyRequest) (*types.ProxyResponse, error) {
	if req.URL == "" {
		return nil, fmt.Errorf("missing request url")
	}
	method := strings.ToUpper(req.Method)
	if method == "" {
		method = http.MethodGet
	}

	r := p.client.R().SetContext(ctx)
	for k, v := range req.Headers {
		r.SetHeader(k, v)
	}
	if req.Body != "" {
		r.SetBody(req.Body)
	}

	resp, err := r.Execute(method, req.URL)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	return &types.ProxyResponse{
		ResponseText:    string(resp.Body()),
		Status:          resp.StatusCode(),
		StatusText:      http.StatusText(resp.StatusCode()),
		ResponseHeaders: flattenHeaders(resp.Header()),
	}, nil
}

// flattenHeaders renders headers in the XHR getAllResponseHeaders shape,
// sorted for a stable result.
func flattenHeaders(h http.Header) string {
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var lines []string
	for _, k := range keys {
		for _, v := range h[k] {
			lines = append(lines, fmt.Sprintf("%s: %s", k, v))
		}
	}
	return strings.Join(lines, "\r\n")
}
