package types

// Bridge message kinds. The untrusted context sends Requests; the trusted
// context answers invoke requests with a correlated Response. Window control
// is fire-and-forget and produces no reply.
const (
	KindInvoke         = "invoke"
	KindWindowControl  = "window-control"
	KindInvokeResponse = "invoke-response"
)

// Window control actions dispatched to the hosting shell.
const (
	WindowMinimize = "minimize"
	WindowMaximize = "maximize"
	WindowClose    = "close"
)

// BridgeRequest is a message from the untrusted context. For invoke requests
// CorrelationID pairs the request with exactly one response; for window
// control only Action is meaningful.
type BridgeRequest struct {
	Kind          string                 `json:"kind"`
	CorrelationID string                 `json:"correlationId,omitempty"`
	Operation     string                 `json:"operation,omitempty"`
	Args          map[string]interface{} `json:"args,omitempty"`
	Action        string                 `json:"action,omitempty"`
}

// BridgeResponse carries either a result or an error, never both.
type BridgeResponse struct {
	Kind          string      `json:"kind"`
	CorrelationID string      `json:"correlationId"`
	Result        interface{} `json:"result,omitempty"`
	Error         string      `json:"error,omitempty"`
}

// ProxyRequest describes a cross-origin HTTP request executed by the trusted
// context on behalf of page scripts. Method defaults to GET.
type ProxyRequest struct {
	URL     string            `json:"url"`
	Method  string            `json:"method,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
	Body    string            `json:"data,omitempty"`
}

// ProxyResponse mirrors the shape GM_xmlhttpRequest callbacks expect.
// ResponseHeaders is a newline-joined "key: value" block.
type ProxyResponse struct {
	ResponseText    string `json:"response_text"`
	Status          int    `json:"status"`
	StatusText      string `json:"status_text"`
	ResponseHeaders string `json:"response_headers"`
}
