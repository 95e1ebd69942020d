// Package bridge implements the correlation-id protocol between the trusted
// host and the untrusted webview context.
//
// The trusted side is the Dispatcher: a table of named operations plus
// window-control forwarding to the hosting shell. The untrusted side is
// modeled by Client, which correlates invoke requests with their responses.
// The wire format is the three message kinds in internal/shared/types.
package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/ChristianVaughn/GeoGuessrDesktop/internal/logging"
	"github.com/ChristianVaughn/GeoGuessrDesktop/internal/script/registry"
	"github.com/ChristianVaughn/GeoGuessrDesktop/internal/script/updater"
	"github.com/ChristianVaughn/GeoGuessrDesktop/internal/shared/types"
)

// Handler executes one named operation. Args come straight from the wire;
// numeric values are float64 per encoding/json.
type Handler func(ctx context.Context, args map[string]interface{}) (interface{}, error)

// Shell is the hosting window surface behind window-control messages.
type Shell interface {
	Minimize() error
	ToggleMaximize() error
	Close() error
}

// Dispatcher routes bridge requests on the trusted side.
type Dispatcher struct {
	logger *logging.Logger

	mu    sync.RWMutex
	ops   map[string]Handler
	shell Shell
}

// NewDispatcher creates an empty dispatcher. Operations and the shell are
// attached by the wiring code.
func NewDispatcher(logger *logging.Logger) *Dispatcher {
	if logger == nil {
		logger = logging.NewDefault()
	}
	return &Dispatcher{
		logger: logger,
		ops:    map[string]Handler{},
	}
}

// Register binds a handler to an operation name, replacing any previous one.
func (d *Dispatcher) Register(name string, h Handler) {
	d.mu.Lock()
	d.ops[name] = h
	d.mu.Unlock()
}

// SetShell attaches the hosting shell for window-control messages.
func (d *Dispatcher) SetShell(shell Shell) {
	d.mu.Lock()
	d.shell = shell
	d.mu.Unlock()
}

// Dispatch handles one wire request. Invoke requests always produce a
// response carrying the request's correlation id; window-control and unknown
// kinds produce none. A failing or missing operation becomes an error
// response, never a panic or silence.
func (d *Dispatcher) Dispatch(ctx context.Context, req types.BridgeRequest) *types.BridgeResponse {
	switch req.Kind {
	case types.KindWindowControl:
		d.handleWindowControl(req.Action)
		return nil
	case types.KindInvoke:
		return d.handleInvoke(ctx, req)
	default:
		d.logger.Warn("Unknown bridge message kind", zap.String("kind", req.Kind))
		return nil
	}
}

func (d *Dispatcher) handleInvoke(ctx context.Context, req types.BridgeRequest) *types.BridgeResponse {
	resp := &types.BridgeResponse{
		Kind:          types.KindInvokeResponse,
		CorrelationID: req.CorrelationID,
	}

	d.mu.RLock()
	h, ok := d.ops[req.Operation]
	d.mu.RUnlock()
	if !ok {
		resp.Error = fmt.Sprintf("unknown operation: %s", req.Operation)
		return resp
	}

	result, err := h(ctx, req.Args)
	if err != nil {
		d.logger.Warn("Bridge operation failed",
			zap.String("operation", req.Operation), zap.Error(err))
		resp.Error = err.Error()
		return resp
	}
	resp.Result = result
	return resp
}

func (d *Dispatcher) handleWindowControl(action string) {
	d.mu.RLock()
	shell := d.shell
	d.mu.RUnlock()
	if shell == nil {
		d.logger.Warn("Window control with no shell attached", zap.String("action", action))
		return
	}

	var err error
	switch action {
	case types.WindowMinimize:
		err = shell.Minimize()
	case types.WindowMaximize:
		err = shell.ToggleMaximize()
	case types.WindowClose:
		err = shell.Close()
	default:
		d.logger.Warn("Unknown window control action", zap.String("action", action))
		return
	}
	if err != nil {
		d.logger.Warn("Window control failed", zap.String("action", action), zap.Error(err))
	}
}

// BindRegistry registers the script management operations.
func (d *Dispatcher) BindRegistry(reg *registry.Registry, upd *updater.Updater) {
	d.Register("get_scripts", func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
		return reg.List(), nil
	})
	d.Register("add_script_from_url", func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
		url, err := stringArg(args, "url")
		if err != nil {
			return nil, err
		}
		return reg.AddFromURL(ctx, url)
	})
	d.Register("add_script_manual", func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
		code, err := stringArg(args, "code")
		if err != nil {
			return nil, err
		}
		name, _ := stringArg(args, "name")
		return reg.AddManual(name, code)
	})
	d.Register("toggle_script", func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
		id, err := stringArg(args, "id")
		if err != nil {
			return nil, err
		}
		enabled, err := boolArg(args, "enabled")
		if err != nil {
			return nil, err
		}
		return nil, reg.Toggle(id, enabled)
	})
	d.Register("reorder_script", func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
		id, err := stringArg(args, "id")
		if err != nil {
			return nil, err
		}
		newOrder, err := intArg(args, "new_order")
		if err != nil {
			return nil, err
		}
		return nil, reg.Reorder(id, newOrder)
	})
	d.Register("delete_script", func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
		id, err := stringArg(args, "id")
		if err != nil {
			return nil, err
		}
		return nil, reg.Delete(id)
	})
	d.Register("refresh_script", func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
		id, err := stringArg(args, "id")
		if err != nil {
			return nil, err
		}
		return reg.Refresh(ctx, id)
	})
	d.Register("auto_update_scripts", func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
		res, err := upd.RunOnce(ctx)
		if err != nil {
			return nil, err
		}
		return res.Updated, nil
	})
	d.Register("get_data_dir", func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
		return reg.DataDir(), nil
	})
}

// BindProxy registers the CORS-free HTTP operation behind GM_xmlhttpRequest.
func (d *Dispatcher) BindProxy(p *Proxy) {
	d.Register("gm_xhr", func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
		raw, ok := args["request"]
		if !ok {
			return nil, fmt.Errorf("missing argument: request")
		}
		var req types.ProxyRequest
		if err := reencode(raw, &req); err != nil {
			return nil, fmt.Errorf("malformed request: %w", err)
		}
		return p.Execute(ctx, req)
	})
}

// BindExternal registers the default-browser opener.
func (d *Dispatcher) BindExternal(o *Opener) {
	d.Register("open_external_url", func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
		url, err := stringArg(args, "url")
		if err != nil {
			return nil, err
		}
		return nil, o.Open(url)
	})
}

func stringArg(args map[string]interface{}, key string) (string, error) {
	v, ok := args[key]
	if !ok {
		return "", fmt.Errorf("missing argument: %s", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("argument %s must be a string", key)
	}
	return s, nil
}

func boolArg(args map[string]interface{}, key string) (bool, error) {
	v, ok := args[key]
	if !ok {
		return false, fmt.Errorf("missing argument: %s", key)
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("argument %s must be a boolean", key)
	}
	return b, nil
}

func intArg(args map[string]interface{}, key string) (int, error) {
	v, ok := args[key]
	if !ok {
		return 0, fmt.Errorf("missing argument: %s", key)
	}
	switch n := v.(type) {
	case float64:
		return int(n), nil
	case int:
		return n, nil
	default:
		return 0, fmt.Errorf("argument %s must be a number", key)
	}
}

// reencode converts a decoded JSON value into a typed struct.
func reencode(in interface{}, out interface{}) error {
	data, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}
