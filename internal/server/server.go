// Package server hosts the bridge and payload endpoints over HTTP.
//
// It owns the wiring: store, registry, updater, dispatcher, and assembler are
// constructed here and nowhere else. The webview's isolated context connects
// to /ws and speaks the bridge wire protocol; /payload serves the assembled
// initialization script.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ChristianVaughn/GeoGuessrDesktop/internal/bridge"
	"github.com/ChristianVaughn/GeoGuessrDesktop/internal/config"
	"github.com/ChristianVaughn/GeoGuessrDesktop/internal/inject"
	"github.com/ChristianVaughn/GeoGuessrDesktop/internal/logging"
	"github.com/ChristianVaughn/GeoGuessrDesktop/internal/script/fetch"
	"github.com/ChristianVaughn/GeoGuessrDesktop/internal/script/registry"
	"github.com/ChristianVaughn/GeoGuessrDesktop/internal/script/store"
	"github.com/ChristianVaughn/GeoGuessrDesktop/internal/script/updater"
	"github.com/ChristianVaughn/GeoGuessrDesktop/internal/shared/types"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// The webview loads a remote origin; the socket is loopback-only.
		return true
	},
}

// Server wraps the HTTP surface and its collaborators.
type Server struct {
	cfg        config.Config
	logger     *logging.Logger
	router     *gin.Engine
	registry   *registry.Registry
	updater    *updater.Updater
	dispatcher *bridge.Dispatcher
	assembler  *inject.Assembler
	store      *store.Store
	httpSrv    *http.Server

	stopWatch    chan struct{}
	cancelUpdate context.CancelFunc
	closeOnce    sync.Once
}

// NewServer builds a fully wired server. shell may be nil; window-control
// messages are then logged and dropped.
func NewServer(cfg config.Config, logger *logging.Logger, shell bridge.Shell) (*Server, error) {
	if logger == nil {
		logger = logging.NewDefault()
	}

	dataDir, err := cfg.ResolveDataDir()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data dir: %w", err)
	}
	logger.Info("Using data directory", zap.String("dir", dataDir))

	st := store.New(dataDir, logger)
	fetcher := fetch.New(fetch.Config{
		Timeout:   cfg.Fetch.Timeout,
		MaxBytes:  cfg.Fetch.MaxBytes,
		UserAgent: cfg.Fetch.UserAgent,
	})
	reg := registry.New(fetcher, st, logger)
	upd := updater.New(reg, cfg.Update, logger)

	dispatcher := bridge.NewDispatcher(logger)
	dispatcher.BindRegistry(reg, upd)
	proxy := bridge.NewProxy(logger)
	proxy.SetTimeout(cfg.Fetch.Timeout)
	dispatcher.BindProxy(proxy)
	dispatcher.BindExternal(bridge.NewOpener(logger))
	if shell != nil {
		dispatcher.SetShell(shell)
	}
	dispatcher.Register("update_presence", func(_ context.Context, args map[string]interface{}) (interface{}, error) {
		logger.Debug("Presence update", zap.Any("args", args))
		return nil, nil
	})

	bridgeURL := fmt.Sprintf("ws://%s:%s/ws", cfg.Server.Host, cfg.Server.Port)
	assembler := inject.New(bridgeURL)

	if logging.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()

	s := &Server{
		cfg:        cfg,
		logger:     logger,
		router:     router,
		registry:   reg,
		updater:    upd,
		dispatcher: dispatcher,
		assembler:  assembler,
		store:      st,
		httpSrv: &http.Server{
			Addr:    cfg.Server.Host + ":" + cfg.Server.Port,
			Handler: router,
		},
		stopWatch: make(chan struct{}),
	}

	router.GET("/health", s.handleHealth)
	router.GET("/payload", s.handlePayload)
	router.GET("/ws", s.handleBridge)

	if cfg.Storage.Watch {
		if err := s.watchStore(); err != nil {
			logger.Warn("Store watch disabled", zap.Error(err))
		}
	}

	return s, nil
}

// Handler exposes the router. Tests only.
func (s *Server) Handler() http.Handler { return s.router }

// Registry exposes the wired registry for embedding callers.
func (s *Server) Registry() *registry.Registry { return s.registry }

// Dispatcher exposes the bridge dispatcher so embedding callers can register
// additional operations.
func (s *Server) Dispatcher() *bridge.Dispatcher { return s.dispatcher }

// Run starts the auto-update loop and serves until Close shuts the listener
// down. A clean shutdown returns nil.
func (s *Server) Run() error {
	if s.cfg.Update.Enabled {
		ctx, cancel := context.WithCancel(context.Background())
		s.cancelUpdate = cancel
		go s.updater.Run(ctx)
	}

	s.logger.Info("Starting server", zap.String("addr", s.httpSrv.Addr))
	if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close stops the background loops and drains the listener gracefully.
func (s *Server) Close() error {
	var shutdownErr error
	s.closeOnce.Do(func() {
		close(s.stopWatch)
		if s.cancelUpdate != nil {
			s.cancelUpdate()
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		shutdownErr = s.httpSrv.Shutdown(ctx)
	})
	return shutdownErr
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"scripts": len(s.registry.List()),
	})
}

func (s *Server) handlePayload(c *gin.Context) {
	payload := s.assembler.Build(s.registry.List(), s.registry.Dependencies())
	c.Data(http.StatusOK, "text/javascript; charset=utf-8", []byte(payload))
}

// handleBridge upgrades to a websocket and pumps bridge messages. Each
// request is dispatched on its own goroutine so a slow operation (a proxied
// request against a sluggish host, say) never queues behind it the toggles
// and window controls that arrive after; a mutex serializes writes back onto
// the socket.
func (s *Server) handleBridge(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	connID := uuid.NewString()
	log := s.logger.With(zap.String("conn", connID))
	log.Info("Bridge connection opened")

	ctx := c.Request.Context()
	var writeMu sync.Mutex
	for {
		var req types.BridgeRequest
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn("Bridge read error", zap.Error(err))
			}
			break
		}

		go func(req types.BridgeRequest) {
			resp := s.dispatcher.Dispatch(ctx, req)
			if resp == nil {
				return
			}
			writeMu.Lock()
			err := conn.WriteJSON(resp)
			writeMu.Unlock()
			if err != nil {
				log.Warn("Bridge write error", zap.Error(err))
			}
		}(req)
	}
	log.Info("Bridge connection closed")
}

// watchStore reloads the registry when either document is edited externally.
func (s *Server) watchStore() error {
	changes, err := s.store.Watch(s.stopWatch)
	if err != nil {
		return err
	}
	go func() {
		for name := range changes {
			s.logger.Info("Store document changed, reloading", zap.String("file", name))
			s.registry.Reload()
		}
	}()
	return nil
}

// LoggingShell is a stand-in hosting shell: it records window-control actions
// in the log so the bridge path works without a real window.
type LoggingShell struct {
	logger *logging.Logger
}

// NewLoggingShell creates the stand-in shell.
func NewLoggingShell(logger *logging.Logger) *LoggingShell {
	if logger == nil {
		logger = logging.NewDefault()
	}
	return &LoggingShell{logger: logger}
}

func (s *LoggingShell) Minimize() error {
	s.logger.Info("Window control", zap.String("action", "minimize"))
	return nil
}

func (s *LoggingShell) ToggleMaximize() error {
	s.logger.Info("Window control", zap.String("action", "maximize"))
	return nil
}

func (s *LoggingShell) Close() error {
	s.logger.Info("Window control", zap.String("action", "close"))
	return nil
}
