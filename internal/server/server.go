// Package server runs the circadiand control surfaces: the unix socket
// JSON-lines RPC used by circadianctl and the HTTP API used by automation
// clients.
package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	"github.com/jmylchreest/circadiand/internal/apikey"
	"github.com/jmylchreest/circadiand/internal/circadian"
	"github.com/jmylchreest/circadiand/internal/config"
	"github.com/jmylchreest/circadiand/internal/events"
	"github.com/jmylchreest/circadiand/internal/http/handlers"
	"github.com/jmylchreest/circadiand/internal/http/mw"
	"github.com/jmylchreest/circadiand/internal/http/routes"
	"github.com/jmylchreest/circadiand/internal/logging"
	"github.com/jmylchreest/circadiand/internal/ws"
	"github.com/jmylchreest/circadiand/internal/zone"
)

// BuildInfo carries version metadata stamped at build time.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildDate string
}

// Server owns the socket listener and the HTTP API.
type Server struct {
	logger     *slog.Logger
	cfg        *config.Config
	zones      *zone.Manager
	source     circadian.Source
	keys       *apikey.Manager
	bus        *events.Bus
	build      BuildInfo
	socketPath string
	listener   net.Listener
	shutdown   chan struct{}
	wg         sync.WaitGroup
	rootCtx    context.Context
	rootCancel context.CancelFunc
	httpServer *http.Server
}

// New creates a server instance. The zone manager and percentage source are
// owned by the caller; the API key manager is created here over the shared
// configuration.
func New(logger *slog.Logger, cfg *config.Config, zones *zone.Manager, source circadian.Source, bus *events.Bus, build BuildInfo) *Server {
	rootCtx, rootCancel := context.WithCancel(context.Background())
	return &Server{
		logger:     logger,
		cfg:        cfg,
		zones:      zones,
		source:     source,
		keys:       apikey.NewManager(cfg, logger),
		bus:        bus,
		build:      build,
		socketPath: cfg.Config.Server.UnixSocket,
		shutdown:   make(chan struct{}),
		rootCtx:    rootCtx,
		rootCancel: rootCancel,
	}
}

// APIKeys exposes the server's API key manager (used by the CLI bootstrap
// path to create an initial key).
func (s *Server) APIKeys() *apikey.Manager { return s.keys }

// Start begins listening on the unix socket and, when configured, serves the
// HTTP API.
func (s *Server) Start() error {
	s.logger.Info("Starting circadiand server")

	sockDir := filepath.Dir(s.socketPath)
	if err := os.MkdirAll(sockDir, 0755); err != nil {
		return fmt.Errorf("failed to create socket directory %s: %w", sockDir, err)
	}

	// Remove a stale socket from a previous run.
	if _, err := os.Stat(s.socketPath); err == nil {
		if err := os.Remove(s.socketPath); err != nil {
			return fmt.Errorf("failed to remove existing socket file %s: %w", s.socketPath, err)
		}
	}

	var err error
	s.listener, err = net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to listen on socket %s: %w", s.socketPath, err)
	}
	s.logger.Info("Listening on Unix socket", "path", s.socketPath)

	s.wg.Add(1)
	go s.acceptConnections()

	if s.cfg.Config.API.ListenAddress != "" {
		s.startHTTP()
	}

	return nil
}

func (s *Server) startHTTP() {
	s.logger.Info("Starting HTTP API server", "address", s.cfg.Config.API.ListenAddress)

	zoneHandler := &handlers.ZoneHandler{Zones: s.zones, Source: s.source}
	apiKeyHandler := &handlers.APIKeyHandler{Manager: s.keys}
	loggingHandler := &handlers.LoggingHandler{Logger: s.logger}
	versionHandler := &handlers.VersionHandler{
		Version:   s.build.Version,
		Commit:    s.build.Commit,
		BuildDate: s.build.BuildDate,
	}

	// Rate limiting runs at Chi level, before auth, to blunt brute force
	// attempts against the key check.
	router := chi.NewRouter()
	router.Use(mw.RequestLogging(s.logger))
	router.Use(mw.RateLimitByIP(s.cfg.Config.API.RequestsPerMinute))

	api := humachi.New(router, routes.NewHumaConfig(s.build.Version, ""))
	api.UseMiddleware(mw.HumaAuth(api, s.logger, s.keys))

	routes.Register(api, &routes.Handlers{
		Zone:    zoneHandler,
		APIKey:  apiKeyHandler,
		Logging: loggingHandler,
		Version: versionHandler,
	})

	// The WebSocket endpoint bypasses Huma, so auth is applied at the Chi
	// level for that route alone.
	hub := ws.NewHub(s.logger, s.bus)
	s.wg.Go(func() {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("panic in WebSocket hub", "recover", r)
			}
		}()
		hub.Run(s.rootCtx)
	})
	router.With(mw.APIKeyAuth(s.logger, s.keys)).Get("/api/v1/ws", ws.Handler(hub, s.logger))

	s.httpServer = &http.Server{
		Addr:         s.cfg.Config.API.ListenAddress,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.wg.Go(func() {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("panic in HTTP server goroutine", "recover", r)
			}
		}()
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP server failed", "error", err)
		}
		s.logger.Info("HTTP server stopped")
	})
}

// Stop gracefully shuts down the server.
func (s *Server) Stop() {
	s.logger.Info("Shutting down circadiand server")
	s.rootCancel()
	close(s.shutdown)

	if s.listener != nil {
		s.listener.Close()
	}

	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.logger.Error("HTTP server shutdown failed", "error", err)
		}
	}

	s.wg.Wait()
	s.logger.Info("Server shut down gracefully")
}

func (s *Server) acceptConnections() {
	defer s.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("panic in acceptConnections", "recover", r)
		}
	}()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.shutdown:
				s.logger.Info("Socket listener shutting down")
				return
			default:
				s.logger.Error("Failed to accept connection", "error", err)
				continue
			}
		}
		s.wg.Add(1)
		go s.handleConnection(conn)
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()
	defer s.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("panic in connection handler", "recover", r)
		}
	}()

	ctx, cancel := context.WithCancel(s.rootCtx)
	defer cancel()

	go func() {
		select {
		case <-s.shutdown:
			if uc, ok := conn.(*net.UnixConn); ok {
				uc.CloseRead() // unblock the reader for shutdown
			}
			cancel()
		case <-ctx.Done():
		}
	}()

	reader := bufio.NewReader(conn)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := reader.ReadBytes('\n')
		if err != nil {
			if errors.Is(err, io.EOF) || strings.Contains(err.Error(), "use of closed network connection") {
				s.logger.Debug("Client disconnected")
			} else {
				s.logger.Error("Failed to read from connection", "error", err)
			}
			return
		}

		var req map[string]any
		if err := json.Unmarshal(line, &req); err != nil {
			s.logger.Error("Failed to unmarshal request", "error", err, "request", string(line))
			s.sendError(conn, "", fmt.Sprintf("invalid JSON request: %s", err))
			continue
		}

		action, _ := req["action"].(string)
		id, _ := req["id"].(string)
		data, _ := req["data"].(map[string]any)

		s.logger.Debug("Received request", "action", action, "id", id)
		s.dispatch(conn, action, id, data)
	}
}

func (s *Server) dispatch(conn net.Conn, action, id string, data map[string]any) {
	switch action {
	case "ping":
		s.sendResponse(conn, id, map[string]any{"message": "pong"})

	case "get_version":
		s.sendResponse(conn, id, map[string]any{
			"version":    s.build.Version,
			"commit":     s.build.Commit,
			"build_date": s.build.BuildDate,
		})

	case "list_zones":
		result := make(map[string]any)
		for _, c := range s.zones.Zones() {
			result[c.ID()] = zoneMap(c)
		}
		s.sendResponse(conn, id, map[string]any{"zones": result})

	case "get_zone":
		zoneID := stringFromMap(data, "id")
		if zoneID == "" {
			s.sendError(conn, id, "missing zone ID for get_zone")
			return
		}
		c, err := s.zones.Zone(zoneID)
		if err != nil {
			s.sendError(conn, id, fmt.Sprintf("failed to get zone %s: %s", zoneID, err))
			return
		}
		s.sendResponse(conn, id, map[string]any{"zone": zoneMap(c)})

	case "set_zone_mode":
		zoneID := stringFromMap(data, "id")
		modeStr := stringFromMap(data, "mode")
		if zoneID == "" || modeStr == "" {
			s.sendError(conn, id, "missing id or mode for set_zone_mode")
			return
		}
		c, err := s.zones.Zone(zoneID)
		if err != nil {
			s.sendError(conn, id, fmt.Sprintf("failed to get zone %s: %s", zoneID, err))
			return
		}
		mode, err := zone.ParseMode(modeStr)
		if err != nil {
			s.sendError(conn, id, err.Error())
			return
		}
		if err := c.SetMode(mode); err != nil {
			s.sendError(conn, id, fmt.Sprintf("failed to set zone %s mode: %s", zoneID, err))
			return
		}
		s.sendResponse(conn, id, map[string]any{"zone": zoneMap(c)})

	case "set_zone_state":
		zoneID := stringFromMap(data, "id")
		if zoneID == "" {
			s.sendError(conn, id, "missing zone ID for set_zone_state")
			return
		}
		c, err := s.zones.Zone(zoneID)
		if err != nil {
			s.sendError(conn, id, fmt.Sprintf("failed to get zone %s: %s", zoneID, err))
			return
		}
		brightness := floatFromMap(data, "brightness")
		temperature := floatFromMap(data, "temperature")
		if brightness == nil && temperature == nil {
			s.sendError(conn, id, "missing brightness/temperature for set_zone_state")
			return
		}
		if err := c.Override(brightness, temperature); err != nil {
			s.sendError(conn, id, fmt.Sprintf("failed to set zone %s state: %s", zoneID, err))
			return
		}
		s.sendResponse(conn, id, map[string]any{"zone": zoneMap(c)})

	case "set_zone_settings":
		zoneID := stringFromMap(data, "id")
		if zoneID == "" {
			s.sendError(conn, id, "missing zone ID for set_zone_settings")
			return
		}
		zs := config.ZoneSettings{
			Name:            stringFromMap(data, "name"),
			SunsetTemp:      intFromMap(data, "sunset_temp"),
			NoonTemp:        intFromMap(data, "noon_temp"),
			MinBrightness:   intFromMap(data, "min_brightness"),
			MaxBrightness:   intFromMap(data, "max_brightness"),
			NightTemp:       intFromMap(data, "night_temp"),
			NightBrightness: intFromMap(data, "night_brightness"),
		}
		if err := s.zones.ApplySettings(zoneID, zs); err != nil {
			s.sendError(conn, id, fmt.Sprintf("failed to set zone %s settings: %s", zoneID, err))
			return
		}
		c, err := s.zones.Zone(zoneID)
		if err != nil {
			s.sendError(conn, id, fmt.Sprintf("failed to get zone %s: %s", zoneID, err))
			return
		}
		s.sendResponse(conn, id, map[string]any{"zone": zoneMap(c)})

	case "get_percentage":
		s.sendResponse(conn, id, map[string]any{"percentage": s.source.Percentage()})

	case "apikey_create":
		name := stringFromMap(data, "name")
		if name == "" {
			s.sendError(conn, id, "missing name for apikey_create")
			return
		}
		var expiresIn time.Duration
		if raw := stringFromMap(data, "expires_in"); raw != "" {
			var err error
			expiresIn, err = time.ParseDuration(raw)
			if err != nil {
				s.sendError(conn, id, fmt.Sprintf("invalid expires_in duration: %s", err))
				return
			}
		}
		key, err := s.keys.CreateAPIKey(name, expiresIn)
		if err != nil {
			s.sendError(conn, id, fmt.Sprintf("failed to create API key: %s", err))
			return
		}
		s.sendResponse(conn, id, map[string]any{"apikey": key})

	case "apikey_list":
		s.sendResponse(conn, id, map[string]any{"apikeys": s.keys.ListAPIKeys()})

	case "apikey_delete":
		key := stringFromMap(data, "key")
		if key == "" {
			s.sendError(conn, id, "missing key for apikey_delete")
			return
		}
		if err := s.keys.DeleteAPIKey(key); err != nil {
			s.sendError(conn, id, fmt.Sprintf("failed to delete API key: %s", err))
			return
		}
		s.sendResponse(conn, id, map[string]any{"status": "ok"})

	case "apikey_set_disabled":
		key := stringFromMap(data, "key")
		if key == "" {
			s.sendError(conn, id, "missing key for apikey_set_disabled")
			return
		}
		updated, err := s.keys.SetAPIKeyDisabledStatus(key, boolFromMap(data, "disabled"))
		if err != nil {
			s.sendError(conn, id, fmt.Sprintf("failed to update API key: %s", err))
			return
		}
		s.sendResponse(conn, id, map[string]any{"apikey": updated})

	case "get_log_level":
		s.sendResponse(conn, id, map[string]any{"level": logging.Level()})

	case "set_log_level":
		level := stringFromMap(data, "level")
		if level == "" {
			s.sendError(conn, id, "missing level for set_log_level")
			return
		}
		if err := logging.SetLevel(level); err != nil {
			s.sendError(conn, id, err.Error())
			return
		}
		s.logger.Info("Log level changed via socket", "level", level)
		s.sendResponse(conn, id, map[string]any{"level": logging.Level()})

	default:
		s.logger.Warn("received unknown action", "action", action)
		s.sendError(conn, id, "unknown action: "+action)
	}
}

// zoneMap flattens a controller into the socket wire shape.
func zoneMap(c *zone.Controller) map[string]any {
	st := c.State()
	settings := c.Settings()
	return map[string]any{
		"id":          c.ID(),
		"name":        c.Name(),
		"mode":        string(st.Mode),
		"brightness":  st.Brightness,
		"temperature": st.Temperature,
		"settings": map[string]any{
			"sunset_temp":      settings.SunsetTemperature,
			"noon_temp":        settings.NoonTemperature,
			"min_brightness":   settings.MinBrightness,
			"max_brightness":   settings.MaxBrightness,
			"night_temp":       settings.NightTemperature,
			"night_brightness": settings.NightBrightness,
		},
	}
}

func (s *Server) sendResponse(conn net.Conn, id string, data map[string]any) {
	response := map[string]any{"status": "ok"}
	if id != "" {
		response["id"] = id
	}
	maps.Copy(response, data)
	if err := json.NewEncoder(conn).Encode(response); err != nil {
		s.logger.Error("Failed to send response", "error", err)
	}
}

func (s *Server) sendError(conn net.Conn, id string, message string) {
	s.logger.Error("Sending error response to client", "id", id, "message", message)
	response := map[string]any{"error": message}
	if id != "" {
		response["id"] = id
	}
	if err := json.NewEncoder(conn).Encode(response); err != nil {
		s.logger.Error("Failed to send error response", "error", err)
	}
}

// stringFromMap extracts a string, returning "" if missing or wrong type.
func stringFromMap(m map[string]any, key string) string {
	v, _ := m[key].(string)
	return v
}

// boolFromMap extracts a bool, returning false if missing or wrong type.
func boolFromMap(m map[string]any, key string) bool {
	v, _ := m[key].(bool)
	return v
}

// intFromMap extracts an int from a JSON number, returning 0 if missing.
func intFromMap(m map[string]any, key string) int {
	v, _ := m[key].(float64)
	return int(v)
}

// floatFromMap extracts an optional float, returning nil when absent.
func floatFromMap(m map[string]any, key string) *float64 {
	v, ok := m[key].(float64)
	if !ok {
		return nil
	}
	return &v
}
