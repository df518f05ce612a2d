// Package httpd implements the HTTP admin protocol server: health, Prometheus
// metrics, and read-only views of the engine registries and default markers.
package httpd

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/lunedb/lune/internal/config"
	"github.com/lunedb/lune/internal/engine"
	"github.com/lunedb/lune/internal/server"
)

// EngineName is the descriptor name this engine registers under.
const EngineName = "http"

// DefaultPort is the admin port when the descriptor names none.
const DefaultPort = 8181

const (
	shutdownTimeout   = 10 * time.Second
	readHeaderTimeout = 10 * time.Second
	writeTimeout      = 30 * time.Second
)

func init() {
	engine.RegisterFactory(engine.CategoryProtocol, EngineName, func(env *engine.Env) engine.Engine {
		return NewEngine(env)
	})
}

var _ server.Engine = (*Engine)(nil)

// Engine is the http protocol-server engine.
type Engine struct {
	env *engine.Env
	srv *Server
}

// NewEngine creates an uninitialized engine.
func NewEngine(env *engine.Env) *Engine {
	return &Engine{env: env}
}

// Name returns the engine's declared name.
func (e *Engine) Name() string { return EngineName }

// Init builds the admin server from the host and port parameters.
func (e *Engine) Init(params map[string]string) error {
	host := params["host"]
	if host == "" {
		host = server.DefaultHost
	}

	port := DefaultPort
	if v := params["port"]; v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("http: invalid port %q: %w", v, err)
		}
		port = p
	}

	logger := slog.Default()
	if e.env != nil && e.env.Logger != nil {
		logger = e.env.Logger
	}

	e.srv = newServer(e.env, logger, host, port)
	return nil
}

// ProtocolServer returns the server built by Init.
func (e *Engine) ProtocolServer() server.ProtocolServer { return e.srv }

// Server is the running admin listener.
type Server struct {
	env    *engine.Env
	logger *slog.Logger
	router *chi.Mux
	host   string
	enc    *config.EncryptionOptions

	mu   sync.Mutex
	port int
	http *http.Server
}

func newServer(env *engine.Env, logger *slog.Logger, host string, port int) *Server {
	srv := &Server{
		env:    env,
		logger: logger,
		router: chi.NewRouter(),
		host:   host,
		port:   port,
	}

	srv.router.Use(middleware.RequestID)
	srv.router.Use(middleware.Recoverer)
	srv.router.Use(srv.loggingMiddleware)
	srv.router.Use(metricsMiddleware)
	srv.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	srv.routes()

	return srv
}

// routes registers all HTTP routes on the router.
func (s *Server) routes() {
	s.router.Get("/healthz", s.handleHealthz)
	s.router.Handle("/metrics", metricsHandler())

	s.router.Get("/v1/engines", s.handleListEngines)
	s.router.Get("/v1/defaults", s.handleListDefaults)
}

// Router returns the chi router, for tests that drive handlers directly.
func (s *Server) Router() *chi.Mux { return s.router }

// Name returns the server name.
func (s *Server) Name() string { return EngineName }

// Host returns the configured listen host.
func (s *Server) Host() string { return s.host }

// Port returns the bound port once started, the configured port before that.
func (s *Server) Port() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port
}

// SetEncryptionOptions stores the TLS options applied at Start.
func (s *Server) SetEncryptionOptions(opts *config.EncryptionOptions) { s.enc = opts }

// Start binds the listener and serves in a background goroutine.
func (s *Server) Start() error {
	tlsCfg, err := server.TLSConfig(s.enc)
	if err != nil {
		return fmt.Errorf("http: %w", err)
	}

	ln, err := net.Listen("tcp", net.JoinHostPort(s.host, strconv.Itoa(s.port)))
	if err != nil {
		return fmt.Errorf("http: listen: %w", err)
	}

	httpServer := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      writeTimeout,
	}

	s.mu.Lock()
	s.port = ln.Addr().(*net.TCPAddr).Port
	if tlsCfg != nil {
		ln = tls.NewListener(ln, tlsCfg)
	}
	s.http = httpServer
	s.mu.Unlock()

	go func() {
		if err := httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("http server failed", "error", err)
		}
	}()
	return nil
}

// Stop drains the server within the shutdown timeout.
func (s *Server) Stop() error {
	s.mu.Lock()
	httpServer := s.http
	s.mu.Unlock()
	if httpServer == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("http: shutdown: %w", err)
	}
	return nil
}

type healthResponse struct {
	Status string `json:"status"`
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}

// handleListEngines reports the registered engine names per category.
func (s *Server) handleListEngines(w http.ResponseWriter, _ *http.Request) {
	out := make(map[string][]string)
	for _, cat := range engine.Categories() {
		if reg := s.env.Registry(cat); reg != nil {
			out[string(cat)] = reg.Names()
		}
	}
	s.writeJSON(w, http.StatusOK, out)
}

// handleListDefaults reports the recorded default-engine markers.
func (s *Server) handleListDefaults(w http.ResponseWriter, _ *http.Request) {
	defaults := map[string]string{}
	if s.env != nil && s.env.Props != nil {
		defaults = s.env.Props.Defaults()
	}
	s.writeJSON(w, http.StatusOK, defaults)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response", "error", err)
	}
}

// loggingMiddleware logs each request using the structured logger.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
