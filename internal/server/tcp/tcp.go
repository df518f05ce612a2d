// Package tcp implements the line-oriented wire protocol server. Each
// connection gets a ULID session ID and a command loop: PING, ECHO, SQL
// (classified by the default SQL engine), and QUIT.
package tcp

import (
	"bufio"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/lunedb/lune/internal/config"
	"github.com/lunedb/lune/internal/engine"
	"github.com/lunedb/lune/internal/query"
	"github.com/lunedb/lune/internal/server"
)

// EngineName is the descriptor name this engine registers under.
const EngineName = "tcp"

// DefaultPort is the wire protocol port when the descriptor names none.
const DefaultPort = 9210

func init() {
	engine.RegisterFactory(engine.CategoryProtocol, EngineName, func(env *engine.Env) engine.Engine {
		return NewEngine(env)
	})
}

var _ server.Engine = (*Engine)(nil)

// Engine is the tcp protocol-server engine.
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

// Init builds the server from the host and port parameters.
func (e *Engine) Init(params map[string]string) error {
	host := params["host"]
	if host == "" {
		host = server.DefaultHost
	}

	port := DefaultPort
	if v := params["port"]; v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("tcp: invalid port %q: %w", v, err)
		}
		port = p
	}

	logger := slog.Default()
	if e.env != nil && e.env.Logger != nil {
		logger = e.env.Logger
	}

	e.srv = &Server{env: e.env, logger: logger, host: host, port: port, done: make(chan struct{})}
	return nil
}

// ProtocolServer returns the server built by Init.
func (e *Engine) ProtocolServer() server.ProtocolServer { return e.srv }

// Server is the running wire protocol listener.
type Server struct {
	env    *engine.Env
	logger *slog.Logger
	host   string
	port   int
	enc    *config.EncryptionOptions

	mu   sync.Mutex
	ln   net.Listener
	done chan struct{}
	wg   sync.WaitGroup
}

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

// Start binds the listener and begins accepting connections. Port 0 binds an
// ephemeral port; Port reports the bound one.
func (s *Server) Start() error {
	tlsCfg, err := server.TLSConfig(s.enc)
	if err != nil {
		return fmt.Errorf("tcp: %w", err)
	}

	ln, err := net.Listen("tcp", net.JoinHostPort(s.host, strconv.Itoa(s.port)))
	if err != nil {
		return fmt.Errorf("tcp: listen: %w", err)
	}

	s.mu.Lock()
	s.port = ln.Addr().(*net.TCPAddr).Port
	if tlsCfg != nil {
		ln = tls.NewListener(ln, tlsCfg)
	}
	s.ln = ln
	s.mu.Unlock()

	s.wg.Add(1)
	go s.acceptLoop(ln)
	return nil
}

// Stop closes the listener and waits for in-flight connections to drain.
func (s *Server) Stop() error {
	close(s.done)

	s.mu.Lock()
	ln := s.ln
	s.mu.Unlock()
	if ln != nil {
		ln.Close()
	}

	s.wg.Wait()
	return nil
}

func (s *Server) acceptLoop(ln net.Listener) {
	defer s.wg.Done()
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-s.done:
				return
			default:
			}
			s.logger.Error("tcp accept failed", "error", err)
			return
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(conn)
		}()
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()

	sessionID := ulid.Make().String()
	s.logger.Debug("tcp session opened", "session_id", sessionID, "remote", conn.RemoteAddr().String())

	fmt.Fprintf(conn, "LUNE %s\n", sessionID)

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		select {
		case <-s.done:
			return
		default:
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		cmd, rest, _ := strings.Cut(line, " ")
		switch strings.ToUpper(cmd) {
		case "PING":
			fmt.Fprintln(conn, "PONG")
		case "ECHO":
			fmt.Fprintln(conn, rest)
		case "SQL":
			s.handleSQL(conn, rest)
		case "QUIT":
			fmt.Fprintln(conn, "BYE")
			return
		default:
			fmt.Fprintf(conn, "ERR unknown command %q\n", cmd)
		}
	}

	s.logger.Debug("tcp session closed", "session_id", sessionID)
}

func (s *Server) handleSQL(conn net.Conn, sql string) {
	q := s.queryEngine()
	if q == nil {
		fmt.Fprintln(conn, "ERR no sql engine available")
		return
	}

	stmts, err := q.Parse(sql)
	if err != nil {
		fmt.Fprintf(conn, "ERR %v\n", err)
		return
	}
	for _, stmt := range stmts {
		fmt.Fprintf(conn, "OK %s\n", stmt.Class)
	}
}

// queryEngine resolves the category default lazily; SQL engines initialize
// before protocol servers start, so the marker is stable by the time any
// connection arrives.
func (s *Server) queryEngine() query.Engine {
	if s.env == nil || s.env.Props == nil {
		return nil
	}
	name, ok := s.env.Props.DefaultEngine(string(engine.CategoryQuery))
	if !ok {
		return nil
	}
	reg := s.env.Registry(engine.CategoryQuery)
	if reg == nil {
		return nil
	}
	e, ok := reg.Get(name)
	if !ok {
		return nil
	}
	q, _ := e.(query.Engine)
	return q
}
