// Package p2p implements the clustering protocol server. Peers connect over
// TCP and exchange a one-line handshake carrying the node ID. Enabling this
// engine is what triggers cluster metadata initialization during bootstrap.
package p2p

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
	"github.com/lunedb/lune/internal/server"
)

// EngineName is the descriptor name this engine registers under.
const EngineName = "p2p"

// DefaultPort is the cluster port when the descriptor names none.
const DefaultPort = 9211

func init() {
	engine.RegisterFactory(engine.CategoryProtocol, EngineName, func(env *engine.Env) engine.Engine {
		return NewEngine(env)
	})
}

var _ server.Engine = (*Engine)(nil)

// Engine is the p2p protocol-server engine.
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

// Init builds the server from the host, port and node_id parameters. A node
// without a configured node_id gets a fresh ULID identity.
func (e *Engine) Init(params map[string]string) error {
	host := params["host"]
	if host == "" {
		host = server.DefaultHost
	}

	port := DefaultPort
	if v := params["port"]; v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("p2p: invalid port %q: %w", v, err)
		}
		port = p
	}

	nodeID := params["node_id"]
	if nodeID == "" {
		nodeID = ulid.Make().String()
	}

	logger := slog.Default()
	if e.env != nil && e.env.Logger != nil {
		logger = e.env.Logger
	}

	e.srv = &Server{
		logger: logger,
		host:   host,
		port:   port,
		nodeID: nodeID,
		done:   make(chan struct{}),
	}
	return nil
}

// ProtocolServer returns the server built by Init.
func (e *Engine) ProtocolServer() server.ProtocolServer { return e.srv }

// Server is the running cluster listener.
type Server struct {
	logger *slog.Logger
	host   string
	nodeID string
	enc    *config.EncryptionOptions

	mu   sync.Mutex
	port int
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

// NodeID returns this node's cluster identity.
func (s *Server) NodeID() string { return s.nodeID }

// SetEncryptionOptions stores the TLS options applied at Start.
func (s *Server) SetEncryptionOptions(opts *config.EncryptionOptions) { s.enc = opts }

// Start binds the cluster listener and begins accepting peer handshakes.
func (s *Server) Start() error {
	tlsCfg, err := server.TLSConfig(s.enc)
	if err != nil {
		return fmt.Errorf("p2p: %w", err)
	}

	ln, err := net.Listen("tcp", net.JoinHostPort(s.host, strconv.Itoa(s.port)))
	if err != nil {
		return fmt.Errorf("p2p: listen: %w", err)
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

// Stop closes the listener and waits for handshakes in flight.
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
			s.logger.Error("p2p accept failed", "error", err)
			return
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handshake(conn)
		}()
	}
}

// handshake reads the peer's HELLO line and answers with this node's identity.
func (s *Server) handshake(conn net.Conn) {
	defer conn.Close()

	reader := bufio.NewReader(conn)
	line, err := reader.ReadString('\n')
	if err != nil {
		return
	}

	cmd, peerID, _ := strings.Cut(strings.TrimSpace(line), " ")
	if !strings.EqualFold(cmd, "HELLO") || peerID == "" {
		fmt.Fprintln(conn, "ERR expected HELLO <node_id>")
		return
	}

	s.logger.Info("peer connected", "peer_id", peerID, "remote", conn.RemoteAddr().String())
	fmt.Fprintf(conn, "WELCOME %s\n", s.nodeID)
}
