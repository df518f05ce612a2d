// Package server defines the contract protocol-server engines implement: an
// engine produces a ProtocolServer, the running network listener the
// bootstrap sequence starts and the shutdown coordinator stops.
package server

import (
	"crypto/tls"
	"fmt"

	"github.com/lunedb/lune/internal/config"
	"github.com/lunedb/lune/internal/engine"
)

// DefaultHost is the listen host used when neither the descriptor nor the
// configuration's listen_address names one.
const DefaultHost = "127.0.0.1"

// Engine is a protocol-server engine. Init configures it from descriptor
// parameters; ProtocolServer returns the listener to start.
type Engine interface {
	engine.Engine

	ProtocolServer() ProtocolServer
}

// ProtocolServer is a running network listener. SetEncryptionOptions is
// called before Start; Stop is invoked at most once, from a shutdown action.
type ProtocolServer interface {
	Name() string
	Host() string
	Port() int
	SetEncryptionOptions(opts *config.EncryptionOptions)
	Start() error
	Stop() error
}

// TLSConfig builds a tls.Config from encryption options. It returns nil when
// the options are absent or disabled, meaning listen in plaintext.
func TLSConfig(opts *config.EncryptionOptions) (*tls.Config, error) {
	if opts == nil || !opts.Enabled {
		return nil, nil
	}

	cert, err := tls.LoadX509KeyPair(opts.CertFile, opts.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("load server certificate: %w", err)
	}

	cfg := &tls.Config{Certificates: []tls.Certificate{cert}}
	if opts.RequireClientAuth {
		cfg.ClientAuth = tls.RequireAndVerifyClientCert
	}
	return cfg, nil
}
