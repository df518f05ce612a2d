// Package config defines the declarative server configuration: the base
// directory, the listen address, server encryption options, and the four
// ordered lists of engine descriptors that the bootstrap sequence consumes.
package config

import (
	"fmt"
	"os"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EngineDef is one declarative engine descriptor: which engine to bring up,
// whether it is enabled, and its string-keyed parameters. Identity is Name
// within a category. The bootstrap sequence injects derived defaults
// (base_dir, and host for protocol servers) into Parameters; nothing else
// mutates a descriptor after loading.
type EngineDef struct {
	Name       string            `yaml:"name"`
	Enabled    bool              `yaml:"enabled"`
	Parameters map[string]string `yaml:"parameters"`
}

// SetDefault stores value under key only if the key is absent, allocating the
// parameter map if the descriptor declared none. An explicitly configured
// value is never overwritten.
func (d *EngineDef) SetDefault(key, value string) {
	if d.Parameters == nil {
		d.Parameters = make(map[string]string)
	}
	if _, ok := d.Parameters[key]; !ok {
		d.Parameters[key] = value
	}
}

// EncryptionOptions configures TLS for protocol servers. It is passed through
// to every started server as-is; servers with encryption disabled ignore it.
type EncryptionOptions struct {
	Enabled           bool   `yaml:"enabled"`
	CertFile          string `yaml:"cert_file"`
	KeyFile           string `yaml:"key_file"`
	RequireClientAuth bool   `yaml:"require_client_auth"`
}

// Config is the full server configuration, loaded once at process start and
// treated as read-only afterwards (descriptor parameter injection aside).
type Config struct {
	BaseDir                 string             `yaml:"base_dir"`
	ListenAddress           string             `yaml:"listen_address"`
	ServerEncryptionOptions *EncryptionOptions `yaml:"server_encryption_options"`

	StorageEngines        []EngineDef `yaml:"storage_engines"`
	TransactionEngines    []EngineDef `yaml:"transaction_engines"`
	SQLEngines            []EngineDef `yaml:"sql_engines"`
	ProtocolServerEngines []EngineDef `yaml:"protocol_server_engines"`
}

// Error reports an invalid or incomplete configuration. Configuration errors
// are always fatal during bootstrap.
type Error struct {
	Msg   string
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Msg + ": " + e.Cause.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Cause }

// Errorf builds a configuration error with an optional cause.
func Errorf(cause error, format string, args ...any) *Error {
	return &Error{Msg: fmt.Sprintf(format, args...), Cause: cause}
}

// Loader produces the server configuration. Exactly one LoadConfig call is
// made per process lifetime.
type Loader interface {
	LoadConfig() (*Config, error)
}

// YAMLLoader loads the configuration from a YAML file.
type YAMLLoader struct {
	Path string
}

// LoadConfig reads and decodes the YAML file at Path. Unreadable or malformed
// files are configuration errors.
func (l *YAMLLoader) LoadConfig() (*Config, error) {
	raw, err := os.ReadFile(l.Path)
	if err != nil {
		return nil, Errorf(err, "read config file %q", l.Path)
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, Errorf(err, "parse config file %q", l.Path)
	}
	return &cfg, nil
}

// Env holds the process-level settings read from LUNE_* environment
// variables. These select how the configuration is loaded and how the process
// logs; everything else lives in the configuration file.
type Env struct {
	ConfigPath string `envconfig:"CONFIG" default:"lune.yaml"`
	LogLevel   string `envconfig:"LOG_LEVEL" default:"info"`
}

// LoadEnv decodes the LUNE_* environment variables.
func LoadEnv() (Env, error) {
	var e Env
	if err := envconfig.Process("lune", &e); err != nil {
		return Env{}, Errorf(err, "process environment")
	}
	return e, nil
}
