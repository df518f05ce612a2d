package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

const sampleYAML = `
base_dir: /data
listen_address: 0.0.0.0
server_encryption_options:
  enabled: true
  cert_file: /etc/lune/server.crt
  key_file: /etc/lune/server.key
storage_engines:
  - name: aose
    enabled: true
    parameters:
      cache_mb: "64"
transaction_engines:
  - name: mvt
    enabled: true
sql_engines: []
protocol_server_engines:
  - name: tcp
    enabled: true
  - name: http
    enabled: false
`

func TestYAMLLoaderLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lune.yaml")
	if err := os.WriteFile(path, []byte(sampleYAML), 0o644); err != nil {
		t.Fatal(err)
	}

	loader := &YAMLLoader{Path: path}
	cfg, err := loader.LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.BaseDir != "/data" {
		t.Errorf("BaseDir = %q, want %q", cfg.BaseDir, "/data")
	}
	if cfg.ListenAddress != "0.0.0.0" {
		t.Errorf("ListenAddress = %q, want %q", cfg.ListenAddress, "0.0.0.0")
	}
	if cfg.ServerEncryptionOptions == nil || !cfg.ServerEncryptionOptions.Enabled {
		t.Error("ServerEncryptionOptions not decoded")
	}
	if len(cfg.StorageEngines) != 1 || cfg.StorageEngines[0].Name != "aose" {
		t.Errorf("StorageEngines = %+v, want one aose entry", cfg.StorageEngines)
	}
	if got := cfg.StorageEngines[0].Parameters["cache_mb"]; got != "64" {
		t.Errorf("storage parameters[cache_mb] = %q, want %q", got, "64")
	}
	if len(cfg.ProtocolServerEngines) != 2 {
		t.Fatalf("ProtocolServerEngines count = %d, want 2", len(cfg.ProtocolServerEngines))
	}
	if cfg.ProtocolServerEngines[1].Enabled {
		t.Error("http descriptor should be disabled")
	}
}

func TestYAMLLoaderMissingFile(t *testing.T) {
	loader := &YAMLLoader{Path: filepath.Join(t.TempDir(), "absent.yaml")}

	_, err := loader.LoadConfig()
	if err == nil {
		t.Fatal("LoadConfig() succeeded for a missing file")
	}

	var cfgErr *Error
	if !errors.As(err, &cfgErr) {
		t.Errorf("error type = %T, want *config.Error", err)
	}
}

func TestYAMLLoaderMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lune.yaml")
	if err := os.WriteFile(path, []byte("base_dir: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}

	loader := &YAMLLoader{Path: path}
	_, err := loader.LoadConfig()

	var cfgErr *Error
	if !errors.As(err, &cfgErr) {
		t.Errorf("error = %v (%T), want *config.Error", err, err)
	}
}

func TestEngineDefSetDefault(t *testing.T) {
	def := EngineDef{Name: "tcp", Enabled: true}

	def.SetDefault("host", "0.0.0.0")
	if got := def.Parameters["host"]; got != "0.0.0.0" {
		t.Errorf("host = %q, want %q", got, "0.0.0.0")
	}

	def.SetDefault("host", "192.168.1.1")
	if got := def.Parameters["host"]; got != "0.0.0.0" {
		t.Errorf("SetDefault overwrote host: got %q", got)
	}
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("LUNE_CONFIG", "/etc/lune/lune.yaml")
	t.Setenv("LUNE_LOG_LEVEL", "debug")

	env, err := LoadEnv()
	if err != nil {
		t.Fatalf("LoadEnv() error = %v", err)
	}
	if env.ConfigPath != "/etc/lune/lune.yaml" {
		t.Errorf("ConfigPath = %q, want %q", env.ConfigPath, "/etc/lune/lune.yaml")
	}
	if env.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want %q", env.LogLevel, "debug")
	}
}

func TestLoadEnvDefaults(t *testing.T) {
	// t.Setenv registers the restore; envconfig only applies defaults when the
	// variable is truly unset, so unset rather than blank them.
	t.Setenv("LUNE_CONFIG", "x")
	t.Setenv("LUNE_LOG_LEVEL", "x")
	os.Unsetenv("LUNE_CONFIG")
	os.Unsetenv("LUNE_LOG_LEVEL")

	env, err := LoadEnv()
	if err != nil {
		t.Fatalf("LoadEnv() error = %v", err)
	}
	if env.ConfigPath != "lune.yaml" {
		t.Errorf("ConfigPath = %q, want default %q", env.ConfigPath, "lune.yaml")
	}
	if env.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want default %q", env.LogLevel, "info")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"invalid", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		got := ParseLevel(tt.input)
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := Errorf(cause, "loading %q", "x")

	if !errors.Is(err, cause) {
		t.Error("Errorf did not wrap the cause")
	}
	if err.Error() != `loading "x": boom` {
		t.Errorf("Error() = %q", err.Error())
	}
}
