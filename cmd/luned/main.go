package main

import (
	"log"
	"os"

	"github.com/lunedb/lune/internal/boot"
	"github.com/lunedb/lune/internal/config"
	"github.com/lunedb/lune/internal/engine"
	"github.com/lunedb/lune/internal/shutdown"

	// Built-in engines register their factories from init.
	_ "github.com/lunedb/lune/internal/query/lusql"
	_ "github.com/lunedb/lune/internal/server/httpd"
	_ "github.com/lunedb/lune/internal/server/p2p"
	_ "github.com/lunedb/lune/internal/server/tcp"
	_ "github.com/lunedb/lune/internal/storage/aose"
	_ "github.com/lunedb/lune/internal/storage/memse"
	_ "github.com/lunedb/lune/internal/transaction/mvt"
)

func main() {
	env, err := config.LoadEnv()
	if err != nil {
		log.Fatalf("invalid environment: %v", err)
	}

	logger := config.NewLogger(os.Stdout, config.ParseLevel(env.LogLevel))

	logger.Info("lune starting",
		"version", boot.Version,
		"config", env.ConfigPath,
	)

	coordinator := shutdown.NewCoordinator(logger)
	orch := boot.New(&config.YAMLLoader{Path: env.ConfigPath}, engine.Builtins(), coordinator, logger)

	if err := orch.Run(); err != nil {
		logger.Error("fatal error: unable to start lune", "error", err)
		os.Exit(1)
	}

	coordinator.Wait()
}
