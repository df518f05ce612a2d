// Package boot drives the bootstrap sequence: load configuration, validate
// the base directory, initialize engines category by category in dependency
// order, bootstrap the system database, then start every enabled protocol
// server and hand its stop action to the shutdown coordinator.
package boot

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lunedb/lune/internal/cluster"
	"github.com/lunedb/lune/internal/config"
	"github.com/lunedb/lune/internal/db"
	"github.com/lunedb/lune/internal/engine"
	"github.com/lunedb/lune/internal/props"
	"github.com/lunedb/lune/internal/server"
	"github.com/lunedb/lune/internal/shutdown"
	"github.com/lunedb/lune/internal/transaction"
)

// Version is the release version reported at startup.
const Version = "0.3.0"

// Orchestrator owns the bootstrap state: the registries, the property store,
// the resolver, and the handles produced along the way. Bootstrap is strictly
// single-threaded; every stage completes before the next begins and any error
// aborts the sequence.
type Orchestrator struct {
	loader      config.Loader
	logger      *slog.Logger
	coordinator *shutdown.Coordinator

	propStore  *props.Store
	registries map[engine.Category]*engine.Registry
	resolver   *engine.Resolver

	// ClusterEngineName names the protocol engine whose enabled presence
	// triggers cluster metadata initialization.
	ClusterEngineName string

	cfg         *config.Config
	database    *db.Database
	servers     []server.ProtocolServer
	initialized map[engine.Category]map[string]bool
}

// New builds an orchestrator around the given config loader and factory set.
func New(loader config.Loader, factories *engine.Factories, coordinator *shutdown.Coordinator, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}

	propStore := props.NewStore()
	registries := make(map[engine.Category]*engine.Registry, len(engine.Categories()))
	initialized := make(map[engine.Category]map[string]bool, len(engine.Categories()))
	for _, cat := range engine.Categories() {
		registries[cat] = engine.NewRegistry()
		initialized[cat] = make(map[string]bool)
	}

	env := &engine.Env{
		Logger:     logger,
		Props:      propStore,
		Registries: registries,
	}

	return &Orchestrator{
		loader:      loader,
		logger:      logger,
		coordinator: coordinator,
		propStore:   propStore,
		registries:  registries,
		resolver: &engine.Resolver{
			Factories:           factories,
			Env:                 env,
			TransactionFallback: transaction.DefaultEngineName,
		},
		ClusterEngineName: "p2p",
		initialized:       initialized,
	}
}

// Run executes the full bootstrap sequence and reports the per-stage timings.
func (o *Orchestrator) Run() error {
	t := time.Now()
	if err := o.loadConfig(); err != nil {
		return err
	}
	loadMS := time.Since(t)

	t = time.Now()
	if err := o.initialize(); err != nil {
		return err
	}
	initMS := time.Since(t)

	t = time.Now()
	if err := o.startProtocolServers(); err != nil {
		return err
	}
	startMS := time.Since(t)

	observeStage("load_config", loadMS)
	observeStage("init", initMS)
	observeStage("start", startMS)

	o.logger.Info("startup complete",
		"total_ms", (loadMS + initMS + startMS).Milliseconds(),
		"load_config_ms", loadMS.Milliseconds(),
		"init_ms", initMS.Milliseconds(),
		"start_ms", startMS.Milliseconds(),
	)
	return nil
}

// loadConfig obtains the configuration, exactly once per process.
func (o *Orchestrator) loadConfig() error {
	if o.cfg != nil {
		return fmt.Errorf("configuration already loaded")
	}

	cfg, err := o.loader.LoadConfig()
	if err != nil {
		return err
	}
	o.cfg = cfg
	return nil
}

// initialize runs every stage between ConfigLoaded and ProtocolEnginesReady.
func (o *Orchestrator) initialize() error {
	if err := o.initBaseDir(); err != nil {
		return err
	}

	t := time.Now()
	if err := o.initCategory(engine.CategoryStorage, o.cfg.StorageEngines); err != nil {
		return err
	}
	o.logCategory(engine.CategoryStorage, t)

	t = time.Now()
	if err := o.initCategory(engine.CategoryTransaction, o.cfg.TransactionEngines); err != nil {
		return err
	}
	o.logCategory(engine.CategoryTransaction, t)

	t = time.Now()
	if err := o.initCategory(engine.CategoryQuery, o.cfg.SQLEngines); err != nil {
		return err
	}
	o.logCategory(engine.CategoryQuery, t)

	if err := o.bootstrapDatabase(); err != nil {
		return err
	}

	t = time.Now()
	if err := o.initCategory(engine.CategoryProtocol, o.cfg.ProtocolServerEngines); err != nil {
		return err
	}
	o.logCategory(engine.CategoryProtocol, t)

	return nil
}

func (o *Orchestrator) initBaseDir() error {
	if o.cfg.BaseDir == "" {
		return config.Errorf(nil, "base_dir must be specified and not empty")
	}
	o.propStore.SetBaseDir(o.cfg.BaseDir)

	o.logger.Info("base dir", "path", o.cfg.BaseDir)
	return nil
}

// initCategory resolves and initializes every enabled descriptor of one
// category, in declared order. Disabled descriptors never reach the registry.
func (o *Orchestrator) initCategory(cat engine.Category, defs []config.EngineDef) error {
	reg := o.registries[cat]

	for i := range defs {
		def := &defs[i]
		if !def.Enabled {
			continue
		}
		if strings.TrimSpace(def.Name) == "" {
			return config.Errorf(nil, "%s engine name is missing", cat)
		}

		e, err := o.resolver.Resolve(reg, cat, def.Name)
		if err != nil {
			return fmt.Errorf("%s engine %q cannot be resolved: %w", cat, def.Name, err)
		}

		o.propStore.SetDefaultEngine(string(cat), e.Name())

		if cat == engine.CategoryProtocol && o.cfg.ListenAddress != "" {
			def.SetDefault("host", o.cfg.ListenAddress)
		}
		def.SetDefault("base_dir", o.cfg.BaseDir)

		// A descriptor repeating an already-initialized name reuses the live
		// engine; it is not re-initialized.
		if o.initialized[cat][e.Name()] {
			continue
		}
		if err := e.Init(def.Parameters); err != nil {
			return fmt.Errorf("init %s engine %q: %w", cat, e.Name(), err)
		}
		o.initialized[cat][e.Name()] = true
		engineInitTotal.WithLabelValues(string(cat)).Inc()
	}
	return nil
}

// bootstrapDatabase triggers the system database's lazy initialization and,
// when the clustering protocol engine is enabled, initializes the cluster
// metadata over the internal connection. The metadata depends on the catalog,
// which is why this stage precedes protocol engine initialization.
func (o *Orchestrator) bootstrapDatabase() error {
	o.database = db.Open(o.cfg.BaseDir, o.logger)

	t := time.Now()
	if err := o.database.Bootstrap(); err != nil {
		return fmt.Errorf("bootstrap system database: %w", err)
	}
	o.logger.Info("init lune database", "duration_ms", time.Since(t).Milliseconds())

	if o.clusteringEnabled() {
		if err := cluster.InitMetadata(o.database.InternalConn()); err != nil {
			return err
		}
		o.logger.Info("cluster metadata initialized")
	}
	return nil
}

func (o *Orchestrator) clusteringEnabled() bool {
	for _, def := range o.cfg.ProtocolServerEngines {
		if def.Enabled && strings.EqualFold(def.Name, o.ClusterEngineName) {
			return true
		}
	}
	return false
}

// startProtocolServers starts every enabled, initialized protocol server and
// registers its stop action with the shutdown coordinator.
func (o *Orchestrator) startProtocolServers() error {
	reg := o.registries[engine.CategoryProtocol]

	for _, def := range o.cfg.ProtocolServerEngines {
		if !def.Enabled {
			continue
		}

		e, ok := reg.Get(def.Name)
		if !ok {
			return fmt.Errorf("protocol server engine %q is not registered", def.Name)
		}
		se, ok := e.(server.Engine)
		if !ok {
			return fmt.Errorf("engine %q does not provide a protocol server", def.Name)
		}

		ps := se.ProtocolServer()
		ps.SetEncryptionOptions(o.cfg.ServerEncryptionOptions)
		if err := ps.Start(); err != nil {
			return fmt.Errorf("start protocol server %q: %w", ps.Name(), err)
		}
		o.servers = append(o.servers, ps)

		name := ps.Name()
		o.coordinator.Register(name, func() {
			if err := ps.Stop(); err != nil {
				o.logger.Error("protocol server stop failed", "name", name, "error", err)
			}
			o.logger.Info("protocol server stopped", "name", name)
		})

		o.logger.Info("protocol server started", "name", name, "host", ps.Host(), "port", ps.Port())
	}
	return nil
}

func (o *Orchestrator) logCategory(cat engine.Category, since time.Time) {
	d := time.Since(since)
	categoryInitDuration.WithLabelValues(string(cat)).Set(d.Seconds())
	o.logger.Info("init engines", "category", string(cat), "duration_ms", d.Milliseconds())
}

// Registry returns the live registry for a category.
func (o *Orchestrator) Registry(cat engine.Category) *engine.Registry {
	return o.registries[cat]
}

// Props returns the process property store.
func (o *Orchestrator) Props() *props.Store { return o.propStore }

// Servers returns the started protocol servers, in start order.
func (o *Orchestrator) Servers() []server.ProtocolServer { return o.servers }

// Database returns the system database handle, nil before its stage runs.
func (o *Orchestrator) Database() *db.Database { return o.database }

// Config returns the loaded configuration, nil before ConfigLoaded.
func (o *Orchestrator) Config() *config.Config { return o.cfg }
