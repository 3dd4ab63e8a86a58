package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/harun/switchboard/internal/config"
	"github.com/harun/switchboard/internal/logger"
	"github.com/harun/switchboard/pkg/checkpoint"
	"github.com/harun/switchboard/pkg/directory"
	"github.com/harun/switchboard/pkg/policy"
	"github.com/harun/switchboard/pkg/router"
	"github.com/harun/switchboard/pkg/shop"
	"github.com/rs/zerolog"
)

// runtime bundles everything a command needs to serve turns
type runtime struct {
	cfg         *config.Config
	log         *logger.Logger
	directory   *directory.Store
	checkpoints *checkpoint.Store
	shopStore   *shop.Store
	engine      *router.Engine
	sweeper     *router.Sweeper
	watcher     *shop.CatalogWatcher
}

func nopLogger() zerolog.Logger {
	return zerolog.Nop()
}

// loadConfigUnvalidated loads the effective configuration without checking
// the provider section. Storage-only commands use it.
func loadConfigUnvalidated() (*config.Config, error) {
	cfg, err := config.NewLoader(cfgFile).Load()
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	return cfg, nil
}

// loadConfig loads and validates the effective configuration
func loadConfig() (*config.Config, error) {
	cfg, err := loadConfigUnvalidated()
	if err != nil {
		return nil, err
	}
	if err := config.NewValidator().Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// newRuntime wires stores, policy modules, and the engine from config
func newRuntime(cfg *config.Config) (*runtime, error) {
	log, err := logger.New(logger.Config{
		Level:   cfg.Logging.Level,
		File:    cfg.Logging.File,
		Console: cfg.Logging.Console,
		Pretty:  cfg.Logging.Pretty,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	zl := log.GetZerolog()

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dirStore, err := directory.Open(cfg.Router.DirectoryPath, zl)
	if err != nil {
		return nil, fmt.Errorf("failed to open session directory: %w", err)
	}

	cpStore, err := checkpoint.Open(cfg.Router.CheckpointPath, zl)
	if err != nil {
		dirStore.Close()
		return nil, fmt.Errorf("failed to open checkpoint store: %w", err)
	}

	var embedder shop.EmbeddingProvider
	if cfg.Provider.APIKey != "" && cfg.Provider.EmbeddingModel != "" {
		embedder = shop.NewOpenAIEmbedder(cfg.Provider.APIKey, cfg.Provider.EmbeddingModel)
	}

	shopStore, err := shop.OpenStore(shop.StoreConfig{
		DBPath:   cfg.Shop.DBPath,
		Embedder: embedder,
		Logger:   zl,
	})
	if err != nil {
		cpStore.Close()
		dirStore.Close()
		return nil, fmt.Errorf("failed to open shop store: %w", err)
	}

	modules, err := buildModules(cfg, shopStore, zl)
	if err != nil {
		shopStore.Close()
		cpStore.Close()
		dirStore.Close()
		return nil, err
	}

	engine, err := router.NewEngine(router.EngineConfig{
		Directory:   dirStore,
		Checkpoints: cpStore,
		Modules:     modules,
		MaxHandoffs: cfg.Router.MaxHandoffs,
		Logger:      zl,
	})
	if err != nil {
		shopStore.Close()
		cpStore.Close()
		dirStore.Close()
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}

	return &runtime{
		cfg:         cfg,
		log:         log,
		directory:   dirStore,
		checkpoints: cpStore,
		shopStore:   shopStore,
		engine:      engine,
	}, nil
}

// buildModules creates one LLM policy module per agent role
func buildModules(cfg *config.Config, store *shop.Store, zl zerolog.Logger) ([]policy.Module, error) {
	provider, err := policy.NewProvider(cfg.Provider.Name, cfg.Provider.APIKey)
	if err != nil {
		return nil, err
	}

	tools := shop.NewTools(store, zl)

	roleCaps := map[string][]policy.Capability{
		policy.RoleTriage:  nil,
		policy.RoleProduct: tools.ProductCapabilities(),
		policy.RoleSales:   tools.SalesCapabilities(),
		policy.RoleRefunds: tools.RefundsCapabilities(),
	}

	var modules []policy.Module
	for _, role := range []string{policy.RoleTriage, policy.RoleProduct, policy.RoleSales, policy.RoleRefunds} {
		caps, err := policy.NewCapabilitySet(zl, roleCaps[role]...)
		if err != nil {
			return nil, fmt.Errorf("failed to build capabilities for %s: %w", role, err)
		}

		mod, err := policy.NewLLMModule(policy.ModuleConfig{
			Role:         role,
			Transfers:    policy.DefaultTransfers[role],
			Capabilities: caps,
			Provider:     provider,
			Model:        cfg.Provider.Model,
			Temperature:  cfg.Provider.Temperature,
			MaxTokens:    cfg.Provider.MaxTokens,
			Logger:       zl,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to build %s module: %w", role, err)
		}
		modules = append(modules, mod)
	}

	return modules, nil
}

// startBackground starts the retention sweeper and catalog watcher when
// configured.
func (rt *runtime) startBackground() error {
	zl := rt.log.GetZerolog()

	if rt.cfg.Router.Retention.Enabled {
		sweeper, err := router.NewSweeper(
			rt.checkpoints,
			rt.cfg.Router.Retention.Schedule,
			time.Duration(rt.cfg.Router.Retention.MaxAgeHours)*time.Hour,
			zl,
		)
		if err != nil {
			return fmt.Errorf("failed to create retention sweeper: %w", err)
		}
		sweeper.Start()
		rt.sweeper = sweeper
	}

	if rt.cfg.Shop.Watch && rt.cfg.Shop.CatalogPath != "" {
		watcher, err := shop.NewCatalogWatcher(rt.shopStore, rt.cfg.Shop.CatalogPath, zl)
		if err != nil {
			return fmt.Errorf("failed to create catalog watcher: %w", err)
		}
		rt.watcher = watcher
	}

	return nil
}

// seedCatalog loads the configured catalog file if present
func (rt *runtime) seedCatalog(ctx context.Context) error {
	if rt.cfg.Shop.CatalogPath == "" {
		return nil
	}
	if _, err := os.Stat(rt.cfg.Shop.CatalogPath); os.IsNotExist(err) {
		rt.log.Warn().Str("path", rt.cfg.Shop.CatalogPath).Msg("Catalog file not found, skipping seed")
		return nil
	}
	return rt.shopStore.Seed(ctx, rt.cfg.Shop.CatalogPath)
}

// close shuts the runtime down in reverse dependency order
func (rt *runtime) close() {
	if rt.watcher != nil {
		rt.watcher.Stop()
	}
	if rt.sweeper != nil {
		rt.sweeper.Stop()
	}
	rt.shopStore.Close()
	rt.checkpoints.Close()
	rt.directory.Close()
	rt.log.Close()
}
