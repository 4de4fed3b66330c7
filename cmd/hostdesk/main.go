package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/kirychukyurii/hostdesk/internal/api"
	"github.com/kirychukyurii/hostdesk/internal/cache"
	"github.com/kirychukyurii/hostdesk/internal/config"
	"github.com/kirychukyurii/hostdesk/internal/logger"
	"github.com/kirychukyurii/hostdesk/internal/model"
	"github.com/kirychukyurii/hostdesk/internal/repository"
	"github.com/kirychukyurii/hostdesk/internal/seed"
	"github.com/kirychukyurii/hostdesk/internal/service"
	"github.com/kirychukyurii/hostdesk/internal/syncer"
	"github.com/kirychukyurii/hostdesk/pkg/httpserver"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "config.yaml", "path to configuration file")
	flag.Parse()

	// Environment overrides may come from a .env file
	envErr := godotenv.Load()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.New("info", "json").Error("failed to load configuration",
			"error", err.Error(),
		)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	if envErr != nil {
		log.Debug("no .env file loaded", "error", envErr.Error())
	}

	log.Info("configuration loaded",
		"storage", cfg.Storage.Driver,
		"clusters", len(cfg.Clusters),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Open store
	store, err := repository.NewStore(cfg.Storage, log)
	if err != nil {
		log.Error("failed to open store",
			"driver", cfg.Storage.Driver,
			"error", err.Error(),
		)
		os.Exit(1)
	}
	defer store.Close()

	if cfg.Seed.Enabled {
		if err := seedIfEmpty(ctx, store, cfg.Seed); err != nil {
			log.Error("failed to seed store",
				"error", err.Error(),
			)
			os.Exit(1)
		}
	}

	opts := []service.Option{}
	if len(cfg.Clusters) > 0 {
		nodes, err := repository.NewNomadSource(cfg, log)
		if err != nil {
			log.Error("failed to create nomad clients",
				"error", err.Error(),
			)
			os.Exit(1)
		}
		opts = append(opts, service.WithNodeSource(nodes))

		log.Info("nomad clients initialized",
			"clusters", len(nodes.ClusterNames()),
		)
	}

	// Create service
	svc := service.NewInventoryService(
		store,
		cache.New[model.DashboardStats](cfg.Cache.TTL),
		cfg.Query,
		log,
		opts...,
	)

	// Periodic sync needs a node source
	syncCfg := cfg.Sync
	syncCfg.Enabled = syncCfg.Enabled && len(cfg.Clusters) > 0
	inventorySyncer := syncer.New(syncCfg, svc, log)
	inventorySyncer.Start(ctx)

	// Create HTTP handler
	handler := api.NewHandler(svc, cfg.Server.BasePath, cfg.Server.RequestTimeout, log)

	// Create HTTP server
	srv := httpserver.New(
		cfg.Server.Addr,
		handler.Router(),
		cfg.Server.ReadTimeout,
		cfg.Server.WriteTimeout,
		cfg.Server.ShutdownTimeout,
		log,
	)

	log.Info("starting hostdesk service")

	if err := srv.Run(ctx); err != nil {
		log.Error("server error",
			"error", err.Error(),
		)
	}

	log.Info("shutting down inventory syncer")
	stop()
	inventorySyncer.Stop()

	log.Info("shutdown complete")
}

// seedIfEmpty loads the generated demo dataset into a store without hosts,
// so persistent backends keep their data across restarts
func seedIfEmpty(ctx context.Context, store repository.Store, cfg config.SeedConfig) error {
	hosts, err := store.ListHosts(ctx)
	if err != nil {
		return err
	}
	if len(hosts) > 0 {
		return nil
	}
	return store.Load(ctx, seed.Generate(seed.Options{Hosts: cfg.Hosts, Seed: cfg.Seed}))
}
