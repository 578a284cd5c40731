// Package app wires configuration, storage, clients, and services into the
// shared core used by cmd/rrs-server.
package app

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rezilient/restore-request-service/internal/clients/acp"
	"github.com/rezilient/restore-request-service/internal/common"
	"github.com/rezilient/restore-request-service/internal/interfaces"
	"github.com/rezilient/restore-request-service/internal/metrics"
	"github.com/rezilient/restore-request-service/internal/server"
	"github.com/rezilient/restore-request-service/internal/services/job"
	"github.com/rezilient/restore-request-service/internal/services/plan"
	"github.com/rezilient/restore-request-service/internal/services/registry"
	"github.com/rezilient/restore-request-service/internal/storage"
)

// App holds all initialized services and configuration. No global mutable
// state: everything is constructed here and passed by value.
type App struct {
	Config      *common.Config
	Logger      *common.Logger
	Storage     interfaces.StorageManager
	Resolver    interfaces.SourceMappingResolver
	PlanService interfaces.PlanService
	JobService  interfaces.JobService
	Server      *server.Server
	Metrics     *metrics.Collector
	StartupTime time.Time
}

// getBinaryDir returns the directory containing the executable.
func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// NewApp initializes config, logging, storage, the ACP resolver, and the
// plan/job services. configPath may be empty, in which case the default
// resolution logic is used.
func NewApp(configPath string) (*App, error) {
	startupStart := time.Now()

	common.LoadVersionFromFile()
	binDir := getBinaryDir()

	if configPath == "" {
		configPath = os.Getenv("RRS_CONFIG")
	}
	if configPath == "" {
		configPath = filepath.Join(binDir, "rrs-service.toml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = "config/rrs-service.toml"
		}
	}

	config, err := common.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if config.Storage.Path != "" && !filepath.IsAbs(config.Storage.Path) && config.Storage.Backend == common.StorageBackendSQLite {
		config.Storage.Path = filepath.Join(binDir, config.Storage.Path)
	}

	logger := common.NewLoggerFromConfig(config.Logging)

	storageManager, err := storage.NewManager(logger, config)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	resolver := buildResolver(config, logger)
	validator := registry.NewValidator(resolver, config.Auth.ServiceScope, logger)

	planService := plan.NewService(storageManager.PlanStateStore(), storageManager.RestoreIndex(), validator, logger)
	jobService := job.NewService(storageManager.JobStateStore(), storageManager.PlanStateStore(), validator, config.Executor, logger)

	collector := metrics.NewCollector()
	authenticator := server.NewAuthenticator(config.Auth)
	srv := server.NewServer(config, logger, authenticator, planService, jobService, collector)

	return &App{
		Config:      config,
		Logger:      logger,
		Storage:     storageManager,
		Resolver:    resolver,
		PlanService: planService,
		JobService:  jobService,
		Server:      srv,
		Metrics:     collector,
		StartupTime: startupStart,
	}, nil
}

// buildResolver constructs the configured ACP resolver behind the TTL cache.
func buildResolver(config *common.Config, logger *common.Logger) interfaces.SourceMappingResolver {
	var inner interfaces.SourceMappingResolver
	if config.ACP.Mode == common.ACPModeExternal {
		inner = acp.NewClient(config.ACP.BaseURL, config.ACP.InternalToken,
			acp.WithLogger(logger),
			acp.WithTimeout(config.ACP.GetTimeout()),
			acp.WithRateLimit(config.ACP.RateLimit),
		)
	} else {
		inner = registry.NewLocalResolver(config.ACP.Mappings)
	}
	return registry.NewCachingResolver(inner, config.ACP.GetPositiveTTL(), config.ACP.GetNegativeTTL())
}

// Close releases storage resources.
func (a *App) Close() {
	if err := a.Storage.Close(); err != nil {
		a.Logger.Warn().Err(err).Msg("Storage close failed")
	}
}
