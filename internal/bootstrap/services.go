package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/target/harvester/config"
	"github.com/target/harvester/internal/core"
	"github.com/target/harvester/internal/data"
	"github.com/target/harvester/internal/domain/ingest"
	httpx "github.com/target/harvester/internal/http"
	"github.com/target/harvester/internal/observability/statsd"
	"github.com/target/harvester/internal/service"
)

// ServiceContainer holds all application services.
type ServiceContainer struct {
	Jobs     *service.JobService
	Sources  *service.SourceService
	Dispatch *service.DispatchService
	Catalog  *service.CatalogService
	Ingest   *service.IngestService

	// MetricsSink is nil when metrics are disabled.
	MetricsSink statsd.Sink
	// Browser is nil when this process renders no pages.
	Browser *ingest.Browser
	Health  map[string]httpx.HealthCheck
}

// Close releases process-wide resources held by the container.
func (c ServiceContainer) Close() {
	if c.Jobs != nil {
		c.Jobs.Stop()
	}
	if c.Browser != nil {
		c.Browser.Close()
	}
	if closer, ok := c.MetricsSink.(interface{ Close() error }); ok {
		_ = closer.Close()
	}
}

// ServiceDeps groups dependencies for service initialization.
type ServiceDeps struct {
	Config      *config.AppConfig
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

// serviceRepositories groups data adapters backing service ports.
type serviceRepositories struct {
	Jobs     *data.JobRepo
	Sources  *data.SourceRepo
	Postings *data.PostingRepo
	RunLogs  *data.RunLogRepo
	Store    *data.IngestStore
	Seen     *data.SeenHashCache
}

// buildRepositories builds repositories backing service ports; no business rules here.
func buildRepositories(db *sql.DB, rdb redis.UniversalClient, cache config.CacheConfig) *serviceRepositories {
	repos := &serviceRepositories{
		Jobs:     data.NewJobRepo(db, data.RepoConfig{}),
		Sources:  data.NewSourceRepo(db),
		Postings: data.NewPostingRepo(db),
		RunLogs:  data.NewRunLogRepo(db),
		Store:    data.NewIngestStore(db),
	}
	if rdb != nil {
		repos.Seen = data.NewSeenHashCache(rdb, cache.SeenHashTTL)
	}
	return repos
}

// buildMetricsSink returns nil when metrics are disabled or the client cannot start.
//
//nolint:ireturn // callers only need the Sink surface.
func buildMetricsSink(logger *slog.Logger, cfg config.ObservabilityMetricsConfig) statsd.Sink {
	if !cfg.IsEnabled() {
		return nil
	}
	client, err := statsd.NewClient(statsd.Config{
		Enabled: true,
		Address: cfg.StatsdAddress,
		Prefix:  cfg.Prefix,
		Logger:  logger,
	})
	if err != nil {
		logger.Error("failed to initialise statsd client", "error", err)
		return nil
	}
	return client
}

// buildBrowser launches the shared headless browser. A launch failure is logged and
// the process continues without a renderer, so API sources keep working.
func buildBrowser(cfg *config.AppConfig, logger *slog.Logger) *ingest.Browser {
	if !cfg.NeedsBrowser() {
		return nil
	}
	browser, err := ingest.NewBrowser(ingest.BrowserOptions{
		ExecPath:    cfg.Browser.ExecPath,
		Headless:    cfg.Browser.Headless,
		MaxTabs:     cfg.Browser.MaxTabs,
		SettleDelay: cfg.Browser.SettleDelay,
		UserAgent:   cfg.Ingest.UserAgent,
		Logger:      logger,
	})
	if err != nil {
		logger.Warn("browser unavailable; browser sources will fail", "error", err)
		return nil
	}
	return browser
}

func buildIngestDeps(cfg config.IngestConfig, browser *ingest.Browser) ingest.Deps {
	deps := ingest.Deps{
		HTTPClient:       &http.Client{Timeout: cfg.FetchTimeout},
		UserAgent:        cfg.UserAgent,
		MaxResponseBytes: cfg.MaxResponseBytes,
	}
	// Guard against a typed-nil renderer.
	if browser != nil {
		deps.Renderer = browser
	}
	return deps
}

func buildHealthChecks(db *sql.DB, seen *data.SeenHashCache) map[string]httpx.HealthCheck {
	checks := map[string]httpx.HealthCheck{}
	if db != nil {
		checks["postgres"] = db.PingContext
	}
	if seen != nil {
		checks["redis"] = seen.Health
	}
	return checks
}

// NewServices wires repositories, domain services and shared infrastructure.
func NewServices(deps *ServiceDeps) (ServiceContainer, error) {
	if deps == nil || deps.Config == nil || deps.DB == nil {
		return ServiceContainer{}, errors.New("config and database are required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := deps.Config

	repos := buildRepositories(deps.DB, deps.RedisClient, cfg.Cache)
	metricsSink := buildMetricsSink(logger, cfg.Observability.Metrics)

	jobs, err := service.NewJobService(service.JobServiceOptions{
		Repo:         repos.Jobs,
		DefaultLease: cfg.IngestRunner.JobLease,
		Logger:       logger,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("create job service: %w", err)
	}

	dispatch, err := service.NewDispatchService(service.DispatchServiceOptions{
		Sources:    repos.Sources,
		Jobs:       repos.Jobs,
		History:    repos.Jobs,
		MaxRetries: cfg.IngestRunner.MaxRetries,
		Logger:     logger,
	})
	if err != nil {
		jobs.Stop()
		return ServiceContainer{}, fmt.Errorf("create dispatch service: %w", err)
	}

	catalog, err := service.NewCatalogService(service.CatalogServiceOptions{
		Postings: repos.Postings,
		RunLogs:  repos.RunLogs,
		Sources:  repos.Sources,
		Logger:   logger,
	})
	if err != nil {
		jobs.Stop()
		return ServiceContainer{}, fmt.Errorf("create catalog service: %w", err)
	}

	browser := buildBrowser(cfg, logger)

	var seen core.SeenHashCache
	if repos.Seen != nil {
		seen = repos.Seen
	}
	ingestSvc, err := service.NewIngestService(service.IngestServiceOptions{
		Sources:      repos.Sources,
		Store:        repos.Store,
		RunLogs:      repos.RunLogs,
		SeenCache:    seen,
		Deps:         buildIngestDeps(cfg.Ingest, browser),
		FetchTimeout: cfg.Ingest.FetchTimeout,
		Logger:       logger,
		Metrics:      metricsSink,
	})
	if err != nil {
		jobs.Stop()
		if browser != nil {
			browser.Close()
		}
		return ServiceContainer{}, fmt.Errorf("create ingest service: %w", err)
	}

	return ServiceContainer{
		Jobs:        jobs,
		Sources:     service.NewSourceService(service.SourceServiceOptions{SourceRepo: repos.Sources, Logger: logger}),
		Dispatch:    dispatch,
		Catalog:     catalog,
		Ingest:      ingestSvc,
		MetricsSink: metricsSink,
		Browser:     browser,
		Health:      buildHealthChecks(deps.DB, repos.Seen),
	}, nil
}

// ServiceOrchestrationConfig contains configuration for service orchestration.
type ServiceOrchestrationConfig struct {
	Config      *config.AppConfig
	Services    ServiceContainer
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

const (
	// shutdownWaitTimeout is the maximum time to wait for services to stop gracefully.
	shutdownWaitTimeout = 15 * time.Second
)

// serviceStartupDeps groups dependencies for service startup.
type serviceStartupDeps struct {
	ctx             context.Context
	cfg             *ServiceOrchestrationConfig
	logger          *slog.Logger
	enabledServices map[config.ServiceMode]bool
	errCh           chan error
}

// backgroundService describes a startable background component.
type backgroundService struct {
	mode  config.ServiceMode
	name  string
	start func(context.Context) error
}

// backgroundServiceHandle tracks a running background service.
type backgroundServiceHandle struct {
	mode config.ServiceMode
	name string
	done <-chan struct{}
}

func startHTTPServerIfEnabled(deps *serviceStartupDeps) *http.Server {
	if deps == nil || deps.cfg == nil || !deps.enabledServices[config.ServiceModeHTTP] {
		return nil
	}
	return StartHTTPServer(&HTTPServerConfig{
		Config:   deps.cfg.Config,
		Services: deps.cfg.Services,
		Logger:   deps.logger,
		ErrCh:    deps.errCh,
	})
}

func launchBackground(ctx context.Context, deps *serviceStartupDeps, descriptor backgroundService) <-chan struct{} {
	if deps == nil || !deps.enabledServices[descriptor.mode] {
		return nil
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := descriptor.start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errMsg := fmt.Errorf("%s failed: %w", descriptor.name, err)
			select {
			case deps.errCh <- errMsg:
			case <-ctx.Done():
			default:
				deps.logger.WarnContext(ctx, "dropping background service error",
					"service", descriptor.name, "error", errMsg)
			}
		}
	}()

	deps.logger.InfoContext(ctx, "background service started", "service", descriptor.name, "mode", descriptor.mode)
	return done
}

func startBackgroundServices(deps *serviceStartupDeps, services []backgroundService) []backgroundServiceHandle {
	if deps == nil {
		return nil
	}
	handles := make([]backgroundServiceHandle, 0, len(services))
	for _, svc := range services {
		done := launchBackground(deps.ctx, deps, svc)
		if done == nil {
			continue
		}
		handles = append(handles, backgroundServiceHandle{mode: svc.mode, name: svc.name, done: done})
	}
	return handles
}

func newSchedulerBackgroundService(deps *serviceStartupDeps) backgroundService {
	return backgroundService{
		mode: config.ServiceModeScheduler,
		name: "scheduler",
		start: func(ctx context.Context) error {
			return RunScheduler(ctx, SchedulerConfig{
				DB:      deps.cfg.DB,
				Logger:  deps.logger,
				Config:  deps.cfg.Config.Scheduler,
				Metrics: deps.cfg.Services.MetricsSink,
			})
		},
	}
}

func newReaperBackgroundService(deps *serviceStartupDeps) backgroundService {
	return backgroundService{
		mode: config.ServiceModeReaper,
		name: "reaper",
		start: func(ctx context.Context) error {
			return RunReaper(ctx, ReaperConfig{
				DB:      deps.cfg.DB,
				Logger:  deps.logger,
				Config:  deps.cfg.Config.Reaper,
				Metrics: deps.cfg.Services.MetricsSink,
			})
		},
	}
}

func newIngestRunnerBackgroundService(deps *serviceStartupDeps) backgroundService {
	return backgroundService{
		mode: config.ServiceModeIngestRunner,
		name: "ingest runner",
		start: func(ctx context.Context) error {
			return RunIngestRunner(ctx, IngestRunnerConfig{
				Jobs:    deps.cfg.Services.Jobs,
				Ingest:  deps.cfg.Services.Ingest,
				Logger:  deps.logger,
				Config:  deps.cfg.Config.IngestRunner,
				Metrics: deps.cfg.Services.MetricsSink,
			})
		},
	}
}

func buildBackgroundServices(deps *serviceStartupDeps) []backgroundService {
	if deps == nil {
		return nil
	}
	return []backgroundService{
		newSchedulerBackgroundService(deps),
		newReaperBackgroundService(deps),
		newIngestRunnerBackgroundService(deps),
	}
}

// ServiceStartupResult holds the results of starting all services.
type ServiceStartupResult struct {
	HTTPServer *http.Server
	Background []backgroundServiceHandle
}

func startServices(deps *serviceStartupDeps) ServiceStartupResult {
	return ServiceStartupResult{
		HTTPServer: startHTTPServerIfEnabled(deps),
		Background: startBackgroundServices(deps, buildBackgroundServices(deps)),
	}
}

// RunServicesWithShutdown starts every enabled service and blocks until SIGINT,
// SIGTERM or the first service failure.
func RunServicesWithShutdown(cfg *ServiceOrchestrationConfig) error {
	if cfg == nil {
		return errors.New("service orchestration config is required")
	}
	if cfg.Config == nil {
		return errors.New("service orchestration config missing AppConfig")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	serviceCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	enabledServices, err := cfg.Config.GetEnabledServices()
	if err != nil {
		return fmt.Errorf("determine enabled services: %w", err)
	}
	errCh := make(chan error, errorChannelBufferSize(enabledServices))

	result := startServices(&serviceStartupDeps{
		ctx:             serviceCtx,
		cfg:             cfg,
		logger:          logger,
		enabledServices: enabledServices,
		errCh:           errCh,
	})

	return waitForShutdown(shutdownConfig{
		cancel:      cancel,
		errCh:       errCh,
		httpServer:  result.HTTPServer,
		jobService:  cfg.Services.Jobs,
		logger:      logger,
		backgrounds: result.Background,
	})
}

func errorChannelCapacity(enabled map[config.ServiceMode]bool) int {
	count := 0
	for _, mode := range config.ValidServiceModes() {
		if enabled[mode] {
			count++
		}
	}
	return count
}

func errorChannelBufferSize(enabled map[config.ServiceMode]bool) int {
	return errorChannelCapacity(enabled) + 1
}

// shutdownConfig contains dependencies for graceful shutdown.
type shutdownConfig struct {
	cancel      context.CancelFunc
	errCh       <-chan error
	httpServer  *http.Server
	jobService  *service.JobService
	logger      *slog.Logger
	backgrounds []backgroundServiceHandle
}

func waitForShutdown(cfg shutdownConfig) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case <-quit:
		cfg.logger.Info("shutting down services...")
		cfg.cancel()
		return gracefulStop(cfg)
	case err := <-cfg.errCh:
		cfg.logger.Error("service error", "error", err)
		cfg.cancel()
		if stopErr := gracefulStop(cfg); stopErr != nil {
			cfg.logger.Error("graceful stop failed", "error", stopErr)
		}
		return err
	}
}

// gracefulStop drains the HTTP server and waits for background loops. The service
// context is already cancelled here, so shutdown gets a fresh deadline.
func gracefulStop(cfg shutdownConfig) error {
	if cfg.httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownWaitTimeout)
		defer cancel()

		if err := ShutdownHTTPServer(ShutdownConfig{
			Context:    shutdownCtx,
			Server:     cfg.httpServer,
			JobService: cfg.jobService,
			Logger:     cfg.logger,
		}); err != nil {
			return err
		}
	}

	for _, svc := range cfg.backgrounds {
		waitForService(svc.done, svc.name, cfg.logger)
	}
	return nil
}

func waitForService(done <-chan struct{}, name string, logger *slog.Logger) {
	if done == nil {
		return
	}
	select {
	case <-done:
		logger.Info(name + " stopped")
	case <-time.After(shutdownWaitTimeout):
		logger.Warn("timeout waiting for " + name + " to stop")
	}
}
