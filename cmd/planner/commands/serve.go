package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hte-labs/hte-planner/internal/app/generate"
	"github.com/hte-labs/hte-planner/internal/httpapi"
	"github.com/hte-labs/hte-planner/internal/jobs"
	metricsprometheus "github.com/hte-labs/hte-planner/internal/metrics/prometheus"
	"github.com/hte-labs/hte-planner/internal/storage"
	"github.com/hte-labs/hte-planner/internal/storage/sqlite"
)

type ServeCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	configFile   string
	listenAddr   string
	corsOrigins  []string
	llm          llmFlags
	jobTimeout   time.Duration
	gracePeriod  time.Duration
	keepalive    time.Duration
	drainTimeout time.Duration
	noDB         bool
}

// NewServeCommand returns the serve command.
func NewServeCommand(rootCmd *RootCommand, app *kingpin.Application) *ServeCommand {
	c := &ServeCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("serve", "Run the plan generation HTTP API.")
	c.Cmd.Flag("config", "YAML configuration file, flags override its values. Default: config.yaml in the data directory if present.").Short('c').StringVar(&c.configFile)
	c.Cmd.Flag("listen-address", "HTTP API listen address.").StringVar(&c.listenAddr)
	c.Cmd.Flag("cors-origin", "CORS allowed origin (repeatable), `*` allows any.").StringsVar(&c.corsOrigins)
	c.llm.register(c.Cmd)
	c.Cmd.Flag("job-timeout", "Maximum duration of a plan generation.").DurationVar(&c.jobTimeout)
	c.Cmd.Flag("grace-period", "Time a finished job stays attachable.").DurationVar(&c.gracePeriod)
	c.Cmd.Flag("keepalive", "Stream keepalive interval.").DurationVar(&c.keepalive)
	c.Cmd.Flag("drain-timeout", "Time waiting for running jobs on shutdown.").Default("30s").DurationVar(&c.drainTimeout)
	c.Cmd.Flag("no-db", "Don't store the generated plans.").BoolVar(&c.noDB)

	return c
}

func (c ServeCommand) Name() string { return c.Cmd.FullCommand() }

func (c ServeCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	cfg, err := loadConfig(ctx, c.configFile, c.rootCmd.DataDir)
	if err != nil {
		return err
	}
	if c.listenAddr != "" {
		cfg.Server.ListenAddr = c.listenAddr
	}
	if len(c.corsOrigins) > 0 {
		cfg.Server.AllowedOrigins = c.corsOrigins
	}
	c.llm.apply(&cfg.LLM)
	if c.jobTimeout != 0 {
		cfg.Jobs.Timeout = c.jobTimeout
	}
	if c.gracePeriod != 0 {
		cfg.Jobs.GracePeriod = c.gracePeriod
	}
	if c.keepalive != 0 {
		cfg.Jobs.KeepaliveInterval = c.keepalive
	}
	if c.noDB {
		cfg.Storage.Disabled = true
	}
	if cfg.Storage.DBPath == "" {
		cfg.Storage.DBPath = c.rootCmd.DBPath
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// Metrics.
	promReg := prometheus.NewRegistry()
	promReg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	recorder := metricsprometheus.NewRecorder(promReg)

	// Initialize storage (SQLite).
	var repo storage.PlanRepository
	if !cfg.Storage.Disabled {
		sqliteRepo, err := sqlite.NewRepository(ctx, sqlite.RepositoryConfig{
			DBPath: cfg.Storage.DBPath,
			Logger: logger,
		})
		if err != nil {
			return fmt.Errorf("could not create repository: %w", err)
		}
		defer sqliteRepo.Close()
		repo = sqliteRepo
	} else {
		logger.Warningf("Storage disabled, generated plans will not be stored")
	}

	gen, err := newGenerator(cfg.LLM, c.llm.fakeLatency, recorder, logger)
	if err != nil {
		return err
	}

	svc, err := generate.NewService(generate.ServiceConfig{
		Generator:       gen,
		Repository:      repo,
		Timeout:         cfg.Jobs.Timeout,
		MaxOutputTokens: cfg.LLM.MaxOutputTokens,
		MetricsRecorder: recorder,
		Logger:          logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	registry, err := jobs.NewRegistry(jobs.RegistryConfig{
		Runner:            svc,
		GracePeriod:       cfg.Jobs.GracePeriod,
		KeepaliveInterval: cfg.Jobs.KeepaliveInterval,
		MetricsRecorder:   recorder,
		Logger:            logger,
	})
	if err != nil {
		return fmt.Errorf("could not create job registry: %w", err)
	}

	server, err := httpapi.NewServer(httpapi.ServerConfig{
		ListenAddr:     cfg.Server.ListenAddr,
		Registry:       registry,
		Repository:     repo,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		MetricsHandler: promhttp.HandlerFor(promReg, promhttp.HandlerOpts{}),
		Logger:         logger,
	})
	if err != nil {
		return fmt.Errorf("could not create api server: %w", err)
	}

	logger.Infof("Using %s llm provider with model %s", cfg.LLM.Provider, cfg.LLM.Model)
	serveErr := server.Run(ctx)

	// Jobs can't be cancelled, wait for them to finish.
	drainCtx, cancel := context.WithTimeout(context.Background(), c.drainTimeout)
	defer cancel()
	if err := registry.Wait(drainCtx); err != nil {
		stats := registry.Stats()
		logger.Warningf("Shutdown with %d jobs still running: %s", stats.Active, err)
	}

	return serveErr
}
