package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/lumabook/automation/internal/api"
	"github.com/lumabook/automation/internal/api/handlers"
	"github.com/lumabook/automation/internal/cache"
	"github.com/lumabook/automation/internal/clock"
	"github.com/lumabook/automation/internal/database/mongodb"
	"github.com/lumabook/automation/internal/definition"
	"github.com/lumabook/automation/internal/event"
	"github.com/lumabook/automation/internal/health"
	"github.com/lumabook/automation/internal/notification"
	"github.com/lumabook/automation/internal/scheduler"
	"github.com/lumabook/automation/internal/shutdown"
	"github.com/lumabook/automation/internal/workflow"
	"github.com/lumabook/automation/internal/workflow/repository"
	"github.com/lumabook/automation/pkg/integration/brevo"
	"github.com/lumabook/automation/pkg/integration/twilio"
	"github.com/lumabook/automation/pkg/logging"
	"github.com/lumabook/automation/pkg/metrics"
)

var (
	serveAddr      string
	mongoURI       string
	mongoDatabase  string
	redisAddr      string
	redisPassword  string
	redisDB        int
	cacheBackend   string
	cacheTTL       time.Duration
	sweepInterval  time.Duration
	noScheduler    bool
	definitionsDir string
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the automation service",
		Long: `Run the HTTP API, the workflow engine and the periodic sweep.

Message provider credentials come from the environment:
BREVO_API_KEY, BREVO_SENDER_EMAIL, TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN,
TWILIO_FROM_NUMBER. A channel without credentials is left unconfigured and
its message steps fail their executions.`,
		Example: `  automation serve
  automation serve --addr :3000 --mongo-uri mongodb://db:27017
  automation serve --no-scheduler --cache memory`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}

	cmd.Flags().StringVar(&serveAddr, "addr", ":8080", "HTTP listen address")
	cmd.Flags().StringVar(&mongoURI, "mongo-uri", "mongodb://localhost:27017", "MongoDB connection string")
	cmd.Flags().StringVar(&mongoDatabase, "mongo-db", "automation", "MongoDB database name")
	cmd.Flags().StringVar(&redisAddr, "redis-addr", "localhost:6379", "Redis address for cache and scheduler")
	cmd.Flags().StringVar(&redisPassword, "redis-password", "", "Redis password")
	cmd.Flags().IntVar(&redisDB, "redis-db", 0, "Redis database number")
	cmd.Flags().StringVar(&cacheBackend, "cache", "redis", "definition cache backend (redis|memory)")
	cmd.Flags().DurationVar(&cacheTTL, "cache-ttl", 5*time.Minute, "definition cache TTL")
	cmd.Flags().DurationVar(&sweepInterval, "sweep-interval", time.Minute, "periodic sweep interval")
	cmd.Flags().BoolVar(&noScheduler, "no-scheduler", false, "disable the periodic sweep (manual POST /sweep only)")
	cmd.Flags().StringVar(&definitionsDir, "definitions", "", "directory of .workflow files to load at startup")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	logCfg := logging.DefaultConfig()
	if verbose {
		logCfg.Level = "debug"
	}
	logger := logging.New(logCfg)
	logger.SetAsDefault()

	ctx := cmd.Context()

	// MongoDB and repositories.
	mongoCfg := mongodb.DefaultConfig()
	mongoCfg.URI = mongoURI
	mongoCfg.Database = mongoDatabase

	mongoClient, err := mongodb.New(ctx, mongoCfg, logger.Component("mongodb"))
	if err != nil {
		return fmt.Errorf("connect mongodb: %w", err)
	}
	if err := repository.EnsureIndexes(ctx, mongoClient.Database()); err != nil {
		return fmt.Errorf("ensure indexes: %w", err)
	}
	stores := repository.MongoStores(mongoClient.Database())

	// Definition cache in front of the workflow store.
	cacheCfg := cache.DefaultConfig()
	cacheCfg.Type = cacheBackend
	cacheCfg.URL = "redis://" + redisAddr
	cacheCfg.Password = redisPassword
	cacheCfg.DB = redisDB
	cacheCfg.DefaultTTL = cacheTTL

	defCache, err := cache.New(cacheCfg)
	if err != nil {
		return fmt.Errorf("create cache: %w", err)
	}
	stores.Workflows = cache.NewDefinitionStore(stores.Workflows, defCache, cacheTTL, logger.Component("cache"))

	// Engine.
	sender := buildSender(logger)
	dispatcher := event.NewDispatcher(logger.Component("events"))
	event.RegisterLogging(dispatcher, logger.Component("events"))
	metricsReg := metrics.NewRegistry(metrics.DefaultConfig())

	engineCfg := workflow.DefaultConfig()
	engine, err := workflow.NewEngine(engineCfg, stores, sender, dispatcher,
		clock.System(), metricsReg.Engine(), logger.Component("engine"))
	if err != nil {
		return fmt.Errorf("create engine: %w", err)
	}

	// Preload DSL definitions.
	if definitionsDir != "" {
		loader := definition.NewLoader(stores.Workflows, logger.Component("definitions"))
		defs, err := loader.LoadDir(ctx, definitionsDir)
		if err != nil {
			return fmt.Errorf("load definitions: %w", err)
		}
		logger.Info("definitions loaded", "count", len(defs), "dir", definitionsDir)
	}

	// Health checks.
	healthReg := health.NewRegistry(Version)
	healthReg.Register(health.NewPingChecker("mongodb", mongoClient, health.SeverityCritical))
	healthReg.Register(health.NewPingChecker("cache", health.PingFunc(defCache.Health), health.SeverityWarning))

	// HTTP server.
	handler := handlers.NewHandler(engine, stores, healthReg, logger.Component("api"))
	router := api.NewRouterWithConfig(handler, api.RouterConfig{
		RequestLogger:  logging.NewHTTPMiddleware(logger.Component("http")).Handler,
		Metrics:        metricsReg.Middleware,
		MetricsHandler: metricsReg.Handler(),
	})
	server := api.NewServer(router, serveAddr)

	// Shutdown wiring.
	mgr := shutdown.NewManager(shutdown.DefaultConfig(), logger.Logger)
	mgr.Register(shutdown.HTTPServerHook(server.HTTPServer(), 10*time.Second))
	mgr.Register(shutdown.DatabaseHook(mongoClient))
	mgr.Register(shutdown.CacheHook(defCache))

	// Periodic sweep.
	if !noScheduler {
		schedCfg := scheduler.DefaultConfig()
		schedCfg.RedisAddr = redisAddr
		schedCfg.RedisPassword = redisPassword
		schedCfg.RedisDB = redisDB
		schedCfg.SweepInterval = sweepInterval

		sched, err := scheduler.NewManager(schedCfg, engine, logger.Component("scheduler"))
		if err != nil {
			return fmt.Errorf("create scheduler: %w", err)
		}
		if err := sched.Start(); err != nil {
			return fmt.Errorf("start scheduler: %w", err)
		}
		mgr.Register(shutdown.SchedulerHook(sched))
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", serveAddr)
		serveErr <- server.Start()
	}()

	done := mgr.ListenForSignals()

	select {
	case err := <-serveErr:
		if err != nil {
			logger.Error("http server failed", "error", err)
			mgr.Shutdown()
			return err
		}
		<-done
	case <-done:
	}
	return nil
}

// buildSender assembles the provider-backed sender from environment
// credentials. Channels without credentials stay nil.
func buildSender(logger *logging.Logger) notification.Sender {
	var emailClient *brevo.Client
	if key := os.Getenv("BREVO_API_KEY"); key != "" {
		client, err := brevo.NewClient(brevo.Config{
			APIKey: key,
			DefaultSender: brevo.EmailAddress{
				Email: os.Getenv("BREVO_SENDER_EMAIL"),
				Name:  os.Getenv("BREVO_SENDER_NAME"),
			},
		})
		if err != nil {
			logger.Warn("brevo client disabled", "error", err)
		} else {
			emailClient = client
		}
	}

	var smsClient *twilio.Client
	if sid := os.Getenv("TWILIO_ACCOUNT_SID"); sid != "" {
		client, err := twilio.NewClient(twilio.Config{
			AccountSID: sid,
			AuthToken:  os.Getenv("TWILIO_AUTH_TOKEN"),
			FromNumber: os.Getenv("TWILIO_FROM_NUMBER"),
		})
		if err != nil {
			logger.Warn("twilio client disabled", "error", err)
		} else {
			smsClient = client
		}
	}

	return notification.NewService(emailClient, smsClient, logger.Component("notification"))
}
