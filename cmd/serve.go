package cmd

import (
	"context"
	"go/types"

	"github.com/spf13/cobra"

	cmdUtils "github.com/fikir-app/fikir-backend/cmd/utils"
	"github.com/fikir-app/fikir-backend/db"
	"github.com/fikir-app/fikir-backend/internal/crashtracker"
	"github.com/fikir-app/fikir-backend/internal/data"
	"github.com/fikir-app/fikir-backend/internal/events"
	"github.com/fikir-app/fikir-backend/internal/monitor"
	"github.com/fikir-app/fikir-backend/internal/payout"
	"github.com/fikir-app/fikir-backend/internal/scheduler"
	"github.com/fikir-app/fikir-backend/internal/serve"
	"github.com/fikir-app/fikir-backend/internal/services"
	"github.com/fikir-app/fikir-backend/internal/support/config"
	"github.com/fikir-app/fikir-backend/internal/support/log"
)

type ServeCommand struct{}

type ServerServiceInterface interface {
	StartServe(ctx context.Context, opts serve.ServeOptions, httpServer serve.HTTPServerInterface)
	StartMetricsServe(opts serve.MetricsServeOptions, httpServer serve.HTTPServerInterface)
	GetSchedulerJobRegistrars(ctx context.Context, serveOpts serve.ServeOptions) ([]scheduler.SchedulerJobRegisterOption, error)
}

type ServerService struct{}

// Making sure that ServerService implements ServerServiceInterface
var _ ServerServiceInterface = (*ServerService)(nil)

func (s *ServerService) StartServe(ctx context.Context, opts serve.ServeOptions, httpServer serve.HTTPServerInterface) {
	err := serve.Serve(ctx, opts, httpServer)
	if err != nil {
		log.Fatalf("Error starting server: %s", err.Error())
	}
}

func (s *ServerService) StartMetricsServe(opts serve.MetricsServeOptions, httpServer serve.HTTPServerInterface) {
	err := serve.MetricsServe(opts, httpServer)
	if err != nil {
		log.Fatalf("Error starting metrics server: %s", err.Error())
	}
}

// GetSchedulerJobRegistrars assembles the background jobs: the perk expiry
// sweep, the risk re-evaluation sweep and the payout retry sweep.
func (s *ServerService) GetSchedulerJobRegistrars(ctx context.Context, serveOpts serve.ServeOptions) ([]scheduler.SchedulerJobRegisterOption, error) {
	// TODO: inject these in the server options, to do the Dependency Injection properly.
	dbConnectionPool, err := db.OpenDBConnectionPool(globalOptions.DatabaseURL)
	if err != nil {
		log.Ctx(ctx).Fatalf("error getting DB connection in Job Scheduler: %s", err.Error())
	}
	models, err := data.NewModels(dbConnectionPool)
	if err != nil {
		log.Ctx(ctx).Fatalf("error creating models in Job Scheduler: %s", err.Error())
	}

	var eventPublisher events.Publisher = events.NoopPublisher{}
	if serveOpts.RedisURL != "" {
		eventPublisher, err = events.NewRedisPublisher(ctx, serveOpts.RedisURL)
		if err != nil {
			log.Ctx(ctx).Fatalf("error creating Redis event publisher in Job Scheduler: %s", err.Error())
		}
	}

	riskService := &services.RiskService{
		Models:           models,
		DBConnectionPool: dbConnectionPool,
		EventPublisher:   eventPublisher,
		MonitorService:   serveOpts.MonitorService,
		Config:           serveOpts.RiskConfig,
	}

	payoutService := &services.PayoutService{
		Models:           models,
		DBConnectionPool: dbConnectionPool,
		Payouter:         payout.NewStubPayouter(),
		EventPublisher:   eventPublisher,
		MonitorService:   serveOpts.MonitorService,
	}

	return []scheduler.SchedulerJobRegisterOption{
		scheduler.WithPerkExpiryJobOption(models),
		scheduler.WithRiskSweepJobOption(models, riskService, serveOpts.RiskConfig),
		scheduler.WithPayoutRetryJobOption(models, payoutService),
	}, nil
}

func (c *ServeCommand) Command(serverService ServerServiceInterface, monitorService monitor.MonitorServiceInterface) *cobra.Command {
	serveOpts := serve.ServeOptions{}

	configOpts := config.ConfigOptions{
		{
			Name:        "port",
			Usage:       "Port where the server will be listening on",
			OptType:     types.Int,
			ConfigKey:   &serveOpts.Port,
			FlagDefault: 8000,
			Required:    true,
		},
		{
			Name:           "ec256-public-key",
			Usage:          "The EC256 Public Key used to validate the token signature. This EC key needs to be at least as strong as prime256v1 (P-256).",
			OptType:        types.String,
			CustomSetValue: cmdUtils.SetConfigOptionEC256PublicKey,
			ConfigKey:      &serveOpts.EC256PublicKey,
			Required:       true,
		},
		{
			Name:           "cors-allowed-origins",
			Usage:          `Cors URLs that are allowed to access the endpoints, separated by ","`,
			OptType:        types.String,
			CustomSetValue: cmdUtils.SetCorsAllowedOrigins,
			ConfigKey:      &serveOpts.CorsAllowedOrigins,
			Required:       true,
		},
		{
			Name:        "chapa-base-url",
			Usage:       "The base URL of the ChAPA payment API.",
			OptType:     types.String,
			ConfigKey:   &serveOpts.ChapaBaseURL,
			FlagDefault: "https://api.chapa.co",
			Required:    true,
		},
		{
			Name:      "chapa-secret-key",
			Usage:     "The secret key used to authenticate against the ChAPA payment API.",
			OptType:   types.String,
			ConfigKey: &serveOpts.ChapaSecretKey,
			Required:  true,
		},
		{
			Name:      "chapa-webhook-secret",
			Usage:     "The shared secret used to verify ChAPA webhook signatures. If not provided, unsigned webhooks are verified against the provider instead.",
			OptType:   types.String,
			ConfigKey: &serveOpts.ChapaWebhookSecret,
			Required:  false,
		},
		{
			Name:      "kyc-encryption-key",
			Usage:     "The 32-byte key (base64 or hex) used to encrypt KYC documents at rest.",
			OptType:   types.String,
			ConfigKey: &serveOpts.KYCEncryptionKey,
			Required:  true,
		},
		{
			Name:        "kyc-storage-dir",
			Usage:       "The directory where encrypted KYC documents are stored.",
			OptType:     types.String,
			ConfigKey:   &serveOpts.KYCStorageDir,
			FlagDefault: "./data/kyc",
			Required:    true,
		},
		{
			Name:        "kyc-legacy-plaintext-fallback",
			Usage:       "Serve KYC documents written before encryption was introduced. Only useful while migrating an old document store.",
			OptType:     types.Bool,
			ConfigKey:   &serveOpts.KYCLegacyPlaintextFallback,
			FlagDefault: false,
			Required:    false,
		},
		{
			Name:      "redis-url",
			Usage:     "The URL of the Redis instance used for realtime notifications. If not provided, notifications are disabled.",
			OptType:   types.String,
			ConfigKey: &serveOpts.RedisURL,
			Required:  false,
		},
		{
			Name:      "geonames-username",
			Usage:     "The GeoNames account used to look up Ethiopian cities. If not provided, a static city list is served.",
			OptType:   types.String,
			ConfigKey: &serveOpts.GeonamesUsername,
			Required:  false,
		},
		{
			Name:           "min-withdrawal-etb",
			Usage:          "Minimum ETB amount of a single withdrawal request.",
			OptType:        types.String,
			CustomSetValue: cmdUtils.SetConfigOptionDecimal,
			ConfigKey:      &serveOpts.MinWithdrawalETB,
			FlagDefault:    "500",
			Required:       true,
		},
		{
			Name:           "max-daily-withdrawal-etb",
			Usage:          "Maximum ETB a creator can request across one day, paid and pending included.",
			OptType:        types.String,
			CustomSetValue: cmdUtils.SetConfigOptionDecimal,
			ConfigKey:      &serveOpts.MaxDailyWithdrawalETB,
			FlagDefault:    "5000",
			Required:       true,
		},
		{
			Name:           "max-monthly-withdrawal-etb",
			Usage:          "Maximum ETB a creator can request across one month, paid and pending included.",
			OptType:        types.String,
			CustomSetValue: cmdUtils.SetConfigOptionDecimal,
			ConfigKey:      &serveOpts.MaxMonthlyWithdrawalETB,
			FlagDefault:    "50000",
			Required:       true,
		},
		{
			Name:        "gift-send-rate-limit",
			Usage:       "Maximum gift sends per user per minute.",
			OptType:     types.Int,
			ConfigKey:   &serveOpts.GiftSendRateLimit,
			FlagDefault: 10,
			Required:    true,
		},
		{
			Name:      "subscription-plan-prices",
			Usage:     `Price overrides for the subscription plans, as "PLAN=priceETB" pairs separated by ",". Example: "BOOST=199,LIKES_REVEAL=149".`,
			OptType:   types.String,
			ConfigKey: &serveOpts.SubscriptionPlanPrices,
			Required:  false,
		},
		{
			Name:        "enable-scheduler",
			Usage:       "Enable the background job scheduler (perk expiry, risk sweep, payout retry).",
			OptType:     types.Bool,
			ConfigKey:   &serveOpts.EnableScheduler,
			FlagDefault: true,
			Required:    false,
		},
		{
			Name:        "enable-dev-endpoints",
			Usage:       "Enable the dev-only endpoints (coin grants without a provider checkout). Refused in the production environment.",
			OptType:     types.Bool,
			ConfigKey:   &serveOpts.EnableDevEndpoints,
			FlagDefault: false,
			Required:    false,
		},
	}
	configOpts = append(configOpts, cmdUtils.RiskConfigOptions(&serveOpts.RiskConfig)...)

	// crash tracker options
	crashTrackerOptions := crashtracker.CrashTrackerOptions{}
	configOpts = append(configOpts,
		&config.ConfigOption{
			Name:           "crash-tracker-type",
			Usage:          `Crash tracker type. Options: "SENTRY", "DRY_RUN"`,
			OptType:        types.String,
			CustomSetValue: cmdUtils.SetConfigOptionCrashTrackerType,
			ConfigKey:      &crashTrackerOptions.CrashTrackerType,
			FlagDefault:    string(crashtracker.CrashTrackerTypeDryRun),
			Required:       true,
		})

	// metrics server options
	metricsServeOpts := serve.MetricsServeOptions{}
	configOpts = append(configOpts,
		&config.ConfigOption{
			Name:           "metrics-type",
			Usage:          `Metric monitor type. Options: "PROMETHEUS"`,
			OptType:        types.String,
			CustomSetValue: cmdUtils.SetConfigOptionMetricType,
			ConfigKey:      &metricsServeOpts.MetricType,
			FlagDefault:    "PROMETHEUS",
			Required:       true,
		},
		&config.ConfigOption{
			Name:        "metrics-port",
			Usage:       "Port where the metrics server will be listening on",
			OptType:     types.Int,
			ConfigKey:   &metricsServeOpts.Port,
			FlagDefault: 8002,
			Required:    true,
		})

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the Fikir Payments API",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cmd.Parent().PersistentPreRun(cmd.Parent(), args)

			// Validate & ingest input parameters
			configOpts.Require()
			err := configOpts.SetValues()
			if err != nil {
				log.Fatalf("Error setting values of config options: %s", err.Error())
			}

			// Initializing monitor service
			metricOptions := monitor.MetricOptions{
				MetricType:  metricsServeOpts.MetricType,
				Environment: globalOptions.Environment,
			}

			err = monitorService.Start(metricOptions)
			if err != nil {
				log.Fatalf("Error creating monitor service: %s", err.Error())
			}

			// Inject crash tracker options dependencies
			globalOptions.PopulateCrashTrackerOptions(&crashTrackerOptions)

			// Inject server dependencies
			serveOpts.Environment = globalOptions.Environment
			serveOpts.GitCommit = globalOptions.GitCommit
			serveOpts.DatabaseDSN = globalOptions.DatabaseURL
			serveOpts.Version = globalOptions.Version
			serveOpts.MonitorService = monitorService
			serveOpts.BaseURL = globalOptions.BaseURL
			serveOpts.FrontendURL = globalOptions.FrontendURL
			serveOpts.VATRate = globalOptions.VATRate
			serveOpts.CommissionRate = globalOptions.PlatformCommissionRate

			// Inject metrics server dependencies
			metricsServeOpts.MonitorService = monitorService
			metricsServeOpts.Environment = globalOptions.Environment
		},
		Run: func(cmd *cobra.Command, _ []string) {
			ctx := cmd.Context()

			// Setup the Crash Tracker client
			crashTrackerClient, err := crashtracker.GetClient(ctx, crashTrackerOptions)
			if err != nil {
				log.Ctx(ctx).Fatalf("error creating crash tracker client: %s", err.Error())
			}
			serveOpts.CrashTrackerClient = crashTrackerClient

			// Starting Scheduler Service (background job) if enabled
			if serveOpts.EnableScheduler {
				log.Ctx(ctx).Info("Starting Scheduler Service...")
				schedulerJobRegistrars, innerErr := serverService.GetSchedulerJobRegistrars(ctx, serveOpts)
				if innerErr != nil {
					log.Ctx(ctx).Fatalf("Error getting scheduler job registrars: %v", innerErr)
				}
				go scheduler.StartScheduler(crashTrackerClient.Clone(), schedulerJobRegistrars...)
			} else {
				log.Ctx(ctx).Warn("Scheduler Service is disabled.")
			}

			// Starting Metrics Server (background job)
			log.Ctx(ctx).Info("Starting Metrics Server...")
			go serverService.StartMetricsServe(metricsServeOpts, &serve.HTTPServer{})

			// Starting Application Server
			log.Ctx(ctx).Info("Starting Application Server...")
			serverService.StartServe(ctx, serveOpts, &serve.HTTPServer{})
		},
	}
	err := configOpts.Init(cmd)
	if err != nil {
		log.Fatalf("Error initializing a config option: %s", err.Error())
	}

	return cmd
}
