package serve

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/shopspring/decimal"

	"github.com/fikir-app/fikir-backend/db"
	"github.com/fikir-app/fikir-backend/internal/chapa"
	"github.com/fikir-app/fikir-backend/internal/crashtracker"
	"github.com/fikir-app/fikir-backend/internal/data"
	"github.com/fikir-app/fikir-backend/internal/events"
	"github.com/fikir-app/fikir-backend/internal/geonames"
	"github.com/fikir-app/fikir-backend/internal/monitor"
	"github.com/fikir-app/fikir-backend/internal/payout"
	"github.com/fikir-app/fikir-backend/internal/serve/auth"
	"github.com/fikir-app/fikir-backend/internal/serve/httperror"
	"github.com/fikir-app/fikir-backend/internal/serve/httphandler"
	"github.com/fikir-app/fikir-backend/internal/serve/middleware"
	"github.com/fikir-app/fikir-backend/internal/services"
	"github.com/fikir-app/fikir-backend/internal/storage"
	"github.com/fikir-app/fikir-backend/internal/support/log"
	"github.com/fikir-app/fikir-backend/internal/support/supporthttp"
)

const ServiceID = "serve"

type HTTPServerInterface interface {
	Run(conf supporthttp.Config)
}

type HTTPServer struct{}

func (h *HTTPServer) Run(conf supporthttp.Config) {
	supporthttp.Run(conf)
}

type ServeOptions struct {
	Environment                string
	GitCommit                  string
	Port                       int
	Version                    string
	MonitorService             monitor.MonitorServiceInterface
	CrashTrackerClient         crashtracker.CrashTrackerClient
	DatabaseDSN                string
	dbConnectionPool           db.DBConnectionPool
	Models                     *data.Models
	BaseURL                    string
	FrontendURL                string
	CorsAllowedOrigins         []string
	EC256PublicKey             string
	ChapaBaseURL               string
	ChapaSecretKey             string
	ChapaWebhookSecret         string
	GeonamesUsername           string
	RedisURL                   string
	KYCStorageDir              string
	KYCEncryptionKey           string
	KYCLegacyPlaintextFallback bool
	CommissionRate             decimal.Decimal
	VATRate                    decimal.Decimal
	MinWithdrawalETB           decimal.Decimal
	MaxDailyWithdrawalETB      decimal.Decimal
	MaxMonthlyWithdrawalETB    decimal.Decimal
	RiskConfig                 services.RiskConfig
	GiftSendRateLimit          int
	SubscriptionPlanPrices     string
	EnableScheduler            bool
	EnableDevEndpoints         bool
	Payouter                   payout.Payouter

	// Assembled by SetupDependencies:
	jwtManager          auth.JWTManagerInterface
	principalProvider   auth.PrincipalProvider
	chapaClient         chapa.ClientInterface
	geonamesClient      geonames.ClientInterface
	eventPublisher      events.Publisher
	kycStore            storage.Store
	topUpService        services.TopUpServiceInterface
	giftService         services.GiftServiceInterface
	withdrawalService   services.WithdrawalServiceInterface
	subscriptionService *services.SubscriptionService
	kycService          services.KYCServiceInterface
	webhookService      services.WebhookServiceInterface
	devService          services.DevServiceInterface
}

// SetupDependencies uses the serve options to setup the dependencies for the server.
func (opts *ServeOptions) SetupDependencies(ctx context.Context) error {
	// Flush crash tracker events buffered during setup and recover from
	// panics raised while the dependencies come up.
	defer opts.CrashTrackerClient.FlushEvents(2 * time.Second)
	defer opts.CrashTrackerClient.Recover()
	httperror.SetDefaultReportErrorFunc(opts.CrashTrackerClient.LogAndReportErrors)

	if opts.EnableDevEndpoints && strings.EqualFold(opts.Environment, "production") {
		return fmt.Errorf("dev endpoints cannot be enabled in the production environment")
	}

	// Setup Database:
	dbConnectionPool, err := db.OpenDBConnectionPoolWithMetrics(ctx, opts.DatabaseDSN, opts.MonitorService)
	if err != nil {
		return fmt.Errorf("error connecting to the database: %w", err)
	}
	opts.dbConnectionPool = dbConnectionPool

	opts.Models, err = data.NewModels(dbConnectionPool)
	if err != nil {
		return fmt.Errorf("error creating models for Serve: %w", err)
	}

	// Setup bearer auth:
	jwtManager, err := auth.NewJWTManager(opts.EC256PublicKey)
	if err != nil {
		return fmt.Errorf("error creating JWT manager: %w", err)
	}
	opts.jwtManager = jwtManager
	opts.principalProvider = auth.NewCachedPrincipalProvider(opts.Models)

	// Setup provider clients:
	opts.chapaClient = chapa.NewClient(opts.ChapaBaseURL, opts.ChapaSecretKey, opts.MonitorService)

	var geoClient geonames.ClientInterface = geonames.StaticClient{}
	if opts.GeonamesUsername != "" {
		geoClient = geonames.NewClient(opts.GeonamesUsername)
	}
	opts.geonamesClient = geonames.NewCachedClient(geoClient)

	// Setup the encrypted KYC document store:
	fsStore, err := storage.NewFSStore(opts.KYCStorageDir)
	if err != nil {
		return fmt.Errorf("error creating KYC file store at %s: %w", opts.KYCStorageDir, err)
	}
	encryptedStore, err := storage.NewEncryptedStore(fsStore, opts.KYCEncryptionKey)
	if err != nil {
		return fmt.Errorf("error creating encrypted KYC store: %w", err)
	}
	encryptedStore.LegacyPlaintextFallback = opts.KYCLegacyPlaintextFallback
	opts.kycStore = encryptedStore

	// Setup the realtime event publisher:
	if opts.RedisURL != "" {
		opts.eventPublisher, err = events.NewRedisPublisher(ctx, opts.RedisURL)
		if err != nil {
			return fmt.Errorf("error creating Redis event publisher: %w", err)
		}
	} else {
		log.Ctx(ctx).Warn("redis-url is not set. Realtime notifications are disabled.")
		opts.eventPublisher = events.NoopPublisher{}
	}

	// Setup the services:
	plans, err := services.ApplyPlanPriceOverrides(services.DefaultPlans(), opts.SubscriptionPlanPrices)
	if err != nil {
		return fmt.Errorf("error applying subscription plan price overrides: %w", err)
	}

	if opts.Payouter == nil {
		opts.Payouter = payout.NewStubPayouter()
	}

	riskService := &services.RiskService{
		Models:           opts.Models,
		DBConnectionPool: dbConnectionPool,
		EventPublisher:   opts.eventPublisher,
		MonitorService:   opts.MonitorService,
		Config:           opts.RiskConfig,
	}

	payoutService := &services.PayoutService{
		Models:           opts.Models,
		DBConnectionPool: dbConnectionPool,
		Payouter:         opts.Payouter,
		EventPublisher:   opts.eventPublisher,
		MonitorService:   opts.MonitorService,
	}

	opts.topUpService = services.NewTopUpService(opts.Models, dbConnectionPool, opts.chapaClient, opts.BaseURL, opts.FrontendURL)

	opts.giftService = &services.GiftService{
		Models:           opts.Models,
		DBConnectionPool: dbConnectionPool,
		EventPublisher:   opts.eventPublisher,
		RiskEvaluator:    riskService,
		MonitorService:   opts.MonitorService,
		CommissionRate:   opts.CommissionRate,
		VATRate:          opts.VATRate,
	}

	opts.withdrawalService = &services.WithdrawalService{
		Models:                  opts.Models,
		DBConnectionPool:        dbConnectionPool,
		EventPublisher:          opts.eventPublisher,
		RiskEvaluator:           riskService,
		PayoutProcessor:         payoutService,
		MinWithdrawalETB:        opts.MinWithdrawalETB,
		MaxDailyWithdrawalETB:   opts.MaxDailyWithdrawalETB,
		MaxMonthlyWithdrawalETB: opts.MaxMonthlyWithdrawalETB,
	}

	opts.subscriptionService, err = services.NewSubscriptionService(opts.Models, dbConnectionPool, opts.chapaClient, opts.eventPublisher, opts.BaseURL, opts.FrontendURL, plans)
	if err != nil {
		return fmt.Errorf("error creating subscription service: %w", err)
	}

	opts.kycService = &services.KYCService{
		Models:           opts.Models,
		DBConnectionPool: dbConnectionPool,
		Store:            opts.kycStore,
	}

	opts.webhookService = &services.WebhookService{
		Models:           opts.Models,
		DBConnectionPool: dbConnectionPool,
		ChapaClient:      opts.chapaClient,
		EventPublisher:   opts.eventPublisher,
		Subscriptions:    opts.subscriptionService,
		RiskEvaluator:    riskService,
		MonitorService:   opts.MonitorService,
	}

	opts.devService = &services.DevService{
		Models:           opts.Models,
		DBConnectionPool: dbConnectionPool,
		EventPublisher:   opts.eventPublisher,
	}

	return nil
}

func Serve(ctx context.Context, opts ServeOptions, httpServer HTTPServerInterface) error {
	err := opts.SetupDependencies(ctx)
	if err != nil {
		return fmt.Errorf("error starting dependencies: %w", err)
	}

	// Start the server
	listenAddr := fmt.Sprintf(":%d", opts.Port)
	serverConfig := supporthttp.Config{
		ListenAddr:          listenAddr,
		Handler:             handleHTTP(opts),
		TCPKeepAlive:        time.Minute * 3,
		ShutdownGracePeriod: time.Second * 50,
		ReadTimeout:         time.Second * 5,
		WriteTimeout:        time.Second * 35,
		IdleTimeout:         time.Minute * 2,
		OnStarting: func() {
			log.Info("Starting Fikir Payments API Server")
			log.Infof("Listening on %s", listenAddr)
		},
		OnStopping: func() {
			log.Info("Closing the event publisher...")
			if closeErr := opts.eventPublisher.Close(); closeErr != nil {
				log.Errorf("error closing event publisher: %s", closeErr.Error())
			}

			log.Info("Closing the database connection...")
			if closeErr := opts.dbConnectionPool.Close(); closeErr != nil {
				log.Errorf("error closing database connection: %s", closeErr.Error())
			}

			log.Info("Stopping Fikir Payments API Server")
		},
	}
	httpServer.Run(serverConfig)
	return nil
}

func handleHTTP(o ServeOptions) *chi.Mux {
	mux := chi.NewMux()

	// Middleware
	mux.Use(middleware.CorsMiddleware(o.CorsAllowedOrigins))
	mux.Use(chimiddleware.RequestID)
	mux.Use(chimiddleware.RealIP)
	mux.Use(supporthttp.LoggingMiddleware)
	mux.Use(middleware.RecoverHandler)
	mux.Use(middleware.MetricsRequestHandler(o.MonitorService))

	mux.Get("/health", httphandler.HealthHandler{
		ReleaseID:        o.GitCommit,
		ServiceID:        ServiceID,
		Version:          o.Version,
		DBConnectionPool: o.dbConnectionPool,
	}.ServeHTTP)

	// Provider callbacks authenticate with an HMAC signature instead of a
	// bearer token, so they live outside the /api tree.
	webhookHandler := httphandler.ChapaWebhookHandler{
		WebhookService: o.webhookService,
		WebhookSecret:  o.ChapaWebhookSecret,
	}
	mux.Route("/webhooks/chapa", func(r chi.Router) {
		r.Post("/", webhookHandler.ServeHTTP)
		r.Get("/", webhookHandler.ServeHTTP)
	})

	authMiddleware := middleware.AuthenticateMiddleware(o.jwtManager, o.principalProvider)

	mux.Route("/api", func(r chi.Router) {
		subscriptionsHandler := httphandler.SubscriptionsHandler{SubscriptionService: o.subscriptionService}
		giftsHandler := httphandler.GiftsHandler{Models: o.Models, GiftService: o.giftService}

		// Public catalog endpoints, so pricing and gift lists render before
		// login.
		r.Get("/gifts", giftsHandler.GetGifts)
		r.Get("/cities", httphandler.CitiesHandler{GeonamesClient: o.geonamesClient}.GetCities)
		r.Get("/banks", httphandler.NewBanksHandler(o.chapaClient).GetBanks)
		r.Get("/subscription-plans", subscriptionsHandler.GetPlans)

		// Authenticated Routes
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)

			r.With(middleware.RateLimitByUserMiddleware(o.GiftSendRateLimit)).
				Post("/gifts/send", giftsHandler.SendGift)

			r.Route("/coins", func(r chi.Router) {
				coinsHandler := httphandler.CoinsHandler{Models: o.Models, TopUpService: o.topUpService}
				r.Get("/packages", coinsHandler.GetPackages)
				r.Post("/topup", coinsHandler.CreateTopUp)
			})

			r.Get("/payments/{id}/receipt", httphandler.ReceiptHandler{Models: o.Models}.GetReceipt)

			r.Route("/wallet", func(r chi.Router) {
				walletHandler := httphandler.WalletHandler{Models: o.Models, WithdrawalService: o.withdrawalService}
				r.Get("/", walletHandler.GetWallet)
				r.Post("/withdraw", walletHandler.CreateWithdrawal)
			})

			kycHandler := httphandler.KYCHandler{KYCService: o.kycService}
			r.Post("/kyc/submit", kycHandler.Submit)

			r.Route("/subscriptions", func(r chi.Router) {
				r.Post("/subscribe", subscriptionsHandler.Subscribe)
				r.Post("/activate", subscriptionsHandler.Activate)
			})

			if o.EnableDevEndpoints {
				r.Post("/dev/grant-coins", httphandler.DevHandler{DevService: o.devService}.GrantCoins)
			}

			// Admin Routes
			r.Route("/admin", func(r chi.Router) {
				r.Use(middleware.EnsureAdminMiddleware)

				withdrawalsHandler := httphandler.WithdrawalsHandler{Models: o.Models, WithdrawalService: o.withdrawalService}
				exportHandler := httphandler.ExportHandler{Models: o.Models}

				r.Route("/withdrawals", func(r chi.Router) {
					r.Get("/", withdrawalsHandler.GetWithdrawals)
					r.Get("/export", exportHandler.ExportWithdrawals)
					r.Post("/{id}/approve", withdrawalsHandler.ApproveWithdrawal)
					r.Post("/{id}/reject", withdrawalsHandler.RejectWithdrawal)
				})

				r.Get("/audit-logs/export", exportHandler.ExportAuditLogs)
				r.Post("/kyc/{id}/review", kycHandler.Review)
			})
		})
	})

	return mux
}
