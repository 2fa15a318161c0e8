package cmd

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	cmdUtils "github.com/fikir-app/fikir-backend/cmd/utils"
	"github.com/fikir-app/fikir-backend/db"
	"github.com/fikir-app/fikir-backend/db/dbtest"
	"github.com/fikir-app/fikir-backend/internal/crashtracker"
	"github.com/fikir-app/fikir-backend/internal/monitor"
	"github.com/fikir-app/fikir-backend/internal/scheduler"
	"github.com/fikir-app/fikir-backend/internal/serve"
	"github.com/fikir-app/fikir-backend/internal/services"
)

type mockServer struct {
	wg sync.WaitGroup
	mock.Mock
}

// Making sure that mockServer implements ServerServiceInterface
var _ ServerServiceInterface = (*mockServer)(nil)

func (m *mockServer) StartServe(ctx context.Context, opts serve.ServeOptions, httpServer serve.HTTPServerInterface) {
	m.Called(opts, httpServer)
	m.wg.Wait()
}

func (m *mockServer) StartMetricsServe(opts serve.MetricsServeOptions, httpServer serve.HTTPServerInterface) {
	m.Called(opts, httpServer)
	m.wg.Done()
}

func (m *mockServer) GetSchedulerJobRegistrars(ctx context.Context, serveOpts serve.ServeOptions) ([]scheduler.SchedulerJobRegisterOption, error) {
	args := m.Called(ctx, serveOpts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]scheduler.SchedulerJobRegisterOption), args.Error(1)
}

func Test_serve_wasCalled(t *testing.T) {
	// setup
	rootCmd := SetupCLI("x.y.z", "1234567890abcdef")
	serveCmdFound := false

	for _, cmd := range rootCmd.Commands() {
		if cmd.Use == "serve" {
			serveCmdFound = true
		}
	}
	require.True(t, serveCmdFound, "serve command not found")
	rootCmd.SetArgs([]string{"serve", "--help"})
	var out bytes.Buffer
	rootCmd.SetOut(&out)

	// test
	err := rootCmd.Execute()
	require.NoError(t, err)

	// assert
	assert.Contains(t, out.String(), "fikir-backend serve [flags]", "should have printed help message for serve command")
}

func Test_serve(t *testing.T) {
	dbt := dbtest.Open(t)
	dbConnectionPool, err := db.OpenDBConnectionPool(dbt.DSN)
	require.NoError(t, err)
	dbConnectionPool.Close()
	dbt.Close()

	cmdUtils.ClearTestEnvironment(t)

	ctx := context.Background()

	// mock metric service
	mMonitorService := monitor.MockMonitorService{}

	serveOpts := serve.ServeOptions{
		Environment:    "test",
		GitCommit:      "1234567890abcdef",
		Port:           8000,
		Version:        "x.y.z",
		MonitorService: &mMonitorService,
		DatabaseDSN:    dbt.DSN,
		BaseURL:        "https://api.fikir.app",
		FrontendURL:    "https://app.fikir.app",
		EC256PublicKey: "-----BEGIN PUBLIC KEY-----\nMFkwEwYHKoZIzj0CAQYIKoZIzj0DAQcDQgAER88h7AiQyVDysRTxKvBB6CaiO/kS\ncvGyimApUE/12gFhNTRf37SE19CSCllKxstnVFOpLLWB7Qu5OJ0Wvcz3hg==\n-----END PUBLIC KEY-----",
		CorsAllowedOrigins:         []string{"https://app.fikir.app"},
		ChapaBaseURL:               "https://api.chapa.co",
		ChapaSecretKey:             "CHASECK_TEST-abc123",
		ChapaWebhookSecret:         "whsec_test",
		KYCStorageDir:              "./data/kyc",
		KYCEncryptionKey:           "aWYgeW91IGNhbiByZWFkIHRoaXMsIGhpISDinaQ=",
		KYCLegacyPlaintextFallback: false,
		CommissionRate:             decimal.RequireFromString("0.25"),
		VATRate:                    decimal.RequireFromString("0.15"),
		MinWithdrawalETB:           decimal.RequireFromString("500"),
		MaxDailyWithdrawalETB:      decimal.RequireFromString("5000"),
		MaxMonthlyWithdrawalETB:    decimal.RequireFromString("50000"),
		RiskConfig: services.RiskConfig{
			TopUpsWindow:         time.Hour,
			TopUpsCount:          5,
			GiftsWindow:          time.Hour,
			GiftsETBThreshold:    decimal.RequireFromString("10000"),
			WithdrawalsWindow:    time.Hour,
			SameDestinationCount: 3,
		},
		GiftSendRateLimit: 10,
		EnableScheduler:   true,
	}

	serveOpts.CrashTrackerClient, err = crashtracker.GetClient(ctx, crashtracker.CrashTrackerOptions{
		Environment:      serveOpts.Environment,
		GitCommit:        serveOpts.GitCommit,
		CrashTrackerType: crashtracker.CrashTrackerTypeDryRun,
	})
	require.NoError(t, err)

	metricOptions := monitor.MetricOptions{
		MetricType:  monitor.MetricTypePrometheus,
		Environment: "test",
	}
	mMonitorService.On("Start", metricOptions).Return(nil).Once()
	defer mMonitorService.AssertExpectations(t)

	serveMetricOpts := serve.MetricsServeOptions{
		Port:        8002,
		Environment: "test",

		MetricType:     monitor.MetricTypePrometheus,
		MonitorService: &mMonitorService,
	}

	// mock server
	mServer := mockServer{}
	mServer.On("StartMetricsServe", serveMetricOpts, mock.AnythingOfType("*serve.HTTPServer")).Once()
	mServer.On("StartServe", serveOpts, mock.AnythingOfType("*serve.HTTPServer")).Once()
	mServer.
		On("GetSchedulerJobRegistrars", mock.Anything, serveOpts).
		Return([]scheduler.SchedulerJobRegisterOption{}, nil).
		Once()
	mServer.wg.Add(1)
	defer mServer.AssertExpectations(t)

	// SetupCLI and replace the serve command with one containing a mocked server
	rootCmd := SetupCLI("x.y.z", "1234567890abcdef")
	originalCommands := rootCmd.Commands()
	rootCmd.ResetCommands()
	serveCmdFound := false
	for _, cmd := range originalCommands {
		if cmd.Use == "serve" {
			serveCmdFound = true
			rootCmd.AddCommand((&ServeCommand{}).Command(&mServer, &mMonitorService))
		} else {
			rootCmd.AddCommand(cmd)
		}
	}
	require.True(t, serveCmdFound, "serve command not found")

	t.Setenv("ENVIRONMENT", "test")
	t.Setenv("DATABASE_URL", serveOpts.DatabaseDSN)
	t.Setenv("BASE_URL", serveOpts.BaseURL)
	t.Setenv("FRONTEND_URL", serveOpts.FrontendURL)
	t.Setenv("EC256_PUBLIC_KEY", serveOpts.EC256PublicKey)
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://app.fikir.app")
	t.Setenv("CHAPA_SECRET_KEY", serveOpts.ChapaSecretKey)
	t.Setenv("CHAPA_WEBHOOK_SECRET", serveOpts.ChapaWebhookSecret)
	t.Setenv("KYC_ENCRYPTION_KEY", serveOpts.KYCEncryptionKey)
	t.Setenv("ENABLE_SCHEDULER", "true")
	t.Setenv("METRICS_TYPE", "PROMETHEUS")
	t.Setenv("CRASH_TRACKER_TYPE", "DRY_RUN")

	// test & assert
	rootCmd.SetArgs([]string{"serve"})
	err = rootCmd.Execute()
	require.NoError(t, err)
}
