package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fikir-app/fikir-backend/db"
	"github.com/fikir-app/fikir-backend/db/dbtest"
	"github.com/fikir-app/fikir-backend/internal/chapa"
	"github.com/fikir-app/fikir-backend/internal/data"
	"github.com/fikir-app/fikir-backend/internal/events"
)

func Test_WebhookService_ProcessEvent_validation(t *testing.T) {
	service := &WebhookService{}

	outcome, err := service.ProcessEvent(context.Background(), WebhookEvent{Status: "success"})
	assert.EqualError(t, err, "tx_ref is required")
	assert.Empty(t, outcome)
}

func Test_WebhookService_ProcessEvent_topUps(t *testing.T) {
	dbt := dbtest.Open(t)
	defer dbt.Close()

	dbConnectionPool, err := db.OpenDBConnectionPool(dbt.DSN)
	require.NoError(t, err)
	defer dbConnectionPool.Close()

	ctx := context.Background()

	models, err := data.NewModels(dbConnectionPool)
	require.NoError(t, err)

	user := data.CreateUserFixture(t, ctx, dbConnectionPool, "", false)
	coinPackage := data.CreateCoinPackageFixture(t, ctx, dbConnectionPool, "Starter", 100,
		decimal.RequireFromString("100.00"),
		decimal.RequireFromString("100.00"),
		decimal.RequireFromString("15.00"),
		decimal.RequireFromString("119.07"))
	data.CreateWalletFixture(t, ctx, dbConnectionPool, user.ID, 0, decimal.Zero, decimal.Zero)

	newService := func(t *testing.T) (*WebhookService, *chapa.MockClient, *MockRiskEvaluator) {
		chapaClient := chapa.NewMockClient(t)
		riskEvaluator := NewMockRiskEvaluator(t)
		return &WebhookService{
			Models:           models,
			DBConnectionPool: dbConnectionPool,
			ChapaClient:      chapaClient,
			EventPublisher:   events.NoopPublisher{},
			RiskEvaluator:    riskEvaluator,
		}, chapaClient, riskEvaluator
	}

	t.Run("ignores events without a success status", func(t *testing.T) {
		service, _, _ := newService(t)

		outcome, err := service.ProcessEvent(ctx, WebhookEvent{TxRef: "coin-whatever", Status: "failed"})
		require.NoError(t, err)
		assert.Equal(t, WebhookOutcomeIgnored, outcome)
	})

	t.Run("ignores events the provider does not verify", func(t *testing.T) {
		service, chapaClient, _ := newService(t)
		chapaClient.
			On("VerifyTransaction", ctx, "coin-pending").
			Return(&chapa.Verification{Status: "pending", TxRef: "coin-pending"}, nil).
			Once()

		outcome, err := service.ProcessEvent(ctx, WebhookEvent{TxRef: "coin-pending", Status: "success"})
		require.NoError(t, err)
		assert.Equal(t, WebhookOutcomeIgnored, outcome)
	})

	t.Run("ignores events the provider refuses to verify", func(t *testing.T) {
		service, chapaClient, _ := newService(t)
		chapaClient.
			On("VerifyTransaction", ctx, "coin-unknown-at-provider").
			Return(nil, fmt.Errorf("API error: %w", &chapa.APIError{StatusCode: 404, Status: "failed", Message: "invalid reference"})).
			Once()

		outcome, err := service.ProcessEvent(ctx, WebhookEvent{TxRef: "coin-unknown-at-provider", Status: "success"})
		require.NoError(t, err)
		assert.Equal(t, WebhookOutcomeIgnored, outcome)
	})

	t.Run("returns ErrProviderUnavailable when verification cannot reach the provider", func(t *testing.T) {
		service, chapaClient, _ := newService(t)
		chapaClient.
			On("VerifyTransaction", ctx, "coin-outage").
			Return(nil, errors.New("making request: connection refused")).
			Once()

		outcome, err := service.ProcessEvent(ctx, WebhookEvent{TxRef: "coin-outage", Status: "success"})
		assert.ErrorIs(t, err, ErrProviderUnavailable)
		assert.Empty(t, outcome)
	})

	t.Run("returns data.ErrRecordNotFound for an unknown payment", func(t *testing.T) {
		service, chapaClient, _ := newService(t)
		chapaClient.
			On("VerifyTransaction", ctx, "coin-nobody").
			Return(&chapa.Verification{Status: "success", TxRef: "coin-nobody"}, nil).
			Once()

		outcome, err := service.ProcessEvent(ctx, WebhookEvent{TxRef: "coin-nobody", Status: "success"})
		assert.ErrorIs(t, err, data.ErrRecordNotFound)
		assert.Empty(t, outcome)
	})

	t.Run("🎉 settles a verified top-up exactly once", func(t *testing.T) {
		payment := data.CreatePaymentFixture(t, ctx, dbConnectionPool, user.ID, &coinPackage.ID,
			data.InitiatedPaymentStatus, "coin-settle-me",
			decimal.RequireFromString("119.07"), decimal.RequireFromString("15.00"))

		service, chapaClient, riskEvaluator := newService(t)
		charge := decimal.RequireFromString("4.07") // 119.07 - 100.00 - 15.00
		chapaClient.
			On("VerifyTransaction", ctx, "coin-settle-me").
			Return(&chapa.Verification{
				Status:    "success",
				Reference: "chapa-ref-001",
				TxRef:     "coin-settle-me",
				Charge:    &charge,
			}, nil).
			Twice()
		riskEvaluator.
			On("EvaluateAndApply", ctx, user.ID).
			Return([]string{}, nil).
			Once()

		outcome, err := service.ProcessEvent(ctx, WebhookEvent{TxRef: "coin-settle-me", Status: "success"})
		require.NoError(t, err)
		assert.Equal(t, WebhookOutcomeSettled, outcome)

		wallet, err := models.Wallets.GetByUserID(ctx, dbConnectionPool, user.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(100), wallet.CoinBalance)

		settled, err := models.Payments.Get(ctx, dbConnectionPool, payment.ID)
		require.NoError(t, err)
		assert.Equal(t, data.SuccessPaymentStatus, settled.Status)
		require.NotNil(t, settled.ProviderRef)
		assert.Equal(t, "chapa-ref-001", *settled.ProviderRef)
		require.NotNil(t, settled.GwFeeETB)
		assert.Equal(t, "4.07", settled.GwFeeETB.StringFixed(2))

		receipt, err := models.Receipts.GetByPaymentID(ctx, dbConnectionPool, payment.ID)
		require.NoError(t, err)
		assert.Equal(t, "119.07", receipt.PriceETB.StringFixed(2))
		assert.Equal(t, "15.00", receipt.VATETB.StringFixed(2))

		auditLogs := getAuditLogs(t, ctx, models, dbConnectionPool, user.ID, data.PaymentSuccessAuditEvent)
		require.Len(t, auditLogs, 1)
		assert.Equal(t, payment.ID, auditLogs[0].Metadata["payment_id"])
		assert.Equal(t, float64(100), auditLogs[0].Metadata["credited_coins"])
		assert.Equal(t, float64(0), auditLogs[0].Metadata["balance_before"])
		assert.Equal(t, float64(100), auditLogs[0].Metadata["balance_after"])

		// The replay settles nothing and reports the duplicate.
		outcome, err = service.ProcessEvent(ctx, WebhookEvent{TxRef: "coin-settle-me", Status: "success"})
		require.NoError(t, err)
		assert.Equal(t, WebhookOutcomeAlreadyProcessed, outcome)

		wallet, err = models.Wallets.GetByUserID(ctx, dbConnectionPool, user.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(100), wallet.CoinBalance)
	})

	t.Run("audits a gateway fee mismatch and trusts the provider's charge", func(t *testing.T) {
		payment := data.CreatePaymentFixture(t, ctx, dbConnectionPool, user.ID, &coinPackage.ID,
			data.InitiatedPaymentStatus, "coin-fee-mismatch",
			decimal.RequireFromString("119.07"), decimal.RequireFromString("15.00"))

		service, chapaClient, riskEvaluator := newService(t)
		charge := decimal.RequireFromString("5.50")
		chapaClient.
			On("VerifyTransaction", ctx, "coin-fee-mismatch").
			Return(&chapa.Verification{Status: "success", TxRef: "coin-fee-mismatch", Charge: &charge}, nil).
			Once()
		riskEvaluator.
			On("EvaluateAndApply", ctx, user.ID).
			Return([]string{}, nil).
			Once()

		outcome, err := service.ProcessEvent(ctx, WebhookEvent{TxRef: "coin-fee-mismatch", Status: "success"})
		require.NoError(t, err)
		assert.Equal(t, WebhookOutcomeSettled, outcome)

		settled, err := models.Payments.Get(ctx, dbConnectionPool, payment.ID)
		require.NoError(t, err)
		require.NotNil(t, settled.GwFeeETB)
		assert.Equal(t, "5.50", settled.GwFeeETB.StringFixed(2))

		auditLogs := getAuditLogs(t, ctx, models, dbConnectionPool, user.ID, data.GatewayFeeMismatchAuditEvent)
		require.Len(t, auditLogs, 1)
		assert.Equal(t, payment.ID, auditLogs[0].Metadata["payment_id"])
		assert.Equal(t, "4.07", auditLogs[0].Metadata["residual_fee"])
		assert.Equal(t, "5.50", auditLogs[0].Metadata["provider_charge"])
	})

	t.Run("falls back to the webhook reference when verification has none", func(t *testing.T) {
		payment := data.CreatePaymentFixture(t, ctx, dbConnectionPool, user.ID, &coinPackage.ID,
			data.InitiatedPaymentStatus, "coin-event-ref",
			decimal.RequireFromString("119.07"), decimal.RequireFromString("15.00"))

		service, chapaClient, riskEvaluator := newService(t)
		chapaClient.
			On("VerifyTransaction", ctx, "coin-event-ref").
			Return(&chapa.Verification{Status: "success", TxRef: "coin-event-ref"}, nil).
			Once()
		riskEvaluator.
			On("EvaluateAndApply", ctx, user.ID).
			Return([]string{}, nil).
			Once()

		outcome, err := service.ProcessEvent(ctx, WebhookEvent{TxRef: "coin-event-ref", Status: "success", Reference: "hook-ref-9"})
		require.NoError(t, err)
		assert.Equal(t, WebhookOutcomeSettled, outcome)

		settled, err := models.Payments.Get(ctx, dbConnectionPool, payment.ID)
		require.NoError(t, err)
		require.NotNil(t, settled.ProviderRef)
		assert.Equal(t, "hook-ref-9", *settled.ProviderRef)
	})
}

func Test_WebhookService_ProcessEvent_subscriptions(t *testing.T) {
	dbt := dbtest.Open(t)
	defer dbt.Close()

	dbConnectionPool, err := db.OpenDBConnectionPool(dbt.DSN)
	require.NoError(t, err)
	defer dbConnectionPool.Close()

	ctx := context.Background()

	models, err := data.NewModels(dbConnectionPool)
	require.NoError(t, err)

	user := data.CreateUserFixture(t, ctx, dbConnectionPool, "", false)
	purchase := data.CreateSubscriptionPurchaseFixture(t, ctx, dbConnectionPool, user.ID,
		data.BoostSubscriptionPlan, data.InitiatedSubscriptionStatus, decimal.RequireFromString("199.00"))
	data.CreatePaymentFixture(t, ctx, dbConnectionPool, user.ID, nil,
		data.InitiatedPaymentStatus, purchase.TxRef,
		decimal.RequireFromString("199.00"), decimal.Zero)

	subscriptionService, err := NewSubscriptionService(models, dbConnectionPool, chapa.NewMockClient(t), events.NoopPublisher{}, "https://api.fikir.app", "https://app.fikir.app", DefaultPlans())
	require.NoError(t, err)

	chapaClient := chapa.NewMockClient(t)
	service := &WebhookService{
		Models:           models,
		DBConnectionPool: dbConnectionPool,
		ChapaClient:      chapaClient,
		EventPublisher:   events.NoopPublisher{},
		Subscriptions:    subscriptionService,
	}

	charge := decimal.RequireFromString("6.85")
	chapaClient.
		On("VerifyTransaction", ctx, purchase.TxRef).
		Return(&chapa.Verification{Status: "success", Reference: "chapa-sub-1", TxRef: purchase.TxRef, Charge: &charge}, nil).
		Twice()

	outcome, err := service.ProcessEvent(ctx, WebhookEvent{TxRef: purchase.TxRef, Status: "success"})
	require.NoError(t, err)
	assert.Equal(t, WebhookOutcomeSettled, outcome)

	completed, err := models.Subscriptions.Get(ctx, dbConnectionPool, purchase.ID)
	require.NoError(t, err)
	assert.Equal(t, data.CompletedSubscriptionStatus, completed.Status)
	require.NotNil(t, completed.ActivatedAt)
	require.NotNil(t, completed.ExpiresAt)

	// The perk landed on the user row.
	boosted, err := models.Users.Get(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, boosted.HasBoost)

	// The payment leg settled with the provider's fee.
	payment, err := models.Payments.GetByTxRef(ctx, dbConnectionPool, purchase.TxRef)
	require.NoError(t, err)
	assert.Equal(t, data.SuccessPaymentStatus, payment.Status)
	require.NotNil(t, payment.GwFeeETB)
	assert.Equal(t, "6.85", payment.GwFeeETB.StringFixed(2))

	// Replay is reported as a duplicate.
	outcome, err = service.ProcessEvent(ctx, WebhookEvent{TxRef: purchase.TxRef, Status: "success"})
	require.NoError(t, err)
	assert.Equal(t, WebhookOutcomeAlreadyProcessed, outcome)
}
