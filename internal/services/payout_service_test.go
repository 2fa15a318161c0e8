package services

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fikir-app/fikir-backend/db"
	"github.com/fikir-app/fikir-backend/db/dbtest"
	"github.com/fikir-app/fikir-backend/internal/data"
	"github.com/fikir-app/fikir-backend/internal/events"
	"github.com/fikir-app/fikir-backend/internal/payout"
)

func Test_PayoutService_ProcessPayout(t *testing.T) {
	dbt := dbtest.Open(t)
	defer dbt.Close()

	dbConnectionPool, err := db.OpenDBConnectionPool(dbt.DSN)
	require.NoError(t, err)
	defer dbConnectionPool.Close()

	ctx := context.Background()

	models, err := data.NewModels(dbConnectionPool)
	require.NoError(t, err)

	creator := data.CreateUserFixture(t, ctx, dbConnectionPool, "selam", false)
	data.CreateWalletFixture(t, ctx, dbConnectionPool, creator.ID, 0, decimal.RequireFromString("1000.00"), decimal.RequireFromString("400.00"))

	newService := func(t *testing.T) (*PayoutService, *payout.MockPayouter, *events.MockPublisher) {
		payouter := payout.NewMockPayouter(t)
		eventPublisher := events.NewMockPublisher(t)
		return &PayoutService{
			Models:           models,
			DBConnectionPool: dbConnectionPool,
			Payouter:         payouter,
			EventPublisher:   eventPublisher,
		}, payouter, eventPublisher
	}

	t.Run("returns data.ErrRecordNotFound for an unknown withdrawal", func(t *testing.T) {
		service, _, _ := newService(t)
		err := service.ProcessPayout(ctx, "b07af9a5-1bd0-4b12-b89c-1ba06c58526a")
		assert.ErrorIs(t, err, data.ErrRecordNotFound)
	})

	t.Run("skips withdrawals that are not APPROVED", func(t *testing.T) {
		pending := data.CreateWithdrawalFixture(t, ctx, dbConnectionPool, creator.ID, data.PendingWithdrawalStatus, "0911223344", decimal.RequireFromString("100.00"))

		service, _, _ := newService(t)
		require.NoError(t, service.ProcessPayout(ctx, pending.ID))

		unchanged, err := models.Withdrawals.Get(ctx, dbConnectionPool, pending.ID)
		require.NoError(t, err)
		assert.Equal(t, data.PendingWithdrawalStatus, unchanged.Status)
	})

	t.Run("records the failure when the rail cannot be reached", func(t *testing.T) {
		approved := data.CreateWithdrawalFixture(t, ctx, dbConnectionPool, creator.ID, data.ApprovedWithdrawalStatus, "0911223344", decimal.RequireFromString("150.00"))

		service, payouter, _ := newService(t)
		payouter.
			On("Pay", ctx, mock.AnythingOfType("*data.Withdrawal")).
			Return(nil, errors.New("transfer rail timeout")).
			Once()

		err := service.ProcessPayout(ctx, approved.ID)
		assert.ErrorContains(t, err, "transfer rail timeout")

		stillApproved, err := models.Withdrawals.Get(ctx, dbConnectionPool, approved.ID)
		require.NoError(t, err)
		assert.Equal(t, data.ApprovedWithdrawalStatus, stillApproved.Status)
		require.NotNil(t, stillApproved.FailureReason)
		assert.Equal(t, "transfer rail timeout", *stillApproved.FailureReason)
	})

	t.Run("records a FAILED result without settling", func(t *testing.T) {
		approved := data.CreateWithdrawalFixture(t, ctx, dbConnectionPool, creator.ID, data.ApprovedWithdrawalStatus, "0911223344", decimal.RequireFromString("150.00"))

		service, payouter, _ := newService(t)
		payouter.
			On("Pay", ctx, mock.AnythingOfType("*data.Withdrawal")).
			Return(&payout.Result{Status: payout.StatusFailed, FailureReason: "destination account closed"}, nil).
			Once()

		require.NoError(t, service.ProcessPayout(ctx, approved.ID))

		stillApproved, err := models.Withdrawals.Get(ctx, dbConnectionPool, approved.ID)
		require.NoError(t, err)
		assert.Equal(t, data.ApprovedWithdrawalStatus, stillApproved.Status)
		require.NotNil(t, stillApproved.FailureReason)
		assert.Equal(t, "destination account closed", *stillApproved.FailureReason)

		wallet, err := models.Wallets.GetByUserID(ctx, dbConnectionPool, creator.ID)
		require.NoError(t, err)
		assert.Equal(t, "1000.00", wallet.BalanceETB.StringFixed(2))
		assert.Equal(t, "400.00", wallet.HoldETB.StringFixed(2))
	})

	t.Run("🎉 settles a PAID payout and releases the hold", func(t *testing.T) {
		approved := data.CreateWithdrawalFixture(t, ctx, dbConnectionPool, creator.ID, data.ApprovedWithdrawalStatus, "0911223344", decimal.RequireFromString("400.00"))

		service, payouter, eventPublisher := newService(t)
		payouter.
			On("Pay", ctx, mock.AnythingOfType("*data.Withdrawal")).
			Run(func(args mock.Arguments) {
				withdrawal := args.Get(1).(*data.Withdrawal)
				assert.Equal(t, approved.ID, withdrawal.ID)
			}).
			Return(&payout.Result{Status: payout.StatusPaid, ProviderRef: "PAY-REF-7"}, nil).
			Once()

		var published []events.Message
		eventPublisher.
			On("Publish", ctx, mock.AnythingOfType("[]events.Message")).
			Run(func(args mock.Arguments) {
				published = args.Get(1).([]events.Message)
			}).
			Return(nil).
			Once()

		require.NoError(t, service.ProcessPayout(ctx, approved.ID))

		paid, err := models.Withdrawals.Get(ctx, dbConnectionPool, approved.ID)
		require.NoError(t, err)
		assert.Equal(t, data.PaidWithdrawalStatus, paid.Status)
		require.NotNil(t, paid.ProviderRef)
		assert.Equal(t, "PAY-REF-7", *paid.ProviderRef)
		assert.NotNil(t, paid.PaidAt)

		wallet, err := models.Wallets.GetByUserID(ctx, dbConnectionPool, creator.ID)
		require.NoError(t, err)
		assert.Equal(t, "600.00", wallet.BalanceETB.StringFixed(2))
		assert.Equal(t, "0.00", wallet.HoldETB.StringFixed(2))

		auditLogs := getAuditLogs(t, ctx, models, dbConnectionPool, creator.ID, data.WithdrawalPaidAuditEvent)
		require.Len(t, auditLogs, 1)
		assert.Equal(t, approved.ID, auditLogs[0].Metadata["withdrawal_id"])
		assert.Equal(t, "400.00", auditLogs[0].Metadata["amount"])
		assert.Equal(t, "PAY-REF-7", auditLogs[0].Metadata["provider_ref"])

		require.Len(t, published, 2)
		assert.Equal(t, events.WithdrawalPaidType, published[0].Type)
		eventData, ok := published[0].Data.(events.WithdrawalEventData)
		require.True(t, ok)
		assert.Equal(t, "PAY-REF-7", eventData.ProviderRef)
		assert.Equal(t, events.WalletUpdatedType, published[1].Type)
		walletData, ok := published[1].Data.(events.WalletUpdatedData)
		require.True(t, ok)
		assert.Equal(t, "600.00", walletData.BalanceETB.StringFixed(2))
		assert.Equal(t, "0.00", walletData.HoldETB.StringFixed(2))

		// Re-running is a no-op once the withdrawal left APPROVED.
		require.NoError(t, service.ProcessPayout(ctx, approved.ID))
	})
}
