package data

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fikir-app/fikir-backend/db"
	"github.com/fikir-app/fikir-backend/db/dbtest"
)

func Test_ReceiptModel_InsertIfAbsent(t *testing.T) {
	dbt := dbtest.Open(t)
	defer dbt.Close()

	dbConnectionPool, err := db.OpenDBConnectionPool(dbt.DSN)
	require.NoError(t, err)
	defer dbConnectionPool.Close()

	ctx := context.Background()

	receiptModel := &ReceiptModel{dbConnectionPool: dbConnectionPool}
	user := CreateUserFixture(t, ctx, dbConnectionPool, "", false)
	payment := CreatePaymentFixture(t, ctx, dbConnectionPool, user.ID, nil, SuccessPaymentStatus, "",
		decimal.RequireFromString("120.62"), decimal.RequireFromString("15.00"))

	t.Run("returns ErrMissingInput when payment ID is empty", func(t *testing.T) {
		err := receiptModel.InsertIfAbsent(ctx, dbConnectionPool, "", decimal.Zero, decimal.Zero, nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrMissingInput)
	})

	t.Run("writes one receipt per payment", func(t *testing.T) {
		providerRef := "chapa-ref-001"
		err := receiptModel.InsertIfAbsent(ctx, dbConnectionPool, payment.ID,
			decimal.RequireFromString("120.62"), decimal.RequireFromString("15.00"), &providerRef)
		require.NoError(t, err)

		receipt, err := receiptModel.GetByPaymentID(ctx, dbConnectionPool, payment.ID)
		require.NoError(t, err)
		assert.True(t, receipt.PriceETB.Equal(decimal.RequireFromString("120.62")))
		assert.True(t, receipt.VATETB.Equal(decimal.RequireFromString("15.00")))
		require.NotNil(t, receipt.ProviderRef)
		assert.Equal(t, providerRef, *receipt.ProviderRef)

		t.Run("replay is a no-op", func(t *testing.T) {
			otherRef := "chapa-ref-replayed"
			err := receiptModel.InsertIfAbsent(ctx, dbConnectionPool, payment.ID,
				decimal.RequireFromString("999.99"), decimal.Zero, &otherRef)
			require.NoError(t, err)

			replayed, err := receiptModel.GetByPaymentID(ctx, dbConnectionPool, payment.ID)
			require.NoError(t, err)
			assert.Equal(t, receipt.ID, replayed.ID)
			assert.True(t, replayed.PriceETB.Equal(decimal.RequireFromString("120.62")))
			require.NotNil(t, replayed.ProviderRef)
			assert.Equal(t, providerRef, *replayed.ProviderRef)
		})
	})
}

func Test_ReceiptModel_GetByPaymentID(t *testing.T) {
	dbt := dbtest.Open(t)
	defer dbt.Close()

	dbConnectionPool, err := db.OpenDBConnectionPool(dbt.DSN)
	require.NoError(t, err)
	defer dbConnectionPool.Close()

	ctx := context.Background()

	receiptModel := &ReceiptModel{dbConnectionPool: dbConnectionPool}

	_, err = receiptModel.GetByPaymentID(ctx, dbConnectionPool, "00000000-0000-0000-0000-000000000000")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRecordNotFound)
}
