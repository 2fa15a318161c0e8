package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fikir-app/fikir-backend/internal/monitor"
)

func TestDBTransactionWithMetrics_Commit(t *testing.T) {
	t.Parallel()
	dbConnectionPool := openTestDBConnectionPool(t)

	mMonitorService := &monitor.MockMonitorService{}
	defer mMonitorService.AssertExpectations(t)

	ctx := context.Background()
	dbTx, err := dbConnectionPool.BeginTxx(ctx, nil)
	require.NoError(t, err)
	// Defer a rollback in case anything fails.
	defer func() {
		err = dbTx.Rollback()
		require.Error(t, err, "not in transaction")
	}()

	dbTransactionWithMetrics, err := NewDBTransactionWithMetrics(dbTx, mMonitorService)
	require.NoError(t, err)

	err = dbTransactionWithMetrics.Commit()
	require.NoError(t, err)
}

func TestDBTransactionWithMetrics_Rollback(t *testing.T) {
	t.Parallel()
	dbConnectionPool := openTestDBConnectionPool(t)

	mMonitorService := &monitor.MockMonitorService{}
	defer mMonitorService.AssertExpectations(t)

	ctx := context.Background()
	dbTx, err := dbConnectionPool.BeginTxx(ctx, nil)
	require.NoError(t, err)

	dbTransactionWithMetrics, err := NewDBTransactionWithMetrics(dbTx, mMonitorService)
	require.NoError(t, err)

	err = dbTransactionWithMetrics.Rollback()
	require.NoError(t, err)
}

func Test_NewDBTransactionWithMetrics(t *testing.T) {
	t.Parallel()

	t.Run("error when transaction is nil", func(t *testing.T) {
		mMonitorService := &monitor.MockMonitorService{}

		gotTx, err := NewDBTransactionWithMetrics(nil, mMonitorService)
		require.EqualError(t, err, "error creating SQLExecuterWithMetrics: sqlExec cannot be nil")
		require.Nil(t, gotTx)
	})

	t.Run("error when monitor service is nil", func(t *testing.T) {
		dbConnectionPool := openTestDBConnectionPool(t)

		ctx := context.Background()
		dbTx, err := dbConnectionPool.BeginTxx(ctx, nil)
		require.NoError(t, err)
		defer func() {
			err = dbTx.Rollback()
			require.NoError(t, err)
		}()

		gotTx, err := NewDBTransactionWithMetrics(dbTx, nil)
		require.EqualError(t, err, "error creating SQLExecuterWithMetrics: monitorServiceInterface cannot be nil")
		require.Nil(t, gotTx)
	})
}
