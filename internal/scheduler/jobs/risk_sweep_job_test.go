package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fikir-app/fikir-backend/db"
	"github.com/fikir-app/fikir-backend/db/dbtest"
	"github.com/fikir-app/fikir-backend/internal/data"
	"github.com/fikir-app/fikir-backend/internal/services"
	"github.com/fikir-app/fikir-backend/internal/support/log"
)

func Test_RiskSweepJob(t *testing.T) {
	j := riskSweepJob{}

	assert.Equal(t, riskSweepJobName, j.GetName())
	assert.Equal(t, riskSweepJobInterval, j.GetInterval())
}

func Test_RiskSweepJob_lookback(t *testing.T) {
	t.Run("🎉 derives the lookback from the widest rule window", func(t *testing.T) {
		riskConfig := services.DefaultRiskConfig()
		riskConfig.GiftsWindow = 3 * time.Hour

		j, ok := NewRiskSweepJob(nil, nil, riskConfig).(*riskSweepJob)
		require.True(t, ok)
		assert.Equal(t, 6*time.Hour, j.lookback)
	})

	t.Run("🎉 falls back to a sane lookback when the windows are zero", func(t *testing.T) {
		j, ok := NewRiskSweepJob(nil, nil, services.RiskConfig{}).(*riskSweepJob)
		require.True(t, ok)
		assert.Equal(t, 2*time.Hour, j.lookback)
	})
}

func Test_RiskSweepJob_Execute(t *testing.T) {
	dbt := dbtest.Open(t)
	defer dbt.Close()

	dbConnectionPool, err := db.OpenDBConnectionPool(dbt.DSN)
	require.NoError(t, err)
	defer dbConnectionPool.Close()

	models, err := data.NewModels(dbConnectionPool)
	require.NoError(t, err)

	ctx := context.Background()

	recentUser := data.CreateUserFixture(t, ctx, dbConnectionPool, "recently_active", false)
	dormantUser := data.CreateUserFixture(t, ctx, dbConnectionPool, "long_dormant", false)

	_, err = models.AuditLogs.Insert(ctx, dbConnectionPool, &recentUser.ID, data.GiftSentAuditEvent, data.AuditMetadata{"amount_etb": "100"})
	require.NoError(t, err)

	dormantLog, err := models.AuditLogs.Insert(ctx, dbConnectionPool, &dormantUser.ID, data.GiftSentAuditEvent, data.AuditMetadata{"amount_etb": "100"})
	require.NoError(t, err)
	_, err = dbConnectionPool.ExecContext(ctx,
		"UPDATE audit_logs SET created_at = $1 WHERE id = $2",
		time.Now().UTC().Add(-72*time.Hour), dormantLog.ID)
	require.NoError(t, err)

	mockRiskEvaluator := services.NewMockRiskEvaluator(t)
	j := &riskSweepJob{
		models:        models,
		riskEvaluator: mockRiskEvaluator,
		lookback:      2 * time.Hour,
	}

	t.Run("returns error when the evaluator fails", func(t *testing.T) {
		getEntries := log.DefaultLogger.StartTest(log.ErrorLevel)
		mockRiskEvaluator.
			On("EvaluateAndApply", ctx, recentUser.ID).
			Return(nil, errors.New("unexpected error")).
			Once()

		err := j.Execute(ctx)
		assert.EqualError(t, err, "risk sweep failed for 1 of 1 user(s)")

		entries := getEntries()
		require.Len(t, entries, 1)
		assert.Contains(t, entries[0].Message, "evaluating risk for user "+recentUser.ID)
	})

	t.Run("🎉 re-evaluates only users with recent activity", func(t *testing.T) {
		mockRiskEvaluator.
			On("EvaluateAndApply", ctx, recentUser.ID).
			Return([]string{}, nil).
			Once()

		err := j.Execute(ctx)
		assert.NoError(t, err)
		mockRiskEvaluator.AssertNotCalled(t, "EvaluateAndApply", ctx, dormantUser.ID)
	})
}

func Test_NewRiskSweepJob(t *testing.T) {
	dbt := dbtest.Open(t)
	defer dbt.Close()

	dbConnectionPool, err := db.OpenDBConnectionPool(dbt.DSN)
	require.NoError(t, err)
	defer dbConnectionPool.Close()

	models, err := data.NewModels(dbConnectionPool)
	require.NoError(t, err)

	j := NewRiskSweepJob(models, services.NewMockRiskEvaluator(t), services.DefaultRiskConfig())
	assert.NotNil(t, j)
}
