package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/fikir-app/fikir-backend/internal/data"
	"github.com/fikir-app/fikir-backend/internal/services"
	"github.com/fikir-app/fikir-backend/internal/support/log"
)

const (
	riskSweepJobName     = "risk_sweep_job"
	riskSweepJobInterval = time.Minute * 10
)

// riskSweepJob re-runs the risk rules for every user with recent audited
// activity. Live traffic already evaluates after each money event; the sweep
// is what clears a flag once its triggering activity ages out of the rule
// window, since aging out produces no event of its own.
type riskSweepJob struct {
	models        *data.Models
	riskEvaluator services.RiskEvaluatorInterface
	lookback      time.Duration
}

func NewRiskSweepJob(models *data.Models, riskEvaluator services.RiskEvaluatorInterface, riskConfig services.RiskConfig) Job {
	// Sweeping twice the widest rule window guarantees every flagged user is
	// still in the working set when their activity ages out.
	lookback := 2 * max(riskConfig.TopUpsWindow, riskConfig.GiftsWindow, riskConfig.WithdrawalsWindow)
	if lookback <= 0 {
		lookback = 2 * time.Hour
	}
	return &riskSweepJob{
		models:        models,
		riskEvaluator: riskEvaluator,
		lookback:      lookback,
	}
}

func (j riskSweepJob) Execute(ctx context.Context) error {
	since := time.Now().Add(-j.lookback)
	userIDs, err := j.models.AuditLogs.DistinctUserIDsSince(ctx, j.models.DBConnectionPool, since)
	if err != nil {
		err = fmt.Errorf("listing recently active users for risk sweep: %w", err)
		log.Ctx(ctx).Error(err)
		return err
	}

	var failed int
	for _, userID := range userIDs {
		if _, evalErr := j.riskEvaluator.EvaluateAndApply(ctx, userID); evalErr != nil {
			failed++
			log.Ctx(ctx).Errorf("evaluating risk for user %s: %v", userID, evalErr)
		}
	}
	if failed > 0 {
		return fmt.Errorf("risk sweep failed for %d of %d user(s)", failed, len(userIDs))
	}
	return nil
}

func (j riskSweepJob) GetInterval() time.Duration {
	return riskSweepJobInterval
}

func (j riskSweepJob) GetName() string {
	return riskSweepJobName
}

var _ Job = (*riskSweepJob)(nil)
