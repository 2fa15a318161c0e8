package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/fikir-app/fikir-backend/internal/data"
	"github.com/fikir-app/fikir-backend/internal/services"
	"github.com/fikir-app/fikir-backend/internal/support/log"
)

const (
	payoutRetryJobName     = "payout_retry_job"
	payoutRetryJobInterval = time.Minute * 10
	payoutRetryAttempts    = 3
	payoutRetryBatchSize   = 50

	// payoutRetryStaleAfter keeps the sweep away from withdrawals the
	// approval hand-off is still driving.
	payoutRetryStaleAfter = time.Minute * 10
)

// payoutRetryJob re-drives approved withdrawals whose payout did not settle.
// A failed payout records its reason but leaves the withdrawal APPROVED, so
// every stale APPROVED row is a payout waiting to be retried. ProcessPayout
// no-ops on rows that settled in the meantime, which makes the sweep safe to
// run alongside the approval hand-off.
type payoutRetryJob struct {
	models          *data.Models
	payoutProcessor services.PayoutProcessorInterface
}

func NewPayoutRetryJob(models *data.Models, payoutProcessor services.PayoutProcessorInterface) Job {
	return &payoutRetryJob{
		models:          models,
		payoutProcessor: payoutProcessor,
	}
}

func (j payoutRetryJob) Execute(ctx context.Context) error {
	updatedBefore := time.Now().Add(-payoutRetryStaleAfter)
	withdrawals, err := j.models.Withdrawals.ListStaleApproved(ctx, j.models.DBConnectionPool, updatedBefore, payoutRetryBatchSize)
	if err != nil {
		err = fmt.Errorf("listing stale approved withdrawals: %w", err)
		log.Ctx(ctx).Error(err)
		return err
	}
	if len(withdrawals) == 0 {
		return nil
	}
	log.Ctx(ctx).Infof("retrying payout for %d approved withdrawal(s)", len(withdrawals))

	var failed int
	for _, withdrawal := range withdrawals {
		withdrawalID := withdrawal.ID
		retryErr := retry.Do(
			func() error {
				return j.payoutProcessor.ProcessPayout(ctx, withdrawalID)
			},
			retry.Attempts(payoutRetryAttempts),
			retry.DelayType(retry.BackOffDelay),
			retry.Context(ctx),
		)
		if retryErr != nil {
			failed++
			log.Ctx(ctx).Errorf("retrying payout for withdrawal %s: %v", withdrawalID, retryErr)
		}
	}
	if failed > 0 {
		return fmt.Errorf("payout retry failed for %d of %d withdrawal(s)", failed, len(withdrawals))
	}
	return nil
}

func (j payoutRetryJob) GetInterval() time.Duration {
	return payoutRetryJobInterval
}

func (j payoutRetryJob) GetName() string {
	return payoutRetryJobName
}

var _ Job = (*payoutRetryJob)(nil)
