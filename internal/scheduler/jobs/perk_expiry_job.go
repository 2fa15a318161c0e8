package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/fikir-app/fikir-backend/internal/data"
	"github.com/fikir-app/fikir-backend/internal/support/log"
)

const (
	perkExpiryJobName     = "perk_expiry_job"
	perkExpiryJobInterval = time.Minute * 5
)

// perkExpiryJob clears subscription perk flags whose paid period has ended.
// Perk reads also check the expiry timestamp, so the sweep exists to keep the
// user rows honest for direct queries and exports.
type perkExpiryJob struct {
	models *data.Models
}

func NewPerkExpiryJob(models *data.Models) Job {
	return &perkExpiryJob{models: models}
}

func (j perkExpiryJob) Execute(ctx context.Context) error {
	cleared, err := j.models.Users.ClearExpiredPerks(ctx, j.models.DBConnectionPool, time.Now())
	if err != nil {
		err = fmt.Errorf("clearing expired subscription perks: %w", err)
		log.Ctx(ctx).Error(err)
		return err
	}
	if cleared > 0 {
		log.Ctx(ctx).Infof("cleared %d expired subscription perk(s)", cleared)
	}
	return nil
}

func (j perkExpiryJob) GetInterval() time.Duration {
	return perkExpiryJobInterval
}

func (j perkExpiryJob) GetName() string {
	return perkExpiryJobName
}

var _ Job = (*perkExpiryJob)(nil)
