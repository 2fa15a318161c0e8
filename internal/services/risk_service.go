package services

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fikir-app/fikir-backend/db"
	"github.com/fikir-app/fikir-backend/internal/data"
	"github.com/fikir-app/fikir-backend/internal/events"
	"github.com/fikir-app/fikir-backend/internal/monitor"
	"github.com/fikir-app/fikir-backend/internal/support/log"
)

type RiskEvaluatorInterface interface {
	EvaluateAndApply(ctx context.Context, userID string) ([]string, error)
}

// RiskConfig holds the thresholds for the three risk rules.
type RiskConfig struct {
	TopUpsWindow time.Duration
	TopUpsCount  int64

	GiftsWindow       time.Duration
	GiftsETBThreshold decimal.Decimal

	WithdrawalsWindow    time.Duration
	SameDestinationCount int64
}

func DefaultRiskConfig() RiskConfig {
	return RiskConfig{
		TopUpsWindow:         time.Hour,
		TopUpsCount:          5,
		GiftsWindow:          time.Hour,
		GiftsETBThreshold:    decimal.NewFromInt(10000),
		WithdrawalsWindow:    time.Hour,
		SameDestinationCount: 3,
	}
}

// RiskService flags wallets whose recent activity looks like laundering:
// rapid top-ups, an unusual volume of received gifts, or repeated
// withdrawals to one destination. Flagged wallets cannot withdraw until an
// admin clears them; the flag itself clears automatically when the activity
// ages out of the windows.
type RiskService struct {
	Models           *data.Models
	DBConnectionPool db.DBConnectionPool
	EventPublisher   events.Publisher
	MonitorService   monitor.MonitorServiceInterface
	Config           RiskConfig
}

var _ RiskEvaluatorInterface = (*RiskService)(nil)

// Evaluate runs the rules and returns the reasons that currently hold for
// the user, without changing any state.
func (s *RiskService) Evaluate(ctx context.Context, sqlExec db.SQLExecuter, userID string) ([]string, error) {
	now := time.Now()
	var reasons []string

	topUps, err := s.Models.Payments.CountSuccessSince(ctx, sqlExec, userID, now.Add(-s.Config.TopUpsWindow))
	if err != nil {
		return nil, fmt.Errorf("counting recent top-ups: %w", err)
	}
	if topUps >= s.Config.TopUpsCount {
		reasons = append(reasons, fmt.Sprintf("excessive_topups:%d in %dm", topUps, int(s.Config.TopUpsWindow.Minutes())))
	}

	giftsValue, err := s.Models.GiftTransactions.ReceivedValueSince(ctx, sqlExec, userID, now.Add(-s.Config.GiftsWindow))
	if err != nil {
		return nil, fmt.Errorf("summing recent received gifts: %w", err)
	}
	if giftsValue.GreaterThanOrEqual(s.Config.GiftsETBThreshold) {
		reasons = append(reasons, fmt.Sprintf("large_gifts:%s in %dm", giftsValue.StringFixed(2), int(s.Config.GiftsWindow.Minutes())))
	}

	destination, count, err := s.Models.Withdrawals.TopDestinationSince(ctx, sqlExec, userID, now.Add(-s.Config.WithdrawalsWindow))
	if err != nil {
		return nil, fmt.Errorf("finding repeated withdrawal destination: %w", err)
	}
	if count >= s.Config.SameDestinationCount {
		reasons = append(reasons, fmt.Sprintf("repeat_withdraw_destination:%s x%d", destination, count))
	}

	return reasons, nil
}

// EvaluateAndApply runs the rules and reconciles the wallet's block flag
// with the result. Audit rows are written only on transitions, so repeated
// evaluations of an already-flagged user stay silent.
func (s *RiskService) EvaluateAndApply(ctx context.Context, userID string) ([]string, error) {
	type riskOutcome struct {
		reasons []string
		flagged bool
	}

	outcome, err := db.RunInTransactionWithResult(ctx, s.DBConnectionPool, nil, func(dbTx db.DBTransaction) (*riskOutcome, error) {
		reasons, evalErr := s.Evaluate(ctx, dbTx, userID)
		if evalErr != nil {
			return nil, evalErr
		}

		if len(reasons) > 0 {
			if _, walletErr := s.Models.Wallets.GetOrCreate(ctx, dbTx, userID); walletErr != nil {
				return nil, fmt.Errorf("ensuring wallet for user %s: %w", userID, walletErr)
			}

			changed, blockErr := s.Models.Wallets.SetWithdrawalsBlocked(ctx, dbTx, userID, true)
			if blockErr != nil {
				return nil, fmt.Errorf("blocking withdrawals for user %s: %w", userID, blockErr)
			}
			if changed {
				if _, auditErr := s.Models.AuditLogs.Insert(ctx, dbTx, &userID, data.RiskFlaggedAuditEvent, data.AuditMetadata{
					"reasons": reasons,
				}); auditErr != nil {
					return nil, fmt.Errorf("auditing risk flag: %w", auditErr)
				}
			}
			return &riskOutcome{reasons: reasons, flagged: changed}, nil
		}

		changed, clearErr := s.Models.Wallets.SetWithdrawalsBlocked(ctx, dbTx, userID, false)
		if clearErr != nil {
			return nil, fmt.Errorf("clearing withdrawal block for user %s: %w", userID, clearErr)
		}
		if changed {
			if _, auditErr := s.Models.AuditLogs.Insert(ctx, dbTx, &userID, data.RiskClearedAuditEvent, data.AuditMetadata{}); auditErr != nil {
				return nil, fmt.Errorf("auditing risk clear: %w", auditErr)
			}
		}
		return &riskOutcome{reasons: reasons}, nil
	})
	if err != nil {
		return nil, err
	}

	if outcome.flagged {
		events.PublishBestEffort(ctx, s.EventPublisher, events.Message{
			Group: events.AdminsGroup,
			Type:  events.RiskFlagType,
			Data: events.RiskFlagData{
				UserID:  userID,
				Reasons: outcome.reasons,
			},
		})
		monitorCount(ctx, s.MonitorService, monitor.RiskFlagsRaisedCounterTag)
	}

	return outcome.reasons, nil
}

// evaluateRisk runs a best-effort risk evaluation after a money-moving
// operation commits. Failures are logged, never surfaced.
func evaluateRisk(ctx context.Context, evaluator RiskEvaluatorInterface, userID string) {
	if evaluator == nil {
		return
	}
	if _, err := evaluator.EvaluateAndApply(ctx, userID); err != nil {
		log.Ctx(ctx).Errorf("evaluating risk for user %s: %v", userID, err)
	}
}
