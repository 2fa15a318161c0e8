package services

import (
	"context"
	"fmt"
	"time"

	"github.com/fikir-app/fikir-backend/db"
	"github.com/fikir-app/fikir-backend/internal/data"
	"github.com/fikir-app/fikir-backend/internal/events"
	"github.com/fikir-app/fikir-backend/internal/monitor"
	"github.com/fikir-app/fikir-backend/internal/payout"
	"github.com/fikir-app/fikir-backend/internal/support/log"
)

// PayoutService executes approved withdrawals against the payout provider.
// The provider call happens outside any transaction; only a confirmed PAID
// result settles the hold, so a crash between the two leaves the withdrawal
// APPROVED for the retry sweep.
type PayoutService struct {
	Models           *data.Models
	DBConnectionPool db.DBConnectionPool
	Payouter         payout.Payouter
	EventPublisher   events.Publisher
	MonitorService   monitor.MonitorServiceInterface
}

var _ PayoutProcessorInterface = (*PayoutService)(nil)

// ProcessPayout pays out one withdrawal. It is a no-op for anything not
// APPROVED, which makes it safe to call from both the approval hand-off and
// the retry sweep.
func (s *PayoutService) ProcessPayout(ctx context.Context, withdrawalID string) error {
	withdrawal, err := s.Models.Withdrawals.Get(ctx, s.DBConnectionPool, withdrawalID)
	if err != nil {
		return fmt.Errorf("getting withdrawal %s: %w", withdrawalID, err)
	}
	if withdrawal.Status != data.ApprovedWithdrawalStatus {
		log.Ctx(ctx).Debugf("skipping payout for withdrawal %s in status %s", withdrawal.ID, withdrawal.Status)
		return nil
	}

	result, err := s.Payouter.Pay(ctx, withdrawal)
	if err != nil {
		s.recordFailure(ctx, withdrawal.ID, err.Error())
		return fmt.Errorf("paying out withdrawal %s: %w", withdrawal.ID, err)
	}

	if result.Status != payout.StatusPaid {
		s.recordFailure(ctx, withdrawal.ID, result.FailureReason)
		log.Ctx(ctx).Warnf("payout for withdrawal %s not paid: %s", withdrawal.ID, result.FailureReason)
		return nil
	}

	return s.settlePaid(ctx, withdrawal.ID, result.ProviderRef)
}

func (s *PayoutService) settlePaid(ctx context.Context, withdrawalID, providerRef string) error {
	type paidResult struct {
		withdrawal *data.Withdrawal
		wallet     *data.Wallet
	}

	result, err := db.RunInTransactionWithResult(ctx, s.DBConnectionPool, nil, func(dbTx db.DBTransaction) (*paidResult, error) {
		withdrawal, lockErr := s.Models.Withdrawals.GetForUpdate(ctx, dbTx, withdrawalID)
		if lockErr != nil {
			return nil, fmt.Errorf("locking withdrawal %s: %w", withdrawalID, lockErr)
		}
		if withdrawal.Status != data.ApprovedWithdrawalStatus {
			// Another worker settled it between Pay and here.
			return nil, nil
		}

		wallet, walletErr := s.Models.Wallets.GetByUserIDForUpdate(ctx, dbTx, withdrawal.UserID)
		if walletErr != nil {
			return nil, fmt.Errorf("locking wallet for user %s: %w", withdrawal.UserID, walletErr)
		}

		if settleErr := s.Models.Wallets.SettleWithdrawal(ctx, dbTx, wallet.ID, withdrawal.AmountETB); settleErr != nil {
			return nil, fmt.Errorf("settling hold on wallet %s: %w", wallet.ID, settleErr)
		}

		updated, paidErr := s.Models.Withdrawals.MarkPaid(ctx, dbTx, withdrawalID, providerRef, time.Now())
		if paidErr != nil {
			return nil, fmt.Errorf("marking withdrawal %s paid: %w", withdrawalID, paidErr)
		}

		_, auditErr := s.Models.AuditLogs.Insert(ctx, dbTx, &updated.UserID, data.WithdrawalPaidAuditEvent, data.AuditMetadata{
			"withdrawal_id": updated.ID,
			"amount":        updated.AmountETB.StringFixed(2),
			"provider_ref":  providerRef,
		})
		if auditErr != nil {
			return nil, fmt.Errorf("auditing withdrawal payout: %w", auditErr)
		}

		wallet.BalanceETB = wallet.BalanceETB.Sub(withdrawal.AmountETB)
		wallet.HoldETB = wallet.HoldETB.Sub(withdrawal.AmountETB)
		return &paidResult{withdrawal: updated, wallet: wallet}, nil
	})
	if err != nil {
		return err
	}
	if result == nil {
		return nil
	}

	events.PublishBestEffort(ctx, s.EventPublisher,
		events.Message{
			Group: events.UserGroup(result.withdrawal.UserID),
			Type:  events.WithdrawalPaidType,
			Data: events.WithdrawalEventData{
				WithdrawalID: result.withdrawal.ID,
				AmountETB:    result.withdrawal.AmountETB,
				ProviderRef:  providerRef,
			},
		},
		events.Message{
			Group: events.UserGroup(result.withdrawal.UserID),
			Type:  events.WalletUpdatedType,
			Data:  walletUpdatedData(result.wallet),
		},
	)
	monitorCount(ctx, s.MonitorService, monitor.WithdrawalsPaidCounterTag)

	return nil
}

// recordFailure stores the failure reason on the withdrawal without leaving
// APPROVED, so the retry sweep picks it up again.
func (s *PayoutService) recordFailure(ctx context.Context, withdrawalID, reason string) {
	if err := s.Models.Withdrawals.RecordPayoutFailure(ctx, s.DBConnectionPool, withdrawalID, reason); err != nil {
		log.Ctx(ctx).Errorf("recording payout failure for withdrawal %s: %v", withdrawalID, err)
	}
}
