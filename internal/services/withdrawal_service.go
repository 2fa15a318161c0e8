package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fikir-app/fikir-backend/db"
	"github.com/fikir-app/fikir-backend/internal/data"
	"github.com/fikir-app/fikir-backend/internal/events"
	"github.com/fikir-app/fikir-backend/internal/money"
	"github.com/fikir-app/fikir-backend/internal/support/log"
)

const defaultRejectionReason = "Rejected by admin"

// Withdrawal limits use rolling windows rather than calendar buckets, so a
// burst right before midnight cannot double the effective daily cap.
const (
	dailyLimitWindow   = 24 * time.Hour
	monthlyLimitWindow = 30 * 24 * time.Hour
)

// minimumKYCLevelForWithdrawal is the verification level a wallet needs
// before earnings can leave the platform.
const minimumKYCLevelForWithdrawal = 2

type WithdrawalServiceInterface interface {
	CreateWithdrawal(ctx context.Context, userID string, method data.WithdrawalMethod, destination string, amount decimal.Decimal) (*data.Withdrawal, error)
	Approve(ctx context.Context, reviewerID, withdrawalID string) (*data.Withdrawal, error)
	Reject(ctx context.Context, reviewerID, withdrawalID, reason string) (*data.Withdrawal, error)
	GetWithdrawalsWithCount(ctx context.Context, queryParams *data.QueryParams) (*WithdrawalsPaginatedResponse, error)
}

// WithdrawalsPaginatedResponse is one page of the admin withdrawal queue.
type WithdrawalsPaginatedResponse struct {
	TotalWithdrawals int
	Withdrawals      []data.Withdrawal
}

// PayoutProcessorInterface pays out one approved withdrawal. It is
// implemented by PayoutService.
type PayoutProcessorInterface interface {
	ProcessPayout(ctx context.Context, withdrawalID string) error
}

// WithdrawalService owns the creator withdrawal lifecycle: requests place a
// hold on earnings, admins approve or reject, and approval hands off to the
// payout processor.
type WithdrawalService struct {
	Models           *data.Models
	DBConnectionPool db.DBConnectionPool
	EventPublisher   events.Publisher
	RiskEvaluator    RiskEvaluatorInterface
	PayoutProcessor  PayoutProcessorInterface

	MinWithdrawalETB        decimal.Decimal
	MaxDailyWithdrawalETB   decimal.Decimal
	MaxMonthlyWithdrawalETB decimal.Decimal
}

var _ WithdrawalServiceInterface = (*WithdrawalService)(nil)

// CreateWithdrawal checks the withdrawal policy and, inside one transaction,
// re-checks it under a wallet lock, places the hold and inserts the PENDING
// request. The policy order is fixed: block flag, KYC, minimum, available
// balance, daily cap, monthly cap.
func (s *WithdrawalService) CreateWithdrawal(ctx context.Context, userID string, method data.WithdrawalMethod, destination string, amount decimal.Decimal) (*data.Withdrawal, error) {
	if err := method.Validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(destination) == "" {
		return nil, fmt.Errorf("destination is required")
	}
	amount = money.Round2(amount)

	withdrawal, err := db.RunInTransactionWithResult(ctx, s.DBConnectionPool, nil, func(dbTx db.DBTransaction) (*data.Withdrawal, error) {
		if _, walletErr := s.Models.Wallets.GetOrCreate(ctx, dbTx, userID); walletErr != nil {
			return nil, fmt.Errorf("ensuring wallet for user %s: %w", userID, walletErr)
		}
		wallet, lockErr := s.Models.Wallets.GetByUserIDForUpdate(ctx, dbTx, userID)
		if lockErr != nil {
			return nil, fmt.Errorf("locking wallet for user %s: %w", userID, lockErr)
		}

		if policyErr := s.checkPolicy(ctx, dbTx, wallet, amount); policyErr != nil {
			return nil, policyErr
		}

		if holdErr := s.Models.Wallets.PlaceHold(ctx, dbTx, wallet.ID, amount); holdErr != nil {
			if errors.Is(holdErr, data.ErrInsufficientBalance) {
				return nil, ErrInsufficientAvailable
			}
			return nil, fmt.Errorf("placing hold on wallet %s: %w", wallet.ID, holdErr)
		}

		inserted, insertErr := s.Models.Withdrawals.Insert(ctx, dbTx, data.WithdrawalInsert{
			UserID:      userID,
			Method:      method,
			Destination: destination,
			AmountETB:   amount,
		})
		if insertErr != nil {
			return nil, fmt.Errorf("inserting withdrawal: %w", insertErr)
		}

		_, auditErr := s.Models.AuditLogs.Insert(ctx, dbTx, &userID, data.WithdrawalRequestedAuditEvent, data.AuditMetadata{
			"withdrawal_id": inserted.ID,
			"amount":        inserted.AmountETB.StringFixed(2),
			"method":        string(inserted.Method),
			"destination":   inserted.Destination,
		})
		if auditErr != nil {
			return nil, fmt.Errorf("auditing withdrawal request: %w", auditErr)
		}

		return inserted, nil
	})
	if err != nil {
		return nil, err
	}

	events.PublishBestEffort(ctx, s.EventPublisher, events.Message{
		Group: events.AdminsGroup,
		Type:  events.WithdrawalNewType,
		Data: events.WithdrawalEventData{
			WithdrawalID: withdrawal.ID,
			UserID:       withdrawal.UserID,
			AmountETB:    withdrawal.AmountETB,
			Method:       string(withdrawal.Method),
		},
	})
	evaluateRisk(ctx, s.RiskEvaluator, userID)

	return withdrawal, nil
}

func (s *WithdrawalService) checkPolicy(ctx context.Context, dbTx db.DBTransaction, wallet *data.Wallet, amount decimal.Decimal) error {
	if wallet.WithdrawalsBlocked {
		return ErrWithdrawalsBlocked
	}
	if wallet.KYCLevel < minimumKYCLevelForWithdrawal {
		return ErrKYCInsufficient
	}
	if amount.LessThan(s.MinWithdrawalETB) || !amount.IsPositive() {
		return ErrBelowMinWithdrawal
	}
	if amount.GreaterThan(wallet.AvailableETB()) {
		return ErrInsufficientAvailable
	}

	now := time.Now()
	daySum, err := s.Models.Withdrawals.SumNonRejectedSince(ctx, dbTx, wallet.UserID, now.Add(-dailyLimitWindow))
	if err != nil {
		return fmt.Errorf("summing daily withdrawals: %w", err)
	}
	if daySum.Add(amount).GreaterThan(s.MaxDailyWithdrawalETB) {
		return ErrDailyLimitExceeded
	}

	monthSum, err := s.Models.Withdrawals.SumNonRejectedSince(ctx, dbTx, wallet.UserID, now.Add(-monthlyLimitWindow))
	if err != nil {
		return fmt.Errorf("summing monthly withdrawals: %w", err)
	}
	if monthSum.Add(amount).GreaterThan(s.MaxMonthlyWithdrawalETB) {
		return ErrMonthlyLimitExceeded
	}

	return nil
}

// GetWithdrawalsWithCount returns one page of withdrawals and the unpaged
// total, both read in a single transaction so the count matches the page.
func (s *WithdrawalService) GetWithdrawalsWithCount(ctx context.Context, queryParams *data.QueryParams) (*WithdrawalsPaginatedResponse, error) {
	opts := &sql.TxOptions{Isolation: sql.LevelReadCommitted, ReadOnly: true}
	return db.RunInTransactionWithResult(ctx, s.DBConnectionPool, opts, func(dbTx db.DBTransaction) (*WithdrawalsPaginatedResponse, error) {
		total, err := s.Models.Withdrawals.Count(ctx, dbTx, queryParams)
		if err != nil {
			return nil, fmt.Errorf("counting withdrawals: %w", err)
		}

		var withdrawals []data.Withdrawal
		if total != 0 {
			withdrawals, err = s.Models.Withdrawals.GetAll(ctx, dbTx, queryParams)
			if err != nil {
				return nil, fmt.Errorf("querying withdrawals: %w", err)
			}
		}

		return &WithdrawalsPaginatedResponse{
			TotalWithdrawals: total,
			Withdrawals:      withdrawals,
		}, nil
	})
}

// Approve moves a PENDING withdrawal to APPROVED and kicks off the payout
// asynchronously. The payout itself reports its own success or failure; a
// failed payout leaves the withdrawal APPROVED for the retry sweep.
func (s *WithdrawalService) Approve(ctx context.Context, reviewerID, withdrawalID string) (*data.Withdrawal, error) {
	approved, err := db.RunInTransactionWithResult(ctx, s.DBConnectionPool, nil, func(dbTx db.DBTransaction) (*data.Withdrawal, error) {
		withdrawal, lockErr := s.Models.Withdrawals.GetForUpdate(ctx, dbTx, withdrawalID)
		if lockErr != nil {
			return nil, fmt.Errorf("locking withdrawal %s: %w", withdrawalID, lockErr)
		}
		if transitionErr := withdrawal.Status.TransitionTo(data.ApprovedWithdrawalStatus); transitionErr != nil {
			return nil, fmt.Errorf("%w: withdrawal %s: %s", ErrInvalidStatusTransition, withdrawal.ID, transitionErr)
		}

		updated, approveErr := s.Models.Withdrawals.Approve(ctx, dbTx, withdrawalID, reviewerID)
		if approveErr != nil {
			return nil, fmt.Errorf("approving withdrawal %s: %w", withdrawalID, approveErr)
		}

		_, auditErr := s.Models.AuditLogs.Insert(ctx, dbTx, &updated.UserID, data.WithdrawalApprovedAuditEvent, data.AuditMetadata{
			"withdrawal_id": updated.ID,
			"amount":        updated.AmountETB.StringFixed(2),
			"method":        string(updated.Method),
			"reviewed_by":   reviewerID,
		})
		if auditErr != nil {
			return nil, fmt.Errorf("auditing withdrawal approval: %w", auditErr)
		}

		return updated, nil
	})
	if err != nil {
		return nil, err
	}

	if s.PayoutProcessor != nil {
		payoutCtx := context.WithoutCancel(ctx)
		go func() {
			if payoutErr := s.PayoutProcessor.ProcessPayout(payoutCtx, approved.ID); payoutErr != nil {
				log.Ctx(payoutCtx).Errorf("processing payout for withdrawal %s: %v", approved.ID, payoutErr)
			}
		}()
	}

	return approved, nil
}

// Reject moves a PENDING withdrawal to REJECTED and releases the hold so the
// earnings become available again.
func (s *WithdrawalService) Reject(ctx context.Context, reviewerID, withdrawalID, reason string) (*data.Withdrawal, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = defaultRejectionReason
	}

	type rejectResult struct {
		withdrawal *data.Withdrawal
		wallet     *data.Wallet
	}

	result, err := db.RunInTransactionWithResult(ctx, s.DBConnectionPool, nil, func(dbTx db.DBTransaction) (*rejectResult, error) {
		withdrawal, lockErr := s.Models.Withdrawals.GetForUpdate(ctx, dbTx, withdrawalID)
		if lockErr != nil {
			return nil, fmt.Errorf("locking withdrawal %s: %w", withdrawalID, lockErr)
		}
		if transitionErr := withdrawal.Status.TransitionTo(data.RejectedWithdrawalStatus); transitionErr != nil {
			return nil, fmt.Errorf("%w: withdrawal %s: %s", ErrInvalidStatusTransition, withdrawal.ID, transitionErr)
		}

		wallet, walletErr := s.Models.Wallets.GetByUserIDForUpdate(ctx, dbTx, withdrawal.UserID)
		if walletErr != nil {
			return nil, fmt.Errorf("locking wallet for user %s: %w", withdrawal.UserID, walletErr)
		}

		if releaseErr := s.Models.Wallets.ReleaseHold(ctx, dbTx, wallet.ID, withdrawal.AmountETB); releaseErr != nil {
			return nil, fmt.Errorf("releasing hold on wallet %s: %w", wallet.ID, releaseErr)
		}

		updated, rejectErr := s.Models.Withdrawals.Reject(ctx, dbTx, withdrawalID, reviewerID, reason)
		if rejectErr != nil {
			return nil, fmt.Errorf("rejecting withdrawal %s: %w", withdrawalID, rejectErr)
		}

		_, auditErr := s.Models.AuditLogs.Insert(ctx, dbTx, &updated.UserID, data.WithdrawalRejectedAuditEvent, data.AuditMetadata{
			"withdrawal_id": updated.ID,
			"reason":        reason,
			"reviewed_by":   reviewerID,
		})
		if auditErr != nil {
			return nil, fmt.Errorf("auditing withdrawal rejection: %w", auditErr)
		}

		// The hold release is clamped, so recompute the snapshot the same way.
		wallet.HoldETB = decimal.Max(wallet.HoldETB.Sub(withdrawal.AmountETB), decimal.Zero)
		return &rejectResult{withdrawal: updated, wallet: wallet}, nil
	})
	if err != nil {
		return nil, err
	}

	events.PublishBestEffort(ctx, s.EventPublisher,
		events.Message{
			Group: events.UserGroup(result.withdrawal.UserID),
			Type:  events.WithdrawalRejectedType,
			Data: events.WithdrawalEventData{
				WithdrawalID: result.withdrawal.ID,
				AmountETB:    result.withdrawal.AmountETB,
				Reason:       reason,
			},
		},
		events.Message{
			Group: events.UserGroup(result.withdrawal.UserID),
			Type:  events.WalletUpdatedType,
			Data:  walletUpdatedData(result.wallet),
		},
	)

	return result.withdrawal, nil
}
