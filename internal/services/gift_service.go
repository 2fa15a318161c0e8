package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/fikir-app/fikir-backend/db"
	"github.com/fikir-app/fikir-backend/internal/data"
	"github.com/fikir-app/fikir-backend/internal/events"
	"github.com/fikir-app/fikir-backend/internal/money"
	"github.com/fikir-app/fikir-backend/internal/monitor"
	"github.com/fikir-app/fikir-backend/internal/support/log"
)

const (
	// GiftQuantityMax caps how many units of one gift a single send covers.
	GiftQuantityMax = 100
	// GiftMessageMaxLength caps the optional message attached to a gift.
	GiftMessageMaxLength = 500
)

type GiftServiceInterface interface {
	SendGift(ctx context.Context, req GiftSendRequest) (*GiftSendResponse, error)
}

// GiftSendRequest is one gift send after input validation.
type GiftSendRequest struct {
	SenderID    string
	RecipientID string
	GiftID      string
	Quantity    int
	Message     *string
}

func (req GiftSendRequest) validate() error {
	if req.SenderID == "" || req.RecipientID == "" || req.GiftID == "" {
		return fmt.Errorf("sender, recipient and gift are required")
	}
	if req.Quantity < 1 || req.Quantity > GiftQuantityMax {
		return fmt.Errorf("quantity must be between 1 and %d", GiftQuantityMax)
	}
	if req.Message != nil && len([]rune(*req.Message)) > GiftMessageMaxLength {
		return fmt.Errorf("message must be at most %d characters", GiftMessageMaxLength)
	}
	return nil
}

// GiftSendResponse carries the settled transaction and both wallet snapshots
// for the post-commit notifications.
type GiftSendResponse struct {
	Transaction     *data.GiftTransaction
	Gift            *data.Gift
	SenderWallet    *data.Wallet
	RecipientWallet *data.Wallet
}

// GiftService moves coins from a sender to a creator's ETB earnings in one
// transaction: debit coins, split the fiat value into commission, VAT and
// payout, credit the payout, and audit both sides.
type GiftService struct {
	Models           *data.Models
	DBConnectionPool db.DBConnectionPool
	EventPublisher   events.Publisher
	RiskEvaluator    RiskEvaluatorInterface
	MonitorService   monitor.MonitorServiceInterface
	CommissionRate   decimal.Decimal
	VATRate          decimal.Decimal
}

var _ GiftServiceInterface = (*GiftService)(nil)

// SendGift settles one gift. On any failure after the guards pass, the
// transaction rolls back untouched and a GIFT_SEND_FAILED audit row records
// the reason outside it.
func (s *GiftService) SendGift(ctx context.Context, req GiftSendRequest) (*GiftSendResponse, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	if req.SenderID == req.RecipientID {
		return nil, ErrSelfGift
	}

	gift, err := s.Models.Gifts.GetActive(ctx, req.GiftID)
	if err != nil {
		if errors.Is(err, data.ErrRecordNotFound) {
			return nil, ErrInvalidGift
		}
		return nil, fmt.Errorf("getting gift %s: %w", req.GiftID, err)
	}

	recipientOK, err := s.Models.Users.ExistsActive(ctx, req.RecipientID)
	if err != nil {
		return nil, fmt.Errorf("checking recipient %s: %w", req.RecipientID, err)
	}
	if !recipientOK {
		return nil, ErrInvalidRecipient
	}

	response, err := db.RunInTransactionWithResult(ctx, s.DBConnectionPool, nil, func(dbTx db.DBTransaction) (*GiftSendResponse, error) {
		return s.sendGiftTx(ctx, dbTx, req, gift)
	})
	if err != nil {
		s.auditSendFailure(ctx, req, err)
		return nil, err
	}

	s.publishGiftEvents(ctx, response)
	monitorCount(ctx, s.MonitorService, monitor.GiftsSentCounterTag)
	evaluateRisk(ctx, s.RiskEvaluator, req.RecipientID)

	return response, nil
}

func (s *GiftService) sendGiftTx(ctx context.Context, dbTx db.DBTransaction, req GiftSendRequest, gift *data.Gift) (*GiftSendResponse, error) {
	// Both wallets must exist before LockPair sorts and locks them.
	if _, err := s.Models.Wallets.GetOrCreate(ctx, dbTx, req.SenderID); err != nil {
		return nil, fmt.Errorf("ensuring sender wallet: %w", err)
	}
	if _, err := s.Models.Wallets.GetOrCreate(ctx, dbTx, req.RecipientID); err != nil {
		return nil, fmt.Errorf("ensuring recipient wallet: %w", err)
	}

	senderWallet, recipientWallet, err := s.Models.Wallets.LockPair(ctx, dbTx, req.SenderID, req.RecipientID)
	if err != nil {
		return nil, fmt.Errorf("locking wallets: %w", err)
	}

	if senderWallet.IsBanned {
		return nil, ErrSenderBanned
	}

	quantity := decimal.NewFromInt(int64(req.Quantity))
	coinsSpent := gift.Coins * int64(req.Quantity)
	valueETB := money.Round2(gift.ValueETB.Mul(quantity))

	debited, err := s.Models.Wallets.DebitCoins(ctx, dbTx, senderWallet.ID, coinsSpent)
	if err != nil {
		return nil, fmt.Errorf("debiting %d coins from wallet %s: %w", coinsSpent, senderWallet.ID, err)
	}
	if !debited {
		return nil, ErrInsufficientCoins
	}

	split := money.SplitGift(valueETB, s.CommissionRate, s.VATRate)

	recipientBalanceBefore := recipientWallet.BalanceETB
	recipientBalanceAfter, err := s.Models.Wallets.CreditEarnings(ctx, dbTx, recipientWallet.ID, split.CreatorPayout)
	if err != nil {
		return nil, fmt.Errorf("crediting %s ETB to wallet %s: %w", split.CreatorPayout, recipientWallet.ID, err)
	}

	transaction, err := s.Models.GiftTransactions.Insert(ctx, dbTx, data.GiftTransactionInsert{
		SenderID:        req.SenderID,
		RecipientID:     req.RecipientID,
		GiftID:          gift.ID,
		Quantity:        req.Quantity,
		CoinsSpent:      coinsSpent,
		ValueETB:        valueETB,
		CommissionGross: split.CommissionGross,
		VATOnCommission: split.VATOnCommission,
		CommissionNet:   split.CommissionNet,
		CreatorPayout:   split.CreatorPayout,
		Status:          data.SuccessGiftTransactionStatus,
		Message:         req.Message,
	})
	if err != nil {
		return nil, fmt.Errorf("inserting gift transaction: %w", err)
	}

	_, err = s.Models.AuditLogs.Insert(ctx, dbTx, &req.SenderID, data.GiftSentAuditEvent, data.AuditMetadata{
		"tx_id":     transaction.ID,
		"gift":      gift.Name,
		"quantity":  req.Quantity,
		"coins":     coinsSpent,
		"value_etb": valueETB.StringFixed(2),
		"to":        req.RecipientID,
	})
	if err != nil {
		return nil, fmt.Errorf("auditing gift sent: %w", err)
	}

	_, err = s.Models.AuditLogs.Insert(ctx, dbTx, &req.RecipientID, data.GiftReceivedAuditEvent, data.AuditMetadata{
		"tx_id":          transaction.ID,
		"gift":           gift.Name,
		"quantity":       req.Quantity,
		"coins":          coinsSpent,
		"value_etb":      valueETB.StringFixed(2),
		"creator_payout": split.CreatorPayout.StringFixed(2),
		"from":           req.SenderID,
		"balance_before": recipientBalanceBefore.StringFixed(2),
		"balance_after":  recipientBalanceAfter.StringFixed(2),
	})
	if err != nil {
		return nil, fmt.Errorf("auditing gift received: %w", err)
	}

	senderWallet.CoinBalance -= coinsSpent
	recipientWallet.BalanceETB = recipientBalanceAfter

	return &GiftSendResponse{
		Transaction:     transaction,
		Gift:            gift,
		SenderWallet:    senderWallet,
		RecipientWallet: recipientWallet,
	}, nil
}

// auditSendFailure records a rolled-back send attempt. It runs outside the
// settlement transaction so the row survives the rollback.
func (s *GiftService) auditSendFailure(ctx context.Context, req GiftSendRequest, sendErr error) {
	reason := sendErr.Error()
	for _, sentinel := range []error{ErrSenderBanned, ErrInsufficientCoins} {
		if errors.Is(sendErr, sentinel) {
			reason = sentinel.Error()
			break
		}
	}

	_, auditErr := s.Models.AuditLogs.Insert(ctx, s.DBConnectionPool, &req.SenderID, data.GiftSendFailedAuditEvent, data.AuditMetadata{
		"error":        reason,
		"recipient_id": req.RecipientID,
		"gift_id":      req.GiftID,
	})
	if auditErr != nil {
		log.Ctx(ctx).Errorf("auditing failed gift send for user %s: %v", req.SenderID, auditErr)
	}
}

func (s *GiftService) publishGiftEvents(ctx context.Context, response *GiftSendResponse) {
	transaction := response.Transaction

	events.PublishBestEffort(ctx, s.EventPublisher,
		events.Message{
			Group: events.UserGroup(transaction.SenderID),
			Type:  events.GiftSentType,
			Data: events.GiftEventData{
				TransactionID: transaction.ID,
				Gift:          response.Gift.Name,
				Quantity:      transaction.Quantity,
				Coins:         transaction.CoinsSpent,
				ValueETB:      transaction.ValueETB,
				CreatorPayout: transaction.CreatorPayout,
				RecipientID:   transaction.RecipientID,
			},
		},
		events.Message{
			Group: events.UserGroup(transaction.RecipientID),
			Type:  events.GiftReceivedType,
			Data: events.GiftEventData{
				TransactionID: transaction.ID,
				Gift:          response.Gift.Name,
				Quantity:      transaction.Quantity,
				Coins:         transaction.CoinsSpent,
				ValueETB:      transaction.ValueETB,
				CreatorPayout: transaction.CreatorPayout,
				SenderID:      transaction.SenderID,
			},
		},
		events.Message{
			Group: events.UserGroup(transaction.SenderID),
			Type:  events.WalletUpdatedType,
			Data:  walletUpdatedData(response.SenderWallet),
		},
		events.Message{
			Group: events.UserGroup(transaction.RecipientID),
			Type:  events.WalletUpdatedType,
			Data:  walletUpdatedData(response.RecipientWallet),
		},
	)
}
