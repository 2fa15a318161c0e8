package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/fikir-app/fikir-backend/db"
	"github.com/fikir-app/fikir-backend/internal/chapa"
	"github.com/fikir-app/fikir-backend/internal/data"
	"github.com/fikir-app/fikir-backend/internal/events"
	"github.com/fikir-app/fikir-backend/internal/money"
	"github.com/fikir-app/fikir-backend/internal/monitor"
	"github.com/fikir-app/fikir-backend/internal/support/log"
)

// WebhookEvent is the provider callback after signature verification. Only
// the fields the settlement path needs are kept; the provider's verify API
// is the source of truth for everything else.
type WebhookEvent struct {
	TxRef     string
	Status    string
	Reference string
}

// WebhookOutcome tells the handler which 200 body to answer with.
type WebhookOutcome string

const (
	WebhookOutcomeSettled          WebhookOutcome = "settled"
	WebhookOutcomeAlreadyProcessed WebhookOutcome = "already processed"
	WebhookOutcomeIgnored          WebhookOutcome = "ignored"
)

type WebhookServiceInterface interface {
	ProcessEvent(ctx context.Context, event WebhookEvent) (WebhookOutcome, error)
}

// SubscriptionSettlerInterface settles subscription purchases by tx_ref. It
// is implemented by SubscriptionService.
type SubscriptionSettlerInterface interface {
	Settle(ctx context.Context, txRef string, providerRef *string, gwFeeETB decimal.Decimal) (*SubscriptionSettleResult, error)
}

// WebhookService settles provider callbacks. Every event is re-verified
// against the provider before any money moves, and settlement is idempotent:
// replaying a webhook never credits twice.
type WebhookService struct {
	Models           *data.Models
	DBConnectionPool db.DBConnectionPool
	ChapaClient      chapa.ClientInterface
	EventPublisher   events.Publisher
	Subscriptions    SubscriptionSettlerInterface
	RiskEvaluator    RiskEvaluatorInterface
	MonitorService   monitor.MonitorServiceInterface
}

var _ WebhookServiceInterface = (*WebhookService)(nil)

// ProcessEvent re-verifies the transaction with the provider and settles it:
// coin top-ups credit the wallet, "sub-" references activate the purchased
// plan. Unverified and non-success events are ignored without touching state.
func (s *WebhookService) ProcessEvent(ctx context.Context, event WebhookEvent) (WebhookOutcome, error) {
	if event.TxRef == "" {
		return "", fmt.Errorf("tx_ref is required")
	}

	if !strings.EqualFold(event.Status, "success") {
		log.Ctx(ctx).Infof("ignoring webhook for tx_ref %s with status %q", event.TxRef, event.Status)
		return WebhookOutcomeIgnored, nil
	}

	verification, err := s.ChapaClient.VerifyTransaction(ctx, event.TxRef)
	if err != nil {
		if chapa.IsUnavailable(err) {
			return "", fmt.Errorf("%w: %s", ErrProviderUnavailable, err)
		}
		// The provider answered but would not verify this reference, so
		// there is nothing to settle.
		log.Ctx(ctx).Warnf("provider refused verification for tx_ref %s: %v", event.TxRef, err)
		return WebhookOutcomeIgnored, nil
	}
	if !verification.Verified() {
		log.Ctx(ctx).Infof("tx_ref %s not settled at provider (status %q)", event.TxRef, verification.Status)
		return WebhookOutcomeIgnored, nil
	}

	providerRef := providerReference(verification, event)

	if strings.HasPrefix(event.TxRef, "sub-") {
		return s.settleSubscription(ctx, event.TxRef, providerRef, verification)
	}
	return s.settleTopUp(ctx, event.TxRef, providerRef, verification)
}

type topUpSettlement struct {
	payment          *data.Payment
	wallet           *data.Wallet
	creditedCoins    int64
	alreadyProcessed bool
}

func (s *WebhookService) settleTopUp(ctx context.Context, txRef string, providerRef *string, verification *chapa.Verification) (WebhookOutcome, error) {
	settlement, err := db.RunInTransactionWithResult(ctx, s.DBConnectionPool, nil, func(dbTx db.DBTransaction) (*topUpSettlement, error) {
		return s.settleTopUpTx(ctx, dbTx, txRef, providerRef, verification)
	})
	if err != nil {
		return "", fmt.Errorf("settling top-up for tx_ref %s: %w", txRef, err)
	}

	if settlement.alreadyProcessed {
		monitorCount(ctx, s.MonitorService, monitor.WebhookDuplicatesCounterTag)
		return WebhookOutcomeAlreadyProcessed, nil
	}

	events.PublishBestEffort(ctx, s.EventPublisher, events.Message{
		Group: events.UserGroup(settlement.payment.UserID),
		Type:  events.WalletUpdatedType,
		Data:  walletUpdatedData(settlement.wallet),
	})
	monitorCount(ctx, s.MonitorService, monitor.PaymentsSettledCounterTag)
	evaluateRisk(ctx, s.RiskEvaluator, settlement.payment.UserID)

	return WebhookOutcomeSettled, nil
}

func (s *WebhookService) settleTopUpTx(ctx context.Context, dbTx db.DBTransaction, txRef string, providerRef *string, verification *chapa.Verification) (*topUpSettlement, error) {
	payment, err := s.lockPayment(ctx, dbTx, txRef, providerRef)
	if err != nil {
		return nil, err
	}

	if payment.Status == data.SuccessPaymentStatus {
		return &topUpSettlement{payment: payment, alreadyProcessed: true}, nil
	}
	if transitionErr := payment.Status.TransitionTo(data.SuccessPaymentStatus); transitionErr != nil {
		return nil, fmt.Errorf("%w: payment %s: %s", ErrInvalidStatusTransition, payment.ID, transitionErr)
	}
	if payment.PackageID == nil {
		return nil, fmt.Errorf("payment %s has no coin package", payment.ID)
	}

	coinPackage, err := s.Models.CoinPackages.Get(ctx, *payment.PackageID)
	if err != nil {
		return nil, fmt.Errorf("getting coin package %s: %w", *payment.PackageID, err)
	}

	// The gateway fee is the residual of the charged total after base price
	// and VAT. When the provider reports its own charge we trust that number
	// and leave an audit trail of the discrepancy.
	gwFee := payment.PriceTotalETB.Sub(coinPackage.BaseETB).Sub(payment.VATETB)
	if verification.Charge != nil {
		providerCharge := money.Round2(*verification.Charge)
		if !providerCharge.Equal(gwFee) {
			_, auditErr := s.Models.AuditLogs.Insert(ctx, dbTx, &payment.UserID, data.GatewayFeeMismatchAuditEvent, data.AuditMetadata{
				"payment_id":      payment.ID,
				"residual_fee":    gwFee.StringFixed(2),
				"provider_charge": providerCharge.StringFixed(2),
			})
			if auditErr != nil {
				return nil, fmt.Errorf("recording gateway fee mismatch for payment %s: %w", payment.ID, auditErr)
			}
			gwFee = providerCharge
		}
	}

	if _, err = s.Models.Wallets.GetOrCreate(ctx, dbTx, payment.UserID); err != nil {
		return nil, fmt.Errorf("ensuring wallet for user %s: %w", payment.UserID, err)
	}
	wallet, err := s.Models.Wallets.GetByUserIDForUpdate(ctx, dbTx, payment.UserID)
	if err != nil {
		return nil, fmt.Errorf("locking wallet for user %s: %w", payment.UserID, err)
	}

	balanceBefore := wallet.CoinBalance
	balanceAfter, err := s.Models.Wallets.CreditCoins(ctx, dbTx, wallet.ID, coinPackage.Coins)
	if err != nil {
		return nil, fmt.Errorf("crediting %d coins to wallet %s: %w", coinPackage.Coins, wallet.ID, err)
	}

	payment, err = s.Models.Payments.MarkSuccess(ctx, dbTx, payment.ID, providerRef, gwFee, "Settled via webhook")
	if err != nil {
		return nil, fmt.Errorf("marking payment %s successful: %w", payment.ID, err)
	}

	if err = s.Models.Receipts.InsertIfAbsent(ctx, dbTx, payment.ID, payment.PriceTotalETB, payment.VATETB, providerRef); err != nil {
		return nil, fmt.Errorf("inserting receipt for payment %s: %w", payment.ID, err)
	}

	_, err = s.Models.AuditLogs.Insert(ctx, dbTx, &payment.UserID, data.PaymentSuccessAuditEvent, data.AuditMetadata{
		"payment_id":     payment.ID,
		"provider":       string(payment.Provider),
		"provider_ref":   derefOrEmpty(providerRef),
		"credited_coins": coinPackage.Coins,
		"balance_before": balanceBefore,
		"balance_after":  balanceAfter,
	})
	if err != nil {
		return nil, fmt.Errorf("auditing payment %s: %w", payment.ID, err)
	}

	wallet.CoinBalance = balanceAfter
	return &topUpSettlement{payment: payment, wallet: wallet, creditedCoins: coinPackage.Coins}, nil
}

// lockPayment locks the payment row, preferring the provider reference (which
// survives tx_ref reuse) and falling back to the tx_ref.
func (s *WebhookService) lockPayment(ctx context.Context, dbTx db.DBTransaction, txRef string, providerRef *string) (*data.Payment, error) {
	if providerRef != nil {
		payment, err := s.Models.Payments.GetByProviderRefForUpdate(ctx, dbTx, *providerRef)
		if err == nil {
			return payment, nil
		}
		if !errors.Is(err, data.ErrRecordNotFound) {
			return nil, fmt.Errorf("getting payment by provider_ref %s: %w", *providerRef, err)
		}
	}

	payment, err := s.Models.Payments.GetByTxRefForUpdate(ctx, dbTx, txRef)
	if err != nil {
		return nil, fmt.Errorf("getting payment by tx_ref %s: %w", txRef, err)
	}
	return payment, nil
}

func (s *WebhookService) settleSubscription(ctx context.Context, txRef string, providerRef *string, verification *chapa.Verification) (WebhookOutcome, error) {
	gwFee := decimal.Zero
	if verification.Charge != nil {
		gwFee = money.Round2(*verification.Charge)
	}

	result, err := s.Subscriptions.Settle(ctx, txRef, providerRef, gwFee)
	if err != nil {
		return "", fmt.Errorf("settling subscription for tx_ref %s: %w", txRef, err)
	}

	if result.AlreadyProcessed {
		monitorCount(ctx, s.MonitorService, monitor.WebhookDuplicatesCounterTag)
		return WebhookOutcomeAlreadyProcessed, nil
	}
	return WebhookOutcomeSettled, nil
}

func providerReference(verification *chapa.Verification, event WebhookEvent) *string {
	if verification.Reference != "" {
		return &verification.Reference
	}
	if event.Reference != "" {
		return &event.Reference
	}
	return nil
}

func walletUpdatedData(wallet *data.Wallet) events.WalletUpdatedData {
	return events.WalletUpdatedData{
		CoinBalance: wallet.CoinBalance,
		BalanceETB:  wallet.BalanceETB,
		HoldETB:     wallet.HoldETB,
	}
}

func monitorCount(ctx context.Context, monitorService monitor.MonitorServiceInterface, tag monitor.MetricTag) {
	if monitorService == nil {
		return
	}
	if err := monitorService.MonitorCounters(tag, nil); err != nil {
		log.Ctx(ctx).Errorf("monitoring %s: %v", tag, err)
	}
}

func derefOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
