package services

import (
	"context"
	"fmt"

	"github.com/fikir-app/fikir-backend/db"
	"github.com/fikir-app/fikir-backend/internal/data"
	"github.com/fikir-app/fikir-backend/internal/events"
)

// DevGrantCoinsMax caps a single development grant.
const DevGrantCoinsMax = 1_000_000

type DevServiceInterface interface {
	GrantCoins(ctx context.Context, userID string, coins int64) (*data.Wallet, error)
}

// DevService backs the development-only endpoints. It must never be mounted
// in production; the serve layer enforces that.
type DevService struct {
	Models           *data.Models
	DBConnectionPool db.DBConnectionPool
	EventPublisher   events.Publisher
}

var _ DevServiceInterface = (*DevService)(nil)

// GrantCoins credits coins to the caller's wallet without a payment. The
// grant is audited like any other balance change.
func (s *DevService) GrantCoins(ctx context.Context, userID string, coins int64) (*data.Wallet, error) {
	if coins <= 0 || coins > DevGrantCoinsMax {
		return nil, fmt.Errorf("coins must be between 1 and %d", DevGrantCoinsMax)
	}

	wallet, err := db.RunInTransactionWithResult(ctx, s.DBConnectionPool, nil, func(dbTx db.DBTransaction) (*data.Wallet, error) {
		if _, walletErr := s.Models.Wallets.GetOrCreate(ctx, dbTx, userID); walletErr != nil {
			return nil, fmt.Errorf("ensuring wallet for user %s: %w", userID, walletErr)
		}
		wallet, lockErr := s.Models.Wallets.GetByUserIDForUpdate(ctx, dbTx, userID)
		if lockErr != nil {
			return nil, fmt.Errorf("locking wallet for user %s: %w", userID, lockErr)
		}

		balanceBefore := wallet.CoinBalance
		balanceAfter, creditErr := s.Models.Wallets.CreditCoins(ctx, dbTx, wallet.ID, coins)
		if creditErr != nil {
			return nil, fmt.Errorf("crediting %d coins to wallet %s: %w", coins, wallet.ID, creditErr)
		}

		_, auditErr := s.Models.AuditLogs.Insert(ctx, dbTx, &userID, data.CoinsGrantedAuditEvent, data.AuditMetadata{
			"coins":          coins,
			"balance_before": balanceBefore,
			"balance_after":  balanceAfter,
		})
		if auditErr != nil {
			return nil, fmt.Errorf("auditing coin grant: %w", auditErr)
		}

		wallet.CoinBalance = balanceAfter
		return wallet, nil
	})
	if err != nil {
		return nil, err
	}

	events.PublishBestEffort(ctx, s.EventPublisher, events.Message{
		Group: events.UserGroup(userID),
		Type:  events.WalletUpdatedType,
		Data:  walletUpdatedData(wallet),
	})

	return wallet, nil
}
