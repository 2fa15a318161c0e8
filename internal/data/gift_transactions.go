package data

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fikir-app/fikir-backend/db"
)

type GiftTransactionStatus string

const (
	SuccessGiftTransactionStatus GiftTransactionStatus = "SUCCESS"
	FailedGiftTransactionStatus  GiftTransactionStatus = "FAILED"
)

// GiftTransaction records one gift send, successful or not. Successful rows
// carry the full monetary split; failed rows carry the reason and are written
// outside the ledger transaction.
type GiftTransaction struct {
	ID              string                `json:"id" db:"id"`
	SenderID        string                `json:"sender_id" db:"sender_id"`
	RecipientID     string                `json:"recipient_id" db:"recipient_id"`
	GiftID          string                `json:"gift_id" db:"gift_id"`
	Quantity        int                   `json:"quantity" db:"quantity"`
	CoinsSpent      int64                 `json:"coins_spent" db:"coins_spent"`
	ValueETB        decimal.Decimal       `json:"value_etb" db:"value_etb"`
	CommissionGross decimal.Decimal       `json:"commission_gross" db:"commission_gross"`
	VATOnCommission decimal.Decimal       `json:"vat_on_commission" db:"vat_on_commission"`
	CommissionNet   decimal.Decimal       `json:"commission_net" db:"commission_net"`
	CreatorPayout   decimal.Decimal       `json:"creator_payout" db:"creator_payout"`
	Status          GiftTransactionStatus `json:"status" db:"status"`
	FailureReason   *string               `json:"failure_reason,omitempty" db:"failure_reason"`
	Message         *string               `json:"message,omitempty" db:"message"`
	CreatedAt       time.Time             `json:"created_at" db:"created_at"`
}

type GiftTransactionInsert struct {
	SenderID        string
	RecipientID     string
	GiftID          string
	Quantity        int
	CoinsSpent      int64
	ValueETB        decimal.Decimal
	CommissionGross decimal.Decimal
	VATOnCommission decimal.Decimal
	CommissionNet   decimal.Decimal
	CreatorPayout   decimal.Decimal
	Status          GiftTransactionStatus
	FailureReason   *string
	Message         *string
}

func (i GiftTransactionInsert) Validate() error {
	if i.SenderID == "" || i.RecipientID == "" || i.GiftID == "" {
		return ErrMissingInput
	}
	if i.Quantity <= 0 {
		return fmt.Errorf("quantity must be positive")
	}
	if i.Status != SuccessGiftTransactionStatus && i.Status != FailedGiftTransactionStatus {
		return fmt.Errorf("invalid gift transaction status: %s", i.Status)
	}
	return nil
}

type GiftTransactionModel struct {
	dbConnectionPool db.DBConnectionPool
}

func (m *GiftTransactionModel) Insert(ctx context.Context, sqlExec db.SQLExecuter, insert GiftTransactionInsert) (*GiftTransaction, error) {
	if err := insert.Validate(); err != nil {
		return nil, fmt.Errorf("validating gift transaction insert: %w", err)
	}

	const query = `
		INSERT INTO gift_transactions
			(sender_id, recipient_id, gift_id, quantity, coins_spent, value_etb,
			commission_gross, vat_on_commission, commission_net, creator_payout,
			status, failure_reason, message)
		VALUES
			($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING
			*
	`

	var tx GiftTransaction
	err := sqlExec.GetContext(ctx, &tx, query,
		insert.SenderID, insert.RecipientID, insert.GiftID, insert.Quantity, insert.CoinsSpent, insert.ValueETB,
		insert.CommissionGross, insert.VATOnCommission, insert.CommissionNet, insert.CreatorPayout,
		insert.Status, insert.FailureReason, insert.Message)
	if err != nil {
		return nil, fmt.Errorf("inserting gift transaction from %s to %s: %w", insert.SenderID, insert.RecipientID, err)
	}
	return &tx, nil
}

// RecentByUser returns the user's latest sent and received gifts, newest
// first.
func (m *GiftTransactionModel) RecentByUser(ctx context.Context, sqlExec db.SQLExecuter, userID string, limit int) ([]GiftTransaction, error) {
	if limit <= 0 {
		limit = 20
	}

	transactions := []GiftTransaction{}
	const query = `
		SELECT
			*
		FROM
			gift_transactions gt
		WHERE
			gt.sender_id = $1
			OR gt.recipient_id = $1
		ORDER BY
			gt.created_at DESC
		LIMIT $2
	`

	err := sqlExec.SelectContext(ctx, &transactions, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("selecting recent gift transactions for user %s: %w", userID, err)
	}
	return transactions, nil
}

// ReceivedValueSince sums the gift value a recipient collected at or after
// the given instant. The risk sweep uses it to spot gift bursts.
func (m *GiftTransactionModel) ReceivedValueSince(ctx context.Context, sqlExec db.SQLExecuter, recipientID string, since time.Time) (decimal.Decimal, error) {
	var total decimal.Decimal
	const query = `
		SELECT
			COALESCE(SUM(gt.value_etb), 0)
		FROM
			gift_transactions gt
		WHERE
			gt.recipient_id = $1
			AND gt.status = $2
			AND gt.created_at >= $3
	`

	err := sqlExec.GetContext(ctx, &total, query, recipientID, SuccessGiftTransactionStatus, since)
	if err != nil {
		return decimal.Zero, fmt.Errorf("summing received gift value for user %s: %w", recipientID, err)
	}
	return total, nil
}
