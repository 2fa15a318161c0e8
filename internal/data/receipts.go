package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fikir-app/fikir-backend/db"
)

// Receipt is the immutable settlement record of a successful payment. One
// per payment, written in the same transaction that settles it.
type Receipt struct {
	ID          string          `json:"id" db:"id"`
	PaymentID   string          `json:"payment_id" db:"payment_id"`
	PriceETB    decimal.Decimal `json:"price_etb" db:"price_etb"`
	VATETB      decimal.Decimal `json:"vat_etb" db:"vat_etb"`
	ProviderRef *string         `json:"provider_ref,omitempty" db:"provider_ref"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
}

type ReceiptModel struct {
	dbConnectionPool db.DBConnectionPool
}

// InsertIfAbsent writes the receipt for a payment unless one already exists.
// Replayed webhooks make this a no-op instead of an error.
func (m *ReceiptModel) InsertIfAbsent(ctx context.Context, sqlExec db.SQLExecuter, paymentID string, priceETB, vatETB decimal.Decimal, providerRef *string) error {
	if paymentID == "" {
		return ErrMissingInput
	}

	const query = `
		INSERT INTO receipts
			(payment_id, price_etb, vat_etb, provider_ref)
		VALUES
			($1, $2, $3, $4)
		ON CONFLICT (payment_id) DO NOTHING
	`

	_, err := sqlExec.ExecContext(ctx, query, paymentID, priceETB, vatETB, providerRef)
	if err != nil {
		return fmt.Errorf("inserting receipt for payment ID %s: %w", paymentID, err)
	}
	return nil
}

func (m *ReceiptModel) GetByPaymentID(ctx context.Context, sqlExec db.SQLExecuter, paymentID string) (*Receipt, error) {
	var receipt Receipt
	const query = `
		SELECT
			*
		FROM
			receipts r
		WHERE
			r.payment_id = $1
	`

	err := sqlExec.GetContext(ctx, &receipt, query, paymentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("querying receipt for payment ID %s: %w", paymentID, err)
	}
	return &receipt, nil
}
