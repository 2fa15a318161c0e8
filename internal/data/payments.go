package data

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/fikir-app/fikir-backend/db"
)

type PaymentProvider string

const (
	ChapaPaymentProvider    PaymentProvider = "CHAPA"
	TelebirrPaymentProvider PaymentProvider = "TELEBIRR"
)

func (p PaymentProvider) Validate() error {
	switch PaymentProvider(strings.ToUpper(string(p))) {
	case ChapaPaymentProvider, TelebirrPaymentProvider:
		return nil
	default:
		return fmt.Errorf("invalid payment provider: %s", p)
	}
}

// Payment is one initiated charge against the provider, either a coin top-up
// (package_id set) or a subscription leg (tx_ref prefixed "sub-").
type Payment struct {
	ID            string               `json:"id" db:"id"`
	UserID        string               `json:"user_id" db:"user_id"`
	PackageID     *string              `json:"package_id,omitempty" db:"package_id"`
	Status        PaymentStatus        `json:"status" db:"status"`
	StatusHistory PaymentStatusHistory `json:"status_history,omitempty" db:"status_history"`
	Provider      PaymentProvider      `json:"provider" db:"provider"`
	TxRef         string               `json:"tx_ref" db:"tx_ref"`
	ProviderRef   *string              `json:"provider_ref,omitempty" db:"provider_ref"`
	CheckoutURL   *string              `json:"checkout_url,omitempty" db:"checkout_url"`
	PriceTotalETB decimal.Decimal      `json:"price_total_etb" db:"price_total_etb"`
	VATETB        decimal.Decimal      `json:"vat_etb" db:"vat_etb"`
	GwFeeETB      *decimal.Decimal     `json:"gw_fee_etb,omitempty" db:"gw_fee_etb"`
	CreatedAt     time.Time            `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time            `json:"updated_at" db:"updated_at"`
}

type PaymentStatusHistoryEntry struct {
	Status        PaymentStatus `json:"status"`
	StatusMessage string        `json:"status_message"`
	Timestamp     time.Time     `json:"timestamp"`
}

type PaymentStatusHistory []PaymentStatusHistoryEntry

var (
	_ sql.Scanner   = (*PaymentStatusHistory)(nil)
	_ driver.Valuer = (*PaymentStatusHistory)(nil)
)

// Scan implements the sql.Scanner interface.
func (psh *PaymentStatusHistory) Scan(src interface{}) error {
	var statusHistoryJSON []string
	if err := pq.Array(&statusHistoryJSON).Scan(src); err != nil {
		return fmt.Errorf("scanning payment status history value: %w", err)
	}

	for _, statusHistoryJSON := range statusHistoryJSON {
		var entry PaymentStatusHistoryEntry
		err := json.Unmarshal([]byte(statusHistoryJSON), &entry)
		if err != nil {
			return fmt.Errorf("unmarshaling status_history column: %w", err)
		}
		*psh = append(*psh, entry)
	}

	return nil
}

// Value implements the driver.Valuer interface.
func (psh PaymentStatusHistory) Value() (driver.Value, error) {
	var statusHistoryJSON []string
	for _, entry := range psh {
		entryJSON, err := json.Marshal(entry)
		if err != nil {
			return nil, fmt.Errorf("marshaling payment status history: %w", err)
		}
		statusHistoryJSON = append(statusHistoryJSON, string(entryJSON))
	}

	return pq.Array(statusHistoryJSON).Value()
}

type PaymentInsert struct {
	UserID        string
	PackageID     *string
	Provider      PaymentProvider
	TxRef         string
	PriceTotalETB decimal.Decimal
	VATETB        decimal.Decimal
}

func (i PaymentInsert) Validate() error {
	if i.UserID == "" {
		return fmt.Errorf("user_id is required")
	}
	if err := i.Provider.Validate(); err != nil {
		return err
	}
	if i.TxRef == "" {
		return fmt.Errorf("tx_ref is required")
	}
	if len(i.TxRef) > 50 {
		return fmt.Errorf("tx_ref must be at most 50 characters")
	}
	if !i.PriceTotalETB.IsPositive() {
		return fmt.Errorf("price_total_etb must be positive")
	}
	if i.VATETB.IsNegative() {
		return fmt.Errorf("vat_etb cannot be negative")
	}
	return nil
}

type PaymentModel struct {
	dbConnectionPool db.DBConnectionPool
}

func (m *PaymentModel) Insert(ctx context.Context, sqlExec db.SQLExecuter, insert PaymentInsert) (*Payment, error) {
	if err := insert.Validate(); err != nil {
		return nil, fmt.Errorf("validating payment insert: %w", err)
	}

	const query = `
		INSERT INTO payments
			(user_id, package_id, status, status_history, provider, tx_ref, price_total_etb, vat_etb)
		VALUES
			($1, $2, $3, ARRAY[create_payment_status_history(NOW(), $3, '')], $4, $5, $6, $7)
		RETURNING
			*
	`

	var payment Payment
	err := sqlExec.GetContext(ctx, &payment, query,
		insert.UserID, insert.PackageID, InitiatedPaymentStatus, insert.Provider, insert.TxRef, insert.PriceTotalETB, insert.VATETB)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return nil, ErrRecordAlreadyExists
		}
		return nil, fmt.Errorf("inserting payment with tx_ref %s: %w", insert.TxRef, err)
	}
	return &payment, nil
}

func (m *PaymentModel) Get(ctx context.Context, sqlExec db.SQLExecuter, id string) (*Payment, error) {
	var payment Payment
	const query = `
		SELECT
			*
		FROM
			payments p
		WHERE
			p.id = $1
	`

	err := sqlExec.GetContext(ctx, &payment, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("querying payment ID %s: %w", id, err)
	}
	return &payment, nil
}

func (m *PaymentModel) GetByTxRef(ctx context.Context, sqlExec db.SQLExecuter, txRef string) (*Payment, error) {
	var payment Payment
	const query = `
		SELECT
			*
		FROM
			payments p
		WHERE
			p.tx_ref = $1
	`

	err := sqlExec.GetContext(ctx, &payment, query, txRef)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("querying payment tx_ref %s: %w", txRef, err)
	}
	return &payment, nil
}

// GetByTxRefForUpdate locks the payment row for the duration of the enclosing
// transaction, so webhook settlement observes a stable status.
func (m *PaymentModel) GetByTxRefForUpdate(ctx context.Context, sqlExec db.SQLExecuter, txRef string) (*Payment, error) {
	var payment Payment
	const query = `
		SELECT
			*
		FROM
			payments p
		WHERE
			p.tx_ref = $1
		FOR UPDATE
	`

	err := sqlExec.GetContext(ctx, &payment, query, txRef)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("querying payment tx_ref %s for update: %w", txRef, err)
	}
	return &payment, nil
}

// GetByProviderRefForUpdate locks the payment that already settled under the
// given provider reference, if any.
func (m *PaymentModel) GetByProviderRefForUpdate(ctx context.Context, sqlExec db.SQLExecuter, providerRef string) (*Payment, error) {
	var payment Payment
	const query = `
		SELECT
			*
		FROM
			payments p
		WHERE
			p.provider_ref = $1
		FOR UPDATE
	`

	err := sqlExec.GetContext(ctx, &payment, query, providerRef)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("querying payment provider_ref %s for update: %w", providerRef, err)
	}
	return &payment, nil
}

// AttachCheckout stores the provider checkout handle on an initiated payment.
func (m *PaymentModel) AttachCheckout(ctx context.Context, sqlExec db.SQLExecuter, id, checkoutURL string) error {
	const query = `
		UPDATE
			payments
		SET
			checkout_url = $2,
			updated_at = NOW()
		WHERE
			id = $1
	`

	result, err := sqlExec.ExecContext(ctx, query, id, checkoutURL)
	if err != nil {
		return fmt.Errorf("attaching checkout to payment ID %s: %w", id, err)
	}
	numRowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting number of rows affected: %w", err)
	}
	if numRowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// MarkSuccess settles an initiated payment: records the provider reference
// and the residual gateway fee, and appends to the status history.
func (m *PaymentModel) MarkSuccess(ctx context.Context, sqlExec db.SQLExecuter, id string, providerRef *string, gwFeeETB decimal.Decimal, statusMessage string) (*Payment, error) {
	const query = `
		UPDATE
			payments
		SET
			status = $2,
			status_history = array_append(status_history, create_payment_status_history(NOW(), $2, $3)),
			provider_ref = COALESCE($4, provider_ref),
			gw_fee_etb = $5,
			updated_at = NOW()
		WHERE
			id = $1
			AND status = $6
		RETURNING
			*
	`

	var payment Payment
	err := sqlExec.GetContext(ctx, &payment, query, id, SuccessPaymentStatus, statusMessage, providerRef, gwFeeETB, InitiatedPaymentStatus)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMismatchNumRowsAffected
		}
		return nil, fmt.Errorf("marking payment ID %s as success: %w", id, err)
	}
	return &payment, nil
}

// CountSuccessSince counts the user's settled payments created at or after
// the given instant. The risk sweep uses it to spot top-up bursts.
func (m *PaymentModel) CountSuccessSince(ctx context.Context, sqlExec db.SQLExecuter, userID string, since time.Time) (int64, error) {
	var count int64
	const query = `
		SELECT
			COUNT(*)
		FROM
			payments p
		WHERE
			p.user_id = $1
			AND p.status = $2
			AND p.created_at >= $3
	`

	err := sqlExec.GetContext(ctx, &count, query, userID, SuccessPaymentStatus, since)
	if err != nil {
		return 0, fmt.Errorf("counting successful payments for user %s: %w", userID, err)
	}
	return count, nil
}
