package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/fikir-app/fikir-backend/db"
)

type SubscriptionPlan string

const (
	BoostSubscriptionPlan       SubscriptionPlan = "BOOST"
	LikesRevealSubscriptionPlan SubscriptionPlan = "LIKES_REVEAL"
	AdFreeSubscriptionPlan      SubscriptionPlan = "AD_FREE"
)

func (p SubscriptionPlan) Validate() error {
	switch SubscriptionPlan(strings.ToUpper(string(p))) {
	case BoostSubscriptionPlan, LikesRevealSubscriptionPlan, AdFreeSubscriptionPlan:
		return nil
	default:
		return fmt.Errorf("invalid subscription plan: %s", p)
	}
}

// SubscriptionPlans returns a list of all purchasable plans.
func SubscriptionPlans() []SubscriptionPlan {
	return []SubscriptionPlan{BoostSubscriptionPlan, LikesRevealSubscriptionPlan, AdFreeSubscriptionPlan}
}

// ToSubscriptionPlan converts a string to a SubscriptionPlan.
func ToSubscriptionPlan(s string) (SubscriptionPlan, error) {
	err := SubscriptionPlan(s).Validate()
	if err != nil {
		return "", err
	}

	return SubscriptionPlan(strings.ToUpper(s)), nil
}

// PerkColumns returns the users table columns that mirror this plan's perk:
// the boolean flag and its expiry timestamp.
func (p SubscriptionPlan) PerkColumns() (flagColumn string, expiryColumn string, err error) {
	switch p {
	case BoostSubscriptionPlan:
		return "has_boost", "boost_expiry", nil
	case LikesRevealSubscriptionPlan:
		return "can_see_likes", "likes_reveal_expiry", nil
	case AdFreeSubscriptionPlan:
		return "ad_free", "ad_free_expiry", nil
	default:
		return "", "", fmt.Errorf("invalid subscription plan: %s", p)
	}
}

// SubscriptionPurchase is one paid perk activation attempt. The perk itself
// is mirrored onto the user row when the purchase completes; this row is the
// billing record.
type SubscriptionPurchase struct {
	ID           string             `json:"id" db:"id"`
	UserID       string             `json:"user_id" db:"user_id"`
	Plan         SubscriptionPlan   `json:"plan" db:"plan"`
	AmountETB    decimal.Decimal    `json:"amount_etb" db:"amount_etb"`
	DurationDays int                `json:"duration_days" db:"duration_days"`
	Status       SubscriptionStatus `json:"status" db:"status"`
	TxRef        string             `json:"tx_ref" db:"tx_ref"`
	ProviderRef  *string            `json:"provider_ref,omitempty" db:"provider_ref"`
	CheckoutURL  *string            `json:"checkout_url,omitempty" db:"checkout_url"`
	ActivatedAt  *time.Time         `json:"activated_at,omitempty" db:"activated_at"`
	ExpiresAt    *time.Time         `json:"expires_at,omitempty" db:"expires_at"`
	CreatedAt    time.Time          `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at" db:"updated_at"`
}

type SubscriptionPurchaseInsert struct {
	UserID       string
	Plan         SubscriptionPlan
	AmountETB    decimal.Decimal
	DurationDays int
	TxRef        string
}

func (i SubscriptionPurchaseInsert) Validate() error {
	if i.UserID == "" {
		return fmt.Errorf("user_id is required")
	}
	if err := i.Plan.Validate(); err != nil {
		return err
	}
	if !i.AmountETB.IsPositive() {
		return fmt.Errorf("amount_etb must be positive")
	}
	if i.DurationDays <= 0 {
		return fmt.Errorf("duration_days must be positive")
	}
	if i.TxRef == "" {
		return fmt.Errorf("tx_ref is required")
	}
	return nil
}

type SubscriptionModel struct {
	dbConnectionPool db.DBConnectionPool
}

func (m *SubscriptionModel) Insert(ctx context.Context, sqlExec db.SQLExecuter, insert SubscriptionPurchaseInsert) (*SubscriptionPurchase, error) {
	if err := insert.Validate(); err != nil {
		return nil, fmt.Errorf("validating subscription purchase insert: %w", err)
	}

	const query = `
		INSERT INTO subscription_purchases
			(user_id, plan, amount_etb, duration_days, tx_ref)
		VALUES
			($1, $2, $3, $4, $5)
		RETURNING
			*
	`

	var purchase SubscriptionPurchase
	err := sqlExec.GetContext(ctx, &purchase, query,
		insert.UserID, insert.Plan, insert.AmountETB, insert.DurationDays, insert.TxRef)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return nil, ErrRecordAlreadyExists
		}
		return nil, fmt.Errorf("inserting subscription purchase for user %s: %w", insert.UserID, err)
	}
	return &purchase, nil
}

func (m *SubscriptionModel) Get(ctx context.Context, sqlExec db.SQLExecuter, id string) (*SubscriptionPurchase, error) {
	var purchase SubscriptionPurchase
	const query = `
		SELECT
			*
		FROM
			subscription_purchases sp
		WHERE
			sp.id = $1
	`

	err := sqlExec.GetContext(ctx, &purchase, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("querying subscription purchase ID %s: %w", id, err)
	}
	return &purchase, nil
}

// GetByTxRefForUpdate locks the purchase row so settlement can decide
// idempotently whether it already completed.
func (m *SubscriptionModel) GetByTxRefForUpdate(ctx context.Context, sqlExec db.SQLExecuter, txRef string) (*SubscriptionPurchase, error) {
	var purchase SubscriptionPurchase
	const query = `
		SELECT
			*
		FROM
			subscription_purchases sp
		WHERE
			sp.tx_ref = $1
		FOR UPDATE
	`

	err := sqlExec.GetContext(ctx, &purchase, query, txRef)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("querying subscription purchase tx_ref %s for update: %w", txRef, err)
	}
	return &purchase, nil
}

// AttachCheckout stores the provider checkout handle on an initiated purchase.
func (m *SubscriptionModel) AttachCheckout(ctx context.Context, sqlExec db.SQLExecuter, id, checkoutURL string, providerRef *string) error {
	const query = `
		UPDATE
			subscription_purchases
		SET
			checkout_url = $2,
			provider_ref = COALESCE($3, provider_ref),
			updated_at = NOW()
		WHERE
			id = $1
	`

	result, err := sqlExec.ExecContext(ctx, query, id, checkoutURL, providerRef)
	if err != nil {
		return fmt.Errorf("attaching checkout to subscription purchase ID %s: %w", id, err)
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

// Complete marks an initiated purchase as settled and stamps the perk window.
func (m *SubscriptionModel) Complete(ctx context.Context, sqlExec db.SQLExecuter, id string, activatedAt, expiresAt time.Time) (*SubscriptionPurchase, error) {
	const query = `
		UPDATE
			subscription_purchases
		SET
			status = $2,
			activated_at = $3,
			expires_at = $4,
			updated_at = NOW()
		WHERE
			id = $1
			AND status = $5
		RETURNING
			*
	`

	var purchase SubscriptionPurchase
	err := sqlExec.GetContext(ctx, &purchase, query, id, CompletedSubscriptionStatus, activatedAt, expiresAt, InitiatedSubscriptionStatus)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMismatchNumRowsAffected
		}
		return nil, fmt.Errorf("completing subscription purchase ID %s: %w", id, err)
	}
	return &purchase, nil
}
