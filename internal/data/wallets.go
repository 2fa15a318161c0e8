package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/fikir-app/fikir-backend/db"
)

// Wallet carries a user's coin purse and their ETB creator earnings.
// available = balance_etb - hold_etb; the hold backs PENDING/APPROVED
// withdrawal requests.
type Wallet struct {
	ID                 string          `json:"id" db:"id"`
	UserID             string          `json:"user_id" db:"user_id"`
	CoinBalance        int64           `json:"coin_balance" db:"coin_balance"`
	BalanceETB         decimal.Decimal `json:"balance_etb" db:"balance_etb"`
	HoldETB            decimal.Decimal `json:"hold_etb" db:"hold_etb"`
	KYCLevel           int16           `json:"kyc_level" db:"kyc_level"`
	WithdrawalsBlocked bool            `json:"withdrawals_blocked" db:"withdrawals_blocked"`
	IsBanned           bool            `json:"is_banned" db:"is_banned"`
	CreatedAt          time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at" db:"updated_at"`
}

// AvailableETB is the withdrawable portion of the ETB balance.
func (w Wallet) AvailableETB() decimal.Decimal {
	return w.BalanceETB.Sub(w.HoldETB)
}

type WalletModel struct {
	dbConnectionPool db.DBConnectionPool
}

const walletSelectByUserQuery = `
	SELECT
		*
	FROM
		wallets w
	WHERE
		w.user_id = $1
`

func (m *WalletModel) GetByUserID(ctx context.Context, sqlExec db.SQLExecuter, userID string) (*Wallet, error) {
	var wallet Wallet
	err := sqlExec.GetContext(ctx, &wallet, walletSelectByUserQuery, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("querying wallet for user %s: %w", userID, err)
	}
	return &wallet, nil
}

// GetByUserIDForUpdate locks the wallet row for the remainder of the caller's
// transaction.
func (m *WalletModel) GetByUserIDForUpdate(ctx context.Context, sqlExec db.SQLExecuter, userID string) (*Wallet, error) {
	var wallet Wallet
	query := walletSelectByUserQuery + `	FOR UPDATE`
	err := sqlExec.GetContext(ctx, &wallet, query, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("locking wallet for user %s: %w", userID, err)
	}
	return &wallet, nil
}

// LockPair locks both users' wallets in ascending user-id order, which keeps
// concurrent gift sends between the same two users deadlock-free. The wallets
// are returned in (userA, userB) argument order.
func (m *WalletModel) LockPair(ctx context.Context, sqlExec db.SQLExecuter, userAID, userBID string) (*Wallet, *Wallet, error) {
	wallets := []Wallet{}
	query := `
		SELECT
			*
		FROM
			wallets w
		WHERE
			w.user_id = ANY($1)
		ORDER BY
			w.user_id ASC
		FOR UPDATE
	`

	err := sqlExec.SelectContext(ctx, &wallets, query, pq.Array([]string{userAID, userBID}))
	if err != nil {
		return nil, nil, fmt.Errorf("locking wallet pair (%s, %s): %w", userAID, userBID, err)
	}
	if len(wallets) != 2 {
		return nil, nil, ErrRecordNotFound
	}

	byUser := map[string]*Wallet{
		wallets[0].UserID: &wallets[0],
		wallets[1].UserID: &wallets[1],
	}
	walletA, walletB := byUser[userAID], byUser[userBID]
	if walletA == nil || walletB == nil {
		return nil, nil, ErrRecordNotFound
	}
	return walletA, walletB, nil
}

// DebitCoins decrements the coin balance in a single conditional statement.
// It returns false, with no row changed, when the balance does not cover the
// amount.
func (m *WalletModel) DebitCoins(ctx context.Context, sqlExec db.SQLExecuter, walletID string, coins int64) (bool, error) {
	query := `
		UPDATE wallets
		SET
			coin_balance = coin_balance - $2,
			updated_at = NOW()
		WHERE
			id = $1
			AND coin_balance >= $2
	`

	result, err := sqlExec.ExecContext(ctx, query, walletID, coins)
	if err != nil {
		return false, fmt.Errorf("debiting %d coins from wallet %s: %w", coins, walletID, err)
	}
	numRowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("getting number of rows affected: %w", err)
	}
	return numRowsAffected == 1, nil
}

// CreditCoins adds purchased coins and returns the resulting balance.
func (m *WalletModel) CreditCoins(ctx context.Context, sqlExec db.SQLExecuter, walletID string, coins int64) (int64, error) {
	query := `
		UPDATE wallets
		SET
			coin_balance = coin_balance + $2,
			updated_at = NOW()
		WHERE
			id = $1
		RETURNING coin_balance
	`

	var newBalance int64
	err := sqlExec.GetContext(ctx, &newBalance, query, walletID, coins)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrRecordNotFound
		}
		return 0, fmt.Errorf("crediting %d coins to wallet %s: %w", coins, walletID, err)
	}
	return newBalance, nil
}

// CreditEarnings adds the creator payout of a gift to the ETB balance.
func (m *WalletModel) CreditEarnings(ctx context.Context, sqlExec db.SQLExecuter, walletID string, amount decimal.Decimal) (decimal.Decimal, error) {
	query := `
		UPDATE wallets
		SET
			balance_etb = balance_etb + $2,
			updated_at = NOW()
		WHERE
			id = $1
		RETURNING balance_etb
	`

	var newBalance decimal.Decimal
	err := sqlExec.GetContext(ctx, &newBalance, query, walletID, amount)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, ErrRecordNotFound
		}
		return decimal.Zero, fmt.Errorf("crediting earnings %s to wallet %s: %w", amount, walletID, err)
	}
	return newBalance, nil
}

// PlaceHold reserves part of the ETB balance for a withdrawal request. The
// hold-within-balance check constraint is the backstop; callers verify
// available funds under the row lock first.
func (m *WalletModel) PlaceHold(ctx context.Context, sqlExec db.SQLExecuter, walletID string, amount decimal.Decimal) error {
	query := `
		UPDATE wallets
		SET
			hold_etb = hold_etb + $2,
			updated_at = NOW()
		WHERE
			id = $1
	`

	result, err := sqlExec.ExecContext(ctx, query, walletID, amount)
	if err != nil {
		if isCheckViolation(err) {
			return ErrInsufficientBalance
		}
		return fmt.Errorf("placing hold of %s on wallet %s: %w", amount, walletID, err)
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

// ReleaseHold gives a rejected withdrawal's hold back, clamped at zero.
func (m *WalletModel) ReleaseHold(ctx context.Context, sqlExec db.SQLExecuter, walletID string, amount decimal.Decimal) error {
	query := `
		UPDATE wallets
		SET
			hold_etb = GREATEST(hold_etb - $2, 0),
			updated_at = NOW()
		WHERE
			id = $1
	`

	result, err := sqlExec.ExecContext(ctx, query, walletID, amount)
	if err != nil {
		return fmt.Errorf("releasing hold of %s on wallet %s: %w", amount, walletID, err)
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

// SettleWithdrawal removes a paid withdrawal's amount from both the balance
// and the hold that was backing it.
func (m *WalletModel) SettleWithdrawal(ctx context.Context, sqlExec db.SQLExecuter, walletID string, amount decimal.Decimal) error {
	query := `
		UPDATE wallets
		SET
			balance_etb = balance_etb - $2,
			hold_etb = GREATEST(hold_etb - $2, 0),
			updated_at = NOW()
		WHERE
			id = $1
	`

	result, err := sqlExec.ExecContext(ctx, query, walletID, amount)
	if err != nil {
		if isCheckViolation(err) {
			return ErrInsufficientBalance
		}
		return fmt.Errorf("settling withdrawal of %s on wallet %s: %w", amount, walletID, err)
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

// SetWithdrawalsBlocked flips the risk block flag. It returns true when the
// flag actually changed, so callers audit only real transitions.
func (m *WalletModel) SetWithdrawalsBlocked(ctx context.Context, sqlExec db.SQLExecuter, userID string, blocked bool) (bool, error) {
	query := `
		UPDATE wallets
		SET
			withdrawals_blocked = $2,
			updated_at = NOW()
		WHERE
			user_id = $1
			AND withdrawals_blocked IS DISTINCT FROM $2
	`

	result, err := sqlExec.ExecContext(ctx, query, userID, blocked)
	if err != nil {
		return false, fmt.Errorf("setting withdrawals_blocked=%t for user %s: %w", blocked, userID, err)
	}
	numRowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("getting number of rows affected: %w", err)
	}
	return numRowsAffected == 1, nil
}

// RaiseKYCLevel lifts the wallet's KYC level to at least the given level,
// never lowering it.
func (m *WalletModel) RaiseKYCLevel(ctx context.Context, sqlExec db.SQLExecuter, userID string, level int16) error {
	query := `
		UPDATE wallets
		SET
			kyc_level = GREATEST(kyc_level, $2),
			updated_at = NOW()
		WHERE
			user_id = $1
	`

	result, err := sqlExec.ExecContext(ctx, query, userID, level)
	if err != nil {
		return fmt.Errorf("raising kyc level for user %s: %w", userID, err)
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

// GetOrCreate returns the user's wallet, creating the zero-balance row on
// first touch.
func (m *WalletModel) GetOrCreate(ctx context.Context, sqlExec db.SQLExecuter, userID string) (*Wallet, error) {
	query := `
		INSERT INTO wallets
			(user_id)
		VALUES
			($1)
		ON CONFLICT (user_id) DO NOTHING
	`

	_, err := sqlExec.ExecContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("ensuring wallet for user %s: %w", userID, err)
	}

	return m.GetByUserID(ctx, sqlExec, userID)
}

func isCheckViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23514"
}
