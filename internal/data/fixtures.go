package data

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/fikir-app/fikir-backend/db"
)

func CreateUserFixture(t *testing.T, ctx context.Context, sqlExec db.SQLExecuter, username string, isAdmin bool) *User {
	if username == "" {
		username = fmt.Sprintf("user-%s", uuid.NewString()[:8])
	}

	const query = `
		INSERT INTO users
			(username, email, is_admin)
		VALUES
			($1, $2, $3)
		RETURNING
			*
	`

	user := &User{}
	err := sqlExec.GetContext(ctx, user, query, username, fmt.Sprintf("%s@example.com", username), isAdmin)
	require.NoError(t, err)

	return user
}

func CreateWalletFixture(t *testing.T, ctx context.Context, sqlExec db.SQLExecuter, userID string, coinBalance int64, balanceETB, holdETB decimal.Decimal) *Wallet {
	const query = `
		INSERT INTO wallets
			(user_id, coin_balance, balance_etb, hold_etb)
		VALUES
			($1, $2, $3, $4)
		RETURNING
			*
	`

	wallet := &Wallet{}
	err := sqlExec.GetContext(ctx, wallet, query, userID, coinBalance, balanceETB, holdETB)
	require.NoError(t, err)

	return wallet
}

// UpdateWalletFixture adjusts the policy columns that gate withdrawals.
func UpdateWalletFixture(t *testing.T, ctx context.Context, sqlExec db.SQLExecuter, userID string, kycLevel int16, withdrawalsBlocked, isBanned bool) {
	const query = `
		UPDATE
			wallets
		SET
			kyc_level = $2,
			withdrawals_blocked = $3,
			is_banned = $4,
			updated_at = NOW()
		WHERE
			user_id = $1
	`

	_, err := sqlExec.ExecContext(ctx, query, userID, kycLevel, withdrawalsBlocked, isBanned)
	require.NoError(t, err)
}

func CreateCoinPackageFixture(t *testing.T, ctx context.Context, sqlExec db.SQLExecuter, name string, coins int64, targetNetETB, baseETB, vatETB, priceTotalETB decimal.Decimal) *CoinPackage {
	if name == "" {
		name = fmt.Sprintf("package-%s", uuid.NewString()[:8])
	}

	const query = `
		INSERT INTO coin_packages
			(name, coins, target_net_etb, base_etb, vat_etb, price_total_etb)
		VALUES
			($1, $2, $3, $4, $5, $6)
		RETURNING
			*
	`

	pkg := &CoinPackage{}
	err := sqlExec.GetContext(ctx, pkg, query, name, coins, targetNetETB, baseETB, vatETB, priceTotalETB)
	require.NoError(t, err)

	return pkg
}

func CreateGiftFixture(t *testing.T, ctx context.Context, sqlExec db.SQLExecuter, name string, coins int64, valueETB decimal.Decimal) *Gift {
	if name == "" {
		name = fmt.Sprintf("gift-%s", uuid.NewString()[:8])
	}

	const query = `
		INSERT INTO gifts
			(name, coins, value_etb, icon)
		VALUES
			($1, $2, $3, $4)
		RETURNING
			*
	`

	gift := &Gift{}
	err := sqlExec.GetContext(ctx, gift, query, name, coins, valueETB, "🌹")
	require.NoError(t, err)

	return gift
}

func CreatePaymentFixture(t *testing.T, ctx context.Context, sqlExec db.SQLExecuter, userID string, packageID *string, status PaymentStatus, txRef string, priceTotalETB, vatETB decimal.Decimal) *Payment {
	if txRef == "" {
		txRef = fmt.Sprintf("coin-%s-%s", userID, uuid.NewString()[:8])
		if len(txRef) > 50 {
			txRef = txRef[:50]
		}
	}

	const query = `
		INSERT INTO payments
			(user_id, package_id, status, status_history, provider, tx_ref, price_total_etb, vat_etb)
		VALUES
			($1, $2, $3, ARRAY[create_payment_status_history(NOW(), $3, '')], $4, $5, $6, $7)
		RETURNING
			*
	`

	payment := &Payment{}
	err := sqlExec.GetContext(ctx, payment, query, userID, packageID, status, ChapaPaymentProvider, txRef, priceTotalETB, vatETB)
	require.NoError(t, err)

	return payment
}

func CreateWithdrawalFixture(t *testing.T, ctx context.Context, sqlExec db.SQLExecuter, userID string, status WithdrawalStatus, destination string, amountETB decimal.Decimal) *Withdrawal {
	if destination == "" {
		destination = "0911000000"
	}

	const query = `
		INSERT INTO withdrawal_requests
			(user_id, method, destination, amount_etb, status, status_history)
		VALUES
			($1, $2, $3, $4, $5, ARRAY[create_withdrawal_status_history(NOW(), $5, '', $1)])
		RETURNING
			*
	`

	withdrawal := &Withdrawal{}
	err := sqlExec.GetContext(ctx, withdrawal, query, userID, ChapaWithdrawalMethod, destination, amountETB, status)
	require.NoError(t, err)

	return withdrawal
}

func CreateGiftTransactionFixture(t *testing.T, ctx context.Context, sqlExec db.SQLExecuter, senderID, recipientID, giftID string, valueETB decimal.Decimal, createdAt time.Time) *GiftTransaction {
	const query = `
		INSERT INTO gift_transactions
			(sender_id, recipient_id, gift_id, quantity, coins_spent, value_etb,
			commission_gross, vat_on_commission, commission_net, creator_payout,
			status, created_at)
		VALUES
			($1, $2, $3, 1, 500, $4, 0, 0, 0, $4, $5, $6)
		RETURNING
			*
	`

	tx := &GiftTransaction{}
	err := sqlExec.GetContext(ctx, tx, query, senderID, recipientID, giftID, valueETB, SuccessGiftTransactionStatus, createdAt)
	require.NoError(t, err)

	return tx
}

func CreateKYCSubmissionFixture(t *testing.T, ctx context.Context, sqlExec db.SQLExecuter, userID string, status KYCStatus) *KYCSubmission {
	const query = `
		INSERT INTO kyc_submissions
			(user_id, doc_type, document_path, selfie_path, status)
		VALUES
			($1, $2, $3, $4, $5)
		RETURNING
			*
	`

	submission := &KYCSubmission{}
	err := sqlExec.GetContext(ctx, submission, query,
		userID, NIDKYCDocType,
		fmt.Sprintf("kyc/%s/%s-document", userID, uuid.NewString()),
		fmt.Sprintf("kyc/%s/%s-selfie", userID, uuid.NewString()),
		status)
	require.NoError(t, err)

	return submission
}

func CreateSubscriptionPurchaseFixture(t *testing.T, ctx context.Context, sqlExec db.SQLExecuter, userID string, plan SubscriptionPlan, status SubscriptionStatus, amountETB decimal.Decimal) *SubscriptionPurchase {
	txRef := fmt.Sprintf("sub-%s-%s", plan, uuid.NewString()[:12])

	const query = `
		INSERT INTO subscription_purchases
			(user_id, plan, amount_etb, duration_days, status, tx_ref)
		VALUES
			($1, $2, $3, 30, $4, $5)
		RETURNING
			*
	`

	purchase := &SubscriptionPurchase{}
	err := sqlExec.GetContext(ctx, purchase, query, userID, plan, amountETB, status, txRef)
	require.NoError(t, err)

	return purchase
}

func DeleteAllUsersFixtures(t *testing.T, ctx context.Context, sqlExec db.SQLExecuter) {
	const query = "DELETE FROM users"
	_, err := sqlExec.ExecContext(ctx, query)
	require.NoError(t, err)
}

func DeleteAllWalletsFixtures(t *testing.T, ctx context.Context, sqlExec db.SQLExecuter) {
	const query = "DELETE FROM wallets"
	_, err := sqlExec.ExecContext(ctx, query)
	require.NoError(t, err)
}

func DeleteAllCoinPackagesFixtures(t *testing.T, ctx context.Context, sqlExec db.SQLExecuter) {
	const query = "DELETE FROM coin_packages"
	_, err := sqlExec.ExecContext(ctx, query)
	require.NoError(t, err)
}

func DeleteAllGiftsFixtures(t *testing.T, ctx context.Context, sqlExec db.SQLExecuter) {
	const query = "DELETE FROM gifts"
	_, err := sqlExec.ExecContext(ctx, query)
	require.NoError(t, err)
}

func DeleteAllPaymentsFixtures(t *testing.T, ctx context.Context, sqlExec db.SQLExecuter) {
	const query = "DELETE FROM payments"
	_, err := sqlExec.ExecContext(ctx, query)
	require.NoError(t, err)
}

func DeleteAllReceiptsFixtures(t *testing.T, ctx context.Context, sqlExec db.SQLExecuter) {
	const query = "DELETE FROM receipts"
	_, err := sqlExec.ExecContext(ctx, query)
	require.NoError(t, err)
}

func DeleteAllGiftTransactionsFixtures(t *testing.T, ctx context.Context, sqlExec db.SQLExecuter) {
	const query = "DELETE FROM gift_transactions"
	_, err := sqlExec.ExecContext(ctx, query)
	require.NoError(t, err)
}

func DeleteAllWithdrawalsFixtures(t *testing.T, ctx context.Context, sqlExec db.SQLExecuter) {
	const query = "DELETE FROM withdrawal_requests"
	_, err := sqlExec.ExecContext(ctx, query)
	require.NoError(t, err)
}

func DeleteAllKYCSubmissionsFixtures(t *testing.T, ctx context.Context, sqlExec db.SQLExecuter) {
	const query = "DELETE FROM kyc_submissions"
	_, err := sqlExec.ExecContext(ctx, query)
	require.NoError(t, err)
}

func DeleteAllAuditLogsFixtures(t *testing.T, ctx context.Context, sqlExec db.SQLExecuter) {
	const query = "DELETE FROM audit_logs"
	_, err := sqlExec.ExecContext(ctx, query)
	require.NoError(t, err)
}

func DeleteAllSubscriptionPurchasesFixtures(t *testing.T, ctx context.Context, sqlExec db.SQLExecuter) {
	const query = "DELETE FROM subscription_purchases"
	_, err := sqlExec.ExecContext(ctx, query)
	require.NoError(t, err)
}

func DeleteAllFixtures(t *testing.T, ctx context.Context, sqlExec db.SQLExecuter) {
	DeleteAllAuditLogsFixtures(t, ctx, sqlExec)
	DeleteAllSubscriptionPurchasesFixtures(t, ctx, sqlExec)
	DeleteAllKYCSubmissionsFixtures(t, ctx, sqlExec)
	DeleteAllWithdrawalsFixtures(t, ctx, sqlExec)
	DeleteAllGiftTransactionsFixtures(t, ctx, sqlExec)
	DeleteAllReceiptsFixtures(t, ctx, sqlExec)
	DeleteAllPaymentsFixtures(t, ctx, sqlExec)
	DeleteAllGiftsFixtures(t, ctx, sqlExec)
	DeleteAllCoinPackagesFixtures(t, ctx, sqlExec)
	DeleteAllWalletsFixtures(t, ctx, sqlExec)
	DeleteAllUsersFixtures(t, ctx, sqlExec)
}
