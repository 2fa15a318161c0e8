package data

import (
	"errors"

	"github.com/lib/pq"

	"github.com/fikir-app/fikir-backend/db"
)

var (
	ErrRecordNotFound          = errors.New("record not found")
	ErrRecordAlreadyExists     = errors.New("record already exists")
	ErrMismatchNumRowsAffected = errors.New("mismatch number of rows affected")
	ErrMissingInput            = errors.New("missing input")
	ErrInsufficientBalance     = errors.New("insufficient balance")
)

type Models struct {
	Users            *UserModel
	Wallets          *WalletModel
	CoinPackages     *CoinPackageModel
	Gifts            *GiftModel
	Payments         *PaymentModel
	Receipts         *ReceiptModel
	GiftTransactions *GiftTransactionModel
	Withdrawals      *WithdrawalModel
	KYCSubmissions   *KYCSubmissionModel
	AuditLogs        *AuditLogModel
	Subscriptions    *SubscriptionModel
	DBConnectionPool db.DBConnectionPool
}

func NewModels(dbConnectionPool db.DBConnectionPool) (*Models, error) {
	if dbConnectionPool == nil {
		return nil, errors.New("dbConnectionPool is required for NewModels")
	}
	return &Models{
		Users:            &UserModel{dbConnectionPool: dbConnectionPool},
		Wallets:          &WalletModel{dbConnectionPool: dbConnectionPool},
		CoinPackages:     &CoinPackageModel{dbConnectionPool: dbConnectionPool},
		Gifts:            &GiftModel{dbConnectionPool: dbConnectionPool},
		Payments:         &PaymentModel{dbConnectionPool: dbConnectionPool},
		Receipts:         &ReceiptModel{dbConnectionPool: dbConnectionPool},
		GiftTransactions: &GiftTransactionModel{dbConnectionPool: dbConnectionPool},
		Withdrawals:      &WithdrawalModel{dbConnectionPool: dbConnectionPool},
		KYCSubmissions:   &KYCSubmissionModel{dbConnectionPool: dbConnectionPool},
		AuditLogs:        &AuditLogModel{dbConnectionPool: dbConnectionPool},
		Subscriptions:    &SubscriptionModel{dbConnectionPool: dbConnectionPool},
		DBConnectionPool: dbConnectionPool,
	}, nil
}

// IsLedgerConflict reports whether err is a transient ledger conflict the
// caller may retry or map to 409: either a transaction that exhausted its
// conflict retries, or a raw Postgres serialization failure, deadlock or lock
// timeout from a single-statement operation.
func IsLedgerConflict(err error) bool {
	if errors.Is(err, db.ErrLedgerConflict) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "40001" || pqErr.Code == "40P01" || pqErr.Code == "55P03"
	}
	return false
}
