package data

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/fikir-app/fikir-backend/db"
)

type AuditEvent string

const (
	PaymentSuccessAuditEvent        AuditEvent = "PAYMENT_SUCCESS"
	GiftSentAuditEvent              AuditEvent = "GIFT_SENT"
	GiftReceivedAuditEvent          AuditEvent = "GIFT_RECEIVED"
	GiftSendFailedAuditEvent        AuditEvent = "GIFT_SEND_FAILED"
	WithdrawalRequestedAuditEvent   AuditEvent = "WITHDRAWAL_REQUESTED"
	WithdrawalApprovedAuditEvent    AuditEvent = "WITHDRAWAL_APPROVED"
	WithdrawalRejectedAuditEvent    AuditEvent = "WITHDRAWAL_REJECTED"
	WithdrawalPaidAuditEvent        AuditEvent = "WITHDRAWAL_PAID"
	KYCSubmittedAuditEvent          AuditEvent = "KYC_SUBMITTED"
	KYCVerifiedAuditEvent           AuditEvent = "KYC_VERIFIED"
	KYCRejectedAuditEvent           AuditEvent = "KYC_REJECTED"
	RiskFlaggedAuditEvent           AuditEvent = "RISK_FLAGGED"
	RiskClearedAuditEvent           AuditEvent = "RISK_CLEARED"
	SubscriptionActivatedAuditEvent AuditEvent = "SUBSCRIPTION_ACTIVATED"
	CoinsGrantedAuditEvent          AuditEvent = "COINS_GRANTED"
	GatewayFeeMismatchAuditEvent    AuditEvent = "GATEWAY_FEE_MISMATCH"
)

func (e AuditEvent) Validate() error {
	switch AuditEvent(strings.ToUpper(string(e))) {
	case PaymentSuccessAuditEvent, GiftSentAuditEvent, GiftReceivedAuditEvent, GiftSendFailedAuditEvent,
		WithdrawalRequestedAuditEvent, WithdrawalApprovedAuditEvent, WithdrawalRejectedAuditEvent, WithdrawalPaidAuditEvent,
		KYCSubmittedAuditEvent, KYCVerifiedAuditEvent, KYCRejectedAuditEvent,
		RiskFlaggedAuditEvent, RiskClearedAuditEvent,
		SubscriptionActivatedAuditEvent, CoinsGrantedAuditEvent, GatewayFeeMismatchAuditEvent:
		return nil
	default:
		return fmt.Errorf("invalid audit event: %s", e)
	}
}

// AuditMetadata is the free-form JSON payload attached to an audit entry.
type AuditMetadata map[string]interface{}

var (
	_ sql.Scanner   = (*AuditMetadata)(nil)
	_ driver.Valuer = (AuditMetadata)(nil)
)

// Scan implements the sql.Scanner interface.
func (am *AuditMetadata) Scan(src interface{}) error {
	data, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("unexpected type for AuditMetadata %T", src)
	}
	if err := json.Unmarshal(data, am); err != nil {
		return fmt.Errorf("unmarshaling metadata column: %w", err)
	}
	return nil
}

// Value implements the driver.Valuer interface.
func (am AuditMetadata) Value() (driver.Value, error) {
	if am == nil {
		return "{}", nil
	}
	data, err := json.Marshal(am)
	if err != nil {
		return nil, fmt.Errorf("marshaling audit metadata: %w", err)
	}
	return string(data), nil
}

// AuditLog is an append-only record of a money-relevant action. Rows are
// never updated or deleted.
type AuditLog struct {
	ID        string        `json:"id" db:"id"`
	UserID    *string       `json:"user_id,omitempty" db:"user_id"`
	Event     AuditEvent    `json:"event" db:"event"`
	Metadata  AuditMetadata `json:"metadata" db:"metadata"`
	CreatedAt time.Time     `json:"created_at" db:"created_at"`
}

type AuditLogModel struct {
	dbConnectionPool db.DBConnectionPool
}

var (
	DefaultAuditLogSortField = SortFieldCreatedAt
	DefaultAuditLogSortOrder = SortOrderDESC
	AllowedAuditLogFilters   = []FilterKey{FilterKeyEvent, FilterKeyUserID, FilterKeyCreatedAtAfter, FilterKeyCreatedAtBefore}
	AllowedAuditLogSorts     = []SortField{SortFieldCreatedAt}
)

func (m *AuditLogModel) Insert(ctx context.Context, sqlExec db.SQLExecuter, userID *string, event AuditEvent, metadata AuditMetadata) (*AuditLog, error) {
	if event == "" {
		return nil, ErrMissingInput
	}

	const query = `
		INSERT INTO audit_logs
			(user_id, event, metadata)
		VALUES
			($1, $2, $3)
		RETURNING
			*
	`

	var entry AuditLog
	err := sqlExec.GetContext(ctx, &entry, query, userID, event, metadata)
	if err != nil {
		return nil, fmt.Errorf("inserting audit log %s: %w", event, err)
	}
	return &entry, nil
}

// GetAll returns audit entries matching the given query parameters, for the
// admin export.
func (m *AuditLogModel) GetAll(ctx context.Context, sqlExec db.SQLExecuter, queryParams *QueryParams) ([]AuditLog, error) {
	entries := []AuditLog{}
	baseQuery := `
		SELECT
			*
		FROM
			audit_logs a
	`

	qb := NewQueryBuilder(baseQuery)
	if queryParams.Filters[FilterKeyUserID] != nil {
		qb.AddCondition("a.user_id = ?", queryParams.Filters[FilterKeyUserID])
	}
	if queryParams.Filters[FilterKeyEvent] != nil {
		qb.AddCondition("a.event = ?", queryParams.Filters[FilterKeyEvent])
	}
	if queryParams.Filters[FilterKeyCreatedAtAfter] != nil {
		qb.AddCondition("a.created_at >= ?", queryParams.Filters[FilterKeyCreatedAtAfter])
	}
	if queryParams.Filters[FilterKeyCreatedAtBefore] != nil {
		qb.AddCondition("a.created_at <= ?", queryParams.Filters[FilterKeyCreatedAtBefore])
	}
	qb.AddSorting(queryParams.SortBy, queryParams.SortOrder, "a")
	qb.AddPagination(queryParams.Page, queryParams.PageLimit)
	query, params := qb.BuildAndRebind(sqlExec)

	err := sqlExec.SelectContext(ctx, &entries, query, params...)
	if err != nil {
		return nil, fmt.Errorf("querying audit logs: %w", err)
	}
	return entries, nil
}

// DistinctUserIDsSince returns the ids of users with any audited activity at
// or after the given instant. Every money movement writes an audit row, so
// this is the risk sweep's working set.
func (m *AuditLogModel) DistinctUserIDsSince(ctx context.Context, sqlExec db.SQLExecuter, since time.Time) ([]string, error) {
	userIDs := []string{}
	const query = `
		SELECT DISTINCT
			a.user_id
		FROM
			audit_logs a
		WHERE
			a.user_id IS NOT NULL
			AND a.created_at >= $1
	`

	err := sqlExec.SelectContext(ctx, &userIDs, query, since)
	if err != nil {
		return nil, fmt.Errorf("selecting recently active user IDs: %w", err)
	}
	return userIDs, nil
}
