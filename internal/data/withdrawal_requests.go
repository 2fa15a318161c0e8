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

type WithdrawalMethod string

const (
	ChapaWithdrawalMethod    WithdrawalMethod = "CHAPA"
	TelebirrWithdrawalMethod WithdrawalMethod = "TELEBIRR"
)

func (m WithdrawalMethod) Validate() error {
	switch WithdrawalMethod(strings.ToUpper(string(m))) {
	case ChapaWithdrawalMethod, TelebirrWithdrawalMethod:
		return nil
	default:
		return fmt.Errorf("invalid withdrawal method: %s", m)
	}
}

// Withdrawal is a request to move held creator earnings out to an external
// destination. It advances PENDING -> APPROVED -> PAID, or PENDING ->
// REJECTED, and its amount is covered by the wallet's hold for the whole
// active window.
type Withdrawal struct {
	ID            string                  `json:"id" db:"id"`
	UserID        string                  `json:"user_id" db:"user_id"`
	Method        WithdrawalMethod        `json:"method" db:"method"`
	Destination   string                  `json:"destination" db:"destination"`
	AmountETB     decimal.Decimal         `json:"amount_etb" db:"amount_etb"`
	Status        WithdrawalStatus        `json:"status" db:"status"`
	StatusHistory WithdrawalStatusHistory `json:"status_history,omitempty" db:"status_history"`
	ProviderRef   *string                 `json:"provider_ref,omitempty" db:"provider_ref"`
	FailureReason *string                 `json:"failure_reason,omitempty" db:"failure_reason"`
	ReviewedBy    *string                 `json:"reviewed_by,omitempty" db:"reviewed_by"`
	ApprovedAt    *time.Time              `json:"approved_at,omitempty" db:"approved_at"`
	PaidAt        *time.Time              `json:"paid_at,omitempty" db:"paid_at"`
	CreatedAt     time.Time               `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time               `json:"updated_at" db:"updated_at"`
}

type WithdrawalStatusHistoryEntry struct {
	Status        WithdrawalStatus `json:"status"`
	StatusMessage string           `json:"status_message"`
	UserID        string           `json:"user_id"`
	Timestamp     time.Time        `json:"timestamp"`
}

type WithdrawalStatusHistory []WithdrawalStatusHistoryEntry

var (
	_ sql.Scanner   = (*WithdrawalStatusHistory)(nil)
	_ driver.Valuer = (*WithdrawalStatusHistory)(nil)
)

// Scan implements the sql.Scanner interface.
func (wsh *WithdrawalStatusHistory) Scan(src interface{}) error {
	var statusHistoryJSON []string
	if err := pq.Array(&statusHistoryJSON).Scan(src); err != nil {
		return fmt.Errorf("scanning withdrawal status history value: %w", err)
	}

	for _, statusHistoryJSON := range statusHistoryJSON {
		var entry WithdrawalStatusHistoryEntry
		err := json.Unmarshal([]byte(statusHistoryJSON), &entry)
		if err != nil {
			return fmt.Errorf("unmarshaling status_history column: %w", err)
		}
		*wsh = append(*wsh, entry)
	}

	return nil
}

// Value implements the driver.Valuer interface.
func (wsh WithdrawalStatusHistory) Value() (driver.Value, error) {
	var statusHistoryJSON []string
	for _, entry := range wsh {
		entryJSON, err := json.Marshal(entry)
		if err != nil {
			return nil, fmt.Errorf("marshaling withdrawal status history: %w", err)
		}
		statusHistoryJSON = append(statusHistoryJSON, string(entryJSON))
	}

	return pq.Array(statusHistoryJSON).Value()
}

type WithdrawalInsert struct {
	UserID      string
	Method      WithdrawalMethod
	Destination string
	AmountETB   decimal.Decimal
}

func (i WithdrawalInsert) Validate() error {
	if i.UserID == "" {
		return fmt.Errorf("user_id is required")
	}
	if err := i.Method.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(i.Destination) == "" {
		return fmt.Errorf("destination is required")
	}
	if !i.AmountETB.IsPositive() {
		return fmt.Errorf("amount_etb must be positive")
	}
	return nil
}

type WithdrawalModel struct {
	dbConnectionPool db.DBConnectionPool
}

var (
	DefaultWithdrawalSortField = SortFieldCreatedAt
	DefaultWithdrawalSortOrder = SortOrderDESC
	AllowedWithdrawalFilters   = []FilterKey{FilterKeyStatus, FilterKeyUserID, FilterKeyMethod, FilterKeyCreatedAtAfter, FilterKeyCreatedAtBefore}
	AllowedWithdrawalSorts     = []SortField{SortFieldCreatedAt, SortFieldAmountETB}
)

func (m *WithdrawalModel) Insert(ctx context.Context, sqlExec db.SQLExecuter, insert WithdrawalInsert) (*Withdrawal, error) {
	if err := insert.Validate(); err != nil {
		return nil, fmt.Errorf("validating withdrawal insert: %w", err)
	}

	const query = `
		INSERT INTO withdrawal_requests
			(user_id, method, destination, amount_etb, status, status_history)
		VALUES
			($1, $2, $3, $4, $5, ARRAY[create_withdrawal_status_history(NOW(), $5, '', $1)])
		RETURNING
			*
	`

	var withdrawal Withdrawal
	err := sqlExec.GetContext(ctx, &withdrawal, query,
		insert.UserID, insert.Method, insert.Destination, insert.AmountETB, PendingWithdrawalStatus)
	if err != nil {
		return nil, fmt.Errorf("inserting withdrawal for user %s: %w", insert.UserID, err)
	}
	return &withdrawal, nil
}

func (m *WithdrawalModel) Get(ctx context.Context, sqlExec db.SQLExecuter, id string) (*Withdrawal, error) {
	var withdrawal Withdrawal
	const query = `
		SELECT
			*
		FROM
			withdrawal_requests w
		WHERE
			w.id = $1
	`

	err := sqlExec.GetContext(ctx, &withdrawal, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("querying withdrawal ID %s: %w", id, err)
	}
	return &withdrawal, nil
}

// GetForUpdate locks the withdrawal row so review and payout observe a
// stable status.
func (m *WithdrawalModel) GetForUpdate(ctx context.Context, sqlExec db.SQLExecuter, id string) (*Withdrawal, error) {
	var withdrawal Withdrawal
	const query = `
		SELECT
			*
		FROM
			withdrawal_requests w
		WHERE
			w.id = $1
		FOR UPDATE
	`

	err := sqlExec.GetContext(ctx, &withdrawal, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("querying withdrawal ID %s for update: %w", id, err)
	}
	return &withdrawal, nil
}

// SumActiveAmounts sums the user's PENDING and APPROVED withdrawal amounts.
// The result must equal the wallet's hold_etb.
func (m *WithdrawalModel) SumActiveAmounts(ctx context.Context, sqlExec db.SQLExecuter, userID string) (decimal.Decimal, error) {
	var total decimal.Decimal
	const query = `
		SELECT
			COALESCE(SUM(w.amount_etb), 0)
		FROM
			withdrawal_requests w
		WHERE
			w.user_id = $1
			AND w.status = ANY($2)
	`

	err := sqlExec.GetContext(ctx, &total, query, userID, pq.Array([]WithdrawalStatus{PendingWithdrawalStatus, ApprovedWithdrawalStatus}))
	if err != nil {
		return decimal.Zero, fmt.Errorf("summing active withdrawal amounts for user %s: %w", userID, err)
	}
	return total, nil
}

// SumNonRejectedSince sums the user's withdrawal amounts requested at or
// after the given instant, excluding rejected ones. Rolling daily and
// monthly limits are checked against it.
func (m *WithdrawalModel) SumNonRejectedSince(ctx context.Context, sqlExec db.SQLExecuter, userID string, since time.Time) (decimal.Decimal, error) {
	var total decimal.Decimal
	const query = `
		SELECT
			COALESCE(SUM(w.amount_etb), 0)
		FROM
			withdrawal_requests w
		WHERE
			w.user_id = $1
			AND w.status != $2
			AND w.created_at >= $3
	`

	err := sqlExec.GetContext(ctx, &total, query, userID, RejectedWithdrawalStatus, since)
	if err != nil {
		return decimal.Zero, fmt.Errorf("summing non-rejected withdrawals for user %s: %w", userID, err)
	}
	return total, nil
}

// TopDestinationSince returns the destination the user requested most often
// at or after the given instant, with its request count. Ties break on the
// lexicographically smaller destination. Returns ("", 0, nil) when the user
// has no requests in the window.
func (m *WithdrawalModel) TopDestinationSince(ctx context.Context, sqlExec db.SQLExecuter, userID string, since time.Time) (string, int64, error) {
	var row struct {
		Destination string `db:"destination"`
		Count       int64  `db:"count"`
	}
	const query = `
		SELECT
			w.destination,
			COUNT(*) AS count
		FROM
			withdrawal_requests w
		WHERE
			w.user_id = $1
			AND w.created_at >= $2
		GROUP BY
			w.destination
		ORDER BY
			count DESC,
			w.destination ASC
		LIMIT 1
	`

	err := sqlExec.GetContext(ctx, &row, query, userID, since)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", 0, nil
		}
		return "", 0, fmt.Errorf("finding top withdrawal destination for user %s: %w", userID, err)
	}
	return row.Destination, row.Count, nil
}

// Approve transitions a pending withdrawal to APPROVED and records the
// reviewer.
func (m *WithdrawalModel) Approve(ctx context.Context, sqlExec db.SQLExecuter, id, reviewerID string) (*Withdrawal, error) {
	const query = `
		UPDATE
			withdrawal_requests
		SET
			status = $2,
			status_history = array_append(status_history, create_withdrawal_status_history(NOW(), $2, '', $3)),
			reviewed_by = $3,
			approved_at = NOW(),
			updated_at = NOW()
		WHERE
			id = $1
			AND status = $4
		RETURNING
			*
	`

	var withdrawal Withdrawal
	err := sqlExec.GetContext(ctx, &withdrawal, query, id, ApprovedWithdrawalStatus, reviewerID, PendingWithdrawalStatus)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMismatchNumRowsAffected
		}
		return nil, fmt.Errorf("approving withdrawal ID %s: %w", id, err)
	}
	return &withdrawal, nil
}

// Reject transitions a pending withdrawal to REJECTED with the reviewer's
// reason.
func (m *WithdrawalModel) Reject(ctx context.Context, sqlExec db.SQLExecuter, id, reviewerID, reason string) (*Withdrawal, error) {
	const query = `
		UPDATE
			withdrawal_requests
		SET
			status = $2,
			status_history = array_append(status_history, create_withdrawal_status_history(NOW(), $2, $3, $4)),
			failure_reason = $3,
			reviewed_by = $4,
			updated_at = NOW()
		WHERE
			id = $1
			AND status = $5
		RETURNING
			*
	`

	var withdrawal Withdrawal
	err := sqlExec.GetContext(ctx, &withdrawal, query, id, RejectedWithdrawalStatus, reason, reviewerID, PendingWithdrawalStatus)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMismatchNumRowsAffected
		}
		return nil, fmt.Errorf("rejecting withdrawal ID %s: %w", id, err)
	}
	return &withdrawal, nil
}

// MarkPaid transitions an approved withdrawal to PAID with the provider's
// payout reference.
func (m *WithdrawalModel) MarkPaid(ctx context.Context, sqlExec db.SQLExecuter, id, providerRef string, paidAt time.Time) (*Withdrawal, error) {
	const query = `
		UPDATE
			withdrawal_requests
		SET
			status = $2,
			status_history = array_append(status_history, create_withdrawal_status_history(NOW(), $2, '', '')),
			provider_ref = $3,
			paid_at = $4,
			updated_at = NOW()
		WHERE
			id = $1
			AND status = $5
		RETURNING
			*
	`

	var withdrawal Withdrawal
	err := sqlExec.GetContext(ctx, &withdrawal, query, id, PaidWithdrawalStatus, providerRef, paidAt, ApprovedWithdrawalStatus)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMismatchNumRowsAffected
		}
		return nil, fmt.Errorf("marking withdrawal ID %s as paid: %w", id, err)
	}
	return &withdrawal, nil
}

// RecordPayoutFailure stores the payout error on an approved withdrawal
// without transitioning it, so the retry job picks it up again.
func (m *WithdrawalModel) RecordPayoutFailure(ctx context.Context, sqlExec db.SQLExecuter, id, reason string) error {
	const query = `
		UPDATE
			withdrawal_requests
		SET
			failure_reason = $2,
			updated_at = NOW()
		WHERE
			id = $1
			AND status = $3
	`

	result, err := sqlExec.ExecContext(ctx, query, id, reason, ApprovedWithdrawalStatus)
	if err != nil {
		return fmt.Errorf("recording payout failure for withdrawal ID %s: %w", id, err)
	}
	numRowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting number of rows affected: %w", err)
	}
	if numRowsAffected == 0 {
		return ErrMismatchNumRowsAffected
	}
	return nil
}

// ListStaleApproved returns approved withdrawals that have not progressed
// since the given cutoff, oldest first. The payout retry job re-drives them.
func (m *WithdrawalModel) ListStaleApproved(ctx context.Context, sqlExec db.SQLExecuter, updatedBefore time.Time, limit int) ([]Withdrawal, error) {
	if limit <= 0 {
		limit = 50
	}

	withdrawals := []Withdrawal{}
	const query = `
		SELECT
			*
		FROM
			withdrawal_requests w
		WHERE
			w.status = $1
			AND w.updated_at <= $2
		ORDER BY
			w.updated_at ASC
		LIMIT $3
	`

	err := sqlExec.SelectContext(ctx, &withdrawals, query, ApprovedWithdrawalStatus, updatedBefore, limit)
	if err != nil {
		return nil, fmt.Errorf("listing stale approved withdrawals: %w", err)
	}
	return withdrawals, nil
}

// Count returns the number of withdrawals matching the given query parameters.
func (m *WithdrawalModel) Count(ctx context.Context, sqlExec db.SQLExecuter, queryParams *QueryParams) (int, error) {
	var count int
	baseQuery := `
		SELECT
			count(*)
		FROM
			withdrawal_requests w
	`

	query, params := newWithdrawalQuery(baseQuery, queryParams, false, sqlExec)

	err := sqlExec.GetContext(ctx, &count, query, params...)
	if err != nil {
		return 0, fmt.Errorf("counting withdrawals: %w", err)
	}
	return count, nil
}

// GetAll returns all withdrawals matching the given query parameters.
func (m *WithdrawalModel) GetAll(ctx context.Context, sqlExec db.SQLExecuter, queryParams *QueryParams) ([]Withdrawal, error) {
	withdrawals := []Withdrawal{}
	baseQuery := `
		SELECT
			*
		FROM
			withdrawal_requests w
	`

	query, params := newWithdrawalQuery(baseQuery, queryParams, true, sqlExec)

	err := sqlExec.SelectContext(ctx, &withdrawals, query, params...)
	if err != nil {
		return nil, fmt.Errorf("querying withdrawals: %w", err)
	}
	return withdrawals, nil
}

// newWithdrawalQuery generates the full query and parameters for a withdrawal search query
func newWithdrawalQuery(baseQuery string, queryParams *QueryParams, paginated bool, sqlExec db.SQLExecuter) (string, []interface{}) {
	qb := NewQueryBuilder(baseQuery)
	if queryParams.Filters[FilterKeyStatus] != nil {
		qb.AddCondition("w.status = ?", queryParams.Filters[FilterKeyStatus])
	}
	if queryParams.Filters[FilterKeyUserID] != nil {
		qb.AddCondition("w.user_id = ?", queryParams.Filters[FilterKeyUserID])
	}
	if queryParams.Filters[FilterKeyMethod] != nil {
		qb.AddCondition("w.method = ?", queryParams.Filters[FilterKeyMethod])
	}
	if queryParams.Filters[FilterKeyCreatedAtAfter] != nil {
		qb.AddCondition("w.created_at >= ?", queryParams.Filters[FilterKeyCreatedAtAfter])
	}
	if queryParams.Filters[FilterKeyCreatedAtBefore] != nil {
		qb.AddCondition("w.created_at <= ?", queryParams.Filters[FilterKeyCreatedAtBefore])
	}
	if paginated {
		qb.AddSorting(queryParams.SortBy, queryParams.SortOrder, "w")
		qb.AddPagination(queryParams.Page, queryParams.PageLimit)
	}
	query, params := qb.Build()
	return sqlExec.Rebind(query), params
}
