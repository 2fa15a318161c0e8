package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fikir-app/fikir-backend/db"
)

type KYCDocType string

const (
	NIDKYCDocType      KYCDocType = "NID"
	PassportKYCDocType KYCDocType = "PASSPORT"
)

func (t KYCDocType) Validate() error {
	switch KYCDocType(strings.ToUpper(string(t))) {
	case NIDKYCDocType, PassportKYCDocType:
		return nil
	default:
		return fmt.Errorf("invalid KYC document type: %s", t)
	}
}

type KYCStatus string

const (
	PendingKYCStatus  KYCStatus = "PENDING"
	VerifiedKYCStatus KYCStatus = "VERIFIED"
	RejectedKYCStatus KYCStatus = "REJECTED"
)

// KYCSubmission holds the object-store keys of a member's identity documents.
// The blobs themselves are encrypted at rest; this row only carries their
// paths and the review outcome.
type KYCSubmission struct {
	ID           string     `json:"id" db:"id"`
	UserID       string     `json:"user_id" db:"user_id"`
	DocType      KYCDocType `json:"doc_type" db:"doc_type"`
	DocumentPath string     `json:"-" db:"document_path"`
	SelfiePath   string     `json:"-" db:"selfie_path"`
	Status       KYCStatus  `json:"status" db:"status"`
	Notes        *string    `json:"notes,omitempty" db:"notes"`
	ReviewerID   *string    `json:"reviewer_id,omitempty" db:"reviewer_id"`
	ReviewedAt   *time.Time `json:"reviewed_at,omitempty" db:"reviewed_at"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
}

type KYCSubmissionInsert struct {
	UserID       string
	DocType      KYCDocType
	DocumentPath string
	SelfiePath   string
}

func (i KYCSubmissionInsert) Validate() error {
	if i.UserID == "" {
		return fmt.Errorf("user_id is required")
	}
	if err := i.DocType.Validate(); err != nil {
		return err
	}
	if i.DocumentPath == "" || i.SelfiePath == "" {
		return fmt.Errorf("document_path and selfie_path are required")
	}
	return nil
}

type KYCSubmissionModel struct {
	dbConnectionPool db.DBConnectionPool
}

func (m *KYCSubmissionModel) Insert(ctx context.Context, sqlExec db.SQLExecuter, insert KYCSubmissionInsert) (*KYCSubmission, error) {
	if err := insert.Validate(); err != nil {
		return nil, fmt.Errorf("validating KYC submission insert: %w", err)
	}

	const query = `
		INSERT INTO kyc_submissions
			(user_id, doc_type, document_path, selfie_path)
		VALUES
			($1, $2, $3, $4)
		RETURNING
			*
	`

	var submission KYCSubmission
	err := sqlExec.GetContext(ctx, &submission, query,
		insert.UserID, insert.DocType, insert.DocumentPath, insert.SelfiePath)
	if err != nil {
		return nil, fmt.Errorf("inserting KYC submission for user %s: %w", insert.UserID, err)
	}
	return &submission, nil
}

func (m *KYCSubmissionModel) Get(ctx context.Context, sqlExec db.SQLExecuter, id string) (*KYCSubmission, error) {
	var submission KYCSubmission
	const query = `
		SELECT
			*
		FROM
			kyc_submissions k
		WHERE
			k.id = $1
	`

	err := sqlExec.GetContext(ctx, &submission, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("querying KYC submission ID %s: %w", id, err)
	}
	return &submission, nil
}

// GetPendingByUser returns the user's open submission, if any. Used to keep
// submissions idempotent while one is under review.
func (m *KYCSubmissionModel) GetPendingByUser(ctx context.Context, sqlExec db.SQLExecuter, userID string) (*KYCSubmission, error) {
	var submission KYCSubmission
	const query = `
		SELECT
			*
		FROM
			kyc_submissions k
		WHERE
			k.user_id = $1
			AND k.status = $2
		ORDER BY
			k.created_at DESC
		LIMIT 1
	`

	err := sqlExec.GetContext(ctx, &submission, query, userID, PendingKYCStatus)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("querying pending KYC submission for user %s: %w", userID, err)
	}
	return &submission, nil
}

// Review closes a pending submission with the reviewer's verdict.
func (m *KYCSubmissionModel) Review(ctx context.Context, sqlExec db.SQLExecuter, id, reviewerID string, verdict KYCStatus, notes *string) (*KYCSubmission, error) {
	if verdict != VerifiedKYCStatus && verdict != RejectedKYCStatus {
		return nil, fmt.Errorf("invalid KYC review verdict: %s", verdict)
	}

	const query = `
		UPDATE
			kyc_submissions
		SET
			status = $2,
			notes = $3,
			reviewer_id = $4,
			reviewed_at = NOW()
		WHERE
			id = $1
			AND status = $5
		RETURNING
			*
	`

	var submission KYCSubmission
	err := sqlExec.GetContext(ctx, &submission, query, id, verdict, notes, reviewerID, PendingKYCStatus)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMismatchNumRowsAffected
		}
		return nil, fmt.Errorf("reviewing KYC submission ID %s: %w", id, err)
	}
	return &submission, nil
}
