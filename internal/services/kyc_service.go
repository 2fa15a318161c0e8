package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/fikir-app/fikir-backend/db"
	"github.com/fikir-app/fikir-backend/internal/data"
	"github.com/fikir-app/fikir-backend/internal/storage"
)

// verifiedKYCLevel is the wallet level granted when a submission passes
// review.
const verifiedKYCLevel = 2

type KYCServiceInterface interface {
	Submit(ctx context.Context, userID string, docType data.KYCDocType, document, selfie []byte) (*KYCSubmitResult, error)
	Review(ctx context.Context, reviewerID, submissionID string, verdict data.KYCStatus, notes *string) (*data.KYCSubmission, error)
}

// KYCSubmitResult reports a submission attempt. AlreadyPending means the
// user had an open submission and no new one was created.
type KYCSubmitResult struct {
	Submission     *data.KYCSubmission
	AlreadyPending bool
}

// KYCService stores identity documents encrypted at rest and tracks their
// review. Only the storage keys land in the database.
type KYCService struct {
	Models           *data.Models
	DBConnectionPool db.DBConnectionPool
	Store            storage.Store
}

var _ KYCServiceInterface = (*KYCService)(nil)

// Submit stores the document and selfie and opens a PENDING submission. A
// user with an open submission gets that one back instead of a duplicate.
func (s *KYCService) Submit(ctx context.Context, userID string, docType data.KYCDocType, document, selfie []byte) (*KYCSubmitResult, error) {
	if err := docType.Validate(); err != nil {
		return nil, err
	}
	if len(document) == 0 || len(selfie) == 0 {
		return nil, fmt.Errorf("document and selfie are required")
	}

	existing, err := s.Models.KYCSubmissions.GetPendingByUser(ctx, s.DBConnectionPool, userID)
	if err != nil && !errors.Is(err, data.ErrRecordNotFound) {
		return nil, fmt.Errorf("checking pending submission for user %s: %w", userID, err)
	}
	if existing != nil {
		return &KYCSubmitResult{Submission: existing, AlreadyPending: true}, nil
	}

	submissionKey := uuid.NewString()
	documentPath := fmt.Sprintf("kyc/%s/%s-document", userID, submissionKey)
	selfiePath := fmt.Sprintf("kyc/%s/%s-selfie", userID, submissionKey)

	if err = s.Store.Put(ctx, documentPath, document); err != nil {
		return nil, fmt.Errorf("storing document: %w", err)
	}
	if err = s.Store.Put(ctx, selfiePath, selfie); err != nil {
		return nil, fmt.Errorf("storing selfie: %w", err)
	}

	submission, err := db.RunInTransactionWithResult(ctx, s.DBConnectionPool, nil, func(dbTx db.DBTransaction) (*data.KYCSubmission, error) {
		inserted, insertErr := s.Models.KYCSubmissions.Insert(ctx, dbTx, data.KYCSubmissionInsert{
			UserID:       userID,
			DocType:      docType,
			DocumentPath: documentPath,
			SelfiePath:   selfiePath,
		})
		if insertErr != nil {
			return nil, fmt.Errorf("inserting submission: %w", insertErr)
		}

		_, auditErr := s.Models.AuditLogs.Insert(ctx, dbTx, &userID, data.KYCSubmittedAuditEvent, data.AuditMetadata{
			"submission_id": inserted.ID,
			"doc_type":      string(inserted.DocType),
		})
		if auditErr != nil {
			return nil, fmt.Errorf("auditing submission: %w", auditErr)
		}

		return inserted, nil
	})
	if err != nil {
		return nil, err
	}

	return &KYCSubmitResult{Submission: submission}, nil
}

// Review applies an admin verdict to a PENDING submission. A VERIFIED
// verdict raises the wallet's KYC level so withdrawals open up.
func (s *KYCService) Review(ctx context.Context, reviewerID, submissionID string, verdict data.KYCStatus, notes *string) (*data.KYCSubmission, error) {
	if verdict != data.VerifiedKYCStatus && verdict != data.RejectedKYCStatus {
		return nil, fmt.Errorf("verdict must be %s or %s", data.VerifiedKYCStatus, data.RejectedKYCStatus)
	}

	return db.RunInTransactionWithResult(ctx, s.DBConnectionPool, nil, func(dbTx db.DBTransaction) (*data.KYCSubmission, error) {
		submission, getErr := s.Models.KYCSubmissions.Get(ctx, dbTx, submissionID)
		if getErr != nil {
			return nil, fmt.Errorf("getting submission %s: %w", submissionID, getErr)
		}
		if submission.Status != data.PendingKYCStatus {
			return nil, fmt.Errorf("%w: submission %s is %s", ErrInvalidStatusTransition, submission.ID, submission.Status)
		}

		reviewed, reviewErr := s.Models.KYCSubmissions.Review(ctx, dbTx, submissionID, reviewerID, verdict, notes)
		if reviewErr != nil {
			return nil, fmt.Errorf("reviewing submission %s: %w", submissionID, reviewErr)
		}

		if verdict == data.VerifiedKYCStatus {
			if _, walletErr := s.Models.Wallets.GetOrCreate(ctx, dbTx, submission.UserID); walletErr != nil {
				return nil, fmt.Errorf("ensuring wallet for user %s: %w", submission.UserID, walletErr)
			}
			if levelErr := s.Models.Wallets.RaiseKYCLevel(ctx, dbTx, submission.UserID, verifiedKYCLevel); levelErr != nil {
				return nil, fmt.Errorf("raising KYC level for user %s: %w", submission.UserID, levelErr)
			}

			if _, auditErr := s.Models.AuditLogs.Insert(ctx, dbTx, &submission.UserID, data.KYCVerifiedAuditEvent, data.AuditMetadata{
				"submission_id": reviewed.ID,
				"reviewed_by":   reviewerID,
			}); auditErr != nil {
				return nil, fmt.Errorf("auditing verification: %w", auditErr)
			}
			return reviewed, nil
		}

		metadata := data.AuditMetadata{
			"submission_id": reviewed.ID,
			"reviewed_by":   reviewerID,
		}
		if notes != nil {
			metadata["notes"] = *notes
		}
		if _, auditErr := s.Models.AuditLogs.Insert(ctx, dbTx, &submission.UserID, data.KYCRejectedAuditEvent, metadata); auditErr != nil {
			return nil, fmt.Errorf("auditing rejection: %w", auditErr)
		}
		return reviewed, nil
	})
}
