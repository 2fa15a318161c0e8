package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fikir-app/fikir-backend/db"
	"github.com/fikir-app/fikir-backend/db/dbtest"
	"github.com/fikir-app/fikir-backend/internal/data"
	"github.com/fikir-app/fikir-backend/internal/storage"
)

func newTestKYCStore(t *testing.T) (*storage.EncryptedStore, *storage.FSStore) {
	t.Helper()

	fsStore, err := storage.NewFSStore(t.TempDir())
	require.NoError(t, err)

	key := base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{7}, 32))
	encryptedStore, err := storage.NewEncryptedStore(fsStore, key)
	require.NoError(t, err)

	return encryptedStore, fsStore
}

func Test_KYCService_Submit(t *testing.T) {
	dbt := dbtest.Open(t)
	defer dbt.Close()

	dbConnectionPool, err := db.OpenDBConnectionPool(dbt.DSN)
	require.NoError(t, err)
	defer dbConnectionPool.Close()

	ctx := context.Background()

	models, err := data.NewModels(dbConnectionPool)
	require.NoError(t, err)

	user := data.CreateUserFixture(t, ctx, dbConnectionPool, "abebe", false)
	store, fsStore := newTestKYCStore(t)
	service := &KYCService{Models: models, DBConnectionPool: dbConnectionPool, Store: store}

	document := []byte("national id scan")
	selfie := []byte("selfie capture")

	t.Run("rejects an unknown document type", func(t *testing.T) {
		_, err := service.Submit(ctx, user.ID, "DRIVING_LICENSE", document, selfie)
		assert.EqualError(t, err, "invalid KYC document type: DRIVING_LICENSE")
	})

	t.Run("rejects empty files", func(t *testing.T) {
		_, err := service.Submit(ctx, user.ID, data.NIDKYCDocType, document, nil)
		assert.EqualError(t, err, "document and selfie are required")
	})

	t.Run("🎉 stores the documents encrypted and opens a PENDING submission", func(t *testing.T) {
		result, err := service.Submit(ctx, user.ID, data.NIDKYCDocType, document, selfie)
		require.NoError(t, err)
		assert.False(t, result.AlreadyPending)

		submission := result.Submission
		assert.Equal(t, user.ID, submission.UserID)
		assert.Equal(t, data.NIDKYCDocType, submission.DocType)
		assert.Equal(t, data.PendingKYCStatus, submission.Status)
		assert.Contains(t, submission.DocumentPath, fmt.Sprintf("kyc/%s/", user.ID))
		assert.Contains(t, submission.SelfiePath, fmt.Sprintf("kyc/%s/", user.ID))

		// Decrypted read-back matches; the bytes on disk do not.
		storedDocument, err := store.Get(ctx, submission.DocumentPath)
		require.NoError(t, err)
		assert.Equal(t, document, storedDocument)

		rawDocument, err := fsStore.Get(ctx, submission.DocumentPath)
		require.NoError(t, err)
		assert.NotEqual(t, document, rawDocument)

		auditLogs := getAuditLogs(t, ctx, models, dbConnectionPool, user.ID, data.KYCSubmittedAuditEvent)
		require.Len(t, auditLogs, 1)
		assert.Equal(t, submission.ID, auditLogs[0].Metadata["submission_id"])
		assert.Equal(t, "NID", auditLogs[0].Metadata["doc_type"])
	})

	t.Run("returns the open submission instead of a duplicate", func(t *testing.T) {
		first, err := models.KYCSubmissions.GetPendingByUser(ctx, dbConnectionPool, user.ID)
		require.NoError(t, err)

		result, err := service.Submit(ctx, user.ID, data.PassportKYCDocType, document, selfie)
		require.NoError(t, err)
		assert.True(t, result.AlreadyPending)
		assert.Equal(t, first.ID, result.Submission.ID)

		auditLogs := getAuditLogs(t, ctx, models, dbConnectionPool, user.ID, data.KYCSubmittedAuditEvent)
		assert.Len(t, auditLogs, 1)
	})
}

func Test_KYCService_Review(t *testing.T) {
	dbt := dbtest.Open(t)
	defer dbt.Close()

	dbConnectionPool, err := db.OpenDBConnectionPool(dbt.DSN)
	require.NoError(t, err)
	defer dbConnectionPool.Close()

	ctx := context.Background()

	models, err := data.NewModels(dbConnectionPool)
	require.NoError(t, err)

	reviewer := data.CreateUserFixture(t, ctx, dbConnectionPool, "admin", true)
	service := &KYCService{Models: models, DBConnectionPool: dbConnectionPool}

	t.Run("rejects a non-terminal verdict", func(t *testing.T) {
		_, err := service.Review(ctx, reviewer.ID, "some-id", data.PendingKYCStatus, nil)
		assert.EqualError(t, err, "verdict must be VERIFIED or REJECTED")
	})

	t.Run("returns data.ErrRecordNotFound for an unknown submission", func(t *testing.T) {
		_, err := service.Review(ctx, reviewer.ID, "b07af9a5-1bd0-4b12-b89c-1ba06c58526a", data.VerifiedKYCStatus, nil)
		assert.ErrorIs(t, err, data.ErrRecordNotFound)
	})

	t.Run("🎉 a VERIFIED verdict raises the wallet KYC level", func(t *testing.T) {
		applicant := data.CreateUserFixture(t, ctx, dbConnectionPool, "", false)
		submission := data.CreateKYCSubmissionFixture(t, ctx, dbConnectionPool, applicant.ID, data.PendingKYCStatus)

		reviewed, err := service.Review(ctx, reviewer.ID, submission.ID, data.VerifiedKYCStatus, nil)
		require.NoError(t, err)

		assert.Equal(t, data.VerifiedKYCStatus, reviewed.Status)
		require.NotNil(t, reviewed.ReviewerID)
		assert.Equal(t, reviewer.ID, *reviewed.ReviewerID)
		assert.NotNil(t, reviewed.ReviewedAt)

		wallet, err := models.Wallets.GetByUserID(ctx, dbConnectionPool, applicant.ID)
		require.NoError(t, err)
		assert.Equal(t, int16(2), wallet.KYCLevel)

		auditLogs := getAuditLogs(t, ctx, models, dbConnectionPool, applicant.ID, data.KYCVerifiedAuditEvent)
		require.Len(t, auditLogs, 1)
		assert.Equal(t, submission.ID, auditLogs[0].Metadata["submission_id"])
		assert.Equal(t, reviewer.ID, auditLogs[0].Metadata["reviewed_by"])
	})

	t.Run("a REJECTED verdict records the notes and leaves the level alone", func(t *testing.T) {
		applicant := data.CreateUserFixture(t, ctx, dbConnectionPool, "", false)
		data.CreateWalletFixture(t, ctx, dbConnectionPool, applicant.ID, 0, decimal.Zero, decimal.Zero)
		submission := data.CreateKYCSubmissionFixture(t, ctx, dbConnectionPool, applicant.ID, data.PendingKYCStatus)

		notes := "document photo is unreadable"
		reviewed, err := service.Review(ctx, reviewer.ID, submission.ID, data.RejectedKYCStatus, &notes)
		require.NoError(t, err)

		assert.Equal(t, data.RejectedKYCStatus, reviewed.Status)
		require.NotNil(t, reviewed.Notes)
		assert.Equal(t, notes, *reviewed.Notes)

		wallet, err := models.Wallets.GetByUserID(ctx, dbConnectionPool, applicant.ID)
		require.NoError(t, err)
		assert.Equal(t, int16(0), wallet.KYCLevel)

		auditLogs := getAuditLogs(t, ctx, models, dbConnectionPool, applicant.ID, data.KYCRejectedAuditEvent)
		require.Len(t, auditLogs, 1)
		assert.Equal(t, notes, auditLogs[0].Metadata["notes"])
	})

	t.Run("returns ErrInvalidStatusTransition when already reviewed", func(t *testing.T) {
		applicant := data.CreateUserFixture(t, ctx, dbConnectionPool, "", false)
		submission := data.CreateKYCSubmissionFixture(t, ctx, dbConnectionPool, applicant.ID, data.VerifiedKYCStatus)

		_, err := service.Review(ctx, reviewer.ID, submission.ID, data.RejectedKYCStatus, nil)
		assert.ErrorIs(t, err, ErrInvalidStatusTransition)
	})
}
