package data

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fikir-app/fikir-backend/db"
	"github.com/fikir-app/fikir-backend/db/dbtest"
)

func Test_KYCSubmissionModel_Insert(t *testing.T) {
	dbt := dbtest.Open(t)
	defer dbt.Close()

	dbConnectionPool, err := db.OpenDBConnectionPool(dbt.DSN)
	require.NoError(t, err)
	defer dbConnectionPool.Close()

	ctx := context.Background()

	kycSubmissionModel := &KYCSubmissionModel{dbConnectionPool: dbConnectionPool}
	user := CreateUserFixture(t, ctx, dbConnectionPool, "", false)

	t.Run("returns error for invalid doc type", func(t *testing.T) {
		_, err := kycSubmissionModel.Insert(ctx, dbConnectionPool, KYCSubmissionInsert{
			UserID:       user.ID,
			DocType:      "DRIVING_LICENSE",
			DocumentPath: "kyc/doc",
			SelfiePath:   "kyc/selfie",
		})
		require.Error(t, err)
		assert.ErrorContains(t, err, "invalid KYC document type")
	})

	t.Run("returns error when paths are missing", func(t *testing.T) {
		_, err := kycSubmissionModel.Insert(ctx, dbConnectionPool, KYCSubmissionInsert{
			UserID:  user.ID,
			DocType: NIDKYCDocType,
		})
		require.Error(t, err)
		assert.ErrorContains(t, err, "document_path and selfie_path are required")
	})

	t.Run("inserts submission as PENDING", func(t *testing.T) {
		submission, err := kycSubmissionModel.Insert(ctx, dbConnectionPool, KYCSubmissionInsert{
			UserID:       user.ID,
			DocType:      PassportKYCDocType,
			DocumentPath: "kyc/" + user.ID + "/doc.enc",
			SelfiePath:   "kyc/" + user.ID + "/selfie.enc",
		})
		require.NoError(t, err)
		assert.Equal(t, PendingKYCStatus, submission.Status)
		assert.Equal(t, PassportKYCDocType, submission.DocType)
		assert.Nil(t, submission.ReviewerID)
		assert.Nil(t, submission.ReviewedAt)
	})
}

func Test_KYCSubmissionModel_GetPendingByUser(t *testing.T) {
	dbt := dbtest.Open(t)
	defer dbt.Close()

	dbConnectionPool, err := db.OpenDBConnectionPool(dbt.DSN)
	require.NoError(t, err)
	defer dbConnectionPool.Close()

	ctx := context.Background()

	kycSubmissionModel := &KYCSubmissionModel{dbConnectionPool: dbConnectionPool}
	user := CreateUserFixture(t, ctx, dbConnectionPool, "", false)

	t.Run("returns ErrRecordNotFound when nothing is pending", func(t *testing.T) {
		_, err := kycSubmissionModel.GetPendingByUser(ctx, dbConnectionPool, user.ID)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrRecordNotFound)
	})

	t.Run("rejected submissions are not pending", func(t *testing.T) {
		CreateKYCSubmissionFixture(t, ctx, dbConnectionPool, user.ID, RejectedKYCStatus)
		_, err := kycSubmissionModel.GetPendingByUser(ctx, dbConnectionPool, user.ID)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrRecordNotFound)
	})

	t.Run("returns the open submission", func(t *testing.T) {
		pending := CreateKYCSubmissionFixture(t, ctx, dbConnectionPool, user.ID, PendingKYCStatus)
		got, err := kycSubmissionModel.GetPendingByUser(ctx, dbConnectionPool, user.ID)
		require.NoError(t, err)
		assert.Equal(t, pending.ID, got.ID)
		assert.Equal(t, PendingKYCStatus, got.Status)
	})
}

func Test_KYCSubmissionModel_Review(t *testing.T) {
	dbt := dbtest.Open(t)
	defer dbt.Close()

	dbConnectionPool, err := db.OpenDBConnectionPool(dbt.DSN)
	require.NoError(t, err)
	defer dbConnectionPool.Close()

	ctx := context.Background()

	kycSubmissionModel := &KYCSubmissionModel{dbConnectionPool: dbConnectionPool}
	user := CreateUserFixture(t, ctx, dbConnectionPool, "", false)
	admin := CreateUserFixture(t, ctx, dbConnectionPool, "", true)

	t.Run("rejects verdicts outside VERIFIED and REJECTED", func(t *testing.T) {
		submission := CreateKYCSubmissionFixture(t, ctx, dbConnectionPool, user.ID, PendingKYCStatus)
		_, err := kycSubmissionModel.Review(ctx, dbConnectionPool, submission.ID, admin.ID, PendingKYCStatus, nil)
		require.Error(t, err)
		assert.ErrorContains(t, err, "invalid KYC review verdict")
	})

	t.Run("verifies a pending submission", func(t *testing.T) {
		submission := CreateKYCSubmissionFixture(t, ctx, dbConnectionPool, user.ID, PendingKYCStatus)
		notes := "documents match"

		reviewed, err := kycSubmissionModel.Review(ctx, dbConnectionPool, submission.ID, admin.ID, VerifiedKYCStatus, &notes)
		require.NoError(t, err)
		assert.Equal(t, VerifiedKYCStatus, reviewed.Status)
		require.NotNil(t, reviewed.ReviewerID)
		assert.Equal(t, admin.ID, *reviewed.ReviewerID)
		require.NotNil(t, reviewed.ReviewedAt)
		assert.WithinDuration(t, time.Now(), *reviewed.ReviewedAt, 5*time.Second)
		require.NotNil(t, reviewed.Notes)
		assert.Equal(t, notes, *reviewed.Notes)

		t.Run("reviewing twice affects no rows", func(t *testing.T) {
			_, err := kycSubmissionModel.Review(ctx, dbConnectionPool, submission.ID, admin.ID, RejectedKYCStatus, nil)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMismatchNumRowsAffected)
		})
	})

	t.Run("rejects a pending submission", func(t *testing.T) {
		submission := CreateKYCSubmissionFixture(t, ctx, dbConnectionPool, user.ID, PendingKYCStatus)
		notes := "selfie does not match the document"

		reviewed, err := kycSubmissionModel.Review(ctx, dbConnectionPool, submission.ID, admin.ID, RejectedKYCStatus, &notes)
		require.NoError(t, err)
		assert.Equal(t, RejectedKYCStatus, reviewed.Status)
		require.NotNil(t, reviewed.Notes)
		assert.Equal(t, notes, *reviewed.Notes)
	})
}
