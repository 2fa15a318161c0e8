package httphandler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fikir-app/fikir-backend/db"
	"github.com/fikir-app/fikir-backend/db/dbtest"
	"github.com/fikir-app/fikir-backend/internal/data"
	"github.com/fikir-app/fikir-backend/internal/serve/auth"
)

func Test_ReceiptHandler_GetReceipt(t *testing.T) {
	dbt := dbtest.Open(t)
	defer dbt.Close()

	dbConnectionPool, outerErr := db.OpenDBConnectionPool(dbt.DSN)
	require.NoError(t, outerErr)
	defer dbConnectionPool.Close()

	ctx := context.Background()
	models, outerErr := data.NewModels(dbConnectionPool)
	require.NoError(t, outerErr)

	handler := ReceiptHandler{Models: models}
	r := chi.NewRouter()
	r.Get("/payments/{id}/receipt", handler.GetReceipt)

	owner := data.CreateUserFixture(t, ctx, dbConnectionPool, "abebe", false)
	stranger := data.CreateUserFixture(t, ctx, dbConnectionPool, "kebede", false)
	pkg := data.CreateCoinPackageFixture(t, ctx, dbConnectionPool, "Starter", 100,
		decimal.NewFromInt(100), decimal.RequireFromString("104.17"), decimal.RequireFromString("15.62"), decimal.RequireFromString("119.79"))
	payment := data.CreatePaymentFixture(t, ctx, dbConnectionPool, owner.ID, &pkg.ID, data.SuccessPaymentStatus, "fikir-tx-123",
		decimal.RequireFromString("119.79"), decimal.RequireFromString("15.62"))

	sendRequest := func(t *testing.T, paymentID, userID string) *httptest.ResponseRecorder {
		t.Helper()

		req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/payments/%s/receipt", paymentID), nil)
		req = req.WithContext(auth.WithPrincipal(req.Context(), &auth.Principal{UserID: userID}))
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)
		return rr
	}

	t.Run("returns NotFound when the payment has no receipt yet", func(t *testing.T) {
		rr := sendRequest(t, payment.ID, owner.ID)

		assert.Equal(t, http.StatusNotFound, rr.Code)
		assert.JSONEq(t, `{"error": "No receipt exists for this payment."}`, rr.Body.String())
	})

	t.Run("🎉 returns the receipt to the payment owner", func(t *testing.T) {
		providerRef := "chapa-ref-1"
		err := models.Receipts.InsertIfAbsent(ctx, dbConnectionPool, payment.ID,
			decimal.RequireFromString("119.79"), decimal.RequireFromString("15.62"), &providerRef)
		require.NoError(t, err)

		rr := sendRequest(t, payment.ID, owner.ID)

		require.Equal(t, http.StatusOK, rr.Code)

		var got ReceiptResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
		require.NotNil(t, got.Receipt)
		require.NotNil(t, got.Payment)
		assert.Equal(t, payment.ID, got.Receipt.PaymentID)
		assert.Equal(t, payment.ID, got.Payment.ID)
		assert.True(t, decimal.RequireFromString("119.79").Equal(got.Receipt.PriceETB))
		require.NotNil(t, got.Receipt.ProviderRef)
		assert.Equal(t, providerRef, *got.Receipt.ProviderRef)
	})

	t.Run("returns NotFound when the payment does not exist", func(t *testing.T) {
		rr := sendRequest(t, "b8f9cfa9-5e2f-4f2d-8c2a-111111111111", owner.ID)

		assert.Equal(t, http.StatusNotFound, rr.Code)
		assert.JSONEq(t, `{"error": "Payment not found."}`, rr.Body.String())
	})

	t.Run("returns NotFound when the payment belongs to another user", func(t *testing.T) {
		rr := sendRequest(t, payment.ID, stranger.ID)

		assert.Equal(t, http.StatusNotFound, rr.Code)
		assert.JSONEq(t, `{"error": "Payment not found."}`, rr.Body.String())
	})

	t.Run("returns Unauthorized when there is no authenticated user", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/payments/%s/receipt", payment.ID), nil)
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}
