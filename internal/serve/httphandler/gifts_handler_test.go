package httphandler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fikir-app/fikir-backend/db"
	"github.com/fikir-app/fikir-backend/db/dbtest"
	"github.com/fikir-app/fikir-backend/internal/data"
	"github.com/fikir-app/fikir-backend/internal/serve/auth"
	"github.com/fikir-app/fikir-backend/internal/services"
)

func Test_GiftsHandler_GetGifts(t *testing.T) {
	dbt := dbtest.Open(t)
	defer dbt.Close()

	dbConnectionPool, outerErr := db.OpenDBConnectionPool(dbt.DSN)
	require.NoError(t, outerErr)
	defer dbConnectionPool.Close()

	ctx := context.Background()
	models, outerErr := data.NewModels(dbConnectionPool)
	require.NoError(t, outerErr)

	handler := GiftsHandler{Models: models}

	t.Run("🎉 returns only the active gifts", func(t *testing.T) {
		rose := data.CreateGiftFixture(t, ctx, dbConnectionPool, "Rose", 5, decimal.NewFromInt(5))
		data.CreateGiftFixture(t, ctx, dbConnectionPool, "Crown", 500, decimal.NewFromInt(500))
		retired := data.CreateGiftFixture(t, ctx, dbConnectionPool, "Retired", 50, decimal.NewFromInt(50))
		_, err := dbConnectionPool.ExecContext(ctx, "UPDATE gifts SET is_active = false WHERE id = $1", retired.ID)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/gifts", nil)
		rr := httptest.NewRecorder()
		http.HandlerFunc(handler.GetGifts).ServeHTTP(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)

		var gifts []data.Gift
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &gifts))
		require.Len(t, gifts, 2)
		assert.Equal(t, rose.ID, gifts[0].ID)
		assert.Equal(t, "Crown", gifts[1].Name)
	})
}

func Test_GiftsHandler_SendGift(t *testing.T) {
	sender := &auth.Principal{UserID: "sender-id", Username: "abebe"}

	sendRequest := func(t *testing.T, handler GiftsHandler, principal *auth.Principal, body string) *httptest.ResponseRecorder {
		t.Helper()

		req := httptest.NewRequest(http.MethodPost, "/gifts/send", strings.NewReader(body))
		if principal != nil {
			req = req.WithContext(auth.WithPrincipal(req.Context(), principal))
		}
		rr := httptest.NewRecorder()
		http.HandlerFunc(handler.SendGift).ServeHTTP(rr, req)
		return rr
	}

	t.Run("🎉 sends a gift", func(t *testing.T) {
		giftService := services.NewMockGiftService(t)
		handler := GiftsHandler{GiftService: giftService}

		message := "happy birthday"
		tx := &data.GiftTransaction{
			ID:          "tx-id",
			SenderID:    sender.UserID,
			RecipientID: "recipient-id",
			GiftID:      "gift-id",
			Quantity:    2,
			CoinsSpent:  100,
			ValueETB:    decimal.NewFromInt(100),
			Status:      data.SuccessGiftTransactionStatus,
			Message:     &message,
			CreatedAt:   time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
		}
		giftService.
			On("SendGift", mock.Anything, services.GiftSendRequest{
				SenderID:    sender.UserID,
				RecipientID: "recipient-id",
				GiftID:      "gift-id",
				Quantity:    2,
				Message:     &message,
			}).
			Return(&services.GiftSendResponse{Transaction: tx}, nil).
			Once()

		rr := sendRequest(t, handler, sender, `{"recipient_id": "recipient-id", "gift_id": "gift-id", "quantity": 2, "message": "happy birthday"}`)

		require.Equal(t, http.StatusCreated, rr.Code)

		var gotTx data.GiftTransaction
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &gotTx))
		assert.Equal(t, "tx-id", gotTx.ID)
		assert.Equal(t, 2, gotTx.Quantity)
	})

	t.Run("🎉 quantity defaults to 1", func(t *testing.T) {
		giftService := services.NewMockGiftService(t)
		handler := GiftsHandler{GiftService: giftService}

		giftService.
			On("SendGift", mock.Anything, services.GiftSendRequest{
				SenderID:    sender.UserID,
				RecipientID: "recipient-id",
				GiftID:      "gift-id",
				Quantity:    1,
			}).
			Return(&services.GiftSendResponse{Transaction: &data.GiftTransaction{ID: "tx-id"}}, nil).
			Once()

		rr := sendRequest(t, handler, sender, `{"recipient_id": "recipient-id", "gift_id": "gift-id"}`)

		assert.Equal(t, http.StatusCreated, rr.Code)
	})

	t.Run("returns Unauthorized when there is no authenticated user", func(t *testing.T) {
		giftService := services.NewMockGiftService(t)
		handler := GiftsHandler{GiftService: giftService}

		rr := sendRequest(t, handler, nil, `{"recipient_id": "recipient-id", "gift_id": "gift-id"}`)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		giftService.AssertNotCalled(t, "SendGift", mock.Anything, mock.Anything)
	})

	t.Run("returns BadRequest when the body is not valid JSON", func(t *testing.T) {
		handler := GiftsHandler{GiftService: services.NewMockGiftService(t)}

		rr := sendRequest(t, handler, sender, `invalid`)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.JSONEq(t, `{"error": "invalid request body"}`, rr.Body.String())
	})

	t.Run("returns BadRequest when required fields are missing", func(t *testing.T) {
		handler := GiftsHandler{GiftService: services.NewMockGiftService(t)}

		rr := sendRequest(t, handler, sender, `{}`)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.JSONEq(t, `{
			"error": "The request was invalid in some way.",
			"extras": {
				"recipient_id": "recipient_id is required",
				"gift_id": "gift_id is required"
			}
		}`, rr.Body.String())
	})

	t.Run("returns BadRequest when the quantity is out of range", func(t *testing.T) {
		handler := GiftsHandler{GiftService: services.NewMockGiftService(t)}

		rr := sendRequest(t, handler, sender, `{"recipient_id": "recipient-id", "gift_id": "gift-id", "quantity": 101}`)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.JSONEq(t, `{
			"error": "The request was invalid in some way.",
			"extras": {
				"quantity": "quantity must be between 1 and 100"
			}
		}`, rr.Body.String())
	})

	t.Run("returns BadRequest when the message is too long", func(t *testing.T) {
		handler := GiftsHandler{GiftService: services.NewMockGiftService(t)}

		body := fmt.Sprintf(`{"recipient_id": "recipient-id", "gift_id": "gift-id", "message": %q}`, strings.Repeat("a", 501))
		rr := sendRequest(t, handler, sender, body)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.JSONEq(t, `{
			"error": "The request was invalid in some way.",
			"extras": {
				"message": "message must be at most 500 characters"
			}
		}`, rr.Body.String())
	})

	t.Run("maps the service errors to the right status codes", func(t *testing.T) {
		testCases := []struct {
			name       string
			serviceErr error
			wantStatus int
			wantBody   string
		}{
			{
				name:       "invalid gift",
				serviceErr: services.ErrInvalidGift,
				wantStatus: http.StatusBadRequest,
				wantBody:   `{"error": "The request was invalid in some way.", "extras": {"gift_id": "gift not found or inactive"}}`,
			},
			{
				name:       "invalid recipient",
				serviceErr: services.ErrInvalidRecipient,
				wantStatus: http.StatusBadRequest,
				wantBody:   `{"error": "The request was invalid in some way.", "extras": {"recipient_id": "recipient not found or inactive"}}`,
			},
			{
				name:       "self gift",
				serviceErr: services.ErrSelfGift,
				wantStatus: http.StatusBadRequest,
				wantBody:   `{"error": "cannot send a gift to yourself"}`,
			},
			{
				name:       "insufficient coins",
				serviceErr: services.ErrInsufficientCoins,
				wantStatus: http.StatusBadRequest,
				wantBody:   `{"error": "insufficient coin balance"}`,
			},
			{
				name:       "banned sender",
				serviceErr: services.ErrSenderBanned,
				wantStatus: http.StatusForbidden,
				wantBody:   `{"error": "sender is banned from sending gifts"}`,
			},
			{
				name:       "serialization conflict",
				serviceErr: fmt.Errorf("sending gift: %w", &pq.Error{Code: "40001"}),
				wantStatus: http.StatusConflict,
				wantBody:   `{"error": "The transaction conflicted with a concurrent operation. Please retry."}`,
			},
			{
				name:       "unexpected error",
				serviceErr: errors.New("unexpected"),
				wantStatus: http.StatusInternalServerError,
				wantBody:   `{"error": "Cannot send gift"}`,
			},
		}

		for _, tc := range testCases {
			t.Run(tc.name, func(t *testing.T) {
				giftService := services.NewMockGiftService(t)
				handler := GiftsHandler{GiftService: giftService}

				giftService.
					On("SendGift", mock.Anything, mock.Anything).
					Return(nil, tc.serviceErr).
					Once()

				rr := sendRequest(t, handler, sender, `{"recipient_id": "recipient-id", "gift_id": "gift-id"}`)

				assert.Equal(t, tc.wantStatus, rr.Code)
				assert.JSONEq(t, tc.wantBody, rr.Body.String())
			})
		}
	})
}
