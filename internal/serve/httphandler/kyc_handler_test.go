package httphandler

import (
	"bytes"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fikir-app/fikir-backend/internal/data"
	"github.com/fikir-app/fikir-backend/internal/serve/auth"
	"github.com/fikir-app/fikir-backend/internal/services"
)

func buildKYCSubmitRequest(t *testing.T, docType string, files map[string][]byte) *http.Request {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if docType != "" {
		require.NoError(t, writer.WriteField("doc_type", docType))
	}
	for field, content := range files {
		part, err := writer.CreateFormFile(field, field+".jpg")
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/kyc", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func Test_KYCHandler_Submit(t *testing.T) {
	user := &auth.Principal{UserID: "user-id", Username: "abebe"}
	documentBytes := []byte("front of the national id")
	selfieBytes := []byte("selfie holding the id")

	t.Run("🎉 opens a new submission", func(t *testing.T) {
		kycService := services.NewMockKYCService(t)
		handler := KYCHandler{KYCService: kycService}

		submission := &data.KYCSubmission{
			ID:      "submission-id",
			UserID:  user.UserID,
			DocType: data.NIDKYCDocType,
			Status:  data.PendingKYCStatus,
		}
		kycService.
			On("Submit", mock.Anything, user.UserID, data.NIDKYCDocType, documentBytes, selfieBytes).
			Return(&services.KYCSubmitResult{Submission: submission}, nil).
			Once()

		req := buildKYCSubmitRequest(t, "nid", map[string][]byte{"document": documentBytes, "selfie": selfieBytes})
		req = req.WithContext(auth.WithPrincipal(req.Context(), user))
		rr := httptest.NewRecorder()
		http.HandlerFunc(handler.Submit).ServeHTTP(rr, req)

		require.Equal(t, http.StatusCreated, rr.Code)

		var got KYCSubmitResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
		require.NotNil(t, got.Submission)
		assert.Equal(t, "submission-id", got.Submission.ID)
		assert.Equal(t, data.PendingKYCStatus, got.Submission.Status)
		assert.False(t, got.AlreadyPending)
	})

	t.Run("🎉 returns the open submission when one is already pending", func(t *testing.T) {
		kycService := services.NewMockKYCService(t)
		handler := KYCHandler{KYCService: kycService}

		submission := &data.KYCSubmission{ID: "open-submission-id", Status: data.PendingKYCStatus}
		kycService.
			On("Submit", mock.Anything, user.UserID, data.PassportKYCDocType, documentBytes, selfieBytes).
			Return(&services.KYCSubmitResult{Submission: submission, AlreadyPending: true}, nil).
			Once()

		req := buildKYCSubmitRequest(t, "passport", map[string][]byte{"document": documentBytes, "selfie": selfieBytes})
		req = req.WithContext(auth.WithPrincipal(req.Context(), user))
		rr := httptest.NewRecorder()
		http.HandlerFunc(handler.Submit).ServeHTTP(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)

		var got KYCSubmitResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
		assert.True(t, got.AlreadyPending)
		assert.Equal(t, "open-submission-id", got.Submission.ID)
	})

	t.Run("returns Unauthorized when there is no authenticated user", func(t *testing.T) {
		handler := KYCHandler{KYCService: services.NewMockKYCService(t)}

		req := buildKYCSubmitRequest(t, "nid", map[string][]byte{"document": documentBytes, "selfie": selfieBytes})
		rr := httptest.NewRecorder()
		http.HandlerFunc(handler.Submit).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("returns BadRequest when doc_type is invalid", func(t *testing.T) {
		handler := KYCHandler{KYCService: services.NewMockKYCService(t)}

		req := buildKYCSubmitRequest(t, "driving-license", map[string][]byte{"document": documentBytes, "selfie": selfieBytes})
		req = req.WithContext(auth.WithPrincipal(req.Context(), user))
		rr := httptest.NewRecorder()
		http.HandlerFunc(handler.Submit).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.JSONEq(t, `{
			"error": "The request was invalid in some way.",
			"extras": {
				"doc_type": "doc_type must be one of: NID, PASSPORT"
			}
		}`, rr.Body.String())
	})

	t.Run("returns BadRequest when the document file is missing", func(t *testing.T) {
		handler := KYCHandler{KYCService: services.NewMockKYCService(t)}

		req := buildKYCSubmitRequest(t, "nid", map[string][]byte{"selfie": selfieBytes})
		req = req.WithContext(auth.WithPrincipal(req.Context(), user))
		rr := httptest.NewRecorder()
		http.HandlerFunc(handler.Submit).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.JSONEq(t, `{
			"error": "The request was invalid in some way.",
			"extras": {
				"document": "document file is required"
			}
		}`, rr.Body.String())
	})

	t.Run("returns BadRequest when the selfie file is missing", func(t *testing.T) {
		handler := KYCHandler{KYCService: services.NewMockKYCService(t)}

		req := buildKYCSubmitRequest(t, "nid", map[string][]byte{"document": documentBytes})
		req = req.WithContext(auth.WithPrincipal(req.Context(), user))
		rr := httptest.NewRecorder()
		http.HandlerFunc(handler.Submit).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.JSONEq(t, `{
			"error": "The request was invalid in some way.",
			"extras": {
				"selfie": "selfie file is required"
			}
		}`, rr.Body.String())
	})

	t.Run("returns BadRequest when a file exceeds the size cap", func(t *testing.T) {
		handler := KYCHandler{KYCService: services.NewMockKYCService(t)}

		oversized := bytes.Repeat([]byte("a"), maxKYCFileBytes+1)
		req := buildKYCSubmitRequest(t, "nid", map[string][]byte{"document": oversized, "selfie": selfieBytes})
		req = req.WithContext(auth.WithPrincipal(req.Context(), user))
		rr := httptest.NewRecorder()
		http.HandlerFunc(handler.Submit).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.JSONEq(t, `{
			"error": "The request was invalid in some way.",
			"extras": {
				"document": "file exceeds the 10 MB limit"
			}
		}`, rr.Body.String())
	})

	t.Run("returns InternalError when the service fails", func(t *testing.T) {
		kycService := services.NewMockKYCService(t)
		handler := KYCHandler{KYCService: kycService}

		kycService.
			On("Submit", mock.Anything, user.UserID, data.NIDKYCDocType, documentBytes, selfieBytes).
			Return(nil, errors.New("storage down")).
			Once()

		req := buildKYCSubmitRequest(t, "nid", map[string][]byte{"document": documentBytes, "selfie": selfieBytes})
		req = req.WithContext(auth.WithPrincipal(req.Context(), user))
		rr := httptest.NewRecorder()
		http.HandlerFunc(handler.Submit).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		assert.JSONEq(t, `{"error": "Cannot submit KYC documents"}`, rr.Body.String())
	})
}

func Test_KYCHandler_Review(t *testing.T) {
	admin := &auth.Principal{UserID: "admin-id", Username: "admin", IsAdmin: true}

	sendRequest := func(t *testing.T, handler KYCHandler, submissionID, body string) *httptest.ResponseRecorder {
		t.Helper()

		r := chi.NewRouter()
		r.Patch("/admin/kyc/{id}", handler.Review)

		req := httptest.NewRequest(http.MethodPatch, "/admin/kyc/"+submissionID, strings.NewReader(body))
		req = req.WithContext(auth.WithPrincipal(req.Context(), admin))
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)
		return rr
	}

	t.Run("🎉 verifies a submission", func(t *testing.T) {
		kycService := services.NewMockKYCService(t)
		handler := KYCHandler{KYCService: kycService}

		submission := &data.KYCSubmission{ID: "submission-id", Status: data.VerifiedKYCStatus}
		kycService.
			On("Review", mock.Anything, admin.UserID, "submission-id", data.VerifiedKYCStatus, (*string)(nil)).
			Return(submission, nil).
			Once()

		rr := sendRequest(t, handler, "submission-id", `{"decision": "verified"}`)

		require.Equal(t, http.StatusOK, rr.Code)

		var got data.KYCSubmission
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
		assert.Equal(t, data.VerifiedKYCStatus, got.Status)
	})

	t.Run("🎉 rejects a submission with notes", func(t *testing.T) {
		kycService := services.NewMockKYCService(t)
		handler := KYCHandler{KYCService: kycService}

		notes := "document is blurry"
		submission := &data.KYCSubmission{ID: "submission-id", Status: data.RejectedKYCStatus, Notes: &notes}
		kycService.
			On("Review", mock.Anything, admin.UserID, "submission-id", data.RejectedKYCStatus, &notes).
			Return(submission, nil).
			Once()

		rr := sendRequest(t, handler, "submission-id", `{"decision": "rejected", "notes": "document is blurry"}`)

		require.Equal(t, http.StatusOK, rr.Code)

		var got data.KYCSubmission
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
		assert.Equal(t, data.RejectedKYCStatus, got.Status)
		require.NotNil(t, got.Notes)
		assert.Equal(t, notes, *got.Notes)
	})

	t.Run("returns BadRequest when the decision is invalid", func(t *testing.T) {
		handler := KYCHandler{KYCService: services.NewMockKYCService(t)}

		rr := sendRequest(t, handler, "submission-id", `{"decision": "maybe"}`)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.JSONEq(t, `{
			"error": "The request was invalid in some way.",
			"extras": {
				"decision": "decision must be one of: verified, rejected"
			}
		}`, rr.Body.String())
	})

	t.Run("returns NotFound when the submission does not exist", func(t *testing.T) {
		kycService := services.NewMockKYCService(t)
		handler := KYCHandler{KYCService: kycService}

		kycService.
			On("Review", mock.Anything, admin.UserID, "missing-id", data.VerifiedKYCStatus, (*string)(nil)).
			Return(nil, data.ErrRecordNotFound).
			Once()

		rr := sendRequest(t, handler, "missing-id", `{"decision": "verified"}`)

		assert.Equal(t, http.StatusNotFound, rr.Code)
		assert.JSONEq(t, `{"error": "KYC submission not found."}`, rr.Body.String())
	})

	t.Run("returns Conflict when the submission was already reviewed", func(t *testing.T) {
		kycService := services.NewMockKYCService(t)
		handler := KYCHandler{KYCService: kycService}

		kycService.
			On("Review", mock.Anything, admin.UserID, "submission-id", data.RejectedKYCStatus, (*string)(nil)).
			Return(nil, services.ErrInvalidStatusTransition).
			Once()

		rr := sendRequest(t, handler, "submission-id", `{"decision": "rejected"}`)

		assert.Equal(t, http.StatusConflict, rr.Code)
		assert.JSONEq(t, `{"error": "The submission has already been reviewed."}`, rr.Body.String())
	})
}
