package httphandler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fikir-app/fikir-backend/internal/data"
	"github.com/fikir-app/fikir-backend/internal/serve/auth"
	"github.com/fikir-app/fikir-backend/internal/serve/httperror"
	"github.com/fikir-app/fikir-backend/internal/serve/httpresponse"
	"github.com/fikir-app/fikir-backend/internal/serve/validators"
	"github.com/fikir-app/fikir-backend/internal/services"
	"github.com/fikir-app/fikir-backend/internal/support/httpjson"
)

// WithdrawalsHandler serves the admin withdrawal review queue.
type WithdrawalsHandler struct {
	Models            *data.Models
	WithdrawalService services.WithdrawalServiceInterface
}

// GetWithdrawals lists withdrawals with filtering and pagination.
func (h WithdrawalsHandler) GetWithdrawals(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	validator := validators.NewWithdrawalQueryValidator()
	queryParams := validator.ParseParametersFromRequest(r)
	if validator.HasErrors() {
		httperror.BadRequest("request invalid", nil, validator.Errors).Render(w)
		return
	}

	queryParams.Filters = validator.ValidateAndGetWithdrawalFilters(queryParams.Filters)
	if validator.HasErrors() {
		httperror.BadRequest("request invalid", nil, validator.Errors).Render(w)
		return
	}

	response, err := h.WithdrawalService.GetWithdrawalsWithCount(ctx, queryParams)
	if err != nil {
		httperror.InternalError(ctx, "Cannot retrieve withdrawals", err, nil).Render(w)
		return
	}
	if response.TotalWithdrawals == 0 {
		httpjson.RenderStatus(w, http.StatusOK, httpresponse.NewEmptyPaginatedResponse(), httpjson.JSON)
		return
	}

	paginatedResponse, err := httpresponse.NewPaginatedResponse(r, response.Withdrawals, queryParams.Page, queryParams.PageLimit, response.TotalWithdrawals)
	if err != nil {
		httperror.InternalError(ctx, "Cannot create paginated withdrawals response", err, nil).Render(w)
		return
	}
	httpjson.RenderStatus(w, http.StatusOK, paginatedResponse, httpjson.JSON)
}

// ApproveWithdrawal moves a PENDING withdrawal to APPROVED and kicks off the
// payout.
func (h WithdrawalsHandler) ApproveWithdrawal(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	withdrawalID := chi.URLParam(r, "id")

	principal, err := auth.PrincipalFromContext(ctx)
	if err != nil {
		httperror.Unauthorized("", err, nil).Render(w)
		return
	}

	withdrawal, err := h.WithdrawalService.Approve(ctx, principal.UserID, withdrawalID)
	if err != nil {
		renderWithdrawalReviewError(ctx, w, err)
		return
	}

	httpjson.RenderStatus(w, http.StatusOK, withdrawal, httpjson.JSON)
}

type RejectWithdrawalRequest struct {
	Reason string `json:"reason"`
}

// RejectWithdrawal moves a PENDING withdrawal to REJECTED and releases the
// hold on the user's earnings.
func (h WithdrawalsHandler) RejectWithdrawal(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	withdrawalID := chi.URLParam(r, "id")

	principal, err := auth.PrincipalFromContext(ctx)
	if err != nil {
		httperror.Unauthorized("", err, nil).Render(w)
		return
	}

	// The reason is optional and so is the body itself.
	var reqBody RejectWithdrawalRequest
	if err = json.NewDecoder(r.Body).Decode(&reqBody); err != nil && !errors.Is(err, io.EOF) {
		httperror.BadRequest("invalid request body", err, nil).Render(w)
		return
	}

	withdrawal, err := h.WithdrawalService.Reject(ctx, principal.UserID, withdrawalID, reqBody.Reason)
	if err != nil {
		renderWithdrawalReviewError(ctx, w, err)
		return
	}

	httpjson.RenderStatus(w, http.StatusOK, withdrawal, httpjson.JSON)
}

func renderWithdrawalReviewError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, data.ErrRecordNotFound):
		httperror.NotFound("Withdrawal not found.", err, nil).Render(w)
	case errors.Is(err, services.ErrInvalidStatusTransition), errors.Is(err, data.ErrMismatchNumRowsAffected):
		httperror.Conflict("The withdrawal cannot be reviewed from its current status.", err, nil).Render(w)
	case data.IsLedgerConflict(err):
		httperror.Conflict("The transaction conflicted with a concurrent operation. Please retry.", err, nil).Render(w)
	default:
		httperror.InternalError(ctx, "Cannot review withdrawal", err, nil).Render(w)
	}
}
