package httphandler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fikir-app/fikir-backend/internal/data"
	"github.com/fikir-app/fikir-backend/internal/serve/auth"
	"github.com/fikir-app/fikir-backend/internal/serve/httperror"
	"github.com/fikir-app/fikir-backend/internal/support/httpjson"
)

// ReceiptHandler serves the receipt of a settled payment to its owner.
type ReceiptHandler struct {
	Models *data.Models
}

// ReceiptResponse pairs the receipt with its payment.
type ReceiptResponse struct {
	Receipt *data.Receipt `json:"receipt"`
	Payment *data.Payment `json:"payment"`
}

// GetReceipt returns the receipt for one of the caller's payments. Payments
// owned by other users are indistinguishable from missing ones.
func (h ReceiptHandler) GetReceipt(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	paymentID := chi.URLParam(r, "id")

	principal, err := auth.PrincipalFromContext(ctx)
	if err != nil {
		httperror.Unauthorized("", err, nil).Render(w)
		return
	}

	payment, err := h.Models.Payments.Get(ctx, h.Models.DBConnectionPool, paymentID)
	if err != nil {
		if errors.Is(err, data.ErrRecordNotFound) {
			httperror.NotFound("Payment not found.", err, nil).Render(w)
			return
		}
		httperror.InternalError(ctx, "Cannot retrieve payment", err, nil).Render(w)
		return
	}
	if payment.UserID != principal.UserID {
		httperror.NotFound("Payment not found.", nil, nil).Render(w)
		return
	}

	receipt, err := h.Models.Receipts.GetByPaymentID(ctx, h.Models.DBConnectionPool, paymentID)
	if err != nil {
		if errors.Is(err, data.ErrRecordNotFound) {
			httperror.NotFound("No receipt exists for this payment.", err, nil).Render(w)
			return
		}
		httperror.InternalError(ctx, "Cannot retrieve receipt", err, nil).Render(w)
		return
	}

	httpjson.RenderStatus(w, http.StatusOK, ReceiptResponse{Receipt: receipt, Payment: payment}, httpjson.JSON)
}
