package httphandler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fikir-app/fikir-backend/internal/data"
	"github.com/fikir-app/fikir-backend/internal/serve/auth"
	"github.com/fikir-app/fikir-backend/internal/serve/httperror"
	"github.com/fikir-app/fikir-backend/internal/serve/validators"
	"github.com/fikir-app/fikir-backend/internal/services"
	"github.com/fikir-app/fikir-backend/internal/support/httpjson"
)

// GiftsHandler serves the gift catalog and the gift send operation.
type GiftsHandler struct {
	Models      *data.Models
	GiftService services.GiftServiceInterface
}

// GetGifts lists the active gifts. It is public so the catalog renders before
// login.
func (h GiftsHandler) GetGifts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	gifts, err := h.Models.Gifts.GetAll(ctx, true)
	if err != nil {
		httperror.InternalError(ctx, "Cannot retrieve gifts", err, nil).Render(w)
		return
	}

	httpjson.RenderStatus(w, http.StatusOK, gifts, httpjson.JSON)
}

type SendGiftRequest struct {
	RecipientID string  `json:"recipient_id"`
	GiftID      string  `json:"gift_id"`
	Quantity    int     `json:"quantity"`
	Message     *string `json:"message"`
}

func (r *SendGiftRequest) validate() *httperror.HTTPError {
	if r.Quantity == 0 {
		r.Quantity = 1
	}

	validator := validators.NewValidator()
	validator.Check(r.RecipientID != "", "recipient_id", "recipient_id is required")
	validator.Check(r.GiftID != "", "gift_id", "gift_id is required")
	validator.Check(r.Quantity >= 1 && r.Quantity <= services.GiftQuantityMax, "quantity", "quantity must be between 1 and 100")
	if r.Message != nil {
		validator.Check(len([]rune(*r.Message)) <= services.GiftMessageMaxLength, "message", "message must be at most 500 characters")
	}
	if validator.HasErrors() {
		return httperror.BadRequest("", nil, validator.Errors)
	}

	return nil
}

// SendGift debits the sender's coins and credits the recipient's earnings.
func (h GiftsHandler) SendGift(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	principal, err := auth.PrincipalFromContext(ctx)
	if err != nil {
		httperror.Unauthorized("", err, nil).Render(w)
		return
	}

	var reqBody SendGiftRequest
	if err = json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
		httperror.BadRequest("invalid request body", err, nil).Render(w)
		return
	}
	if httpErr := reqBody.validate(); httpErr != nil {
		httpErr.Render(w)
		return
	}

	response, err := h.GiftService.SendGift(ctx, services.GiftSendRequest{
		SenderID:    principal.UserID,
		RecipientID: reqBody.RecipientID,
		GiftID:      reqBody.GiftID,
		Quantity:    reqBody.Quantity,
		Message:     reqBody.Message,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidGift):
			httperror.BadRequest("", err, map[string]interface{}{"gift_id": services.ErrInvalidGift.Error()}).Render(w)
		case errors.Is(err, services.ErrInvalidRecipient):
			httperror.BadRequest("", err, map[string]interface{}{"recipient_id": services.ErrInvalidRecipient.Error()}).Render(w)
		case errors.Is(err, services.ErrSelfGift):
			httperror.BadRequest(services.ErrSelfGift.Error(), err, nil).Render(w)
		case errors.Is(err, services.ErrInsufficientCoins):
			httperror.BadRequest(services.ErrInsufficientCoins.Error(), err, nil).Render(w)
		case errors.Is(err, services.ErrSenderBanned):
			httperror.Forbidden(services.ErrSenderBanned.Error(), err, nil).Render(w)
		case data.IsLedgerConflict(err):
			httperror.Conflict("The transaction conflicted with a concurrent operation. Please retry.", err, nil).Render(w)
		default:
			httperror.InternalError(ctx, "Cannot send gift", err, nil).Render(w)
		}
		return
	}

	httpjson.RenderStatus(w, http.StatusCreated, response.Transaction, httpjson.JSON)
}
