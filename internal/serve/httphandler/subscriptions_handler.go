package httphandler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/fikir-app/fikir-backend/internal/data"
	"github.com/fikir-app/fikir-backend/internal/serve/auth"
	"github.com/fikir-app/fikir-backend/internal/serve/httperror"
	"github.com/fikir-app/fikir-backend/internal/serve/validators"
	"github.com/fikir-app/fikir-backend/internal/services"
	"github.com/fikir-app/fikir-backend/internal/support/httpjson"
	"github.com/fikir-app/fikir-backend/internal/utils"
)

// SubscriptionsHandler sells the perk plans.
type SubscriptionsHandler struct {
	SubscriptionService services.SubscriptionServiceInterface
}

// GetPlans lists the plan catalog. It is public so pricing renders before
// login.
func (h SubscriptionsHandler) GetPlans(w http.ResponseWriter, r *http.Request) {
	httpjson.RenderStatus(w, http.StatusOK, h.SubscriptionService.Plans(), httpjson.JSON)
}

type SubscribeRequest struct {
	PlanID    string `json:"plan_id"`
	ReturnURL string `json:"return_url"`
}

func (r *SubscribeRequest) validate() *httperror.HTTPError {
	validator := validators.NewValidator()
	validator.Check(r.PlanID != "", "plan_id", "plan_id is required")
	if r.ReturnURL != "" {
		validator.CheckError(utils.ValidateURL(r.ReturnURL), "return_url", "return_url is not a valid URL")
	}
	if validator.HasErrors() {
		return httperror.BadRequest("", nil, validator.Errors)
	}

	return nil
}

// Subscribe opens a hosted checkout for a plan. The perk is granted when the
// provider webhook settles the charge, or through the explicit activate call.
func (h SubscriptionsHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	principal, err := auth.PrincipalFromContext(ctx)
	if err != nil {
		httperror.Unauthorized("", err, nil).Render(w)
		return
	}

	var reqBody SubscribeRequest
	if err = json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
		httperror.BadRequest("invalid request body", err, nil).Render(w)
		return
	}
	if httpErr := reqBody.validate(); httpErr != nil {
		httpErr.Render(w)
		return
	}

	planCode := data.SubscriptionPlan(strings.ToUpper(reqBody.PlanID))
	response, err := h.SubscriptionService.Subscribe(ctx, principal.UserID, planCode, reqBody.ReturnURL)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidPlan):
			httperror.BadRequest("", err, map[string]interface{}{"plan_id": services.ErrInvalidPlan.Error()}).Render(w)
		case errors.Is(err, services.ErrProviderUnavailable):
			httperror.BadGateway("", err, nil).Render(w)
		case errors.Is(err, services.ErrProviderRejected):
			httperror.BadRequest(services.ErrProviderRejected.Error(), err, nil).Render(w)
		case data.IsLedgerConflict(err):
			httperror.Conflict("The transaction conflicted with a concurrent operation. Please retry.", err, nil).Render(w)
		default:
			httperror.InternalError(ctx, "Cannot create subscription checkout", err, nil).Render(w)
		}
		return
	}

	httpjson.RenderStatus(w, http.StatusCreated, response, httpjson.JSON)
}

type ActivateSubscriptionRequest struct {
	TxRef string `json:"tx_ref"`
}

func (r *ActivateSubscriptionRequest) validate() *httperror.HTTPError {
	validator := validators.NewValidator()
	validator.Check(r.TxRef != "", "tx_ref", "tx_ref is required")
	if validator.HasErrors() {
		return httperror.BadRequest("", nil, validator.Errors)
	}

	return nil
}

// Activate settles the caller's own subscription purchase without waiting
// for the webhook. Replays are idempotent.
func (h SubscriptionsHandler) Activate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	principal, err := auth.PrincipalFromContext(ctx)
	if err != nil {
		httperror.Unauthorized("", err, nil).Render(w)
		return
	}

	var reqBody ActivateSubscriptionRequest
	if err = json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
		httperror.BadRequest("invalid request body", err, nil).Render(w)
		return
	}
	if httpErr := reqBody.validate(); httpErr != nil {
		httpErr.Render(w)
		return
	}

	purchase, err := h.SubscriptionService.Activate(ctx, principal.UserID, reqBody.TxRef)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrRecordNotFound):
			httperror.NotFound("Subscription purchase not found.", err, nil).Render(w)
		case errors.Is(err, services.ErrInvalidStatusTransition):
			httperror.Conflict("The purchase cannot be activated from its current status.", err, nil).Render(w)
		case data.IsLedgerConflict(err):
			httperror.Conflict("The transaction conflicted with a concurrent operation. Please retry.", err, nil).Render(w)
		default:
			httperror.InternalError(ctx, "Cannot activate subscription", err, nil).Render(w)
		}
		return
	}

	httpjson.RenderStatus(w, http.StatusOK, purchase, httpjson.JSON)
}
