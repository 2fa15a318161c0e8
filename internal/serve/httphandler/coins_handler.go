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
	"github.com/fikir-app/fikir-backend/internal/utils"
)

// CoinsHandler serves the coin package catalog and the top-up checkout.
type CoinsHandler struct {
	Models       *data.Models
	TopUpService services.TopUpServiceInterface
}

// GetPackages lists the active coin packages.
func (h CoinsHandler) GetPackages(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	packages, err := h.Models.CoinPackages.GetAll(ctx, true)
	if err != nil {
		httperror.InternalError(ctx, "Cannot retrieve coin packages", err, nil).Render(w)
		return
	}

	httpjson.RenderStatus(w, http.StatusOK, packages, httpjson.JSON)
}

type CreateTopUpRequest struct {
	PackageID string `json:"package_id"`
	ReturnURL string `json:"return_url"`
}

func (r *CreateTopUpRequest) validate() *httperror.HTTPError {
	validator := validators.NewValidator()
	validator.Check(r.PackageID != "", "package_id", "package_id is required")
	if r.ReturnURL != "" {
		validator.CheckError(utils.ValidateURL(r.ReturnURL), "return_url", "return_url is not a valid URL")
	}
	if validator.HasErrors() {
		return httperror.BadRequest("", nil, validator.Errors)
	}

	return nil
}

// CreateTopUp opens a hosted checkout for a coin package. The wallet is only
// credited once the provider webhook settles the charge.
func (h CoinsHandler) CreateTopUp(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	principal, err := auth.PrincipalFromContext(ctx)
	if err != nil {
		httperror.Unauthorized("", err, nil).Render(w)
		return
	}

	var reqBody CreateTopUpRequest
	if err = json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
		httperror.BadRequest("invalid request body", err, nil).Render(w)
		return
	}
	if httpErr := reqBody.validate(); httpErr != nil {
		httpErr.Render(w)
		return
	}

	response, err := h.TopUpService.CreateTopUp(ctx, principal.UserID, reqBody.PackageID, reqBody.ReturnURL)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidPackage):
			httperror.BadRequest("", err, map[string]interface{}{"package_id": services.ErrInvalidPackage.Error()}).Render(w)
		case errors.Is(err, services.ErrProviderUnavailable):
			httperror.BadGateway("", err, nil).Render(w)
		case errors.Is(err, services.ErrProviderRejected):
			httperror.BadRequest(services.ErrProviderRejected.Error(), err, nil).Render(w)
		case data.IsLedgerConflict(err):
			httperror.Conflict("The transaction conflicted with a concurrent operation. Please retry.", err, nil).Render(w)
		default:
			httperror.InternalError(ctx, "Cannot create top-up", err, nil).Render(w)
		}
		return
	}

	httpjson.RenderStatus(w, http.StatusCreated, response, httpjson.JSON)
}
