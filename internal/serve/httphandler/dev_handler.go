package httphandler

import (
	"encoding/json"
	"net/http"

	"github.com/fikir-app/fikir-backend/internal/serve/auth"
	"github.com/fikir-app/fikir-backend/internal/serve/httperror"
	"github.com/fikir-app/fikir-backend/internal/serve/validators"
	"github.com/fikir-app/fikir-backend/internal/services"
	"github.com/fikir-app/fikir-backend/internal/support/httpjson"
)

// DevHandler exposes development conveniences. It is only routed when dev
// endpoints are enabled, which the serve command refuses in production.
type DevHandler struct {
	DevService services.DevServiceInterface
}

type GrantCoinsRequest struct {
	Coins int64 `json:"coins"`
}

func (r *GrantCoinsRequest) validate() *httperror.HTTPError {
	validator := validators.NewValidator()
	validator.Check(r.Coins >= 1 && r.Coins <= services.DevGrantCoinsMax,
		"coins", "coins must be between 1 and 1000000")
	if validator.HasErrors() {
		return httperror.BadRequest("", nil, validator.Errors)
	}

	return nil
}

// GrantCoins credits coins to the caller's wallet without a payment.
func (h DevHandler) GrantCoins(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	principal, err := auth.PrincipalFromContext(ctx)
	if err != nil {
		httperror.Unauthorized("", err, nil).Render(w)
		return
	}

	var reqBody GrantCoinsRequest
	if err = json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
		httperror.BadRequest("invalid request body", err, nil).Render(w)
		return
	}
	if httpErr := reqBody.validate(); httpErr != nil {
		httpErr.Render(w)
		return
	}

	wallet, err := h.DevService.GrantCoins(ctx, principal.UserID, reqBody.Coins)
	if err != nil {
		httperror.InternalError(ctx, "Cannot grant coins", err, nil).Render(w)
		return
	}

	httpjson.RenderStatus(w, http.StatusOK, wallet, httpjson.JSON)
}
