package httphandler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/fikir-app/fikir-backend/internal/data"
	"github.com/fikir-app/fikir-backend/internal/serve/auth"
	"github.com/fikir-app/fikir-backend/internal/serve/httperror"
	"github.com/fikir-app/fikir-backend/internal/serve/validators"
	"github.com/fikir-app/fikir-backend/internal/services"
	"github.com/fikir-app/fikir-backend/internal/support/httpjson"
)

// recentGiftTransactionsLimit is how many gift transactions ride along with
// the wallet response.
const recentGiftTransactionsLimit = 10

// WalletHandler serves the caller's wallet and creates withdrawal requests.
type WalletHandler struct {
	Models            *data.Models
	WithdrawalService services.WithdrawalServiceInterface
}

// WalletResponse is the wallet snapshot plus the user's latest gift activity.
type WalletResponse struct {
	Wallet             *data.Wallet           `json:"wallet"`
	RecentTransactions []data.GiftTransaction `json:"recent_transactions"`
}

// GetWallet returns the caller's wallet, creating it on first access.
func (h WalletHandler) GetWallet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	principal, err := auth.PrincipalFromContext(ctx)
	if err != nil {
		httperror.Unauthorized("", err, nil).Render(w)
		return
	}

	wallet, err := h.Models.Wallets.GetOrCreate(ctx, h.Models.DBConnectionPool, principal.UserID)
	if err != nil {
		httperror.InternalError(ctx, "Cannot retrieve wallet", err, nil).Render(w)
		return
	}

	recent, err := h.Models.GiftTransactions.RecentByUser(ctx, h.Models.DBConnectionPool, principal.UserID, recentGiftTransactionsLimit)
	if err != nil {
		httperror.InternalError(ctx, "Cannot retrieve recent transactions", err, nil).Render(w)
		return
	}

	httpjson.RenderStatus(w, http.StatusOK, WalletResponse{Wallet: wallet, RecentTransactions: recent}, httpjson.JSON)
}

type CreateWithdrawalRequest struct {
	Method      string `json:"method"`
	Destination string `json:"destination"`
	AmountETB   string `json:"amount_etb"`
}

func (r *CreateWithdrawalRequest) validate() (decimal.Decimal, *httperror.HTTPError) {
	validator := validators.NewValidator()
	if r.Method == "" {
		validator.AddError("method", "method is required")
	} else if err := data.WithdrawalMethod(r.Method).Validate(); err != nil {
		validator.AddError("method", "method must be one of: chapa, telebirr")
	}
	validator.Check(strings.TrimSpace(r.Destination) != "", "destination", "destination is required")

	amount, err := decimal.NewFromString(r.AmountETB)
	if r.AmountETB == "" {
		validator.AddError("amount_etb", "amount_etb is required")
	} else if err != nil {
		validator.AddError("amount_etb", "amount_etb must be a decimal number")
	} else if !amount.IsPositive() {
		validator.AddError("amount_etb", "amount_etb must be positive")
	}

	if validator.HasErrors() {
		return decimal.Zero, httperror.BadRequest("", nil, validator.Errors)
	}
	return amount, nil
}

// CreateWithdrawal places a hold on the caller's earnings and queues the
// request for admin review.
func (h WalletHandler) CreateWithdrawal(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	principal, err := auth.PrincipalFromContext(ctx)
	if err != nil {
		httperror.Unauthorized("", err, nil).Render(w)
		return
	}

	var reqBody CreateWithdrawalRequest
	if err = json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
		httperror.BadRequest("invalid request body", err, nil).Render(w)
		return
	}
	amount, httpErr := reqBody.validate()
	if httpErr != nil {
		httpErr.Render(w)
		return
	}

	method := data.WithdrawalMethod(strings.ToUpper(reqBody.Method))
	withdrawal, err := h.WithdrawalService.CreateWithdrawal(ctx, principal.UserID, method, reqBody.Destination, amount)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrKYCInsufficient):
			httperror.Forbidden(services.ErrKYCInsufficient.Error(), err, nil).Render(w)
		case errors.Is(err, services.ErrWithdrawalsBlocked):
			httperror.Forbidden(services.ErrWithdrawalsBlocked.Error(), err, nil).Render(w)
		case errors.Is(err, services.ErrBelowMinWithdrawal),
			errors.Is(err, services.ErrInsufficientAvailable),
			errors.Is(err, services.ErrDailyLimitExceeded),
			errors.Is(err, services.ErrMonthlyLimitExceeded):
			httperror.BadRequest(err.Error(), err, nil).Render(w)
		case data.IsLedgerConflict(err):
			httperror.Conflict("The withdrawal conflicted with a concurrent operation. Please retry.", err, nil).Render(w)
		default:
			httperror.InternalError(ctx, "Cannot create withdrawal", err, nil).Render(w)
		}
		return
	}

	httpjson.RenderStatus(w, http.StatusCreated, withdrawal, httpjson.JSON)
}
