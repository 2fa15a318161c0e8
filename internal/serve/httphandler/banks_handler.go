package httphandler

import (
	"net/http"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/fikir-app/fikir-backend/internal/chapa"
	"github.com/fikir-app/fikir-backend/internal/serve/httperror"
	"github.com/fikir-app/fikir-backend/internal/support/httpjson"
)

// banksCacheTTL keeps the provider's bank directory for an hour; it changes
// rarely and the endpoint is hit on every payout form render.
const banksCacheTTL = time.Hour

const banksCacheKey = "banks"

// BanksHandler serves the payout-capable bank directory from the payment
// provider, memoized so form renders don't fan out to the provider.
type BanksHandler struct {
	ChapaClient chapa.ClientInterface
	cache       *expirable.LRU[string, []chapa.Bank]
}

func NewBanksHandler(chapaClient chapa.ClientInterface) *BanksHandler {
	return &BanksHandler{
		ChapaClient: chapaClient,
		cache:       expirable.NewLRU[string, []chapa.Bank](1, nil, banksCacheTTL),
	}
}

// GetBanks lists the banks withdrawals can target.
func (h *BanksHandler) GetBanks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if banks, ok := h.cache.Get(banksCacheKey); ok {
		httpjson.RenderStatus(w, http.StatusOK, banks, httpjson.JSON)
		return
	}

	banks, err := h.ChapaClient.GetBanks(ctx)
	if err != nil {
		httperror.BadGateway("", err, nil).Render(w)
		return
	}
	h.cache.Add(banksCacheKey, banks)

	httpjson.RenderStatus(w, http.StatusOK, banks, httpjson.JSON)
}
