package httphandler

import (
	"net/http"
	"strings"

	"github.com/fikir-app/fikir-backend/internal/geonames"
	"github.com/fikir-app/fikir-backend/internal/serve/httperror"
	"github.com/fikir-app/fikir-backend/internal/support/httpjson"
)

// defaultCityCountryCode scopes the city list to the Ethiopian market unless
// the client asks otherwise.
const defaultCityCountryCode = "ET"

// CitiesHandler serves the city list used by profile and payout forms.
type CitiesHandler struct {
	GeonamesClient geonames.ClientInterface
}

// GetCities lists cities for a country, defaulting to Ethiopia.
func (h CitiesHandler) GetCities(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	countryCode := strings.TrimSpace(r.URL.Query().Get("country"))
	if countryCode == "" {
		countryCode = defaultCityCountryCode
	}

	cities, err := h.GeonamesClient.SearchCities(ctx, countryCode)
	if err != nil {
		httperror.InternalError(ctx, "Cannot retrieve cities", err, nil).Render(w)
		return
	}

	httpjson.RenderStatus(w, http.StatusOK, cities, httpjson.JSON)
}
