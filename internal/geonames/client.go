// Package geonames fetches the city list shown by the profile screens from
// the GeoNames search API. Results are cached per country; a static
// Ethiopian list backs the endpoint when no GeoNames username is configured.
package geonames

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/fikir-app/fikir-backend/internal/serve/httpclient"
)

const (
	defaultBaseURL = "http://api.geonames.org"

	// maxRowsFetched is intentionally larger than maxCitiesReturned: the
	// population ordering brings the big cities first, deduplication then
	// trims the list down.
	maxRowsFetched    = 300
	maxCitiesReturned = 50
)

// City is one dropdown entry: Value is the bare city name, Label adds the
// administrative region.
type City struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

type ClientInterface interface {
	SearchCities(ctx context.Context, countryCode string) ([]City, error)
}

// Client calls the GeoNames searchJSON API.
type Client struct {
	BaseURL    string
	Username   string
	httpClient httpclient.HTTPClientInterface
}

func NewClient(username string) *Client {
	return &Client{
		BaseURL:    defaultBaseURL,
		Username:   username,
		httpClient: httpclient.DefaultClient(),
	}
}

type searchResponse struct {
	Geonames []struct {
		Name       string `json:"name"`
		AdminName1 string `json:"adminName1"`
	} `json:"geonames"`
	Status struct {
		Message string `json:"message"`
	} `json:"status"`
}

// SearchCities returns the country's most populous places, deduplicated by
// label and capped at 50 entries.
func (c *Client) SearchCities(ctx context.Context, countryCode string) ([]City, error) {
	countryCode = strings.ToUpper(strings.TrimSpace(countryCode))
	if countryCode == "" {
		return nil, fmt.Errorf("country code is required")
	}

	query := url.Values{}
	query.Set("country", countryCode)
	query.Set("featureClass", "P")
	query.Set("maxRows", fmt.Sprintf("%d", maxRowsFetched))
	query.Set("orderby", "population")
	query.Set("username", c.Username)

	u := fmt.Sprintf("%s/searchJSON?%s", c.BaseURL, query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("building geonames request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling geonames: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading geonames response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geonames responded %d", resp.StatusCode)
	}

	var parsed searchResponse
	if err = json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("unmarshalling geonames response: %w", err)
	}
	if len(parsed.Geonames) == 0 {
		if parsed.Status.Message != "" {
			return nil, fmt.Errorf("geonames error: %s", parsed.Status.Message)
		}
		return []City{}, nil
	}

	seen := make(map[string]bool, len(parsed.Geonames))
	cities := make([]City, 0, maxCitiesReturned)
	for _, g := range parsed.Geonames {
		label := g.Name
		if g.AdminName1 != "" {
			label = fmt.Sprintf("%s, %s", g.Name, g.AdminName1)
		}
		if seen[label] {
			continue
		}
		seen[label] = true

		cities = append(cities, City{Value: g.Name, Label: label})
		if len(cities) == maxCitiesReturned {
			break
		}
	}

	return cities, nil
}

// StaticClient serves a fixed list of major Ethiopian cities. It backs the
// cities endpoint when no GeoNames username is configured, so development
// setups work offline.
type StaticClient struct{}

func (StaticClient) SearchCities(_ context.Context, countryCode string) ([]City, error) {
	if !strings.EqualFold(strings.TrimSpace(countryCode), "ET") {
		return []City{}, nil
	}

	return []City{
		{Value: "Addis Ababa", Label: "Addis Ababa, Addis Ababa"},
		{Value: "Dire Dawa", Label: "Dire Dawa, Dire Dawa"},
		{Value: "Mek'ele", Label: "Mek'ele, Tigray"},
		{Value: "Gondar", Label: "Gondar, Amhara"},
		{Value: "Adama", Label: "Adama, Oromiya"},
		{Value: "Hawassa", Label: "Hawassa, Sidama"},
		{Value: "Bahir Dar", Label: "Bahir Dar, Amhara"},
		{Value: "Jimma", Label: "Jimma, Oromiya"},
		{Value: "Dessie", Label: "Dessie, Amhara"},
		{Value: "Jijiga", Label: "Jijiga, Somali"},
	}, nil
}

var (
	_ ClientInterface = (*Client)(nil)
	_ ClientInterface = StaticClient{}
)
