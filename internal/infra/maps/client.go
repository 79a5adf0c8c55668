// Package maps resolves map links to coordinates and measures road distance using the Google
// Maps web services.
package maps

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"familydir/config"
	"familydir/internal/errors"
	"familydir/internal/infra/metrics"

	"go.uber.org/fx"
)

const (
	defaultBaseURL   = "https://maps.googleapis.com"
	maxShortLinkHops = 5
	statusOK         = "OK"
)

var errMissingAPIKey = errors.New("maps api key is not configured")

// Params defines the required parameters
type Params struct {
	fx.In

	Config *config.Config
	Logger *slog.Logger
}

// client is a thin JSON client over the Google Maps web services.
type client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	logger     *slog.Logger
}

func newClient(cfg *config.MapsConfig, logger *slog.Logger) *client {
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			CheckRedirect: func(_ *http.Request, via []*http.Request) error {
				if len(via) >= maxShortLinkHops {
					return errors.Errorf("stopped after %d redirects", maxShortLinkHops)
				}

				return nil
			},
		},
		baseURL: baseURL,
		apiKey:  cfg.APIKey,
		logger:  logger,
	}
}

func (c *client) hasAPIKey() bool {
	return c.apiKey != ""
}

// getJSON calls path with params plus the api key and decodes the JSON body into out.
func (c *client) getJSON(ctx context.Context, adapter, path string, params url.Values, out any) (err error) {
	start := time.Now()
	defer func() { metrics.AdapterCall(adapter, start, err) }()

	if !c.hasAPIKey() {
		return errMissingAPIKey
	}

	params.Set("key", c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return errors.Wrap(err, "failed to build maps request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "maps request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("maps request failed with HTTP %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(err, "failed to decode maps response")
	}

	return nil
}

// expand follows redirects of a short link and returns the final URL.
func (c *client) expand(ctx context.Context, link string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return "", errors.Wrap(err, "failed to build short link request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "failed to expand shortened URL")
	}
	defer resp.Body.Close()

	return resp.Request.URL.String(), nil
}

type apiStatus struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
}

func (s apiStatus) err(api string) error {
	if s.Status == statusOK {
		return nil
	}
	if s.ErrorMessage != "" {
		return errors.Errorf("%s: %s: %s", api, s.Status, s.ErrorMessage)
	}

	return errors.Errorf("%s: %s", api, s.Status)
}

type latLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type geometry struct {
	Location latLng `json:"location"`
}
