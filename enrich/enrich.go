// Package enrich calls the external classifier and geocoder endpoints.
// Both are optional enhancements: every method degrades to "no result"
// rather than surfacing an error, so enrichment can never block issue
// creation or lifecycle transitions.
package enrich

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"civicx-be/config"
)

type Client struct {
	http          *http.Client
	classifierURL string
	geocoderURL   string
	logger        *slog.Logger
}

func New(cfg config.Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		http:          &http.Client{Timeout: cfg.EnrichTimeout},
		classifierURL: cfg.ClassifierURL,
		geocoderURL:   cfg.GeocoderURL,
		logger:        logger,
	}
}

type Suggestion struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// SuggestCategory asks the image classifier for a category label. ok is
// false when the classifier is unconfigured, unreachable, or returned
// garbage.
func (c *Client) SuggestCategory(ctx context.Context, imageBase64 string) (Suggestion, bool) {
	if c.classifierURL == "" {
		return Suggestion{}, false
	}

	body, err := json.Marshal(map[string]string{"imageBase64": imageBase64})
	if err != nil {
		return Suggestion{}, false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.classifierURL, bytes.NewReader(body))
	if err != nil {
		return Suggestion{}, false
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("classifier unreachable", "error", err)
		return Suggestion{}, false
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		c.logger.Warn("classifier returned non-200", "status", res.StatusCode)
		return Suggestion{}, false
	}

	var payload struct {
		PredictedClass string  `json:"predicted_class"`
		Confidence     float64 `json:"confidence"`
	}
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil || payload.PredictedClass == "" {
		return Suggestion{}, false
	}
	if payload.Confidence == 0 {
		payload.Confidence = 1.0
	}
	return Suggestion{Label: payload.PredictedClass, Confidence: payload.Confidence}, true
}

// ReverseGeocode resolves a human-readable address for coordinates.
func (c *Client) ReverseGeocode(ctx context.Context, lat, lng float64) (string, bool) {
	if c.geocoderURL == "" {
		return "", false
	}

	query := url.Values{}
	query.Set("lat", fmt.Sprintf("%f", lat))
	query.Set("lon", fmt.Sprintf("%f", lng))
	query.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.geocoderURL+"?"+query.Encode(), nil)
	if err != nil {
		return "", false
	}

	res, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("geocoder unreachable", "error", err)
		return "", false
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return "", false
	}

	var payload struct {
		DisplayName string `json:"display_name"`
	}
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil || payload.DisplayName == "" {
		return "", false
	}
	return payload.DisplayName, true
}
