package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"sysbar/metrics"
	"sysbar/models"
)

// HTTP posts every round as JSON to a collector endpoint.
type HTTP struct {
	url      string
	apiKey   string
	hostname string
	version  string
	log      *slog.Logger
	client   *http.Client
}

func NewHTTP(url, apiKey, hostname, version string, log *slog.Logger) *HTTP {
	return &HTTP{
		url:      url,
		apiKey:   apiKey,
		hostname: hostname,
		version:  version,
		log:      log,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type apiResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
}

func (h *HTTP) Write(ctx context.Context, samples []metrics.Sample) error {
	payload := models.NewStatusPayload(h.hostname, h.version, items(samples, false))

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if h.apiKey != "" {
		req.Header.Set("X-API-Key", h.apiKey)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode >= 400 {
		var apiResp apiResponse
		if err := json.Unmarshal(body, &apiResp); err == nil && apiResp.Error != "" {
			return fmt.Errorf("API error (%d): %s [%s]", resp.StatusCode, apiResp.Error, apiResp.Code)
		}
		return fmt.Errorf("API error (%d): %s", resp.StatusCode, string(body))
	}

	h.log.Debug("status posted", "items", len(payload.Items), "status", resp.StatusCode)
	return nil
}
