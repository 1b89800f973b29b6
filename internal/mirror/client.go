package mirror

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/miautomatic/internal/model"
)

// ErrUpstream is returned when the backend answers with a non-2xx status.
var ErrUpstream = errors.New("error communicating with the backend")

// Client mirrors configuration changes and feed requests to the upstream
// feeder backend. A Client with an empty base URL is disabled and every call
// is a no-op.
type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) Enabled() bool {
	return c != nil && c.baseURL != ""
}

// SaveMealConfig posts the configuration to /save-meal-config.
func (c *Client) SaveMealConfig(ctx context.Context, deviceID string, cfg model.MealConfig) error {
	body := struct {
		DeviceID string `json:"deviceId,omitempty"`
		model.MealConfig
	}{DeviceID: deviceID, MealConfig: cfg}
	return c.post(ctx, "/save-meal-config", body)
}

// Feed asks the backend to serve a meal right now.
func (c *Client) Feed(ctx context.Context, deviceID string) error {
	var body any
	if deviceID != "" {
		body = map[string]string{"deviceId": deviceID}
	}
	return c.post(ctx, "/feed", body)
}

func (c *Client) post(ctx context.Context, path string, body any) error {
	if !c.Enabled() {
		return nil
	}

	var reader io.Reader = http.NoBody
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s: %w", path, err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("upstream request failed")
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Error().Int("status", resp.StatusCode).Str("path", path).Msg("upstream rejected request")
		return fmt.Errorf("%w: %s returned %d", ErrUpstream, path, resp.StatusCode)
	}
	return nil
}
