package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"campus-events/internal/models"
)

// Client submits scanned codes to the check-in API.
type Client struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		Token:      token,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type checkInResponse struct {
	Success bool                 `json:"success"`
	Message string               `json:"message"`
	Data    models.CheckInResult `json:"data"`
	Error   string               `json:"error"`
}

// CheckIn returns the validator's verdict. Rejections are results, not
// errors; an error means the outcome is unknown.
func (c *Client) CheckIn(ctx context.Context, eventID, code string) (models.CheckInResult, error) {
	body, err := json.Marshal(models.CheckInRequest{Code: code})
	if err != nil {
		return models.CheckInResult{}, err
	}

	endpoint := fmt.Sprintf("%s/api/events/%s/checkin", c.BaseURL, url.PathEscape(eventID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return models.CheckInResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return models.CheckInResult{}, fmt.Errorf("check-in request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return models.CheckInResult{}, fmt.Errorf("not signed in: check the bearer token")
	}

	var out checkInResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return models.CheckInResult{}, fmt.Errorf("unexpected response (%d): %w", resp.StatusCode, err)
	}
	if out.Data.Message == "" {
		return models.CheckInResult{}, fmt.Errorf("check-in failed (%d): %s", resp.StatusCode, out.Message)
	}
	if out.Data.Retryable {
		return out.Data, fmt.Errorf("%s, try again", out.Data.Message)
	}
	return out.Data, nil
}
