package insights

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/Dan9191/edge-dashboard/internal/config"
	"github.com/Dan9191/edge-dashboard/internal/models"
	"github.com/sirupsen/logrus"
)

// Client fetches dashboard metrics from the insights backend
type Client struct {
	url    string
	client *http.Client
	log    *logrus.Logger
}

// NewClient initializes a new insights client
func NewClient(cfg *config.Config, log *logrus.Logger) *Client {
	return &Client{
		url: cfg.BackendURL,
		client: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
		log: log,
	}
}

// buildURL appends the filter parameters to the endpoint
func (c *Client) buildURL(filters models.Filters) (string, error) {
	u, err := url.Parse(c.url)
	if err != nil {
		return "", fmt.Errorf("invalid backend url: %w", err)
	}
	q := u.Query()
	for k, vs := range filters.Query() {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// sendRequest issues the GET request and returns the body
func (c *Client) sendRequest(ctx context.Context, endpoint, token string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return body, nil
}

// parseResponse decodes the JSON object, keeping numbers as json.Number
func (c *Client) parseResponse(body []byte) (models.Payload, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var payload models.Payload
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}
	if payload == nil {
		return nil, fmt.Errorf("response is not a JSON object")
	}
	return payload, nil
}

// Fetch retrieves one metrics payload for the given filters
func (c *Client) Fetch(ctx context.Context, filters models.Filters, token string) (models.Payload, error) {
	endpoint, err := c.buildURL(filters)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	body, err := c.sendRequest(ctx, endpoint, token)
	if err != nil {
		return nil, err
	}

	payload, err := c.parseResponse(body)
	if err != nil {
		return nil, err
	}

	c.log.WithFields(logrus.Fields{
		"url":      endpoint,
		"keys":     len(payload),
		"duration": time.Since(start).String(),
	}).Debug("Fetched insights payload")
	return payload, nil
}
