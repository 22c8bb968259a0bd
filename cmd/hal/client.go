package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/akumar23/HAL-AI-AdvisorBot/internal/cli"
	"github.com/akumar23/HAL-AI-AdvisorBot/internal/models"
)

// httpClient talks to a running hal server.
type httpClient struct {
	base string
	http *http.Client
}

func newHTTPClient(serverURL string) *httpClient {
	return &httpClient{
		base: strings.TrimRight(serverURL, "/"),
		http: &http.Client{Timeout: 90 * time.Second},
	}
}

func (c *httpClient) Ask(ctx context.Context, req models.AskRequest) (*models.AskResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/api/v1/ask", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	var resp models.AskResponse
	if err := c.do(httpReq, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *httpClient) Status(ctx context.Context) (*cli.Status, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/api/v1/status", nil)
	if err != nil {
		return nil, err
	}
	var st cli.Status
	if err := c.do(httpReq, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

func (c *httpClient) do(req *http.Request, out interface{}) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(b, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("server returned %d: %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
