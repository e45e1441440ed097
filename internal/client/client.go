// Package client talks to the analyze endpoint and renders its result for a
// terminal.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/vbonduro/calorielens/internal/domain"
)

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Message string
	Detail  string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("server returned %d: %s: %s", e.Status, e.Message, e.Detail)
	}
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

func New(baseURL string) *Client {
	return &Client{BaseURL: strings.TrimRight(baseURL, "/"), HTTPClient: &http.Client{}}
}

type analyzeRequest struct {
	ImageDataURL string `json:"imageDataUrl"`
	ImageBase64  string `json:"imageBase64"`
	MimeType     string `json:"mimeType"`
}

// Analyze submits img and returns the result with foods in ascending calorie
// order, whatever order the server used.
func (c *Client) Analyze(ctx context.Context, img domain.ImagePayload) (*domain.AnalysisResult, error) {
	mimeType := img.MimeType
	if mimeType == "" {
		mimeType = domain.DefaultMIMEType
	}
	img.MimeType = mimeType

	payload, err := json.Marshal(analyzeRequest{
		ImageDataURL: img.DataURL(),
		ImageBase64:  img.Data,
		MimeType:     mimeType,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/analyze", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call server: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Error("failed to close response body", "error", err)
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, decodeAPIError(resp.StatusCode, body)
	}

	var out struct {
		Data *domain.AnalysisResult `json:"data"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if out.Data == nil {
		return nil, fmt.Errorf("response has no data")
	}

	out.Data.Foods = domain.SortFoods(out.Data.Foods)
	return out.Data, nil
}

func decodeAPIError(status int, body []byte) *APIError {
	var e struct {
		Error  string `json:"error"`
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &e); err != nil || e.Error == "" {
		msg := strings.TrimSpace(string(body))
		if msg == "" {
			msg = http.StatusText(status)
		}
		return &APIError{Status: status, Message: msg}
	}
	return &APIError{Status: status, Message: e.Error, Detail: e.Detail}
}
