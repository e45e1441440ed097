package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/vbonduro/calorielens/internal/domain"
	"github.com/vbonduro/calorielens/internal/vision"
)

const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com"
	DefaultModel   = "gemini-1.5-flash"
)

// ErrNoText is returned when the response carries no candidate text.
var ErrNoText = errors.New("gemini returned no text")

// request types mirror the generateContent REST structure.
type inlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type content struct {
	Role  string `json:"role"`
	Parts []part `json:"parts"`
}

type request struct {
	Contents []content `json:"contents"`
}

type response struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text,omitempty"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

type GeminiAnalyzer struct {
	apiKey  string
	model   string
	client  *http.Client
	baseURL string
}

func NewGeminiAnalyzer(apiKey, model, baseURL string) *GeminiAnalyzer {
	if model == "" {
		model = DefaultModel
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &GeminiAnalyzer{
		apiKey:  apiKey,
		model:   model,
		client:  &http.Client{},
		baseURL: baseURL,
	}
}

func (a *GeminiAnalyzer) Name() string {
	return "gemini"
}

func buildRequest(img domain.ImagePayload) request {
	mimeType := img.MimeType
	if mimeType == "" {
		mimeType = domain.DefaultMIMEType
	}
	return request{
		Contents: []content{{
			Role: "user",
			Parts: []part{
				{Text: vision.NutritionPrompt},
				{InlineData: &inlineData{MimeType: mimeType, Data: img.Data}},
			},
		}},
	}
}

func (a *GeminiAnalyzer) endpoint() string {
	return fmt.Sprintf("%s/v1beta/models/%s:generateContent", a.baseURL, url.PathEscape(a.model))
}

func (a *GeminiAnalyzer) Analyze(ctx context.Context, img domain.ImagePayload) (string, error) {
	payload, err := json.Marshal(buildRequest(img))
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint(), bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", a.apiKey)

	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to call gemini: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Error("failed to close gemini response body", "error", err)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("gemini returned status %d: %s", resp.StatusCode, errBody)
	}

	var respBody response
	if err := json.NewDecoder(resp.Body).Decode(&respBody); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	if len(respBody.Candidates) == 0 {
		return "", ErrNoText
	}
	for _, p := range respBody.Candidates[0].Content.Parts {
		if p.Text != "" {
			return p.Text, nil
		}
	}
	return "", ErrNoText
}
