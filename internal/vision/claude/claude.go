package claude

import (
	"context"
	"errors"
	"fmt"

	"github.com/liushuangls/go-anthropic/v2"

	"github.com/vbonduro/calorielens/internal/domain"
	"github.com/vbonduro/calorielens/internal/vision"
)

const DefaultModel = "claude-3-5-sonnet-latest"

// maxTokens leaves room for a dozen food items with macros plus a short
// recommendation.
const maxTokens = 1024

var ErrNoText = errors.New("claude returned no text")

type ClaudeAnalyzer struct {
	client *anthropic.Client
	model  string
}

func NewClaudeAnalyzer(apiKey, model string, opts ...anthropic.ClientOption) *ClaudeAnalyzer {
	if model == "" {
		model = DefaultModel
	}
	return &ClaudeAnalyzer{
		client: anthropic.NewClient(apiKey, opts...),
		model:  model,
	}
}

func (a *ClaudeAnalyzer) Name() string {
	return "claude"
}

// buildMessages constructs the single user turn: image first, then the prompt.
func buildMessages(img domain.ImagePayload) []anthropic.Message {
	return []anthropic.Message{{
		Role: anthropic.RoleUser,
		Content: []anthropic.MessageContent{
			anthropic.NewImageMessageContent(anthropic.NewMessageContentSource(
				anthropic.MessagesContentSourceTypeBase64,
				normaliseMIME(img.MimeType),
				img.Data,
			)),
			anthropic.NewTextMessageContent(vision.NutritionPrompt),
		},
	}}
}

func (a *ClaudeAnalyzer) Analyze(ctx context.Context, img domain.ImagePayload) (string, error) {
	resp, err := a.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:     anthropic.Model(a.model),
		MaxTokens: maxTokens,
		Messages:  buildMessages(img),
	})
	if err != nil {
		var apiErr *anthropic.APIError
		if errors.As(err, &apiErr) {
			return "", fmt.Errorf("claude api error %s: %s", apiErr.Type, apiErr.Message)
		}
		return "", fmt.Errorf("failed to call claude: %w", err)
	}

	for _, c := range resp.Content {
		if c.Type == anthropic.MessagesContentTypeText && c.GetText() != "" {
			return c.GetText(), nil
		}
	}
	return "", ErrNoText
}

// normaliseMIME maps MIME types to the values the Anthropic API accepts.
// The Anthropic API accepts only jpeg, png, gif, and webp. Unknown types are
// coerced to jpeg as the most universally supported lossy fallback.
func normaliseMIME(mimeType string) string {
	switch mimeType {
	case "image/png", "image/gif", "image/webp":
		return mimeType
	default:
		return "image/jpeg"
	}
}
