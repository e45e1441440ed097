package domain

import (
	"cmp"
	"encoding/base64"
	"fmt"
	"slices"
	"time"
)

// DefaultMIMEType is assumed whenever an image source does not declare one.
const DefaultMIMEType = "image/jpeg"

// ImagePayload is a base64-encoded image ready to be sent to a model provider.
type ImagePayload struct {
	MimeType string
	Data     string
}

// DataURL renders the payload as an inline data URL suitable for previews.
func (p ImagePayload) DataURL() string {
	return fmt.Sprintf("data:%s;base64,%s", p.MimeType, p.Data)
}

// Decode returns the raw image bytes.
func (p ImagePayload) Decode() ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(p.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image payload: %w", err)
	}
	return b, nil
}

type FoodItem struct {
	Name     string  `json:"name"`
	Portion  string  `json:"portion"`
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
}

type AnalysisResult struct {
	Language       string     `json:"language"`
	Foods          []FoodItem `json:"foods"`
	Recommendation string     `json:"recommendation"`
}

// SortFoods returns a copy of foods ordered by ascending calories. Items with
// equal calories keep their relative order. The result is never nil.
func SortFoods(foods []FoodItem) []FoodItem {
	sorted := make([]FoodItem, len(foods))
	copy(sorted, foods)
	slices.SortStableFunc(sorted, func(a, b FoodItem) int {
		return cmp.Compare(a.Calories, b.Calories)
	})
	return sorted
}

// Diagnostic records a model reply that could not be parsed, for operators
// tuning the prompt. PhotoKey is empty when image capture is disabled.
type Diagnostic struct {
	ID        int64
	RequestID string
	Provider  string
	MimeType  string
	RawOutput string
	PhotoKey  string
	CreatedAt time.Time
}
