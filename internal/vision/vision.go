package vision

import (
	"context"

	"github.com/vbonduro/calorielens/internal/domain"
)

// NutritionPrompt is the shared instruction sent with every image, whichever
// provider handles it.
const NutritionPrompt = `You are a food nutrition analysis assistant. Identify every distinct food item visible in the image.
For each item estimate the portion size and its calories (kcal), protein (g), carbohydrates (g) and fat (g).
Reply in the same language as any text visible in the image.

Output JSON only, in exactly this shape:
{
  "language": "<language code>",
  "foods": [
    {"name": "<food name>", "portion": "<portion>", "calories": <number>, "protein": <number>, "carbs": <number>, "fat": <number>}
  ],
  "recommendation": "<which item you recommend and why>"
}

The foods array must be sorted by calories from lowest to highest.`

// Analyzer sends an image together with NutritionPrompt to a vision model and
// returns the model's raw text reply. Implementations make exactly one call
// per invocation and keep no state between calls.
type Analyzer interface {
	Analyze(ctx context.Context, img domain.ImagePayload) (string, error)
	// Name is a short provider label for logs and diagnostics.
	Name() string
}
