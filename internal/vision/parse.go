package vision

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/vbonduro/calorielens/internal/domain"
)

var fencePattern = regexp.MustCompile("(?i)```(?:json)?")

// UnparsableError is returned when the model output cannot be turned into an
// analysis result. Raw holds the untouched model text.
type UnparsableError struct {
	Raw string
	Err error
}

func (e *UnparsableError) Error() string {
	if e.Err != nil {
		return "failed to parse model output: " + e.Err.Error()
	}
	return "failed to parse model output"
}

func (e *UnparsableError) Unwrap() error {
	return e.Err
}

// StripCodeFences removes every markdown code fence delimiter (``` or ```json)
// from text and trims surrounding whitespace.
func StripCodeFences(text string) string {
	return strings.TrimSpace(fencePattern.ReplaceAllString(text, ""))
}

// ExtractJSON returns the span from the first '{' to the last '}' of the
// fence-stripped text, or the stripped text itself when there is no such span.
func ExtractJSON(text string) string {
	cleaned := StripCodeFences(text)
	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start != -1 && end > start {
		return cleaned[start : end+1]
	}
	return cleaned
}

// ParseResponse turns raw model output into an AnalysisResult with foods
// sorted by ascending calories. The model's own ordering is ignored.
// Missing or malformed fields are coerced to zero values; only output that is
// not a JSON object fails, with an *UnparsableError.
func ParseResponse(raw string) (*domain.AnalysisResult, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(ExtractJSON(raw)), &fields); err != nil {
		return nil, &UnparsableError{Raw: raw, Err: err}
	}
	if fields == nil {
		return nil, &UnparsableError{Raw: raw}
	}

	return &domain.AnalysisResult{
		Language:       stringField(fields["language"]),
		Foods:          domain.SortFoods(parseFoods(fields["foods"])),
		Recommendation: stringField(fields["recommendation"]),
	}, nil
}

func parseFoods(raw json.RawMessage) []domain.FoodItem {
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return []domain.FoodItem{}
	}

	foods := make([]domain.FoodItem, 0, len(elems))
	for _, elem := range elems {
		var f map[string]json.RawMessage
		if err := json.Unmarshal(elem, &f); err != nil || f == nil {
			continue
		}
		foods = append(foods, domain.FoodItem{
			Name:     textField(f["name"]),
			Portion:  textField(f["portion"]),
			Calories: numberField(f["calories"]),
			Protein:  numberField(f["protein"]),
			Carbs:    numberField(f["carbs"]),
			Fat:      numberField(f["fat"]),
		})
	}
	return foods
}

// stringField accepts only a JSON string; anything else is "".
func stringField(raw json.RawMessage) string {
	var s string
	if len(raw) == 0 || json.Unmarshal(raw, &s) != nil {
		return ""
	}
	return s
}

// textField is stringField that also keeps a bare number, as models sometimes
// write a portion like 150.
func textField(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	if s := stringField(raw); s != "" {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

// numberField accepts a JSON number or a numeric string; anything else is 0.
func numberField(raw json.RawMessage) float64 {
	if len(raw) == 0 {
		return 0
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if v, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return v
		}
	}
	return 0
}
