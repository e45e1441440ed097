package locale

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		tag      string
		expected string
	}{
		{tag: "", expected: "zh"},
		{tag: "   ", expected: "zh"},
		{tag: "zh", expected: "zh"},
		{tag: "zh-CN", expected: "zh"},
		{tag: "zh-Hant-TW", expected: "zh"},
		{tag: "en", expected: "en"},
		{tag: "EN-us", expected: "en"},
		{tag: "en_GB", expected: "en"},
		{tag: "English", expected: "en"},
		{tag: "ja", expected: "ja"},
		{tag: "ja-JP", expected: "ja"},
		{tag: "jp", expected: "ja"},
		{tag: "JP", expected: "ja"},
		{tag: "ko", expected: "ko"},
		{tag: "ko-KR", expected: "ko"},
		{tag: " Korean ", expected: "ko"},
		{tag: "fr", expected: "zh"},
		{tag: "de-DE", expected: "zh"},
		{tag: "not a language tag", expected: "zh"},
	}

	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			assert.Equal(t, tt.expected, Normalize(tt.tag))
		})
	}
}

func TestNormalizeAlwaysSupported(t *testing.T) {
	for _, tag := range []string{"pt-BR", "x-klingon", "12345", "zz", "und"} {
		assert.Contains(t, Supported, Normalize(tag), tag)
	}
}

func TestForEveryLocaleComplete(t *testing.T) {
	for _, loc := range Supported {
		s := For(loc)
		assert.NotEmpty(t, s.Title, loc)
		assert.NotEmpty(t, s.ErrorMessage, loc)
		assert.NotEmpty(t, s.TopPick, loc)
		assert.NotEmpty(t, s.NoFoods, loc)
		assert.NotEmpty(t, s.RecommendationTitle, loc)
		assert.NotEmpty(t, s.Calories, loc)
	}
}

func TestForFallsBack(t *testing.T) {
	assert.Equal(t, For("zh"), For("fr"))
	assert.Equal(t, "Top Pick", For("en-AU").TopPick)
	assert.Equal(t, "おすすめ", For("jp").TopPick)
}
