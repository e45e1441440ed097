// Package locale holds the user-facing string table and maps the language tag
// a model returns onto one of the supported locales.
package locale

import (
	"strings"

	"golang.org/x/text/language"
)

const (
	Chinese  = "zh"
	English  = "en"
	Japanese = "ja"
	Korean   = "ko"

	Default = Chinese
)

// Supported lists the locales in matcher preference order. The first entry is
// the fallback.
var Supported = []string{Chinese, English, Japanese, Korean}

var matcher = language.NewMatcher([]language.Tag{
	language.Chinese,
	language.English,
	language.Japanese,
	language.Korean,
})

// Strings is the set of messages a client shows around an analysis.
type Strings struct {
	Title               string
	Analyzing           string
	ErrorMessage        string
	SortCaption         string
	TopPick             string
	Portion             string
	Calories            string
	Protein             string
	Carbs               string
	Fat                 string
	RecommendationTitle string
	NoFoods             string
	LanguageLabel       string
}

var table = map[string]Strings{
	Chinese: {
		Title:               "食物热量识别",
		Analyzing:           "识别中…",
		ErrorMessage:        "识别失败，请重试或换一张清晰照片。",
		SortCaption:         "按热量从低到高排序",
		TopPick:             "最推荐",
		Portion:             "份量",
		Calories:            "热量",
		Protein:             "蛋白质",
		Carbs:               "碳水",
		Fat:                 "脂肪",
		RecommendationTitle: "推荐理由",
		NoFoods:             "未识别到食物，请换一张清晰的照片。",
		LanguageLabel:       "语言",
	},
	English: {
		Title:               "Food Calorie Scanner",
		Analyzing:           "Analyzing…",
		ErrorMessage:        "Analysis failed. Please try a clearer photo.",
		SortCaption:         "Sorted by calories (low → high)",
		TopPick:             "Top Pick",
		Portion:             "Portion",
		Calories:            "Calories",
		Protein:             "Protein",
		Carbs:               "Carbs",
		Fat:                 "Fat",
		RecommendationTitle: "Why recommended",
		NoFoods:             "No food detected. Try a clearer photo.",
		LanguageLabel:       "Language",
	},
	Japanese: {
		Title:               "食品カロリー識別",
		Analyzing:           "解析中…",
		ErrorMessage:        "解析に失敗しました。鮮明な写真で再試行してください。",
		SortCaption:         "低カロリー順に並べ替え",
		TopPick:             "おすすめ",
		Portion:             "分量",
		Calories:            "カロリー",
		Protein:             "たんぱく質",
		Carbs:               "炭水化物",
		Fat:                 "脂質",
		RecommendationTitle: "おすすめ理由",
		NoFoods:             "食品が見つかりません。より鮮明な写真をお試しください。",
		LanguageLabel:       "言語",
	},
	Korean: {
		Title:               "음식 칼로리 인식",
		Analyzing:           "분석 중…",
		ErrorMessage:        "분석에 실패했습니다. 더 선명한 사진으로 다시 시도하세요.",
		SortCaption:         "저칼로리 순 정렬",
		TopPick:             "추천",
		Portion:             "분량",
		Calories:            "칼로리",
		Protein:             "단백질",
		Carbs:               "탄수화물",
		Fat:                 "지방",
		RecommendationTitle: "추천 이유",
		NoFoods:             "음식이 인식되지 않았습니다. 더 선명한 사진을 사용하세요.",
		LanguageLabel:       "언어",
	},
}

// Normalize maps an arbitrary language tag to a supported locale. Prefixes are
// checked first ("jp" is accepted as a common mislabel of Japanese), then the
// tag is run through a BCP 47 matcher. Anything else falls back to Default.
func Normalize(tag string) string {
	value := strings.ToLower(strings.TrimSpace(tag))
	if value == "" {
		return Default
	}

	switch {
	case strings.HasPrefix(value, "zh"):
		return Chinese
	case strings.HasPrefix(value, "en"):
		return English
	case strings.HasPrefix(value, "ja"), strings.HasPrefix(value, "jp"):
		return Japanese
	case strings.HasPrefix(value, "ko"):
		return Korean
	}

	parsed, err := language.Parse(value)
	if err != nil {
		return Default
	}
	_, idx, conf := matcher.Match(parsed)
	if conf < language.High {
		return Default
	}
	return Supported[idx]
}

// For returns the string table for tag after normalization.
func For(tag string) Strings {
	return table[Normalize(tag)]
}
