package client

import (
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/vbonduro/calorielens/internal/domain"
	"github.com/vbonduro/calorielens/internal/locale"
)

// Render writes result as a ranked list, lowest calories first. The first
// item carries the top-pick badge.
func Render(w io.Writer, result *domain.AnalysisResult, s locale.Strings) error {
	p := &printer{w: w}

	p.printf("%s\n%s\n", s.Title, s.SortCaption)
	if result.Language != "" {
		p.printf("%s: %s\n", s.LanguageLabel, result.Language)
	}
	p.printf("\n")

	foods := domain.SortFoods(result.Foods)
	if len(foods) == 0 {
		p.printf("%s\n", s.NoFoods)
	}
	for i, f := range foods {
		badge := ""
		if i == 0 {
			badge = "  [" + s.TopPick + "]"
		}
		p.printf("%d. %s%s\n", i+1, f.Name, badge)
		if f.Portion != "" {
			p.printf("   %s: %s\n", s.Portion, f.Portion)
		}
		p.printf("   %.0f %s\n", math.Round(f.Calories), s.Calories)
		p.printf("   %s %sg · %s %sg · %s %sg\n\n",
			s.Protein, grams(f.Protein), s.Carbs, grams(f.Carbs), s.Fat, grams(f.Fat))
	}

	if result.Recommendation != "" {
		p.printf("%s\n%s\n", s.RecommendationTitle, result.Recommendation)
	}
	return p.err
}

func grams(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// printer keeps the first write error so Render can report it once.
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}
