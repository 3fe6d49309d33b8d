package usecase

import (
	"fmt"
	"math"
	"strings"

	"github.com/fairyhunter13/ai-interview-evaluator/internal/domain"
)

// gradeAnswer scores an answer against the question's expected keywords:
// weight × matched/len(keywords), case-insensitive substring match. Questions
// without keywords are not graded and return a nil score.
func gradeAnswer(q domain.Question, answer string) (*float64, string) {
	var keywords []string
	for _, k := range q.ExpectedKeywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			keywords = append(keywords, k)
		}
	}
	if len(keywords) == 0 {
		return nil, ""
	}
	text := strings.ToLower(answer)
	var matched []string
	for _, k := range keywords {
		if strings.Contains(text, k) {
			matched = append(matched, k)
		}
	}
	score := math.Round(q.Weight*float64(len(matched))/float64(len(keywords))*100) / 100
	eval := fmt.Sprintf("matched %d/%d keywords", len(matched), len(keywords))
	if len(matched) > 0 {
		eval += ": " + strings.Join(matched, ", ")
	}
	return &score, eval
}
