package ai

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/fairyhunter13/ai-interview-evaluator/internal/domain"
)

// MinExamOptions is the minimum number of options per exam question.
const MinExamOptions = 4

// ValidateExam checks a generated multiple-choice exam document. Rules are
// evaluated in order and the first failure wins. Question numbers in error
// messages are 1-indexed.
func ValidateExam(doc []byte) domain.ExamValidation {
	if !gjson.ValidBytes(doc) {
		return domain.ExamValidation{Error: "invalid JSON"}
	}
	questions := gjson.GetBytes(doc, "questions")
	if !questions.IsArray() || len(questions.Array()) == 0 {
		return domain.ExamValidation{Error: "questions must be a non-empty list"}
	}
	items := questions.Array()
	for i, q := range items {
		n := i + 1
		if strings.TrimSpace(q.Get("q").String()) == "" {
			return domain.ExamValidation{Error: fmt.Sprintf("item %d: 'q' is empty", n)}
		}
		opts := q.Get("options")
		if !opts.IsArray() || len(opts.Array()) < MinExamOptions {
			return domain.ExamValidation{Error: fmt.Sprintf("item %d: 'options' must have at least %d entries", n, MinExamOptions)}
		}
		seen := make(map[string]struct{}, len(opts.Array()))
		for _, o := range opts.Array() {
			key := o.String()
			if _, dup := seen[key]; dup {
				return domain.ExamValidation{Error: fmt.Sprintf("item %d: 'options' contains duplicates", n)}
			}
			seen[key] = struct{}{}
		}
		answer := q.Get("answer")
		if _, ok := seen[answer.String()]; !answer.Exists() || !ok {
			return domain.ExamValidation{Error: fmt.Sprintf("item %d: 'answer' is not in 'options'", n)}
		}
	}
	return domain.ExamValidation{OK: true, Count: len(items)}
}
