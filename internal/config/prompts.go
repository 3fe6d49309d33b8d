package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/fairyhunter13/ai-interview-evaluator/internal/domain"
)

// Prompts holds the persona texts sent to the model and the question bank
// used when a vacancy has no questions and generation fails.
type Prompts struct {
	Interviewer       string            `yaml:"interviewer"`
	Analyst           string            `yaml:"analyst"`
	Recruiter         string            `yaml:"recruiter"`
	ExamAuthor        string            `yaml:"exam_author"`
	FallbackQuestions []domain.Question `yaml:"fallback_questions"`
}

// DefaultPrompts returns the compiled-in prompt set.
func DefaultPrompts() Prompts {
	return Prompts{
		Interviewer: "You are a professional AI interviewer.",
		Analyst:     "You are an expert HR analyst specializing in SWOT analysis.",
		Recruiter:   "You are a senior technical recruiter who writes clear, inclusive job postings.",
		ExamAuthor:  "You are an assessment designer who writes fair multiple-choice exams.",
		FallbackQuestions: []domain.Question{
			{
				ID:               "fb-1",
				Question:         "Tell me about a recent project you are proud of and your role in it.",
				Type:             domain.QuestionBehavioral,
				ExpectedKeywords: []string{"team", "result", "responsib"},
				Weight:           30,
			},
			{
				ID:               "fb-2",
				Question:         "Which technical skills from the job requirements do you use most, and how?",
				Type:             domain.QuestionTechnical,
				ExpectedKeywords: []string{"experience", "project", "tool"},
				Weight:           40,
			},
			{
				ID:               "fb-3",
				Question:         "Describe how you would handle a missed deadline caused by an unexpected problem.",
				Type:             domain.QuestionSituational,
				ExpectedKeywords: []string{"communicat", "priorit", "plan"},
				Weight:           30,
			},
		},
	}
}

// LoadPrompts reads a YAML prompt file over the defaults. Keys absent from
// the file keep their default value. An empty path returns the defaults.
func LoadPrompts(path string) (Prompts, error) {
	p := DefaultPrompts()
	if path == "" {
		return p, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Prompts{}, fmt.Errorf("op=config.LoadPrompts: %w", err)
	}
	if err := yaml.Unmarshal(b, &p); err != nil {
		return Prompts{}, fmt.Errorf("op=config.LoadPrompts: %w", err)
	}
	for i := range p.FallbackQuestions {
		q := &p.FallbackQuestions[i]
		q.Type = domain.ParseQuestionType(string(q.Type))
		if q.ID == "" {
			q.ID = fmt.Sprintf("fb-%d", i+1)
		}
	}
	return p, nil
}
