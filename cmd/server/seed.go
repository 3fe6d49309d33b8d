package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/fairyhunter13/ai-interview-evaluator/internal/domain"
)

type vacancyUpserter interface {
	Upsert(ctx domain.Context, v domain.Vacancy) (string, error)
}

type seedYAML struct {
	Vacancies []seedVacancy `yaml:"vacancies"`
}

type seedVacancy struct {
	ID           string            `yaml:"id"`
	EmployerID   string            `yaml:"employer_id"`
	Title        string            `yaml:"title"`
	Description  string            `yaml:"description"`
	Requirements []string          `yaml:"requirements"`
	Questions    []domain.Question `yaml:"questions"`
}

// demoVacancy is upserted when no seed file is configured.
var demoVacancy = domain.Vacancy{
	ID:           "demo-backend-engineer",
	EmployerID:   "demo-employer",
	Title:        "Backend Engineer",
	Description:  "Build and operate Go services for the hiring platform.",
	Requirements: []string{"Go", "PostgreSQL", "distributed systems"},
	Questions: []domain.Question{
		{ID: "q1", Question: "Describe a service you designed end to end.", Type: domain.QuestionBehavioral, Weight: 50},
		{ID: "q2", Question: "How do you keep database migrations safe?", Type: domain.QuestionTechnical,
			ExpectedKeywords: []string{"transaction", "backward compatible", "rollback"}, Weight: 50},
	},
}

func loadSeedVacancies(path string) ([]domain.Vacancy, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("seed file not found: %s", path)
		}
		return nil, err
	}
	var doc seedYAML
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("yaml parse: %w", err)
	}
	out := make([]domain.Vacancy, 0, len(doc.Vacancies))
	for i, v := range doc.Vacancies {
		if strings.TrimSpace(v.Title) == "" {
			return nil, fmt.Errorf("vacancy %d: title is required", i)
		}
		out = append(out, domain.Vacancy{
			ID:           v.ID,
			EmployerID:   v.EmployerID,
			Title:        v.Title,
			Description:  v.Description,
			Requirements: v.Requirements,
			Questions:    v.Questions,
		})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no vacancies to seed in %s", path)
	}
	return out, nil
}

func seedVacancies(ctx domain.Context, repo vacancyUpserter, path string) error {
	vacancies := []domain.Vacancy{demoVacancy}
	if path != "" {
		var err error
		if vacancies, err = loadSeedVacancies(path); err != nil {
			return err
		}
	}
	for _, v := range vacancies {
		id, err := repo.Upsert(ctx, v)
		if err != nil {
			return fmt.Errorf("upsert %q: %w", v.Title, err)
		}
		slog.Info("vacancy seeded", slog.String("vacancy_id", id), slog.Int("questions", len(v.Questions)))
	}
	return nil
}
