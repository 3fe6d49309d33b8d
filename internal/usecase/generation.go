package usecase

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/fairyhunter13/ai-interview-evaluator/internal/adapter/ai"
	"github.com/fairyhunter13/ai-interview-evaluator/internal/adapter/observability"
	"github.com/fairyhunter13/ai-interview-evaluator/internal/domain"
	obsctx "github.com/fairyhunter13/ai-interview-evaluator/internal/observability"
	"github.com/fairyhunter13/ai-interview-evaluator/pkg/textx"
)

const (
	DefaultGenerationTimeout = 300 * time.Second

	defaultInterviewQuestions = 5
	maxInterviewQuestions     = 20
	defaultExamQuestions      = 8
	maxExamQuestions          = 50
	defaultExamLevel          = "intermediate"
)

// GenerationOptions tunes document generation.
type GenerationOptions struct {
	Model      string
	Timeout    time.Duration
	ExamAuthor string
	Recruiter  string
}

// ExamRequest describes an exam to generate.
type ExamRequest struct {
	Role    string `json:"role" validate:"required,min=2,max=100"`
	Count   int    `json:"n" validate:"omitempty,min=1,max=50"`
	Level   string `json:"level" validate:"omitempty,max=40"`
	Context string `json:"context" validate:"omitempty,max=20000"`
}

// GenerationService produces interview question sets, exams and vacancy
// drafts. Each flow allows exactly one corrective round-trip.
type GenerationService struct {
	Gateway   domain.Gateway
	Vacancies domain.VacancyRepository
	Gate      domain.ContentGate
	Limiter   domain.RateLimiter

	opts GenerationOptions
}

func NewGenerationService(gw domain.Gateway, vacancies domain.VacancyRepository, gate domain.ContentGate, limiter domain.RateLimiter, opts GenerationOptions) *GenerationService {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultGenerationTimeout
	}
	return &GenerationService{Gateway: gw, Vacancies: vacancies, Gate: gate, Limiter: limiter, opts: opts}
}

// RateKey is the limiter key of an employer's generation budget.
func RateKey(employerID string) string {
	if employerID == "" {
		employerID = "anonymous"
	}
	return "generation:" + employerID
}

func (g *GenerationService) allow(ctx domain.Context, employerID string) error {
	if g.Limiter == nil {
		return nil
	}
	ok, retryAfter, err := g.Limiter.Allow(ctx, RateKey(employerID), 1)
	if err != nil {
		obsctx.LoggerFromContext(ctx).Warn("generation rate limiter unavailable", slog.Any("error", err))
		return nil
	}
	if !ok {
		return fmt.Errorf("%w: generation budget exhausted, retry after %s", domain.ErrRateLimited, retryAfter)
	}
	return nil
}

func (g *GenerationService) complete(ctx domain.Context, prompt string) (string, error) {
	gctx, cancel := withTimeout(ctx, g.opts.Timeout)
	defer cancel()
	return g.Gateway.CompleteOnce(gctx, prompt, g.opts.Model)
}

// GenerateInterview creates n questions for a vacancy and stores them on it.
func (g *GenerationService) GenerateInterview(ctx domain.Context, vacancyID string, n int) ([]domain.Question, error) {
	v, err := g.Vacancies.Get(ctx, vacancyID)
	if err != nil {
		return nil, fmt.Errorf("op=generation.interview: %w", err)
	}
	if err := g.allow(ctx, v.EmployerID); err != nil {
		return nil, err
	}
	if n <= 0 {
		n = defaultInterviewQuestions
	}
	n = min(n, maxInterviewQuestions)

	prompt := buildInterviewGenerationPrompt(g.opts.Recruiter, v, n)
	out, err := g.complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("op=generation.interview: %w", err)
	}
	qs, perr := parseInterviewDocument(out)
	if perr != nil {
		obsctx.LoggerFromContext(ctx).Info("interview document rejected, requesting fix", slog.Any("error", perr))
		if out, err = g.complete(ctx, buildFixPrompt(out, prompt)); err != nil {
			return nil, fmt.Errorf("op=generation.interview: %w", err)
		}
		qs, perr = parseInterviewDocument(out)
	}
	observability.ObserveGeneration("interview", perr == nil)
	if perr != nil {
		return nil, fmt.Errorf("op=generation.interview: %w", perr)
	}
	if err := g.Vacancies.SaveQuestions(ctx, vacancyID, qs); err != nil {
		return nil, fmt.Errorf("op=generation.interview: %w", err)
	}
	return qs, nil
}

// parseInterviewDocument extracts and normalises a generated question list.
// Accepted spellings: q|question and options|expected_keywords. Missing
// weights share 100 equally among the unweighted questions.
func parseInterviewDocument(text string) ([]domain.Question, error) {
	ex := ai.ExtractJSON(text)
	doc, ok := ex.Doc()
	if !ok {
		return nil, ex.Err()
	}
	items := gjson.GetBytes(doc, "questions")
	if !items.IsArray() || len(items.Array()) == 0 {
		return nil, fmt.Errorf("%w: questions must be a non-empty list", domain.ErrValidation)
	}
	var qs []domain.Question
	var assigned float64
	unweighted := 0
	for i, it := range items.Array() {
		qtext := strings.TrimSpace(firstString(it, "question", "q"))
		if qtext == "" {
			return nil, fmt.Errorf("%w: item %d: question text is empty", domain.ErrValidation, i+1)
		}
		kw := it.Get("expected_keywords")
		if !kw.Exists() {
			kw = it.Get("options")
		}
		var keywords []string
		for _, k := range kw.Array() {
			if s := strings.TrimSpace(k.String()); s != "" {
				keywords = append(keywords, s)
			}
		}
		q := domain.Question{
			ID:               firstString(it, "id"),
			Question:         qtext,
			Type:             domain.ParseQuestionType(strings.ToLower(it.Get("type").String())),
			ExpectedKeywords: keywords,
			Rubric:           firstString(it, "rubric", "rubrics"),
			Weight:           it.Get("weight").Float(),
		}
		if q.ID == "" {
			q.ID = fmt.Sprintf("q%d", i+1)
		}
		if q.Weight <= 0 {
			q.Weight = 0
			unweighted++
		} else {
			assigned += q.Weight
		}
		qs = append(qs, q)
	}
	if unweighted > 0 {
		share := 100.0 / float64(len(qs))
		if assigned < 100 {
			share = (100 - assigned) / float64(unweighted)
		}
		for i := range qs {
			if qs[i].Weight == 0 {
				qs[i].Weight = round2(share)
			}
		}
	}
	return qs, nil
}

// firstString returns the first present key rendered as text. Arrays are
// joined with "; ".
func firstString(r gjson.Result, keys ...string) string {
	for _, k := range keys {
		v := r.Get(k)
		if !v.Exists() {
			continue
		}
		if v.IsArray() {
			var parts []string
			for _, p := range v.Array() {
				parts = append(parts, p.String())
			}
			return strings.Join(parts, "; ")
		}
		return v.String()
	}
	return ""
}

// GenerateExam produces a multiple-choice exam and validates it, asking the
// model once to fix an invalid document.
func (g *GenerationService) GenerateExam(ctx domain.Context, employerID string, req ExamRequest) (domain.GeneratedExam, error) {
	if strings.TrimSpace(req.Role) == "" {
		return domain.GeneratedExam{}, fmt.Errorf("%w: role required", domain.ErrInvalidArgument)
	}
	if err := g.allow(ctx, employerID); err != nil {
		return domain.GeneratedExam{}, err
	}
	if req.Count <= 0 {
		req.Count = defaultExamQuestions
	}
	req.Count = min(req.Count, maxExamQuestions)
	if req.Level == "" {
		req.Level = defaultExamLevel
	}

	prompt := buildExamPrompt(g.opts.ExamAuthor, req.Role, req.Level, req.Count, req.Context)
	out, err := g.complete(ctx, prompt)
	if err != nil {
		return domain.GeneratedExam{}, fmt.Errorf("op=generation.exam: %w", err)
	}
	exam, val := ValidateExamOutput(out)
	corrected := false
	if !val.OK {
		obsctx.LoggerFromContext(ctx).Info("exam rejected, requesting fix", slog.String("reason", val.Error))
		if out, err = g.complete(ctx, buildFixPrompt(out, prompt)); err != nil {
			return domain.GeneratedExam{}, fmt.Errorf("op=generation.exam: %w", err)
		}
		exam, val = ValidateExamOutput(out)
		corrected = true
	}
	observability.ObserveGeneration("exam", val.OK)
	return domain.GeneratedExam{OK: val.OK, Exam: exam, Validation: val, Corrected: corrected}, nil
}

// ValidateExamOutput validates the extracted object when the output wraps
// one, and the raw output otherwise.
func ValidateExamOutput(out string) (string, domain.ExamValidation) {
	if doc, ok := ai.ExtractJSON(out).Doc(); ok {
		return string(doc), ai.ValidateExam(doc)
	}
	return out, ai.ValidateExam([]byte(out))
}

// DraftVacancy proposes a description and requirement list for a vacancy.
// The title is moderated before anything is sent upstream.
func (g *GenerationService) DraftVacancy(ctx domain.Context, employerID string, in domain.VacancyDraftInput) (domain.VacancyDraft, error) {
	if g.Gate != nil {
		res, err := g.Gate.Moderate(ctx, in.Title)
		if err != nil {
			return domain.VacancyDraft{}, fmt.Errorf("op=generation.draft: %w", err)
		}
		if !res.Allowed {
			observability.ObserveGeneration("vacancy", false)
			return domain.VacancyDraft{}, fmt.Errorf("%w: %s", domain.ErrContentRejected, res.Detail)
		}
	}
	if err := g.allow(ctx, employerID); err != nil {
		return domain.VacancyDraft{}, err
	}
	out, err := g.complete(ctx, g.opts.Recruiter+"\n\n"+buildVacancyDraftPrompt(in))
	if err != nil {
		return domain.VacancyDraft{}, fmt.Errorf("op=generation.draft: %w", err)
	}
	draft, err := parseVacancyDraft(out, in)
	observability.ObserveGeneration("vacancy", err == nil)
	if err != nil {
		return domain.VacancyDraft{}, fmt.Errorf("op=generation.draft: %w", err)
	}
	return draft, nil
}

func parseVacancyDraft(out string, in domain.VacancyDraftInput) (domain.VacancyDraft, error) {
	m, err := ai.LowerKeys(ai.ExtractJSON(out))
	if err != nil {
		return domain.VacancyDraft{}, err
	}
	get := func(key string) gjson.Result {
		if raw, ok := m[key]; ok {
			return gjson.ParseBytes(raw)
		}
		return gjson.Result{}
	}
	draft := domain.VacancyDraft{
		Title:                 strings.TrimSpace(get("title").String()),
		SuggestedDescription:  strings.TrimSpace(get("suggested_description").String()),
		SuggestedRequirements: []string{},
	}
	if draft.Title == "" {
		draft.Title = in.Title
	}
	if draft.SuggestedDescription == "" {
		draft.SuggestedDescription = in.Description
	}
	reqs := get("suggested_requirements")
	switch {
	case reqs.IsArray():
		for _, r := range reqs.Array() {
			if s := textx.StripBullet(r.String()); s != "" {
				draft.SuggestedRequirements = append(draft.SuggestedRequirements, s)
			}
		}
	case reqs.Type == gjson.String:
		if lines := textx.SplitLines(reqs.String()); lines != nil {
			draft.SuggestedRequirements = lines
		}
	}
	return draft, nil
}
