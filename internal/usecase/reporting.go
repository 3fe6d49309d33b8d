package usecase

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/fairyhunter13/ai-interview-evaluator/internal/domain"
)

const (
	noInterviewsMessage = "No completed interviews available for analysis"

	themeMinRunes   = 6
	themeCandidates = 10
	themesExposed   = 5
	trendsExposed   = 5

	qualityQuestionTarget = 5.0
	qualityDurationTarget = 30.0
)

var employerRecommendations = []string{
	"Continue leveraging AI-driven interviews for consistent evaluation",
	"Focus on addressing common weakness areas in job requirements",
	"Consider adjusting interview questions based on trends",
	"Implement targeted training programs for identified skill gaps",
}

// ReportingEngine is the read-side rollup over stored analysis reports.
type ReportingEngine struct {
	Sessions     domain.SessionRepository
	Applications domain.ApplicationRepository
	Clock        domain.Clock
}

func NewReportingEngine(sessions domain.SessionRepository, apps domain.ApplicationRepository) *ReportingEngine {
	return &ReportingEngine{Sessions: sessions, Applications: apps, Clock: domain.SystemClock{}}
}

func round2(f float64) float64 { return math.Round(f*100) / 100 }

// EmployerReport aggregates every completed, analyzed session of an employer.
func (r *ReportingEngine) EmployerReport(ctx domain.Context, employerID string) (domain.EmployerReport, error) {
	if employerID == "" {
		return domain.EmployerReport{}, fmt.Errorf("%w: employer id required", domain.ErrInvalidArgument)
	}
	all, err := r.Sessions.ListByEmployer(ctx, employerID)
	if err != nil {
		return domain.EmployerReport{}, fmt.Errorf("op=reporting.employer: %w", err)
	}
	out := domain.EmployerReport{
		EmployerID: employerID,
		ReportDate: r.Clock.Now(),
		Insights: domain.ReportInsights{
			TopStrengths:         []string{},
			CommonWeaknesses:     []string{},
			RecommendationTrends: []domain.RecommendationTrend{},
		},
		Recommendations: []string{},
	}

	var analyzed []domain.InterviewSession
	completed, abandoned := 0, 0
	for _, s := range all {
		switch s.Status {
		case domain.SessionCompleted:
			completed++
			if s.AnalysisReport != nil {
				analyzed = append(analyzed, s)
			}
		case domain.SessionAbandoned:
			abandoned++
		}
	}
	if len(analyzed) == 0 {
		out.Message = noInterviewsMessage
		return out, nil
	}

	var rawTotal, quantTotal, questions, minutes float64
	var strengths, weaknesses, recs []string
	for _, s := range analyzed {
		rep := s.AnalysisReport
		rawTotal += s.TotalScore
		quantTotal += rep.QuantitativeScore
		questions += float64(s.TotalQuestions())
		minutes += float64(s.DurationMinutes())
		switch domain.CategoryFor(rep.QuantitativeScore) {
		case domain.CategoryExcellent:
			out.Summary.ScoreDistribution.Excellent++
		case domain.CategoryGood:
			out.Summary.ScoreDistribution.Good++
		case domain.CategoryFair:
			out.Summary.ScoreDistribution.Fair++
		default:
			out.Summary.ScoreDistribution.Poor++
		}
		strengths = append(strengths, rep.SWOT.Strengths...)
		weaknesses = append(weaknesses, rep.SWOT.Weaknesses...)
		recs = append(recs, rep.Recommendations...)
	}
	n := float64(len(analyzed))

	out.Summary.TotalInterviews = len(analyzed)
	out.Summary.AverageScore = round2(rawTotal / n)
	if completed+abandoned > 0 {
		out.Summary.CompletionRate = round2(float64(completed) / float64(completed+abandoned) * 100)
	}
	out.Insights.TopStrengths = head(extractThemes(strengths), themesExposed)
	out.Insights.CommonWeaknesses = head(extractThemes(weaknesses), themesExposed)
	for _, c := range mostCommon(recs, trendsExposed) {
		out.Insights.RecommendationTrends = append(out.Insights.RecommendationTrends, domain.RecommendationTrend{Recommendation: c.value, Count: c.count})
	}
	out.Effectiveness = domain.Effectiveness{
		InterviewQuality:       round2(math.Min(questions/n/qualityQuestionTarget, 1)*50 + math.Min(minutes/n/qualityDurationTarget, 1)*50),
		RequirementFulfillment: round2(quantTotal / n),
		CandidateEngagement:    round2(float64(completed) / float64(len(all)) * 100),
	}
	out.Recommendations = append(out.Recommendations, employerRecommendations...)
	return out, nil
}

type counted struct {
	value string
	count int
	first int
}

// mostCommon ranks values by frequency; ties keep first-seen order.
func mostCommon(values []string, limit int) []counted {
	idx := map[string]int{}
	var cs []counted
	for i, v := range values {
		if j, ok := idx[v]; ok {
			cs[j].count++
			continue
		}
		idx[v] = len(cs)
		cs = append(cs, counted{value: v, count: 1, first: i})
	}
	sort.SliceStable(cs, func(i, j int) bool {
		if cs[i].count != cs[j].count {
			return cs[i].count > cs[j].count
		}
		return cs[i].first < cs[j].first
	})
	if len(cs) > limit {
		cs = cs[:limit]
	}
	return cs
}

// extractThemes keeps lower-cased words longer than five runes from the top
// ten most frequent that occur more than once.
func extractThemes(items []string) []string {
	var words []string
	for _, it := range items {
		for _, w := range strings.Fields(strings.ToLower(it)) {
			if utf8.RuneCountInString(w) >= themeMinRunes {
				words = append(words, w)
			}
		}
	}
	out := []string{}
	for _, c := range mostCommon(words, themeCandidates) {
		if c.count > 1 {
			out = append(out, c.value)
		}
	}
	return out
}

func head(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

// Ranking orders the analyzed sessions of a vacancy by score, earlier
// completion first on ties.
func (r *ReportingEngine) Ranking(ctx domain.Context, vacancyID string) ([]domain.RankedCandidate, error) {
	sessions, err := r.Sessions.ListAnalyzedByVacancy(ctx, vacancyID)
	if err != nil {
		return nil, fmt.Errorf("op=reporting.ranking: %w", err)
	}
	rows := make([]domain.InterviewSession, 0, len(sessions))
	for _, s := range sessions {
		if s.AnalysisReport != nil {
			rows = append(rows, s)
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.AnalysisReport.QuantitativeScore != b.AnalysisReport.QuantitativeScore {
			return a.AnalysisReport.QuantitativeScore > b.AnalysisReport.QuantitativeScore
		}
		switch {
		case a.CompletedAt == nil:
			return false
		case b.CompletedAt == nil:
			return true
		default:
			return a.CompletedAt.Before(*b.CompletedAt)
		}
	})
	out := make([]domain.RankedCandidate, 0, len(rows))
	for i, s := range rows {
		out = append(out, domain.RankedCandidate{
			Rank:              i + 1,
			SessionID:         s.ID,
			CandidateID:       s.CandidateID,
			QuantitativeScore: s.AnalysisReport.QuantitativeScore,
			ScoreCategory:     s.AnalysisReport.ScoreCategory,
			CompletedAt:       s.CompletedAt,
		})
	}
	return out, nil
}

// Candidates lists every application of an employer with its session state.
func (r *ReportingEngine) Candidates(ctx domain.Context, employerID string) ([]domain.CandidateOverview, error) {
	apps, err := r.Applications.ListByEmployer(ctx, employerID)
	if err != nil {
		return nil, fmt.Errorf("op=reporting.candidates: %w", err)
	}
	sessions, err := r.Sessions.ListByEmployer(ctx, employerID)
	if err != nil {
		return nil, fmt.Errorf("op=reporting.candidates: %w", err)
	}
	byApp := make(map[string]domain.InterviewSession, len(sessions))
	for _, s := range sessions {
		byApp[s.ApplicationID] = s
	}
	out := make([]domain.CandidateOverview, 0, len(apps))
	for _, a := range apps {
		row := domain.CandidateOverview{
			ApplicationID:  a.ID,
			VacancyID:      a.VacancyID,
			CandidateID:    a.CandidateID,
			CandidateName:  a.CandidateName,
			CandidateEmail: a.CandidateEmail,
		}
		if s, ok := byApp[a.ID]; ok {
			row.SessionID = s.ID
			row.SessionStatus = s.Status
			if s.AnalysisReport != nil {
				score := s.AnalysisReport.QuantitativeScore
				row.QuantitativeScore = &score
				row.ScoreCategory = s.AnalysisReport.ScoreCategory
			}
		}
		out = append(out, row)
	}
	return out, nil
}
