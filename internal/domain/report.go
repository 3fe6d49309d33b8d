package domain

import "time"

// ScoreCategory buckets a quantitative score.
type ScoreCategory string

const (
	CategoryExcellent ScoreCategory = "Excellent"
	CategoryGood      ScoreCategory = "Good"
	CategoryFair      ScoreCategory = "Fair"
	CategoryPoor      ScoreCategory = "Poor"
)

// Score thresholds shared by categorisation, recommendations and distributions.
const (
	ThresholdExcellent = 80.0
	ThresholdGood      = 60.0
	ThresholdFair      = 40.0
)

// CategoryFor maps a score to its category.
func CategoryFor(score float64) ScoreCategory {
	switch {
	case score >= ThresholdExcellent:
		return CategoryExcellent
	case score >= ThresholdGood:
		return CategoryGood
	case score >= ThresholdFair:
		return CategoryFair
	default:
		return CategoryPoor
	}
}

// SWOT holds the four analysis quadrants.
type SWOT struct {
	Strengths     []string `json:"strengths"`
	Weaknesses    []string `json:"weaknesses"`
	Opportunities []string `json:"opportunities"`
	Threats       []string `json:"threats"`
}

// IsEmpty reports whether no quadrant has an entry.
func (s SWOT) IsEmpty() bool {
	return len(s.Strengths)+len(s.Weaknesses)+len(s.Opportunities)+len(s.Threats) == 0
}

// CrossSWOT holds the derived pairwise strategies.
type CrossSWOT struct {
	SO []string `json:"so_strategies"`
	WO []string `json:"wo_strategies"`
	ST []string `json:"st_strategies"`
	WT []string `json:"wt_strategies"`
}

// ReportMetadata summarises the interview the report was built from.
type ReportMetadata struct {
	TotalQuestions  int `json:"total_questions"`
	TotalMessages   int `json:"total_messages"`
	DurationMinutes int `json:"duration_minutes"`
}

// AnalysisSource records which stage of the SWOT pipeline produced the quadrants.
type AnalysisSource string

const (
	SourceModel     AnalysisSource = "model"
	SourceManual    AnalysisSource = "manual"
	SourceSynthetic AnalysisSource = "synthetic"
)

// AnalysisReport is embedded in a completed session.
type AnalysisReport struct {
	CandidateID       string         `json:"candidate_id"`
	VacancyID         string         `json:"vacancy_id"`
	VacancyTitle      string         `json:"vacancy_title"`
	InterviewDate     *time.Time     `json:"interview_date"`
	QuantitativeScore float64        `json:"quantitative_score"`
	ScoreCategory     ScoreCategory  `json:"score_category"`
	SWOT              SWOT           `json:"swot_analysis"`
	CrossSWOT         CrossSWOT      `json:"cross_swot"`
	Recommendations   []string       `json:"recommendations"`
	Metadata          ReportMetadata `json:"metadata"`
	Source            AnalysisSource `json:"analysis_source"`
	GeneratedAt       time.Time      `json:"generated_at"`
}

// ScoreDistribution counts reports per category.
type ScoreDistribution struct {
	Excellent int `json:"excellent"`
	Good      int `json:"good"`
	Fair      int `json:"fair"`
	Poor      int `json:"poor"`
}

// RecommendationTrend is one frequently repeated recommendation.
type RecommendationTrend struct {
	Recommendation string `json:"recommendation"`
	Count          int    `json:"count"`
}

// ReportSummary is the headline block of an employer report.
type ReportSummary struct {
	TotalInterviews   int               `json:"total_interviews"`
	AverageScore      float64           `json:"average_score"`
	CompletionRate    float64           `json:"completion_rate"`
	ScoreDistribution ScoreDistribution `json:"score_distribution"`
}

// ReportInsights lists recurring themes.
type ReportInsights struct {
	TopStrengths         []string              `json:"top_strengths"`
	CommonWeaknesses     []string              `json:"common_weaknesses"`
	RecommendationTrends []RecommendationTrend `json:"recommendation_trends"`
}

// Effectiveness holds the three derived sub-scores.
type Effectiveness struct {
	InterviewQuality       float64 `json:"interview_quality"`
	RequirementFulfillment float64 `json:"requirement_fulfillment"`
	CandidateEngagement    float64 `json:"candidate_engagement"`
}

// EmployerReport is the fleet-level rollup for one employer.
type EmployerReport struct {
	EmployerID      string         `json:"employer_id"`
	ReportDate      time.Time      `json:"report_date"`
	Message         string         `json:"message,omitempty"`
	Summary         ReportSummary  `json:"summary"`
	Insights        ReportInsights `json:"insights"`
	Effectiveness   Effectiveness  `json:"effectiveness"`
	Recommendations []string       `json:"recommendations"`
}

// RankedCandidate is one row of a vacancy ranking.
type RankedCandidate struct {
	Rank              int           `json:"rank"`
	SessionID         string        `json:"session_id"`
	CandidateID       string        `json:"candidate_id"`
	QuantitativeScore float64       `json:"quantitative_score"`
	ScoreCategory     ScoreCategory `json:"score_category"`
	CompletedAt       *time.Time    `json:"completed_at"`
}

// CandidateOverview is one row of an employer's candidate listing.
type CandidateOverview struct {
	ApplicationID     string        `json:"application_id"`
	VacancyID         string        `json:"vacancy_id"`
	CandidateID       string        `json:"candidate_id"`
	CandidateName     string        `json:"candidate_name"`
	CandidateEmail    string        `json:"candidate_email"`
	SessionID         string        `json:"session_id,omitempty"`
	SessionStatus     SessionStatus `json:"session_status,omitempty"`
	QuantitativeScore *float64      `json:"quantitative_score,omitempty"`
	ScoreCategory     ScoreCategory `json:"score_category,omitempty"`
}
