package usecase

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/fairyhunter13/ai-interview-evaluator/internal/adapter/ai"
	"github.com/fairyhunter13/ai-interview-evaluator/internal/domain"
	"github.com/fairyhunter13/ai-interview-evaluator/pkg/textx"
)

const (
	interviewShare = 60.0
	balanceShare   = 40.0
	neutralBalance = 20.0

	crossPairs     = 3
	crossSideRunes = 50
	highlightRunes = 100
)

var swotKeys = []string{"strengths", "weaknesses", "opportunities", "threats"}

// parseSWOTResponse turns model output into quadrants. It tries the extracted
// JSON object first and falls back to the line-based parser. ok is false when
// neither produced a single entry.
func parseSWOTResponse(text string) (swot domain.SWOT, source domain.AnalysisSource, ok bool) {
	if s, found := swotFromJSON(ai.ExtractJSON(text)); found {
		return s, domain.SourceModel, true
	}
	s := parseSWOTManually(text)
	if s.IsEmpty() {
		return domain.SWOT{}, "", false
	}
	return s, domain.SourceManual, true
}

func swotFromJSON(ex ai.Extraction) (domain.SWOT, bool) {
	m, err := ai.LowerKeys(ex)
	if err != nil {
		return domain.SWOT{}, false
	}
	lists := make([][]string, len(swotKeys))
	for i, k := range swotKeys {
		raw, present := m[k]
		if !present {
			return domain.SWOT{}, false
		}
		items, ok := stringList(raw)
		if !ok {
			return domain.SWOT{}, false
		}
		lists[i] = items
	}
	return domain.SWOT{Strengths: lists[0], Weaknesses: lists[1], Opportunities: lists[2], Threats: lists[3]}, true
}

// stringList accepts a JSON array of scalars. Non-string scalars are rendered
// with their JSON text; blank entries are dropped.
func stringList(raw json.RawMessage) ([]string, bool) {
	var items []any
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, false
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		var s string
		switch v := it.(type) {
		case string:
			s = v
		case nil:
			continue
		case map[string]any, []any:
			return nil, false
		default:
			s = fmt.Sprint(v)
		}
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out, true
}

// parseSWOTManually switches section on header lines and collects "-" or "•"
// bullets into the current section.
func parseSWOTManually(text string) domain.SWOT {
	var s domain.SWOT
	var current *[]string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lower := strings.ToLower(line)
		switch {
		case strings.Contains(lower, "strength"):
			current = &s.Strengths
		case strings.Contains(lower, "weakness"):
			current = &s.Weaknesses
		case strings.Contains(lower, "opportunit"):
			current = &s.Opportunities
		case strings.Contains(lower, "threat"):
			current = &s.Threats
		case current != nil && (strings.HasPrefix(line, "-") || strings.HasPrefix(line, "•")):
			if point := strings.TrimSpace(strings.TrimLeft(line, "-•")); point != "" {
				*current = append(*current, point)
			}
		}
	}
	return s
}

// syntheticSWOT is built from session counters only.
func syntheticSWOT(questionCount int, totalScore, maxScore float64) domain.SWOT {
	pct := 0.0
	if maxScore > 0 {
		pct = totalScore / maxScore * 100
	}
	return domain.SWOT{
		Strengths: []string{
			fmt.Sprintf("Completed all %d interview questions", questionCount),
			fmt.Sprintf("Achieved %.1f%% overall score", pct),
			"Demonstrated engagement throughout the interview",
			"Provided detailed responses to technical questions",
		},
		Weaknesses: []string{
			"Some responses could be more specific",
			"Limited depth in certain technical areas",
			"Could benefit from more concrete examples",
			"Some answers lacked structure",
		},
		Opportunities: []string{
			"Strong potential for skill development",
			"Opportunity to deepen technical knowledge",
			"Can expand experience in key areas",
			"Room for growth in communication skills",
		},
		Threats: []string{
			"May require additional training",
			"Competition from more experienced candidates",
			"Some skill gaps need addressing",
			"Limited evidence of specific requirements",
		},
	}
}

// quantitativeScore combines raw interview performance (60) with SWOT
// balance (40), rounded to two decimals and clamped to [0,100].
func quantitativeScore(totalScore, maxScore float64, swot domain.SWOT) float64 {
	interview := 0.0
	if maxScore > 0 {
		interview = totalScore / maxScore * interviewShare
	}
	balance := neutralBalance
	if s, w := len(swot.Strengths), len(swot.Weaknesses); s+w > 0 {
		balance = float64(s) / float64(s+w) * balanceShare
	}
	score := math.Round((interview+balance)*100) / 100
	return math.Max(0, math.Min(100, score))
}

func crossSWOT(s domain.SWOT) domain.CrossSWOT {
	return domain.CrossSWOT{
		SO: pairStrategies(s.Strengths, s.Opportunities, "Leverage %s... to capitalize on %s...", "Build on strengths to pursue opportunities"),
		WO: pairStrategies(s.Weaknesses, s.Opportunities, "Address %s... to take advantage of %s...", "Improve weaknesses to unlock opportunities"),
		ST: pairStrategies(s.Strengths, s.Threats, "Use %s... to mitigate %s...", "Apply strengths to minimize threats"),
		WT: pairStrategies(s.Weaknesses, s.Threats, "Minimize %s... to avoid %s...", "Reduce weaknesses to prevent threats"),
	}
}

func pairStrategies(a, b []string, tmpl, fallback string) []string {
	if len(a) == 0 || len(b) == 0 {
		return []string{fallback}
	}
	n := min(len(a), len(b), crossPairs)
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, fmt.Sprintf(tmpl, textx.Clip(a[i], crossSideRunes), textx.Clip(b[i], crossSideRunes)))
	}
	return out
}

func verdictFor(score float64) string {
	switch {
	case score >= domain.ThresholdExcellent:
		return "STRONGLY RECOMMEND: Candidate demonstrates excellent fit for the position"
	case score >= domain.ThresholdGood:
		return "RECOMMEND: Candidate shows good potential with minor areas for development"
	case score >= domain.ThresholdFair:
		return "CONDITIONAL: Consider for position with specific training plan"
	default:
		return "NOT RECOMMENDED: Significant gaps in requirements"
	}
}

func recommendations(s domain.SWOT, score float64) []string {
	out := []string{verdictFor(score)}
	if len(s.Strengths) > 0 {
		out = append(out, "Focus on candidate's key strength: "+textx.Clip(s.Strengths[0], highlightRunes))
	}
	if len(s.Weaknesses) > 0 {
		out = append(out, "Development area to address: "+textx.Clip(s.Weaknesses[0], highlightRunes))
	}
	return append(out,
		"Schedule follow-up technical assessment",
		"Request portfolio or work samples",
		"Verify references and previous experience",
	)
}
