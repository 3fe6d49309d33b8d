package usecase

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fairyhunter13/ai-interview-evaluator/internal/domain"
)

func formatNumber(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }

// buildInterviewerPrompt embeds the numbered question list, the vacancy title
// and the interviewer instructions.
func buildInterviewerPrompt(persona, vacancyTitle string, questions []domain.Question) string {
	if vacancyTitle == "" {
		vacancyTitle = "this position"
	}
	var qs strings.Builder
	for i, q := range questions {
		fmt.Fprintf(&qs, "%d. %s (Type: %s, Weight: %s%%)\n", i+1, q.Question, q.Type, formatNumber(q.Weight))
	}
	return fmt.Sprintf(`%s

VACANCY: %s

YOUR MISSION:
1. Conduct a professional and friendly interview
2. Ask the following questions one by one
3. Listen carefully to the candidate's answers
4. Ask follow-up questions when appropriate
5. Evaluate the answers against the expected keywords

INTERVIEW QUESTIONS:
%s
INSTRUCTIONS:
- Start with a warm greeting and introduce yourself
- Ask ONE question at a time
- Wait for the answer before continuing
- Be empathetic and professional
- At the end, thank the candidate for their time

Keep a professional but friendly tone.`, persona, vacancyTitle, qs.String())
}

// interviewData is the analysis input assembled from a completed session.
type interviewData struct {
	VacancyTitle     string
	Requirements     []string
	Questions        []domain.Question
	Transcript       []domain.ChatMessage
	TotalScore       float64
	MaxPossibleScore float64
}

// transcriptLines renders messages as "SENDER: content" lines.
func transcriptLines(msgs []domain.ChatMessage) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, strings.ToUpper(string(m.Sender))+": "+m.Content)
	}
	return out
}

func buildSWOTPrompt(d interviewData, conversation []string) string {
	var reqs strings.Builder
	for _, r := range d.Requirements {
		reqs.WriteString("- " + r + "\n")
	}
	return fmt.Sprintf(`Analyze this job interview using SWOT methodology.

VACANCY: %s

REQUIREMENTS:
%s
INTERVIEW CONVERSATION:
%s

INTERVIEW SCORE: %s/%s

Please provide a comprehensive SWOT analysis in the following JSON format:
{
  "strengths": ["list of 4-6 specific strengths demonstrated"],
  "weaknesses": ["list of 4-6 specific weaknesses or gaps"],
  "opportunities": ["list of 4-6 opportunities for growth/development"],
  "threats": ["list of 4-6 potential risks or concerns"]
}

Each point should be:
- Specific to this candidate's interview
- Actionable and measurable where possible
- Directly related to the vacancy requirements
- Supported by evidence from the conversation

Respond ONLY with the JSON structure, no additional text.`,
		d.VacancyTitle, reqs.String(), strings.Join(conversation, "\n"),
		formatNumber(d.TotalScore), formatNumber(d.MaxPossibleScore))
}

func examSchema(role, level string, n int) string {
	return fmt.Sprintf(`{
  "title": "Exam %s",
  "meta": {"level": "%s", "count": %d},
  "questions": [
    {
      "id": "Q-001",
      "q": "question text",
      "options": ["A", "B", "C", "D"],
      "answer": "A",
      "why": "short justification",
      "rubrics": ["skill area"]
    }
  ]
}`, role, level, n)
}

func buildExamPrompt(persona, role, level string, n int, context string) string {
	if context == "" {
		context = "N/A"
	}
	return fmt.Sprintf(`%s

CONTEXT:
---
%s
---

EXAM:
Generate an exam of %d questions for the %s role, level %s.
- Use ONLY the CONTEXT when it is provided.
- Cover the skill areas of the role.
- Every question has exactly one correct answer and at least 4 distinct options.
- Return ONLY the JSON and match EXACTLY this schema:
%s
`, persona, context, n, role, level, examSchema(role, level, n))
}

func buildFixPrompt(original, schemaPrompt string) string {
	return fmt.Sprintf(`Fix this JSON so it matches EXACTLY the schema. Do not add text outside the JSON.

JSON_ORIGINAL:
%s

SCHEMA:
%s
`, original, schemaPrompt)
}

func buildInterviewGenerationPrompt(persona string, v domain.Vacancy, n int) string {
	var reqs strings.Builder
	for _, r := range v.Requirements {
		reqs.WriteString("- " + r + "\n")
	}
	return fmt.Sprintf(`%s

Design a structured job interview of %d questions for the vacancy below.

VACANCY: %s

DESCRIPTION:
%s

REQUIREMENTS:
%s
Mix technical, behavioral and situational questions. Weights are percentages and must sum to 100.
Return ONLY a JSON object with this shape:
{
  "questions": [
    {"id": "q1", "question": "question text", "type": "technical|behavioral|situational", "expected_keywords": ["keyword"], "rubric": "what a good answer covers", "weight": 25}
  ]
}`, persona, n, v.Title, v.Description, reqs.String())
}

func buildVacancyDraftPrompt(in domain.VacancyDraftInput) string {
	orDash := func(s string) string {
		if strings.TrimSpace(s) == "" {
			return "-"
		}
		return s
	}
	return fmt.Sprintf(`Return ONLY JSON with the fields {"title", "suggested_description", "suggested_requirements", "notes"}.
Requirements must be concrete, actionable and measurable.

Title: %s
Description (base): %s
Location: %s
Salary (optional): %s
Contract type (optional): %s`, in.Title, in.Description, in.Location, orDash(in.Salary), orDash(in.ContractType))
}
