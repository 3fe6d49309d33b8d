package domain

import "time"

// Vacancy is the record-store view of a job posting.
type Vacancy struct {
	ID           string
	EmployerID   string
	Title        string
	Description  string
	Requirements []string
	Questions    []Question
	CreatedAt    time.Time
}

// Candidate identifies the applicant.
type Candidate struct {
	ID    string `json:"id" validate:"required"`
	Name  string `json:"name"`
	Email string `json:"email" validate:"omitempty,email"`
}

// Application links a candidate to a vacancy.
type Application struct {
	ID             string
	VacancyID      string
	CandidateID    string
	CandidateName  string
	CandidateEmail string
	CreatedAt      time.Time
}

// VacancyDraftInput is the employer-provided seed of a vacancy draft.
type VacancyDraftInput struct {
	Title        string `json:"title" validate:"required,min=2,max=100"`
	Description  string `json:"description" validate:"required,min=10,max=5000"`
	Location     string `json:"location" validate:"required,min=2"`
	Salary       string `json:"salary"`
	ContractType string `json:"contract_type"`
}

// VacancyDraft is the AI proposal the employer may edit.
type VacancyDraft struct {
	Title                 string   `json:"title"`
	SuggestedDescription  string   `json:"suggested_description"`
	SuggestedRequirements []string `json:"suggested_requirements"`
}

// ExamValidation is the outcome of validating a generated exam document.
type ExamValidation struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
	Count int    `json:"count,omitempty"`
}

// GeneratedExam bundles a generated exam document and its validation.
type GeneratedExam struct {
	OK         bool           `json:"ok"`
	Exam       string         `json:"exam"`
	Validation ExamValidation `json:"validation"`
	Corrected  bool           `json:"corrected"`
}
