package usecase_test

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fairyhunter13/ai-interview-evaluator/internal/domain"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type memSessions struct {
	mu       sync.Mutex
	seq      int
	rows     map[string]domain.InterviewSession
	updates  int
	failSave error
}

func newMemSessions() *memSessions { return &memSessions{rows: map[string]domain.InterviewSession{}} }

func (r *memSessions) Create(_ domain.Context, s domain.InterviewSession) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	s.ID = fmt.Sprintf("sess-%d", r.seq)
	r.rows[s.ID] = s
	return s.ID, nil
}

func (r *memSessions) Get(_ domain.Context, id string) (domain.InterviewSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.rows[id]
	if !ok {
		return domain.InterviewSession{}, fmt.Errorf("%w: session %s", domain.ErrNotFound, id)
	}
	return s, nil
}

func (r *memSessions) GetByApplication(_ domain.Context, applicationID string) (domain.InterviewSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.rows {
		if s.ApplicationID == applicationID {
			return s, nil
		}
	}
	return domain.InterviewSession{}, domain.ErrNotFound
}

func (r *memSessions) Update(_ domain.Context, s domain.InterviewSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[s.ID]; !ok {
		return domain.ErrNotFound
	}
	r.updates++
	r.rows[s.ID] = s
	return nil
}

func (r *memSessions) SaveReport(_ domain.Context, id string, report domain.AnalysisReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failSave != nil {
		return r.failSave
	}
	s, ok := r.rows[id]
	if !ok {
		return domain.ErrNotFound
	}
	s.AnalysisReport = &report
	r.rows[id] = s
	return nil
}

func (r *memSessions) FindActiveByCandidate(_ domain.Context, candidateID string) (domain.InterviewSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var found *domain.InterviewSession
	for _, s := range r.rows {
		if s.CandidateID != candidateID || (s.Status != domain.SessionPending && s.Status != domain.SessionActive) {
			continue
		}
		if found == nil || s.CreatedAt.After(found.CreatedAt) {
			s := s
			found = &s
		}
	}
	if found == nil {
		return domain.InterviewSession{}, domain.ErrNotFound
	}
	return *found, nil
}

func (r *memSessions) ListByEmployer(_ domain.Context, employerID string) ([]domain.InterviewSession, error) {
	return r.filter(func(s domain.InterviewSession) bool { return s.EmployerID == employerID }), nil
}

func (r *memSessions) ListAnalyzedByVacancy(_ domain.Context, vacancyID string) ([]domain.InterviewSession, error) {
	return r.filter(func(s domain.InterviewSession) bool {
		return s.Config.VacancyID == vacancyID && s.Status == domain.SessionCompleted && s.AnalysisReport != nil
	}), nil
}

func (r *memSessions) filter(keep func(domain.InterviewSession) bool) []domain.InterviewSession {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.InterviewSession
	for _, s := range r.rows {
		if keep(s) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *memSessions) put(s domain.InterviewSession) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[s.ID] = s
}

type memMessages struct {
	mu         sync.Mutex
	rows       map[string][]domain.ChatMessage
	failAppend error
}

func newMemMessages() *memMessages { return &memMessages{rows: map[string][]domain.ChatMessage{}} }

func (r *memMessages) Append(_ domain.Context, m domain.ChatMessage) (domain.ChatMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAppend != nil {
		return domain.ChatMessage{}, r.failAppend
	}
	m.Seq = int64(len(r.rows[m.SessionID]) + 1)
	m.ID = fmt.Sprintf("%s-msg-%d", m.SessionID, m.Seq)
	r.rows[m.SessionID] = append(r.rows[m.SessionID], m)
	return m, nil
}

func (r *memMessages) List(_ domain.Context, sessionID string) ([]domain.ChatMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.ChatMessage(nil), r.rows[sessionID]...), nil
}

func (r *memMessages) Count(_ domain.Context, sessionID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows[sessionID]), nil
}

type memVacancies struct {
	mu   sync.Mutex
	rows map[string]domain.Vacancy
}

func newMemVacancies(vs ...domain.Vacancy) *memVacancies {
	r := &memVacancies{rows: map[string]domain.Vacancy{}}
	for _, v := range vs {
		r.rows[v.ID] = v
	}
	return r
}

func (r *memVacancies) Get(_ domain.Context, id string) (domain.Vacancy, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.rows[id]
	if !ok {
		return domain.Vacancy{}, fmt.Errorf("%w: vacancy %s", domain.ErrNotFound, id)
	}
	return v, nil
}

func (r *memVacancies) SaveQuestions(_ domain.Context, id string, qs []domain.Question) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.rows[id]
	if !ok {
		return domain.ErrNotFound
	}
	v.Questions = qs
	r.rows[id] = v
	return nil
}

// memApplications resolves employers through owners (vacancy id to employer id).
type memApplications struct {
	mu     sync.Mutex
	seq    int
	rows   []domain.Application
	owners map[string]string
}

func newMemApplications(owners map[string]string) *memApplications {
	return &memApplications{owners: owners}
}

func (r *memApplications) Create(_ domain.Context, a domain.Application) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	a.ID = fmt.Sprintf("app-%d", r.seq)
	r.rows = append(r.rows, a)
	return a.ID, nil
}

func (r *memApplications) FindByCandidate(_ domain.Context, vacancyID, candidateID string) (domain.Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.rows {
		if a.VacancyID == vacancyID && a.CandidateID == candidateID {
			return a, nil
		}
	}
	return domain.Application{}, domain.ErrNotFound
}

func (r *memApplications) ListByEmployer(_ domain.Context, employerID string) ([]domain.Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Application
	for _, a := range r.rows {
		if r.owners[a.VacancyID] == employerID {
			out = append(out, a)
		}
	}
	return out, nil
}

func containsAll(s string, parts ...string) bool {
	for _, p := range parts {
		if !strings.Contains(s, p) {
			return false
		}
	}
	return true
}
