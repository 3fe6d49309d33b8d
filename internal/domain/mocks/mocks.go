// Package mocks provides testify mocks of the domain ports.
package mocks

import (
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/fairyhunter13/ai-interview-evaluator/internal/domain"
)

type cleanupT interface {
	mock.TestingT
	Cleanup(func())
}

// MockGateway is a mock of domain.Gateway.
type MockGateway struct{ mock.Mock }

func NewMockGateway(t cleanupT) *MockGateway {
	m := &MockGateway{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockGateway) OpenConversation(ctx domain.Context, systemPrompt, model string) (domain.Conversation, error) {
	args := m.Called(ctx, systemPrompt, model)
	return args.Get(0).(domain.Conversation), args.Error(1)
}

func (m *MockGateway) ContinueConversation(ctx domain.Context, handle, userText, model string) (string, error) {
	args := m.Called(ctx, handle, userText, model)
	return args.String(0), args.Error(1)
}

func (m *MockGateway) CompleteOnce(ctx domain.Context, prompt, model string) (string, error) {
	args := m.Called(ctx, prompt, model)
	return args.String(0), args.Error(1)
}

// MockContentGate is a mock of domain.ContentGate.
type MockContentGate struct{ mock.Mock }

func NewMockContentGate(t cleanupT) *MockContentGate {
	m := &MockContentGate{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockContentGate) Moderate(ctx domain.Context, text string) (domain.ModerationResult, error) {
	args := m.Called(ctx, text)
	return args.Get(0).(domain.ModerationResult), args.Error(1)
}

// MockEventPublisher is a mock of domain.EventPublisher.
type MockEventPublisher struct{ mock.Mock }

func NewMockEventPublisher(t cleanupT) *MockEventPublisher {
	m := &MockEventPublisher{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockEventPublisher) Publish(ctx domain.Context, ev domain.SessionEvent) error {
	return m.Called(ctx, ev).Error(0)
}

// MockRateLimiter is a mock of domain.RateLimiter.
type MockRateLimiter struct{ mock.Mock }

func NewMockRateLimiter(t cleanupT) *MockRateLimiter {
	m := &MockRateLimiter{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockRateLimiter) Allow(ctx domain.Context, key string, cost int64) (bool, time.Duration, error) {
	args := m.Called(ctx, key, cost)
	return args.Bool(0), args.Get(1).(time.Duration), args.Error(2)
}

// MockVacancyRepository is a mock of domain.VacancyRepository.
type MockVacancyRepository struct{ mock.Mock }

func NewMockVacancyRepository(t cleanupT) *MockVacancyRepository {
	m := &MockVacancyRepository{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockVacancyRepository) Get(ctx domain.Context, id string) (domain.Vacancy, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.Vacancy), args.Error(1)
}

func (m *MockVacancyRepository) SaveQuestions(ctx domain.Context, id string, questions []domain.Question) error {
	return m.Called(ctx, id, questions).Error(0)
}
