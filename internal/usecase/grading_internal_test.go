package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/ai-interview-evaluator/internal/domain"
)

func TestGradeAnswer(t *testing.T) {
	q := domain.Question{Weight: 30, ExpectedKeywords: []string{"Goroutine", "channel", " ", "mutex"}}

	score, eval := gradeAnswer(q, "I would use a CHANNEL and a goroutine per worker")
	require.NotNil(t, score)
	assert.Equal(t, 20.0, *score)
	assert.Equal(t, "matched 2/3 keywords: goroutine, channel", eval)

	score, eval = gradeAnswer(q, "no idea")
	require.NotNil(t, score)
	assert.Zero(t, *score)
	assert.Equal(t, "matched 0/3 keywords", eval)

	score, eval = gradeAnswer(domain.Question{Weight: 50}, "anything")
	assert.Nil(t, score)
	assert.Empty(t, eval)
}
