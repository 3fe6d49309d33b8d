package tokencount

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCount(t *testing.T) {
	t.Parallel()

	counter := NewCounter()
	tests := []struct {
		name     string
		text     string
		model    string
		minCount int
		maxCount int
	}{
		{name: "gpt-4", text: "Hello, world!", model: "gpt-4", minCount: 3, maxCount: 5},
		{name: "gpt-3.5", text: "The quick brown fox jumps over the lazy dog.", model: "gpt-3.5-turbo", minCount: 8, maxCount: 12},
		{name: "ollama tag", text: "Hello, world!", model: "llama3.2:3b", minCount: 3, maxCount: 5},
		{name: "prefixed", text: "Testing token counting", model: "meta-llama/llama-3.1-8b-instruct", minCount: 3, maxCount: 6},
		{name: "empty", text: "", model: "gpt-4", minCount: 0, maxCount: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := counter.Count(tt.text, tt.model)
			assert.GreaterOrEqual(t, n, tt.minCount)
			assert.LessOrEqual(t, n, tt.maxCount)
		})
	}
}

func TestNormalizeModelName(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "gpt-4o", normalizeModelName("GPT-4o-mini"))
	assert.Equal(t, "gpt-3.5-turbo", normalizeModelName("openai/gpt-3.5-turbo-0125"))
	assert.Equal(t, "gpt-4", normalizeModelName("gemini-2.0-flash"))
	assert.Equal(t, "gpt-4", normalizeModelName("qwen2.5:7b"))
}

func TestCountChat_IncludesFraming(t *testing.T) {
	t.Parallel()
	c := NewCounter()
	msgs := []Message{{Role: "system", Content: "You are helpful."}, {Role: "user", Content: "Hi"}}
	raw := c.Count("You are helpful.", "gpt-4") + c.Count("Hi", "gpt-4")
	assert.Greater(t, c.CountChat(msgs, "gpt-4"), raw)
	assert.Equal(t, 3, c.CountChat(nil, "gpt-4"))
}

func TestTrimToBudget(t *testing.T) {
	t.Parallel()
	c := NewCounter()
	lines := []string{
		strings.Repeat("first answer words ", 20),
		strings.Repeat("second answer words ", 20),
		"short last line",
	}

	kept, dropped := c.TrimToBudget(lines, 0, "gpt-4")
	assert.Equal(t, lines, kept)
	assert.Zero(t, dropped)

	budget := c.Count(lines[2], "gpt-4") + 1
	kept, dropped = c.TrimToBudget(lines, budget, "gpt-4")
	assert.Equal(t, []string{"short last line"}, kept)
	assert.Equal(t, 2, dropped)

	kept, dropped = c.TrimToBudget(lines, 1, "gpt-4")
	assert.Empty(t, kept)
	assert.Equal(t, 3, dropped)
}

func TestCounter_Concurrent(t *testing.T) {
	t.Parallel()
	c := NewCounter()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Positive(t, c.Count("concurrent access", "gpt-4"))
		}()
	}
	wg.Wait()
}

func TestEstimate(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 0, estimate(""))
	assert.Equal(t, 1, estimate("abc"))
	assert.Equal(t, 2, estimate("abcdefgh"))
}
