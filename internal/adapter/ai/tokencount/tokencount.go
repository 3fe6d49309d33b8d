// Package tokencount counts LLM tokens and trims transcripts to a prompt budget.
//
// It uses tiktoken-go with the embedded offline BPE loader so no encoding
// files are fetched at runtime. Models without a tiktoken mapping are counted
// with cl100k_base, which is close enough for budgeting open-weight models.
package tokencount

import (
	"log/slog"
	"strings"
	"sync"

	tiktoken "github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

func init() {
	tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
}

// Message is one chat message as sent to a chat-completions API.
type Message struct {
	Role    string
	Content string
}

// Counter provides thread-safe token counting.
type Counter struct {
	encodingCache map[string]*tiktoken.Tiktoken
	mu            sync.RWMutex
}

// NewCounter creates a new token counter instance.
func NewCounter() *Counter {
	return &Counter{encodingCache: make(map[string]*tiktoken.Tiktoken)}
}

// DefaultCounter is a global token counter instance.
var DefaultCounter = NewCounter()

func (c *Counter) encoding(model string) (*tiktoken.Tiktoken, error) {
	key := normalizeModelName(model)

	c.mu.RLock()
	if enc, ok := c.encodingCache[key]; ok {
		c.mu.RUnlock()
		return enc, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if enc, ok := c.encodingCache[key]; ok {
		return enc, nil
	}
	enc, err := tiktoken.EncodingForModel(key)
	if err != nil {
		slog.Debug("falling back to cl100k_base encoding", slog.String("model", model), slog.Any("error", err))
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, err
		}
	}
	c.encodingCache[key] = enc
	return enc, nil
}

// normalizeModelName maps model IDs (including Ollama tags such as
// "llama3.2:3b" and provider prefixes) to a tiktoken-compatible name.
func normalizeModelName(model string) string {
	model = strings.ToLower(model)
	if i := strings.LastIndex(model, "/"); i >= 0 {
		model = model[i+1:]
	}
	switch {
	case strings.HasPrefix(model, "gpt-4o"):
		return "gpt-4o"
	case strings.Contains(model, "gpt-3.5"):
		return "gpt-3.5-turbo"
	default:
		return "gpt-4"
	}
}

// Count returns the number of tokens in text. When no encoding is available
// it falls back to a four-characters-per-token estimate.
func (c *Counter) Count(text, model string) int {
	enc, err := c.encoding(model)
	if err != nil {
		return estimate(text)
	}
	return len(enc.Encode(text, nil, nil))
}

// CountChat counts tokens for a chat completion request including the
// per-message framing overhead used by OpenAI-compatible APIs.
func (c *Counter) CountChat(messages []Message, model string) int {
	const tokensPerMessage, replyPriming = 3, 3
	enc, err := c.encoding(model)
	n := replyPriming
	for _, m := range messages {
		if err != nil {
			n += tokensPerMessage + estimate(m.Role) + estimate(m.Content)
			continue
		}
		n += tokensPerMessage + len(enc.Encode(m.Role, nil, nil)) + len(enc.Encode(m.Content, nil, nil))
	}
	return n
}

// TrimToBudget keeps the longest suffix of lines whose combined token count
// fits budget and reports how many leading lines were dropped. A non-positive
// budget keeps everything.
func (c *Counter) TrimToBudget(lines []string, budget int, model string) ([]string, int) {
	if budget <= 0 {
		return lines, 0
	}
	used := 0
	start := len(lines)
	for i := len(lines) - 1; i >= 0; i-- {
		n := c.Count(lines[i], model) + 1
		if used+n > budget {
			break
		}
		used += n
		start = i
	}
	return lines[start:], start
}

func estimate(s string) int {
	return (len(s) + 3) / 4
}
