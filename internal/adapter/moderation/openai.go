package moderation

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
)

const defaultOpenAIModerationModel = "omni-moderation-latest"

// OpenAIProvider calls the OpenAI moderation endpoint.
type OpenAIProvider struct {
	client *resty.Client
	url    string
	key    string
	model  string
}

func NewOpenAIProvider(url, apiKey string, timeout time.Duration) *OpenAIProvider {
	return &OpenAIProvider{
		client: resty.New().SetTimeout(timeout),
		url:    url,
		key:    apiKey,
		model:  defaultOpenAIModerationModel,
	}
}

func (p *OpenAIProvider) Name() string { return "openai" }

func (p *OpenAIProvider) Check(ctx context.Context, text string) Verdict {
	resp, err := p.client.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+p.key).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]any{"input": text, "model": p.model}).
		Post(p.url)
	if err != nil {
		return Unavailable(p.Name(), err.Error())
	}
	if resp.StatusCode() != http.StatusOK {
		return Unavailable(p.Name(), fmt.Sprintf("status %d", resp.StatusCode()))
	}
	result := gjson.GetBytes(resp.Body(), "results.0")
	if !result.Get("flagged").Exists() {
		return Unavailable(p.Name(), "unexpected response shape")
	}
	if !result.Get("flagged").Bool() {
		return Approved(p.Name())
	}
	var cats []string
	result.Get("categories").ForEach(func(k, v gjson.Result) bool {
		if v.Bool() {
			cats = append(cats, formatCategory(k.String()))
		}
		return true
	})
	sort.Strings(cats)
	detail := "flagged by openai"
	if len(cats) > 0 {
		detail = "openai detected: " + strings.Join(cats, ", ")
	}
	return Rejected(p.Name(), cats, detail)
}

func formatCategory(c string) string {
	c = strings.ReplaceAll(c, "_", " ")
	c = strings.ReplaceAll(c, "/", " or ")
	return strings.ToLower(c)
}
