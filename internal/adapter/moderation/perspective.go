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

var perspectiveAttributes = []string{
	"TOXICITY", "SEVERE_TOXICITY", "IDENTITY_ATTACK", "INSULT", "PROFANITY", "THREAT", "SEXUALLY_EXPLICIT",
}

// PerspectiveProvider calls the Google Perspective comment analyzer. An
// attribute whose summary score reaches the threshold flags the text.
type PerspectiveProvider struct {
	client    *resty.Client
	url       string
	key       string
	threshold float64
}

func NewPerspectiveProvider(url, apiKey string, threshold float64, timeout time.Duration) *PerspectiveProvider {
	return &PerspectiveProvider{
		client:    resty.New().SetTimeout(timeout),
		url:       url,
		key:       apiKey,
		threshold: threshold,
	}
}

func (p *PerspectiveProvider) Name() string { return "perspective" }

func (p *PerspectiveProvider) Check(ctx context.Context, text string) Verdict {
	attrs := make(map[string]struct{}, len(perspectiveAttributes))
	for _, a := range perspectiveAttributes {
		attrs[a] = struct{}{}
	}
	resp, err := p.client.R().
		SetContext(ctx).
		SetQueryParam("key", p.key).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]any{
			"comment":             map[string]string{"text": text},
			"requestedAttributes": attrs,
			"languages":           []string{"en", "es"},
		}).
		Post(p.url)
	if err != nil {
		return Unavailable(p.Name(), err.Error())
	}
	if resp.StatusCode() != http.StatusOK {
		return Unavailable(p.Name(), fmt.Sprintf("status %d", resp.StatusCode()))
	}
	scores := gjson.GetBytes(resp.Body(), "attributeScores")
	if !scores.IsObject() {
		return Unavailable(p.Name(), "unexpected response shape")
	}
	var cats []string
	scores.ForEach(func(k, v gjson.Result) bool {
		if v.Get("summaryScore.value").Float() >= p.threshold {
			cats = append(cats, formatCategory(k.String()))
		}
		return true
	})
	if len(cats) == 0 {
		return Approved(p.Name())
	}
	sort.Strings(cats)
	return Rejected(p.Name(), cats, "perspective detected: "+strings.Join(cats, ", "))
}
