// Package moderation implements domain.ContentGate on top of optional remote
// providers (OpenAI moderation, Google Perspective) with a local rule filter
// as the fallback decision.
package moderation

import (
	"slices"
	"sort"
)

// Kind tags a provider verdict.
type Kind int

const (
	KindUnavailable Kind = iota
	KindApproved
	KindRejected
)

func (k Kind) String() string {
	switch k {
	case KindApproved:
		return "approved"
	case KindRejected:
		return "rejected"
	default:
		return "unavailable"
	}
}

// Verdict is one provider's decision. Categories is only set for rejections.
type Verdict struct {
	Kind       Kind
	Provider   string
	Categories []string
	Detail     string
}

func Unavailable(provider, detail string) Verdict {
	return Verdict{Kind: KindUnavailable, Provider: provider, Detail: detail}
}

func Approved(provider string) Verdict {
	return Verdict{Kind: KindApproved, Provider: provider, Detail: "approved by " + provider}
}

func Rejected(provider string, categories []string, detail string) Verdict {
	return Verdict{Kind: KindRejected, Provider: provider, Categories: categories, Detail: detail}
}

// Policy selects how two provider verdicts are combined.
type Policy string

const (
	// PolicyAnyReject rejects as soon as one provider rejects.
	PolicyAnyReject Policy = "any_reject"
	// PolicyConsensus rejects only when the available providers agree.
	PolicyConsensus Policy = "consensus"
)

// Combine merges two verdicts. An Unavailable result means no decision could
// be taken and the caller must fall back to local rules.
//
// any_reject: a rejection wins, otherwise an approval wins.
// consensus: a single available provider decides alone; two available
// providers must agree, a disagreement is Unavailable.
func Combine(policy Policy, a, b Verdict) Verdict {
	if a.Kind == KindUnavailable {
		return b
	}
	if b.Kind == KindUnavailable {
		return a
	}
	if a.Kind == b.Kind {
		if a.Kind == KindRejected {
			return Rejected(a.Provider+"+"+b.Provider, mergeCategories(a.Categories, b.Categories), "rejected by "+a.Provider+" and "+b.Provider)
		}
		return Verdict{Kind: KindApproved, Provider: a.Provider + "+" + b.Provider, Detail: "approved by " + a.Provider + " and " + b.Provider}
	}
	if policy == PolicyConsensus {
		return Unavailable(a.Provider+"+"+b.Provider, "providers disagree")
	}
	if a.Kind == KindRejected {
		return a
	}
	return b
}

func mergeCategories(a, b []string) []string {
	out := slices.Clone(a)
	for _, c := range b {
		if !slices.Contains(out, c) {
			out = append(out, c)
		}
	}
	sort.Strings(out)
	return out
}
