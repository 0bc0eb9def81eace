// Package contextbuilder implements the Context Builder (§4.5): assembling
// per-iteration prompt context under a token budget, dropping or
// summarizing sections priority order until what remains fits.
package contextbuilder

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Summarizer produces a shorter version of text targeting roughly
// targetTokens tokens. The LLM Client satisfies this by generating a
// summary completion; Build falls back to truncation if none is supplied.
type Summarizer interface {
	Summarize(ctx context.Context, text string, targetTokens int) (string, error)
}

// Section is one named block of candidate prompt context.
type Section struct {
	Name string
	// Priority orders assembly and drop order: higher priorities are
	// assembled first and dropped last.
	Priority int
	Content  string
	// Persist marks a section as containing decisions that must survive
	// even if the section itself is dropped; it is summarized to one line
	// before being dropped rather than discarded outright.
	Persist bool
}

// Input is everything the Context Builder needs for one iteration, per §4.5.
type Input struct {
	Sections           []Section
	ContextWindow      int
	ReserveForResponse int
	SafetyMargin       int
}

// Budget returns the token budget left for context after reserving room
// for the response and a safety margin.
func (in Input) Budget() int {
	b := in.ContextWindow - in.ReserveForResponse - in.SafetyMargin
	if b < 0 {
		return 0
	}
	return b
}

// Builder assembles Context Builder output, caching summaries so that
// repeated iterations over the same input produce the same result.
type Builder struct {
	summarizer Summarizer

	mu      sync.Mutex
	summary map[string]string
}

// New constructs a Builder. summarizer may be nil, in which case sections
// that must be shrunk are truncated instead of LLM-summarized.
func New(summarizer Summarizer) *Builder {
	return &Builder{summarizer: summarizer, summary: make(map[string]string)}
}

// estimateTokens uses the same ~4-characters-per-token heuristic as
// llmclient.HTTPProvider.EstimateTokens, so a section's estimated cost here
// agrees with what the LLM Client will eventually report for the same text.
func estimateTokens(s string) int {
	return (len(s) + 3) / 4
}

// Build assembles sections in priority order, dropping (after summarizing
// any Persist section to one line) the lowest-priority remaining section
// while the total exceeds budget. A single section that alone exceeds
// budget is summarized to a target token count and substituted. Composition
// is a pure function of in for a fixed Builder cache.
func (b *Builder) Build(ctx context.Context, in Input) (string, error) {
	budget := in.Budget()

	sections := make([]Section, len(in.Sections))
	copy(sections, in.Sections)
	sort.SliceStable(sections, func(i, j int) bool { return sections[i].Priority > sections[j].Priority })

	for i := range sections {
		if estimateTokens(sections[i].Content) > budget && budget > 0 {
			shrunk, err := b.shrink(ctx, sections[i].Content, budget)
			if err != nil {
				return "", err
			}
			sections[i].Content = shrunk
		}
	}

	for totalTokens(sections) > budget && len(sections) > 0 {
		last := len(sections) - 1
		dropped := sections[last]
		sections = sections[:last]

		if dropped.Persist {
			line, err := b.shrink(ctx, dropped.Content, 32)
			if err != nil {
				return "", err
			}
			sections = append(sections, Section{Name: dropped.Name + " (summary)", Priority: dropped.Priority, Content: line})
			sort.SliceStable(sections, func(i, j int) bool { return sections[i].Priority > sections[j].Priority })
		}
	}

	var sb strings.Builder
	for _, s := range sections {
		if s.Content == "" {
			continue
		}
		fmt.Fprintf(&sb, "### %s\n\n%s\n\n", s.Name, s.Content)
	}
	return strings.TrimSpace(sb.String()), nil
}

func totalTokens(sections []Section) int {
	total := 0
	for _, s := range sections {
		total += estimateTokens(s.Content)
	}
	return total
}

// shrink returns a cached summary of text targeting targetTokens, computing
// and caching one via the Summarizer if absent. Caching is what makes
// repeated Build calls over identical input deterministic despite the
// underlying LLM call being non-deterministic.
func (b *Builder) shrink(ctx context.Context, text string, targetTokens int) (string, error) {
	key := cacheKey(text, targetTokens)

	b.mu.Lock()
	if cached, ok := b.summary[key]; ok {
		b.mu.Unlock()
		return cached, nil
	}
	b.mu.Unlock()

	var out string
	if b.summarizer != nil {
		summarized, err := b.summarizer.Summarize(ctx, text, targetTokens)
		if err != nil {
			return "", fmt.Errorf("contextbuilder: summarize: %w", err)
		}
		out = summarized
	} else {
		out = truncateToTokens(text, targetTokens)
	}

	b.mu.Lock()
	b.summary[key] = out
	b.mu.Unlock()
	return out, nil
}

func truncateToTokens(text string, targetTokens int) string {
	maxChars := targetTokens * 4
	if maxChars <= 0 || len(text) <= maxChars {
		return text
	}
	return text[:maxChars] + "…"
}

func cacheKey(text string, targetTokens int) string {
	h := sha256.Sum256([]byte(fmt.Sprintf("%d:%s", targetTokens, text)))
	return hex.EncodeToString(h[:])
}
