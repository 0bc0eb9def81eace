package quality

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/obra/obra/pkg/llmclient"
	"github.com/obra/obra/pkg/model"
)

type fakeClient struct {
	response string
	err      error
}

func (f *fakeClient) Generate(ctx context.Context, prompt string, opts llmclient.Options) (string, error) {
	return f.response, f.err
}

func (f *fakeClient) GenerateStream(ctx context.Context, prompt string, opts llmclient.Options) (<-chan llmclient.Chunk, error) {
	panic("not used")
}

func (f *fakeClient) EstimateTokens(text string) int { return len(text) / 4 }

func (f *fakeClient) Available(ctx context.Context) bool { return f.err == nil }

func (f *fakeClient) ModelInfo() llmclient.ModelInfo {
	return llmclient.ModelInfo{Name: "fake", ContextWindow: 8000, Provider: "test"}
}

func TestEvaluate_ParsesScoreAndIssues(t *testing.T) {
	client := &fakeClient{response: "- missing error handling\n- no tests added\n85"}
	c := New(client)

	score := c.Evaluate(context.Background(), Input{
		WorkItem: model.WorkItem{Title: "add retry logic"},
		Response: "func retry() {}",
		Criteria: "must handle transient errors",
	})

	require.InDelta(t, 0.85, score.Value, 0.001)
	require.Contains(t, score.Issues, "missing error handling")
	require.Contains(t, score.Issues, "no tests added")
}

func TestEvaluate_FloorsScoreOnLLMFailure(t *testing.T) {
	client := &fakeClient{err: context.DeadlineExceeded}
	c := New(client)

	score := c.Evaluate(context.Background(), Input{WorkItem: model.WorkItem{Title: "x"}})

	require.Equal(t, 0.0, score.Value)
	require.Len(t, score.Issues, 1)
	require.Contains(t, score.Issues[0], "quality evaluation unavailable")
}

func TestEvaluate_FloorsScoreOnUnparseableResponse(t *testing.T) {
	client := &fakeClient{response: "I don't know how to score this."}
	c := New(client)

	score := c.Evaluate(context.Background(), Input{WorkItem: model.WorkItem{Title: "x"}})

	require.Equal(t, 0.0, score.Value)
	require.Contains(t, score.Issues[0], "quality evaluation unparseable")
}

func TestEvaluate_FlagsUnbalancedCodeBlock(t *testing.T) {
	client := &fakeClient{response: "looks fine\n90"}
	c := New(client)

	score := c.Evaluate(context.Background(), Input{
		WorkItem: model.WorkItem{Title: "x"},
		Response: "```go\nfunc f() {\n```",
	})

	require.Contains(t, score.Issues, "unbalanced braces/parens/brackets in code block")
}

func TestEvaluate_FlagsMissingExpectedFile(t *testing.T) {
	client := &fakeClient{response: "looks fine\n90"}
	c := New(client)

	score := c.Evaluate(context.Background(), Input{
		WorkItem:      model.WorkItem{Title: "x"},
		ExpectedFiles: []string{"pkg/foo/foo.go"},
		ObservedFiles: []string{"pkg/bar/bar.go"},
	})

	require.Contains(t, score.Issues, "expected file not touched: pkg/foo/foo.go")
}
