package llmclient

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	calls   int
	err     error
	text    string
	modelID string
}

func (f *fakeClient) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

func (f *fakeClient) GenerateStream(ctx context.Context, prompt string, opts Options) (<-chan Chunk, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	ch := make(chan Chunk, 1)
	ch <- TextChunk{Content: f.text}
	close(ch)
	return ch, nil
}

func (f *fakeClient) EstimateTokens(text string) int { return len(text) / 4 }
func (f *fakeClient) Available(ctx context.Context) bool { return f.err == nil }
func (f *fakeClient) ModelInfo() ModelInfo               { return ModelInfo{Name: f.modelID} }

func TestDecorated_CachesGenerateResponses(t *testing.T) {
	fake := &fakeClient{text: "hello"}
	d, err := NewDecorated(fake, 16, DefaultBackoffConfig)
	require.NoError(t, err)

	ctx := context.Background()
	text1, err := d.Generate(ctx, "prompt", Options{})
	require.NoError(t, err)
	text2, err := d.Generate(ctx, "prompt", Options{})
	require.NoError(t, err)

	assert.Equal(t, "hello", text1)
	assert.Equal(t, "hello", text2)
	assert.Equal(t, 1, fake.calls, "second call should be served from cache")
}

func TestDecorated_RetriesTransientErrors(t *testing.T) {
	fake := &fakeClient{err: &CallError{Provider: "fake", Sentinel: ErrUnavailable}}
	bo := DefaultBackoffConfig
	bo.Base = time.Millisecond
	bo.Cap = 5 * time.Millisecond
	bo.MaxRetries = 2
	d, err := NewDecorated(fake, 0, bo)
	require.NoError(t, err)

	_, err = d.Generate(context.Background(), "prompt", Options{})
	assert.Error(t, err)
	assert.Equal(t, 3, fake.calls, "initial attempt plus two retries")
}

func TestDecorated_DoesNotRetryTerminalErrors(t *testing.T) {
	fake := &fakeClient{err: &CallError{Provider: "fake", Sentinel: ErrModelMissing}}
	d, err := NewDecorated(fake, 0, DefaultBackoffConfig)
	require.NoError(t, err)

	_, err = d.Generate(context.Background(), "prompt", Options{})
	assert.Error(t, err)
	assert.Equal(t, 1, fake.calls)
}

func TestDecorated_PassesThroughMetadata(t *testing.T) {
	fake := &fakeClient{modelID: "test-model"}
	d, err := NewDecorated(fake, 0, DefaultBackoffConfig)
	require.NoError(t, err)

	assert.Equal(t, "test-model", d.ModelInfo().Name)
	assert.True(t, d.Available(context.Background()))
	assert.Equal(t, 1, d.EstimateTokens("abcd"))
}
