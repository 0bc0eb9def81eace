package llmclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc) *HTTPProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewHTTPProvider(HTTPProviderConfig{
		Name:    "test",
		BaseURL: srv.URL,
		Model:   "test-model",
		APIKey:  "secret",
	})
}

func TestHTTPProvider_Generate(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(chatResponse{
			Choices: []struct {
				Message chatMessage `json:"message"`
			}{{Message: chatMessage{Role: "assistant", Content: "hi there"}}},
		})
	})

	text, err := p.Generate(context.Background(), "hello", Options{})
	require.NoError(t, err)
	assert.Equal(t, "hi there", text)
}

func TestHTTPProvider_GenerateClassifiesRateLimit(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(chatResponse{})
	})

	_, err := p.Generate(context.Background(), "hello", Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRateLimited)
}

func TestHTTPProvider_GenerateClassifiesModelMissing(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(chatResponse{})
	})

	_, err := p.Generate(context.Background(), "hello", Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrModelMissing)
}

func TestHTTPProvider_GenerateStream(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher, _ := w.(http.Flusher)
		_, _ = w.Write([]byte(`data: {"choices":[{"delta":{"content":"hel"}}]}` + "\n"))
		if flusher != nil {
			flusher.Flush()
		}
		_, _ = w.Write([]byte(`data: {"choices":[{"delta":{"content":"lo"}}]}` + "\n"))
		_, _ = w.Write([]byte("data: [DONE]\n"))
	})

	ch, err := p.GenerateStream(context.Background(), "hello", Options{})
	require.NoError(t, err)

	var got string
	for chunk := range ch {
		if tc, ok := chunk.(TextChunk); ok {
			got += tc.Content
		}
	}
	assert.Equal(t, "hello", got)
}

func TestHTTPProvider_Available(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	assert.True(t, p.Available(context.Background()))
}

func TestHTTPProvider_EstimateTokens(t *testing.T) {
	p := NewHTTPProvider(HTTPProviderConfig{Name: "test", Model: "m"})
	assert.Equal(t, 3, p.EstimateTokens("abcdefghij"))
}
