// Package llmclient defines the Supervisor LLM plugin contract (§4.3): a
// small interface that concrete providers implement, plus a caching,
// retrying decorator any provider can be wrapped in.
package llmclient

import "context"

// Role identifies the speaker of a ConversationMessage.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ConversationMessage is one turn in a prompt.
type ConversationMessage struct {
	Role    Role
	Content string
}

// Options carries per-call generation parameters.
type Options struct {
	Temperature   float64
	MaxTokens     int
	StopSequences []string
	// CacheKeyHint, when non-empty, is mixed into the response cache key
	// instead of a hash of the full Options. Options containing values that
	// are not stably hashable (timestamps, pointers) should rely on this.
	CacheKeyHint string
}

// ModelInfo describes the backing model of a Client.
type ModelInfo struct {
	Name          string
	ContextWindow int
	Provider      string
}

// Chunk is one piece of a streamed response.
type Chunk interface {
	chunkType() chunkType
}

type chunkType string

const (
	chunkText  chunkType = "text"
	chunkUsage chunkType = "usage"
	chunkError chunkType = "error"
)

// TextChunk carries a fragment of generated text.
type TextChunk struct{ Content string }

// UsageChunk reports token consumption once a stream completes.
type UsageChunk struct{ PromptTokens, ResponseTokens int }

// ErrorChunk signals a mid-stream provider error; the channel is closed
// immediately after.
type ErrorChunk struct{ Err error }

func (c TextChunk) chunkType() chunkType  { return chunkText }
func (c UsageChunk) chunkType() chunkType { return chunkUsage }
func (c ErrorChunk) chunkType() chunkType { return chunkError }

// Client is the plugin contract every LLM provider implements.
type Client interface {
	// Generate blocks until a complete response is available or ctx is done.
	Generate(ctx context.Context, prompt string, opts Options) (string, error)

	// GenerateStream returns a channel of Chunk values. The channel is
	// closed when the stream ends; a terminal ErrorChunk may precede closure.
	GenerateStream(ctx context.Context, prompt string, opts Options) (<-chan Chunk, error)

	// EstimateTokens is a best-effort count used only for budgeting.
	EstimateTokens(text string) int

	// Available is a fast (<1s) health probe.
	Available(ctx context.Context) bool

	// ModelInfo describes the backing model.
	ModelInfo() ModelInfo
}
