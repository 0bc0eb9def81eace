package llmclient

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// HTTPProvider is a Client backed by a generic chat-completion-style HTTP
// endpoint (OpenAI/Anthropic-shaped): POST a JSON body of messages, read
// back either a JSON object (non-streaming) or a text/event-stream of JSON
// chunks (streaming).
type HTTPProvider struct {
	name       string
	baseURL    string
	apiKey     string
	model      string
	contextWin int
	httpClient *http.Client
}

// HTTPProviderConfig configures an HTTPProvider.
type HTTPProviderConfig struct {
	Name          string
	BaseURL       string
	APIKey        string
	Model         string
	ContextWindow int
	Timeout       time.Duration
}

// NewHTTPProvider constructs an HTTPProvider from cfg, applying
// timeout/context-window defaults when unset.
func NewHTTPProvider(cfg HTTPProviderConfig) *HTTPProvider {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	window := cfg.ContextWindow
	if window <= 0 {
		window = 128000
	}
	return &HTTPProvider{
		name:       cfg.Name,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		contextWin: window,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type chatRequest struct {
	Model       string                 `json:"model"`
	Messages    []chatMessage          `json:"messages"`
	Temperature float64                `json:"temperature,omitempty"`
	MaxTokens   int                    `json:"max_tokens,omitempty"`
	Stop        []string               `json:"stop,omitempty"`
	Stream      bool                   `json:"stream"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	} `json:"error"`
}

func (p *HTTPProvider) buildRequest(ctx context.Context, prompt string, opts Options, stream bool) (*http.Request, error) {
	body := chatRequest{
		Model:       p.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
		Stop:        opts.StopSequences,
		Stream:      stream,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, &CallError{Provider: p.name, Sentinel: ErrInternal, Detail: err.Error()}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, &CallError{Provider: p.name, Sentinel: ErrInternal, Detail: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}
	return req, nil
}

func (p *HTTPProvider) classifyTransportErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &CallError{Provider: p.name, Sentinel: ErrTimeout}
	}
	return &CallError{Provider: p.name, Sentinel: ErrUnavailable, Detail: err.Error()}
}

func (p *HTTPProvider) classifyStatus(status int, body chatResponse) error {
	switch {
	case status == http.StatusTooManyRequests:
		return &CallError{Provider: p.name, Sentinel: ErrRateLimited}
	case status == http.StatusNotFound:
		return &CallError{Provider: p.name, Sentinel: ErrModelMissing}
	case status >= 500:
		return &CallError{Provider: p.name, Sentinel: ErrUnavailable, Detail: fmt.Sprintf("status %d", status)}
	case body.Error != nil:
		return &CallError{Provider: p.name, Sentinel: ErrProtocol, Detail: body.Error.Message}
	default:
		return &CallError{Provider: p.name, Sentinel: ErrProtocol, Detail: fmt.Sprintf("unexpected status %d", status)}
	}
}

// Generate implements Client.
func (p *HTTPProvider) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	req, err := p.buildRequest(ctx, prompt, opts, false)
	if err != nil {
		return "", err
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", p.classifyTransportErr(err)
	}
	defer resp.Body.Close()

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", &CallError{Provider: p.name, Sentinel: ErrProtocol, Detail: err.Error()}
	}
	if resp.StatusCode != http.StatusOK || len(parsed.Choices) == 0 {
		return "", p.classifyStatus(resp.StatusCode, parsed)
	}
	return parsed.Choices[0].Message.Content, nil
}

// GenerateStream implements Client using a text/event-stream response where
// each `data: {...}` line carries an incremental content delta.
func (p *HTTPProvider) GenerateStream(ctx context.Context, prompt string, opts Options) (<-chan Chunk, error) {
	req, err := p.buildRequest(ctx, prompt, opts, true)
	if err != nil {
		return nil, err
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, p.classifyTransportErr(err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		var parsed chatResponse
		_ = json.NewDecoder(resp.Body).Decode(&parsed)
		return nil, p.classifyStatus(resp.StatusCode, parsed)
	}

	out := make(chan Chunk, 8)
	go p.pumpStream(resp.Body, out)
	return out, nil
}

func (p *HTTPProvider) pumpStream(body io.ReadCloser, out chan<- Chunk) {
	defer close(out)
	defer body.Close()

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		data, ok := strings.CutPrefix(line, "data: ")
		if !ok || data == "[DONE]" {
			continue
		}
		var chunk struct {
			Choices []struct {
				Delta chatMessage `json:"delta"`
			} `json:"choices"`
			Usage *struct {
				PromptTokens     int `json:"prompt_tokens"`
				CompletionTokens int `json:"completion_tokens"`
			} `json:"usage"`
		}
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			out <- ErrorChunk{Err: &CallError{Provider: p.name, Sentinel: ErrProtocol, Detail: err.Error()}}
			return
		}
		if chunk.Usage != nil {
			out <- UsageChunk{PromptTokens: chunk.Usage.PromptTokens, ResponseTokens: chunk.Usage.CompletionTokens}
			continue
		}
		for _, choice := range chunk.Choices {
			if choice.Delta.Content != "" {
				out <- TextChunk{Content: choice.Delta.Content}
			}
		}
	}
	if err := scanner.Err(); err != nil {
		out <- ErrorChunk{Err: p.classifyTransportErr(err)}
	}
}

// EstimateTokens approximates token count at four characters per token,
// the same heuristic teacher-adjacent providers use when no tokenizer is
// linked in; it is explicitly documented as best-effort only (§4.3).
func (p *HTTPProvider) EstimateTokens(text string) int {
	return (len(text) + 3) / 4
}

// Available performs a minimal models-list probe bounded to one second.
func (p *HTTPProvider) Available(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/models", nil)
	if err != nil {
		return false
	}
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// ModelInfo implements Client.
func (p *HTTPProvider) ModelInfo() ModelInfo {
	return ModelInfo{Name: p.model, ContextWindow: p.contextWin, Provider: p.name}
}
