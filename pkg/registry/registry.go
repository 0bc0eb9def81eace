// Package registry holds the Agent and LLM plugin registries: name-to-
// constructor maps populated by static registration at process start and
// consulted by name when the orchestrator builds a run.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/obra/obra/pkg/agentsession"
	"github.com/obra/obra/pkg/llmclient"
)

// ErrProviderNotFound is returned when a registry has no constructor under
// the requested name.
var ErrProviderNotFound = errors.New("provider not registered")

// ProviderNotFoundError wraps ErrProviderNotFound with the offending name.
type ProviderNotFoundError struct {
	Kind string // "agent" or "llm"
	Name string
}

func (e *ProviderNotFoundError) Error() string {
	return fmt.Sprintf("%s provider %q not registered", e.Kind, e.Name)
}

func (e *ProviderNotFoundError) Unwrap() error { return ErrProviderNotFound }

// LLMConstructor builds an llmclient.Client from free-form configuration.
type LLMConstructor func(ctx context.Context, cfg map[string]any) (llmclient.Client, error)

// LLMRegistry is a thread-safe name-to-constructor map for LLM providers.
type LLMRegistry struct {
	mu           sync.RWMutex
	constructors map[string]LLMConstructor
}

// NewLLMRegistry creates an empty LLM provider registry.
func NewLLMRegistry() *LLMRegistry {
	return &LLMRegistry{constructors: make(map[string]LLMConstructor)}
}

// Register adds or replaces the constructor for a named provider.
func (r *LLMRegistry) Register(name string, ctor LLMConstructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.constructors[name] = ctor
}

// Build instantiates the named provider with the given configuration.
func (r *LLMRegistry) Build(ctx context.Context, name string, cfg map[string]any) (llmclient.Client, error) {
	r.mu.RLock()
	ctor, ok := r.constructors[name]
	r.mu.RUnlock()
	if !ok {
		return nil, &ProviderNotFoundError{Kind: "llm", Name: name}
	}
	return ctor(ctx, cfg)
}

// Names returns the registered provider names (thread-safe, order undefined).
func (r *LLMRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.constructors))
	for name := range r.constructors {
		names = append(names, name)
	}
	return names
}

// Has reports whether a provider is registered under name.
func (r *LLMRegistry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.constructors[name]
	return ok
}

// AgentConstructor builds an agentsession.Session from free-form configuration.
type AgentConstructor func(ctx context.Context, cfg map[string]any) (agentsession.Session, error)

// AgentRegistry is a thread-safe name-to-constructor map for agent session
// providers (e.g. "claude-code", "aider").
type AgentRegistry struct {
	mu           sync.RWMutex
	constructors map[string]AgentConstructor
}

// NewAgentRegistry creates an empty agent provider registry.
func NewAgentRegistry() *AgentRegistry {
	return &AgentRegistry{constructors: make(map[string]AgentConstructor)}
}

// Register adds or replaces the constructor for a named provider.
func (r *AgentRegistry) Register(name string, ctor AgentConstructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.constructors[name] = ctor
}

// Build instantiates the named provider with the given configuration.
func (r *AgentRegistry) Build(ctx context.Context, name string, cfg map[string]any) (agentsession.Session, error) {
	r.mu.RLock()
	ctor, ok := r.constructors[name]
	r.mu.RUnlock()
	if !ok {
		return nil, &ProviderNotFoundError{Kind: "agent", Name: name}
	}
	return ctor(ctx, cfg)
}

// Names returns the registered provider names (thread-safe, order undefined).
func (r *AgentRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.constructors))
	for name := range r.constructors {
		names = append(names, name)
	}
	return names
}

// Has reports whether a provider is registered under name.
func (r *AgentRegistry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.constructors[name]
	return ok
}
