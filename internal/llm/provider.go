package llm

import (
	"context"
	"time"
)

// Message roles shared by every provider
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Provider defines the interface for LLM providers
type Provider interface {
	// Name returns the provider name
	Name() string

	// Complete runs a chat-style completion
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// Message is one turn of a conversation. Few-shot examples are sent as
// alternating user and assistant messages.
type Message struct {
	Role    string
	Content string
}

// CompletionRequest contains the input for a completion
type CompletionRequest struct {
	// System is the system instruction
	System string

	// Messages is the conversation, oldest first; the last one is answered
	Messages []Message

	// Model overrides the configured model
	Model string

	// MaxTokens limits the response length
	MaxTokens int

	// Temperature controls sampling; zero keeps answers deterministic
	Temperature float64
}

// CompletionResponse contains the model output
type CompletionResponse struct {
	// Text is the trimmed completion text
	Text string

	// Model is the model that generated the response
	Model string

	// TokensUsed tracks token consumption
	TokensUsed int
}

// Embedder turns text into a semantic vector
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "openai", "anthropic", "ollama", ""
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for OpenAI/Anthropic
	APIKey string

	// BaseURL for custom endpoints (e.g., Ollama)
	BaseURL string

	// Timeout for API requests
	Timeout int // seconds

	// MaxTokens for response generation
	MaxTokens int

	// EmbeddingProvider is "openai" or "ollama"
	EmbeddingProvider string

	// EmbeddingModel is the provider-specific embedding model
	EmbeddingModel string

	// Proxy settings
	HTTPProxy  string
	HTTPSProxy string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Provider:          "", // Disabled by default
		Timeout:           30,
		MaxTokens:         300,
		EmbeddingProvider: "openai",
		EmbeddingModel:    "text-embedding-3-small",
	}
}

func (c Config) timeout(fallback time.Duration) time.Duration {
	if c.Timeout <= 0 {
		return fallback
	}
	return time.Duration(c.Timeout) * time.Second
}

func (c Config) model(requested, fallback string) string {
	if requested != "" {
		return requested
	}
	if c.Model != "" {
		return c.Model
	}
	return fallback
}

func (c Config) maxTokens(requested int) int {
	if requested > 0 {
		return requested
	}
	if c.MaxTokens > 0 {
		return c.MaxTokens
	}
	return 300
}
