// Package llm implements the LLM Interface (C2): a uniform blocking
// complete() call over local and remote chat-completion providers, selected
// by task tag through a small JSON-driven router.
package llm

import "context"

// MessageRole mirrors the three roles the Memory/Dreaming components ever
// send: user, assistant, system.
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleSystem    MessageRole = "system"
)

// Message is the uniform, text-only message shape every provider converts
// to/from its own wire format. Streaming and multimodal content parts are
// deliberately dropped here: callers see a single blocking call.
type Message struct {
	Role    MessageRole
	Content string
}

// Params configures a single completion call.
type Params struct {
	Model               string
	Messages            []Message
	SystemPrompt        string
	Temperature         float64
	MaxCompletionTokens int
}

// Response is the uniform result of a completion call.
type Response struct {
	Content      string
	FinishReason string
	Usage        Usage
}

type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Provider is the uniform shape every backend (OpenAI, Anthropic, Gemini,
// local) implements.
type Provider interface {
	Name() string
	Generate(ctx context.Context, params Params) (*Response, error)
	ListModels(ctx context.Context) ([]string, error)
}
