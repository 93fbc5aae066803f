package llm

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicProvider implements Provider for Anthropic's Messages API,
// trimmed of the teacher's streaming/tool-call plumbing.
type AnthropicProvider struct {
	client anthropic.Client
}

func NewAnthropicProvider(apiKey string) (*AnthropicProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic provider requires an api key")
	}
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &AnthropicProvider{client: client}, nil
}

func (p *AnthropicProvider) Name() string { return "anthropic" }

func (p *AnthropicProvider) Generate(ctx context.Context, params Params) (*Response, error) {
	maxTokens := int64(params.MaxCompletionTokens)
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	req := anthropic.MessageNewParams{
		Model:     anthropic.Model(params.Model),
		Messages:  toAnthropicMessages(params.Messages),
		MaxTokens: maxTokens,
	}
	if params.SystemPrompt != "" {
		req.System = []anthropic.TextBlockParam{{Text: params.SystemPrompt}}
	}
	if params.Temperature > 0 {
		req.Temperature = anthropic.Float(params.Temperature)
	}

	resp, err := p.client.Messages.New(ctx, req)
	if err != nil {
		return nil, classify(p.Name(), params.Model, err)
	}

	var content string
	for _, block := range resp.Content {
		if b, ok := block.AsAny().(anthropic.TextBlock); ok {
			content += b.Text
		}
	}
	return &Response{
		Content:      content,
		FinishReason: string(resp.StopReason),
		Usage: Usage{
			PromptTokens:     int(resp.Usage.InputTokens),
			CompletionTokens: int(resp.Usage.OutputTokens),
			TotalTokens:      int(resp.Usage.InputTokens + resp.Usage.OutputTokens),
		},
	}, nil
}

// ListModels returns a static catalog: Anthropic has no models-listing API.
func (p *AnthropicProvider) ListModels(ctx context.Context) ([]string, error) {
	return []string{
		"claude-opus-4-1",
		"claude-sonnet-4-5",
		"claude-haiku-4-5",
	}, nil
}

func toAnthropicMessages(messages []Message) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(messages))
	for _, m := range messages {
		block := anthropic.NewTextBlock(m.Content)
		switch m.Role {
		case RoleAssistant:
			out = append(out, anthropic.NewAssistantMessage(block))
		default:
			out = append(out, anthropic.NewUserMessage(block))
		}
	}
	return out
}
