package llm

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// OpenAIProvider implements Provider for OpenAI's chat-completions API,
// trimmed from the teacher's streaming/Responses-API provider down to a
// single blocking Chat.Completions.New call (spec §4.2: "callers see a
// single blocking call").
type OpenAIProvider struct {
	client openai.Client
}

func NewOpenAIProvider(apiKey, baseURL string) (*OpenAIProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai provider requires an api key")
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAIProvider{client: openai.NewClient(opts...)}, nil
}

func (p *OpenAIProvider) Name() string { return "openai" }

func (p *OpenAIProvider) Generate(ctx context.Context, params Params) (*Response, error) {
	messages := toChatMessages(params)
	req := openai.ChatCompletionNewParams{
		Model:    params.Model,
		Messages: messages,
	}
	if params.MaxCompletionTokens > 0 {
		req.MaxCompletionTokens = openai.Int(int64(params.MaxCompletionTokens))
	}
	if params.Temperature > 0 {
		req.Temperature = openai.Float(params.Temperature)
	}

	resp, err := p.client.Chat.Completions.New(ctx, req)
	if err != nil {
		return nil, classify(p.Name(), params.Model, err)
	}

	var content, finishReason string
	if len(resp.Choices) > 0 {
		content = resp.Choices[0].Message.Content
		finishReason = resp.Choices[0].FinishReason
	}
	return &Response{
		Content:      content,
		FinishReason: finishReason,
		Usage: Usage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:      int(resp.Usage.TotalTokens),
		},
	}, nil
}

func (p *OpenAIProvider) ListModels(ctx context.Context) ([]string, error) {
	page, err := p.client.Models.List(ctx)
	if err != nil {
		return nil, classify(p.Name(), "", err)
	}
	names := make([]string, 0, len(page.Data))
	for _, m := range page.Data {
		names = append(names, m.ID)
	}
	return names, nil
}

func toChatMessages(params Params) []openai.ChatCompletionMessageParamUnion {
	var out []openai.ChatCompletionMessageParamUnion
	if params.SystemPrompt != "" {
		out = append(out, openai.SystemMessage(params.SystemPrompt))
	}
	for _, m := range params.Messages {
		switch m.Role {
		case RoleUser:
			out = append(out, openai.UserMessage(m.Content))
		case RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Content))
		case RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		}
	}
	return out
}
