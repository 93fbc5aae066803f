package llm

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// GeminiProvider implements Provider for Google's genai SDK, trimmed of the
// teacher's streaming/tool-call plumbing.
type GeminiProvider struct {
	client *genai.Client
}

func NewGeminiProvider(ctx context.Context, apiKey string) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini provider requires an api key")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build gemini client: %w", err)
	}
	return &GeminiProvider{client: client}, nil
}

func (p *GeminiProvider) Name() string { return "gemini" }

func (p *GeminiProvider) Generate(ctx context.Context, params Params) (*Response, error) {
	contents := toGeminiContents(params.Messages)

	config := &genai.GenerateContentConfig{}
	if params.SystemPrompt != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: params.SystemPrompt}},
		}
	}
	if params.Temperature > 0 {
		temp := float32(params.Temperature)
		config.Temperature = &temp
	}
	if params.MaxCompletionTokens > 0 {
		config.MaxOutputTokens = int32(params.MaxCompletionTokens)
	}

	resp, err := p.client.Models.GenerateContent(ctx, params.Model, contents, config)
	if err != nil {
		return nil, classify(p.Name(), params.Model, err)
	}

	var content strings.Builder
	var finishReason string
	for _, candidate := range resp.Candidates {
		if candidate.Content != nil {
			for _, part := range candidate.Content.Parts {
				if part.Text != "" {
					content.WriteString(part.Text)
				}
			}
		}
		if candidate.FinishReason != "" {
			finishReason = string(candidate.FinishReason)
		}
	}

	out := &Response{Content: content.String(), FinishReason: finishReason}
	if resp.UsageMetadata != nil {
		out.Usage = Usage{
			PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount),
			TotalTokens:      int(resp.UsageMetadata.TotalTokenCount),
		}
	}
	return out, nil
}

func (p *GeminiProvider) ListModels(ctx context.Context) ([]string, error) {
	page, err := p.client.Models.List(ctx, nil)
	if err != nil {
		return nil, classify(p.Name(), "", err)
	}
	names := make([]string, 0, len(page.Items))
	for _, m := range page.Items {
		if m == nil {
			continue
		}
		names = append(names, strings.TrimPrefix(m.Name, "models/"))
	}
	return names, nil
}

func toGeminiContents(messages []Message) []*genai.Content {
	out := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		role := "user"
		if m.Role == RoleAssistant {
			role = "model"
		}
		out = append(out, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: m.Content}},
		})
	}
	return out
}
