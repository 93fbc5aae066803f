package llm

import (
	"context"
	"testing"

	"github.com/mojoassistant/mojoassistant/internal/apperr"
	"github.com/mojoassistant/mojoassistant/internal/config"
)

type fakeProvider struct {
	name string
	resp *Response
	err  error
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Generate(ctx context.Context, params Params) (*Response, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

func (f *fakeProvider) ListModels(ctx context.Context) ([]string, error) {
	return []string{"stub-model"}, nil
}

func TestRouterChooseUnknownTag(t *testing.T) {
	r := NewRouter(nil, nil)
	_, _, err := r.Choose("nonexistent_tag")
	if !apperr.Is(err, apperr.KindConfig) {
		t.Fatalf("expected ConfigError for unrouted task tag, got %v", err)
	}
}

func TestRouterCompleteHappyPath(t *testing.T) {
	fake := &fakeProvider{name: "openai", resp: &Response{Content: "hello"}}
	r := NewRouter(map[string]Provider{"openai": fake}, map[string]config.TaskRoute{
		"chat": {Provider: "openai", Model: "gpt-test"},
	})
	resp, err := r.Complete(context.Background(), "chat", []Message{{Role: RoleUser, Content: "hi"}}, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "hello" {
		t.Fatalf("expected passthrough response content, got %q", resp.Content)
	}
}

func TestRouterChooseMissingProvider(t *testing.T) {
	r := NewRouter(nil, map[string]config.TaskRoute{
		"chat": {Provider: "openai", Model: "gpt-test"},
	})
	_, _, err := r.Choose("chat")
	if !apperr.Is(err, apperr.KindLLM) {
		t.Fatalf("expected LLMError for unconfigured provider, got %v", err)
	}
}
