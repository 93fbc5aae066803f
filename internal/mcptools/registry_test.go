package mcptools

import (
	"context"
	"testing"

	"github.com/mojoassistant/mojoassistant/internal/apperr"
)

func TestExecuteUnknownToolReturnsNotFound(t *testing.T) {
	r := NewRegistry()
	_, err := r.Execute(context.Background(), "nope", nil)
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected a not-found error, got %v", err)
	}
}

func TestExecuteValidatesRequiredArguments(t *testing.T) {
	r := NewRegistry()
	r.Register(&Tool{
		Name: "echo",
		InputSchema: map[string]any{
			"type":     "object",
			"required": []string{"text"},
		},
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			return args["text"], nil
		},
	})

	_, err := r.Execute(context.Background(), "echo", map[string]any{})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected a validation error for a missing required argument, got %v", err)
	}

	result, err := r.Execute(context.Background(), "echo", map[string]any{"text": "hi"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "hi" {
		t.Fatalf("expected echo to return its input, got %v", result)
	}
}

func TestListSortsByNameAndGroupsAreDeduped(t *testing.T) {
	r := NewRegistry()
	r.Register(&Tool{Name: "b_tool", Group: "g"})
	r.Register(&Tool{Name: "a_tool", Group: "g"})
	r.Register(&Tool{Name: "a_tool", Group: "g"})

	list := r.List()
	if len(list) != 2 || list[0].Name != "a_tool" || list[1].Name != "b_tool" {
		t.Fatalf("expected sorted, deduplicated-by-overwrite tool list, got %+v", list)
	}

	groups := r.Groups()
	if len(groups) != 1 || groups[0] != "g" {
		t.Fatalf("expected exactly one group, got %v", groups)
	}
}
