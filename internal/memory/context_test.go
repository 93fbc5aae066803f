package memory

import (
	"context"
	"testing"
)

func TestGetContextEmptyQueryReturnsNoItems(t *testing.T) {
	svc := newTestService(t)
	result, err := svc.GetContext(context.Background(), "  ", GetContextOptions{})
	if err != nil {
		t.Fatalf("GetContext: %v", err)
	}
	if len(result.Items) != 0 {
		t.Fatalf("expected no items for an empty query, got %+v", result.Items)
	}
}

func TestGetContextWithNilEmbedderReturnsZeroScoredCandidates(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	if err := svc.AddConversation(ctx, "please remember this", "some content to remember", nil); err != nil {
		t.Fatalf("AddConversation: %v", err)
	}
	if _, err := svc.EndConversation(ctx); err != nil {
		t.Fatalf("EndConversation: %v", err)
	}
	if _, err := svc.AddDocuments(ctx, []NewDocument{{Content: "a knowledge note"}}); err != nil {
		t.Fatalf("AddDocuments: %v", err)
	}

	result, err := svc.GetContext(ctx, "remember", GetContextOptions{})
	if err != nil {
		t.Fatalf("GetContext: %v", err)
	}
	if len(result.Items) != 2 {
		t.Fatalf("expected both the archived page and the knowledge chunk as candidates, got %+v", result.Items)
	}
	for _, item := range result.Items {
		if item.Score != 0 {
			t.Fatalf("expected zero scores with no embedding backend configured, got %+v", item)
		}
	}
}

func TestGetContextFiltersByKind(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	if _, err := svc.AddDocuments(ctx, []NewDocument{{Content: "a knowledge note"}}); err != nil {
		t.Fatalf("AddDocuments: %v", err)
	}
	if err := svc.AddConversation(ctx, "hi", "conversation content", nil); err != nil {
		t.Fatalf("AddConversation: %v", err)
	}
	if _, err := svc.EndConversation(ctx); err != nil {
		t.Fatalf("EndConversation: %v", err)
	}

	result, err := svc.GetContext(ctx, "note", GetContextOptions{IncludeKinds: []string{"knowledge"}})
	if err != nil {
		t.Fatalf("GetContext: %v", err)
	}
	if len(result.Items) != 1 || result.Items[0].Kind != "knowledge" {
		t.Fatalf("expected only knowledge-kind items, got %+v", result.Items)
	}
}
