package memory

import (
	"context"
	"testing"

	"github.com/mojoassistant/mojoassistant/internal/config"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	cfg := config.MemoryConfig{
		WorkingMaxTokens: 20,
		ActiveMaxPages:   2,
		DataDirectory:    t.TempDir(),
	}
	svc, err := NewService(cfg, nil)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestAddConversationSealsOnTokenOverflow(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		if err := svc.AddConversation(ctx, "hello there", "this is a fairly long reply to eat the budget", nil); err != nil {
			t.Fatalf("AddConversation: %v", err)
		}
	}

	stats := svc.GetStats()
	if stats.ActivePages == 0 {
		t.Fatalf("expected at least one sealed active page, got stats %+v", stats)
	}
}

func TestAddConversationRejectsEmptyContent(t *testing.T) {
	svc := newTestService(t)
	if err := svc.AddConversation(context.Background(), "hi", "   ", nil); err == nil {
		t.Fatalf("expected a validation error for empty content")
	}
}

func TestEndConversationSealsWorking(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	if err := svc.AddConversation(ctx, "hi", "hello", nil); err != nil {
		t.Fatalf("AddConversation: %v", err)
	}
	page, err := svc.EndConversation(ctx)
	if err != nil {
		t.Fatalf("EndConversation: %v", err)
	}
	if page == nil || len(page.Messages) != 2 {
		t.Fatalf("expected a sealed page with both the user and assistant message, got %+v", page)
	}
	if stats := svc.GetStats(); stats.WorkingMessages != 0 {
		t.Fatalf("expected the working tier to be cleared, got %d messages", stats.WorkingMessages)
	}
}

func TestEndConversationNoOpWhenEmpty(t *testing.T) {
	svc := newTestService(t)
	page, err := svc.EndConversation(context.Background())
	if err != nil {
		t.Fatalf("EndConversation: %v", err)
	}
	if page != nil {
		t.Fatalf("expected no page when the working tier is empty, got %+v", page)
	}
}

func TestPromoteOverflowDemotesOldestActivePages(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := svc.AddConversation(ctx, "hi", "message", nil); err != nil {
			t.Fatalf("AddConversation: %v", err)
		}
		if _, err := svc.EndConversation(ctx); err != nil {
			t.Fatalf("EndConversation: %v", err)
		}
	}
	stats := svc.GetStats()
	if stats.ActivePages != 2 {
		t.Fatalf("expected active pages capped at 2, got %d", stats.ActivePages)
	}
	if stats.ArchivalPages != 1 {
		t.Fatalf("expected one page demoted to archival, got %d", stats.ArchivalPages)
	}
}

func TestAddDocumentsChunksAndStoresWithNilEmbedder(t *testing.T) {
	svc := newTestService(t)
	docs, err := svc.AddDocuments(context.Background(), []NewDocument{
		{Content: "a short note", Source: "test"},
	})
	if err != nil {
		t.Fatalf("AddDocuments: %v", err)
	}
	if len(docs) != 1 || len(docs[0].Chunks) != 1 {
		t.Fatalf("expected one document with one chunk, got %+v", docs)
	}
	if stats := svc.GetStats(); stats.KnowledgeDocs != 1 {
		t.Fatalf("expected one stored document, got %d", stats.KnowledgeDocs)
	}
}

func TestAddDocumentsRejectsEmptyContent(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.AddDocuments(context.Background(), []NewDocument{{Content: ""}})
	if err == nil {
		t.Fatalf("expected a validation error for empty document content")
	}
}

func TestRemoveDocument(t *testing.T) {
	svc := newTestService(t)
	docs, err := svc.AddDocuments(context.Background(), []NewDocument{{Content: "note one"}})
	if err != nil {
		t.Fatalf("AddDocuments: %v", err)
	}
	if err := svc.RemoveDocument(docs[0].ID); err != nil {
		t.Fatalf("RemoveDocument: %v", err)
	}
	if err := svc.RemoveDocument(docs[0].ID); err == nil {
		t.Fatalf("expected NotFound removing an already-removed document")
	}
}

func TestRemoveConversationMessageFromWorking(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	if err := svc.AddConversation(ctx, "one", "one reply", nil); err != nil {
		t.Fatalf("AddConversation: %v", err)
	}
	if err := svc.AddConversation(ctx, "two", "two reply", nil); err != nil {
		t.Fatalf("AddConversation: %v", err)
	}
	if err := svc.RemoveConversationMessage("working", 0); err != nil {
		t.Fatalf("RemoveConversationMessage: %v", err)
	}
	if stats := svc.GetStats(); stats.WorkingMessages != 3 {
		t.Fatalf("expected three remaining working messages, got %d", stats.WorkingMessages)
	}
}

func TestRemoveRecentConversations(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if err := svc.AddConversation(ctx, "hi", "message", nil); err != nil {
			t.Fatalf("AddConversation: %v", err)
		}
		if _, err := svc.EndConversation(ctx); err != nil {
			t.Fatalf("EndConversation: %v", err)
		}
	}
	removed, err := svc.RemoveRecentConversations(1)
	if err != nil {
		t.Fatalf("RemoveRecentConversations: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected to remove exactly 1 page, removed %d", removed)
	}
	if stats := svc.GetStats(); stats.ActivePages != 1 {
		t.Fatalf("expected one remaining active page, got %d", stats.ActivePages)
	}
}

func TestListRecentConversationsOrdersNewestFirst(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if err := svc.AddConversation(ctx, "hi", "message", nil); err != nil {
			t.Fatalf("AddConversation: %v", err)
		}
		if _, err := svc.EndConversation(ctx); err != nil {
			t.Fatalf("EndConversation: %v", err)
		}
	}
	pages := svc.ListRecentConversations(0)
	if len(pages) != 2 {
		t.Fatalf("expected 2 pages, got %d", len(pages))
	}
	if pages[0].CreatedAt.Before(pages[1].CreatedAt) {
		t.Fatalf("expected newest-first ordering")
	}
}

func TestStatePersistsAcrossReload(t *testing.T) {
	dir := t.TempDir()
	cfg := config.MemoryConfig{WorkingMaxTokens: 1000, ActiveMaxPages: 10, DataDirectory: dir}
	svc, err := NewService(cfg, nil)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	if err := svc.AddConversation(context.Background(), "hi", "persisted message", nil); err != nil {
		t.Fatalf("AddConversation: %v", err)
	}

	reloaded, err := NewService(cfg, nil)
	if err != nil {
		t.Fatalf("NewService (reload): %v", err)
	}
	if stats := reloaded.GetStats(); stats.WorkingMessages != 2 {
		t.Fatalf("expected state to survive reload, got %+v", stats)
	}
}
