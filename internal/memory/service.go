package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/xid"

	"github.com/mojoassistant/mojoassistant/internal/apperr"
	"github.com/mojoassistant/mojoassistant/internal/config"
	"github.com/mojoassistant/mojoassistant/internal/embedding"
)

const digestRuneBudget = 240

// Service is the Memory Service (C4) facade: a single lock guarding the four
// tiers (Working, Active, Archival, Knowledge Base) and the embedding
// backends that rank them, matching the pack's one-big-lock-per-store
// concurrency model rather than per-tier locks.
type Service struct {
	mu  sync.Mutex
	cfg config.MemoryConfig

	embed *embedding.Service

	dataDir string

	working []Message
	active  []ConversationPage
	// archival pages are a subset of what was once active; like active
	// pages, their embeddings are filled in lazily by GetContext.
	archival []ConversationPage
	docs     []KnowledgeDocument
}

// NewService builds a Service against the given embedding backends and
// loads any persisted state from cfg.DataDirectory.
func NewService(cfg config.MemoryConfig, embed *embedding.Service) (*Service, error) {
	s := &Service{
		cfg:     cfg,
		embed:   embed,
		dataDir: cfg.DataDirectory,
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// AddConversation appends a user message followed by an assistant message to
// the Working tier, sealing the whole tier into an Active page if it now
// exceeds its token budget.
func (s *Service) AddConversation(ctx context.Context, user, assistant string, metadata map[string]any) error {
	if strings.TrimSpace(user) == "" || strings.TrimSpace(assistant) == "" {
		return apperr.Validation("both user and assistant content must not be empty", nil)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.working = append(s.working,
		Message{Role: RoleUser, Content: user, CreatedAt: now, Metadata: metadata},
		Message{Role: RoleAssistant, Content: assistant, CreatedAt: now, Metadata: metadata},
	)

	if s.workingTokensLocked() > s.cfg.WorkingMaxTokens {
		s.sealWorkingLocked()
	}
	return s.save()
}

// EndConversation forces the current Working tier (if non-empty) into a new
// Active page, regardless of the token budget, and returns the sealed page.
func (s *Service) EndConversation(ctx context.Context) (*ConversationPage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.working) == 0 {
		return nil, nil
	}
	page := s.sealWorkingLocked()
	if err := s.save(); err != nil {
		return nil, err
	}
	return page, nil
}

// sealWorkingLocked moves every Working message into a new Active page and
// clears the Working tier. Caller must hold s.mu.
func (s *Service) sealWorkingLocked() *ConversationPage {
	page := ConversationPage{
		ID:        xid.New().String(),
		CreatedAt: time.Now(),
		Messages:  s.working,
		Digest:    digest(s.working),
	}
	s.working = nil
	s.active = append(s.active, page)
	s.promoteOverflowLocked()
	return &page
}

// promoteOverflowLocked demotes the oldest Active pages into Archival once
// the Active tier exceeds its configured page budget. Archival promotion
// does not compute embeddings eagerly; get_context computes and caches them
// lazily per candidate the first time it is needed, keeping AddConversation
// free of network calls.
func (s *Service) promoteOverflowLocked() {
	max := s.cfg.ActiveMaxPages
	if max <= 0 || len(s.active) <= max {
		return
	}
	overflow := len(s.active) - max
	s.archival = append(s.archival, s.active[:overflow]...)
	s.active = s.active[overflow:]
}

func (s *Service) workingTokensLocked() int {
	total := 0
	for _, m := range s.working {
		total += estimateTokens(m.Content)
	}
	return total
}

func digest(messages []Message) string {
	var b strings.Builder
	for _, m := range messages {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(m.Content)
		if b.Len() >= digestRuneBudget {
			break
		}
	}
	runes := []rune(b.String())
	if len(runes) > digestRuneBudget {
		runes = runes[:digestRuneBudget]
	}
	return string(runes)
}

// AddDocuments chunks and embeds a batch of Knowledge Base documents,
// returning the stored documents (with their chunks populated).
func (s *Service) AddDocuments(ctx context.Context, docs []NewDocument) ([]KnowledgeDocument, error) {
	stored := make([]KnowledgeDocument, 0, len(docs))
	for _, d := range docs {
		if strings.TrimSpace(d.Content) == "" {
			return nil, apperr.Validation("document content must not be empty", nil)
		}
		doc := KnowledgeDocument{
			ID:        xid.New().String(),
			Content:   d.Content,
			Metadata:  d.Metadata,
			Source:    d.Source,
			CreatedAt: time.Now(),
		}
		texts := chunkText(d.Content)
		chunks := make([]KnowledgeChunk, len(texts))
		for i, text := range texts {
			chunks[i] = KnowledgeChunk{
				ID:         xid.New().String(),
				DocumentID: doc.ID,
				Index:      i,
				Text:       text,
			}
		}
		if err := s.embedChunks(ctx, chunks); err != nil {
			return nil, err
		}
		doc.Chunks = chunks
		stored = append(stored, doc)
	}

	s.mu.Lock()
	s.docs = append(s.docs, stored...)
	err := s.save()
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return stored, nil
}

// NewDocument is the input shape for AddDocuments.
type NewDocument struct {
	Content  string
	Source   string
	Metadata map[string]any
}

func (s *Service) embedChunks(ctx context.Context, chunks []KnowledgeChunk) error {
	if s.embed == nil || len(chunks) == 0 {
		return nil
	}
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	for _, model := range s.embed.EnabledModels() {
		vectors, err := s.embed.Embed(ctx, texts, model)
		if err != nil {
			return err
		}
		for i, vec := range vectors {
			if chunks[i].Embeddings == nil {
				chunks[i].Embeddings = make(map[string][]float64)
			}
			chunks[i].Embeddings[model] = vec
		}
		if !s.cfg.MultiModelEnabled {
			break
		}
	}
	return nil
}

// RemoveDocument deletes a Knowledge Base document by id.
func (s *Service) RemoveDocument(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, d := range s.docs {
		if d.ID == id {
			s.docs = append(s.docs[:i], s.docs[i+1:]...)
			return s.save()
		}
	}
	return apperr.NotFound("knowledge document", id)
}

// RemoveConversationMessage removes one message from the Working tier by
// index ("working") or deletes a whole Active/Archival page by id.
func (s *Service) RemoveConversationMessage(pageID string, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if pageID == "" || pageID == "working" {
		if index < 0 || index >= len(s.working) {
			return apperr.NotFound("working message", "")
		}
		s.working = append(s.working[:index], s.working[index+1:]...)
		return s.save()
	}
	if removePage(&s.active, pageID) || removePage(&s.archival, pageID) {
		return s.save()
	}
	return apperr.NotFound("conversation page", pageID)
}

// ToggleMultiModel flips multi-model embedding on or off for subsequent
// context lookups and promotions; it does not retroactively embed or
// discard any model's existing vectors.
func (s *Service) ToggleMultiModel(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg.MultiModelEnabled = enabled
}

func removePage(pages *[]ConversationPage, id string) bool {
	for i, p := range *pages {
		if p.ID == id {
			*pages = append((*pages)[:i], (*pages)[i+1:]...)
			return true
		}
	}
	return false
}

// RemoveRecentConversations deletes the n most recently created
// Active/Archival pages (Active first, then Archival) without touching the
// live Working tier.
func (s *Service) RemoveRecentConversations(n int) (int, error) {
	if n <= 0 {
		return 0, apperr.Validation("n must be positive", nil)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	removed += popRecent(&s.active, n-removed)
	removed += popRecent(&s.archival, n-removed)
	if removed > 0 {
		if err := s.save(); err != nil {
			return removed, err
		}
	}
	return removed, nil
}

func popRecent(pages *[]ConversationPage, n int) int {
	if n <= 0 || len(*pages) == 0 {
		return 0
	}
	sorted := append([]ConversationPage(nil), (*pages)...)
	sortPagesByRecency(sorted)
	toRemove := make(map[string]bool, n)
	for i := 0; i < n && i < len(sorted); i++ {
		toRemove[sorted[i].ID] = true
	}
	kept := (*pages)[:0]
	for _, p := range *pages {
		if !toRemove[p.ID] {
			kept = append(kept, p)
		}
	}
	removed := len(*pages) - len(kept)
	*pages = kept
	return removed
}

func sortPagesByRecency(pages []ConversationPage) {
	for i := 1; i < len(pages); i++ {
		for j := i; j > 0 && pages[j].CreatedAt.After(pages[j-1].CreatedAt); j-- {
			pages[j], pages[j-1] = pages[j-1], pages[j]
		}
	}
}

// GetStats reports the current tier sizes.
func (s *Service) GetStats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	chunkCount := 0
	for _, d := range s.docs {
		chunkCount += len(d.Chunks)
	}
	var models []string
	if s.embed != nil {
		models = s.embed.EnabledModels()
	}
	return Stats{
		WorkingMessages:   len(s.working),
		WorkingTokens:     s.workingTokensLocked(),
		ActivePages:       len(s.active),
		ArchivalPages:     len(s.archival),
		KnowledgeDocs:     len(s.docs),
		KnowledgeChunks:   chunkCount,
		EnabledModels:     models,
		MultiModelEnabled: s.cfg.MultiModelEnabled,
	}
}

// ListRecentConversations returns up to n of the most recently created
// Active+Archival pages, newest first.
func (s *Service) ListRecentConversations(n int) []ConversationPage {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := make([]ConversationPage, 0, len(s.active)+len(s.archival))
	all = append(all, s.active...)
	all = append(all, s.archival...)
	sortPagesByRecency(all)
	if n > 0 && len(all) > n {
		all = all[:n]
	}
	return all
}

// RecentTranscript renders the last lastN Working-tier messages as a plain
// "role: content" transcript for the scheduler's dreaming executor. The
// Working tier is a single process-wide queue rather than partitioned per
// conversation, so conversationID is accepted only to satisfy the
// scheduler's ConversationSource interface.
func (s *Service) RecentTranscript(ctx context.Context, conversationID string, lastN int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := 0
	if lastN > 0 && len(s.working) > lastN {
		start = len(s.working) - lastN
	}
	var b strings.Builder
	for _, m := range s.working[start:] {
		b.WriteString(m.Role)
		b.WriteString(": ")
		b.WriteString(m.Content)
		b.WriteString("\n")
	}
	return b.String(), nil
}

// ListRecentDocuments returns up to n of the most recently added Knowledge
// Base documents, newest first.
func (s *Service) ListRecentDocuments(n int) []KnowledgeDocument {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := append([]KnowledgeDocument(nil), s.docs...)
	for i := 1; i < len(all); i++ {
		for j := i; j > 0 && all[j].CreatedAt.After(all[j-1].CreatedAt); j-- {
			all[j], all[j-1] = all[j-1], all[j]
		}
	}
	if n > 0 && len(all) > n {
		all = all[:n]
	}
	return all
}
