// Package memory implements the Memory Tiers (C3) and Memory Service (C4):
// Working/Active/Archival conversation tiers plus a Knowledge Base document
// store, all searchable by multi-model embedding similarity.
package memory

import "time"

// Message roles, per the role enum in §3 (user, assistant, system).
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Message is an immutable turn in a conversation, created by conversation
// tool calls and living in the Working tier until archived.
type Message struct {
	Role      string         `json:"role"` // user | assistant | system
	Content   string         `json:"content"`
	CreatedAt time.Time      `json:"created_at"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// ConversationPage is an ordered sequence of Messages representing one
// archived conversation, created when the Working tier is sealed.
type ConversationPage struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Messages  []Message `json:"messages"`
	// Digest is the derived semantic digest (first ~N chars of content).
	Digest string `json:"digest"`
	// Embeddings maps embedding model name to vector, filled in lazily by
	// GetContext the first time the page is ranked under that model,
	// whether the page is in the Active or the Archival tier.
	Embeddings map[string][]float64 `json:"embeddings,omitempty"`
}

// KnowledgeDocument is a user/agent-supplied document, chunked by the
// Memory Service into retrievable Chunks.
type KnowledgeDocument struct {
	ID        string         `json:"id"`
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Source    string         `json:"source"`
	CreatedAt time.Time      `json:"created_at"`
	Chunks    []KnowledgeChunk `json:"chunks"`
}

// KnowledgeChunk is one retrievable unit of a KnowledgeDocument.
type KnowledgeChunk struct {
	ID         string               `json:"id"`
	DocumentID string               `json:"document_id"`
	Index      int                  `json:"index"`
	Text       string               `json:"text"`
	Embeddings map[string][]float64 `json:"embeddings,omitempty"`
}

// ContextItem is a single ranked result returned by get_context, covering
// Active pages, Archival pages, and Knowledge chunks uniformly.
type ContextItem struct {
	Kind      string         `json:"kind"` // active | archival | knowledge
	ID        string         `json:"id"`
	Content   string         `json:"content"`
	Score     float64        `json:"relevance_score"`
	CreatedAt time.Time      `json:"created_at"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	PerModel  map[string]float64 `json:"per_model_scores,omitempty"`
}

// Stats summarizes the current tier sizes, used by get_stats.
type Stats struct {
	WorkingMessages   int `json:"working_messages"`
	WorkingTokens     int `json:"working_tokens"`
	ActivePages       int `json:"active_pages"`
	ArchivalPages     int `json:"archival_pages"`
	KnowledgeDocs     int `json:"knowledge_documents"`
	KnowledgeChunks   int `json:"knowledge_chunks"`
	EnabledModels     []string `json:"enabled_models"`
	MultiModelEnabled bool     `json:"multi_model_enabled"`
}
