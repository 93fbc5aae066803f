package mcptools

import (
	"context"

	"github.com/mojoassistant/mojoassistant/internal/memory"
)

const groupMemory = "memory"

// RegisterMemoryTools exposes memory.Service's conversation/document CRUD
// and get_context search as named tools.
func RegisterMemoryTools(r *Registry, svc *memory.Service) {
	r.Register(&Tool{
		Name:        "memory_add_conversation",
		Description: "Append a user message and its assistant reply to the working conversation tier",
		Group:       groupMemory,
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"user":      map[string]any{"type": "string"},
				"assistant": map[string]any{"type": "string"},
				"metadata":  map[string]any{"type": "object"},
			},
			"required": []string{"user", "assistant"},
		},
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			user, err := stringArg(args, "user")
			if err != nil {
				return nil, err
			}
			assistant, err := stringArg(args, "assistant")
			if err != nil {
				return nil, err
			}
			if err := svc.AddConversation(ctx, user, assistant, optionalMap(args, "metadata")); err != nil {
				return nil, err
			}
			return map[string]any{"status": "ok"}, nil
		},
	})

	r.Register(&Tool{
		Name:        "memory_end_conversation",
		Description: "Seal the current working-tier conversation into an active page",
		Group:       groupMemory,
		InputSchema: map[string]any{"type": "object", "properties": map[string]any{}},
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			page, err := svc.EndConversation(ctx)
			if err != nil {
				return nil, err
			}
			return page, nil
		},
	})

	r.Register(&Tool{
		Name:        "memory_add_documents",
		Description: "Chunk and index one or more knowledge documents",
		Group:       groupMemory,
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"documents": map[string]any{
					"type": "array",
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"content":  map[string]any{"type": "string"},
							"source":   map[string]any{"type": "string"},
							"metadata": map[string]any{"type": "object"},
						},
						"required": []string{"content"},
					},
				},
			},
			"required": []string{"documents"},
		},
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			raw, _ := args["documents"].([]any)
			docs := make([]memory.NewDocument, 0, len(raw))
			for _, item := range raw {
				m, ok := item.(map[string]any)
				if !ok {
					continue
				}
				docs = append(docs, memory.NewDocument{
					Content:  optionalString(m, "content", ""),
					Source:   optionalString(m, "source", ""),
					Metadata: optionalMap(m, "metadata"),
				})
			}
			stored, err := svc.AddDocuments(ctx, docs)
			if err != nil {
				return nil, err
			}
			return stored, nil
		},
	})

	r.Register(&Tool{
		Name:        "memory_remove_document",
		Description: "Remove a knowledge document by id",
		Group:       groupMemory,
		InputSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{"id": map[string]any{"type": "string"}},
			"required":   []string{"id"},
		},
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			id, err := stringArg(args, "id")
			if err != nil {
				return nil, err
			}
			if err := svc.RemoveDocument(id); err != nil {
				return nil, err
			}
			return map[string]any{"status": "ok"}, nil
		},
	})

	r.Register(&Tool{
		Name:        "memory_remove_recent_conversations",
		Description: "Remove the N most recent conversation pages",
		Group:       groupMemory,
		InputSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{"n": map[string]any{"type": "integer"}},
			"required":   []string{"n"},
		},
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			n := optionalInt(args, "n", 0)
			removed, err := svc.RemoveRecentConversations(n)
			if err != nil {
				return nil, err
			}
			return map[string]any{"removed": removed}, nil
		},
	})

	r.Register(&Tool{
		Name:        "memory_get_context",
		Description: "Search memory tiers and return the top-ranked context items for a query",
		Group:       groupMemory,
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query":         map[string]any{"type": "string"},
				"limit":         map[string]any{"type": "integer"},
				"score_floor":   map[string]any{"type": "number"},
				"include_kinds": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			},
			"required": []string{"query"},
		},
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			query, err := stringArg(args, "query")
			if err != nil {
				return nil, err
			}
			result, err := svc.GetContext(ctx, query, memory.GetContextOptions{
				Limit:        optionalInt(args, "limit", 0),
				ScoreFloor:   optionalFloat(args, "score_floor", 0),
				IncludeKinds: optionalStringSlice(args, "include_kinds"),
			})
			if err != nil {
				return nil, err
			}
			return result, nil
		},
	})

	r.Register(&Tool{
		Name:        "memory_get_stats",
		Description: "Return tier sizes and enabled embedding models",
		Group:       groupMemory,
		InputSchema: map[string]any{"type": "object", "properties": map[string]any{}},
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			return svc.GetStats(), nil
		},
	})

	r.Register(&Tool{
		Name:        "memory_list_recent_conversations",
		Description: "List the N most recent conversation pages",
		Group:       groupMemory,
		InputSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{"n": map[string]any{"type": "integer"}},
			"required":   []string{"n"},
		},
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			return svc.ListRecentConversations(optionalInt(args, "n", 10)), nil
		},
	})

	r.Register(&Tool{
		Name:        "memory_list_recent_documents",
		Description: "List the N most recently added knowledge documents",
		Group:       groupMemory,
		InputSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{"n": map[string]any{"type": "integer"}},
			"required":   []string{"n"},
		},
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			return svc.ListRecentDocuments(optionalInt(args, "n", 10)), nil
		},
	})

	r.Register(&Tool{
		Name:        "memory_remove_conversation_message",
		Description: "Remove one working-tier message by index, or delete a whole active/archival page by id",
		Group:       groupMemory,
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"page_id": map[string]any{"type": "string"},
				"index":   map[string]any{"type": "integer"},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			pageID := optionalString(args, "page_id", "")
			index := optionalInt(args, "index", 0)
			if err := svc.RemoveConversationMessage(pageID, index); err != nil {
				return nil, err
			}
			return map[string]any{"status": "ok"}, nil
		},
	})

	r.Register(&Tool{
		Name:        "memory_toggle_multi_model",
		Description: "Enable or disable multi-model embedding for subsequent context lookups",
		Group:       groupMemory,
		InputSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{"enabled": map[string]any{"type": "boolean"}},
			"required":   []string{"enabled"},
		},
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			svc.ToggleMultiModel(optionalBool(args, "enabled", false))
			return map[string]any{"status": "ok"}, nil
		},
	})
}
