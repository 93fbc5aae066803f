package mcptools

import (
	"context"

	"github.com/mojoassistant/mojoassistant/internal/apperr"
	"github.com/mojoassistant/mojoassistant/internal/dreaming"
)

const groupDreaming = "dreaming"

// RegisterDreamingTools exposes the dreaming pipeline's process/archive
// operations as named tools.
func RegisterDreamingTools(r *Registry, pipeline *dreaming.Pipeline) {
	r.Register(&Tool{
		Name:        "dreaming_process",
		Description: "Run the dreaming pipeline over a conversation transcript and produce a new archive version",
		Group:       groupDreaming,
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"conversation_id": map[string]any{"type": "string"},
				"raw_text":        map[string]any{"type": "string"},
				"quality_level":   map[string]any{"type": "string", "enum": []string{"basic", "good", "premium"}},
			},
			"required": []string{"conversation_id", "raw_text"},
		},
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			if pipeline == nil {
				return nil, apperr.New(apperr.KindState, "dreaming is disabled", nil)
			}
			conversationID, err := stringArg(args, "conversation_id")
			if err != nil {
				return nil, err
			}
			rawText, err := stringArg(args, "raw_text")
			if err != nil {
				return nil, err
			}
			quality := dreaming.QualityLevel(optionalString(args, "quality_level", string(dreaming.QualityBasic)))
			return pipeline.ProcessConversation(ctx, conversationID, rawText, quality)
		},
	})

	r.Register(&Tool{
		Name:        "dreaming_get_archive",
		Description: "Fetch a conversation's archive, defaulting to the latest version",
		Group:       groupDreaming,
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"conversation_id": map[string]any{"type": "string"},
				"version":         map[string]any{"type": "integer"},
			},
			"required": []string{"conversation_id"},
		},
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			if pipeline == nil {
				return nil, apperr.New(apperr.KindState, "dreaming is disabled", nil)
			}
			conversationID, err := stringArg(args, "conversation_id")
			if err != nil {
				return nil, err
			}
			var version *int
			if v, ok := args["version"]; ok {
				n := optionalInt(args, "version", 0)
				_ = v
				version = &n
			}
			return pipeline.GetArchive(ctx, conversationID, version)
		},
	})

	r.Register(&Tool{
		Name:        "dreaming_list_archives",
		Description: "List every archive version recorded for a conversation",
		Group:       groupDreaming,
		InputSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{"conversation_id": map[string]any{"type": "string"}},
			"required":   []string{"conversation_id"},
		},
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			if pipeline == nil {
				return nil, apperr.New(apperr.KindState, "dreaming is disabled", nil)
			}
			conversationID, err := stringArg(args, "conversation_id")
			if err != nil {
				return nil, err
			}
			return pipeline.ListArchives(ctx, conversationID)
		},
	})

	r.Register(&Tool{
		Name:        "dreaming_upgrade_quality",
		Description: "Reprocess a conversation's latest archive at a higher quality level",
		Group:       groupDreaming,
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"conversation_id": map[string]any{"type": "string"},
				"quality_level":   map[string]any{"type": "string", "enum": []string{"basic", "good", "premium"}},
			},
			"required": []string{"conversation_id", "quality_level"},
		},
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			if pipeline == nil {
				return nil, apperr.New(apperr.KindState, "dreaming is disabled", nil)
			}
			conversationID, err := stringArg(args, "conversation_id")
			if err != nil {
				return nil, err
			}
			quality, err := stringArg(args, "quality_level")
			if err != nil {
				return nil, err
			}
			return pipeline.UpgradeQuality(ctx, conversationID, dreaming.QualityLevel(quality))
		},
	})
}
