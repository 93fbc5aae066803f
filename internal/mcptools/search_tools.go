package mcptools

import (
	"context"

	"github.com/mojoassistant/mojoassistant/internal/config"
	"github.com/mojoassistant/mojoassistant/pkg/fetch"
	"github.com/mojoassistant/mojoassistant/pkg/search"
	"github.com/mojoassistant/mojoassistant/pkg/shared/toolspec"
)

const groupSearch = "search"

// RegisterSearchTools wraps pkg/search's provider-fallback web search and
// pkg/fetch's provider-fallback page-content fetch as a pair of named tools,
// grouped together since web_search results are commonly followed by a
// fetch_url call to read one of them in full.
func RegisterSearchTools(r *Registry, cfg config.SearchConfig) {
	searchCfg := &search.Config{
		Google: search.GoogleConfig{
			APIKey:         cfg.GoogleAPIKey,
			SearchEngineID: cfg.GoogleSearchEngineID,
		},
	}

	r.Register(&Tool{
		Name:        toolspec.WebSearchName,
		Description: toolspec.WebSearchDescription,
		Group:       groupSearch,
		InputSchema: toolspec.WebSearchSchema(),
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			query, err := stringArg(args, "query")
			if err != nil {
				return nil, err
			}
			resp, err := search.Search(ctx, search.Request{
				Query: query,
				Count: optionalInt(args, "max_results", search.DefaultSearchCount),
			}, searchCfg)
			if err != nil {
				return nil, err
			}
			return resp, nil
		},
	})

	fetchCfg := fetch.ApplyEnvDefaults(nil)

	r.Register(&Tool{
		Name:        "fetch_url",
		Description: "Fetch a URL's readable content (Exa contents API, then a direct HTML extraction fallback)",
		Group:       groupSearch,
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"url":          map[string]any{"type": "string"},
				"extract_mode": map[string]any{"type": "string", "enum": []string{"markdown", "text"}},
				"max_chars":    map[string]any{"type": "integer"},
			},
			"required": []string{"url"},
		},
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			url, err := stringArg(args, "url")
			if err != nil {
				return nil, err
			}
			resp, err := fetch.Fetch(ctx, fetch.Request{
				URL:         url,
				ExtractMode: optionalString(args, "extract_mode", "markdown"),
				MaxChars:    optionalInt(args, "max_chars", 0),
			}, fetchCfg)
			if err != nil {
				return nil, err
			}
			return resp, nil
		},
	})
}
