package search

import (
	"context"
	"time"

	"github.com/mojoassistant/mojoassistant/pkg/shared/websearch"
)

type ddgProvider struct{}

func newDDGProvider(cfg *Config) Provider {
	if cfg == nil {
		return nil
	}
	if !isEnabled(cfg.DDG.Enabled, true) {
		return nil
	}
	return &ddgProvider{}
}

func (p *ddgProvider) Name() string {
	return ProviderDuckDuckGo
}

func (p *ddgProvider) Search(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	result, err := websearch.DuckDuckGoSearch(ctx, req.Query)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(result.Results))
	for _, entry := range result.Results {
		results = append(results, Result{
			Title:       entry.Title,
			URL:         entry.URL,
			Description: entry.Snippet,
			SiteName:    resolveSiteName(entry.URL),
		})
	}

	return &Response{
		Query:      req.Query,
		Provider:   ProviderDuckDuckGo,
		Count:      len(results),
		TookMs:     time.Since(start).Milliseconds(),
		Results:    results,
		Answer:     result.Answer,
		Summary:    result.Summary,
		Definition: result.Definition,
		NoResults:  result.NoResults,
	}, nil
}
