package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"
)

type googleProvider struct {
	cfg GoogleConfig
}

func newGoogleProvider(cfg *Config) Provider {
	if cfg == nil {
		return nil
	}
	if !isEnabled(cfg.Google.Enabled, true) {
		return nil
	}
	if strings.TrimSpace(cfg.Google.APIKey) == "" || strings.TrimSpace(cfg.Google.SearchEngineID) == "" {
		return nil
	}
	return &googleProvider{cfg: cfg.Google}
}

func (p *googleProvider) Name() string {
	return ProviderGoogle
}

func (p *googleProvider) Search(ctx context.Context, req Request) (*Response, error) {
	values := url.Values{}
	values.Set("key", p.cfg.APIKey)
	values.Set("cx", p.cfg.SearchEngineID)
	values.Set("q", req.Query)
	if req.Count > 0 {
		values.Set("num", fmt.Sprintf("%d", req.Count))
	}
	if req.Country != "" {
		values.Set("gl", strings.ToLower(req.Country))
	}
	if req.UILang != "" {
		values.Set("hl", req.UILang)
	}

	endpoint := strings.TrimRight(p.cfg.BaseURL, "/") + "?" + values.Encode()

	start := time.Now()
	data, _, err := getJSON(ctx, endpoint, nil, p.cfg.TimeoutSecs)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Items []struct {
			Title       string `json:"title"`
			Link        string `json:"link"`
			Snippet     string `json:"snippet"`
			DisplayLink string `json:"displayLink"`
		} `json:"items"`
		Queries struct {
			Request []struct {
				TotalResults string `json:"totalResults"`
			} `json:"request"`
		} `json:"queries"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(resp.Items))
	for _, item := range resp.Items {
		results = append(results, Result{
			Title:       strings.TrimSpace(item.Title),
			URL:         item.Link,
			Description: strings.TrimSpace(item.Snippet),
			SiteName:    item.DisplayLink,
		})
	}

	return &Response{
		Query:     req.Query,
		Provider:  ProviderGoogle,
		Count:     len(results),
		TookMs:    time.Since(start).Milliseconds(),
		Results:   results,
		NoResults: len(results) == 0,
	}, nil
}
