package memory

import (
	"context"
	"strings"
)

// GetContextOptions controls a get_context call; zero values select the
// defaults (all tiers, no floor, no limit on the number of items).
type GetContextOptions struct {
	Limit        int
	ScoreFloor   float64
	ModelWeights map[string]float64
	IncludeKinds []string // "active" | "archival" | "knowledge"; empty = all
}

// GetContextResult carries the ranked items plus degraded-read signaling for
// partial embedding-backend failure.
type GetContextResult struct {
	Items        []ContextItem
	Degraded     bool
	FailedModels []string
}

// GetContext embeds the query against every enabled model, lazily backfills
// any Active or Archival page missing an embedding for a model the query was
// embedded under, and ranks by the sum_m w_m*cosine_m rule with a floor cutoff and
// newest-then-id tie-break.
func (s *Service) GetContext(ctx context.Context, query string, opts GetContextOptions) (*GetContextResult, error) {
	if strings.TrimSpace(query) == "" {
		return &GetContextResult{}, nil
	}

	models := s.enabledModels()
	queryVecs := make(map[string][]float64, len(models))
	var failed []string
	for _, model := range models {
		vec, err := s.embed.EmbedQuery(ctx, query, model)
		if err != nil {
			failed = append(failed, model)
			continue
		}
		queryVecs[model] = vec
	}

	s.mu.Lock()
	active := append([]ConversationPage(nil), s.active...)
	archival := append([]ConversationPage(nil), s.archival...)
	docs := append([]KnowledgeDocument(nil), s.docs...)
	s.mu.Unlock()

	wantsKind := func(kind string) bool {
		if len(opts.IncludeKinds) == 0 {
			return true
		}
		for _, k := range opts.IncludeKinds {
			if k == kind {
				return true
			}
		}
		return false
	}

	var candidates []scoredCandidate

	if wantsKind("active") {
		for i := range active {
			page := &active[i]
			if err := s.ensurePageEmbeddings(ctx, page, models); err != nil {
				continue
			}
			score, per := weightedScore(queryVecs, page.Embeddings, opts.ModelWeights)
			candidates = append(candidates, scoredCandidate{
				item: ContextItem{
					Kind:      "active",
					ID:        page.ID,
					Content:   pageText(page),
					Score:     score,
					CreatedAt: page.CreatedAt,
					PerModel:  per,
				},
			})
		}
	}

	if wantsKind("archival") {
		for i := range archival {
			page := &archival[i]
			if err := s.ensurePageEmbeddings(ctx, page, models); err != nil {
				continue
			}
			score, per := weightedScore(queryVecs, page.Embeddings, opts.ModelWeights)
			candidates = append(candidates, scoredCandidate{
				item: ContextItem{
					Kind:      "archival",
					ID:        page.ID,
					Content:   pageText(page),
					Score:     score,
					CreatedAt: page.CreatedAt,
					PerModel:  per,
				},
			})
		}
	}

	if wantsKind("knowledge") {
		for _, doc := range docs {
			for _, chunk := range doc.Chunks {
				score, per := weightedScore(queryVecs, chunk.Embeddings, opts.ModelWeights)
				candidates = append(candidates, scoredCandidate{
					item: ContextItem{
						Kind:      "knowledge",
						ID:        chunk.ID,
						Content:   chunk.Text,
						Score:     score,
						CreatedAt: doc.CreatedAt,
						Metadata:  doc.Metadata,
						PerModel:  per,
					},
				})
			}
		}
	}

	result := &GetContextResult{
		Items:        rankAndCutoff(candidates, opts.ScoreFloor, opts.Limit),
		Degraded:     len(failed) > 0,
		FailedModels: failed,
	}
	return result, nil
}

func (s *Service) enabledModels() []string {
	if s.embed == nil {
		return nil
	}
	models := s.embed.EnabledModels()
	if !s.cfg.MultiModelEnabled && len(models) > 1 {
		return models[:1]
	}
	return models
}

// ensurePageEmbeddings computes and caches onto the page any
// embeddings it is missing for the given models. Pages are copies taken
// under lock by the caller, so this mutates the service's persisted copy on
// a best-effort basis via a short re-lock rather than holding the main lock
// across network calls.
func (s *Service) ensurePageEmbeddings(ctx context.Context, page *ConversationPage, models []string) error {
	missing := make([]string, 0, len(models))
	for _, m := range models {
		if _, ok := page.Embeddings[m]; !ok {
			missing = append(missing, m)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	text := pageText(page)
	if page.Embeddings == nil {
		page.Embeddings = make(map[string][]float64)
	}
	var firstErr error
	for _, m := range missing {
		vec, err := s.embed.EmbedQuery(ctx, text, m)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		page.Embeddings[m] = vec
	}
	s.persistPageEmbeddings(page)
	return firstErr
}

// persistPageEmbeddings writes lazily-computed embeddings back onto the
// stored page so subsequent calls don't recompute them.
func (s *Service) persistPageEmbeddings(page *ConversationPage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.active {
		if s.active[i].ID == page.ID {
			s.active[i].Embeddings = page.Embeddings
			_ = s.save()
			return
		}
	}
	for i := range s.archival {
		if s.archival[i].ID == page.ID {
			s.archival[i].Embeddings = page.Embeddings
			_ = s.save()
			return
		}
	}
}

func pageText(page *ConversationPage) string {
	if page.Digest != "" {
		return page.Digest
	}
	var b strings.Builder
	for _, m := range page.Messages {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(m.Content)
	}
	return b.String()
}

