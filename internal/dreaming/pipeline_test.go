package dreaming

import (
	"context"
	"testing"

	"github.com/mojoassistant/mojoassistant/internal/apperr"
	"github.com/mojoassistant/mojoassistant/internal/config"
	"github.com/mojoassistant/mojoassistant/internal/llm"
)

// scriptedProvider returns canned Generate() responses in sequence, mirroring
// the fake provider used against the LLM router's own tests.
type scriptedProvider struct {
	name      string
	responses []*llm.Response
	calls     int
	err       error
}

func (p *scriptedProvider) Name() string { return p.name }

func (p *scriptedProvider) Generate(ctx context.Context, params llm.Params) (*llm.Response, error) {
	if p.err != nil {
		return nil, p.err
	}
	if p.calls >= len(p.responses) {
		return p.responses[len(p.responses)-1], nil
	}
	resp := p.responses[p.calls]
	p.calls++
	return resp, nil
}

func (p *scriptedProvider) ListModels(ctx context.Context) ([]string, error) {
	return []string{"stub"}, nil
}

func newTestRouter(chunkResp, clusterResp, repairResp *llm.Response) *llm.Router {
	providers := map[string]llm.Provider{
		"chunker":  &scriptedProvider{name: "chunker", responses: []*llm.Response{chunkResp}},
		"cluster":  &scriptedProvider{name: "cluster", responses: []*llm.Response{clusterResp}},
		"repairer": &scriptedProvider{name: "repairer", responses: []*llm.Response{repairResp}},
	}
	routing := map[string]config.TaskRoute{
		chunkTaskTag:   {Provider: "chunker", Model: "chunk-model"},
		clusterTaskTag: {Provider: "cluster", Model: "cluster-model"},
		repairTaskTag:  {Provider: "repairer", Model: "repair-model"},
	}
	return llm.NewRouter(providers, routing)
}

const sampleChunkJSON = `{"chunks": [
  {"text": "We discussed the Q3 roadmap.", "topic_label": "roadmap", "entities": ["Q3"]},
  {"text": "Decided to ship the mobile app first.", "topic_label": "roadmap", "entities": ["mobile app"]}
]}`

const sampleClusterJSON = `{"clusters": [
  {"kind": "topic", "summary_text": "Roadmap planning for Q3, prioritizing the mobile app.", "entities": ["Q3", "mobile app"]}
]}`

func TestProcessConversationHappyPath(t *testing.T) {
	dir := t.TempDir()
	router := newTestRouter(
		&llm.Response{Content: sampleChunkJSON},
		&llm.Response{Content: sampleClusterJSON},
		nil,
	)
	p := NewPipeline(router, dir)

	archive, err := p.ProcessConversation(context.Background(), "conv-1", "raw transcript text", QualityGood)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if archive.Version != 1 {
		t.Fatalf("expected first archive to be version 1, got %d", archive.Version)
	}
	if !archive.IsLatest || archive.Status != "active" {
		t.Fatalf("expected first archive to be latest/active, got %+v", archive)
	}
	if len(archive.Chunks) != 2 {
		t.Fatalf("expected two chunks, got %d", len(archive.Chunks))
	}
	if len(archive.Clusters) != 1 {
		t.Fatalf("expected one cluster, got %d", len(archive.Clusters))
	}
	if archive.SourceText != "raw transcript text" {
		t.Fatalf("expected source text to be retained for later quality upgrades")
	}
	for _, c := range archive.Chunks {
		if c.ConversationID != "conv-1" {
			t.Fatalf("expected chunk conversation id to be set, got %+v", c)
		}
		if c.ID == "" {
			t.Fatalf("expected chunk id to be assigned")
		}
	}
}

func TestProcessConversationRejectsEmptyInput(t *testing.T) {
	p := NewPipeline(newTestRouter(nil, nil, nil), t.TempDir())
	_, err := p.ProcessConversation(context.Background(), "conv-1", "   ", QualityBasic)
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected ValidationError for blank transcript, got %v", err)
	}
}

func TestProcessConversationSecondVersionSupersedesFirst(t *testing.T) {
	dir := t.TempDir()
	router := newTestRouter(
		&llm.Response{Content: sampleChunkJSON},
		&llm.Response{Content: sampleClusterJSON},
		nil,
	)
	p := NewPipeline(router, dir)

	if _, err := p.ProcessConversation(context.Background(), "conv-1", "first pass transcript", QualityBasic); err != nil {
		t.Fatalf("unexpected error on first process: %v", err)
	}

	router2 := newTestRouter(
		&llm.Response{Content: sampleChunkJSON},
		&llm.Response{Content: sampleClusterJSON},
		nil,
	)
	p2 := NewPipeline(router2, dir)
	second, err := p2.ProcessConversation(context.Background(), "conv-1", "second pass transcript", QualityGood)
	if err != nil {
		t.Fatalf("unexpected error on second process: %v", err)
	}
	if second.Version != 2 {
		t.Fatalf("expected second archive to be version 2, got %d", second.Version)
	}
	if second.PreviousVersion == nil || *second.PreviousVersion != 1 {
		t.Fatalf("expected second archive to point back at version 1, got %+v", second.PreviousVersion)
	}

	summaries, err := p2.ListArchives(context.Background(), "conv-1")
	if err != nil {
		t.Fatalf("unexpected error listing archives: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("expected two archive versions listed, got %d", len(summaries))
	}
	foundSuperseded := false
	for _, s := range summaries {
		if s.Version == 1 {
			if s.IsLatest {
				t.Fatalf("expected version 1 to no longer be latest after a second process call")
			}
			if s.Status != "superseded" {
				t.Fatalf("expected version 1 status superseded, got %q", s.Status)
			}
			foundSuperseded = true
		}
	}
	if !foundSuperseded {
		t.Fatalf("expected to find version 1 in the archive list")
	}
}

func TestGetArchiveDefaultsToLatest(t *testing.T) {
	dir := t.TempDir()
	router := newTestRouter(&llm.Response{Content: sampleChunkJSON}, &llm.Response{Content: sampleClusterJSON}, nil)
	p := NewPipeline(router, dir)
	if _, err := p.ProcessConversation(context.Background(), "conv-2", "transcript text", QualityBasic); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	archive, err := p.GetArchive(context.Background(), "conv-2", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if archive.Version != 1 {
		t.Fatalf("expected latest version 1, got %d", archive.Version)
	}
}

func TestGetArchiveUnknownConversation(t *testing.T) {
	p := NewPipeline(newTestRouter(nil, nil, nil), t.TempDir())
	_, err := p.GetArchive(context.Background(), "does-not-exist", nil)
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected NotFoundError for an unknown conversation, got %v", err)
	}
}

func TestUpgradeQualityReprocessesSourceText(t *testing.T) {
	dir := t.TempDir()
	router := newTestRouter(&llm.Response{Content: sampleChunkJSON}, &llm.Response{Content: sampleClusterJSON}, nil)
	p := NewPipeline(router, dir)
	if _, err := p.ProcessConversation(context.Background(), "conv-3", "original transcript", QualityBasic); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	router2 := newTestRouter(&llm.Response{Content: sampleChunkJSON}, &llm.Response{Content: sampleClusterJSON}, nil)
	p2 := NewPipeline(router2, dir)
	upgraded, err := p2.UpgradeQuality(context.Background(), "conv-3", QualityPremium)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if upgraded.Version != 2 {
		t.Fatalf("expected upgrade to produce version 2, got %d", upgraded.Version)
	}
	if upgraded.QualityLevel != QualityPremium {
		t.Fatalf("expected upgraded quality level premium, got %q", upgraded.QualityLevel)
	}
	if upgraded.SourceText != "original transcript" {
		t.Fatalf("expected upgrade to reuse the original source text, got %q", upgraded.SourceText)
	}
}

func TestProcessConversationFallsBackToRepairPass(t *testing.T) {
	dir := t.TempDir()
	router := newTestRouter(
		&llm.Response{Content: "I'm not totally sure, but here's my best guess at the chunks you wanted."},
		&llm.Response{Content: sampleClusterJSON},
		&llm.Response{Content: sampleChunkJSON},
	)
	p := NewPipeline(router, dir)
	archive, err := p.ProcessConversation(context.Background(), "conv-4", "transcript needing repair", QualityBasic)
	if err != nil {
		t.Fatalf("expected the repair pass to recover a usable archive, got error: %v", err)
	}
	if len(archive.Chunks) != 2 {
		t.Fatalf("expected the repaired output to yield two chunks, got %d", len(archive.Chunks))
	}
}

func TestProcessConversationRaisesPipelineParseErrorWhenUnrecoverable(t *testing.T) {
	dir := t.TempDir()
	router := newTestRouter(
		&llm.Response{Content: "sorry, I can't help with that"},
		&llm.Response{Content: sampleClusterJSON},
		&llm.Response{Content: "still not json"},
	)
	p := NewPipeline(router, dir)
	_, err := p.ProcessConversation(context.Background(), "conv-5", "transcript", QualityBasic)
	if !apperr.Is(err, apperr.KindPipelineParse) {
		t.Fatalf("expected PipelineParseError when all four passes fail, got %v", err)
	}
}
