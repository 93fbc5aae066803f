package dreaming

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/xid"

	"github.com/mojoassistant/mojoassistant/internal/apperr"
	"github.com/mojoassistant/mojoassistant/internal/llm"
)

const (
	chunkTaskTag   = "dreaming_chunk"
	clusterTaskTag = "dreaming_cluster"
	repairTaskTag  = "repair_json"
)

// Pipeline is the Dreaming Pipeline (C5): a single process_conversation
// entry point driving the A->B->C->D consolidation, plus read accessors
// over the manifest-tracked archive lineage it produces.
//
// Per-conversation mutations are serialized by convMu so two concurrent
// process_conversation calls for the same conversation id can't race on
// "latest_version + 1".
type Pipeline struct {
	router  *llm.Router
	dataDir string

	convMu sync.Map // conversationID -> *sync.Mutex
}

// NewPipeline builds a Pipeline against the given LLM router and data
// directory (archives live under <dataDir>/dreams/<conversation_id>/).
func NewPipeline(router *llm.Router, dataDir string) *Pipeline {
	return &Pipeline{router: router, dataDir: dataDir}
}

func (p *Pipeline) lockFor(conversationID string) func() {
	muAny, _ := p.convMu.LoadOrStore(conversationID, &sync.Mutex{})
	mu := muAny.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// ProcessConversation runs A->B->C->D against a raw transcript, producing
// archive_v(N+1) where N is the conversation's current latest_version (0 if
// none exist yet).
func (p *Pipeline) ProcessConversation(ctx context.Context, conversationID, rawText string, quality QualityLevel) (*Archive, error) {
	if strings.TrimSpace(conversationID) == "" {
		return nil, apperr.Validation("conversation_id must not be empty", nil)
	}
	if strings.TrimSpace(rawText) == "" {
		return nil, apperr.Validation("conversation text must not be empty", map[string]any{"conversation_id": conversationID})
	}
	if quality == "" {
		quality = QualityBasic
	}

	unlock := p.lockFor(conversationID)
	defer unlock()

	chunks, err := p.chunkConversation(ctx, conversationID, rawText, quality)
	if err != nil {
		return nil, err
	}
	clusters, err := p.clusterChunks(ctx, chunks, quality)
	if err != nil {
		return nil, err
	}

	manifest, err := loadManifest(p.dataDir, conversationID)
	if err != nil {
		return nil, err
	}
	version := manifest.LatestVersion + 1

	archive := &Archive{
		ConversationID: conversationID,
		Version:        version,
		CreatedAt:      time.Now(),
		QualityLevel:   quality,
		Chunks:         chunks,
		Clusters:       clusters,
		Entities:       collectEntities(chunks, clusters),
		SourceText:     rawText,
		IsLatest:       true,
		Status:         "active",
	}
	if manifest.LatestVersion > 0 {
		prev := manifest.LatestVersion
		archive.PreviousVersion = intPtr(prev)
		archive.SupersedesVersion = intPtr(prev)
	}

	if err := writeArchive(p.dataDir, archive); err != nil {
		return nil, err
	}

	if prevEntry, ok := manifest.Versions[strconv.Itoa(manifest.LatestVersion)]; ok && manifest.LatestVersion > 0 {
		prevEntry.IsLatest = false
		prevEntry.Status = "superseded"
		prevEntry.StorageLocation = "cold"
		prevEntry.SupersededByVersion = intPtr(version)
	}
	newEntry := &ManifestVersion{
		IsLatest:        true,
		Status:          "active",
		StorageLocation: "hot",
		QualityLevel:    quality,
		CreatedAt:       archive.CreatedAt,
	}
	if manifest.LatestVersion > 0 {
		prev := manifest.LatestVersion
		newEntry.PreviousVersion = intPtr(prev)
		newEntry.SupersedesVersion = intPtr(prev)
	}
	manifest.Versions[strconv.Itoa(version)] = newEntry
	manifest.LatestVersion = version

	if err := saveManifest(p.dataDir, manifest); err != nil {
		return nil, err
	}
	return archive, nil
}

// GetArchive returns the named version, or the manifest's latest_version
// when version is nil.
func (p *Pipeline) GetArchive(ctx context.Context, conversationID string, version *int) (*Archive, error) {
	manifest, err := loadManifest(p.dataDir, conversationID)
	if err != nil {
		return nil, err
	}
	v := manifest.LatestVersion
	if version != nil {
		v = *version
	}
	if v == 0 {
		return nil, apperr.NotFound("archive", conversationID)
	}
	return readArchive(p.dataDir, conversationID, v)
}

// ListArchives returns a summary of every version in the manifest, newest
// first.
func (p *Pipeline) ListArchives(ctx context.Context, conversationID string) ([]ArchiveSummary, error) {
	manifest, err := loadManifest(p.dataDir, conversationID)
	if err != nil {
		return nil, err
	}
	summaries := make([]ArchiveSummary, 0, len(manifest.Versions))
	for key, entry := range manifest.Versions {
		v, convErr := strconv.Atoi(key)
		if convErr != nil {
			continue
		}
		summaries = append(summaries, ArchiveSummary{
			Version:      v,
			IsLatest:     entry.IsLatest,
			Status:       entry.Status,
			QualityLevel: entry.QualityLevel,
			CreatedAt:    entry.CreatedAt,
		})
	}
	for i := 1; i < len(summaries); i++ {
		for j := i; j > 0 && summaries[j].Version > summaries[j-1].Version; j-- {
			summaries[j], summaries[j-1] = summaries[j-1], summaries[j]
		}
	}
	return summaries, nil
}

// UpgradeQuality re-runs A->B->C->D against the latest version's source
// text at a new quality level, producing version N+1.
func (p *Pipeline) UpgradeQuality(ctx context.Context, conversationID string, newQuality QualityLevel) (*Archive, error) {
	latest, err := p.GetArchive(ctx, conversationID, nil)
	if err != nil {
		return nil, err
	}
	return p.ProcessConversation(ctx, conversationID, latest.SourceText, newQuality)
}

// chunkConversation runs the A->B stage: one LLM call producing chunk JSON,
// parsed via the four-pass resilient parser.
func (p *Pipeline) chunkConversation(ctx context.Context, conversationID, rawText string, quality QualityLevel) ([]Chunk, error) {
	prompt := fmt.Sprintf(
		"Segment the following conversation transcript into semantic chunks. "+
			"Respond with strict JSON: {\"chunks\": [{\"text\":..., \"topic_label\":..., \"entities\": [...], \"language\":..., \"speaker\":..., \"confidence\": 0-1}]}. "+
			"Target quality level: %s.\n\nTranscript:\n%s", quality, rawText)

	items, err := p.runFourPassParse(ctx, chunkTaskTag, "chunking", "chunks", prompt,
		"You convert conversation transcripts into JSON chunk arrays. Always respond with strict JSON and nothing else.")
	if err != nil {
		return nil, err
	}

	chunks := make([]Chunk, 0, len(items))
	for i, item := range items {
		raw := applyChunkDefaults(item.Raw)
		var c Chunk
		if decodeErr := decodeJSON(raw, &c); decodeErr != nil {
			continue
		}
		c.ID = xid.New().String()
		c.ConversationID = conversationID
		c.Index = i
		chunks = append(chunks, c)
	}
	if len(chunks) == 0 {
		return nil, apperr.New(apperr.KindPipelineParse, "chunking produced zero usable chunks", map[string]any{
			"stage": "chunking", "conversation_id": conversationID,
		})
	}
	return chunks, nil
}

// clusterChunks runs the B->C stage: one or more LLM calls clustering
// chunks into topic/relationship/timeline/summary clusters.
func (p *Pipeline) clusterChunks(ctx context.Context, chunks []Chunk, quality QualityLevel) ([]Cluster, error) {
	var sb strings.Builder
	for _, c := range chunks {
		fmt.Fprintf(&sb, "[%s] %s\n", c.ID, c.Text)
	}
	prompt := fmt.Sprintf(
		"Cluster the following chunks (each prefixed with its id) into topic, relationship, timeline, "+
			"and summary clusters. Respond with strict JSON: {\"clusters\": [{\"kind\": \"TOPIC|RELATIONSHIP|TIMELINE|SUMMARY\", "+
			"\"member_chunk_ids\": [...], \"summary_text\":..., \"entities\": [...], \"confidence\": 0-1}]}. "+
			"Target quality level: %s.\n\nChunks:\n%s", quality, sb.String())

	items, err := p.runFourPassParse(ctx, clusterTaskTag, "clustering", "clusters", prompt,
		"You synthesize conversation chunks into JSON cluster arrays. Always respond with strict JSON and nothing else.")
	if err != nil {
		return nil, err
	}

	clusters := make([]Cluster, 0, len(items))
	for _, item := range items {
		raw := applyClusterDefaults(item.Raw)
		var c Cluster
		if decodeErr := decodeJSON(raw, &c); decodeErr != nil {
			continue
		}
		c.ID = xid.New().String()
		clusters = append(clusters, c)
	}
	if len(clusters) == 0 {
		return nil, apperr.New(apperr.KindPipelineParse, "clustering produced zero usable clusters", map[string]any{
			"stage": "clustering",
		})
	}
	return clusters, nil
}

// runFourPassParse performs one LLM completion call, then runs the
// four-pass resilient parser against its output: strict parse, bracket-depth
// scan, raw-decode-at-every-brace, and finally an LLM repair call re-parsed
// the same three ways. Never falls back to a rule-based parser.
func (p *Pipeline) runFourPassParse(ctx context.Context, taskTag, stage, key, prompt, systemPrompt string) ([]resultItem, error) {
	resp, err := p.router.Complete(ctx, taskTag, []llm.Message{{Role: llm.RoleUser, Content: prompt}}, systemPrompt)
	if err != nil {
		return nil, err
	}

	if items, ok := tryParsePasses(resp.Content, key); ok {
		return toResultItems(items), nil
	}

	// Pass 4: LLM repair.
	repairProvider, repairModel, repairChooseErr := p.router.Choose(repairTaskTag)
	if repairChooseErr != nil {
		return nil, apperr.New(apperr.KindPipelineParse, "all parse passes failed and no repair_json route is configured", map[string]any{
			"stage": stage, "raw_output": resp.Content,
		})
	}
	repairPrompt := fmt.Sprintf("Convert the following into strict JSON with a top-level %q array and nothing else:\n\n%s", key, resp.Content)
	repairResp, repairErr := p.router.Complete(ctx, repairTaskTag, []llm.Message{{Role: llm.RoleUser, Content: repairPrompt}},
		"You repair malformed JSON. Respond with strict JSON only, no prose, no markdown fences.")
	if repairErr != nil {
		return nil, apperr.Wrap(apperr.KindPipelineParse, "llm repair call failed", repairErr, map[string]any{
			"provider": repairProvider.Name(), "model": repairModel, "stage": stage, "raw_output": resp.Content,
		})
	}

	if items, ok := tryParsePasses(repairResp.Content, key); ok {
		return toResultItems(items), nil
	}

	return nil, apperr.New(apperr.KindPipelineParse, "all four parse passes failed", map[string]any{
		"provider": repairProvider.Name(), "model": repairModel, "stage": stage, "raw_output": resp.Content,
		"near_json": json5Valid(resp.Content),
	})
}

func collectEntities(chunks []Chunk, clusters []Cluster) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(entities []string) {
		for _, e := range entities {
			e = strings.TrimSpace(e)
			if e == "" || seen[e] {
				continue
			}
			seen[e] = true
			out = append(out, e)
		}
	}
	for _, c := range chunks {
		add(c.Entities)
	}
	for _, c := range clusters {
		add(c.Entities)
	}
	return out
}
