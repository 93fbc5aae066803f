// Package dreaming implements the Dreaming Pipeline (C5): an offline
// A->B->C->D consolidation that turns a raw conversation transcript into a
// versioned, immutable archive snapshot with manifest-tracked lineage.
package dreaming

import "time"

// QualityLevel controls how much synthesis effort a process_conversation
// call asks of the LLM stages; it does not change the pipeline's shape.
type QualityLevel string

const (
	QualityBasic   QualityLevel = "basic"
	QualityGood    QualityLevel = "good"
	QualityPremium QualityLevel = "premium"
)

// ClusterKind enumerates the B->C synthesis cluster types.
type ClusterKind string

const (
	ClusterTopic        ClusterKind = "TOPIC"
	ClusterRelationship ClusterKind = "RELATIONSHIP"
	ClusterTimeline     ClusterKind = "TIMELINE"
	ClusterSummary      ClusterKind = "SUMMARY"
)

// Chunk is a B-stage semantic chunk produced by the A->B chunking call.
type Chunk struct {
	ID             string   `json:"id"`
	ConversationID string   `json:"conversation_id"`
	Index          int      `json:"index"`
	Text           string   `json:"text"`
	TopicLabel     string   `json:"topic_label,omitempty"`
	Entities       []string `json:"entities,omitempty"`
	Language       string   `json:"language,omitempty"`
	Speaker        string   `json:"speaker,omitempty"`
	Confidence     float64  `json:"confidence"`
}

// Cluster is a C-stage synthesis cluster produced by the B->C call.
type Cluster struct {
	ID             string      `json:"id"`
	Kind           ClusterKind `json:"kind"`
	MemberChunkIDs []string    `json:"member_chunk_ids"`
	SummaryText    string      `json:"summary_text"`
	Entities       []string    `json:"entities,omitempty"`
	Confidence     float64     `json:"confidence"`
}

// Archive is the D-stage immutable per-version snapshot, written to
// archive_v<N>.json. SourceText carries the raw transcript the version was
// built from, so upgrade_quality can re-run A->B->C->D against the latest
// version's own source rather than requiring the caller to resupply it.
type Archive struct {
	ConversationID string         `json:"conversation_id"`
	Version        int            `json:"version"`
	CreatedAt      time.Time      `json:"created_at"`
	QualityLevel   QualityLevel   `json:"quality_level"`
	Chunks         []Chunk        `json:"chunks"`
	Clusters       []Cluster      `json:"clusters"`
	Entities       []string       `json:"entities"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	SourceText     string         `json:"source_text"`

	// Lifecycle fields mirrored from the manifest as of write time. The
	// manifest remains the authoritative current view; these are a
	// point-in-time copy only.
	IsLatest           bool   `json:"is_latest"`
	Status             string `json:"status"`
	PreviousVersion    *int   `json:"previous_version,omitempty"`
	SupersedesVersion  *int   `json:"supersedes_version,omitempty"`
	SupersededByVersion *int  `json:"superseded_by_version,omitempty"`
}

// ManifestVersion is one entry in a conversation's lineage manifest.
type ManifestVersion struct {
	IsLatest            bool         `json:"is_latest"`
	Status              string       `json:"status"` // active | superseded
	StorageLocation     string       `json:"storage_location"` // hot | cold
	PreviousVersion     *int         `json:"previous_version,omitempty"`
	SupersedesVersion   *int         `json:"supersedes_version,omitempty"`
	SupersededByVersion *int         `json:"superseded_by_version,omitempty"`
	QualityLevel        QualityLevel `json:"quality_level"`
	CreatedAt           time.Time    `json:"created_at"`
}

// Manifest is the per-conversation lineage index and the authoritative
// current view of a conversation's archive lineage.
type Manifest struct {
	ConversationID string                     `json:"conversation_id"`
	LatestVersion  int                        `json:"latest_version"`
	Versions       map[string]*ManifestVersion `json:"versions"`
}

// ArchiveSummary is the list_archives projection of a manifest entry.
type ArchiveSummary struct {
	Version      int          `json:"version"`
	IsLatest     bool         `json:"is_latest"`
	Status       string       `json:"status"`
	QualityLevel QualityLevel `json:"quality_level"`
	CreatedAt    time.Time    `json:"created_at"`
}

func intPtr(v int) *int { return &v }
