package dreaming

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/mojoassistant/mojoassistant/internal/apperr"
)

const manifestFileName = "manifest.json"

func conversationDir(dataDir, conversationID string) string {
	return filepath.Join(dataDir, "dreams", conversationID)
}

func archiveFileName(version int) string {
	return fmt.Sprintf("archive_v%d.json", version)
}

// writeJSONAtomic writes data to path via the spec's mandated discipline:
// write to a ".tmp" sibling, fsync, then rename over the final name.
func writeJSONAtomic(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return apperr.Wrap(apperr.KindState, "failed to create dreaming data directory", err, map[string]any{"path": path})
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return apperr.Wrap(apperr.KindState, "failed to marshal dreaming state", err, nil)
	}
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return apperr.Wrap(apperr.KindState, "failed to open temp file", err, map[string]any{"path": tmp})
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return apperr.Wrap(apperr.KindState, "failed to write temp file", err, map[string]any{"path": tmp})
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return apperr.Wrap(apperr.KindState, "failed to fsync temp file", err, map[string]any{"path": tmp})
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return apperr.Wrap(apperr.KindState, "failed to close temp file", err, map[string]any{"path": tmp})
	}
	if err := os.Rename(tmp, path); err != nil {
		return apperr.Wrap(apperr.KindState, "failed to rename temp file into place", err, map[string]any{"path": path})
	}
	return nil
}

// writeArchive persists one immutable archive version. Callers must never
// call this twice for the same (conversation, version) pair.
func writeArchive(dataDir string, archive *Archive) error {
	dir := conversationDir(dataDir, archive.ConversationID)
	path := filepath.Join(dir, archiveFileName(archive.Version))
	return writeJSONAtomic(path, archive)
}

// readArchive loads one archive version from disk.
func readArchive(dataDir, conversationID string, version int) (*Archive, error) {
	path := filepath.Join(conversationDir(dataDir, conversationID), archiveFileName(version))
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperr.NotFound("archive", fmt.Sprintf("%s@v%d", conversationID, version))
		}
		return nil, apperr.Wrap(apperr.KindState, "failed to read archive file", err, map[string]any{"path": path})
	}
	var archive Archive
	if err := json.Unmarshal(data, &archive); err != nil {
		return nil, apperr.Wrap(apperr.KindState, "failed to parse archive file", err, map[string]any{"path": path})
	}
	return &archive, nil
}

func saveManifest(dataDir string, manifest *Manifest) error {
	path := filepath.Join(conversationDir(dataDir, manifest.ConversationID), manifestFileName)
	return writeJSONAtomic(path, manifest)
}

// loadManifest reads the manifest file, bootstrapping it from the on-disk
// archive_v<N>.json files when the manifest is missing or stale.
func loadManifest(dataDir, conversationID string) (*Manifest, error) {
	dir := conversationDir(dataDir, conversationID)
	path := filepath.Join(dir, manifestFileName)

	onDiskVersions, err := scanArchiveVersions(dir)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, apperr.Wrap(apperr.KindState, "failed to read manifest file", err, map[string]any{"path": path})
		}
		return bootstrapManifest(dir, conversationID, onDiskVersions)
	}
	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, apperr.Wrap(apperr.KindState, "failed to parse manifest file", err, map[string]any{"path": path})
	}
	if manifest.Versions == nil {
		manifest.Versions = map[string]*ManifestVersion{}
	}

	maxOnDisk := 0
	for _, v := range onDiskVersions {
		if v > maxOnDisk {
			maxOnDisk = v
		}
	}
	// Stale: the manifest's view disagrees with what's actually on disk.
	if manifest.LatestVersion != maxOnDisk || len(manifest.Versions) != len(onDiskVersions) {
		return bootstrapManifest(dir, conversationID, onDiskVersions)
	}
	return &manifest, nil
}

func scanArchiveVersions(dir string) ([]int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, apperr.Wrap(apperr.KindState, "failed to list dreaming directory", err, map[string]any{"dir": dir})
	}
	var versions []int
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, "archive_v") || !strings.HasSuffix(name, ".json") {
			continue
		}
		numStr := strings.TrimSuffix(strings.TrimPrefix(name, "archive_v"), ".json")
		n, err := strconv.Atoi(numStr)
		if err != nil {
			continue
		}
		versions = append(versions, n)
	}
	sort.Ints(versions)
	return versions, nil
}

// bootstrapManifest rebuilds a manifest purely from the set of archive
// version numbers present on disk, reading each archive's own quality_level
// and created_at (the archive's lifecycle fields are not trusted beyond
// that — the freshly-built manifest is what becomes authoritative again).
func bootstrapManifest(dir, conversationID string, versions []int) (*Manifest, error) {
	manifest := &Manifest{
		ConversationID: conversationID,
		Versions:       map[string]*ManifestVersion{},
	}
	if len(versions) == 0 {
		return manifest, nil
	}
	latest := versions[len(versions)-1]
	manifest.LatestVersion = latest
	for i, v := range versions {
		entry := &ManifestVersion{
			IsLatest: v == latest,
		}
		if quality, createdAt, err := readArchiveLifecycleHint(dir, v); err == nil {
			entry.QualityLevel = quality
			entry.CreatedAt = createdAt
		}
		if v == latest {
			entry.Status = "active"
			entry.StorageLocation = "hot"
		} else {
			entry.Status = "superseded"
			entry.StorageLocation = "cold"
		}
		if i > 0 {
			prev := versions[i-1]
			entry.PreviousVersion = intPtr(prev)
			entry.SupersedesVersion = intPtr(prev)
		}
		if i+1 < len(versions) {
			next := versions[i+1]
			entry.SupersededByVersion = intPtr(next)
		}
		manifest.Versions[strconv.Itoa(v)] = entry
	}
	return manifest, nil
}

// readArchiveLifecycleHint reads just the quality_level/created_at fields
// of an archive file without paying for a full Archive unmarshal, used only
// to seed a bootstrapped manifest entry with plausible values.
func readArchiveLifecycleHint(dir string, version int) (QualityLevel, time.Time, error) {
	path := filepath.Join(dir, archiveFileName(version))
	data, err := os.ReadFile(path)
	if err != nil {
		return "", time.Time{}, err
	}
	var hint struct {
		QualityLevel QualityLevel `json:"quality_level"`
		CreatedAt    time.Time    `json:"created_at"`
	}
	if err := json.Unmarshal(data, &hint); err != nil {
		return "", time.Time{}, err
	}
	return hint.QualityLevel, hint.CreatedAt, nil
}
