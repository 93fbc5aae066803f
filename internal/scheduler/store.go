package scheduler

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/mojoassistant/mojoassistant/internal/apperr"
)

const tasksFileName = "scheduler_tasks.json"

// writeJSONAtomic mirrors internal/memory and internal/dreaming's
// write-tmp-fsync-rename persistence discipline.
func writeJSONAtomic(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return apperr.Wrap(apperr.KindState, "failed to create scheduler data directory", err, map[string]any{"path": path})
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return apperr.Wrap(apperr.KindState, "failed to marshal scheduler state", err, nil)
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

// loadTaskFile reads scheduler_tasks.json, tolerating a missing file (fresh
// start) the way the teacher's LoadCronStore tolerates a missing/invalid
// store rather than failing startup.
func loadTaskFile(path string) (*taskFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &taskFile{Version: 1, Tasks: []*Task{}}, nil
		}
		return nil, apperr.Wrap(apperr.KindState, "failed to read scheduler task file", err, map[string]any{"path": path})
	}
	var tf taskFile
	if err := json.Unmarshal(data, &tf); err != nil {
		return nil, apperr.Wrap(apperr.KindState, "failed to parse scheduler task file", err, map[string]any{"path": path})
	}
	if tf.Version == 0 {
		tf.Version = 1
	}
	if tf.Tasks == nil {
		tf.Tasks = []*Task{}
	}
	return &tf, nil
}

func saveTaskFile(path string, tf *taskFile) error {
	if tf.Version == 0 {
		tf.Version = 1
	}
	return writeJSONAtomic(path, tf)
}
