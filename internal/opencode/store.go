package opencode

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/mojoassistant/mojoassistant/internal/apperr"
)

const (
	stateFileName = "opencode-state.json"
	serversFileName = "opencode-mcp-tool-servers.json"
)

// writeJSONAtomic mirrors the write-tmp/fsync/rename discipline used by the
// dreaming and scheduler stores: a reader never observes a half-written
// state file.
func writeJSONAtomic(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return apperr.Wrap(apperr.KindState, "creating opencode state directory", err, nil)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "marshalling opencode state", err, nil)
	}
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return apperr.Wrap(apperr.KindState, "opening temp opencode state file", err, nil)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return apperr.Wrap(apperr.KindState, "writing temp opencode state file", err, nil)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return apperr.Wrap(apperr.KindState, "fsyncing temp opencode state file", err, nil)
	}
	if err := f.Close(); err != nil {
		return apperr.Wrap(apperr.KindState, "closing temp opencode state file", err, nil)
	}
	if err := os.Rename(tmp, path); err != nil {
		return apperr.Wrap(apperr.KindState, "renaming opencode state file into place", err, nil)
	}
	return nil
}

// loadState reads opencode-state.json, tolerating a missing file (fresh
// install) and migrating legacy records that predate a field (see
// migrateLegacy).
func loadState(path string) (*state, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return newState(), nil
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindState, "reading opencode state file", err, nil)
	}
	var st state
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, apperr.Wrap(apperr.KindState, "parsing opencode state file", err, nil)
	}
	if st.Projects == nil {
		st.Projects = map[string]*Project{}
	}
	if st.Sandboxes == nil {
		st.Sandboxes = map[string][]*Sandbox{}
	}
	migrateLegacy(&st)
	return &st, nil
}

// migrateLegacy backfills fields added after a project record was first
// persisted. Currently it fills an empty GitURL from the record's registry
// key; the next field addition hooks in here rather than hand-patching
// every call site.
func migrateLegacy(st *state) {
	for url, p := range st.Projects {
		if p.GitURL == "" {
			p.GitURL = url
		}
	}
}

func saveState(path string, st *state) error {
	return writeJSONAtomic(path, st)
}

// writeServersFile persists the gateway-facing view of active backends
// separately from the manager's full state: opencode-state.json vs the
// gateway's own server list.
func writeServersFile(path string, servers []ServerEntry) error {
	return writeJSONAtomic(path, struct {
		Servers []ServerEntry `json:"servers"`
	}{Servers: servers})
}
