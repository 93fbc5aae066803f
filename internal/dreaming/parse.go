package dreaming

import (
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	json5 "github.com/yosuke-furukawa/json5/encoding/json5"
)

// stripFences removes a single leading/trailing markdown code fence
// (``` or ```json) around a model response, the shape every provider in
// the pack's posture reaches for before attempting a strict parse.
func stripFences(s string) string {
	t := strings.TrimSpace(s)
	if !strings.HasPrefix(t, "```") {
		return t
	}
	if idx := strings.IndexByte(t, '\n'); idx >= 0 {
		t = t[idx+1:]
	} else {
		return t
	}
	if idx := strings.LastIndex(t, "```"); idx >= 0 {
		t = t[:idx]
	}
	return strings.TrimSpace(t)
}

// bracketScan is pass 2: a bracket-depth scan that finds the first balanced
// JSON object/array in mixed prose, skipping characters inside quoted
// strings so braces that appear in ordinary text don't desynchronize depth.
func bracketScan(s string) (string, bool) {
	inString := false
	escape := false
	start := -1
	depth := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			if escape {
				escape = false
				continue
			}
			if c == '\\' {
				escape = true
				continue
			}
			if c == '"' {
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{', '[':
			if start == -1 {
				start = i
			}
			depth++
		case '}', ']':
			if depth > 0 {
				depth--
				if depth == 0 && start != -1 {
					candidate := s[start : i+1]
					if json.Valid([]byte(candidate)) {
						return candidate, true
					}
					start = -1
				}
			}
		}
	}
	return "", false
}

// rawDecodeAttempts is pass 3: repeated raw-decode attempts at every opening
// brace/bracket, relying on json.Decoder stopping at the end of the first
// well-formed value even when trailing prose follows it.
func rawDecodeAttempts(s string) (string, bool) {
	for i := 0; i < len(s); i++ {
		if s[i] != '{' && s[i] != '[' {
			continue
		}
		dec := json.NewDecoder(strings.NewReader(s[i:]))
		var raw json.RawMessage
		if err := dec.Decode(&raw); err == nil && len(raw) > 0 {
			return string(raw), true
		}
	}
	return "", false
}

// normalizeArray accepts several LLM-output shapes for the same list: a
// bare array, `{key: [...]}`, `{data: {key: [...]}}`, or `{items: [...]}`.
func normalizeArray(jsonText string, key string) ([]gjson.Result, bool) {
	root := gjson.Parse(jsonText)
	if root.IsArray() {
		return root.Array(), true
	}
	if v := root.Get(key); v.Exists() && v.IsArray() {
		return v.Array(), true
	}
	if v := root.Get("data." + key); v.Exists() && v.IsArray() {
		return v.Array(), true
	}
	if v := root.Get("items"); v.Exists() && v.IsArray() {
		return v.Array(), true
	}
	return nil, false
}

// tryParsePasses runs passes 1-3 of the four-pass resilient parser against a
// single piece of raw model output, returning the normalized array items
// the first pass that both parses and normalizes produces.
func tryParsePasses(text string, key string) ([]gjson.Result, bool) {
	if t := stripFences(text); json.Valid([]byte(t)) {
		if items, ok := normalizeArray(t, key); ok {
			return items, true
		}
		// Even a strictly-valid payload might use a variant shape gjson
		// couldn't match (e.g. a top-level scalar); fall through to the
		// scan-based passes rather than giving up.
	}
	if cand, ok := bracketScan(text); ok {
		if items, ok2 := normalizeArray(cand, key); ok2 {
			return items, true
		}
	}
	if cand, ok := rawDecodeAttempts(text); ok {
		if items, ok2 := normalizeArray(cand, key); ok2 {
			return items, true
		}
	}
	return nil, false
}

// applyChunkDefaults fills fields a chunk object may omit before strict
// unmarshal, using sjson to patch the raw JSON rather than hand-rolling a
// second permissive struct.
func applyChunkDefaults(raw string) string {
	out := raw
	if !gjson.Get(out, "confidence").Exists() {
		if patched, err := sjson.Set(out, "confidence", 0.5); err == nil {
			out = patched
		}
	}
	if !gjson.Get(out, "language").Exists() {
		if patched, err := sjson.Set(out, "language", "en"); err == nil {
			out = patched
		}
	}
	if !gjson.Get(out, "entities").Exists() {
		if patched, err := sjson.SetRaw(out, "entities", "[]"); err == nil {
			out = patched
		}
	}
	return out
}

// applyClusterDefaults mirrors applyChunkDefaults for C-stage clusters.
func applyClusterDefaults(raw string) string {
	out := raw
	if !gjson.Get(out, "confidence").Exists() {
		if patched, err := sjson.Set(out, "confidence", 0.5); err == nil {
			out = patched
		}
	}
	kind := strings.ToUpper(strings.TrimSpace(gjson.Get(out, "kind").String()))
	switch ClusterKind(kind) {
	case ClusterTopic, ClusterRelationship, ClusterTimeline, ClusterSummary:
		if patched, err := sjson.Set(out, "kind", kind); err == nil {
			out = patched
		}
	default:
		if patched, err := sjson.Set(out, "kind", string(ClusterSummary)); err == nil {
			out = patched
		}
	}
	if !gjson.Get(out, "member_chunk_ids").Exists() {
		if patched, err := sjson.SetRaw(out, "member_chunk_ids", "[]"); err == nil {
			out = patched
		}
	}
	return out
}

// resultItem wraps one normalized array element as its raw JSON text, ready
// for default-patching and typed unmarshal by the caller.
type resultItem struct {
	Raw string
}

func toResultItems(results []gjson.Result) []resultItem {
	items := make([]resultItem, 0, len(results))
	for _, r := range results {
		items = append(items, resultItem{Raw: r.Raw})
	}
	return items
}

// decodeJSON is a thin encoding/json.Unmarshal wrapper kept in one place so
// every typed-struct decode in this package goes through the same call.
func decodeJSON(raw string, v any) error {
	return json.Unmarshal([]byte(raw), v)
}

// json5Valid reports whether s parses under the more tolerant json5 grammar
// (trailing commas, unquoted keys) even when strict encoding/json would
// reject it. Used only as a diagnostic hint when all four passes fail, to
// distinguish "not JSON at all" from "nearly JSON".
func json5Valid(s string) bool {
	var v any
	return json5.Unmarshal([]byte(s), &v) == nil
}
