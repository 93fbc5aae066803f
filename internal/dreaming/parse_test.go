package dreaming

import "testing"

func TestTryParsePassesStrictJSON(t *testing.T) {
	items, ok := tryParsePasses(`{"chunks": [{"text": "hi"}]}`, "chunks")
	if !ok || len(items) != 1 {
		t.Fatalf("expected one item from strict JSON, got %v ok=%v", items, ok)
	}
}

func TestTryParsePassesBareArray(t *testing.T) {
	items, ok := tryParsePasses(`[{"text": "a"}, {"text": "b"}]`, "chunks")
	if !ok || len(items) != 2 {
		t.Fatalf("expected two items from a bare array, got %v ok=%v", items, ok)
	}
}

func TestTryParsePassesFencedJSON(t *testing.T) {
	text := "```json\n{\"clusters\": [{\"kind\": \"TOPIC\"}]}\n```"
	items, ok := tryParsePasses(text, "clusters")
	if !ok || len(items) != 1 {
		t.Fatalf("expected one item after stripping fences, got %v ok=%v", items, ok)
	}
}

func TestTryParsePassesProseWrappedJSON(t *testing.T) {
	text := "Sure, here you go:\n{\"chunks\": [{\"text\": \"x\"}]}\nLet me know if you need anything else."
	items, ok := tryParsePasses(text, "chunks")
	if !ok || len(items) != 1 {
		t.Fatalf("expected bracket scan to recover the embedded object, got %v ok=%v", items, ok)
	}
}

func TestTryParsePassesDataWrapper(t *testing.T) {
	items, ok := tryParsePasses(`{"data": {"chunks": [{"text": "a"}]}}`, "chunks")
	if !ok || len(items) != 1 {
		t.Fatalf("expected data.chunks normalization to succeed, got %v ok=%v", items, ok)
	}
}

func TestTryParsePassesItemsWrapper(t *testing.T) {
	items, ok := tryParsePasses(`{"items": [{"text": "a"}, {"text": "b"}, {"text": "c"}]}`, "chunks")
	if !ok || len(items) != 3 {
		t.Fatalf("expected items wrapper normalization to succeed, got %v ok=%v", items, ok)
	}
}

func TestTryParsePassesUnrecoverableGarbage(t *testing.T) {
	_, ok := tryParsePasses("this is not json at all, sorry", "chunks")
	if ok {
		t.Fatalf("expected non-JSON prose to fail all three passes")
	}
}

func TestApplyChunkDefaultsFillsMissingFields(t *testing.T) {
	out := applyChunkDefaults(`{"text": "hi"}`)
	var c Chunk
	if err := decodeJSON(out, &c); err != nil {
		t.Fatalf("expected defaulted chunk to decode cleanly: %v", err)
	}
	if c.Confidence != 0.5 {
		t.Fatalf("expected default confidence 0.5, got %v", c.Confidence)
	}
	if c.Language != "en" {
		t.Fatalf("expected default language en, got %q", c.Language)
	}
	if c.Entities == nil {
		t.Fatalf("expected default entities to be an empty slice, not nil")
	}
}

func TestApplyClusterDefaultsNormalizesUnknownKind(t *testing.T) {
	out := applyClusterDefaults(`{"summary_text": "x", "kind": "bogus"}`)
	var c Cluster
	if err := decodeJSON(out, &c); err != nil {
		t.Fatalf("expected defaulted cluster to decode cleanly: %v", err)
	}
	if c.Kind != ClusterSummary {
		t.Fatalf("expected unknown kind to default to SUMMARY, got %q", c.Kind)
	}
	if c.MemberChunkIDs == nil {
		t.Fatalf("expected default member_chunk_ids to be an empty slice, not nil")
	}
}

func TestApplyClusterDefaultsPreservesKnownKind(t *testing.T) {
	out := applyClusterDefaults(`{"summary_text": "x", "kind": "topic"}`)
	var c Cluster
	if err := decodeJSON(out, &c); err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}
	if c.Kind != ClusterTopic {
		t.Fatalf("expected kind to be upper-cased to TOPIC, got %q", c.Kind)
	}
}

func TestBracketScanSkipsBracesInsideStrings(t *testing.T) {
	text := `noise {"a": "contains a } brace"} trailing`
	cand, ok := bracketScan(text)
	if !ok {
		t.Fatalf("expected bracket scan to find the balanced object")
	}
	var v map[string]any
	if err := decodeJSON(cand, &v); err != nil {
		t.Fatalf("expected recovered candidate to be valid JSON: %v", err)
	}
}
