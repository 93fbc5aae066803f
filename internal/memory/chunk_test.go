package memory

import (
	"strings"
	"testing"
)

func TestChunkTextShortContentIsOneChunk(t *testing.T) {
	chunks := chunkText("hello world")
	if len(chunks) != 1 || chunks[0] != "hello world" {
		t.Fatalf("expected a single unchanged chunk, got %+v", chunks)
	}
}

func TestChunkTextEmptyContent(t *testing.T) {
	if chunks := chunkText(""); chunks != nil {
		t.Fatalf("expected nil chunks for empty content, got %+v", chunks)
	}
}

func TestChunkTextOverlapsAndCoversAllContent(t *testing.T) {
	content := strings.Repeat("a", chunkSize*3)
	chunks := chunkText(content)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks for oversized content, got %d", len(chunks))
	}
	for _, c := range chunks {
		if len([]rune(c)) > chunkSize {
			t.Fatalf("chunk exceeds chunkSize: %d runes", len([]rune(c)))
		}
	}
	last := chunks[len(chunks)-1]
	if len([]rune(last)) == 0 {
		t.Fatalf("did not expect an empty trailing chunk")
	}
}
