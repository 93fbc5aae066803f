package memory

// chunkSize and chunkOverlap bound Knowledge Base chunking in runes, chosen
// to keep individual chunks well inside typical embedding context windows.
const (
	chunkSize    = 1200
	chunkOverlap = 200
)

// chunkText splits content into overlapping windows, grounded on the
// budget-loop style used pack-wide for truncating long text into bounded
// pieces: walk forward by (chunkSize - chunkOverlap) runes at a time, never
// emitting an empty tail chunk.
func chunkText(content string) []string {
	runes := []rune(content)
	if len(runes) == 0 {
		return nil
	}
	if len(runes) <= chunkSize {
		return []string{content}
	}

	stride := chunkSize - chunkOverlap
	if stride <= 0 {
		stride = chunkSize
	}

	var chunks []string
	for start := 0; start < len(runes); start += stride {
		end := start + chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return chunks
}
