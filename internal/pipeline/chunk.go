package pipeline

const (
	// DefaultChunkSize is the embedding chunk width in characters.
	DefaultChunkSize = 1200
	// DefaultChunkOverlap is how many characters consecutive chunks share.
	DefaultChunkOverlap = 200
)

// Chunk splits text into overlapping fixed-size windows, measured in runes
// so a window edge never splits a multi-byte character. Chunk indices are
// zero-based and dense; the last chunk may be shorter. The window always
// advances by at least one full size when the overlap would stall it, so the
// loop terminates for any input.
func Chunk(text string, size, overlap int) []string {
	if size <= 0 || len(text) == 0 {
		return nil
	}

	step := size - overlap
	if step <= 0 {
		step = size
	}

	runes := []rune(text)
	var chunks []string
	for start := 0; start < len(runes); start += step {
		end := start + size
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
