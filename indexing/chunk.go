package indexing

import "strings"

// DefaultChunkSize is the maximum chunk length in characters.
const DefaultChunkSize = 1000

// Chunk splits content into pieces of at most size characters. A piece that
// would end mid-text is cut at its last space instead, and that space is
// dropped. Pieces without a space are cut hard at size.
func Chunk(content string, size int) []string {
	if size <= 0 {
		size = DefaultChunkSize
	}
	runes := []rune(content)
	if len(runes) <= size {
		return []string{content}
	}

	var chunks []string
	start := 0
	for start < len(runes) {
		end := min(start+size, len(runes))
		next := end
		if end < len(runes) {
			if i := lastSpace(runes[start:end]); i > 0 {
				end = start + i
				next = end + 1
			}
		}
		if piece := string(runes[start:end]); strings.TrimSpace(piece) != "" {
			chunks = append(chunks, piece)
		}
		start = next
	}
	return chunks
}

func lastSpace(runes []rune) int {
	for i := len(runes) - 1; i >= 0; i-- {
		if runes[i] == ' ' {
			return i
		}
	}
	return -1
}
