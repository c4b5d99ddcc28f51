package app

import (
	"strings"
	"unicode/utf8"
)

const defaultChunkSize = 1000

// ChunkText splits text on whitespace and packs words into chunks. A word joins
// the current chunk while length+len(word)+1 <= size; a new chunk starts at
// len(word). A word longer than size becomes a chunk of its own.
func ChunkText(text string, size int) []string {
	if size <= 0 {
		size = defaultChunkSize
	}
	var (
		chunks  []string
		current []string
		length  int
	)
	for _, word := range strings.Fields(text) {
		n := utf8.RuneCountInString(word) + 1
		if length+n <= size {
			current = append(current, word)
			length += n
			continue
		}
		if len(current) > 0 {
			chunks = append(chunks, strings.Join(current, " "))
		}
		current = []string{word}
		length = n - 1
	}
	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, " "))
	}
	return chunks
}
