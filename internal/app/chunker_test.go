package app

import (
	"reflect"
	"strings"
	"testing"
)

func TestChunkText(t *testing.T) {
	tests := []struct {
		name string
		text string
		size int
		want []string
	}{
		{name: "empty", text: "   \n\t", size: 10, want: nil},
		{name: "fits in one", text: "a bb ccc", size: 9, want: []string{"a bb ccc"}},
		// "a"=2 "bb"=3 "ccc"=4 -> 9 > 8
		{name: "boundary", text: "a bb ccc", size: 8, want: []string{"a bb", "ccc"}},
		{name: "oversized word", text: "tiny enormousword end", size: 6, want: []string{"tiny", "enormousword", "end"}},
		// a new chunk starts at len(word), so "abc abc" (3+4=7) still fits
		{name: "restart counts bare word", text: "abcdef abc abc", size: 7, want: []string{"abcdef", "abc abc"}},
		{name: "collapses whitespace", text: "one\n\ntwo\tthree", size: 100, want: []string{"one two three"}},
		{name: "counts runes", text: "héllo wörld", size: 12, want: []string{"héllo wörld"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ChunkText(tt.text, tt.size)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("ChunkText(%q, %d) = %q, want %q", tt.text, tt.size, got, tt.want)
			}
		})
	}
}

func TestChunkTextRespectsSize(t *testing.T) {
	text := strings.Repeat("lorem ipsum dolor sit amet ", 200)
	for _, c := range ChunkText(text, 50) {
		if len(c) > 50 {
			t.Fatalf("chunk exceeds size: %d %q", len(c), c)
		}
	}
}

func TestChunkTextDefaultSize(t *testing.T) {
	text := strings.Repeat("word ", 400)
	got := ChunkText(text, 0)
	if len(got) != 2 {
		t.Fatalf("expected 2 chunks at default size, got %d", len(got))
	}
}
