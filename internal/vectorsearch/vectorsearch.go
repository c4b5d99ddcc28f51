// Package vectorsearch ranks stored embeddings against a query vector.
package vectorsearch

import (
	"math"
	"sort"
)

// Match is one ranked hit. ID is the caller's identifier for the vector.
type Match struct {
	ID    uint
	Score float64
}

// Index returns the k entries most similar to query, best first.
type Index interface {
	Search(query []float32, k int) []Match
}

// CosineSimilarity returns dot(a,b)/(|a||b|). It is 0 when the lengths differ
// or either vector has zero magnitude.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

type entry struct {
	id  uint
	vec []float32
}

// FlatIndex is a brute-force index: every search scores every entry.
type FlatIndex struct {
	entries []entry
}

func NewFlatIndex(capacity int) *FlatIndex {
	return &FlatIndex{entries: make([]entry, 0, capacity)}
}

func (f *FlatIndex) Add(id uint, vec []float32) {
	f.entries = append(f.entries, entry{id: id, vec: vec})
}

func (f *FlatIndex) Len() int {
	return len(f.entries)
}

// Search scores all entries and returns the top min(k, Len()) by descending
// score. Equal scores are ordered by ascending ID.
func (f *FlatIndex) Search(query []float32, k int) []Match {
	if k <= 0 || len(f.entries) == 0 {
		return nil
	}
	matches := make([]Match, len(f.entries))
	for i, e := range f.entries {
		matches[i] = Match{ID: e.id, Score: CosineSimilarity(query, e.vec)}
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].ID < matches[j].ID
	})
	if k < len(matches) {
		matches = matches[:k]
	}
	return matches
}
