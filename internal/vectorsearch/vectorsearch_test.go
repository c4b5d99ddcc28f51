package vectorsearch

import (
	"math"
	"testing"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{name: "identical", a: []float32{1, 2, 3}, b: []float32{1, 2, 3}, want: 1},
		{name: "orthogonal", a: []float32{1, 0}, b: []float32{0, 1}, want: 0},
		{name: "opposite", a: []float32{1, 1}, b: []float32{-1, -1}, want: -1},
		{name: "zero query", a: []float32{0, 0}, b: []float32{1, 1}, want: 0},
		{name: "zero chunk", a: []float32{1, 1}, b: []float32{0, 0}, want: 0},
		{name: "dimension mismatch", a: []float32{1, 2}, b: []float32{1, 2, 3}, want: 0},
		{name: "empty", a: nil, b: nil, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CosineSimilarity(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Fatalf("CosineSimilarity = %v, want %v", got, tt.want)
			}
		})
	}
}

// unit returns a 2-d unit vector at the given angle so that cosine against
// (1,0) equals cos(angle).
func unit(angle float64) []float32 {
	return []float32{float32(math.Cos(angle)), float32(math.Sin(angle))}
}

func TestFlatIndexTopK(t *testing.T) {
	query := []float32{1, 0}
	for _, n := range []int{0, 1, 3, 5, 8} {
		idx := NewFlatIndex(n)
		for i := 0; i < n; i++ {
			idx.Add(uint(i+1), unit(float64(i)*0.1))
		}
		got := idx.Search(query, 5)
		want := n
		if want > 5 {
			want = 5
		}
		if len(got) != want {
			t.Fatalf("n=%d: got %d results, want %d", n, len(got), want)
		}
		for i := 1; i < len(got); i++ {
			if !(got[i-1].Score > got[i].Score) {
				t.Fatalf("n=%d: scores not strictly descending at %d: %+v", n, i, got)
			}
		}
		if n > 0 && got[0].ID != 1 {
			t.Fatalf("n=%d: best match should be id 1, got %d", n, got[0].ID)
		}
	}
}

func TestFlatIndexTiesBreakOnID(t *testing.T) {
	idx := NewFlatIndex(3)
	idx.Add(9, []float32{1, 0})
	idx.Add(2, []float32{1, 0})
	idx.Add(5, []float32{0, 1})
	got := idx.Search([]float32{1, 0}, 3)
	if got[0].ID != 2 || got[1].ID != 9 || got[2].ID != 5 {
		t.Fatalf("unexpected order: %+v", got)
	}
}
