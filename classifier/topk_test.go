package classifier

import (
	"math"
	"math/rand"
	"reflect"
	"sort"
	"testing"
)

func TestTopK(t *testing.T) {
	nan := float32(math.NaN())
	tests := []struct {
		name   string
		values []float32
		k      int
		want   []int
	}{
		{"single", []float32{0.1, 0.7, 0.2}, 1, []int{1}},
		{"ordered", []float32{0.1, 0.7, 0.2}, 3, []int{1, 2, 0}},
		{"ties by index", []float32{0.25, 0.25, 0.25, 0.25}, 3, []int{0, 1, 2}},
		{"ties mixed", []float32{0.1, 0.4, 0.1, 0.4}, 4, []int{1, 3, 0, 2}},
		{"k larger than n", []float32{0.3, 0.6}, 5, []int{1, 0}},
		{"k zero", []float32{0.3, 0.6}, 0, nil},
		{"empty", nil, 2, nil},
		{"nan last", []float32{nan, 0.1, 0.2}, 3, []int{2, 1, 0}},
		{"negative values", []float32{-3, -1, -2}, 2, []int{1, 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TopK(tt.values, tt.k)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("TopK(%v, %d) = %v, want %v", tt.values, tt.k, got, tt.want)
			}
		})
	}
}

// TestTopK_MatchesSort compares against a full stable sort.
func TestTopK_MatchesSort(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	values := make([]float32, 1000)
	for i := range values {
		// Coarse buckets force plenty of ties.
		values[i] = float32(rng.Intn(50)) / 50
	}

	order := make([]int, len(values))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return values[order[a]] > values[order[b]]
	})

	for _, k := range []int{1, 5, 100, 1000} {
		got := TopK(values, k)
		if !reflect.DeepEqual(got, order[:k]) {
			t.Errorf("TopK(k=%d) differs from sorted order", k)
		}
	}
}

func BenchmarkTopK(b *testing.B) {
	rng := rand.New(rand.NewSource(1))
	values := make([]float32, 21843)
	for i := range values {
		values[i] = rng.Float32()
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		TopK(values, 5)
	}
}
