package webui

import (
	"sync"

	"classifier_backend/session"
)

// RingBuffer is a fixed-size FIFO that overwrites its oldest entry when full.
// It is safe for concurrent use.
type RingBuffer[T any] struct {
	mu   sync.RWMutex
	data []T
	head int // next write position
	size int
}

// NewRingBuffer creates a buffer holding up to capacity items.
// It panics if capacity is less than 1.
func NewRingBuffer[T any](capacity int) *RingBuffer[T] {
	if capacity < 1 {
		panic("RingBuffer capacity must be at least 1")
	}
	return &RingBuffer[T]{data: make([]T, capacity)}
}

// Push appends item, evicting the oldest entry if the buffer is full.
func (b *RingBuffer[T]) Push(item T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.data[b.head] = item
	b.head = (b.head + 1) % len(b.data)
	if b.size < len(b.data) {
		b.size++
	}
}

// Newest returns up to n items, most recent first. n <= 0 returns all items.
func (b *RingBuffer[T]) Newest(n int) []T {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if n <= 0 || n > b.size {
		n = b.size
	}
	out := make([]T, n)
	for i := 0; i < n; i++ {
		out[i] = b.data[(b.head-1-i+2*len(b.data))%len(b.data)]
	}
	return out
}

// Size returns the number of items held.
func (b *RingBuffer[T]) Size() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.size
}

// Capacity returns the maximum number of items.
func (b *RingBuffer[T]) Capacity() int {
	return len(b.data)
}

// RecentPredictions keeps the last predictions in memory for /recent.
// It implements session.Recorder.
type RecentPredictions struct {
	buf *RingBuffer[session.Prediction]
}

// NewRecentPredictions keeps up to capacity predictions.
func NewRecentPredictions(capacity int) *RecentPredictions {
	return &RecentPredictions{buf: NewRingBuffer[session.Prediction](capacity)}
}

// RecordPrediction implements session.Recorder.
func (r *RecentPredictions) RecordPrediction(p session.Prediction) error {
	r.buf.Push(p)
	return nil
}

// Newest returns up to n predictions, most recent first.
func (r *RecentPredictions) Newest(n int) []session.Prediction {
	return r.buf.Newest(n)
}
