package metrics

import (
	"errors"
	"sort"
	"sync"
	"time"

	"classifier_backend/classifier"
	"classifier_backend/session"
)

// Store is an in-memory Collector.
//
// Usage:
//
//	store := NewStore(DefaultStoreConfig(), time.Now())
//	m := session.NewManager(session.WithRecorder(store))
//	...
//	snap := store.Snapshot(10)
type Store struct {
	mu sync.RWMutex

	totalSuccess int64
	totalErrors  int64
	bySource     map[string]*sourceStats
	errorsByKind map[string]int64
	topClasses   map[int]*classStats
	last         time.Time

	startTime time.Time
	version   string
}

type sourceStats struct {
	count         int64
	successCount  int64
	totalDuration time.Duration
	maxDuration   time.Duration
}

type classStats struct {
	name  string
	count int64
}

// StoreConfig configures the Store.
type StoreConfig struct {
	// Version is the application version string
	Version string
}

// DefaultStoreConfig returns a default configuration.
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{Version: "dev"}
}

// NewStore creates an empty Store. startTime is used to calculate uptime.
func NewStore(config StoreConfig, startTime time.Time) *Store {
	return &Store{
		bySource:     make(map[string]*sourceStats),
		errorsByKind: make(map[string]int64),
		topClasses:   make(map[int]*classStats),
		startTime:    startTime,
		version:      config.Version,
	}
}

// sourceLabel folds file paths into one label so the map stays small.
func sourceLabel(source string) string {
	if source == SourceMemory {
		return SourceMemory
	}
	return SourceFile
}

func (s *Store) source(label string) *sourceStats {
	stats, ok := s.bySource[label]
	if !ok {
		stats = &sourceStats{}
		s.bySource[label] = stats
	}
	return stats
}

// RecordPrediction counts a successful prediction. It never fails.
func (s *Store) RecordPrediction(p session.Prediction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.totalSuccess++
	stats := s.source(sourceLabel(p.Source))
	stats.count++
	stats.successCount++
	stats.totalDuration += p.Duration
	if p.Duration > stats.maxDuration {
		stats.maxDuration = p.Duration
	}

	if len(p.Candidates) > 0 {
		id := p.Candidates[0].ClassID
		cs, ok := s.topClasses[id]
		if !ok {
			cs = &classStats{}
			s.topClasses[id] = cs
		}
		if len(p.Names) > 0 {
			cs.name = p.Names[0]
		}
		cs.count++
	}

	if p.CreatedAt.After(s.last) {
		s.last = p.CreatedAt
	}
	return nil
}

// RecordFailure counts a failed prediction.
func (s *Store) RecordFailure(f session.Failure) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.totalErrors++
	s.source(sourceLabel(f.Source)).count++
	s.errorsByKind[errorKind(f.Err)]++
	if f.CreatedAt.After(s.last) {
		s.last = f.CreatedAt
	}
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, classifier.ErrImageLoad):
		return ErrorKindImage
	case errors.Is(err, classifier.ErrInference):
		return ErrorKindInference
	case errors.Is(err, classifier.ErrClosed):
		return ErrorKindClosed
	default:
		return ErrorKindOther
	}
}

// Snapshot returns the current aggregates.
func (s *Store) Snapshot(topN int) Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		TotalPredictions: s.totalSuccess + s.totalErrors,
		TotalSuccess:     s.totalSuccess,
		TotalErrors:      s.totalErrors,
		BySource:         make(map[string]*SourceMetrics, len(s.bySource)),
		ErrorsByKind:     make(map[string]int64, len(s.errorsByKind)),
		TopClasses:       []ClassCount{},
		LastPrediction:   s.last,
		Uptime:           time.Since(s.startTime),
		Version:          s.version,
	}

	for label, stats := range s.bySource {
		m := &SourceMetrics{Count: stats.count, MaxDuration: stats.maxDuration}
		if stats.count > 0 {
			m.SuccessRate = float64(stats.successCount) / float64(stats.count) * 100
		}
		if stats.successCount > 0 {
			m.AvgDuration = stats.totalDuration / time.Duration(stats.successCount)
		}
		snap.BySource[label] = m
	}
	for kind, n := range s.errorsByKind {
		snap.ErrorsByKind[kind] = n
	}

	if topN > 0 {
		for id, cs := range s.topClasses {
			snap.TopClasses = append(snap.TopClasses, ClassCount{ClassID: id, Name: cs.name, Count: cs.count})
		}
		sort.Slice(snap.TopClasses, func(i, j int) bool {
			a, b := snap.TopClasses[i], snap.TopClasses[j]
			if a.Count != b.Count {
				return a.Count > b.Count
			}
			return a.ClassID < b.ClassID
		})
		if len(snap.TopClasses) > topN {
			snap.TopClasses = snap.TopClasses[:topN]
		}
	}
	return snap
}

// Verify Store implements Collector
var _ Collector = (*Store)(nil)
