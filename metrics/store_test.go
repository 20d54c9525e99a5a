package metrics

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"classifier_backend/classifier"
	"classifier_backend/session"
)

func prediction(source string, classID int, name string, d time.Duration) session.Prediction {
	return session.Prediction{
		RequestID:  "req",
		Source:     source,
		Candidates: classifier.CandidateList{{ClassID: classID, Probability: 0.9}},
		Names:      []string{name},
		Duration:   d,
		CreatedAt:  time.Now(),
	}
}

func TestNewStore(t *testing.T) {
	t.Run("empty snapshot", func(t *testing.T) {
		store := NewStore(DefaultStoreConfig(), time.Now())
		snap := store.Snapshot(5)

		if snap.TotalPredictions != 0 || snap.TotalErrors != 0 {
			t.Errorf("expected zero counts, got %+v", snap)
		}
		if len(snap.TopClasses) != 0 {
			t.Errorf("expected empty top classes, got %v", snap.TopClasses)
		}
		if snap.Version != "dev" {
			t.Errorf("expected version dev, got %s", snap.Version)
		}
	})

	t.Run("uptime from start time", func(t *testing.T) {
		store := NewStore(StoreConfig{Version: "1.2.3"}, time.Now().Add(-time.Hour))
		snap := store.Snapshot(0)
		if snap.Uptime < time.Hour {
			t.Errorf("expected uptime >= 1h, got %v", snap.Uptime)
		}
		if snap.Version != "1.2.3" {
			t.Errorf("expected version 1.2.3, got %s", snap.Version)
		}
	})
}

func TestStore_RecordPrediction(t *testing.T) {
	store := NewStore(DefaultStoreConfig(), time.Now())

	store.RecordPrediction(prediction("memory", 3, "fox", 10*time.Millisecond))
	store.RecordPrediction(prediction("memory", 3, "fox", 30*time.Millisecond))
	store.RecordPrediction(prediction("/tmp/a.png", 1, "dog", 5*time.Millisecond))

	snap := store.Snapshot(10)
	if snap.TotalSuccess != 3 || snap.TotalPredictions != 3 {
		t.Errorf("expected 3 successful predictions, got %+v", snap)
	}

	mem := snap.BySource[SourceMemory]
	if mem == nil {
		t.Fatal("expected memory source metrics")
	}
	if mem.Count != 2 || mem.SuccessRate != 100 {
		t.Errorf("expected 2 calls at 100%%, got %+v", mem)
	}
	if mem.AvgDuration != 20*time.Millisecond {
		t.Errorf("expected avg 20ms, got %v", mem.AvgDuration)
	}
	if mem.MaxDuration != 30*time.Millisecond {
		t.Errorf("expected max 30ms, got %v", mem.MaxDuration)
	}
	if file := snap.BySource[SourceFile]; file == nil || file.Count != 1 {
		t.Errorf("expected paths folded into the file source, got %+v", snap.BySource)
	}

	if len(snap.TopClasses) != 2 {
		t.Fatalf("expected 2 top classes, got %d", len(snap.TopClasses))
	}
	if got := snap.TopClasses[0]; got.ClassID != 3 || got.Name != "fox" || got.Count != 2 {
		t.Errorf("expected fox first with 2, got %+v", got)
	}
	if snap.LastPrediction.IsZero() {
		t.Error("expected LastPrediction to be set")
	}
}

func TestStore_RecordFailure(t *testing.T) {
	store := NewStore(DefaultStoreConfig(), time.Now())
	store.RecordPrediction(prediction("memory", 0, "cat", time.Millisecond))

	failures := []error{
		fmt.Errorf("%w: bad header", classifier.ErrImageLoad),
		fmt.Errorf("%w: nan", classifier.ErrInference),
		classifier.ErrClosed,
		errors.New("boom"),
		fmt.Errorf("%w: truncated", classifier.ErrImageLoad),
	}
	for _, err := range failures {
		store.RecordFailure(session.Failure{Source: "memory", Err: err, CreatedAt: time.Now()})
	}

	snap := store.Snapshot(0)
	if snap.TotalErrors != 5 || snap.TotalPredictions != 6 {
		t.Errorf("expected 5 errors of 6, got %+v", snap)
	}

	want := map[string]int64{
		ErrorKindImage:     2,
		ErrorKindInference: 1,
		ErrorKindClosed:    1,
		ErrorKindOther:     1,
	}
	for kind, n := range want {
		if snap.ErrorsByKind[kind] != n {
			t.Errorf("expected %d %s errors, got %d", n, kind, snap.ErrorsByKind[kind])
		}
	}

	mem := snap.BySource[SourceMemory]
	if mem.Count != 6 {
		t.Errorf("expected 6 memory calls, got %d", mem.Count)
	}
	if mem.SuccessRate < 16 || mem.SuccessRate > 17 {
		t.Errorf("expected success rate near 16.7, got %v", mem.SuccessRate)
	}
	if mem.AvgDuration != time.Millisecond {
		t.Errorf("expected failures excluded from avg duration, got %v", mem.AvgDuration)
	}
	if len(snap.TopClasses) != 0 {
		t.Errorf("expected no top classes for topN=0, got %v", snap.TopClasses)
	}
}

func TestStore_SnapshotTopN(t *testing.T) {
	store := NewStore(DefaultStoreConfig(), time.Now())
	for id := 0; id < 5; id++ {
		for n := 0; n <= id%3; n++ {
			store.RecordPrediction(prediction("memory", id, fmt.Sprintf("c%d", id), 0))
		}
	}

	snap := store.Snapshot(3)
	if len(snap.TopClasses) != 3 {
		t.Fatalf("expected 3 classes, got %d", len(snap.TopClasses))
	}
	// counts: 0->1 1->2 2->3 3->1 4->2; ties by ascending id
	wantIDs := []int{2, 1, 4}
	for i, want := range wantIDs {
		if snap.TopClasses[i].ClassID != want {
			t.Errorf("TopClasses[%d] = %d, want %d", i, snap.TopClasses[i].ClassID, want)
		}
	}
}

func TestStore_Concurrent(t *testing.T) {
	store := NewStore(DefaultStoreConfig(), time.Now())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				if j%5 == 0 {
					store.RecordFailure(session.Failure{Source: "memory", Err: classifier.ErrImageLoad})
					continue
				}
				store.RecordPrediction(prediction("memory", i, "", time.Microsecond))
				store.Snapshot(3)
			}
		}(i)
	}
	wg.Wait()

	snap := store.Snapshot(0)
	if snap.TotalPredictions != 400 || snap.TotalErrors != 80 {
		t.Errorf("expected 400 calls with 80 errors, got %d and %d", snap.TotalPredictions, snap.TotalErrors)
	}
}
