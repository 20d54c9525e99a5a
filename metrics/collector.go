package metrics

import "classifier_backend/session"

// Collector receives prediction outcomes and reports aggregates. It is a
// session.Recorder, so it can be installed with session.WithRecorder or
// combined with others through session.MultiRecorder.
//
// Implementations must be safe for concurrent use.
type Collector interface {
	session.Recorder
	session.FailureRecorder

	// Snapshot returns the current aggregates with at most topN entries
	// in TopClasses. topN <= 0 omits them.
	Snapshot(topN int) Snapshot
}
