// Package metrics aggregates prediction outcomes for the /metrics endpoint.
// This file contains the snapshot types, which carry no behavior.
package metrics

import "time"

// Snapshot is a point-in-time view of prediction activity.
type Snapshot struct {
	// TotalPredictions counts successful and failed predict calls
	TotalPredictions int64 `json:"total_predictions"`

	// TotalSuccess is the count of predictions that produced candidates
	TotalSuccess int64 `json:"total_success"`

	// TotalErrors is the count of predict calls that returned an error
	TotalErrors int64 `json:"total_errors"`

	// BySource splits the counts by image source ("memory" or "file")
	BySource map[string]*SourceMetrics `json:"by_source"`

	// ErrorsByKind counts failures by error category
	ErrorsByKind map[string]int64 `json:"errors_by_kind"`

	// TopClasses are the classes most often ranked first, most frequent first
	TopClasses []ClassCount `json:"top_classes"`

	// LastPrediction is the time of the most recent call (zero if none)
	LastPrediction time.Time `json:"last_prediction,omitempty"`

	// Uptime is the time since the store was created
	Uptime time.Duration `json:"uptime"`

	// Version is the application version string
	Version string `json:"version"`
}

// SourceMetrics are the statistics for one image source.
type SourceMetrics struct {
	// Count is the number of predict calls from this source
	Count int64 `json:"count"`

	// SuccessRate is the percentage of successful calls (0-100)
	SuccessRate float64 `json:"success_rate"`

	// AvgDuration is the mean duration of successful calls
	AvgDuration time.Duration `json:"avg_duration"`

	// MaxDuration is the slowest successful call
	MaxDuration time.Duration `json:"max_duration"`
}

// ClassCount is how often a class was the top candidate.
type ClassCount struct {
	ClassID int    `json:"class_id"`
	Name    string `json:"name"`
	Count   int64  `json:"count"`
}

// Source labels
const (
	SourceMemory = "memory"
	SourceFile   = "file"
)

// Error kinds
const (
	ErrorKindImage     = "image"
	ErrorKindInference = "inference"
	ErrorKindClosed    = "closed"
	ErrorKindOther     = "other"
)
