package logging

import (
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ClassificationMetrics summarizes one predict call for structured logs.
//
// Example:
//
//	logger.Info("prediction complete", logging.ClassificationFields(logging.ClassificationMetrics{
//		RequestID:      id,
//		Source:         "cat.jpg",
//		Candidates:     5,
//		TopClass:       281,
//		TopName:        "tabby",
//		TopProbability: 0.82,
//		Duration:       35 * time.Millisecond,
//	}))
type ClassificationMetrics struct {
	RequestID      string        `json:"request_id"`
	Source         string        `json:"source"`
	Candidates     int           `json:"candidates"`
	TopClass       int           `json:"top_class"`
	TopName        string        `json:"top_name"`
	TopProbability float32       `json:"top_probability"`
	Duration       time.Duration `json:"duration"`
}

// MarshalLogObject implements zapcore.ObjectMarshaler. The top-class keys
// are omitted when there are no candidates.
func (m ClassificationMetrics) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("request_id", m.RequestID)
	enc.AddString("source", m.Source)
	enc.AddInt("candidates", m.Candidates)
	if m.Candidates > 0 {
		enc.AddInt("top_class", m.TopClass)
		enc.AddString("top_name", m.TopName)
		enc.AddFloat32("top_probability", m.TopProbability)
	}
	enc.AddInt64("duration_ms", m.Duration.Milliseconds())
	return nil
}

// ClassificationFields wraps metrics in a "classification" field.
func ClassificationFields(metrics ClassificationMetrics) zap.Field {
	return zap.Object("classification", metrics)
}

// ModelFields returns the fields logged when a model is loaded.
func ModelFields(classes, outputs, top int) []zap.Field {
	return []zap.Field{
		zap.Int("classes", classes),
		zap.Int("outputs", outputs),
		zap.Int("top", top),
	}
}
