package logging

import (
	"testing"
	"time"

	"go.uber.org/zap/zapcore"
)

func TestClassificationMetrics_MarshalLogObject(t *testing.T) {
	tests := []struct {
		name    string
		metrics ClassificationMetrics
		want    map[string]interface{}
		absent  []string
	}{
		{
			name: "with candidates",
			metrics: ClassificationMetrics{
				RequestID:      "abc",
				Source:         "cat.jpg",
				Candidates:     5,
				TopClass:       281,
				TopName:        "tabby",
				TopProbability: 0.5,
				Duration:       1250 * time.Millisecond,
			},
			want: map[string]interface{}{
				"request_id":      "abc",
				"source":          "cat.jpg",
				"candidates":      5,
				"top_class":       281,
				"top_name":        "tabby",
				"top_probability": float32(0.5),
				"duration_ms":     int64(1250),
			},
		},
		{
			name:    "empty result",
			metrics: ClassificationMetrics{RequestID: "r", Source: "memory"},
			want: map[string]interface{}{
				"request_id":  "r",
				"candidates":  0,
				"duration_ms": int64(0),
			},
			absent: []string{"top_class", "top_name", "top_probability"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc := zapcore.NewMapObjectEncoder()
			if err := tt.metrics.MarshalLogObject(enc); err != nil {
				t.Fatalf("MarshalLogObject() error: %v", err)
			}
			for k, want := range tt.want {
				if got := enc.Fields[k]; got != want {
					t.Errorf("%s = %#v, want %#v", k, got, want)
				}
			}
			for _, k := range tt.absent {
				if _, ok := enc.Fields[k]; ok {
					t.Errorf("unexpected key %s", k)
				}
			}
		})
	}
}

func TestClassificationFields(t *testing.T) {
	field := ClassificationFields(ClassificationMetrics{RequestID: "x"})
	if field.Key != "classification" || field.Type != zapcore.ObjectMarshalerType {
		t.Errorf("field = %+v", field)
	}
}

func TestModelFields(t *testing.T) {
	fields := ModelFields(10, 12, 3)
	enc := zapcore.NewMapObjectEncoder()
	for _, f := range fields {
		f.AddTo(enc)
	}
	if enc.Fields["classes"] != int64(10) || enc.Fields["outputs"] != int64(12) || enc.Fields["top"] != int64(3) {
		t.Errorf("fields = %v", enc.Fields)
	}
}
