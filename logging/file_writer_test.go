package logging

import (
	"os"
	"path/filepath"
	"testing"
)

func TestApplyFileWriterDefaults(t *testing.T) {
	tests := []struct {
		name string
		in   FileWriterConfig
		want FileWriterConfig
	}{
		{
			name: "zero values",
			in:   FileWriterConfig{},
			want: FileWriterConfig{MaxSizeMB: DefaultMaxSizeMB, MaxBackups: DefaultMaxBackups, MaxAgeDays: DefaultMaxAgeDays},
		},
		{
			name: "explicit values kept",
			in:   FileWriterConfig{MaxSizeMB: 1, MaxBackups: 2, MaxAgeDays: 3, Compress: true, LocalTime: true},
			want: FileWriterConfig{MaxSizeMB: 1, MaxBackups: 2, MaxAgeDays: 3, Compress: true, LocalTime: true},
		},
		{
			name: "negative values replaced",
			in:   FileWriterConfig{MaxSizeMB: -5, MaxBackups: 1},
			want: FileWriterConfig{MaxSizeMB: DefaultMaxSizeMB, MaxBackups: 1, MaxAgeDays: DefaultMaxAgeDays},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := applyFileWriterDefaults(tt.in); got != tt.want {
				t.Errorf("applyFileWriterDefaults() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestNewFileWriter(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "rotate.log")
	writer := NewFileWriter(logPath)

	if _, err := writer.Write([]byte("line\n")); err != nil {
		t.Fatalf("Write() error: %v", err)
	}
	if err := writer.Sync(); err != nil {
		t.Fatalf("Sync() error: %v", err)
	}

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("ReadFile() error: %v", err)
	}
	if string(data) != "line\n" {
		t.Errorf("file content = %q", data)
	}
}
