package engine

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

// writeFile writes content into dir/name and returns the path.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile(%s) failed: %v", path, err)
	}
	return path
}

// writeWeights writes a dense weights file into dir/name.
func writeWeights(t *testing.T, dir, name string, weights, bias []float32) string {
	t.Helper()
	var buf bytes.Buffer
	if err := WriteDenseWeights(&buf, weights, bias); err != nil {
		t.Fatalf("WriteDenseWeights() failed: %v", err)
	}
	return writeFile(t, dir, name, buf.String())
}
