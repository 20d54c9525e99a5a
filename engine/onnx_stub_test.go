//go:build !onnx

package engine

import (
	"errors"
	"testing"
)

func TestONNXBackendUnavailable(t *testing.T) {
	dir := t.TempDir()
	cfg := writeFile(t, dir, "net.yaml", "backend: onnx\nwidth: 4\noutputs: 2\n")

	_, err := Loader{}.LoadNetwork(cfg, dir+"/model.onnx")
	if !errors.Is(err, ErrBackendUnavailable) {
		t.Errorf("LoadNetwork() error = %v, want ErrBackendUnavailable", err)
	}
}
