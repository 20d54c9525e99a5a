//go:build !onnx

package engine

import "fmt"

// loadONNX is the stub used when the binary is built without the onnx tag.
func loadONNX(desc *Descriptor, tree *Tree, weightsPath string) (Network, error) {
	return nil, fmt.Errorf("%w: %q (build with -tags onnx)", ErrBackendUnavailable, BackendONNX)
}
