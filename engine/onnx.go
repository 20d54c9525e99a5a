//go:build onnx

package engine

import (
	"errors"
	"fmt"
	"os"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

var ortInit sync.Once
var ortInitErr error

func initRuntime(sharedLibrary string) error {
	ortInit.Do(func() {
		if sharedLibrary != "" {
			ort.SetSharedLibraryPath(sharedLibrary)
		} else if p := os.Getenv("ONNXRUNTIME_SHARED_LIBRARY_PATH"); p != "" {
			ort.SetSharedLibraryPath(p)
		}
		if !ort.IsInitialized() {
			ortInitErr = ort.InitializeEnvironment()
		}
	})
	return ortInitErr
}

// onnxNetwork runs an ONNX model with fixed [1,C,H,W] input and [1,outputs]
// output tensors.
type onnxNetwork struct {
	h       *handle
	desc    *Descriptor
	tree    *Tree
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
	mean    []float32
	std     []float32
}

func loadONNX(desc *Descriptor, tree *Tree, weightsPath string) (Network, error) {
	if _, err := os.Stat(weightsPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrWeightsNotFound, weightsPath)
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrWeightsInvalid, weightsPath, err)
	}
	if err := initRuntime(desc.SharedLibrary); err != nil {
		return nil, fmt.Errorf("%w: onnxruntime: %v", ErrBackendUnavailable, err)
	}

	input, err := ort.NewEmptyTensor[float32](ort.NewShape(1,
		int64(desc.Channels), int64(desc.Height), int64(desc.Width)))
	if err != nil {
		return nil, fmt.Errorf("engine: create input tensor: %w", err)
	}
	output, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(desc.Outputs)))
	if err != nil {
		input.Destroy()
		return nil, fmt.Errorf("engine: create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(weightsPath,
		[]string{desc.InputName}, []string{desc.OutputName},
		[]ort.Value{input}, []ort.Value{output}, nil)
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, fmt.Errorf("%w: %s: %v", ErrWeightsInvalid, weightsPath, err)
	}

	mean, std := desc.normalization()
	return &onnxNetwork{
		h:       acquireHandle(),
		desc:    desc,
		tree:    tree,
		session: session,
		input:   input,
		output:  output,
		mean:    mean,
		std:     std,
	}, nil
}

func (n *onnxNetwork) InputSize() (int, int, int) {
	return n.desc.Width, n.desc.Height, n.desc.Channels
}

func (n *onnxNetwork) Outputs() int {
	return n.desc.Outputs
}

func (n *onnxNetwork) Hierarchy() []int {
	if n.tree == nil {
		return nil
	}
	return n.tree.Parents
}

func (n *onnxNetwork) Forward(input []float32) ([]float32, error) {
	if n.h.isReleased() {
		return nil, ErrHandleReleased
	}
	if len(input) != n.desc.Inputs() {
		return nil, fmt.Errorf("%w: got %d values, want %d", ErrInputMismatch, len(input), n.desc.Inputs())
	}

	dst := n.input.GetData()
	plane := n.desc.Width * n.desc.Height
	for c := 0; c < n.desc.Channels; c++ {
		for i := c * plane; i < (c+1)*plane; i++ {
			dst[i] = (input[i] - n.mean[c]) / n.std[c]
		}
	}

	if err := n.session.Run(); err != nil {
		return nil, fmt.Errorf("engine: onnx run: %w", err)
	}

	out := append([]float32(nil), n.output.GetData()...)
	if n.desc.Softmax {
		Softmax(out)
	}
	return out, nil
}

func (n *onnxNetwork) Close() error {
	if !n.h.release() {
		return nil
	}
	var errs []error
	if n.session != nil {
		errs = append(errs, n.session.Destroy())
	}
	if n.input != nil {
		errs = append(errs, n.input.Destroy())
	}
	if n.output != nil {
		errs = append(errs, n.output.Destroy())
	}
	return errors.Join(errs...)
}
