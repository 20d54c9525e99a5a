package engine

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"gorgonia.org/tensor"
)

// denseNetwork is a single fully connected layer over the flattened input.
type denseNetwork struct {
	h       *handle
	desc    *Descriptor
	tree    *Tree
	weights *tensor.Dense // outputs x inputs
	bias    []float32
}

func loadDense(desc *Descriptor, tree *Tree, weightsPath string) (Network, error) {
	weights, bias, err := ReadDenseWeights(weightsPath, desc.Outputs, desc.Inputs())
	if err != nil {
		return nil, err
	}

	fuseNormalization(desc, weights, bias)

	return &denseNetwork{
		h:    acquireHandle(),
		desc: desc,
		tree: tree,
		weights: tensor.New(
			tensor.WithShape(desc.Outputs, desc.Inputs()),
			tensor.WithBacking(weights),
		),
		bias: bias,
	}, nil
}

// fuseNormalization folds per-channel (x-mean)/std into the weights and
// bias so Forward runs on raw [0,1] pixels.
func fuseNormalization(desc *Descriptor, weights, bias []float32) {
	mean, std := desc.normalization()
	plane := desc.Width * desc.Height
	inputs := desc.Inputs()
	for o := 0; o < desc.Outputs; o++ {
		row := weights[o*inputs : (o+1)*inputs]
		var shift float32
		for c := 0; c < desc.Channels; c++ {
			if mean[c] == 0 && std[c] == 1 {
				continue
			}
			for i := c * plane; i < (c+1)*plane; i++ {
				row[i] /= std[c]
				shift += row[i] * mean[c]
			}
		}
		bias[o] -= shift
	}
}

func (n *denseNetwork) InputSize() (int, int, int) {
	return n.desc.Width, n.desc.Height, n.desc.Channels
}

func (n *denseNetwork) Outputs() int {
	return n.desc.Outputs
}

func (n *denseNetwork) Hierarchy() []int {
	if n.tree == nil {
		return nil
	}
	return n.tree.Parents
}

func (n *denseNetwork) Forward(input []float32) ([]float32, error) {
	if n.h.isReleased() {
		return nil, ErrHandleReleased
	}
	if len(input) != n.desc.Inputs() {
		return nil, fmt.Errorf("%w: got %d values, want %d", ErrInputMismatch, len(input), n.desc.Inputs())
	}

	x := tensor.New(tensor.WithShape(len(input)), tensor.WithBacking(input))
	y, err := tensor.MatVecMul(n.weights, x)
	if err != nil {
		return nil, fmt.Errorf("engine: dense forward: %w", err)
	}
	raw, ok := y.Data().([]float32)
	if !ok {
		return nil, fmt.Errorf("engine: dense forward: unexpected dtype %v", y.Dtype())
	}

	out := make([]float32, len(raw))
	for i, v := range raw {
		out[i] = v + n.bias[i]
	}
	if n.desc.Softmax {
		Softmax(out)
	}
	return out, nil
}

func (n *denseNetwork) Close() error {
	if n.h.release() {
		n.weights = nil
		n.bias = nil
	}
	return nil
}

// ReadDenseWeights reads a dense weights file holding outputs*inputs weights
// followed by outputs biases, all little-endian float32.
func ReadDenseWeights(path string, outputs, inputs int) (weights, bias []float32, err error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, fmt.Errorf("%w: %s", ErrWeightsNotFound, path)
		}
		return nil, nil, fmt.Errorf("%w: %s: %v", ErrWeightsInvalid, path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s: %v", ErrWeightsInvalid, path, err)
	}
	want := int64(outputs*inputs+outputs) * 4
	if info.Size() != want {
		return nil, nil, fmt.Errorf("%w: %s is %d bytes, topology needs %d",
			ErrWeightsInvalid, path, info.Size(), want)
	}

	weights = make([]float32, outputs*inputs)
	bias = make([]float32, outputs)
	if err := binary.Read(f, binary.LittleEndian, weights); err != nil {
		return nil, nil, fmt.Errorf("%w: reading weights: %v", ErrWeightsInvalid, err)
	}
	if err := binary.Read(f, binary.LittleEndian, bias); err != nil {
		return nil, nil, fmt.Errorf("%w: reading bias: %v", ErrWeightsInvalid, err)
	}
	return weights, bias, nil
}

// WriteDenseWeights writes weights and biases in the dense weights format.
func WriteDenseWeights(w io.Writer, weights, bias []float32) error {
	if err := binary.Write(w, binary.LittleEndian, weights); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, bias)
}

// Softmax normalizes v in place into a probability distribution.
func Softmax(v []float32) {
	if len(v) == 0 {
		return
	}
	maxVal := v[0]
	for _, x := range v[1:] {
		if x > maxVal {
			maxVal = x
		}
	}
	var sum float64
	for i, x := range v {
		e := math.Exp(float64(x - maxVal))
		v[i] = float32(e)
		sum += e
	}
	for i := range v {
		v[i] = float32(float64(v[i]) / sum)
	}
}
