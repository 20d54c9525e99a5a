package engine

import (
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"
)

// Network is a loaded classification network.
//
// Forward returns a freshly allocated activation vector of length Outputs;
// the caller owns it and may modify it in place.
type Network interface {
	// InputSize returns the expected input dimensions.
	InputSize() (width, height, channels int)

	// Outputs returns the length of the output activation vector.
	Outputs() int

	// Hierarchy returns the parent index of every output when the label
	// space is a tree, or nil for a flat label space. Roots have parent -1
	// and every parent precedes its children.
	Hierarchy() []int

	// Forward runs one forward pass over a CHW float32 input.
	Forward(input []float32) ([]float32, error)

	// Close releases the network handle. Safe to call more than once.
	Close() error
}

// Loader loads networks from a descriptor and a weights artifact.
// The zero value is ready to use.
type Loader struct {
	Logger *zap.Logger
}

// LoadNetwork parses the descriptor at configPath, loads weights from
// weightsPath and returns a ready network.
func (l Loader) LoadNetwork(configPath, weightsPath string) (Network, error) {
	logger := l.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	desc, err := LoadDescriptor(configPath)
	if err != nil {
		return nil, err
	}

	var tree *Tree
	if desc.Tree != "" {
		tree, err = LoadTree(desc.TreePath(), desc.Outputs)
		if err != nil {
			return nil, err
		}
	}

	var net Network
	switch desc.Backend {
	case BackendDense:
		net, err = loadDense(desc, tree, weightsPath)
	case BackendONNX:
		net, err = loadONNX(desc, tree, weightsPath)
	default:
		return nil, fmt.Errorf("%w: unknown backend %q", ErrDescriptorInvalid, desc.Backend)
	}
	if err != nil {
		return nil, err
	}

	logger.Debug("network loaded",
		zap.String("backend", desc.Backend),
		zap.String("config", configPath),
		zap.String("weights", weightsPath),
		zap.Int("outputs", desc.Outputs),
		zap.Bool("hierarchical", tree != nil),
	)
	return net, nil
}

// HandleStats counts network handles acquired and released by this process.
type HandleStats struct {
	Acquired uint64
	Released uint64
}

// Live returns the number of handles not yet released.
func (s HandleStats) Live() uint64 {
	return s.Acquired - s.Released
}

var (
	handlesAcquired atomic.Uint64
	handlesReleased atomic.Uint64
)

// Handles returns the current process-wide handle counters.
func Handles() HandleStats {
	return HandleStats{
		Acquired: handlesAcquired.Load(),
		Released: handlesReleased.Load(),
	}
}

// handle tracks the single release of a network's resources.
type handle struct {
	id       uint64
	released atomic.Bool
}

func acquireHandle() *handle {
	return &handle{id: handlesAcquired.Add(1)}
}

// release reports whether this call performed the release.
func (h *handle) release() bool {
	if !h.released.CompareAndSwap(false, true) {
		return false
	}
	handlesReleased.Add(1)
	return true
}

func (h *handle) isReleased() bool {
	return h.released.Load()
}
