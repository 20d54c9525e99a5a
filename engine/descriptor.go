package engine

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Supported backends.
const (
	BackendDense = "dense"
	BackendONNX  = "onnx"
)

// Descriptor limits
const (
	MinInputSize = 1
	MaxInputSize = 4096
	MaxOutputs   = 1 << 20
)

// Descriptor is the parsed network config document.
type Descriptor struct {
	Backend  string `yaml:"backend"`
	Width    int    `yaml:"width"`
	Height   int    `yaml:"height"`
	Channels int    `yaml:"channels"`
	Outputs  int    `yaml:"outputs"`

	// Softmax normalizes raw outputs into probabilities.
	Softmax bool `yaml:"softmax"`

	// Tree is an optional label hierarchy file.
	Tree string `yaml:"tree"`

	// Per-channel input normalization: (x - mean) / std.
	Mean []float32 `yaml:"mean"`
	Std  []float32 `yaml:"std"`

	// ONNX settings
	InputName     string `yaml:"input_name"`
	OutputName    string `yaml:"output_name"`
	SharedLibrary string `yaml:"shared_library"`

	// dir is the directory holding the descriptor file.
	dir string
}

// LoadDescriptor reads and validates a network config file.
func LoadDescriptor(path string) (*Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrDescriptorNotFound, path)
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrDescriptorInvalid, path, err)
	}

	desc, err := ParseDescriptor(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	desc.dir = filepath.Dir(path)
	return desc, nil
}

// ParseDescriptor parses a network config document and applies defaults.
func ParseDescriptor(data []byte) (*Descriptor, error) {
	var desc Descriptor
	if err := yaml.Unmarshal(data, &desc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDescriptorInvalid, err)
	}

	desc.applyDefaults()
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	return &desc, nil
}

func (d *Descriptor) applyDefaults() {
	d.Backend = strings.ToLower(strings.TrimSpace(d.Backend))
	if d.Backend == "" {
		d.Backend = BackendDense
	}
	if d.Channels == 0 {
		d.Channels = 3
	}
	if d.Height == 0 {
		d.Height = d.Width
	}
	if d.InputName == "" {
		d.InputName = "input"
	}
	if d.OutputName == "" {
		d.OutputName = "output"
	}
}

// Validate checks the descriptor for internal consistency.
func (d *Descriptor) Validate() error {
	if d.Width < MinInputSize || d.Width > MaxInputSize {
		return fmt.Errorf("%w: width %d must be between %d and %d",
			ErrDescriptorInvalid, d.Width, MinInputSize, MaxInputSize)
	}
	if d.Height < MinInputSize || d.Height > MaxInputSize {
		return fmt.Errorf("%w: height %d must be between %d and %d",
			ErrDescriptorInvalid, d.Height, MinInputSize, MaxInputSize)
	}
	if d.Channels != 1 && d.Channels != 3 {
		return fmt.Errorf("%w: channels must be 1 or 3, got %d", ErrDescriptorInvalid, d.Channels)
	}
	if d.Outputs < 1 || d.Outputs > MaxOutputs {
		return fmt.Errorf("%w: outputs %d must be between 1 and %d",
			ErrDescriptorInvalid, d.Outputs, MaxOutputs)
	}
	if len(d.Mean) != 0 && len(d.Mean) != d.Channels {
		return fmt.Errorf("%w: mean has %d values for %d channels",
			ErrDescriptorInvalid, len(d.Mean), d.Channels)
	}
	if len(d.Std) != 0 && len(d.Std) != d.Channels {
		return fmt.Errorf("%w: std has %d values for %d channels",
			ErrDescriptorInvalid, len(d.Std), d.Channels)
	}
	for i, s := range d.Std {
		if s == 0 {
			return fmt.Errorf("%w: std[%d] is zero", ErrDescriptorInvalid, i)
		}
	}
	return nil
}

// Inputs returns the flattened input length.
func (d *Descriptor) Inputs() int {
	return d.Width * d.Height * d.Channels
}

// TreePath resolves the hierarchy file relative to the descriptor.
func (d *Descriptor) TreePath() string {
	if d.Tree == "" || filepath.IsAbs(d.Tree) {
		return d.Tree
	}
	return filepath.Join(d.dir, d.Tree)
}

// normalization returns per-channel mean and std with identity defaults.
func (d *Descriptor) normalization() (mean, std []float32) {
	mean = make([]float32, d.Channels)
	std = make([]float32, d.Channels)
	for c := 0; c < d.Channels; c++ {
		std[c] = 1
		if len(d.Mean) == d.Channels {
			mean[c] = d.Mean[c]
		}
		if len(d.Std) == d.Channels {
			std[c] = d.Std[c]
		}
	}
	return mean, std
}
