package classifier

import (
	"errors"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"classifier_backend/engine"
	"classifier_backend/logging"
	"classifier_backend/vision"
)

// Engine loads networks. engine.Loader is the default implementation.
type Engine interface {
	LoadNetwork(configPath, weightsPath string) (engine.Network, error)
}

// Option configures New.
type Option func(*options)

type options struct {
	engine Engine
	codec  *vision.Codec
	logger *zap.Logger
}

// WithEngine sets the network loader.
func WithEngine(e Engine) Option {
	return func(o *options) { o.engine = e }
}

// WithCodec sets the image codec used for preprocessing.
func WithCodec(c *vision.Codec) Option {
	return func(o *options) { o.codec = c }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Classifier is one loaded classification model.
type Classifier struct {
	net       engine.Network
	labels    *LabelTable
	hierarchy *Hierarchy
	codec     *vision.Codec
	logger    *zap.Logger

	info   Info
	closed atomic.Bool
}

// New loads a classifier from a data config, a network config and a
// weights artifact. Any missing, malformed or inconsistent input fails
// with an error wrapping ErrLoad; nothing stays allocated on failure.
func New(dataConfigPath, networkConfigPath, weightsPath string, opts ...Option) (*Classifier, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	if o.engine == nil {
		o.engine = engine.Loader{Logger: o.logger}
	}
	if o.codec == nil {
		o.codec = vision.NewCodec(vision.DefaultCodecConfig())
	}

	cfg, err := LoadDataConfig(dataConfigPath)
	if err != nil {
		return nil, loadError("data config", err)
	}

	labels, padded, err := LoadLabels(cfg.NamesPath, cfg.Classes)
	if err != nil {
		return nil, loadError("label list", err)
	}
	if padded > 0 {
		o.logger.Warn("label list shorter than class count, using placeholder names",
			zap.String("path", cfg.NamesPath),
			zap.Int("classes", cfg.Classes),
			zap.Int("placeholders", padded))
	}

	net, err := o.engine.LoadNetwork(networkConfigPath, weightsPath)
	if err != nil {
		return nil, loadError("network", err)
	}

	c, err := assemble(net, labels, cfg, o)
	if err != nil {
		net.Close()
		return nil, err
	}

	o.logger.Info("classifier loaded", append(
		logging.ModelFields(c.info.Classes, c.info.Outputs, c.info.Top),
		zap.Bool("hierarchical", c.info.Hierarchical))...)
	return c, nil
}

func assemble(net engine.Network, labels *LabelTable, cfg DataConfig, o options) (*Classifier, error) {
	outputs := net.Outputs()
	if cfg.Classes > outputs {
		return nil, loadError("dimensions",
			fmt.Errorf("%d classes declared but network has %d outputs", cfg.Classes, outputs))
	}

	width, height, channels := net.InputSize()
	if width <= 0 || height <= 0 || channels <= 0 {
		return nil, loadError("dimensions",
			fmt.Errorf("invalid network input %dx%dx%d", width, height, channels))
	}

	var hierarchy *Hierarchy
	if parents := net.Hierarchy(); parents != nil {
		if len(parents) != outputs {
			return nil, loadError("hierarchy",
				fmt.Errorf("%d tree nodes for %d outputs", len(parents), outputs))
		}
		h, err := NewHierarchy(parents)
		if err != nil {
			return nil, loadError("hierarchy", err)
		}
		hierarchy = h
	}

	return &Classifier{
		net:       net,
		labels:    labels,
		hierarchy: hierarchy,
		codec:     o.codec,
		logger:    o.logger,
		info: Info{
			Classes:      cfg.Classes,
			Top:          min(cfg.Top, cfg.Classes),
			Outputs:      outputs,
			Width:        width,
			Height:       height,
			Channels:     channels,
			Hierarchical: hierarchy != nil,
			LabelsPath:   cfg.NamesPath,
			Filter:       o.codec.Filter(),
		},
	}, nil
}

// Info describes the loaded classifier.
func (c *Classifier) Info() Info {
	return c.info
}

// Predict classifies the image at path and returns the top candidates.
// top overrides the configured default when positive; it is clamped to
// the class count.
func (c *Classifier) Predict(path string, top int) (CandidateList, error) {
	return c.predict("Predict", top, func() (*vision.Tensor, error) {
		return c.codec.Load(path)
	})
}

// PredictBytes is Predict for an encoded image held in memory.
func (c *Classifier) PredictBytes(data []byte, top int) (CandidateList, error) {
	return c.predict("PredictBytes", top, func() (*vision.Tensor, error) {
		return c.codec.Decode(data)
	})
}

func (c *Classifier) predict(op string, top int, load func() (*vision.Tensor, error)) (CandidateList, error) {
	if c.closed.Load() {
		return nil, &ClassifierError{Op: op, Message: "predict after close", Err: ErrClosed}
	}

	k := c.info.Top
	if top > 0 {
		k = min(top, c.info.Classes)
	}

	input, err := c.preprocess(load)
	if err != nil {
		return nil, &ClassifierError{Op: op, Message: "image", Err: fmt.Errorf("%w: %w", ErrImageLoad, err)}
	}

	predictions, err := c.net.Forward(input)
	if err != nil {
		return nil, &ClassifierError{Op: op, Message: "forward", Err: fmt.Errorf("%w: %w", ErrInference, err)}
	}
	if len(predictions) != c.info.Outputs {
		return nil, &ClassifierError{Op: op, Message: "forward",
			Err: fmt.Errorf("%w: got %d activations, want %d", ErrInference, len(predictions), c.info.Outputs)}
	}

	if c.hierarchy != nil {
		c.hierarchy.Apply(predictions, false)
	}

	scores := predictions[:c.info.Classes]
	indexes := TopK(scores, k)
	out := make(CandidateList, len(indexes))
	for i, idx := range indexes {
		out[i] = Candidate{ClassID: idx, Probability: scores[idx]}
	}
	return out, nil
}

// preprocess loads the image, resizes its shorter side to the network
// input and crops the centre. All tensors are released before returning.
func (c *Classifier) preprocess(load func() (*vision.Tensor, error)) ([]float32, error) {
	original, err := load()
	if err != nil {
		return nil, err
	}
	defer original.Release()

	resized, err := c.codec.ResizeMin(original, c.info.Width)
	if err != nil {
		return nil, err
	}
	defer resized.Release()

	cropped, err := c.codec.CenterCrop(resized, c.info.Width, c.info.Height)
	if err != nil {
		return nil, err
	}
	defer cropped.Release()

	return cropped.CHW(c.info.Channels)
}

// ClassName returns the display name of class id.
func (c *Classifier) ClassName(id int) (string, error) {
	if c.labels == nil {
		return "NONE", nil
	}
	name, err := c.labels.Name(id)
	if err != nil {
		return "", &ClassifierError{Op: "ClassName", Message: fmt.Sprintf("class %d", id), Err: err}
	}
	return name, nil
}

// Close releases the network. Calls after the first are no-ops.
func (c *Classifier) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	if err := c.net.Close(); err != nil && !errors.Is(err, engine.ErrHandleReleased) {
		return &ClassifierError{Op: "Close", Message: "release network", Err: err}
	}
	return nil
}
