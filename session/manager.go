package session

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"classifier_backend/classifier"
	"classifier_backend/logging"
)

// ResultCapacity is the number of slots in a ResultBuffer.
const ResultCapacity = 1000

// ResultBuffer is the fixed-capacity container predictions are copied into
// at the language boundary. Only the first n slots reported by PredictInto
// are meaningful; the rest are left untouched.
type ResultBuffer [ResultCapacity]classifier.Candidate

// State is the lifecycle state of a Manager.
type State int

const (
	// Uninitialized means no classifier is loaded.
	Uninitialized State = iota
	// Ready means a classifier is loaded.
	Ready
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Ready:
		return "ready"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Prediction is one completed predict call, handed to a Recorder.
// RequestID is generated per call and never repeats. CorrelationID is
// whatever the caller passed to PredictBytesWithID and may repeat.
// Candidates is the recorder's own copy of the result.
type Prediction struct {
	RequestID     string                   `json:"request_id"`
	CorrelationID string                   `json:"correlation_id,omitempty"`
	Source        string                   `json:"source"`
	Top           int                      `json:"top"`
	Candidates    classifier.CandidateList `json:"candidates"`
	Names         []string                 `json:"names"`
	Duration      time.Duration            `json:"duration"`
	CreatedAt     time.Time                `json:"created_at"`
}

// Recorder receives every successful prediction.
type Recorder interface {
	RecordPrediction(p Prediction) error
}

// Failure is one predict call that returned an error.
type Failure struct {
	RequestID     string
	CorrelationID string
	Source        string
	Err           error
	Duration      time.Duration
	CreatedAt     time.Time
}

// FailureRecorder is implemented by Recorders that also want failed
// predictions. Calls made before Init are not reported.
type FailureRecorder interface {
	RecordFailure(f Failure)
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithClassifierOptions sets options passed to classifier.New on Init.
func WithClassifierOptions(opts ...classifier.Option) Option {
	return func(m *Manager) { m.classifierOpts = opts }
}

// WithRecorder sets the prediction recorder.
func WithRecorder(r Recorder) Option {
	return func(m *Manager) { m.recorder = r }
}

// Manager holds at most one classifier.
type Manager struct {
	mu             sync.Mutex
	current        *classifier.Classifier
	logger         *zap.Logger
	classifierOpts []classifier.Option
	recorder       Recorder
}

// NewManager creates an uninitialized Manager.
func NewManager(opts ...Option) *Manager {
	m := &Manager{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Configure applies opts to an existing Manager. Options take effect on
// the next Init; a loaded classifier keeps the options it was built with.
func (m *Manager) Configure(opts ...Option) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, opt := range opts {
		opt(m)
	}
}

// Init loads a classifier and installs it, replacing any current one.
// On failure the current classifier, if any, stays installed.
func (m *Manager) Init(dataConfigPath, networkConfigPath, weightsPath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	opts := append([]classifier.Option{classifier.WithLogger(m.logger)}, m.classifierOpts...)
	next, err := classifier.New(dataConfigPath, networkConfigPath, weightsPath, opts...)
	if err != nil {
		m.logger.Error("classifier init failed",
			zap.String("data", dataConfigPath),
			zap.String("cfg", networkConfigPath),
			zap.String("weights", weightsPath),
			zap.Error(err))
		return err
	}

	if m.current != nil {
		m.logger.Info("replacing loaded classifier")
		if err := m.current.Close(); err != nil {
			m.logger.Warn("closing previous classifier failed", zap.Error(err))
		}
	}
	m.current = next
	return nil
}

// State reports whether a classifier is loaded.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return Uninitialized
	}
	return Ready
}

// Info describes the loaded classifier.
func (m *Manager) Info() (classifier.Info, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return classifier.Info{}, ErrNotInitialized
	}
	return m.current.Info(), nil
}

// Predict classifies the image at path.
func (m *Manager) Predict(path string, top int) (classifier.CandidateList, error) {
	_, list, err := m.predict("", path, top, func(c *classifier.Classifier) (classifier.CandidateList, error) {
		return c.Predict(path, top)
	})
	return list, err
}

// PredictBytes classifies an encoded image held in memory.
func (m *Manager) PredictBytes(data []byte, top int) (classifier.CandidateList, error) {
	_, list, err := m.PredictBytesWithID("", data, top)
	return list, err
}

// PredictBytesWithID is PredictBytes tagged with a caller correlation id,
// such as an HTTP X-Request-ID, which recorders store alongside the
// prediction. It returns the generated request id of the prediction.
func (m *Manager) PredictBytesWithID(correlationID string, data []byte, top int) (string, classifier.CandidateList, error) {
	return m.predict(correlationID, "memory", top, func(c *classifier.Classifier) (classifier.CandidateList, error) {
		return c.PredictBytes(data, top)
	})
}

// PredictInto runs Predict and copies the result into buf. It returns the
// number of slots written and whether candidates were dropped because buf
// was full.
func (m *Manager) PredictInto(path string, buf *ResultBuffer, top int) (int, bool, error) {
	if buf == nil {
		return 0, false, ErrNilBuffer
	}
	list, err := m.Predict(path, top)
	if err != nil {
		return 0, false, err
	}
	return m.fill(buf, list)
}

// PredictBytesInto is PredictInto for an encoded image held in memory.
func (m *Manager) PredictBytesInto(data []byte, buf *ResultBuffer, top int) (int, bool, error) {
	if buf == nil {
		return 0, false, ErrNilBuffer
	}
	list, err := m.PredictBytes(data, top)
	if err != nil {
		return 0, false, err
	}
	return m.fill(buf, list)
}

func (m *Manager) fill(buf *ResultBuffer, list classifier.CandidateList) (int, bool, error) {
	n := copy(buf[:], list)
	truncated := len(list) > n
	if truncated {
		m.logger.Warn("prediction truncated to result capacity",
			zap.Int("computed", len(list)),
			zap.Int("capacity", ResultCapacity))
	}
	return n, truncated, nil
}

func (m *Manager) predict(correlationID, source string, top int, run func(*classifier.Classifier) (classifier.CandidateList, error)) (string, classifier.CandidateList, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return "", nil, ErrNotInitialized
	}

	requestID := uuid.New().String()
	start := time.Now()
	list, err := run(m.current)
	duration := time.Since(start)
	if err != nil {
		m.logger.Warn("prediction failed",
			zap.String("request_id", requestID),
			zap.String("correlation_id", correlationID),
			zap.String("source", source),
			zap.Error(err))
		if fr, ok := m.recorder.(FailureRecorder); ok {
			fr.RecordFailure(Failure{
				RequestID:     requestID,
				CorrelationID: correlationID,
				Source:        source,
				Err:           err,
				Duration:      duration,
				CreatedAt:     start,
			})
		}
		return requestID, nil, err
	}

	metrics := logging.ClassificationMetrics{
		RequestID:  requestID,
		Source:     source,
		Candidates: len(list),
		Duration:   duration,
	}
	if len(list) > 0 {
		metrics.TopClass = list[0].ClassID
		metrics.TopName, _ = m.current.ClassName(list[0].ClassID)
		metrics.TopProbability = list[0].Probability
	}
	m.logger.Debug("prediction complete", logging.ClassificationFields(metrics))

	if m.recorder != nil {
		p := Prediction{
			RequestID:     requestID,
			CorrelationID: correlationID,
			Source:        source,
			Top:           top,
			Candidates:    slices.Clone(list),
			Names:         m.names(list),
			Duration:      duration,
			CreatedAt:     start,
		}
		if err := m.recorder.RecordPrediction(p); err != nil {
			m.logger.Warn("recording prediction failed",
				zap.String("request_id", requestID),
				zap.Error(err))
		}
	}
	return requestID, list, nil
}

func (m *Manager) names(list classifier.CandidateList) []string {
	names := make([]string, len(list))
	for i, c := range list {
		names[i], _ = m.current.ClassName(c.ClassID)
	}
	return names
}

// ClassName returns the display name of class id.
func (m *Manager) ClassName(id int) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return "", ErrNotInitialized
	}
	return m.current.ClassName(id)
}

// ClassNameInto copies the name of class id into buf and returns the
// number of bytes written. No terminator is written.
func (m *Manager) ClassNameInto(id int, buf []byte) (int, error) {
	name, err := m.ClassName(id)
	if err != nil {
		return 0, err
	}
	if len(name) > len(buf) {
		return 0, fmt.Errorf("%w: need %d bytes, have %d", ErrBufferTooSmall, len(name), len(buf))
	}
	return copy(buf, name), nil
}

// Dispose closes the loaded classifier. It always succeeds and does
// nothing when no classifier is loaded.
func (m *Manager) Dispose() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return
	}
	if err := m.current.Close(); err != nil {
		m.logger.Warn("closing classifier failed", zap.Error(err))
	}
	m.current = nil
	m.logger.Info("classifier disposed")
}
