package db

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"classifier_backend/session"
)

// DefaultQueueCapacity is the default number of predictions buffered by an AsyncWriter.
const DefaultQueueCapacity = 100

// DefaultDrainTimeout bounds how long Close waits for queued writes.
const DefaultDrainTimeout = 30 * time.Second

// ErrWriterClosed is returned by RecordPrediction after Close.
var ErrWriterClosed = errors.New("db: async writer is closed")

// WriteHandler persists one prediction.
type WriteHandler func(ctx context.Context, p session.Prediction) error

// RepositoryHandler returns a WriteHandler that inserts into repo.
func RepositoryHandler(repo *Repository) WriteHandler {
	return func(ctx context.Context, p session.Prediction) error {
		_, err := repo.InsertPrediction(ctx, RecordFromPrediction(p))
		return err
	}
}

// AsyncWriterConfig holds configuration for an AsyncWriter.
type AsyncWriterConfig struct {
	// QueueCapacity is the number of predictions buffered before
	// RecordPrediction falls back to a synchronous write
	QueueCapacity int
	// DrainTimeout is the maximum wait for queued writes in Close
	DrainTimeout time.Duration
}

// DefaultAsyncWriterConfig returns the default configuration.
func DefaultAsyncWriterConfig() AsyncWriterConfig {
	return AsyncWriterConfig{
		QueueCapacity: DefaultQueueCapacity,
		DrainTimeout:  DefaultDrainTimeout,
	}
}

// WriterStats counts processed predictions.
type WriterStats struct {
	Queued  int64
	Written int64
	Failed  int64
	Direct  int64
}

// AsyncWriter is a session.Recorder that hands predictions to a background
// goroutine. When the queue is full the write happens on the caller's
// goroutine instead of being dropped.
type AsyncWriter struct {
	queue   chan session.Prediction
	handler WriteHandler
	config  AsyncWriterConfig
	logger  *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	started bool
	closed  bool

	queued  atomic.Int64
	written atomic.Int64
	failed  atomic.Int64
	direct  atomic.Int64
}

// NewAsyncWriter creates a writer. Call Start before recording.
func NewAsyncWriter(handler WriteHandler, config AsyncWriterConfig, logger *zap.Logger) *AsyncWriter {
	if config.QueueCapacity <= 0 {
		config.QueueCapacity = DefaultQueueCapacity
	}
	if config.DrainTimeout <= 0 {
		config.DrainTimeout = DefaultDrainTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &AsyncWriter{
		queue:   make(chan session.Prediction, config.QueueCapacity),
		handler: handler,
		config:  config,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start launches the background goroutine. Extra calls are no-ops.
func (w *AsyncWriter) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.started || w.closed {
		return
	}
	w.started = true
	w.wg.Add(1)
	go w.run()
}

func (w *AsyncWriter) run() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			w.drain()
			return
		case p := <-w.queue:
			w.write(p)
		}
	}
}

func (w *AsyncWriter) drain() {
	for {
		select {
		case p := <-w.queue:
			w.write(p)
		default:
			return
		}
	}
}

func (w *AsyncWriter) write(p session.Prediction) {
	if err := w.handler(context.Background(), p); err != nil {
		w.failed.Add(1)
		w.logger.Warn("history write failed",
			zap.String("request_id", p.RequestID),
			zap.Error(err))
		return
	}
	w.written.Add(1)
}

// RecordPrediction implements session.Recorder. It never blocks on a full
// queue; the prediction is written synchronously instead.
func (w *AsyncWriter) RecordPrediction(p session.Prediction) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return ErrWriterClosed
	}
	if w.started {
		select {
		case w.queue <- p:
			w.queued.Add(1)
			w.mu.Unlock()
			return nil
		default:
		}
	}
	w.mu.Unlock()

	w.direct.Add(1)
	if err := w.handler(context.Background(), p); err != nil {
		w.failed.Add(1)
		return err
	}
	w.written.Add(1)
	return nil
}

// Pending returns the number of queued predictions not yet written.
func (w *AsyncWriter) Pending() int {
	return len(w.queue)
}

// Stats returns a snapshot of the writer counters.
func (w *AsyncWriter) Stats() WriterStats {
	return WriterStats{
		Queued:  w.queued.Load(),
		Written: w.written.Load(),
		Failed:  w.failed.Load(),
		Direct:  w.direct.Load(),
	}
}

// Close stops accepting predictions and waits up to the configured drain
// timeout for queued ones. It returns false if the timeout expired.
func (w *AsyncWriter) Close() bool {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return true
	}
	w.closed = true
	w.mu.Unlock()

	w.cancel()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return true
	case <-time.After(w.config.DrainTimeout):
		w.logger.Warn("history writer drain timed out",
			zap.Int("pending", w.Pending()),
			zap.Duration("timeout", w.config.DrainTimeout))
		return false
	}
}
