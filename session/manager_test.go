package session

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"classifier_backend/classifier"
	"classifier_backend/engine"
)

func writeFile(t *testing.T, dir, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("WriteFile(%s) failed: %v", path, err)
	}
	return path
}

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 40), G: uint8(y * 40), B: 90, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode() failed: %v", err)
	}
	return buf.Bytes()
}

// model is a set of artifacts for a dense network on disk.
type model struct {
	data, cfg, weights string
	image              string
}

// newModel writes a 2x1 grayscale dense network with the given number of
// classes. Output i has weight i on the first pixel, so higher class ids
// score higher for any non-black image.
func newModel(t *testing.T, classes, top int) model {
	t.Helper()
	dir := t.TempDir()

	var labels strings.Builder
	for i := 0; i < classes; i++ {
		labels.WriteString("label_" + strconv.Itoa(i) + "\n")
	}
	names := writeFile(t, dir, "labels.list", []byte(labels.String()))
	data := writeFile(t, dir, "model.data", []byte(
		"classes="+strconv.Itoa(classes)+"\ntop="+strconv.Itoa(top)+"\nnames="+names+"\n"))

	cfg := writeFile(t, dir, "model.yaml", []byte(
		"width: 2\nheight: 1\nchannels: 1\noutputs: "+strconv.Itoa(classes)+"\n"))

	weights := make([]float32, classes*2)
	for i := 0; i < classes; i++ {
		weights[i*2] = float32(i)
	}
	var buf bytes.Buffer
	if err := engine.WriteDenseWeights(&buf, weights, make([]float32, classes)); err != nil {
		t.Fatalf("WriteDenseWeights() error = %v", err)
	}
	w := writeFile(t, dir, "model.weights", buf.Bytes())

	img := writeFile(t, dir, "img.png", encodePNG(t, 4, 3))
	return model{data: data, cfg: cfg, weights: w, image: img}
}

func TestManager_NotInitialized(t *testing.T) {
	m := NewManager()
	if m.State() != Uninitialized {
		t.Fatalf("State() = %v, want uninitialized", m.State())
	}

	var buf ResultBuffer
	if _, err := m.Predict("img.png", 0); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("Predict() error = %v, want ErrNotInitialized", err)
	}
	if _, _, err := m.PredictInto("img.png", &buf, 0); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("PredictInto() error = %v, want ErrNotInitialized", err)
	}
	if _, err := m.PredictBytes([]byte{1}, 0); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("PredictBytes() error = %v, want ErrNotInitialized", err)
	}
	if _, err := m.ClassName(0); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("ClassName() error = %v, want ErrNotInitialized", err)
	}
	if _, err := m.Info(); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("Info() error = %v, want ErrNotInitialized", err)
	}
}

func TestManager_Lifecycle(t *testing.T) {
	mdl := newModel(t, 4, 2)
	m := NewManager()

	if err := m.Init(mdl.data, mdl.cfg, mdl.weights); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if m.State() != Ready {
		t.Fatalf("State() = %v, want ready", m.State())
	}

	var buf ResultBuffer
	n, truncated, err := m.PredictInto(mdl.image, &buf, 0)
	if err != nil {
		t.Fatalf("PredictInto() error = %v", err)
	}
	if n != 2 || truncated {
		t.Fatalf("PredictInto() = %d, %v; want 2, false", n, truncated)
	}
	if buf[0].ClassID != 3 || buf[1].ClassID != 2 {
		t.Errorf("PredictInto() wrote %v", buf[:n])
	}

	name, err := m.ClassName(buf[0].ClassID)
	if err != nil || name != "label_3" {
		t.Errorf("ClassName() = %q, %v", name, err)
	}

	m.Dispose()
	if m.State() != Uninitialized {
		t.Errorf("State() after Dispose = %v", m.State())
	}
	if _, err := m.Predict(mdl.image, 0); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("Predict() after Dispose error = %v", err)
	}
}

func TestManager_PredictIntoLeavesUnusedSlots(t *testing.T) {
	mdl := newModel(t, 3, 1)
	m := NewManager()
	if err := m.Init(mdl.data, mdl.cfg, mdl.weights); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	defer m.Dispose()

	var buf ResultBuffer
	sentinel := classifier.Candidate{ClassID: -7, Probability: 42}
	for i := range buf {
		buf[i] = sentinel
	}

	n, _, err := m.PredictInto(mdl.image, &buf, 2)
	if err != nil {
		t.Fatalf("PredictInto() error = %v", err)
	}
	if n != 2 {
		t.Fatalf("PredictInto() = %d, want 2", n)
	}
	for i := n; i < ResultCapacity; i++ {
		if buf[i] != sentinel {
			t.Fatalf("slot %d modified: %v", i, buf[i])
		}
	}
}

func TestManager_Truncation(t *testing.T) {
	const classes = ResultCapacity + 200
	mdl := newModel(t, classes, classes)
	m := NewManager()
	if err := m.Init(mdl.data, mdl.cfg, mdl.weights); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	defer m.Dispose()

	full, err := m.Predict(mdl.image, 0)
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}
	if len(full) != classes {
		t.Fatalf("Predict() returned %d candidates, want %d", len(full), classes)
	}

	var buf ResultBuffer
	n, truncated, err := m.PredictInto(mdl.image, &buf, 0)
	if err != nil {
		t.Fatalf("PredictInto() error = %v", err)
	}
	if n != ResultCapacity || !truncated {
		t.Fatalf("PredictInto() = %d, %v; want %d, true", n, truncated, ResultCapacity)
	}
	for i := 0; i < n; i++ {
		if buf[i] != full[i] {
			t.Fatalf("slot %d = %v, want %v", i, buf[i], full[i])
		}
	}
}

func TestManager_DisposeIdempotent(t *testing.T) {
	mdl := newModel(t, 2, 1)
	m := NewManager()
	m.Dispose()

	if err := m.Init(mdl.data, mdl.cfg, mdl.weights); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	m.Dispose()
	m.Dispose()
	if m.State() != Uninitialized {
		t.Errorf("State() = %v", m.State())
	}
}

func TestManager_ReinitReleasesPrevious(t *testing.T) {
	first := newModel(t, 2, 1)
	second := newModel(t, 3, 2)
	m := NewManager()

	before := engine.Handles()
	if err := m.Init(first.data, first.cfg, first.weights); err != nil {
		t.Fatalf("Init(first) error = %v", err)
	}
	if err := m.Init(second.data, second.cfg, second.weights); err != nil {
		t.Fatalf("Init(second) error = %v", err)
	}

	mid := engine.Handles()
	acquired := mid.Acquired - before.Acquired
	released := mid.Released - before.Released
	if acquired != 2 || released != acquired-1 {
		t.Errorf("after re-init acquired %d released %d", acquired, released)
	}

	info, err := m.Info()
	if err != nil || info.Classes != 3 {
		t.Errorf("Info() = %+v, %v; want the second model", info, err)
	}

	m.Dispose()
	after := engine.Handles()
	if after.Acquired-before.Acquired != after.Released-before.Released {
		t.Errorf("after dispose acquired %d released %d",
			after.Acquired-before.Acquired, after.Released-before.Released)
	}
}

func TestManager_FailedInitKeepsPrevious(t *testing.T) {
	mdl := newModel(t, 3, 1)
	m := NewManager()
	if err := m.Init(mdl.data, mdl.cfg, mdl.weights); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	defer m.Dispose()

	err := m.Init(mdl.data, mdl.cfg, filepath.Join(t.TempDir(), "missing.weights"))
	if !errors.Is(err, classifier.ErrLoad) {
		t.Fatalf("Init() error = %v, want ErrLoad", err)
	}
	if m.State() != Ready {
		t.Fatalf("State() = %v after failed re-init, want ready", m.State())
	}
	if _, err := m.Predict(mdl.image, 0); err != nil {
		t.Errorf("Predict() on previous classifier error = %v", err)
	}
}

func TestManager_ClassNameInto(t *testing.T) {
	mdl := newModel(t, 2, 1)
	m := NewManager()
	if err := m.Init(mdl.data, mdl.cfg, mdl.weights); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	defer m.Dispose()

	buf := make([]byte, 32)
	n, err := m.ClassNameInto(1, buf)
	if err != nil || string(buf[:n]) != "label_1" {
		t.Errorf("ClassNameInto() = %q, %v", buf[:n], err)
	}

	if _, err := m.ClassNameInto(1, make([]byte, 3)); !errors.Is(err, ErrBufferTooSmall) {
		t.Errorf("ClassNameInto(small) error = %v, want ErrBufferTooSmall", err)
	}
	if _, err := m.ClassNameInto(5, buf); !errors.Is(err, classifier.ErrOutOfRange) {
		t.Errorf("ClassNameInto(5) error = %v, want ErrOutOfRange", err)
	}
}

type memoryRecorder struct {
	predictions []Prediction
	failures    []Failure
	err         error
}

func (r *memoryRecorder) RecordPrediction(p Prediction) error {
	r.predictions = append(r.predictions, p)
	return r.err
}

func (r *memoryRecorder) RecordFailure(f Failure) {
	r.failures = append(r.failures, f)
}

func TestManager_Recorder(t *testing.T) {
	mdl := newModel(t, 3, 2)
	rec := &memoryRecorder{}
	m := NewManager(WithRecorder(rec))
	if err := m.Init(mdl.data, mdl.cfg, mdl.weights); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	defer m.Dispose()

	if _, err := m.PredictBytes(encodePNG(t, 2, 2), 0); err != nil {
		t.Fatalf("PredictBytes() error = %v", err)
	}
	rec.err = errors.New("disk full")
	if _, err := m.Predict(mdl.image, 1); err != nil {
		t.Fatalf("Predict() should not fail on recorder error: %v", err)
	}

	if len(rec.predictions) != 2 {
		t.Fatalf("recorded %d predictions, want 2", len(rec.predictions))
	}
	p := rec.predictions[0]
	if p.RequestID == "" || p.Source != "memory" || len(p.Candidates) != 2 {
		t.Errorf("recorded %+v", p)
	}
	if p.Names[0] != "label_2" {
		t.Errorf("recorded names %v", p.Names)
	}
	if rec.predictions[0].RequestID == rec.predictions[1].RequestID {
		t.Error("request ids repeated")
	}
	if rec.predictions[1].Source != mdl.image || rec.predictions[1].Top != 1 {
		t.Errorf("recorded %+v", rec.predictions[1])
	}

	id, _, err := m.PredictBytesWithID("req-42", encodePNG(t, 2, 2), 0)
	if err != nil {
		t.Fatalf("PredictBytesWithID() error = %v", err)
	}
	if got := rec.predictions[2]; got.RequestID != id || got.CorrelationID != "req-42" {
		t.Errorf("recorded ids = %q, %q; want %q, req-42", got.RequestID, got.CorrelationID, id)
	}

	failedID, _, err := m.PredictBytesWithID("req-43", []byte("garbage"), 0)
	if err == nil {
		t.Fatal("PredictBytesWithID(garbage) succeeded")
	}
	if len(rec.failures) != 1 {
		t.Fatalf("recorded %d failures, want 1", len(rec.failures))
	}
	f := rec.failures[0]
	if f.RequestID != failedID || f.CorrelationID != "req-43" || f.Source != "memory" || !errors.Is(f.Err, classifier.ErrImageLoad) {
		t.Errorf("recorded failure %+v", f)
	}
	if len(rec.predictions) != 3 {
		t.Errorf("failure was recorded as a prediction")
	}
}

func TestManager_RepeatedCorrelationID(t *testing.T) {
	mdl := newModel(t, 3, 1)
	rec := &memoryRecorder{}
	m := NewManager(WithRecorder(rec))
	if err := m.Init(mdl.data, mdl.cfg, mdl.weights); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	defer m.Dispose()

	first, _, err := m.PredictBytesWithID("same", encodePNG(t, 2, 2), 0)
	if err != nil {
		t.Fatalf("first PredictBytesWithID() error = %v", err)
	}
	second, _, err := m.PredictBytesWithID("same", encodePNG(t, 2, 2), 0)
	if err != nil {
		t.Fatalf("second PredictBytesWithID() error = %v", err)
	}
	if first == "" || first == second {
		t.Errorf("request ids = %q, %q; want distinct", first, second)
	}
	for i, p := range rec.predictions {
		if p.CorrelationID != "same" {
			t.Errorf("prediction %d CorrelationID = %q, want same", i, p.CorrelationID)
		}
	}
}

func TestManager_RecorderOwnsCandidates(t *testing.T) {
	mdl := newModel(t, 3, 2)
	rec := &memoryRecorder{}
	m := NewManager(WithRecorder(rec))
	if err := m.Init(mdl.data, mdl.cfg, mdl.weights); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	defer m.Dispose()

	list, err := m.Predict(mdl.image, 0)
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}
	want := rec.predictions[0].Candidates[0]
	list[0].ClassID = 99
	list[0].Probability = 0

	if got := rec.predictions[0].Candidates[0]; got != want {
		t.Errorf("recorded candidate changed with the caller's list: got %+v, want %+v", got, want)
	}
}

func TestManager_NilBuffer(t *testing.T) {
	mdl := newModel(t, 2, 1)
	m := NewManager()
	if err := m.Init(mdl.data, mdl.cfg, mdl.weights); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	defer m.Dispose()

	if _, _, err := m.PredictInto(mdl.image, nil, 0); !errors.Is(err, ErrNilBuffer) {
		t.Errorf("PredictInto(nil) error = %v, want ErrNilBuffer", err)
	}
	if _, _, err := m.PredictBytesInto(encodePNG(t, 2, 2), nil, 0); !errors.Is(err, ErrNilBuffer) {
		t.Errorf("PredictBytesInto(nil) error = %v, want ErrNilBuffer", err)
	}
}

func TestDefaultManager(t *testing.T) {
	mdl := newModel(t, 2, 1)
	rec := &memoryRecorder{}
	Configure(WithRecorder(rec))
	t.Cleanup(func() {
		Dispose()
		Configure(WithRecorder(nil))
	})

	if _, err := ClassName(0); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("ClassName() before Init error = %v", err)
	}
	if err := Init(mdl.data, mdl.cfg, mdl.weights); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	var buf ResultBuffer
	if n, _, err := PredictInto(mdl.image, &buf, 0); err != nil || n != 1 {
		t.Fatalf("PredictInto() = %d, %v", n, err)
	}
	if n, _, err := PredictBytesInto(encodePNG(t, 2, 2), &buf, 0); err != nil || n != 1 {
		t.Fatalf("PredictBytesInto() = %d, %v", n, err)
	}
	if len(rec.predictions) != 2 {
		t.Errorf("configured recorder saw %d predictions, want 2", len(rec.predictions))
	}
	Dispose()
	Dispose()
	if _, err := Predict(mdl.image, 0); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("Predict() after Dispose error = %v", err)
	}
}
