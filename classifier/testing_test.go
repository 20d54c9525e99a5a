package classifier

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"classifier_backend/engine"
)

// writeFile writes content into dir/name and returns the path.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile(%s) failed: %v", path, err)
	}
	return path
}

// encodePNG returns a w x h PNG filled with c.
func encodePNG(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode() failed: %v", err)
	}
	return buf.Bytes()
}

// writePNG writes a w x h PNG into dir/name and returns the path.
func writePNG(t *testing.T, dir, name string, w, h int) string {
	t.Helper()
	return writeFile(t, dir, name, string(encodePNG(t, w, h, color.RGBA{R: 200, G: 100, B: 50, A: 255})))
}

// fakeNetwork returns fixed activations.
type fakeNetwork struct {
	width, height, channels int
	outputs                 []float32
	parents                 []int
	forwardErr              error

	lastInput []float32
	closes    int
}

func (n *fakeNetwork) InputSize() (int, int, int) { return n.width, n.height, n.channels }
func (n *fakeNetwork) Outputs() int               { return len(n.outputs) }
func (n *fakeNetwork) Hierarchy() []int           { return n.parents }

func (n *fakeNetwork) Forward(input []float32) ([]float32, error) {
	if n.closes > 0 {
		return nil, engine.ErrHandleReleased
	}
	if n.forwardErr != nil {
		return nil, n.forwardErr
	}
	n.lastInput = input
	return append([]float32(nil), n.outputs...), nil
}

func (n *fakeNetwork) Close() error {
	n.closes++
	return nil
}

// fakeEngine hands out a prepared network.
type fakeEngine struct {
	net *fakeNetwork
	err error

	configPath, weightsPath string
}

func (e *fakeEngine) LoadNetwork(configPath, weightsPath string) (engine.Network, error) {
	e.configPath, e.weightsPath = configPath, weightsPath
	if e.err != nil {
		return nil, e.err
	}
	return e.net, nil
}

var errFakeLoad = errors.New("fake: cannot load")

// newFixture writes a data config and label list and returns the data
// config path.
func newFixture(t *testing.T, classes, top int, labels string) string {
	t.Helper()
	dir := t.TempDir()
	names := writeFile(t, dir, "labels.list", labels)
	return writeFile(t, dir, "test.data",
		"# test data config\n"+
			"classes="+strconv.Itoa(classes)+"\n"+
			"top="+strconv.Itoa(top)+"\n"+
			"names="+names+"\n")
}
