package webui

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"classifier_backend/engine"
	"classifier_backend/session"
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

// readyManager returns a Manager holding a 2x1 grayscale dense network
// where higher class ids score higher, labelled label_0..label_<n-1>.
func readyManager(t *testing.T, classes int, opts ...session.Option) *session.Manager {
	t.Helper()
	dir := t.TempDir()

	var labels strings.Builder
	for i := 0; i < classes; i++ {
		labels.WriteString("label_" + strconv.Itoa(i) + "\n")
	}
	names := writeFile(t, dir, "labels.list", []byte(labels.String()))
	data := writeFile(t, dir, "model.data", []byte(
		"classes="+strconv.Itoa(classes)+"\ntop=1\nnames="+names+"\n"))
	cfg := writeFile(t, dir, "model.yaml", []byte(
		"width: 2\nheight: 1\nchannels: 1\nsoftmax: true\noutputs: "+strconv.Itoa(classes)+"\n"))

	weights := make([]float32, classes*2)
	for i := 0; i < classes; i++ {
		weights[i*2] = float32(i)
	}
	var buf bytes.Buffer
	if err := engine.WriteDenseWeights(&buf, weights, make([]float32, classes)); err != nil {
		t.Fatalf("WriteDenseWeights() error = %v", err)
	}
	w := writeFile(t, dir, "model.weights", buf.Bytes())

	m := session.NewManager(opts...)
	if err := m.Init(data, cfg, w); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	t.Cleanup(m.Dispose)
	return m
}

// multipartRequest builds a POST /predict request. An empty field name
// omits the file part.
func multipartRequest(t *testing.T, field string, content []byte, top string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if field != "" {
		part, err := mw.CreateFormFile(field, "upload.png")
		if err != nil {
			t.Fatalf("CreateFormFile() error = %v", err)
		}
		part.Write(content)
	}
	if top != "" {
		mw.WriteField("top", top)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/predict", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}
