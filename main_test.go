package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"classifier_backend/core"
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

// setupEnv points the environment at a three-class dense model whose
// scores rise with the class id for any bright image, and returns the
// directory holding it.
func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	names := writeFile(t, dir, "labels.list", []byte("cat\ndog\nfox\n"))
	data := writeFile(t, dir, "model.data", []byte("classes=3\ntop=1\nnames="+names+"\n"))
	cfg := writeFile(t, dir, "model.yaml", []byte("width: 2\nheight: 1\nchannels: 1\nsoftmax: true\noutputs: 3\n"))
	var buf bytes.Buffer
	if err := engine.WriteDenseWeights(&buf, []float32{0, 0, 1, 0, 2, 0}, []float32{0, 0, 0}); err != nil {
		t.Fatalf("WriteDenseWeights() error = %v", err)
	}
	weights := writeFile(t, dir, "model.weights", buf.Bytes())

	t.Setenv(core.EnvFilePath, filepath.Join(dir, "missing.env"))
	t.Setenv(core.EnvDataConfig, data)
	t.Setenv(core.EnvNetworkConfig, cfg)
	t.Setenv(core.EnvWeights, weights)
	t.Setenv(core.EnvLogFile, filepath.Join(dir, "classifier.log"))
	t.Setenv(core.EnvLogLevel, "error")
	t.Setenv(core.EnvTop, "")
	t.Setenv(core.EnvHistoryDB, "")
	return dir
}

func writeWhitePNG(t *testing.T, dir, name string) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 3))
	for y := 0; y < 3; y++ {
		for x := 0; x < 4; x++ {
			img.Set(x, y, color.White)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode() error = %v", err)
	}
	return writeFile(t, dir, name, buf.Bytes())
}

func TestRun_Usage(t *testing.T) {
	setupEnv(t)

	tests := []struct {
		name string
		args []string
		want int
	}{
		{"no command", nil, core.ExitCodeUsage},
		{"unknown command", []string{"train"}, core.ExitCodeUsage},
		{"help", []string{"help"}, core.ExitCodeSuccess},
		{"version", []string{"version"}, core.ExitCodeSuccess},
		{"predict without images", []string{"predict"}, core.ExitCodeUsage},
		{"predict negative top", []string{"predict", "-top", "-1", "x.png"}, core.ExitCodeUsage},
		{"predict bad flag", []string{"predict", "-bogus", "x.png"}, core.ExitCodeUsage},
		{"serve bad flag", []string{"serve", "-bogus"}, core.ExitCodeUsage},
		{"check bad flag", []string{"check", "-bogus"}, core.ExitCodeUsage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			if got := run(tt.args, &stdout, &stderr); got != tt.want {
				t.Errorf("run(%v) = %d, want %d (stderr: %s)", tt.args, got, tt.want, stderr.String())
			}
		})
	}
}

func TestRun_Version(t *testing.T) {
	setupEnv(t)
	var stdout, stderr bytes.Buffer
	run([]string{"version"}, &stdout, &stderr)
	if !strings.Contains(stdout.String(), core.Version) {
		t.Errorf("version output = %q, want it to contain %q", stdout.String(), core.Version)
	}
}

func TestRun_PredictJSON(t *testing.T) {
	dir := setupEnv(t)
	img := writeWhitePNG(t, dir, "white.png")

	var stdout, stderr bytes.Buffer
	if code := run([]string{"predict", "-json", "-top", "2", img}, &stdout, &stderr); code != core.ExitCodeSuccess {
		t.Fatalf("run() = %d, want 0 (stderr: %s)", code, stderr.String())
	}

	var out predictOutput
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, stdout.String())
	}
	if out.Image != img {
		t.Errorf("image = %q, want %q", out.Image, img)
	}
	if len(out.Candidates) != 2 {
		t.Fatalf("got %d candidates, want 2", len(out.Candidates))
	}
	if out.Candidates[0].ClassID != 2 || out.Candidates[0].Name != "fox" {
		t.Errorf("top candidate = %+v, want class 2 (fox)", out.Candidates[0])
	}
	if out.Candidates[1].ClassID != 1 {
		t.Errorf("second candidate = %+v, want class 1", out.Candidates[1])
	}
}

func TestRun_PredictDefaultTop(t *testing.T) {
	dir := setupEnv(t)
	img := writeWhitePNG(t, dir, "white.png")

	var stdout, stderr bytes.Buffer
	if code := run([]string{"predict", "-no-color", img}, &stdout, &stderr); code != core.ExitCodeSuccess {
		t.Fatalf("run() = %d, want 0 (stderr: %s)", code, stderr.String())
	}
	got := stdout.String()
	if !strings.Contains(got, "fox") || strings.Contains(got, "dog") {
		t.Errorf("output = %q, want only the fox candidate", got)
	}
}

func TestRun_PredictErrors(t *testing.T) {
	dir := setupEnv(t)
	good := writeWhitePNG(t, dir, "white.png")
	broken := writeFile(t, dir, "broken.png", []byte("not an image"))

	var stdout, stderr bytes.Buffer
	code := run([]string{"predict", "-json", good, broken}, &stdout, &stderr)
	if code != core.ExitCodeError {
		t.Fatalf("run() = %d, want %d", code, core.ExitCodeError)
	}
	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d output lines, want 2:\n%s", len(lines), stdout.String())
	}
	var second predictOutput
	if err := json.Unmarshal([]byte(lines[1]), &second); err != nil {
		t.Fatal(err)
	}
	if second.Error == "" {
		t.Error("broken image reported no error")
	}
}

func TestRun_PredictConfigErrors(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T, dir string)
	}{
		{"missing weights setting", func(t *testing.T, dir string) {
			t.Setenv(core.EnvWeights, "")
		}},
		{"unreadable weights", func(t *testing.T, dir string) {
			t.Setenv(core.EnvWeights, filepath.Join(dir, "nope.weights"))
		}},
		{"invalid top", func(t *testing.T, dir string) {
			t.Setenv(core.EnvTop, "-3")
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := setupEnv(t)
			img := writeWhitePNG(t, dir, "white.png")
			tt.setup(t, dir)

			var stdout, stderr bytes.Buffer
			if code := run([]string{"predict", img}, &stdout, &stderr); code != core.ExitCodeConfig {
				t.Errorf("run() = %d, want %d (stderr: %s)", code, core.ExitCodeConfig, stderr.String())
			}
		})
	}
}

func TestRun_Check(t *testing.T) {
	setupEnv(t)
	var stdout, stderr bytes.Buffer
	if code := run([]string{"check", "-quiet"}, &stdout, &stderr); code != core.ExitCodeSuccess {
		t.Fatalf("check = %d, want 0\n%s%s", code, stdout.String(), stderr.String())
	}
	if !strings.Contains(stdout.String(), "Check passed") {
		t.Errorf("summary = %q", stdout.String())
	}

	dir := setupEnv(t)
	t.Setenv(core.EnvWeights, filepath.Join(dir, "nope.weights"))
	stdout.Reset()
	if code := run([]string{"check", "-quiet"}, &stdout, &stderr); code != core.ExitCodeConfig {
		t.Errorf("check with missing weights = %d, want %d", code, core.ExitCodeConfig)
	}
}

func TestRunHashKey(t *testing.T) {
	var out bytes.Buffer
	if err := runHashKey(nil, strings.NewReader("from-stdin\n"), &out); err != nil {
		t.Fatalf("runHashKey(stdin) error = %v", err)
	}
	if !strings.HasPrefix(out.String(), "$2a$") {
		t.Errorf("hash = %q, want bcrypt format", out.String())
	}

	for _, args := range [][]string{{""}, {"a", "b"}} {
		err := runHashKey(args, strings.NewReader(""), &out)
		var uerr usageError
		if !errors.As(err, &uerr) {
			t.Errorf("runHashKey(%q) error = %v, want usageError", args, err)
		}
	}
	if err := runHashKey(nil, strings.NewReader(""), &out); err == nil {
		t.Error("runHashKey(empty stdin) succeeded")
	}
}
