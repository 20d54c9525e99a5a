package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"

	"github.com/fatih/color"
	"go.uber.org/zap/zapcore"

	"classifier_backend/core"
	"classifier_backend/session"
)

// predictOutput is one image's result in -json mode.
type predictOutput struct {
	Image      string           `json:"image"`
	Candidates []namedCandidate `json:"candidates,omitempty"`
	Error      string           `json:"error,omitempty"`
}

type namedCandidate struct {
	ClassID     int     `json:"class_id"`
	Name        string  `json:"name"`
	Probability float32 `json:"probability"`
}

func runPredict(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("predict", flag.ContinueOnError)
	fs.SetOutput(stderr)
	top := fs.Int("top", 0, "number of candidates per image (0 uses the configured default)")
	asJSON := fs.Bool("json", false, "print results as JSON lines")
	noColor := fs.Bool("no-color", false, "disable colored output")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: classifier predict [-top N] [-json] image...")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return err
		}
		return usageError{err.Error()}
	}
	if fs.NArg() == 0 {
		return usageError{"predict needs at least one image path"}
	}
	if *top < 0 {
		return usageError{fmt.Sprintf("-top must not be negative, got %d", *top)}
	}

	cfg, err := core.LoadConfig()
	if err != nil {
		return err
	}
	if *top == 0 {
		*top = cfg.Top
	}

	logger, err := newLogger(cfg, zapcore.WarnLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	m, err := loadModel(cfg, logger.Zap().Named("predict"))
	if err != nil {
		return err
	}
	defer m.Dispose()

	if *noColor {
		color.NoColor = true
	}

	var failed error
	enc := json.NewEncoder(stdout)
	for _, path := range fs.Args() {
		out := predictOne(m, path, *top)
		if out.Error != "" && failed == nil {
			failed = fmt.Errorf("%s: %s", path, out.Error)
		}
		if *asJSON {
			if err := enc.Encode(out); err != nil {
				return err
			}
			continue
		}
		printPrediction(stdout, out)
	}
	return failed
}

func predictOne(m *session.Manager, path string, top int) predictOutput {
	out := predictOutput{Image: path}
	list, err := m.Predict(path, top)
	if err != nil {
		out.Error = err.Error()
		return out
	}
	out.Candidates = make([]namedCandidate, len(list))
	for i, c := range list {
		name, _ := m.ClassName(c.ClassID)
		out.Candidates[i] = namedCandidate{ClassID: c.ClassID, Name: name, Probability: c.Probability}
	}
	return out
}

func printPrediction(w io.Writer, out predictOutput) {
	bold := color.New(color.Bold)
	if out.Error != "" {
		bold.Fprintln(w, out.Image)
		color.New(color.FgRed).Fprintf(w, "  ✗ %s\n", out.Error)
		return
	}

	bold.Fprintln(w, out.Image)
	for i, c := range out.Candidates {
		prob := color.New(color.FgYellow)
		if i == 0 {
			prob = color.New(color.FgGreen, color.Bold)
		}
		prob.Fprintf(w, "  %6.2f%%", c.Probability*100)
		fmt.Fprintf(w, "  %s ", c.Name)
		color.New(color.Faint).Fprintf(w, "(%d)\n", c.ClassID)
	}
}
