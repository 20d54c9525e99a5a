package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"classifier_backend/classifier"
	"classifier_backend/core"
	"classifier_backend/logging"
	"classifier_backend/session"
	"classifier_backend/vision"
)

const usage = `Usage: classifier <command> [flags]

Commands:
  predict   classify one or more images and print the top candidates
  serve     run the HTTP prediction server
  check     validate the model artifacts named in the environment
  service   install or control serve as a system service
  hashkey   print the bcrypt hash to use as CLASSIFIER_API_KEY_HASH
  version   print build information

Model artifacts come from CLASSIFIER_DATA, CLASSIFIER_CFG and
CLASSIFIER_WEIGHTS, read from the environment or a .env file.
`

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run dispatches a subcommand and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return core.ExitCodeUsage
	}

	envPath := core.GetEnvOrDefault(core.EnvFilePath, ".env")
	if err := core.LoadEnvFile(envPath); err != nil && core.GetErrorCode(err) != core.ErrCodeEnvFileMissing {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return core.ExitCodeFor(err)
	}

	var err error
	switch args[0] {
	case "predict":
		err = runPredict(args[1:], stdout, stderr)
	case "serve":
		return runServe(args[1:], stderr)
	case "check":
		return runCheck(args[1:], envPath, stdout, stderr)
	case "service":
		return runService(args[1:], stdout, stderr)
	case "hashkey":
		err = runHashKey(args[1:], os.Stdin, stdout)
	case "version", "-version", "--version":
		fmt.Fprintln(stdout, "classifier", core.GetVersionInfo())
		return core.ExitCodeSuccess
	case "help", "-h", "-help", "--help":
		fmt.Fprint(stdout, usage)
		return core.ExitCodeSuccess
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", args[0], usage)
		return core.ExitCodeUsage
	}

	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return core.ExitCodeSuccess
		}
		var uerr usageError
		if errors.As(err, &uerr) {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return core.ExitCodeUsage
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return core.ExitCodeFor(err)
	}
	return core.ExitCodeSuccess
}

// usageError marks bad command-line arguments.
type usageError struct{ msg string }

func (e usageError) Error() string { return e.msg }

// newLogger builds the process logger from cfg. defaultLevel applies when
// neither CLASSIFIER_LOG_LEVEL nor DEV_MODE says otherwise.
func newLogger(cfg *core.Config, defaultLevel zapcore.Level) (*logging.Logger, error) {
	level := defaultLevel
	if cfg.DevMode {
		level = zapcore.DebugLevel
	}
	level = logging.ParseLogLevelString(cfg.LogLevel, level)
	return logging.NewLogger(logging.Config{
		Development: cfg.DevMode,
		Level:       &level,
		FilePath:    cfg.LogFile,
	})
}

// loadModel builds a session manager for cfg and loads the model into it.
// Load failures are reported as configuration errors.
func loadModel(cfg *core.Config, logger *zap.Logger, opts ...session.Option) (*session.Manager, error) {
	if err := cfg.RequireModel(); err != nil {
		return nil, err
	}
	opts = append([]session.Option{
		session.WithLogger(logger),
		session.WithClassifierOptions(classifier.WithCodec(vision.NewCodec(cfg.CodecConfig()))),
	}, opts...)
	m := session.NewManager(opts...)
	if err := m.Init(cfg.DataConfigPath, cfg.NetworkConfigPath, cfg.WeightsPath); err != nil {
		return nil, core.ErrModelInvalid(err)
	}
	return m, nil
}
