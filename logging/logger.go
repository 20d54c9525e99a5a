// Package logging builds the zap loggers used by the classifier binaries.
//
// Output goes to the console and, when a file path is configured, to a
// rotating JSON log file. Library packages take a plain *zap.Logger; the
// Logger wrapper here only owns construction and shutdown.
package logging

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config configures NewLogger.
type Config struct {
	// Development selects colored console output and debug level.
	Development bool

	// Level overrides the level implied by Development when set.
	Level *zapcore.Level

	// FilePath is the rotated log file. Empty disables file output.
	FilePath string

	// File configures rotation of FilePath.
	File FileWriterConfig
}

// Logger wraps a zap.Logger built from a Config.
//
// Example:
//
//	logger, err := NewLogger(Config{Development: true, FilePath: "classifier.log"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer logger.Sync()
//
//	logger.Info("model loaded", zap.Int("classes", 1000))
type Logger struct {
	// zap backs Zap(); skip reports callers of the wrapper methods.
	zap    *zap.Logger
	skip   *zap.Logger
	config Config
}

// NewLogger creates a Logger writing to stdout and, if configured, to a
// rotated log file.
func NewLogger(config Config) (*Logger, error) {
	level := zapcore.InfoLevel
	if config.Development {
		level = zapcore.DebugLevel
	}
	if config.Level != nil {
		level = *config.Level
	}

	var file zapcore.WriteSyncer
	if config.FilePath != "" {
		if err := checkWritable(config.FilePath); err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		fileConfig := config.File
		if fileConfig == (FileWriterConfig{}) {
			fileConfig = DefaultFileWriterConfig()
		}
		file = NewFileWriterWithConfig(config.FilePath, fileConfig)
	}

	core := NewMultiCore(level, zapcore.Lock(zapcore.AddSync(os.Stdout)), file, config.Development)
	return newLogger(zap.New(core, zap.AddCaller()), config), nil
}

func newLogger(z *zap.Logger, config Config) *Logger {
	return &Logger{zap: z, skip: z.WithOptions(zap.AddCallerSkip(1)), config: config}
}

// NewNop returns a Logger that discards everything.
func NewNop() *Logger {
	return newLogger(zap.NewNop(), Config{})
}

// checkWritable fails early when the log file cannot be created, instead
// of on the first write.
func checkWritable(path string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	return f.Close()
}

// Sync flushes buffered entries. Call it before exiting.
func (l *Logger) Sync() error {
	if l == nil || l.zap == nil {
		return nil
	}
	return l.zap.Sync()
}

// Debug logs at DebugLevel.
func (l *Logger) Debug(msg string, fields ...zap.Field) {
	l.skip.Debug(msg, fields...)
}

// Info logs at InfoLevel.
func (l *Logger) Info(msg string, fields ...zap.Field) {
	l.skip.Info(msg, fields...)
}

// Warn logs at WarnLevel.
func (l *Logger) Warn(msg string, fields ...zap.Field) {
	l.skip.Warn(msg, fields...)
}

// Error logs at ErrorLevel.
func (l *Logger) Error(msg string, fields ...zap.Field) {
	l.skip.Error(msg, fields...)
}

// Fatal logs at FatalLevel then calls os.Exit(1).
func (l *Logger) Fatal(msg string, fields ...zap.Field) {
	l.skip.Fatal(msg, fields...)
}

// Named returns a child logger whose entries carry name as their source.
//
// Example:
//
//	httpLogger := logger.Named("http")
func (l *Logger) Named(name string) *Logger {
	return newLogger(l.zap.Named(name), l.config)
}

// With returns a child logger that adds fields to every entry.
func (l *Logger) With(fields ...zap.Field) *Logger {
	return newLogger(l.zap.With(fields...), l.config)
}

// Zap returns the underlying zap.Logger, for packages that accept one.
func (l *Logger) Zap() *zap.Logger {
	return l.zap
}

// IsDevelopment reports whether the logger was built in development mode.
func (l *Logger) IsDevelopment() bool {
	return l.config.Development
}

// LogFilePath returns the log file path, or "" when file output is off.
func (l *Logger) LogFilePath() string {
	return l.config.FilePath
}
