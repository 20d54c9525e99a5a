package core

import (
	"errors"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"classifier_backend/vision"
)

// Environment variable names
const (
	EnvDataConfig     = "CLASSIFIER_DATA"
	EnvNetworkConfig  = "CLASSIFIER_CFG"
	EnvWeights        = "CLASSIFIER_WEIGHTS"
	EnvTop            = "CLASSIFIER_TOP"
	EnvResizeFilter   = "CLASSIFIER_RESIZE_FILTER"
	EnvMaxPixels      = "CLASSIFIER_MAX_PIXELS"
	EnvHistoryDB      = "CLASSIFIER_HISTORY_DB"
	EnvHistoryDays    = "CLASSIFIER_HISTORY_RETENTION_DAYS"
	EnvRateLimit      = "CLASSIFIER_RATE_LIMIT"
	EnvAPIKeyHash     = "CLASSIFIER_API_KEY_HASH"
	EnvMaxUploadBytes = "CLASSIFIER_MAX_UPLOAD_BYTES"
	EnvReadTimeout    = "CLASSIFIER_READ_TIMEOUT"
	EnvLogFile        = "CLASSIFIER_LOG_FILE"
	EnvLogLevel       = "CLASSIFIER_LOG_LEVEL"
	EnvPort           = "PORT"
	EnvDevMode        = "DEV_MODE"
	EnvFilePath       = "CLASSIFIER_ENV_FILE"
)

// Defaults
const (
	DefaultPort           = 8080
	DefaultMaxUploadBytes = 32 << 20
	DefaultReadTimeout    = 30
	DefaultLogFile        = "classifier.log"
	DefaultHistoryDays    = 30
)

// Config holds all configuration values
type Config struct {
	// Model artifacts
	DataConfigPath    string
	NetworkConfigPath string
	WeightsPath       string

	// Top overrides the data config's default candidate count when positive.
	Top int

	// Preprocessing
	ResizeFilter   vision.Filter
	MaxImagePixels int

	// HistoryDBPath enables prediction history when set.
	HistoryDBPath string
	// HistoryDays is how long recorded predictions are kept.
	HistoryDays int

	// RateLimit caps /predict requests per client per minute; 0 disables it.
	RateLimit int

	// APIKeyHash is the bcrypt hash of the HTTP api key; empty disables auth.
	APIKeyHash string

	// HTTP server
	Port           int
	MaxUploadBytes int64
	ReadTimeout    time.Duration

	// Logging
	DevMode  bool
	LogFile  string
	LogLevel string
}

// LoadEnvFile loads key=value pairs from path into the environment without
// overriding variables that are already set.
func LoadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrEnvFileMissing(path)
		}
		return &ConfigError{
			Code:    ErrCodeInvalidValue,
			Message: "Cannot parse " + path,
			Action:  "Use KEY=value lines",
			Err:     err,
		}
	}
	return nil
}

// LoadConfig reads configuration from the environment and validates the
// values that do not depend on the filesystem.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		DataConfigPath:    GetEnvOrDefault(EnvDataConfig, ""),
		NetworkConfigPath: GetEnvOrDefault(EnvNetworkConfig, ""),
		WeightsPath:       GetEnvOrDefault(EnvWeights, ""),
		Top:               ParseIntEnv(EnvTop, 0),
		MaxImagePixels:    ParseIntEnv(EnvMaxPixels, vision.DefaultCodecConfig().MaxPixels),
		HistoryDBPath:     GetEnvOrDefault(EnvHistoryDB, ""),
		HistoryDays:       ParseIntEnv(EnvHistoryDays, DefaultHistoryDays),
		RateLimit:         ParseIntEnv(EnvRateLimit, 0),
		APIKeyHash:        GetEnvOrDefault(EnvAPIKeyHash, ""),
		Port:              ParseIntEnv(EnvPort, DefaultPort),
		MaxUploadBytes:    ParseInt64Env(EnvMaxUploadBytes, DefaultMaxUploadBytes),
		ReadTimeout:       ParseDurationEnv(EnvReadTimeout, DefaultReadTimeout),
		DevMode:           ParseBoolEnv(EnvDevMode, false),
		LogFile:           GetEnvOrDefault(EnvLogFile, DefaultLogFile),
		LogLevel:          GetEnvOrDefault(EnvLogLevel, ""),
	}

	filter := strings.ToLower(GetEnvOrDefault(EnvResizeFilter, string(vision.FilterBilinear)))
	cfg.ResizeFilter = vision.ParseFilter(filter)
	if string(cfg.ResizeFilter) != filter {
		return nil, ErrInvalidValue(EnvResizeFilter, filter, "use bilinear, catmullrom, nearest or lanczos3")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.Top < 0 {
		return ErrInvalidValue(EnvTop, strconv.Itoa(c.Top), "must be zero or positive")
	}
	if c.MaxImagePixels < 0 {
		return ErrInvalidValue(EnvMaxPixels, strconv.Itoa(c.MaxImagePixels), "must be zero (unlimited) or positive")
	}
	if c.HistoryDays < 0 {
		return ErrInvalidValue(EnvHistoryDays, strconv.Itoa(c.HistoryDays), "must be zero (keep forever) or positive")
	}
	if c.RateLimit < 0 {
		return ErrInvalidValue(EnvRateLimit, strconv.Itoa(c.RateLimit), "must be zero (disabled) or positive")
	}
	if c.Port < 1 || c.Port > 65535 {
		return ErrInvalidValue(EnvPort, strconv.Itoa(c.Port), "must be between 1 and 65535")
	}
	if c.MaxUploadBytes <= 0 {
		return ErrInvalidValue(EnvMaxUploadBytes, strconv.FormatInt(c.MaxUploadBytes, 10), "must be positive")
	}
	if c.ReadTimeout <= 0 {
		return ErrInvalidValue(EnvReadTimeout, c.ReadTimeout.String(), "must be positive")
	}
	return nil
}

// RequireModel reports the first missing model artifact setting.
func (c *Config) RequireModel() error {
	for _, setting := range []struct{ name, value string }{
		{EnvDataConfig, c.DataConfigPath},
		{EnvNetworkConfig, c.NetworkConfigPath},
		{EnvWeights, c.WeightsPath},
	} {
		if setting.value == "" {
			return ErrMissingConfig(setting.name)
		}
	}
	return nil
}

// CodecConfig returns the image codec settings.
func (c *Config) CodecConfig() vision.CodecConfig {
	return vision.CodecConfig{Filter: c.ResizeFilter, MaxPixels: c.MaxImagePixels}
}

// HistoryEnabled reports whether predictions are recorded.
func (c *Config) HistoryEnabled() bool {
	return c.HistoryDBPath != ""
}
