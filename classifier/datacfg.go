package classifier

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Data config defaults
const (
	DefaultLabelsPath = "data/labels.list"
	DefaultClasses    = 2
	DefaultTop        = 1
)

// DataConfig holds the values read from a data config document.
type DataConfig struct {
	// NamesPath is the label list file.
	NamesPath string
	// Classes is the number of classes.
	Classes int
	// Top is the default number of candidates returned by Predict.
	Top int
}

// LoadDataConfig reads a data config document. Files ending in .yaml or
// .yml are parsed as YAML; anything else as "key=value" lines with #
// comments. Recognized keys are names (or labels), classes and top.
func LoadDataConfig(path string) (DataConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DataConfig{}, fmt.Errorf("data config not found: %s", path)
		}
		return DataConfig{}, err
	}

	var values map[string]string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		values, err = parseYAMLOptions(data)
	default:
		values, err = godotenv.UnmarshalBytes(data)
	}
	if err != nil {
		return DataConfig{}, fmt.Errorf("parse data config %s: %w", path, err)
	}
	return dataConfigFromOptions(values)
}

func parseYAMLOptions(data []byte) (map[string]string, error) {
	raw := map[string]interface{}{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	values := make(map[string]string, len(raw))
	for k, v := range raw {
		if v == nil {
			continue
		}
		values[k] = fmt.Sprint(v)
	}
	return values, nil
}

func dataConfigFromOptions(values map[string]string) (DataConfig, error) {
	cfg := DataConfig{
		NamesPath: DefaultLabelsPath,
		Classes:   DefaultClasses,
		Top:       DefaultTop,
	}

	if v := strings.TrimSpace(values["names"]); v != "" {
		cfg.NamesPath = v
	} else if v := strings.TrimSpace(values["labels"]); v != "" {
		cfg.NamesPath = v
	}

	var err error
	if cfg.Classes, err = positiveOption(values, "classes", DefaultClasses); err != nil {
		return DataConfig{}, err
	}
	if cfg.Top, err = positiveOption(values, "top", DefaultTop); err != nil {
		return DataConfig{}, err
	}
	return cfg, nil
}

func positiveOption(values map[string]string, key string, def int) (int, error) {
	v, ok := values[key]
	if !ok || strings.TrimSpace(v) == "" {
		return def, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("option %s: %q is not an integer", key, v)
	}
	if n < 1 {
		return 0, fmt.Errorf("option %s: %d must be at least 1", key, n)
	}
	return n, nil
}
