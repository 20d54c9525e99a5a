package validation

import (
	"fmt"

	"classifier_backend/classifier"
	"classifier_backend/core"
	"classifier_backend/engine"
)

// ModelPaths names the artifacts a classifier is built from.
type ModelPaths struct {
	DataConfig    string
	NetworkConfig string
	Weights       string
	HistoryDB     string
}

// ModelPathsFromConfig extracts ModelPaths from a loaded Config.
func ModelPathsFromConfig(cfg *core.Config) ModelPaths {
	return ModelPaths{
		DataConfig:    cfg.DataConfigPath,
		NetworkConfig: cfg.NetworkConfigPath,
		Weights:       cfg.WeightsPath,
		HistoryDB:     cfg.HistoryDBPath,
	}
}

// CheckResult is the outcome of one check.
type CheckResult struct {
	Status  StepStatus
	Message string
	Error   error
}

func passed(format string, args ...interface{}) CheckResult {
	return CheckResult{Status: StepPassed, Message: fmt.Sprintf(format, args...)}
}

func failed(message string, err error) CheckResult {
	return CheckResult{Status: StepFailed, Message: message, Error: err}
}

// ModelChecker inspects model artifacts without building a classifier.
// Later checks reuse what earlier ones parsed.
type ModelChecker struct {
	paths ModelPaths

	data *classifier.DataConfig
	desc *engine.Descriptor
}

// NewModelChecker creates a ModelChecker for paths.
func NewModelChecker(paths ModelPaths) *ModelChecker {
	return &ModelChecker{paths: paths}
}

// CheckEnvFile reports a missing .env as a warning: every setting can
// also come from the process environment.
func (c *ModelChecker) CheckEnvFile(path string) CheckResult {
	if err := CheckFileExists(path); err != nil {
		return CheckResult{Status: StepWarning, Message: "not found, using process environment"}
	}
	return passed("%s", path)
}

// CheckDataConfig parses the data config.
func (c *ModelChecker) CheckDataConfig() CheckResult {
	if c.paths.DataConfig == "" {
		return failed("not configured", core.ErrMissingConfig(core.EnvDataConfig))
	}
	cfg, err := classifier.LoadDataConfig(c.paths.DataConfig)
	if err != nil {
		return failed("cannot parse", err)
	}
	c.data = &cfg
	return passed("%d classes, top %d", cfg.Classes, cfg.Top)
}

// CheckLabels loads the label list named by the data config.
func (c *ModelChecker) CheckLabels() CheckResult {
	if c.data == nil {
		return CheckResult{Status: StepSkipped, Message: "data config unavailable"}
	}
	table, padded, err := classifier.LoadLabels(c.data.NamesPath, c.data.Classes)
	if err != nil {
		return failed("cannot read "+c.data.NamesPath, err)
	}
	if padded > 0 {
		return CheckResult{
			Status:  StepWarning,
			Message: fmt.Sprintf("%d of %d names missing, placeholders will be used", padded, table.Len()),
		}
	}
	return passed("%d names", table.Len())
}

// CheckNetworkConfig parses the network descriptor.
func (c *ModelChecker) CheckNetworkConfig() CheckResult {
	if c.paths.NetworkConfig == "" {
		return failed("not configured", core.ErrMissingConfig(core.EnvNetworkConfig))
	}
	desc, err := engine.LoadDescriptor(c.paths.NetworkConfig)
	if err != nil {
		return failed("cannot parse", err)
	}
	c.desc = desc
	return passed("%s backend, input %dx%dx%d, %d outputs",
		desc.Backend, desc.Width, desc.Height, desc.Channels, desc.Outputs)
}

// CheckWeights verifies the weights file and, for the dense backend, its size.
func (c *ModelChecker) CheckWeights() CheckResult {
	if c.paths.Weights == "" {
		return failed("not configured", core.ErrMissingConfig(core.EnvWeights))
	}
	if err := CheckFileExists(c.paths.Weights); err != nil {
		return failed("missing", core.ErrFileNotFound(core.EnvWeights, c.paths.Weights))
	}
	if c.desc == nil || c.desc.Backend != engine.BackendDense {
		return passed("%s", c.paths.Weights)
	}
	if _, _, err := engine.ReadDenseWeights(c.paths.Weights, c.desc.Outputs, c.desc.Inputs()); err != nil {
		return failed("does not match descriptor", err)
	}
	return passed("%d x %d matrix", c.desc.Outputs, c.desc.Inputs())
}

// CheckDimensions verifies the class count fits the network output.
func (c *ModelChecker) CheckDimensions() CheckResult {
	if c.data == nil || c.desc == nil {
		return CheckResult{Status: StepSkipped, Message: "needs data and network config"}
	}
	if c.data.Classes > c.desc.Outputs {
		return failed("inconsistent", fmt.Errorf("%d classes declared but network has %d outputs",
			c.data.Classes, c.desc.Outputs))
	}
	return passed("%d classes within %d outputs", c.data.Classes, c.desc.Outputs)
}

// CheckHistoryDB verifies the history database location when configured.
func (c *ModelChecker) CheckHistoryDB() CheckResult {
	if c.paths.HistoryDB == "" {
		return CheckResult{Status: StepSkipped, Message: "history disabled"}
	}
	if err := CheckParentDir(c.paths.HistoryDB); err != nil {
		return failed("unusable location", err)
	}
	return passed("%s", c.paths.HistoryDB)
}
