package main

import (
	"flag"
	"fmt"
	"io"

	"classifier_backend/core"
	"classifier_backend/core/validation"
)

func runCheck(args []string, envPath string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	fs.SetOutput(stderr)
	failFast := fs.Bool("fail-fast", false, "stop at the first failing check")
	quiet := fs.Bool("quiet", false, "print only the summary line")
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return core.ExitCodeSuccess
		}
		return core.ExitCodeUsage
	}

	cfg, err := core.LoadConfig()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return core.ExitCodeFor(err)
	}

	result := validation.NewValidationSuite(validation.ModelPathsFromConfig(cfg)).
		WithOutput(stdout).
		WithEnvPath(envPath).
		WithFailFast(*failFast).
		WithShowProgress(!*quiet).
		Validate()

	if *quiet {
		fmt.Fprintln(stdout, result.Summary())
	}
	if !result.Success {
		return core.ExitCodeConfig
	}
	return core.ExitCodeSuccess
}
