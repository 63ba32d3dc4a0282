package cli

import (
	"flag"
	"fmt"
	"io"

	"github.com/NASA-AMMOS/aerie-sub006/internal/app"
)

// ExitError carries a specific process exit code.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments over the environment defaults. It
// returns a validated config, a boolean indicating a clean early exit
// (help, or nothing to do), or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	cfg, err := app.ConfigFromEnv()
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	flagSet := flag.NewFlagSet("seqgen", flag.ContinueOnError)
	flagSet.SetOutput(output)
	flagSet.Usage = func() {
		fmt.Fprint(output, `
seqgen - expands simulated spacecraft activities into command sequences.

Usage:
  seqgen [options] -dictionary DICT.xml -rules DIR -plan PLAN.json

Options:
`)
		flagSet.PrintDefaults()
	}

	flagSet.StringVar(&cfg.DictionaryPath, "dictionary", "", "Path to the command dictionary XML document.")
	flagSet.StringVar(&cfg.RulesDir, "rules", "", "Directory of <ActivityType>.hcl expansion logic files.")
	flagSet.StringVar(&cfg.PlanPath, "plan", "", "Path to the JSON plan file (schemas + simulated activities).")
	flagSet.StringVar(&cfg.SeqID, "seq-id", "seq-1", "Identifier of the sequence to build.")
	flagSet.StringVar(&cfg.OutputPath, "output", "", "Write the seqJson document here instead of stdout.")
	flagSet.BoolVar(&cfg.EmitEDSL, "edsl", false, "Also print the regenerated sequence source.")
	flagSet.IntVar(&cfg.HealthcheckPort, "healthcheck-port", cfg.HealthcheckPort, "Port for the HTTP health and metrics server. 0 is disabled.")
	flagSet.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log output format. Options: 'text' or 'json'.")
	flagSet.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Logging level. Options: 'debug', 'info', 'warn', 'error'.")
	flagSet.IntVar(&cfg.Workers, "workers", cfg.Workers, "Worker pool size. 0 uses the CPU count.")
	flagSet.DurationVar(&cfg.WorkerTimeout, "worker-timeout", cfg.WorkerTimeout, "Per-task timeout for the worker pool.")
	flagSet.StringVar(&cfg.StoreDriver, "store", cfg.StoreDriver, "Persistence driver. Options: 'memory' or 'sqlite'.")
	flagSet.StringVar(&cfg.ArtifactDriver, "artifacts", cfg.ArtifactDriver, "Artifact storage driver. Options: 'memory' or 'fs'.")
	flagSet.StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "Directory for sqlite and fs-backed artifacts.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	if cfg.DictionaryPath == "" || cfg.RulesDir == "" || cfg.PlanPath == "" {
		flagSet.Usage()
		return nil, true, nil
	}

	if err := cfg.Validate(); err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	return &cfg, false, nil
}
