package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spinelab/vertqc/internal/rules"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool                 `json:"valid"`
	Errors []*rules.ConfigError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a QC configuration without running it",
		Long: `Validate the QC configuration: schema conformance, rule payloads,
label references and the run context. Lists every violation instead
of stopping at the first.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, configPath, cmd)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "path to qc_config.yaml (required)")
	_ = cmd.MarkFlagRequired("config")

	return cmd
}

func runValidate(opts *RootOptions, configPath string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	cfg, configErrs, err := rules.Check(configPath)
	if err != nil {
		// I/O, YAML and schema failures stop the pipeline before
		// semantic checks can run.
		var cfgErr *rules.ConfigError
		if errors.As(err, &cfgErr) {
			return outputValidationErrors(formatter, []*rules.ConfigError{cfgErr})
		}
		_ = formatter.Error(rules.ErrCodeSchema, err.Error(), nil)
		return WrapExitError(ExitCommandError, "cannot validate configuration", err)
	}

	formatter.VerboseLog("schema ok: %d rule(s), %d range group(s), %d path template(s)",
		len(cfg.Rules), len(cfg.RangeGroups), len(cfg.PathTemplates))

	if len(configErrs) > 0 {
		return outputValidationErrors(formatter, configErrs)
	}

	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true})
	}
	fmt.Fprintln(formatter.Writer, "✓ configuration valid")
	return nil
}

// outputValidationErrors lists every violation, then maps the outcome
// to the validation-failure exit code.
func outputValidationErrors(formatter *OutputFormatter, errs []*rules.ConfigError) error {
	if formatter.Format == "json" {
		_ = formatter.Error(errs[0].Code, errs[0].Message, ValidationResult{Valid: false, Errors: errs})
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintln(formatter.Writer, "✗ configuration invalid")
	fmt.Fprintln(formatter.Writer)
	for _, e := range errs {
		if e.Field != "" {
			fmt.Fprintf(formatter.Writer, "  %s (%s): %s\n", e.Code, e.Field, e.Message)
			continue
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n", e.Code, e.Message)
	}
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
