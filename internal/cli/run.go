package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/spinelab/vertqc/internal/report"
	"github.com/spinelab/vertqc/internal/rules"
	"github.com/spinelab/vertqc/internal/runner"
	"github.com/spinelab/vertqc/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	ConfigPath string
	DataPath   string
	ReportDir  string
	Database   string
	Watch      bool
}

// watchDebounce is how long the dataset tree must stay quiet before a
// re-run triggers.
const watchDebounce = 2 * time.Second

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run QC over an annotation dataset",
		Long: `Run every configured rule against each discovered case and write
the text report.

Example:
  vertqc run --config qc_config.yaml
  vertqc run --config qc_config.yaml --data ./delivery_07 --db audit.db --watch`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQC(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.ConfigPath, "config", "", "path to qc_config.yaml (required)")
	cmd.Flags().StringVar(&opts.DataPath, "data", "", "dataset root (defaults to run_context.base_data_path)")
	cmd.Flags().StringVar(&opts.ReportDir, "report-dir", ".", "directory for the text report")
	cmd.Flags().StringVar(&opts.Database, "db", "", "optional SQLite audit database")
	cmd.Flags().BoolVar(&opts.Watch, "watch", false, "re-run when the dataset changes")
	_ = cmd.MarkFlagRequired("config")

	return cmd
}

func runQC(opts *RunOptions, cmd *cobra.Command) error {
	logLevel := slog.LevelInfo
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(log)

	cfg, err := rules.Load(opts.ConfigPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load configuration", err)
	}

	dataPath := opts.DataPath
	if dataPath == "" {
		dataPath = cfg.RunContext.BaseDataPath
	}
	if dataPath == "" {
		return NewExitError(ExitCommandError, "no dataset: set --data or run_context.base_data_path")
	}
	if _, err := os.Stat(dataPath); err != nil {
		return WrapExitError(ExitCommandError, "dataset not accessible", err)
	}

	r, err := runner.New(cfg, log)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to initialize runner", err)
	}

	var st *store.Store
	if opts.Database != "" {
		if st, err = store.Open(opts.Database); err != nil {
			return WrapExitError(ExitCommandError, "failed to open audit database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				log.Error("error closing audit database", "error", closeErr)
			}
		}()
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	execute := func() error {
		return executeRun(ctx, opts, cmd, r, st, dataPath, log)
	}

	if !opts.Watch {
		return execute()
	}

	// Watch mode: one run up front, then one per settled change burst.
	// Per-run QC failures do not stop the watch; only the canceled
	// context does.
	if err := execute(); err != nil {
		if GetExitCode(err) == ExitCommandError {
			return err
		}
		log.Warn("run finished with failures", "error", err)
	}
	watchErr := runner.Watch(ctx, dataPath, watchDebounce, log, func() {
		if err := execute(); err != nil {
			log.Warn("run finished with failures", "error", err)
		}
	})
	if watchErr != nil && ctx.Err() != nil {
		return nil // Ctrl-C is a normal exit
	}
	return watchErr
}

func executeRun(ctx context.Context, opts *RunOptions, cmd *cobra.Command, r *runner.Runner, st *store.Store, dataPath string, log *slog.Logger) error {
	startedAt := time.Now()
	summary, err := r.Run(ctx, dataPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "QC run failed", err)
	}

	info := report.RunInfo{Timestamp: startedAt, DataPath: dataPath}
	reportPath, err := report.Write(opts.ReportDir, summary, info)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to write report", err)
	}
	log.Info("report written", "path", reportPath)

	if st != nil {
		if err := st.WriteRun(ctx, summary, startedAt); err != nil {
			return WrapExitError(ExitCommandError, "failed to persist run", err)
		}
		log.Info("run persisted", "run_id", summary.RunID)
	}

	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
	if formatter.Format == "json" {
		if err := formatter.Success(summary); err != nil {
			return err
		}
	} else {
		fmt.Fprint(formatter.Writer, report.Render(summary, info))
	}

	if summary.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d cases failed QC", summary.Failed, summary.Total))
	}
	return nil
}
