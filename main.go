package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"
)

// RunOptions carries command-line overrides for one run
type RunOptions struct {
	DryRun  bool
	Force   bool
	LogFile string
}

var (
	configPath string
	runOpts    RunOptions
)

var rootCmd = &cobra.Command{
	Use:   "modelsync",
	Short: "Mirror the phone model CSV dataset into a D1 database",
	Long: `modelsync fetches the phone model CSV dataset, and when its content changed
since the last successful sync, rebuilds the phone_models table, its indexes and
its full-text index in D1.

Credentials are read from API_TOKEN, ACCOUNT_ID and DATABASE_ID. Without them
only the SQL preview is generated.

Runs must not overlap: schedule the sync as a single, non-overlapping job.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Fetch the dataset and rebuild the database when it changed",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := RunApp(cmd.Context(), configPath, runOpts)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), summarize(result))
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the fingerprint and time of the last successful sync",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := LoadConfig(configPath)
		store := NewFileFingerprintStore(cfg.State.FingerprintPath)
		recorder := NewRunRecorder(store, cfg.State.RunRecordPath)

		digest, ok, err := store.Load()
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(cmd.OutOrStdout(), "Never synced.")
			return nil
		}
		stamp, hasStamp, err := recorder.LastSyncTime()
		if err != nil {
			return err
		}
		if !hasStamp {
			stamp = "unknown"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Last sync: %s (UTC+8)\nFingerprint: %s\n", stamp, digest)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", DefaultConfigPath, "path to the YAML config file")
	syncCmd.Flags().BoolVar(&runOpts.DryRun, "dry-run", false, "generate the SQL preview and report the plan without uploading")
	syncCmd.Flags().BoolVar(&runOpts.Force, "force", false, "rebuild even when the dataset is unchanged")
	syncCmd.Flags().StringVar(&runOpts.LogFile, "log-file", "", "also write logs to this file (rotated)")
	rootCmd.AddCommand(syncCmd, statusCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Printf("Error: %s", describeError(err))
		stop()
		os.Exit(1)
	}
}

// RunApp loads and validates the configuration, wires the pipeline and runs it once
func RunApp(ctx context.Context, configPath string, opts RunOptions) (*RunResult, error) {
	cfg := LoadConfig(configPath)
	if opts.DryRun {
		cfg.DryRun = true
	}
	if opts.LogFile != "" {
		cfg.Log.File = opts.LogFile
	}
	if err := ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}

	if cfg.Log.File != "" {
		restore := setupLogFile(cfg.Log)
		defer restore()
	}

	syncer := NewSyncer(cfg)
	syncer.Force = opts.Force

	if cfg.Mirror.Path != "" {
		syncer.OpenMirror = MirrorOpener(cfg.Mirror.Path)
	}

	return syncer.Run(ctx)
}

// setupLogFile tees the standard logger into a rotated file and returns a
// function restoring the previous output.
func setupLogFile(cfg LogConfig) func() {
	rotator := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
	}
	prev := log.Writer()
	log.SetOutput(io.MultiWriter(prev, rotator))
	return func() {
		log.SetOutput(prev)
		rotator.Close()
	}
}

// summarize renders the final confirmation line of a run
func summarize(r *RunResult) string {
	switch r.Status {
	case StatusSkipped:
		return fmt.Sprintf("Skipped, unchanged (fingerprint %s).", r.Fingerprint)
	case StatusSynced:
		return fmt.Sprintf("Synced %d rows in %d batches, new fingerprint %s (at %s UTC+8).",
			r.Rows, r.Batches, r.Fingerprint, r.SyncedAt)
	case StatusDryRun:
		return fmt.Sprintf("Dry run: %d rows, %d statements in %d batches; nothing uploaded.",
			r.Rows, r.Statements, r.Batches)
	default:
		if len(r.Targets) > 0 {
			return fmt.Sprintf("Mirror updated with %d statements; D1 upload skipped, sync not recorded.", r.Statements)
		}
		return fmt.Sprintf("Preview only: %d statements generated, not uploaded.", r.Statements)
	}
}

// describeError renders one distinct diagnostic per failure kind
func describeError(err error) string {
	var fetchErr *FetchError
	var parseErr *ParseError
	var uploadErr *UploadError
	switch {
	case errors.As(err, &fetchErr):
		return "failed to fetch dataset: " + fetchErr.Error()
	case errors.As(err, &parseErr):
		return "failed to parse dataset: " + parseErr.Error()
	case errors.As(err, &uploadErr):
		return "upload aborted, remaining batches skipped and sync not recorded: " + uploadErr.Error()
	default:
		return err.Error()
	}
}
