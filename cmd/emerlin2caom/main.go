package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/uksrc/emerlin2caom/internal/adapters/archive"
	"github.com/uksrc/emerlin2caom/internal/caom"
	"github.com/uksrc/emerlin2caom/internal/config"
	"github.com/uksrc/emerlin2caom/internal/exitcode"
	"github.com/uksrc/emerlin2caom/internal/ingestion"
)

func main() {
	// Create a cancellable context (for graceful shutdown)
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	cancel()
	os.Exit(code)
}

// globals are the persistent flags shared by every subcommand.
type globals struct {
	configPath string
	envFile    string
	logLevel   string
}

func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		slog.ErrorContext(ctx, "application error", "error", err)
		fmt.Fprintln(stderr, err)
		return exitCode(err)
	}
	return exitcode.Success
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	g := &globals{}
	root := &cobra.Command{
		Use:           "emerlin2caom",
		Short:         "Transcribe e-MERLIN pipeline products into CAOM2 observations",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := setupLogging(stderr, g.logLevel); err != nil {
				return &usageError{err}
			}
			// Ensure environment variables are loaded
			if err := godotenv.Load(g.envFile); err != nil {
				slog.DebugContext(cmd.Context(), "no env file loaded", "path", g.envFile, "error", err)
			}
			return nil
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &usageError{err}
	})

	flags := root.PersistentFlags()
	flags.StringVar(&g.configPath, "config", "", "config file (yaml, toml or json); settings may also come from EMERLIN_* variables")
	flags.StringVar(&g.envFile, "env-file", ".env", "dotenv file loaded before configuration")
	flags.StringVar(&g.logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(
		newIngestCmd(g),
		newDescribeCmd(),
		newExistsCmd(g),
		newBandCmd(),
	)
	return root
}

// setupLogging configures the global JSON logger.
func setupLogging(w io.Writer, level string) error {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: l})))
	return nil
}

// usageError marks invalid flags, arguments and settings.
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

// args wraps a cobra argument validator so its failures map to ConfigError.
func args(validate cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, a []string) error {
		if err := validate(cmd, a); err != nil {
			return &usageError{err}
		}
		return nil
	}
}

func exitCode(err error) int {
	var (
		usage      *usageError
		missing    *config.ErrMissingRequired
		input      *ingestion.InputError
		validation *caom.ValidationError
		stored     *ingestion.StorageError
		status     *archive.StatusError
		client     *archive.ClientError
	)
	switch {
	case errors.As(err, &usage), errors.As(err, &missing):
		return exitcode.ConfigError
	case errors.As(err, &input):
		return exitcode.InputError
	case errors.As(err, &validation):
		return exitcode.DataError
	case errors.As(err, &stored):
		return exitcode.StorageError
	case errors.As(err, &status):
		return exitcode.APIError
	case errors.As(err, &client):
		return exitcode.NetworkError
	}
	return exitcode.DataError
}

func loadConfig(g *globals) (*config.Config, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		var missing *config.ErrMissingRequired
		if errors.As(err, &missing) {
			return nil, err
		}
		return nil, &usageError{err}
	}
	return cfg, nil
}
