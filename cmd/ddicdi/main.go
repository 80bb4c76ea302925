// Package main provides the ddicdi binary entry point.
// ddicdi converts SPSS, Stata, CSV and JSON data files into DDI-CDI
// metadata graphs serialized as JSON-LD, XML, Turtle or N-Triples.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"

	errs "github.com/c360studio/semstreams/errors"
	"github.com/spf13/cobra"

	"github.com/c360studio/ddicdi/config"
	"github.com/c360studio/ddicdi/export"
	"github.com/c360studio/ddicdi/metrics"
	"github.com/c360studio/ddicdi/reader"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "ddicdi"
)

// Exit codes.
const (
	exitOK          = 0
	exitFailure     = 1
	exitUnsupported = 2
	exitDecode      = 3
	exitSchema      = 4
)

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(exitFailure)
		}
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newApp(os.Stdout, os.Stderr).rootCmd().ExecuteContext(ctx)
	cancel()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(exitCode(err))
}

// exitCode maps an error to the process exit status. Only errors classified
// as invalid input get a specific code.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case !errs.IsInvalid(err):
		return exitFailure
	case errors.Is(err, reader.ErrUnsupportedFormat), errors.Is(err, export.ErrUnsupportedFormat):
		return exitUnsupported
	case errors.Is(err, reader.ErrDecode):
		return exitDecode
	case errors.Is(err, reader.ErrSchema):
		return exitSchema
	default:
		return exitFailure
	}
}

// app carries the state shared by all commands.
type app struct {
	configPath  string
	logLevel    string
	logFormat   string
	metricsFile string

	cfg     *config.Config
	logger  *slog.Logger
	metrics *metrics.Registry

	stdout io.Writer
	stderr io.Writer
}

func newApp(stdout, stderr io.Writer) *app {
	return &app{stdout: stdout, stderr: stderr}
}

func (a *app) rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   appName,
		Short: "Convert statistical data files to DDI-CDI",
		Long: `ddicdi reads SPSS (.sav, .zsav), Stata (.dta), CSV (.csv, .tsv) and
JSON files and emits their variable metadata and data as a DDI-CDI graph.

Output formats:
- JSON-LD (default)
- DDI-CDI XML
- Turtle
- N-Triples

Settings are read from ~/.config/ddicdi/config.yaml, then ddicdi.yaml in
the current directory or a parent, then --config, then flags.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "Config file path (YAML)")
	flags.StringVar(&a.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flags.StringVar(&a.logFormat, "log-format", "", "Log format (text, json)")
	flags.StringVar(&a.metricsFile, "metrics-file", "", "Write Prometheus metrics to this textfile after the run")

	cmd.SetOut(a.stdout)
	cmd.SetErr(a.stderr)

	cmd.AddCommand(
		a.convertCmd(),
		a.inspectCmd(),
		a.formatsCmd(),
		a.watchCmd(),
		a.configCmd(),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s version %s (build: %s)\n", appName, Version, BuildTime)
			},
		},
	)
	return cmd
}

// setup loads the layered configuration, applies the global flags and
// builds the logger.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	bootstrap := slog.New(slog.NewTextHandler(a.stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	cfg, err := config.NewLoader(bootstrap).Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = strings.ToLower(a.logLevel)
	}
	if a.logFormat != "" {
		cfg.Log.Format = strings.ToLower(a.logFormat)
	}
	if a.metricsFile != "" {
		cfg.Metrics.Textfile = a.metricsFile
	}

	a.cfg = cfg
	a.logger = newLogger(a.stderr, cfg.Log)
	slog.SetDefault(a.logger)
	a.metrics = metrics.NewRegistry()
	return nil
}

func newLogger(w io.Writer, cfg config.LogConfig) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// writeMetrics writes the metrics textfile when one is configured.
func (a *app) writeMetrics() {
	if a.cfg == nil || a.cfg.Metrics.Textfile == "" {
		return
	}
	if err := a.metrics.WriteTextfile(a.cfg.Metrics.Textfile); err != nil {
		a.logger.Warn("failed to write metrics", slog.Any("error", err))
		return
	}
	a.logger.Debug("metrics written", slog.String("path", a.cfg.Metrics.Textfile))
}
