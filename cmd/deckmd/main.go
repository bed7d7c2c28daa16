// Package main provides the deckmd command: build a deck to a single HTML file
// or serve it with live reload.
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

	"github.com/spf13/pflag"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/euforicio/deckmd/internal/buildinfo"
	"github.com/euforicio/deckmd/internal/config"
	"github.com/euforicio/deckmd/internal/exporter"
	"github.com/euforicio/deckmd/internal/hub"
	"github.com/euforicio/deckmd/internal/renderer"
	"github.com/euforicio/deckmd/internal/server"
	"github.com/euforicio/deckmd/internal/theme"
)

const usage = `Usage: deckmd <command> [flags] [input]

Commands:
  build   render the deck to a single HTML file (stdout unless --out)
  serve   serve the deck over HTTP, optionally reloading on change
  themes  list available syntax highlighting themes

Run "deckmd <command> --help" for the flags of a command.
`

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		_, _ = fmt.Fprint(stderr, usage)
		return exitUsage
	}
	command, rest := args[0], args[1:]
	switch command {
	case "-h", "--help", "help":
		_, _ = fmt.Fprint(stdout, usage)
		return exitOK
	case "--version", "version":
		_, _ = fmt.Fprintln(stdout, buildinfo.Summary())
		return exitOK
	case "build", "serve", "themes":
	default:
		_, _ = fmt.Fprintf(stderr, "unknown command %q\n\n%s", command, usage)
		return exitUsage
	}

	cfg := config.Default()
	if path := config.ConfigPath(rest); path != "" {
		if err := config.LoadFile(path, &cfg); err != nil {
			_, _ = fmt.Fprintf(stderr, "load config: %v\n", err)
			return exitError
		}
	}
	config.ApplyEnvOverrides(&cfg)

	flags := pflag.NewFlagSet("deckmd "+command, pflag.ContinueOnError)
	flags.SetOutput(stderr)
	config.RegisterFlags(flags, &cfg)
	versionFlag := flags.Bool("version", false, "print version information and exit")
	if err := flags.Parse(rest); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}
	if *versionFlag {
		_, _ = fmt.Fprintln(stdout, buildinfo.Summary())
		return exitOK
	}
	switch flags.NArg() {
	case 0:
	case 1:
		cfg.Input = flags.Arg(0)
	default:
		_, _ = fmt.Fprintf(stderr, "expected one input file, got %d\n", flags.NArg())
		return exitUsage
	}
	if command == "build" && cfg.Input == "" {
		cfg.Input = "-"
	}

	if err := config.Finalize(&cfg); err != nil {
		_, _ = fmt.Fprintf(stderr, "invalid configuration: %v\n", err)
		return exitError
	}

	logger := newLogger(stderr, cfg)
	setMaxProcs(logger, cfg.Verbose)
	logger.Debug("starting deckmd", slog.String("version", buildinfo.Summary()), slog.String("command", command))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch command {
	case "build":
		err = runBuild(ctx, cfg, logger, stdin, stdout)
	case "serve":
		err = runServe(ctx, cfg, logger)
	case "themes":
		err = runThemes(cfg, stdout)
	}
	if err != nil {
		logger.Error(command+" failed", slog.Any("err", err))
		return exitError
	}
	return exitOK
}

// newLogger writes to stderr so build output on stdout stays a clean document.
func newLogger(w io.Writer, cfg config.Config) *slog.Logger {
	level := slog.LevelWarn
	if cfg.Verbose {
		level = slog.LevelInfo
	}
	if cfg.Debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	logger = logger.With("app", "deckmd")
	slog.SetDefault(logger)
	return logger
}

// setMaxProcs aligns GOMAXPROCS with the container CPU quota.
// It only fails on an invalid GOMAXPROCS env value, in which case runtime defaults apply.
func setMaxProcs(logger *slog.Logger, verbose bool) {
	logf := func(string, ...any) {}
	if verbose {
		logf = func(format string, args ...any) {
			logger.Info(fmt.Sprintf(format, args...))
		}
	}
	if _, err := maxprocs.Set(maxprocs.Logger(logf)); err != nil {
		logger.Warn("set GOMAXPROCS", slog.Any("err", err))
	}
}

func rendererOptions(cfg config.Config) renderer.Options {
	return renderer.Options{
		Title:          cfg.Title,
		Theme:          cfg.Theme,
		ThemeDirs:      cfg.ThemeDirs,
		FrontMatter:    cfg.FrontMatter,
		HeadingAnchors: cfg.HeadingAnchors,
	}
}

func runBuild(ctx context.Context, cfg config.Config, logger *slog.Logger, stdin io.Reader, stdout io.Writer) error {
	r, err := renderer.New(rendererOptions(cfg), logger)
	if err != nil {
		return fmt.Errorf("init renderer: %w", err)
	}
	exp, err := exporter.New(r, logger)
	if err != nil {
		return fmt.Errorf("init exporter: %w", err)
	}
	return exp.Export(ctx, exporter.Options{
		Input:  cfg.Input,
		Output: cfg.Output,
		CSS:    cfg.CSS,
		JS:     cfg.JS,
		Stdin:  stdin,
		Stdout: stdout,
	})
}

func runServe(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	if err := cfg.RequireInput(); err != nil {
		return err
	}
	if cfg.Input == "-" {
		return errors.New("serve needs an input file, not stdin")
	}

	r, err := renderer.New(rendererOptions(cfg), logger)
	if err != nil {
		return fmt.Errorf("init renderer: %w", err)
	}
	srv, err := server.New(cfg, logger, r, hub.New(logger))
	if err != nil {
		return fmt.Errorf("init server: %w", err)
	}

	if err := srv.Start(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Info("shutdown complete")
			return nil
		}
		return err
	}
	return nil
}

func runThemes(cfg config.Config, stdout io.Writer) error {
	reg, err := theme.Load(cfg.Theme, cfg.ThemeDirs)
	if err != nil {
		return err
	}
	for _, name := range reg.Themes() {
		marker := "  "
		if name == reg.ThemeName() {
			marker = "* "
		}
		if _, err := fmt.Fprintln(stdout, marker+name); err != nil {
			return fmt.Errorf("write themes: %w", err)
		}
	}
	return nil
}
