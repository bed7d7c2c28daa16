// Package exporter renders a deck once and writes the standalone HTML document.
package exporter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/euforicio/deckmd/internal/renderer"
)

// stdio names standard input or output in place of a path.
const stdio = "-"

// Options configure a single build.
type Options struct {
	// Input is the markdown file; "-" reads Stdin.
	Input string
	// Output is the destination file; "" or "-" writes Stdout.
	Output string
	CSS    string
	JS     string

	Stdin  io.Reader
	Stdout io.Writer
}

// Exporter writes rendered decks to disk or a stream.
type Exporter struct {
	renderer *renderer.Renderer
	logger   *slog.Logger
}

// New constructs an exporter around a prepared renderer.
func New(r *renderer.Renderer, logger *slog.Logger) (*Exporter, error) {
	if r == nil {
		return nil, errors.New("exporter requires a renderer")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{
		renderer: r,
		logger:   logger.With("component", "exporter"),
	}, nil
}

// Export reads the input and optional assets, renders the deck and writes it.
// File output is replaced atomically so a failed build never leaves a partial document.
func (e *Exporter) Export(ctx context.Context, opts Options) error {
	if strings.TrimSpace(opts.Input) == "" {
		return errors.New("input is required")
	}
	if opts.Stdin == nil {
		opts.Stdin = os.Stdin
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}

	markdown, err := readInput(opts.Input, opts.Stdin)
	if err != nil {
		return err
	}
	assets, err := readAssets(opts.CSS, opts.JS)
	if err != nil {
		return err
	}

	out, err := e.renderer.Render(ctx, markdown, assets)
	if err != nil {
		return err
	}
	if opts.Output == "" || opts.Output == stdio {
		if _, err := out.WriteTo(opts.Stdout); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
		return nil
	}

	var doc bytes.Buffer
	if _, err := out.WriteTo(&doc); err != nil {
		return fmt.Errorf("serialize deck: %w", err)
	}
	if err := writeFileAtomic(opts.Output, doc.Bytes()); err != nil {
		return err
	}
	e.logger.Info("deck written", slog.String("output", opts.Output), slog.Int("bytes", doc.Len()))
	return nil
}

func readInput(path string, stdin io.Reader) ([]byte, error) {
	if path == stdio {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path) //nolint:gosec // path supplied by the operator
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return data, nil
}

func readAssets(cssPath, jsPath string) (renderer.Assets, error) {
	var assets renderer.Assets
	if cssPath != "" {
		data, err := os.ReadFile(cssPath) //nolint:gosec // path supplied by the operator
		if err != nil {
			return assets, fmt.Errorf("read css: %w", err)
		}
		css := string(data)
		assets.CSS = &css
	}
	if jsPath != "" {
		data, err := os.ReadFile(jsPath) //nolint:gosec // path supplied by the operator
		if err != nil {
			return assets, fmt.Errorf("read js: %w", err)
		}
		js := string(data)
		assets.JS = &js
	}
	return assets, nil
}

func writeFileAtomic(target string, data []byte) error {
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:gosec // standard directory permissions
		return fmt.Errorf("ensure output directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".deckmd-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	keep := false
	defer func() {
		if !keep {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		return fmt.Errorf("replace output: %w", err)
	}
	keep = true
	return nil
}
