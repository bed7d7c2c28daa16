// Package renderer converts a markdown document into a slide deck with highlighted code
// and inlined, minified assets.
package renderer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/yuin/goldmark"
	goldmarkmeta "github.com/yuin/goldmark-meta"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	htmlrenderer "github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/util"
	"go.abhg.dev/goldmark/anchor"

	"github.com/euforicio/deckmd/internal/theme"
)

// Options configure a Renderer. They are fixed once the Renderer is built.
type Options struct {
	Title     string
	Theme     string
	ThemeDirs []string
	// FrontMatter enables a leading YAML block whose title is used when Title is empty.
	FrontMatter bool
	// HeadingAnchors adds ids and anchor links to headings.
	HeadingAnchors bool
}

// Output is one rendered deck.
type Output struct {
	Title  string
	Style  string
	Script string
	Body   string
}

// WriteTo writes the complete HTML document.
func (o Output) WriteTo(w io.Writer) (int64, error) {
	var buf bytes.Buffer
	if err := documentTemplate.ExecuteTemplate(&buf, "deck", o.view()); err != nil {
		return 0, fmt.Errorf("execute deck template: %w", err)
	}
	return buf.WriteTo(w)
}

// String returns the complete HTML document, or "" if serialization fails.
// Callers that must report failures use WriteTo.
func (o Output) String() string {
	var b strings.Builder
	if _, err := o.WriteTo(&b); err != nil {
		return ""
	}
	return b.String()
}

// Renderer renders decks with a fixed theme and syntax set. It is safe for
// concurrent use.
type Renderer struct {
	opts     Options
	registry *theme.Registry
	assets   *inliner
	logger   *slog.Logger
}

// New loads the theme registry and prepares the asset inliner.
// If logger is nil, the default slog logger is used.
func New(opts Options, logger *slog.Logger) (*Renderer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "renderer")

	reg, err := theme.Load(opts.Theme, opts.ThemeDirs)
	if err != nil {
		return nil, err
	}
	logger.Debug("theme loaded", slog.String("theme", reg.ThemeName()))

	opts.ThemeDirs = append([]string(nil), opts.ThemeDirs...)
	return &Renderer{
		opts:     opts,
		registry: reg,
		assets:   newInliner(newMinifier(), logger),
		logger:   logger,
	}, nil
}

// Registry exposes the resolved theme and syntax set.
func (r *Renderer) Registry() *theme.Registry {
	return r.registry
}

// Render converts markdown into a deck. Every call is a full pass over the input.
func (r *Renderer) Render(ctx context.Context, markdown []byte, assets Assets) (Output, error) {
	if err := ctx.Err(); err != nil {
		return Output{}, err
	}

	md := r.markdown(newSlideRenderer(r.registry, r.logger))
	pc := parser.NewContext()

	var body bytes.Buffer
	body.Grow(len(markdown) + len(slideOpen) + len(slideClose))
	body.WriteString(slideOpen)
	if err := md.Convert(markdown, &body, parser.WithContext(pc)); err != nil {
		return Output{}, fmt.Errorf("render markdown: %w", err)
	}
	body.WriteString(slideClose)

	style, err := r.assets.stylesheet(assets.CSS)
	if err != nil {
		return Output{}, err
	}
	script := r.assets.scriptText(assets.JS)

	title := r.opts.Title
	if title == "" && r.opts.FrontMatter {
		title = frontMatterTitle(pc)
	}

	return Output{
		Title:  title,
		Style:  style,
		Script: script,
		Body:   body.String(),
	}, nil
}

// markdown builds a goldmark instance bound to one render's slide renderer.
func (r *Renderer) markdown(slides *slideRenderer) goldmark.Markdown {
	extensions := []goldmark.Extender{extension.Table}
	parserOpts := []parser.Option{}
	if r.opts.FrontMatter {
		extensions = append(extensions, goldmarkmeta.Meta)
	}
	if r.opts.HeadingAnchors {
		extensions = append(extensions, &anchor.Extender{Position: anchor.After})
		parserOpts = append(parserOpts, parser.WithAutoHeadingID())
	}

	return goldmark.New(
		goldmark.WithExtensions(extensions...),
		goldmark.WithParserOptions(parserOpts...),
		goldmark.WithRendererOptions(
			// Decks are authored locally; raw HTML passes through.
			htmlrenderer.WithUnsafe(),
			htmlrenderer.WithXHTML(),
			renderer.WithNodeRenderers(util.Prioritized(slides, 100)),
		),
	)
}

func frontMatterTitle(pc parser.Context) string {
	meta := goldmarkmeta.Get(pc)
	if meta == nil {
		return ""
	}
	if v, ok := meta["title"]; ok {
		if str, ok := toString(v); ok {
			return str
		}
	}
	return ""
}

func toString(v any) (string, bool) {
	switch val := v.(type) {
	case string:
		return val, true
	case fmt.Stringer:
		return val.String(), true
	default:
		return "", false
	}
}

// RenderDocument builds a Renderer for opts and returns the complete HTML document.
func RenderDocument(ctx context.Context, markdown []byte, opts Options, assets Assets, logger *slog.Logger) (string, error) {
	r, err := New(opts, logger)
	if err != nil {
		return "", err
	}
	out, err := r.Render(ctx, markdown, assets)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	if _, err := out.WriteTo(&b); err != nil {
		return "", err
	}
	return b.String(), nil
}
