package renderer

import (
	"bytes"
	"log/slog"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/util"

	"github.com/euforicio/deckmd/internal/theme"
)

const (
	slideOpen  = `<div class="slide"><div class="content">`
	slideClose = `</div></div>`
	slideBreak = slideClose + slideOpen + "\n"
	preClose   = "</pre>\n"
)

// slideRenderer overrides thematic breaks and code blocks. Goldmark walks the document
// once in order and calls these funcs on enter and exit, so the highlight state lives
// for exactly one render.
type slideRenderer struct {
	registry *theme.Registry
	logger   *slog.Logger
	state    highlightState
}

func newSlideRenderer(reg *theme.Registry, logger *slog.Logger) *slideRenderer {
	return &slideRenderer{registry: reg, logger: logger, state: inactive}
}

// RegisterFuncs implements renderer.NodeRenderer.
func (r *slideRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(ast.KindThematicBreak, r.renderThematicBreak)
	reg.Register(ast.KindCodeBlock, r.renderCodeBlock)
	reg.Register(ast.KindFencedCodeBlock, r.renderCodeBlock)
}

// renderThematicBreak closes the current slide and opens the next one wherever the
// break occurs. A break nested in a blockquote or list splits inside that
// container, so the container's tags straddle two slides.
func (r *slideRenderer) renderThematicBreak(w util.BufWriter, _ []byte, _ ast.Node, entering bool) (ast.WalkStatus, error) {
	if entering {
		_, _ = w.WriteString(slideBreak)
	}
	return ast.WalkContinue, nil
}

func (r *slideRenderer) renderCodeBlock(w util.BufWriter, source []byte, n ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		r.state = inactive
		_, _ = w.WriteString(preClose)
		return ast.WalkContinue, nil
	}

	_, _ = w.WriteString(preOpen(r.registry.Style()))

	var lang string
	if fenced, ok := n.(*ast.FencedCodeBlock); ok {
		lang = string(fenced.Language(source))
	}
	r.state = activate(r.registry, lang)
	if lang != "" && !r.state.active() {
		r.logger.Debug("no grammar for code block", slog.String("lang", lang))
	}

	text := codeText(n, source)
	if err := r.state.writeText(w, text); err != nil {
		r.logger.Warn("highlight failed, writing plain text", slog.String("lang", lang), slog.Any("err", err))
		r.state = inactive
		if err := r.state.writeText(w, text); err != nil {
			return ast.WalkStop, err
		}
	}
	return ast.WalkContinue, nil
}

// codeText joins the raw lines of a code block into a single text run.
func codeText(n ast.Node, source []byte) []byte {
	var buf bytes.Buffer
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		buf.Write(line.Value(source))
	}
	return buf.Bytes()
}
