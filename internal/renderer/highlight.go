package renderer

import (
	"fmt"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/yuin/goldmark/util"

	"github.com/euforicio/deckmd/internal/theme"
)

// highlightState tracks whether the code block being rendered has a grammar.
// The zero value is inactive: text passes through escaped but otherwise untouched.
type highlightState struct {
	highlighter *lineHighlighter
}

// inactive is the state outside code blocks and inside blocks with an unknown language.
var inactive = highlightState{}

// activate returns the state for a code block opening with the given language token.
// Unknown or empty tokens yield the inactive state.
func activate(reg *theme.Registry, lang string) highlightState {
	lexer := reg.Lexer(lang)
	if lexer == nil {
		return inactive
	}
	return highlightState{highlighter: newLineHighlighter(lexer, reg.Style())}
}

func (s highlightState) active() bool {
	return s.highlighter != nil
}

// writeText emits the text of a code block. Line breaks inside text are left to the
// highlighter.
func (s highlightState) writeText(w util.BufWriter, text []byte) error {
	if !s.active() {
		_, err := w.Write(util.EscapeHTML(text))
		return err
	}
	html, err := s.highlighter.highlight(string(text))
	if err != nil {
		return err
	}
	_, err = w.WriteString(html)
	return err
}

// lineHighlighter turns source text of one grammar into inline-styled spans.
type lineHighlighter struct {
	lexer chroma.Lexer
	style *chroma.Style
}

func newLineHighlighter(lexer chroma.Lexer, style *chroma.Style) *lineHighlighter {
	return &lineHighlighter{lexer: lexer, style: style}
}

// highlight tokenises text and renders one span per token. Span backgrounds are never
// emitted; the enclosing <pre> carries the theme background.
func (h *lineHighlighter) highlight(text string) (string, error) {
	it, err := h.lexer.Tokenise(nil, text)
	if err != nil {
		return "", fmt.Errorf("tokenise: %w", err)
	}
	var b strings.Builder
	for tok := it(); tok != chroma.EOF; tok = it() {
		if tok.Value == "" {
			continue
		}
		css := spanCSS(h.style.Get(tok.Type))
		if css == "" {
			b.WriteString("<span>")
		} else {
			b.WriteString(`<span style="`)
			b.WriteString(css)
			b.WriteString(`">`)
		}
		b.Write(util.EscapeHTML([]byte(tok.Value)))
		b.WriteString("</span>")
	}
	return b.String(), nil
}

func spanCSS(entry chroma.StyleEntry) string {
	var b strings.Builder
	if entry.Colour.IsSet() {
		b.WriteString("color:")
		b.WriteString(entry.Colour.String())
		b.WriteString(";")
	}
	if entry.Bold == chroma.Yes {
		b.WriteString("font-weight:bold;")
	}
	if entry.Italic == chroma.Yes {
		b.WriteString("font-style:italic;")
	}
	if entry.Underline == chroma.Yes {
		b.WriteString("text-decoration:underline;")
	}
	return b.String()
}

// preOpen returns the opening wrapper of a code block for the theme.
func preOpen(style *chroma.Style) string {
	bg := style.Get(chroma.Background).Background
	if !bg.IsSet() {
		return "<pre>\n"
	}
	return `<pre style="background-color:` + bg.String() + `;">` + "\n"
}
