package renderer

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/js"

	"github.com/euforicio/deckmd/static"
)

const (
	mediaTypeCSS = "text/css"
	mediaTypeJS  = "application/javascript"
)

// ErrMinification is matched by every MinificationError.
var ErrMinification = errors.New("minification failed")

// MinificationError reports an asset that could not be minified.
type MinificationError struct {
	Asset string
	Err   error
}

func (e *MinificationError) Error() string {
	return fmt.Sprintf("minify %s: %v", e.Asset, e.Err)
}

func (e *MinificationError) Unwrap() []error {
	return []error{ErrMinification, e.Err}
}

// Assets carries user supplied stylesheet and script text. A nil field means
// the asset was not supplied.
type Assets struct {
	CSS *string
	JS  *string
}

// minifier post-processes inlined assets by media type.
type minifier interface {
	String(mediatype, s string) (string, error)
}

func newMinifier() *minify.M {
	m := minify.New()
	m.AddFunc(mediaTypeCSS, css.Minify)
	m.AddFunc(mediaTypeJS, js.Minify)
	return m
}

// inliner merges the built-in assets with user overrides and minifies the result.
type inliner struct {
	min    minifier
	logger *slog.Logger
	style  string
	script string
}

func newInliner(min minifier, logger *slog.Logger) *inliner {
	return &inliner{
		min:    min,
		logger: logger,
		style:  static.Stylesheet(),
		script: static.Script(),
	}
}

// stylesheet appends custom CSS after the built-in stylesheet, so user rules win ties
// by source order.
func (in *inliner) stylesheet(custom *string) (string, error) {
	src := in.style
	if custom != nil {
		src += *custom
	}
	out, err := in.min.String(mediaTypeCSS, src)
	if err != nil {
		return "", &MinificationError{Asset: "stylesheet", Err: err}
	}
	return out, nil
}

// scriptText appends custom JS after the built-in script. It never fails: when the
// minifier rejects the source, the unminified text is used.
func (in *inliner) scriptText(custom *string) string {
	src := in.script
	if custom != nil {
		src += *custom
	}
	out, err := in.min.String(mediaTypeJS, src)
	if err != nil {
		in.logger.Warn("script minification failed, inlining unminified", slog.Any("err", err))
		return src
	}
	return out
}
