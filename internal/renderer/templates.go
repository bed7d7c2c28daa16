package renderer

import (
	"embed"
	"html/template"
)

//go:embed templates/*.gohtml
var templateFS embed.FS

var documentTemplate = template.Must(template.New("deck").ParseFS(templateFS, "templates/*.gohtml"))

// documentView marks the already-sanitized parts of an Output as trusted.
type documentView struct {
	Title  string
	Style  template.CSS
	Script template.JS
	Body   template.HTML
}

func (o Output) view() documentView {
	return documentView{
		Title:  o.Title,
		Style:  template.CSS(o.Style), //nolint:gosec // minified from built-in and operator supplied CSS
		Script: template.JS(o.Script), //nolint:gosec // built-in and operator supplied script
		Body:   template.HTML(o.Body), //nolint:gosec // deck authors are trusted, raw HTML is allowed
	}
}
