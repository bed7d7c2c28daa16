// Package static embeds the built-in deck stylesheet and script.
package static

import (
	"embed"
	"io/fs"
)

//go:embed css/*.css js/*.js
var assets embed.FS

const (
	stylesheetPath = "css/deck.css"
	scriptPath     = "js/deck.js"
)

// Stylesheet returns the built-in deck stylesheet.
func Stylesheet() string {
	return mustRead(stylesheetPath)
}

// Script returns the built-in deck script.
func Script() string {
	return mustRead(scriptPath)
}

func mustRead(name string) string {
	data, err := fs.ReadFile(assets, name)
	if err != nil {
		// Both files are compiled in; a miss means the embed pattern is wrong.
		panic("static: missing embedded asset " + name)
	}
	return string(data)
}
