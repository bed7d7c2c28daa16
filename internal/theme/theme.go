// Package theme resolves the syntax grammars and color theme used to highlight code blocks.
package theme

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

// DefaultName is the theme used when no name is requested.
const DefaultName = "github-dark"

// styleExt is the file extension of chroma XML style files found in theme directories.
const styleExt = ".xml"

var (
	// ErrThemeNotFound is returned when the requested theme is absent from the merged theme set.
	ErrThemeNotFound = errors.New("theme not found")
	// ErrLoading is returned when a theme file cannot be parsed.
	ErrLoading = errors.New("load theme")
)

// Registry holds the syntax set and the resolved theme. It is immutable after Load
// and safe for concurrent use.
type Registry struct {
	style  *chroma.Style
	name   string
	themes map[string]*chroma.Style
}

// Load merges the built-in themes with the themes found in dirs and resolves name
// against the result. Themes in later directories override earlier ones and built-ins.
// An empty name selects DefaultName.
func Load(name string, dirs []string) (*Registry, error) {
	themes := maps.Clone(styles.Registry)
	for _, dir := range dirs {
		if err := loadDir(themes, dir); err != nil {
			return nil, err
		}
	}

	if strings.TrimSpace(name) == "" {
		name = DefaultName
	}
	style, ok := themes[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrThemeNotFound, name)
	}

	return &Registry{style: style, name: name, themes: themes}, nil
}

func loadDir(themes map[string]*chroma.Style, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read theme directory: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), styleExt) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		style, err := loadFile(path)
		if err != nil {
			return err
		}
		themes[strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))] = style
	}
	return nil
}

func loadFile(path string) (*chroma.Style, error) {
	f, err := os.Open(path) //nolint:gosec // theme directories are operator supplied
	if err != nil {
		return nil, fmt.Errorf("open theme: %w", err)
	}
	defer func() { _ = f.Close() }()

	style, err := chroma.NewXMLStyle(f)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrLoading, path, err)
	}
	return style, nil
}

// Style returns the resolved color theme.
func (r *Registry) Style() *chroma.Style {
	return r.style
}

// ThemeName returns the name the theme was resolved under.
func (r *Registry) ThemeName() string {
	return r.name
}

// Themes lists every theme in the merged set, sorted by name.
func (r *Registry) Themes() []string {
	return slices.Sorted(maps.Keys(r.themes))
}

// Lexer returns the grammar registered for a fenced code block language token,
// or nil when the token is empty or unknown.
func (r *Registry) Lexer(token string) chroma.Lexer {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}
	lexer := lexers.Get(token)
	if lexer == nil {
		return nil
	}
	return chroma.Coalesce(lexer)
}
