// Package config manages application configuration from a config file, environment
// variables, and flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/spf13/pflag"
)

const (
	envPrefix = "DECKMD_"
	// configFlag names the flag that points at a YAML config file.
	configFlag = "config"
	// maxConfigSize bounds the config file read.
	maxConfigSize = 1 << 20
)

// ErrInputRequired is returned when a command needs an input document and none was given.
var ErrInputRequired = errors.New("input markdown file is required")

// Config holds runtime configuration for the build and serve commands.
type Config struct { //nolint:govet // field order follows the flag listing
	Input          string        `yaml:"input"`
	Output         string        `yaml:"output"`
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	Watch          bool          `yaml:"watch"`
	Title          string        `yaml:"title"`
	Theme          string        `yaml:"theme"`
	ThemeDirs      []string      `yaml:"themeDirs"`
	CSS            string        `yaml:"css"`
	JS             string        `yaml:"js"`
	FrontMatter    bool          `yaml:"frontMatter"`
	HeadingAnchors bool          `yaml:"headingAnchors"`
	Debounce       time.Duration `yaml:"debounce"`
	Verbose        bool          `yaml:"verbose"`
	Debug          bool          `yaml:"debug"`
	ConfigFile     string        `yaml:"-"`
}

// Default returns ready-to-use defaults prior to file/env/flag overrides.
func Default() Config {
	return Config{
		Host:     "127.0.0.1",
		Port:     3030,
		Debounce: 100 * time.Millisecond,
	}
}

// RegisterFlags attaches configuration flags to the provided FlagSet.
func RegisterFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.StringVar(&cfg.ConfigFile, configFlag, cfg.ConfigFile, "YAML config file (flags and env override it)")
	fs.StringVarP(&cfg.Output, "out", "o", cfg.Output, "output file for build (default: stdout)")
	fs.StringVar(&cfg.Host, "host", cfg.Host, "interface to bind the preview server")
	fs.IntVarP(&cfg.Port, "port", "p", cfg.Port, "port to bind the preview server (0 = auto-assign)")
	fs.BoolVarP(&cfg.Watch, "watch", "w", cfg.Watch, "reload open decks when the input changes")
	fs.StringVar(&cfg.Title, "title", cfg.Title, "deck title")
	fs.StringVarP(&cfg.Theme, "theme", "t", cfg.Theme, "syntax highlighting theme (default: github-dark)")
	fs.StringArrayVar(&cfg.ThemeDirs, "theme-dir", cfg.ThemeDirs, "directory with extra chroma XML themes (repeatable)")
	fs.StringVar(&cfg.CSS, "css", cfg.CSS, "custom stylesheet appended after the built-in one")
	fs.StringVar(&cfg.JS, "js", cfg.JS, "custom script appended after the built-in one")
	fs.BoolVar(&cfg.FrontMatter, "front-matter", cfg.FrontMatter, "read a leading YAML front matter block (title)")
	fs.BoolVar(&cfg.HeadingAnchors, "anchors", cfg.HeadingAnchors, "add ids and anchor links to headings")
	fs.DurationVar(&cfg.Debounce, "debounce", cfg.Debounce, "quiet period before a change triggers a reload")
	fs.BoolVarP(&cfg.Verbose, "verbose", "v", cfg.Verbose, "enable verbose logging (HTTP requests)")
}

// ConfigPath returns the config file named by --config in args, or by DECKMD_CONFIG.
// The flag wins over the environment.
func ConfigPath(args []string) string {
	for i, arg := range args {
		if arg == "--" {
			break
		}
		switch {
		case arg == "--"+configFlag && i+1 < len(args):
			return args[i+1]
		case strings.HasPrefix(arg, "--"+configFlag+"="):
			return strings.TrimPrefix(arg, "--"+configFlag+"=")
		}
	}
	if raw, ok := lookupNonEmpty("CONFIG"); ok {
		return raw
	}
	return ""
}

// LoadFile merges the YAML file at path into cfg. Unknown keys are rejected.
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path) //nolint:gosec // operator supplied config path
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if len(data) > maxConfigSize {
		return fmt.Errorf("config %s exceeds %d bytes", path, maxConfigSize)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil
	}
	if err := yaml.UnmarshalWithOptions(data, cfg, yaml.Strict()); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.ConfigFile = path
	return nil
}

// ApplyEnvOverrides reads supported environment variables and overrides cfg in place.
func ApplyEnvOverrides(cfg *Config) {
	applyStringEnv("INPUT", func(v string) { cfg.Input = v })
	applyStringEnv("OUT", func(v string) { cfg.Output = v })
	applyStringEnv("HOST", func(v string) { cfg.Host = v })
	applyIntEnv("PORT", func(v int) { cfg.Port = v })
	applyBoolEnv("WATCH", func(v bool) { cfg.Watch = v })
	applyStringEnv("TITLE", func(v string) { cfg.Title = v })
	applyStringEnv("THEME", func(v string) { cfg.Theme = v })
	applyStringEnv("THEME_DIRS", func(v string) { cfg.ThemeDirs = filepath.SplitList(v) })
	applyStringEnv("CSS", func(v string) { cfg.CSS = v })
	applyStringEnv("JS", func(v string) { cfg.JS = v })
	applyBoolEnv("FRONT_MATTER", func(v bool) { cfg.FrontMatter = v })
	applyBoolEnv("ANCHORS", func(v bool) { cfg.HeadingAnchors = v })
	applyDurationEnv("DEBOUNCE", func(v time.Duration) { cfg.Debounce = v })
	applyBoolEnv("VERBOSE", func(v bool) { cfg.Verbose = v })
	applyBoolEnv("DEBUG", func(v bool) { cfg.Debug = v })
}

func applyStringEnv(key string, apply func(string)) {
	if raw, ok := lookupNonEmpty(key); ok {
		apply(raw)
	}
}

func applyIntEnv(key string, apply func(int)) {
	if raw, ok := lookupNonEmpty(key); ok {
		if value, err := strconv.Atoi(raw); err == nil {
			apply(value)
		}
	}
}

func applyBoolEnv(key string, apply func(bool)) {
	if raw, ok := lookupNonEmpty(key); ok {
		if value, err := strconv.ParseBool(raw); err == nil {
			apply(value)
		}
	}
}

func applyDurationEnv(key string, apply func(time.Duration)) {
	if raw, ok := lookupNonEmpty(key); ok {
		if value, err := time.ParseDuration(raw); err == nil {
			apply(value)
		}
	}
}

func lookupNonEmpty(key string) (string, bool) {
	raw, ok := os.LookupEnv(envPrefix + key)
	if !ok {
		return "", false
	}
	value := strings.TrimSpace(raw)
	if value == "" {
		return "", false
	}
	return value, true
}

// Finalize validates and normalizes paths. The input "-" (stdin) is left as is.
func Finalize(cfg *Config) error {
	var err error
	if cfg.Input != "-" {
		if cfg.Input, err = absOrEmpty(cfg.Input); err != nil {
			return fmt.Errorf("resolve input: %w", err)
		}
	}
	if cfg.CSS, err = absOrEmpty(cfg.CSS); err != nil {
		return fmt.Errorf("resolve css: %w", err)
	}
	if cfg.JS, err = absOrEmpty(cfg.JS); err != nil {
		return fmt.Errorf("resolve js: %w", err)
	}
	dirs := make([]string, 0, len(cfg.ThemeDirs))
	for _, dir := range cfg.ThemeDirs {
		abs, err := absOrEmpty(dir)
		if err != nil {
			return fmt.Errorf("resolve theme directory: %w", err)
		}
		if abs != "" {
			dirs = append(dirs, abs)
		}
	}
	cfg.ThemeDirs = dirs

	// Allow port 0 for dynamic allocation, otherwise validate range
	if cfg.Port < 0 || cfg.Port > 65535 {
		return fmt.Errorf("invalid port: %d", cfg.Port)
	}
	if cfg.Debounce < 0 {
		return fmt.Errorf("invalid debounce: %s", cfg.Debounce)
	}
	if strings.TrimSpace(cfg.Host) == "" {
		cfg.Host = "127.0.0.1"
	}
	return nil
}

// WatchTargets lists the files whose modification triggers a reload.
func (c Config) WatchTargets() []string {
	targets := []string{c.Input}
	if c.CSS != "" {
		targets = append(targets, c.CSS)
	}
	if c.JS != "" {
		targets = append(targets, c.JS)
	}
	return targets
}

// RequireInput reports ErrInputRequired when no input document is configured.
func (c Config) RequireInput() error {
	if strings.TrimSpace(c.Input) == "" {
		return ErrInputRequired
	}
	return nil
}

func absOrEmpty(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", nil
	}
	return filepath.Abs(path)
}
