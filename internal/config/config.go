// Package config loads paginator settings from YAML or TOML files.
//
// Lengths are CSS lengths ("210mm", "1in", "72pt"); unitless numbers are
// pixels. Unset fields leave the corresponding option untouched.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	yaml "gopkg.in/yaml.v3"

	"github.com/gompdf/gompage/internal/layout"
	"github.com/gompdf/gompage/pkg/api"
)

var (
	// ErrUnsupportedFormat is returned for config files that are neither YAML nor TOML
	ErrUnsupportedFormat = errors.New("unsupported config format")
	// ErrUnknownPageSize is returned for page size names that are not standard sizes
	ErrUnknownPageSize = errors.New("unknown page size")
)

type (
	// PageConfig describes the page box. Size names a standard size; Width
	// and Height are CSS lengths that override it.
	PageConfig struct {
		Size        string `yaml:"size" toml:"size"`
		Width       string `yaml:"width" toml:"width"`
		Height      string `yaml:"height" toml:"height"`
		Orientation string `yaml:"orientation" toml:"orientation"`
		// Margins is a CSS margin shorthand
		Margins string `yaml:"margins" toml:"margins"`
	}

	// LayoutConfig tunes the layout model and the page driver. A nil Chrome
	// keeps the default.
	LayoutConfig struct {
		Measure  string `yaml:"measure" toml:"measure"`
		MaxPages int    `yaml:"max_pages" toml:"max_pages"`
		Chrome   *bool  `yaml:"chrome" toml:"chrome"`
	}

	// Config is the content of a gompage config file
	Config struct {
		Page          PageConfig   `yaml:"page" toml:"page"`
		Layout        LayoutConfig `yaml:"layout" toml:"layout"`
		Debug         bool         `yaml:"debug" toml:"debug"`
		ResourcePaths []string     `yaml:"resource_paths" toml:"resource_paths"`
		Title         string       `yaml:"title" toml:"title"`
	}
)

// Load reads the config file at path. The format follows the extension.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	cfg, err := Parse(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes data in the format named by ext (".yaml", ".yml" or ".toml")
// and validates the result
func Parse(data []byte, ext string) (*Config, error) {
	var cfg Config
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	case ".toml":
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse TOML: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks names and lengths without applying them
func (c *Config) Validate() error {
	return c.Apply(&api.Options{})
}

// Apply overlays the fields set in c onto o
func (c *Config) Apply(o *api.Options) error {
	p := c.Page
	if p.Size != "" {
		w, h, ok := api.LookupPageSize(p.Size)
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownPageSize, p.Size)
		}
		o.PageWidth, o.PageHeight = w, h
	}
	for _, l := range []struct {
		name  string
		value string
		dst   *float64
	}{{"width", p.Width, &o.PageWidth}, {"height", p.Height, &o.PageHeight}} {
		if l.value == "" {
			continue
		}
		v, ok := layout.ParseLength(l.value)
		if !ok || v <= 0 {
			return fmt.Errorf("invalid page %s %q", l.name, l.value)
		}
		*l.dst = v
	}

	switch orientation := api.PageOrientation(strings.ToLower(p.Orientation)); orientation {
	case "":
	case api.PageOrientationPortrait, api.PageOrientationLandscape:
		o.PageOrientation = orientation
	default:
		return fmt.Errorf("invalid orientation %q", p.Orientation)
	}

	if p.Margins != "" {
		o.MarginTop, o.MarginRight, o.MarginBottom, o.MarginLeft = layout.ParseMargins(p.Margins)
	}

	if m := c.Layout.Measure; m != "" {
		if _, err := layout.NewMeasurer(m); err != nil {
			return err
		}
		o.Measure = m
	}
	if c.Layout.MaxPages < 0 {
		return fmt.Errorf("invalid max_pages %d", c.Layout.MaxPages)
	}
	if c.Layout.MaxPages > 0 {
		o.MaxPages = c.Layout.MaxPages
	}
	if c.Layout.Chrome != nil {
		o.Chrome = *c.Layout.Chrome
	}

	if c.Debug {
		o.Debug = true
	}
	o.ResourcePaths = append(o.ResourcePaths, c.ResourcePaths...)
	if c.Title != "" {
		o.Title = c.Title
	}
	return nil
}
