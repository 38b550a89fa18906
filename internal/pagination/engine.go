package pagination

import (
	"context"

	"github.com/charmbracelet/log"

	"github.com/gompdf/gompage/internal/doc"
)

// DefaultMaxPages bounds a run when Options.MaxPages is zero
const DefaultMaxPages = 10000

// Options represents options for the pagination engine
type Options struct {
	PageWidth    float64
	PageHeight   float64
	MarginTop    float64
	MarginRight  float64
	MarginBottom float64
	MarginLeft   float64
	MaxPages     int
	Logger       *log.Logger
}

// Engine handles the pagination process
type Engine struct {
	options Options
	oracle  Oracle
	chrome  Chrome
}

// NewEngine creates a new pagination engine backed by oracle
func NewEngine(oracle Oracle) *Engine {
	return &Engine{
		options: Options{
			PageWidth:    595.28, // Default A4 width in points
			PageHeight:   841.89, // Default A4 height in points
			MarginTop:    72,     // Default 1-inch margins
			MarginRight:  72,
			MarginBottom: 72,
			MarginLeft:   72,
			MaxPages:     DefaultMaxPages,
		},
		oracle: oracle,
	}
}

// SetOptions sets the options for the pagination engine
func (e *Engine) SetOptions(options Options) {
	if options.MaxPages == 0 {
		options.MaxPages = DefaultMaxPages
	}
	e.options = options
}

// SetChrome sets the provider of per-page headers and footers
func (e *Engine) SetChrome(chrome Chrome) {
	e.chrome = chrome
}

// Paginate breaks the content of body into pages
func (e *Engine) Paginate(ctx context.Context, t *doc.Tree, body doc.NodeID) (*Result, error) {
	paginator := NewPaginator(
		PageSize{
			Width:  e.options.PageWidth,
			Height: e.options.PageHeight,
			Name:   "Custom",
		},
		Margins{
			Top:    e.options.MarginTop,
			Right:  e.options.MarginRight,
			Bottom: e.options.MarginBottom,
			Left:   e.options.MarginLeft,
		},
		e.oracle,
	)
	paginator.Chrome = e.chrome
	paginator.MaxPages = e.options.MaxPages
	paginator.Logger = e.options.Logger

	return paginator.Paginate(ctx, t, body)
}
