package api

import (
	"github.com/charmbracelet/log"

	"github.com/gompdf/gompage/internal/layout"
	"github.com/gompdf/gompage/internal/pagination"
	"github.com/gompdf/gompage/internal/style"
)

// Options represents configuration options for the paginator
type Options struct {
	// Page dimensions in points
	PageWidth  float64
	PageHeight float64
	// Page orientation: portrait or landscape
	PageOrientation PageOrientation

	// Page margins in points
	MarginTop    float64
	MarginRight  float64
	MarginBottom float64
	MarginLeft   float64

	// MaxPages aborts a run that needs more pages; zero means the engine default
	MaxPages int

	// Measure selects the text metrics of the built-in oracle: "font" or "mono"
	Measure string
	// Oracle replaces the built-in layout oracle when set
	Oracle pagination.Oracle

	// Chrome repeats the document's header and footer on every page
	Chrome bool

	Debug  bool
	Logger *log.Logger

	// Resource paths
	ResourcePaths []string

	// Document title; when empty the document's own title is kept
	Title string

	// Default stylesheet
	UserAgentStylesheet string
}

// Option is a function that modifies Options
type Option func(*Options)

// PageOrientation represents page orientation
type PageOrientation string

const (
	// PageOrientationPortrait sets the page to portrait orientation
	PageOrientationPortrait PageOrientation = "portrait"
	// PageOrientationLandscape sets the page to landscape orientation
	PageOrientationLandscape PageOrientation = "landscape"
)

// DefaultOptions returns the default options
func DefaultOptions() Options {
	return Options{
		// Default to A4 paper size (595.28 x 841.89 points)
		PageWidth:       PageSizeA4Width,
		PageHeight:      PageSizeA4Height,
		PageOrientation: PageOrientationPortrait,

		// Default margins (1 inch = 72 points)
		MarginTop:    72,
		MarginRight:  72,
		MarginBottom: 72,
		MarginLeft:   72,

		MaxPages: pagination.DefaultMaxPages,
		Measure:  layout.MeasureFont,
		Chrome:   true,

		ResourcePaths: []string{},

		UserAgentStylesheet: style.DefaultUserAgentStylesheet,
	}
}

// WithPageSize sets the page size
func WithPageSize(width, height float64) Option {
	return func(o *Options) {
		o.PageWidth = width
		o.PageHeight = height
	}
}

// WithMargins sets the page margins
func WithMargins(top, right, bottom, left float64) Option {
	return func(o *Options) {
		o.MarginTop = top
		o.MarginRight = right
		o.MarginBottom = bottom
		o.MarginLeft = left
	}
}

// WithDebug sets the debug mode
func WithDebug(debug bool) Option {
	return func(o *Options) {
		o.Debug = debug
	}
}

// WithResourcePath adds a path to search for resources
func WithResourcePath(path string) Option {
	return func(o *Options) {
		o.ResourcePaths = append(o.ResourcePaths, path)
	}
}

// WithTitle sets the document title
func WithTitle(title string) Option {
	return func(o *Options) {
		o.Title = title
	}
}

// WithUserAgentStylesheet sets the user agent stylesheet
func WithUserAgentStylesheet(stylesheet string) Option {
	return func(o *Options) {
		o.UserAgentStylesheet = stylesheet
	}
}

// WithPageOrientation sets the page orientation
func WithPageOrientation(orientation PageOrientation) Option {
	return func(o *Options) {
		o.PageOrientation = orientation
	}
}

// WithMaxPages sets the page limit of a run
func WithMaxPages(n int) Option {
	return func(o *Options) {
		o.MaxPages = n
	}
}

// WithMeasure selects the text metrics of the built-in oracle
func WithMeasure(measure string) Option {
	return func(o *Options) {
		o.Measure = measure
	}
}

// WithOracle replaces the built-in layout oracle
func WithOracle(oracle pagination.Oracle) Option {
	return func(o *Options) {
		o.Oracle = oracle
	}
}

// WithLogger sets the logger
func WithLogger(logger *log.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// WithChrome enables or disables per-page headers and footers
func WithChrome(enabled bool) Option {
	return func(o *Options) {
		o.Chrome = enabled
	}
}

// Standard page sizes in points (1/72 inch)
const (
	// A series
	PageSizeA0Width  = 2383.94
	PageSizeA0Height = 3370.39
	PageSizeA1Width  = 1683.78
	PageSizeA1Height = 2383.94
	PageSizeA2Width  = 1190.55
	PageSizeA2Height = 1683.78
	PageSizeA3Width  = 841.89
	PageSizeA3Height = 1190.55
	PageSizeA4Width  = 595.28
	PageSizeA4Height = 841.89
	PageSizeA5Width  = 419.53
	PageSizeA5Height = 595.28
	PageSizeA6Width  = 297.64
	PageSizeA6Height = 419.53

	// US Letter and Legal
	PageSizeLetterWidth  = 612
	PageSizeLetterHeight = 792
	PageSizeLegalWidth   = 612
	PageSizeLegalHeight  = 1008
)

// WithPageSizeA4 sets the page size to A4
func WithPageSizeA4() Option {
	return WithPageSize(PageSizeA4Width, PageSizeA4Height)
}

// WithPageSizeLetter sets the page size to US Letter
func WithPageSizeLetter() Option {
	return WithPageSize(PageSizeLetterWidth, PageSizeLetterHeight)
}

// WithPageSizeLegal sets the page size to US Legal
func WithPageSizeLegal() Option {
	return WithPageSize(PageSizeLegalWidth, PageSizeLegalHeight)
}
