package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/gompdf/gompage/internal/decor"
	"github.com/gompdf/gompage/internal/doc"
	"github.com/gompdf/gompage/internal/layout"
	"github.com/gompdf/gompage/internal/pagination"
	"github.com/gompdf/gompage/internal/parser/css"
	"github.com/gompdf/gompage/internal/parser/html"
	"github.com/gompdf/gompage/internal/res"
	"github.com/gompdf/gompage/internal/style"
)

const mmToPt = 72.0 / 25.4

// Converter is the main API for paginating HTML documents
type Converter struct {
	options Options
	loader  *res.Loader
}

// Result is a paginated document
type Result struct {
	// Pages is the number of pages produced
	Pages int
	// Report lists the layout problems met on the way, in order
	Report []string
	// Probes counts the oracle queries of the run
	Probes int
	// PageWidth and PageHeight are the page size used, in points
	PageWidth  float64
	PageHeight float64

	doc *html.Document
}

// Render writes the paginated document as HTML to w
func (r *Result) Render(w io.Writer) error {
	return r.doc.RenderTo(w)
}

// HTML returns the paginated document as HTML
func (r *Result) HTML() (string, error) {
	return r.doc.Render()
}

// New creates a new converter with default options
func New() *Converter {
	return NewWithOptions(DefaultOptions())
}

// NewWithOptions creates a new converter with the specified options
func NewWithOptions(options Options) *Converter {
	c := &Converter{options: options}
	c.loader = c.newLoader("")
	return c
}

func (c *Converter) newLoader(base string) *res.Loader {
	l := res.NewLoader(base)
	l.Logger = c.logger()
	for _, path := range c.options.ResourcePaths {
		l.AddSearchPath(path)
	}
	return l
}

func (c *Converter) logger() *log.Logger {
	if c.options.Logger != nil {
		return c.options.Logger
	}
	level := log.WarnLevel
	if c.options.Debug {
		level = log.DebugLevel
	}
	return log.NewWithOptions(os.Stderr, log.Options{Level: level, Prefix: "gompage"})
}

// Paginate parses htmlContent and breaks its body into pages. On a fatal
// error the partial result is returned along with the error.
func (c *Converter) Paginate(ctx context.Context, htmlContent string) (*Result, error) {
	logger := c.logger()

	d, err := html.NewParser().ParseString(htmlContent)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	if c.options.Title != "" {
		d.Title = c.options.Title
	}

	styleEngine, err := c.styleEngine(d, logger)
	if err != nil {
		return nil, err
	}

	pageWidth, pageHeight := c.pageSize(d)
	d.PageWidth, d.PageHeight = toMM(pageWidth), toMM(pageHeight)
	logger.Debug("page size", "width", pageWidth, "height", pageHeight, "orientation", c.options.PageOrientation)

	margins := pagination.Margins{
		Top:    c.options.MarginTop,
		Right:  c.options.MarginRight,
		Bottom: c.options.MarginBottom,
		Left:   c.options.MarginLeft,
	}
	if m, ok := pageMargins(styleEngine); ok {
		margins = m
		logger.Debug("using @page margins", "margins", m)
	}

	oracle := c.options.Oracle
	if oracle == nil {
		measurer, err := layout.NewMeasurer(c.options.Measure)
		if err != nil {
			return nil, err
		}
		oracle = layout.NewStackOracle(layout.Options{
			Width:     pageWidth - margins.Left - margins.Right,
			Height:    pageHeight - margins.Top - margins.Bottom,
			Ancestors: []doc.NodeID{d.Root, d.Body},
			Styles:    styleEngine,
			Measurer:  measurer,
			Images:    c.loader,
			Logger:    logger,
		})
	}

	engine := pagination.NewEngine(oracle)
	engine.SetOptions(pagination.Options{
		PageWidth:    pageWidth,
		PageHeight:   pageHeight,
		MarginTop:    margins.Top,
		MarginRight:  margins.Right,
		MarginBottom: margins.Bottom,
		MarginLeft:   margins.Left,
		MaxPages:     c.options.MaxPages,
		Logger:       logger,
	})
	if c.options.Chrome {
		if tm := decor.Extract(d.Tree, d.Body); !tm.Empty() {
			tm.Logger = logger
			engine.SetChrome(tm)
		}
	}

	pr, err := engine.Paginate(ctx, d.Tree, d.Body)
	if pr == nil {
		return nil, err
	}
	result := &Result{
		Pages:      len(pr.Pages),
		Report:     pr.Report,
		Probes:     pr.Probes,
		PageWidth:  pageWidth,
		PageHeight: pageHeight,
		doc:        d,
	}
	if err != nil {
		return result, fmt.Errorf("failed to paginate: %w", err)
	}
	logger.Info("paginated document", "pages", result.Pages, "problems", len(result.Report), "probes", result.Probes)
	return result, nil
}

// toMM converts points to millimetres rounded to a hundredth
func toMM(pt float64) float64 {
	return math.Round(pt/mmToPt*100) / 100
}

// pageSize returns the page size in points. A size declared by the
// document's meta tags wins over the configured size and orientation.
func (c *Converter) pageSize(d *html.Document) (float64, float64) {
	pageWidth := c.options.PageWidth
	pageHeight := c.options.PageHeight

	switch c.options.PageOrientation {
	case PageOrientationLandscape:
		// Always swap dimensions for landscape to ensure width > height
		if pageWidth < pageHeight {
			pageWidth, pageHeight = pageHeight, pageWidth
		}
	case PageOrientationPortrait, "":
		// Always swap dimensions for portrait to ensure height > width
		if pageWidth > pageHeight {
			pageWidth, pageHeight = pageHeight, pageWidth
		}
	}

	if d.PageWidth > 0 {
		pageWidth = d.PageWidth * mmToPt
	}
	if d.PageHeight > 0 {
		pageHeight = d.PageHeight * mmToPt
	}
	return pageWidth, pageHeight
}

// styleEngine builds the cascade from the user agent stylesheet, the
// linked stylesheets and the document's style elements, in that order
func (c *Converter) styleEngine(d *html.Document, logger *log.Logger) (*style.StyleEngine, error) {
	cssParser := css.NewParser()
	engine := style.NewStyleEngine()
	if c.options.UserAgentStylesheet != "" {
		ua, err := cssParser.ParseString(c.options.UserAgentStylesheet)
		if err != nil {
			return nil, fmt.Errorf("failed to parse CSS: %w", err)
		}
		engine.SetUserAgentStylesheet(ua)
	}

	var sources []string
	for _, href := range d.Links {
		r, err := c.loader.LoadCSS(href)
		if err != nil {
			logger.Warn("failed to load external stylesheet", "href", href, "err", err)
			continue
		}
		logger.Debug("loaded external stylesheet", "href", href)
		sources = append(sources, r.GetString())
	}
	sources = append(sources, d.Stylesheets...)

	for _, src := range sources {
		sheet, err := cssParser.ParseString(src)
		if err != nil {
			logger.Warn("failed to parse stylesheet", "err", err)
			continue
		}
		engine.AddStylesheet(sheet)
	}
	return engine, nil
}

// pageMargins returns the margin of the last @page rule of the document
func pageMargins(engine *style.StyleEngine) (pagination.Margins, bool) {
	decl, ok := engine.PageDeclaration("margin")
	if !ok {
		return pagination.Margins{}, false
	}
	top, right, bottom, left := layout.ParseMargins(decl.Value)
	return pagination.Margins{Top: top, Right: right, Bottom: bottom, Left: left}, true
}

// Convert paginates HTML and writes the result to the specified writer
func (c *Converter) Convert(htmlContent string, output io.Writer) error {
	result, err := c.Paginate(context.Background(), htmlContent)
	if err != nil {
		return err
	}
	if err := result.Render(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// ConvertToFile paginates HTML and writes the result to the specified file
func (c *Converter) ConvertToFile(htmlContent, outputPath string) error {
	var buf bytes.Buffer
	if err := c.Convert(htmlContent, &buf); err != nil {
		return err
	}
	if err := os.WriteFile(outputPath, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", outputPath, err)
	}
	return nil
}

// ConvertFile paginates an HTML file and writes the result to the specified file
func (c *Converter) ConvertFile(inputPath, outputPath string) error {
	htmlContent, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("failed to read HTML file: %w", err)
	}
	c.loader = c.newLoader(inputPath)
	return c.ConvertToFile(string(htmlContent), outputPath)
}

// ConvertURL paginates the HTML document at url and writes the result to the
// specified file
func (c *Converter) ConvertURL(url, outputPath string) error {
	c.loader = c.newLoader(url)
	resource, err := c.loader.LoadHTML(url)
	if err != nil {
		return fmt.Errorf("failed to load HTML from URL: %w", err)
	}
	return c.ConvertToFile(resource.GetString(), outputPath)
}

// Load reads an HTML document from a file path or URL and makes relative
// resources resolve against it
func (c *Converter) Load(location string) (string, error) {
	c.loader = c.newLoader(location)
	resource, err := c.loader.LoadHTML(location)
	if err != nil {
		return "", fmt.Errorf("failed to load HTML: %w", err)
	}
	return resource.GetString(), nil
}

// ConvertBytes paginates HTML bytes and returns the resulting HTML
func (c *Converter) ConvertBytes(htmlContent []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := c.Convert(string(htmlContent), &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Options returns a copy of the converter's options
func (c *Converter) Options() Options {
	return c.options
}

// WithOptions returns a new converter with the specified options
func (c *Converter) WithOptions(options Options) *Converter {
	return NewWithOptions(options)
}

// WithOption returns a new converter with the specified option set
func (c *Converter) WithOption(option Option) *Converter {
	newOptions := c.options
	option(&newOptions)
	return NewWithOptions(newOptions)
}

// AddResourcePath adds a path to search for resources
func (c *Converter) AddResourcePath(path string) *Converter {
	newOptions := c.options
	newOptions.ResourcePaths = append(append([]string(nil), newOptions.ResourcePaths...), path)
	return NewWithOptions(newOptions)
}

// SetPageSize sets the page size
func (c *Converter) SetPageSize(width, height float64) *Converter {
	return c.WithOption(WithPageSize(width, height))
}

// SetMargins sets the page margins
func (c *Converter) SetMargins(top, right, bottom, left float64) *Converter {
	return c.WithOption(WithMargins(top, right, bottom, left))
}

// SetDebug sets the debug mode
func (c *Converter) SetDebug(debug bool) *Converter {
	return c.WithOption(WithDebug(debug))
}

// SetTitle sets the document title
func (c *Converter) SetTitle(title string) *Converter {
	return c.WithOption(WithTitle(title))
}

// LookupPageSize returns the size in points of a standard page size name
// such as "A4" or "letter"
func LookupPageSize(name string) (width, height float64, ok bool) {
	s, ok := pagination.LookupPageSize(strings.TrimSpace(name))
	return s.Width, s.Height, ok
}
