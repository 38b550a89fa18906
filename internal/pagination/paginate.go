package pagination

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/gompdf/gompage/internal/doc"
	"github.com/gompdf/gompage/internal/report"
)

// ErrTooManyPages is returned when a run needs more pages than allowed
var ErrTooManyPages = errors.New("page limit exceeded")

// Tag names of the nodes the paginator creates
const (
	TagPage    = "page"
	TagContent = "content"
)

// PageSize represents standard page sizes
type PageSize struct {
	Width  float64
	Height float64
	Name   string
}

// Standard page sizes in points (1/72 inch)
var (
	PageSizeA0     = PageSize{Width: 2383.94, Height: 3370.39, Name: "A0"}
	PageSizeA1     = PageSize{Width: 1683.78, Height: 2383.94, Name: "A1"}
	PageSizeA2     = PageSize{Width: 1190.55, Height: 1683.78, Name: "A2"}
	PageSizeA3     = PageSize{Width: 841.89, Height: 1190.55, Name: "A3"}
	PageSizeA4     = PageSize{Width: 595.28, Height: 841.89, Name: "A4"}
	PageSizeA5     = PageSize{Width: 419.53, Height: 595.28, Name: "A5"}
	PageSizeA6     = PageSize{Width: 297.64, Height: 419.53, Name: "A6"}
	PageSizeLetter = PageSize{Width: 612.00, Height: 792.00, Name: "Letter"}
	PageSizeLegal  = PageSize{Width: 612.00, Height: 1008.00, Name: "Legal"}
)

var pageSizes = []PageSize{
	PageSizeA0, PageSizeA1, PageSizeA2, PageSizeA3, PageSizeA4, PageSizeA5, PageSizeA6,
	PageSizeLetter, PageSizeLegal,
}

// LookupPageSize finds a standard page size by name, ignoring case
func LookupPageSize(name string) (PageSize, bool) {
	for _, s := range pageSizes {
		if strings.EqualFold(s.Name, name) {
			return s, true
		}
	}
	return PageSize{}, false
}

// Margins represents page margins
type Margins struct {
	Top    float64
	Right  float64
	Bottom float64
	Left   float64
}

// Result is the outcome of a pagination run
type Result struct {
	Tree       *doc.Tree
	Pages      []doc.NodeID
	Report     []string
	ReportNode doc.NodeID
	Probes     int
}

// Paginator distributes the content of a document body over pages
type Paginator struct {
	PageSize PageSize
	Margins  Margins
	Oracle   Oracle
	Chrome   Chrome
	MaxPages int
	Logger   *log.Logger
}

// NewPaginator creates a new paginator
func NewPaginator(pageSize PageSize, margins Margins, oracle Oracle) *Paginator {
	return &Paginator{
		PageSize: pageSize,
		Margins:  margins,
		Oracle:   oracle,
	}
}

func (p *Paginator) logger() *log.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return log.New(io.Discard)
}

// Paginate moves the children of body onto page elements appended to body,
// followed by the hidden report node. On a fatal error the partial result is
// returned with an error that also carries every entry reported so far.
func (p *Paginator) Paginate(ctx context.Context, t *doc.Tree, body doc.NodeID) (*Result, error) {
	if p.Oracle == nil {
		return nil, errors.New("pagination: no layout oracle")
	}
	logger := p.logger()
	rep := report.New(logger)
	res := &Result{Tree: t, ReportNode: doc.NoNode}

	pending := slices.Clone(t.Children(body))
	t.SetChildren(body, nil)
	checkNestedBreaks(t, pending, rep)

	finish := func() {
		res.ReportNode = rep.Materialize(t, body)
		res.Report = rep.Entries()
	}

	for number := 1; ; number++ {
		if p.MaxPages > 0 && number > p.MaxPages {
			finish()
			return res, rep.Fatal(fmt.Errorf("%w: more than %d pages", ErrTooManyPages, p.MaxPages))
		}

		page, content := p.newPage(t, number, rep)
		t.Append(body, page)
		res.Pages = append(res.Pages, page)

		r := &resolver{tree: t, oracle: p.Oracle, page: page, report: rep, log: logger}
		rest, progress, err := r.resolve(ctx, content, pending)
		res.Probes += r.probes
		if err != nil {
			finish()
			return res, rep.Fatal(fmt.Errorf("page %d: %w", number, err))
		}
		logger.Debug("filled page", "page", number, "placed", len(t.Children(content)), "probes", r.probes, "progress", progress)

		if rest == doc.NoNode {
			break
		}
		pending = slices.Clone(t.Children(rest))

		if !progress && len(pending) > 0 {
			probes := r.probes
			var first doc.NodeID
			var over bool
			first, pending, over, err = r.force(ctx, content, pending)
			res.Probes += r.probes - probes
			if err != nil {
				finish()
				return res, rep.Fatal(fmt.Errorf("page %d: %w", number, err))
			}
			if over {
				rep.Add("A nonbreaking element (%s) is too large to fit in the page.", t.Node(first).Tag)
			} else {
				rep.Add("A nonbreaking element (%s) could not be kept with its neighbours.", t.Node(first).Tag)
			}
		}
		if len(pending) == 0 {
			break
		}
	}

	finish()
	return res, nil
}

// force places the head of pending on a page that took nothing. Breakable
// elements are entered and split after their first nonbreaking descendant,
// unless the element alone overflows. It returns the forced node, what is
// still pending and whether the page overflows with it.
func (r *resolver) force(ctx context.Context, container doc.NodeID, pending []doc.NodeID) (doc.NodeID, []doc.NodeID, bool, error) {
	t := r.tree
	for len(pending) > 1 && isBlank(t, pending[0]) {
		t.Append(container, pending[0])
		pending = pending[1:]
	}
	first := pending[0]
	children := slices.Clone(t.Children(first))

	if t.Node(first).Kind == doc.KindElement && !IsNonbreaking(t, first) && len(children) > 0 {
		t.SetChildren(first, nil)
		t.Append(container, first)
		over, err := r.overflowing(ctx)
		if err != nil {
			return doc.NoNode, nil, false, err
		}
		if !over {
			forced, left, over, err := r.force(ctx, first, children)
			if err != nil {
				return doc.NoNode, nil, false, err
			}
			pending = pending[1:]
			if len(left) > 0 {
				rest := t.Shell(first)
				t.SetChildren(rest, left)
				r.markSplit(first, rest)
				pending = append([]doc.NodeID{rest}, pending...)
			}
			return forced, pending, over, nil
		}
		t.RemoveLast(container)
		t.SetChildren(first, children)
	}

	t.Append(container, first)
	over, err := r.overflowing(ctx)
	if err != nil {
		return doc.NoNode, nil, false, err
	}
	return first, pending[1:], over, nil
}

// isBlank reports whether id is a text run of whitespace only
func isBlank(t *doc.Tree, id doc.NodeID) bool {
	n := t.Node(id)
	return n.Kind == doc.KindText && strings.TrimSpace(n.Text) == ""
}

// newPage builds the page element with its header, content container and footer
func (p *Paginator) newPage(t *doc.Tree, number int, rep *report.Collector) (page, content doc.NodeID) {
	page = t.NewElement(TagPage,
		doc.Attribute{Key: "id", Val: fmt.Sprintf("page-%d", number)},
		doc.Attribute{Key: "style", Val: fmt.Sprintf("width: %.2fpt; height: %.2fpt; padding: %.2fpt %.2fpt %.2fpt %.2fpt",
			p.PageSize.Width, p.PageSize.Height,
			p.Margins.Top, p.Margins.Right, p.Margins.Bottom, p.Margins.Left)},
	)
	if p.Chrome != nil {
		if h := p.Chrome.Header(t, number, rep); h != doc.NoNode {
			t.Append(page, h)
		}
	}
	content = t.NewElement(TagContent)
	t.Append(page, content)
	if p.Chrome != nil {
		if f := p.Chrome.Footer(t, number, rep); f != doc.NoNode {
			t.Append(page, f)
		}
	}
	return page, content
}

// checkNestedBreaks reports page breaks that sit inside nonbreaking elements.
// The break still applies.
func checkNestedBreaks(t *doc.Tree, roots []doc.NodeID, rep *report.Collector) {
	for _, root := range roots {
		t.Walk(root, func(id doc.NodeID) bool {
			if IsNonbreaking(t, id) && ContainsForcedBreak(t, id) {
				rep.Add("A page break is nested inside a nonbreaking element (%s).", t.Node(id).Tag)
				return false
			}
			return true
		})
	}
}
