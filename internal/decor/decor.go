// Package decor turns the header and footer of a document into per-page
// instances. Templates are taken out of the flow before pagination and
// cloned for every page, with page numbers and script expressions expanded.
package decor

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dop251/goja"

	"github.com/gompdf/gompage/internal/doc"
	"github.com/gompdf/gompage/internal/parser/html"
	"github.com/gompdf/gompage/internal/report"
)

// Tag names recognised inside templates
const (
	TagHeader = "header"
	TagFooter = "footer"
	TagEval   = "eval"
)

// Placeholder replaces an expression that failed to evaluate
const Placeholder = "??"

// DefaultTimeout bounds the run time of a single expression
const DefaultTimeout = time.Second

// Templates holds the header and footer templates of a document.
// It implements pagination.Chrome.
type Templates struct {
	header doc.NodeID
	footer doc.NodeID

	// Timeout bounds each expression; zero means DefaultTimeout
	Timeout time.Duration
	Logger  *log.Logger

	vm *goja.Runtime
}

// Extract removes the first header and the first footer among the direct
// children of body and returns them as templates
func Extract(t *doc.Tree, body doc.NodeID) *Templates {
	tm := &Templates{header: doc.NoNode, footer: doc.NoNode}
	var kept []doc.NodeID
	for _, id := range t.Children(body) {
		switch {
		case tm.header == doc.NoNode && isTag(t, id, TagHeader):
			tm.header = id
		case tm.footer == doc.NoNode && isTag(t, id, TagFooter):
			tm.footer = id
		default:
			kept = append(kept, id)
		}
	}
	t.SetChildren(body, kept)
	return tm
}

func isTag(t *doc.Tree, id doc.NodeID, tag string) bool {
	n := t.Node(id)
	return n.Kind == doc.KindElement && n.Tag == tag
}

// Empty reports whether the document had neither header nor footer
func (tm *Templates) Empty() bool {
	return tm.header == doc.NoNode && tm.footer == doc.NoNode
}

// Header returns the header instance for page number
func (tm *Templates) Header(t *doc.Tree, number int, rep *report.Collector) doc.NodeID {
	return tm.instance(t, tm.header, number, rep)
}

// Footer returns the footer instance for page number
func (tm *Templates) Footer(t *doc.Tree, number int, rep *report.Collector) doc.NodeID {
	return tm.instance(t, tm.footer, number, rep)
}

func (tm *Templates) instance(t *doc.Tree, tmpl doc.NodeID, number int, rep *report.Collector) doc.NodeID {
	if tmpl == doc.NoNode {
		return doc.NoNode
	}
	id := t.Clone(tmpl)
	tm.expand(t, id, number, rep)
	return id
}

// expand replaces the placeholders below id in place
func (tm *Templates) expand(t *doc.Tree, id doc.NodeID, number int, rep *report.Collector) {
	children := t.Children(id)
	if len(children) == 0 {
		return
	}
	out := make([]doc.NodeID, 0, len(children))
	for _, ch := range children {
		switch {
		case isTag(t, ch, html.TagPageNumber):
			out = append(out, t.NewText(strconv.Itoa(number)))
		case isTag(t, ch, TagEval):
			out = append(out, t.NewText(tm.eval(t.TextContent(ch), number, rep)))
		default:
			tm.expand(t, ch, number, rep)
			out = append(out, ch)
		}
	}
	t.SetChildren(id, out)
}

// eval runs expr with page bound to the page number and returns its string
// value. Failures are reported and yield Placeholder.
func (tm *Templates) eval(expr string, number int, rep *report.Collector) string {
	v, err := tm.run(expr, number)
	if err != nil {
		rep.Add("Failed to evaluate %q on page %d: %v", expr, number, err)
		return Placeholder
	}
	tm.logger().Debug("evaluated expression", "expr", expr, "page", number, "value", v)
	return v
}

func (tm *Templates) run(expr string, number int) (string, error) {
	if tm.vm == nil {
		tm.vm = goja.New()
	}
	vm := tm.vm
	if err := vm.Set("page", number); err != nil {
		return "", err
	}

	timeout := tm.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	timer := time.AfterFunc(timeout, func() {
		vm.Interrupt(fmt.Sprintf("timed out after %s", timeout))
	})
	v, err := vm.RunString(expr)
	timer.Stop()
	vm.ClearInterrupt()
	if err != nil {
		return "", err
	}
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return "", nil
	}
	return v.String(), nil
}

func (tm *Templates) logger() *log.Logger {
	if tm.Logger == nil {
		return log.New(io.Discard)
	}
	return tm.Logger
}
