package layout

import (
	"context"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/gompdf/gompage/internal/doc"
	"github.com/gompdf/gompage/internal/style"
	"github.com/gompdf/gompage/internal/text"
)

// ImageSizer reports the intrinsic size of an image in CSS pixels
type ImageSizer interface {
	ImageSize(src string) (width, height float64, err error)
}

// Options represents options for the layout oracle
type Options struct {
	// Width is the content width of a page in points
	Width float64
	// Height is the height available to the header, content and footer of a page
	Height float64
	// Ancestors are the elements pages are appended to, outermost first.
	// They take part in selector matching and inheritance.
	Ancestors []doc.NodeID

	Styles   *style.StyleEngine
	Measurer Measurer
	Images   ImageSizer
	Logger   *log.Logger
}

// overflowTolerance absorbs rounding in the sum of block heights
const overflowTolerance = 0.001

// StackOracle lays blocks out top to bottom and reports whether a page's
// flow is taller than the space a page offers. Margins do not collapse.
type StackOracle struct {
	opts   Options
	shaper *text.TextShaper
	log    *log.Logger
	images map[string]imageSize
}

type imageSize struct {
	w, h float64
	err  error
}

// NewStackOracle creates a layout oracle
func NewStackOracle(opts Options) *StackOracle {
	if opts.Styles == nil {
		opts.Styles = style.NewStyleEngine()
	}
	if opts.Measurer == nil {
		opts.Measurer = NewFontMeasurer()
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &StackOracle{
		opts:   opts,
		shaper: text.NewTextShaper(opts.Measurer.Width),
		log:    logger,
		images: make(map[string]imageSize),
	}
}

// Capacity returns the height available to a page's flow
func (o *StackOracle) Capacity() float64 {
	return o.opts.Height
}

// Overflowing reports whether the flow of page is taller than its capacity
func (o *StackOracle) Overflowing(ctx context.Context, t *doc.Tree, page doc.NodeID) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	h := o.Measure(t, page)
	return h > o.opts.Height+overflowTolerance, nil
}

// Measure returns the height of the children of page stacked in the
// page's content width
func (o *StackOracle) Measure(t *doc.Tree, page doc.NodeID) float64 {
	m := &measurement{
		o:      o,
		t:      t,
		styles: o.opts.Styles.ComputeSubtree(t, page, o.opts.Ancestors),
		fonts:  make(map[doc.NodeID]text.Font),
	}
	root := text.Font{Family: "Times", Size: rootFontSize, LineHeight: 1.2}
	f := m.fontOf(page, root)
	return m.contentHeight(t.Children(page), o.opts.Width, f, false)
}

// imageSize returns the intrinsic size of src in points, loading it once
func (o *StackOracle) imageSize(src string) (float64, float64, bool) {
	if o.opts.Images == nil || src == "" {
		return 0, 0, false
	}
	sz, ok := o.images[src]
	if !ok {
		w, h, err := o.opts.Images.ImageSize(src)
		sz = imageSize{w * pxToPt, h * pxToPt, err}
		o.images[src] = sz
		if err != nil {
			o.log.Warn("failed to size image", "src", src, "err", err)
		}
	}
	return sz.w, sz.h, sz.err == nil && sz.w > 0 && sz.h > 0
}

// measurement holds the per-query state of one Measure call
type measurement struct {
	o      *StackOracle
	t      *doc.Tree
	styles map[doc.NodeID]style.ComputedStyle
	fonts  map[doc.NodeID]text.Font
}

// isBlockTag reports whether a tag name is treated as block-level
func isBlockTag(tag string) bool {
	switch tag {
	case "div", "p", "h1", "h2", "h3", "h4", "h5", "h6",
		"ul", "ol", "li", "table", "thead", "tbody", "tfoot",
		"tr", "td", "th", "header", "footer", "section", "article",
		"form", "fieldset", "hr", "blockquote", "address", "main",
		"nav", "aside", "pre", "figure", "figcaption", "dl", "dt", "dd",
		"img", "svg", "caption", "content", "page":
		return true
	default:
		return false
	}
}

func (m *measurement) style(id doc.NodeID) style.ComputedStyle {
	return m.styles[id]
}

func (m *measurement) hidden(id doc.NodeID) bool {
	n := m.t.Node(id)
	if n.Kind != doc.KindElement {
		return false
	}
	return m.style(id).Get("display") == "none" || m.t.HasAttr(id, "hidden")
}

func (m *measurement) isBlock(id doc.NodeID) bool {
	n := m.t.Node(id)
	if n.Kind != doc.KindElement {
		return false
	}
	switch m.style(id).Get("display") {
	case "block", "list-item", "table", "table-row", "table-row-group", "flex", "grid":
		return true
	case "inline", "inline-block", "table-cell":
		return false
	}
	return isBlockTag(n.Tag)
}

// fontOf resolves the font of element id from its style and its parent's font
func (m *measurement) fontOf(id doc.NodeID, parent text.Font) text.Font {
	if f, ok := m.fonts[id]; ok {
		return f
	}
	st := m.style(id)
	f := parent
	f.Family, f.Style = resolveFontFromStyle(st)

	if p, ok := st["font-size"]; ok {
		relative := strings.HasSuffix(p.Value, "em") || strings.HasSuffix(p.Value, "%")
		if p.Source != style.SourceInherited || !relative {
			f.Size = fontSize(p.Value, parent.Size)
		}
	}

	switch lh := strings.TrimSpace(st.Get("line-height")); {
	case lh == "" || lh == "normal":
	case strings.IndexFunc(lh, func(r rune) bool { return r != '.' && (r < '0' || r > '9') }) < 0:
		if v, err := strconv.ParseFloat(lh, 64); err == nil && v > 0 {
			f.LineHeight = v
		}
	default:
		if v := parseLength(lh, f.Size, f.Size, 0); v > 0 && f.Size > 0 {
			f.LineHeight = v / f.Size
		}
	}

	m.fonts[id] = f
	return f
}

// fontSize resolves a font-size value against the parent size, in points
func fontSize(value string, parent float64) float64 {
	switch strings.TrimSpace(value) {
	case "xx-small":
		return 9 * pxToPt
	case "x-small":
		return 10 * pxToPt
	case "small":
		return 13 * pxToPt
	case "medium":
		return 16 * pxToPt
	case "large":
		return 18 * pxToPt
	case "x-large":
		return 24 * pxToPt
	case "xx-large":
		return 32 * pxToPt
	case "smaller":
		return parent / 1.2
	case "larger":
		return parent * 1.2
	}
	if v := parseLength(value, parent, parent, 0); v > 0 {
		return v
	}
	return parent
}

// contentHeight stacks children in a box of the given width. Consecutive
// inline-level children form one paragraph.
func (m *measurement) contentHeight(children []doc.NodeID, width float64, f text.Font, pre bool) float64 {
	h := 0.0
	var run []doc.NodeID
	flush := func() {
		if len(run) > 0 {
			h += m.inlineHeight(run, width, f, pre)
			run = run[:0]
		}
	}
	for _, ch := range children {
		switch {
		case m.t.Node(ch).Kind == doc.KindBreak, m.hidden(ch):
		case m.isBlock(ch):
			flush()
			h += m.blockHeight(ch, width, f)
		default:
			run = append(run, ch)
		}
	}
	flush()
	return h
}

// inlineHeight sets a run of inline-level nodes into lines. A br ends a line.
func (m *measurement) inlineHeight(run []doc.NodeID, width float64, f text.Font, pre bool) float64 {
	var segments [][]text.Span
	var cur []text.Span

	var collect func(id doc.NodeID, f text.Font)
	collect = func(id doc.NodeID, f text.Font) {
		n := m.t.Node(id)
		switch n.Kind {
		case doc.KindText:
			cur = append(cur, text.Span{Text: n.Text, Font: f})
			return
		case doc.KindBreak:
			return
		}
		if m.hidden(id) {
			return
		}
		if n.Tag == "br" {
			segments = append(segments, cur)
			cur = nil
			return
		}
		ef := m.fontOf(id, f)
		if len(n.Children) == 0 && n.Tag == "pagenumber" {
			cur = append(cur, text.Span{Text: "000", Font: ef})
			return
		}
		for _, ch := range n.Children {
			collect(ch, ef)
		}
	}
	for _, id := range run {
		collect(id, f)
	}
	// cur is the open segment; it has no trailing br
	opened := len(segments)
	segments = append(segments, cur)

	h := 0.0
	for i, seg := range segments {
		var lines []text.Line
		if pre {
			lines = m.o.shaper.PreformattedLines(seg)
		} else {
			lines = m.o.shaper.SplitTextToLines(seg, width)
		}
		for _, l := range lines {
			h += l.Height
		}
		if len(lines) == 0 && i < opened {
			h += f.Leading()
		}
	}
	return h
}

// boxEdges returns the vertical margins, borders and paddings of an element
// and the width left for its content
func (m *measurement) boxEdges(st style.ComputedStyle, width, size float64) (top, bottom, inner float64) {
	mt, mr, mb, ml := parseBoxShorthand(st.Get("margin"), width, size, 0)
	pt, pr, pb, pl := parseBoxShorthand(st.Get("padding"), width, size, 0)
	side := func(prop string, v *float64) {
		if s, ok := st[prop]; ok {
			*v = parseLength(s.Value, width, size, *v)
		}
	}
	side("margin-top", &mt)
	side("margin-right", &mr)
	side("margin-bottom", &mb)
	side("margin-left", &ml)
	side("padding-top", &pt)
	side("padding-right", &pr)
	side("padding-bottom", &pb)
	side("padding-left", &pl)

	b := borderWidth(st.Get("border"), size)
	bt, bb, bl, br := b, b, b, b
	if s, ok := st["border-width"]; ok {
		bt, br, bb, bl = parseBoxShorthand(s.Value, 0, size, 0)
	}
	edge := func(name string, v *float64) {
		if s, ok := st["border-"+name]; ok {
			*v = borderWidth(s.Value, size)
		}
		if s, ok := st["border-"+name+"-width"]; ok {
			*v = parseLength(s.Value, 0, size, *v)
		}
	}
	edge("top", &bt)
	edge("bottom", &bb)
	edge("left", &bl)
	edge("right", &br)

	inner = width - ml - mr - pl - pr - bl - br
	if inner < 0 {
		inner = 0
	}
	return mt + bt + pt, pb + bb + mb, inner
}

// explicitHeight returns the height an element declares for its content box
func (m *measurement) explicitHeight(id doc.NodeID, st style.ComputedStyle, width, size float64) (float64, bool) {
	if v := strings.TrimSpace(st.Get("height")); v != "" && v != "auto" && !strings.HasSuffix(v, "%") {
		return parseLength(v, width, size, 0), true
	}
	if v, ok := m.t.Attr(id, "height"); ok {
		if n, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(v), "px"), 64); err == nil {
			return n * pxToPt, true
		}
	}
	return 0, false
}

// blockHeight returns the margin box height of a block-level element
func (m *measurement) blockHeight(id doc.NodeID, width float64, parent text.Font) float64 {
	st := m.style(id)
	f := m.fontOf(id, parent)
	top, bottom, inner := m.boxEdges(st, width, f.Size)

	n := m.t.Node(id)
	content, ok := m.explicitHeight(id, st, width, f.Size)
	if !ok {
		switch n.Tag {
		case "img":
			content = m.imageHeight(id, st, inner, f.Size)
		case "svg":
			content = m.svgHeight(id, st, inner, f.Size)
		case "tr":
			content = m.rowHeight(id, inner, f)
		default:
			pre := strings.HasPrefix(st.Get("white-space"), "pre")
			content = m.contentHeight(n.Children, inner, f, pre)
		}
	}
	if v := st.Get("min-height"); v != "" {
		content = max(content, parseLength(v, width, f.Size, 0))
	}
	return top + content + bottom
}

// rowHeight lays the cells of a table row side by side and returns the tallest
func (m *measurement) rowHeight(id doc.NodeID, width float64, f text.Font) float64 {
	var cells []doc.NodeID
	for _, ch := range m.t.Children(id) {
		if m.t.Node(ch).Kind == doc.KindElement && !m.hidden(ch) {
			cells = append(cells, ch)
		}
	}
	if len(cells) == 0 {
		return 0
	}
	cw := width / float64(len(cells))
	h := 0.0
	for _, c := range cells {
		h = max(h, m.blockHeight(c, cw, f))
	}
	return h
}

// declaredWidth returns the width attribute or style of an element in points
func (m *measurement) declaredWidth(id doc.NodeID, st style.ComputedStyle, width, size float64) (float64, bool) {
	if v := strings.TrimSpace(st.Get("width")); v != "" && v != "auto" {
		return parseLength(v, width, size, 0), true
	}
	if v, ok := m.t.Attr(id, "width"); ok {
		if n, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(v), "px"), 64); err == nil {
			return n * pxToPt, true
		}
	}
	return 0, false
}

// imageHeight sizes an image from its declared width and intrinsic ratio,
// shrunk to fit width
func (m *measurement) imageHeight(id doc.NodeID, st style.ComputedStyle, width, size float64) float64 {
	src, _ := m.t.Attr(id, "src")
	iw, ih, ok := m.o.imageSize(src)
	if !ok {
		return 0
	}
	w := iw
	if dw, ok := m.declaredWidth(id, st, width, size); ok {
		w = dw
	}
	if w > width && width > 0 {
		w = width
	}
	return ih * w / iw
}

// svgHeight sizes an inline svg from its view box
func (m *measurement) svgHeight(id doc.NodeID, st style.ComputedStyle, width, size float64) float64 {
	vb, _ := m.t.Attr(id, "viewbox")
	parts := strings.Fields(strings.ReplaceAll(vb, ",", " "))
	if len(parts) != 4 {
		return 0
	}
	vw, err1 := strconv.ParseFloat(parts[2], 64)
	vh, err2 := strconv.ParseFloat(parts[3], 64)
	if err1 != nil || err2 != nil || vw <= 0 || vh <= 0 {
		return 0
	}
	w := vw * pxToPt
	if dw, ok := m.declaredWidth(id, st, width, size); ok {
		w = dw
	}
	if w > width && width > 0 {
		w = width
	}
	return vh * w / vw
}
