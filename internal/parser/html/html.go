package html

import (
	"bytes"
	"errors"
	"io"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/gompdf/gompage/internal/doc"
)

// Tags with meaning to the paginator. Both markers are void-like: whatever
// the HTML parser nests inside them is hoisted to their following siblings.
const (
	TagPageBreak  = doc.TagPageBreak
	TagPageNumber = "pagenumber"
)

// Parser represents an HTML parser
type Parser struct {
	// KeepWhitespace keeps whitespace-only text between blocks
	KeepWhitespace bool
}

// Document represents a parsed HTML document
type Document struct {
	Tree *doc.Tree
	Root doc.NodeID // the html element
	Head doc.NodeID
	Body doc.NodeID

	Title string
	// PageWidth and PageHeight come from <meta name="pagewidth|pageheight">
	// in millimetres; zero when absent
	PageWidth  float64
	PageHeight float64
	// Stylesheets holds the text of every <style> element in document order
	Stylesheets []string
	// Links holds the href of every <link rel="stylesheet"> in document order
	Links []string
}

// NewParser creates a new HTML parser
func NewParser() *Parser {
	return &Parser{}
}

// ParseString parses HTML from a string
func (p *Parser) ParseString(content string) (*Document, error) {
	return p.Parse(strings.NewReader(content))
}

// Parse parses HTML from an io.Reader
func (p *Parser) Parse(r io.Reader) (*Document, error) {
	node, err := html.Parse(r)
	if err != nil {
		return nil, err
	}

	d := &Document{Tree: doc.NewTree(), Root: doc.NoNode, Head: doc.NoNode, Body: doc.NoNode}
	for c := node.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == atom.Html {
			d.Root = d.Tree.NewElement("html", convertAttrs(c.Attr)...)
			d.Tree.SetChildren(d.Root, p.convertChildren(d, c))
		}
	}
	if d.Root == doc.NoNode {
		return nil, errors.New("no html element")
	}
	for _, ch := range d.Tree.Children(d.Root) {
		switch d.Tree.Node(ch).Tag {
		case "head":
			d.Head = ch
		case "body":
			d.Body = ch
		}
	}
	if d.Body == doc.NoNode {
		d.Body = d.Tree.NewElement("body")
		d.Tree.Append(d.Root, d.Body)
	}
	return d, nil
}

func convertAttrs(attrs []html.Attribute) []doc.Attribute {
	out := make([]doc.Attribute, 0, len(attrs))
	for _, a := range attrs {
		out = append(out, doc.Attribute{Key: a.Key, Val: a.Val})
	}
	return out
}

// convertChildren converts the children of n and returns them in order
func (p *Parser) convertChildren(d *Document, n *html.Node) []doc.NodeID {
	var out []doc.NodeID
	pre := n.DataAtom == atom.Pre || n.DataAtom == atom.Textarea
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, p.convertNode(d, c, n, pre)...)
	}
	return out
}

// convertNode converts an html.Node into zero or more tree nodes
func (p *Parser) convertNode(d *Document, n, parent *html.Node, pre bool) []doc.NodeID {
	t := d.Tree
	switch n.Type {
	case html.TextNode:
		if !pre && !p.KeepWhitespace && strings.TrimSpace(n.Data) == "" && isBlockContainer(parent) &&
			isBlockNeighbour(prevSibling(n)) && isBlockNeighbour(nextSibling(n)) {
			return nil
		}
		return []doc.NodeID{t.NewText(n.Data)}

	case html.ElementNode:
		tag := strings.ToLower(n.Data)
		switch tag {
		case "script", "noscript", "template":
			return nil
		case "style":
			d.Stylesheets = append(d.Stylesheets, textOf(n))
			return nil
		case "title":
			d.Title = strings.TrimSpace(textOf(n))
			return nil
		case "meta":
			p.readMeta(d, n)
			return nil
		case "link":
			if strings.Contains(strings.ToLower(attr(n, "rel")), "stylesheet") && attr(n, "href") != "" {
				d.Links = append(d.Links, attr(n, "href"))
			}
			return nil
		case doc.TagText:
			if isPlainText(n) {
				return []doc.NodeID{t.NewText(textOf(n))}
			}
		case TagPageBreak:
			return append([]doc.NodeID{t.NewBreak()}, p.convertChildren(d, n)...)
		case TagPageNumber:
			return append([]doc.NodeID{t.NewElement(tag, convertAttrs(n.Attr)...)}, p.convertChildren(d, n)...)
		}
		id := t.NewElement(tag, convertAttrs(n.Attr)...)
		t.SetChildren(id, p.convertChildren(d, n))
		return []doc.NodeID{id}
	}

	// comments, doctypes and raw nodes carry no content
	return nil
}

// readMeta picks up the page size hints
func (p *Parser) readMeta(d *Document, n *html.Node) {
	v, err := strconv.ParseFloat(strings.TrimSpace(attr(n, "content")), 64)
	if err != nil || v <= 0 {
		return
	}
	switch strings.ToLower(attr(n, "name")) {
	case "pagewidth":
		d.PageWidth = v
	case "pageheight":
		d.PageHeight = v
	}
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}

func textOf(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(c *html.Node) {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
		for ch := c.FirstChild; ch != nil; ch = ch.NextSibling {
			walk(ch)
		}
	}
	walk(n)
	return b.String()
}

// isPlainText reports whether a text element has neither attributes nor
// element children, so it can become a bare text run
func isPlainText(n *html.Node) bool {
	if len(n.Attr) > 0 {
		return false
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			return false
		}
	}
	return true
}

// skipped reports whether n produces no node in the tree
func skipped(n *html.Node) bool {
	switch n.Type {
	case html.TextNode:
		return false
	case html.ElementNode:
		switch n.DataAtom {
		case atom.Script, atom.Noscript, atom.Template, atom.Style, atom.Title, atom.Meta, atom.Link:
			return true
		}
		return false
	}
	return true
}

func prevSibling(n *html.Node) *html.Node {
	c := n.PrevSibling
	for c != nil && skipped(c) {
		c = c.PrevSibling
	}
	return c
}

func nextSibling(n *html.Node) *html.Node {
	c := n.NextSibling
	for c != nil && skipped(c) {
		c = c.NextSibling
	}
	return c
}

// isBlockNeighbour reports whether whitespace next to n separates nothing
// inline. A missing neighbour counts as block-level.
func isBlockNeighbour(n *html.Node) bool {
	if n == nil {
		return true
	}
	if n.Type != html.ElementNode {
		return false
	}
	switch n.DataAtom {
	case atom.P, atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6, atom.Li,
		atom.Pre, atom.Hr, atom.Dt, atom.Dd, atom.Th, atom.Td, atom.Caption,
		atom.Figcaption, atom.Address, atom.Head, atom.Body:
		return true
	}
	return isBlockContainer(n)
}

// isBlockContainer reports whether whitespace between the children of n is
// insignificant
func isBlockContainer(n *html.Node) bool {
	if n == nil || n.Type != html.ElementNode {
		return true
	}
	switch n.DataAtom {
	case atom.Html, atom.Head, atom.Body, atom.Div, atom.Section, atom.Article,
		atom.Header, atom.Footer, atom.Main, atom.Nav, atom.Aside, atom.Ul, atom.Ol,
		atom.Dl, atom.Table, atom.Thead, atom.Tbody, atom.Tfoot, atom.Tr,
		atom.Blockquote, atom.Figure, atom.Form, atom.Fieldset:
		return true
	}
	switch strings.ToLower(n.Data) {
	case TagPageBreak, "content", "page":
		return true
	}
	return false
}

// Render renders the document back to HTML
func (d *Document) Render() (string, error) {
	var buf bytes.Buffer
	if err := d.RenderTo(&buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderTo writes the document as HTML to w.
// Split halves carry a split attribute naming their half.
func (d *Document) RenderTo(w io.Writer) error {
	root := &html.Node{Type: html.DocumentNode}
	root.AppendChild(&html.Node{Type: html.DoctypeNode, Data: "html"})
	root.AppendChild(d.renderNode(d.Root))
	return html.Render(w, root)
}

// renderNode converts a tree node and its subtree to an html.Node
func (d *Document) renderNode(id doc.NodeID) *html.Node {
	t := d.Tree
	n := t.Node(id)

	switch n.Kind {
	case doc.KindText:
		text := &html.Node{Type: html.TextNode, Data: n.Text}
		if n.Split == doc.SplitNone {
			return text
		}
		wrap := &html.Node{Type: html.ElementNode, Data: doc.TagText,
			Attr: []html.Attribute{{Key: "split", Val: n.Split.String()}}}
		wrap.AppendChild(text)
		return wrap
	case doc.KindBreak:
		return &html.Node{Type: html.ElementNode, Data: TagPageBreak}
	}

	el := &html.Node{Type: html.ElementNode, Data: n.Tag, DataAtom: atom.Lookup([]byte(n.Tag))}
	for _, a := range n.Attr {
		el.Attr = append(el.Attr, html.Attribute{Key: a.Key, Val: a.Val})
	}
	if n.Split != doc.SplitNone {
		el.Attr = append(el.Attr, html.Attribute{Key: "split", Val: n.Split.String()})
	}
	if id == d.Head {
		d.renderHead(el)
	}
	for _, ch := range n.Children {
		el.AppendChild(d.renderNode(ch))
	}
	return el
}

// renderHead puts the title, the page size metadata and the stylesheets
// back into head. Linked sheets come before style elements.
func (d *Document) renderHead(head *html.Node) {
	if d.Title != "" {
		title := &html.Node{Type: html.ElementNode, Data: "title", DataAtom: atom.Title}
		title.AppendChild(&html.Node{Type: html.TextNode, Data: d.Title})
		head.AppendChild(title)
	}
	for _, m := range []struct {
		name string
		val  float64
	}{{"pagewidth", d.PageWidth}, {"pageheight", d.PageHeight}} {
		if m.val <= 0 {
			continue
		}
		head.AppendChild(&html.Node{Type: html.ElementNode, Data: "meta", DataAtom: atom.Meta, Attr: []html.Attribute{
			{Key: "name", Val: m.name},
			{Key: "content", Val: strconv.FormatFloat(m.val, 'f', -1, 64)},
		}})
	}
	for _, href := range d.Links {
		head.AppendChild(&html.Node{Type: html.ElementNode, Data: "link", DataAtom: atom.Link, Attr: []html.Attribute{
			{Key: "rel", Val: "stylesheet"},
			{Key: "href", Val: href},
		}})
	}
	for _, css := range d.Stylesheets {
		style := &html.Node{Type: html.ElementNode, Data: "style", DataAtom: atom.Style}
		style.AppendChild(&html.Node{Type: html.TextNode, Data: css})
		head.AppendChild(style)
	}
}
