package style

import (
	"slices"
	"strings"

	"github.com/gompdf/gompage/internal/doc"
	"github.com/gompdf/gompage/internal/parser/css"
)

// Specificity represents the specificity of a CSS selector
type Specificity struct {
	ID      int
	Class   int
	Element int
}

// StyleProperty represents a computed style property
type StyleProperty struct {
	Name        string
	Value       string
	Important   bool
	Source      Source
	Specificity Specificity
}

// Source represents the source of a style property
type Source int

const (
	SourceUserAgent Source = iota
	SourceAuthor
	SourceInline
	SourceInherited Source = -1
)

// ComputedStyle represents the computed style for an element
type ComputedStyle map[string]StyleProperty

// Get returns the value of property, or the empty string
func (s ComputedStyle) Get(property string) string {
	return s[property].Value
}

// inherited lists the properties a child takes from its parent when it does
// not set them itself
var inherited = []string{
	"font-family", "font-size", "font-style", "font-weight",
	"line-height", "white-space",
}

// StyleEngine handles the CSS cascade and style computation
type StyleEngine struct {
	userAgentStyles *css.Stylesheet
	authorStyles    []*css.Stylesheet
}

// NewStyleEngine creates a new style engine with the built-in user agent stylesheet
func NewStyleEngine() *StyleEngine {
	return &StyleEngine{
		userAgentStyles: defaultUserAgentStyles(),
		authorStyles:    []*css.Stylesheet{},
	}
}

// SetUserAgentStylesheet replaces the user agent stylesheet
func (e *StyleEngine) SetUserAgentStylesheet(stylesheet *css.Stylesheet) {
	e.userAgentStyles = stylesheet
}

// AddStylesheet adds an author stylesheet to the style engine
func (e *StyleEngine) AddStylesheet(stylesheet *css.Stylesheet) {
	e.authorStyles = append(e.authorStyles, stylesheet)
}

// PageDeclaration returns the last @page declaration for property among the
// author stylesheets
func (e *StyleEngine) PageDeclaration(property string) (*css.Declaration, bool) {
	for i := len(e.authorStyles) - 1; i >= 0; i-- {
		if d, ok := e.authorStyles[i].Lookup(property); ok {
			return d, true
		}
	}
	return nil, false
}

// ComputeStyles computes styles for every element below root, root included.
// Text runs and break markers get no entry.
func (e *StyleEngine) ComputeStyles(t *doc.Tree, root doc.NodeID) map[doc.NodeID]ComputedStyle {
	return e.ComputeSubtree(t, root, nil)
}

// ComputeSubtree computes styles below root as if it sat under ancestors,
// outermost first. Ancestors take part in selector matching and inheritance
// but get no entry of their own.
func (e *StyleEngine) ComputeSubtree(t *doc.Tree, root doc.NodeID, ancestors []doc.NodeID) map[doc.NodeID]ComputedStyle {
	var parent ComputedStyle
	for i, a := range ancestors {
		st := e.computeStyleForElement(t, a, ancestors[:i])
		inherit(st, parent)
		parent = st
	}
	result := make(map[doc.NodeID]ComputedStyle)
	e.computeStylesRecursive(t, root, slices.Clip(ancestors), parent, result)
	return result
}

// computeStylesRecursive computes styles for an element and its children.
// ancestors lists the element's ancestors, nearest last.
func (e *StyleEngine) computeStylesRecursive(t *doc.Tree, id doc.NodeID, ancestors []doc.NodeID, parent ComputedStyle, result map[doc.NodeID]ComputedStyle) {
	if t.Node(id).Kind != doc.KindElement {
		return
	}

	style := e.computeStyleForElement(t, id, ancestors)
	inherit(style, parent)
	result[id] = style

	ancestors = append(ancestors, id)
	for _, child := range t.Children(id) {
		e.computeStylesRecursive(t, child, ancestors, style, result)
	}
}

// inherit copies the inherited properties style does not set from parent
func inherit(style, parent ComputedStyle) {
	for _, name := range inherited {
		if _, ok := style[name]; ok {
			continue
		}
		if p, ok := parent[name]; ok {
			p.Source = SourceInherited
			style[name] = p
		}
	}
}

// computeStyleForElement computes the style for a single element
func (e *StyleEngine) computeStyleForElement(t *doc.Tree, id doc.NodeID, ancestors []doc.NodeID) ComputedStyle {
	style := make(ComputedStyle)

	if e.userAgentStyles != nil {
		e.applyStylesheet(style, t, id, ancestors, e.userAgentStyles, SourceUserAgent)
	}

	for _, stylesheet := range e.authorStyles {
		e.applyStylesheet(style, t, id, ancestors, stylesheet, SourceAuthor)
	}

	e.applyInlineStyles(style, t, id)

	return style
}

// applyStylesheet applies styles from a stylesheet to an element
func (e *StyleEngine) applyStylesheet(style ComputedStyle, t *doc.Tree, id doc.NodeID, ancestors []doc.NodeID, stylesheet *css.Stylesheet, source Source) {
	for _, rule := range stylesheet.Rules {
		for _, selector := range rule.Selectors {
			if selectorMatches(t, id, ancestors, selector) {
				e.applyDeclarations(style, rule.Declarations, calculateSpecificity(selector), source)
			}
		}
	}
}

// applyInlineStyles applies the style attribute of an element
func (e *StyleEngine) applyInlineStyles(style ComputedStyle, t *doc.Tree, id doc.NodeID) {
	if v, ok := t.Attr(id, "style"); ok {
		e.applyDeclarations(style, css.ParseDeclarations(v), Specificity{1, 0, 0}, SourceInline)
	}
}

// applyDeclarations applies CSS declarations to a style
func (e *StyleEngine) applyDeclarations(style ComputedStyle, declarations []*css.Declaration, specificity Specificity, source Source) {
	for _, decl := range declarations {
		property := decl.Property
		existing, exists := style[property]

		// Apply the new declaration if:
		// 1. The property doesn't exist yet, or
		// 2. The new declaration is !important and the existing one is not, or
		// 3. Both have the same importance and the new one comes from a higher priority source, or
		// 4. Same importance and source, and the new one is at least as specific (later wins ties)
		if !exists ||
			(decl.Important && !existing.Important) ||
			(decl.Important == existing.Important && source > existing.Source) ||
			(decl.Important == existing.Important && source == existing.Source &&
				compareSpecificity(specificity, existing.Specificity) >= 0) {

			style[property] = StyleProperty{
				Name:        property,
				Value:       decl.Value,
				Important:   decl.Important,
				Source:      source,
				Specificity: specificity,
			}
		}
	}
}

// selectorMatches checks if an element matches a CSS selector.
// Only descendant combinators are supported.
func selectorMatches(t *doc.Tree, id doc.NodeID, ancestors []doc.NodeID, selector string) bool {
	parts := strings.Fields(selector)
	if len(parts) == 0 {
		return false
	}
	if !matchCompoundSelector(t, id, parts[len(parts)-1]) {
		return false
	}

	next := len(ancestors) - 1
	for i := len(parts) - 2; i >= 0; i-- {
		found := false
		for ; next >= 0; next-- {
			if matchCompoundSelector(t, ancestors[next], parts[i]) {
				found = true
				next--
				break
			}
		}
		if !found {
			return false
		}
	}

	return true
}

// matchCompoundSelector matches a single compound selector against a node.
// Compound selectors can be forms like:
//   - tag
//   - .class
//   - #id
//   - tag.class
//   - tag#id.class1.class2
//   - .class1.class2
//
// It does not support attributes, pseudo-classes, or combinators.
func matchCompoundSelector(t *doc.Tree, id doc.NodeID, sel string) bool {
	n := t.Node(id)
	if n.Kind != doc.KindElement || sel == "" {
		return false
	}

	var wantTag string
	var wantID string
	var wantClasses []string

	i := 0
	if sel[i] != '.' && sel[i] != '#' {
		j := i
		for j < len(sel) && sel[j] != '#' && sel[j] != '.' {
			j++
		}
		wantTag = strings.ToLower(sel[i:j])
		i = j
	}
	for i < len(sel) {
		if sel[i] != '#' && sel[i] != '.' {
			// Unexpected character; fail safe
			return false
		}
		j := i + 1
		for j < len(sel) && sel[j] != '.' && sel[j] != '#' {
			j++
		}
		if sel[i] == '#' {
			wantID = sel[i+1 : j]
		} else {
			wantClasses = append(wantClasses, sel[i+1:j])
		}
		i = j
	}

	if wantTag != "" && wantTag != n.Tag && wantTag != "*" {
		return false
	}

	if wantID != "" {
		if v, ok := t.Attr(id, "id"); !ok || v != wantID {
			return false
		}
	}

	if len(wantClasses) > 0 {
		classAttr, _ := t.Attr(id, "class")
		have := strings.Fields(classAttr)
		for _, need := range wantClasses {
			found := false
			for _, c := range have {
				if c == need {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
	}

	return true
}

// calculateSpecificity calculates the specificity of a CSS selector
func calculateSpecificity(selector string) Specificity {
	specificity := Specificity{}

	specificity.ID = strings.Count(selector, "#")
	specificity.Class = strings.Count(selector, ".") +
		strings.Count(selector, "[") +
		strings.Count(selector, ":")

	for _, part := range strings.Fields(selector) {
		if part != "" && part[0] != '.' && part[0] != '#' && part[0] != '*' {
			specificity.Element++
		}
	}

	return specificity
}

// compareSpecificity compares two specificities
func compareSpecificity(a, b Specificity) int {
	if a.ID != b.ID {
		return a.ID - b.ID
	}
	if a.Class != b.Class {
		return a.Class - b.Class
	}
	return a.Element - b.Element
}

// DefaultUserAgentStylesheet is the CSS every document starts from
const DefaultUserAgentStylesheet = `
html, body { margin: 0; padding: 0; font-family: 'Times New Roman', Times, serif; font-size: 16px; line-height: 1.2; }
h1 { font-size: 2em; margin: 0.67em 0; font-weight: bold; }
h2 { font-size: 1.5em; margin: 0.75em 0; font-weight: bold; }
h3 { font-size: 1.17em; margin: 0.83em 0; font-weight: bold; }
h4 { font-size: 1em; margin: 1.12em 0; font-weight: bold; }
h5 { font-size: 0.83em; margin: 1.5em 0; font-weight: bold; }
h6 { font-size: 0.75em; margin: 1.67em 0; font-weight: bold; }
p { margin: 1em 0; }
b, strong, th { font-weight: bold; }
i, em { font-style: italic; }
ul, ol { margin: 1em 0; padding-left: 40px; }
blockquote { margin: 1em 40px; }
pre { font-family: monospace; white-space: pre; margin: 1em 0; }
code { font-family: monospace; }
hr { border: 1px solid #000000; margin: 0.5em 0; }
th, td { padding: 0.2em 0.5em; }
head, script, style, title, meta, link { display: none; }
`

// defaultUserAgentStyles returns the default user agent stylesheet
func defaultUserAgentStyles() *css.Stylesheet {
	stylesheet, _ := css.NewParser().ParseString(DefaultUserAgentStylesheet)
	return stylesheet
}
