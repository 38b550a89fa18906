package pagination

import (
	"github.com/gompdf/gompage/internal/doc"
)

// Attributes that carry pagination hints. Presence is all that matters.
const (
	AttrNonbreaking = "nonbreaking"
	AttrStickBefore = "stickbefore"
	AttrStickAfter  = "stickafter"
)

// Policy is the set of pagination rules that apply to a node
type Policy uint8

const (
	PolicyNonbreaking Policy = 1 << iota
	PolicyStickBefore
	PolicyStickAfter
	PolicyForcedBreak
)

// Has reports whether every bit in q is set
func (p Policy) Has(q Policy) bool {
	return p&q == q
}

var defaultNonbreaking = map[string]bool{
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"svg":         true,
	"pre":         true,
	"first-half":  true,
	"second-half": true,
}

var defaultStickAfter = map[string]bool{
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
}

// IsBreak reports whether id is an explicit page-break marker
func IsBreak(t *doc.Tree, id doc.NodeID) bool {
	return t.Node(id).Kind == doc.KindBreak
}

// IsText reports whether id is a text run
func IsText(t *doc.Tree, id doc.NodeID) bool {
	return t.Node(id).Kind == doc.KindText
}

// IsStickBefore reports whether id must stay with the element placed before it
func IsStickBefore(t *doc.Tree, id doc.NodeID) bool {
	if t.Node(id).Kind != doc.KindElement {
		return false
	}
	return t.HasAttr(id, AttrStickBefore)
}

// IsStickAfter reports whether id must stay with the element placed after it
func IsStickAfter(t *doc.Tree, id doc.NodeID) bool {
	n := t.Node(id)
	if n.Kind != doc.KindElement {
		return false
	}
	return defaultStickAfter[n.Tag] || t.HasAttr(id, AttrStickAfter)
}

// IsNonbreaking reports whether id must never be split across pages.
// Stuck elements are never split either.
func IsNonbreaking(t *doc.Tree, id doc.NodeID) bool {
	n := t.Node(id)
	if n.Kind != doc.KindElement {
		return false
	}
	if defaultNonbreaking[n.Tag] || t.HasAttr(id, AttrNonbreaking) {
		return true
	}
	return IsStickBefore(t, id) || IsStickAfter(t, id)
}

// ContainsForcedBreak reports whether id is, or has below it, a page-break marker
func ContainsForcedBreak(t *doc.Tree, id doc.NodeID) bool {
	found := false
	t.Walk(id, func(n doc.NodeID) bool {
		if t.Node(n).Kind == doc.KindBreak {
			found = true
		}
		return !found
	})
	return found
}

// Classify resolves every policy of id at once
func Classify(t *doc.Tree, id doc.NodeID) Policy {
	var p Policy
	if IsNonbreaking(t, id) {
		p |= PolicyNonbreaking
	}
	if IsStickBefore(t, id) {
		p |= PolicyStickBefore
	}
	if IsStickAfter(t, id) {
		p |= PolicyStickAfter
	}
	if ContainsForcedBreak(t, id) {
		p |= PolicyForcedBreak
	}
	return p
}
