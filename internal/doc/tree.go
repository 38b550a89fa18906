package doc

import (
	"strings"
)

// NodeID addresses a node inside a Tree
type NodeID int32

// NoNode is the zero handle; it never addresses a node
const NoNode NodeID = -1

// Kind identifies what a node is
type Kind uint8

const (
	// KindElement is a structural element with children
	KindElement Kind = iota
	// KindText is a text run; it is always a leaf
	KindText
	// KindBreak is an explicit page-break marker
	KindBreak
)

// Tag names with a fixed meaning in the tree
const (
	TagText      = "text"
	TagPageBreak = "pagebreak"
)

// SplitMarker records that a node is one half of a split original
type SplitMarker uint8

const (
	SplitNone SplitMarker = iota
	SplitFirst
	SplitSecond
)

// String returns the marker as it appears in output documents
func (m SplitMarker) String() string {
	switch m {
	case SplitFirst:
		return "first-half"
	case SplitSecond:
		return "second-half"
	default:
		return ""
	}
}

// Attribute is a single name/value pair on an element
type Attribute struct {
	Key string
	Val string
}

// Node is one entry of the arena
type Node struct {
	Kind     Kind
	Tag      string
	Attr     []Attribute
	Children []NodeID
	Text     string
	Split    SplitMarker
}

// Tree is an arena of nodes addressed by NodeID.
// Nodes are never freed; a node dropped from every parent is simply unreachable.
type Tree struct {
	nodes []Node
}

// NewTree creates an empty tree
func NewTree() *Tree {
	return &Tree{nodes: make([]Node, 0, 64)}
}

// Len returns the number of nodes ever allocated
func (t *Tree) Len() int {
	return len(t.nodes)
}

// Node returns the node for id. The pointer is only valid until the next allocation.
func (t *Tree) Node(id NodeID) *Node {
	return &t.nodes[id]
}

// Valid reports whether id addresses a node of this tree
func (t *Tree) Valid(id NodeID) bool {
	return id >= 0 && int(id) < len(t.nodes)
}

func (t *Tree) add(n Node) NodeID {
	t.nodes = append(t.nodes, n)
	return NodeID(len(t.nodes) - 1)
}

// NewElement allocates an element with the given tag and attributes
func (t *Tree) NewElement(tag string, attrs ...Attribute) NodeID {
	return t.add(Node{
		Kind: KindElement,
		Tag:  strings.ToLower(tag),
		Attr: append([]Attribute(nil), attrs...),
	})
}

// NewText allocates a text run
func (t *Tree) NewText(text string) NodeID {
	return t.add(Node{Kind: KindText, Tag: TagText, Text: text})
}

// NewBreak allocates a page-break marker
func (t *Tree) NewBreak() NodeID {
	return t.add(Node{Kind: KindBreak, Tag: TagPageBreak})
}

// Shell allocates a node with the same kind, tag and attributes as id but
// without children or text.
func (t *Tree) Shell(id NodeID) NodeID {
	n := t.nodes[id]
	return t.add(Node{
		Kind: n.Kind,
		Tag:  n.Tag,
		Attr: append([]Attribute(nil), n.Attr...),
	})
}

// Clone deep-copies the subtree rooted at id
func (t *Tree) Clone(id NodeID) NodeID {
	n := t.nodes[id]
	c := t.add(Node{
		Kind:  n.Kind,
		Tag:   n.Tag,
		Attr:  append([]Attribute(nil), n.Attr...),
		Text:  n.Text,
		Split: n.Split,
	})
	if len(n.Children) == 0 {
		return c
	}
	children := make([]NodeID, 0, len(n.Children))
	for _, ch := range n.Children {
		children = append(children, t.Clone(ch))
	}
	t.nodes[c].Children = children
	return c
}

// Children returns the children of id. The slice must not be modified.
func (t *Tree) Children(id NodeID) []NodeID {
	return t.nodes[id].Children
}

// SetChildren replaces the children of id with a copy of children
func (t *Tree) SetChildren(id NodeID, children []NodeID) {
	if len(children) == 0 {
		t.nodes[id].Children = nil
		return
	}
	t.nodes[id].Children = append([]NodeID(nil), children...)
}

// Append adds child as the last child of parent
func (t *Tree) Append(parent, child NodeID) {
	t.nodes[parent].Children = append(t.nodes[parent].Children, child)
}

// RemoveLast detaches and returns the last child of parent, or NoNode
func (t *Tree) RemoveLast(parent NodeID) NodeID {
	ch := t.nodes[parent].Children
	if len(ch) == 0 {
		return NoNode
	}
	last := ch[len(ch)-1]
	t.nodes[parent].Children = ch[:len(ch)-1]
	return last
}

// ReplaceLast swaps the last child of parent for child
func (t *Tree) ReplaceLast(parent, child NodeID) {
	ch := t.nodes[parent].Children
	if len(ch) == 0 {
		t.Append(parent, child)
		return
	}
	ch[len(ch)-1] = child
}

// Attr returns the value of the named attribute
func (t *Tree) Attr(id NodeID, key string) (string, bool) {
	for _, a := range t.nodes[id].Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val, true
		}
	}
	return "", false
}

// HasAttr reports whether the named attribute is present, whatever its value
func (t *Tree) HasAttr(id NodeID, key string) bool {
	_, ok := t.Attr(id, key)
	return ok
}

// SetAttr sets or adds an attribute
func (t *Tree) SetAttr(id NodeID, key, val string) {
	n := &t.nodes[id]
	for i, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, Attribute{Key: key, Val: val})
}

// Walk visits id and its descendants in document order.
// Returning false from fn skips the node's children.
func (t *Tree) Walk(id NodeID, fn func(NodeID) bool) {
	if !fn(id) {
		return
	}
	for _, ch := range t.nodes[id].Children {
		t.Walk(ch, fn)
	}
}

// TextContent concatenates every text run below id
func (t *Tree) TextContent(id NodeID) string {
	var b strings.Builder
	t.Walk(id, func(n NodeID) bool {
		if t.nodes[n].Kind == KindText {
			b.WriteString(t.nodes[n].Text)
		}
		return true
	})
	return b.String()
}
