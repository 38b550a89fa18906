package pagination

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"testing"

	"github.com/gompdf/gompage/internal/doc"
	"github.com/gompdf/gompage/internal/report"
)

// fakeOracle measures a page with declared heights:
//   - an element with an "h" attribute is exactly that tall
//   - any other element is its "pad" attribute plus the sum of its children
//   - a text run takes ceil(words/perLine) lines of height line
type fakeOracle struct {
	capacity float64
	perLine  int
	line     float64

	events []string
}

func newFake(capacity float64) *fakeOracle {
	return &fakeOracle{capacity: capacity, perLine: 4, line: 10}
}

func (f *fakeOracle) Settle(ctx context.Context) error {
	f.events = append(f.events, "settle")
	return nil
}

func (f *fakeOracle) Overflowing(ctx context.Context, t *doc.Tree, page doc.NodeID) (bool, error) {
	f.events = append(f.events, "query")
	return f.height(t, page) > f.capacity, nil
}

func (f *fakeOracle) height(t *doc.Tree, id doc.NodeID) float64 {
	n := t.Node(id)
	switch n.Kind {
	case doc.KindBreak:
		return 0
	case doc.KindText:
		words := len(strings.Fields(n.Text))
		if words == 0 {
			return 0
		}
		return math.Ceil(float64(words)/float64(f.perLine)) * f.line
	}
	if v, ok := t.Attr(id, "h"); ok {
		h, _ := strconv.ParseFloat(v, 64)
		return h
	}
	h := 0.0
	if v, ok := t.Attr(id, "pad"); ok {
		h, _ = strconv.ParseFloat(v, 64)
	}
	for _, ch := range t.Children(id) {
		h += f.height(t, ch)
	}
	return h
}

// el builds an element; attrs is a space separated list of key or key=value
func el(t *doc.Tree, tag, attrs string, children ...doc.NodeID) doc.NodeID {
	var list []doc.Attribute
	for _, f := range strings.Fields(attrs) {
		k, v, _ := strings.Cut(f, "=")
		list = append(list, doc.Attribute{Key: k, Val: v})
	}
	id := t.NewElement(tag, list...)
	t.SetChildren(id, children)
	return id
}

// words builds a text run of n distinct words
func words(t *doc.Tree, n int) doc.NodeID {
	ws := make([]string, n)
	for i := range ws {
		ws[i] = fmt.Sprintf("w%d", i+1)
	}
	return t.NewText(strings.Join(ws, " "))
}

// headerChrome adds a fixed-height header to every page and records numbers
type headerChrome struct {
	height  string
	numbers []int
}

func (c *headerChrome) Header(t *doc.Tree, number int, rep *report.Collector) doc.NodeID {
	c.numbers = append(c.numbers, number)
	return el(t, "header", "h="+c.height)
}

func (c *headerChrome) Footer(t *doc.Tree, number int, rep *report.Collector) doc.NodeID {
	return doc.NoNode
}

func paginate(t *testing.T, tr *doc.Tree, oracle Oracle, body doc.NodeID) *Result {
	t.Helper()
	p := NewPaginator(PageSizeA4, Margins{}, oracle)
	p.MaxPages = 200
	res, err := p.Paginate(context.Background(), tr, body)
	if err != nil {
		t.Fatalf("Paginate() error = %v", err)
	}
	return res
}

// contentOf returns the content container of a page
func contentOf(t *doc.Tree, page doc.NodeID) doc.NodeID {
	for _, ch := range t.Children(page) {
		if t.Node(ch).Tag == TagContent {
			return ch
		}
	}
	return doc.NoNode
}

// pageChildren returns the top-level content of every page
func pageChildren(res *Result) [][]doc.NodeID {
	out := make([][]doc.NodeID, 0, len(res.Pages))
	for _, p := range res.Pages {
		out = append(out, append([]doc.NodeID{}, res.Tree.Children(contentOf(res.Tree, p))...))
	}
	return out
}
