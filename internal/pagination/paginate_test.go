package pagination

import (
	"context"
	"errors"
	"math/rand"
	"strconv"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/gompdf/gompage/internal/doc"
)

func TestScenarioTwoOfThreeParagraphs(t *testing.T) {
	tr := doc.NewTree()
	p1 := el(tr, "p", "", words(tr, 16))
	p2 := el(tr, "p", "", words(tr, 16))
	p3 := el(tr, "p", "", words(tr, 16))
	body := el(tr, "body", "", p1, p2, p3)

	res := paginate(t, tr, newFake(80), body)

	want := [][]doc.NodeID{{p1, p2}, {p3}}
	if diff := cmp.Diff(want, pageChildren(res)); diff != "" {
		t.Errorf("pages mismatch (-want +got):\n%s", diff)
	}
	if len(res.Report) != 0 {
		t.Errorf("report = %v, want empty", res.Report)
	}
	if got := tr.Node(p3).Split; got != doc.SplitNone {
		t.Errorf("third paragraph marked %v, want unsplit", got)
	}
	if got := len(tr.Children(p3)); got != 1 {
		t.Errorf("third paragraph has %d children after revert, want 1", got)
	}
}

func TestScenarioOversizedImage(t *testing.T) {
	tr := doc.NewTree()
	img := el(tr, "img", "nonbreaking h=500")
	body := el(tr, "body", "", img)

	res := paginate(t, tr, newFake(100), body)

	if diff := cmp.Diff([][]doc.NodeID{{img}}, pageChildren(res)); diff != "" {
		t.Errorf("pages mismatch (-want +got):\n%s", diff)
	}
	if len(res.Report) != 1 || !strings.Contains(res.Report[0], "img") {
		t.Errorf("report = %v, want one warning naming img", res.Report)
	}
}

func TestOversizedImageBetweenParagraphs(t *testing.T) {
	tr := doc.NewTree()
	p1 := el(tr, "p", "h=40")
	img := el(tr, "img", "nonbreaking h=500")
	p2 := el(tr, "p", "h=40")
	body := el(tr, "body", "", p1, img, p2)

	res := paginate(t, tr, newFake(100), body)

	want := [][]doc.NodeID{{p1}, {img}, {p2}}
	if diff := cmp.Diff(want, pageChildren(res)); diff != "" {
		t.Errorf("pages mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"A nonbreaking element (img) is too large to fit in the page."}, res.Report); diff != "" {
		t.Errorf("report mismatch (-want +got):\n%s", diff)
	}
}

func TestOversizedImageSplitsItsSection(t *testing.T) {
	tr := doc.NewTree()
	img := el(tr, "img", "nonbreaking h=500")
	p1 := el(tr, "p", "h=20")
	p2 := el(tr, "p", "h=20")
	section := el(tr, "section", "", img, p1, p2)
	body := el(tr, "body", "", section)

	res := paginate(t, tr, newFake(100), body)

	pages := pageChildren(res)
	if len(pages) != 2 || len(pages[1]) != 1 {
		t.Fatalf("pages = %v, want the section split over 2 pages", pages)
	}
	rest := pages[1][0]
	if diff := cmp.Diff([]doc.NodeID{img}, tr.Children(section)); diff != "" {
		t.Errorf("first half mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]doc.NodeID{p1, p2}, tr.Children(rest)); diff != "" {
		t.Errorf("second half mismatch (-want +got):\n%s", diff)
	}
	if tr.Node(section).Split != doc.SplitFirst || tr.Node(rest).Split != doc.SplitSecond {
		t.Error("section halves are not marked")
	}
	if diff := cmp.Diff([]string{"A nonbreaking element (img) is too large to fit in the page."}, res.Report); diff != "" {
		t.Errorf("report mismatch (-want +got):\n%s", diff)
	}
}

func TestHeadingForcedApartFromFollower(t *testing.T) {
	tr := doc.NewTree()
	p1 := el(tr, "p", "h=30")
	h := el(tr, "h2", "h=20")
	p2 := el(tr, "p", "nonbreaking h=200")
	body := el(tr, "body", "", p1, h, p2)

	res := paginate(t, tr, newFake(100), body)

	want := [][]doc.NodeID{{p1}, {h}, {p2}}
	if diff := cmp.Diff(want, pageChildren(res)); diff != "" {
		t.Errorf("pages mismatch (-want +got):\n%s", diff)
	}
	wantReport := []string{
		"A nonbreaking element (h2) could not be kept with its neighbours.",
		"A nonbreaking element (p) is too large to fit in the page.",
	}
	if diff := cmp.Diff(wantReport, res.Report); diff != "" {
		t.Errorf("report mismatch (-want +got):\n%s", diff)
	}
}

func TestScenarioHeadingMovesWithFollower(t *testing.T) {
	tr := doc.NewTree()
	p1 := el(tr, "p", "h=40")
	h := el(tr, "h2", "h=20")
	p2 := el(tr, "p", "h=60")
	body := el(tr, "body", "", p1, h, p2)

	res := paginate(t, tr, newFake(100), body)

	want := [][]doc.NodeID{{p1}, {h, p2}}
	if diff := cmp.Diff(want, pageChildren(res)); diff != "" {
		t.Errorf("pages mismatch (-want +got):\n%s", diff)
	}
}

func TestScenarioFirstWordOverflows(t *testing.T) {
	tr := doc.NewTree()
	p := el(tr, "p", "h=95")
	run := tr.NewText("alpha beta gamma")
	body := el(tr, "body", "", p, run)

	res := paginate(t, tr, newFake(100), body)

	want := [][]doc.NodeID{{p}, {run}}
	if diff := cmp.Diff(want, pageChildren(res)); diff != "" {
		t.Errorf("pages mismatch (-want +got):\n%s", diff)
	}
	if got := tr.Node(run).Text; got != "alpha beta gamma" {
		t.Errorf("run text = %q, want it whole", got)
	}
	if tr.Node(run).Split != doc.SplitNone {
		t.Error("deferred run was marked as split")
	}
}

func TestScenarioExplicitBreak(t *testing.T) {
	tr := doc.NewTree()
	p1 := el(tr, "p", "h=20")
	br := tr.NewBreak()
	p2 := el(tr, "p", "h=20")
	body := el(tr, "body", "", p1, br, p2)

	res := paginate(t, tr, newFake(100), body)

	want := [][]doc.NodeID{{p1, br}, {p2}}
	if diff := cmp.Diff(want, pageChildren(res)); diff != "" {
		t.Errorf("pages mismatch (-want +got):\n%s", diff)
	}
}

func TestNestedBreakSplitsContainer(t *testing.T) {
	tr := doc.NewTree()
	a := el(tr, "p", "h=20")
	br := tr.NewBreak()
	b := el(tr, "p", "h=20")
	div := el(tr, "div", "", a, br, b)
	c := el(tr, "p", "h=20")
	body := el(tr, "body", "", div, c)

	res := paginate(t, tr, newFake(100), body)

	pages := pageChildren(res)
	if len(pages) != 2 {
		t.Fatalf("got %d pages, want 2", len(pages))
	}
	if diff := cmp.Diff([]doc.NodeID{div}, pages[0]); diff != "" {
		t.Errorf("page 1 mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]doc.NodeID{a, br}, tr.Children(div)); diff != "" {
		t.Errorf("first half mismatch (-want +got):\n%s", diff)
	}
	if len(pages[1]) != 2 || pages[1][1] != c {
		t.Fatalf("page 2 = %v, want [second half, c]", pages[1])
	}
	rest := pages[1][0]
	if tr.Node(rest).Tag != "div" || tr.Node(rest).Split != doc.SplitSecond || tr.Node(div).Split != doc.SplitFirst {
		t.Error("container halves are not marked")
	}
	if diff := cmp.Diff([]doc.NodeID{b}, tr.Children(rest)); diff != "" {
		t.Errorf("second half mismatch (-want +got):\n%s", diff)
	}
}

func TestBreakInsideNonbreakingIsReported(t *testing.T) {
	tr := doc.NewTree()
	a := el(tr, "p", "h=20")
	b := el(tr, "p", "h=20")
	div := el(tr, "div", "nonbreaking", a, tr.NewBreak(), b)
	body := el(tr, "body", "", div)

	res := paginate(t, tr, newFake(100), body)

	if len(res.Pages) != 2 {
		t.Errorf("got %d pages, want the break to apply", len(res.Pages))
	}
	if len(res.Report) != 1 || !strings.Contains(res.Report[0], "(div)") {
		t.Errorf("report = %v, want one entry naming div", res.Report)
	}
}

func TestStickBeforePullsPredecessor(t *testing.T) {
	tr := doc.NewTree()
	p1 := el(tr, "p", "h=30")
	p2 := el(tr, "p", "h=30")
	q := el(tr, "p", "h=30 stickbefore")
	body := el(tr, "body", "", p1, p2, q)

	res := paginate(t, tr, newFake(70), body)

	want := [][]doc.NodeID{{p1}, {p2, q}}
	if diff := cmp.Diff(want, pageChildren(res)); diff != "" {
		t.Errorf("pages mismatch (-want +got):\n%s", diff)
	}
}

func TestStickBeforeChain(t *testing.T) {
	tr := doc.NewTree()
	p := el(tr, "p", "h=20")
	a := el(tr, "p", "h=20")
	b := el(tr, "p", "h=20 stickbefore")
	c := el(tr, "p", "h=20 stickbefore")
	body := el(tr, "body", "", p, a, b, c)

	res := paginate(t, tr, newFake(70), body)

	want := [][]doc.NodeID{{p}, {a, b, c}}
	if diff := cmp.Diff(want, pageChildren(res)); diff != "" {
		t.Errorf("pages mismatch (-want +got):\n%s", diff)
	}
}

func TestContainerSplitsBetweenChildren(t *testing.T) {
	tr := doc.NewTree()
	p1 := el(tr, "p", "h=40")
	p2 := el(tr, "p", "h=40")
	p3 := el(tr, "p", "h=40")
	div := el(tr, "div", "", p1, p2, p3)
	body := el(tr, "body", "", div)

	res := paginate(t, tr, newFake(100), body)

	pages := pageChildren(res)
	if len(pages) != 2 {
		t.Fatalf("got %d pages, want 2", len(pages))
	}
	if diff := cmp.Diff([]doc.NodeID{p1, p2}, tr.Children(pages[0][0])); diff != "" {
		t.Errorf("first half mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]doc.NodeID{p3}, tr.Children(pages[1][0])); diff != "" {
		t.Errorf("second half mismatch (-want +got):\n%s", diff)
	}
}

func TestContainerWithoutProgressIsReverted(t *testing.T) {
	tr := doc.NewTree()
	p := el(tr, "p", "h=70")
	h := el(tr, "h2", "h=20")
	q := el(tr, "p", "h=40")
	div := el(tr, "div", "", h, q)
	body := el(tr, "body", "", p, div)

	res := paginate(t, tr, newFake(100), body)

	want := [][]doc.NodeID{{p}, {div}}
	if diff := cmp.Diff(want, pageChildren(res)); diff != "" {
		t.Errorf("pages mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]doc.NodeID{h, q}, tr.Children(div)); diff != "" {
		t.Errorf("reverted children mismatch (-want +got):\n%s", diff)
	}
	if tr.Node(div).Split != doc.SplitNone {
		t.Error("reverted container is marked as split")
	}
}

func TestContainerChromeAloneOverflows(t *testing.T) {
	tr := doc.NewTree()
	p := el(tr, "p", "h=60")
	inner := el(tr, "p", "h=10")
	div := el(tr, "div", "pad=50", inner)
	body := el(tr, "body", "", p, div)

	res := paginate(t, tr, newFake(100), body)

	want := [][]doc.NodeID{{p}, {div}}
	if diff := cmp.Diff(want, pageChildren(res)); diff != "" {
		t.Errorf("pages mismatch (-want +got):\n%s", diff)
	}
}

func TestTextSplitsAcrossPages(t *testing.T) {
	tr := doc.NewTree()
	run := words(tr, 30)
	orig := tr.Node(run).Text
	body := el(tr, "body", "", el(tr, "p", "", run))

	res := paginate(t, tr, newFake(30), body)

	// 4 words per line, 3 lines per page
	if got := len(res.Pages); got != 3 {
		t.Errorf("got %d pages, want 3", got)
	}
	var b strings.Builder
	for _, p := range res.Pages {
		b.WriteString(tr.TextContent(p))
	}
	if b.String() != orig {
		t.Errorf("text across pages = %q, want %q", b.String(), orig)
	}
}

func TestEmptyDocumentHasOnePage(t *testing.T) {
	tr := doc.NewTree()
	body := el(tr, "body", "")

	res := paginate(t, tr, newFake(100), body)

	if len(res.Pages) != 1 {
		t.Errorf("got %d pages, want 1", len(res.Pages))
	}
	if res.ReportNode == doc.NoNode {
		t.Error("report node missing")
	}
	children := tr.Children(body)
	if children[len(children)-1] != res.ReportNode {
		t.Error("report node is not the last child of body")
	}
}

func TestChromeTakesSpace(t *testing.T) {
	tr := doc.NewTree()
	p1 := el(tr, "p", "h=40")
	p2 := el(tr, "p", "h=40")
	p3 := el(tr, "p", "h=40")
	body := el(tr, "body", "", p1, p2, p3)

	chrome := &headerChrome{height: "30"}
	p := NewPaginator(PageSizeA4, Margins{}, newFake(100))
	p.Chrome = chrome
	res, err := p.Paginate(context.Background(), tr, body)
	if err != nil {
		t.Fatalf("Paginate() error = %v", err)
	}

	want := [][]doc.NodeID{{p1}, {p2}, {p3}}
	if diff := cmp.Diff(want, pageChildren(res)); diff != "" {
		t.Errorf("pages mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{1, 2, 3}, chrome.numbers); diff != "" {
		t.Errorf("page numbers mismatch (-want +got):\n%s", diff)
	}
	if id, _ := tr.Attr(res.Pages[1], "id"); id != "page-2" {
		t.Errorf("second page id = %q", id)
	}
}

func TestEveryQueryFollowsSettle(t *testing.T) {
	tr := doc.NewTree()
	body := el(tr, "body", "",
		el(tr, "h1", "h=20"),
		el(tr, "p", "", words(tr, 40)),
		el(tr, "div", "", el(tr, "p", "h=30"), el(tr, "p", "h=30")),
	)
	f := newFake(60)
	paginate(t, tr, f, body)

	for i, e := range f.events {
		if e == "query" && (i == 0 || f.events[i-1] != "settle") {
			t.Fatalf("query %d was not preceded by settle", i)
		}
	}
}

func TestOracleFailureIsFatal(t *testing.T) {
	tr := doc.NewTree()
	body := el(tr, "body", "", el(tr, "img", "nonbreaking h=500"), el(tr, "p", "h=10"), el(tr, "p", "h=10"))

	boom := errors.New("renderer went away")
	f := newFake(100)
	calls := 0
	oracle := OracleFunc(func(ctx context.Context, t *doc.Tree, page doc.NodeID) (bool, error) {
		calls++
		if calls > 2 {
			return false, boom
		}
		return f.Overflowing(ctx, t, page)
	})

	p := NewPaginator(PageSizeA4, Margins{}, oracle)
	res, err := p.Paginate(context.Background(), tr, body)
	if !errors.Is(err, boom) {
		t.Fatalf("Paginate() error = %v, want %v", err, boom)
	}
	if res == nil || len(res.Report) != 1 {
		t.Fatalf("partial result should carry the warning collected before the failure: %+v", res)
	}
	if !strings.Contains(err.Error(), "too large") {
		t.Errorf("error %q does not carry the collected warning", err)
	}
}

func TestCancelledContext(t *testing.T) {
	tr := doc.NewTree()
	body := el(tr, "body", "", el(tr, "p", "h=10"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewPaginator(PageSizeA4, Margins{}, newFake(100))
	if _, err := p.Paginate(ctx, tr, body); !errors.Is(err, context.Canceled) {
		t.Errorf("Paginate() error = %v, want context.Canceled", err)
	}
}

func TestMaxPages(t *testing.T) {
	tr := doc.NewTree()
	body := el(tr, "body", "")
	for i := 0; i < 5; i++ {
		tr.Append(body, el(tr, "p", "h=60"))
	}
	p := NewPaginator(PageSizeA4, Margins{}, newFake(50))
	p.MaxPages = 3
	_, err := p.Paginate(context.Background(), tr, body)
	if !errors.Is(err, ErrTooManyPages) {
		t.Errorf("Paginate() error = %v, want ErrTooManyPages", err)
	}
}

func TestLookupPageSize(t *testing.T) {
	if s, ok := LookupPageSize("letter"); !ok || s != PageSizeLetter {
		t.Errorf("LookupPageSize(letter) = %v, %v", s, ok)
	}
	if _, ok := LookupPageSize("B7"); ok {
		t.Error("LookupPageSize(B7) found a size")
	}
}

// leaves returns the text and the non-text leaf tags below ids, in order
func leaves(t *doc.Tree, ids []doc.NodeID) (string, []string) {
	var text strings.Builder
	var tags []string
	for _, id := range ids {
		t.Walk(id, func(n doc.NodeID) bool {
			node := t.Node(n)
			switch {
			case node.Kind == doc.KindText:
				text.WriteString(node.Text)
			case len(node.Children) == 0:
				tags = append(tags, node.Tag)
			}
			return true
		})
	}
	return text.String(), tags
}

// randomDocument builds a body with nested blocks, text, images, headings and breaks
func randomDocument(tr *doc.Tree, rng *rand.Rand) doc.NodeID {
	var block func(depth int, afterHeading bool) doc.NodeID
	block = func(depth int, afterHeading bool) doc.NodeID {
		switch k := rng.Intn(10); {
		case k < 4:
			return el(tr, "p", "", words(tr, 1+rng.Intn(25)))
		case k < 5:
			return el(tr, "img", "h="+strconv.Itoa(5+rng.Intn(70)))
		case k < 6 && !afterHeading:
			return el(tr, "h2", "h=15")
		case k < 7:
			return el(tr, "p", "stickbefore", words(tr, 1+rng.Intn(6)))
		case k < 8 && depth < 2:
			div := el(tr, "div", "")
			prevHeading := false
			for i := rng.Intn(5); i >= 0; i-- {
				ch := block(depth+1, prevHeading)
				prevHeading = tr.Node(ch).Tag == "h2"
				tr.Append(div, ch)
			}
			return div
		case k < 9:
			return tr.NewBreak()
		default:
			return words(tr, 1+rng.Intn(10))
		}
	}

	body := el(tr, "body", "")
	prevHeading := false
	for i := 5 + rng.Intn(15); i >= 0; i-- {
		ch := block(0, prevHeading)
		prevHeading = tr.Node(ch).Tag == "h2"
		tr.Append(body, ch)
	}
	return body
}

func TestPaginationProperties(t *testing.T) {
	for seed := int64(1); seed <= 60; seed++ {
		rng := rand.New(rand.NewSource(seed))
		tr := doc.NewTree()
		body := randomDocument(tr, rng)

		inText, inTags := leaves(tr, tr.Children(body))
		var nonbreaking []doc.NodeID
		tr.Walk(body, func(id doc.NodeID) bool {
			if id != body && IsNonbreaking(tr, id) {
				nonbreaking = append(nonbreaking, id)
			}
			return true
		})

		p := NewPaginator(PageSizeA4, Margins{}, newFake(100))
		p.MaxPages = 500
		res, err := p.Paginate(context.Background(), tr, body)
		if err != nil {
			t.Fatalf("seed %d: Paginate() error = %v", seed, err)
		}

		// conservation
		var contents []doc.NodeID
		for _, pg := range res.Pages {
			contents = append(contents, contentOf(tr, pg))
		}
		var outText strings.Builder
		var outTags []string
		for _, c := range contents {
			txt, tags := leaves(tr, tr.Children(c))
			outText.WriteString(txt)
			outTags = append(outTags, tags...)
		}
		if outText.String() != inText {
			t.Errorf("seed %d: text not conserved\n in: %q\nout: %q", seed, inText, outText.String())
		}
		if diff := cmp.Diff(inTags, outTags); diff != "" {
			t.Errorf("seed %d: leaf elements not conserved (-in +out):\n%s", seed, diff)
		}

		// non-breaking integrity
		for _, id := range nonbreaking {
			if tr.Node(id).Split != doc.SplitNone {
				t.Errorf("seed %d: nonbreaking %s was split", seed, tr.Node(id).Tag)
			}
		}

		if len(res.Report) != 0 {
			continue
		}
		for i, c := range contents {
			children := tr.Children(c)
			if len(children) == 0 {
				continue
			}
			if i < len(contents)-1 && IsStickAfter(tr, children[len(children)-1]) {
				t.Errorf("seed %d: page %d ends with %s", seed, i+1, tr.Node(children[len(children)-1]).Tag)
			}
			if i == 0 {
				continue
			}
			prev := tr.Children(contents[i-1])
			if len(prev) > 0 && ContainsForcedBreak(tr, prev[len(prev)-1]) {
				continue
			}
			if IsStickBefore(tr, children[0]) {
				t.Errorf("seed %d: page %d starts with a stickbefore element", seed, i+1)
			}
		}
	}
}
