package pagination

import (
	"context"
	"unicode"
	"unicode/utf8"

	"github.com/gompdf/gompage/internal/doc"
)

// splitText splits the text run that is the last child of container and
// makes it overflow. A fresh probe run replaces it and grows word by word
// until the next word would overflow.
//
// It returns the run left in container and the run to carry forward:
//   - (NoNode, NoNode): not even the empty run fits, or no word fits; the run was removed from container
//   - (run, NoNode): every word fits; the original run is back in place
//   - (first, second): a split at a whitespace boundary
func (r *resolver) splitText(ctx context.Context, container, run doc.NodeID) (doc.NodeID, doc.NodeID, error) {
	t := r.tree
	src := t.Node(run).Text

	probe := t.Shell(run)
	t.ReplaceLast(container, probe)

	over, err := r.overflowing(ctx)
	if err != nil {
		return doc.NoNode, doc.NoNode, err
	}
	if over {
		t.RemoveLast(container)
		return doc.NoNode, doc.NoNode, nil
	}

	fit := 0
	for _, cut := range wordEnds(src) {
		t.Node(probe).Text = src[:cut]
		over, err := r.overflowing(ctx)
		if err != nil {
			return doc.NoNode, doc.NoNode, err
		}
		if over {
			break
		}
		fit = cut
	}

	switch fit {
	case 0:
		t.RemoveLast(container)
		return doc.NoNode, doc.NoNode, nil
	case len(src):
		t.ReplaceLast(container, run)
		return run, doc.NoNode, nil
	}

	first := t.Node(probe)
	first.Text = src[:fit]
	first.Split = doc.SplitFirst

	second := t.Shell(run)
	t.Node(second).Text = src[fit:]
	t.Node(second).Split = doc.SplitSecond

	r.log.Debug("split text run", "kept", utf8.RuneCountInString(src[:fit]), "carried", utf8.RuneCountInString(src[fit:]))
	return probe, second, nil
}

// wordEnds returns the byte offsets at which s may be cut: the end of every
// whitespace-delimited word, and the end of s.
func wordEnds(s string) []int {
	var cuts []int
	inWord := false
	for i, r := range s {
		space := unicode.IsSpace(r)
		if space && inWord {
			cuts = append(cuts, i)
		}
		inWord = !space
	}
	if len(s) > 0 && (len(cuts) == 0 || cuts[len(cuts)-1] != len(s)) {
		cuts = append(cuts, len(s))
	}
	return cuts
}
