package pagination

import (
	"context"
	"fmt"
	"slices"

	"github.com/charmbracelet/log"

	"github.com/gompdf/gompage/internal/doc"
	"github.com/gompdf/gompage/internal/report"
)

// resolver fills the containers of one page
type resolver struct {
	tree   *doc.Tree
	oracle Oracle
	page   doc.NodeID
	report *report.Collector
	log    *log.Logger
	probes int
}

// overflowing settles layout and asks the oracle about the page
func (r *resolver) overflowing(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if s, ok := r.oracle.(Settler); ok {
		if err := s.Settle(ctx); err != nil {
			return false, fmt.Errorf("failed to settle layout: %w", err)
		}
	}
	r.probes++
	over, err := r.oracle.Overflowing(ctx, r.tree, r.page)
	if err != nil {
		return false, fmt.Errorf("layout oracle failed: %w", err)
	}
	return over, nil
}

// markSplit tags first and rest as the two halves of one original node
func (r *resolver) markSplit(first, rest doc.NodeID) {
	if n := r.tree.Node(first); n.Split == doc.SplitNone {
		n.Split = doc.SplitFirst
	}
	r.tree.Node(rest).Split = doc.SplitSecond
}

// resolve places children into container until the page overflows.
// It returns a shell of container holding whatever did not fit (or NoNode
// when everything fit) and whether any content was placed.
func (r *resolver) resolve(ctx context.Context, container doc.NodeID, children []doc.NodeID) (doc.NodeID, bool, error) {
	t := r.tree
	t.SetChildren(container, nil)

	// pending is a stack: the next child in document order is on top
	pending := make([]doc.NodeID, 0, len(children)+1)
	for i := len(children) - 1; i >= 0; i-- {
		pending = append(pending, children[i])
	}
	push := func(id doc.NodeID) { pending = append(pending, id) }

	var placed []doc.NodeID
	partial := false
	forced := false
	progress := false

loop:
	for len(pending) > 0 {
		top := pending[len(pending)-1]
		pending = pending[:len(pending)-1]

		if IsBreak(t, top) {
			t.Append(container, top)
			forced, progress = true, true
			break
		}

		policy := Classify(t, top)

		if policy.Has(PolicyForcedBreak) {
			t.Append(container, top)
			orig := slices.Clone(t.Children(top))
			rest, sub, err := r.resolve(ctx, top, orig)
			if err != nil {
				return doc.NoNode, false, err
			}
			if !sub {
				t.SetChildren(top, orig)
				t.RemoveLast(container)
				push(top)
				break
			}
			forced, progress = true, true
			if rest != doc.NoNode {
				r.markSplit(top, rest)
				push(rest)
			}
			break
		}

		t.Append(container, top)
		over, err := r.overflowing(ctx)
		if err != nil {
			return doc.NoNode, false, err
		}
		if !over {
			placed = append(placed, top)
			continue
		}

		switch {
		case policy.Has(PolicyStickBefore):
			t.RemoveLast(container)
			push(top)
			for len(placed) > 0 {
				last := placed[len(placed)-1]
				placed = placed[:len(placed)-1]
				t.RemoveLast(container)
				push(last)
				if !IsStickBefore(t, last) {
					break
				}
			}

		case policy.Has(PolicyNonbreaking):
			t.RemoveLast(container)
			push(top)

		case IsText(t, top):
			first, second, err := r.splitText(ctx, container, top)
			if err != nil {
				return doc.NoNode, false, err
			}
			switch {
			case first == doc.NoNode:
				push(top)
			case second == doc.NoNode:
				placed = append(placed, first)
			default:
				partial = true
				push(second)
			}

		default:
			// an empty shell that still overflows means the container's own
			// chrome does not fit in the space left
			t.RemoveLast(container)
			shell := t.Shell(top)
			t.Append(container, shell)
			over, err := r.overflowing(ctx)
			t.RemoveLast(container)
			if err != nil {
				return doc.NoNode, false, err
			}
			if over {
				push(top)
				break
			}

			t.Append(container, top)
			orig := slices.Clone(t.Children(top))
			rest, sub, err := r.resolve(ctx, top, orig)
			if err != nil {
				return doc.NoNode, false, err
			}
			if !sub {
				t.SetChildren(top, orig)
				t.RemoveLast(container)
				push(top)
				break
			}
			if rest == doc.NoNode {
				placed = append(placed, top)
				break
			}
			partial = true
			r.markSplit(top, rest)
			push(rest)
		}
		break loop
	}

	// a stick-after element may not end the page
	if !partial && !forced && len(pending) > 0 {
		for len(placed) > 0 && IsStickAfter(t, placed[len(placed)-1]) {
			last := placed[len(placed)-1]
			placed = placed[:len(placed)-1]
			t.RemoveLast(container)
			push(last)
		}
	}

	progress = progress || partial || len(placed) > 0

	if len(pending) == 0 {
		return doc.NoNode, progress, nil
	}

	rest := t.Shell(container)
	for i := len(pending) - 1; i >= 0; i-- {
		t.Append(rest, pending[i])
	}
	return rest, progress, nil
}
