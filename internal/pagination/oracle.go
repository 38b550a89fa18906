package pagination

import (
	"context"

	"github.com/gompdf/gompage/internal/doc"
	"github.com/gompdf/gompage/internal/report"
)

// Oracle answers whether the rendered content of page exceeds its bounds.
// The answer is only meaningful once layout has settled after the latest
// mutation of the tree.
type Oracle interface {
	Overflowing(ctx context.Context, t *doc.Tree, page doc.NodeID) (bool, error)
}

// Settler is implemented by oracles whose layout needs to settle after a
// mutation. Settle is called after every mutation and before every query.
type Settler interface {
	Settle(ctx context.Context) error
}

// OracleFunc adapts a function to the Oracle interface
type OracleFunc func(ctx context.Context, t *doc.Tree, page doc.NodeID) (bool, error)

// Overflowing calls f
func (f OracleFunc) Overflowing(ctx context.Context, t *doc.Tree, page doc.NodeID) (bool, error) {
	return f(ctx, t, page)
}

// Chrome supplies the header and footer instances of each page.
// Either method may return doc.NoNode.
type Chrome interface {
	Header(t *doc.Tree, number int, rep *report.Collector) doc.NodeID
	Footer(t *doc.Tree, number int, rep *report.Collector) doc.NodeID
}
