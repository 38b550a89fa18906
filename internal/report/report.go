// Package report collects the warnings and errors of a pagination run and
// turns them into the hidden report node appended to the output document.
package report

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"
	"go.uber.org/multierr"

	"github.com/gompdf/gompage/internal/doc"
)

// NodeID is the id attribute of the materialised report node
const NodeID = "gompage-report"

// Separator joins entries inside the report node
const Separator = "\x00"

// Collector is an append-only, ordered list of report entries.
// The zero value is ready to use and discards log output.
type Collector struct {
	entries []string
	log     *log.Logger
}

// New creates a collector that also logs every entry at warn level
func New(logger *log.Logger) *Collector {
	return &Collector{log: logger}
}

// Add appends a formatted entry
func (c *Collector) Add(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	c.entries = append(c.entries, msg)
	if c.log != nil {
		c.log.Warn(msg)
	}
}

// Len returns the number of entries collected so far
func (c *Collector) Len() int {
	return len(c.entries)
}

// Entries returns a copy of the collected entries in insertion order
func (c *Collector) Entries() []string {
	return append([]string(nil), c.entries...)
}

// Err combines every entry into a single error, or nil if there are none
func (c *Collector) Err() error {
	var err error
	for _, e := range c.entries {
		err = multierr.Append(err, errors.New(e))
	}
	return err
}

// Fatal wraps cause together with every entry collected so far
func (c *Collector) Fatal(cause error) error {
	return multierr.Append(cause, c.Err())
}

// Materialize appends the hidden report node to parent and returns it
func (c *Collector) Materialize(t *doc.Tree, parent doc.NodeID) doc.NodeID {
	n := t.NewElement("div",
		doc.Attribute{Key: "id", Val: NodeID},
		doc.Attribute{Key: "hidden"},
		doc.Attribute{Key: "style", Val: "display: none"},
	)
	if len(c.entries) > 0 {
		t.Append(n, t.NewText(strings.Join(c.entries, Separator)))
	}
	t.Append(parent, n)
	return n
}

// WriteTo prints one entry per line
func (c *Collector) WriteTo(w io.Writer) (int64, error) {
	var total int64
	for _, e := range c.entries {
		n, err := fmt.Fprintln(w, e)
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
