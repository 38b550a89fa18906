package report

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/google/go-cmp/cmp"
	"go.uber.org/multierr"

	"github.com/gompdf/gompage/internal/doc"
)

func TestCollectorKeepsOrder(t *testing.T) {
	var c Collector
	c.Add("first %d", 1)
	c.Add("second")

	if diff := cmp.Diff([]string{"first 1", "second"}, c.Entries()); diff != "" {
		t.Errorf("Entries mismatch (-want +got):\n%s", diff)
	}
	if c.Len() != 2 {
		t.Errorf("Len = %d, want 2", c.Len())
	}
}

func TestCollectorLogsEntries(t *testing.T) {
	var buf bytes.Buffer
	c := New(log.New(&buf))
	c.Add("A nonbreaking element (%s) is too large to fit in the page.", "img")

	if !strings.Contains(buf.String(), "(img)") {
		t.Errorf("log output %q does not mention the entry", buf.String())
	}
}

func TestErrAndFatal(t *testing.T) {
	var c Collector
	if c.Err() != nil {
		t.Errorf("Err() on empty collector = %v, want nil", c.Err())
	}

	c.Add("warn one")
	c.Add("warn two")
	cause := errors.New("oracle unavailable")
	err := c.Fatal(cause)

	if !errors.Is(err, cause) {
		t.Errorf("Fatal error does not wrap the cause: %v", err)
	}
	if got := len(multierr.Errors(err)); got != 3 {
		t.Errorf("Fatal combined %d errors, want 3", got)
	}
}

func TestMaterialize(t *testing.T) {
	tr := doc.NewTree()
	body := tr.NewElement("body")

	var empty Collector
	n := empty.Materialize(tr, body)
	if len(tr.Children(n)) != 0 {
		t.Error("empty report node should have no text")
	}
	if !tr.HasAttr(n, "hidden") {
		t.Error("report node is not hidden")
	}

	var c Collector
	c.Add("a")
	c.Add("b")
	n = c.Materialize(tr, body)
	if got, want := tr.TextContent(n), "a\x00b"; got != want {
		t.Errorf("report text = %q, want %q", got, want)
	}
	if id, _ := tr.Attr(n, "id"); id != NodeID {
		t.Errorf("report id = %q, want %q", id, NodeID)
	}
	if got := tr.Children(body); len(got) != 2 || got[1] != n {
		t.Errorf("report node not appended last: %v", got)
	}
}

func TestWriteTo(t *testing.T) {
	var c Collector
	c.Add("x")
	c.Add("y")
	var buf bytes.Buffer
	if _, err := c.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo error = %v", err)
	}
	if buf.String() != "x\ny\n" {
		t.Errorf("WriteTo wrote %q", buf.String())
	}
}
