package ui

import (
	"strings"
	"testing"
)

func TestPalette(t *testing.T) {
	p := NewPalette("#7D56F4", "#04B575", "#FF0000", "#FFA500", "#626262")

	t.Run("Status Lines", func(t *testing.T) {
		if got := p.OK("saved"); !strings.Contains(got, "✓ saved") {
			t.Errorf("OK() = %q", got)
		}
		if got := p.Err("failed"); !strings.Contains(got, "✗ failed") {
			t.Errorf("Err() = %q", got)
		}
		if got := p.Title("Friends"); !strings.Contains(got, "Friends") {
			t.Errorf("Title() = %q", got)
		}
	})

	t.Run("Table", func(t *testing.T) {
		out := p.Table([]string{"ID", "Name"}, [][]string{{"1", "Alice"}, {"2", "Bob"}})
		for _, want := range []string{"ID", "Name", "Alice", "Bob"} {
			if !strings.Contains(out, want) {
				t.Errorf("table missing %q:\n%s", want, out)
			}
		}
	})

	t.Run("Empty Table", func(t *testing.T) {
		if out := p.Table([]string{"ID"}, nil); !strings.Contains(out, "(none)") {
			t.Errorf("empty table = %q", out)
		}
	})
}
