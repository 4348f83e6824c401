package widgets

import (
	"strings"
	"testing"

	"github.com/charmbracelet/x/ansi"
)

func baseRows(n int) string {
	rows := make([]string, n)
	for i := range rows {
		rows[i] = "row-" + string(rune('0'+i)) + "......................................"
	}
	return strings.Join(rows, "\n")
}

func TestRenderPopupOverlaysWithoutDroppingBase(t *testing.T) {
	out := RenderPopup(baseRows(9), "Popup", 20, 9)
	lines := strings.Split(out, "\n")
	if len(lines) != 9 {
		t.Fatalf("line count = %d, want 9", len(lines))
	}
	if !strings.Contains(out, "Popup") {
		t.Fatalf("expected popup content in output")
	}
	if !strings.Contains(lines[0], "row-0") {
		t.Fatalf("expected top base row preserved, got %q", lines[0])
	}
	if !strings.Contains(lines[8], "row-8") {
		t.Fatalf("expected bottom base row preserved, got %q", lines[8])
	}
}

func TestRenderSlideOverPinsRight(t *testing.T) {
	panel := Pane{Title: "Notice", Content: "hello"}.Render(12, 5)
	out := RenderSlideOver(baseRows(6), panel, 30, 6)
	lines := strings.Split(out, "\n")
	if len(lines) != 6 {
		t.Fatalf("line count = %d, want 6", len(lines))
	}
	for i, line := range lines {
		if w := ansi.StringWidth(line); w != 30 {
			t.Fatalf("line %d width = %d, want 30", i, w)
		}
	}
	if !strings.HasPrefix(lines[0], "row-0") {
		t.Fatalf("expected base visible on the left, got %q", lines[0])
	}
	if !strings.HasSuffix(ansi.Strip(lines[0]), "╮") {
		t.Fatalf("expected panel border at the right edge, got %q", lines[0])
	}
	if !strings.Contains(lines[1], "hello") {
		t.Fatalf("expected panel content, got %q", lines[1])
	}
	if !strings.HasPrefix(lines[5], "row-5") {
		t.Fatalf("rows below the panel keep the base, got %q", lines[5])
	}
}

func TestPaneRendersTitleAndFooter(t *testing.T) {
	out := ansi.Strip(Pane{Title: "Events", Footer: "esc close", Content: "a\nb"}.Render(24, 5))
	lines := strings.Split(out, "\n")
	if len(lines) != 5 {
		t.Fatalf("line count = %d, want 5", len(lines))
	}
	if !strings.Contains(lines[0], " Events ") {
		t.Fatalf("title missing from top border: %q", lines[0])
	}
	if !strings.Contains(lines[4], " esc close ") {
		t.Fatalf("footer missing from bottom border: %q", lines[4])
	}
	for i, line := range lines {
		if w := ansi.StringWidth(line); w != 24 {
			t.Fatalf("line %d width = %d, want 24", i, w)
		}
	}
}

func TestTruncateMarksCut(t *testing.T) {
	if got := Truncate("communication", 6); got != "commu…" {
		t.Fatalf("Truncate = %q", got)
	}
	if got := Truncate("abc", 6); got != "abc" {
		t.Fatalf("Truncate = %q", got)
	}
}
