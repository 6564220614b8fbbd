package diff

import (
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestCompute_SimpleAddition(t *testing.T) {
	oldContent := "line1\nline2\nline3\n"
	newContent := "line1\nline2\nline2.5\nline3\n"

	diff := Compute("config.ts", oldContent, newContent)

	if len(diff.Hunks) != 1 {
		t.Fatalf("Expected 1 hunk, got %d", len(diff.Hunks))
	}
	if diff.IsNew {
		t.Error("Should not be marked as new")
	}

	want := "--- a/config.ts\n+++ b/config.ts\n@@ -1,3 +1,4 @@\n line1\n line2\n+line2.5\n line3\n"
	if d := cmp.Diff(want, diff.Unified()); d != "" {
		t.Errorf("unified mismatch (-want +got):\n%s", d)
	}
}

func TestCompute_Replacement(t *testing.T) {
	oldContent := "a\nb\nc\n"
	newContent := "a\nB\nc\n"

	diff := Compute("f.ts", oldContent, newContent)
	added, removed := diff.Stats()
	if added != 1 || removed != 1 {
		t.Errorf("expected 1 added and 1 removed, got %d/%d", added, removed)
	}
	want := "--- a/f.ts\n+++ b/f.ts\n@@ -1,3 +1,3 @@\n a\n-b\n+B\n c\n"
	if d := cmp.Diff(want, diff.Unified()); d != "" {
		t.Errorf("unified mismatch (-want +got):\n%s", d)
	}
}

func TestCompute_NewFile(t *testing.T) {
	diff := Compute("config.ts", "", "export const collections = {};\n")
	if !diff.IsNew {
		t.Error("Expected IsNew")
	}
	want := "--- /dev/null\n+++ b/config.ts\n@@ -0,0 +1 @@\n+export const collections = {};\n"
	if d := cmp.Diff(want, diff.Unified()); d != "" {
		t.Errorf("unified mismatch (-want +got):\n%s", d)
	}
}

func TestCompute_NoChanges(t *testing.T) {
	diff := Compute("config.ts", "same\n", "same\n")
	if !diff.Empty() {
		t.Errorf("expected no hunks, got %d", len(diff.Hunks))
	}
	if diff.Unified() != "" {
		t.Error("expected empty unified output")
	}
}

func TestCompute_MultipleHunks(t *testing.T) {
	var oldLines, newLines []string
	for i := 1; i <= 30; i++ {
		line := fmt.Sprintf("line%d", i)
		oldLines = append(oldLines, line)
		switch i {
		case 2:
			newLines = append(newLines, "changed2")
		case 25:
			newLines = append(newLines, "changed25")
		default:
			newLines = append(newLines, line)
		}
	}

	diff := Compute("f", strings.Join(oldLines, "\n")+"\n", strings.Join(newLines, "\n")+"\n")
	if len(diff.Hunks) != 2 {
		t.Fatalf("Expected 2 hunks, got %d", len(diff.Hunks))
	}

	first := diff.Hunks[0]
	if first.OldStart != 1 || first.OldCount != 5 || first.NewCount != 5 {
		t.Errorf("unexpected first hunk header: -%d,%d +%d,%d", first.OldStart, first.OldCount, first.NewStart, first.NewCount)
	}
	second := diff.Hunks[1]
	if second.OldStart != 22 || second.OldCount != 7 {
		t.Errorf("unexpected second hunk header: -%d,%d", second.OldStart, second.OldCount)
	}
}

func TestCompute_NearbyChangesMerge(t *testing.T) {
	oldContent := "1\n2\n3\n4\n5\n6\n7\n8\n9\n"
	newContent := "1\nX\n3\n4\n5\n6\nY\n8\n9\n"

	diff := NewEngine(2).Compute("f", oldContent, newContent)
	if len(diff.Hunks) != 1 {
		t.Fatalf("changes 4 lines apart with context 2 should share a hunk, got %d", len(diff.Hunks))
	}
}

func TestCompute_ZeroContext(t *testing.T) {
	diff := NewEngine(0).Compute("f", "a\nb\nc\n", "a\nc\n")
	want := "--- a/f\n+++ b/f\n@@ -2 +1,0 @@\n-b\n"
	if d := cmp.Diff(want, diff.Unified()); d != "" {
		t.Errorf("unified mismatch (-want +got):\n%s", d)
	}
}

func BenchmarkCompute(b *testing.B) {
	var lines []string
	for i := 0; i < 1000; i++ {
		lines = append(lines, fmt.Sprintf("const x%d = %d;", i, i))
	}
	oldContent := strings.Join(lines, "\n")
	lines[500] = "const changed = true;"
	newContent := strings.Join(lines, "\n")

	engine := NewEngine(DefaultContext)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		engine.Compute("f", oldContent, newContent)
	}
}
