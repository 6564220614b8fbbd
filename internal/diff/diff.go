// Package diff renders line-level unified diffs of a module before and after
// injection, using sergi/go-diff for the underlying comparison.
package diff

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// DefaultContext is the number of unchanged lines shown around a change.
const DefaultContext = 3

// LineType represents the type of diff line
type LineType int

const (
	LineContext LineType = iota // Unchanged context line
	LineAdded                   // Added line
	LineRemoved                 // Removed line
)

// Line is a single line of a hunk. OldNum and NewNum are 1-based and zero
// on the side the line does not exist.
type Line struct {
	OldNum  int
	NewNum  int
	Content string
	Type    LineType
}

// Hunk is a group of changes with surrounding context.
type Hunk struct {
	OldStart int
	OldCount int
	NewStart int
	NewCount int
	Lines    []Line
}

// FileDiff holds the hunks for one file.
type FileDiff struct {
	Path  string
	IsNew bool
	Hunks []Hunk
}

// Engine computes diffs.
type Engine struct {
	dmp     *diffmatchpatch.DiffMatchPatch
	context int
}

// NewEngine creates a diff engine showing contextLines around each change.
func NewEngine(contextLines int) *Engine {
	dmp := diffmatchpatch.New()
	dmp.DiffTimeout = 0
	if contextLines < 0 {
		contextLines = 0
	}
	return &Engine{dmp: dmp, context: contextLines}
}

// Compute diffs two versions of the file at path.
func (e *Engine) Compute(path, oldContent, newContent string) *FileDiff {
	fd := &FileDiff{Path: path, IsNew: oldContent == ""}
	if oldContent == newContent {
		return fd
	}

	// Reduce to one rune per line so the result never splits a line.
	a, b, lines := e.dmp.DiffLinesToChars(oldContent, newContent)
	diffs := e.dmp.DiffMain(a, b, false)
	diffs = e.dmp.DiffCharsToLines(diffs, lines)

	fd.Hunks = e.hunks(toLines(diffs))
	return fd
}

// Compute is a convenience wrapper using DefaultContext.
func Compute(path, oldContent, newContent string) *FileDiff {
	return NewEngine(DefaultContext).Compute(path, oldContent, newContent)
}

func toLines(diffs []diffmatchpatch.Diff) []Line {
	var out []Line
	oldNum, newNum := 0, 0
	for _, d := range diffs {
		text := strings.TrimSuffix(d.Text, "\n")
		if d.Text == "" {
			continue
		}
		for _, content := range strings.Split(text, "\n") {
			switch d.Type {
			case diffmatchpatch.DiffEqual:
				oldNum++
				newNum++
				out = append(out, Line{OldNum: oldNum, NewNum: newNum, Content: content, Type: LineContext})
			case diffmatchpatch.DiffDelete:
				oldNum++
				out = append(out, Line{OldNum: oldNum, Content: content, Type: LineRemoved})
			case diffmatchpatch.DiffInsert:
				newNum++
				out = append(out, Line{NewNum: newNum, Content: content, Type: LineAdded})
			}
		}
	}
	return out
}

// hunks groups changed lines whose context windows touch.
func (e *Engine) hunks(lines []Line) []Hunk {
	var out []Hunk
	i := 0
	for i < len(lines) {
		if lines[i].Type == LineContext {
			i++
			continue
		}

		start := i - e.context
		if start < 0 {
			start = 0
		}
		end := i
		for end < len(lines) {
			if lines[end].Type != LineContext {
				end++
				continue
			}
			next := end
			for next < len(lines) && lines[next].Type == LineContext {
				next++
			}
			if next == len(lines) || next-end > 2*e.context {
				end += min(e.context, next-end)
				break
			}
			end = next
		}

		out = append(out, newHunk(lines, start, end))
		i = end
	}
	return out
}

func newHunk(lines []Line, start, end int) Hunk {
	h := Hunk{Lines: append([]Line(nil), lines[start:end]...)}
	for _, l := range h.Lines {
		if l.Type != LineAdded {
			if h.OldCount == 0 {
				h.OldStart = l.OldNum
			}
			h.OldCount++
		}
		if l.Type != LineRemoved {
			if h.NewCount == 0 {
				h.NewStart = l.NewNum
			}
			h.NewCount++
		}
	}
	// An empty side is anchored on the line before the hunk.
	if h.OldCount == 0 {
		h.OldStart = lineBefore(lines, start, func(l Line) int { return l.OldNum })
	}
	if h.NewCount == 0 {
		h.NewStart = lineBefore(lines, start, func(l Line) int { return l.NewNum })
	}
	return h
}

func lineBefore(lines []Line, start int, num func(Line) int) int {
	for j := start - 1; j >= 0; j-- {
		if n := num(lines[j]); n > 0 {
			return n
		}
	}
	return 0
}

// Empty reports whether the diff has no changes.
func (d *FileDiff) Empty() bool {
	return len(d.Hunks) == 0
}

// Stats counts added and removed lines.
func (d *FileDiff) Stats() (added, removed int) {
	for _, h := range d.Hunks {
		for _, l := range h.Lines {
			switch l.Type {
			case LineAdded:
				added++
			case LineRemoved:
				removed++
			}
		}
	}
	return added, removed
}

// Unified renders the diff in unified format. It returns "" when there are
// no changes.
func (d *FileDiff) Unified() string {
	if d.Empty() {
		return ""
	}
	var b strings.Builder
	if d.IsNew {
		b.WriteString("--- /dev/null\n")
	} else {
		fmt.Fprintf(&b, "--- a/%s\n", d.Path)
	}
	fmt.Fprintf(&b, "+++ b/%s\n", d.Path)
	for _, h := range d.Hunks {
		fmt.Fprintf(&b, "@@ -%s +%s @@\n", span(h.OldStart, h.OldCount), span(h.NewStart, h.NewCount))
		for _, l := range h.Lines {
			switch l.Type {
			case LineAdded:
				b.WriteByte('+')
			case LineRemoved:
				b.WriteByte('-')
			default:
				b.WriteByte(' ')
			}
			b.WriteString(l.Content)
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func span(start, count int) string {
	if count == 1 {
		return fmt.Sprintf("%d", start)
	}
	return fmt.Sprintf("%d,%d", start, count)
}
