package main

import (
	"collectioninject/internal/collection"
	"collectioninject/internal/source"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Report colors
var (
	colorSuccess = lipgloss.Color("#8BC34A")
	colorWarning = lipgloss.Color("#FFC107")
	colorFailure = lipgloss.Color("#e53935")
	colorInfo    = lipgloss.Color("#2196F3")
	colorMuted   = lipgloss.Color("#6b7280")
)

var styles = struct {
	title   lipgloss.Style
	success lipgloss.Style
	warning lipgloss.Style
	failure lipgloss.Style
	muted   lipgloss.Style
	name    lipgloss.Style
	hunk    lipgloss.Style
}{
	title:   lipgloss.NewStyle().Bold(true),
	success: lipgloss.NewStyle().Foreground(colorSuccess),
	warning: lipgloss.NewStyle().Foreground(colorWarning),
	failure: lipgloss.NewStyle().Foreground(colorFailure).Bold(true),
	muted:   lipgloss.NewStyle().Foreground(colorMuted),
	name:    lipgloss.NewStyle().Foreground(colorInfo).Width(16),
	hunk:    lipgloss.NewStyle().Foreground(colorInfo).Faint(true),
}

// renderReport describes one run: the file status line, scaffold work, one
// line per collection and optionally the diff.
func renderReport(res *collection.Result, withDiff bool) string {
	var b strings.Builder

	path := res.ConfigPath
	if rel, err := filepath.Rel(layout.Root, path); err == nil {
		path = rel
	}
	switch {
	case !res.Changed:
		b.WriteString(styles.success.Render("ok") + " " + styles.title.Render(path) + styles.muted.Render(" unchanged"))
	case res.Written:
		b.WriteString(styles.success.Render("updated") + " " + styles.title.Render(path))
	default:
		b.WriteString(styles.warning.Render("would update") + " " + styles.title.Render(path))
	}
	if res.Diff != nil {
		added, removed := res.Diff.Stats()
		b.WriteString(styles.muted.Render(fmt.Sprintf(" (+%d -%d)", added, removed)))
	}
	b.WriteString("\n")

	if sc := res.Scaffold; sc != nil {
		verb := "created"
		if dryRun {
			verb = "would create"
		}
		for _, dir := range sc.CreatedDirs {
			if rel, err := filepath.Rel(layout.Root, dir); err == nil {
				dir = rel
			}
			b.WriteString("  " + styles.muted.Render(verb+" "+dir) + "\n")
		}
		for _, name := range sc.Seeded {
			b.WriteString("  " + styles.muted.Render("seeded "+name) + "\n")
		}
		failed := make([]string, 0, len(sc.SeedFailures))
		for name := range sc.SeedFailures {
			failed = append(failed, name)
		}
		sort.Strings(failed)
		for _, name := range failed {
			b.WriteString("  " + styles.warning.Render("seed "+name+" failed: "+sc.SeedFailures[name].Error()) + "\n")
		}
	}

	for _, o := range res.Collections {
		b.WriteString("  " + styles.name.Render(o.Collection) + propertyLabel(o.Property.Action))
		b.WriteString(styles.muted.Render(" schema " + o.Local))
		if len(o.Property.DroppedArgs) > 0 {
			b.WriteString(styles.warning.Render(fmt.Sprintf(" (%d argument(s) not appended)", len(o.Property.DroppedArgs))))
		}
		b.WriteString("\n")
	}

	if withDiff && res.Diff != nil && !res.Diff.Empty() {
		b.WriteString("\n")
		b.WriteString(renderDiff(res.Diff.Unified()))
	}
	return b.String()
}

func propertyLabel(action source.PropertyAction) string {
	switch action {
	case source.PropertyAdded:
		return styles.success.Render(string(action))
	case source.PropertyReplaced, source.PropertyPatched:
		return styles.warning.Render(string(action))
	default:
		return styles.muted.Render(string(action))
	}
}

func renderDiff(unified string) string {
	var b strings.Builder
	for _, line := range strings.SplitAfter(unified, "\n") {
		if line == "" {
			continue
		}
		text := strings.TrimSuffix(line, "\n")
		switch {
		case strings.HasPrefix(text, "+++"), strings.HasPrefix(text, "---"):
			b.WriteString(styles.title.Render(text))
		case strings.HasPrefix(text, "@@"):
			b.WriteString(styles.hunk.Render(text))
		case strings.HasPrefix(text, "+"):
			b.WriteString(styles.success.Render(text))
		case strings.HasPrefix(text, "-"):
			b.WriteString(styles.failure.UnsetBold().Render(text))
		default:
			b.WriteString(text)
		}
		b.WriteString("\n")
	}
	return b.String()
}
