package content

import (
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// LineDiff summarises the line-level difference between two texts.
type LineDiff struct {
	AddedLines    int    `json:"added_lines"`
	RemovedLines  int    `json:"removed_lines"`
	ModifiedLines int    `json:"modified_lines"`
	Summary       string `json:"diff_summary"`
	Unified       string `json:"unified_diff,omitempty"`
}

const NoDifferences = "No differences"

// Diff compares a and b line by line. Replace blocks count the paired
// lines as modified and the surplus as added or removed. Line endings are
// part of a line, so a CRLF to LF change counts as a modification.
func Diff(a, b, fromLabel, toLabel string) (LineDiff, error) {
	var d LineDiff
	if a == b {
		d.Summary = NoDifferences
		return d, nil
	}
	linesA, linesB := splitLines(a), splitLines(b)
	m := difflib.NewMatcher(linesA, linesB)
	for _, op := range m.GetOpCodes() {
		la, lb := op.I2-op.I1, op.J2-op.J1
		switch op.Tag {
		case 'r':
			paired := min(la, lb)
			d.ModifiedLines += paired
			d.RemovedLines += la - paired
			d.AddedLines += lb - paired
		case 'd':
			d.RemovedLines += la
		case 'i':
			d.AddedLines += lb
		}
	}
	d.Summary = summarize(d)

	unified, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        linesA,
		B:        linesB,
		FromFile: fromLabel,
		ToFile:   toLabel,
		Context:  3,
	})
	if err != nil {
		return d, fmt.Errorf("unified diff: %w", err)
	}
	d.Unified = unified
	return d, nil
}

func summarize(d LineDiff) string {
	parts := []string{}
	if d.AddedLines > 0 {
		parts = append(parts, plural(d.AddedLines, "line")+" added")
	}
	if d.RemovedLines > 0 {
		parts = append(parts, plural(d.RemovedLines, "line")+" removed")
	}
	if d.ModifiedLines > 0 {
		parts = append(parts, plural(d.ModifiedLines, "line")+" modified")
	}
	if len(parts) == 0 {
		return NoDifferences
	}
	return strings.Join(parts, ", ")
}

// splitLines keeps each line's terminator. Empty text has no lines.
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	return difflib.SplitLines(s)
}

func plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
