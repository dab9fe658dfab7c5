package content

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDiffIdentical(t *testing.T) {
	d, err := Diff("# Overview", "# Overview", "version 1", "version 3")
	require.NoError(t, err)
	require.Equal(t, NoDifferences, d.Summary)
	require.Zero(t, d.AddedLines+d.RemovedLines+d.ModifiedLines)
	require.Empty(t, d.Unified)
}

func TestDiffCounts(t *testing.T) {
	a := "# Overview\nline a\nline b\nkeep"
	b := "# Overview\nline A\nkeep\nnew 1\nnew 2"
	d, err := Diff(a, b, "version 1", "version 2")
	require.NoError(t, err)
	require.Equal(t, 1, d.ModifiedLines)
	require.Equal(t, 1, d.RemovedLines)
	require.Equal(t, 2, d.AddedLines)
	require.Equal(t, "2 lines added, 1 line removed, 1 line modified", d.Summary)
	require.Contains(t, d.Unified, "--- version 1")
	require.Contains(t, d.Unified, "+++ version 2")
	require.Contains(t, d.Unified, "+new 1")
}

func TestDiffAppendOnly(t *testing.T) {
	d, err := Diff("# Overview", "# Overview\n\nMore text", "a", "b")
	require.NoError(t, err)
	require.Equal(t, 2, d.AddedLines)
	require.Zero(t, d.RemovedLines)
	require.Zero(t, d.ModifiedLines)
}

func TestDiffFromEmpty(t *testing.T) {
	d, err := Diff("", "one\ntwo", "a", "b")
	require.NoError(t, err)
	require.Equal(t, 2, d.AddedLines)

	d, err = Diff("one\ntwo", "", "a", "b")
	require.NoError(t, err)
	require.Equal(t, 2, d.RemovedLines)
}

func TestDiffLineEndingsCountAsModified(t *testing.T) {
	d, err := Diff("a\r\nb", "a\nb", "x", "y")
	require.NoError(t, err)
	require.Equal(t, 1, d.ModifiedLines)
	require.Zero(t, d.AddedLines)
	require.Zero(t, d.RemovedLines)
	require.Equal(t, "1 line modified", d.Summary)
	require.Contains(t, d.Unified, "-a\r\n+a\n b\n")
}

func TestDiffCountsMatchUnifiedDiff(t *testing.T) {
	pairs := [][2]string{
		{"a\r\nb", "a\nb"},
		{"one\ntwo", "one\ntwo\n"},
		{"x\ny\nz", "x\nY\r\nz\nw"},
	}
	for _, p := range pairs {
		d, err := Diff(p[0], p[1], "a", "b")
		require.NoError(t, err)
		var plus, minus int
		for _, line := range strings.Split(d.Unified, "\n") {
			switch {
			case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
			case strings.HasPrefix(line, "+"):
				plus++
			case strings.HasPrefix(line, "-"):
				minus++
			}
		}
		require.Equal(t, d.AddedLines+d.ModifiedLines, plus, p)
		require.Equal(t, d.RemovedLines+d.ModifiedLines, minus, p)
	}
}
