package cli

import (
	"fmt"

	"github.com/sourcegraph/go-diff/diff"
)

// printHunks lists each hunk of a unified diff with its line counts.
func (e *env) printHunks(unified string) error {
	fd, err := diff.ParseFileDiff([]byte(unified))
	if err != nil {
		return fmt.Errorf("parse diff: %w", err)
	}
	for _, h := range fd.Hunks {
		st := h.Stat()
		e.printf("@@ -%d,%d +%d,%d @@  +%d -%d ~%d\n",
			h.OrigStartLine, h.OrigLines, h.NewStartLine, h.NewLines,
			st.Added, st.Deleted, st.Changed)
	}
	st := fd.Stat()
	e.printf("%d hunk(s), %d insertion(s), %d deletion(s), %d change(s)\n", len(fd.Hunks), st.Added, st.Deleted, st.Changed)
	return nil
}
