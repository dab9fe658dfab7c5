package content

import (
	"fmt"
	"strings"
	"time"
)

// DefaultDocument is the body of a progress document created without content.
func DefaultDocument(projectName string, now time.Time) string {
	name := strings.TrimSpace(projectName)
	if name == "" {
		name = "Project"
	}
	return fmt.Sprintf(`# %s Progress

_Started %s_

## Overview

Describe the goal of the project and where it stands today.

## Completed

- Nothing yet

## In Progress

- Nothing yet

## Next Steps

- Nothing yet

## Blockers

None so far.
`, name, now.UTC().Format("January 2, 2006"))
}
