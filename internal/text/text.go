// Package text normalizes help text for CLI commands.
package text

import (
	"strings"
)

// Indentation is the standard indentation for CLI help text.
const Indentation = `  `

// LongDesc trims a command's long description.
func LongDesc(s string) string {
	return strings.TrimSpace(s)
}

// Examples trims a command's examples and indents every line.
func Examples(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}

	lines := make([]string, 0, strings.Count(s, "\n")+1)
	for line := range strings.SplitSeq(s, "\n") {
		lines = append(lines, Indentation+strings.TrimSpace(line))
	}

	return strings.Join(lines, "\n")
}
