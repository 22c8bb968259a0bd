package indexer

import (
	"path/filepath"
	"regexp"
	"strings"
)

var (
	horizontalSpace = regexp.MustCompile(`[ \t\f\v\r]+`)
	blankLines      = regexp.MustCompile(`\n{3,}`)
)

// Preprocess tidies extracted text: runs of spaces collapse, lines are trimmed
// and at most one blank line separates paragraphs.
func Preprocess(text string) string {
	text = horizontalSpace.ReplaceAllString(text, " ")
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	text = blankLines.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
	return strings.TrimSpace(text)
}

// humanTitle turns a file name like "grad_policy-2025.pdf" into "grad policy 2025".
func humanTitle(name string) string {
	name = strings.TrimSuffix(name, filepath.Ext(name))
	return strings.Join(strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-' || r == ' ' || r == '.'
	}), " ")
}
