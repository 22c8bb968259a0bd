// Package entity extracts course codes and other structured mentions from student queries.
package entity

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	strictCourse = regexp.MustCompile(`\b([A-Z]{2,4})\s*(\d{2,3}[A-Za-z]?)\b`)
	lastNameRe   = regexp.MustCompile(`last name.*?\b([a-z])\b|starts? with ([a-z])\b`)
)

// DefaultDepartments lists the department prefixes recognised regardless of case.
var DefaultDepartments = []string{"CS", "CMPE", "ENGR", "ISE", "MATH"}

// Extractor pulls course-code entities out of free text.
type Extractor interface {
	CourseCodes(text string) []string
	HasCourseCode(text string) bool
}

// RegexExtractor matches strict upper-case codes plus configured departments in any case.
type RegexExtractor struct {
	deptCourse *regexp.Regexp
}

var _ Extractor = (*RegexExtractor)(nil)

// NewExtractor builds an extractor that also matches the given departments case-insensitively.
func NewExtractor(departments []string) *RegexExtractor {
	if len(departments) == 0 {
		departments = DefaultDepartments
	}
	quoted := make([]string, 0, len(departments))
	for _, d := range departments {
		d = strings.TrimSpace(d)
		if d != "" {
			quoted = append(quoted, regexp.QuoteMeta(d))
		}
	}
	pattern := fmt.Sprintf(`(?i)\b(%s)\s*(\d{2,3}[A-Za-z]?)\b`, strings.Join(quoted, "|"))
	return &RegexExtractor{deptCourse: regexp.MustCompile(pattern)}
}

type match struct {
	pos  int
	code string
}

// CourseCodes returns normalised "DEPT NNN" codes in order of first appearance, deduplicated.
func (e *RegexExtractor) CourseCodes(text string) []string {
	var found []match
	for _, re := range []*regexp.Regexp{strictCourse, e.deptCourse} {
		for _, idx := range re.FindAllStringSubmatchIndex(text, -1) {
			found = append(found, match{pos: idx[0], code: Normalize(text[idx[2]:idx[3]], text[idx[4]:idx[5]])})
		}
	}
	// insertion sort by position; inputs are short
	for i := 1; i < len(found); i++ {
		for j := i; j > 0 && found[j].pos < found[j-1].pos; j-- {
			found[j], found[j-1] = found[j-1], found[j]
		}
	}
	seen := make(map[string]bool, len(found))
	codes := make([]string, 0, len(found))
	for _, m := range found {
		if seen[m.code] {
			continue
		}
		seen[m.code] = true
		codes = append(codes, m.code)
	}
	return codes
}

// HasCourseCode reports whether text mentions at least one course.
func (e *RegexExtractor) HasCourseCode(text string) bool {
	return strictCourse.MatchString(text) || e.deptCourse.MatchString(text)
}

// Normalize joins a department and number as "DEPT NNN" with upper-case letters.
func Normalize(dept, number string) string {
	return strings.ToUpper(dept) + " " + strings.ToUpper(number)
}

// LastNameInitial returns the upper-case last-name initial mentioned in text, if any.
func LastNameInitial(text string) (string, bool) {
	m := lastNameRe.FindStringSubmatch(strings.ToLower(text))
	if m == nil {
		return "", false
	}
	for _, g := range m[1:] {
		if g != "" {
			return strings.ToUpper(g), true
		}
	}
	return "", false
}
