// Package reconcile merges a separately-parsed answer-key/tapescript
// batch into parsed exams. Matching is deliberately loose: test numbers
// are dug out of free-text titles and ids, and section labels are
// matched by bidirectional substring, because the two documents come
// from independent extraction runs that rarely agree on exact naming.
package reconcile

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/examdesk/examdesk/internal/model"
)

var (
	anyIntRe    = regexp.MustCompile(`\d+`)
	titleTestRe = regexp.MustCompile(`(?i)test\s*(\d+)`)
	idTestRe    = regexp.MustCompile(`(?i)test-?(\d+)`)
	nonDigitRe  = regexp.MustCompile(`\D`)
)

// LeadingInt returns the first integer found anywhere in s.
func LeadingInt(s string) (int, bool) {
	m := anyIntRe.FindString(s)
	if m == "" {
		return 0, false
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		// Digit runs longer than an int only occur in garbage input.
		return 0, false
	}
	return n, true
}

// TestNumberFromTitle returns the digits following the word "Test" in a
// free-text exam title, e.g. "CET-4 Test 12 (June)" -> 12.
func TestNumberFromTitle(title string) (int, bool) {
	m := titleTestRe.FindStringSubmatch(title)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// TestNumberFromID returns the digits following "test" and an optional
// hyphen in an exam id, e.g. "test-3" -> 3.
func TestNumberFromID(id string) (int, bool) {
	m := idTestRe.FindStringSubmatch(id)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// ExamNumber extracts the exam's test number from its title, falling
// back to its id. Exams with no extractable number are unmatchable.
func ExamNumber(exam model.ExamData) (int, bool) {
	if n, ok := TestNumberFromTitle(exam.Title); ok {
		return n, ok
	}
	return TestNumberFromID(exam.ID)
}

// DigitKey strips all non-digit characters from s, producing the
// digit-only answer-map key form, e.g. "Q 12." -> "12".
func DigitKey(s string) string {
	return nonDigitRe.ReplaceAllString(s, "")
}

// containsEither reports whether a contains b or b contains a,
// case-insensitively. Used to pair section titles with tapescript labels.
func containsEither(a, b string) bool {
	la, lb := strings.ToLower(a), strings.ToLower(b)
	return strings.Contains(la, lb) || strings.Contains(lb, la)
}
