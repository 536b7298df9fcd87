// Package cloze parses, validates, and converts cloze-deletion markup.
//
// Authoring syntax is ((cN::content)) or ((cN::content::hint)). The
// target application's native syntax uses double braces; Convert
// rewrites one into the other without touching anything else.
package cloze

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/starford/perthro/internal/apperr"
)

var clozeRe = regexp.MustCompile(`\(\(c(\d+)::(.*?)\)\)`)

// Deletion is one cloze span extracted from a text.
type Deletion struct {
	Number  int
	Content string
	Hint    string // empty when the span carries no hint
}

// Parse extracts all cloze spans in document order. Text without any
// recognized span yields an empty slice, not an error.
func Parse(text string) []Deletion {
	matches := clozeRe.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}
	out := make([]Deletion, 0, len(matches))
	for _, m := range matches {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		content, hint := splitHint(m[2])
		out = append(out, Deletion{Number: n, Content: content, Hint: hint})
	}
	return out
}

// splitHint separates "content::hint" into its parts. Only the first
// "::" is a separator; content may not contain one, hints may.
func splitHint(s string) (content, hint string) {
	if i := strings.Index(s, "::"); i >= 0 {
		return s[:i], s[i+2:]
	}
	return s, ""
}

// Validation is the outcome of checking a cloze text.
type Validation struct {
	Valid      bool
	Err        error
	Count      int
	Duplicates []int
}

// Validate checks a text destined for a cloze-type card: it must contain
// at least one span, and span numbers must be unique.
func Validate(text string) Validation {
	dels := Parse(text)
	if len(dels) == 0 {
		return Validation{Err: apperr.ErrNoClozeFound}
	}
	seen := make(map[int]int)
	for _, d := range dels {
		seen[d.Number]++
	}
	var dups []int
	for n, count := range seen {
		if count > 1 {
			dups = append(dups, n)
		}
	}
	if len(dups) > 0 {
		sort.Ints(dups)
		return Validation{Count: len(dels), Duplicates: dups, Err: &apperr.DuplicateClozeError{Numbers: dups}}
	}
	return Validation{Valid: true, Count: len(dels)}
}

// Numbers returns the distinct cloze numbers in a text, ascending.
func Numbers(text string) []int {
	seen := make(map[int]struct{})
	for _, d := range Parse(text) {
		seen[d.Number] = struct{}{}
	}
	out := make([]int, 0, len(seen))
	for n := range seen {
		out = append(out, n)
	}
	sort.Ints(out)
	return out
}

// Convert rewrites authoring syntax into the target application's
// native form: ((cN::content)) becomes {{cN::content}}, and a hint
// segment is carried over verbatim. Pure textual rewrite.
func Convert(text string) string {
	return clozeRe.ReplaceAllString(text, "{{c$1::$2}}")
}

// Window controls which non-current clozes a preview reveals.
// Before/After are distances in cloze-number space; -1 means all.
type Window struct {
	Before int
	After  int
}

// WindowAll shows every other cloze; WindowNone masks them all.
var (
	WindowAll  = Window{Before: -1, After: -1}
	WindowNone = Window{Before: 0, After: 0}
)

const mask = "[...]"

// Render produces a masked preview of text with the given cloze number
// as the one being quizzed. The current cloze is always masked (its
// hint shown when present); others follow the visibility window. This
// is presentation only and never feeds the exported bytes.
func Render(text string, current int, w Window) string {
	return clozeRe.ReplaceAllStringFunc(text, func(m string) string {
		sub := clozeRe.FindStringSubmatch(m)
		n, _ := strconv.Atoi(sub[1])
		content, hint := splitHint(sub[2])
		if n == current {
			if hint != "" {
				return fmt.Sprintf("[%s]", hint)
			}
			return mask
		}
		if visible(n, current, w) {
			return content
		}
		return mask
	})
}

func visible(n, current int, w Window) bool {
	if n < current {
		return w.Before < 0 || current-n <= w.Before
	}
	return w.After < 0 || n-current <= w.After
}
