// Package pagespec parses user-supplied page selection strings such as
// "1-3,5,1-2" against a known page count. Selections are 1-indexed on the
// way in and 0-indexed on the way out; token order and duplicate pages are
// preserved exactly so that "1,1,2" really does mean page one twice.
package pagespec

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// EmptyPolicy decides what an empty parse result means. Some callers treat
// it as a legitimately empty optional selection, others as a user error;
// the parser stays neutral and makes the caller choose.
type EmptyPolicy int

const (
	// AllowEmpty returns an empty sequence without error.
	AllowEmpty EmptyPolicy = iota
	// RejectEmpty returns an EmptyError when no pages were selected.
	RejectEmpty
)

// FormatError reports a token that is not a page number or a well-formed
// range, e.g. "abc" or "1-2-3".
type FormatError struct {
	Token string
	msg   string
}

func (e *FormatError) Error() string { return e.msg }

// RangeError reports a page number or range bound outside [1, TotalPages],
// or an inverted range such as "5-2".
type RangeError struct {
	Token      string
	TotalPages int
	msg        string
}

func (e *RangeError) Error() string { return e.msg }

// EmptyError reports that a specification produced no pages at all under
// the RejectEmpty policy.
type EmptyError struct {
	Spec string
	msg  string
}

func (e *EmptyError) Error() string { return e.msg }

// Parse expands a page specification into 0-indexed page positions.
//
// The spec is a comma-separated list of tokens, each either a single
// 1-indexed page number ("5") or an inclusive range "start-end" where
// either bound may be omitted: "-3" means pages 1 through 3, "4-" means
// page 4 through the last page. All whitespace is ignored and stray commas
// are skipped. Emission follows token order left to right, ascending within
// a range, and duplicates are kept.
//
// totalPages must be at least 1. Parse is a pure function: no I/O, no
// shared state, safe for concurrent use.
func Parse(spec string, totalPages int, policy EmptyPolicy) ([]int, error) {
	stripped := stripSpace(spec)

	var indices []int
	for _, part := range strings.Split(stripped, ",") {
		if part == "" {
			continue
		}
		if strings.Contains(part, "-") {
			start, end, err := parseRange(part, totalPages)
			if err != nil {
				return nil, err
			}
			for page := start; page <= end; page++ {
				indices = append(indices, page-1)
			}
		} else {
			pageNum, err := strconv.Atoi(part)
			if err != nil {
				return nil, &FormatError{
					Token: part,
					msg:   fmt.Sprintf("Invalid page number: '%s'. Pages must be integers.", part),
				}
			}
			if pageNum < 1 {
				return nil, &RangeError{
					Token:      part,
					TotalPages: totalPages,
					msg:        fmt.Sprintf("Page number must be positive: '%s'.", part),
				}
			}
			if pageNum > totalPages {
				return nil, &RangeError{
					Token:      part,
					TotalPages: totalPages,
					msg:        fmt.Sprintf("Page number %d out of range. PDF has %d pages (1 to %d).", pageNum, totalPages, totalPages),
				}
			}
			indices = append(indices, pageNum-1)
		}
	}

	if len(indices) == 0 {
		if policy == RejectEmpty {
			return nil, &EmptyError{
				Spec: spec,
				msg:  fmt.Sprintf("No valid page numbers found in specification: '%s'.", spec),
			}
		}
		return nil, nil
	}
	return indices, nil
}

// parseRange validates a single "start-end" token. The split is on the
// first dash only, so "1-2-3" leaves "2-3" as the end bound and fails the
// integer parse, matching the format error taxonomy.
func parseRange(part string, totalPages int) (start, end int, err error) {
	bounds := strings.SplitN(part, "-", 2)
	startStr, endStr := bounds[0], bounds[1]

	start, end = 1, totalPages
	if startStr != "" {
		start, err = strconv.Atoi(startStr)
		if err != nil {
			return 0, 0, &FormatError{
				Token: part,
				msg:   fmt.Sprintf("Invalid page number in range: '%s'. Pages must be integers.", part),
			}
		}
	}
	if endStr != "" {
		end, err = strconv.Atoi(endStr)
		if err != nil {
			return 0, 0, &FormatError{
				Token: part,
				msg:   fmt.Sprintf("Invalid page number in range: '%s'. Pages must be integers.", part),
			}
		}
	}

	if start < 1 || end < 1 {
		return 0, 0, &RangeError{
			Token:      part,
			TotalPages: totalPages,
			msg:        fmt.Sprintf("Page numbers must be positive: '%s'.", part),
		}
	}
	if start > end {
		return 0, 0, &RangeError{
			Token:      part,
			TotalPages: totalPages,
			msg:        fmt.Sprintf("Start page cannot be greater than end page in range: '%s'.", part),
		}
	}
	if start > totalPages || end > totalPages {
		return 0, 0, &RangeError{
			Token:      part,
			TotalPages: totalPages,
			msg:        fmt.Sprintf("Page number out of range in '%s'. PDF has %d pages (1 to %d).", part, totalPages, totalPages),
		}
	}
	return start, end, nil
}

// ParseList expands a plain comma-separated page list ("1,3,5,2") into
// 0-indexed page positions. Unlike Parse it accepts no range syntax; order
// and duplicates are preserved and de-duplication is left to the caller.
// Out-of-range pages are collected and reported together.
func ParseList(spec string, totalPages int, policy EmptyPolicy) ([]int, error) {
	var indices []int
	var tooBig []int
	seenBig := make(map[int]bool)

	for _, token := range strings.Split(spec, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		page, err := strconv.Atoi(token)
		if err != nil {
			return nil, &FormatError{
				Token: token,
				msg:   "Invalid page numbers format. Please provide comma-separated integers (e.g., '1,3,5,2')",
			}
		}
		if page < 1 {
			return nil, &RangeError{
				Token:      token,
				TotalPages: totalPages,
				msg:        fmt.Sprintf("Page number must be at least 1. Found: %d", page),
			}
		}
		if page > totalPages {
			if !seenBig[page] {
				seenBig[page] = true
				tooBig = append(tooBig, page)
			}
			continue
		}
		indices = append(indices, page-1)
	}

	if len(tooBig) > 0 {
		return nil, &RangeError{
			Token:      spec,
			TotalPages: totalPages,
			msg: fmt.Sprintf("Invalid page numbers: [%s]. The PDF has %d pages (pages 1 to %d).",
				joinInts(tooBig, ", "), totalPages, totalPages),
		}
	}

	if len(indices) == 0 {
		if policy == RejectEmpty {
			return nil, &EmptyError{
				Spec: spec,
				msg:  "No valid page numbers provided",
			}
		}
		return nil, nil
	}
	return indices, nil
}

// Dedupe removes duplicate positions while keeping first-seen order.
func Dedupe(indices []int) []int {
	seen := make(map[int]bool, len(indices))
	var out []int
	for _, index := range indices {
		if seen[index] {
			continue
		}
		seen[index] = true
		out = append(out, index)
	}
	return out
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

func joinInts(values []int, sep string) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, sep)
}
