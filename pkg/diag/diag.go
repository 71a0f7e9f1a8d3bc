// Package diag recognizes compiler diagnostic header lines of the form
// "path(line,col): error CODE: message".
package diag

import (
	"regexp"
	"strings"
)

// _headerRe matches a diagnostic header. Submatches: path, location, code, message.
var _headerRe = regexp.MustCompile(`(.+)\((.+)\): error ([A-Z]+\d+):(.+)`)

// Header is a parsed diagnostic header line.
type Header struct {
	Path     string
	Location string
	Code     string
	Message  string // includes the leading space after the colon
}

// ParseHeader parses line as a diagnostic header.
// The second return value is false when line does not match.
func ParseHeader(line string) (Header, bool) {
	m := _headerRe.FindStringSubmatch(strings.TrimRight(line, "\r"))
	if m == nil {
		return Header{}, false
	}
	return Header{
		Path:     m[1],
		Location: m[2],
		Code:     m[3],
		Message:  m[4],
	}, true
}

// IsHeader reports whether line is a diagnostic header.
func IsHeader(line string) bool {
	return _headerRe.MatchString(strings.TrimRight(line, "\r"))
}

// HasHeader reports whether any line of chunk is a diagnostic header.
func HasHeader(chunk string) bool {
	for _, line := range Lines(chunk) {
		if IsHeader(line) {
			return true
		}
	}
	return false
}

// CountErrors returns the number of header lines in chunk. A chunk without
// any header yields 0.
func CountErrors(chunk string) int {
	n := 0
	for _, line := range Lines(chunk) {
		if _headerRe.FindStringIndex(line) != nil {
			n++
		}
	}
	return n
}

// Lines splits chunk on '\n' and strips a trailing '\r' from each line.
// Empty lines are kept so callers can decide how to treat them.
func Lines(chunk string) []string {
	lines := strings.Split(chunk, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, "\r")
	}
	return lines
}
