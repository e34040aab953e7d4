// Package repair recovers structured analysis output from chat-completion text
// that may be wrapped in prose, truncated mid-token, or loosely typed.
package repair

import (
	"regexp"
	"strings"
)

var jsonNumber = regexp.MustCompile(`^-?(0|[1-9][0-9]*)(\.[0-9]+)?([eE][+-]?[0-9]+)?$`)

type frame struct {
	open      byte
	expectKey bool
}

// Repair returns the outermost JSON object found in raw. A complete object is
// returned byte for byte; a truncated one gets its open string, arrays and
// objects closed. Text with no '{' is returned unchanged.
func Repair(raw string) string {
	start := strings.IndexByte(raw, '{')
	if start < 0 {
		return raw
	}
	s := raw[start:]

	var (
		stack      []frame
		inString   bool
		escaped    bool
		stringKey  bool
		lastWasKey bool
	)

	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
				lastWasKey = stringKey
			}
			continue
		}

		switch c {
		case '"':
			inString = true
			stringKey = len(stack) > 0 && stack[len(stack)-1].open == '{' && stack[len(stack)-1].expectKey
		case '{':
			stack = append(stack, frame{open: '{', expectKey: true})
		case '[':
			stack = append(stack, frame{open: '['})
		case ':':
			if len(stack) > 0 {
				stack[len(stack)-1].expectKey = false
			}
			lastWasKey = false
		case ',':
			if len(stack) > 0 && stack[len(stack)-1].open == '{' {
				stack[len(stack)-1].expectKey = true
			}
			lastWasKey = false
		case '}', ']':
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
			if len(stack) == 0 {
				return s[:i+1]
			}
		}
	}

	var b strings.Builder
	b.Grow(len(s) + len(stack) + 8)

	if inString {
		b.WriteString(dropPartialEscape(s, escaped))
		b.WriteByte('"')
		if stringKey {
			b.WriteString(":null")
		}
	} else {
		b.WriteString(closeTail(s, lastWasKey))
	}

	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i].open == '{' {
			b.WriteByte('}')
		} else {
			b.WriteByte(']')
		}
	}
	return b.String()
}

// dropPartialEscape removes a dangling backslash or an incomplete \uXXXX
// sequence from the end of an unterminated string.
func dropPartialEscape(s string, escaped bool) string {
	if escaped {
		return s[:len(s)-1]
	}
	tail := len(s) - 6
	if tail < 0 {
		tail = 0
	}
	if idx := strings.LastIndex(s[tail:], `\u`); idx >= 0 {
		pos := tail + idx
		if len(s)-pos < 6 && !precededByBackslash(s, pos) {
			return s[:pos]
		}
	}
	return s
}

func precededByBackslash(s string, pos int) bool {
	n := 0
	for i := pos - 1; i >= 0 && s[i] == '\\'; i-- {
		n++
	}
	return n%2 == 1
}

// closeTail trims what cannot end a JSON value: trailing commas, partial
// literals, and a colon or key with no value (completed with null).
func closeTail(s string, lastWasKey bool) string {
	for {
		s = strings.TrimRight(s, " \t\r\n")
		if s == "" {
			return s
		}
		switch last := s[len(s)-1]; {
		case last == ',':
			s = s[:len(s)-1]
			continue
		case last == ':':
			return s + "null"
		case last == '"':
			if lastWasKey {
				return s + ":null"
			}
			return s
		case isLiteralByte(last):
			start := len(s)
			for start > 0 && isLiteralByte(s[start-1]) {
				start--
			}
			token := s[start:]
			if token == "true" || token == "false" || token == "null" || jsonNumber.MatchString(token) {
				return s
			}
			s = s[:start]
			continue
		}
		return s
	}
}

func isLiteralByte(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '.' || c == '-' || c == '+'
}
