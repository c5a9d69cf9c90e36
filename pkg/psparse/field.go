package psparse

import (
	"strings"
	"unicode"
)

// SplitField splits a `name : value` line. The separator is the first colon
// followed by whitespace or the end of the line, so drive letters, IPv6
// addresses and timestamps inside the value stay intact. The name must be
// non-empty and may not contain a colon itself.
func SplitField(line string) (key, value string, ok bool) {
	for i := 0; i < len(line); i++ {
		if line[i] != ':' {
			continue
		}
		if i+1 < len(line) && !isSpace(line[i+1]) {
			continue
		}
		key = strings.TrimSpace(line[:i])
		if key == "" || strings.ContainsRune(key, ':') {
			return "", "", false
		}
		return key, strings.TrimSpace(line[i+1:]), true
	}
	return "", "", false
}

// NormalizeKey returns the canonical form of a field name.
func NormalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

// NormalizeValue returns the canonical form of a field value. Only surrounding
// whitespace is removed; brackets, quotes and case are preserved.
func NormalizeValue(value string) string {
	return strings.TrimSpace(value)
}

// LowerValues returns a copy of b with every value lower-cased.
func LowerValues(b *Block) *Block {
	out := NewBlock()
	for _, k := range b.Keys() {
		out.Set(k, strings.ToLower(b.Value(k)))
	}
	return out
}

// Lines returns the trimmed, non-empty lines of text. It is meant for
// `select -ExpandProperty` style output where each line is one value.
func Lines(text string) []string {
	var out []string
	for _, l := range splitLines(text) {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.Split(text, "\n")
}

func indentOf(line string) int {
	return len(line) - len(strings.TrimLeftFunc(line, unicode.IsSpace))
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r'
}

// isNoise reports whether line is an underline rule such as `----  ----`.
func isNoise(line string) bool {
	seen := false
	for _, r := range line {
		switch {
		case r == '-' || r == '=':
			seen = true
		case unicode.IsSpace(r):
		default:
			return false
		}
	}
	return seen
}
