// Package winpath manipulates Windows paths independently of the OS this
// module is built for. path/filepath only knows the local separator.
package winpath

import (
	"strings"
)

const sep = `\`

// Join joins elements with backslashes, collapsing repeated separators.
// Forward slashes are treated as separators. A leading `\\` (UNC prefix) is
// kept.
func Join(elem ...string) string {
	var parts []string
	unc := false
	for i, e := range elem {
		e = strings.ReplaceAll(e, "/", sep)
		if i == 0 && strings.HasPrefix(e, `\\`) {
			unc = true
		}
		for _, p := range strings.Split(e, sep) {
			if p != "" {
				parts = append(parts, p)
			}
		}
	}
	out := strings.Join(parts, sep)
	switch {
	case unc:
		out = `\\` + out
	case len(elem) > 0 && strings.HasPrefix(strings.ReplaceAll(elem[0], "/", sep), sep):
		out = sep + out
	}
	return out
}

// Base returns the last element of p.
func Base(p string) string {
	p = strings.TrimRight(strings.ReplaceAll(p, "/", sep), sep)
	if i := strings.LastIndex(p, sep); i >= 0 {
		return p[i+1:]
	}
	return p
}

// Dir returns all but the last element of p.
func Dir(p string) string {
	p = strings.TrimRight(strings.ReplaceAll(p, "/", sep), sep)
	if i := strings.LastIndex(p, sep); i >= 0 {
		d := p[:i]
		if strings.HasSuffix(d, ":") {
			d += sep
		}
		return d
	}
	return ""
}

// Ext returns the extension of the last element of p, including the dot.
func Ext(p string) string {
	b := Base(p)
	if i := strings.LastIndexByte(b, '.'); i >= 0 {
		return b[i:]
	}
	return ""
}

// TrimExt returns the last element of p without its extension.
func TrimExt(p string) string {
	b := Base(p)
	return strings.TrimSuffix(b, Ext(b))
}
