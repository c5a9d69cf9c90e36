package report

import (
	"strings"
	"time"

	"github.com/Microsoft/hvctl/pkg/psparse"
)

// LastWriteTimeLayout is the en-US layout PowerShell uses for file times.
const LastWriteTimeLayout = "1/2/2006 3:04:05 PM"

// FileMetadata is the subset of `Get-Item <path> | fl` used to tell whether
// two copies of an image are the same.
type FileMetadata struct {
	Length        string `json:"length"`
	LastWriteTime string `json:"lwt"`
}

// ModTime parses LastWriteTime.
func (m FileMetadata) ModTime() (time.Time, error) {
	return time.Parse(LastWriteTimeLayout, m.LastWriteTime)
}

// ParseFileMetadata extracts the length and last write time of a file from
// `Get-Item | fl` output. The Length property is sometimes printed with its
// script block as the label, and narrow consoles wrap the separator and the
// value onto lines of their own; all of these layouts are accepted.
func ParseFileMetadata(text string) (FileMetadata, error) {
	var md FileMetadata
	for _, b := range psparse.Parse(unwrapSeparators(text)) {
		for _, k := range b.Keys() {
			switch {
			case md.Length == "" && (k == "length" || strings.HasSuffix(k, ".length")):
				md.Length = b.Value(k)
			case md.LastWriteTime == "" && k == "lastwritetime":
				md.LastWriteTime = b.Value(k)
			}
		}
	}
	var missing []string
	if md.Length == "" {
		missing = append(missing, "Length")
	}
	if md.LastWriteTime == "" {
		missing = append(missing, "LastWriteTime")
	}
	if len(missing) > 0 {
		return FileMetadata{}, notFound("file metadata", text, missing...)
	}
	return md, nil
}

// unwrapSeparators joins `label` / `:` / `value` line triples back into one
// field line and drops indentation, which is unreliable once lines wrap.
func unwrapSeparators(text string) string {
	var lines []string
	for _, l := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		lines = append(lines, strings.TrimSpace(l))
	}
	out := make([]string, 0, len(lines))
	for i := 0; i < len(lines); i++ {
		if lines[i] == ":" && len(out) > 0 && out[len(out)-1] != "" && i+1 < len(lines) {
			out[len(out)-1] += " : " + lines[i+1]
			i++
			continue
		}
		out = append(out, lines[i])
	}
	return strings.Join(out, "\n")
}
