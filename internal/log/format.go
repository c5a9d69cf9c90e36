package log

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// TimeFormat is RFC3339 with a fixed number of fractional digits so log lines
// line up.
const TimeFormat = "2006-01-02T15:04:05.000000000Z07:00"

func FormatTime(t time.Time) string {
	return t.Format(TimeFormat)
}

// Format formats v as a single line of JSON without HTML escaping.
// Failures are logged through ctx and yield "".
//
// This is intended primarily for span attributes.
func Format(ctx context.Context, v interface{}) string {
	b, err := encode(v)
	if err != nil {
		G(ctx).WithError(err).Warning("could not format value")
		return ""
	}
	return string(b)
}

func encode(v interface{}) ([]byte, error) {
	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "")

	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("could not marshall %T to JSON for logging: %w", v, err)
	}
	// encoder.Encode appends a newline to the end
	return bytes.TrimSpace(buf.Bytes()), nil
}
