// Package report extracts individual fields from the fixed text reports
// printed by vfpctrl, vmswitch, WMI disk queries and ipconfig.
//
// Each extractor is narrow: it looks for the handful of lines the caller
// needs and ignores everything else.
package report

import (
	"fmt"
	"strings"

	"github.com/containerd/errdefs"
)

// NotFoundError is returned when a report does not contain the requested
// record. Keys names the lookup values that failed so callers can produce an
// actionable message.
type NotFoundError struct {
	What string
	Keys []string
	// Output is the text that was searched.
	Output string
}

var _ error = &NotFoundError{}

func (e *NotFoundError) Error() string {
	s := e.What + " was not found"
	if len(e.Keys) > 0 {
		s += " for " + strings.Join(e.Keys, " and ")
	}
	if e.Output != "" {
		s += fmt.Sprintf(" in output: %s", e.Output)
	}
	return s
}

func (e *NotFoundError) Unwrap() error { return errdefs.ErrNotFound }

func notFound(what, output string, keys ...string) error {
	return &NotFoundError{What: what, Keys: keys, Output: output}
}
