// Package remote runs PowerShell on a Hyper-V host.
//
// A [Connection] is the transport: it runs one command and reports its exit
// code and output. [PowerShell] layers exit code checking, working
// directories, logging and tracing on top of any connection.
package remote

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

//go:generate go run go.uber.org/mock/mockgen -source=remote.go -package=mock -destination=mock/connection.go

// Connection executes commands on a Windows host.
type Connection interface {
	// ExecutePowerShell runs command in a PowerShell session and waits for it
	// to finish. A non-zero exit code is reported in the result, not as an
	// error.
	ExecutePowerShell(ctx context.Context, command string) (*Result, error)
	// StartProcess launches command through the host's default shell and
	// returns without waiting for it.
	StartProcess(ctx context.Context, command string) error
	// Address is the address of the host, without port.
	Address() string
	Close() error
}

// Result is a completed command.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// ExecutionError is returned when a command exits with an unexpected code.
type ExecutionError struct {
	Command  string
	ExitCode int
	Stdout   string
	Stderr   string
}

var _ error = &ExecutionError{}

func (e *ExecutionError) Error() string {
	s := fmt.Sprintf("command %q exited with code %d", e.Command, e.ExitCode)
	if msg := strings.TrimSpace(e.Stderr); msg != "" {
		s += ": " + msg
	}
	return s
}

// ExitCodeOf returns the exit code carried by err, if it is an ExecutionError.
func ExitCodeOf(err error) (int, bool) {
	var ee *ExecutionError
	if !errors.As(err, &ee) {
		return 0, false
	}
	return ee.ExitCode, true
}
