package remote

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"go.opencensus.io/trace"

	"github.com/Microsoft/hvctl/internal/log"
	"github.com/Microsoft/hvctl/internal/logfields"
	"github.com/Microsoft/hvctl/internal/oc"
)

type execConfig struct {
	dir     string
	codes   []int
	anyCode bool
}

// ExecOpt configures a single PowerShell invocation.
type ExecOpt func(*execConfig)

// WithDir runs the command with dir as the current location.
func WithDir(dir string) ExecOpt {
	return func(c *execConfig) {
		c.dir = dir
	}
}

// WithExpectedReturnCodes replaces the set of exit codes treated as success.
// The default is {0}.
func WithExpectedReturnCodes(codes ...int) ExecOpt {
	return func(c *execConfig) {
		c.codes = codes
	}
}

// WithAnyReturnCode disables exit code checking. Callers inspect
// [Result.ExitCode] themselves.
func WithAnyReturnCode() ExecOpt {
	return func(c *execConfig) {
		c.anyCode = true
	}
}

// PowerShell runs command on conn. An exit code outside the expected set is
// returned as an [*ExecutionError] together with the result.
func PowerShell(ctx context.Context, conn Connection, command string, opts ...ExecOpt) (_ *Result, err error) {
	cfg := execConfig{codes: []int{0}}
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.dir != "" {
		command = "Set-Location -LiteralPath " + Quote(cfg.dir) + "; " + command
	}

	ctx, span := oc.StartSpan(ctx, "remote::PowerShell")
	defer span.End()
	defer func() { oc.SetSpanStatus(span, err) }()
	span.AddAttributes(
		trace.StringAttribute(logfields.Host, conn.Address()),
		trace.StringAttribute(logfields.Command, command))

	entry := log.G(ctx).WithFields(logrus.Fields{
		logfields.Host:    conn.Address(),
		logfields.Command: command,
	})
	entry.Debug("executing powershell command")

	res, err := conn.ExecutePowerShell(ctx, command)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to execute %q on %s", command, conn.Address())
	}
	span.AddAttributes(trace.Int64Attribute(logfields.ExitCode, int64(res.ExitCode)))
	entry.WithFields(logrus.Fields{
		logfields.ExitCode: res.ExitCode,
		logfields.Stdout:   res.Stdout,
		logfields.Stderr:   res.Stderr,
	}).Trace("powershell command completed")

	if !cfg.anyCode && !lo.Contains(cfg.codes, res.ExitCode) {
		return res, &ExecutionError{
			Command:  command,
			ExitCode: res.ExitCode,
			Stdout:   res.Stdout,
			Stderr:   res.Stderr,
		}
	}
	return res, nil
}

// Output is PowerShell returning only stdout.
func Output(ctx context.Context, conn Connection, command string, opts ...ExecOpt) (string, error) {
	res, err := PowerShell(ctx, conn, command, opts...)
	if err != nil {
		return "", err
	}
	return res.Stdout, nil
}

// Start launches command on conn without waiting for it to complete.
func Start(ctx context.Context, conn Connection, command string) (err error) {
	ctx, span := oc.StartSpan(ctx, "remote::Start")
	defer span.End()
	defer func() { oc.SetSpanStatus(span, err) }()
	span.AddAttributes(
		trace.StringAttribute(logfields.Host, conn.Address()),
		trace.StringAttribute(logfields.Command, command))

	log.G(ctx).WithFields(logrus.Fields{
		logfields.Host:    conn.Address(),
		logfields.Command: command,
	}).Debug("starting process")

	if err := conn.StartProcess(ctx, command); err != nil {
		return errors.Wrapf(err, "failed to start %q on %s", command, conn.Address())
	}
	return nil
}

// Quote returns s as a single-quoted PowerShell string literal.
func Quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
