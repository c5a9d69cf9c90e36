package remote

import (
	"bytes"
	"context"
	"os/exec"

	"github.com/mattn/go-shellwords"
	"github.com/pkg/errors"

	"github.com/Microsoft/hvctl/internal/log"
	"github.com/Microsoft/hvctl/internal/logfields"
)

// DefaultShell is the PowerShell executable used by LocalConnection.
const DefaultShell = "powershell.exe"

// LocalConnection runs commands on the machine the process runs on.
type LocalConnection struct {
	// Shell is the PowerShell executable. Defaults to DefaultShell.
	Shell string
}

var _ Connection = &LocalConnection{}

// NewLocal returns a connection to the local host using shell, or
// DefaultShell if shell is empty.
func NewLocal(shell string) *LocalConnection {
	if shell == "" {
		shell = DefaultShell
	}
	return &LocalConnection{Shell: shell}
}

func (*LocalConnection) Address() string { return "localhost" }

func (*LocalConnection) Close() error { return nil }

func (c *LocalConnection) ExecutePowerShell(ctx context.Context, command string) (*Result, error) {
	enc, err := EncodeCommand(command)
	if err != nil {
		return nil, err
	}
	cmd := exec.CommandContext(ctx, c.Shell, "-NonInteractive", "-NoProfile", "-ExecutionPolicy", "Bypass", "-EncodedCommand", enc)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err = cmd.Run()
	res := &Result{Stdout: stdout.String(), Stderr: stderr.String()}
	var exitErr *exec.ExitError
	switch {
	case err == nil:
	case errors.As(err, &exitErr) && ctx.Err() == nil:
		res.ExitCode = exitErr.ExitCode()
	case ctx.Err() != nil:
		return nil, ctx.Err()
	default:
		return nil, errors.Wrapf(err, "failed to run %s", c.Shell)
	}
	return res, nil
}

// StartProcess splits command into words the way a shell would and starts
// the program directly.
func (c *LocalConnection) StartProcess(ctx context.Context, command string) error {
	args, err := shellwords.Parse(command)
	if err != nil {
		return errors.Wrapf(err, "failed to parse command line %q", command)
	}
	if len(args) == 0 {
		return errors.New("empty command line")
	}
	cmd := exec.Command(args[0], args[1:]...)
	if err := cmd.Start(); err != nil {
		return errors.Wrapf(err, "failed to start %s", args[0])
	}
	go func() {
		if err := cmd.Wait(); err != nil {
			log.G(ctx).WithError(err).WithField(logfields.Command, command).Debug("process exited")
		}
	}()
	return nil
}
