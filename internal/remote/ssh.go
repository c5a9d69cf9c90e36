package remote

import (
	"bytes"
	"context"
	"net"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/crypto/ssh"

	"github.com/Microsoft/hvctl/internal/log"
	"github.com/Microsoft/hvctl/internal/logfields"
)

// DefaultSSHPort is used when SSHConfig.Port is zero.
const DefaultSSHPort = 22

// SSHConfig describes how to reach a host running the OpenSSH server.
type SSHConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	// KeyFile is a PEM private key. It is tried before Password.
	KeyFile string
	// HostKeyCallback verifies the server. Nil accepts any host key.
	HostKeyCallback ssh.HostKeyCallback
	// Timeout bounds the TCP connect and handshake.
	Timeout time.Duration
}

// SSHConnection runs commands over an SSH client. Each command gets its own
// session.
type SSHConnection struct {
	host   string
	mu     sync.Mutex
	client *ssh.Client
}

var _ Connection = &SSHConnection{}

// DialSSH connects to the host described by cfg.
func DialSSH(ctx context.Context, cfg SSHConfig) (*SSHConnection, error) {
	auth, err := authMethods(cfg)
	if err != nil {
		return nil, err
	}
	hostKey := cfg.HostKeyCallback
	if hostKey == nil {
		hostKey = ssh.InsecureIgnoreHostKey() //nolint:gosec
	}
	port := cfg.Port
	if port == 0 {
		port = DefaultSSHPort
	}
	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(port))

	d := net.Dialer{Timeout: cfg.Timeout}
	nc, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to dial %s", addr)
	}
	c, chans, reqs, err := ssh.NewClientConn(nc, addr, &ssh.ClientConfig{
		User:            cfg.User,
		Auth:            auth,
		HostKeyCallback: hostKey,
		Timeout:         cfg.Timeout,
	})
	if err != nil {
		nc.Close()
		return nil, errors.Wrapf(err, "ssh handshake with %s failed", addr)
	}
	log.G(ctx).WithField(logfields.Host, addr).Debug("ssh connection established")
	return &SSHConnection{host: cfg.Host, client: ssh.NewClient(c, chans, reqs)}, nil
}

func authMethods(cfg SSHConfig) ([]ssh.AuthMethod, error) {
	var auth []ssh.AuthMethod
	if cfg.KeyFile != "" {
		b, err := os.ReadFile(cfg.KeyFile)
		if err != nil {
			return nil, errors.Wrap(err, "failed to read ssh key")
		}
		signer, err := ssh.ParsePrivateKey(b)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse ssh key %s", cfg.KeyFile)
		}
		auth = append(auth, ssh.PublicKeys(signer))
	}
	if cfg.Password != "" {
		auth = append(auth, ssh.Password(cfg.Password))
	}
	if len(auth) == 0 {
		return nil, errors.New("no ssh key file or password configured")
	}
	return auth, nil
}

func (c *SSHConnection) Address() string { return c.host }

func (c *SSHConnection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client == nil {
		return nil
	}
	err := c.client.Close()
	c.client = nil
	return err
}

func (c *SSHConnection) session() (*ssh.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client == nil {
		return nil, errors.New("ssh connection is closed")
	}
	s, err := c.client.NewSession()
	if err != nil {
		return nil, errors.Wrap(err, "failed to open ssh session")
	}
	return s, nil
}

func (c *SSHConnection) ExecutePowerShell(ctx context.Context, command string) (*Result, error) {
	cmdline, err := powerShellCommandLine(command)
	if err != nil {
		return nil, err
	}
	s, err := c.session()
	if err != nil {
		return nil, err
	}
	defer s.Close()

	var stdout, stderr bytes.Buffer
	s.Stdout = &stdout
	s.Stderr = &stderr

	done := make(chan error, 1)
	go func() { done <- s.Run(cmdline) }()

	select {
	case <-ctx.Done():
		_ = s.Signal(ssh.SIGKILL)
		return nil, ctx.Err()
	case err = <-done:
	}

	res := &Result{Stdout: stdout.String(), Stderr: stderr.String()}
	var exitErr *ssh.ExitError
	switch {
	case err == nil:
	case errors.As(err, &exitErr):
		res.ExitCode = exitErr.ExitStatus()
	default:
		return nil, err
	}
	return res, nil
}

func (c *SSHConnection) StartProcess(ctx context.Context, command string) error {
	s, err := c.session()
	if err != nil {
		return err
	}
	if err := s.Start(command); err != nil {
		s.Close()
		return errors.Wrap(err, "failed to start remote process")
	}
	go func() {
		if err := s.Wait(); err != nil {
			log.G(ctx).WithError(err).WithField(logfields.Command, command).Debug("remote process exited")
		}
		s.Close()
	}()
	return nil
}
