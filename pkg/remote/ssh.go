package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/ssh"
)

// DefaultConnectionTimeout bounds TCP connect plus SSH handshake when the caller sets no deadline.
const DefaultConnectionTimeout = 10 * time.Second

// SSHDialer opens SSH sessions with password and keyboard-interactive authentication.
type SSHDialer struct {
	ConnectionTimeout time.Duration
	Logger            zerolog.Logger
}

// NewSSHDialer creates an SSHDialer.
func NewSSHDialer(connectionTimeout time.Duration, logger zerolog.Logger) *SSHDialer {
	if connectionTimeout == 0 {
		connectionTimeout = DefaultConnectionTimeout
	}
	return &SSHDialer{
		ConnectionTimeout: connectionTimeout,
		Logger:            logger,
	}
}

func (d *SSHDialer) clientConfig(target Target) *ssh.ClientConfig {
	// Some OLT CLIs only offer keyboard-interactive; answer every question with the password.
	keyboardInteractive := ssh.KeyboardInteractive(func(user, instruction string, questions []string, echos []bool) ([]string, error) {
		answers := make([]string, len(questions))
		for i := range questions {
			answers[i] = target.Password
		}
		return answers, nil
	})

	return &ssh.ClientConfig{
		User: target.User,
		Auth: []ssh.AuthMethod{
			ssh.Password(target.Password),
			keyboardInteractive,
		},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), //nolint:gosec // NAT-forwarded ports change host keys per device
		Timeout:         d.ConnectionTimeout,
	}
}

// Dial connects and authenticates to target.
func (d *SSHDialer) Dial(ctx context.Context, target Target) (Session, error) {
	addr := target.Address()

	netDialer := net.Dialer{Timeout: d.ConnectionTimeout}
	conn, err := netDialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, wrapCtx(ctx, ErrConnect, err)
	}

	// Bound the handshake by the connection timeout and the caller's deadline.
	deadline := time.Now().Add(d.ConnectionTimeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	_ = conn.SetDeadline(deadline)
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })

	c, chans, reqs, err := ssh.NewClientConn(conn, addr, d.clientConfig(target))
	stop()
	if err != nil {
		_ = conn.Close()
		if strings.Contains(err.Error(), "unable to authenticate") {
			return nil, fmt.Errorf("%w: %v", ErrAuth, err)
		}
		if ctxDeadline, ok := ctx.Deadline(); ok && !time.Now().Before(ctxDeadline) {
			return nil, fmt.Errorf("%w: %w", ErrConnect, context.DeadlineExceeded)
		}
		return nil, wrapCtx(ctx, ErrConnect, err)
	}
	_ = conn.SetDeadline(time.Time{})

	client := ssh.NewClient(c, chans, reqs)
	d.Logger.Debug().Str("addr", addr).Str("user", target.User).Str("mode", string(target.Mode)).Msg("SSH session established")

	if target.Mode == ModeInteractive {
		return &expectSession{client: client, vendor: target.Vendor}, nil
	}
	return &execSession{client: client}, nil
}

// execSession runs one command per SSH exec channel on a shared client.
type execSession struct {
	client *ssh.Client
}

func (s *execSession) Run(ctx context.Context, command string) (string, error) {
	session, err := s.client.NewSession()
	if err != nil {
		return "", wrapCtx(ctx, ErrSession, err)
	}
	defer session.Close()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	stop := context.AfterFunc(ctx, func() { _ = s.client.Close() })
	defer stop()

	err = session.Run(command)
	output := stdout.String() + stderr.String()
	if err != nil {
		// A non-zero or missing exit status still carries device output.
		var exitErr *ssh.ExitError
		var missingErr *ssh.ExitMissingError
		if ctx.Err() == nil && (errors.As(err, &exitErr) || errors.As(err, &missingErr)) {
			return output, nil
		}
		return output, wrapCtx(ctx, ErrSession, err)
	}
	return output, nil
}

func (s *execSession) Close() error {
	return s.client.Close()
}

// wrapCtx wraps err with class, preferring the context error when the context is done.
func wrapCtx(ctx context.Context, class error, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%w: %w", class, ctxErr)
	}
	return fmt.Errorf("%w: %v", class, err)
}
