// Package remote opens short-lived management sessions to routers and OLTs.
//
// A Dialer connects to a Target and returns a Session; every Session.Run is
// bounded by the context passed to it and a context expiry tears down the
// underlying connection.
package remote

import (
	"context"
	"errors"
	"net"
	"strconv"
	"strings"
)

// Mode selects how commands are delivered to the remote CLI.
type Mode string

const (
	// ModeExec runs each command on its own SSH exec channel.
	ModeExec Mode = "exec"
	// ModeInteractive drives a PTY shell and waits for the vendor prompt.
	ModeInteractive Mode = "interactive"
)

// ParseMode maps a configuration value to a Mode. Empty selects ModeExec.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeExec:
		return ModeExec, nil
	case ModeInteractive:
		return ModeInteractive, nil
	}
	return "", errors.New("unknown session mode: " + s)
}

// Classification errors; transport failures wrap exactly one of these.
var (
	ErrConnect = errors.New("connect failed")
	ErrAuth    = errors.New("authentication failed")
	ErrSession = errors.New("session failed")
)

// Target identifies a remote management endpoint.
type Target struct {
	Host     string
	Port     int
	User     string
	Password string
	Mode     Mode
	Vendor   string
}

// Address returns host:port.
func (t Target) Address() string {
	return net.JoinHostPort(t.Host, strconv.Itoa(t.Port))
}

// Session is an authenticated command channel.
type Session interface {
	// Run executes command and returns standard output followed by standard error.
	Run(ctx context.Context, command string) (string, error)
	Close() error
}

// Dialer opens sessions.
type Dialer interface {
	Dial(ctx context.Context, target Target) (Session, error)
}
