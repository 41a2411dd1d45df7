package remote

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"", ModeExec, false},
		{"exec", ModeExec, false},
		{" Interactive ", ModeInteractive, false},
		{"telnet", "", true},
	}

	for _, tt := range tests {
		got, err := ParseMode(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		assert.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestTarget_Address(t *testing.T) {
	assert.Equal(t, "203.0.113.1:2201", Target{Host: "203.0.113.1", Port: 2201}.Address())
	assert.Equal(t, "[2001:db8::1]:22", Target{Host: "2001:db8::1", Port: 22}.Address())
}

// closedPort returns a localhost port with nothing listening on it.
func closedPort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())
	return port
}

func TestSSHDialer_Dial_ConnectionRefused(t *testing.T) {
	d := NewSSHDialer(time.Second, zerolog.Nop())

	_, err := d.Dial(context.Background(), Target{Host: "127.0.0.1", Port: closedPort(t), User: "admin"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConnect))
}

func TestSSHDialer_Dial_HandshakeTimeout(t *testing.T) {
	// A listener that accepts but never speaks SSH stalls the handshake.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			defer conn.Close()
		}
	}()

	d := NewSSHDialer(5*time.Second, zerolog.Nop())
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err = d.Dial(ctx, Target{Host: "127.0.0.1", Port: ln.Addr().(*net.TCPAddr).Port, User: "admin"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConnect))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Less(t, time.Since(start), 3*time.Second)
}

func TestPromptFor(t *testing.T) {
	assert.Same(t, VendorPrompts["huawei"], PromptFor("HUAWEI"))
	assert.Same(t, DefaultPromptPattern, PromptFor("acme"))

	assert.True(t, PromptFor("huawei").MatchString("MA5800-X7#"))
	assert.True(t, PromptFor("huawei").MatchString("<MA5800>"))
	assert.True(t, PromptFor("zte").MatchString("C300(config)#"))
	assert.True(t, PromptFor("nokia").MatchString("typ:isadmin>#"))
}

func TestCleanOutput(t *testing.T) {
	raw := "display interface brief\r\n" +
		"PHY: Physical\r\n" +
		"GigabitEthernet0/0/0  up  up\r\n" +
		"MA5800-X7#"

	out := CleanOutput(raw, "display interface brief", PromptFor("huawei"))

	assert.Equal(t, "PHY: Physical\nGigabitEthernet0/0/0  up  up", out)
}
