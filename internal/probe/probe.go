// Package probe tests upstream reachability. Every prober returns a plain
// boolean and is bounded by its timeout so it cannot stall the caller.
package probe

import (
	"context"
	"fmt"
	"net"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Prober performs one reachability test.
type Prober interface {
	// Check returns true if the target answered within the timeout.
	Check(ctx context.Context) bool
}

// Probe methods accepted by New.
const (
	MethodICMP = "icmp"
	MethodExec = "exec"
	MethodTCP  = "tcp"
)

// DefaultHost is Google's public DNS resolver.
const DefaultHost = "8.8.8.8"

// DefaultTimeout bounds a single check.
const DefaultTimeout = time.Second

// New builds the prober for the given method.
func New(method, host string, timeout time.Duration, logger zerolog.Logger) (Prober, error) {
	switch method {
	case MethodICMP:
		return &ICMPProber{Host: host, Timeout: timeout, Logger: logger}, nil
	case MethodExec:
		return &ExecProber{Command: PingCommand(host, timeout), Timeout: timeout, Logger: logger}, nil
	case MethodTCP:
		return &TCPProber{Host: host, Timeout: timeout, Logger: logger}, nil
	}
	return nil, fmt.Errorf("unknown probe method %q", method)
}

// withTimeout trims ctx to at most d.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = DefaultTimeout
	}
	return context.WithTimeout(ctx, d)
}

// PingCommand returns the system ping invocation for a single echo.
func PingCommand(host string, timeout time.Duration) []string {
	secs := int(timeout.Round(time.Second) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return []string{"ping", "-c", "1", "-W", strconv.Itoa(secs), host}
}

// ExecProber runs an external command; exit status 0 means reachable.
type ExecProber struct {
	Command []string
	Timeout time.Duration
	Logger  zerolog.Logger
}

// Check runs the command and reports whether it exited cleanly.
func (p *ExecProber) Check(ctx context.Context) bool {
	if len(p.Command) == 0 {
		return false
	}
	ctx, cancel := withTimeout(ctx, p.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, p.Command[0], p.Command[1:]...)
	if err := cmd.Run(); err != nil {
		p.Logger.Debug().Err(err).Str("cmd", strings.Join(p.Command, " ")).Msg("probe command failed")
		return false
	}
	return true
}

// TCPProber dials the target; a completed handshake means reachable.
// Hosts without a port are dialled on 53 (DNS).
type TCPProber struct {
	Host    string
	Timeout time.Duration
	Logger  zerolog.Logger
}

// Check dials the target once.
func (p *TCPProber) Check(ctx context.Context) bool {
	ctx, cancel := withTimeout(ctx, p.Timeout)
	defer cancel()

	address := strings.TrimSpace(p.Host)
	if address == "" {
		address = DefaultHost
	}
	if _, _, err := net.SplitHostPort(address); err != nil {
		address = net.JoinHostPort(address, "53")
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", address)
	if err != nil {
		p.Logger.Debug().Err(err).Str("addr", address).Msg("probe dial failed")
		return false
	}
	_ = conn.Close()
	return true
}
