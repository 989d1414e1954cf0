package probe

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
)

// protocolICMP is the IANA protocol number for ICMP over IPv4.
const protocolICMP = 1

var echoPayload = []byte("net-watchdog")

// ICMPProber sends a single ICMP echo request and waits for the reply.
// It uses an unprivileged datagram socket where the kernel allows it and
// falls back to a raw socket otherwise.
type ICMPProber struct {
	Host    string
	Timeout time.Duration
	Logger  zerolog.Logger

	seq int
}

// Check sends one echo request.
func (p *ICMPProber) Check(ctx context.Context) bool {
	ctx, cancel := withTimeout(ctx, p.Timeout)
	defer cancel()

	if err := p.ping(ctx); err != nil {
		p.Logger.Debug().Err(err).Str("host", p.Host).Msg("icmp probe failed")
		return false
	}
	return true
}

func (p *ICMPProber) ping(ctx context.Context) error {
	host := p.Host
	if host == "" {
		host = DefaultHost
	}
	var r net.Resolver
	ips, err := r.LookupIP(ctx, "ip4", host)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", host, err)
	}
	if len(ips) == 0 {
		return fmt.Errorf("resolve %s: no IPv4 address", host)
	}
	ip := ips[0]

	conn, dst, err := listen(ip)
	if err != nil {
		return err
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			return fmt.Errorf("set deadline: %w", err)
		}
	}

	p.seq = (p.seq + 1) & 0xffff
	msg := icmp.Message{
		Type: ipv4.ICMPTypeEcho,
		Code: 0,
		Body: &icmp.Echo{
			ID:   os.Getpid() & 0xffff,
			Seq:  p.seq,
			Data: echoPayload,
		},
	}
	wb, err := msg.Marshal(nil)
	if err != nil {
		return fmt.Errorf("marshal echo: %w", err)
	}
	if _, err := conn.WriteTo(wb, dst); err != nil {
		return fmt.Errorf("send echo: %w", err)
	}

	rb := make([]byte, 1500)
	for {
		n, peer, err := conn.ReadFrom(rb)
		if err != nil {
			return fmt.Errorf("read reply: %w", err)
		}
		if !sameIP(peer, ip) {
			continue
		}
		if isEchoReply(rb[:n], p.seq) {
			return nil
		}
	}
}

// listen opens an ICMP socket for ip and returns the matching destination
// address type.
func listen(ip net.IP) (*icmp.PacketConn, net.Addr, error) {
	conn, err := icmp.ListenPacket("udp4", "0.0.0.0")
	if err == nil {
		return conn, &net.UDPAddr{IP: ip}, nil
	}
	raw, rawErr := icmp.ListenPacket("ip4:icmp", "0.0.0.0")
	if rawErr != nil {
		return nil, nil, fmt.Errorf("listen icmp: %w", errors.Join(err, rawErr))
	}
	return raw, &net.IPAddr{IP: ip}, nil
}

// isEchoReply reports whether b is an echo reply carrying seq. The
// identifier is not compared: datagram sockets have it rewritten by the kernel.
func isEchoReply(b []byte, seq int) bool {
	m, err := icmp.ParseMessage(protocolICMP, b)
	if err != nil {
		return false
	}
	if m.Type != ipv4.ICMPTypeEchoReply {
		return false
	}
	echo, ok := m.Body.(*icmp.Echo)
	if !ok {
		return false
	}
	return echo.Seq == seq
}

func sameIP(addr net.Addr, ip net.IP) bool {
	switch a := addr.(type) {
	case *net.UDPAddr:
		return a.IP.Equal(ip)
	case *net.IPAddr:
		return a.IP.Equal(ip)
	}
	return false
}
