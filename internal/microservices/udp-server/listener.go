package udp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"blackjack/internal/protocol"
)

// Announcement is a decoded Offer plus where it came from. The sender IP is
// the game server's address.
type Announcement struct {
	IP         net.IP
	Port       uint16
	ServerName string
	ReceivedAt time.Time
}

// GameAddr is the TCP address to dial.
func (a Announcement) GameAddr() string {
	return net.JoinHostPort(a.IP.String(), strconv.Itoa(int(a.Port)))
}

// Datagram is one raw packet seen on the discovery port.
type Datagram struct {
	From       net.Addr
	Data       []byte
	ReceivedAt time.Time
}

// Listener receives offers on the discovery port. Several listeners on one host
// can share the port.
type Listener struct {
	conn net.PacketConn
	buf  []byte
}

// Listen binds the discovery port. Port 0 picks a free one, which LocalPort
// reports.
func Listen(ctx context.Context, port int) (*Listener, error) {
	lc := net.ListenConfig{Control: reuseControl}
	conn, err := lc.ListenPacket(ctx, "udp4", ":"+strconv.Itoa(port))
	if err != nil {
		return nil, fmt.Errorf("failed to listen on UDP: %w", err)
	}
	return &Listener{conn: conn, buf: make([]byte, 2048)}, nil
}

func (l *Listener) LocalPort() int {
	if a, ok := l.conn.LocalAddr().(*net.UDPAddr); ok {
		return a.Port
	}
	return 0
}

func (l *Listener) Close() error { return l.conn.Close() }

// Next returns the next valid Offer. Anything that does not decode as an
// Offer is noise and skipped.
func (l *Listener) Next(ctx context.Context) (Announcement, error) {
	for {
		d, err := l.read(ctx)
		if err != nil {
			return Announcement{}, err
		}
		ann, ok := ParseAnnouncement(d)
		if ok {
			return ann, nil
		}
	}
}

// Raw hands every datagram to fn until ctx is done or fn returns false.
func (l *Listener) Raw(ctx context.Context, fn func(Datagram) bool) error {
	for {
		d, err := l.read(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		}
		if !fn(d) {
			return nil
		}
	}
}

// ParseAnnouncement decodes d as an Offer.
func ParseAnnouncement(d Datagram) (Announcement, bool) {
	msg, err := protocol.Decode(d.Data)
	if err != nil {
		return Announcement{}, false
	}
	offer, ok := msg.(protocol.Offer)
	if !ok {
		return Announcement{}, false
	}
	ann := Announcement{
		Port:       offer.Port,
		ServerName: offer.ServerName,
		ReceivedAt: d.ReceivedAt,
	}
	if ua, ok := d.From.(*net.UDPAddr); ok {
		ann.IP = ua.IP
	}
	return ann, true
}

func (l *Listener) read(ctx context.Context) (Datagram, error) {
	if err := ctx.Err(); err != nil {
		return Datagram{}, err
	}
	if err := l.conn.SetReadDeadline(time.Time{}); err != nil {
		return Datagram{}, err
	}
	// unblock ReadFrom when ctx ends; registered after the reset so a cancel
	// in between cannot be overwritten
	stop := context.AfterFunc(ctx, func() {
		_ = l.conn.SetReadDeadline(time.Unix(1, 0))
	})
	defer stop()

	n, from, err := l.conn.ReadFrom(l.buf)
	if err != nil {
		if ctx.Err() != nil {
			return Datagram{}, ctx.Err()
		}
		return Datagram{}, fmt.Errorf("read discovery datagram: %w", err)
	}
	data := make([]byte, n)
	copy(data, l.buf[:n])
	return Datagram{From: from, Data: data, ReceivedAt: time.Now()}, nil
}
