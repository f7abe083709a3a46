package client

// udp_client.go = finds game servers through their offer broadcasts.

import (
	"context"
	"fmt"

	udp "blackjack/internal/microservices/udp-server"
)

type DiscoveryClient struct {
	port int
}

func NewDiscoveryClient(port int) *DiscoveryClient {
	if port == 0 {
		port = udp.DefaultDiscoveryPort
	}
	return &DiscoveryClient{port: port}
}

// Discover blocks until the first valid offer arrives or ctx ends.
func (d *DiscoveryClient) Discover(ctx context.Context) (udp.Announcement, error) {
	l, err := udp.Listen(ctx, d.port)
	if err != nil {
		return udp.Announcement{}, err
	}
	defer l.Close()

	ann, err := l.Next(ctx)
	if err != nil {
		return udp.Announcement{}, fmt.Errorf("waiting for offer: %w", err)
	}
	return ann, nil
}

// Sniff reports every datagram on the discovery port until ctx ends.
func (d *DiscoveryClient) Sniff(ctx context.Context, fn func(udp.Datagram)) error {
	l, err := udp.Listen(ctx, d.port)
	if err != nil {
		return err
	}
	defer l.Close()

	return l.Raw(ctx, func(dg udp.Datagram) bool {
		fn(dg)
		return true
	})
}
