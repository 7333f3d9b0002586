package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	"lanspeed/internal/config"
	"lanspeed/internal/errors"
	"lanspeed/internal/protocol"
)

// pollInterval bounds how long the offer listener blocks between context
// cancellation checks.
const pollInterval = 500 * time.Millisecond

// Endpoint identifies a discovered server. Immutable once returned; a new
// discovery round produces a new Endpoint.
type Endpoint struct {
	IP      net.IP
	UDPPort uint16
	TCPPort uint16
}

func (e Endpoint) TCPAddr() string {
	return net.JoinHostPort(e.IP.String(), strconv.Itoa(int(e.TCPPort)))
}

func (e Endpoint) UDPAddr() string {
	return net.JoinHostPort(e.IP.String(), strconv.Itoa(int(e.UDPPort)))
}

func (e Endpoint) String() string {
	return fmt.Sprintf("%s (udp:%d tcp:%d)", e.IP, e.UDPPort, e.TCPPort)
}

// Announcer periodically broadcasts an Offer carrying the server's live
// transfer ports. It runs until its context is cancelled.
type Announcer struct {
	UDPPort       uint16
	TCPPort       uint16
	DiscoveryPort int
	Interval      time.Duration
}

// Run broadcasts offers until ctx is cancelled. The broadcast address is
// derived once at startup; an address change mid-run requires a restart.
func (a *Announcer) Run(ctx context.Context) error {
	broadcastIP, err := BroadcastIP()
	if err != nil {
		return err
	}

	target := &net.UDPAddr{IP: broadcastIP, Port: a.DiscoveryPort}
	conn, err := net.DialUDP("udp4", nil, target)
	if err != nil {
		return errors.NewNetworkError("dial_broadcast", target.String(), err)
	}
	defer conn.Close()

	offer := protocol.Encode(protocol.Offer{UDPPort: a.UDPPort, TCPPort: a.TCPPort})
	slog.Info("Broadcasting offers",
		"target", target.String(),
		"udp_port", a.UDPPort,
		"tcp_port", a.TCPPort,
		"interval", a.Interval)

	ticker := time.NewTicker(a.Interval)
	defer ticker.Stop()

	for {
		if _, err := conn.Write(offer); err != nil {
			slog.Warn("Offer broadcast failed", "target", target.String(), "error", err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Listen blocks until a valid Offer arrives on the discovery port and
// returns the sender as an Endpoint. Malformed and foreign-typed datagrams
// are dropped and the loop continues. There is no timeout: callers bound the
// wait through ctx.
func Listen(ctx context.Context, port int) (Endpoint, error) {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{Port: port})
	if err != nil {
		return Endpoint{}, errors.NewNetworkError("listen_discovery", fmt.Sprintf(":%d", port), err)
	}
	defer conn.Close()

	slog.Info("Awaiting server offers", "port", port)
	buf := make([]byte, config.MaxDatagramSize)

	for {
		if err := ctx.Err(); err != nil {
			return Endpoint{}, err
		}

		// Short read deadlines exist only to poll ctx between receives.
		if err := conn.SetReadDeadline(time.Now().Add(pollInterval)); err != nil {
			return Endpoint{}, errors.NewNetworkError("set_deadline", conn.LocalAddr().String(), err)
		}

		n, src, err := conn.ReadFromUDP(buf)
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				continue
			}
			return Endpoint{}, errors.NewNetworkError("receive_offer", conn.LocalAddr().String(), err)
		}

		frame, err := protocol.Decode(buf[:n])
		if err != nil {
			slog.Debug("Dropping malformed datagram", "source", src.String(), "length", n)
			continue
		}

		offer, ok := frame.(protocol.Offer)
		if !ok {
			slog.Debug("Dropping non-offer frame", "source", src.String())
			continue
		}

		endpoint := Endpoint{IP: src.IP, UDPPort: offer.UDPPort, TCPPort: offer.TCPPort}
		slog.Info("Offer received", "server", endpoint.String())
		return endpoint, nil
	}
}

// BroadcastIP derives the subnet broadcast address from the host's
// outbound-routable IP. Assumes a /24 subnet mask; cross-subnet discovery is
// out of scope.
func BroadcastIP() (net.IP, error) {
	// The dial never sends a packet; it only resolves the outbound interface.
	conn, err := net.Dial("udp4", "8.8.8.8:80")
	if err != nil {
		return nil, errors.NewNetworkError("resolve_outbound_ip", "8.8.8.8:80", err)
	}
	defer conn.Close()

	local := conn.LocalAddr().(*net.UDPAddr).IP
	return SubnetBroadcast(local), nil
}

// SubnetBroadcast forces the last octet of a v4 address to 255.
func SubnetBroadcast(ip net.IP) net.IP {
	v4 := ip.To4()
	if v4 == nil {
		return nil
	}
	broadcast := make(net.IP, net.IPv4len)
	copy(broadcast, v4)
	broadcast[3] = 255
	return broadcast
}
