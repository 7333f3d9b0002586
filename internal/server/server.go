package server

import (
	"context"
	"log/slog"
	"math"
	"net"

	"lanspeed/internal/config"
	"lanspeed/internal/discovery"
	"lanspeed/internal/errors"
	"lanspeed/internal/logging"
	"lanspeed/internal/protocol"
	"lanspeed/internal/transfer"
)

// Server binds one TCP listener and one UDP socket on dynamic ports and
// serves transfer requests on both. The UDP socket is shared: reads happen on
// one goroutine, segment loops write concurrently, which UDP permits since it
// guarantees no ordering anyway.
type Server struct {
	cfg         *config.Config
	tcpListener *net.TCPListener
	udpConn     *net.UDPConn
}

// New binds the transfer sockets. Ports are OS-assigned and advertised
// through the discovery announcer.
func New(cfg *config.Config) (*Server, error) {
	tcpListener, err := net.ListenTCP("tcp4", &net.TCPAddr{})
	if err != nil {
		return nil, errors.NewNetworkError("listen_tcp", "any", err)
	}

	udpConn, err := net.ListenUDP("udp4", &net.UDPAddr{})
	if err != nil {
		tcpListener.Close()
		return nil, errors.NewNetworkError("listen_udp", "any", err)
	}

	return &Server{cfg: cfg, tcpListener: tcpListener, udpConn: udpConn}, nil
}

// TCPPort returns the bound TCP listening port.
func (s *Server) TCPPort() uint16 {
	return uint16(s.tcpListener.Addr().(*net.TCPAddr).Port)
}

// UDPPort returns the bound UDP listening port.
func (s *Server) UDPPort() uint16 {
	return uint16(s.udpConn.LocalAddr().(*net.UDPAddr).Port)
}

// Serve handles TCP connections and UDP requests until ctx is cancelled or
// one of the listening loops fails.
func (s *Server) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Closing the sockets is what unblocks the accept/read loops.
	go func() {
		<-ctx.Done()
		s.tcpListener.Close()
		s.udpConn.Close()
	}()

	slog.Info("Server ready", "tcp_port", s.TCPPort(), "udp_port", s.UDPPort())

	errCh := make(chan error, 2)
	go func() { errCh <- s.acceptTCP(ctx) }()
	go func() { errCh <- s.serveUDP(ctx) }()

	err := <-errCh
	cancel()
	<-errCh
	if err != nil {
		return err
	}
	return ctx.Err()
}

func (s *Server) acceptTCP(ctx context.Context) error {
	for {
		conn, err := s.tcpListener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			slog.Error("Failed to accept connection", "error", err)
			return err
		}

		go func(conn net.Conn) {
			if err := transfer.ServeTCPConn(conn, s.cfg); err != nil {
				// Isolated to this connection; siblings are unaffected.
				slog.Error("TCP connection error", "remote", conn.RemoteAddr().String(), "error", err)
			}
		}(conn)
	}
}

func (s *Server) serveUDP(ctx context.Context) error {
	buf := make([]byte, config.MaxDatagramSize)

	for {
		n, client, err := s.udpConn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			slog.Error("UDP receive failed", "error", err)
			return err
		}

		frame, err := protocol.Decode(buf[:n])
		if err != nil {
			slog.Debug("Dropping malformed datagram", "source", client.String(), "length", n)
			continue
		}

		request, ok := frame.(protocol.Request)
		if !ok {
			slog.Debug("Dropping non-request frame", "source", client.String())
			continue
		}
		if request.RequestedSize > math.MaxInt64 {
			slog.Debug("Dropping oversized request", "source", client.String())
			continue
		}

		slog.Info("Serving UDP request", "client", client.String(), "size", request.RequestedSize)

		go func(client *net.UDPAddr, size int64) {
			if err := transfer.SendSegments(s.udpConn, client, size, s.cfg); err != nil {
				slog.Error("UDP segment loop failed", "client", client.String(), "error", err)
			}
		}(client, int64(request.RequestedSize))
	}
}

// Run is the server entry point: bind, announce, serve until ctx ends. The
// announcer runs as an independent background task and is not joined; a
// broadcast setup failure degrades to a warn because clients that already
// know the ports can still connect.
func Run(ctx context.Context, cfg *config.Config) error {
	logging.LogServerConfig(cfg)

	srv, err := New(cfg)
	if err != nil {
		return err
	}

	announcer := &discovery.Announcer{
		UDPPort:       srv.UDPPort(),
		TCPPort:       srv.TCPPort(),
		DiscoveryPort: cfg.DiscoveryPort,
		Interval:      cfg.OfferInterval,
	}
	go func() {
		if err := announcer.Run(ctx); err != nil && ctx.Err() == nil {
			slog.Warn("Offer announcer stopped", "error", err)
		}
	}()

	return srv.Serve(ctx)
}
