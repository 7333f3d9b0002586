package transfer

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	"lanspeed/internal/config"
	"lanspeed/internal/discovery"
	"lanspeed/internal/errors"
	"lanspeed/internal/stats"
)

// RunTCP performs one measured TCP transfer against the endpoint. The clock
// starts after the size request is written. An early close by the server is
// a partial transfer, recorded as received-so-far rather than an error.
func RunTCP(ctx context.Context, endpoint discovery.Endpoint, id int, size int64,
	progress *stats.RoundProgress, cfg *config.Config) (stats.Result, error) {

	dialer := net.Dialer{Timeout: cfg.DialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", endpoint.TCPAddr())
	if err != nil {
		return stats.Result{}, errors.NewNetworkError("dial", endpoint.TCPAddr(), err)
	}
	defer conn.Close()

	tuneTCPConn(conn)

	if _, err := fmt.Fprintf(conn, "%d\n", size); err != nil {
		return stats.Result{}, errors.NewNetworkError("send_request", endpoint.TCPAddr(), err)
	}

	start := time.Now()
	if err := conn.SetReadDeadline(start.Add(cfg.TransferCap)); err != nil {
		return stats.Result{}, errors.NewNetworkError("set_deadline", endpoint.TCPAddr(), err)
	}

	var received int64
	buf := make([]byte, config.TCPWriteSize)

	for received < size {
		if ctx.Err() != nil {
			break
		}

		n, err := conn.Read(buf)
		if n > 0 {
			received += int64(n)
			progress.Update(int64(n))
		}
		if err != nil {
			if err == io.EOF {
				break // short transfer, record what arrived
			}
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				break // wall cap hit, likewise partial
			}
			if received == 0 {
				return stats.Result{}, errors.NewNetworkError("receive", endpoint.TCPAddr(), err)
			}
			slog.Warn("TCP transfer ended early", "id", id, "received", received, "error", err)
			break
		}
	}

	elapsed := time.Since(start)
	result := stats.Result{
		ID:            id,
		Protocol:      stats.ProtocolTCP,
		RequestedSize: size,
		BytesReceived: received,
		Elapsed:       elapsed,
		BitsPerSecond: stats.BitsPerSecond(received, elapsed),
	}

	slog.Info("TCP transfer finished",
		"id", id,
		"bytes", received,
		"elapsed_seconds", elapsed.Seconds(),
		"bits_per_second", result.BitsPerSecond)
	return result, nil
}

// ServeTCPConn handles one server-side connection: read a newline-terminated
// ASCII decimal size, stream that many filler bytes, close. A mid-write
// error aborts this connection only.
func ServeTCPConn(conn net.Conn, cfg *config.Config) error {
	defer conn.Close()
	remote := conn.RemoteAddr().String()

	tuneTCPConn(conn)

	line, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		return errors.NewNetworkError("read_request", remote, err)
	}

	size, err := strconv.ParseInt(strings.TrimSpace(line), 10, 64)
	if err != nil {
		return errors.NewProtocolError("parse_request", fmt.Sprintf("invalid size %q", strings.TrimSpace(line)), err)
	}
	if size < 0 {
		return errors.NewProtocolError("parse_request", "negative size", nil)
	}

	slog.Info("Serving TCP request", "remote", remote, "size", size)

	filler := make([]byte, config.TCPWriteSize)
	var sent int64
	for sent < size {
		chunk := int64(len(filler))
		if remaining := size - sent; remaining < chunk {
			chunk = remaining
		}
		n, err := conn.Write(filler[:chunk])
		sent += int64(n)
		if err != nil {
			return errors.NewNetworkError("stream", remote, err)
		}
	}

	slog.Info("TCP request served", "remote", remote, "bytes", sent)
	return nil
}

// tuneTCPConn applies keep-alive, no-delay and larger socket buffers to a
// TCP connection. Failures are logged and tolerated.
func tuneTCPConn(conn net.Conn) {
	tcpConn, ok := conn.(*net.TCPConn)
	if !ok {
		return
	}

	if err := tcpConn.SetKeepAlive(true); err != nil {
		slog.Warn("Failed to enable TCP keepalive", "error", err)
	}
	if err := tcpConn.SetNoDelay(true); err != nil {
		slog.Warn("Failed to disable Nagle's algorithm", "error", err)
	}
	if err := tcpConn.SetReadBuffer(config.MaxDatagramSize); err != nil {
		slog.Warn("Failed to set TCP read buffer", "error", err)
	}
	if err := tcpConn.SetWriteBuffer(config.MaxDatagramSize); err != nil {
		slog.Warn("Failed to set TCP write buffer", "error", err)
	}
}
