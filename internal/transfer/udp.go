package transfer

import (
	"context"
	"log/slog"
	"net"
	"time"

	"lanspeed/internal/config"
	"lanspeed/internal/discovery"
	"lanspeed/internal/errors"
	"lanspeed/internal/protocol"
	"lanspeed/internal/stats"
)

// RunUDP performs one measured UDP transfer. The protocol has no end marker:
// a receive timeout after at least one Payload means the server is done (or
// the stream stalled), and the transfer is recorded with whatever arrived.
// If nothing at all arrives within the first timeout window the Request is
// re-sent once, covering a lost initial datagram.
func RunUDP(ctx context.Context, endpoint discovery.Endpoint, id int, size int64,
	progress *stats.RoundProgress, cfg *config.Config) (stats.Result, error) {

	raddr, err := net.ResolveUDPAddr("udp4", endpoint.UDPAddr())
	if err != nil {
		return stats.Result{}, errors.NewNetworkError("resolve", endpoint.UDPAddr(), err)
	}

	conn, err := net.DialUDP("udp4", nil, raddr)
	if err != nil {
		return stats.Result{}, errors.NewNetworkError("dial", endpoint.UDPAddr(), err)
	}
	defer conn.Close()

	request := protocol.Encode(protocol.Request{RequestedSize: uint64(size)})
	if _, err := conn.Write(request); err != nil {
		return stats.Result{}, errors.NewNetworkError("send_request", endpoint.UDPAddr(), err)
	}

	tracker := NewSegmentTracker()
	start := time.Now()
	wallDeadline := start.Add(cfg.TransferCap)
	buf := make([]byte, config.MaxDatagramSize)

	var received int64
	requestResent := false

	for !tracker.Complete() {
		if ctx.Err() != nil {
			break
		}
		if time.Now().After(wallDeadline) {
			slog.Warn("UDP transfer hit wall-clock cap", "id", id)
			break
		}

		if err := conn.SetReadDeadline(time.Now().Add(cfg.SegmentTimeout)); err != nil {
			return stats.Result{}, errors.NewNetworkError("set_deadline", endpoint.UDPAddr(), err)
		}

		n, err := conn.Read(buf)
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				if tracker.UniqueCount() == 0 && !requestResent {
					// Initial Request may have been lost; one retry.
					requestResent = true
					if _, err := conn.Write(request); err != nil {
						return stats.Result{}, errors.NewNetworkError("resend_request", endpoint.UDPAddr(), err)
					}
					continue
				}
				break // silence means end-of-transfer
			}
			return stats.Result{}, errors.NewNetworkError("receive", endpoint.UDPAddr(), err)
		}

		frame, err := protocol.Decode(buf[:n])
		if err != nil {
			continue // datagram noise, drop silently
		}

		switch f := frame.(type) {
		case protocol.Payload:
			if tracker.Record(f.TotalSegments, f.SegmentIndex) {
				received += int64(len(f.Data))
				progress.Update(int64(len(f.Data)))
			}
		case protocol.Ack:
			// server has started processing; keep waiting
		default:
			// foreign frame type on the transfer socket, drop
		}
	}

	elapsed := time.Since(start)
	result := stats.Result{
		ID:               id,
		Protocol:         stats.ProtocolUDP,
		RequestedSize:    size,
		BytesReceived:    received,
		Elapsed:          elapsed,
		BitsPerSecond:    stats.BitsPerSecond(received, elapsed),
		SegmentsExpected: tracker.ExpectedTotal(),
		SegmentsReceived: tracker.UniqueCount(),
	}

	slog.Info("UDP transfer finished",
		"id", id,
		"bytes", received,
		"segments_received", result.SegmentsReceived,
		"segments_expected", result.SegmentsExpected,
		"loss_rate", result.LossRate(),
		"elapsed_seconds", elapsed.Seconds(),
		"bits_per_second", result.BitsPerSecond)
	return result, nil
}

// SendSegments streams the requested size to one client as numbered Payload
// datagrams. Each segment is sent Redundancy times to compensate for loss;
// the client deduplicates by index. The last segment is byte-accurate, so
// exactly size bytes of filler are delivered when nothing is lost. Pacing
// between sends is disabled by default and relies on socket buffering.
func SendSegments(conn *net.UDPConn, client *net.UDPAddr, size int64, cfg *config.Config) error {
	total := TotalSegments(size, cfg.ChunkSize)
	if total == 0 {
		return nil
	}

	// Best-effort: tells the client its Request was seen.
	if _, err := conn.WriteToUDP(protocol.Encode(protocol.Ack{}), client); err != nil {
		slog.Debug("Ack send failed", "client", client.String(), "error", err)
	}

	filler := make([]byte, cfg.ChunkSize)

	for index := int64(0); index < total; index++ {
		segLen := int64(cfg.ChunkSize)
		if remaining := size - index*int64(cfg.ChunkSize); remaining < segLen {
			segLen = remaining
		}

		frame := protocol.Encode(protocol.Payload{
			TotalSegments: uint64(total),
			SegmentIndex:  uint64(index),
			Data:          filler[:segLen],
		})

		for r := 0; r < cfg.Redundancy; r++ {
			if _, err := conn.WriteToUDP(frame, client); err != nil {
				return errors.NewNetworkError("send_segment", client.String(), err)
			}
			if cfg.SegmentDelay > 0 {
				time.Sleep(cfg.SegmentDelay)
			}
		}
	}

	slog.Info("UDP request served", "client", client.String(), "segments", total, "size", size)
	return nil
}
