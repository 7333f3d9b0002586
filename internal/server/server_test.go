package server

import (
	"context"
	"net"
	"testing"
	"time"

	"lanspeed/internal/config"
	"lanspeed/internal/discovery"
	"lanspeed/internal/protocol"
	"lanspeed/internal/stats"
	"lanspeed/internal/transfer"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startServer(t *testing.T, cfg *config.Config) *Server {
	t.Helper()

	srv, err := New(cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go srv.Serve(ctx)

	return srv
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.SegmentTimeout = 200 * time.Millisecond
	cfg.TransferCap = 5 * time.Second
	cfg.DialTimeout = time.Second
	return cfg
}

func TestServerBindsDistinctPorts(t *testing.T) {
	srv := startServer(t, testConfig())
	assert.NotZero(t, srv.TCPPort())
	assert.NotZero(t, srv.UDPPort())
}

func TestServerEndToEndTCP(t *testing.T) {
	cfg := testConfig()
	srv := startServer(t, cfg)
	endpoint := discovery.Endpoint{IP: net.IPv4(127, 0, 0, 1), UDPPort: srv.UDPPort(), TCPPort: srv.TCPPort()}

	result, err := transfer.RunTCP(context.Background(), endpoint, 1, 5000, stats.NewRoundProgress(), cfg)
	require.NoError(t, err)

	assert.Equal(t, int64(5000), result.BytesReceived)
	assert.Greater(t, result.BitsPerSecond, 0.0)
}

func TestServerEndToEndUDP(t *testing.T) {
	cfg := testConfig()
	srv := startServer(t, cfg)
	endpoint := discovery.Endpoint{IP: net.IPv4(127, 0, 0, 1), UDPPort: srv.UDPPort(), TCPPort: srv.TCPPort()}

	result, err := transfer.RunUDP(context.Background(), endpoint, 1, 5000, stats.NewRoundProgress(), cfg)
	require.NoError(t, err)

	assert.Equal(t, int64(5), result.SegmentsExpected)
	assert.Equal(t, int64(5), result.SegmentsReceived)
	assert.InDelta(t, 0, result.LossRate(), 1e-9)
}

func TestServerEndToEndRound(t *testing.T) {
	cfg := testConfig()
	cfg.RequestedSize = 5000
	cfg.TCPConnections = 2
	cfg.UDPConnections = 2

	srv := startServer(t, cfg)
	endpoint := discovery.Endpoint{IP: net.IPv4(127, 0, 0, 1), UDPPort: srv.UDPPort(), TCPPort: srv.TCPPort()}

	collector := transfer.RunRound(context.Background(), endpoint, stats.NewRoundProgress(), cfg)

	assert.Len(t, collector.Results(), 4)
	assert.Empty(t, collector.Failures())

	summary := stats.Aggregate(collector.Results())
	assert.True(t, summary.HasTCP)
	assert.True(t, summary.HasUDP)
	assert.InDelta(t, 0, summary.AvgUDPLossRate, 1e-9)
}

func TestServerIgnoresDatagramNoise(t *testing.T) {
	cfg := testConfig()
	srv := startServer(t, cfg)

	sender, err := net.DialUDP("udp4", nil, &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: int(srv.UDPPort())})
	require.NoError(t, err)
	defer sender.Close()

	// Noise and foreign frames must be dropped without killing the loop.
	_, err = sender.Write([]byte("garbage"))
	require.NoError(t, err)
	_, err = sender.Write(protocol.Encode(protocol.Offer{UDPPort: 1, TCPPort: 2}))
	require.NoError(t, err)

	// A valid request on the same socket must still be served.
	_, err = sender.Write(protocol.Encode(protocol.Request{RequestedSize: 1024}))
	require.NoError(t, err)

	require.NoError(t, sender.SetReadDeadline(time.Now().Add(2*time.Second)))
	buf := make([]byte, config.MaxDatagramSize)
	gotPayload := false
	for !gotPayload {
		n, err := sender.Read(buf)
		require.NoError(t, err, "expected a payload in response to the request")
		frame, err := protocol.Decode(buf[:n])
		if err != nil {
			continue
		}
		if _, ok := frame.(protocol.Payload); ok {
			gotPayload = true
		}
	}
}
