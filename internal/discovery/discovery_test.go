package discovery

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"lanspeed/internal/protocol"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubnetBroadcast(t *testing.T) {
	tests := []struct {
		name string
		ip   string
		want string
	}{
		{name: "private /24", ip: "192.168.1.42", want: "192.168.1.255"},
		{name: "ten net", ip: "10.0.7.1", want: "10.0.7.255"},
		{name: "already broadcast", ip: "172.16.0.255", want: "172.16.0.255"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SubnetBroadcast(net.ParseIP(tt.ip))
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestSubnetBroadcastRejectsIPv6(t *testing.T) {
	assert.Nil(t, SubnetBroadcast(net.ParseIP("fe80::1")))
}

func TestEndpointAddrs(t *testing.T) {
	ep := Endpoint{IP: net.ParseIP("192.168.1.5"), UDPPort: 2000, TCPPort: 3000}
	assert.Equal(t, "192.168.1.5:3000", ep.TCPAddr())
	assert.Equal(t, "192.168.1.5:2000", ep.UDPAddr())
}

func TestListenReturnsFirstValidOffer(t *testing.T) {
	port := freeUDPPort(t)

	type listenResult struct {
		ep  Endpoint
		err error
	}
	resultCh := make(chan listenResult, 1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	go func() {
		ep, err := Listen(ctx, port)
		resultCh <- listenResult{ep, err}
	}()

	sender, err := net.Dial("udp4", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)))
	require.NoError(t, err)
	defer sender.Close()

	offer := protocol.Encode(protocol.Offer{UDPPort: 2222, TCPPort: 3333})

	// The listener must survive noise and non-offer frames before the offer.
	deadline := time.After(4 * time.Second)
	for {
		sender.Write([]byte("not a frame at all"))
		sender.Write(protocol.Encode(protocol.Ack{}))
		sender.Write(offer)

		select {
		case res := <-resultCh:
			require.NoError(t, res.err)
			assert.Equal(t, uint16(2222), res.ep.UDPPort)
			assert.Equal(t, uint16(3333), res.ep.TCPPort)
			assert.True(t, res.ep.IP.IsLoopback())
			return
		case <-deadline:
			t.Fatal("listener never returned an offer")
		case <-time.After(50 * time.Millisecond):
		}
	}
}

func TestListenCancellable(t *testing.T) {
	port := freeUDPPort(t)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := Listen(ctx, port)
		errCh <- err
	}()

	cancel()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(3 * time.Second):
		t.Fatal("listener did not observe cancellation")
	}
}

// freeUDPPort finds a currently unused UDP port. There is a small window
// between release and reuse, acceptable for tests.
func freeUDPPort(t *testing.T) int {
	t.Helper()
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	port := conn.LocalAddr().(*net.UDPAddr).Port
	require.NoError(t, conn.Close())
	return port
}
