package tunnel

import (
	"bytes"
	"context"
	"io"
	"net"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sagernet/sing-edge/adapter"
	"github.com/sagernet/sing-edge/common/dialer"
	C "github.com/sagernet/sing-edge/constant"
	"github.com/sagernet/sing-edge/log"
	"github.com/sagernet/sing-edge/option"
	"github.com/sagernet/sing-edge/transport/shadowsocks"
	"github.com/sagernet/sing-edge/transport/trojan"
	"github.com/sagernet/sing-edge/transport/vless"
	"github.com/sagernet/sing-edge/transport/vmess"
	sVMess "github.com/sagernet/sing-vmess"
	F "github.com/sagernet/sing/common/format"
	M "github.com/sagernet/sing/common/metadata"
	N "github.com/sagernet/sing/common/network"

	"github.com/stretchr/testify/require"
)

var (
	testSource = M.ParseSocksaddr("198.51.100.7:40000")
	testReply  = []byte("HTTP/1.0 200 OK\r\n\r\nhello")
)

type countingDialer struct {
	N.Dialer
	dials atomic.Int32
}

func (d *countingDialer) DialContext(ctx context.Context, network string, destination M.Socksaddr) (net.Conn, error) {
	d.dials.Add(1)
	return d.Dialer.DialContext(ctx, network, destination)
}

func newCountingDialer(t *testing.T) *countingDialer {
	defaultDialer, err := dialer.NewDefault(option.DialerOptions{})
	require.NoError(t, err)
	return &countingDialer{Dialer: defaultDialer}
}

// startEgress accepts one connection, reads expect bytes (or until EOF when expect is
// negative), then replies and closes.
func startEgress(t *testing.T, expect int, reply []byte) (M.Socksaddr, <-chan []byte) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() {
		listener.Close()
	})
	received := make(chan []byte, 1)
	go func() {
		conn, acceptErr := listener.Accept()
		if acceptErr != nil {
			return
		}
		defer conn.Close()
		conn.SetReadDeadline(time.Now().Add(10 * time.Second))
		var data []byte
		if expect < 0 {
			data, _ = io.ReadAll(conn)
		} else {
			data = make([]byte, expect)
			n, _ := io.ReadFull(conn, data)
			data = data[:n]
		}
		received <- data
		if reply != nil {
			conn.Write(reply)
		}
	}()
	return M.ParseSocksaddr(listener.Addr().String()), received
}

func newTestTunnel(t *testing.T, override M.Socksaddr, dialer N.Dialer, idleTimeout time.Duration) *Tunnel {
	tunnel, err := New(log.NewNOPFactory().Logger(), Options{
		Config: Config{
			UUID:           testUUID,
			Host:           "edge.example.com",
			EgressOverride: override,
		},
		IdleTimeout: idleTimeout,
		Dialer:      dialer,
	})
	require.NoError(t, err)
	return tunnel
}

func runTunnel(tunnel *Tunnel, metadata adapter.InboundContext) (*memoryChannel, <-chan error) {
	return runTunnelContext(context.Background(), tunnel, metadata)
}

func runTunnelContext(ctx context.Context, tunnel *Tunnel, metadata adapter.InboundContext) (*memoryChannel, <-chan error) {
	server, client := newMemoryChannelPair()
	done := make(chan error, 1)
	go func() {
		done <- tunnel.NewConnection(ctx, server, metadata)
	}()
	return client, done
}

func waitTunnel(t *testing.T, done <-chan error) error {
	select {
	case err := <-done:
		return err
	case <-time.After(10 * time.Second):
		t.Fatal("tunnel did not finish")
		return nil
	}
}

func TestTunnelVLESS(t *testing.T) {
	t.Parallel()
	egress, received := startEgress(t, len(testPayload), testReply)
	tunnel := newTestTunnel(t, egress, newCountingDialer(t), 0)
	client, done := runTunnel(tunnel, adapter.InboundContext{Source: testSource})

	require.NoError(t, client.WriteMessage(newVLESSRequest(testUUID, sVMess.CommandTCP, testDestination, testPayload)))
	response, err := client.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, []byte{0, 0}, response)
	reply, err := client.readAll()
	require.NoError(t, err)
	require.Equal(t, testReply, reply)
	require.Equal(t, testPayload, <-received)
	require.NoError(t, waitTunnel(t, done))
}

func TestTunnelNoResponseHeader(t *testing.T) {
	t.Parallel()
	messages := map[string][]byte{
		C.TypeTrojan:      trojan.WriteRequest(nil, trojan.Key(testUUID.String()), trojan.CommandTCP, testDestination, testPayload),
		C.TypeShadowsocks: shadowsocks.WriteRequest(nil, testDestination, testPayload),
	}
	for protocol, message := range messages {
		message := message
		t.Run(protocol, func(t *testing.T) {
			t.Parallel()
			egress, received := startEgress(t, len(testPayload), testReply)
			tunnel := newTestTunnel(t, egress, newCountingDialer(t), 0)
			client, done := runTunnel(tunnel, adapter.InboundContext{Source: testSource})
			require.NoError(t, client.WriteMessage(message))
			reply, err := client.readAll()
			require.NoError(t, err)
			require.Equal(t, testReply, reply)
			require.Equal(t, testPayload, <-received)
			require.NoError(t, waitTunnel(t, done))
		})
	}
}

func TestTunnelVMess(t *testing.T) {
	t.Parallel()
	for _, security := range []byte{vmess.SecurityZero, vmess.SecurityNone, vmess.SecurityAES128GCM, vmess.SecurityChacha20Poly1305} {
		security := security
		t.Run(F.ToString(security), func(t *testing.T) {
			t.Parallel()
			egress, received := startEgress(t, len(testPayload), testReply)
			tunnel := newTestTunnel(t, egress, newCountingDialer(t), 0)
			client, done := runTunnel(tunnel, adapter.InboundContext{Source: testSource})

			request := newVMessRequest(security, vmess.OptionChunkStream|vmess.OptionChunkMasking|vmess.OptionGlobalPadding, sVMess.CommandTCP)
			var body bytes.Buffer
			bodyWriter, err := request.NewClientWriter(&body)
			require.NoError(t, err)
			_, err = bodyWriter.Write(testPayload)
			require.NoError(t, err)
			message := newVMessMessage(testUUID, request, body.Bytes())
			for message[0] == vless.Version {
				message = newVMessMessage(testUUID, request, body.Bytes())
			}
			require.NoError(t, client.WriteMessage(message))

			response, err := client.ReadMessage()
			require.NoError(t, err)
			leftover, err := request.ReadResponse(response)
			require.NoError(t, err)
			require.Empty(t, leftover)
			bodyReader, err := request.NewClientReader(&channelReader{channel: client})
			require.NoError(t, err)
			reply, err := io.ReadAll(bodyReader)
			require.NoError(t, err)
			require.Equal(t, testReply, reply)
			require.Equal(t, testPayload, <-received)
			require.NoError(t, waitTunnel(t, done))
		})
	}
}

func TestTunnelLeftoverOrdering(t *testing.T) {
	t.Parallel()
	egress, received := startEgress(t, len("first-second"), testReply)
	tunnel := newTestTunnel(t, egress, newCountingDialer(t), 0)
	client, done := runTunnel(tunnel, adapter.InboundContext{Source: testSource})

	require.NoError(t, client.WriteMessage(newVLESSRequest(testUUID, sVMess.CommandTCP, testDestination, []byte("first-"))))
	require.NoError(t, client.WriteMessage([]byte("second")))
	_, err := client.readAll()
	require.NoError(t, err)
	require.Equal(t, "first-second", string(<-received))
	require.NoError(t, waitTunnel(t, done))
}

func TestTunnelHalfClose(t *testing.T) {
	t.Parallel()
	egress, received := startEgress(t, -1, testReply)
	tunnel := newTestTunnel(t, egress, newCountingDialer(t), 0)
	client, done := runTunnel(tunnel, adapter.InboundContext{Source: testSource})

	require.NoError(t, client.WriteMessage(newVLESSRequest(testUUID, sVMess.CommandTCP, testDestination, testPayload)))
	require.NoError(t, client.CloseWrite())
	data, err := client.readAll()
	require.NoError(t, err)
	require.Equal(t, append([]byte{0, 0}, testReply...), data)
	require.Equal(t, testPayload, <-received)
	require.NoError(t, waitTunnel(t, done))
}

func TestTunnelRouteOverride(t *testing.T) {
	t.Parallel()
	egress, received := startEgress(t, len(testPayload), testReply)
	tunnel := newTestTunnel(t, M.ParseSocksaddr("127.0.0.1:1"), newCountingDialer(t), 0)
	client, done := runTunnel(tunnel, adapter.InboundContext{Source: testSource, Egress: egress})

	require.NoError(t, client.WriteMessage(newVLESSRequest(testUUID, sVMess.CommandTCP, testDestination, testPayload)))
	data, err := client.readAll()
	require.NoError(t, err)
	require.Equal(t, append([]byte{0, 0}, testReply...), data)
	require.Equal(t, testPayload, <-received)
	require.NoError(t, waitTunnel(t, done))
}

func TestTunnelRejects(t *testing.T) {
	t.Parallel()
	wrongKey := trojan.Key("wrong")
	testCases := []struct {
		name    string
		message []byte
		err     error
	}{
		{"trojan wrong key", trojan.WriteRequest(nil, wrongKey, trojan.CommandTCP, testDestination, testPayload), ErrAuthenticationFailed},
		{"unknown protocol", []byte("hello world"), ErrDetectionFailed},
		{"vless udp", newVLESSRequest(testUUID, sVMess.CommandUDP, testDestination, nil), ErrUnsupportedCommand},
	}
	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()
			countingDialer := newCountingDialer(t)
			tunnel := newTestTunnel(t, M.ParseSocksaddr("127.0.0.1:1"), countingDialer, 0)
			client, done := runTunnel(tunnel, adapter.InboundContext{Source: testSource})
			require.NoError(t, client.WriteMessage(testCase.message))
			data, err := client.readAll()
			require.NoError(t, err)
			require.Empty(t, data)
			require.ErrorIs(t, waitTunnel(t, done), testCase.err)
			require.Zero(t, countingDialer.dials.Load())
		})
	}
}

func TestTunnelEmptyChannel(t *testing.T) {
	t.Parallel()
	tunnel := newTestTunnel(t, M.Socksaddr{}, newCountingDialer(t), 0)
	client, done := runTunnel(tunnel, adapter.InboundContext{Source: testSource})
	require.NoError(t, client.CloseWrite())
	require.ErrorIs(t, waitTunnel(t, done), ErrTruncatedHeader)
}

func TestTunnelEgressConnectFailed(t *testing.T) {
	t.Parallel()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	closed := M.ParseSocksaddr(listener.Addr().String())
	require.NoError(t, listener.Close())

	tunnel := newTestTunnel(t, closed, newCountingDialer(t), 0)
	client, done := runTunnel(tunnel, adapter.InboundContext{Source: testSource})
	require.NoError(t, client.WriteMessage(newVLESSRequest(testUUID, sVMess.CommandTCP, testDestination, testPayload)))
	data, err := client.readAll()
	require.NoError(t, err)
	require.Empty(t, data)
	require.ErrorIs(t, waitTunnel(t, done), ErrEgressConnectFailed)
}

func TestTunnelIdleTimeout(t *testing.T) {
	t.Parallel()
	egress, _ := startEgress(t, -1, nil)
	tunnel := newTestTunnel(t, egress, newCountingDialer(t), 200*time.Millisecond)
	client, done := runTunnel(tunnel, adapter.InboundContext{Source: testSource})
	require.NoError(t, client.WriteMessage(newVLESSRequest(testUUID, sVMess.CommandTCP, testDestination, nil)))
	require.NoError(t, waitTunnel(t, done))
}

func TestTunnelHandshakeCanceled(t *testing.T) {
	t.Parallel()
	countingDialer := newCountingDialer(t)
	tunnel := newTestTunnel(t, M.Socksaddr{}, countingDialer, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_, done := runTunnelContext(ctx, tunnel, adapter.InboundContext{Source: testSource})
	time.Sleep(100 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("tunnel ignored cancellation while waiting for the header")
	}
	require.Zero(t, countingDialer.dials.Load())
}

func TestTunnelHandshakeTimeout(t *testing.T) {
	t.Parallel()
	tunnel := newTestTunnel(t, M.Socksaddr{}, newCountingDialer(t), 200*time.Millisecond)
	client, done := runTunnel(tunnel, adapter.InboundContext{Source: testSource})
	select {
	case err := <-done:
		require.ErrorIs(t, err, ErrTruncatedHeader)
	case <-time.After(2 * time.Second):
		t.Fatal("tunnel waited past the handshake timeout")
	}
	data, err := client.readAll()
	require.NoError(t, err)
	require.Empty(t, data)
}

func TestNewTunnelShadowsocksWarning(t *testing.T) {
	t.Parallel()
	for _, testCase := range []struct {
		protocols []string
		warned    bool
	}{
		{nil, true},
		{[]string{C.TypeShadowsocks}, true},
		{[]string{C.TypeVLESS, C.TypeTrojan, C.TypeVMess}, false},
	} {
		var output bytes.Buffer
		factory, err := log.New(log.Options{
			Options:       option.LogOptions{DisableColor: true},
			DefaultWriter: &output,
		})
		require.NoError(t, err)
		_, err = New(factory.NewLogger("tunnel"), Options{
			Config:    Config{UUID: testUUID},
			Protocols: testCase.protocols,
			Dialer:    newCountingDialer(t),
		})
		require.NoError(t, err)
		require.Equal(t, testCase.warned, strings.Contains(output.String(), "unauthenticated"), testCase.protocols)
	}
}

func TestNewTunnel(t *testing.T) {
	t.Parallel()
	_, err := New(log.NewNOPFactory().Logger(), Options{Dialer: newCountingDialer(t)})
	require.Error(t, err)
	_, err = New(log.NewNOPFactory().Logger(), Options{Config: Config{UUID: testUUID}})
	require.Error(t, err)
}
