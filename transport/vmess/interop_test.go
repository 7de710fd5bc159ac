package vmess_test

import (
	"bytes"
	"errors"
	"io"
	"net"
	"testing"
	"time"

	C "github.com/sagernet/sing-edge/constant"
	"github.com/sagernet/sing-edge/transport/vmess"
	sVMess "github.com/sagernet/sing-vmess"
	M "github.com/sagernet/sing/common/metadata"

	"github.com/stretchr/testify/require"
)

func TestClientInterop(t *testing.T) {
	t.Parallel()
	for _, security := range []string{"zero", "none", "aes-128-gcm", "chacha20-poly1305"} {
		security := security
		t.Run(security, func(t *testing.T) {
			t.Parallel()
			testClientInterop(t, security)
		})
	}
}

func testClientInterop(t *testing.T, security string) {
	client, err := sVMess.NewClient(testUUID.String(), security, 0)
	require.NoError(t, err)
	serverConn, clientConn := net.Pipe()
	defer serverConn.Close()
	defer clientConn.Close()
	destination := M.ParseSocksaddr("93.184.216.34:443")
	conn := client.DialEarlyConn(clientConn, destination)

	writeDone := make(chan error, 1)
	go func() {
		_, err := conn.Write([]byte("ping"))
		writeDone <- err
	}()

	decoder := vmess.NewAuthIDDecoder(testCmdKey, 0)
	var (
		data    []byte
		request *vmess.Request
	)
	buffer := make([]byte, 65535)
	for {
		require.NoError(t, serverConn.SetReadDeadline(time.Now().Add(5*time.Second)))
		n, err := serverConn.Read(buffer)
		require.NoError(t, err)
		data = append(data, buffer[:n]...)
		if len(data) < vmess.AuthIDLength {
			continue
		}
		require.NoError(t, decoder.Verify(data, time.Now()))
		request, err = vmess.ReadRequest(testCmdKey, data)
		if errors.Is(err, C.ErrTruncatedHeader) {
			continue
		}
		require.NoError(t, err)
		break
	}
	require.Equal(t, destination, request.Destination)
	require.Equal(t, byte(sVMess.CommandTCP), request.Command)

	reader, err := request.NewReader(io.MultiReader(bytes.NewReader(request.Payload), serverConn))
	require.NoError(t, err)
	received := make([]byte, 4)
	_, err = io.ReadFull(reader, received)
	require.NoError(t, err)
	require.Equal(t, "ping", string(received))
	require.NoError(t, <-writeDone)

	go func() {
		_, err := serverConn.Write(request.Response())
		if err != nil {
			return
		}
		writer, err := request.NewWriter(serverConn)
		if err != nil {
			return
		}
		writer.Write([]byte("pong"))
	}()
	require.NoError(t, clientConn.SetReadDeadline(time.Now().Add(5*time.Second)))
	response := make([]byte, 4)
	_, err = io.ReadFull(conn, response)
	require.NoError(t, err)
	require.Equal(t, "pong", string(response))
}
