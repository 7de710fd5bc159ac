package vless_test

import (
	"testing"

	C "github.com/sagernet/sing-edge/constant"
	"github.com/sagernet/sing-edge/transport/vless"
	"github.com/sagernet/sing-vmess"
	M "github.com/sagernet/sing/common/metadata"

	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/require"
)

var testUUID = uuid.Must(uuid.FromString("b85798ef-e9dc-46a4-9a87-8da4499d36d0"))

func TestReadRequest(t *testing.T) {
	t.Parallel()
	payload := []byte("GET / HTTP/1.0\r\n\r\n")
	for _, destination := range []M.Socksaddr{
		M.ParseSocksaddr("93.184.216.34:443"),
		M.ParseSocksaddr("[2001:db8::1]:8443"),
		M.ParseSocksaddrHostPort("example.org", 80),
	} {
		data := vless.WriteRequest(nil, vless.Request{
			UUID:        testUUID,
			Command:     vmess.CommandTCP,
			Destination: destination,
		}, payload)
		request, err := vless.ReadRequest(data)
		require.NoError(t, err)
		require.Equal(t, [16]byte(testUUID), request.UUID)
		require.Equal(t, byte(vmess.CommandTCP), request.Command)
		require.Equal(t, destination, request.Destination)
		require.Equal(t, payload, request.Payload)
	}
}

func TestReadRequestAddons(t *testing.T) {
	t.Parallel()
	data := []byte{vless.Version}
	data = append(data, testUUID.Bytes()...)
	data = append(data, 3, 0x0a, 0x01, 0x00)
	data = append(data, vmess.CommandTCP, 0x01, 0xbb, 1, 93, 184, 216, 34)
	request, err := vless.ReadRequest(data)
	require.NoError(t, err)
	require.Equal(t, M.ParseSocksaddr("93.184.216.34:443"), request.Destination)
	require.Empty(t, request.Payload)
}

func TestReadRequestTruncated(t *testing.T) {
	t.Parallel()
	data := vless.WriteRequest(nil, vless.Request{
		UUID:        testUUID,
		Command:     vmess.CommandTCP,
		Destination: M.ParseSocksaddrHostPort("example.org", 443),
	}, nil)
	for i := 0; i < len(data); i++ {
		_, err := vless.ReadRequest(data[:i])
		require.ErrorIs(t, err, C.ErrTruncatedHeader, "prefix length ", i)
	}
}

func TestReadRequestDomainOverflow(t *testing.T) {
	t.Parallel()
	data := []byte{vless.Version}
	data = append(data, testUUID.Bytes()...)
	data = append(data, 0, vmess.CommandTCP, 0x01, 0xbb, 2, 200)
	data = append(data, "example.o"...)
	data = append(data, 'r')
	_, err := vless.ReadRequest(data)
	require.ErrorIs(t, err, C.ErrTruncatedHeader)
}

func TestReadRequestMalformed(t *testing.T) {
	t.Parallel()
	data := []byte{vless.Version}
	data = append(data, testUUID.Bytes()...)
	data = append(data, 0, vmess.CommandTCP, 0x01, 0xbb, 9, 1, 2, 3, 4)
	_, err := vless.ReadRequest(data)
	require.ErrorIs(t, err, C.ErrMalformedHeader)

	data = append([]byte{1}, data[1:]...)
	_, err = vless.ReadRequest(data)
	require.ErrorIs(t, err, C.ErrMalformedHeader)
}

func TestReadRequestCommand(t *testing.T) {
	t.Parallel()
	data := vless.WriteRequest(nil, vless.Request{
		UUID:    testUUID,
		Command: vmess.CommandMux,
	}, []byte("mux"))
	request, err := vless.ReadRequest(data)
	require.NoError(t, err)
	require.Equal(t, byte(vmess.CommandMux), request.Command)
	require.False(t, request.Destination.IsValid())
	require.Equal(t, []byte("mux"), request.Payload)

	data[len(data)-4] = 0x7f
	_, err = vless.ReadRequest(data)
	require.ErrorIs(t, err, C.ErrUnsupportedCommand)
}

func TestSniff(t *testing.T) {
	t.Parallel()
	data := vless.WriteRequest(nil, vless.Request{
		UUID:        testUUID,
		Command:     vmess.CommandTCP,
		Destination: M.ParseSocksaddr("1.1.1.1:53"),
	}, nil)
	require.True(t, vless.Sniff(data))
	require.False(t, vless.Sniff(data[:17]))
	data[17] = 0xff
	require.False(t, vless.Sniff(data))
	data[17] = 0
	data[0] = 1
	require.False(t, vless.Sniff(data))
}
