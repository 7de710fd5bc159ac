package trojan_test

import (
	"testing"

	C "github.com/sagernet/sing-edge/constant"
	"github.com/sagernet/sing-edge/transport/trojan"
	M "github.com/sagernet/sing/common/metadata"

	"github.com/stretchr/testify/require"
)

const testPassword = "b85798ef-e9dc-46a4-9a87-8da4499d36d0"

func TestKey(t *testing.T) {
	t.Parallel()
	key := trojan.Key("password")
	require.Equal(t, "d63dc919e201d7bc4c825630d2cf25fdc93d4b2f0d46706d29038d01", string(key[:]))
}

func TestReadRequest(t *testing.T) {
	t.Parallel()
	key := trojan.Key(testPassword)
	payload := []byte("GET / HTTP/1.0\r\n\r\n")
	for _, destination := range []M.Socksaddr{
		M.ParseSocksaddr("93.184.216.34:443"),
		M.ParseSocksaddr("[2001:db8::1]:8443"),
		M.ParseSocksaddrHostPort("example.org", 80),
	} {
		data := trojan.WriteRequest(nil, key, trojan.CommandTCP, destination, payload)
		require.True(t, trojan.Sniff(data))
		request, err := trojan.ReadRequest(data)
		require.NoError(t, err)
		require.Equal(t, key, request.Key)
		require.Equal(t, byte(trojan.CommandTCP), request.Command)
		require.Equal(t, destination, request.Destination)
		require.Equal(t, payload, request.Payload)
	}
}

func TestReadRequestTruncated(t *testing.T) {
	t.Parallel()
	data := trojan.WriteRequest(nil, trojan.Key(testPassword), trojan.CommandTCP, M.ParseSocksaddrHostPort("example.org", 443), nil)
	for i := 0; i < len(data); i++ {
		_, err := trojan.ReadRequest(data[:i])
		require.ErrorIs(t, err, C.ErrTruncatedHeader, "prefix length ", i)
	}
}

func TestReadRequestDomainOverflow(t *testing.T) {
	t.Parallel()
	key := trojan.Key(testPassword)
	data := append(key[:], '\r', '\n', trojan.CommandTCP, 3, 200)
	data = append(data, "0123456789"...)
	_, err := trojan.ReadRequest(data)
	require.ErrorIs(t, err, C.ErrTruncatedHeader)
}

func TestReadRequestMalformed(t *testing.T) {
	t.Parallel()
	data := trojan.WriteRequest(nil, trojan.Key(testPassword), trojan.CommandTCP, M.ParseSocksaddr("1.1.1.1:53"), nil)
	data[trojan.KeyLength] = '\n'
	_, err := trojan.ReadRequest(data)
	require.ErrorIs(t, err, C.ErrMalformedHeader)
	require.False(t, trojan.Sniff(data))
}

func TestSniffNotHex(t *testing.T) {
	t.Parallel()
	data := trojan.WriteRequest(nil, trojan.Key(testPassword), trojan.CommandTCP, M.ParseSocksaddr("1.1.1.1:53"), nil)
	data[10] = 'x'
	require.False(t, trojan.Sniff(data))
	_, err := trojan.ReadRequest(data)
	require.NoError(t, err)
}
