package shadowsocks

import (
	"github.com/sagernet/sing-edge/common/header"
	ss "github.com/sagernet/sing-shadowsocks"
	M "github.com/sagernet/sing/common/metadata"
)

// Method is the only cipher served; the stream carries no inline credential.
const Method = ss.MethodNone

type Request struct {
	Destination M.Socksaddr
	Payload     []byte
}

func ReadRequest(data []byte) (*Request, error) {
	destination, addressLen, err := header.SocksAddress.Read(data)
	if err != nil {
		return nil, err
	}
	return &Request{
		Destination: destination,
		Payload:     data[addressLen:],
	}, nil
}

func WriteRequest(buffer []byte, destination M.Socksaddr, payload []byte) []byte {
	buffer = header.SocksAddress.Append(buffer, destination)
	return append(buffer, payload...)
}

// Sniff reports whether data is plausibly a SOCKS-style address record.
func Sniff(data []byte) bool {
	_, err := header.SocksAddress.Len(data)
	return err == nil
}
