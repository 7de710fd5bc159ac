package tunnel

import (
	"io"

	C "github.com/sagernet/sing-edge/constant"
	"github.com/sagernet/sing-edge/transport/shadowsocks"
	"github.com/sagernet/sing-edge/transport/trojan"
	"github.com/sagernet/sing-edge/transport/vless"
	"github.com/sagernet/sing-edge/transport/vmess"
	sVMess "github.com/sagernet/sing-vmess"
	E "github.com/sagernet/sing/common/exceptions"
	M "github.com/sagernet/sing/common/metadata"
)

// Request is the parsed and authenticated opening of a tunnel.
type Request struct {
	Protocol    string
	Credential  []byte
	Command     byte
	Destination M.Socksaddr
	// Payload holds bytes received with the header; they are sent before anything else.
	Payload []byte
	// Response is written to the client once, before any relayed data.
	Response []byte

	vmess *vmess.Request
}

// ReadRequest parses the first message of a tunnel for protocol and verifies its
// credential. Structural errors are reported before credential errors, which are reported
// before command errors.
func ReadRequest(protocol string, data []byte, validator *Validator) (*Request, error) {
	var request Request
	request.Protocol = protocol
	switch protocol {
	case C.TypeVLESS:
		vlessRequest, err := vless.ReadRequest(data)
		if err != nil {
			return nil, err
		}
		err = validator.VerifyVLESS(vlessRequest.UUID[:])
		if err != nil {
			return nil, err
		}
		if vlessRequest.Command != sVMess.CommandTCP {
			return nil, E.Extend(ErrUnsupportedCommand, "vless command ", vlessRequest.Command)
		}
		request.Credential = vlessRequest.UUID[:]
		request.Command = vlessRequest.Command
		request.Destination = vlessRequest.Destination
		request.Payload = vlessRequest.Payload
		request.Response = vless.Response()
	case C.TypeTrojan:
		trojanRequest, err := trojan.ReadRequest(data)
		if err != nil {
			return nil, err
		}
		err = validator.VerifyTrojan(trojanRequest.Key[:])
		if err != nil {
			return nil, err
		}
		if trojanRequest.Command != trojan.CommandTCP {
			return nil, E.Extend(ErrUnsupportedCommand, "trojan command ", trojanRequest.Command)
		}
		request.Credential = trojanRequest.Key[:]
		request.Command = trojanRequest.Command
		request.Destination = trojanRequest.Destination
		request.Payload = trojanRequest.Payload
	case C.TypeVMess:
		if len(data) < vmess.AuthIDLength {
			return nil, ErrTruncatedHeader
		}
		err := validator.VerifyAuthID(data[:vmess.AuthIDLength])
		if err != nil {
			return nil, err
		}
		vmessRequest, err := vmess.ReadRequest(validator.VMessKey(), data)
		if err != nil {
			return nil, err
		}
		if vmessRequest.Command != sVMess.CommandTCP {
			return nil, E.Extend(ErrUnsupportedCommand, "vmess command ", vmessRequest.Command)
		}
		request.Credential = data[:vmess.AuthIDLength]
		request.Command = vmessRequest.Command
		request.Destination = vmessRequest.Destination
		request.Payload = vmessRequest.Payload
		request.Response = vmessRequest.Response()
		request.vmess = vmessRequest
	case C.TypeShadowsocks:
		shadowsocksRequest, err := shadowsocks.ReadRequest(data)
		if err != nil {
			return nil, err
		}
		request.Command = sVMess.CommandTCP
		request.Destination = shadowsocksRequest.Destination
		request.Payload = shadowsocksRequest.Payload
	default:
		return nil, E.Extend(ErrDetectionFailed, "unknown protocol: ", protocol)
	}
	return &request, nil
}

// NewReader wraps the raw uplink byte stream with the protocol body codec.
func (r *Request) NewReader(upstream io.Reader) (io.Reader, error) {
	if r.vmess != nil {
		return r.vmess.NewReader(upstream)
	}
	return upstream, nil
}

// NewWriter wraps the raw downlink message writer with the protocol body codec.
func (r *Request) NewWriter(upstream io.Writer) (io.Writer, error) {
	if r.vmess != nil {
		return r.vmess.NewWriter(upstream)
	}
	return upstream, nil
}
