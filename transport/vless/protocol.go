package vless

import (
	"github.com/sagernet/sing-edge/common/header"
	C "github.com/sagernet/sing-edge/constant"
	"github.com/sagernet/sing-vmess"
	E "github.com/sagernet/sing/common/exceptions"
	M "github.com/sagernet/sing/common/metadata"
)

const Version = 0

// MinRequestLength covers version, id and the addons length byte.
const MinRequestLength = 1 + 16 + 1

type Request struct {
	UUID        [16]byte
	Command     byte
	Destination M.Socksaddr
	Payload     []byte
}

// Response is sent once before any relayed downlink data: version echo and empty addons.
func Response() []byte {
	return []byte{Version, 0}
}

// ReadRequest parses a request header from the start of data. Bytes after the header are
// returned as the request payload and alias data.
func ReadRequest(data []byte) (*Request, error) {
	if len(data) < 1 {
		return nil, C.ErrTruncatedHeader
	}
	if data[0] != Version {
		return nil, E.Extend(C.ErrMalformedHeader, "unknown version: ", data[0])
	}
	if len(data) < MinRequestLength {
		return nil, C.ErrTruncatedHeader
	}
	var request Request
	copy(request.UUID[:], data[1:17])
	offset := MinRequestLength + int(data[17])
	if len(data) <= offset {
		return nil, C.ErrTruncatedHeader
	}
	request.Command = data[offset]
	offset++
	switch request.Command {
	case vmess.CommandTCP, vmess.CommandUDP:
		destination, addressLen, err := header.VMessAddress.Read(data[offset:])
		if err != nil {
			return nil, err
		}
		request.Destination = destination
		offset += addressLen
	case vmess.CommandMux:
	default:
		return nil, E.Extend(C.ErrUnsupportedCommand, "unknown command: ", request.Command)
	}
	request.Payload = data[offset:]
	return &request, nil
}

// WriteRequest appends an encoded request header followed by payload.
func WriteRequest(buffer []byte, request Request, payload []byte) []byte {
	buffer = append(buffer, Version)
	buffer = append(buffer, request.UUID[:]...)
	buffer = append(buffer, 0, request.Command)
	if request.Command != vmess.CommandMux {
		buffer = header.VMessAddress.Append(buffer, request.Destination)
	}
	return append(buffer, payload...)
}

// Sniff reports whether data is structurally a VLESS request: version zero, a full id and
// an addons block that fits the buffer.
func Sniff(data []byte) bool {
	return len(data) >= MinRequestLength && data[0] == Version && int(data[17]) <= len(data)-MinRequestLength
}
