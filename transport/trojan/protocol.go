package trojan

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"

	"github.com/sagernet/sing-edge/common/header"
	C "github.com/sagernet/sing-edge/constant"
	"github.com/sagernet/sing/common"
	E "github.com/sagernet/sing/common/exceptions"
	M "github.com/sagernet/sing/common/metadata"
)

const (
	KeyLength  = 56
	CommandTCP = 1
	CommandUDP = 3
	CommandMux = 0x7f
)

var CRLF = []byte{'\r', '\n'}

type Request struct {
	Key         [KeyLength]byte
	Command     byte
	Destination M.Socksaddr
	Payload     []byte
}

func Key(password string) [KeyLength]byte {
	var key [KeyLength]byte
	hash := sha256.New224()
	common.Must1(hash.Write([]byte(password)))
	hex.Encode(key[:], hash.Sum(nil))
	return key
}

// ReadRequest parses a request header from the start of data. The key is returned as
// received; it is not required to be hexadecimal here.
func ReadRequest(data []byte) (*Request, error) {
	if len(data) < KeyLength {
		return nil, C.ErrTruncatedHeader
	}
	var request Request
	copy(request.Key[:], data)
	offset := KeyLength
	err := readCRLF(data, &offset)
	if err != nil {
		return nil, err
	}
	if len(data) <= offset {
		return nil, C.ErrTruncatedHeader
	}
	request.Command = data[offset]
	offset++
	destination, addressLen, err := header.SocksAddress.Read(data[offset:])
	if err != nil {
		return nil, err
	}
	request.Destination = destination
	offset += addressLen
	err = readCRLF(data, &offset)
	if err != nil {
		return nil, err
	}
	request.Payload = data[offset:]
	return &request, nil
}

func readCRLF(data []byte, offset *int) error {
	if len(data) < *offset+len(CRLF) {
		return C.ErrTruncatedHeader
	}
	if !bytes.Equal(data[*offset:*offset+len(CRLF)], CRLF) {
		return E.Extend(C.ErrMalformedHeader, "missing CRLF")
	}
	*offset += len(CRLF)
	return nil
}

func WriteRequest(buffer []byte, key [KeyLength]byte, command byte, destination M.Socksaddr, payload []byte) []byte {
	buffer = append(buffer, key[:]...)
	buffer = append(buffer, CRLF...)
	buffer = append(buffer, command)
	buffer = header.SocksAddress.Append(buffer, destination)
	buffer = append(buffer, CRLF...)
	return append(buffer, payload...)
}

// Sniff reports whether data starts with a hexadecimal key followed by CRLF.
func Sniff(data []byte) bool {
	if len(data) < KeyLength+len(CRLF) {
		return false
	}
	for _, b := range data[:KeyLength] {
		if !isHex(b) {
			return false
		}
	}
	return bytes.Equal(data[KeyLength:KeyLength+len(CRLF)], CRLF)
}

func isHex(b byte) bool {
	return '0' <= b && b <= '9' || 'a' <= b && b <= 'f' || 'A' <= b && b <= 'F'
}
