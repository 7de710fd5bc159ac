package vmess

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"hash/fnv"
	"time"

	"github.com/sagernet/sing-edge/common/header"
	C "github.com/sagernet/sing-edge/constant"
	"github.com/sagernet/sing-vmess"
	"github.com/sagernet/sing/common"
	E "github.com/sagernet/sing/common/exceptions"
	M "github.com/sagernet/sing/common/metadata"
)

const Version = 1

const (
	SecurityAES128GCM        = vmess.SecurityTypeAes128Gcm
	SecurityChacha20Poly1305 = vmess.SecurityTypeChacha20Poly1305
	SecurityNone             = vmess.SecurityTypeNone
	SecurityZero             = vmess.SecurityTypeZero
)

const (
	OptionChunkStream         = vmess.RequestOptionChunkStream
	OptionChunkMasking        = vmess.RequestOptionChunkMasking
	OptionGlobalPadding       = vmess.RequestOptionGlobalPadding
	OptionAuthenticatedLength = vmess.RequestOptionAuthenticatedLength
)

const (
	connectionNonceLength = 8
	sealedLengthLength    = 2 + 16
	headerOffset          = AuthIDLength + sealedLengthLength + connectionNonceLength
	responseHeaderLength  = sealedLengthLength + 4 + 16
)

type Request struct {
	BodyIV         [16]byte
	BodyKey        [16]byte
	ResponseHeader byte
	Option         byte
	Security       byte
	Command        byte
	Destination    M.Socksaddr
	Payload        []byte
}

// ReadRequest opens an AEAD request header at the start of data. The auth id must already
// have been verified by the caller.
func ReadRequest(cmdKey [16]byte, data []byte) (*Request, error) {
	if len(data) < headerOffset {
		return nil, C.ErrTruncatedHeader
	}
	authID := data[:AuthIDLength]
	connectionNonce := data[AuthIDLength+sealedLengthLength : headerOffset]
	lengthCipher := newHeaderAEAD(cmdKey, vmess.KDFSaltConstVMessHeaderPayloadLengthAEADKey, authID, connectionNonce)
	lengthNonce := vmess.KDF(cmdKey[:], vmess.KDFSaltConstVMessHeaderPayloadLengthAEADIV, authID, connectionNonce)[:12]
	lengthBytes, err := lengthCipher.Open(nil, lengthNonce, data[AuthIDLength:AuthIDLength+sealedLengthLength], authID)
	if err != nil {
		return nil, E.Extend(C.ErrAuthenticationFailed, "open header length")
	}
	headerLength := int(binary.BigEndian.Uint16(lengthBytes))
	sealedHeaderEnd := headerOffset + headerLength + 16
	if len(data) < sealedHeaderEnd {
		return nil, C.ErrTruncatedHeader
	}
	headerCipher := newHeaderAEAD(cmdKey, vmess.KDFSaltConstVMessHeaderPayloadAEADKey, authID, connectionNonce)
	headerNonce := vmess.KDF(cmdKey[:], vmess.KDFSaltConstVMessHeaderPayloadAEADIV, authID, connectionNonce)[:12]
	plain, err := headerCipher.Open(nil, headerNonce, data[headerOffset:sealedHeaderEnd], authID)
	if err != nil {
		return nil, E.Extend(C.ErrAuthenticationFailed, "open header")
	}
	request, err := parseHeader(plain)
	if err != nil {
		return nil, err
	}
	request.Payload = data[sealedHeaderEnd:]
	return request, nil
}

// checkSecurity accepts the AEAD security types plus none and zero.
func checkSecurity(security byte) error {
	switch security {
	case SecurityAES128GCM, SecurityChacha20Poly1305, SecurityNone, SecurityZero:
		return nil
	default:
		return E.Extend(C.ErrMalformedHeader, "unsupported security: ", security)
	}
}

func parseHeader(plain []byte) (*Request, error) {
	const fixedLength = 1 + 16 + 16 + 1 + 1 + 1 + 1 + 1
	if len(plain) < fixedLength+4 {
		return nil, E.Extend(C.ErrMalformedHeader, "short header")
	}
	checksumOffset := len(plain) - 4
	h := fnv.New32a()
	common.Must1(h.Write(plain[:checksumOffset]))
	if h.Sum32() != binary.BigEndian.Uint32(plain[checksumOffset:]) {
		return nil, E.Extend(C.ErrMalformedHeader, "bad header checksum")
	}
	if plain[0] != Version {
		return nil, E.Extend(C.ErrMalformedHeader, "unknown version: ", plain[0])
	}
	var request Request
	copy(request.BodyIV[:], plain[1:17])
	copy(request.BodyKey[:], plain[17:33])
	request.ResponseHeader = plain[33]
	request.Option = plain[34]
	paddingLength := int(plain[35] >> 4)
	request.Security = plain[35] & 0x0f
	request.Command = plain[37]
	err := checkSecurity(request.Security)
	if err != nil {
		return nil, err
	}
	offset := fixedLength
	switch request.Command {
	case vmess.CommandTCP, vmess.CommandUDP:
		destination, addressLen, err := header.VMessAddress.Read(plain[offset:checksumOffset])
		if err != nil {
			return nil, E.Cause(C.ErrMalformedHeader, err)
		}
		request.Destination = destination
		offset += addressLen
	case vmess.CommandMux:
	default:
		return nil, E.Extend(C.ErrUnsupportedCommand, "unknown command: ", request.Command)
	}
	if offset+paddingLength != checksumOffset {
		return nil, E.Extend(C.ErrMalformedHeader, "bad header length")
	}
	return &request, nil
}

// WriteRequest seals a request header for request and appends it, followed by payload,
// to buffer. Payload must already be encoded for the request body security.
func WriteRequest(buffer []byte, cmdKey [16]byte, request Request, now time.Time, payload []byte) []byte {
	var padding [15]byte
	common.Must1(rand.Read(padding[:1]))
	paddingLength := int(padding[0] & 0x0f)
	common.Must1(rand.Read(padding[:paddingLength]))
	plain := []byte{Version}
	plain = append(plain, request.BodyIV[:]...)
	plain = append(plain, request.BodyKey[:]...)
	plain = append(plain, request.ResponseHeader, request.Option, byte(paddingLength<<4)|request.Security, 0, request.Command)
	if request.Command != vmess.CommandMux {
		plain = header.VMessAddress.Append(plain, request.Destination)
	}
	plain = append(plain, padding[:paddingLength]...)
	h := fnv.New32a()
	common.Must1(h.Write(plain))
	plain = binary.BigEndian.AppendUint32(plain, h.Sum32())

	authID := NewAuthIDDecoder(cmdKey, 0).Create(now)
	var connectionNonce [connectionNonceLength]byte
	common.Must1(rand.Read(connectionNonce[:]))
	lengthCipher := newHeaderAEAD(cmdKey, vmess.KDFSaltConstVMessHeaderPayloadLengthAEADKey, authID[:], connectionNonce[:])
	lengthNonce := vmess.KDF(cmdKey[:], vmess.KDFSaltConstVMessHeaderPayloadLengthAEADIV, authID[:], connectionNonce[:])[:12]
	headerCipher := newHeaderAEAD(cmdKey, vmess.KDFSaltConstVMessHeaderPayloadAEADKey, authID[:], connectionNonce[:])
	headerNonce := vmess.KDF(cmdKey[:], vmess.KDFSaltConstVMessHeaderPayloadAEADIV, authID[:], connectionNonce[:])[:12]

	buffer = append(buffer, authID[:]...)
	buffer = lengthCipher.Seal(buffer, lengthNonce, binary.BigEndian.AppendUint16(nil, uint16(len(plain))), authID[:])
	buffer = append(buffer, connectionNonce[:]...)
	buffer = headerCipher.Seal(buffer, headerNonce, plain, authID[:])
	return append(buffer, payload...)
}

func newHeaderAEAD(cmdKey [16]byte, salt string, authID []byte, connectionNonce []byte) cipher.AEAD {
	block, err := aes.NewCipher(vmess.KDF(cmdKey[:], salt, authID, connectionNonce)[:16])
	common.Must(err)
	aead, err := cipher.NewGCM(block)
	common.Must(err)
	return aead
}

// ResponseKey returns the key and iv protecting the downlink direction.
func (r *Request) ResponseKey() (key [16]byte, iv [16]byte) {
	keyHash := sha256.Sum256(r.BodyKey[:])
	ivHash := sha256.Sum256(r.BodyIV[:])
	copy(key[:], keyHash[:16])
	copy(iv[:], ivHash[:16])
	return
}

// Response seals the response header sent before any downlink data.
func (r *Request) Response() []byte {
	key, iv := r.ResponseKey()
	buffer := make([]byte, 0, responseHeaderLength)
	lengthCipher := newResponseAEAD(vmess.KDF(key[:], vmess.KDFSaltConstAEADRespHeaderLenKey)[:16])
	buffer = lengthCipher.Seal(buffer, vmess.KDF(iv[:], vmess.KDFSaltConstAEADRespHeaderLenIV)[:12], []byte{0, 4}, nil)
	headerCipher := newResponseAEAD(vmess.KDF(key[:], vmess.KDFSaltConstAEADRespHeaderPayloadKey)[:16])
	return headerCipher.Seal(buffer, vmess.KDF(iv[:], vmess.KDFSaltConstAEADRespHeaderPayloadIV)[:12], []byte{r.ResponseHeader, 0, 0, 0}, nil)
}

// ReadResponse opens a response header and returns the bytes after it.
func (r *Request) ReadResponse(data []byte) ([]byte, error) {
	if len(data) < responseHeaderLength {
		return nil, C.ErrTruncatedHeader
	}
	key, iv := r.ResponseKey()
	lengthCipher := newResponseAEAD(vmess.KDF(key[:], vmess.KDFSaltConstAEADRespHeaderLenKey)[:16])
	lengthBytes, err := lengthCipher.Open(nil, vmess.KDF(iv[:], vmess.KDFSaltConstAEADRespHeaderLenIV)[:12], data[:sealedLengthLength], nil)
	if err != nil {
		return nil, E.Cause(err, "open response length")
	}
	if binary.BigEndian.Uint16(lengthBytes) != 4 {
		return nil, E.New("unexpected response length")
	}
	headerCipher := newResponseAEAD(vmess.KDF(key[:], vmess.KDFSaltConstAEADRespHeaderPayloadKey)[:16])
	plain, err := headerCipher.Open(nil, vmess.KDF(iv[:], vmess.KDFSaltConstAEADRespHeaderPayloadIV)[:12], data[sealedLengthLength:responseHeaderLength], nil)
	if err != nil {
		return nil, E.Cause(err, "open response header")
	}
	if plain[0] != r.ResponseHeader {
		return nil, E.New("bad response header")
	}
	return data[responseHeaderLength:], nil
}

func newResponseAEAD(key []byte) cipher.AEAD {
	block, err := aes.NewCipher(key)
	common.Must(err)
	aead, err := cipher.NewGCM(block)
	common.Must(err)
	return aead
}
