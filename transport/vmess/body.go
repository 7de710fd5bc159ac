package vmess

import (
	"io"

	"github.com/sagernet/sing-vmess"
	"github.com/sagernet/sing/common/bufio"
)

// NewReader decodes the uplink body sent by the client.
func (r *Request) NewReader(upstream io.Reader) (io.Reader, error) {
	return r.newReader(upstream, r.BodyKey[:], r.BodyIV[:])
}

// NewWriter encodes the downlink body sent to the client.
func (r *Request) NewWriter(upstream io.Writer) (io.Writer, error) {
	key, iv := r.ResponseKey()
	return r.newWriter(upstream, key[:], iv[:])
}

// NewClientWriter encodes an uplink body, as a client would.
func (r *Request) NewClientWriter(upstream io.Writer) (io.Writer, error) {
	return r.newWriter(upstream, r.BodyKey[:], r.BodyIV[:])
}

// NewClientReader decodes a downlink body, as a client would.
func (r *Request) NewClientReader(upstream io.Reader) (io.Reader, error) {
	key, iv := r.ResponseKey()
	return r.newReader(upstream, key[:], iv[:])
}

func (r *Request) passthrough() bool {
	return r.Security == SecurityZero || r.Security == SecurityNone && r.Option&OptionChunkStream == 0
}

func (r *Request) newReader(upstream io.Reader, key []byte, iv []byte) (io.Reader, error) {
	if r.passthrough() {
		return upstream, nil
	}
	err := checkSecurity(r.Security)
	if err != nil {
		return nil, err
	}
	reader := vmess.CreateReader(upstream, nil, r.BodyKey[:], r.BodyIV[:], key, iv, r.Security, r.Option)
	if r.Option&OptionChunkStream != 0 {
		reader = bufio.NewChunkReader(reader, vmess.ReadChunkSize)
	}
	return reader, nil
}

func (r *Request) newWriter(upstream io.Writer, key []byte, iv []byte) (io.Writer, error) {
	if r.passthrough() {
		return upstream, nil
	}
	err := checkSecurity(r.Security)
	if err != nil {
		return nil, err
	}
	writer := vmess.CreateWriter(upstream, nil, r.BodyKey[:], r.BodyIV[:], key, iv, r.Security, r.Option)
	if r.Security == SecurityNone {
		writer = bufio.NewChunkWriter(writer, vmess.WriteChunkSize)
	}
	return writer, nil
}
