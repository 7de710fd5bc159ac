package header

import (
	"bytes"
	"encoding/binary"

	C "github.com/sagernet/sing-edge/constant"
	"github.com/sagernet/sing-vmess"
	E "github.com/sagernet/sing/common/exceptions"
	M "github.com/sagernet/sing/common/metadata"
)

// AddressLayout describes one wire encoding of an address record.
type AddressLayout struct {
	Serializer *M.Serializer
	PortFirst  bool
	IPv4       byte
	FQDN       byte
	IPv6       byte
}

var (
	// VMessAddress is shared by VLESS and VMess: port, type (1, 2, 3), address.
	VMessAddress = AddressLayout{
		Serializer: vmess.AddressSerializer,
		PortFirst:  true,
		IPv4:       1,
		FQDN:       2,
		IPv6:       3,
	}
	// SocksAddress is used by Trojan and Shadowsocks: type (1, 3, 4), address, port.
	SocksAddress = AddressLayout{
		Serializer: M.SocksaddrSerializer,
		IPv4:       1,
		FQDN:       3,
		IPv6:       4,
	}
)

// Len returns the length of the address record at the start of data.
func (l AddressLayout) Len(data []byte) (int, error) {
	typeIndex := 0
	if l.PortFirst {
		typeIndex = 2
	}
	if len(data) <= typeIndex {
		return 0, C.ErrTruncatedHeader
	}
	var addressLen int
	switch data[typeIndex] {
	case l.IPv4:
		addressLen = 4
	case l.IPv6:
		addressLen = 16
	case l.FQDN:
		if len(data) <= typeIndex+1 {
			return 0, C.ErrTruncatedHeader
		}
		if data[typeIndex+1] == 0 {
			return 0, E.Extend(C.ErrMalformedHeader, "empty domain")
		}
		addressLen = 1 + int(data[typeIndex+1])
	default:
		return 0, E.Extend(C.ErrMalformedHeader, "unknown address type ", data[typeIndex])
	}
	recordLen := 1 + addressLen + 2
	if len(data) < recordLen {
		return 0, C.ErrTruncatedHeader
	}
	return recordLen, nil
}

// Read decodes the address record at the start of data and returns the bytes consumed.
func (l AddressLayout) Read(data []byte) (M.Socksaddr, int, error) {
	recordLen, err := l.Len(data)
	if err != nil {
		return M.Socksaddr{}, 0, err
	}
	destination, err := l.Serializer.ReadAddrPort(bytes.NewReader(data[:recordLen]))
	if err != nil {
		return M.Socksaddr{}, 0, E.Cause(C.ErrMalformedHeader, err)
	}
	if destination.Port == 0 {
		return M.Socksaddr{}, 0, E.Extend(C.ErrMalformedHeader, "zero port")
	}
	return destination, recordLen, nil
}

// Append encodes destination in this layout.
func (l AddressLayout) Append(buffer []byte, destination M.Socksaddr) []byte {
	var port [2]byte
	binary.BigEndian.PutUint16(port[:], destination.Port)
	if l.PortFirst {
		buffer = append(buffer, port[:]...)
	}
	switch {
	case destination.IsFqdn():
		buffer = append(buffer, l.FQDN, byte(len(destination.Fqdn)))
		buffer = append(buffer, destination.Fqdn...)
	case destination.Addr.Is4():
		addr := destination.Addr.As4()
		buffer = append(buffer, l.IPv4)
		buffer = append(buffer, addr[:]...)
	default:
		addr := destination.Addr.As16()
		buffer = append(buffer, l.IPv6)
		buffer = append(buffer, addr[:]...)
	}
	if !l.PortFirst {
		buffer = append(buffer, port[:]...)
	}
	return buffer
}
