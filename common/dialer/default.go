package dialer

import (
	"context"
	"net"
	"net/netip"
	"os"
	"time"

	C "github.com/sagernet/sing-edge/constant"
	"github.com/sagernet/sing-edge/option"
	E "github.com/sagernet/sing/common/exceptions"
	M "github.com/sagernet/sing/common/metadata"
	N "github.com/sagernet/sing/common/network"

	"github.com/database64128/tfo-go/v2"
)

var _ N.Dialer = (*DefaultDialer)(nil)

// DefaultDialer opens egress TCP streams. FQDN destinations are resolved by the system
// resolver at dial time.
type DefaultDialer struct {
	dialer tfo.Dialer
}

func NewDefault(options option.DialerOptions) (*DefaultDialer, error) {
	var dialer net.Dialer
	if options.ConnectTimeout != 0 {
		dialer.Timeout = time.Duration(options.ConnectTimeout)
	} else {
		dialer.Timeout = C.TCPTimeout
	}
	if options.TCPKeepAlive != 0 {
		dialer.KeepAlive = time.Duration(options.TCPKeepAlive)
	}
	if options.BindAddress != "" {
		bindAddr, err := netip.ParseAddr(options.BindAddress)
		if err != nil {
			return nil, E.Cause(err, "parse bind_address")
		}
		dialer.LocalAddr = &net.TCPAddr{IP: bindAddr.AsSlice()}
	}
	return &DefaultDialer{tfo.Dialer{Dialer: dialer, DisableTFO: !options.TCPFastOpen}}, nil
}

func (d *DefaultDialer) DialContext(ctx context.Context, network string, address M.Socksaddr) (net.Conn, error) {
	if !address.IsValid() || address.Port == 0 {
		return nil, E.New("invalid address: ", address)
	}
	switch N.NetworkName(network) {
	case N.NetworkTCP:
	default:
		return nil, E.New("unsupported network: ", network)
	}
	if d.dialer.DisableTFO {
		return d.dialer.Dialer.DialContext(ctx, network, address.String())
	}
	return d.dialer.DialContext(ctx, network, address.String(), nil)
}

func (d *DefaultDialer) ListenPacket(ctx context.Context, destination M.Socksaddr) (net.PacketConn, error) {
	return nil, os.ErrInvalid
}
