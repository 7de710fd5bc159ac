package link

import (
	"net"
	"strings"

	C "github.com/sagernet/sing-edge/constant"
)

var (
	_ Link = (*VLESSLink)(nil)
	_ Link = (*TrojanLink)(nil)
)

type VLESSLink struct {
	options Options
}

func (l *VLESSLink) Type() string {
	return C.TypeVLESS
}

func (l *VLESSLink) TLS() bool {
	return l.options.TLS
}

func (l *VLESSLink) String() string {
	return websocketURI("vless", l.options.UUID.String(), l.options, Label(C.TypeVLESS, l.options.TLS))
}

// TrojanLink uses the trust identifier as password.
type TrojanLink struct {
	options Options
}

func (l *TrojanLink) Type() string {
	return C.TypeTrojan
}

func (l *TrojanLink) TLS() bool {
	return l.options.TLS
}

func (l *TrojanLink) String() string {
	return websocketURI("trojan", l.options.UUID.String(), l.options, Label(C.TypeTrojan, l.options.TLS))
}

func websocketURI(scheme string, user string, options Options, label string) string {
	var builder strings.Builder
	builder.WriteString(scheme)
	builder.WriteString("://")
	builder.WriteString(user)
	builder.WriteString("@")
	builder.WriteString(net.JoinHostPort(options.Host, options.port()))
	builder.WriteString("?type=ws&security=")
	builder.WriteString(options.security())
	builder.WriteString("&host=")
	builder.WriteString(options.Host)
	builder.WriteString("&sni=")
	builder.WriteString(options.Host)
	builder.WriteString("&path=")
	builder.WriteString(options.path())
	builder.WriteString("#")
	builder.WriteString(label)
	return builder.String()
}
