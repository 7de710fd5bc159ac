package link

import (
	"encoding/base64"
	"net"

	C "github.com/sagernet/sing-edge/constant"
	"github.com/sagernet/sing-edge/transport/shadowsocks"
	F "github.com/sagernet/sing/common/format"
)

var _ Link = (*SSLink)(nil)

// SSLink advertises the none method; the user part carries method and identifier.
type SSLink struct {
	options Options
}

func (l *SSLink) Type() string {
	return C.TypeShadowsocks
}

func (l *SSLink) TLS() bool {
	return l.options.TLS
}

func (l *SSLink) String() string {
	user := base64.StdEncoding.EncodeToString([]byte(shadowsocks.Method + ":" + l.options.UUID.String()))
	var sni string
	if l.options.TLS {
		sni = "&sni=" + l.options.Host
	}
	return F.ToString(
		"ss://", user, "@", net.JoinHostPort(l.options.Host, l.options.port()),
		"?encryption=none&type=ws&host=", l.options.Host,
		"&path=", l.options.path(),
		"&security=", l.options.security(),
		"&fp=random", sni,
		"#", Label(C.TypeShadowsocks, l.options.TLS),
	)
}
