package link

import (
	"strings"

	C "github.com/sagernet/sing-edge/constant"
	E "github.com/sagernet/sing/common/exceptions"

	"github.com/gofrs/uuid/v5"
	"golang.org/x/net/idna"
)

// DefaultPath is the tunnel path advertised in links. It does not match the override
// token grammar, so clients using it get the default egress.
const DefaultPath = "/proxyIP-proxyPort"

const labelPrefix = "[XSM]"

// Link is a client share link for one protocol over WebSocket.
type Link interface {
	Type() string
	TLS() bool
	String() string
}

type Options struct {
	UUID uuid.UUID
	Host string
	TLS  bool
	Path string
}

func (o Options) port() string {
	if o.TLS {
		return "443"
	}
	return "80"
}

func (o Options) security() string {
	if o.TLS {
		return "tls"
	}
	return "none"
}

func (o Options) path() string {
	if o.Path == "" {
		return DefaultPath
	}
	return o.Path
}

// Label returns the display name of a link, e.g. [XSM]-VLESS-TLS.
func Label(proxyType string, tls bool) string {
	name := strings.ToUpper(proxyType)
	if proxyType == C.TypeShadowsocks {
		name = "SS"
	}
	if tls {
		return labelPrefix + "-" + name + "-TLS"
	}
	return labelPrefix + "-" + name + "-NTLS"
}

// NormalizeHost converts an internationalized host name to its ASCII form.
func NormalizeHost(host string) string {
	normalized, err := idna.Lookup.ToASCII(host)
	if err != nil {
		return host
	}
	return normalized
}

func New(proxyType string, options Options) (Link, error) {
	options.Host = NormalizeHost(options.Host)
	switch proxyType {
	case C.TypeVMess:
		return NewVMess(options), nil
	case C.TypeVLESS:
		return &VLESSLink{options}, nil
	case C.TypeTrojan:
		return &TrojanLink{options}, nil
	case C.TypeShadowsocks:
		return &SSLink{options}, nil
	default:
		return nil, E.New("unknown proxy type: ", proxyType)
	}
}

// All returns the TLS and plain links of every protocol in protocols, in page order.
// An empty list selects every protocol.
func All(options Options, protocols []string) []Link {
	enabled := make(map[string]bool)
	for _, protocol := range protocols {
		enabled[protocol] = true
	}
	var links []Link
	for _, proxyType := range []string{C.TypeVMess, C.TypeVLESS, C.TypeTrojan, C.TypeShadowsocks} {
		if len(enabled) > 0 && !enabled[proxyType] {
			continue
		}
		for _, tls := range []bool{true, false} {
			options.TLS = tls
			link, _ := New(proxyType, options)
			links = append(links, link)
		}
	}
	return links
}
