package link

import (
	"encoding/base64"

	C "github.com/sagernet/sing-edge/constant"
	"github.com/sagernet/sing/common"
	"github.com/sagernet/sing/common/json"
)

var _ Link = (*VMessLink)(nil)

// vmessConfig is the v2rayN style share object.
type vmessConfig struct {
	Ver      string `json:"v"`
	Ps       string `json:"ps"`
	Add      string `json:"add"`
	Port     string `json:"port"`
	ID       string `json:"id"`
	Aid      string `json:"aid"`
	Security string `json:"scy"`
	Net      string `json:"net"`
	Type     string `json:"type"`
	Host     string `json:"host"`
	Path     string `json:"path"`
	TLS      string `json:"tls"`
	SNI      string `json:"sni"`
	ALPN     string `json:"alpn"`
}

type VMessLink struct {
	options Options
	config  vmessConfig
}

func NewVMess(options Options) *VMessLink {
	config := vmessConfig{
		Ver:      "2",
		Ps:       Label(C.TypeVMess, options.TLS),
		Add:      options.Host,
		Port:     options.port(),
		ID:       options.UUID.String(),
		Aid:      "0",
		Security: "zero",
		Net:      C.V2RayTransportTypeWebsocket,
		Type:     "none",
		Host:     options.Host,
		Path:     options.path(),
		SNI:      options.Host,
	}
	if options.TLS {
		config.TLS = "tls"
	}
	return &VMessLink{options, config}
}

func (l *VMessLink) Type() string {
	return C.TypeVMess
}

func (l *VMessLink) TLS() bool {
	return l.options.TLS
}

func (l *VMessLink) String() string {
	content := common.Must1(json.Marshal(l.config))
	return "vmess://" + base64.URLEncoding.EncodeToString(content)
}
