package option

import (
	"github.com/sagernet/sing/common/json/badoption"
)

type ListenOptions struct {
	Listen     string `json:"listen,omitempty"`
	ListenPort uint16 `json:"listen_port,omitempty"`
}

type TunnelInboundOptions struct {
	ListenOptions
	UUID          string                     `json:"uuid"`
	Host          string                     `json:"host,omitempty"`
	EgressPolicy  string                     `json:"egress_policy,omitempty"`
	EgressAddress string                     `json:"egress_address,omitempty"`
	EgressPort    uint16                     `json:"egress_port,omitempty"`
	// Protocols restricts detection to the listed protocols. Empty enables all of them,
	// including shadowsocks with the none method, which carries no credential.
	Protocols     badoption.Listable[string] `json:"protocols,omitempty"`
	IdleTimeout   badoption.Duration         `json:"idle_timeout,omitempty"`
	CamouflageURL string                     `json:"camouflage_url,omitempty"`
	Transport     V2RayWebsocketOptions      `json:"transport,omitempty"`
}

type V2RayWebsocketOptions struct {
	MaxEarlyData        uint32 `json:"max_early_data,omitempty"`
	EarlyDataHeaderName string `json:"early_data_header_name,omitempty"`
	MaxMessageSize      uint32 `json:"max_message_size,omitempty"`
}

type DialerOptions struct {
	ConnectTimeout badoption.Duration `json:"connect_timeout,omitempty"`
	TCPKeepAlive   badoption.Duration `json:"tcp_keep_alive,omitempty"`
	BindAddress    string             `json:"bind_address,omitempty"`
	TCPFastOpen    bool               `json:"tcp_fast_open,omitempty"`
}
