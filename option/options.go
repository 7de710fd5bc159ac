package option

import (
	"bytes"
	"context"

	C "github.com/sagernet/sing-edge/constant"
	E "github.com/sagernet/sing/common/exceptions"
	"github.com/sagernet/sing/common/json"

	"github.com/gofrs/uuid/v5"
)

type _Options struct {
	RawMessage json.RawMessage      `json:"-"`
	Schema     string               `json:"$schema,omitempty"`
	Log        *LogOptions          `json:"log,omitempty"`
	Inbound    TunnelInboundOptions `json:"inbound"`
	Dialer     DialerOptions        `json:"dialer,omitempty"`
}

type Options _Options

func (o *Options) UnmarshalJSONContext(ctx context.Context, content []byte) error {
	decoder := json.NewDecoderContext(ctx, bytes.NewReader(content))
	decoder.DisallowUnknownFields()
	err := decoder.Decode((*_Options)(o))
	if err != nil {
		return err
	}
	o.RawMessage = content
	return nil
}

type LogOptions struct {
	Disabled     bool   `json:"disabled,omitempty"`
	Level        string `json:"level,omitempty"`
	Output       string `json:"output,omitempty"`
	Timestamp    bool   `json:"timestamp,omitempty"`
	DisableColor bool   `json:"-"`
}

// CheckOptions validates options after environment overrides are applied.
func CheckOptions(options *Options) error {
	inbound := options.Inbound
	if inbound.UUID == "" {
		return E.New("missing uuid")
	}
	_, err := uuid.FromString(inbound.UUID)
	if err != nil {
		return E.Cause(err, "parse uuid")
	}
	if inbound.EgressPolicy != "" {
		if _, loaded := C.StringToEgressPolicy[inbound.EgressPolicy]; !loaded {
			return E.New("unknown egress policy: ", inbound.EgressPolicy)
		}
	}
	seen := make(map[string]bool)
	for _, protocol := range inbound.Protocols {
		switch protocol {
		case C.TypeVLESS, C.TypeVMess, C.TypeTrojan, C.TypeShadowsocks:
		default:
			return E.New("unknown protocol: ", protocol)
		}
		if seen[protocol] {
			return E.New("duplicate protocol: ", protocol)
		}
		seen[protocol] = true
	}
	return nil
}
