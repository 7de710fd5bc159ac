package sniff

import (
	"context"

	"github.com/sagernet/sing-edge/adapter"
	C "github.com/sagernet/sing-edge/constant"
	E "github.com/sagernet/sing/common/exceptions"
)

type PacketSniffer = func(ctx context.Context, metadata *adapter.InboundContext, packet []byte) error

func PeekPacket(ctx context.Context, metadata *adapter.InboundContext, packet []byte, sniffers ...PacketSniffer) error {
	var errors []error
	for _, sniffer := range sniffers {
		err := sniffer(ctx, metadata, packet)
		if err == nil {
			return nil
		}
		errors = append(errors, err)
	}
	return E.Errors(errors...)
}

// Detect classifies the first message of a tunnel. The packet is not modified.
func Detect(ctx context.Context, packet []byte, sniffers ...PacketSniffer) (string, error) {
	var metadata adapter.InboundContext
	err := PeekPacket(ctx, &metadata, packet, sniffers...)
	if err != nil || metadata.Protocol == "" {
		return "", C.ErrDetectionFailed
	}
	return metadata.Protocol, nil
}

// Sniffers returns the sniffers of the enabled protocols in priority order. An empty
// list enables every protocol.
func Sniffers(protocols []string, verifier AuthIDVerifier) []PacketSniffer {
	enabled := make(map[string]bool)
	for _, protocol := range protocols {
		enabled[protocol] = true
	}
	var sniffers []PacketSniffer
	for _, protocol := range C.ProxyTypes {
		if len(enabled) > 0 && !enabled[protocol] {
			continue
		}
		switch protocol {
		case C.TypeVLESS:
			sniffers = append(sniffers, VLESS)
		case C.TypeTrojan:
			sniffers = append(sniffers, Trojan)
		case C.TypeVMess:
			sniffers = append(sniffers, VMess(verifier))
		case C.TypeShadowsocks:
			sniffers = append(sniffers, Shadowsocks)
		}
	}
	return sniffers
}
