package sniff

import (
	"context"
	"os"

	"github.com/sagernet/sing-edge/adapter"
	C "github.com/sagernet/sing-edge/constant"
	"github.com/sagernet/sing-edge/transport/shadowsocks"
	"github.com/sagernet/sing-edge/transport/trojan"
	"github.com/sagernet/sing-edge/transport/vless"
	"github.com/sagernet/sing-edge/transport/vmess"
)

type AuthIDVerifier interface {
	VerifyAuthID(authID []byte) error
}

func VLESS(_ context.Context, metadata *adapter.InboundContext, packet []byte) error {
	if !vless.Sniff(packet) {
		return os.ErrInvalid
	}
	metadata.Protocol = C.TypeVLESS
	return nil
}

func Trojan(_ context.Context, metadata *adapter.InboundContext, packet []byte) error {
	if !trojan.Sniff(packet) {
		return os.ErrInvalid
	}
	metadata.Protocol = C.TypeTrojan
	return nil
}

func VMess(verifier AuthIDVerifier) PacketSniffer {
	return func(_ context.Context, metadata *adapter.InboundContext, packet []byte) error {
		if len(packet) < vmess.AuthIDLength {
			return os.ErrInvalid
		}
		err := verifier.VerifyAuthID(packet[:vmess.AuthIDLength])
		if err != nil {
			return err
		}
		metadata.Protocol = C.TypeVMess
		return nil
	}
}

func Shadowsocks(_ context.Context, metadata *adapter.InboundContext, packet []byte) error {
	if !shadowsocks.Sniff(packet) {
		return os.ErrInvalid
	}
	metadata.Protocol = C.TypeShadowsocks
	return nil
}
