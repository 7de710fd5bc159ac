package adapter

import (
	"context"

	M "github.com/sagernet/sing/common/metadata"
)

type InboundContext struct {
	Inbound     string
	Network     string
	Source      M.Socksaddr
	Destination M.Socksaddr
	Protocol    string
	User        string

	// Egress is the override endpoint decoded by the router; invalid when unset.
	Egress     M.Socksaddr
	Credential []byte
	Payload    []byte

	Uplink   int64
	Downlink int64
}

type inboundContextKey struct{}

func WithContext(ctx context.Context, inboundContext *InboundContext) context.Context {
	return context.WithValue(ctx, (*inboundContextKey)(nil), inboundContext)
}

func ContextFrom(ctx context.Context) *InboundContext {
	metadata := ctx.Value((*inboundContextKey)(nil))
	if metadata == nil {
		return nil
	}
	return metadata.(*InboundContext)
}
