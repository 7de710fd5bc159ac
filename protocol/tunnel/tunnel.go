package tunnel

import (
	"context"
	"io"
	"sync/atomic"
	"time"

	"github.com/sagernet/sing-edge/adapter"
	"github.com/sagernet/sing-edge/common/sniff"
	C "github.com/sagernet/sing-edge/constant"
	"github.com/sagernet/sing-edge/log"
	"github.com/sagernet/sing/common"
	E "github.com/sagernet/sing/common/exceptions"
	N "github.com/sagernet/sing/common/network"
)

var _ adapter.Tunnel = (*Tunnel)(nil)

type Options struct {
	Config      Config
	Protocols   []string
	IdleTimeout time.Duration
	AuthWindow  time.Duration
	TimeFunc    func() time.Time
	Dialer      N.Dialer
}

// Tunnel detects, authenticates and relays one client connection per NewConnection call.
type Tunnel struct {
	logger      log.ContextLogger
	config      Config
	dialer      N.Dialer
	validator   *Validator
	sniffers    []sniff.PacketSniffer
	idleTimeout time.Duration
}

func New(logger log.ContextLogger, options Options) (*Tunnel, error) {
	if options.Config.UUID.IsNil() {
		return nil, E.New("missing uuid")
	}
	if options.Dialer == nil {
		return nil, E.New("missing dialer")
	}
	authWindow := options.AuthWindow
	if authWindow == 0 {
		authWindow = C.VMessAuthWindow
	}
	validator := NewValidator(options.Config.UUID, authWindow, options.TimeFunc)
	sniffers := sniff.Sniffers(options.Protocols, validator)
	if len(sniffers) == 0 {
		return nil, E.Extend(C.ErrProtocolDisabled, "no protocol enabled")
	}
	if len(options.Protocols) == 0 || common.Contains(options.Protocols, C.TypeShadowsocks) {
		logger.Warn("shadowsocks accepts unauthenticated requests to any destination, list protocols to disable it")
	}
	return &Tunnel{
		logger:      logger,
		config:      options.Config,
		dialer:      options.Dialer,
		validator:   validator,
		sniffers:    sniffers,
		idleTimeout: options.IdleTimeout,
	}, nil
}

func (t *Tunnel) Config() Config {
	return t.config
}

// NewConnection runs one tunnel over channel and closes it on return. metadata.Egress,
// when valid, replaces the configured egress override for this connection only.
func (t *Tunnel) NewConnection(ctx context.Context, channel adapter.MessageChannel, metadata adapter.InboundContext) error {
	defer channel.Close()
	if _, loaded := log.IDFromContext(ctx); !loaded {
		ctx = log.ContextWithNewID(ctx)
	}
	t.logger.InfoContext(ctx, "inbound connection from ", metadata.Source)
	err := t.newConnection(ctx, channel, &metadata)
	if err != nil {
		if metadata.Protocol != "" {
			err = E.Cause(err, metadata.Protocol)
		}
		return E.Cause(err, "process connection from ", metadata.Source)
	}
	t.logger.InfoContext(ctx, "connection from ", metadata.Source, " closed, upload ", metadata.Uplink, " bytes, download ", metadata.Downlink, " bytes")
	return nil
}

func (t *Tunnel) newConnection(ctx context.Context, channel adapter.MessageChannel, metadata *adapter.InboundContext) error {
	message, err := t.readFirstMessage(ctx, channel)
	if err != nil {
		return err
	}
	protocol, err := sniff.Detect(ctx, message, t.sniffers...)
	if err != nil {
		return err
	}
	metadata.Protocol = protocol
	request, err := ReadRequest(protocol, message, t.validator)
	if err != nil {
		return err
	}
	metadata.Destination = request.Destination
	metadata.Credential = request.Credential
	metadata.Payload = request.Payload

	override := t.config.EgressOverride
	if metadata.Egress.IsValid() {
		override = metadata.Egress
	}
	metadata.Egress = ResolveEgress(request.Destination, override)
	t.logger.InfoContext(ctx, "inbound ", C.ProxyDisplayName(protocol), " connection to ", metadata.Destination)
	if metadata.Egress != metadata.Destination {
		t.logger.DebugContext(ctx, "egress override ", metadata.Egress)
	}

	egress, err := t.dialer.DialContext(ctx, N.NetworkTCP, metadata.Egress)
	if err != nil {
		return E.Extend(C.ErrEgressConnectFailed, "dial ", metadata.Egress, ": ", err)
	}
	if len(request.Response) > 0 {
		err = channel.WriteMessage(request.Response)
		if err != nil {
			egress.Close()
			return E.Extend(C.ErrRelayIO, "write response: ", err)
		}
	}
	metadata.Uplink, metadata.Downlink, err = Relay(ctx, t.logger, channel, egress, request, t.idleTimeout)
	return err
}

// readFirstMessage reads the message carrying the protocol header. The channel is closed
// when ctx is done or the handshake timeout passes before it arrives.
func (t *Tunnel) readFirstMessage(ctx context.Context, channel adapter.MessageChannel) ([]byte, error) {
	handshakeTimeout := C.TCPTimeout
	if t.idleTimeout > 0 && t.idleTimeout < handshakeTimeout {
		handshakeTimeout = t.idleTimeout
	}
	var timedOut atomic.Bool
	done := make(chan struct{})
	go func() {
		timer := time.NewTimer(handshakeTimeout)
		defer timer.Stop()
		select {
		case <-done:
			return
		case <-ctx.Done():
		case <-timer.C:
			timedOut.Store(true)
		}
		channel.Close()
	}()
	message, err := channel.ReadMessage()
	close(done)
	if err != nil {
		switch {
		case ctx.Err() != nil:
			return nil, E.Cause(ctx.Err(), "read first message")
		case timedOut.Load():
			return nil, E.Extend(C.ErrTruncatedHeader, "no header within ", handshakeTimeout)
		case err == io.EOF:
			return nil, C.ErrTruncatedHeader
		default:
			return nil, E.Cause(err, "read first message")
		}
	}
	return message, nil
}
