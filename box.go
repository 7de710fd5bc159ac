package box

import (
	"context"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/sagernet/sing-edge/adapter"
	"github.com/sagernet/sing-edge/common/dialer"
	C "github.com/sagernet/sing-edge/constant"
	"github.com/sagernet/sing-edge/log"
	"github.com/sagernet/sing-edge/option"
	"github.com/sagernet/sing-edge/protocol/tunnel"
	"github.com/sagernet/sing-edge/route"
	"github.com/sagernet/sing-edge/transport/v2raywebsocket"
	"github.com/sagernet/sing/common"
	E "github.com/sagernet/sing/common/exceptions"
	F "github.com/sagernet/sing/common/format"
	M "github.com/sagernet/sing/common/metadata"

	"github.com/gofrs/uuid/v5"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

var _ adapter.Service = (*Box)(nil)

type Box struct {
	createdAt  time.Time
	ctx        context.Context
	logFactory log.Factory
	logger     log.ContextLogger
	tunnel     *tunnel.Tunnel
	router     *route.Router
	listen     M.Socksaddr
	httpServer *http.Server
	listener   net.Listener
	done       chan struct{}
}

type Options struct {
	option.Options
	Context   context.Context
	LogWriter io.Writer
}

func New(options Options) (*Box, error) {
	createdAt := time.Now()
	ctx := options.Context
	if ctx == nil {
		ctx = context.Background()
	}
	logFactory, err := log.New(log.Options{
		Options:       common.PtrValueOrDefault(options.Log),
		DefaultWriter: options.LogWriter,
		BaseTime:      createdAt,
	})
	if err != nil {
		return nil, E.Cause(err, "create log factory")
	}
	inboundOptions := options.Inbound
	userID, err := uuid.FromString(inboundOptions.UUID)
	if err != nil {
		return nil, E.Cause(err, "parse uuid")
	}
	egressPolicy, loaded := C.StringToEgressPolicy[inboundOptions.EgressPolicy]
	if !loaded && inboundOptions.EgressPolicy != "" {
		return nil, E.New("unknown egress policy: ", inboundOptions.EgressPolicy)
	}
	outboundDialer, err := dialer.New(options.Dialer)
	if err != nil {
		return nil, E.Cause(err, "create dialer")
	}
	idleTimeout := time.Duration(inboundOptions.IdleTimeout)
	if idleTimeout == 0 {
		idleTimeout = C.TCPIdleTimeout
	}
	tunnelService, err := tunnel.New(logFactory.NewLogger("tunnel"), tunnel.Options{
		Config: tunnel.Config{
			UUID:           userID,
			Host:           inboundOptions.Host,
			EgressOverride: tunnel.DefaultEgressOverride(egressPolicy, inboundOptions.Host, inboundOptions.EgressAddress, inboundOptions.EgressPort),
		},
		Protocols:   inboundOptions.Protocols,
		IdleTimeout: idleTimeout,
		Dialer:      outboundDialer,
	})
	if err != nil {
		return nil, E.Cause(err, "create tunnel")
	}
	transport := v2raywebsocket.NewServer(logFactory.NewLogger("transport/ws"), inboundOptions.Transport, tunnelService)
	router, err := route.NewRouter(logFactory.NewLogger("router"), route.Options{
		UUID:          userID,
		Host:          inboundOptions.Host,
		EgressPolicy:  egressPolicy,
		EgressAddress: inboundOptions.EgressAddress,
		EgressPort:    inboundOptions.EgressPort,
		Protocols:     inboundOptions.Protocols,
		CamouflageURL: inboundOptions.CamouflageURL,
	}, transport, outboundDialer)
	if err != nil {
		return nil, E.Cause(err, "create router")
	}
	listenPort := inboundOptions.ListenPort
	if listenPort == 0 {
		listenPort = C.DefaultListenPort
	}
	return &Box{
		createdAt:  createdAt,
		ctx:        ctx,
		logFactory: logFactory,
		logger:     logFactory.Logger(),
		tunnel:     tunnelService,
		router:     router,
		listen:     M.ParseSocksaddrHostPort(inboundOptions.Listen, listenPort),
		httpServer: &http.Server{
			Handler:           h2c.NewHandler(router, &http2.Server{}),
			ReadHeaderTimeout: C.TCPTimeout,
			BaseContext: func(net.Listener) context.Context {
				return ctx
			},
		},
		done: make(chan struct{}),
	}, nil
}

func (s *Box) Start() error {
	listener, err := net.Listen("tcp", s.listen.String())
	if err != nil {
		return E.Cause(err, "listen on ", s.listen)
	}
	s.listener = listener
	s.logger.Info("http server started at ", listener.Addr())
	go func() {
		err := s.httpServer.Serve(listener)
		if err != nil && !E.IsClosedOrCanceled(err) && err != http.ErrServerClosed {
			s.logger.Error(E.Cause(err, "serve http"))
		}
	}()
	s.logger.Info("sing-edge started (", F.Seconds(time.Since(s.createdAt).Seconds()), "s)")
	return nil
}

func (s *Box) Close() error {
	select {
	case <-s.done:
		return net.ErrClosed
	default:
		close(s.done)
	}
	var errors error
	if s.listener != nil {
		ctx, cancel := context.WithTimeout(context.Background(), C.StopTimeout)
		err := s.httpServer.Shutdown(ctx)
		cancel()
		if err != nil {
			errors = E.Errors(errors, common.Close(s.httpServer), E.Cause(err, "shutdown http server"))
		}
	}
	s.logger.Info("sing-edge closed")
	return E.Errors(errors, common.Close(s.logFactory))
}

// Addr returns the bound listener address, or nil before Start.
func (s *Box) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

func (s *Box) Tunnel() *tunnel.Tunnel {
	return s.tunnel
}
