package v2raywebsocket

import (
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/sagernet/sing-edge/adapter"
	C "github.com/sagernet/sing-edge/constant"
	"github.com/sagernet/sing-edge/log"
	"github.com/sagernet/sing-edge/option"
	E "github.com/sagernet/sing/common/exceptions"
	N "github.com/sagernet/sing/common/network"
	sHttp "github.com/sagernet/sing/protocol/http"
	"github.com/sagernet/ws"
)

var _ adapter.V2RayServerTransport = (*Server)(nil)

type Server struct {
	logger              log.ContextLogger
	handler             adapter.Tunnel
	maxEarlyData        uint32
	earlyDataHeaderName string
	maxMessageSize      int64
}

func NewServer(logger log.ContextLogger, options option.V2RayWebsocketOptions, handler adapter.Tunnel) *Server {
	server := &Server{
		logger:              logger,
		handler:             handler,
		maxEarlyData:        options.MaxEarlyData,
		earlyDataHeaderName: options.EarlyDataHeaderName,
		maxMessageSize:      int64(options.MaxMessageSize),
	}
	if server.earlyDataHeaderName == "" {
		server.earlyDataHeaderName = C.V2RayWebsocketEarlyDataHeader
	}
	return server
}

// IsUpgrade reports whether request asks for a WebSocket upgrade.
func IsUpgrade(request *http.Request) bool {
	return strings.EqualFold(request.Header.Get("Upgrade"), "websocket")
}

func (s *Server) ServeHTTP(writer http.ResponseWriter, request *http.Request) {
	ctx := log.ContextWithNewID(request.Context())
	var (
		earlyData []byte
		err       error
	)
	earlyDataString := request.Header.Get(s.earlyDataHeaderName)
	if earlyDataString != "" {
		earlyData, err = decodeEarlyData(earlyDataString)
		if err != nil {
			s.invalidRequest(writer, request, http.StatusBadRequest, E.Cause(err, "decode early data"))
			return
		}
		if s.maxEarlyData > 0 && len(earlyData) > int(s.maxEarlyData) {
			s.invalidRequest(writer, request, http.StatusBadRequest, E.New("early data too large: ", len(earlyData)))
			return
		}
	}
	upgrader := ws.HTTPUpgrader{
		Timeout: C.TCPTimeout,
	}
	if earlyDataString != "" && strings.EqualFold(s.earlyDataHeaderName, C.V2RayWebsocketEarlyDataHeader) {
		upgrader.Protocol = func(protocol string) bool {
			return protocol == earlyDataString
		}
	}
	conn, rw, _, err := upgrader.Upgrade(request, writer)
	if err != nil {
		s.logger.ErrorContext(ctx, E.Cause(err, "upgrade websocket connection from ", request.RemoteAddr))
		return
	}
	var metadata adapter.InboundContext
	if routeMetadata := adapter.ContextFrom(request.Context()); routeMetadata != nil {
		metadata = *routeMetadata
	}
	metadata.Inbound = C.V2RayTransportTypeWebsocket
	metadata.Network = N.NetworkTCP
	metadata.Source = sHttp.SourceAddress(request)
	err = s.handler.NewConnection(ctx, NewServerChannel(conn, rw, earlyData, s.maxMessageSize), metadata)
	if err != nil && !E.IsClosedOrCanceled(err) {
		s.logger.ErrorContext(ctx, err)
	}
}

func (s *Server) invalidRequest(writer http.ResponseWriter, request *http.Request, statusCode int, err error) {
	if statusCode > 0 {
		writer.WriteHeader(statusCode)
	}
	s.logger.ErrorContext(request.Context(), E.Cause(err, "process connection from ", request.RemoteAddr))
}

func (s *Server) Network() []string {
	return []string{N.NetworkTCP}
}

func decodeEarlyData(value string) ([]byte, error) {
	value = strings.TrimRight(strings.TrimSpace(value), "=")
	value = strings.NewReplacer("+", "-", "/", "_").Replace(value)
	data, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil || len(data) == 0 {
		return nil, err
	}
	return data, nil
}
