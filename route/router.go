package route

import (
	"bytes"
	"context"
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"github.com/sagernet/sing-edge/adapter"
	"github.com/sagernet/sing-edge/common/link"
	C "github.com/sagernet/sing-edge/constant"
	"github.com/sagernet/sing-edge/log"
	"github.com/sagernet/sing-edge/protocol/tunnel"
	"github.com/sagernet/sing-edge/transport/v2raywebsocket"
	E "github.com/sagernet/sing/common/exceptions"
	M "github.com/sagernet/sing/common/metadata"
	N "github.com/sagernet/sing/common/network"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/gofrs/uuid/v5"
	"github.com/sagernet/cors"
)

type Options struct {
	UUID          uuid.UUID
	Host          string
	EgressPolicy  C.EgressPolicy
	EgressAddress string
	EgressPort    uint16
	Protocols     []string
	CamouflageURL string
}

// Router serves the share page, the tunnel endpoint and the camouflage site.
type Router struct {
	logger     log.ContextLogger
	options    Options
	transport  adapter.V2RayServerTransport
	camouflage *httputil.ReverseProxy
	handler    chi.Router
}

func NewRouter(logger log.ContextLogger, options Options, transport adapter.V2RayServerTransport, dialer N.Dialer) (*Router, error) {
	if options.CamouflageURL == "" {
		options.CamouflageURL = C.DefaultCamouflageURL
	}
	camouflageURL, err := url.Parse(options.CamouflageURL)
	if err != nil {
		return nil, E.Cause(err, "parse camouflage_url")
	}
	if camouflageURL.Scheme != "http" && camouflageURL.Scheme != "https" {
		return nil, E.New("unsupported camouflage_url scheme: ", camouflageURL.Scheme)
	}
	router := &Router{
		logger:    logger,
		options:   options,
		transport: transport,
	}
	router.camouflage = &httputil.ReverseProxy{
		Rewrite: func(request *httputil.ProxyRequest) {
			target := *camouflageURL
			request.Out.URL = &target
			request.Out.Host = target.Host
		},
		Transport: &http.Transport{
			DialContext: func(ctx context.Context, network, address string) (net.Conn, error) {
				return dialer.DialContext(ctx, network, M.ParseSocksaddr(address))
			},
			ForceAttemptHTTP2:   true,
			TLSHandshakeTimeout: C.TCPTimeout,
		},
		ErrorHandler: func(writer http.ResponseWriter, request *http.Request, err error) {
			logger.ErrorContext(request.Context(), E.Cause(err, "camouflage request"))
			writer.WriteHeader(http.StatusBadGateway)
		},
	}
	handler := chi.NewRouter()
	handler.Get("/", router.redirectLink)
	handler.Group(func(r chi.Router) {
		r.Use(cors.New(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{http.MethodGet},
			MaxAge:         300,
		}).Handler)
		r.Get("/link", router.linkPage)
	})
	handler.HandleFunc("/{token}", router.tunnel)
	handler.NotFound(router.camouflage.ServeHTTP)
	handler.MethodNotAllowed(router.camouflage.ServeHTTP)
	router.handler = handler
	return router, nil
}

func (r *Router) ServeHTTP(writer http.ResponseWriter, request *http.Request) {
	r.handler.ServeHTTP(writer, request)
}

func (r *Router) redirectLink(writer http.ResponseWriter, request *http.Request) {
	target := url.URL{Path: "/link", RawQuery: request.URL.RawQuery}
	http.Redirect(writer, request, target.String(), http.StatusFound)
}

func (r *Router) linkPage(writer http.ResponseWriter, request *http.Request) {
	links := link.All(link.Options{
		UUID: r.options.UUID,
		Host: r.host(request),
	}, r.options.Protocols)
	var buffer bytes.Buffer
	err := link.WritePage(&buffer, links)
	if err != nil {
		r.logger.ErrorContext(request.Context(), E.Cause(err, "render link page"))
		render.Status(request, http.StatusInternalServerError)
		render.PlainText(writer, request, http.StatusText(http.StatusInternalServerError))
		return
	}
	render.HTML(writer, request, buffer.String())
}

func (r *Router) tunnel(writer http.ResponseWriter, request *http.Request) {
	if !v2raywebsocket.IsUpgrade(request) {
		r.camouflage.ServeHTTP(writer, request)
		return
	}
	metadata := adapter.InboundContext{
		Egress: tunnel.DefaultEgressOverride(r.options.EgressPolicy, r.host(request), r.options.EgressAddress, r.options.EgressPort),
	}
	if egress, loaded := ParseEgressToken(chi.URLParam(request, "token")); loaded {
		metadata.Egress = egress
	}
	r.transport.ServeHTTP(writer, request.WithContext(adapter.WithContext(request.Context(), &metadata)))
}

// host returns the configured public host, or the host the request was sent to.
func (r *Router) host(request *http.Request) string {
	if r.options.Host != "" {
		return r.options.Host
	}
	host := request.Host
	if hostname, _, err := net.SplitHostPort(host); err == nil {
		host = hostname
	}
	return strings.Trim(host, "[]")
}
