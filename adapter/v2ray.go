package adapter

import (
	"net/http"
)

// V2RayServerTransport accepts upgrade requests and hands every resulting channel to a
// Tunnel. Metadata placed in the request context with WithContext is passed along.
type V2RayServerTransport interface {
	http.Handler
	Network() []string
}
