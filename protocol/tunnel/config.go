package tunnel

import (
	C "github.com/sagernet/sing-edge/constant"
	M "github.com/sagernet/sing/common/metadata"

	"github.com/gofrs/uuid/v5"
)

// Config is the per-connection configuration. It is never modified once a tunnel starts.
type Config struct {
	UUID           uuid.UUID
	Host           string
	EgressOverride M.Socksaddr
}

// DefaultEgressOverride returns the override applied when the route carries no token.
func DefaultEgressOverride(policy C.EgressPolicy, host string, address string, port uint16) M.Socksaddr {
	if policy == C.EgressPolicyDestination {
		return M.Socksaddr{}
	}
	if address == "" {
		address = host
	}
	if address == "" {
		return M.Socksaddr{}
	}
	if port == 0 {
		port = C.DefaultEgressPort
	}
	return M.ParseSocksaddrHostPort(address, port)
}
