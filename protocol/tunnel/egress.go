package tunnel

import (
	M "github.com/sagernet/sing/common/metadata"
)

// ResolveEgress returns the endpoint to dial: the override when one is set, otherwise the
// requested destination.
func ResolveEgress(destination M.Socksaddr, override M.Socksaddr) M.Socksaddr {
	if override.IsValid() && override.Port != 0 {
		return override
	}
	return destination
}
