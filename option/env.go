package option

import (
	"strconv"

	E "github.com/sagernet/sing/common/exceptions"
)

// ApplyEnvironment overrides inbound options with UUID, HOST, PROXYIP, PROXYPORT and LISTEN.
func (o *Options) ApplyEnvironment(lookup func(key string) (string, bool)) error {
	if value, loaded := lookup("UUID"); loaded && value != "" {
		o.Inbound.UUID = value
	}
	if value, loaded := lookup("HOST"); loaded && value != "" {
		o.Inbound.Host = value
	}
	if value, loaded := lookup("PROXYIP"); loaded && value != "" {
		o.Inbound.EgressAddress = value
	}
	if value, loaded := lookup("PROXYPORT"); loaded && value != "" {
		port, err := strconv.ParseUint(value, 10, 16)
		if err != nil || port == 0 {
			return E.New("invalid PROXYPORT: ", value)
		}
		o.Inbound.EgressPort = uint16(port)
	}
	if value, loaded := lookup("LISTEN"); loaded && value != "" {
		o.Inbound.Listen = value
	}
	return nil
}
