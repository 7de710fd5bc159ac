package constant

import (
	"github.com/sagernet/sing/common"
	F "github.com/sagernet/sing/common/format"
)

type EgressPolicy uint8

const (
	EgressPolicySameHost EgressPolicy = iota
	EgressPolicyDestination
)

var (
	egressPolicyToString = map[EgressPolicy]string{
		EgressPolicySameHost:    "same-host",
		EgressPolicyDestination: "destination",
	}
	StringToEgressPolicy = common.ReverseMap(egressPolicyToString)
)

func (p EgressPolicy) String() string {
	name, loaded := egressPolicyToString[p]
	if !loaded {
		return F.ToString(int(p))
	}
	return name
}

const (
	DefaultEgressPort    = 80
	DefaultMaxMessageSize = 64 * 1024
	DefaultListenPort    = 8080
	DefaultCamouflageURL = "https://example.com"
)
