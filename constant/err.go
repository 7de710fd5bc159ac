package constant

import E "github.com/sagernet/sing/common/exceptions"

var (
	ErrDetectionFailed      = E.New("detection failed")
	ErrTruncatedHeader      = E.New("truncated header")
	ErrMalformedHeader      = E.New("malformed header")
	ErrUnsupportedCommand   = E.New("unsupported command")
	ErrAuthenticationFailed = E.New("authentication failed")
	ErrEgressConnectFailed  = E.New("egress connect failed")
	ErrRelayIO              = E.New("relay i/o error")
	ErrProtocolDisabled     = E.New("protocol disabled")
)
