package tunnel

import (
	C "github.com/sagernet/sing-edge/constant"
)

var (
	ErrDetectionFailed      = C.ErrDetectionFailed
	ErrTruncatedHeader      = C.ErrTruncatedHeader
	ErrMalformedHeader      = C.ErrMalformedHeader
	ErrUnsupportedCommand   = C.ErrUnsupportedCommand
	ErrAuthenticationFailed = C.ErrAuthenticationFailed
	ErrEgressConnectFailed  = C.ErrEgressConnectFailed
	ErrRelayIO              = C.ErrRelayIO
)
