package dialer

import (
	"github.com/sagernet/sing-edge/option"
	N "github.com/sagernet/sing/common/network"
)

func New(options option.DialerOptions) (N.Dialer, error) {
	return NewDefault(options)
}
