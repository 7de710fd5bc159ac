package constant

import "time"

const (
	TCPTimeout         = 5 * time.Second
	ReadPayloadTimeout = 300 * time.Millisecond
	TCPIdleTimeout     = 5 * time.Minute
	StopTimeout        = 3 * time.Second
	VMessAuthWindow    = 120 * time.Second
)
