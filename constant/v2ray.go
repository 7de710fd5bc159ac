package constant

const (
	V2RayTransportTypeWebsocket = "ws"

	V2RayWebsocketEarlyDataHeader = "Sec-WebSocket-Protocol"
)
