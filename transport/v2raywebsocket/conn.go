package v2raywebsocket

import (
	"bufio"
	"errors"
	"io"
	"net"
	"sync"

	"github.com/sagernet/sing-edge/adapter"
	C "github.com/sagernet/sing-edge/constant"
	E "github.com/sagernet/sing/common/exceptions"
	"github.com/sagernet/ws"
	"github.com/sagernet/ws/wsutil"
)

var _ adapter.MessageChannel = (*Channel)(nil)

var ErrMessageTooLarge = E.New("websocket message too large")

// Channel is the server side of a WebSocket connection seen as a message channel.
// Control frames are answered inline; early data is returned as the first message.
type Channel struct {
	conn           net.Conn
	reader         *wsutil.Reader
	controlHandler wsutil.FrameHandlerFunc
	writeAccess    sync.Mutex
	earlyData      []byte
	maxMessageSize int64
	closeOnce      sync.Once
}

// NewServerChannel wraps an upgraded connection. Messages longer than maxMessageSize fail
// the read with ErrMessageTooLarge; zero selects C.DefaultMaxMessageSize.
func NewServerChannel(conn net.Conn, rw *bufio.ReadWriter, earlyData []byte, maxMessageSize int64) *Channel {
	if maxMessageSize <= 0 {
		maxMessageSize = C.DefaultMaxMessageSize
	}
	channel := &Channel{
		conn:           conn,
		earlyData:      earlyData,
		maxMessageSize: maxMessageSize,
	}
	var source io.Reader = conn
	if rw != nil && rw.Reader.Buffered() > 0 {
		source = io.MultiReader(io.LimitReader(rw.Reader, int64(rw.Reader.Buffered())), conn)
	}
	channel.controlHandler = wsutil.ControlFrameHandler(&lockedWriter{channel}, ws.StateServerSide)
	channel.reader = &wsutil.Reader{
		Source:         source,
		State:          ws.StateServerSide,
		MaxFrameSize:   maxMessageSize,
		OnIntermediate: channel.controlHandler,
	}
	return channel
}

func (c *Channel) ReadMessage() ([]byte, error) {
	if len(c.earlyData) > 0 {
		earlyData := c.earlyData
		c.earlyData = nil
		return earlyData, nil
	}
	for {
		header, err := c.reader.NextFrame()
		if err != nil {
			return nil, wrapError(err)
		}
		if header.OpCode.IsControl() {
			err = c.controlHandler(header, c.reader)
			if err != nil {
				return nil, wrapError(err)
			}
			continue
		}
		if header.OpCode&(ws.OpBinary|ws.OpText) == 0 {
			err = c.reader.Discard()
			if err != nil {
				return nil, wrapError(err)
			}
			continue
		}
		message, err := io.ReadAll(io.LimitReader(c.reader, c.maxMessageSize+1))
		if err != nil {
			return nil, wrapError(err)
		}
		if int64(len(message)) > c.maxMessageSize {
			return nil, E.Extend(ErrMessageTooLarge, "fragmented message exceeds ", c.maxMessageSize, " bytes")
		}
		return message, nil
	}
}

func (c *Channel) WriteMessage(message []byte) error {
	c.writeAccess.Lock()
	defer c.writeAccess.Unlock()
	return wsutil.WriteServerBinary(c.conn, message)
}

// Close sends a normal closure frame and closes the connection.
func (c *Channel) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.writeAccess.Lock()
		ws.WriteFrame(c.conn, ws.NewCloseFrame(ws.NewCloseFrameBody(ws.StatusNormalClosure, "")))
		c.writeAccess.Unlock()
		err = c.conn.Close()
	})
	return err
}

func (c *Channel) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

type lockedWriter struct {
	channel *Channel
}

func (w *lockedWriter) Write(p []byte) (n int, err error) {
	w.channel.writeAccess.Lock()
	defer w.channel.writeAccess.Unlock()
	return w.channel.conn.Write(p)
}

func wrapError(err error) error {
	var closedErr wsutil.ClosedError
	if errors.As(err, &closedErr) {
		return io.EOF
	}
	if errors.Is(err, wsutil.ErrFrameTooLarge) {
		return E.Extend(ErrMessageTooLarge, err)
	}
	return err
}
