package tunnel

import (
	"context"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sagernet/sing-edge/adapter"
	C "github.com/sagernet/sing-edge/constant"
	"github.com/sagernet/sing-edge/log"
	"github.com/sagernet/sing/common"
	"github.com/sagernet/sing/common/bufio"
	E "github.com/sagernet/sing/common/exceptions"
)

// channelReader turns a message channel into a byte stream. Pending bytes are served
// before the next message is read.
type channelReader struct {
	channel adapter.MessageChannel
	pending []byte
}

func (r *channelReader) Read(p []byte) (n int, err error) {
	for len(r.pending) == 0 {
		r.pending, err = r.channel.ReadMessage()
		if err != nil {
			return 0, err
		}
	}
	n = copy(p, r.pending)
	r.pending = r.pending[n:]
	return
}

// channelWriter sends every Write as one message.
type channelWriter struct {
	channel adapter.MessageChannel
}

func (w *channelWriter) Write(p []byte) (n int, err error) {
	err = w.channel.WriteMessage(p)
	if err != nil {
		return
	}
	return len(p), nil
}

type relaySession struct {
	logger   log.ContextLogger
	channel  adapter.MessageChannel
	egress   net.Conn
	request  *Request
	uplink   atomic.Int64
	downlink atomic.Int64
}

// Relay forwards the leftover payload and every later client message to egress, and every
// egress read back to the client, until either side ends or the session is idle for
// idleTimeout. The channel and the egress connection are closed on return.
func Relay(ctx context.Context, logger log.ContextLogger, channel adapter.MessageChannel, egress net.Conn, request *Request, idleTimeout time.Duration) (uplink int64, downlink int64, err error) {
	session := &relaySession{
		logger:  logger,
		channel: channel,
		egress:  egress,
		request: request,
	}
	err = session.run(ctx, idleTimeout)
	return session.uplink.Load(), session.downlink.Load(), err
}

func (s *relaySession) run(ctx context.Context, idleTimeout time.Duration) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	tracker := NewActivityTracker(idleTimeout, func(idle time.Duration) {
		s.logger.InfoContext(ctx, "idle timeout reached after ", idle.String(), " of inactivity")
		cancel()
	})
	common.Must(tracker.Start())
	defer tracker.Close()

	egress := tracker.Track(s.egress, func(n int64) {
		s.downlink.Add(n)
	}, func(n int64) {
		s.uplink.Add(n)
	})

	var closeOnce sync.Once
	closeAll := func() {
		closeOnce.Do(func() {
			common.Close(egress, s.channel)
		})
	}
	go func() {
		<-ctx.Done()
		closeAll()
	}()
	defer closeAll()

	reader, err := s.request.NewReader(&channelReader{channel: s.channel, pending: s.request.Payload})
	if err != nil {
		return err
	}
	writer, err := s.request.NewWriter(&channelWriter{channel: s.channel})
	if err != nil {
		return err
	}

	var (
		group     sync.WaitGroup
		uplinkErr error
	)
	group.Add(1)
	go func() {
		defer group.Done()
		uplinkErr = common.Error(bufio.Copy(egress, reader))
		if uplinkErr == nil {
			if closeWriter, isCloseWriter := s.egress.(interface{ CloseWrite() error }); isCloseWriter {
				if closeWriter.CloseWrite() == nil {
					return
				}
			}
		}
		cancel()
	}()
	downlinkErr := common.Error(bufio.Copy(writer, egress))
	cancel()
	group.Wait()

	var errors []error
	if uplinkErr != nil && !E.IsClosedOrCanceled(uplinkErr) {
		errors = append(errors, E.Extend(C.ErrRelayIO, "upload: ", uplinkErr))
	}
	if downlinkErr != nil && !E.IsClosedOrCanceled(downlinkErr) {
		errors = append(errors, E.Extend(C.ErrRelayIO, "download: ", downlinkErr))
	}
	return E.Errors(errors...)
}
