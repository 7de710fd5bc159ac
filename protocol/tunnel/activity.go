package tunnel

import (
	"net"
	"sync/atomic"
	"time"

	"github.com/sagernet/sing/common/bufio"
	N "github.com/sagernet/sing/common/network"
)

// ActivityTracker calls onIdle once when no bytes moved on the tracked connection for
// the timeout. A zero timeout disables it.
type ActivityTracker struct {
	timeout       time.Duration
	checkInterval time.Duration
	lastActivity  atomic.Int64
	done          chan struct{}
	onIdle        func(idle time.Duration)
}

func NewActivityTracker(timeout time.Duration, onIdle func(idle time.Duration)) *ActivityTracker {
	checkInterval := timeout / 4
	if checkInterval > 10*time.Second {
		checkInterval = 10 * time.Second
	}
	tracker := &ActivityTracker{
		timeout:       timeout,
		checkInterval: checkInterval,
		done:          make(chan struct{}),
		onIdle:        onIdle,
	}
	tracker.lastActivity.Store(time.Now().UnixNano())
	return tracker
}

func (t *ActivityTracker) updateActivity(n int64) {
	if n > 0 {
		t.lastActivity.Store(time.Now().UnixNano())
	}
}

// Track counts the bytes read from and written to conn as activity.
func (t *ActivityTracker) Track(conn net.Conn, readCounter N.CountFunc, writeCounter N.CountFunc) net.Conn {
	return bufio.NewCounterConn(conn,
		[]N.CountFunc{t.updateActivity, readCounter},
		[]N.CountFunc{t.updateActivity, writeCounter})
}

func (t *ActivityTracker) Start() error {
	if t.timeout > 0 {
		go t.monitorActivity()
	}
	return nil
}

func (t *ActivityTracker) Close() error {
	select {
	case <-t.done:
		return nil
	default:
		close(t.done)
	}
	return nil
}

func (t *ActivityTracker) monitorActivity() {
	ticker := time.NewTicker(t.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-t.done:
			return
		case <-ticker.C:
			lastActive := time.Unix(0, t.lastActivity.Load())
			idleDuration := time.Since(lastActive)
			if idleDuration >= t.timeout {
				t.onIdle(idleDuration)
				return
			}
		}
	}
}
