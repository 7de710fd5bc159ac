package tunnel

import (
	"io"
	"net"
	"sync"
)

// memoryChannel is one end of an in-memory message channel pair.
type memoryChannel struct {
	incoming      chan []byte
	outgoing      chan []byte
	closed        chan struct{}
	writeDone     chan struct{}
	peerClosed    chan struct{}
	peerWriteDone chan struct{}
	closeOnce     sync.Once
	writeOnce     sync.Once
}

func newMemoryChannelPair() (*memoryChannel, *memoryChannel) {
	serverToClient := make(chan []byte, 64)
	clientToServer := make(chan []byte, 64)
	server := &memoryChannel{
		incoming:  clientToServer,
		outgoing:  serverToClient,
		closed:    make(chan struct{}),
		writeDone: make(chan struct{}),
	}
	client := &memoryChannel{
		incoming:  serverToClient,
		outgoing:  clientToServer,
		closed:    make(chan struct{}),
		writeDone: make(chan struct{}),
	}
	server.peerClosed, server.peerWriteDone = client.closed, client.writeDone
	client.peerClosed, client.peerWriteDone = server.closed, server.writeDone
	return server, client
}

func (c *memoryChannel) ReadMessage() ([]byte, error) {
	select {
	case message := <-c.incoming:
		return message, nil
	case <-c.closed:
		return nil, net.ErrClosed
	case <-c.peerWriteDone:
		select {
		case message := <-c.incoming:
			return message, nil
		default:
			return nil, io.EOF
		}
	}
}

func (c *memoryChannel) WriteMessage(message []byte) error {
	select {
	case <-c.writeDone:
		return net.ErrClosed
	default:
	}
	select {
	case c.outgoing <- append([]byte(nil), message...):
		return nil
	case <-c.writeDone:
		return net.ErrClosed
	case <-c.peerClosed:
		return net.ErrClosed
	}
}

func (c *memoryChannel) CloseWrite() error {
	c.writeOnce.Do(func() {
		close(c.writeDone)
	})
	return nil
}

func (c *memoryChannel) Close() error {
	c.CloseWrite()
	c.closeOnce.Do(func() {
		close(c.closed)
	})
	return nil
}

// readAll collects every message until the peer finished writing.
func (c *memoryChannel) readAll() ([]byte, error) {
	var data []byte
	for {
		message, err := c.ReadMessage()
		if err == io.EOF {
			return data, nil
		}
		if err != nil {
			return data, err
		}
		data = append(data, message...)
	}
}
