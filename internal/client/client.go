// Copyright 2025 Blindspot Software
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package client owns the socket a slave uses to talk to its master: a
// reader goroutine that decodes frames and hands them to a caller-supplied
// handler, and a writer goroutine that drains an unbounded outbound queue
// in FIFO order. Grounded on the teacher's dutagent broker, which runs the
// same to-client/from-client goroutine pair over a protobuf stream; here
// the stream is a raw length-prefixed socket instead.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"sync"
	"time"

	"github.com/lscobe16/simplecodetester/internal/wire"
)

// Handler processes one inbound envelope. It is called from the reader
// goroutine; a handler that blocks blocks all further message delivery.
type Handler func(wire.Envelope)

// Client owns a net.Conn and mediates all reads and writes across it.
type Client struct {
	conn    net.Conn
	handler Handler

	mu      sync.Mutex
	queue   [][]byte
	signal  chan struct{}
	closed  bool

	writerDone chan struct{}
	readerDone chan struct{}
	readErr    error
}

// New starts a Client's reader and writer goroutines over conn. handler is
// invoked once per decoded inbound envelope until the connection closes.
func New(conn net.Conn, handler Handler) *Client {
	c := &Client{
		conn:       conn,
		handler:    handler,
		signal:     make(chan struct{}, 1),
		writerDone: make(chan struct{}),
		readerDone: make(chan struct{}),
	}

	go c.readLoop()
	go c.writeLoop()

	return c
}

// QueueMessage enqueues env for delivery and returns immediately; it never
// blocks on the network. Messages queued from a single goroutine are
// delivered to the master in the order they were queued.
func (c *Client) QueueMessage(env wire.Envelope) error {
	payload, err := wire.Encode(env)
	if err != nil {
		return fmt.Errorf("client: encode %q: %w", env.Kind, err)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return errors.New("client: queue closed")
	}

	c.queue = append(c.queue, payload)
	c.mu.Unlock()

	select {
	case c.signal <- struct{}{}:
	default:
	}

	return nil
}

// Stop flushes any queued writes (bounded by deadline), then closes the
// socket. It is safe to call exactly once.
func (c *Client) Stop(deadline time.Duration) error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	select {
	case c.signal <- struct{}{}:
	default:
	}

	select {
	case <-c.writerDone:
	case <-time.After(deadline):
		log.Print("client: flush deadline exceeded, closing anyway")
	}

	return c.conn.Close()
}

// ReadErr returns the error that ended the reader loop, or nil if it ended
// because the peer closed the connection cleanly.
func (c *Client) ReadErr() error {
	return c.readErr
}

// Done reports a channel closed once the reader loop has returned.
func (c *Client) Done() <-chan struct{} {
	return c.readerDone
}

func (c *Client) readLoop() {
	defer close(c.readerDone)

	for {
		payload, err := wire.ReadFrame(c.conn)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				c.readErr = err
			}

			return
		}

		env, err := wire.Decode(payload)
		if err != nil {
			c.readErr = err
			return
		}

		c.handler(env)
	}
}

func (c *Client) writeLoop() {
	defer close(c.writerDone)

	for {
		c.mu.Lock()
		pending := c.queue
		c.queue = nil
		closed := c.closed
		c.mu.Unlock()

		for _, payload := range pending {
			if err := wire.WriteFrame(c.conn, payload); err != nil {
				log.Printf("client: write frame: %v", err)
				return
			}
		}

		if closed {
			return
		}

		<-c.signal
	}
}

// DialAndHandshake connects to addr and returns a Client ready to send and
// receive envelopes. Extracted as a helper for cmds/slave's startup path.
func DialAndHandshake(ctx context.Context, addr string, handler Handler) (*Client, error) {
	var d net.Dialer

	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("client: dial %s: %w", addr, err)
	}

	return New(conn, handler), nil
}
