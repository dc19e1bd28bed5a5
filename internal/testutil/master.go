// Copyright 2025 Blindspot Software
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package testutil provides lightweight fakes for exercising internal/client
// and cmds/slave without a real TCP socket or a real master process.
package testutil

import (
	"net"
	"sync"

	"github.com/lscobe16/simplecodetester/internal/wire"
)

// FakeMaster is the in-memory half of a net.Pipe standing in for a real
// master: it reads frames a slave writes and accumulates them in Received,
// and can push frames onto the slave's side via Send. Safe for concurrent
// use.
type FakeMaster struct {
	conn net.Conn

	mu       sync.Mutex
	Received []wire.Envelope
	RecvErr  error

	done chan struct{}
}

// NewFakeMaster wraps one side of a net.Pipe connection and starts reading
// frames from it in the background. slaveConn is the other side, to be
// handed to client.New or client.DialAndHandshake's underlying net.Conn.
func NewFakeMaster(masterConn net.Conn) *FakeMaster {
	m := &FakeMaster{conn: masterConn, done: make(chan struct{})}

	go m.readLoop()

	return m
}

func (m *FakeMaster) readLoop() {
	defer close(m.done)

	for {
		payload, err := wire.ReadFrame(m.conn)
		if err != nil {
			m.mu.Lock()
			m.RecvErr = err
			m.mu.Unlock()

			return
		}

		env, err := wire.Decode(payload)
		if err != nil {
			m.mu.Lock()
			m.RecvErr = err
			m.mu.Unlock()

			return
		}

		m.mu.Lock()
		m.Received = append(m.Received, env)
		m.mu.Unlock()
	}
}

// Send writes one envelope to the slave side of the pipe.
func (m *FakeMaster) Send(env wire.Envelope) error {
	payload, err := wire.Encode(env)
	if err != nil {
		return err
	}

	return wire.WriteFrame(m.conn, payload)
}

// SendRaw writes payload as a length-prefixed frame without encoding it as
// a valid envelope first, for exercising malformed-frame handling on the
// slave side.
func (m *FakeMaster) SendRaw(payload []byte) error {
	return wire.WriteFrame(m.conn, payload)
}

// Snapshot returns a copy of every envelope received so far.
func (m *FakeMaster) Snapshot() []wire.Envelope {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]wire.Envelope, len(m.Received))
	copy(out, m.Received)

	return out
}

// Close closes the master's side of the pipe and waits for the read loop to
// observe it.
func (m *FakeMaster) Close() error {
	err := m.conn.Close()
	<-m.done

	return err
}

// Pipe returns a connected pair suitable for handing one end to a
// client.Client under test and keeping the other as a FakeMaster.
func Pipe() (masterSide, slaveSide net.Conn) {
	return net.Pipe()
}
