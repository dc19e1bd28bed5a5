// Copyright 2025 Blindspot Software
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package wire implements the length-prefixed JSON framing used on the
// master/slave socket: a 4-byte big-endian length prefix followed by that
// many bytes of a UTF-8 JSON envelope.
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// MaxFrameLength bounds a single frame's declared length. The master is
// trusted, but a corrupted or misbehaving connection must not be able to
// make a slave allocate unbounded memory.
const MaxFrameLength = 16 << 20 // 16 MiB

// ErrFrameTooLarge is returned by ReadFrame when a frame's declared length
// exceeds MaxFrameLength.
var ErrFrameTooLarge = errors.New("wire: frame exceeds maximum length")

const lengthPrefixSize = 4

// WriteFrame writes one length-prefixed frame to w.
func WriteFrame(w io.Writer, payload []byte) error {
	if len(payload) > MaxFrameLength {
		return ErrFrameTooLarge
	}

	var prefix [lengthPrefixSize]byte
	binary.BigEndian.PutUint32(prefix[:], uint32(len(payload)))

	if _, err := w.Write(prefix[:]); err != nil {
		return fmt.Errorf("wire: write length prefix: %w", err)
	}

	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("wire: write payload: %w", err)
	}

	return nil
}

// ReadFrame reads one length-prefixed frame from r. It returns io.EOF
// unchanged when the connection is closed cleanly before any bytes of a
// new frame arrive (so callers can distinguish "stream ended" from a
// mid-frame read failure).
func ReadFrame(r io.Reader) ([]byte, error) {
	var prefix [lengthPrefixSize]byte

	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("wire: truncated length prefix: %w", err)
		}

		return nil, err
	}

	length := binary.BigEndian.Uint32(prefix[:])
	if length > MaxFrameLength {
		return nil, ErrFrameTooLarge
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("wire: truncated payload: %w", err)
	}

	return payload, nil
}
