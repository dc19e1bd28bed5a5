// Copyright 2025 Blindspot Software
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package terminal intercepts the standard input and output of a running
// check invocation. It is modeled on the teacher's internal/chanio
// channel-backed reader/writer, but swaps the in-memory buffer in for the
// channel: a single check invocation runs synchronously within one
// goroutine rather than across a network boundary, so there is nothing to
// multiplex and no reason to pay for channel hand-off.
package terminal

import (
	"bufio"
	"bytes"
	"io"
	"strings"
)

// Interceptor stands in for a process's stdin/stdout/stderr for the
// duration of one check invocation. It is reset before every invocation so
// that captured output never leaks between invocations sharing the same
// loader namespace.
type Interceptor struct {
	input  *bufio.Reader
	stdout bytes.Buffer
	stderr bytes.Buffer
}

// New returns an Interceptor with no input queued yet.
func New() *Interceptor {
	i := &Interceptor{}
	i.SetInput(nil)

	return i
}

// SetInput installs lines as the content a subsequent read from Stdin will
// see, one line per element, newline-joined. An empty or nil slice means
// the very first read returns io.EOF.
func (i *Interceptor) SetInput(lines []string) {
	i.input = bufio.NewReader(strings.NewReader(strings.Join(lines, "\n")))
}

// Reset clears captured stdout/stderr without touching queued input.
func (i *Interceptor) Reset() {
	i.stdout.Reset()
	i.stderr.Reset()
}

// Stdin returns the reader interpreted code sees as its standard input.
// Reads past the queued lines return io.EOF immediately; they never block.
// The returned value stays valid across calls to SetInput: it forwards to
// whichever *bufio.Reader is current at the time of each Read, so it can be
// registered once with a loader namespace and still see every later
// SetInput.
func (i *Interceptor) Stdin() io.Reader { return stdinProxy{i} }

// Stdout returns the writer interpreted code sees as its standard output.
func (i *Interceptor) Stdout() io.Writer { return lineFeedWriter{&i.stdout} }

// Stderr returns the writer interpreted code sees as its standard error.
func (i *Interceptor) Stderr() io.Writer { return lineFeedWriter{&i.stderr} }

// Output returns everything written to Stdout since the last Reset.
func (i *Interceptor) Output() string { return i.stdout.String() }

// ErrorOutput returns everything written to Stderr since the last Reset.
func (i *Interceptor) ErrorOutput() string { return i.stderr.String() }

// stdinProxy defers to whichever input buffer is current on i, so it
// survives being registered once and read from across many SetInput calls.
type stdinProxy struct {
	i *Interceptor
}

func (p stdinProxy) Read(b []byte) (int, error) {
	return p.i.input.Read(b)
}

// lineFeedWriter normalizes CR and CRLF to LF before appending, matching
// "normalized to line feed terminators."
type lineFeedWriter struct {
	buf *bytes.Buffer
}

func (w lineFeedWriter) Write(p []byte) (int, error) {
	normalized := bytes.ReplaceAll(p, []byte("\r\n"), []byte("\n"))
	normalized = bytes.ReplaceAll(normalized, []byte("\r"), []byte("\n"))

	if _, err := w.buf.Write(normalized); err != nil {
		return 0, err
	}

	return len(p), nil
}
