// Copyright 2025 Blindspot Software
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package wire

import (
	"encoding/json"
	"fmt"

	"github.com/lscobe16/simplecodetester/internal/check"
	"github.com/lscobe16/simplecodetester/internal/submission"
)

// Kind discriminates the envelope variants carried on the socket.
type Kind string

const (
	KindSlaveStarted              Kind = "SLAVE_STARTED"
	KindSlaveTimedOut             Kind = "SLAVE_TIMED_OUT"
	KindCompilationFailed         Kind = "COMPILATION_FAILED"
	KindSubmissionResult          Kind = "SUBMISSION_RESULT"
	KindSlaveDiedWithUnknownError Kind = "SLAVE_DIED_WITH_UNKNOWN_ERROR"
	KindDyingMessage              Kind = "DYING_MESSAGE"
	KindCompileAndCheckSubmission Kind = "COMPILE_AND_CHECK_SUBMISSION"
)

// SlaveStarted is the first message a slave ever sends.
type SlaveStarted struct {
	UID string `json:"uid"`
	PID int    `json:"pid"`
}

// SlaveTimedOut reports that the slave's idle timeout elapsed with no
// CompileAndCheckSubmission ever arriving.
type SlaveTimedOut struct {
	UID string `json:"uid"`
}

// CompilationFailed reports a submission that never produced a runnable
// artifact. No SubmissionResult follows it.
type CompilationFailed struct {
	UID    string                       `json:"uid"`
	Output submission.CompilationOutput `json:"output"`
}

// SubmissionResult reports a completed check run.
type SubmissionResult struct {
	UID    string                      `json:"uid"`
	Result check.SubmissionCheckResult `json:"result"`
}

// SlaveDiedWithUnknownError reports an unrecovered panic or other fatal
// condition not attributable to a specific submission defect.
type SlaveDiedWithUnknownError struct {
	UID        string `json:"uid"`
	Stacktrace string `json:"stacktrace"`
}

// DyingMessage is always the very last message a slave sends, regardless
// of which terminal message preceded it.
type DyingMessage struct {
	UID string `json:"uid"`
}

// CompileAndCheckSubmission is the only message a master ever sends. It
// carries the submission to compile and the checks to run against it.
type CompileAndCheckSubmission struct {
	Submission submission.Submission `json:"submission"`
	Checks     []check.RawSpec       `json:"checks"`
}

// Envelope is the tagged-union wrapper every frame's JSON payload decodes
// into before its Kind-specific body is unmarshaled.
type Envelope struct {
	Kind Kind `json:"kind"`

	SlaveStarted              *SlaveStarted              `json:"slaveStarted,omitempty"`
	SlaveTimedOut             *SlaveTimedOut             `json:"slaveTimedOut,omitempty"`
	CompilationFailed         *CompilationFailed         `json:"compilationFailed,omitempty"`
	SubmissionResult          *SubmissionResult          `json:"submissionResult,omitempty"`
	SlaveDiedWithUnknownError *SlaveDiedWithUnknownError `json:"slaveDiedWithUnknownError,omitempty"`
	DyingMessage              *DyingMessage              `json:"dyingMessage,omitempty"`
	CompileAndCheckSubmission *CompileAndCheckSubmission `json:"compileAndCheckSubmission,omitempty"`
}

// Encode marshals env to JSON ready for WriteFrame.
func Encode(env Envelope) ([]byte, error) {
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("wire: encode envelope: %w", err)
	}

	return data, nil
}

// Decode unmarshals a frame payload into an Envelope and validates that the
// body matching Kind is actually present.
func Decode(payload []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return Envelope{}, fmt.Errorf("wire: decode envelope: %w", err)
	}

	if err := env.validate(); err != nil {
		return Envelope{}, err
	}

	return env, nil
}

func (e Envelope) validate() error {
	present := 0

	check := func(ok bool) {
		if ok {
			present++
		}
	}

	check(e.SlaveStarted != nil)
	check(e.SlaveTimedOut != nil)
	check(e.CompilationFailed != nil)
	check(e.SubmissionResult != nil)
	check(e.SlaveDiedWithUnknownError != nil)
	check(e.DyingMessage != nil)
	check(e.CompileAndCheckSubmission != nil)

	if present != 1 {
		return fmt.Errorf("wire: envelope kind %q does not carry exactly one body (found %d)", e.Kind, present)
	}

	switch e.Kind {
	case KindSlaveStarted:
		if e.SlaveStarted == nil {
			return mismatchErr(e.Kind)
		}
	case KindSlaveTimedOut:
		if e.SlaveTimedOut == nil {
			return mismatchErr(e.Kind)
		}
	case KindCompilationFailed:
		if e.CompilationFailed == nil {
			return mismatchErr(e.Kind)
		}
	case KindSubmissionResult:
		if e.SubmissionResult == nil {
			return mismatchErr(e.Kind)
		}
	case KindSlaveDiedWithUnknownError:
		if e.SlaveDiedWithUnknownError == nil {
			return mismatchErr(e.Kind)
		}
	case KindDyingMessage:
		if e.DyingMessage == nil {
			return mismatchErr(e.Kind)
		}
	case KindCompileAndCheckSubmission:
		if e.CompileAndCheckSubmission == nil {
			return mismatchErr(e.Kind)
		}
	default:
		return fmt.Errorf("wire: unknown envelope kind %q", e.Kind)
	}

	return nil
}

func mismatchErr(kind Kind) error {
	return fmt.Errorf("wire: envelope kind %q does not match its body", kind)
}

// NewSlaveStarted builds the envelope for the slave's first message.
func NewSlaveStarted(uid string, pid int) Envelope {
	return Envelope{Kind: KindSlaveStarted, SlaveStarted: &SlaveStarted{UID: uid, PID: pid}}
}

// NewSlaveTimedOut builds the idle-timeout terminal message.
func NewSlaveTimedOut(uid string) Envelope {
	return Envelope{Kind: KindSlaveTimedOut, SlaveTimedOut: &SlaveTimedOut{UID: uid}}
}

// NewCompilationFailed builds the compile-failure terminal message.
func NewCompilationFailed(uid string, output submission.CompilationOutput) Envelope {
	return Envelope{Kind: KindCompilationFailed, CompilationFailed: &CompilationFailed{UID: uid, Output: output}}
}

// NewSubmissionResult builds the successful-run terminal message.
func NewSubmissionResult(uid string, result check.SubmissionCheckResult) Envelope {
	return Envelope{Kind: KindSubmissionResult, SubmissionResult: &SubmissionResult{UID: uid, Result: result}}
}

// NewSlaveDiedWithUnknownError builds the unrecovered-panic terminal message.
func NewSlaveDiedWithUnknownError(uid, stacktrace string) Envelope {
	return Envelope{
		Kind:                      KindSlaveDiedWithUnknownError,
		SlaveDiedWithUnknownError: &SlaveDiedWithUnknownError{UID: uid, Stacktrace: stacktrace},
	}
}

// NewDyingMessage builds the message every slave sends last, always.
func NewDyingMessage(uid string) Envelope {
	return Envelope{Kind: KindDyingMessage, DyingMessage: &DyingMessage{UID: uid}}
}

// NewCompileAndCheckSubmission builds the master's only outbound message.
func NewCompileAndCheckSubmission(sub submission.Submission, checks []check.RawSpec) Envelope {
	return Envelope{
		Kind: KindCompileAndCheckSubmission,
		CompileAndCheckSubmission: &CompileAndCheckSubmission{Submission: sub, Checks: checks},
	}
}
