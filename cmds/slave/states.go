// Copyright 2025 Blindspot Software
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"runtime/debug"
	"time"

	"github.com/lscobe16/simplecodetester/internal/check"
	"github.com/lscobe16/simplecodetester/internal/fsm"
	"github.com/lscobe16/simplecodetester/internal/runner"
	"github.com/lscobe16/simplecodetester/internal/wire"
)

// awaitSubmission is the IDLE state: it waits for the one
// CompileAndCheckSubmission this slave will ever process, for the idle
// timeout to elapse first, or for the master connection to go away.
func awaitSubmission(ctx context.Context, args slaveArgs) (slaveArgs, fsm.State[slaveArgs], error) {
	select {
	case <-ctx.Done():
		return args, nil, ctx.Err()

	case <-time.After(args.idle):
		if err := args.client.QueueMessage(wire.NewSlaveTimedOut(args.uid)); err != nil {
			log.Printf("slave: reporting idle timeout: %v", err)
		}

		return args, die, nil

	case <-args.client.Done():
		// A non-nil ReadErr means the reader loop died on a malformed
		// frame, not a clean peer close: that is a MalformedMessage, not a
		// hard kill, and gets reported before dying. A clean close (the
		// master hanging up) needs no message of its own; die still sends
		// the final DyingMessage on a best-effort basis.
		if err := args.client.ReadErr(); err != nil {
			if qerr := args.client.QueueMessage(wire.NewSlaveDiedWithUnknownError(args.uid, err.Error())); qerr != nil {
				log.Printf("slave: reporting malformed frame: %v", qerr)
			}
		}

		return args, die, nil

	case env := <-args.incoming:
		args.submission = env.CompileAndCheckSubmission

		return args, compileSubmission, nil
	}
}

// compileSubmission compiles the submitted files in memory. A failed
// compilation is a terminal CompilationFailed message, not an error
// propagated up the state machine: the slave still needs to report it and
// exit cleanly.
func compileSubmission(_ context.Context, args slaveArgs) (slaveArgs, fsm.State[slaveArgs], error) {
	compiled, runtimes := args.compiler.Compile(args.submission.Submission)

	if !compiled.Output.Successful {
		if err := args.client.QueueMessage(wire.NewCompilationFailed(args.uid, compiled.Output)); err != nil {
			log.Printf("slave: reporting compilation failure: %v", err)
		}

		return args, die, nil
	}

	args.compiled = compiled
	args.runner = runner.New(runtimes)

	if args.checkBudget != 0 {
		args.runner = args.runner.WithCheckBudget(args.checkBudget)
	}

	return args, runChecks, nil
}

// runChecks decodes every requested CheckSpec and drives them against the
// compiled submission. A CheckSpec that fails to decode is a
// MalformedMessage: fatal to the slave, per the error taxonomy, since it
// signals a protocol-level defect rather than anything about the
// submission under test.
func runChecks(ctx context.Context, args slaveArgs) (slaveArgs, fsm.State[slaveArgs], error) {
	checks := make([]check.Check, 0, len(args.submission.Checks))

	for _, raw := range args.submission.Checks {
		c, err := check.Decode(raw, args.compiler)
		if err != nil {
			return args, nil, fmt.Errorf("decoding check spec: %w", err)
		}

		checks = append(checks, c)
	}

	sources := args.submission.Submission.SourceMap()

	result := args.runner.Run(ctx, args.compiled, checks, sources)
	args.result = result

	return args, reportResult, nil
}

// reportResult sends the slave's one allowed terminal SubmissionResult
// message.
func reportResult(_ context.Context, args slaveArgs) (slaveArgs, fsm.State[slaveArgs], error) {
	if err := args.client.QueueMessage(wire.NewSubmissionResult(args.uid, args.result)); err != nil {
		log.Printf("slave: reporting submission result: %v", err)
	}

	return args, die, nil
}

// die always sends DyingMessage last, regardless of which terminal message
// preceded it, then ends the state machine.
func die(_ context.Context, args slaveArgs) (slaveArgs, fsm.State[slaveArgs], error) {
	if err := args.client.QueueMessage(wire.NewDyingMessage(args.uid)); err != nil {
		log.Printf("slave: sending dying message: %v", err)
	}

	return args, nil, nil
}

// reportUnexpected converts any error the state machine could not recover
// from into a SlaveDiedWithUnknownError, as required by the Unexpected and
// MalformedMessage rows of the error taxonomy. It is not a state itself:
// slave.start calls it after fsm.Run returns a non-nil error, before
// stopping the client.
func reportUnexpected(args slaveArgs, cause error) {
	if args.client == nil {
		return
	}

	if errors.Is(cause, context.Canceled) || errors.Is(cause, context.DeadlineExceeded) {
		return
	}

	stack := string(debug.Stack())

	if err := args.client.QueueMessage(wire.NewSlaveDiedWithUnknownError(args.uid, fmt.Sprintf("%v\n%s", cause, stack))); err != nil {
		log.Printf("slave: reporting unknown error: %v", err)
	}

	if err := args.client.QueueMessage(wire.NewDyingMessage(args.uid)); err != nil {
		log.Printf("slave: sending dying message: %v", err)
	}
}
