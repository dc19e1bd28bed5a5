// Copyright 2025 Blindspot Software
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package check

import (
	"context"
	"fmt"

	"github.com/lscobe16/simplecodetester/internal/submission"
)

// sourceCodeCheck is a check whose body is itself source code, compiled
// once at Decode time and evaluated once per main file. The compiled body
// never sees the file's terminal: it is handed the file's already-captured
// stdout and stderr and asked for a verdict, which keeps its sandbox
// surface identical to any other interpreted check program.
type sourceCodeCheck struct {
	name string
	prog CheckProgram
}

// newSourceCodeCheck compiles source through compiler and wraps the result.
func newSourceCodeCheck(name, source string, compiler SourceCompiler) (Check, error) {
	if compiler == nil {
		return nil, fmt.Errorf("%w: source-code check %q: no compiler available", ErrMalformed, name)
	}

	prog, err := compiler.CompileCheck(name, source)
	if err != nil {
		return nil, fmt.Errorf("%w: source-code check %q: %v", ErrMalformed, name, err)
	}

	return &sourceCodeCheck{name: name, prog: prog}, nil
}

func (c *sourceCodeCheck) Name() string               { return c.name }
func (c *sourceCodeCheck) RequiredType() RequiredType { return RequiredUserCodeMain }

// RunFile invokes file's main entry point with no input, then hands its
// captured output to the compiled check body for judgment.
func (c *sourceCodeCheck) RunFile(ctx context.Context, inv Invoker, file submission.CompiledFile) Result {
	stdout, stderr, err := inv.InvokeMain(ctx, file, nil)

	result := Result{
		CheckName:         c.name,
		FileQualifiedName: file.QualifiedName,
		CapturedOutput:    stdout,
		ErrorOutput:       stderr,
	}

	if err != nil {
		result.Outcome = Errored
		result.Message = err.Error()

		return result
	}

	passed, message, err := c.prog.Evaluate(stdout, stderr)
	if err != nil {
		result.Outcome = Errored
		result.Message = err.Error()

		return result
	}

	result.Message = message
	if passed {
		result.Outcome = Passed
	} else {
		result.Outcome = Failed
	}

	return result
}
