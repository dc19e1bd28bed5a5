// Copyright 2025 Blindspot Software
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package check

import (
	"context"
	"fmt"
	"strings"

	"github.com/lscobe16/simplecodetester/internal/submission"
)

// ioCheck feeds a fixed sequence of input lines to a compiled file's main
// entry point and compares its captured stdout against an expected string.
type ioCheck struct {
	name           string
	input          []string
	expectedOutput string
}

func (c *ioCheck) Name() string               { return c.name }
func (c *ioCheck) RequiredType() RequiredType { return RequiredUserCodeMain }

// RunFile drives file's main entry point once through inv, under whatever
// wall-clock budget ctx carries, and compares its output line-ending
// normalized against the expected text.
func (c *ioCheck) RunFile(ctx context.Context, inv Invoker, file submission.CompiledFile) Result {
	stdout, stderr, err := inv.InvokeMain(ctx, file, c.input)

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

	if normalizeLineEndings(stdout) == normalizeLineEndings(c.expectedOutput) {
		result.Outcome = Passed

		return result
	}

	result.Outcome = Failed
	result.Message = fmt.Sprintf("expected output %q, got %q", c.expectedOutput, stdout)

	return result
}

// normalizeLineEndings collapses CRLF to LF and trims a single trailing
// newline, so a submission's choice of line terminator or a harmless
// trailing blank line never fails an otherwise-correct answer.
func normalizeLineEndings(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.TrimSuffix(s, "\n")
}
