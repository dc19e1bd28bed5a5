// Copyright 2025 Blindspot Software
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package check

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/lscobe16/simplecodetester/internal/submission"
)

// fakeInvoker is a minimal Invoker stand-in so ioCheck and sourceCodeCheck
// can be tested without compiling anything for real.
type fakeInvoker struct {
	stdout, stderr string
	err            error
}

func (f *fakeInvoker) InvokeMain(_ context.Context, _ submission.CompiledFile, _ []string) (string, string, error) {
	return f.stdout, f.stderr, f.err
}

func TestIOCheckRunFile(t *testing.T) {
	file := submission.CompiledFile{QualifiedName: "main"}

	tests := []struct {
		name     string
		inv      *fakeInvoker
		expected string
		want     Outcome
	}{
		{
			name:     "exact match",
			inv:      &fakeInvoker{stdout: "hello\n"},
			expected: "hello",
			want:     Passed,
		},
		{
			name:     "crlf normalized",
			inv:      &fakeInvoker{stdout: "hello\r\n"},
			expected: "hello\n",
			want:     Passed,
		},
		{
			name:     "mismatch",
			inv:      &fakeInvoker{stdout: "goodbye\n"},
			expected: "hello",
			want:     Failed,
		},
		{
			name:     "invocation error",
			inv:      &fakeInvoker{err: errors.New("boom")},
			expected: "hello",
			want:     Errored,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &ioCheck{name: "io", expectedOutput: tt.expected}

			result := c.RunFile(context.Background(), tt.inv, file)
			if result.Outcome != tt.want {
				t.Errorf("RunFile() outcome = %v, want %v", result.Outcome, tt.want)
			}

			if result.FileQualifiedName != "main" {
				t.Errorf("RunFile() FileQualifiedName = %q, want %q", result.FileQualifiedName, "main")
			}
		})
	}
}

func TestIOCheckRunFileMismatchMessageContainsActualAndExpected(t *testing.T) {
	file := submission.CompiledFile{QualifiedName: "main"}
	inv := &fakeInvoker{stdout: "goodbye\n"}

	c := &ioCheck{name: "io", expectedOutput: "hello\n"}

	result := c.RunFile(context.Background(), inv, file)

	if result.Outcome != Failed {
		t.Fatalf("RunFile() outcome = %v, want %v", result.Outcome, Failed)
	}

	if !strings.Contains(result.Message, "goodbye") {
		t.Errorf("RunFile() message = %q, want it to contain the actual output %q", result.Message, "goodbye")
	}

	if !strings.Contains(result.Message, "hello") {
		t.Errorf("RunFile() message = %q, want it to contain the expected output %q", result.Message, "hello")
	}
}

func TestNormalizeLineEndings(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"a\r\nb\r\n", "a\nb"},
		{"a\nb\n", "a\nb"},
		{"a\nb", "a\nb"},
	}

	for _, tt := range tests {
		if got := normalizeLineEndings(tt.in); got != tt.want {
			t.Errorf("normalizeLineEndings(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
