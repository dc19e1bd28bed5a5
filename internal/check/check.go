// Copyright 2025 Blindspot Software
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package check

import (
	"context"

	"github.com/lscobe16/simplecodetester/internal/submission"
)

// Outcome is the terminal classification of one check invocation.
type Outcome string

const (
	Passed  Outcome = "PASSED"
	Failed  Outcome = "FAILED"
	Errored Outcome = "ERRORED"
	Skipped Outcome = "SKIPPED"
)

// Result is the outcome of running one Check against one compiled file (or,
// for a STATIC_TEST check, against the submission as a whole).
type Result struct {
	CheckName         string  `json:"checkName"`
	FileQualifiedName string  `json:"fileQualifiedName"`
	Outcome           Outcome `json:"outcome"`
	Message           string  `json:"message"`
	CapturedOutput    string  `json:"capturedOutput,omitempty"`
	ErrorOutput       string  `json:"errorOutput,omitempty"`
}

// Check is the capability set every check variant satisfies. A Check is
// additionally either a FileCheck or a StaticCheck (never both), matching
// spec's RequiredType partition.
type Check interface {
	Name() string
	RequiredType() RequiredType
}

// Invoker drives a compiled file's main entry point under the sandbox and
// terminal interceptor, returning its captured output. It is implemented by
// internal/runner and handed down to checks so that internal/check never
// needs to import the loader or sandbox packages directly.
type Invoker interface {
	InvokeMain(ctx context.Context, file submission.CompiledFile, input []string) (stdout, stderr string, err error)
}

// FileCheck is a Check whose RequiredType is USER_CODE_MAIN: it runs once
// per compiled file that declares a main entry point.
type FileCheck interface {
	Check
	RunFile(ctx context.Context, inv Invoker, file submission.CompiledFile) Result
}

// StaticCheck is a Check whose RequiredType is STATIC_TEST: it runs once
// against the whole submission and never executes submitted code.
type StaticCheck interface {
	Check
	RunStatic(sub *submission.CompiledSubmission, sources map[string]string) Result
}

// SourceCompiler compiles a SOURCE_CODE check's body into a runnable
// CheckProgram. Implemented by internal/compiler; declared here so that
// internal/check has no dependency on the interpreter it runs on.
type SourceCompiler interface {
	CompileCheck(name, source string) (CheckProgram, error)
}

// CheckProgram is a compiled SOURCE_CODE check body. Evaluate is a pure
// function over a target file's already-captured output: the check body
// itself never gets console access. Evaluate runs without a wall-clock
// budget: the runner's budget covers only the target file's main.
type CheckProgram interface {
	Evaluate(stdout, stderr string) (passed bool, message string, err error)
	Release()
}

// SubmissionCheckResult maps a compiled file's qualified name to the
// ordered sequence of Results produced against it. STATIC_TEST checks are
// keyed under StaticResultsKey rather than any one file, since they run
// once for the whole submission.
type SubmissionCheckResult map[string][]Result

// StaticResultsKey is the SubmissionCheckResult key under which
// STATIC_TEST check results are filed.
const StaticResultsKey = ""

// Add appends result to the slice for its owning key, preserving the order
// results are produced in.
func (m SubmissionCheckResult) Add(key string, result Result) {
	m[key] = append(m[key], result)
}
