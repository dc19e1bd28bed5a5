// Copyright 2025 Blindspot Software
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package runner drives a compiled submission's files through a sequence
// of checks: reset interceptor, install input, invoke under a wall-clock
// budget, classify the outcome. STATIC_TEST checks run once against the
// whole submission; USER_CODE_MAIN checks run once per file that declares
// a main entry point.
package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/lscobe16/simplecodetester/internal/check"
	"github.com/lscobe16/simplecodetester/internal/compiler"
	"github.com/lscobe16/simplecodetester/internal/submission"
)

// DefaultCheckBudget bounds how long a single check invocation may run
// before it is killed and reported as ERRORED. yaegi's EvalWithContext
// polls this context between bytecode steps, which is what lets an
// unconditional for{} submission actually be interrupted.
const DefaultCheckBudget = 10 * time.Second

// Runner executes checks against one compiled submission.
type Runner struct {
	runtimes    map[submission.LoaderHandle]*compiler.Runtime
	checkBudget time.Duration
}

// New returns a Runner driving the namespaces in runtimes.
func New(runtimes map[submission.LoaderHandle]*compiler.Runtime) *Runner {
	return &Runner{runtimes: runtimes, checkBudget: DefaultCheckBudget}
}

// WithCheckBudget overrides the default per-invocation wall-clock budget.
func (r *Runner) WithCheckBudget(d time.Duration) *Runner {
	r.checkBudget = d
	return r
}

// InvokeMain implements check.Invoker: it resets file's interceptor,
// installs input, calls main() under the runner's wall-clock budget, and
// returns captured output. Captured output reflects only writes made
// during this one invocation.
func (r *Runner) InvokeMain(ctx context.Context, file submission.CompiledFile, input []string) (stdout, stderr string, err error) {
	rt, ok := r.runtimes[file.LoaderHandle]
	if !ok {
		return "", "", fmt.Errorf("runner: no namespace for %q", file.QualifiedName)
	}

	if rt.Violation != nil {
		return "", "", fmt.Errorf("runner: %q: %w", file.QualifiedName, rt.Violation)
	}

	rt.Interceptor.SetInput(input)
	rt.Interceptor.Reset()

	budgeted, cancel := context.WithTimeout(ctx, r.checkBudget)
	defer cancel()

	_, evalErr := rt.Ctx.EvalWithContext(budgeted, "main()")

	stdout = rt.Interceptor.Output()
	stderr = rt.Interceptor.ErrorOutput()

	if evalErr != nil {
		if budgeted.Err() != nil {
			return stdout, stderr, fmt.Errorf("runner: %q exceeded its %s budget", file.QualifiedName, r.checkBudget)
		}

		return stdout, stderr, fmt.Errorf("runner: %q: %w", file.QualifiedName, evalErr)
	}

	return stdout, stderr, nil
}

// Run executes every check against sub, in the order checks are given, and
// returns the aggregated result. For each USER_CODE_MAIN check, the
// invocation order over files follows sub.MainFiles()'s qualified-name
// order.
func (r *Runner) Run(ctx context.Context, sub *submission.CompiledSubmission, checks []check.Check, sources map[string]string) check.SubmissionCheckResult {
	result := make(check.SubmissionCheckResult)
	mains := sub.MainFiles()

	for _, c := range checks {
		switch c.RequiredType() {
		case check.RequiredStaticTest:
			staticCheck, ok := c.(check.StaticCheck)
			if !ok {
				result.Add(check.StaticResultsKey, check.Result{
					CheckName: c.Name(),
					Outcome:   check.Errored,
					Message:   "check declares STATIC_TEST but does not implement StaticCheck",
				})

				continue
			}

			result.Add(check.StaticResultsKey, staticCheck.RunStatic(sub, sources))

		case check.RequiredUserCodeMain:
			fileCheck, ok := c.(check.FileCheck)
			if !ok {
				for _, f := range mains {
					result.Add(f.QualifiedName, check.Result{
						CheckName:         c.Name(),
						FileQualifiedName: f.QualifiedName,
						Outcome:           check.Errored,
						Message:           "check declares USER_CODE_MAIN but does not implement FileCheck",
					})
				}

				continue
			}

			if len(mains) == 0 {
				result.Add(check.StaticResultsKey, check.Result{
					CheckName: c.Name(),
					Outcome:   check.Skipped,
					Message:   "submission has no entry point to run against",
				})

				continue
			}

			for _, f := range mains {
				result.Add(f.QualifiedName, fileCheck.RunFile(ctx, r, f))
			}
		}
	}

	return result
}
