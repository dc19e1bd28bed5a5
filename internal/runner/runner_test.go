// Copyright 2025 Blindspot Software
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package runner

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/lscobe16/simplecodetester/internal/check"
	"github.com/lscobe16/simplecodetester/internal/compiler"
	"github.com/lscobe16/simplecodetester/internal/loader"
	"github.com/lscobe16/simplecodetester/internal/sandbox"
	"github.com/lscobe16/simplecodetester/internal/submission"
)

// compileOne compiles a single-file submission and returns its CompiledFile
// and the Runtime map a Runner needs.
func compileOne(t *testing.T, source string) (submission.CompiledFile, map[submission.LoaderHandle]*compiler.Runtime) {
	t.Helper()

	c := compiler.New(loader.NewPool(sandbox.Default()))
	compiled, runtimes := c.Compile(submission.Submission{Files: []submission.SourceFile{{Name: "main", Source: source}}})

	if !compiled.Output.Successful {
		t.Fatalf("compileOne: compilation failed: %+v", compiled.Output.Diagnostics)
	}

	return compiled.Files[0], runtimes
}

func mustDecode(t *testing.T, checkType check.Type, payload any) check.Check {
	t.Helper()

	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}

	c, err := check.Decode(check.RawSpec{Type: checkType, Payload: raw}, nil)
	if err != nil {
		t.Fatalf("check.Decode() error = %v", err)
	}

	return c
}

func TestInvokeMainEchoesStdin(t *testing.T) {
	file, runtimes := compileOne(t, `package main

import (
	"bufio"
	"fmt"
	"os"
)

func main() {
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Scan()
	fmt.Println("hello " + scanner.Text())
}
`)

	r := New(runtimes)

	stdout, _, err := r.InvokeMain(context.Background(), file, []string{"world"})
	if err != nil {
		t.Fatalf("InvokeMain() error = %v", err)
	}

	if stdout != "hello world\n" {
		t.Errorf("InvokeMain() stdout = %q, want %q", stdout, "hello world\n")
	}
}

func TestInvokeMainUnknownHandle(t *testing.T) {
	r := New(map[submission.LoaderHandle]*compiler.Runtime{})

	file := submission.CompiledFile{QualifiedName: "main", LoaderHandle: 42}

	if _, _, err := r.InvokeMain(context.Background(), file, nil); err == nil {
		t.Error("InvokeMain() with no runtime for the handle should error")
	}
}

func TestInvokeMainExceedsBudget(t *testing.T) {
	file, runtimes := compileOne(t, `package main

func main() {
	for {}
}
`)

	r := New(runtimes).WithCheckBudget(50 * time.Millisecond)

	_, _, err := r.InvokeMain(context.Background(), file, nil)
	if err == nil {
		t.Error("InvokeMain() of an infinite loop should error on budget exhaustion")
	}
}

func TestInvokeMainSandboxViolation(t *testing.T) {
	handle := submission.LoaderHandle(99)
	runtimes := map[submission.LoaderHandle]*compiler.Runtime{
		handle: {Violation: sandbox.Default().Violation("os/exec")},
	}

	r := New(runtimes)

	file := submission.CompiledFile{QualifiedName: "main", LoaderHandle: handle}

	if _, _, err := r.InvokeMain(context.Background(), file, nil); err == nil {
		t.Error("InvokeMain() against a sandbox-violating file should error")
	}
}

func TestRunIOCheckAgainstMainFiles(t *testing.T) {
	file, runtimes := compileOne(t, `package main

import "fmt"

func main() {
	fmt.Println("hi")
}
`)

	sub := submission.NewCompiledSubmission(submission.CompilationOutput{Successful: true}, []submission.CompiledFile{file}, func() {})

	r := New(runtimes)

	ioCheck := mustDecode(t, check.TypeIO, map[string]any{
		"name":           "greeting",
		"expectedOutput": "hi\n",
	})

	result := r.Run(context.Background(), sub, []check.Check{ioCheck}, nil)

	want := check.SubmissionCheckResult{
		file.QualifiedName: {{
			CheckName:         "greeting",
			FileQualifiedName: file.QualifiedName,
			Outcome:           check.Passed,
			CapturedOutput:    "hi\n",
		}},
	}

	if diff := cmp.Diff(want, result, cmpopts.IgnoreFields(check.Result{}, "Message")); diff != "" {
		t.Errorf("Run() result mismatch (-want +got):\n%s", diff)
	}
}

func TestRunStaticCheckAgainstSources(t *testing.T) {
	file, runtimes := compileOne(t, `package main

import (
	"fmt"
	"os/exec"
)

func main() {
	fmt.Println(exec.Command("ls"))
}
`)

	sub := submission.NewCompiledSubmission(submission.CompilationOutput{Successful: true}, []submission.CompiledFile{file}, func() {})

	r := New(runtimes)

	importCheck := mustDecode(t, check.TypeImport, map[string]any{
		"name":             "no-exec",
		"forbiddenImports": []string{"os/exec"},
	})

	sources := map[string]string{"main": `package main

import (
	"fmt"
	"os/exec"
)

func main() {
	fmt.Println(exec.Command("ls"))
}
`}

	result := r.Run(context.Background(), sub, []check.Check{importCheck}, sources)

	got, ok := result[check.StaticResultsKey]
	if !ok || len(got) != 1 {
		t.Fatalf("Run() static result = %+v, want one Result", result)
	}

	if got[0].Outcome != check.Failed {
		t.Errorf("Run() outcome = %v, want FAILED: %+v", got[0].Outcome, got[0])
	}
}

func TestRunUserCodeMainCheckWithNoEntryPoint(t *testing.T) {
	sub := submission.NewCompiledSubmission(submission.CompilationOutput{}, nil, func() {})

	r := New(nil)

	ioCheck := mustDecode(t, check.TypeIO, map[string]any{
		"name":           "greeting",
		"expectedOutput": "hi\n",
	})

	result := r.Run(context.Background(), sub, []check.Check{ioCheck}, nil)

	got, ok := result[check.StaticResultsKey]
	if !ok || len(got) != 1 {
		t.Fatalf("Run() with no entry point = %+v, want one SKIPPED Result", result)
	}

	if got[0].Outcome != check.Skipped {
		t.Errorf("Run() outcome = %v, want SKIPPED", got[0].Outcome)
	}
}
