// Copyright 2025 Blindspot Software
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package compiler turns a submission's source files into compiled
// artifacts without ever writing to disk. Go's plugin package requires an
// on-disk .so and cannot be unloaded, which would violate both the
// no-disk-write contract and the per-submission isolation invariant, so
// compilation and execution here share one substrate:
// github.com/traefik/yaegi/interp. interp.New followed by Eval performs
// parsing, type-checking and AST construction fully in memory, and each
// *interp.Interpreter is already a private, garbage-collectable namespace.
//
// Every submitted file gets its own namespace, not one shared per
// submission: two files each declaring "package main" would otherwise
// collide when both define func main in the same interpreter scope.
package compiler

import (
	"context"
	"fmt"
	"go/ast"
	"go/parser"
	"go/scanner"
	"go/token"
	"strconv"

	"github.com/lscobe16/simplecodetester/internal/check"
	"github.com/lscobe16/simplecodetester/internal/loader"
	"github.com/lscobe16/simplecodetester/internal/sandbox"
	"github.com/lscobe16/simplecodetester/internal/submission"
	"github.com/lscobe16/simplecodetester/internal/terminal"
)

// Runtime is the live namespace backing one CompiledFile: the interpreter
// it was compiled into and the interceptor standing in for its stdio. A
// file whose imports the sandbox denies never gets an interpreter at all;
// Violation is set instead and Ctx/Interceptor stay nil.
type Runtime struct {
	Ctx         *loader.Context
	Interceptor *terminal.Interceptor
	Violation   *sandbox.Violation
}

// Compiler compiles submissions and source-code checks through a shared
// loader.Pool.
type Compiler struct {
	pool *loader.Pool
}

// New returns a Compiler minting namespaces from pool.
func New(pool *loader.Pool) *Compiler {
	return &Compiler{pool: pool}
}

// Compile type-checks every file in sub, each into its own namespace.
// Duplicate qualified names and an empty submission are ERROR-severity
// diagnostics, not panics. A file whose import block names a package the
// sandbox denies is never handed to yaegi at all: it is recorded as a
// Runtime carrying a sandbox.Violation instead of an interpreter, so one
// denied file's checks come back ERRORED without poisoning the rest of the
// submission the way a compile-time diagnostic would (see
// internal/sandbox's package doc comment for why an unregistered import is
// otherwise indistinguishable from any other undefined identifier). The
// returned map lets a caller (internal/runner) drive each compiled file's
// main entry point later.
func (c *Compiler) Compile(sub submission.Submission) (*submission.CompiledSubmission, map[submission.LoaderHandle]*Runtime) {
	runtimes := make(map[submission.LoaderHandle]*Runtime)

	if len(sub.Files) == 0 {
		output := submission.CompilationOutput{
			Diagnostics: []submission.Diagnostic{{
				Severity: submission.SeverityError,
				Message:  "submission contains no files",
			}},
		}

		return submission.NewCompiledSubmission(output, nil, func() {}), runtimes
	}

	counts := make(map[string]int, len(sub.Files))
	for _, f := range sub.Files {
		counts[f.Name]++
	}

	var diagnostics []submission.Diagnostic
	reportedDuplicate := make(map[string]bool)

	files := make([]submission.CompiledFile, 0, len(sub.Files))

	for _, sf := range sub.Files {
		if counts[sf.Name] > 1 {
			if !reportedDuplicate[sf.Name] {
				diagnostics = append(diagnostics, submission.Diagnostic{
					Severity: submission.SeverityError,
					File:     sf.Name,
					Message:  fmt.Sprintf("duplicate qualified name %q", sf.Name),
				})
				reportedDuplicate[sf.Name] = true
			}

			continue
		}

		name, source := sf.Name, sf.Source

		pkgName, hasMain, parseDiags := inspectDecls(name, source, "main")
		if len(parseDiags) > 0 {
			diagnostics = append(diagnostics, parseDiags...)
			continue
		}

		artifact := submission.Artifact{
			QualifiedName: name,
			HasMain:       hasMain && pkgName == "main",
		}

		imports, err := scanImports(name, source)
		if err != nil {
			diagnostics = append(diagnostics, submission.Diagnostic{
				Severity: submission.SeverityError,
				File:     name,
				Message:  err.Error(),
			})

			continue
		}

		if denied, ok := firstDeniedImport(imports, c.pool.Policy()); ok {
			handle := c.pool.NextHandle()
			runtimes[handle] = &Runtime{Violation: c.pool.Policy().Violation(denied)}

			files = append(files, submission.CompiledFile{
				QualifiedName: name,
				Artifact:      artifact,
				LoaderHandle:  handle,
			})

			continue
		}

		interceptor := terminal.New()
		ctx := c.pool.New(interceptor.Stdin(), interceptor.Stdout(), interceptor.Stderr())

		if _, err := ctx.EvalWithContext(context.Background(), source); err != nil {
			diagnostics = append(diagnostics, submission.Diagnostic{
				Severity: submission.SeverityError,
				File:     name,
				Message:  err.Error(),
			})

			continue
		}

		runtimes[ctx.Handle] = &Runtime{Ctx: ctx, Interceptor: interceptor}

		files = append(files, submission.CompiledFile{
			QualifiedName: name,
			Artifact:      artifact,
			LoaderHandle:  ctx.Handle,
		})
	}

	output := submission.CompilationOutput{
		Diagnostics: diagnostics,
		Successful:  !hasErrorSeverity(diagnostics) && len(files) > 0,
	}

	return submission.NewCompiledSubmission(output, files, func() {}), runtimes
}

// scanImports returns the import paths source declares, without
// type-checking or compiling it. Separate from inspectDecls because
// go/parser's ImportsOnly mode tolerates a file whose body doesn't parse
// under AllErrors but whose import block is still well-formed — not a
// concern here since a file reaching this point already parsed cleanly,
// but kept as its own pass to mirror internal/check's import-only scan.
func scanImports(name, source string) ([]string, error) {
	fset := token.NewFileSet()

	f, err := parser.ParseFile(fset, name, source, parser.ImportsOnly)
	if err != nil {
		return nil, err
	}

	imports := make([]string, 0, len(f.Imports))

	for _, imp := range f.Imports {
		path, err := strconv.Unquote(imp.Path.Value)
		if err != nil {
			continue
		}

		imports = append(imports, path)
	}

	return imports, nil
}

// firstDeniedImport returns the first import path policy does not
// whitelist, if any.
func firstDeniedImport(imports []string, policy *sandbox.Policy) (string, bool) {
	for _, imp := range imports {
		if !policy.Allowed(imp) {
			return imp, true
		}
	}

	return "", false
}

// CompileCheck compiles a SOURCE_CODE check's body into its own namespace,
// separate from any submission's, and validates it declares a package-scope
// Check function before committing to an Eval.
func (c *Compiler) CompileCheck(name, source string) (check.CheckProgram, error) {
	_, hasCheck, parseDiags := inspectDecls(name, source, "Check")
	if len(parseDiags) > 0 {
		return nil, fmt.Errorf("%s", parseDiags[0].Message)
	}

	if !hasCheck {
		return nil, fmt.Errorf("check %q does not declare a package-scope Check function", name)
	}

	interceptor := terminal.New()
	ctx := c.pool.New(interceptor.Stdin(), interceptor.Stdout(), interceptor.Stderr())

	if _, err := ctx.EvalWithContext(context.Background(), source); err != nil {
		return nil, fmt.Errorf("compiling check %q: %w", name, err)
	}

	return &program{ctx: ctx}, nil
}

// inspectDecls statically parses source, without compiling it, to recover
// its package name and whether it declares a package-scope function named
// funcName.
func inspectDecls(name, source, funcName string) (pkgName string, hasFunc bool, diags []submission.Diagnostic) {
	fset := token.NewFileSet()

	f, err := parser.ParseFile(fset, name, source, parser.AllErrors)
	if err != nil {
		return "", false, parseErrDiagnostics(name, err)
	}

	for _, decl := range f.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if ok && fn.Recv == nil && fn.Name.Name == funcName {
			hasFunc = true
		}
	}

	return f.Name.Name, hasFunc, nil
}

func parseErrDiagnostics(file string, err error) []submission.Diagnostic {
	list, ok := err.(scanner.ErrorList) //nolint:errorlint
	if !ok {
		return []submission.Diagnostic{{
			Severity: submission.SeverityError,
			File:     file,
			Message:  err.Error(),
		}}
	}

	diags := make([]submission.Diagnostic, 0, len(list))
	for _, e := range list {
		diags = append(diags, submission.Diagnostic{
			Severity: submission.SeverityError,
			File:     file,
			Line:     e.Pos.Line,
			Column:   e.Pos.Column,
			Message:  e.Msg,
		})
	}

	return diags
}

func hasErrorSeverity(diags []submission.Diagnostic) bool {
	for _, d := range diags {
		if d.Severity == submission.SeverityError {
			return true
		}
	}

	return false
}

// program adapts a compiled check namespace to check.CheckProgram.
type program struct {
	ctx *loader.Context
}

// Evaluate calls the compiled body's package-scope Check function, which
// is expected to have the signature func Check(stdout, stderr string)
// string: an empty return means the check passed, a non-empty return is
// the failure message. A single string result, rather than a (bool,
// string) pair, sidesteps marshaling a multi-value return back out of the
// interpreter.
func (p *program) Evaluate(stdout, stderr string) (bool, string, error) {
	call := fmt.Sprintf("Check(%q, %q)", stdout, stderr)

	v, err := p.ctx.EvalWithContext(context.Background(), call)
	if err != nil {
		return false, "", err
	}

	message, _ := v.(string)

	return message == "", message, nil
}

func (p *program) Release() {}
