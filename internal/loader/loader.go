// Copyright 2025 Blindspot Software
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package loader owns the disposable interpreter namespaces submissions
// and source-code checks run in. Each namespace is a *interp.Interpreter;
// yaegi keeps no global registry of interpreters, so dropping the last
// reference to a Context makes it eligible for garbage collection
// immediately, satisfying the one-shot, no-leftover-state contract.
package loader

import (
	"context"
	"fmt"
	"io"
	"reflect"
	"sync/atomic"

	"github.com/traefik/yaegi/interp"

	"github.com/lscobe16/simplecodetester/internal/sandbox"
	"github.com/lscobe16/simplecodetester/internal/submission"
)

// Context wraps one interpreter namespace plus the handle that names it.
type Context struct {
	Handle submission.LoaderHandle

	interp *interp.Interpreter
}

// EvalWithContext compiles and/or runs src, honoring ctx's cancellation.
// yaegi polls the context between bytecode steps, which is what lets an
// unconditional `for {}` submission actually be interrupted rather than
// blocking the slave forever.
func (c *Context) EvalWithContext(ctx context.Context, src string) (any, error) {
	v, err := c.interp.EvalWithContext(ctx, src)
	if err != nil {
		return nil, err
	}

	return v.Interface(), nil
}

// HasFunc reports whether name is declared at package scope as a function.
// Its parameters and results are not inspected.
func (c *Context) HasFunc(name string) bool {
	v, err := c.interp.Eval(name)

	return err == nil && v.IsValid() && v.Kind() == reflect.Func
}

// Pool mints fresh Contexts. Every compiled file, and every source-code
// check's compiled body, gets its own Context: two files that each declare
// "package main" would otherwise collide in one shared interpreter scope.
type Pool struct {
	policy *sandbox.Policy
	nextID uint64
}

// NewPool returns a Pool enforcing policy in every Context it mints.
func NewPool(policy *sandbox.Policy) *Pool {
	return &Pool{policy: policy}
}

// Policy returns the whitelist this pool enforces, so a caller that needs
// to reason about an import path's admissibility (internal/compiler's
// static pre-scan) doesn't need its own reference threaded through.
func (p *Pool) Policy() *sandbox.Policy {
	return p.policy
}

// NextHandle mints a handle without creating a Context, for a caller that
// records a Runtime with no backing interpreter (a sandbox violation
// caught before Eval ever runs).
func (p *Pool) NextHandle() submission.LoaderHandle {
	return submission.LoaderHandle(atomic.AddUint64(&p.nextID, 1))
}

// New mints a fresh Context wired to stdin/stdout/stderr via policy's
// restricted symbol table.
func (p *Pool) New(stdin io.Reader, stdout, stderr io.Writer) *Context {
	handle := p.NextHandle()

	it := interp.New(sandbox.Options())
	if err := it.Use(p.policy.Exports(stdin, stdout, stderr)); err != nil {
		// Use only fails for malformed Exports tables, which are a
		// programming error in sandbox.Policy, not a submission defect.
		panic(fmt.Sprintf("loader: invalid sandbox policy: %v", err))
	}

	return &Context{Handle: handle, interp: it}
}
