// Copyright 2025 Blindspot Software
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package sandbox builds the capability whitelist a loader namespace is
// allowed to see. yaegi requires every importable package and symbol to be
// registered explicitly via (*interp.Interpreter).Use before interpreted
// code can reference it, so denial is the default: a package this policy
// never registers is simply an undefined identifier to submitted code, not
// something a runtime check has to trap.
package sandbox

import (
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
	"gopkg.in/yaml.v3"
)

// defaultAllowed is the set of standard-library import paths considered
// safe for untrusted code: no filesystem, process, network, unsafe or
// reflection access.
var defaultAllowed = map[string]bool{
	"fmt":          true,
	"strings":      true,
	"strconv":      true,
	"bufio":        true,
	"bytes":        true,
	"errors":       true,
	"sort":         true,
	"math":         true,
	"math/rand":    true,
	"unicode":      true,
	"unicode/utf8": true,
	"time":         true,
}

// Policy holds a (possibly YAML-overridden) whitelist of importable
// packages.
type Policy struct {
	allowed map[string]bool
}

// config is the shape of an optional sandbox.yaml whitelist override.
type config struct {
	AllowedPackages []string `yaml:"allowedPackages"`
}

// Default returns the hand-curated built-in policy.
func Default() *Policy {
	allowed := make(map[string]bool, len(defaultAllowed))
	for k, v := range defaultAllowed {
		allowed[k] = v
	}

	return &Policy{allowed: allowed}
}

// Load reads a YAML whitelist override. A package named in data replaces
// the built-in set entirely, so an operator can shrink (never silently
// grow beyond what this file can express) the sandbox's surface.
func Load(data []byte) (*Policy, error) {
	var cfg config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("sandbox: parse whitelist: %w", err)
	}

	allowed := make(map[string]bool, len(cfg.AllowedPackages))
	for _, pkg := range cfg.AllowedPackages {
		allowed[pkg] = true
	}

	return &Policy{allowed: allowed}, nil
}

// Exports builds the interp.Exports table a loader.Context should Use.
// Every package in p.allowed comes from yaegi's own stdlib.Symbols table
// except "os", which is hand-curated here to exclude Exit (denying
// "system exit" by the symbol simply not existing) and every
// filesystem-opening function: only Stdin, Stdout, Stderr and Args are
// exposed, wired to the terminal.Interceptor active for the invocation.
func (p *Policy) Exports(stdin io.Reader, stdout, stderr io.Writer) interp.Exports {
	exports := make(interp.Exports)

	for path, pkg := range stdlib.Symbols {
		name := packageImportPath(path)
		if p.allowed[name] && name != "os" {
			exports[path] = pkg
		}
	}

	exports["os/os"] = restrictedOS(stdin, stdout, stderr)

	return exports
}

// restrictedOS builds the symbol table for the sandboxed "os" package: no
// Exit, no filesystem, no process control, no environment mutation.
func restrictedOS(stdin io.Reader, stdout, stderr io.Writer) map[string]reflect.Value {
	return map[string]reflect.Value{
		"Stdin":  reflect.ValueOf(&stdin).Elem(),
		"Stdout": reflect.ValueOf(&stdout).Elem(),
		"Stderr": reflect.ValueOf(&stderr).Elem(),
		"Args":   reflect.ValueOf(&os.Args).Elem(),
	}
}

// packageImportPath recovers a plain import path ("fmt", "encoding/json")
// from a yaegi stdlib.Symbols key, which repeats the import path's last
// element as a trailing package-name component ("fmt/fmt",
// "encoding/json/json", "unicode/utf8/utf8").
func packageImportPath(symbolsKey string) string {
	segments := strings.Split(symbolsKey, "/")

	n := len(segments)
	if n >= 2 && segments[n-1] == segments[n-2] {
		return strings.Join(segments[:n-1], "/")
	}

	return symbolsKey
}

// Allowed reports whether path is importable under this policy. "os" is
// always allowed since Exports always substitutes the restricted os table
// for it regardless of whitelist contents.
func (p *Policy) Allowed(path string) bool {
	return path == "os" || p.allowed[path]
}

// Violation reports op as a denied operation, for a caller that detected
// the denial itself (e.g. internal/compiler's static import scan) rather
// than by catching an error yaegi raised.
func (p *Policy) Violation(op string) *Violation {
	return &Violation{Operation: op}
}

// Options returns the interp.Options fields this policy always sets,
// regardless of whitelist contents: no GOPATH (nothing is ever read from
// disk) and default build tags.
func Options() interp.Options {
	return interp.Options{}
}

// Violation names a denied operation. internal/compiler constructs one
// when a submitted file's import block names a package this policy never
// registered, so the check runner can classify the file's results as
// ERRORED instead of failing compilation outright.
type Violation struct {
	Operation string
}

func (v *Violation) Error() string {
	return fmt.Sprintf("sandbox: denied operation %q", v.Operation)
}
