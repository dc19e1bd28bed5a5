// Copyright 2025 Blindspot Software
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package check

import (
	"fmt"
	"go/parser"
	"go/token"
	"strconv"
	"strings"

	"github.com/lscobe16/simplecodetester/internal/submission"
)

// importCheck fails a submission that imports any of a set of forbidden
// packages. It never compiles or runs submitted code: it parses only the
// import block of each source file, so a submission that would otherwise
// fail to compile can still be rejected for an import violation.
type importCheck struct {
	name      string
	forbidden []string
}

func (c *importCheck) Name() string               { return c.name }
func (c *importCheck) RequiredType() RequiredType { return RequiredStaticTest }

// RunStatic inspects the raw source of every file in the submission, not
// the compiled artifacts: a file that fails to compile still has an import
// block worth checking.
func (c *importCheck) RunStatic(sub *submission.CompiledSubmission, sources map[string]string) Result {
	forbidden := make(map[string]struct{}, len(c.forbidden))
	for _, p := range c.forbidden {
		forbidden[p] = struct{}{}
	}

	names := make([]string, 0, len(sources))
	for name := range sources {
		names = append(names, name)
	}

	violations := make([]string, 0)

	for _, name := range names {
		imports, err := parseImports(sources[name])
		if err != nil {
			// A file that cannot even be parsed for its import block is
			// reported, not silently skipped: the runner still needs one
			// Result per check.
			return Result{
				CheckName: c.name,
				Outcome:   Errored,
				Message:   fmt.Sprintf("parsing imports of %q: %v", name, err),
			}
		}

		for _, imp := range imports {
			if _, ok := forbidden[imp]; ok {
				violations = append(violations, fmt.Sprintf("%s imports %q", name, imp))
			}
		}
	}

	if len(violations) > 0 {
		return Result{
			CheckName: c.name,
			Outcome:   Failed,
			Message:   strings.Join(violations, "; "),
		}
	}

	return Result{
		CheckName: c.name,
		Outcome:   Passed,
	}
}

// parseImports returns the import paths declared by one source file,
// without type-checking or compiling it.
func parseImports(source string) ([]string, error) {
	fset := token.NewFileSet()

	f, err := parser.ParseFile(fset, "", source, parser.ImportsOnly)
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, len(f.Imports))
	for _, imp := range f.Imports {
		path, err := strconv.Unquote(imp.Path.Value)
		if err != nil {
			continue
		}

		out = append(out, path)
	}

	return out, nil
}
