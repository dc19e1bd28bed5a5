// Copyright 2025 Blindspot Software
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package submission holds the data model shared by the compiler, the
// loader and the check runner: a student's submitted files, what the
// compiler made of them, and the per-file artifacts the runner drives.
package submission

import "sort"

// SourceFile is one named source text within a Submission. Files is a list
// rather than a map so that two files sharing a qualified name survive JSON
// decoding intact: a map would silently drop the duplicate before the
// compiler ever saw it, which would make the "duplicate qualified name"
// compile error unreachable.
type SourceFile struct {
	Name   string `json:"name"`
	Source string `json:"source"`
}

// Submission is an immutable bundle of source files sent by the master.
// At least one file is expected to declare a main entry point; its absence
// is not a compile error: the runner reports SKIPPED results for it.
type Submission struct {
	// Files lists the submitted source files, in the order the master sent
	// them. A name may repeat; the compiler rejects that with an ERROR
	// diagnostic rather than silently picking one.
	Files []SourceFile `json:"files"`

	// EntryHint optionally names the file holding the entry point. It is
	// carried with the submission but neither the compiler nor the runner
	// reads it: every file that declares a main entry point is run.
	EntryHint string `json:"entryHint,omitempty"`
}

// SourceMap collapses Files into a name-to-source lookup for callers (the
// IMPORT check, the check runner) that only ever want a single file's
// source by name and don't care about declaration order or duplicates.
// When a name repeats, the last occurrence wins; callers that must reject
// duplicates do so against Files directly, before this collapse happens.
func (s Submission) SourceMap() map[string]string {
	m := make(map[string]string, len(s.Files))
	for _, f := range s.Files {
		m[f.Name] = f.Source
	}

	return m
}

// Severity classifies a single compilation diagnostic.
type Severity string

const (
	SeverityError   Severity = "ERROR"
	SeverityWarning Severity = "WARNING"
	SeverityInfo    Severity = "INFO"
)

// Diagnostic is one compiler-reported finding, normalized to a common shape
// regardless of which underlying tool (yaegi, go/parser) produced it.
type Diagnostic struct {
	Severity Severity `json:"severity"`
	File     string   `json:"file"`
	Line     int      `json:"line"`
	Column   int      `json:"column"`
	Message  string   `json:"message"`
}

// CompilationOutput is the result of compiling a set of source files.
// It is Successful iff no diagnostic has Severity ERROR and Artifacts is
// non-empty.
type CompilationOutput struct {
	Successful  bool                `json:"successful"`
	Diagnostics []Diagnostic        `json:"diagnostics"`
	Artifacts   map[string]Artifact `json:"-"`
}

// HasErrors reports whether any diagnostic has ERROR severity.
func (o CompilationOutput) HasErrors() bool {
	for _, d := range o.Diagnostics {
		if d.Severity == SeverityError {
			return true
		}
	}

	return false
}

// Artifact is an opaque compiled blob. For the interpreter-backed compiler
// this is the parsed-and-typechecked representation yaegi keeps per file;
// it never touches disk and is never serialized back to the master.
type Artifact struct {
	QualifiedName string
	HasMain       bool
}

// LoaderHandle identifies the disposable namespace a compiled file was
// loaded into. Two submissions never share a handle (invariant (i) of the
// data model).
type LoaderHandle uint64

// CompiledFile is a single compiled artifact within a submission.
type CompiledFile struct {
	QualifiedName string
	Artifact      Artifact
	LoaderHandle  LoaderHandle
}

// HasMain reports whether this file declares a runnable entry point.
func (f CompiledFile) HasMain() bool {
	return f.Artifact.HasMain
}

// CompiledSubmission is created once per submission and destroyed when the
// slave exits (or, for tests, when its loader context is explicitly
// released).
type CompiledSubmission struct {
	Output CompilationOutput
	Files  []CompiledFile

	// release, if set, frees the loader context(s) backing Files. Called
	// exactly once by whoever owns the CompiledSubmission's lifetime.
	release func()
}

// NewCompiledSubmission builds a CompiledSubmission, sorting Files by
// qualified name to satisfy the check runner's file-ordering guarantee.
func NewCompiledSubmission(output CompilationOutput, files []CompiledFile, release func()) *CompiledSubmission {
	sorted := make([]CompiledFile, len(files))
	copy(sorted, files)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].QualifiedName < sorted[j].QualifiedName })

	return &CompiledSubmission{
		Output:  output,
		Files:   sorted,
		release: release,
	}
}

// MainFiles returns the subset of Files that declare an entry point, in
// the order they already appear (lexicographic by qualified name).
func (c *CompiledSubmission) MainFiles() []CompiledFile {
	out := make([]CompiledFile, 0, len(c.Files))

	for _, f := range c.Files {
		if f.HasMain() {
			out = append(out, f)
		}
	}

	return out
}

// Release discards the CompiledSubmission, freeing any loader context it
// owns. Safe to call multiple times; only the first call has an effect.
func (c *CompiledSubmission) Release() {
	if c.release == nil {
		return
	}

	release := c.release
	c.release = nil
	release()
}
