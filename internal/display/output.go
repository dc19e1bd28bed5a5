// Copyright 2025 Blindspot Software
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package display provides interfaces and implementations for pretty-
// printing the envelopes a slave reports: compilation diagnostics,
// per-check results, and the final aggregated submission result.
package display

import (
	"io"
)

// ContentType is an identifier for different kinds of formatted output.
type ContentType string

const (
	// TypeGeneral represents general text output.
	TypeGeneral ContentType = "general"

	// TypeCompilationFailed represents a compiler's diagnostics for a
	// submission that never produced a runnable artifact.
	TypeCompilationFailed ContentType = "compilation-failed"

	// TypeCheckResult represents a single check's outcome against one file.
	TypeCheckResult ContentType = "check-result"

	// TypeSubmissionResult represents the full aggregated result of a
	// submission's check run.
	TypeSubmissionResult ContentType = "submission-result"

	// TypeVersion represents version information.
	TypeVersion ContentType = "version"
)

// Content is a structured data unit to be formatted and displayed.
type Content struct {
	// Type identifies the category of this content.
	Type ContentType

	// Data holds the actual content, which can be a string or structured data like []string.
	Data interface{}

	// IsError indicates whether this content represents an error.
	IsError bool

	// Metadata contains additional contextual information about the content.
	// Common keys include:
	// - "uid": the slave's submission UID
	// - "msg": message or description of the envelope
	// - "check": the check name a result belongs to
	// - "file": the qualified file name a result belongs to
	Metadata map[string]string
}

// Formatter provides methods to format and output content in different styles.
type Formatter interface {
	// WriteContent formats and outputs a structured content object.
	WriteContent(content Content)

	// Write sends plain text to standard output as a convenience method.
	Write(text string)

	// WriteErr sends plain text to standard error as a convenience method.
	WriteErr(text string)

	// Buffer enables output buffering mode, accumulating content instead of immediate output.
	Buffer()

	// IsBuffering returns whether the formatter is currently in buffering mode.
	IsBuffering() bool

	// Flush writes all buffered content and returns to immediate mode.
	Flush() error
}

// Config contains the configuration options for output formatters.
type Config struct {
	// Stdout is the writer for standard output.
	Stdout io.Writer

	// Stderr is the writer for standard error.
	Stderr io.Writer

	// NoColor disables colored output when set to true.
	NoColor bool

	// Format specifies the output format (text, json, yaml).
	Format string

	// Verbose enables additional details in the output.
	Verbose bool
}

// New creates an appropriate output formatter based on the provided configuration.
//
//nolint:ireturn
func New(config Config) Formatter {
	switch config.Format {
	case "json":
		return newJSONFormatter(config)
	case "yaml":
		return newYAMLFormatter(config)
	case "csv", "oneline":
		return newOneLineFormatter(config)
	default:
		return newTextFormatter(config)
	}
}
