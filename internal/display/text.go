// Copyright 2025 Blindspot Software
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package display

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/lscobe16/simplecodetester/internal/check"
	"github.com/lscobe16/simplecodetester/internal/submission"
)

// TextFormatter implements Formatter with plain text formatting capabilities.
// It supports:
// - Separate stdout and stderr streams.
// - Buffering mode for deferred output.
// - Metadata handling with intelligent caching to avoid repetitive headers.
// - Verbose mode to control metadata visibility.
type TextFormatter struct {
	stdout              io.Writer
	stderr              io.Writer
	verbose             bool
	buffering           bool
	stdBuffer           bytes.Buffer
	errBuffer           bytes.Buffer
	metadataCache       map[string]string // Cache to remember last printed metadata
	isLastWriteToStderr bool              // Tracks if the last metadata write was to stderr (true) or stdout (false)
	invertedMetadata    bool              // Controls whether metadata is displayed with inverted colors
}

// newTextFormatter creates a new TextFormatter instance configured according to the provided Config.
// If config.Stdout or config.Stderr are nil, it defaults to os.Stdout and os.Stderr respectively.
// The formatter starts in non-buffered mode with an empty metadata cache.
func newTextFormatter(config Config) *TextFormatter {
	if config.Stdout == nil {
		config.Stdout = os.Stdout
	}

	if config.Stderr == nil {
		config.Stderr = os.Stderr
	}

	return &TextFormatter{
		stdout:           config.Stdout,
		stderr:           config.Stderr,
		verbose:          config.Verbose,
		buffering:        false,
		metadataCache:    make(map[string]string),
		invertedMetadata: !config.NoColor, // Enable inverted metadata by default unless NoColor is set
	}
}

// WriteContent formats and outputs structured content.
func (f *TextFormatter) WriteContent(content Content) {
	// Get appropriate writer based on buffering mode and error state
	var writer io.Writer

	if f.buffering {
		if content.IsError {
			writer = &f.errBuffer
		} else {
			writer = &f.stdBuffer
		}
	} else {
		if content.IsError {
			writer = f.stderr
		} else {
			writer = f.stdout
		}
	}

	// Format and write content based on type, regardless of error state
	switch content.Type {
	case TypeCompilationFailed:
		f.writeCompilationFailedTo(content, writer)
	case TypeCheckResult:
		f.writeCheckResultTo(content, writer)
	case TypeSubmissionResult:
		f.writeSubmissionResultTo(content, writer)
	case TypeVersion:
		f.writeVersionTo(content, writer)
	default:
		// For general text or unrecognized types
		f.writeGeneralTo(content, writer)
	}
}

// Write sends text to standard output.
func (f *TextFormatter) Write(text string) {
	if f.buffering {
		fmt.Fprint(&f.stdBuffer, text)
	} else {
		fmt.Fprint(f.stdout, text)
	}
}

// WriteErr sends text to standard error.
func (f *TextFormatter) WriteErr(text string) {
	if f.buffering {
		fmt.Fprint(&f.errBuffer, text)
	} else {
		fmt.Fprint(f.stderr, text)
	}
}

// Buffer starts accumulating content instead of immediate output.
func (f *TextFormatter) Buffer() {
	f.buffering = true
}

// IsBuffering returns true if the formatter is in buffered mode.
func (f *TextFormatter) IsBuffering() bool {
	return f.buffering
}

// Flush ensures all buffered output is written.
func (f *TextFormatter) Flush() error {
	if !f.buffering {
		return nil
	}

	// Write all buffered content to the appropriate streams
	if f.stdBuffer.Len() > 0 {
		_, err := f.stdBuffer.WriteTo(f.stdout)
		if err != nil {
			return fmt.Errorf("error writing stdout buffer: %v", err)
		}
	}

	if f.errBuffer.Len() > 0 {
		_, err := f.errBuffer.WriteTo(f.stderr)
		if err != nil {
			return fmt.Errorf("error writing stderr buffer: %v", err)
		}
	}

	// Reset buffering state and clear metadata cache
	f.buffering = false
	f.clearMetadataCache()

	return nil
}

// Helper methods for different content types

// writeCompilationFailedTo formats and writes a compiler's diagnostics.
func (f *TextFormatter) writeCompilationFailedTo(content Content, writer io.Writer) {
	if diags, ok := content.Data.([]submission.Diagnostic); ok {
		f.writeMetadata(content, writer)

		for _, d := range diags {
			if d.File != "" {
				fmt.Fprintf(writer, "- [%s] %s:%d:%d: %s\n", d.Severity, d.File, d.Line, d.Column, d.Message)
			} else {
				fmt.Fprintf(writer, "- [%s] %s\n", d.Severity, d.Message)
			}
		}
	} else {
		f.writeGeneralTo(content, writer)
	}
}

// writeCheckResultTo formats and writes a single check's outcome.
func (f *TextFormatter) writeCheckResultTo(content Content, writer io.Writer) {
	if result, ok := content.Data.(check.Result); ok {
		f.writeMetadata(content, writer)

		if result.FileQualifiedName != "" {
			fmt.Fprintf(writer, "[%s] %s (%s): %s\n", result.Outcome, result.CheckName, result.FileQualifiedName, result.Message)
		} else {
			fmt.Fprintf(writer, "[%s] %s: %s\n", result.Outcome, result.CheckName, result.Message)
		}

		if result.CapturedOutput != "" {
			fmt.Fprintf(writer, "  stdout: %s\n", result.CapturedOutput)
		}

		if result.ErrorOutput != "" {
			fmt.Fprintf(writer, "  stderr: %s\n", result.ErrorOutput)
		}
	} else {
		f.writeGeneralTo(content, writer)
	}
}

// writeSubmissionResultTo formats and writes the full aggregated result of a
// submission's check run, one file's results at a time, in a stable key
// order so repeated runs render identically.
func (f *TextFormatter) writeSubmissionResultTo(content Content, writer io.Writer) {
	results, ok := content.Data.(check.SubmissionCheckResult)
	if !ok {
		f.writeGeneralTo(content, writer)
		return
	}

	f.writeMetadata(content, writer)

	keys := make([]string, 0, len(results))
	for key := range results {
		keys = append(keys, key)
	}

	slices.Sort(keys)

	for _, key := range keys {
		label := key
		if label == check.StaticResultsKey {
			label = "(static)"
		}

		fmt.Fprintf(writer, "== %s ==\n", label)

		for _, result := range results[key] {
			f.writeCheckResultTo(Content{Type: TypeCheckResult, Data: result}, writer)
		}
	}
}

// writeVersionTo formats and writes version information.
func (f *TextFormatter) writeVersionTo(content Content, writer io.Writer) {
	if version, ok := content.Data.(string); ok {
		// Print metadata before content
		f.writeMetadata(content, writer)

		fmt.Fprintln(writer, version)
	} else {
		f.writeGeneralTo(content, writer)
	}
}

// writeGeneralTo handles general-purpose content formatting for various data types.
func (f *TextFormatter) writeGeneralTo(content Content, writer io.Writer) {
	// Print metadata before content
	f.writeMetadata(content, writer)

	switch data := content.Data.(type) {
	case string:
		fmt.Fprint(writer, data)
	case []byte:
		fmt.Fprint(writer, string(data))
	case []string:
		for _, line := range data {
			fmt.Fprintln(writer, line)
		}
	default:
		fmt.Fprintf(writer, "%v", data)
	}
}

// writeMetadata prints metadata if verbose mode is enabled and metadata has changed.
func (f *TextFormatter) writeMetadata(content Content, writer io.Writer) {
	// Quick return if not verbose or no metadata
	if !f.verbose || len(content.Metadata) == 0 {
		return
	}

	if !f.hasMetadataChanged(content.Metadata, writer) {
		// No change, no output
		return
	}

	// ANSI escape codes for inverted text and reset - only used if invertedMetadata is true
	const (
		invertCode = "\033[7m" // Invert colors
		resetCode  = "\033[0m" // Reset formatting
	)

	// Process metadata that should be printed
	knownMetadata, otherMetadata := splitMetadata(content.Metadata)

	if sentence := metadataText(knownMetadata); sentence != "" {
		if f.invertedMetadata {
			fmt.Fprintf(writer, "%s# %s%s\n", invertCode, sentence, resetCode)
		} else {
			fmt.Fprintf(writer, "%s\n", sentence)
		}
	}

	// Print all remaining metadata one entry per line, sorted by keys
	if len(otherMetadata) > 0 {
		keys := make([]string, 0, len(otherMetadata))
		for key := range otherMetadata {
			keys = append(keys, key)
		}

		slices.Sort(keys)

		for _, key := range keys {
			if f.invertedMetadata {
				fmt.Fprintf(writer, "%s# %s: %s%s\n", invertCode, key, otherMetadata[key], resetCode)
			} else {
				fmt.Fprintf(writer, "%s: %s\n", key, otherMetadata[key])
			}
		}
	}

	fmt.Fprintln(writer)

	f.updateMetadataCache(content.Metadata)
}

// updateMetadataCache saves the current metadata to the cache.
func (f *TextFormatter) updateMetadataCache(metadata map[string]string) {
	// Clear existing cache
	for key := range f.metadataCache {
		delete(f.metadataCache, key)
	}

	// Copy new metadata to cache
	for key, value := range metadata {
		f.metadataCache[key] = value
	}
}

// splitMetadata separates known metadata keys from the rest.
func splitMetadata(metadata map[string]string) (map[string]string, map[string]string) {
	knownKeys := []string{"uid", "msg", "check", "file"}
	known := make(map[string]string)
	other := make(map[string]string)

	// Copy the original map to avoid modifying it
	for key, value := range metadata {
		isKnown := false

		for _, knownKey := range knownKeys {
			if key == knownKey {
				known[key] = value
				isKnown = true

				break
			}
		}

		if !isKnown {
			other[key] = value
		}
	}

	return known, other
}

// metadataText creates a descriptive sentence from any combination of known metadata keys.
func metadataText(known map[string]string) string {
	var parts []string

	if uid, ok := known["uid"]; ok {
		parts = append(parts, fmt.Sprintf("submission %s", uid))
	}

	if msg, ok := known["msg"]; ok {
		parts = append(parts, fmt.Sprintf("(%s)", msg))
	}

	if chk, ok := known["check"]; ok {
		parts = append(parts, fmt.Sprintf("check %q", chk))
	}

	if file, ok := known["file"]; ok {
		parts = append(parts, fmt.Sprintf("file %q", file))
	}

	return strings.Join(parts, " ")
}

// clearMetadataCache empties the metadata cache.
func (f *TextFormatter) clearMetadataCache() {
	for key := range f.metadataCache {
		delete(f.metadataCache, key)
	}
}

// hasMetadataChanged checks if the metadata has changed since the last time it was printed.
// It returns true if metadata should be printed (is different from cache) or if the writer has changed.
func (f *TextFormatter) hasMetadataChanged(metadata map[string]string, writer io.Writer) bool {
	// Always print metadata if the cache is empty
	if len(f.metadataCache) == 0 {
		return true
	}

	if len(metadata) != len(f.metadataCache) {
		return true
	}

	if hasWriterChanged(f, writer) {
		f.isLastWriteToStderr = !f.isLastWriteToStderr

		return true
	}

	return hasMetadataValueChanged(f, metadata)
}

// hasWriterChanged checks if the output writer has changed between stderr and stdout.
func hasWriterChanged(f *TextFormatter, writer io.Writer) bool {
	isStderr := (writer == f.stderr) || (f.buffering && writer == &f.errBuffer)

	return (isStderr && !f.isLastWriteToStderr) || (!isStderr && f.isLastWriteToStderr)
}

// hasMetadataValueChanged checks if any metadata value has changed from the cached version.
func hasMetadataValueChanged(f *TextFormatter, metadata map[string]string) bool {
	for key, value := range metadata {
		cachedValue, exists := f.metadataCache[key]
		if !exists || cachedValue != value {
			return true
		}
	}

	// No changes detected - don't print metadata again
	return false
}

// Skip the separate metadataValuesChanged function to simplify the implementation
