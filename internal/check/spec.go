// Copyright 2025 Blindspot Software
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package check models the three kinds of checks a master can ask a slave
// to run against a submission (IMPORT, IO, SOURCE_CODE), their wire
// representation, and the typed results a check invocation produces.
package check

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Type discriminates the three check payload shapes carried over the wire.
type Type string

const (
	TypeImport     Type = "IMPORT"
	TypeIO         Type = "IO"
	TypeSourceCode Type = "SOURCE_CODE"
)

// RequiredType says whether a Check must run once per compiled file with a
// main entry point, or once for the whole submission.
type RequiredType string

const (
	RequiredUserCodeMain RequiredType = "USER_CODE_MAIN"
	RequiredStaticTest   RequiredType = "STATIC_TEST"
)

// RawSpec is the on-the-wire shape of one check: a type tag plus its
// type-specific payload, still encoded. The wire codec decodes this much
// without knowing anything about check semantics; Decode does the rest.
type RawSpec struct {
	Type    Type            `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// ErrMalformed is wrapped by any error Decode returns. Callers (the slave's
// runChecks state) treat it as the MalformedMessage error kind from §7.
var ErrMalformed = errors.New("check: malformed check spec")

// importPayload backs TypeImport.
type importPayload struct {
	Name            string   `json:"name" validate:"required"`
	ForbiddenImport []string `json:"forbiddenImports" validate:"required,min=1"`
}

// ioPayload backs TypeIO. Either Input plus ExpectedOutput, or Text alone
// (used as the expected output), is accepted; see the dual-encoding
// rejection in Decode.
type ioPayload struct {
	Name           string   `json:"name" validate:"required"`
	Input          []string `json:"input"`
	ExpectedOutput *string  `json:"expectedOutput"`

	// Text, if present alongside Input/ExpectedOutput, makes the payload
	// ambiguous and is rejected outright (spec's open question, resolved:
	// reject rather than guess).
	Text *string `json:"text,omitempty"`
}

// sourceCodePayload backs TypeSourceCode.
type sourceCodePayload struct {
	Name   string `json:"name" validate:"required"`
	Source string `json:"source" validate:"required"`
}

var validate = validator.New()

// Decode turns one RawSpec into a runnable Check. It never executes any
// submitted code itself; a source-code check's body is compiled here, via
// the compiler passed in, so the caller's compiler owns every source-code
// check's namespace.
func Decode(raw RawSpec, compiler SourceCompiler) (Check, error) {
	switch raw.Type {
	case TypeImport:
		var p importPayload
		if err := strictUnmarshal(raw.Payload, &p); err != nil {
			return nil, fmt.Errorf("%w: import check: %v", ErrMalformed, err)
		}

		if err := validate.Struct(p); err != nil {
			return nil, fmt.Errorf("%w: import check: %v", ErrMalformed, err)
		}

		return &importCheck{name: p.Name, forbidden: p.ForbiddenImport}, nil

	case TypeIO:
		var p ioPayload
		if err := strictUnmarshal(raw.Payload, &p); err != nil {
			return nil, fmt.Errorf("%w: io check: %v", ErrMalformed, err)
		}

		if p.Text != nil && (p.ExpectedOutput != nil || len(p.Input) > 0) {
			return nil, fmt.Errorf("%w: io check %q: both interleaved 'text' and 'input'/'expectedOutput' set", ErrMalformed, p.Name)
		}

		if err := validate.Struct(p); err != nil {
			return nil, fmt.Errorf("%w: io check: %v", ErrMalformed, err)
		}

		if p.Text == nil && p.ExpectedOutput == nil {
			return nil, fmt.Errorf("%w: io check %q: missing expectedOutput", ErrMalformed, p.Name)
		}

		expected := ""
		if p.ExpectedOutput != nil {
			expected = *p.ExpectedOutput
		} else {
			expected = *p.Text
		}

		return &ioCheck{name: p.Name, input: p.Input, expectedOutput: expected}, nil

	case TypeSourceCode:
		var p sourceCodePayload
		if err := strictUnmarshal(raw.Payload, &p); err != nil {
			return nil, fmt.Errorf("%w: source-code check: %v", ErrMalformed, err)
		}

		if err := validate.Struct(p); err != nil {
			return nil, fmt.Errorf("%w: source-code check: %v", ErrMalformed, err)
		}

		return newSourceCodeCheck(p.Name, p.Source, compiler)

	default:
		return nil, fmt.Errorf("%w: unknown check type %q", ErrMalformed, raw.Type)
	}
}

func strictUnmarshal(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	return dec.Decode(v)
}
