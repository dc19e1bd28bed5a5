// Copyright 2025 Blindspot Software
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package check

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestDecodeImport(t *testing.T) {
	raw := RawSpec{
		Type:    TypeImport,
		Payload: json.RawMessage(`{"name":"no-os","forbiddenImports":["os"]}`),
	}

	c, err := Decode(raw, nil)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	if c.Name() != "no-os" {
		t.Errorf("Name() = %q, want %q", c.Name(), "no-os")
	}

	if c.RequiredType() != RequiredStaticTest {
		t.Errorf("RequiredType() = %v, want %v", c.RequiredType(), RequiredStaticTest)
	}
}

func TestDecodeImportMissingFields(t *testing.T) {
	raw := RawSpec{Type: TypeImport, Payload: json.RawMessage(`{"name":"no-os"}`)}

	if _, err := Decode(raw, nil); !errors.Is(err, ErrMalformed) {
		t.Errorf("Decode() error = %v, want ErrMalformed", err)
	}
}

func TestDecodeIO(t *testing.T) {
	raw := RawSpec{
		Type:    TypeIO,
		Payload: json.RawMessage(`{"name":"hello","input":["Ada"],"expectedOutput":"Hello, Ada"}`),
	}

	c, err := Decode(raw, nil)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	if c.RequiredType() != RequiredUserCodeMain {
		t.Errorf("RequiredType() = %v, want %v", c.RequiredType(), RequiredUserCodeMain)
	}
}

func TestDecodeIODualEncodingRejected(t *testing.T) {
	raw := RawSpec{
		Type:    TypeIO,
		Payload: json.RawMessage(`{"name":"hello","expectedOutput":"hi","text":"hi"}`),
	}

	if _, err := Decode(raw, nil); !errors.Is(err, ErrMalformed) {
		t.Errorf("Decode() error = %v, want ErrMalformed for dual encoding", err)
	}
}

func TestDecodeIOMissingExpectedOutput(t *testing.T) {
	raw := RawSpec{Type: TypeIO, Payload: json.RawMessage(`{"name":"hello","input":["Ada"]}`)}

	if _, err := Decode(raw, nil); !errors.Is(err, ErrMalformed) {
		t.Errorf("Decode() error = %v, want ErrMalformed for missing expectedOutput", err)
	}
}

func TestDecodeSourceCode(t *testing.T) {
	raw := RawSpec{
		Type:    TypeSourceCode,
		Payload: json.RawMessage(`{"name":"custom","source":"package main\nfunc Check(stdout, stderr string) string { return \"\" }"}`),
	}

	compiler := &fakeCompiler{prog: &fakeProgram{passed: true}}

	c, err := Decode(raw, compiler)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	if c.RequiredType() != RequiredUserCodeMain {
		t.Errorf("RequiredType() = %v, want %v", c.RequiredType(), RequiredUserCodeMain)
	}
}

func TestDecodeSourceCodeNoCompiler(t *testing.T) {
	raw := RawSpec{
		Type:    TypeSourceCode,
		Payload: json.RawMessage(`{"name":"custom","source":"package main"}`),
	}

	if _, err := Decode(raw, nil); !errors.Is(err, ErrMalformed) {
		t.Errorf("Decode() error = %v, want ErrMalformed when compiler is nil", err)
	}
}

func TestDecodeUnknownFields(t *testing.T) {
	raw := RawSpec{Type: TypeImport, Payload: json.RawMessage(`{"name":"x","forbiddenImports":["os"],"bogus":true}`)}

	if _, err := Decode(raw, nil); !errors.Is(err, ErrMalformed) {
		t.Errorf("Decode() error = %v, want ErrMalformed for unknown field", err)
	}
}

func TestDecodeUnknownType(t *testing.T) {
	raw := RawSpec{Type: "BOGUS", Payload: json.RawMessage(`{}`)}

	if _, err := Decode(raw, nil); !errors.Is(err, ErrMalformed) {
		t.Errorf("Decode() error = %v, want ErrMalformed for unknown type", err)
	}
}
