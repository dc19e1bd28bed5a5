// Copyright 2025 Blindspot Software
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package check

import (
	"strings"
	"testing"
)

func TestImportCheckRunStatic(t *testing.T) {
	tests := []struct {
		name      string
		forbidden []string
		sources   map[string]string
		want      Outcome
	}{
		{
			name:      "no forbidden import",
			forbidden: []string{"os"},
			sources:   map[string]string{"main": "package main\n\nimport \"fmt\"\n\nfunc main() {}\n"},
			want:      Passed,
		},
		{
			name:      "forbidden import present",
			forbidden: []string{"os"},
			sources:   map[string]string{"main": "package main\n\nimport \"os\"\n\nfunc main() { _ = os.Args }\n"},
			want:      Failed,
		},
		{
			name:      "unparseable source is errored, not skipped",
			forbidden: []string{"os"},
			sources:   map[string]string{"main": "package main\n\nimport (\n"},
			want:      Errored,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &importCheck{name: "no-os", forbidden: tt.forbidden}

			result := c.RunStatic(nil, tt.sources)
			if result.Outcome != tt.want {
				t.Errorf("RunStatic() outcome = %v, want %v (message: %s)", result.Outcome, tt.want, result.Message)
			}
		})
	}
}

func TestParseImports(t *testing.T) {
	imports, err := parseImports("package main\n\nimport (\n\t\"fmt\"\n\t\"strings\"\n)\n")
	if err != nil {
		t.Fatalf("parseImports() error = %v", err)
	}

	joined := strings.Join(imports, ",")
	if !strings.Contains(joined, "fmt") || !strings.Contains(joined, "strings") {
		t.Errorf("parseImports() = %v, want fmt and strings", imports)
	}
}

func TestImportCheckRequiredType(t *testing.T) {
	c := &importCheck{}
	if c.RequiredType() != RequiredStaticTest {
		t.Errorf("RequiredType() = %v, want %v", c.RequiredType(), RequiredStaticTest)
	}
}
