package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const cliSchema = `types:
  - name: page
    kind: document
    fields:
      - name: title
        type: string
`

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func schemaFixture(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "page.yaml"), []byte(body), 0644); err != nil {
		t.Fatalf("write schema: %v", err)
	}
	return dir
}

func TestCompile(t *testing.T) {
	dir := schemaFixture(t, cliSchema)
	compileOutput = ""

	out, err := runCLI(t, "compile", "--schema", dir)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	for _, want := range []string{"type Page", "allPage", "createPage"} {
		if !strings.Contains(out, want) {
			t.Errorf("sdl missing %q", want)
		}
	}
}

func TestCompileToFile(t *testing.T) {
	dir := schemaFixture(t, cliSchema)
	target := filepath.Join(t.TempDir(), "schema.graphql")
	defer func() { compileOutput = "" }()

	out, err := runCLI(t, "compile", "--schema", dir, "--output", target)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if !strings.Contains(out, "1 types") {
		t.Errorf("output = %q", out)
	}
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !strings.Contains(string(data), "type Page") {
		t.Error("written sdl missing type Page")
	}
}

func TestValidate(t *testing.T) {
	valid := schemaFixture(t, cliSchema)
	broken := schemaFixture(t, "types:\n  - name: page\n    kind: document\n    fields: []\n")
	dangling := schemaFixture(t, `types:
  - name: page
    kind: document
    fields:
      - name: author
        type: reference
        to:
          - type: author
`)

	tests := []struct {
		name    string
		args    []string
		wantErr bool
	}{
		{"valid", []string{"validate", "--schema", valid}, false},
		{"broken", []string{"validate", "--schema", broken}, true},
		{"dangling warns", []string{"validate", "--schema", dangling}, false},
		{"dangling strict", []string{"validate", "--schema", dangling, "--strict"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			validateStrict = false
			_, err := runCLI(t, tt.args...)
			if (err != nil) != tt.wantErr {
				t.Errorf("err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
