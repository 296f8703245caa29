package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeSource(t *testing.T, name, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRunWritesProgram(t *testing.T) {
	in := writeSource(t, "five.bn", "let x: u8 = 5;\n")
	out := filepath.Join(t.TempDir(), "five.bf")

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"-o", out, in}, nil, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("exit code %d, stderr:\n%s", code, stderr.String())
	}
	got, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "+++++\n" {
		t.Errorf("output file = %q; want %q", got, "+++++\n")
	}
}

func TestRunDefaultOutputPath(t *testing.T) {
	in := writeSource(t, "blank.bn", "// nothing\n")
	dir := t.TempDir()
	t.Chdir(dir)

	var stdout, stderr bytes.Buffer
	if code := run(context.Background(), []string{in}, nil, &stdout, &stderr); code != 0 {
		t.Fatalf("exit code %d, stderr:\n%s", code, stderr.String())
	}
	got, err := os.ReadFile(filepath.Join(dir, "blank.bf"))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "\n" {
		t.Errorf("output file = %q; want a lone newline", got)
	}
}

func TestRunExecutesProgram(t *testing.T) {
	in := writeSource(t, "echo.bn", "let c: [u8; 2]; stdin.read(c); stdout.print(c, \"!\");")

	var stdout, stderr bytes.Buffer
	args := []string{"-o", "-", "-wrap", "10", "-run", "-steps", "10000", in}
	code := run(context.Background(), args, strings.NewReader("hi"), &stdout, &stderr)
	if code != 0 {
		t.Fatalf("exit code %d, stderr:\n%s", code, stderr.String())
	}
	if !strings.HasSuffix(stdout.String(), "\nhi!") {
		t.Errorf("stdout = %q; want program text followed by hi!", stdout.String())
	}
	for _, line := range strings.Split(strings.TrimSuffix(stdout.String(), "hi!"), "\n") {
		if len(line) > 10 {
			t.Errorf("line %q longer than the wrap width", line)
		}
	}
}

func TestRunFailures(t *testing.T) {
	undeclared := writeSource(t, "bad.bn", "y = 1;")
	endless := writeSource(t, "loop.bn", "while true {}")
	out := filepath.Join(t.TempDir(), "out.bf")

	tests := []struct {
		name    string
		args    []string
		code    int
		message string
	}{
		{"No Input", nil, 2, "usage: brain"},
		{"Two Inputs", []string{"a", "b"}, 2, "usage: brain"},
		{"Unknown Flag", []string{"-nope", "a"}, 2, "flag provided but not defined"},
		{"Missing File", []string{"-o", out, "does-not-exist.bn"}, 1, "read failed"},
		{"Name Error", []string{"-o", out, undeclared}, 1, `undeclared identifier \"y\"`},
		{"Step Limit", []string{"-o", out, "-run", "-steps", "50", endless}, 1, "step limit reached"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			code := run(context.Background(), tt.args, strings.NewReader(""), &stdout, &stderr)
			if code != tt.code {
				t.Errorf("exit code = %d; want %d", code, tt.code)
			}
			if !strings.Contains(stderr.String(), tt.message) {
				t.Errorf("stderr does not mention %q:\n%s", tt.message, stderr.String())
			}
		})
	}
}

func TestRunVerboseLogsDeclarations(t *testing.T) {
	in := writeSource(t, "v.bn", "let x: u8 = 1;")
	logFile := filepath.Join(t.TempDir(), "log.json")

	var stdout, stderr bytes.Buffer
	args := []string{"-v", "-o", "-", "-log-json", logFile, in}
	if code := run(context.Background(), args, nil, &stdout, &stderr); code != 0 {
		t.Fatalf("exit code %d, stderr:\n%s", code, stderr.String())
	}
	if !strings.Contains(stderr.String(), "msg=declare name=x") {
		t.Errorf("stderr missing declare record:\n%s", stderr.String())
	}
	data, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"msg":"compiled"`) {
		t.Errorf("JSON log missing compiled record:\n%s", data)
	}
}
