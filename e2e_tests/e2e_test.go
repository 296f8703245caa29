package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"brain/pkg/compiler"
	"brain/pkg/tape"
)

const progsDir = "../_progs"

// runFile compiles a program from progsDir and runs it with input.
func runFile(t *testing.T, name, input string) (string, *tape.Machine) {
	t.Helper()
	src, err := os.ReadFile(filepath.Join(progsDir, name))
	if err != nil {
		t.Fatalf("Failed to read source: %v", err)
	}

	text, err := compiler.Compile(string(src))
	if err != nil {
		t.Fatalf("Compilation failed: %+v", err)
	}
	prog, err := tape.Assemble(text)
	if err != nil {
		t.Fatalf("Assembly failed: %v\nProgram:\n%s", err, text)
	}

	var out bytes.Buffer
	m := tape.NewMachine(prog,
		tape.WithStepLimit(10_000_000),
		tape.WithIO(strings.NewReader(input), &out),
	)
	if err := m.Run(context.Background()); err != nil {
		t.Fatalf("Run failed after %d steps: %v", m.Steps, err)
	}
	return out.String(), m
}

func TestPrograms(t *testing.T) {
	tests := []struct {
		file     string
		input    string
		expected string
	}{
		{"hello.bn", "", "Hello, World!\n"},
		{"countdown.bn", "", "9 8 7 6 5 4 3 2 1 \n"},
		{"echo.bn", "yabcd", "Yabcd"},
		{"echo.bn", "nabcd", "nabcd"},
		{"parity.bn", "\x04", "even\n"},
		{"parity.bn", "\x07", "odd!\n"},
		{"parity.bn", "\x00", "even\n"},
	}
	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			got, _ := runFile(t, tt.file, tt.input)
			if got != tt.expected {
				t.Errorf("input %q: expected %q, got %q", tt.input, tt.expected, got)
			}
		})
	}
}

// Every cell except those of root declarations is zero once a program ends.
func TestOnlyRootVariablesRemain(t *testing.T) {
	src, err := os.ReadFile(filepath.Join(progsDir, "parity.bn"))
	if err != nil {
		t.Fatal(err)
	}
	prog, err := compiler.ParseSource(string(src))
	if err != nil {
		t.Fatal(err)
	}
	cg := compiler.NewCodeGen()
	if _, err := cg.Generate(prog); err != nil {
		t.Fatal(err)
	}
	live := make(map[int]bool)
	for _, name := range []string{"n", "even", "answer"} {
		bd, ok := cg.Scope().Lookup(name)
		if !ok {
			t.Fatalf("%s is not bound at the root", name)
		}
		for i := 0; i < bd.Block.Size; i++ {
			live[bd.Block.Cell(i)] = true
		}
	}

	_, m := runFile(t, "parity.bn", "\x03")
	for i, c := range m.Cells {
		if c != 0 && !live[i] {
			t.Errorf("cell %d = %d but holds no variable", i, c)
		}
	}
}
