package main

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"

	"brain/pkg/tape"
)

const slowSource = `
let n: u8 = 200;
while n != 0 { n = n - 1; }
stdout.print("done");
`

func TestHibernateAndResume(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "slow.bn")
	if err := os.WriteFile(src, []byte(slowSource), 0o644); err != nil {
		t.Fatal(err)
	}
	saved := filepath.Join(dir, "slow.zip")
	log := slog.New(slog.DiscardHandler)

	// first run stops at the step limit and hibernates
	opts := options{steps: 500, cells: 64, hibernate: saved}
	var out bytes.Buffer
	m, err := load(opts, src, strings.NewReader(""), &out)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	err = runConsole(context.Background(), m, opts, log)
	if !errors.Is(err, tape.ErrStepLimit) {
		t.Fatalf("err = %v; want step limit", err)
	}
	if m.Steps != 500 {
		t.Errorf("stopped after %d steps; want 500", m.Steps)
	}
	if out.Len() != 0 {
		t.Errorf("output before hibernation = %q", out.String())
	}

	// the resumed machine carries on where the first one stopped
	opts = options{cells: 64, resume: saved}
	out.Reset()
	m, err = load(opts, "", strings.NewReader(""), &out)
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if m.Steps != 500 {
		t.Errorf("resumed at step %d; want 500", m.Steps)
	}
	if err := runConsole(context.Background(), m, opts, log); err != nil {
		t.Fatalf("resumed run: %v", err)
	}
	if out.String() != "done" {
		t.Errorf("output = %q; want done", out.String())
	}
}

func TestRunConsoleCancelled(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "forever.bn")
	if err := os.WriteFile(src, []byte("while true {}"), 0o644); err != nil {
		t.Fatal(err)
	}
	saved := filepath.Join(dir, "forever.zip")
	opts := options{cells: 16, hibernate: saved}
	m, err := load(opts, src, nil, new(bytes.Buffer))
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = runConsole(ctx, m, opts, slog.New(slog.DiscardHandler))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v; want context.Canceled", err)
	}
	if _, err := os.Stat(saved); err != nil {
		t.Errorf("no hibernation file: %v", err)
	}
}

func TestLoadShowsProgram(t *testing.T) {
	src := filepath.Join(t.TempDir(), "five.bn")
	if err := os.WriteFile(src, []byte("let x: u8 = 5;"), 0o644); err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	if _, err := load(options{show: true, cells: 8}, src, nil, &out); err != nil {
		t.Fatal(err)
	}
	if out.String() != "Generated program:\n+++++\n" {
		t.Errorf("output = %q", out.String())
	}
}
