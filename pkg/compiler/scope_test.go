package compiler

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
)

func TestScopeShadowing(t *testing.T) {
	s := NewScopeStack(NewAllocator(), nil)
	outer, err := s.Declare("x", U8)
	if err != nil {
		t.Fatal(err)
	}

	s.Push()
	inner, err := s.Declare("x", Bool)
	if err != nil {
		t.Fatalf("shadowing in a new frame: %v", err)
	}
	if inner.Block.Overlaps(outer.Block) {
		t.Errorf("inner %s overlaps outer %s", inner.Block, outer.Block)
	}
	if bd, _ := s.Lookup("x"); bd != inner {
		t.Errorf("Lookup(x) = %+v; want inner %+v", bd, inner)
	}

	s.Pop()
	if bd, _ := s.Lookup("x"); bd != outer {
		t.Errorf("Lookup(x) after Pop = %+v; want outer %+v", bd, outer)
	}
	if s.Depth() != 1 {
		t.Errorf("Depth() = %d; want 1", s.Depth())
	}
}

func TestScopePopReleasesCells(t *testing.T) {
	alloc := NewAllocator()
	s := NewScopeStack(alloc, nil)
	s.Push()
	a, _ := s.Declare("a", U8)
	b, _ := s.Declare("b", Array{Elem: U8, Len: 3})
	freed := s.Pop()

	if diff := cmp.Diff([]MemoryBlock{a.Block, b.Block}, freed); diff != "" {
		t.Errorf("Pop() mismatch (-want +got):\n%s", diff)
	}
	if _, ok := s.Lookup("a"); ok {
		t.Error("a still visible after Pop")
	}

	// frees run newest first
	trace := alloc.Trace()
	want := []TraceEvent{
		{TraceFree, b.Block},
		{TraceFree, a.Block},
	}
	if diff := cmp.Diff(want, trace[len(trace)-2:]); diff != "" {
		t.Errorf("free order mismatch (-want +got):\n%s", diff)
	}

	if c := alloc.Alloc(4); c.Offset != 0 {
		t.Errorf("cells not reused: got offset %d", c.Offset)
	}
}

func TestScopeDuplicateDeclaration(t *testing.T) {
	s := NewScopeStack(NewAllocator(), nil)
	if _, err := s.Declare("x", U8); err != nil {
		t.Fatal(err)
	}
	_, err := s.Declare("x", U8)

	var dup *DuplicateDeclarationError
	if !errors.As(err, &dup) {
		t.Fatalf("err = %v; want *DuplicateDeclarationError", err)
	}
	if dup.Name != "x" {
		t.Errorf("Name = %q; want x", dup.Name)
	}
	var te *TypeError
	if !errors.As(err, &te) {
		t.Errorf("duplicate declaration should also be a *TypeError")
	}
}

func TestScopePopRootPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Pop on the root scope did not panic")
		}
	}()
	NewScopeStack(NewAllocator(), nil).Pop()
}

func TestScopeRedeclaredNameKeepsOwnership(t *testing.T) {
	s := NewScopeStack(NewAllocator(), nil)
	s.Push()
	b1 := s.Alloc(U8)
	s.Bind("x", b1, U8)
	// a declaration that reuses a name still owns its own cells
	b2 := s.Alloc(U8)
	s.Bind("x", b2, U8)
	if got := len(s.Pop()); got != 2 {
		t.Errorf("Pop() freed %d blocks; want 2", got)
	}
}

func TestScopeString(t *testing.T) {
	s := NewScopeStack(NewAllocator(), nil)
	s.Declare("b", U8)
	s.Declare("a", Bool)
	s.Push()
	s.Declare("s", Array{Elem: U8, Len: 2})

	want := "scope 0: a:bool@1 b:u8@0\nscope 1: s:[u8; 2]@2\n"
	if got := s.String(); got != want {
		t.Errorf("String() = %q; want %q", got, want)
	}
}

func TestScopeLogsDeclarations(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	s := NewScopeStack(NewAllocator(), log)
	s.Push()
	s.Declare("n", U8)
	s.Pop()

	out := buf.String()
	for _, want := range []string{"msg=declare name=n type=u8 offset=0 size=1 depth=2", "msg=free offset=0 size=1 depth=2"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
}
