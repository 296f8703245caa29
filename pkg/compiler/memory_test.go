package compiler

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestAllocatorFirstFit(t *testing.T) {
	a := NewAllocator()
	b1 := a.Alloc(2)
	b2 := a.Alloc(1)
	b3 := a.Alloc(3)
	if b1.Offset != 0 || b2.Offset != 2 || b3.Offset != 3 {
		t.Fatalf("offsets = %d %d %d; want 0 2 3", b1.Offset, b2.Offset, b3.Offset)
	}

	a.Free(b2)
	if b := a.Alloc(1); b.Offset != 2 {
		t.Errorf("reused offset = %d; want 2", b.Offset)
	}

	a.Free(b1)
	// [0,2) is free but too small for 3 cells
	if b := a.Alloc(3); b.Offset != 6 {
		t.Errorf("offset = %d; want 6", b.Offset)
	}
	if b := a.Alloc(2); b.Offset != 0 {
		t.Errorf("offset = %d; want 0", b.Offset)
	}
	if a.Peak() != 9 {
		t.Errorf("Peak() = %d; want 9", a.Peak())
	}
}

func TestAllocatorCoalesces(t *testing.T) {
	a := NewAllocator()
	c0, c1, c2, c3 := a.Alloc(1), a.Alloc(1), a.Alloc(1), a.Alloc(1)

	a.Free(c0)
	a.Free(c2)
	a.Free(c1)
	// c0, c1 and c2 merge into one range that fits three cells
	if b := a.Alloc(3); b.Offset != 0 {
		t.Errorf("offset = %d; want 0", b.Offset)
	}
	a.Free(c3)
	if b := a.Alloc(1); b.Offset != 3 {
		t.Errorf("offset = %d; want 3", b.Offset)
	}
}

func TestAllocatorTrimsTop(t *testing.T) {
	a := NewAllocator()
	b1 := a.Alloc(1)
	b2 := a.Alloc(4)
	a.Free(b2)
	a.Free(b1)
	if b := a.Alloc(5); b.Offset != 0 {
		t.Errorf("offset = %d; want 0", b.Offset)
	}
	if a.Peak() != 5 {
		t.Errorf("Peak() = %d; want 5", a.Peak())
	}
}

func TestAllocatorZeroSize(t *testing.T) {
	a := NewAllocator()
	if b := a.Alloc(0); b.Size != 0 {
		t.Errorf("Alloc(0) = %v", b)
	}
	a.Free(MemoryBlock{})
	if len(a.Trace()) != 0 {
		t.Errorf("trace = %v; want empty", a.Trace())
	}
	if b := a.Alloc(1); b.Offset != 0 {
		t.Errorf("offset = %d; want 0", b.Offset)
	}
}

func TestAllocatorTrace(t *testing.T) {
	a := NewAllocator()
	b1 := a.Alloc(2)
	a.Alloc(1)
	a.Free(b1)
	a.Alloc(1)
	want := []TraceEvent{
		{TraceAlloc, MemoryBlock{0, 2}},
		{TraceAlloc, MemoryBlock{2, 1}},
		{TraceFree, MemoryBlock{0, 2}},
		{TraceAlloc, MemoryBlock{0, 1}},
	}
	if diff := cmp.Diff(want, a.Trace()); diff != "" {
		t.Errorf("trace mismatch (-want +got):\n%s", diff)
	}
	if err := VerifyTrace(a.Trace()); err != nil {
		t.Errorf("VerifyTrace: %v", err)
	}
}

func TestVerifyTraceRejects(t *testing.T) {
	tests := []struct {
		name   string
		events []TraceEvent
	}{
		{
			name: "Overlap",
			events: []TraceEvent{
				{TraceAlloc, MemoryBlock{0, 3}},
				{TraceAlloc, MemoryBlock{2, 2}},
			},
		},
		{
			name: "Double Free",
			events: []TraceEvent{
				{TraceAlloc, MemoryBlock{0, 1}},
				{TraceFree, MemoryBlock{0, 1}},
				{TraceFree, MemoryBlock{0, 1}},
			},
		},
		{
			name: "Free Of Unknown Block",
			events: []TraceEvent{
				{TraceFree, MemoryBlock{4, 1}},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := VerifyTrace(tt.events); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

// TestAllocatorNeverOverlaps drives the allocator through a fixed
// interleaving of allocations and releases and replays the trace.
func TestAllocatorNeverOverlaps(t *testing.T) {
	a := NewAllocator()
	var live []MemoryBlock
	for i := 0; i < 200; i++ {
		size := i%4 + 1
		if i%3 == 2 && len(live) > 0 {
			j := (i * 7) % len(live)
			a.Free(live[j])
			live = append(live[:j], live[j+1:]...)
			continue
		}
		live = append(live, a.Alloc(size))
	}
	if err := VerifyTrace(a.Trace()); err != nil {
		t.Fatalf("VerifyTrace: %v", err)
	}
	for i := range live {
		for j := i + 1; j < len(live); j++ {
			if live[i].Overlaps(live[j]) {
				t.Errorf("%s overlaps %s", live[i], live[j])
			}
		}
	}
}

func TestMemoryBlockOverlaps(t *testing.T) {
	tests := []struct {
		a, b MemoryBlock
		want bool
	}{
		{MemoryBlock{0, 2}, MemoryBlock{1, 2}, true},
		{MemoryBlock{0, 2}, MemoryBlock{2, 2}, false},
		{MemoryBlock{3, 1}, MemoryBlock{0, 4}, true},
		{MemoryBlock{0, 0}, MemoryBlock{0, 4}, false},
	}
	for _, tt := range tests {
		if got := tt.a.Overlaps(tt.b); got != tt.want {
			t.Errorf("%s.Overlaps(%s) = %v; want %v", tt.a, tt.b, got, tt.want)
		}
	}
}
