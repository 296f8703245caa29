package compiler

import (
	"fmt"
	"sort"

	"github.com/pkg/errors"
)

// MemoryBlock is a handle to Size contiguous tape cells starting at Offset.
type MemoryBlock struct {
	Offset int
	Size   int
}

// Cell returns the absolute tape cell of the i-th cell of the block.
func (b MemoryBlock) Cell(i int) int { return b.Offset + i }

// End is the cell just past the block.
func (b MemoryBlock) End() int { return b.Offset + b.Size }

// Overlaps reports whether b and o share a cell.
func (b MemoryBlock) Overlaps(o MemoryBlock) bool {
	return b.Size > 0 && o.Size > 0 && b.Offset < o.End() && o.Offset < b.End()
}

func (b MemoryBlock) String() string {
	return fmt.Sprintf("[%d, %d)", b.Offset, b.End())
}

// TraceKind tells an allocation from a release in a Trace.
type TraceKind int

const (
	TraceAlloc TraceKind = iota
	TraceFree
)

func (k TraceKind) String() string {
	if k == TraceAlloc {
		return "alloc"
	}
	return "free"
}

// TraceEvent is one allocator call.
type TraceEvent struct {
	Kind  TraceKind
	Block MemoryBlock
}

// Allocator hands out tape cell ranges. It prefers the lowest free address
// that fits, so identical call sequences always produce identical layouts.
type Allocator struct {
	free  []MemoryBlock // sorted by offset, coalesced, all below top
	top   int           // every cell at or above top is free
	peak  int           // highest top ever reached
	trace []TraceEvent
}

func NewAllocator() *Allocator {
	return &Allocator{}
}

// Alloc reserves size contiguous cells.
func (a *Allocator) Alloc(size int) MemoryBlock {
	if size <= 0 {
		return MemoryBlock{}
	}
	blk := MemoryBlock{Offset: a.top, Size: size}
	found := false
	for i, f := range a.free {
		if f.Size < size {
			continue
		}
		blk.Offset = f.Offset
		if f.Size == size {
			a.free = append(a.free[:i], a.free[i+1:]...)
		} else {
			a.free[i] = MemoryBlock{Offset: f.Offset + size, Size: f.Size - size}
		}
		found = true
		break
	}
	if !found {
		a.top += size
		a.peak = max(a.peak, a.top)
	}
	a.trace = append(a.trace, TraceEvent{Kind: TraceAlloc, Block: blk})
	return blk
}

// Free returns b to the pool, merging it with adjacent free ranges.
func (a *Allocator) Free(b MemoryBlock) {
	if b.Size <= 0 {
		return
	}
	a.trace = append(a.trace, TraceEvent{Kind: TraceFree, Block: b})

	i := sort.Search(len(a.free), func(i int) bool { return a.free[i].Offset > b.Offset })
	a.free = append(a.free, MemoryBlock{})
	copy(a.free[i+1:], a.free[i:])
	a.free[i] = b

	// merge with the following range, then with the preceding one
	if i+1 < len(a.free) && a.free[i].End() == a.free[i+1].Offset {
		a.free[i].Size += a.free[i+1].Size
		a.free = append(a.free[:i+1], a.free[i+2:]...)
	}
	if i > 0 && a.free[i-1].End() == a.free[i].Offset {
		a.free[i-1].Size += a.free[i].Size
		a.free = append(a.free[:i], a.free[i+1:]...)
		i--
	}

	if last := len(a.free) - 1; last >= 0 && a.free[last].End() == a.top {
		a.top = a.free[last].Offset
		a.free = a.free[:last]
	}
}

// Peak is the number of cells the layout needed at its widest.
func (a *Allocator) Peak() int { return a.peak }

// Trace returns every Alloc and Free call so far, in order.
func (a *Allocator) Trace() []TraceEvent {
	return append([]TraceEvent(nil), a.trace...)
}

// VerifyTrace replays events and checks that no two live blocks overlap
// and that every freed block was live.
func VerifyTrace(events []TraceEvent) error {
	var live []MemoryBlock
	for i, ev := range events {
		switch ev.Kind {
		case TraceAlloc:
			for _, b := range live {
				if b.Overlaps(ev.Block) {
					return errors.Errorf("event %d: %s overlaps live block %s", i, ev.Block, b)
				}
			}
			live = append(live, ev.Block)
		case TraceFree:
			idx := -1
			for j, b := range live {
				if b == ev.Block {
					idx = j
					break
				}
			}
			if idx < 0 {
				return errors.Errorf("event %d: free of %s which is not live", i, ev.Block)
			}
			live = append(live[:idx], live[idx+1:]...)
		}
	}
	return nil
}
