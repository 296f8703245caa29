package compiler

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/exp/maps"
)

// Binding is what a name resolves to: the cells holding the value and the
// value's type.
type Binding struct {
	Name  string
	Block MemoryBlock
	Type  Type
}

// frame is one lexical scope. owned lists the blocks allocated while the
// frame was current, in allocation order; it can outgrow names when a name
// is redeclared.
type frame struct {
	names map[string]Binding
	owned []MemoryBlock
}

func newFrame() *frame {
	return &frame{names: make(map[string]Binding)}
}

// ScopeStack maps names to tape cells. The innermost frame is searched first
// and popping a frame returns its cells to the allocator.
type ScopeStack struct {
	alloc  *Allocator
	frames []*frame
	log    *slog.Logger
}

// NewScopeStack returns a stack holding only the root frame.
func NewScopeStack(alloc *Allocator, log *slog.Logger) *ScopeStack {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &ScopeStack{
		alloc:  alloc,
		frames: []*frame{newFrame()},
		log:    log,
	}
}

func (s *ScopeStack) current() *frame {
	return s.frames[len(s.frames)-1]
}

// Allocator returns the allocator cells are drawn from.
func (s *ScopeStack) Allocator() *Allocator { return s.alloc }

// Depth is the number of frames, including the root.
func (s *ScopeStack) Depth() int { return len(s.frames) }

func (s *ScopeStack) Push() {
	s.frames = append(s.frames, newFrame())
}

// Pop discards the innermost frame and frees every block it owns, newest
// first. The blocks are returned so callers can tell which cells were
// released. Popping the root frame panics.
func (s *ScopeStack) Pop() []MemoryBlock {
	if len(s.frames) == 1 {
		panic("Pop called on the root scope")
	}
	f := s.current()
	s.frames = s.frames[:len(s.frames)-1]
	for i := len(f.owned) - 1; i >= 0; i-- {
		b := f.owned[i]
		s.alloc.Free(b)
		s.log.Debug("free", "offset", b.Offset, "size", b.Size, "depth", len(s.frames)+1)
	}
	return f.owned
}

// FrameBlocks returns the blocks owned by the innermost frame.
func (s *ScopeStack) FrameBlocks() []MemoryBlock {
	return append([]MemoryBlock(nil), s.current().owned...)
}

// Alloc reserves cells for a value of type t, owned by the innermost frame.
func (s *ScopeStack) Alloc(t Type) MemoryBlock {
	b := s.alloc.Alloc(t.Width())
	f := s.current()
	f.owned = append(f.owned, b)
	return b
}

// Bind makes name visible in the innermost frame, shadowing any outer
// binding of the same name.
func (s *ScopeStack) Bind(name string, b MemoryBlock, t Type) Binding {
	bd := Binding{Name: name, Block: b, Type: t}
	s.current().names[name] = bd
	s.log.Debug("declare", "name", name, "type", t.String(), "offset", b.Offset, "size", b.Size, "depth", len(s.frames))
	return bd
}

// Declare allocates and binds in one step. Redeclaring a name of the
// innermost frame fails with a *DuplicateDeclarationError.
func (s *ScopeStack) Declare(name string, t Type) (Binding, error) {
	if s.DeclaredInCurrent(name) {
		return Binding{}, errors.WithStack(&DuplicateDeclarationError{Name: name})
	}
	return s.Bind(name, s.Alloc(t), t), nil
}

// DeclaredInCurrent reports whether name is bound in the innermost frame.
func (s *ScopeStack) DeclaredInCurrent(name string) bool {
	_, ok := s.current().names[name]
	return ok
}

// Lookup resolves name, innermost frame first.
func (s *ScopeStack) Lookup(name string) (Binding, bool) {
	for i := len(s.frames) - 1; i >= 0; i-- {
		if bd, ok := s.frames[i].names[name]; ok {
			return bd, true
		}
	}
	return Binding{}, false
}

// String dumps every frame, names sorted, root first.
func (s *ScopeStack) String() string {
	var sb strings.Builder
	for depth, f := range s.frames {
		names := maps.Keys(f.names)
		sort.Strings(names)
		fmt.Fprintf(&sb, "scope %d:", depth)
		for _, name := range names {
			bd := f.names[name]
			fmt.Fprintf(&sb, " %s:%s@%d", name, bd.Type, bd.Block.Offset)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
