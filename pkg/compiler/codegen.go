package compiler

import (
	"log/slog"

	"github.com/pkg/errors"
)

// CodeGen walks an AST and emits tape Operations.
//
// Every cell that is not bound to a live variable holds zero. Scratch blocks
// are cleared before they are released and scope exit clears the blocks the
// frame owned, so a freshly allocated block can be written with plain
// increments.
type CodeGen struct {
	scope *ScopeStack
	alloc *Allocator
	ops   []Operation
	log   *slog.Logger

	// types of block-local declarations seen by getType, innermost last
	overlay []map[string]Type
}

// GenOption configures a CodeGen.
type GenOption func(*CodeGen)

// WithLogger makes the generator log declarations and releases at debug
// level.
func WithLogger(l *slog.Logger) GenOption {
	return func(cg *CodeGen) {
		if l != nil {
			cg.log = l
		}
	}
}

// NewCodeGen returns a generator with an empty root scope.
func NewCodeGen(opts ...GenOption) *CodeGen {
	cg := &CodeGen{
		alloc: NewAllocator(),
		log:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(cg)
	}
	cg.scope = NewScopeStack(cg.alloc, cg.log)
	return cg
}

// Scope exposes the scope stack, mainly for inspection after Generate.
func (cg *CodeGen) Scope() *ScopeStack { return cg.scope }

// Allocator exposes the allocator and its trace.
func (cg *CodeGen) Allocator() *Allocator { return cg.alloc }

// Generate lowers prog into Operations. A CodeGen is meant for a single
// program; bindings of the root scope stay live afterwards.
func (cg *CodeGen) Generate(prog *Program) ([]Operation, error) {
	for _, s := range prog.Stmts {
		if err := cg.genStmt(s); err != nil {
			return nil, err
		}
	}
	cg.log.Debug("generated", "ops", len(cg.ops), "cells", cg.alloc.Peak())
	return cg.ops, nil
}

// Generate lowers prog with a fresh CodeGen.
func Generate(prog *Program, opts ...GenOption) ([]Operation, error) {
	return NewCodeGen(opts...).Generate(prog)
}

func (cg *CodeGen) emit(ops ...Operation) {
	cg.ops = append(cg.ops, ops...)
}

// addConst adds n modulo 256 to cell, going whichever way round is shorter.
func (cg *CodeGen) addConst(cell, n int) {
	n = ((n % 256) + 256) % 256
	switch {
	case n == 0:
	case n <= 128:
		cg.emit(Increment(cell, n))
	default:
		cg.emit(Decrement(cell, 256-n))
	}
}

// scratch allocates a block outside any scope frame. Its cells are zero.
func (cg *CodeGen) scratch(size int) MemoryBlock {
	return cg.alloc.Alloc(size)
}

// release frees a scratch block whose cells are already zero.
func (cg *CodeGen) release(b MemoryBlock) {
	cg.alloc.Free(b)
}

// discard clears and frees a scratch block.
func (cg *CodeGen) discard(b MemoryBlock) {
	cg.clear(b)
	cg.release(b)
}

func (cg *CodeGen) clear(b MemoryBlock) {
	for i := 0; i < b.Size; i++ {
		cg.emit(Zero(b.Cell(i)))
	}
}

// move adds src into dst cell by cell, leaving src zero.
func (cg *CodeGen) move(src, dst MemoryBlock) {
	for i := 0; i < src.Size; i++ {
		s, d := src.Cell(i), dst.Cell(i)
		cg.emit(LoopOpen(s), Decrement(s, 1), Increment(d, 1), LoopClose(s))
	}
}

// copy adds src into dst cell by cell through a temporary cell, leaving src
// unchanged.
func (cg *CodeGen) copy(src, dst MemoryBlock) {
	if src.Size == 0 {
		return
	}
	t := cg.scratch(1).Cell(0)
	for i := 0; i < src.Size; i++ {
		s, d := src.Cell(i), dst.Cell(i)
		cg.emit(LoopOpen(s), Decrement(s, 1), Increment(d, 1), Increment(t, 1), LoopClose(s))
		cg.emit(LoopOpen(t), Decrement(t, 1), Increment(s, 1), LoopClose(t))
	}
	cg.release(MemoryBlock{Offset: t, Size: 1})
}

// pushScope and popScope bracket every block. popScope clears the cells the
// frame owned before handing them back.
func (cg *CodeGen) pushScope() {
	cg.scope.Push()
}

func (cg *CodeGen) popScope() {
	blocks := cg.scope.FrameBlocks()
	for i := len(blocks) - 1; i >= 0; i-- {
		cg.clear(blocks[i])
	}
	cg.scope.Pop()
}

func (cg *CodeGen) genStmt(s Stmt) error {
	switch n := s.(type) {

	case *Comment:
		// nothing to emit

	case *Declaration:
		return cg.genDeclaration(n)

	case *Assignment:
		return cg.genAssignment(n)

	case *WhileLoop:
		c := cg.scratch(1)
		if err := cg.evalInto(n.Cond, c, Bool); err != nil {
			return err
		}
		cg.emit(LoopOpen(c.Offset))
		if err := cg.genBlock(n.Body, MemoryBlock{}, nil); err != nil {
			return err
		}
		cg.emit(Zero(c.Offset))
		if err := cg.evalInto(n.Cond, c, Bool); err != nil {
			return err
		}
		cg.emit(LoopClose(c.Offset))
		cg.release(c)

	case *ForLoop:
		return errors.WithStack(&UnsupportedError{Construct: "for loop", Pos: n.Pos})

	case *ConditionGroup:
		return cg.genConditional(n, MemoryBlock{}, nil)

	case *ExprStmt:
		t, err := cg.getType(n.Expr)
		if err != nil {
			return err
		}
		tmp := cg.scratch(t.Width())
		if err := cg.genExpr(n.Expr, tmp); err != nil {
			return err
		}
		cg.discard(tmp)

	default:
		return errors.Errorf("codegen: unknown statement node %T", s)
	}
	return nil
}

func (cg *CodeGen) genDeclaration(d *Declaration) error {
	pat, ok := d.Pattern.(*IdentPattern)
	if !ok {
		return errors.WithStack(&UnsupportedError{Construct: "pattern " + d.Pattern.String(), Pos: d.Pos})
	}
	if cg.scope.DeclaredInCurrent(pat.Name) {
		return errors.WithStack(&DuplicateDeclarationError{Name: pat.Name, Pos: pat.Pos})
	}
	t, err := cg.resolveType(d.Type, d.Init)
	if err != nil {
		return err
	}
	// Bound only after the initializer so that it still sees any outer
	// variable of the same name.
	blk := cg.scope.Alloc(t)
	if d.Init != nil {
		if err := cg.evalInto(d.Init, blk, t); err != nil {
			return err
		}
	}
	cg.scope.Bind(pat.Name, blk, t)
	return nil
}

func (cg *CodeGen) genAssignment(a *Assignment) error {
	bd, ok := cg.scope.Lookup(a.Name)
	if !ok {
		return errors.WithStack(&NameError{Name: a.Name, Pos: a.Pos})
	}
	if !readsName(a.Value, a.Name) {
		cg.clear(bd.Block)
		return cg.evalInto(a.Value, bd.Block, bd.Type)
	}
	// The value depends on the old contents, so build it aside first.
	tmp := cg.scratch(bd.Type.Width())
	if err := cg.evalInto(a.Value, tmp, bd.Type); err != nil {
		return err
	}
	cg.clear(bd.Block)
	cg.move(tmp, bd.Block)
	cg.release(tmp)
	return nil
}

// genBlock lowers b in its own scope. When want is nil a trailing result
// expression is evaluated and thrown away; otherwise it is written to dst.
func (cg *CodeGen) genBlock(b *Block, dst MemoryBlock, want Type) error {
	cg.pushScope()
	for _, s := range b.Stmts {
		if err := cg.genStmt(s); err != nil {
			return err
		}
	}
	if b.Result != nil {
		var err error
		if want == nil {
			err = cg.genStmt(&ExprStmt{Expr: b.Result})
		} else {
			err = cg.evalInto(b.Result, dst, want)
		}
		if err != nil {
			return err
		}
	}
	cg.popScope()
	return nil
}

// genConditional lowers an if chain. A guard cell starts at one and is
// cleared by whichever branch runs; later conditions are only evaluated
// while it is still set.
//
//	g+
//	c=cond0 c[ c[-] g[-] body0 ]
//	t=g t[ t[-] c=cond1 c[ c[-] g[-] body1 ] ]
//	t=g t[ t[-] g[-] default ]
//	g[-]
//
// A lone if needs no guard.
func (cg *CodeGen) genConditional(n *ConditionGroup, dst MemoryBlock, want Type) error {
	guarded := len(n.Branches) > 1 || n.Default != nil
	var g MemoryBlock
	if guarded {
		g = cg.scratch(1)
		cg.emit(Increment(g.Offset, 1))
	}

	branch := func(br Branch) error {
		c := cg.scratch(1)
		if err := cg.evalInto(br.Cond, c, Bool); err != nil {
			return err
		}
		cg.emit(LoopOpen(c.Offset), Zero(c.Offset))
		if guarded {
			cg.emit(Zero(g.Offset))
		}
		if err := cg.genBlock(br.Body, dst, want); err != nil {
			return err
		}
		cg.emit(LoopClose(c.Offset))
		cg.release(c)
		return nil
	}

	// whileGuard runs body at most once, only while g is set
	whileGuard := func(body func() error) error {
		t := cg.scratch(1)
		cg.copy(g, t)
		cg.emit(LoopOpen(t.Offset), Zero(t.Offset))
		if err := body(); err != nil {
			return err
		}
		cg.emit(LoopClose(t.Offset))
		cg.release(t)
		return nil
	}

	for i, br := range n.Branches {
		var err error
		if i == 0 {
			err = branch(br)
		} else {
			err = whileGuard(func() error { return branch(br) })
		}
		if err != nil {
			return err
		}
	}

	if n.Default != nil {
		err := whileGuard(func() error {
			cg.emit(Zero(g.Offset))
			return cg.genBlock(n.Default, dst, want)
		})
		if err != nil {
			return err
		}
	}

	if guarded {
		cg.discard(g)
	}
	return nil
}
