package compiler

import (
	"github.com/pkg/errors"
)

// Intrinsic receivers. stdout.print writes every cell of each argument and
// stdin.read overwrites every cell of each named variable with input bytes.
const (
	stdoutName = "stdout"
	stdinName  = "stdin"
)

func unsupported(construct string, pos Pos) error {
	return errors.WithStack(&UnsupportedError{Construct: construct, Pos: pos})
}

// lookupType resolves the type of name, looking at block-local
// declarations being typed before the live scope.
func (cg *CodeGen) lookupType(name string, pos Pos) (Type, error) {
	for i := len(cg.overlay) - 1; i >= 0; i-- {
		if t, ok := cg.overlay[i][name]; ok {
			return t, nil
		}
	}
	if bd, ok := cg.scope.Lookup(name); ok {
		return bd.Type, nil
	}
	return nil, errors.WithStack(&NameError{Name: name, Pos: pos})
}

// getType computes the type of e without emitting anything.
func (cg *CodeGen) getType(e Expr) (Type, error) {
	switch n := e.(type) {
	case *StringLiteral:
		return Array{Elem: U8, Len: len(n.Value)}, nil

	case *NumberLiteral:
		if n.Value < -255 || n.Value > 255 {
			return nil, errors.WithStack(typeErrorf(n.Pos, "number %d does not fit in %s", n.Value, U8))
		}
		return U8, nil

	case *BoolLiteral:
		return Bool, nil

	case *Identifier:
		return cg.lookupType(n.Name, n.Pos)

	case *Group:
		return cg.getType(n.Inner)

	case *BlockExpr:
		return cg.blockType(n.Block)

	case *IfExpr:
		return cg.conditionalType(n.Group)

	case *NotExpr:
		t, err := cg.getType(n.Operand)
		if err != nil {
			return nil, err
		}
		if t != Bool {
			return nil, errors.WithStack(typeErrorf(n.Pos, "operator ! needs %s, got %s", Bool, t))
		}
		return Bool, nil

	case *BinaryExpr:
		return cg.binaryType(n)

	case *CallChain:
		return cg.intrinsicType(n)

	case *CallExpr:
		return nil, unsupported("call to "+n.Name, n.Pos)

	case *RangeExpr:
		return nil, unsupported("range "+n.String(), n.Pos)
	}
	return nil, errors.Errorf("codegen: unknown expression node %T", e)
}

func (cg *CodeGen) binaryType(n *BinaryExpr) (Type, error) {
	switch n.Op {
	case PLUS, MINUS, EQUALS, NOT_EQ, AND_LOGICAL, OR_LOGICAL:
	default:
		return nil, unsupported("operator "+opText(n.Op), n.Pos)
	}
	lt, err := cg.getType(n.Left)
	if err != nil {
		return nil, err
	}
	rt, err := cg.getType(n.Right)
	if err != nil {
		return nil, err
	}
	switch n.Op {
	case PLUS, MINUS:
		if lt != U8 || rt != U8 {
			return nil, errors.WithStack(typeErrorf(n.Pos, "operator %s needs %s operands, got %s and %s", opText(n.Op), U8, lt, rt))
		}
		return U8, nil
	case EQUALS, NOT_EQ:
		if lt != rt || lt.Width() != 1 {
			return nil, errors.WithStack(typeErrorf(n.Pos, "cannot compare %s with %s", lt, rt))
		}
		return Bool, nil
	default:
		if lt != Bool || rt != Bool {
			return nil, errors.WithStack(typeErrorf(n.Pos, "operator %s needs %s operands, got %s and %s", opText(n.Op), Bool, lt, rt))
		}
		return Bool, nil
	}
}

// blockType is the type of b's trailing expression, or Unit without one.
// Declarations made earlier in the block are visible to it.
func (cg *CodeGen) blockType(b *Block) (Type, error) {
	if b.Result == nil {
		return Unit{}, nil
	}
	local := make(map[string]Type)
	cg.overlay = append(cg.overlay, local)
	defer func() { cg.overlay = cg.overlay[:len(cg.overlay)-1] }()

	for _, s := range b.Stmts {
		d, ok := s.(*Declaration)
		if !ok {
			continue
		}
		pat, ok := d.Pattern.(*IdentPattern)
		if !ok {
			continue
		}
		t, err := cg.resolveType(d.Type, d.Init)
		if err != nil {
			return nil, err
		}
		local[pat.Name] = t
	}
	return cg.getType(b.Result)
}

// conditionalType requires every branch to produce the same type. Without
// an else the chain has no value.
func (cg *CodeGen) conditionalType(n *ConditionGroup) (Type, error) {
	var result Type
	bodies := make([]*Block, 0, len(n.Branches)+1)
	for _, br := range n.Branches {
		bodies = append(bodies, br.Body)
	}
	if n.Default != nil {
		bodies = append(bodies, n.Default)
	}
	for _, b := range bodies {
		t, err := cg.blockType(b)
		if err != nil {
			return nil, err
		}
		if result == nil {
			result = t
		} else if t != result {
			return nil, errors.WithStack(typeErrorf(n.Pos, "if branches produce %s and %s", result, t))
		}
	}
	if n.Default == nil && result != (Unit{}) {
		return nil, errors.WithStack(typeErrorf(n.Pos, "if without else cannot produce %s", result))
	}
	return result, nil
}

// intrinsic returns the method name when chain is one of the I/O calls.
func intrinsic(chain *CallChain) (string, bool) {
	if len(chain.Props) != 1 || !chain.Props[0].Call {
		return "", false
	}
	name := chain.Receiver + "." + chain.Props[0].Name
	switch name {
	case stdoutName + ".print", stdinName + ".read":
		return name, true
	}
	return "", false
}

func (cg *CodeGen) intrinsicType(n *CallChain) (Type, error) {
	name, ok := intrinsic(n)
	if !ok {
		return nil, unsupported("call "+n.String(), n.Pos)
	}
	for _, arg := range n.Props[0].Args {
		if name == stdinName+".read" {
			id, ok := arg.(*Identifier)
			if !ok {
				return nil, errors.WithStack(typeErrorf(arg.Position(), "%s expects variable names, got %s", name, arg))
			}
			if _, err := cg.lookupType(id.Name, id.Pos); err != nil {
				return nil, err
			}
			continue
		}
		if _, err := cg.getType(arg); err != nil {
			return nil, err
		}
	}
	return Unit{}, nil
}

// evalInto type checks e against want and writes its value to dst, whose
// cells must be zero.
func (cg *CodeGen) evalInto(e Expr, dst MemoryBlock, want Type) error {
	t, err := cg.getType(e)
	if err != nil {
		return err
	}
	if t != want {
		return errors.WithStack(typeErrorf(e.Position(), "cannot use %s of type %s as %s", e, t, want))
	}
	return cg.genExpr(e, dst)
}

// evalCell evaluates a single-cell expression into a fresh scratch cell.
func (cg *CodeGen) evalCell(e Expr) (MemoryBlock, error) {
	c := cg.scratch(1)
	return c, cg.genExpr(e, c)
}

// genExpr writes the value of an already type checked e into the zeroed
// block dst.
func (cg *CodeGen) genExpr(e Expr, dst MemoryBlock) error {
	switch n := e.(type) {
	case *StringLiteral:
		for i := 0; i < len(n.Value); i++ {
			cg.addConst(dst.Cell(i), int(n.Value[i]))
		}

	case *NumberLiteral:
		cg.addConst(dst.Offset, int(n.Value))

	case *BoolLiteral:
		if n.Value {
			cg.emit(Increment(dst.Offset, 1))
		}

	case *Identifier:
		bd, ok := cg.scope.Lookup(n.Name)
		if !ok {
			return errors.WithStack(&NameError{Name: n.Name, Pos: n.Pos})
		}
		cg.copy(bd.Block, dst)

	case *Group:
		return cg.genExpr(n.Inner, dst)

	case *BlockExpr:
		t, err := cg.getType(n)
		if err != nil {
			return err
		}
		return cg.genBlock(n.Block, dst, t)

	case *IfExpr:
		t, err := cg.getType(n)
		if err != nil {
			return err
		}
		return cg.genConditional(n.Group, dst, t)

	case *NotExpr:
		// a=x  dst+  a[ a[-] dst- ]
		a, err := cg.evalCell(n.Operand)
		if err != nil {
			return err
		}
		d := dst.Offset
		cg.emit(Increment(d, 1))
		cg.emit(LoopOpen(a.Offset), Zero(a.Offset), Decrement(d, 1), LoopClose(a.Offset))
		cg.release(a)

	case *BinaryExpr:
		return cg.genBinary(n, dst)

	case *CallChain:
		return cg.genIntrinsic(n)

	default:
		_, err := cg.getType(e)
		if err == nil {
			err = errors.Errorf("codegen: cannot lower %T", e)
		}
		return err
	}
	return nil
}

func (cg *CodeGen) genBinary(n *BinaryExpr, dst MemoryBlock) error {
	d := dst.Offset
	switch n.Op {
	case PLUS, MINUS:
		// dst=left  r=right  r[ r- dst± ]
		if err := cg.genExpr(n.Left, dst); err != nil {
			return err
		}
		r, err := cg.evalCell(n.Right)
		if err != nil {
			return err
		}
		step := Increment(d, 1)
		if n.Op == MINUS {
			step = Decrement(d, 1)
		}
		cg.emit(LoopOpen(r.Offset), Decrement(r.Offset, 1), step, LoopClose(r.Offset))
		cg.release(r)

	case EQUALS, NOT_EQ:
		// a=left  b=right  b[ b- a- ]  then dst is whether a is zero
		a, err := cg.evalCell(n.Left)
		if err != nil {
			return err
		}
		b, err := cg.evalCell(n.Right)
		if err != nil {
			return err
		}
		cg.emit(LoopOpen(b.Offset), Decrement(b.Offset, 1), Decrement(a.Offset, 1), LoopClose(b.Offset))
		if n.Op == EQUALS {
			cg.emit(Increment(d, 1))
			cg.emit(LoopOpen(a.Offset), Zero(a.Offset), Decrement(d, 1), LoopClose(a.Offset))
		} else {
			cg.emit(LoopOpen(a.Offset), Zero(a.Offset), Increment(d, 1), LoopClose(a.Offset))
		}
		cg.release(b)
		cg.release(a)

	case AND_LOGICAL:
		// a=left  a[ a[-] b=right b[ b[-] dst+ ] ]
		a, err := cg.evalCell(n.Left)
		if err != nil {
			return err
		}
		cg.emit(LoopOpen(a.Offset), Zero(a.Offset))
		b, err := cg.evalCell(n.Right)
		if err != nil {
			return err
		}
		cg.emit(LoopOpen(b.Offset), Zero(b.Offset), Increment(d, 1), LoopClose(b.Offset))
		cg.release(b)
		cg.emit(LoopClose(a.Offset))
		cg.release(a)

	case OR_LOGICAL:
		// a=left  f+  a[ a[-] f- dst+ ]  f[ f- b=right b[ b[-] dst+ ] ]
		a, err := cg.evalCell(n.Left)
		if err != nil {
			return err
		}
		f := cg.scratch(1).Offset
		cg.emit(Increment(f, 1))
		cg.emit(LoopOpen(a.Offset), Zero(a.Offset), Decrement(f, 1), Increment(d, 1), LoopClose(a.Offset))
		cg.emit(LoopOpen(f), Decrement(f, 1))
		b, err := cg.evalCell(n.Right)
		if err != nil {
			return err
		}
		cg.emit(LoopOpen(b.Offset), Zero(b.Offset), Increment(d, 1), LoopClose(b.Offset))
		cg.release(b)
		cg.emit(LoopClose(f))
		cg.release(MemoryBlock{Offset: f, Size: 1})
		cg.release(a)

	default:
		return unsupported("operator "+opText(n.Op), n.Pos)
	}
	return nil
}

func (cg *CodeGen) genIntrinsic(n *CallChain) error {
	name, _ := intrinsic(n)
	for _, arg := range n.Props[0].Args {
		if name == stdinName+".read" {
			id := arg.(*Identifier)
			bd, ok := cg.scope.Lookup(id.Name)
			if !ok {
				return errors.WithStack(&NameError{Name: id.Name, Pos: id.Pos})
			}
			for i := 0; i < bd.Block.Size; i++ {
				cg.emit(Zero(bd.Block.Cell(i)), Read(bd.Block.Cell(i)))
			}
			continue
		}

		if id, ok := arg.(*Identifier); ok {
			bd, ok := cg.scope.Lookup(id.Name)
			if !ok {
				return errors.WithStack(&NameError{Name: id.Name, Pos: id.Pos})
			}
			for i := 0; i < bd.Block.Size; i++ {
				cg.emit(Write(bd.Block.Cell(i)))
			}
			continue
		}
		t, err := cg.getType(arg)
		if err != nil {
			return err
		}
		tmp := cg.scratch(t.Width())
		if err := cg.genExpr(arg, tmp); err != nil {
			return err
		}
		for i := 0; i < tmp.Size; i++ {
			cg.emit(Write(tmp.Cell(i)))
		}
		cg.discard(tmp)
	}
	return nil
}
