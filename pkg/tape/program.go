package tape

import (
	"fmt"

	"go.uber.org/multierr"
)

// Op is one executable tape instruction.
type Op byte

const (
	OpInc   Op = '+'
	OpDec   Op = '-'
	OpRight Op = '>'
	OpLeft  Op = '<'
	OpOpen  Op = '['
	OpClose Op = ']'
	OpOut   Op = '.'
	OpIn    Op = ','
)

func isOp(c byte) bool {
	switch Op(c) {
	case OpInc, OpDec, OpRight, OpLeft, OpOpen, OpClose, OpOut, OpIn:
		return true
	}
	return false
}

// Program is assembled tape text. Every byte that is not one of the eight
// instruction symbols is dropped.
type Program struct {
	Code []Op
	// Jump holds, for each bracket, the index of its partner. It is -1 for
	// every other instruction.
	Jump []int
	// SourceMap maps an instruction index to the 1-based line it came from.
	SourceMap map[int]int
}

func (p *Program) String() string {
	b := make([]byte, len(p.Code))
	for i, op := range p.Code {
		b[i] = byte(op)
	}
	return string(b)
}

// BracketError reports one unbalanced bracket.
type BracketError struct {
	Line   int
	Column int
	Symbol byte
}

func (e *BracketError) Error() string {
	if e.Symbol == byte(OpOpen) {
		return fmt.Sprintf("line %d, column %d: unclosed %q", e.Line, e.Column, e.Symbol)
	}
	return fmt.Sprintf("line %d, column %d: unmatched %q", e.Line, e.Column, e.Symbol)
}

// Assemble turns program text into a Program, matching brackets. Every
// unbalanced bracket is reported; the returned error combines them and
// multierr.Errors splits it again.
func Assemble(text string) (*Program, error) {
	p := &Program{SourceMap: make(map[int]int)}

	type open struct {
		index, line, col int
	}
	var stack []open
	var errs error

	line, col := 1, 0
	for i := 0; i < len(text); i++ {
		c := text[i]
		col++
		if c == '\n' {
			line++
			col = 0
			continue
		}
		if !isOp(c) {
			continue
		}
		idx := len(p.Code)
		p.Code = append(p.Code, Op(c))
		p.Jump = append(p.Jump, -1)
		p.SourceMap[idx] = line

		switch Op(c) {
		case OpOpen:
			stack = append(stack, open{index: idx, line: line, col: col})
		case OpClose:
			if len(stack) == 0 {
				errs = multierr.Append(errs, &BracketError{Line: line, Column: col, Symbol: c})
				continue
			}
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			p.Jump[top.index] = idx
			p.Jump[idx] = top.index
		}
	}
	for _, o := range stack {
		errs = multierr.Append(errs, &BracketError{Line: o.line, Column: o.col, Symbol: byte(OpOpen)})
	}
	if errs != nil {
		return nil, errs
	}
	return p, nil
}
