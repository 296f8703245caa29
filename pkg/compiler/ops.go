package compiler

import "fmt"

// OpKind is the kind of a tape Operation.
type OpKind int

const (
	OpIncrement OpKind = iota // add Count to the cell
	OpDecrement               // subtract Count from the cell
	OpZero                    // clear the cell with [-]
	OpLoopOpen                // [ with the head on Cell
	OpLoopClose               // ] with the head on Cell
	OpWrite                   // output the cell
	OpRead                    // read one byte into the cell
)

var opKindNames = [...]string{
	OpIncrement: "inc",
	OpDecrement: "dec",
	OpZero:      "zero",
	OpLoopOpen:  "open",
	OpLoopClose: "close",
	OpWrite:     "write",
	OpRead:      "read",
}

func (k OpKind) String() string {
	if int(k) < len(opKindNames) {
		return opKindNames[k]
	}
	return fmt.Sprintf("OpKind(%d)", int(k))
}

// Operation is one cell-addressed tape instruction. Count is only used by
// increments and decrements.
type Operation struct {
	Kind  OpKind
	Cell  int
	Count int
}

func (o Operation) String() string {
	switch o.Kind {
	case OpIncrement, OpDecrement:
		return fmt.Sprintf("%s %d x%d", o.Kind, o.Cell, o.Count)
	default:
		return fmt.Sprintf("%s %d", o.Kind, o.Cell)
	}
}

// Increment adds n to cell.
func Increment(cell, n int) Operation { return Operation{Kind: OpIncrement, Cell: cell, Count: n} }

// Decrement subtracts n from cell.
func Decrement(cell, n int) Operation { return Operation{Kind: OpDecrement, Cell: cell, Count: n} }

// Zero clears cell.
func Zero(cell int) Operation { return Operation{Kind: OpZero, Cell: cell} }

// LoopOpen starts a loop that runs while cell is non-zero.
func LoopOpen(cell int) Operation { return Operation{Kind: OpLoopOpen, Cell: cell} }

// LoopClose ends the loop opened on cell.
func LoopClose(cell int) Operation { return Operation{Kind: OpLoopClose, Cell: cell} }

// Write outputs cell as a byte.
func Write(cell int) Operation { return Operation{Kind: OpWrite, Cell: cell} }

// Read stores one input byte in cell.
func Read(cell int) Operation { return Operation{Kind: OpRead, Cell: cell} }
