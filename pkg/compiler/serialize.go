package compiler

import (
	"io"
	"strings"

	"github.com/pkg/errors"
)

// Serialize renders ops as tape program text. The head starts on cell 0 and
// each operation first moves it to its cell with the fewest < or > symbols.
// Operations that do nothing emit nothing, not even a move.
func Serialize(ops []Operation) string {
	var sb strings.Builder
	head := 0
	for _, op := range ops {
		sym, n := opSymbols(op)
		if n == 0 {
			continue
		}
		for ; head < op.Cell; head++ {
			sb.WriteByte('>')
		}
		for ; head > op.Cell; head-- {
			sb.WriteByte('<')
		}
		sb.WriteString(strings.Repeat(sym, n))
	}
	return sb.String()
}

func opSymbols(op Operation) (string, int) {
	switch op.Kind {
	case OpIncrement:
		return "+", max(op.Count, 0)
	case OpDecrement:
		return "-", max(op.Count, 0)
	case OpZero:
		return "[-]", 1
	case OpLoopOpen:
		return "[", 1
	case OpLoopClose:
		return "]", 1
	case OpWrite:
		return ".", 1
	case OpRead:
		return ",", 1
	}
	return "", 0
}

// SerializeTo writes the serialized program to w, broken into lines of at
// most width symbols. A width of zero or less writes a single line. A
// trailing newline is always written.
func SerializeTo(w io.Writer, ops []Operation, width int) error {
	text := Serialize(ops)
	if width > 0 {
		var sb strings.Builder
		for len(text) > width {
			sb.WriteString(text[:width])
			sb.WriteByte('\n')
			text = text[width:]
		}
		sb.WriteString(text)
		text = sb.String()
	}
	if _, err := io.WriteString(w, text+"\n"); err != nil {
		return errors.Wrap(err, "writing program")
	}
	return nil
}
