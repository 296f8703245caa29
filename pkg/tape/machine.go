package tape

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
)

// DefaultCells is the tape length used when none is configured.
const DefaultCells = 30000

// ErrStepLimit is returned by Run when the configured step budget runs out
// before the program halts.
var ErrStepLimit = errors.New("step limit reached")

// HeadError reports the head moving off either end of the tape.
type HeadError struct {
	PC   int
	Head int
}

func (e *HeadError) Error() string {
	return fmt.Sprintf("head moved off the tape to cell %d at instruction %d", e.Head, e.PC)
}

// Machine executes a Program on a tape of wrapping byte cells.
type Machine struct {
	Prog  *Program
	Cells []byte
	Head  int
	PC    int
	Steps int

	Halted bool

	// Input is read one byte at a time for ','. At end of input the cell
	// keeps its value. If nil, os.Stdin is used.
	Input io.Reader
	// Output receives a byte for every '.'. If nil, os.Stdout is used.
	Output io.Writer

	stepLimit int
}

// Option configures a Machine.
type Option func(*Machine)

// WithCells sets the tape length.
func WithCells(n int) Option {
	return func(m *Machine) { m.Cells = make([]byte, n) }
}

// WithStepLimit makes Run stop with ErrStepLimit after n steps. Zero means
// no limit.
func WithStepLimit(n int) Option {
	return func(m *Machine) { m.stepLimit = n }
}

// WithIO sets the input and output streams.
func WithIO(in io.Reader, out io.Writer) Option {
	return func(m *Machine) {
		m.Input = in
		m.Output = out
	}
}

func NewMachine(p *Program, opts ...Option) *Machine {
	m := &Machine{Prog: p}
	for _, opt := range opts {
		opt(m)
	}
	if m.Cells == nil {
		m.Cells = make([]byte, DefaultCells)
	}
	m.Halted = len(p.Code) == 0
	return m
}

func (m *Machine) inputSource() io.Reader {
	if m.Input != nil {
		return m.Input
	}
	return os.Stdin
}

func (m *Machine) outputSink() io.Writer {
	if m.Output != nil {
		return m.Output
	}
	return os.Stdout
}

// Step executes one instruction. It does nothing once the machine halted.
func (m *Machine) Step() error {
	if m.Halted {
		return nil
	}
	switch m.Prog.Code[m.PC] {
	case OpInc:
		m.Cells[m.Head]++
	case OpDec:
		m.Cells[m.Head]--
	case OpRight:
		if m.Head+1 >= len(m.Cells) {
			return errors.WithStack(&HeadError{PC: m.PC, Head: m.Head + 1})
		}
		m.Head++
	case OpLeft:
		if m.Head == 0 {
			return errors.WithStack(&HeadError{PC: m.PC, Head: -1})
		}
		m.Head--
	case OpOpen:
		if m.Cells[m.Head] == 0 {
			m.PC = m.Prog.Jump[m.PC]
		}
	case OpClose:
		if m.Cells[m.Head] != 0 {
			m.PC = m.Prog.Jump[m.PC]
		}
	case OpOut:
		if _, err := m.outputSink().Write(m.Cells[m.Head : m.Head+1]); err != nil {
			return errors.Wrap(err, "writing output")
		}
	case OpIn:
		var b [1]byte
		n, err := m.inputSource().Read(b[:])
		switch {
		case n == 1:
			m.Cells[m.Head] = b[0]
		case err != nil && err != io.EOF:
			return errors.Wrap(err, "reading input")
		}
	}
	m.PC++
	m.Steps++
	if m.PC >= len(m.Prog.Code) {
		m.Halted = true
	}
	return nil
}

// Run steps until the program halts, ctx is done, an instruction fails, or
// the step limit is reached.
func (m *Machine) Run(ctx context.Context) error {
	for !m.Halted {
		if m.stepLimit > 0 && m.Steps >= m.stepLimit {
			return errors.WithStack(ErrStepLimit)
		}
		if m.Steps%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return errors.WithStack(err)
			}
		}
		if err := m.Step(); err != nil {
			return err
		}
	}
	return nil
}

// Window returns n cells centred on center, clamped to the tape, and the
// index of the first returned cell.
func (m *Machine) Window(center, n int) ([]byte, int) {
	if n > len(m.Cells) {
		n = len(m.Cells)
	}
	start := center - n/2
	if start < 0 {
		start = 0
	}
	if start+n > len(m.Cells) {
		start = len(m.Cells) - n
	}
	return m.Cells[start : start+n], start
}

// Line is the source line of the next instruction, or 0 once halted.
func (m *Machine) Line() int {
	if m.Halted {
		return 0
	}
	return m.Prog.SourceMap[m.PC]
}
