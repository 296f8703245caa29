package tape

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"io"

	"github.com/pkg/errors"
)

// machineState is the JSON part of a hibernated Machine.
type machineState struct {
	Head   int  `json:"head"`
	PC     int  `json:"pc"`
	Steps  int  `json:"steps"`
	Halted bool `json:"halted"`
	Cells  int  `json:"cells"`
}

// HibernateToBytes packs the program, the tape and the machine registers
// into a ZIP archive.
func (m *Machine) HibernateToBytes() ([]byte, error) {
	buf := new(bytes.Buffer)
	zw := zip.NewWriter(buf)

	state := machineState{
		Head:   m.Head,
		PC:     m.PC,
		Steps:  m.Steps,
		Halted: m.Halted,
		Cells:  len(m.Cells),
	}
	jsonData, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "marshal machine state")
	}
	if err := writeZipEntry(zw, "state.json", jsonData); err != nil {
		return nil, err
	}
	if err := writeZipEntry(zw, "program.bf", []byte(m.Prog.String())); err != nil {
		return nil, err
	}
	if err := writeZipEntry(zw, "tape.bin", m.Cells); err != nil {
		return nil, err
	}

	if err := zw.Close(); err != nil {
		return nil, errors.Wrap(err, "close zip")
	}
	return buf.Bytes(), nil
}

// RestoreFromBytes rebuilds a Machine from an archive produced by
// HibernateToBytes. opts are applied first, so saved state wins over
// WithCells while WithIO and WithStepLimit still take effect.
func RestoreFromBytes(data []byte, opts ...Option) (*Machine, error) {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, errors.Wrap(err, "open zip")
	}
	fileMap := make(map[string]*zip.File, len(r.File))
	for _, f := range r.File {
		fileMap[f.Name] = f
	}

	jsonData, err := readZipEntry(fileMap, "state.json")
	if err != nil {
		return nil, err
	}
	var state machineState
	if err := json.Unmarshal(jsonData, &state); err != nil {
		return nil, errors.Wrap(err, "unmarshal machine state")
	}

	text, err := readZipEntry(fileMap, "program.bf")
	if err != nil {
		return nil, err
	}
	prog, err := Assemble(string(text))
	if err != nil {
		return nil, errors.Wrap(err, "assemble saved program")
	}

	cells, err := readZipEntry(fileMap, "tape.bin")
	if err != nil {
		return nil, err
	}
	if len(cells) != state.Cells {
		return nil, errors.Errorf("tape.bin holds %d cells, state says %d", len(cells), state.Cells)
	}
	if state.Head < 0 || state.Head >= len(cells) {
		return nil, errors.Errorf("saved head %d is off the tape", state.Head)
	}
	if state.PC < 0 || state.PC > len(prog.Code) {
		return nil, errors.Errorf("saved pc %d is outside the program", state.PC)
	}

	m := NewMachine(prog, opts...)
	m.Cells = cells
	m.Head = state.Head
	m.PC = state.PC
	m.Steps = state.Steps
	m.Halted = state.Halted || state.PC == len(prog.Code)
	return m, nil
}

func writeZipEntry(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.Create(name)
	if err != nil {
		return errors.Wrapf(err, "create zip entry %q", name)
	}
	_, err = w.Write(data)
	return err
}

func readZipEntry(fileMap map[string]*zip.File, name string) ([]byte, error) {
	f, ok := fileMap[name]
	if !ok {
		return nil, errors.Errorf("zip entry %q not found", name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, errors.Wrapf(err, "open zip entry %q", name)
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
