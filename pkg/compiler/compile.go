package compiler

import (
	"github.com/pkg/errors"
)

// Compile runs the whole pipeline and returns the program text.
func Compile(src string, opts ...GenOption) (string, error) {
	ops, err := CompileOps(src, opts...)
	if err != nil {
		return "", err
	}
	return Serialize(ops), nil
}

// CompileOps parses and lowers src, stopping before serialization.
func CompileOps(src string, opts ...GenOption) ([]Operation, error) {
	prog, err := ParseSource(src)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return Generate(prog, opts...)
}
