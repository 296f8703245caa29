package main

import (
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"

	"brain/pkg/compiler"
)

const testSource = `let x: u8 = 10;
let y: u8 = x + 20;
stdout.print(y);
`

func main() {
	src := testSource
	if len(os.Args) > 1 {
		data, err := os.ReadFile(os.Args[1])
		if err != nil {
			fmt.Fprintln(os.Stderr, "read error:", err)
			os.Exit(1)
		}
		src = string(data)
	}
	if err := inspect(os.Stdout, src); err != nil {
		fmt.Fprintf(os.Stderr, "%+v\n", err)
		os.Exit(1)
	}
}

// inspect prints every stage of the pipeline for src.
func inspect(w io.Writer, src string) error {
	fmt.Fprintf(w, "Source:\n%s\n", src)

	// Lex
	tokens, err := compiler.Lex(src)
	if err != nil {
		return errors.Wrap(err, "lex error")
	}
	fmt.Fprintf(w, "Tokens (%d)\n", len(tokens))
	for _, tok := range tokens {
		fmt.Fprintln(w, " ", tok)
	}
	fmt.Fprintln(w)

	// Parse
	prog, err := compiler.Parse(tokens, src)
	if err != nil {
		return errors.Wrap(err, "parse error")
	}
	fmt.Fprintln(w, "AST")
	for _, s := range prog.Stmts {
		fmt.Fprintln(w, " ", s)
	}
	fmt.Fprintln(w)

	// Operations
	cg := compiler.NewCodeGen()
	ops, err := cg.Generate(prog)
	if err != nil {
		return errors.Wrap(err, "codegen error")
	}
	fmt.Fprintf(w, "Operations (%d, %d cells)\n", len(ops), cg.Allocator().Peak())
	for _, op := range ops {
		fmt.Fprintln(w, " ", op)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Layout")
	fmt.Fprint(w, cg.Scope())
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Program")
	return compiler.SerializeTo(w, ops, 72)
}
