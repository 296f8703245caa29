package compiler

import (
	"fmt"
	"strings"
)

// ParseError reports malformed source text. Pos is the furthest point the
// parser reached and Expected holds every grammar symbol it tried there.
type ParseError struct {
	Pos      Pos
	Expected []string
	Found    string
	Msg      string // set for lexical failures such as an unterminated comment
}

func (e *ParseError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s (offset %d): ", e.Pos, e.Pos.Offset)
	if e.Msg != "" {
		sb.WriteString(e.Msg)
		if len(e.Expected) > 0 {
			sb.WriteString("; ")
		}
	}
	switch len(e.Expected) {
	case 0:
	case 1:
		fmt.Fprintf(&sb, "expected %s", e.Expected[0])
	default:
		fmt.Fprintf(&sb, "expected one of %s", strings.Join(e.Expected, ", "))
	}
	if e.Found != "" {
		fmt.Fprintf(&sb, ", found %s", e.Found)
	}
	return sb.String()
}

// NameError reports a reference to an identifier with no visible binding.
type NameError struct {
	Name string
	Pos  Pos
}

func (e *NameError) Error() string {
	return fmt.Sprintf("%s: undeclared identifier %q", e.Pos, e.Name)
}

// TypeError reports a type mismatch, an unresolvable array size or an
// unknown type name.
type TypeError struct {
	Pos Pos
	Msg string
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("%s: type error: %s", e.Pos, e.Msg)
}

func typeErrorf(pos Pos, format string, args ...any) *TypeError {
	return &TypeError{Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

// DuplicateDeclarationError reports a second declaration of a name in the
// same scope frame. It unwraps to a *TypeError.
type DuplicateDeclarationError struct {
	Name string
	Pos  Pos
}

func (e *DuplicateDeclarationError) Error() string {
	return e.Unwrap().Error()
}

func (e *DuplicateDeclarationError) Unwrap() error {
	return typeErrorf(e.Pos, "duplicate declaration of %q in the same scope", e.Name)
}

// UnsupportedError reports a construct the grammar accepts but the
// generator cannot lower.
type UnsupportedError struct {
	Construct string
	Pos       Pos
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("%s: unsupported: %s", e.Pos, e.Construct)
}
