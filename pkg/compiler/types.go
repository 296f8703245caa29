package compiler

import (
	"fmt"

	"github.com/pkg/errors"
)

// Type is a resolved type. Types are comparable with ==.
type Type interface {
	// Width is the number of tape cells a value of the type occupies.
	Width() int
	String() string
}

// Primitive is a predeclared single-cell type.
type Primitive struct {
	Name string
}

// Array is Len contiguous elements of Elem.
type Array struct {
	Elem Type
	Len  int
}

// Unit is the type of expressions that produce no value.
type Unit struct{}

func (Primitive) Width() int       { return 1 }
func (p Primitive) String() string { return p.Name }

func (a Array) Width() int     { return a.Len * a.Elem.Width() }
func (a Array) String() string { return fmt.Sprintf("[%s; %d]", a.Elem, a.Len) }

func (Unit) Width() int     { return 0 }
func (Unit) String() string { return "()" }

// MaxCells bounds the width of any declared type. It matches the tape length
// the generated program is written for.
const MaxCells = 30000

var (
	U8   = Primitive{Name: "u8"}
	Bool = Primitive{Name: "bool"}
)

// primitives are the type names visible everywhere.
var primitives = map[string]Primitive{
	U8.Name:   U8,
	Bool.Name: Bool,
}

// resolveType maps a written type to a Type. An unspecified array size is
// taken from the initializer, which must then be an array value.
func (cg *CodeGen) resolveType(def TypeDef, init Expr) (Type, error) {
	switch d := def.(type) {
	case *NamedType:
		if prim, ok := primitives[d.Name]; ok {
			return prim, nil
		}
		return nil, errors.WithStack(typeErrorf(d.Pos, "unknown type %q", d.Name))

	case *ArrayType:
		elem, err := cg.resolveType(d.Elem, nil)
		if err != nil {
			return nil, err
		}
		initLen := -1
		if init != nil {
			t, err := cg.getType(init)
			if err != nil {
				return nil, err
			}
			if arr, ok := t.(Array); ok {
				initLen = arr.Len
			}
		}
		if d.Size == nil {
			if initLen < 0 {
				return nil, errors.WithStack(typeErrorf(d.Pos, "cannot infer the size of %s without an array initializer", d))
			}
			return sizedArray(d, elem, initLen)
		}
		if *d.Size < 0 {
			return nil, errors.WithStack(typeErrorf(d.Pos, "negative array size %d", *d.Size))
		}
		if initLen >= 0 && initLen != *d.Size {
			return nil, errors.WithStack(typeErrorf(d.Pos, "array size %d does not match initializer length %d", *d.Size, initLen))
		}
		return sizedArray(d, elem, *d.Size)
	}
	return nil, errors.Errorf("unknown type definition %T", def)
}

// sizedArray builds the array type for d, rejecting widths past MaxCells.
// Dividing instead of multiplying keeps nested sizes from wrapping.
func sizedArray(d *ArrayType, elem Type, n int) (Type, error) {
	if w := elem.Width(); w > 0 && n > MaxCells/w {
		return nil, errors.WithStack(typeErrorf(d.Pos, "%d elements of %s exceed the %d cell limit", n, elem, MaxCells))
	}
	return Array{Elem: elem, Len: n}, nil
}
