package compiler

import (
	"fmt"
	"strings"
)

//  Expression nodes

// Expr is implemented by every node that produces a value.
type Expr interface {
	exprNode()
	Position() Pos
	String() string
}

// StringLiteral is a string constant with escapes already decoded.
type StringLiteral struct {
	Value string
	Pos   Pos
}

// Identifier is a read of a named variable.
//
//	x = y;
//	    ^  Identifier{Name: "y"}
type Identifier struct {
	Name string
	Pos  Pos
}

// NumberLiteral is an integer constant; underscores are already stripped.
type NumberLiteral struct {
	Value int64
	Pos   Pos
}

// BoolLiteral is true or false.
type BoolLiteral struct {
	Value bool
	Pos   Pos
}

// BinaryExpr represents Left Op Right.
//
//	x + 1
//	^ ^ ^
//	| | Right
//	| Op
//	Left
type BinaryExpr struct {
	Op    TokenType
	Left  Expr
	Right Expr
	Pos   Pos // position of the operator
}

// NotExpr represents !Operand.
type NotExpr struct {
	Operand Expr
	Pos     Pos
}

// Group is a parenthesised expression.
type Group struct {
	Inner Expr
	Pos   Pos
}

// BlockExpr is a block used as a value: { stmt; stmt; result }.
type BlockExpr struct {
	Block *Block
	Pos   Pos
}

// IfExpr is a conditional used as a value.
type IfExpr struct {
	Group *ConditionGroup
}

// RangeExpr is start(, step)?..end over number literals.
type RangeExpr struct {
	Start int64
	Step  *int64
	End   int64
	Pos   Pos
}

// CallExpr represents name(args).
type CallExpr struct {
	Name string
	Args []Expr
	Pos  Pos
}

// PropGet is one ".name" or ".name(args)" link of a call chain.
type PropGet struct {
	Name string
	Args []Expr
	Call bool // true when followed by an argument list
	Pos  Pos
}

// CallChain represents receiver.prop.method(args)...
//
//	stdout.print("hi")
//	^      ^
//	|      Props[0]{Name: "print", Call: true}
//	Receiver
type CallChain struct {
	Receiver string
	Props    []PropGet
	Pos      Pos
}

func (*StringLiteral) exprNode() {}
func (*Identifier) exprNode()    {}
func (*NumberLiteral) exprNode() {}
func (*BoolLiteral) exprNode()   {}
func (*BinaryExpr) exprNode()    {}
func (*NotExpr) exprNode()       {}
func (*Group) exprNode()         {}
func (*BlockExpr) exprNode()     {}
func (*IfExpr) exprNode()        {}
func (*RangeExpr) exprNode()     {}
func (*CallExpr) exprNode()      {}
func (*CallChain) exprNode()     {}

func (e *StringLiteral) Position() Pos { return e.Pos }
func (e *Identifier) Position() Pos    { return e.Pos }
func (e *NumberLiteral) Position() Pos { return e.Pos }
func (e *BoolLiteral) Position() Pos   { return e.Pos }
func (e *BinaryExpr) Position() Pos    { return e.Pos }
func (e *NotExpr) Position() Pos       { return e.Pos }
func (e *Group) Position() Pos         { return e.Pos }
func (e *BlockExpr) Position() Pos     { return e.Pos }
func (e *IfExpr) Position() Pos        { return e.Group.Pos }
func (e *RangeExpr) Position() Pos     { return e.Pos }
func (e *CallExpr) Position() Pos      { return e.Pos }
func (e *CallChain) Position() Pos     { return e.Pos }

func (e *StringLiteral) String() string { return fmt.Sprintf("%q", e.Value) }
func (e *Identifier) String() string    { return e.Name }
func (e *NumberLiteral) String() string { return fmt.Sprintf("%d", e.Value) }
func (e *BoolLiteral) String() string   { return fmt.Sprintf("%t", e.Value) }
func (e *BinaryExpr) String() string {
	return fmt.Sprintf("(%s %s %s)", e.Left, opText(e.Op), e.Right)
}
func (e *NotExpr) String() string   { return fmt.Sprintf("!%s", e.Operand) }
func (e *Group) String() string     { return fmt.Sprintf("(%s)", e.Inner) }
func (e *BlockExpr) String() string { return e.Block.String() }
func (e *IfExpr) String() string    { return e.Group.String() }
func (e *RangeExpr) String() string {
	if e.Step != nil {
		return fmt.Sprintf("%d, %d..%d", e.Start, *e.Step, e.End)
	}
	return fmt.Sprintf("%d..%d", e.Start, e.End)
}
func (e *CallExpr) String() string {
	return fmt.Sprintf("%s(%s)", e.Name, joinExprs(e.Args))
}
func (e *CallChain) String() string {
	var sb strings.Builder
	sb.WriteString(e.Receiver)
	for _, p := range e.Props {
		sb.WriteString("." + p.Name)
		if p.Call {
			fmt.Fprintf(&sb, "(%s)", joinExprs(p.Args))
		}
	}
	return sb.String()
}

func opText(op TokenType) string {
	return strings.Trim(op.Symbol(), `"`)
}

func joinExprs(exprs []Expr) string {
	parts := make([]string, len(exprs))
	for i, e := range exprs {
		parts[i] = e.String()
	}
	return strings.Join(parts, ", ")
}

//  Statement nodes

// Stmt is implemented by every statement node.
type Stmt interface {
	stmtNode()
	String() string
}

// Block is a braced statement list with an optional trailing value.
type Block struct {
	Stmts  []Stmt
	Result Expr // nil when the block has no trailing expression
}

func (b *Block) String() string {
	parts := make([]string, 0, len(b.Stmts)+1)
	for _, s := range b.Stmts {
		parts = append(parts, s.String())
	}
	if b.Result != nil {
		parts = append(parts, b.Result.String())
	}
	return "{" + strings.Join(parts, " ") + "}"
}

// Comment has no semantic effect.
type Comment struct {
	Text string
}

// Pattern is the left-hand side of a declaration.
type Pattern interface {
	patternNode()
	String() string
}

// IdentPattern binds a single name.
type IdentPattern struct {
	Name string
	Pos  Pos
}

func (*IdentPattern) patternNode()     {}
func (p *IdentPattern) String() string { return p.Name }

// Declaration represents let pattern: type (= init)?;
type Declaration struct {
	Pattern Pattern
	Type    TypeDef
	Init    Expr // nil without initializer
	Pos     Pos
}

// Assignment represents name = value;
type Assignment struct {
	Name  string
	Value Expr
	Pos   Pos
}

// WhileLoop represents while cond { body }.
type WhileLoop struct {
	Cond Expr
	Body *Block
	Pos  Pos
}

// ForLoop represents for pattern in iter { body }.
type ForLoop struct {
	Pattern Pattern
	Iter    Expr
	Body    *Block
	Pos     Pos
}

// Branch is one condition and the block it guards.
type Branch struct {
	Cond Expr
	Body *Block
}

// ConditionGroup is an if / else if / else chain. Branches are tested in
// order and at most one body runs.
type ConditionGroup struct {
	Branches []Branch
	Default  *Block // nil without a final else
	Pos      Pos
}

// ExprStmt is an expression evaluated for its effects.
type ExprStmt struct {
	Expr Expr
}

func (*Comment) stmtNode()        {}
func (*Declaration) stmtNode()    {}
func (*Assignment) stmtNode()     {}
func (*WhileLoop) stmtNode()      {}
func (*ForLoop) stmtNode()        {}
func (*ConditionGroup) stmtNode() {}
func (*ExprStmt) stmtNode()       {}

func (c *Comment) String() string { return fmt.Sprintf("Comment(%q)", c.Text) }
func (d *Declaration) String() string {
	if d.Init == nil {
		return fmt.Sprintf("let %s: %s;", d.Pattern, d.Type)
	}
	return fmt.Sprintf("let %s: %s = %s;", d.Pattern, d.Type, d.Init)
}
func (a *Assignment) String() string { return fmt.Sprintf("%s = %s;", a.Name, a.Value) }
func (w *WhileLoop) String() string  { return fmt.Sprintf("while %s %s", w.Cond, w.Body) }
func (f *ForLoop) String() string {
	return fmt.Sprintf("for %s in %s %s", f.Pattern, f.Iter, f.Body)
}
func (g *ConditionGroup) String() string {
	parts := make([]string, len(g.Branches))
	for i, b := range g.Branches {
		parts[i] = fmt.Sprintf("if %s %s", b.Cond, b.Body)
	}
	s := strings.Join(parts, " else ")
	if g.Default != nil {
		s += " else " + g.Default.String()
	}
	return s
}
func (e *ExprStmt) String() string { return e.Expr.String() + ";" }

//  Type definitions

// TypeDef is the written form of a type, before resolution.
type TypeDef interface {
	typeDefNode()
	String() string
}

// NamedType refers to a type by name, e.g. u8.
type NamedType struct {
	Name string
	Pos  Pos
}

// ArrayType is [Elem; Size]. A nil Size is the unspecified size "_".
type ArrayType struct {
	Elem TypeDef
	Size *int
	Pos  Pos
}

func (*NamedType) typeDefNode() {}
func (*ArrayType) typeDefNode() {}

func (t *NamedType) String() string { return t.Name }
func (t *ArrayType) String() string {
	if t.Size == nil {
		return fmt.Sprintf("[%s; _]", t.Elem)
	}
	return fmt.Sprintf("[%s; %d]", t.Elem, *t.Size)
}

// Program is the root of the AST. Statement order is execution order.
type Program struct {
	Stmts []Stmt
}

func (p *Program) String() string {
	lines := make([]string, len(p.Stmts))
	for i, s := range p.Stmts {
		lines[i] = s.String()
	}
	return strings.Join(lines, "\n")
}
