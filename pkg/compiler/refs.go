package compiler

// readsName reports whether evaluating e may read the variable name.
// Inner declarations that shadow name still count, which only costs a
// scratch copy.
func readsName(e Expr, name string) bool {
	refs := make(map[string]bool)
	findRefsExpr(e, refs)
	return refs[name]
}

// findRefsExpr recursively extracts identifier references from an expression.
func findRefsExpr(e Expr, refs map[string]bool) {
	if e == nil {
		return
	}
	switch n := e.(type) {
	case *Identifier:
		refs[n.Name] = true
	case *BinaryExpr:
		findRefsExpr(n.Left, refs)
		findRefsExpr(n.Right, refs)
	case *NotExpr:
		findRefsExpr(n.Operand, refs)
	case *Group:
		findRefsExpr(n.Inner, refs)
	case *BlockExpr:
		findRefsBlock(n.Block, refs)
	case *IfExpr:
		findRefsStmt(n.Group, refs)
	case *CallExpr:
		for _, arg := range n.Args {
			findRefsExpr(arg, refs)
		}
	case *CallChain:
		refs[n.Receiver] = true
		for _, prop := range n.Props {
			for _, arg := range prop.Args {
				findRefsExpr(arg, refs)
			}
		}
	case *StringLiteral, *NumberLiteral, *BoolLiteral, *RangeExpr:
		// No references here
	}
}

func findRefsBlock(b *Block, refs map[string]bool) {
	if b == nil {
		return
	}
	for _, child := range b.Stmts {
		findRefsStmt(child, refs)
	}
	findRefsExpr(b.Result, refs)
}

// findRefsStmt recursively extracts identifier references from a statement.
func findRefsStmt(s Stmt, refs map[string]bool) {
	if s == nil {
		return
	}
	switch n := s.(type) {
	case *Declaration:
		findRefsExpr(n.Init, refs)
	case *Assignment:
		refs[n.Name] = true
		findRefsExpr(n.Value, refs)
	case *WhileLoop:
		findRefsExpr(n.Cond, refs)
		findRefsBlock(n.Body, refs)
	case *ForLoop:
		findRefsExpr(n.Iter, refs)
		findRefsBlock(n.Body, refs)
	case *ConditionGroup:
		for _, br := range n.Branches {
			findRefsExpr(br.Cond, refs)
			findRefsBlock(br.Body, refs)
		}
		findRefsBlock(n.Default, refs)
	case *ExprStmt:
		findRefsExpr(n.Expr, refs)
	case *Comment:
		// No references in comments
	}
}
