package compiler

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Parser consumes the flat token slice produced by the Lexer and builds an AST.
//
// Grammar (ordered choice, first match wins):
//
//	program     = statement* EOF
//	statement   = declaration | assignment | while | for | conditional | expr ";" | COMMENT
//	declaration = "let" pattern ":" type ("=" expr)? ";"
//	assignment  = IDENTIFIER "=" expr ";"
//	while       = "while" expr block
//	for         = "for" pattern "in" expr block
//	conditional = "if" expr block ("else" (conditional | block))?
//	block       = "{" statement* expr? "}"
//	pattern     = IDENTIFIER
//	type        = IDENTIFIER | "[" type ";" (NUMBER | "_") "]"
//	expr        = binary expression over the precedence table below
//	primary     = block | "(" expr ")" | "true" | "false" | call | chain
//	            | conditional | "!" expr | STRING | range | number
//	call        = IDENTIFIER "(" (expr ",")* expr? ")"
//	chain       = IDENTIFIER ("." IDENTIFIER args?)*
//	range       = number ("," number)? ".." number
//	number      = ("+" | "-")? NUMBER      (sign written adjacent to the digits)
//
// When a rule fails the parser reports the furthest token it reached and
// every symbol it tried there.
type Parser struct {
	tokens []Token
	pos    int
	src    string

	failAt   int
	expected map[string]bool
}

// precLevel is one row of the binary operator table.
type precLevel struct {
	ops        []TokenType
	rightAssoc bool
	single     bool // at most one operator at this level: no chaining
}

// precedence lists binary operators from lowest to highest binding.
var precedence = []precLevel{
	{ops: []TokenType{OR_LOGICAL}, rightAssoc: true},
	{ops: []TokenType{AND_LOGICAL}, rightAssoc: true},
	{ops: []TokenType{EQUALS, NOT_EQ, GREATER_EQ, LESS_EQ, GREATER, LESS}, single: true},
	{ops: []TokenType{CONCAT}, rightAssoc: true},
	{ops: []TokenType{PLUS, MINUS}},
	{ops: []TokenType{STAR, SLASH, PERCENT}},
	{ops: []TokenType{POW}},
}

func NewParser(tokens []Token, rawSource string) *Parser {
	return &Parser{tokens: tokens, src: rawSource, failAt: -1, expected: make(map[string]bool)}
}

// peek returns the current token without consuming it.
func (p *Parser) peek() Token {
	return p.peekAt(0)
}

// peekAt returns the token at the given offset from the current position.
func (p *Parser) peekAt(offset int) Token {
	if p.pos+offset >= len(p.tokens) {
		if len(p.tokens) == 0 {
			return Token{Type: EOF}
		}
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[p.pos+offset]
}

// advance consumes and returns the current token.
func (p *Parser) advance() Token {
	tok := p.peek()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return tok
}

// record notes that sym was attempted at the current position.
func (p *Parser) record(sym string) {
	if p.pos > p.failAt {
		p.failAt = p.pos
		clear(p.expected)
	}
	if p.pos == p.failAt {
		p.expected[sym] = true
	}
}

// check reports whether the current token is tt, recording tt as expected
// when it is not.
func (p *Parser) check(tt TokenType) bool {
	if p.peek().Type == tt {
		return true
	}
	p.record(tt.Symbol())
	return false
}

// accept consumes the current token if it is tt.
func (p *Parser) accept(tt TokenType) bool {
	if p.check(tt) {
		p.advance()
		return true
	}
	return false
}

// expect consumes the current token if it matches tt, otherwise returns a
// *ParseError.
func (p *Parser) expect(tt TokenType) (Token, error) {
	if !p.check(tt) {
		return p.peek(), p.fail()
	}
	return p.advance(), nil
}

// fail builds a *ParseError for the furthest position reached.
func (p *Parser) fail() error {
	at := p.pos
	if p.failAt > at {
		at = p.failAt
	}
	saved := p.pos
	p.pos = at
	tok := p.peek()
	p.pos = saved

	var expected []string
	if at == p.failAt {
		for sym := range p.expected {
			expected = append(expected, sym)
		}
		sort.Strings(expected)
	}
	perr := &ParseError{Pos: tok.Pos, Expected: expected, Found: p.describe(tok)}
	if tok.Type == ILLEGAL {
		perr.Msg = "illegal character"
	}
	return perr
}

func (p *Parser) describe(tok Token) string {
	switch tok.Type {
	case EOF:
		return EOF.Symbol()
	case COMMENT:
		return COMMENT.Symbol()
	}
	if tok.End <= len(p.src) && tok.Pos.Offset < tok.End {
		return strconv.Quote(p.src[tok.Pos.Offset:tok.End])
	}
	return strconv.Quote(tok.Lexeme)
}

// parseProgram parses statements until EOF.
func (p *Parser) parseProgram() (*Program, error) {
	prog := &Program{}
	for !p.check(EOF) {
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		prog.Stmts = append(prog.Stmts, stmt)
	}
	return prog, nil
}

// parseStatement parses one statement that must be terminated on its own.
func (p *Parser) parseStatement() (Stmt, error) {
	if stmt, ok, err := p.parseKeywordStatement(); ok || err != nil {
		return stmt, err
	}
	expr, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(SEMICOLON); err != nil {
		return nil, err
	}
	return &ExprStmt{Expr: expr}, nil
}

// parseKeywordStatement handles every statement form except the
// expression statement. ok is false when none of them starts here.
func (p *Parser) parseKeywordStatement() (stmt Stmt, ok bool, err error) {
	switch {
	case p.check(COMMENT):
		tok := p.advance()
		return &Comment{Text: tok.Lexeme}, true, nil
	case p.check(LET):
		stmt, err = p.parseDeclaration()
	case p.peek().Type == IDENTIFIER && p.peekAt(1).Type == ASSIGN:
		stmt, err = p.parseAssignment()
	case p.check(WHILE):
		stmt, err = p.parseWhile()
	case p.check(FOR):
		stmt, err = p.parseFor()
	case p.check(IF):
		stmt, err = p.parseConditional()
	default:
		return nil, false, nil
	}
	return stmt, true, err
}

// parseDeclaration parses  let pattern : type (= expr)? ;
func (p *Parser) parseDeclaration() (Stmt, error) {
	letTok, err := p.expect(LET)
	if err != nil {
		return nil, err
	}
	pattern, err := p.parsePattern()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(COLON); err != nil {
		return nil, err
	}
	typeDef, err := p.parseType()
	if err != nil {
		return nil, err
	}
	decl := &Declaration{Pattern: pattern, Type: typeDef, Pos: letTok.Pos}
	if p.accept(ASSIGN) {
		if decl.Init, err = p.parseExpression(); err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(SEMICOLON); err != nil {
		return nil, err
	}
	return decl, nil
}

func (p *Parser) parsePattern() (Pattern, error) {
	tok, err := p.expect(IDENTIFIER)
	if err != nil {
		return nil, err
	}
	return &IdentPattern{Name: tok.Lexeme, Pos: tok.Pos}, nil
}

// parseType parses a type name or [type; size].
func (p *Parser) parseType() (TypeDef, error) {
	if p.check(IDENTIFIER) {
		tok := p.advance()
		return &NamedType{Name: tok.Lexeme, Pos: tok.Pos}, nil
	}
	open, err := p.expect(LBRACKET)
	if err != nil {
		return nil, err
	}
	elem, err := p.parseType()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(SEMICOLON); err != nil {
		return nil, err
	}
	arr := &ArrayType{Elem: elem, Pos: open.Pos}
	switch {
	case p.peek().Type == IDENTIFIER && p.peek().Lexeme == "_":
		p.advance()
	case p.numberLen(0) > 0:
		n, _, err := p.parseNumber()
		if err != nil {
			return nil, err
		}
		size := int(n)
		arr.Size = &size
	default:
		p.record(`"_"`)
		p.record(NUMBER.Symbol())
		return nil, p.fail()
	}
	if _, err := p.expect(RBRACKET); err != nil {
		return nil, err
	}
	return arr, nil
}

// parseAssignment parses  name = expr ;
func (p *Parser) parseAssignment() (Stmt, error) {
	nameTok, err := p.expect(IDENTIFIER)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(ASSIGN); err != nil {
		return nil, err
	}
	val, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(SEMICOLON); err != nil {
		return nil, err
	}
	return &Assignment{Name: nameTok.Lexeme, Value: val, Pos: nameTok.Pos}, nil
}

// parseWhile parses  while expr block
func (p *Parser) parseWhile() (Stmt, error) {
	tok, err := p.expect(WHILE)
	if err != nil {
		return nil, err
	}
	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &WhileLoop{Cond: cond, Body: body, Pos: tok.Pos}, nil
}

// parseFor parses  for pattern in expr block
func (p *Parser) parseFor() (Stmt, error) {
	tok, err := p.expect(FOR)
	if err != nil {
		return nil, err
	}
	pattern, err := p.parsePattern()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(IN); err != nil {
		return nil, err
	}
	iter, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ForLoop{Pattern: pattern, Iter: iter, Body: body, Pos: tok.Pos}, nil
}

// parseConditional parses an if / else if / else chain into one
// ConditionGroup.
func (p *Parser) parseConditional() (*ConditionGroup, error) {
	tok, err := p.expect(IF)
	if err != nil {
		return nil, err
	}
	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	group := &ConditionGroup{Branches: []Branch{{Cond: cond, Body: body}}, Pos: tok.Pos}
	if !p.accept(ELSE) {
		return group, nil
	}
	if p.check(IF) {
		rest, err := p.parseConditional()
		if err != nil {
			return nil, err
		}
		group.Branches = append(group.Branches, rest.Branches...)
		group.Default = rest.Default
		return group, nil
	}
	if group.Default, err = p.parseBlock(); err != nil {
		return nil, err
	}
	return group, nil
}

// parseBlock parses { statement* expr? }
func (p *Parser) parseBlock() (*Block, error) {
	if _, err := p.expect(LBRACE); err != nil {
		return nil, err
	}
	block := &Block{}
	for !p.check(RBRACE) {
		stmt, ok, err := p.parseKeywordStatement()
		if err != nil {
			return nil, err
		}
		if ok {
			block.Stmts = append(block.Stmts, stmt)
			continue
		}
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if p.accept(SEMICOLON) {
			block.Stmts = append(block.Stmts, &ExprStmt{Expr: expr})
			continue
		}
		if !p.check(RBRACE) {
			return nil, p.fail()
		}
		block.Result = expr
		break
	}
	if _, err := p.expect(RBRACE); err != nil {
		return nil, err
	}
	return block, nil
}

// parseExpression is the entry point for expression parsing.
func (p *Parser) parseExpression() (Expr, error) {
	return p.parseBinary(0)
}

// parseBinary parses the operators of precedence[level] and everything
// that binds tighter.
func (p *Parser) parseBinary(level int) (Expr, error) {
	if level == len(precedence) {
		return p.parsePrimary()
	}
	row := precedence[level]
	left, err := p.parseBinary(level + 1)
	if err != nil {
		return nil, err
	}
	for {
		op, ok := p.matchOperator(row.ops)
		if !ok {
			return left, nil
		}
		opTok := p.advance()
		next := level + 1
		if row.rightAssoc {
			next = level
		}
		right, err := p.parseBinary(next)
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: op, Left: left, Right: right, Pos: opTok.Pos}
		if row.rightAssoc || row.single {
			return left, nil
		}
	}
}

func (p *Parser) matchOperator(ops []TokenType) (TokenType, bool) {
	for _, op := range ops {
		if p.check(op) {
			return op, true
		}
	}
	return EOF, false
}

// parsePrimary handles every operand form, tried in grammar order.
func (p *Parser) parsePrimary() (Expr, error) {
	tok := p.peek()
	switch {
	case p.check(LBRACE):
		block, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		return &BlockExpr{Block: block, Pos: tok.Pos}, nil

	case p.check(LPAREN):
		p.advance()
		inner, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(RPAREN); err != nil {
			return nil, err
		}
		return &Group{Inner: inner, Pos: tok.Pos}, nil

	case p.check(TRUE), p.check(FALSE):
		p.advance()
		return &BoolLiteral{Value: tok.Type == TRUE, Pos: tok.Pos}, nil

	case p.check(IDENTIFIER):
		return p.parseCallOrChain()

	case p.check(IF):
		group, err := p.parseConditional()
		if err != nil {
			return nil, err
		}
		return &IfExpr{Group: group}, nil

	case p.check(NOT):
		p.advance()
		operand, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		return &NotExpr{Operand: operand, Pos: tok.Pos}, nil

	case p.check(STRING):
		p.advance()
		return &StringLiteral{Value: tok.Lexeme, Pos: tok.Pos}, nil

	case p.numberLen(0) > 0:
		return p.parseRangeOrNumber()
	}
	p.record(NUMBER.Symbol())
	return nil, p.fail()
}

// parseCallOrChain parses name(args), or name followed by property gets.
// A chain without properties is a plain identifier.
func (p *Parser) parseCallOrChain() (Expr, error) {
	nameTok := p.advance()
	if p.check(LPAREN) {
		args, err := p.parseArgs()
		if err != nil {
			return nil, err
		}
		return &CallExpr{Name: nameTok.Lexeme, Args: args, Pos: nameTok.Pos}, nil
	}
	var props []PropGet
	for p.check(DOT) {
		p.advance()
		propTok, err := p.expect(IDENTIFIER)
		if err != nil {
			return nil, err
		}
		prop := PropGet{Name: propTok.Lexeme, Pos: propTok.Pos}
		if p.check(LPAREN) {
			if prop.Args, err = p.parseArgs(); err != nil {
				return nil, err
			}
			prop.Call = true
		}
		props = append(props, prop)
	}
	if len(props) == 0 {
		return &Identifier{Name: nameTok.Lexeme, Pos: nameTok.Pos}, nil
	}
	return &CallChain{Receiver: nameTok.Lexeme, Props: props, Pos: nameTok.Pos}, nil
}

// parseArgs parses ( (expr ,)* expr? )
func (p *Parser) parseArgs() ([]Expr, error) {
	if _, err := p.expect(LPAREN); err != nil {
		return nil, err
	}
	args := []Expr{}
	for !p.check(RPAREN) {
		arg, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		if !p.accept(COMMA) {
			break
		}
	}
	if _, err := p.expect(RPAREN); err != nil {
		return nil, err
	}
	return args, nil
}

// numberLen returns how many tokens a number starting offset tokens ahead
// occupies, or 0 if no number starts there.
func (p *Parser) numberLen(offset int) int {
	tok := p.peekAt(offset)
	if tok.Type == NUMBER {
		return 1
	}
	if tok.Type == PLUS || tok.Type == MINUS {
		next := p.peekAt(offset + 1)
		if next.Type == NUMBER && next.Pos.Offset == tok.End {
			return 2
		}
	}
	return 0
}

// parseNumber consumes an optionally signed integer.
func (p *Parser) parseNumber() (int64, Pos, error) {
	start := p.peek()
	if p.numberLen(0) == 0 {
		p.record(NUMBER.Symbol())
		return 0, start.Pos, p.fail()
	}
	sign := ""
	if start.Type != NUMBER {
		sign = p.advance().Lexeme
	}
	digits := p.advance()
	text := sign + strings.ReplaceAll(digits.Lexeme, "_", "")
	n, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return 0, start.Pos, &ParseError{
			Pos:   start.Pos,
			Msg:   fmt.Sprintf("number %s out of range", text),
			Found: p.describe(digits),
		}
	}
	return n, start.Pos, nil
}

// parseRangeOrNumber parses number (, number)? .. number, falling back to a
// single number literal.
func (p *Parser) parseRangeOrNumber() (Expr, error) {
	start, pos, err := p.parseNumber()
	if err != nil {
		return nil, err
	}
	var step *int64
	if p.peek().Type == COMMA {
		if n := p.numberLen(1); n > 0 && p.peekAt(1+n).Type == RANGE {
			p.advance()
			s, _, err := p.parseNumber()
			if err != nil {
				return nil, err
			}
			step = &s
		}
	}
	if step == nil && !p.check(RANGE) {
		return &NumberLiteral{Value: start, Pos: pos}, nil
	}
	if _, err := p.expect(RANGE); err != nil {
		return nil, err
	}
	end, _, err := p.parseNumber()
	if err != nil {
		return nil, err
	}
	return &RangeExpr{Start: start, Step: step, End: end, Pos: pos}, nil
}

// Parse builds a Program from the tokens produced by Lex.
func Parse(tokens []Token, src string) (*Program, error) {
	return NewParser(tokens, src).parseProgram()
}

// ParseSource lexes and parses src.
func ParseSource(src string) (*Program, error) {
	tokens, err := Lex(src)
	if err != nil {
		return nil, err
	}
	return Parse(tokens, src)
}
