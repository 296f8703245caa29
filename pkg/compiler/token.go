package compiler

import "fmt"

// TokenType identifies the category of a lexed token.
type TokenType int

const (
	EOF TokenType = iota // sentinel: end of input

	// Literals
	IDENTIFIER // variable / type name
	NUMBER     // decimal integer literal, underscores allowed
	STRING     // string literal "..."
	COMMENT    // line or block comment
	ILLEGAL    // character that starts no token

	// Keywords
	LET      // "let"
	WHILE    // "while"
	FOR      // "for"
	IN       // "in"
	IF       // "if"
	ELSE     // "else"
	TRUE     // "true"
	FALSE    // "false"
	RESERVED // any other reserved word

	// Paired delimiters
	LBRACE   // {
	RBRACE   // }
	LPAREN   // (
	RPAREN   // )
	LBRACKET // [
	RBRACKET // ]

	// Punctuation
	DOT       // .
	RANGE     // ..
	SEMICOLON // ;
	COMMA     // ,
	COLON     // :
	ASSIGN    // =

	// Operators
	OR_LOGICAL  // ||
	AND_LOGICAL // &&
	EQUALS      // ==
	NOT_EQ      // !=
	GREATER_EQ  // >=
	LESS_EQ     // <=
	GREATER     // >
	LESS        // <
	CONCAT      // ++
	PLUS        // +
	MINUS       // -
	STAR        // *
	SLASH       // /
	PERCENT     // %
	POW         // **
	NOT         // !
)

var tokenNames = [...]string{
	EOF:         "EOF",
	IDENTIFIER:  "IDENTIFIER",
	NUMBER:      "NUMBER",
	STRING:      "STRING",
	COMMENT:     "COMMENT",
	ILLEGAL:     "ILLEGAL",
	LET:         "LET",
	WHILE:       "WHILE",
	FOR:         "FOR",
	IN:          "IN",
	IF:          "IF",
	ELSE:        "ELSE",
	TRUE:        "TRUE",
	FALSE:       "FALSE",
	RESERVED:    "RESERVED",
	LBRACE:      "LBRACE",
	RBRACE:      "RBRACE",
	LPAREN:      "LPAREN",
	RPAREN:      "RPAREN",
	LBRACKET:    "LBRACKET",
	RBRACKET:    "RBRACKET",
	DOT:         "DOT",
	RANGE:       "RANGE",
	SEMICOLON:   "SEMICOLON",
	COMMA:       "COMMA",
	COLON:       "COLON",
	ASSIGN:      "ASSIGN",
	OR_LOGICAL:  "OR_LOGICAL",
	AND_LOGICAL: "AND_LOGICAL",
	EQUALS:      "EQUALS",
	NOT_EQ:      "NOT_EQ",
	GREATER_EQ:  "GREATER_EQ",
	LESS_EQ:     "LESS_EQ",
	GREATER:     "GREATER",
	LESS:        "LESS",
	CONCAT:      "CONCAT",
	PLUS:        "PLUS",
	MINUS:       "MINUS",
	STAR:        "STAR",
	SLASH:       "SLASH",
	PERCENT:     "PERCENT",
	POW:         "POW",
	NOT:         "NOT",
}

// tokenSymbols is how a token type is shown in the expected set of a
// ParseError: literal text for fixed tokens, a rule name otherwise.
var tokenSymbols = [...]string{
	EOF:         "end of input",
	IDENTIFIER:  "identifier",
	NUMBER:      "number",
	STRING:      "string literal",
	COMMENT:     "comment",
	ILLEGAL:     "illegal character",
	LET:         `"let"`,
	WHILE:       `"while"`,
	FOR:         `"for"`,
	IN:          `"in"`,
	IF:          `"if"`,
	ELSE:        `"else"`,
	TRUE:        `"true"`,
	FALSE:       `"false"`,
	RESERVED:    "reserved word",
	LBRACE:      `"{"`,
	RBRACE:      `"}"`,
	LPAREN:      `"("`,
	RPAREN:      `")"`,
	LBRACKET:    `"["`,
	RBRACKET:    `"]"`,
	DOT:         `"."`,
	RANGE:       `".."`,
	SEMICOLON:   `";"`,
	COMMA:       `","`,
	COLON:       `":"`,
	ASSIGN:      `"="`,
	OR_LOGICAL:  `"||"`,
	AND_LOGICAL: `"&&"`,
	EQUALS:      `"=="`,
	NOT_EQ:      `"!="`,
	GREATER_EQ:  `">="`,
	LESS_EQ:     `"<="`,
	GREATER:     `">"`,
	LESS:        `"<"`,
	CONCAT:      `"++"`,
	PLUS:        `"+"`,
	MINUS:       `"-"`,
	STAR:        `"*"`,
	SLASH:       `"/"`,
	PERCENT:     `"%"`,
	POW:         `"**"`,
	NOT:         `"!"`,
}

func (tt TokenType) String() string {
	if int(tt) >= 0 && int(tt) < len(tokenNames) {
		return tokenNames[tt]
	}
	return fmt.Sprintf("TokenType(%d)", int(tt))
}

// Symbol returns the name used for tt in parse diagnostics.
func (tt TokenType) Symbol() string {
	if int(tt) >= 0 && int(tt) < len(tokenSymbols) {
		return tokenSymbols[tt]
	}
	return tt.String()
}

// Pos is a location in source text. Offset is a byte offset; Line and
// Column are 1-based, Column counting runes.
type Pos struct {
	Offset int
	Line   int
	Column int
}

func (p Pos) String() string {
	return fmt.Sprintf("line %d, column %d", p.Line, p.Column)
}

// Token is a single lexical unit produced by the Lexer.
type Token struct {
	Type   TokenType
	Lexeme string // source text; the decoded value for STRING
	Pos    Pos
	End    int // byte offset just past the token
}

func (t Token) String() string {
	return fmt.Sprintf("%-11s %-14q  %d:%d", t.Type, t.Lexeme, t.Pos.Line, t.Pos.Column)
}
