package compiler

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// keywords maps source text to its keyword TokenType.
var keywords = map[string]TokenType{
	"let":   LET,
	"while": WHILE,
	"for":   FOR,
	"in":    IN,
	"if":    IF,
	"else":  ELSE,
	"true":  TRUE,
	"false": FALSE,
}

// reservedWords can never be identifiers even though the grammar has no
// use for them yet.
var reservedWords = map[string]bool{
	"abstract": true, "as": true, "become": true, "break": true, "byte": true,
	"class": true, "clear": true, "const": true, "continue": true, "do": true,
	"enum": true, "eval": true, "export": true, "extern": true, "final": true,
	"fn": true, "impl": true, "import": true, "loop": true, "match": true,
	"mod": true, "move": true, "mut": true, "of": true, "out": true,
	"pub": true, "raw": true, "ref": true, "return": true, "self": true,
	"static": true, "struct": true, "super": true, "trait": true,
	"typeof": true, "type": true, "unsafe": true, "use": true, "where": true,
	"yield": true,
}

// escapes maps the character after a backslash inside a string literal to
// the byte it stands for.
var escapes = map[byte]byte{
	'\\': '\\',
	'"':  '"',
	'\'': '\'',
	'n':  '\n',
	'r':  '\r',
	't':  '\t',
	'0':  0,
	'f':  '\f',
	'v':  '\v',
	'e':  0x1b,
}

// Lexer holds all mutable state for a single scanning pass over src.
type Lexer struct {
	src  string
	pos  int // byte offset of the next rune to consume
	line int // current 1-based source line
	col  int // current 1-based column, in runes
}

func newLexer(src string) *Lexer {
	return &Lexer{src: src, line: 1, col: 1}
}

func (l *Lexer) here() Pos {
	return Pos{Offset: l.pos, Line: l.line, Column: l.col}
}

// peek returns the byte at the current position without advancing.
func (l *Lexer) peek() byte {
	if l.pos >= len(l.src) {
		return 0
	}
	return l.src[l.pos]
}

// peek2 returns the byte one position ahead of the current position.
func (l *Lexer) peek2() byte {
	if l.pos+1 >= len(l.src) {
		return 0
	}
	return l.src[l.pos+1]
}

// advance consumes one rune and returns it.
func (l *Lexer) advance() rune {
	if l.pos >= len(l.src) {
		return 0
	}
	r, size := utf8.DecodeRuneInString(l.src[l.pos:])
	l.pos += size
	if r == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return r
}

func (l *Lexer) atEnd() bool {
	return l.pos >= len(l.src)
}

func (l *Lexer) skipWhitespace() {
	for !l.atEnd() {
		switch l.peek() {
		case ' ', '\t', '\f', '\r', '\n':
			l.advance()
		default:
			return
		}
	}
}

// scanLineComment collects "//" up to, but not including, the line break.
func (l *Lexer) scanLineComment() Token {
	start := l.here()
	for !l.atEnd() && l.peek() != '\n' && l.peek() != '\r' {
		l.advance()
	}
	return Token{Type: COMMENT, Lexeme: l.src[start.Offset:l.pos], Pos: start, End: l.pos}
}

// scanBlockComment collects a possibly nested "/* ... */" comment.
func (l *Lexer) scanBlockComment() (Token, error) {
	start := l.here()
	depth := 0
	for !l.atEnd() {
		switch {
		case l.peek() == '/' && l.peek2() == '*':
			l.advance()
			l.advance()
			depth++
		case l.peek() == '*' && l.peek2() == '/':
			l.advance()
			l.advance()
			depth--
			if depth == 0 {
				return Token{Type: COMMENT, Lexeme: l.src[start.Offset:l.pos], Pos: start, End: l.pos}, nil
			}
		default:
			l.advance()
		}
	}
	return Token{}, &ParseError{
		Pos:      l.here(),
		Msg:      fmt.Sprintf("unterminated block comment (opened on line %d)", start.Line),
		Expected: []string{`"*/"`},
		Found:    EOF.Symbol(),
	}
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// scanIdent collects a full identifier or keyword token.
func (l *Lexer) scanIdent() Token {
	start := l.here()
	for !l.atEnd() {
		c := l.peek()
		if !isLetter(c) && !isDigit(c) && c != '_' {
			break
		}
		l.advance()
	}
	lexeme := l.src[start.Offset:l.pos]
	tt := IDENTIFIER
	if kw, ok := keywords[lexeme]; ok {
		tt = kw
	} else if reservedWords[lexeme] {
		tt = RESERVED
	}
	return Token{Type: tt, Lexeme: lexeme, Pos: start, End: l.pos}
}

// scanNumber collects "0" or a nonzero digit followed by digits and
// underscores. A sign is handled by the parser.
func (l *Lexer) scanNumber() Token {
	start := l.here()
	if l.peek() == '0' {
		l.advance()
	} else {
		for !l.atEnd() && (isDigit(l.peek()) || l.peek() == '_') {
			l.advance()
		}
	}
	return Token{Type: NUMBER, Lexeme: l.src[start.Offset:l.pos], Pos: start, End: l.pos}
}

// scanString collects a string literal. A backslash that does not start a
// known escape is kept as an ordinary character.
func (l *Lexer) scanString() (Token, error) {
	start := l.here()
	l.advance() // consume opening "
	var val strings.Builder

	for !l.atEnd() {
		c := l.peek()
		if c == '"' {
			l.advance()
			return Token{Type: STRING, Lexeme: val.String(), Pos: start, End: l.pos}, nil
		}
		if c == '\\' {
			if b, ok := escapes[l.peek2()]; ok {
				l.advance()
				l.advance()
				val.WriteByte(b)
				continue
			}
		}
		from := l.pos
		l.advance()
		val.WriteString(l.src[from:l.pos])
	}

	return Token{}, &ParseError{
		Pos:      l.here(),
		Msg:      fmt.Sprintf("unterminated string literal (opened on line %d)", start.Line),
		Expected: []string{`"\""`},
		Found:    EOF.Symbol(),
	}
}

// nextToken skips whitespace and returns the next Token.
func (l *Lexer) nextToken() (Token, error) {
	l.skipWhitespace()
	if l.atEnd() {
		return Token{Type: EOF, Pos: l.here(), End: l.pos}, nil
	}

	ch := l.peek()
	if ch == '/' && l.peek2() == '/' {
		return l.scanLineComment(), nil
	}
	if ch == '/' && l.peek2() == '*' {
		return l.scanBlockComment()
	}
	if isLetter(ch) || ch == '_' {
		return l.scanIdent(), nil
	}
	if isDigit(ch) {
		return l.scanNumber(), nil
	}
	if ch == '"' {
		return l.scanString()
	}

	start := l.here()
	tok := func(tt TokenType) (Token, error) {
		return Token{Type: tt, Lexeme: l.src[start.Offset:l.pos], Pos: start, End: l.pos}, nil
	}
	// pair consumes next if it follows and returns long, otherwise short.
	pair := func(next byte, long, short TokenType) (Token, error) {
		if l.peek() == next {
			l.advance()
			return tok(long)
		}
		return tok(short)
	}

	r := l.advance()
	switch r {
	case '{':
		return tok(LBRACE)
	case '}':
		return tok(RBRACE)
	case '(':
		return tok(LPAREN)
	case ')':
		return tok(RPAREN)
	case '[':
		return tok(LBRACKET)
	case ']':
		return tok(RBRACKET)
	case ';':
		return tok(SEMICOLON)
	case ',':
		return tok(COMMA)
	case ':':
		return tok(COLON)
	case '.':
		return pair('.', RANGE, DOT)
	case '=':
		return pair('=', EQUALS, ASSIGN)
	case '!':
		return pair('=', NOT_EQ, NOT)
	case '>':
		return pair('=', GREATER_EQ, GREATER)
	case '<':
		return pair('=', LESS_EQ, LESS)
	case '+':
		return pair('+', CONCAT, PLUS)
	case '*':
		return pair('*', POW, STAR)
	case '-':
		return tok(MINUS)
	case '/':
		return tok(SLASH)
	case '%':
		return tok(PERCENT)
	case '|':
		if l.peek() == '|' {
			l.advance()
			return tok(OR_LOGICAL)
		}
	case '&':
		if l.peek() == '&' {
			l.advance()
			return tok(AND_LOGICAL)
		}
	}
	return tok(ILLEGAL)
}

// Lex tokenises src and returns all tokens, comments included, ending with
// the EOF token. Characters that start no token come back as ILLEGAL tokens
// for the parser to reject; only an unterminated literal stops Lex with a
// *ParseError.
func Lex(src string) ([]Token, error) {
	l := newLexer(src)
	var tokens []Token
	for {
		tok, err := l.nextToken()
		if err != nil {
			return tokens, err
		}
		tokens = append(tokens, tok)
		if tok.Type == EOF {
			return tokens, nil
		}
	}
}
