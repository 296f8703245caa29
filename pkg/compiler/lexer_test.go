package compiler

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
)

// lexed is the part of a Token the table tests care about.
type lexed struct {
	Type   TokenType
	Lexeme string
}

func lexTypes(t *testing.T, src string) []lexed {
	t.Helper()
	tokens, err := Lex(src)
	if err != nil {
		t.Fatalf("Lex(%q): %v", src, err)
	}
	out := make([]lexed, len(tokens))
	for i, tok := range tokens {
		out[i] = lexed{tok.Type, tok.Lexeme}
	}
	return out
}

func TestLex(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []lexed
	}{
		{
			name:     "Empty",
			input:    "",
			expected: []lexed{{EOF, ""}},
		},
		{
			name:  "Declaration",
			input: "let x: u8 = 5;",
			expected: []lexed{
				{LET, "let"}, {IDENTIFIER, "x"}, {COLON, ":"}, {IDENTIFIER, "u8"},
				{ASSIGN, "="}, {NUMBER, "5"}, {SEMICOLON, ";"}, {EOF, ""},
			},
		},
		{
			name:  "Operators",
			input: "== != >= <= > < ++ + - * / % ** ! .. . || &&",
			expected: []lexed{
				{EQUALS, "=="}, {NOT_EQ, "!="}, {GREATER_EQ, ">="}, {LESS_EQ, "<="},
				{GREATER, ">"}, {LESS, "<"}, {CONCAT, "++"}, {PLUS, "+"}, {MINUS, "-"},
				{STAR, "*"}, {SLASH, "/"}, {PERCENT, "%"}, {POW, "**"}, {NOT, "!"},
				{RANGE, ".."}, {DOT, "."}, {OR_LOGICAL, "||"}, {AND_LOGICAL, "&&"},
				{EOF, ""},
			},
		},
		{
			name:  "Delimiters",
			input: "{}()[];,:",
			expected: []lexed{
				{LBRACE, "{"}, {RBRACE, "}"}, {LPAREN, "("}, {RPAREN, ")"},
				{LBRACKET, "["}, {RBRACKET, "]"}, {SEMICOLON, ";"}, {COMMA, ","},
				{COLON, ":"}, {EOF, ""},
			},
		},
		{
			name:  "Keywords And Reserved Words",
			input: "while for in if else true false fn letter fnord _x",
			expected: []lexed{
				{WHILE, "while"}, {FOR, "for"}, {IN, "in"}, {IF, "if"}, {ELSE, "else"},
				{TRUE, "true"}, {FALSE, "false"}, {RESERVED, "fn"},
				{IDENTIFIER, "letter"}, {IDENTIFIER, "fnord"}, {IDENTIFIER, "_x"},
				{EOF, ""},
			},
		},
		{
			name:  "Comments",
			input: "// line\n/* outer /* inner */ still */x",
			expected: []lexed{
				{COMMENT, "// line"},
				{COMMENT, "/* outer /* inner */ still */"},
				{IDENTIFIER, "x"},
				{EOF, ""},
			},
		},
		{
			name:  "Numbers",
			input: "0 1_000 42 01",
			expected: []lexed{
				{NUMBER, "0"}, {NUMBER, "1_000"}, {NUMBER, "42"},
				{NUMBER, "0"}, {NUMBER, "1"}, {EOF, ""},
			},
		},
		{
			name:  "String Escapes",
			input: `"a\n\t\e\0\"\q"`,
			expected: []lexed{
				{STRING, "a\n\t\x1b\x00\"\\q"}, {EOF, ""},
			},
		},
		{
			name:  "Invalid UTF-8 In String",
			input: "\"a\xffb\"",
			expected: []lexed{
				{STRING, "a\xffb"}, {EOF, ""},
			},
		},
		{
			name:  "Illegal Characters",
			input: "let @ a & b | é",
			expected: []lexed{
				{LET, "let"}, {ILLEGAL, "@"}, {IDENTIFIER, "a"}, {ILLEGAL, "&"},
				{IDENTIFIER, "b"}, {ILLEGAL, "|"}, {ILLEGAL, "é"}, {EOF, ""},
			},
		},
		{
			name:  "Multiline String",
			input: "\"a\nb\"",
			expected: []lexed{
				{STRING, "a\nb"}, {EOF, ""},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := lexTypes(t, tt.input)
			if diff := cmp.Diff(tt.expected, got); diff != "" {
				t.Errorf("Lex() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLexPositions(t *testing.T) {
	tokens, err := Lex("let\n  x = \"é\" y")
	if err != nil {
		t.Fatalf("Lex: %v", err)
	}
	want := []Pos{
		{Offset: 0, Line: 1, Column: 1},   // let
		{Offset: 6, Line: 2, Column: 3},   // x
		{Offset: 8, Line: 2, Column: 5},   // =
		{Offset: 10, Line: 2, Column: 7},  // "é"
		{Offset: 15, Line: 2, Column: 11}, // y
	}
	for i, w := range want {
		if tokens[i].Pos != w {
			t.Errorf("token %d (%q) at %+v; want %+v", i, tokens[i].Lexeme, tokens[i].Pos, w)
		}
	}
}

func TestLexErrors(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
		line     int
	}{
		{"Unterminated Block Comment", "/* /* */", []string{`"*/"`}, 1},
		{"Unterminated String", "\n\"abc", []string{`"\""`}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Lex(tt.input)
			var pe *ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("Lex(%q) error = %v; want *ParseError", tt.input, err)
			}
			if diff := cmp.Diff(tt.expected, pe.Expected); diff != "" {
				t.Errorf("Expected mismatch (-want +got):\n%s", diff)
			}
			if pe.Pos.Line != tt.line {
				t.Errorf("line = %d; want %d", pe.Pos.Line, tt.line)
			}
		})
	}
}
