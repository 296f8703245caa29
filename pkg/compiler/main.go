// Package compiler turns source text of a small typed imperative language
// into program text for a one-tape machine with the alphabet + - < > [ ] . ,
//
// Pipeline: source → Lex → Parse → Generate → []Operation → Serialize → text
package compiler
