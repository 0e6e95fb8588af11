// Package frontend - Lexer for the var language
// Design: Hand-written scanner, one token of lookahead, no backtracking
package frontend

import (
	"fmt"
)

type TokenType int

const (
	EOF TokenType = iota
	ILLEGAL
	NEWLINE

	// Literals
	INT
	NAME

	// Operators
	PLUS
	MINUS
	STAR
	ASSIGN // =

	// Delimiters
	LPAREN
	RPAREN
	COMMA
	SEMICOLON
)

var tokenNames = [...]string{
	EOF:       "end of file",
	ILLEGAL:   "illegal token",
	NEWLINE:   "newline",
	INT:       "integer",
	NAME:      "name",
	PLUS:      "'+'",
	MINUS:     "'-'",
	STAR:      "'*'",
	ASSIGN:    "'='",
	LPAREN:    "'('",
	RPAREN:    "')'",
	COMMA:     "','",
	SEMICOLON: "';'",
}

func (t TokenType) String() string {
	if int(t) < len(tokenNames) {
		return tokenNames[t]
	}
	return fmt.Sprintf("TokenType(%d)", int(t))
}

type Token struct {
	Type   TokenType
	Lexeme string
	Line   int
	Col    int
}

func (t Token) Pos() Pos {
	return Pos{Line: t.Line, Col: t.Col}
}

func (t Token) String() string {
	switch t.Type {
	case INT, NAME, ILLEGAL:
		return fmt.Sprintf("%s %q", t.Type, t.Lexeme)
	default:
		return t.Type.String()
	}
}

type Lexer struct {
	source []rune
	pos    int
	line   int
	col    int
}

func NewLexer(source string) *Lexer {
	return &Lexer{
		source: []rune(source),
		line:   1,
		col:    1,
	}
}

// Next returns the next token. After the end of input it keeps returning EOF.
func (l *Lexer) Next() Token {
	l.skipWhitespace()

	if l.isAtEnd() {
		return Token{Type: EOF, Line: l.line, Col: l.col}
	}

	line, col := l.line, l.col
	c := l.advance()

	switch c {
	case '\n':
		l.line++
		l.col = 1
		return Token{Type: NEWLINE, Lexeme: "\n", Line: line, Col: col}
	case '+':
		return Token{Type: PLUS, Lexeme: "+", Line: line, Col: col}
	case '-':
		return Token{Type: MINUS, Lexeme: "-", Line: line, Col: col}
	case '*':
		return Token{Type: STAR, Lexeme: "*", Line: line, Col: col}
	case '=':
		return Token{Type: ASSIGN, Lexeme: "=", Line: line, Col: col}
	case '(':
		return Token{Type: LPAREN, Lexeme: "(", Line: line, Col: col}
	case ')':
		return Token{Type: RPAREN, Lexeme: ")", Line: line, Col: col}
	case ',':
		return Token{Type: COMMA, Lexeme: ",", Line: line, Col: col}
	case ';':
		return Token{Type: SEMICOLON, Lexeme: ";", Line: line, Col: col}
	}

	if isDigit(c) {
		return l.scanWhile(INT, line, col, isDigit)
	}

	if isLetter(c) {
		return l.scanWhile(NAME, line, col, isIdentChar)
	}

	return Token{Type: ILLEGAL, Lexeme: string(c), Line: line, Col: col}
}

// scanWhile consumes the rest of a token whose first rune is already consumed.
func (l *Lexer) scanWhile(typ TokenType, line, col int, ok func(rune) bool) Token {
	start := l.pos - 1
	for !l.isAtEnd() && ok(l.peek()) {
		l.advance()
	}
	return Token{
		Type:   typ,
		Lexeme: string(l.source[start:l.pos]),
		Line:   line,
		Col:    col,
	}
}

func (l *Lexer) skipWhitespace() {
	for !l.isAtEnd() {
		c := l.peek()
		switch {
		case c == ' ' || c == '\t' || c == '\r':
			l.advance()
		case c == '\\' && l.peekNext() == '\n':
			// Explicit line continuation
			l.advance()
			l.advance()
			l.line++
			l.col = 1
		case c == '#':
			for !l.isAtEnd() && l.peek() != '\n' {
				l.advance()
			}
		default:
			return
		}
	}
}

func (l *Lexer) isAtEnd() bool {
	return l.pos >= len(l.source)
}

func (l *Lexer) peek() rune {
	if l.isAtEnd() {
		return '\x00'
	}
	return l.source[l.pos]
}

func (l *Lexer) peekNext() rune {
	if l.pos+1 >= len(l.source) {
		return '\x00'
	}
	return l.source[l.pos+1]
}

func (l *Lexer) advance() rune {
	c := l.source[l.pos]
	l.pos++
	l.col++
	return c
}

func isDigit(c rune) bool {
	return c >= '0' && c <= '9'
}

// Identifiers are ASCII only: they become WebAssembly text identifiers.
func isLetter(c rune) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_'
}

func isIdentChar(c rune) bool {
	return isLetter(c) || isDigit(c)
}
