// Package frontend - Recursive descent parser for the var language
// Design: Predictive parsing, clear error messages, zero backtracking
package frontend

import (
	"fmt"
	"strconv"
	"strings"
)

// SyntaxError is a single parse error at a source position.
type SyntaxError struct {
	Pos Pos
	Msg string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("line %d, col %d: %s", e.Pos.Line, e.Pos.Col, e.Msg)
}

// ErrorList collects every syntax error found in one parse.
type ErrorList []*SyntaxError

func (l ErrorList) Error() string {
	msgs := make([]string, len(l))
	for i, e := range l {
		msgs[i] = e.Error()
	}
	return "parse errors: " + strings.Join(msgs, "; ")
}

type Parser struct {
	lexer   *Lexer
	current Token
	next    Token
	errors  ErrorList
}

func NewParser(source string) *Parser {
	lexer := NewLexer(source)
	p := &Parser{lexer: lexer}
	p.current = lexer.Next()
	p.next = lexer.Next()
	return p
}

// Parse parses a whole source file.
func Parse(source string) (*Module, error) {
	return NewParser(source).Parse()
}

func (p *Parser) Parse() (*Module, error) {
	module := &Module{}

	for !p.check(EOF) {
		if p.match(NEWLINE, SEMICOLON) {
			p.advance()
			continue
		}

		if stmt := p.statement(); stmt != nil {
			module.Stmts = append(module.Stmts, stmt)
			if !p.match(NEWLINE, SEMICOLON, EOF) {
				p.error(fmt.Sprintf("expected end of statement, found %v", p.current))
			}
		}
		p.synchronize()
	}

	if len(p.errors) > 0 {
		return nil, p.errors
	}

	return module, nil
}

func (p *Parser) statement() Stmt {
	start := p.current.Pos()

	if p.check(NAME) && p.next.Type == ASSIGN {
		name := p.current.Lexeme
		p.advance()
		p.advance()
		right := p.expression()
		if right == nil {
			return nil
		}
		return &Assign{Pos: start, Var: Ident{Name: name}, Right: right}
	}

	expr := p.expression()
	if expr == nil {
		return nil
	}
	return &StmtExp{Pos: start, Exp: expr}
}

func (p *Parser) expression() Expr {
	return p.additive()
}

func (p *Parser) additive() Expr {
	expr := p.multiplicative()

	for expr != nil && p.match(PLUS, MINUS) {
		tok := p.advance()
		right := p.multiplicative()
		if right == nil {
			return nil
		}
		expr = &BinOp{
			Pos:   tok.Pos(),
			Left:  expr,
			Op:    p.operatorFromToken(tok.Type),
			Right: right,
		}
	}

	return expr
}

func (p *Parser) multiplicative() Expr {
	expr := p.unary()

	for expr != nil && p.match(STAR) {
		tok := p.advance()
		right := p.unary()
		if right == nil {
			return nil
		}
		expr = &BinOp{
			Pos:   tok.Pos(),
			Left:  expr,
			Op:    Mul,
			Right: right,
		}
	}

	return expr
}

func (p *Parser) unary() Expr {
	if p.match(MINUS) {
		tok := p.advance()
		sub := p.unary()
		if sub == nil {
			return nil
		}
		return &UnOp{Pos: tok.Pos(), Op: USub, Sub: sub}
	}
	return p.primary()
}

func (p *Parser) primary() Expr {
	start := p.current.Pos()

	if p.match(INT) {
		lexeme := p.advance().Lexeme
		val, err := strconv.ParseInt(lexeme, 10, 64)
		if err != nil {
			p.errorAt(start, fmt.Sprintf("integer literal out of range: %s", lexeme))
			return nil
		}
		return &IntConst{Pos: start, Value: val}
	}

	if p.match(NAME) {
		name := p.advance().Lexeme

		// Check for function call
		if p.match(LPAREN) {
			p.advance()

			var args []Expr
			if !p.check(RPAREN) {
				for {
					arg := p.expression()
					if arg == nil {
						return nil
					}
					args = append(args, arg)
					if !p.match(COMMA) {
						break
					}
					p.advance()
				}
			}

			if !p.consume(RPAREN, "expected ')'") {
				return nil
			}

			return &Call{Pos: start, Func: Ident{Name: name}, Args: args}
		}

		return &Name{Pos: start, Var: Ident{Name: name}}
	}

	if p.match(LPAREN) {
		p.advance()
		expr := p.expression()
		if expr == nil {
			return nil
		}
		if !p.consume(RPAREN, "expected ')'") {
			return nil
		}
		return expr
	}

	p.error(fmt.Sprintf("unexpected %v", p.current))
	return nil
}

func (p *Parser) operatorFromToken(tok TokenType) Operator {
	switch tok {
	case PLUS:
		return Add
	case MINUS:
		return Sub
	case STAR:
		return Mul
	}
	return Add
}

// synchronize skips to the token after the next statement terminator.
func (p *Parser) synchronize() {
	for !p.check(EOF) {
		if p.match(NEWLINE, SEMICOLON) {
			p.advance()
			return
		}
		p.advance()
	}
}

func (p *Parser) match(types ...TokenType) bool {
	for _, t := range types {
		if p.check(t) {
			return true
		}
	}
	return false
}

func (p *Parser) check(typ TokenType) bool {
	return p.current.Type == typ
}

func (p *Parser) advance() Token {
	prev := p.current
	p.current = p.next
	p.next = p.lexer.Next()
	return prev
}

func (p *Parser) consume(typ TokenType, msg string) bool {
	if p.check(typ) {
		p.advance()
		return true
	}
	p.error(msg)
	return false
}

func (p *Parser) error(msg string) {
	p.errorAt(p.current.Pos(), msg)
}

func (p *Parser) errorAt(pos Pos, msg string) {
	p.errors = append(p.errors, &SyntaxError{Pos: pos, Msg: msg})
}
