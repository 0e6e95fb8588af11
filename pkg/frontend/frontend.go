// Package frontend implements parsing and AST construction for the var language.
//
// Design: Minimal, focused on correctness. The AST is a closed set of node
// types; every node is sealed by an unexported marker method so that code
// outside this package can only switch over the variants declared here.
package frontend

import (
	"fmt"
	"strconv"
	"strings"
)

// Pos is a source position, 1-based.
type Pos struct {
	Line int
	Col  int
}

// Position returns the position itself, so that embedding Pos gives every
// node a Position method.
func (p Pos) Position() Pos { return p }

func (p Pos) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Col)
}

// AST node types
type Node interface {
	node()
	Position() Pos
}

// Module is an ordered list of top-level statements.
type Module struct {
	Stmts []Stmt
}

type Stmt interface {
	Node
	stmt()
}

type Expr interface {
	Node
	expr()
}

// Ident is a variable or function name. Two identifiers are equal iff
// their names are equal.
type Ident struct {
	Name string
}

func (id Ident) String() string { return id.Name }

// Statements

// StmtExp evaluates an expression for its side effects.
type StmtExp struct {
	Pos
	Exp Expr
}

func (StmtExp) node() {}
func (StmtExp) stmt() {}

// Assign stores the value of Right in Var.
type Assign struct {
	Pos
	Var   Ident
	Right Expr
}

func (Assign) node() {}
func (Assign) stmt() {}

// Expressions

type IntConst struct {
	Pos
	Value int64
}

func (IntConst) node() {}
func (IntConst) expr() {}

type Name struct {
	Pos
	Var Ident
}

func (Name) node() {}
func (Name) expr() {}

type UnOp struct {
	Pos
	Op  UnaryOperator
	Sub Expr
}

func (UnOp) node() {}
func (UnOp) expr() {}

type BinOp struct {
	Pos
	Left  Expr
	Op    Operator
	Right Expr
}

func (BinOp) node() {}
func (BinOp) expr() {}

type Call struct {
	Pos
	Func Ident
	Args []Expr
}

func (Call) node() {}
func (Call) expr() {}

// Operators

type Operator int

const (
	Add Operator = iota
	Sub
	Mul
)

func (op Operator) String() string {
	switch op {
	case Add:
		return "+"
	case Sub:
		return "-"
	case Mul:
		return "*"
	default:
		return fmt.Sprintf("Operator(%d)", int(op))
	}
}

type UnaryOperator int

const (
	USub UnaryOperator = iota
)

func (op UnaryOperator) String() string {
	if op == USub {
		return "-"
	}
	return fmt.Sprintf("UnaryOperator(%d)", int(op))
}

// Format renders an expression back to source form with full parentheses
// around compound subexpressions.
func Format(e Expr) string {
	var b strings.Builder
	format(&b, e)
	return b.String()
}

func format(b *strings.Builder, e Expr) {
	switch e := e.(type) {
	case *IntConst:
		b.WriteString(strconv.FormatInt(e.Value, 10))
	case *Name:
		b.WriteString(e.Var.Name)
	case *UnOp:
		b.WriteString(e.Op.String())
		formatOperand(b, e.Sub)
	case *BinOp:
		formatOperand(b, e.Left)
		b.WriteString(" " + e.Op.String() + " ")
		formatOperand(b, e.Right)
	case *Call:
		b.WriteString(e.Func.Name)
		b.WriteByte('(')
		for i, arg := range e.Args {
			if i > 0 {
				b.WriteString(", ")
			}
			format(b, arg)
		}
		b.WriteByte(')')
	default:
		fmt.Fprintf(b, "<%T>", e)
	}
}

func formatOperand(b *strings.Builder, e Expr) {
	switch e.(type) {
	case *BinOp, *UnOp:
		b.WriteByte('(')
		format(b, e)
		b.WriteByte(')')
	default:
		format(b, e)
	}
}

// FormatStmt renders a statement back to source form.
func FormatStmt(s Stmt) string {
	switch s := s.(type) {
	case *StmtExp:
		return Format(s.Exp)
	case *Assign:
		return s.Var.Name + " = " + Format(s.Right)
	default:
		return fmt.Sprintf("<%T>", s)
	}
}
