// Package tychecker implements the static checks that run before lowering.
//
// Design: One forward pass over the statements. The only type is int, so
// checking reduces to scoping (a variable is defined by its first
// assignment), the arity of input_int, and keeping print out of value
// positions.
package tychecker

import (
	"fmt"

	"github.com/GriffinCanCode/langvar-compiler/pkg/frontend"
	"github.com/GriffinCanCode/langvar-compiler/pkg/logger"
)

// Builtin names known to the checker.
const (
	printName    = "print"
	inputIntName = "input_int"
)

// Error is a static error at a source position.
type Error struct {
	Pos Pos
	Msg string
}

// Pos is the source position of an Error.
type Pos = frontend.Pos

func (e *Error) Error() string {
	return fmt.Sprintf("line %d, col %d: %s", e.Pos.Line, e.Pos.Col, e.Msg)
}

// Result is what lowering needs from the checker.
type Result struct {
	// Vars lists every assigned variable once, in order of first assignment.
	Vars []frontend.Ident
}

type checker struct {
	defined map[frontend.Ident]bool
	vars    []frontend.Ident
}

// Check validates mod and collects its variables. It stops at the first error.
func Check(mod *frontend.Module) (*Result, error) {
	logger.LogPhase("typecheck")
	c := &checker{defined: make(map[frontend.Ident]bool)}

	for _, stmt := range mod.Stmts {
		if err := c.stmt(stmt); err != nil {
			logger.Debug("Type check failed", "error", err)
			return nil, err
		}
	}

	logger.LogTypeCheck(len(c.vars))
	return &Result{Vars: c.vars}, nil
}

func (c *checker) stmt(stmt frontend.Stmt) error {
	switch s := stmt.(type) {
	case *frontend.StmtExp:
		if call, ok := s.Exp.(*frontend.Call); ok && call.Func.Name == printName {
			return c.args(call)
		}
		return c.expr(s.Exp)

	case *frontend.Assign:
		// The right-hand side is checked first: "x = x + 1" needs an earlier x.
		if err := c.expr(s.Right); err != nil {
			return err
		}
		if !c.defined[s.Var] {
			c.defined[s.Var] = true
			c.vars = append(c.vars, s.Var)
		}
		return nil

	default:
		return &Error{Pos: stmt.Position(), Msg: fmt.Sprintf("unsupported statement %T", stmt)}
	}
}

// expr checks an expression that must produce an int.
func (c *checker) expr(expr frontend.Expr) error {
	switch e := expr.(type) {
	case *frontend.IntConst:
		return nil

	case *frontend.Name:
		if !c.defined[e.Var] {
			return &Error{Pos: e.Position(), Msg: fmt.Sprintf("variable %s used before assignment", e.Var.Name)}
		}
		return nil

	case *frontend.UnOp:
		return c.expr(e.Sub)

	case *frontend.BinOp:
		if err := c.expr(e.Left); err != nil {
			return err
		}
		return c.expr(e.Right)

	case *frontend.Call:
		switch e.Func.Name {
		case inputIntName:
			if len(e.Args) != 0 {
				return &Error{Pos: e.Position(), Msg: fmt.Sprintf("%s takes no arguments, got %d", inputIntName, len(e.Args))}
			}
			return nil
		case printName:
			return &Error{Pos: e.Position(), Msg: "print does not produce a value"}
		default:
			// Unknown callees are rejected by call lowering.
			return c.args(e)
		}

	default:
		return &Error{Pos: expr.Position(), Msg: fmt.Sprintf("unsupported expression %T", expr)}
	}
}

func (c *checker) args(call *frontend.Call) error {
	for _, arg := range call.Args {
		if err := c.expr(arg); err != nil {
			return err
		}
	}
	return nil
}
