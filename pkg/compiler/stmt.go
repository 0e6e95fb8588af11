package compiler

import (
	"fmt"

	"github.com/GriffinCanCode/langvar-compiler/pkg/frontend"
	"github.com/GriffinCanCode/langvar-compiler/pkg/wasm"
)

// CompileStmts lowers statements in source order and concatenates the result.
func CompileStmts(stmts []frontend.Stmt) ([]wasm.Instr, error) {
	var instrs []wasm.Instr
	for _, stmt := range stmts {
		stmtInstrs, err := CompileStmt(stmt)
		if err != nil {
			return nil, err
		}
		instrs = append(instrs, stmtInstrs...)
	}
	return instrs, nil
}

// CompileStmt lowers one statement. The result leaves the stack as it
// found it: a value computed by an expression statement is dropped.
func CompileStmt(stmt frontend.Stmt) ([]wasm.Instr, error) {
	switch s := stmt.(type) {
	case *frontend.StmtExp:
		instrs, err := CompileExp(s.Exp)
		if err != nil {
			return nil, err
		}
		if !isPrint(s.Exp) {
			instrs = append(instrs, wasm.Drop{})
		}
		return instrs, nil

	case *frontend.Assign:
		return compileAssign(s.Var, s.Right)

	default:
		return nil, fmt.Errorf("unsupported statement type: %T", stmt)
	}
}

func compileAssign(v frontend.Ident, right frontend.Expr) ([]wasm.Instr, error) {
	instrs, err := CompileExp(right)
	if err != nil {
		return nil, err
	}
	return append(instrs, wasm.LocalSet{ID: IdentToWasmID(v)}), nil
}
