package compiler

import (
	"fmt"

	"github.com/GriffinCanCode/langvar-compiler/pkg/frontend"
	"github.com/GriffinCanCode/langvar-compiler/pkg/wasm"
)

// CompileExp lowers an expression to instructions that leave exactly one
// i64 on the stack. The one exception is a print call, which leaves
// nothing; the type checker only admits print as a whole statement.
func CompileExp(expr frontend.Expr) ([]wasm.Instr, error) {
	switch e := expr.(type) {
	case *frontend.IntConst:
		return []wasm.Instr{wasm.Const{Type: wasm.I64, Val: e.Value}}, nil

	case *frontend.Name:
		return []wasm.Instr{wasm.LocalGet{ID: IdentToWasmID(e.Var)}}, nil

	case *frontend.UnOp:
		if e.Op != frontend.USub {
			return nil, fmt.Errorf("unsupported unary operator: %v", e.Op)
		}
		sub, err := CompileExp(e.Sub)
		if err != nil {
			return nil, err
		}
		// -x is computed as 0 - x
		instrs := []wasm.Instr{wasm.Const{Type: wasm.I64, Val: 0}}
		instrs = append(instrs, sub...)
		return append(instrs, wasm.NumBinOp{Type: wasm.I64, Op: wasm.OpSub}), nil

	case *frontend.BinOp:
		op, err := binOpFromFrontend(e.Op)
		if err != nil {
			return nil, err
		}
		left, err := CompileExp(e.Left)
		if err != nil {
			return nil, err
		}
		right, err := CompileExp(e.Right)
		if err != nil {
			return nil, err
		}
		instrs := append(left, right...)
		return append(instrs, wasm.NumBinOp{Type: wasm.I64, Op: op}), nil

	case *frontend.Call:
		return CompileCall(e)

	default:
		return nil, fmt.Errorf("unsupported expression type: %T", expr)
	}
}

func binOpFromFrontend(op frontend.Operator) (wasm.BinOp, error) {
	switch op {
	case frontend.Add:
		return wasm.OpAdd, nil
	case frontend.Sub:
		return wasm.OpSub, nil
	case frontend.Mul:
		return wasm.OpMul, nil
	default:
		return "", fmt.Errorf("unsupported binary operator: %v", op)
	}
}
