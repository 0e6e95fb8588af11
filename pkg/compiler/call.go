package compiler

import (
	"github.com/GriffinCanCode/langvar-compiler/pkg/frontend"
	"github.com/GriffinCanCode/langvar-compiler/pkg/wasm"
)

// Builtin function names.
const (
	BuiltinPrint    = "print"
	BuiltinInputInt = "input_int"
)

// CompileCall lowers a call to one of the builtins. Any other callee fails
// with an UnsupportedCallError.
func CompileCall(call *frontend.Call) ([]wasm.Instr, error) {
	switch call.Func.Name {
	case BuiltinPrint:
		return compilePrint(call.Args)
	case BuiltinInputInt:
		return []wasm.Instr{wasm.Call{ID: wasm.InputI64}}, nil
	default:
		return nil, &UnsupportedCallError{Call: call}
	}
}

// compilePrint emits one print call per argument.
func compilePrint(args []frontend.Expr) ([]wasm.Instr, error) {
	var instrs []wasm.Instr
	for _, arg := range args {
		argInstrs, err := CompileExp(arg)
		if err != nil {
			return nil, err
		}
		instrs = append(instrs, argInstrs...)
		instrs = append(instrs, wasm.Call{ID: wasm.PrintI64})
	}
	return instrs, nil
}

// isPrint reports whether expr is a call to print, the only expression
// that produces no value.
func isPrint(expr frontend.Expr) bool {
	call, ok := expr.(*frontend.Call)
	return ok && call.Func.Name == BuiltinPrint
}
