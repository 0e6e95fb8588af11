package compiler

import (
	"github.com/GriffinCanCode/langvar-compiler/pkg/frontend"
	"github.com/GriffinCanCode/langvar-compiler/pkg/wasm"
)

// IdentToWasmID maps a source variable to the ID of its local slot.
//
// The mapping is injective. Source identifiers never contain '$', and the
// compiler's own IDs (MainID, wasm.PrintI64, wasm.InputI64) name functions,
// which WebAssembly keeps in a separate index space from locals.
func IdentToWasmID(id frontend.Ident) wasm.ID {
	return wasm.ID("$" + id.Name)
}

// compileLocals declares one i64 slot per variable, in order, each once.
func compileLocals(vars []frontend.Ident) []wasm.Local {
	seen := make(map[frontend.Ident]bool, len(vars))
	locals := make([]wasm.Local, 0, len(vars))
	for _, v := range vars {
		if seen[v] {
			continue
		}
		seen[v] = true
		locals = append(locals, wasm.Local{ID: IdentToWasmID(v), Type: wasm.I64})
	}
	return locals
}
