// Package compiler lowers a checked var program to a WebAssembly module.
//
// Design: Expressions are lowered bottom-up into flat instruction lists that
// are appended to their parent's list; no instruction is rewritten after it
// is emitted. The program becomes the body of a single exported function.
package compiler

import (
	"errors"
	"fmt"

	"github.com/GriffinCanCode/langvar-compiler/pkg/frontend"
	"github.com/GriffinCanCode/langvar-compiler/pkg/logger"
	"github.com/GriffinCanCode/langvar-compiler/pkg/tychecker"
	"github.com/GriffinCanCode/langvar-compiler/pkg/wasm"
)

const (
	// MainID is the internal ID of the compiled program's function.
	MainID wasm.ID = "$main"

	// MainExport is the name the program function is exported under.
	MainExport = "main"
)

// CompileModule lowers mod into an executable module.
//
// mod must have passed the type checker, and vars must be the variable set
// it reported. Lowering does not re-validate either: an undeclared variable
// produces a module that fails to encode. The only error lowering detects
// itself is a call to a non-builtin function, which aborts compilation.
func CompileModule(mod *frontend.Module, vars []frontend.Ident, cfg Config) (*wasm.Module, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger.LogPhase("codegen")
	instrs, err := CompileStmts(mod.Stmts)
	if err != nil {
		logger.Error("Code generation failed", "error", err)
		return nil, err
	}

	locals := compileLocals(vars)
	mainFn := &wasm.Func{
		ID:     MainID,
		Locals: locals,
		Body:   instrs,
	}
	logger.LogCodeGen(string(MainID), len(locals), len(instrs))

	return &wasm.Module{
		Imports:   wasm.Imports(cfg.MaxMemSize),
		Exports:   []wasm.Export{{Name: MainExport, Desc: wasm.ExportFunc{ID: MainID}}},
		FuncTable: &wasm.FuncTable{},
		Funcs:     []*wasm.Func{mainFn},
	}, nil
}

// Compile type checks mod and lowers it.
func Compile(mod *frontend.Module, cfg Config) (*wasm.Module, error) {
	res, err := tychecker.Check(mod)
	if err != nil {
		return nil, fmt.Errorf("type check: %w", err)
	}
	return CompileModule(mod, res.Vars, cfg)
}

// CompileSource parses, checks and lowers a whole source file.
func CompileSource(file, source string, cfg Config) (*wasm.Module, error) {
	logger.LogPhase("parse")
	mod, err := frontend.Parse(source)
	if err != nil {
		var errs frontend.ErrorList
		if errors.As(err, &errs) {
			for _, e := range errs {
				logger.LogError("parse", file, e.Pos.Line, e.Msg)
			}
		}
		return nil, fmt.Errorf("%s: %w", file, err)
	}
	logger.LogParsing(file, len(mod.Stmts))

	m, err := Compile(mod, cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}
	logger.LogPhaseComplete("codegen")
	return m, nil
}
