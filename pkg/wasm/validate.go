// Package wasm - Stack discipline validation
package wasm

import (
	"fmt"
	"strings"

	"github.com/GriffinCanCode/langvar-compiler/pkg/logger"
)

// ValidationError reports an instruction that breaks the stack discipline.
type ValidationError struct {
	Func    ID
	Index   int
	Message string
	Code    string
}

func (e *ValidationError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("func %s: %s", e.Func, e.Message)
	}
	if e.Func == "" {
		return fmt.Sprintf("instruction %d: %s\n  %s", e.Index, e.Message, e.Code)
	}
	return fmt.Sprintf("func %s, instruction %d: %s\n  %s", e.Func, e.Index, e.Message, e.Code)
}

// Effect is the number of operands an instruction pops and pushes.
type Effect struct {
	Pops   []ValType
	Pushes []ValType
}

// InstrEffect returns the stack effect of instr. Calls are resolved through
// funcs; locals through locals.
func InstrEffect(instr Instr, funcs map[ID]FuncType, locals map[ID]ValType) (Effect, error) {
	switch in := instr.(type) {
	case Const:
		return Effect{Pushes: []ValType{in.Type}}, nil
	case LocalGet:
		t, ok := locals[in.ID]
		if !ok {
			return Effect{}, fmt.Errorf("unknown local %s", in.ID)
		}
		return Effect{Pushes: []ValType{t}}, nil
	case LocalSet:
		t, ok := locals[in.ID]
		if !ok {
			return Effect{}, fmt.Errorf("unknown local %s", in.ID)
		}
		return Effect{Pops: []ValType{t}}, nil
	case NumBinOp:
		return Effect{Pops: []ValType{in.Type, in.Type}, Pushes: []ValType{in.Type}}, nil
	case Call:
		ft, ok := funcs[in.ID]
		if !ok {
			return Effect{}, fmt.Errorf("unknown function %s", in.ID)
		}
		return Effect{Pops: ft.Params, Pushes: ft.Results}, nil
	case Drop:
		// Drop is polymorphic; the caller checks that a value is present.
		return Effect{}, nil
	default:
		return Effect{}, fmt.Errorf("unsupported instruction %T", instr)
	}
}

// Simulate runs instrs over an initially empty operand stack and returns
// the types left on it. Underflow and type mismatches are errors.
func Simulate(instrs []Instr, funcs map[ID]FuncType, locals map[ID]ValType) ([]ValType, error) {
	var stack []ValType
	for i, instr := range instrs {
		if _, ok := instr.(Drop); ok {
			if len(stack) == 0 {
				return nil, &ValidationError{Index: i, Message: "drop on empty stack", Code: InstrText(instr)}
			}
			stack = stack[:len(stack)-1]
			continue
		}

		eff, err := InstrEffect(instr, funcs, locals)
		if err != nil {
			return nil, &ValidationError{Index: i, Message: err.Error(), Code: InstrText(instr)}
		}
		if len(stack) < len(eff.Pops) {
			return nil, &ValidationError{
				Index:   i,
				Message: fmt.Sprintf("stack underflow: need %d operands, have %d", len(eff.Pops), len(stack)),
				Code:    InstrText(instr),
			}
		}
		base := len(stack) - len(eff.Pops)
		for j, want := range eff.Pops {
			if got := stack[base+j]; got != want {
				return nil, &ValidationError{
					Index:   i,
					Message: fmt.Sprintf("operand %d has type %s, want %s", j, got, want),
					Code:    InstrText(instr),
				}
			}
		}
		stack = append(stack[:base], eff.Pushes...)
	}
	return stack, nil
}

// NetEffect returns the net change in stack depth of instrs, starting from
// an empty stack.
func NetEffect(instrs []Instr, funcs map[ID]FuncType, locals map[ID]ValType) (int, error) {
	stack, err := Simulate(instrs, funcs, locals)
	if err != nil {
		return 0, err
	}
	return len(stack), nil
}

// LocalTypes returns the type of every parameter and local of fn.
func LocalTypes(fn *Func) map[ID]ValType {
	types := make(map[ID]ValType, len(fn.Params)+len(fn.Locals))
	for _, p := range fn.Params {
		types[p.ID] = p.Type
	}
	for _, l := range fn.Locals {
		types[l.ID] = l.Type
	}
	return types
}

// Validate checks every function body of m: each instruction has its
// operands, and the stack at the end holds exactly the function results.
// Exports must refer to existing items.
func Validate(m *Module) error {
	funcs := m.FuncTypes()
	var errs []string

	for _, fn := range m.Funcs {
		if err := validateFunc(fn, funcs); err != nil {
			errs = append(errs, err.Error())
		}
	}

	for _, exp := range m.Exports {
		if d, ok := exp.Desc.(ExportFunc); ok {
			if _, found := funcs[d.ID]; !found {
				errs = append(errs, fmt.Sprintf("export %q: unknown function %s", exp.Name, d.ID))
			}
		}
	}

	if len(errs) > 0 {
		logger.Error("Module validation failed", "errors", len(errs))
		return fmt.Errorf("validation failed:\n%s", strings.Join(errs, "\n"))
	}
	logger.Debug("Module validated", "functions", len(m.Funcs))
	return nil
}

func validateFunc(fn *Func, funcs map[ID]FuncType) error {
	seen := make(map[ID]bool)
	for _, l := range append(append([]Local{}, fn.Params...), fn.Locals...) {
		if seen[l.ID] {
			return &ValidationError{Func: fn.ID, Index: -1, Message: fmt.Sprintf("duplicate local %s", l.ID)}
		}
		seen[l.ID] = true
	}

	stack, err := Simulate(fn.Body, funcs, LocalTypes(fn))
	if err != nil {
		if verr, ok := err.(*ValidationError); ok {
			verr.Func = fn.ID
		}
		return err
	}
	if !sameTypes(stack, fn.Results) {
		return &ValidationError{
			Func:    fn.ID,
			Index:   -1,
			Message: fmt.Sprintf("body leaves [%s] on the stack, want [%s]", joinTypes(stack), joinTypes(fn.Results)),
		}
	}
	return nil
}
