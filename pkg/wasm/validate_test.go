package wasm

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateValidModule(t *testing.T) {
	if err := Validate(exampleModule()); err != nil {
		t.Errorf("valid module failed validation: %v", err)
	}
}

func TestValidateInvalidBodies(t *testing.T) {
	tests := []struct {
		name    string
		body    []Instr
		wantMsg string
	}{
		{
			name:    "leftover_value",
			body:    []Instr{Const{Type: I64, Val: 1}},
			wantMsg: "body leaves [i64] on the stack",
		},
		{
			name:    "underflow",
			body:    []Instr{Const{Type: I64, Val: 1}, NumBinOp{Type: I64, Op: OpAdd}},
			wantMsg: "stack underflow",
		},
		{
			name:    "set_on_empty_stack",
			body:    []Instr{LocalSet{ID: "$x"}},
			wantMsg: "stack underflow",
		},
		{
			name:    "drop_on_empty_stack",
			body:    []Instr{Drop{}},
			wantMsg: "drop on empty stack",
		},
		{
			name:    "type_mismatch",
			body:    []Instr{Const{Type: I32, Val: 1}, Call{ID: PrintI64}},
			wantMsg: "operand 0 has type i32, want i64",
		},
		{
			name:    "unknown_local",
			body:    []Instr{LocalGet{ID: "$y"}, Drop{}},
			wantMsg: "unknown local $y",
		},
		{
			name:    "unknown_function",
			body:    []Instr{Call{ID: "$nope"}},
			wantMsg: "unknown function $nope",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := exampleModule()
			m.Funcs[0].Body = tt.body
			err := Validate(m)
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error %q does not contain %q", err, tt.wantMsg)
			}
		})
	}
}

func TestValidateDuplicateLocal(t *testing.T) {
	m := exampleModule()
	m.Funcs[0].Locals = append(m.Funcs[0].Locals, Local{ID: "$x", Type: I64})
	if err := Validate(m); err == nil || !strings.Contains(err.Error(), "duplicate local $x") {
		t.Errorf("expected duplicate local error, got %v", err)
	}
}

func TestValidateUnknownExport(t *testing.T) {
	m := exampleModule()
	m.Exports = append(m.Exports, Export{Name: "other", Desc: ExportFunc{ID: "$other"}})
	if err := Validate(m); err == nil || !strings.Contains(err.Error(), `export "other"`) {
		t.Errorf("expected unknown export error, got %v", err)
	}
}

func TestNetEffect(t *testing.T) {
	funcs := exampleModule().FuncTypes()
	locals := map[ID]ValType{"$x": I64}

	tests := []struct {
		name  string
		instr []Instr
		want  int
	}{
		{"empty", nil, 0},
		{"const", []Instr{Const{Type: I64, Val: 1}}, 1},
		{"input", []Instr{Call{ID: InputI64}}, 1},
		{"print", []Instr{LocalGet{ID: "$x"}, Call{ID: PrintI64}}, 0},
		{"binop", []Instr{LocalGet{ID: "$x"}, LocalGet{ID: "$x"}, NumBinOp{Type: I64, Op: OpMul}}, 1},
		{"two_values", []Instr{Const{Type: I64, Val: 1}, Const{Type: I64, Val: 2}}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NetEffect(tt.instr, funcs, locals)
			if err != nil {
				t.Fatalf("NetEffect failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("NetEffect = %d, want %d", got, tt.want)
			}
		})
	}

	_, err := NetEffect([]Instr{NumBinOp{Type: I64, Op: OpSub}}, funcs, locals)
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Index != 0 {
		t.Errorf("expected ValidationError at instruction 0, got %v", err)
	}
}
