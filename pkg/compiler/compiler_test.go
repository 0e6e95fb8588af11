package compiler

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/GriffinCanCode/langvar-compiler/pkg/frontend"
	"github.com/GriffinCanCode/langvar-compiler/pkg/wasm"
)

func num(v int64) *frontend.IntConst { return &frontend.IntConst{Value: v} }
func ref(n string) *frontend.Name    { return &frontend.Name{Var: frontend.Ident{Name: n}} }
func neg(e frontend.Expr) *frontend.UnOp {
	return &frontend.UnOp{Op: frontend.USub, Sub: e}
}
func bin(l frontend.Expr, op frontend.Operator, r frontend.Expr) *frontend.BinOp {
	return &frontend.BinOp{Left: l, Op: op, Right: r}
}
func call(name string, args ...frontend.Expr) *frontend.Call {
	return &frontend.Call{Func: frontend.Ident{Name: name}, Args: args}
}
func assign(name string, e frontend.Expr) *frontend.Assign {
	return &frontend.Assign{Var: frontend.Ident{Name: name}, Right: e}
}
func exp(e frontend.Expr) *frontend.StmtExp { return &frontend.StmtExp{Exp: e} }

func push(v int64) wasm.Instr    { return wasm.Const{Type: wasm.I64, Val: v} }
func get(n string) wasm.Instr    { return wasm.LocalGet{ID: wasm.ID("$" + n)} }
func set(n string) wasm.Instr    { return wasm.LocalSet{ID: wasm.ID("$" + n)} }
func op(o wasm.BinOp) wasm.Instr { return wasm.NumBinOp{Type: wasm.I64, Op: o} }

var (
	callPrint = wasm.Call{ID: wasm.PrintI64}
	callInput = wasm.Call{ID: wasm.InputI64}
)

// netEffect simulates instrs with every listed variable declared.
func netEffect(t *testing.T, instrs []wasm.Instr, vars ...string) int {
	t.Helper()
	m := &wasm.Module{Imports: wasm.Imports(1)}
	locals := make(map[wasm.ID]wasm.ValType)
	for _, v := range vars {
		locals[wasm.ID("$"+v)] = wasm.I64
	}
	n, err := wasm.NetEffect(instrs, m.FuncTypes(), locals)
	if err != nil {
		t.Fatalf("stack simulation failed: %v", err)
	}
	return n
}

func mustCompileExp(t *testing.T, e frontend.Expr) []wasm.Instr {
	t.Helper()
	instrs, err := CompileExp(e)
	if err != nil {
		t.Fatalf("CompileExp(%s) failed: %v", frontend.Format(e), err)
	}
	return instrs
}

func TestCompileExp(t *testing.T) {
	tests := []struct {
		name string
		expr frontend.Expr
		want []wasm.Instr
	}{
		{
			name: "int_const",
			expr: num(42),
			want: []wasm.Instr{push(42)},
		},
		{
			name: "negative_const",
			expr: num(-7),
			want: []wasm.Instr{push(-7)},
		},
		{
			name: "variable",
			expr: ref("x"),
			want: []wasm.Instr{get("x")},
		},
		{
			name: "negation",
			expr: neg(ref("x")),
			want: []wasm.Instr{push(0), get("x"), op(wasm.OpSub)},
		},
		{
			name: "addition",
			expr: bin(num(1), frontend.Add, num(2)),
			want: []wasm.Instr{push(1), push(2), op(wasm.OpAdd)},
		},
		{
			name: "subtraction_keeps_operand_order",
			expr: bin(ref("a"), frontend.Sub, ref("b")),
			want: []wasm.Instr{get("a"), get("b"), op(wasm.OpSub)},
		},
		{
			name: "multiplication",
			expr: bin(ref("a"), frontend.Mul, num(3)),
			want: []wasm.Instr{get("a"), push(3), op(wasm.OpMul)},
		},
		{
			name: "nested",
			expr: bin(neg(num(2)), frontend.Mul, bin(ref("a"), frontend.Add, num(1))),
			want: []wasm.Instr{
				push(0), push(2), op(wasm.OpSub),
				get("a"), push(1), op(wasm.OpAdd),
				op(wasm.OpMul),
			},
		},
		{
			name: "input_int",
			expr: call("input_int"),
			want: []wasm.Instr{callInput},
		},
		{
			name: "input_int_in_arithmetic",
			expr: bin(call("input_int"), frontend.Sub, call("input_int")),
			want: []wasm.Instr{callInput, callInput, op(wasm.OpSub)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mustCompileExp(t, tt.expr)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("CompileExp mismatch (-want +got):\n%s", diff)
			}
			if n := netEffect(t, got, "x", "a", "b"); n != 1 {
				t.Errorf("net stack effect = %d, want 1", n)
			}
		})
	}
}

func TestNegationLaw(t *testing.T) {
	subs := []frontend.Expr{
		num(5),
		ref("a"),
		bin(ref("a"), frontend.Sub, num(1)),
		neg(neg(ref("a"))),
		call("input_int"),
	}
	for _, sub := range subs {
		t.Run(frontend.Format(sub), func(t *testing.T) {
			want := []wasm.Instr{push(0)}
			want = append(want, mustCompileExp(t, sub)...)
			want = append(want, op(wasm.OpSub))

			got := mustCompileExp(t, neg(sub))
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("negation mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCompilePrint(t *testing.T) {
	a := bin(ref("a"), frontend.Add, num(1))
	b := neg(ref("b"))

	got := mustCompileExp(t, call("print", a, b))

	want := append([]wasm.Instr{}, mustCompileExp(t, a)...)
	want = append(want, callPrint)
	want = append(want, mustCompileExp(t, b)...)
	want = append(want, callPrint)

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("print lowering mismatch (-want +got):\n%s", diff)
	}
	if n := netEffect(t, got, "a", "b"); n != 0 {
		t.Errorf("print net stack effect = %d, want 0", n)
	}
}

func TestCompilePrintNoArgs(t *testing.T) {
	got := mustCompileExp(t, call("print"))
	if len(got) != 0 {
		t.Errorf("print() = %v, want no instructions", got)
	}
}

func TestUnsupportedCall(t *testing.T) {
	tests := []struct {
		name string
		mod  *frontend.Module
	}{
		{"statement", &frontend.Module{Stmts: []frontend.Stmt{exp(call("foo"))}}},
		{"nested_in_assign", &frontend.Module{Stmts: []frontend.Stmt{
			assign("x", bin(num(1), frontend.Add, call("foo", num(2)))),
		}}},
		{"print_argument", &frontend.Module{Stmts: []frontend.Stmt{exp(call("print", call("bar")))}}},
		{"after_valid_statements", &frontend.Module{Stmts: []frontend.Stmt{
			assign("x", num(1)),
			exp(call("print", ref("x"))),
			exp(call("foo")),
		}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := CompileModule(tt.mod, []frontend.Ident{{Name: "x"}}, DefaultConfig())
			if err == nil {
				t.Fatal("expected unsupported call error, got nil")
			}
			if m != nil {
				t.Errorf("expected no module, got %+v", m)
			}
			var callErr *UnsupportedCallError
			if !errors.As(err, &callErr) {
				t.Fatalf("expected *UnsupportedCallError, got %T: %v", err, err)
			}
			if !errors.Is(err, ErrUnsupportedCall) {
				t.Error("error does not match ErrUnsupportedCall")
			}
			if callErr.Call == nil || callErr.Call.Func.Name == "print" {
				t.Errorf("error identifies wrong call node: %+v", callErr.Call)
			}
		})
	}
}

func TestCompileStmt(t *testing.T) {
	tests := []struct {
		name string
		stmt frontend.Stmt
		want []wasm.Instr
	}{
		{
			name: "assign",
			stmt: assign("x", num(1)),
			want: []wasm.Instr{push(1), set("x")},
		},
		{
			name: "print_statement",
			stmt: exp(call("print", ref("x"))),
			want: []wasm.Instr{get("x"), callPrint},
		},
		{
			name: "bare_expression_is_dropped",
			stmt: exp(bin(ref("x"), frontend.Add, num(1))),
			want: []wasm.Instr{get("x"), push(1), op(wasm.OpAdd), wasm.Drop{}},
		},
		{
			name: "input_statement_is_dropped",
			stmt: exp(call("input_int")),
			want: []wasm.Instr{callInput, wasm.Drop{}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CompileStmt(tt.stmt)
			if err != nil {
				t.Fatalf("CompileStmt failed: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("CompileStmt mismatch (-want +got):\n%s", diff)
			}
			if n := netEffect(t, got, "x"); n != 0 {
				t.Errorf("statement net stack effect = %d, want 0", n)
			}
		})
	}
}

func TestCompileStmtsPreservesOrder(t *testing.T) {
	got, err := CompileStmts([]frontend.Stmt{assign("x", num(1)), assign("y", num(2))})
	if err != nil {
		t.Fatalf("CompileStmts failed: %v", err)
	}
	want := []wasm.Instr{push(1), set("x"), push(2), set("y")}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("CompileStmts mismatch (-want +got):\n%s", diff)
	}
}

func TestCompileModuleExample(t *testing.T) {
	mod, err := frontend.Parse("x = 3 + 4; print(x)")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	m, err := Compile(mod, DefaultConfig())
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	mainFn := m.Func(MainID)
	if mainFn == nil {
		t.Fatalf("module has no %s function", MainID)
	}
	wantLocals := []wasm.Local{{ID: "$x", Type: wasm.I64}}
	if diff := cmp.Diff(wantLocals, mainFn.Locals); diff != "" {
		t.Errorf("locals mismatch (-want +got):\n%s", diff)
	}
	wantBody := []wasm.Instr{push(3), push(4), op(wasm.OpAdd), set("x"), get("x"), callPrint}
	if diff := cmp.Diff(wantBody, mainFn.Body); diff != "" {
		t.Errorf("body mismatch (-want +got):\n%s", diff)
	}
}

func TestCompileModuleShape(t *testing.T) {
	mod := &frontend.Module{Stmts: []frontend.Stmt{
		assign("a", call("input_int")),
		exp(call("print", neg(ref("a")))),
	}}
	cfg := Config{MaxMemSize: 7}

	m, err := CompileModule(mod, []frontend.Ident{{Name: "a"}}, cfg)
	if err != nil {
		t.Fatalf("CompileModule failed: %v", err)
	}

	if len(m.Funcs) != 1 {
		t.Fatalf("got %d functions, want 1", len(m.Funcs))
	}
	if m.Funcs[0].ID != MainID || len(m.Funcs[0].Params) != 0 || len(m.Funcs[0].Results) != 0 {
		t.Errorf("unexpected main signature: %+v", m.Funcs[0])
	}
	wantExports := []wasm.Export{{Name: "main", Desc: wasm.ExportFunc{ID: MainID}}}
	if diff := cmp.Diff(wantExports, m.Exports); diff != "" {
		t.Errorf("exports mismatch (-want +got):\n%s", diff)
	}
	if len(m.Globals) != 0 || len(m.Data) != 0 || len(m.Memories) != 0 {
		t.Errorf("expected no globals, data or memories: %+v", m)
	}
	if m.FuncTable == nil || len(m.FuncTable.Elems) != 0 {
		t.Errorf("expected empty function table, got %+v", m.FuncTable)
	}
	if diff := cmp.Diff(wasm.Imports(7), m.Imports); diff != "" {
		t.Errorf("imports mismatch (-want +got):\n%s", diff)
	}
	if err := wasm.Validate(m); err != nil {
		t.Errorf("compiled module does not validate: %v", err)
	}
}

func TestCompileModuleLocals(t *testing.T) {
	vars := []frontend.Ident{{Name: "b"}, {Name: "a"}, {Name: "b"}, {Name: "c"}, {Name: "a"}}
	m, err := CompileModule(&frontend.Module{}, vars, DefaultConfig())
	if err != nil {
		t.Fatalf("CompileModule failed: %v", err)
	}
	want := []wasm.Local{
		{ID: "$b", Type: wasm.I64},
		{ID: "$a", Type: wasm.I64},
		{ID: "$c", Type: wasm.I64},
	}
	if diff := cmp.Diff(want, m.Funcs[0].Locals); diff != "" {
		t.Errorf("locals mismatch (-want +got):\n%s", diff)
	}
	if len(m.Funcs[0].Body) != 0 {
		t.Errorf("empty module produced body %v", m.Funcs[0].Body)
	}
}

func TestCompileModuleLocalsFromChecker(t *testing.T) {
	mod, err := frontend.Parse("y = 1\nx = y\ny = x * 2\nz = -y\nprint(x, y, z)")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	m, err := Compile(mod, DefaultConfig())
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	var got []wasm.ID
	for _, l := range m.Funcs[0].Locals {
		got = append(got, l.ID)
	}
	if diff := cmp.Diff([]wasm.ID{"$y", "$x", "$z"}, got); diff != "" {
		t.Errorf("local order mismatch (-want +got):\n%s", diff)
	}
}

func TestCompileRejectsUncheckedInput(t *testing.T) {
	mod, err := frontend.Parse("print(x)")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if _, err := Compile(mod, DefaultConfig()); err == nil {
		t.Error("expected type check error for undefined variable")
	}
}

func TestCompileSourceUnsupportedCall(t *testing.T) {
	_, err := CompileSource("prog.py", "x = 1\nfoo(x)", DefaultConfig())
	if !errors.Is(err, ErrUnsupportedCall) {
		t.Fatalf("expected unsupported call error, got %v", err)
	}
}

func TestIdentToWasmID(t *testing.T) {
	names := []string{"x", "main", "print_i64", "input_i64", "_a1", "x1"}
	seen := make(map[wasm.ID]string)
	for _, n := range names {
		id := IdentToWasmID(frontend.Ident{Name: n})
		if id != IdentToWasmID(frontend.Ident{Name: n}) {
			t.Errorf("mapping of %q is not deterministic", n)
		}
		if prev, dup := seen[id]; dup {
			t.Errorf("%q and %q both map to %s", prev, n, id)
		}
		seen[id] = n
	}
}

func TestConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"default", DefaultConfig(), false},
		{"one_page", Config{MaxMemSize: 1}, false},
		{"max_pages", Config{MaxMemSize: MaxPages}, false},
		{"zero", Config{}, true},
		{"too_large", Config{MaxMemSize: MaxPages + 1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	if _, err := CompileModule(&frontend.Module{}, nil, Config{}); err == nil {
		t.Error("CompileModule accepted an invalid config")
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv(EnvMaxMemSize, "12")
	cfg, err := DefaultConfig().FromEnv()
	if err != nil {
		t.Fatalf("FromEnv failed: %v", err)
	}
	if cfg.MaxMemSize != 12 {
		t.Errorf("MaxMemSize = %d, want 12", cfg.MaxMemSize)
	}

	t.Setenv(EnvMaxMemSize, "lots")
	if _, err := DefaultConfig().FromEnv(); err == nil {
		t.Error("expected error for non-numeric override")
	}
}
