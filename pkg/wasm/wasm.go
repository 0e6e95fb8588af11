// Package wasm implements the WebAssembly module representation targeted by
// the compiler.
//
// Design: A small, closed subset of WebAssembly. Instructions form a sealed
// sum type; references between module items use symbolic IDs ("$main") the
// way the text format does, and are resolved to indices only by Encode.
package wasm

// ID is a symbolic WebAssembly identifier, including the leading '$'.
type ID string

// ValType is a WebAssembly value type.
type ValType string

const (
	I32 ValType = "i32"
	I64 ValType = "i64"
)

// BinOp names a numeric binary operator.
type BinOp string

const (
	OpAdd BinOp = "add"
	OpSub BinOp = "sub"
	OpMul BinOp = "mul"
)

// Instr is a stack-machine instruction.
type Instr interface {
	instr()
}

// Instructions

// Const pushes a constant.
type Const struct {
	Type ValType
	Val  int64
}

func (Const) instr() {}

// LocalGet pushes the value of a local.
type LocalGet struct {
	ID ID
}

func (LocalGet) instr() {}

// LocalSet pops a value into a local.
type LocalSet struct {
	ID ID
}

func (LocalSet) instr() {}

// NumBinOp pops two operands and pushes the result. The first operand
// pushed is the left-hand side.
type NumBinOp struct {
	Type ValType
	Op   BinOp
}

func (NumBinOp) instr() {}

// Call calls a function by ID.
type Call struct {
	ID ID
}

func (Call) instr() {}

// Drop pops and discards one value.
type Drop struct{}

func (Drop) instr() {}

// Module items

// FuncType is a function signature.
type FuncType struct {
	Params  []ValType
	Results []ValType
}

// ImportDesc describes what an import provides.
type ImportDesc interface {
	importDesc()
}

// ImportFunc imports a function under a local ID.
type ImportFunc struct {
	ID   ID
	Type FuncType
}

func (ImportFunc) importDesc() {}

// ImportMemory imports a linear memory sized in 64 KiB pages. Max 0 means
// no maximum.
type ImportMemory struct {
	ID  ID
	Min uint32
	Max uint32
}

func (ImportMemory) importDesc() {}

type Import struct {
	Module string
	Name   string
	Desc   ImportDesc
}

// ExportDesc describes what an export refers to.
type ExportDesc interface {
	exportDesc()
}

type ExportFunc struct {
	ID ID
}

func (ExportFunc) exportDesc() {}

type ExportMemory struct {
	ID ID
}

func (ExportMemory) exportDesc() {}

type Export struct {
	Name string
	Desc ExportDesc
}

// Global is a module-level variable initialized with a constant.
type Global struct {
	ID      ID
	Type    ValType
	Mutable bool
	Init    int64
}

// Data is an active data segment placed in memory 0.
type Data struct {
	Offset uint32
	Bytes  []byte
}

// FuncTable is the table used by indirect calls. Its elements are the
// functions placed at indices 0..len-1.
type FuncTable struct {
	Elems []ID
}

// Memory defines a linear memory.
type Memory struct {
	ID  ID
	Min uint32
	Max uint32
}

// Local is a function-scoped storage slot.
type Local struct {
	ID   ID
	Type ValType
}

type Func struct {
	ID      ID
	Params  []Local
	Results []ValType
	Locals  []Local
	Body    []Instr
}

// Type returns the signature of f.
func (f *Func) Type() FuncType {
	ft := FuncType{Results: f.Results}
	for _, p := range f.Params {
		ft.Params = append(ft.Params, p.Type)
	}
	return ft
}

// Module is a complete WebAssembly module.
type Module struct {
	Imports   []Import
	Exports   []Export
	Globals   []Global
	Data      []Data
	FuncTable *FuncTable
	Memories  []Memory
	Funcs     []*Func
}

// FuncTypes returns the signature of every imported and defined function,
// keyed by ID.
func (m *Module) FuncTypes() map[ID]FuncType {
	types := make(map[ID]FuncType)
	for _, imp := range m.Imports {
		if fn, ok := imp.Desc.(ImportFunc); ok {
			types[fn.ID] = fn.Type
		}
	}
	for _, fn := range m.Funcs {
		types[fn.ID] = fn.Type()
	}
	return types
}

// Func returns the defined function with the given ID, or nil.
func (m *Module) Func(id ID) *Func {
	for _, fn := range m.Funcs {
		if fn.ID == id {
			return fn
		}
	}
	return nil
}

// Runtime routines provided by the host.
const (
	PrintI64 ID = "$print_i64"
	InputI64 ID = "$input_i64"
	Mem      ID = "$mem"
)

// Host module and field names of the runtime imports.
const (
	ConsoleModule = "console"
	MemoryModule  = "js"
	MemoryName    = "mem"
)

// Imports returns the runtime imports every compiled module declares: the
// integer print and read routines and a memory of at most maxMemSize pages.
func Imports(maxMemSize uint32) []Import {
	return []Import{
		{
			Module: ConsoleModule,
			Name:   "print_i64",
			Desc:   ImportFunc{ID: PrintI64, Type: FuncType{Params: []ValType{I64}}},
		},
		{
			Module: ConsoleModule,
			Name:   "input_i64",
			Desc:   ImportFunc{ID: InputI64, Type: FuncType{Results: []ValType{I64}}},
		},
		{
			Module: MemoryModule,
			Name:   MemoryName,
			Desc:   ImportMemory{ID: Mem, Min: 1, Max: maxMemSize},
		},
	}
}
